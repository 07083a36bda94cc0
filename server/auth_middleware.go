package server

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-session-server/auth"
	"github.com/jrsteele09/go-session-server/token"
	"github.com/jrsteele09/go-session-server/users"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyUser stores the authenticated user
const ContextKeyUser ContextKey = "user"

// UserFromContext returns the authenticated user resolved by RequireAuth.
func UserFromContext(ctx context.Context) (*users.User, bool) {
	user, ok := ctx.Value(ContextKeyUser).(*users.User)
	return user, ok
}

// RequireAuth is middleware that validates the access token cookie and
// resolves the caller's user into the request context. An expired access
// token gets a distinct error description so clients know this is the one
// rejection a refresh can fix.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(accessTokenCookieName)
			if err != nil {
				writeJSONError(w, "unauthenticated", "No access token provided", http.StatusUnauthorized)
				return
			}

			user, err := s.auth.Authorize(r.Context(), cookie.Value)
			switch {
			case errors.Is(err, token.ErrExpired):
				writeJSONError(w, "unauthenticated", "Access token expired", http.StatusUnauthorized)
				return
			case errors.Is(err, token.ErrMalformed), errors.Is(err, token.ErrSignatureInvalid):
				writeJSONError(w, "unauthenticated", "Invalid access token", http.StatusUnauthorized)
				return
			case errors.Is(err, auth.PrincipalNotFoundErr):
				writeJSONError(w, "not_found", "User not found", http.StatusNotFound)
				return
			case err != nil:
				log.Error().Err(err).Msg("authorize failed")
				writeJSONError(w, "server_error", "Internal server error", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireAdmin is middleware that restricts a route to admin users.
// Must be chained after RequireAuth.
func (s *Server) RequireAdmin() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok || !user.IsAdmin() {
				writeJSONError(w, "forbidden", "Access denied - Admin only", http.StatusForbidden)
				return
			}
			next(w, r)
		}
	}
}
