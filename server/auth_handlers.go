package server

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-session-server/auth"
	"github.com/jrsteele09/go-session-server/token"
	"github.com/jrsteele09/go-session-server/users"
)

const contentTypeJSON = "application/json; charset=utf-8"

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	User    *users.User `json:"user"`
	Message string      `json:"message"`
}

// SignupHandler registers a new user and logs them straight in, setting
// both credential cookies.
func (s *Server) SignupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, "invalid_request", "Failed to parse request body", http.StatusBadRequest)
			return
		}
		if req.Name == "" || req.Email == "" || req.Password == "" {
			writeJSONError(w, "invalid_request", "name, email and password are required", http.StatusBadRequest)
			return
		}

		user, creds, err := s.auth.Signup(r.Context(), req.Name, req.Email, req.Password)
		switch {
		case errors.Is(err, auth.AlreadyExistsErr):
			writeJSONError(w, "already_exists", "User already exists", http.StatusBadRequest)
			return
		case errors.Is(err, auth.InvalidCredentialsErr):
			writeJSONError(w, "invalid_request", err.Error(), http.StatusBadRequest)
			return
		case errors.Is(err, auth.StoreUnavailableErr):
			log.Error().Err(err).Msg("signup: session store unavailable")
			writeJSONError(w, "temporarily_unavailable", "Service temporarily unavailable", http.StatusServiceUnavailable)
			return
		case err != nil:
			log.Error().Err(err).Msg("signup failed")
			writeJSONError(w, "server_error", "Internal server error", http.StatusInternalServerError)
			return
		}

		s.SetAuthCookies(w, creds)
		w.Header().Set("Content-Type", contentTypeJSON)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(userResponse{User: user, Message: "User created successfully"})
	}
}

// LoginHandler checks credentials and sets both credential cookies. A new
// login supersedes any refresh token issued to a previous session for the
// same user.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, "invalid_request", "Failed to parse request body", http.StatusBadRequest)
			return
		}

		user, creds, err := s.auth.Login(r.Context(), req.Email, req.Password)
		switch {
		case errors.Is(err, auth.InvalidCredentialsErr):
			writeJSONError(w, "invalid_credentials", "Invalid email or password", http.StatusBadRequest)
			return
		case errors.Is(err, auth.StoreUnavailableErr):
			log.Error().Err(err).Msg("login: session store unavailable")
			writeJSONError(w, "temporarily_unavailable", "Service temporarily unavailable", http.StatusServiceUnavailable)
			return
		case err != nil:
			log.Error().Err(err).Msg("login failed")
			writeJSONError(w, "server_error", "Internal server error", http.StatusInternalServerError)
			return
		}

		s.SetAuthCookies(w, creds)
		w.Header().Set("Content-Type", contentTypeJSON)
		_ = json.NewEncoder(w).Encode(userResponse{User: user, Message: "Logged in successfully"})
	}
}

// LogoutHandler invalidates the stored refresh token and clears both
// cookies. It always succeeds from the caller's perspective: a missing or
// invalid refresh cookie just means there is nothing to invalidate.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(refreshTokenCookieName); err == nil {
			s.auth.Logout(r.Context(), cookie.Value)
		}

		s.ClearAuthCookies(w)
		w.Header().Set("Content-Type", contentTypeJSON)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Logged out successfully"})
	}
}

// RefreshTokenHandler exchanges the refresh cookie for a new access token
// cookie. The refresh token must still be the one on record for its user;
// a token superseded by a later login or invalidated by logout gets 401.
func (s *Server) RefreshTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(refreshTokenCookieName)
		if err != nil {
			writeJSONError(w, "unauthenticated", "No refresh token provided", http.StatusUnauthorized)
			return
		}

		accessToken, err := s.auth.Refresh(r.Context(), cookie.Value)
		switch {
		case errors.Is(err, token.ErrExpired):
			writeJSONError(w, "unauthenticated", "Refresh token expired", http.StatusUnauthorized)
			return
		case errors.Is(err, token.ErrMalformed), errors.Is(err, token.ErrSignatureInvalid):
			writeJSONError(w, "unauthenticated", "Invalid refresh token", http.StatusUnauthorized)
			return
		case errors.Is(err, auth.UnauthenticatedErr):
			writeJSONError(w, "unauthenticated", "Refresh token superseded", http.StatusUnauthorized)
			return
		case errors.Is(err, auth.StoreUnavailableErr):
			log.Error().Err(err).Msg("refresh: session store unavailable")
			writeJSONError(w, "temporarily_unavailable", "Service temporarily unavailable", http.StatusServiceUnavailable)
			return
		case err != nil:
			log.Error().Err(err).Msg("refresh failed")
			writeJSONError(w, "server_error", "Internal server error", http.StatusInternalServerError)
			return
		}

		s.SetAccessCookie(w, accessToken)
		w.Header().Set("Content-Type", contentTypeJSON)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Token refreshed successfully"})
	}
}

// ProfileHandler returns the authenticated caller's user view. RequireAuth
// has already resolved the user into the request context.
func (s *Server) ProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			writeJSONError(w, "unauthenticated", "Not authenticated", http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		_ = json.NewEncoder(w).Encode(user)
	}
}

func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}
