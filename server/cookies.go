package server

import (
	"net/http"
	"time"

	"github.com/jrsteele09/go-session-server/auth"
)

const (
	// accessTokenCookieName carries the short-lived access token
	accessTokenCookieName = "accessToken"
	// refreshTokenCookieName carries the long-lived refresh token
	refreshTokenCookieName = "refreshToken"
)

// authCookie builds a cookie for one credential. HttpOnly keeps the token
// out of reach of page scripts, SameSite=Strict keeps it off cross-site
// navigations, and the max age matches the credential's own lifetime.
// The Secure flag is dropped only in local development.
func (s *Server) authCookie(name, value string, lifetime time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.env != "DEV",
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(lifetime.Seconds()),
	}
}

// SetAuthCookies binds a freshly issued credential pair to the response.
func (s *Server) SetAuthCookies(w http.ResponseWriter, creds *auth.Credentials) {
	http.SetCookie(w, s.authCookie(accessTokenCookieName, creds.AccessToken, s.auth.AccessTokenExpiry()))
	http.SetCookie(w, s.authCookie(refreshTokenCookieName, creds.RefreshToken, s.auth.RefreshTokenExpiry()))
}

// SetAccessCookie binds a newly refreshed access token to the response.
func (s *Server) SetAccessCookie(w http.ResponseWriter, accessToken string) {
	http.SetCookie(w, s.authCookie(accessTokenCookieName, accessToken, s.auth.AccessTokenExpiry()))
}

// ClearAuthCookies expires both credential cookies regardless of validity.
func (s *Server) ClearAuthCookies(w http.ResponseWriter) {
	http.SetCookie(w, s.authCookie(accessTokenCookieName, "", -time.Second))
	http.SetCookie(w, s.authCookie(refreshTokenCookieName, "", -time.Second))
}
