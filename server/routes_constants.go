package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteAuthSignup       = "/auth/signup"
	RouteAuthLogin        = "/auth/login"
	RouteAuthLogout       = "/auth/logout"
	RouteAuthRefreshToken = "/auth/refresh-token"
	RouteAuthProfile      = "/auth/profile"
)
