package auth

import "errors"

var (
	UnauthenticatedErr    = errors.New("unauthenticated")
	PrincipalNotFoundErr  = errors.New("principal not found")
	AlreadyExistsErr      = errors.New("user already exists")
	InvalidCredentialsErr = errors.New("invalid email or password")
	StoreUnavailableErr   = errors.New("session store unavailable")
)
