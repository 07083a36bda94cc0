package config

import (
	"time"
)

const (
	accessSecretEnvVar  = "ACCESS_TOKEN_SECRET"
	refreshSecretEnvVar = "REFRESH_TOKEN_SECRET"
)

type TokenConfig interface {
	GetAccessTokenSecret() string
	GetRefreshTokenSecret() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
}

type Tokens struct{}

var _ TokenConfig = Tokens{}

// GetAccessTokenSecret returns the signing secret for access tokens.
// Distinct from the refresh secret so a leak of one cannot forge the
// other class. Never log or echo this value.
func (Tokens) GetAccessTokenSecret() string {
	return GetEnv(accessSecretEnvVar, "")
}

// GetRefreshTokenSecret returns the signing secret for refresh tokens.
// Never log or echo this value.
func (Tokens) GetRefreshTokenSecret() string {
	return GetEnv(refreshSecretEnvVar, "")
}

func (Tokens) GetAccessTokenExpiry() time.Duration {
	return 15 * time.Minute
}

func (Tokens) GetRefreshTokenExpiry() time.Duration {
	return 7 * 24 * time.Hour
}
