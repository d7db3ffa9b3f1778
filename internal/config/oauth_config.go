package config

import "time"

type OAuthConfig interface {
	GetAuthCodeTimeout() time.Duration
	GetCodeGenerationLength() int
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetSessionTokenExpiry() time.Duration
	GetResetTokenExpiry() time.Duration
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

func (OAuth) GetAuthCodeTimeout() time.Duration {
	return GetEnvDuration("AUTH_CODE_TTL", 10*time.Minute)
}

// GetCodeGenerationLength is the number of random bytes in an authorization code
func (OAuth) GetCodeGenerationLength() int {
	return GetEnvInt("AUTH_CODE_BYTES", 32)
}

func (OAuth) GetAccessTokenExpiry() time.Duration {
	return GetEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute)
}

func (OAuth) GetRefreshTokenExpiry() time.Duration {
	return GetEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour) // 7 days
}

func (OAuth) GetSessionTokenExpiry() time.Duration {
	return GetEnvDuration("SESSION_TOKEN_TTL", 24*time.Hour)
}

func (OAuth) GetResetTokenExpiry() time.Duration {
	return GetEnvDuration("RESET_TOKEN_TTL", time.Hour)
}
