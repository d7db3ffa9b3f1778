package config

import "time"

type Config interface {
	EnvConfig
	CorsConfig
	OAuthConfig
	SecurityConfig
	SyncConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetBaseURL() string
	GetDashboardURL() string
	GetDatabaseURL() string
	GetRedisURL() string
	GetLogLevel() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type SyncConfig interface {
	GetSyncConcurrency() int
	GetSyncInterval() time.Duration
}

type mainConfig struct {
	EnvVars
	Cors
	OAuth
	Security
	Sync
}

func New() Config {
	return mainConfig{}
}
