package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	portEnvVar      = "PORT"
	appNameVar      = "APP_NAME"
	baseURLVar      = "BASE_URL"
	dashboardURLVar = "DASHBOARD_URL"
	databaseURLVar  = "DATABASE_URL"
	redisURLVar     = "REDIS_URL"
	logLevelVar     = "LOG_LEVEL"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Entitlement Auth")
}

func (EnvVars) GetEnv() string {
	return GetEnv("ENV", "DEV")
}

// GetBaseURL returns the public URL of this server (e.g., "https://auth.example.com")
func (EnvVars) GetBaseURL() string {
	return GetEnv(baseURLVar, "http://localhost:8080")
}

// GetDashboardURL is where a browser lands after a GET SSO login
func (EnvVars) GetDashboardURL() string {
	return GetEnv(dashboardURLVar, "http://localhost:3000/dashboard")
}

// GetDatabaseURL returns the Postgres DSN. Empty means in-memory repositories.
func (EnvVars) GetDatabaseURL() string {
	return GetEnv(databaseURLVar, "")
}

// GetRedisURL returns the Redis URL. Empty means in-memory code table and deny-list.
func (EnvVars) GetRedisURL() string {
	return GetEnv(redisURLVar, "")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvInt(envVar string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(envVar))
	if err != nil {
		return defaultValue
	}
	return value
}

func GetEnvDuration(envVar string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(envVar))
	if err != nil {
		return defaultValue
	}
	return value
}
