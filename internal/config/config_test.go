package config_test

import (
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-entitlement-auth/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	for _, v := range []string{"PORT", "SYNC_CONCURRENCY", "SYNC_INTERVAL", "AUTH_CODE_TTL", "ACCESS_TOKEN_TTL", "RATE_LIMIT_PER_MINUTE"} {
		t.Setenv(v, "")
	}
	c := config.New()

	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, 1, c.GetSyncConcurrency())
	require.Zero(t, c.GetSyncInterval())
	require.Equal(t, 10*time.Minute, c.GetAuthCodeTimeout())
	require.Equal(t, 15*time.Minute, c.GetAccessTokenExpiry())
	require.Equal(t, 60, c.GetRateLimitPerMinute())
}

func TestOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("SYNC_CONCURRENCY", "8")
	t.Setenv("SYNC_INTERVAL", "15m")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	c := config.New()

	require.Equal(t, ":9000", c.GetPort())
	require.Equal(t, 8, c.GetSyncConcurrency())
	require.Equal(t, 15*time.Minute, c.GetSyncInterval())
	require.True(t, c.GetAllowedOrigins().IsAllowedOrigin("https://b.example.com"))
	require.False(t, c.GetAllowedOrigins().IsAllowedOrigin("https://c.example.com"))
}

func TestTrustedProxies(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "")
	require.Empty(t, config.New().GetTrustedProxies())

	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.1,not-an-ip")
	require.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.0.2.1/32"),
	}, config.New().GetTrustedProxies())
}

func TestSyncConcurrencyFloor(t *testing.T) {
	t.Setenv("SYNC_CONCURRENCY", "0")
	require.Equal(t, 1, config.New().GetSyncConcurrency())
}

func TestLoadEnvFile(t *testing.T) {
	require.NoError(t, config.LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CRON_SECRET=from-file\n"), 0o600))
	t.Setenv("CRON_SECRET", "")
	require.NoError(t, os.Unsetenv("CRON_SECRET"))

	require.NoError(t, config.LoadEnvFile(path))
	require.Equal(t, "from-file", config.New().GetCronSecret())
}
