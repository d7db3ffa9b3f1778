package config

import (
	"net/netip"
	"strings"
)

type SecurityConfig interface {
	GetJWTSecret() string
	GetJWTRefreshSecret() string
	GetSSOSharedSecret() string
	GetCronSecret() string
	GetRateLimitPerMinute() int
	GetTrustedProxies() []netip.Prefix
	GetAdminEmail() string
}

type Security struct{}

var _ SecurityConfig = Security{}

// Secrets default to empty: the server refuses to start without them.

func (Security) GetJWTSecret() string {
	return GetEnv("JWT_SECRET", "")
}

func (Security) GetJWTRefreshSecret() string {
	return GetEnv("JWT_REFRESH_SECRET", "")
}

func (Security) GetSSOSharedSecret() string {
	return GetEnv("SOLOSUCCESS_SSO_SECRET", "")
}

func (Security) GetCronSecret() string {
	return GetEnv("CRON_SECRET", "")
}

// GetRateLimitPerMinute applies per client IP on the credential endpoints. 0 disables it.
func (Security) GetRateLimitPerMinute() int {
	return GetEnvInt("RATE_LIMIT_PER_MINUTE", 60)
}

// GetTrustedProxies reads a comma separated TRUSTED_PROXIES list of CIDRs or
// single addresses. X-Forwarded-For is only honoured from these peers.
// Unparseable entries are ignored.
func (Security) GetTrustedProxies() []netip.Prefix {
	var proxies []netip.Prefix
	for _, entry := range strings.Split(GetEnv("TRUSTED_PROXIES", ""), ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if prefix, err := netip.ParsePrefix(entry); err == nil {
			proxies = append(proxies, prefix.Masked())
			continue
		}
		if addr, err := netip.ParseAddr(entry); err == nil {
			proxies = append(proxies, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
		}
	}
	return proxies
}

// GetAdminEmail is promoted to the admin role when it first appears.
func (Security) GetAdminEmail() string {
	return GetEnv("ADMIN_EMAIL", "")
}
