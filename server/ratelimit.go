package server

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter enforces per-IP throttling on the credential endpoints
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	window  time.Duration
	trusted []netip.Prefix
	mu      sync.Mutex
	clients map[string]*clientLimiter
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter for the provided requests-per-minute budget.
// A non-positive budget disables limiting. X-Forwarded-For is only read when the
// socket peer falls inside trustedProxies.
func NewRateLimiter(requestsPerMinute int, trustedProxies []netip.Prefix) *RateLimiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	burst := requestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:   burst,
		window:  5 * time.Minute,
		trusted: trustedProxies,
		clients: make(map[string]*clientLimiter),
	}
}

func (rl *RateLimiter) Middleware(next http.HandlerFunc) http.HandlerFunc {
	if rl == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !rl.getLimiter(rl.clientIP(r)).Allow() {
			w.Header().Set("Retry-After", "60")
			writeJSONError(w, "rate_limited", "Too many requests. Please slow down.", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	now := time.Now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if entry, ok := rl.clients[key]; ok {
		entry.lastSeen = now
		return entry.limiter
	}

	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.clients[key] = &clientLimiter{limiter: limiter, lastSeen: now}
	rl.cleanupLocked(now)
	return limiter
}

func (rl *RateLimiter) cleanupLocked(now time.Time) {
	for key, entry := range rl.clients {
		if now.Sub(entry.lastSeen) > rl.window {
			delete(rl.clients, key)
		}
	}
}

// clientIP keys on the socket peer. Behind a trusted proxy it walks
// X-Forwarded-For from the right and returns the first untrusted hop.
func (rl *RateLimiter) clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if !rl.isTrusted(host) {
		return host
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if _, err := netip.ParseAddr(hop); err != nil {
			break
		}
		if !rl.isTrusted(hop) {
			return hop
		}
	}
	return host
}

func (rl *RateLimiter) isTrusted(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range rl.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
