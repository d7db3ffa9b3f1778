package server

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-entitlement-auth/clients"
	"github.com/jrsteele09/go-entitlement-auth/users"
)

const (
	headerClientID         = "X-Client-Id"
	headerWebhookSignature = "X-Webhook-Signature"
)

// Principal is the authenticated caller of a request
type Principal struct {
	UserID   string
	Email    string
	Role     users.RoleType
	ClientID string
}

func (p *Principal) IsAdmin() bool {
	return p.Role == users.RoleAdmin
}

type principalKey struct{}

type webhookClientKey struct{}

func withPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the caller set by RequireAuth
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

func webhookClientFromContext(ctx context.Context) *clients.Client {
	c, _ := ctx.Value(webhookClientKey{}).(*clients.Client)
	return c
}

// bearerToken extracts the token from an "Authorization: Bearer" header
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(authHeader, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// authenticate accepts a bearer access token or the session cookie set by the SSO bridge
func (s *Server) authenticate(r *http.Request) (*Principal, bool) {
	raw := bearerToken(r)
	if raw == "" {
		if cookie, err := r.Cookie(sessionCookieName); err == nil {
			raw = cookie.Value
		}
	}
	if raw == "" {
		return nil, false
	}

	claims, err := s.services.Tokens.VerifyAccessToken(r.Context(), raw)
	if err != nil {
		return nil, false
	}
	return &Principal{
		UserID:   claims.UserID,
		Email:    claims.Email,
		Role:     users.RoleType(claims.Role),
		ClientID: claims.ClientID,
	}, true
}

// RequireAuth rejects requests without a valid access or session token
func (s *Server) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := s.authenticate(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
			writeJSONError(w, errorUnauthorized, "authentication required", http.StatusUnauthorized)
			return
		}
		next(w, r.WithContext(withPrincipal(r.Context(), principal)))
	}
}

// RequireAdmin must run after RequireAuth
func (s *Server) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok || !principal.IsAdmin() {
			writeJSONError(w, errorForbidden, "admin role required", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

// RequireCronSecret guards the scheduler-triggered endpoints. An unset secret rejects everything.
func (s *Server) RequireCronSecret(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		secret := s.config.GetCronSecret()
		provided := bearerToken(r)
		if secret == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			writeJSONError(w, errorUnauthorized, "invalid cron secret", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// RequireWebhookSignature checks X-Webhook-Signature, the hex HMAC-SHA256 of the
// raw body keyed with the webhook secret of the client named in X-Client-Id.
// The body is restored for the handler.
func (s *Server) RequireWebhookSignature(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client, err := s.services.Clients.GetActiveClient(r.Context(), r.Header.Get(headerClientID))
		if err != nil || !client.HasWebhookSecret() {
			writeJSONError(w, errorUnauthorized, "invalid webhook signature", http.StatusUnauthorized)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeJSONError(w, errorInvalidRequest, "unreadable body", http.StatusBadRequest)
			return
		}
		if !validSignature(body, client.WebhookSecret, r.Header.Get(headerWebhookSignature)) {
			writeJSONError(w, errorUnauthorized, "invalid webhook signature", http.StatusUnauthorized)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next(w, r.WithContext(context.WithValue(r.Context(), webhookClientKey{}, client)))
	}
}

// SignWebhookBody computes the signature a caller sends in X-Webhook-Signature
func SignWebhookBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func validSignature(body []byte, secret, signature string) bool {
	provided, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(provided) == 0 {
		return false
	}
	expected, _ := hex.DecodeString(SignWebhookBody(body, secret))
	return hmac.Equal(provided, expected)
}
