package token

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-entitlement-auth/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultAccessTokenExpiry  = 15 * time.Minute
	defaultRefreshTokenExpiry = 7 * 24 * time.Hour
	defaultSessionExpiry      = 24 * time.Hour
	bearerTokenType           = "Bearer"
)

// Manager issues and verifies stateless access and refresh tokens. The only
// server-side state is the jti deny-list used for revocation and rotation.
type Manager struct {
	accessSigner       Signer
	refreshSigner      Signer
	revokedCache       RevokedTokenCache
	issuer             string
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	sessionExpiry      time.Duration
	logger             zerolog.Logger
	nowFunc            func() time.Time
}

type ManagerOption func(*Manager)

func WithTokenExpiry(accessTokenExpiry, refreshTokenExpiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = accessTokenExpiry
		m.refreshTokenExpiry = refreshTokenExpiry
	}
}

func WithSessionExpiry(sessionExpiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.sessionExpiry = sessionExpiry
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithIssuer(issuer string) ManagerOption {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

func WithRevokedTokenCache(cache RevokedTokenCache) ManagerOption {
	return func(m *Manager) {
		m.revokedCache = cache
	}
}

func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// New builds a Manager. The access and refresh signers must use different secrets.
func New(accessSigner, refreshSigner Signer, options ...ManagerOption) (*Manager, error) {
	if accessSigner == nil || refreshSigner == nil {
		return nil, errors.New("[token.New] access and refresh signers are required")
	}
	m := &Manager{
		accessSigner:  accessSigner,
		refreshSigner: refreshSigner,
		revokedCache:  NewInMemoryRevokedTokenCache(),
		logger:        log.Logger,
	}

	for _, opt := range options {
		opt(m)
	}

	if m.accessTokenExpiry <= 0 {
		m.accessTokenExpiry = defaultAccessTokenExpiry
	}
	if m.refreshTokenExpiry <= 0 {
		m.refreshTokenExpiry = defaultRefreshTokenExpiry
	}
	if m.sessionExpiry <= 0 {
		m.sessionExpiry = defaultSessionExpiry
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m, nil
}

// AccessTokenExpiry is the expires_in hint returned with token pairs
func (m *Manager) AccessTokenExpiry() time.Duration {
	return m.accessTokenExpiry
}

func (m *Manager) SessionExpiry() time.Duration {
	return m.sessionExpiry
}

func (m *Manager) GenerateAccessToken(identity Claims) (string, error) {
	return m.sign(identity, TypeAccess, m.accessTokenExpiry, m.accessSigner)
}

func (m *Manager) GenerateRefreshToken(identity Claims) (string, error) {
	return m.sign(identity, TypeRefresh, m.refreshTokenExpiry, m.refreshSigner)
}

// GenerateSessionToken issues the token handed out after an SSO login. It is
// an access token with the longer session lifetime.
func (m *Manager) GenerateSessionToken(identity Claims) (string, error) {
	return m.sign(identity, TypeAccess, m.sessionExpiry, m.accessSigner)
}

// GenerateTokenPair issues a fresh access and refresh token for the identity
func (m *Manager) GenerateTokenPair(identity Claims) (*TokenPair, error) {
	accessToken, err := m.GenerateAccessToken(identity)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.GenerateTokenPair] GenerateAccessToken")
	}
	refreshToken, err := m.GenerateRefreshToken(identity)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.GenerateTokenPair] GenerateRefreshToken")
	}
	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(m.accessTokenExpiry.Seconds()),
		TokenType:    bearerTokenType,
	}, nil
}

// VerifyAccessToken returns ErrInvalidAccessToken for every failure
func (m *Manager) VerifyAccessToken(ctx context.Context, rawToken string) (*Claims, error) {
	claims, err := m.verify(ctx, rawToken, TypeAccess, m.accessSigner)
	if err != nil {
		m.logger.Debug().Err(err).Msg("access token rejected")
		return nil, apperrors.ErrInvalidAccessToken
	}
	return claims, nil
}

// VerifyRefreshToken returns ErrInvalidRefreshToken for every failure
func (m *Manager) VerifyRefreshToken(ctx context.Context, rawToken string) (*Claims, error) {
	claims, err := m.verify(ctx, rawToken, TypeRefresh, m.refreshSigner)
	if err != nil {
		m.logger.Debug().Err(err).Msg("refresh token rejected")
		return nil, apperrors.ErrInvalidRefreshToken
	}
	return claims, nil
}

// RefreshAccessToken spends a refresh token and rotates it. The used token is
// deny-listed until its natural expiry so it can only be spent once.
func (m *Manager) RefreshAccessToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := m.VerifyRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	added, err := m.revokedCache.Add(ctx, claims.ID, claims.ExpiresAt.Time)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.RefreshAccessToken] revokedCache.Add")
	}
	if !added {
		// lost a race with a concurrent refresh of the same token
		return nil, apperrors.ErrInvalidRefreshToken
	}

	pair, err := m.GenerateTokenPair(claims.Identity())
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.RefreshAccessToken] GenerateTokenPair")
	}
	return pair, nil
}

// RevokeToken deny-lists the token's jti if it verifies as either an access
// or a refresh token. Anything else is ignored.
func (m *Manager) RevokeToken(ctx context.Context, rawToken string) {
	claims, err := m.VerifyAccessToken(ctx, rawToken)
	if err != nil {
		claims, err = m.VerifyRefreshToken(ctx, rawToken)
	}
	if err != nil {
		return
	}
	if _, err := m.revokedCache.Add(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		m.logger.Err(err).Str("jti", claims.ID).Msg("failed to revoke token")
	}
}

// CleanupRevokedTokens removes expired entries from the deny-list
func (m *Manager) CleanupRevokedTokens(ctx context.Context) {
	if m.revokedCache != nil {
		m.revokedCache.Cleanup(ctx)
	}
}

func (m *Manager) sign(identity Claims, tokenType TokenType, expiry time.Duration, signer Signer) (string, error) {
	now := m.nowFunc()
	claims := identity.Identity()
	claims.TokenType = tokenType
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.New().String(),
		Issuer:    m.issuer,
		Subject:   identity.UserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
	}
	if claims.Subject == "" {
		claims.Subject = identity.ClientID
	}
	return signer.Sign(&claims)
}

func (m *Manager) verify(ctx context.Context, rawToken string, tokenType TokenType, signer Signer) (*Claims, error) {
	if rawToken == "" {
		return nil, errors.New("empty token")
	}
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{signer.GetSigningMethod().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.nowFunc),
	}
	if m.issuer != "" {
		options = append(options, jwt.WithIssuer(m.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(rawToken, claims, signer.GetVerificationKey, options...)
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}
	if !parsed.Valid {
		return nil, errors.New("token not valid")
	}
	if claims.TokenType != tokenType {
		return nil, errors.Errorf("token type %q, want %q", claims.TokenType, tokenType)
	}
	if claims.ID == "" {
		return nil, errors.New("token missing jti claim")
	}

	revoked, err := m.revokedCache.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, errors.Wrap(err, "revokedCache.IsRevoked")
	}
	if revoked {
		return nil, errors.New("token revoked")
	}
	return claims, nil
}
