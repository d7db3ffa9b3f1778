package sso

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/go-entitlement-auth/internal/errors"
	"github.com/jrsteele09/go-entitlement-auth/token"
	"github.com/jrsteele09/go-entitlement-auth/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// TierSyncer applies a subscription tier to a local user
type TierSyncer interface {
	SyncIntegrationTier(ctx context.Context, userID, externalID, tier string) error
}

// SessionIssuer mints the local session token
type SessionIssuer interface {
	GenerateSessionToken(identity token.Claims) (string, error)
}

// LoginResult is what a successful SSO login hands back
type LoginResult struct {
	User         *users.User `json:"user"`
	SessionToken string      `json:"sessionToken"`
}

// Bridge turns a SoloSuccess assertion into a local user and session
type Bridge struct {
	verifier token.Signer
	users    users.Repo
	syncer   TierSyncer
	sessions SessionIssuer
	logger   zerolog.Logger
	nowFunc  func() time.Time
}

type BridgeOption func(*Bridge)

func WithLogger(logger zerolog.Logger) BridgeOption {
	return func(b *Bridge) {
		b.logger = logger
	}
}

func WithNowFunc(now func() time.Time) BridgeOption {
	return func(b *Bridge) {
		b.nowFunc = now
	}
}

// NewBridge wires the bridge. verifier holds the shared SSO secret, which must
// not be the secret used for local session tokens.
func NewBridge(verifier token.Signer, userRepo users.Repo, syncer TierSyncer, sessions SessionIssuer, options ...BridgeOption) (*Bridge, error) {
	if verifier == nil {
		return nil, errors.New("[NewBridge] SSO verifier is required")
	}
	if userRepo == nil {
		return nil, errors.New("[NewBridge] users repo is required")
	}
	if syncer == nil {
		return nil, errors.New("[NewBridge] tier syncer is required")
	}
	if sessions == nil {
		return nil, errors.New("[NewBridge] session issuer is required")
	}
	b := &Bridge{
		verifier: verifier,
		users:    userRepo,
		syncer:   syncer,
		sessions: sessions,
		logger:   log.Logger,
		nowFunc:  time.Now,
	}
	for _, opt := range options {
		opt(b)
	}
	return b, nil
}

// ValidateSSOToken verifies the assertion signature and expiry and that the
// required fields are present. Every failure is ErrInvalidSSOToken.
func (b *Bridge) ValidateSSOToken(raw string) (*Assertion, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, apperrors.ErrInvalidSSOToken
	}
	assertion := &Assertion{}
	parsed, err := jwt.ParseWithClaims(raw, assertion, b.verifier.GetVerificationKey,
		jwt.WithValidMethods([]string{b.verifier.GetSigningMethod().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(b.nowFunc),
	)
	if err != nil || !parsed.Valid {
		b.logger.Debug().Err(err).Msg("SSO assertion rejected")
		return nil, apperrors.ErrInvalidSSOToken
	}
	if !assertion.complete() {
		return nil, apperrors.ErrInvalidSSOToken
	}
	assertion.Email = users.NormalizeEmail(assertion.Email)
	return assertion, nil
}

// CreateOrGetUser finds the local user by external id, then by email, and
// provisions one with an unusable password when neither matches
func (b *Bridge) CreateOrGetUser(ctx context.Context, email, firstName, lastName, tier, externalID string) (*users.User, error) {
	email = users.NormalizeEmail(email)

	user, err := b.lookup(ctx, email, externalID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return b.refresh(ctx, user, firstName, lastName, externalID)
	}

	placeholder, err := users.RandomPlaceholderPassword()
	if err != nil {
		return nil, errors.Wrap(err, "[Bridge.CreateOrGetUser] RandomPlaceholderPassword")
	}
	now := b.nowFunc()
	user = &users.User{
		Email:        email,
		PasswordHash: placeholder,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         users.RoleUser,
		ExternalID:   externalID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := b.users.Create(ctx, user); err != nil {
		if !apperrors.Is(err, apperrors.ErrDuplicate) {
			return nil, errors.Wrap(err, "[Bridge.CreateOrGetUser] users.Create")
		}
		// a concurrent login provisioned the same identity first
		winner, lookupErr := b.lookup(ctx, email, externalID)
		if lookupErr != nil || winner == nil {
			return nil, errors.Wrap(err, "[Bridge.CreateOrGetUser] users.Create")
		}
		return winner, nil
	}

	b.logger.Info().Str("user_id", user.ID).Str("tier", tier).Msg("provisioned user from SSO")
	return user, nil
}

// ValidateAndLogin validates the assertion, provisions the user, syncs the
// tier and only then issues the session token. A sync failure aborts the login.
func (b *Bridge) ValidateAndLogin(ctx context.Context, raw string) (*LoginResult, error) {
	assertion, err := b.ValidateSSOToken(raw)
	if err != nil {
		return nil, err
	}

	user, err := b.CreateOrGetUser(ctx, assertion.Email, assertion.FirstName, assertion.LastName, assertion.Tier, assertion.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "[Bridge.ValidateAndLogin] CreateOrGetUser")
	}

	if err := b.syncer.SyncIntegrationTier(ctx, user.ID, assertion.UserID, assertion.Tier); err != nil {
		return nil, errors.Wrap(err, "[Bridge.ValidateAndLogin] SyncIntegrationTier")
	}

	sessionToken, err := b.sessions.GenerateSessionToken(token.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Bridge.ValidateAndLogin] GenerateSessionToken")
	}

	return &LoginResult{User: user, SessionToken: sessionToken}, nil
}

func (b *Bridge) lookup(ctx context.Context, email, externalID string) (*users.User, error) {
	if externalID != "" {
		user, err := b.users.GetByExternalID(ctx, externalID)
		if err == nil {
			return user, nil
		}
		if !apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, errors.Wrap(err, "[Bridge.lookup] GetByExternalID")
		}
	}
	user, err := b.users.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, errors.Wrap(err, "[Bridge.lookup] GetByEmail")
	}
	return nil, nil
}

func (b *Bridge) refresh(ctx context.Context, user *users.User, firstName, lastName, externalID string) (*users.User, error) {
	changed := false
	if firstName != "" && firstName != user.FirstName {
		user.FirstName = firstName
		changed = true
	}
	if lastName != "" && lastName != user.LastName {
		user.LastName = lastName
		changed = true
	}
	if user.ExternalID == "" && externalID != "" {
		user.ExternalID = externalID
		changed = true
	}
	if !changed {
		return user, nil
	}
	user.UpdatedAt = b.nowFunc()
	if err := b.users.Update(ctx, user); err != nil {
		// names are cosmetic, the login can carry on
		b.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to refresh user profile")
	}
	return user, nil
}
