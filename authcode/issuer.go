package authcode

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"

	"github.com/jrsteele09/go-entitlement-auth/clients"
	apperrors "github.com/jrsteele09/go-entitlement-auth/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ClientValidator is the part of the credential store the issuer relies on
type ClientValidator interface {
	GetActiveClient(ctx context.Context, clientID string) (*clients.Client, error)
	ValidateClient(ctx context.Context, clientID, secret, redirectURI string) (*clients.Client, error)
}

// Issuer hands out and redeems authorization codes
type Issuer struct {
	repo       Repo
	clients    ClientValidator
	ttl        time.Duration
	codeLength int
	logger     zerolog.Logger
	nowFunc    func() time.Time
}

type IssuerOption func(*Issuer)

func WithTTL(ttl time.Duration) IssuerOption {
	return func(i *Issuer) {
		if ttl > 0 {
			i.ttl = ttl
		}
	}
}

// WithCodeLength sets the number of random bytes per code. Values below the
// default are ignored.
func WithCodeLength(n int) IssuerOption {
	return func(i *Issuer) {
		if n > codeGenerationLength {
			i.codeLength = n
		}
	}
}

func WithLogger(logger zerolog.Logger) IssuerOption {
	return func(i *Issuer) {
		i.logger = logger
	}
}

func WithNowFunc(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowFunc = now
	}
}

func NewIssuer(repo Repo, clientValidator ClientValidator, options ...IssuerOption) (*Issuer, error) {
	if repo == nil {
		return nil, errors.New("[NewIssuer] code repo is required")
	}
	if clientValidator == nil {
		return nil, errors.New("[NewIssuer] client validator is required")
	}
	i := &Issuer{
		repo:       repo,
		clients:    clientValidator,
		ttl:        defaultCodeTTL,
		codeLength: codeGenerationLength,
		logger:     log.Logger,
		nowFunc:    time.Now,
	}
	for _, opt := range options {
		opt(i)
	}
	return i, nil
}

// Issue creates a code for an authenticated user. The redirect URI must be
// the client's registered URI, compared as plain strings.
func (i *Issuer) Issue(ctx context.Context, userID, clientID, redirectURI string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", apperrors.ErrUnauthenticated
	}
	client, err := i.clients.GetActiveClient(ctx, clientID)
	if err != nil {
		return "", apperrors.ErrInvalidClient
	}
	if redirectURI != client.RedirectURI {
		return "", apperrors.ErrInvalidRedirectURI
	}

	value, err := generateCode(i.codeLength)
	if err != nil {
		return "", errors.Wrap(err, "[Issuer.Issue] generateCode")
	}
	now := i.nowFunc()
	code := &Code{
		Code:        value,
		UserID:      userID,
		ClientID:    clientID,
		RedirectURI: redirectURI,
		IssuedAt:    now,
		ExpiresAt:   now.Add(i.ttl),
	}
	if err := i.repo.Save(ctx, code); err != nil {
		return "", errors.Wrap(err, "[Issuer.Issue] repo.Save")
	}
	return value, nil
}

// Exchange redeems a code and returns the user id it was issued for.
// The code is burned before any other check, so a failed exchange still
// invalidates it. Every failure is ErrInvalidGrant.
func (i *Issuer) Exchange(ctx context.Context, code, clientID, clientSecret, redirectURI string) (string, error) {
	if code == "" {
		return "", apperrors.ErrInvalidGrant
	}
	stored, err := i.repo.Consume(ctx, code)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrNotFound) {
			i.logger.Err(err).Msg("authorization code consume failed")
		}
		return "", apperrors.ErrInvalidGrant
	}

	if stored.Expired(i.nowFunc()) {
		return "", apperrors.ErrInvalidGrant
	}
	if stored.ClientID != clientID || stored.RedirectURI != redirectURI {
		i.logger.Warn().Str("client_id", clientID).Msg("authorization code presented with mismatched client or redirect")
		return "", apperrors.ErrInvalidGrant
	}
	if _, err := i.clients.ValidateClient(ctx, clientID, clientSecret, redirectURI); err != nil {
		return "", apperrors.ErrInvalidGrant
	}
	return stored.UserID, nil
}

// Sweep removes expired codes and returns how many went
func (i *Issuer) Sweep(ctx context.Context) (int, error) {
	n, err := i.repo.DeleteExpired(ctx, i.nowFunc())
	if err != nil {
		return 0, errors.Wrap(err, "[Issuer.Sweep] repo.DeleteExpired")
	}
	return n, nil
}

func generateCode(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
