package clients

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-entitlement-auth/internal/errors"
	"github.com/jrsteele09/go-entitlement-auth/internal/utils"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	clientIDPrefix = "client_"
	clientIDBytes  = 16
	secretBytes    = 32
)

// Store is the credential store for OAuth clients
type Store struct {
	repo    Repo
	logger  zerolog.Logger
	nowFunc func() time.Time
}

type StoreOption func(*Store)

func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

func WithNowFunc(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowFunc = now
	}
}

func NewStore(repo Repo, options ...StoreOption) *Store {
	s := &Store{
		repo:    repo,
		logger:  log.Logger,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// CreateClient registers a client. The returned secret is never stored or shown again.
func (s *Store) CreateClient(ctx context.Context, name, redirectURI, webhookURL, webhookSecret string) (*CreatedClient, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("name", "is required")
	}
	if err := validateAbsoluteURL("redirectUri", redirectURI); err != nil {
		return nil, err
	}
	if webhookURL != "" {
		if err := validateAbsoluteURL("webhookUrl", webhookURL); err != nil {
			return nil, err
		}
	}

	idBytes := make([]byte, clientIDBytes)
	if _, err := rand.Read(idBytes); err != nil {
		return nil, errors.Wrap(err, "[Store.CreateClient] rand.Read id")
	}
	secret := make([]byte, secretBytes)
	if _, err := rand.Read(secret); err != nil {
		return nil, errors.Wrap(err, "[Store.CreateClient] rand.Read secret")
	}
	plainSecret := base64.RawURLEncoding.EncodeToString(secret)

	hash, err := bcrypt.GenerateFromPassword([]byte(plainSecret), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "[Store.CreateClient] hash secret")
	}

	now := s.nowFunc()
	client := &Client{
		ID:            clientIDPrefix + hex.EncodeToString(idBytes),
		SecretHash:    string(hash),
		Name:          name,
		RedirectURI:   redirectURI,
		WebhookURL:    webhookURL,
		WebhookSecret: webhookSecret,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, client); err != nil {
		return nil, errors.Wrap(err, "[Store.CreateClient] repo.Create")
	}

	s.logger.Info().Str("client_id", client.ID).Str("name", name).Msg("oauth client created")
	return &CreatedClient{Client: *client, Secret: plainSecret}, nil
}

// ValidateClientSecret fails closed for unknown or inactive clients
func (s *Store) ValidateClientSecret(ctx context.Context, clientID, secret string) bool {
	client, err := s.repo.Get(ctx, clientID)
	if err != nil || client == nil || !client.IsActive {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(client.SecretHash), []byte(secret)) == nil
}

// ValidateClient checks the credentials and, when redirectURI is supplied,
// that it equals the registered URI exactly. All failures return ErrInvalidClient.
func (s *Store) ValidateClient(ctx context.Context, clientID, secret, redirectURI string) (*Client, error) {
	client, err := s.repo.Get(ctx, clientID)
	if err != nil || client == nil || !client.IsActive {
		return nil, apperrors.ErrInvalidClient
	}
	if bcrypt.CompareHashAndPassword([]byte(client.SecretHash), []byte(secret)) != nil {
		return nil, apperrors.ErrInvalidClient
	}
	if redirectURI != "" && redirectURI != client.RedirectURI {
		return nil, apperrors.ErrInvalidClient
	}
	return client, nil
}

// GetActiveClient returns the client only when it is active
func (s *Store) GetActiveClient(ctx context.Context, clientID string) (*Client, error) {
	client, err := s.repo.Get(ctx, clientID)
	if err != nil || client == nil || !client.IsActive {
		return nil, apperrors.ErrInvalidClient
	}
	return client, nil
}

// DeactivateClient is an idempotent soft delete
func (s *Store) DeactivateClient(ctx context.Context, clientID string) error {
	client, err := s.repo.Get(ctx, clientID)
	if err != nil {
		return err
	}
	if !client.IsActive {
		return nil
	}
	client.IsActive = false
	client.UpdatedAt = s.nowFunc()
	if err := s.repo.Update(ctx, client); err != nil {
		return errors.Wrap(err, "[Store.DeactivateClient] repo.Update")
	}
	s.logger.Info().Str("client_id", clientID).Msg("oauth client deactivated")
	return nil
}

// UpdateClient applies an admin edit
func (s *Store) UpdateClient(ctx context.Context, clientID string, patch Patch) (*Client, error) {
	client, err := s.repo.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperrors.Validation("name", "must not be empty")
		}
		client.Name = name
	}
	if patch.RedirectURI != nil {
		if err := validateAbsoluteURL("redirectUri", *patch.RedirectURI); err != nil {
			return nil, err
		}
		client.RedirectURI = *patch.RedirectURI
	}
	if patch.WebhookURL != nil {
		if *patch.WebhookURL != "" {
			if err := validateAbsoluteURL("webhookUrl", *patch.WebhookURL); err != nil {
				return nil, err
			}
		}
		client.WebhookURL = *patch.WebhookURL
	}
	utils.SetIfPresent(&client.WebhookSecret, patch.WebhookSecret)
	utils.SetIfPresent(&client.IsActive, patch.IsActive)
	client.UpdatedAt = s.nowFunc()

	if err := s.repo.Update(ctx, client); err != nil {
		return nil, errors.Wrap(err, "[Store.UpdateClient] repo.Update")
	}
	return client, nil
}

func (s *Store) GetClient(ctx context.Context, clientID string) (*Client, error) {
	return s.repo.Get(ctx, clientID)
}

func (s *Store) ListClients(ctx context.Context, offset, limit int) ([]*Client, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, offset, limit)
}

func validateAbsoluteURL(field, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return apperrors.Validation(field, "is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return apperrors.Validation(field, "must be an absolute URL")
	}
	if u.Fragment != "" {
		return apperrors.Validation(field, "must not contain a fragment")
	}
	return nil
}
