package main

import (
	"github.com/jrsteele09/go-entitlement-auth/authcode"
	"github.com/jrsteele09/go-entitlement-auth/clients"
	"github.com/jrsteele09/go-entitlement-auth/entitlements"
	"github.com/jrsteele09/go-entitlement-auth/internal/config"
	"github.com/jrsteele09/go-entitlement-auth/reconcile"
	"github.com/jrsteele09/go-entitlement-auth/server"
	"github.com/jrsteele09/go-entitlement-auth/sso"
	"github.com/jrsteele09/go-entitlement-auth/token"
	"github.com/jrsteele09/go-entitlement-auth/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// checkSecrets refuses to start with missing or shared signing secrets
func checkSecrets(cfg config.Config) error {
	access, refresh, shared := cfg.GetJWTSecret(), cfg.GetJWTRefreshSecret(), cfg.GetSSOSharedSecret()
	switch {
	case access == "" || refresh == "" || shared == "":
		return errors.New("JWT_SECRET, JWT_REFRESH_SECRET and SOLOSUCCESS_SSO_SECRET must be set")
	case access == refresh:
		return errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ")
	case access == shared || refresh == shared:
		return errors.New("SOLOSUCCESS_SSO_SECRET must differ from the token secrets")
	}
	return nil
}

func buildServices(cfg config.Config, st *stores, logger zerolog.Logger) (server.Services, error) {
	if err := checkSecrets(cfg); err != nil {
		return server.Services{}, err
	}

	clientStore := clients.NewStore(st.clients, clients.WithLogger(logger))

	codes, err := authcode.NewIssuer(st.codes, clientStore,
		authcode.WithTTL(cfg.GetAuthCodeTimeout()),
		authcode.WithCodeLength(cfg.GetCodeGenerationLength()),
		authcode.WithLogger(logger),
	)
	if err != nil {
		return server.Services{}, err
	}

	accessSigner, err := token.NewHMACSigner(cfg.GetJWTSecret())
	if err != nil {
		return server.Services{}, errors.Wrap(err, "access signer")
	}
	refreshSigner, err := token.NewHMACSigner(cfg.GetJWTRefreshSecret())
	if err != nil {
		return server.Services{}, errors.Wrap(err, "refresh signer")
	}
	tokens, err := token.New(accessSigner, refreshSigner,
		token.WithTokenExpiry(cfg.GetAccessTokenExpiry(), cfg.GetRefreshTokenExpiry()),
		token.WithSessionExpiry(cfg.GetSessionTokenExpiry()),
		token.WithIssuer(cfg.GetBaseURL()),
		token.WithRevokedTokenCache(st.revoked),
		token.WithLogger(logger),
	)
	if err != nil {
		return server.Services{}, err
	}

	engine, err := entitlements.NewEngine(st.enrollments, st.courses, st.integrations, entitlements.WithLogger(logger))
	if err != nil {
		return server.Services{}, err
	}

	ssoVerifier, err := token.NewHMACSigner(cfg.GetSSOSharedSecret())
	if err != nil {
		return server.Services{}, errors.Wrap(err, "sso verifier")
	}
	bridge, err := sso.NewBridge(ssoVerifier, st.users, engine, tokens, sso.WithLogger(logger))
	if err != nil {
		return server.Services{}, err
	}

	reconciler, err := reconcile.New(engine,
		reconcile.WithConcurrency(cfg.GetSyncConcurrency()),
		reconcile.WithLogger(logger),
	)
	if err != nil {
		return server.Services{}, err
	}

	return server.Services{
		Clients:      clientStore,
		Codes:        codes,
		Tokens:       tokens,
		SSO:          bridge,
		Entitlements: engine,
		Reconciler:   reconciler,
		Users:        st.users,
		ResetTokens:  users.NewResetTokens(cfg.GetResetTokenExpiry(), nil),
	}, nil
}
