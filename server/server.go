package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-entitlement-auth/authcode"
	"github.com/jrsteele09/go-entitlement-auth/clients"
	"github.com/jrsteele09/go-entitlement-auth/entitlements"
	"github.com/jrsteele09/go-entitlement-auth/internal/config"
	"github.com/jrsteele09/go-entitlement-auth/reconcile"
	"github.com/jrsteele09/go-entitlement-auth/sso"
	"github.com/jrsteele09/go-entitlement-auth/token"
	"github.com/jrsteele09/go-entitlement-auth/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Services are the domain components the HTTP surface is wired to
type Services struct {
	Clients      *clients.Store
	Codes        *authcode.Issuer
	Tokens       *token.Manager
	SSO          *sso.Bridge
	Entitlements *entitlements.Engine
	Reconciler   *reconcile.Reconciler
	Users        users.Repo
	ResetTokens  *users.ResetTokens
}

func (s Services) validate() error {
	switch {
	case s.Clients == nil:
		return errors.New("client store is required")
	case s.Codes == nil:
		return errors.New("authorization code issuer is required")
	case s.Tokens == nil:
		return errors.New("token manager is required")
	case s.SSO == nil:
		return errors.New("sso bridge is required")
	case s.Entitlements == nil:
		return errors.New("entitlement engine is required")
	case s.Reconciler == nil:
		return errors.New("reconciler is required")
	case s.Users == nil:
		return errors.New("user repo is required")
	case s.ResetTokens == nil:
		return errors.New("reset tokens are required")
	}
	return nil
}

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	services Services
	limiter  *RateLimiter
	logger   zerolog.Logger
}

type Option func(*Server)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func New(cfg config.Config, services Services, options ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("[Server New] config is required")
	}
	if err := services.validate(); err != nil {
		return nil, errors.Wrap(err, "[Server New]")
	}

	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		services: services,
		limiter:  NewRateLimiter(cfg.GetRateLimitPerMinute(), cfg.GetTrustedProxies()),
		logger:   log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			s.logRoute(parts[0], parts[1])
		} else {
			s.logRoute("", parts[0])
		}
	}
}

func (s *Server) logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	s.logger.Info().Msgf("[%-19s] %s", displayMethod, path)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
