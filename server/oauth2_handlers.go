package server

import (
	"mime"
	"net/http"
	"net/url"

	apperrors "github.com/jrsteele09/go-entitlement-auth/internal/errors"
	"github.com/jrsteele09/go-entitlement-auth/token"
)

const (
	grantTypeAuthorizationCode = "authorization_code"
	grantTypeRefreshToken      = "refresh_token"
	responseTypeCode           = "code"
)

// tokenRequest is the /oauth/token body, accepted as a form or as JSON
type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	Code         string `json:"code"`
	RedirectURI  string `json:"redirect_uri"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
	Token        string `json:"token"`
}

func isJSONRequest(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

func parseTokenRequest(w http.ResponseWriter, r *http.Request) (*tokenRequest, error) {
	req := &tokenRequest{}
	if isJSONRequest(r) {
		if err := decodeJSON(w, r, req); err != nil {
			return nil, err
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			return nil, apperrors.Validation("body", "malformed form")
		}
		req.GrantType = r.PostForm.Get("grant_type")
		req.Code = r.PostForm.Get("code")
		req.RedirectURI = r.PostForm.Get("redirect_uri")
		req.ClientID = r.PostForm.Get("client_id")
		req.ClientSecret = r.PostForm.Get("client_secret")
		req.RefreshToken = r.PostForm.Get("refresh_token")
		req.Token = r.PostForm.Get("token")
	}

	// Client credentials may also arrive via HTTP Basic
	if id, secret, ok := r.BasicAuth(); ok && req.ClientID == "" {
		req.ClientID, _ = url.QueryUnescape(id)
		req.ClientSecret, _ = url.QueryUnescape(secret)
	}
	return req, nil
}

// authorizeRequest holds the query parameters of GET /oauth/authorize
type authorizeRequest struct {
	// ClientID identifies the application requesting authorization.
	// Validated against: an active clients.Client
	ClientID string

	// RedirectURI is where the code is sent.
	// Security: must exactly match the client's registered URI to prevent open redirects
	RedirectURI string

	// ResponseType must be "code", the only flow supported
	ResponseType string

	// State is opaque to the server and echoed back on the redirect.
	// Recommended for CSRF protection on the client side.
	State string
}

func parseAuthorizeRequest(r *http.Request) authorizeRequest {
	query := r.URL.Query()
	return authorizeRequest{
		ClientID:     query.Get("client_id"),
		RedirectURI:  query.Get("redirect_uri"),
		ResponseType: query.Get("response_type"),
		State:        query.Get("state"),
	}
}

func (p authorizeRequest) validate() error {
	if p.ResponseType != responseTypeCode {
		return apperrors.Validation("response_type", "must be code")
	}
	if p.ClientID == "" {
		return apperrors.Validation("client_id", "is required")
	}
	if p.RedirectURI == "" {
		return apperrors.Validation("redirect_uri", "is required")
	}
	return nil
}

// Authorize handles GET /oauth/authorize. The caller must already hold a
// session. Errors are returned as JSON and never redirected, so an
// unregistered redirect_uri is never followed.
func (s *Server) Authorize(w http.ResponseWriter, r *http.Request) {
	params := parseAuthorizeRequest(r)
	if err := params.validate(); err != nil {
		writeJSONError(w, errorInvalidRequest, err.Error(), http.StatusBadRequest)
		return
	}

	principal, ok := s.authenticate(r)
	if !ok || principal.UserID == "" {
		writeJSONError(w, errorUnauthorized, "login required", http.StatusUnauthorized)
		return
	}

	code, err := s.services.Codes.Issue(r.Context(), principal.UserID, params.ClientID, params.RedirectURI)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrInvalidClient) || apperrors.Is(err, apperrors.ErrInvalidRedirectURI) {
			writeJSONError(w, errorInvalidRequest, err.Error(), http.StatusBadRequest)
			return
		}
		s.writeError(w, r, err)
		return
	}

	http.Redirect(w, r, callbackRedirect(params.RedirectURI, code, params.State), http.StatusFound)
}

// callbackRedirect appends code and state to the registered redirect URI
func callbackRedirect(redirectURI, code, state string) string {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return redirectURI
	}
	q := u.Query()
	q.Set("code", code)
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Token handles POST /oauth/token for the authorization_code and refresh_token grants
func (s *Server) Token(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")

	req, err := parseTokenRequest(w, r)
	if err != nil {
		writeJSONError(w, errorInvalidRequest, err.Error(), http.StatusBadRequest)
		return
	}

	var pair *token.TokenPair
	switch req.GrantType {
	case grantTypeAuthorizationCode:
		pair, err = s.exchangeAuthorizationCode(r, req)
	case grantTypeRefreshToken:
		if req.RefreshToken == "" {
			writeJSONError(w, errorInvalidRequest, "refresh_token is required", http.StatusBadRequest)
			return
		}
		pair, err = s.services.Tokens.RefreshAccessToken(r.Context(), req.RefreshToken)
	case "":
		writeJSONError(w, errorInvalidRequest, "grant_type is required", http.StatusBadRequest)
		return
	default:
		writeJSONError(w, errorUnsupportedGrantType, "grant type not supported", http.StatusBadRequest)
		return
	}

	if err != nil {
		switch {
		case apperrors.Is(err, apperrors.ErrInvalidRequest):
			writeJSONError(w, errorInvalidRequest, err.Error(), http.StatusBadRequest)
		case apperrors.Is(err, apperrors.ErrInvalidGrant), apperrors.Is(err, apperrors.ErrInvalidRefreshToken):
			writeJSONError(w, errorInvalidGrant, "invalid or expired grant", http.StatusBadRequest)
		default:
			s.writeError(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) exchangeAuthorizationCode(r *http.Request, req *tokenRequest) (*token.TokenPair, error) {
	if req.Code == "" || req.ClientID == "" || req.ClientSecret == "" || req.RedirectURI == "" {
		return nil, apperrors.Validation("request", "code, client_id, client_secret and redirect_uri are required")
	}

	userID, err := s.services.Codes.Exchange(r.Context(), req.Code, req.ClientID, req.ClientSecret, req.RedirectURI)
	if err != nil {
		return nil, err
	}

	user, err := s.services.Users.GetByID(r.Context(), userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("authorization code issued for unknown user")
		return nil, apperrors.ErrInvalidGrant
	}

	return s.services.Tokens.GenerateTokenPair(token.Claims{
		UserID:   user.ID,
		Email:    user.Email,
		Role:     string(user.Role),
		ClientID: req.ClientID,
	})
}

// Revoke handles POST /oauth/revoke. It always succeeds so callers learn
// nothing about the token they sent.
func (s *Server) Revoke(w http.ResponseWriter, r *http.Request) {
	if req, err := parseTokenRequest(w, r); err == nil && req.Token != "" {
		s.services.Tokens.RevokeToken(r.Context(), req.Token)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
