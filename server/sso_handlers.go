package server

import (
	"net/http"

	apperrors "github.com/jrsteele09/go-entitlement-auth/internal/errors"
	"github.com/jrsteele09/go-entitlement-auth/sso"
)

type ssoRequest struct {
	Token string `json:"token"`
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, sessionToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.services.Tokens.SessionExpiry().Seconds()),
	})
}

func (s *Server) ssoLogin(w http.ResponseWriter, r *http.Request, raw string) (*sso.LoginResult, bool) {
	if raw == "" {
		writeJSONError(w, errorInvalidRequest, "token is required", http.StatusBadRequest)
		return nil, false
	}
	result, err := s.services.SSO.ValidateAndLogin(r.Context(), raw)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrInvalidSSOToken) {
			writeJSONError(w, errorUnauthorized, apperrors.ErrInvalidSSOToken.Error(), http.StatusUnauthorized)
			return nil, false
		}
		s.writeError(w, r, err)
		return nil, false
	}
	s.setSessionCookie(w, r, result.SessionToken)
	return result, true
}

// SSOValidate handles POST /api/sso/validate
func (s *Server) SSOValidate(w http.ResponseWriter, r *http.Request) {
	var req ssoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	result, ok := s.ssoLogin(w, r, req.Token)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SSOValidateRedirect handles GET /api/sso/validate?token=, the browser hand-off from SoloSuccess
func (s *Server) SSOValidateRedirect(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.ssoLogin(w, r, r.URL.Query().Get("token")); !ok {
		return
	}
	http.Redirect(w, r, s.config.GetDashboardURL(), http.StatusFound)
}
