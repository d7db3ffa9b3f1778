package server

import (
	"net/http"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-entitlement-auth/internal/errors"
	"github.com/jrsteele09/go-entitlement-auth/token"
	"github.com/jrsteele09/go-entitlement-auth/users"
)

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User         *users.User `json:"user"`
	SessionToken string      `json:"sessionToken"`
}

func sessionClaims(user *users.User) token.Claims {
	return token.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
	}
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request, user *users.User, status int) {
	sessionToken, err := s.services.Tokens.GenerateSessionToken(sessionClaims(user))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.setSessionCookie(w, r, sessionToken)
	writeJSON(w, status, sessionResponse{User: user, SessionToken: sessionToken})
}

// Register creates a local account. The configured admin email is promoted to admin.
func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	email := users.NormalizeEmail(req.Email)
	if !strings.Contains(email, "@") {
		s.writeError(w, r, apperrors.Validation("email", "must be a valid email address"))
		return
	}
	if err := users.ValidatePasswordStrength(req.Password); err != nil {
		s.writeError(w, r, apperrors.Validation("password", err.Error()))
		return
	}

	hash, err := users.HashPassword(req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	role := users.RoleUser
	if adminEmail := users.NormalizeEmail(s.config.GetAdminEmail()); adminEmail != "" && adminEmail == email {
		role = users.RoleAdmin
	}

	user := &users.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         role,
	}
	if err := s.services.Users.Create(r.Context(), user); err != nil {
		if apperrors.Is(err, apperrors.ErrDuplicate) {
			writeJSONError(w, errorConflict, "email already registered", http.StatusConflict)
			return
		}
		s.writeError(w, r, err)
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("role", string(role)).Msg("user registered")
	s.startSession(w, r, user, http.StatusCreated)
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.services.Users.GetByEmail(r.Context(), users.NormalizeEmail(req.Email))
	if err != nil {
		user = nil
	}
	if !users.VerifyUserPassword(user, req.Password) {
		writeJSONError(w, errorUnauthorized, apperrors.ErrInvalidCredentials.Error(), http.StatusUnauthorized)
		return
	}
	s.startSession(w, r, user, http.StatusOK)
}

// ForgotPassword always answers 202 so the endpoint cannot be used to probe for accounts
func (s *Server) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.services.Users.GetByEmail(r.Context(), users.NormalizeEmail(req.Email))
	if err == nil {
		resetToken, err := s.services.ResetTokens.Issue(user.ID)
		if err != nil {
			s.logger.Err(err).Str("user_id", user.ID).Msg("failed to issue reset token")
		} else if s.env == "DEV" {
			// No mail delivery in this service; DEV prints the link instead
			s.logger.Info().Str("user_id", user.ID).Str("reset_token", resetToken).Msg("password reset requested")
		} else {
			s.logger.Info().Str("user_id", user.ID).Msg("password reset requested")
		}
	}

	writeJSON(w, http.StatusAccepted, map[string]bool{"success": true})
}

func (s *Server) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := users.ValidatePasswordStrength(req.Password); err != nil {
		s.writeError(w, r, apperrors.Validation("password", err.Error()))
		return
	}

	userID, ok := s.services.ResetTokens.Consume(req.Token)
	if !ok {
		writeJSONError(w, errorInvalidRequest, "invalid or expired reset token", http.StatusBadRequest)
		return
	}

	user, err := s.services.Users.GetByID(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	hash, err := users.HashPassword(req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	user.PasswordHash = hash
	user.UpdatedAt = time.Now()
	if err := s.services.Users.Update(r.Context(), user); err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
