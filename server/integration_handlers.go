package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/go-entitlement-auth/entitlements"
	apperrors "github.com/jrsteele09/go-entitlement-auth/internal/errors"
)

type syncSubscriptionRequest struct {
	UserID            string `json:"userId"`
	SoloSuccessUserID string `json:"solosuccessUserId"`
	Tier              string `json:"tier"`
}

type syncSubscriptionResponse struct {
	Success         bool   `json:"success"`
	UserID          string `json:"userId"`
	Tier            string `json:"tier"`
	UnlockedCourses int    `json:"unlockedCourses"`
}

type connectRequest struct {
	SoloSuccessUserID string `json:"solosuccessUserId"`
	Tier              string `json:"tier"`
}

type entitlementsResponse struct {
	UserID      string                     `json:"userId"`
	Enrollments []*entitlements.Enrollment `json:"enrollments"`
	Integration *entitlements.Integration  `json:"integration,omitempty"`
}

func validateTier(tier string) error {
	if !entitlements.IsKnownTier(tier) {
		return apperrors.Validation("tier", "must be one of free, accelerator, premium")
	}
	return nil
}

// SyncSubscription handles the signed subscription-change webhook
func (s *Server) SyncSubscription(w http.ResponseWriter, r *http.Request) {
	var req syncSubscriptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		s.writeError(w, r, apperrors.Validation("userId", "is required"))
		return
	}
	if err := validateTier(req.Tier); err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.services.Users.GetByID(r.Context(), req.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.services.Entitlements.SyncIntegrationTier(r.Context(), req.UserID, req.SoloSuccessUserID, req.Tier); err != nil {
		s.writeError(w, r, err)
		return
	}

	logEvent := s.logger.Info().Str("user_id", req.UserID).Str("tier", req.Tier)
	if client := webhookClientFromContext(r.Context()); client != nil {
		logEvent = logEvent.Str("client_id", client.ID)
	}
	logEvent.Msg("subscription synced")

	writeJSON(w, http.StatusOK, syncSubscriptionResponse{
		Success:         true,
		UserID:          req.UserID,
		Tier:            entitlements.NormalizeTier(req.Tier),
		UnlockedCourses: entitlements.TierToUnlockedCourses(req.Tier),
	})
}

// SyncAll runs one reconciliation sweep, triggered by the external scheduler
func (s *Server) SyncAll(w http.ResponseWriter, r *http.Request) {
	result, err := s.services.Reconciler.SyncAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SyncStatus returns the integration snapshot for the caller, or for anyone when the caller is an admin
func (s *Server) SyncStatus(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	userID := r.PathValue("userId")
	if principal.UserID != userID && !principal.IsAdmin() {
		writeJSONError(w, errorForbidden, "cannot read another user's status", http.StatusForbidden)
		return
	}

	integration, err := s.services.Entitlements.Status(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, integration)
}

// Connect binds a SoloSuccess account to the calling user
func (s *Server) Connect(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	if principal.UserID == "" {
		writeJSONError(w, errorForbidden, "user token required", http.StatusForbidden)
		return
	}

	var req connectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validateTier(req.Tier); err != nil {
		s.writeError(w, r, err)
		return
	}

	integration, err := s.services.Entitlements.BindIntegration(r.Context(), principal.UserID, req.SoloSuccessUserID, req.Tier)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, integration)
}

// Entitlements returns the caller's enrollments and integration snapshot
func (s *Server) Entitlements(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	enrollments, err := s.services.Entitlements.Enrollments(r.Context(), principal.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if enrollments == nil {
		enrollments = []*entitlements.Enrollment{}
	}

	response := entitlementsResponse{UserID: principal.UserID, Enrollments: enrollments}
	integration, err := s.services.Entitlements.Status(r.Context(), principal.UserID)
	switch {
	case err == nil:
		response.Integration = integration
	case !apperrors.Is(err, apperrors.ErrNotFound):
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}
