package server

import (
	"net/http"
	"strconv"

	"github.com/jrsteele09/go-entitlement-auth/clients"
)

type createClientRequest struct {
	Name          string `json:"name"`
	RedirectURI   string `json:"redirectUri"`
	WebhookURL    string `json:"webhookUrl"`
	WebhookSecret string `json:"webhookSecret"`
}

// AdminCreateClient registers an OAuth client. The plaintext secret is only
// ever returned here.
func (s *Server) AdminCreateClient(w http.ResponseWriter, r *http.Request) {
	var req createClientRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.services.Clients.CreateClient(r.Context(), req.Name, req.RedirectURI, req.WebhookURL, req.WebhookSecret)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) AdminListClients(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	list, err := s.services.Clients.ListClients(r.Context(), offset, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*clients.Client{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"clients": list, "offset": offset})
}

func (s *Server) AdminGetClient(w http.ResponseWriter, r *http.Request) {
	client, err := s.services.Clients.GetClient(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

func (s *Server) AdminUpdateClient(w http.ResponseWriter, r *http.Request) {
	var patch clients.Patch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}

	client, err := s.services.Clients.UpdateClient(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

// AdminDeactivateClient soft-deletes a client
func (s *Server) AdminDeactivateClient(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Clients.DeactivateClient(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
