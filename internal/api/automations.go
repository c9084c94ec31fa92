package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-snooze/internal/automation"
)

// registerAutomationRequest is the request body for POST /automations.
type registerAutomationRequest struct {
	EntityID string   `json:"entity_id"`
	Name     string   `json:"name"`
	AreaID   *string  `json:"area_id"`
	Labels   []string `json:"labels"`
	Enabled  *bool    `json:"enabled"`
}

// handleListAutomations returns every registered automation.
func (s *Server) handleListAutomations(w http.ResponseWriter, r *http.Request) {
	automations := s.registry.ListAutomations(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"automations": automations,
		"count":       len(automations),
	})
}

// handleRegisterAutomation creates or updates an automation registration.
func (s *Server) handleRegisterAutomation(w http.ResponseWriter, r *http.Request) {
	var req registerAutomationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	a := &automation.Automation{
		EntityID: req.EntityID,
		Name:     req.Name,
		AreaID:   req.AreaID,
		Labels:   req.Labels,
		Enabled:  true,
	}
	if req.Enabled != nil {
		a.Enabled = *req.Enabled
	}

	if err := s.registry.Register(r.Context(), a); err != nil {
		writeServiceError(w, err)
		return
	}

	registered, err := s.registry.GetAutomation(r.Context(), a.EntityID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, registered)
}

// handleDeleteAutomation removes an automation. A snoozed automation that
// is deleted is dropped from the snooze state when its timer next fires.
func (s *Server) handleDeleteAutomation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.registry.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
