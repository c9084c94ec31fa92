package api

import (
	"encoding/json"
	"net/http"

	"github.com/nerrad567/gray-logic-snooze/internal/snooze"
)

// pauseRequest is the request body for POST /snooze/pause.
//
// Either days/hours/minutes or resume_at must be given. disable_at is only
// valid together with resume_at; a future disable_at schedules the pause.
type pauseRequest struct {
	EntityIDs []string `json:"entity_ids"`
	AreaIDs   []string `json:"area_ids"`
	Labels    []string `json:"labels"`
	Days      int      `json:"days"`
	Hours     int      `json:"hours"`
	Minutes   int      `json:"minutes"`
	DisableAt string   `json:"disable_at"`
	ResumeAt  string   `json:"resume_at"`
}

// targetsRequest is the request body for the cancel endpoints.
type targetsRequest struct {
	EntityIDs []string `json:"entity_ids"`
}

// adjustRequest is the request body for POST /snooze/adjust.
type adjustRequest struct {
	EntityIDs []string `json:"entity_ids"`
	Days      int      `json:"days"`
	Hours     int      `json:"hours"`
	Minutes   int      `json:"minutes"`
}

// handleGetSnooze returns the current paused and scheduled automations.
func (s *Server) handleGetSnooze(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, snooze.AttributesOf(s.snooze.State().Snapshot()))
}

// handlePause pauses or schedules the requested automations.
func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	var req pauseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	timing, err := s.snooze.ParseTiming(snooze.TimingInput{
		Days:      req.Days,
		Hours:     req.Hours,
		Minutes:   req.Minutes,
		DisableAt: req.DisableAt,
		ResumeAt:  req.ResumeAt,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	result, err := s.snooze.Pause(r.Context(), snooze.Targets{
		EntityIDs: req.EntityIDs,
		AreaIDs:   req.AreaIDs,
		Labels:    req.Labels,
	}, timing)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s.logger.Info("pause request handled",
		"paused", len(result.Paused),
		"scheduled", len(result.Scheduled),
		"failed", len(result.Failed),
		"subject", subjectOf(r),
	)
	writeJSON(w, http.StatusOK, result)
}

// handleCancel resumes the requested paused automations now.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req targetsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	result, err := s.snooze.Cancel(r.Context(), req.EntityIDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleCancelAll resumes every paused automation.
func (s *Server) handleCancelAll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snooze.CancelAll(r.Context()))
}

// handleCancelScheduled removes the requested scheduled snoozes.
func (s *Server) handleCancelScheduled(w http.ResponseWriter, r *http.Request) {
	var req targetsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	result, err := s.snooze.CancelScheduled(r.Context(), req.EntityIDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleCancelAllScheduled removes every scheduled snooze.
func (s *Server) handleCancelAllScheduled(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snooze.CancelAllScheduled(r.Context()))
}

// handleAdjust shifts the resume time of paused automations.
func (s *Server) handleAdjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	err := s.snooze.Adjust(r.Context(), req.EntityIDs, snooze.DurationRequest{
		Days:    req.Days,
		Hours:   req.Hours,
		Minutes: req.Minutes,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snooze.AttributesOf(s.snooze.State().Snapshot()))
}

// subjectOf returns the authenticated caller's subject for logging.
func subjectOf(r *http.Request) string {
	if claims := claimsFrom(r.Context()); claims != nil {
		return claims.Subject
	}
	return ""
}
