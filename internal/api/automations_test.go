package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-snooze/internal/auth"
	"github.com/nerrad567/gray-logic-snooze/internal/automation"
)

func TestListAutomations(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/automations", "", auth.RoleViewer)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Automations []automation.Automation `json:"automations"`
		Count       int                     `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 3 || len(resp.Automations) != 3 {
		t.Errorf("count = %d (%d items), want 3", resp.Count, len(resp.Automations))
	}
}

func TestRegisterAutomation(t *testing.T) {
	env := newTestEnv(t)

	body := `{"entity_id":"automation.garden_sprinkler","name":"Garden Sprinkler","area_id":"outside","labels":["Water"," garden "]}`
	w := env.do(t, http.MethodPost, "/api/v1/automations", body, auth.RoleAdmin)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var got automation.Automation
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.EntityID != "automation.garden_sprinkler" || !got.Enabled {
		t.Errorf("registered = %+v", got)
	}
	if len(got.Labels) != 2 || got.Labels[0] != "garden" || got.Labels[1] != "water" {
		t.Errorf("labels = %v, want normalised [garden water]", got.Labels)
	}

	// The new automation is immediately pausable by area.
	result := env.pause(t, `{"area_ids":["outside"],"minutes":10}`)
	if len(result.Paused) != 2 {
		t.Errorf("paused = %v, want porch_lights and garden_sprinkler", result.Paused)
	}
}

func TestRegisterAutomation_UpdatesExisting(t *testing.T) {
	env := newTestEnv(t)

	body := `{"entity_id":"automation.hall_lights","name":"Hallway Lights","enabled":false}`
	w := env.do(t, http.MethodPost, "/api/v1/automations", body, auth.RoleAdmin)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	if env.registry.Count() != 3 {
		t.Errorf("Count() = %d, want 3", env.registry.Count())
	}
	if name := env.registry.FriendlyName(t.Context(), "automation.hall_lights"); name != "Hallway Lights" {
		t.Errorf("FriendlyName = %q", name)
	}
}

func TestRegisterAutomation_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"invalid JSON", `{"entity_id":`, ErrCodeBadRequest},
		{"wrong domain", `{"entity_id":"light.kitchen"}`, ErrCodeValidation},
		{"bad object id", `{"entity_id":"automation.Hall Lights"}`, ErrCodeValidation},
		{"empty label", `{"entity_id":"automation.x","labels":[" "]}`, ErrCodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			w := env.do(t, http.MethodPost, "/api/v1/automations", tt.body, auth.RoleAdmin)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400; body: %s", w.Code, w.Body.String())
			}
			if e := decodeError(t, w); e.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", e.Code, tt.wantCode)
			}
		})
	}
}

func TestDeleteAutomation(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodDelete, "/api/v1/automations/automation.porch_lights", "", auth.RoleAdmin)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	if env.registry.Exists(t.Context(), "automation.porch_lights") {
		t.Error("automation should be gone")
	}

	w = env.do(t, http.MethodDelete, "/api/v1/automations/automation.porch_lights", "", auth.RoleAdmin)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestDeleteAutomation_WhileSnoozed(t *testing.T) {
	env := newTestEnv(t)
	env.pause(t, `{"entity_ids":["automation.porch_lights"],"minutes":20}`)

	w := env.do(t, http.MethodDelete, "/api/v1/automations/automation.porch_lights", "", auth.RoleAdmin)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}

	// The resume attempt fails for the deleted automation and the entry is dropped.
	env.clock.Advance(20 * time.Minute)
	if attrs := env.snapshot(t); attrs.PausedCount != 0 {
		t.Errorf("paused_count = %d, want 0", attrs.PausedCount)
	}
}
