package snooze

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"
)

func TestService_PauseRejections(t *testing.T) {
	h := newHarness(t, "automation.a")
	ctx := context.Background()
	past := t0.Add(-time.Minute)
	later := t0.Add(2 * time.Hour)
	target := Targets{EntityIDs: []string{"automation.a"}}

	tests := []struct {
		name    string
		targets Targets
		timing  Timing
		want    RejectionReason
	}{
		{"no targets", Targets{}, DurationRequest{Hours: 1}, ReasonNoTargets},
		{"not automation", Targets{EntityIDs: []string{"light.kitchen"}}, DurationRequest{Hours: 1}, ReasonNotAutomation},
		{"zero duration", target, DurationRequest{}, ReasonInvalidDuration},
		{"negative duration", target, DurationRequest{Hours: 1, Minutes: -5}, ReasonInvalidDuration},
		{"resume in the past", target, WindowRequest{ResumeAt: past}, ReasonResumeTimePast},
		{"resume now", target, WindowRequest{ResumeAt: t0}, ReasonResumeTimePast},
		{"disable after resume", target, WindowRequest{DisableAt: &later, ResumeAt: t0.Add(time.Hour)}, ReasonDisableAfterResume},
		{"disable equals resume", target, WindowRequest{DisableAt: &later, ResumeAt: later}, ReasonDisableAfterResume},
		{"nil timing", target, nil, ReasonInvalidDuration},
		{"days wrap time.Duration", target, DurationRequest{Days: 213504}, ReasonInvalidDuration},
		{"days over limit", target, DurationRequest{Days: MaxDurationDays + 1}, ReasonInvalidDuration},
		{"total over limit", target, DurationRequest{Days: MaxDurationDays, Minutes: 1}, ReasonInvalidDuration},
		{"minutes over limit", target, DurationRequest{Minutes: MaxDurationDays*24*60 + 1}, ReasonInvalidDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.Pause(ctx, tt.targets, tt.timing)
			if !errors.Is(err, ErrRejected) {
				t.Fatalf("Pause() error = %v, want rejection", err)
			}
			if reason, _ := ReasonOf(err); reason != tt.want {
				t.Errorf("reason = %s, want %s", reason, tt.want)
			}
		})
	}

	if h.state.PausedCount() != 0 || len(h.ctrl.calls) != 0 {
		t.Error("rejected requests changed state")
	}

	var re *RejectionError
	_, err := h.svc.Pause(ctx, Targets{EntityIDs: []string{"automation.a", "switch.x"}}, DurationRequest{Hours: 1})
	if !errors.As(err, &re) || re.EntityID != "switch.x" {
		t.Errorf("rejection entity = %+v", re)
	}
}

func TestService_PauseWindowWithPastDisableIsImmediate(t *testing.T) {
	h := newHarness(t, "automation.a")
	past := t0.Add(-time.Hour)

	result, err := h.svc.Pause(context.Background(),
		Targets{EntityIDs: []string{"automation.a"}},
		WindowRequest{DisableAt: &past, ResumeAt: t0.Add(time.Hour)},
	)
	if err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if !slices.Equal(result.Paused, []string{"automation.a"}) || len(result.Scheduled) != 0 {
		t.Errorf("result = %+v", result)
	}
	p, _ := h.state.Paused("automation.a")
	if !p.ResumeAt.Equal(t0.Add(time.Hour)) || p.Days+p.Hours+p.Minutes != 0 {
		t.Errorf("paused entry = %+v", p)
	}
	if p.DisableAt == nil || !p.DisableAt.Equal(past) {
		t.Errorf("DisableAt = %v, want %v", p.DisableAt, past)
	}
}

func TestService_PauseLongestDuration(t *testing.T) {
	h := newHarness(t, "automation.a")

	result, err := h.svc.Pause(context.Background(),
		Targets{EntityIDs: []string{"automation.a"}},
		DurationRequest{Days: MaxDurationDays},
	)
	if err != nil || len(result.Paused) != 1 {
		t.Fatalf("Pause() = %+v, %v", result, err)
	}
	p, _ := h.state.Paused("automation.a")
	if want := t0.Add(MaxDurationDays * 24 * time.Hour); !p.ResumeAt.Equal(want) {
		t.Errorf("ResumeAt = %v, want %v", p.ResumeAt, want)
	}
}

func TestService_PauseResolvesAreasAndLabels(t *testing.T) {
	h := newHarness(t)
	h.reg.add("automation.hall", "Hall lights", "hall", "lighting")
	h.reg.add("automation.porch", "Porch", "garden", "lighting", "outdoor")
	h.reg.add("automation.sprinkler", "Sprinkler", "garden", "water")
	ctx := context.Background()

	result, err := h.svc.Pause(ctx,
		Targets{AreaIDs: []string{"garden"}, Labels: []string{"lighting"}},
		DurationRequest{Minutes: 30},
	)
	if err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	want := []string{"automation.hall", "automation.porch", "automation.sprinkler"}
	if !slices.Equal(result.Paused, want) {
		t.Errorf("Paused = %v, want %v", result.Paused, want)
	}
	if p, _ := h.state.Paused("automation.porch"); p.FriendlyName != "Porch" {
		t.Errorf("FriendlyName = %q", p.FriendlyName)
	}

	empty, err := h.svc.Pause(ctx, Targets{AreaIDs: []string{"attic"}}, DurationRequest{Minutes: 30})
	if err != nil {
		t.Errorf("Pause(no matches) error = %v, want nil", err)
	}
	if len(empty.Paused) != 0 {
		t.Errorf("Pause(no matches) = %+v", empty)
	}
}

func TestService_Guardrail(t *testing.T) {
	h := newHarness(t)
	h.reg.add("automation.smoke_alarm_siren", "", "hall")
	h.reg.add("automation.basement", "Water leak shutoff", "basement")
	h.reg.add("automation.hall", "Hall lights", "hall")

	result, err := h.svc.Pause(context.Background(),
		Targets{AreaIDs: []string{"hall", "basement"}},
		DurationRequest{Hours: 1},
	)
	if err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	want := []string{"automation.basement", "automation.smoke_alarm_siren"}
	if !slices.Equal(result.Guardrail, want) {
		t.Errorf("Guardrail = %v, want %v", result.Guardrail, want)
	}
	if len(result.Paused) != 3 {
		t.Errorf("guardrail blocked a pause: %+v", result)
	}

	custom := NewService(h.coord, ServiceOptions{GuardrailTerms: []string{" Hall "}})
	if got := custom.GuardrailMatches(context.Background(), []string{"automation.hall", "automation.basement"}); !slices.Equal(got, []string{"automation.hall"}) {
		t.Errorf("custom GuardrailMatches() = %v", got)
	}
	if DefaultGuardrailTerms[0] != "alarm" {
		t.Error("DefaultGuardrailTerms modified")
	}
}

func TestService_ParseTiming(t *testing.T) {
	h := newHarness(t)
	loc := time.FixedZone("CET", 3600)
	svc := NewService(h.coord, ServiceOptions{Location: loc})

	timing, err := svc.ParseTiming(TimingInput{Hours: 2, Minutes: 5})
	if err != nil {
		t.Fatalf("ParseTiming() error = %v", err)
	}
	if d, ok := timing.(DurationRequest); !ok || d.Duration() != 2*time.Hour+5*time.Minute {
		t.Errorf("timing = %#v", timing)
	}

	timing, err = svc.ParseTiming(TimingInput{Hours: 2, DisableAt: "2026-03-01T12:00:00", ResumeAt: "2026-03-01T14:00:00"})
	if err != nil {
		t.Fatalf("ParseTiming() error = %v", err)
	}
	w, ok := timing.(WindowRequest)
	if !ok {
		t.Fatalf("timing = %#v, want WindowRequest", timing)
	}
	if !w.ResumeAt.Equal(time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)) {
		t.Errorf("ResumeAt = %v, want local time converted to UTC", w.ResumeAt)
	}
	if w.DisableAt == nil || !w.DisableAt.Equal(time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)) {
		t.Errorf("DisableAt = %v", w.DisableAt)
	}

	for _, in := range []TimingInput{
		{ResumeAt: "whenever"},
		{ResumeAt: "2026-03-01T14:00:00", DisableAt: "later"},
		{DisableAt: "2026-03-01T14:00:00"},
	} {
		if _, err := svc.ParseTiming(in); err == nil {
			t.Errorf("ParseTiming(%+v) succeeded", in)
		} else if reason, _ := ReasonOf(err); reason != ReasonInvalidDateTime {
			t.Errorf("ParseTiming(%+v) reason = %s", in, reason)
		}
	}
}

func TestService_Cancel(t *testing.T) {
	h := newHarness(t, "automation.a", "automation.b")
	ctx := context.Background()
	h.pause(t, time.Hour, "automation.a")
	h.resetCounters()

	result, err := h.svc.Cancel(ctx, []string{"automation.a", "automation.b", "automation.a"})
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if !slices.Equal(result.Cancelled, []string{"automation.a"}) || len(result.Failed) != 0 {
		t.Errorf("result = %+v", result)
	}
	if got := h.ctrl.callsFor("automation.b"); len(got) != 0 {
		t.Errorf("unpaused automation was switched: %v", got)
	}

	if _, err := h.svc.Cancel(ctx, []string{"scene.x"}); !errors.Is(err, ErrRejected) {
		t.Errorf("Cancel(non-automation) error = %v", err)
	}

	h.pause(t, time.Hour, "automation.b")
	h.ctrl.setFail("automation.b", true)
	result, _ = h.svc.Cancel(ctx, []string{"automation.b"})
	if !slices.Equal(result.Failed, []string{"automation.b"}) || len(result.Cancelled) != 0 {
		t.Errorf("failed cancel result = %+v", result)
	}
}

func TestService_CancelAllAndScheduled(t *testing.T) {
	h := newHarness(t, "automation.a", "automation.b", "automation.c")
	ctx := context.Background()
	h.pause(t, time.Hour, "automation.a", "automation.b")
	h.coord.ScheduleBatch(ctx, []string{"automation.c"}, t0.Add(time.Hour), t0.Add(2*time.Hour))

	result, err := h.svc.CancelScheduled(ctx, []string{"automation.c", "automation.a"})
	if err != nil {
		t.Fatalf("CancelScheduled() error = %v", err)
	}
	if !slices.Equal(result.Cancelled, []string{"automation.c"}) {
		t.Errorf("CancelScheduled() = %+v", result)
	}
	if _, ok := h.state.Paused("automation.a"); !ok {
		t.Error("CancelScheduled touched a paused automation")
	}

	all := h.svc.CancelAll(ctx)
	if !slices.Equal(all.Cancelled, []string{"automation.a", "automation.b"}) {
		t.Errorf("CancelAll() = %+v", all)
	}

	h.coord.ScheduleBatch(ctx, []string{"automation.a"}, t0.Add(time.Hour), t0.Add(2*time.Hour))
	if got := h.svc.CancelAllScheduled(ctx); !slices.Equal(got.Cancelled, []string{"automation.a"}) {
		t.Errorf("CancelAllScheduled() = %+v", got)
	}
	assertConsistent(t, h.state)
}

func TestService_Adjust(t *testing.T) {
	h := newHarness(t, "automation.a")
	ctx := context.Background()
	h.pause(t, time.Hour, "automation.a")

	tests := []struct {
		name  string
		ids   []string
		delta DurationRequest
		want  RejectionReason
	}{
		{"zero", []string{"automation.a"}, DurationRequest{}, ReasonInvalidDuration},
		{"cancelling components", []string{"automation.a"}, DurationRequest{Hours: 1, Minutes: -60}, ReasonInvalidDuration},
		{"no targets", nil, DurationRequest{Hours: 1}, ReasonNoTargets},
		{"not automation", []string{"light.x"}, DurationRequest{Hours: 1}, ReasonNotAutomation},
		{"past", []string{"automation.a"}, DurationRequest{Hours: -2}, ReasonResumeTimePast},
		{"wraps forward", []string{"automation.a"}, DurationRequest{Days: 213504}, ReasonInvalidDuration},
		{"wraps backward", []string{"automation.a"}, DurationRequest{Days: -213504}, ReasonInvalidDuration},
		{"hours over limit", []string{"automation.a"}, DurationRequest{Hours: MaxDurationDays*24 + 1}, ReasonInvalidDuration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if reason, _ := ReasonOf(h.svc.Adjust(ctx, tt.ids, tt.delta)); reason != tt.want {
				t.Errorf("reason = %s, want %s", reason, tt.want)
			}
		})
	}

	if err := h.svc.Adjust(ctx, []string{"automation.a"}, DurationRequest{Days: 1}); err != nil {
		t.Fatalf("Adjust() error = %v", err)
	}
	p, _ := h.state.Paused("automation.a")
	if !p.ResumeAt.Equal(t0.Add(25 * time.Hour)) {
		t.Errorf("ResumeAt = %v", p.ResumeAt)
	}
}
