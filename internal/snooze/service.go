package snooze

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-snooze/internal/automation"
)

// DefaultGuardrailTerms flag automations that deserve a second look
// before they are paused in bulk.
var DefaultGuardrailTerms = []string{"alarm", "smoke", "security", "lock", "water leak", "co2", "fire"}

// Timing is either a DurationRequest or a WindowRequest.
type Timing interface {
	isTiming()
}

// DurationRequest pauses now for a relative duration.
type DurationRequest struct {
	Days    int
	Hours   int
	Minutes int
}

// MaxDurationDays bounds a requested duration or adjustment so the
// total stays well inside time.Duration.
const MaxDurationDays = 36500

// inRange reports whether every component, and the total, lies within
// MaxDurationDays either side of zero.
func (d DurationRequest) inRange() bool {
	const maxMinutes = int64(MaxDurationDays) * 24 * 60
	within := func(v, limit int64) bool { return v >= -limit && v <= limit }
	if !within(int64(d.Days), MaxDurationDays) ||
		!within(int64(d.Hours), maxMinutes/60) ||
		!within(int64(d.Minutes), maxMinutes) {
		return false
	}
	return within(int64(d.Days)*24*60+int64(d.Hours)*60+int64(d.Minutes), maxMinutes)
}

// Duration returns the total requested duration. Callers check inRange
// first; out-of-range components overflow.
func (d DurationRequest) Duration() time.Duration {
	return time.Duration(d.Days)*24*time.Hour +
		time.Duration(d.Hours)*time.Hour +
		time.Duration(d.Minutes)*time.Minute
}

// WindowRequest pauses until ResumeAt. A DisableAt in the future makes it
// a scheduled snooze; otherwise the automation is disabled now.
type WindowRequest struct {
	DisableAt *time.Time
	ResumeAt  time.Time
}

func (DurationRequest) isTiming() {}
func (WindowRequest) isTiming()   {}

// TimingInput is the loosely typed timing of an incoming request.
type TimingInput struct {
	Days      int
	Hours     int
	Minutes   int
	DisableAt string
	ResumeAt  string
}

// Targets selects automations directly or by area and label.
type Targets struct {
	EntityIDs []string
	AreaIDs   []string
	Labels    []string
}

func (t Targets) empty() bool {
	return len(t.EntityIDs) == 0 && len(t.AreaIDs) == 0 && len(t.Labels) == 0
}

// PauseResult reports what a pause request did.
type PauseResult struct {
	Paused    []string `json:"paused"`
	Scheduled []string `json:"scheduled"`
	Failed    []string `json:"failed"`

	// Guardrail lists targets matching a guardrail term.
	Guardrail []string `json:"guardrail"`
}

// CancelResult reports what a cancel request did.
type CancelResult struct {
	Cancelled []string `json:"cancelled"`
	Failed    []string `json:"failed"`
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	// Location is the deployment's zone for timestamps without an offset.
	Location *time.Location

	// GuardrailTerms defaults to DefaultGuardrailTerms when nil.
	GuardrailTerms []string

	Logger Logger
}

// Service validates user requests, resolves their targets and forwards
// them to the Coordinator. Rejections are returned as *RejectionError.
type Service struct {
	coordinator *Coordinator
	location    *time.Location
	guardrail   []string
	logger      Logger
}

// NewService creates a service on top of coordinator.
func NewService(coordinator *Coordinator, opts ServiceOptions) *Service {
	s := &Service{
		coordinator: coordinator,
		location:    opts.Location,
		logger:      opts.Logger,
	}
	if s.location == nil {
		s.location = time.UTC
	}
	if s.logger == nil {
		s.logger = noopLogger{}
	}

	terms := opts.GuardrailTerms
	if terms == nil {
		terms = DefaultGuardrailTerms
	}
	for _, term := range terms {
		if term = strings.ToLower(strings.TrimSpace(term)); term != "" {
			s.guardrail = append(s.guardrail, term)
		}
	}
	return s
}

// State returns the underlying pause state.
func (s *Service) State() *PauseState {
	return s.coordinator.State()
}

// Now returns the coordinator's current time.
func (s *Service) Now() time.Time {
	return s.coordinator.clock.Now()
}

// ParseTiming resolves a request's timing. An explicit resume time takes
// precedence over days, hours and minutes. Timestamps without an offset
// are read in the deployment's zone.
func (s *Service) ParseTiming(in TimingInput) (Timing, error) {
	if in.ResumeAt == "" {
		if in.DisableAt != "" {
			return nil, reject(ReasonInvalidDateTime, "")
		}
		return DurationRequest{Days: in.Days, Hours: in.Hours, Minutes: in.Minutes}, nil
	}

	resumeAt, err := ParseUserTime(in.ResumeAt, s.location)
	if err != nil {
		return nil, reject(ReasonInvalidDateTime, "")
	}
	w := WindowRequest{ResumeAt: resumeAt}
	if in.DisableAt != "" {
		disableAt, err := ParseUserTime(in.DisableAt, s.location)
		if err != nil {
			return nil, reject(ReasonInvalidDateTime, "")
		}
		w.DisableAt = &disableAt
	}
	return w, nil
}

// Pause disables the targets for the given timing.
//
// It rejects explicit targets outside the automation namespace, an empty
// or negative duration, a resume time that is not in the future, and a
// disable time not before the resume time. Area and label selectors that
// match nothing are not an error; the result is simply empty.
func (s *Service) Pause(ctx context.Context, targets Targets, timing Timing) (PauseResult, error) {
	if targets.empty() {
		return PauseResult{}, reject(ReasonNoTargets, "")
	}
	if err := checkAutomationIDs(targets.EntityIDs); err != nil {
		return PauseResult{}, err
	}

	now := s.Now()
	var spec PauseSpec
	var scheduleAt *time.Time

	switch t := timing.(type) {
	case DurationRequest:
		if t.Days < 0 || t.Hours < 0 || t.Minutes < 0 || !t.inRange() || t.Duration() <= 0 {
			return PauseResult{}, reject(ReasonInvalidDuration, "")
		}
		spec = PauseSpec{ResumeAt: now.Add(t.Duration()), Days: t.Days, Hours: t.Hours, Minutes: t.Minutes}
	case WindowRequest:
		resumeAt := t.ResumeAt.UTC()
		if !resumeAt.After(now) {
			return PauseResult{}, reject(ReasonResumeTimePast, "")
		}
		if t.DisableAt != nil {
			disableAt := t.DisableAt.UTC()
			if !disableAt.Before(resumeAt) {
				return PauseResult{}, reject(ReasonDisableAfterResume, "")
			}
			if disableAt.After(now) {
				scheduleAt = &disableAt
			} else {
				spec.DisableAt = &disableAt
			}
		}
		spec.ResumeAt = resumeAt
	default:
		return PauseResult{}, reject(ReasonInvalidDuration, "")
	}

	ids := s.resolve(ctx, targets)
	if len(ids) == 0 {
		s.logger.Info("no automations matched pause targets",
			"areas", targets.AreaIDs,
			"labels", targets.Labels,
		)
		return PauseResult{}, nil
	}

	result := PauseResult{Guardrail: s.GuardrailMatches(ctx, ids)}
	if len(result.Guardrail) > 0 {
		s.logger.Warn("pausing guarded automations", "entity_ids", result.Guardrail)
	}

	if scheduleAt != nil {
		result.Scheduled = s.coordinator.ScheduleBatch(ctx, ids, *scheduleAt, spec.ResumeAt)
		return result, nil
	}
	result.Paused, result.Failed = s.coordinator.PauseBatch(ctx, ids, spec)
	return result, nil
}

// Cancel resumes paused automations now. Targets that are not paused are
// ignored.
func (s *Service) Cancel(ctx context.Context, entityIDs []string) (CancelResult, error) {
	if err := checkAutomationIDs(entityIDs); err != nil {
		return CancelResult{}, err
	}
	state := s.State()
	ids := slices.DeleteFunc(dedupe(entityIDs), func(id string) bool {
		_, paused := state.Paused(id)
		return !paused
	})
	if len(ids) == 0 {
		return CancelResult{}, nil
	}

	failed := s.coordinator.ResumeBatch(ctx, ids)
	return CancelResult{
		Cancelled: slices.DeleteFunc(ids, func(id string) bool { return slices.Contains(failed, id) }),
		Failed:    failed,
	}, nil
}

// CancelAll resumes every paused automation.
func (s *Service) CancelAll(ctx context.Context) CancelResult {
	resumed, failed := s.coordinator.ResumeAll(ctx)
	return CancelResult{Cancelled: resumed, Failed: failed}
}

// CancelScheduled removes scheduled snoozes. Targets that are not
// scheduled are ignored.
func (s *Service) CancelScheduled(ctx context.Context, entityIDs []string) (CancelResult, error) {
	if err := checkAutomationIDs(entityIDs); err != nil {
		return CancelResult{}, err
	}
	state := s.State()
	ids := slices.DeleteFunc(dedupe(entityIDs), func(id string) bool {
		_, scheduled := state.Scheduled(id)
		return !scheduled
	})
	if len(ids) == 0 {
		return CancelResult{}, nil
	}

	s.coordinator.CancelScheduledBatch(ctx, ids)
	return CancelResult{Cancelled: ids}, nil
}

// CancelAllScheduled removes every scheduled snooze.
func (s *Service) CancelAllScheduled(ctx context.Context) CancelResult {
	return CancelResult{Cancelled: s.coordinator.CancelAllScheduled(ctx)}
}

// Adjust moves the resume time of paused automations by a signed delta.
func (s *Service) Adjust(ctx context.Context, entityIDs []string, delta DurationRequest) error {
	if len(entityIDs) == 0 {
		return reject(ReasonNoTargets, "")
	}
	if err := checkAutomationIDs(entityIDs); err != nil {
		return err
	}
	if !delta.inRange() {
		return reject(ReasonInvalidDuration, "")
	}
	d := delta.Duration()
	if d == 0 {
		return reject(ReasonInvalidDuration, "")
	}
	return s.coordinator.AdjustBatch(ctx, dedupe(entityIDs), d)
}

// GuardrailMatches returns the IDs whose entity ID or friendly name
// contains a guardrail term.
func (s *Service) GuardrailMatches(ctx context.Context, entityIDs []string) []string {
	var matches []string
	for _, id := range entityIDs {
		haystack := strings.ToLower(id + " " + s.coordinator.registry.FriendlyName(ctx, id))
		haystack = strings.ReplaceAll(haystack, "_", " ")
		for _, term := range s.guardrail {
			if strings.Contains(haystack, term) {
				matches = append(matches, id)
				break
			}
		}
	}
	return matches
}

// resolve expands targets into a sorted, de-duplicated ID list.
func (s *Service) resolve(ctx context.Context, targets Targets) []string {
	ids := slices.Clone(targets.EntityIDs)
	registry := s.coordinator.registry
	if len(targets.AreaIDs) > 0 {
		byArea := registry.AutomationIDsByArea(ctx, targets.AreaIDs)
		if len(byArea) == 0 {
			s.logger.Info("no automations in areas", "areas", targets.AreaIDs)
		}
		ids = append(ids, byArea...)
	}
	if len(targets.Labels) > 0 {
		byLabel := registry.AutomationIDsByLabel(ctx, targets.Labels)
		if len(byLabel) == 0 {
			s.logger.Info("no automations with labels", "labels", targets.Labels)
		}
		ids = append(ids, byLabel...)
	}
	return dedupe(ids)
}

func checkAutomationIDs(ids []string) error {
	for _, id := range ids {
		if !automation.IsAutomationID(id) {
			return reject(ReasonNotAutomation, id)
		}
	}
	return nil
}

func dedupe(ids []string) []string {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
