package snooze

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"
)

// PausedAutomation is an automation that is currently disabled and will be
// re-enabled at ResumeAt.
type PausedAutomation struct {
	EntityID     string
	FriendlyName string
	ResumeAt     time.Time
	PausedAt     time.Time

	// Requested duration. Zero for date-based pauses.
	Days    int
	Hours   int
	Minutes int

	// Set only when the pause came from a scheduled snooze.
	DisableAt *time.Time
}

// ToMap returns the stored representation. Timestamps are UTC ISO-8601.
func (p PausedAutomation) ToMap() map[string]any {
	m := map[string]any{
		"friendly_name": p.FriendlyName,
		"resume_at":     formatTime(p.ResumeAt),
		"paused_at":     formatTime(p.PausedAt),
		"days":          p.Days,
		"hours":         p.Hours,
		"minutes":       p.Minutes,
	}
	if p.DisableAt != nil {
		m["disable_at"] = formatTime(*p.DisableAt)
	}
	return m
}

// PausedFromMap decodes a stored paused record.
func PausedFromMap(entityID string, m map[string]any) (PausedAutomation, error) {
	p := PausedAutomation{EntityID: entityID, FriendlyName: stringField(m, "friendly_name", entityID)}

	var err error
	if p.ResumeAt, err = timeField(m, "resume_at"); err != nil {
		return PausedAutomation{}, err
	}
	if p.PausedAt, err = timeField(m, "paused_at"); err != nil {
		return PausedAutomation{}, err
	}
	if p.Days, err = intField(m, "days"); err != nil {
		return PausedAutomation{}, err
	}
	if p.Hours, err = intField(m, "hours"); err != nil {
		return PausedAutomation{}, err
	}
	if p.Minutes, err = intField(m, "minutes"); err != nil {
		return PausedAutomation{}, err
	}
	if _, ok := m["disable_at"]; ok {
		disableAt, err := timeField(m, "disable_at")
		if err != nil {
			return PausedAutomation{}, err
		}
		p.DisableAt = &disableAt
	}
	return p, nil
}

// ScheduledSnooze is a future disable window that has not started yet.
type ScheduledSnooze struct {
	EntityID     string
	FriendlyName string
	DisableAt    time.Time
	ResumeAt     time.Time
}

// ToMap returns the stored representation.
func (s ScheduledSnooze) ToMap() map[string]any {
	return map[string]any{
		"friendly_name": s.FriendlyName,
		"disable_at":    formatTime(s.DisableAt),
		"resume_at":     formatTime(s.ResumeAt),
	}
}

// ScheduledFromMap decodes a stored scheduled record.
func ScheduledFromMap(entityID string, m map[string]any) (ScheduledSnooze, error) {
	s := ScheduledSnooze{EntityID: entityID, FriendlyName: stringField(m, "friendly_name", entityID)}

	var err error
	if s.DisableAt, err = timeField(m, "disable_at"); err != nil {
		return ScheduledSnooze{}, err
	}
	if s.ResumeAt, err = timeField(m, "resume_at"); err != nil {
		return ScheduledSnooze{}, err
	}
	return s, nil
}

func stringField(m map[string]any, key, fallback string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func timeField(m map[string]any, key string) (time.Time, error) {
	raw, ok := m[key]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: missing %s", ErrInvalidRecord, key)
	}
	s, ok := raw.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s is not a string", ErrInvalidRecord, key)
	}
	t, err := ParseStoredTime(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %w", ErrInvalidRecord, key, err)
	}
	return t, nil
}

// intField reads an optional non-negative count. Missing means zero.
func intField(m map[string]any, key string) (int, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return 0, nil
	}
	n, ok := toNumber(raw)
	if !ok || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative number", ErrInvalidRecord, key)
	}
	return int(n), nil
}

// toNumber accepts the numeric shapes produced by Go literals and by
// encoding/json.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Snapshot is a point-in-time copy of the paused and scheduled maps.
type Snapshot struct {
	Paused    map[string]PausedAutomation
	Scheduled map[string]ScheduledSnooze
}

// ToMap returns the stored document: {"paused": {...}, "scheduled": {...}}.
func (s Snapshot) ToMap() map[string]any {
	paused := make(map[string]any, len(s.Paused))
	for id, p := range s.Paused {
		paused[id] = p.ToMap()
	}
	scheduled := make(map[string]any, len(s.Scheduled))
	for id, sc := range s.Scheduled {
		scheduled[id] = sc.ToMap()
	}
	return map[string]any{"paused": paused, "scheduled": scheduled}
}

// armedTimer is the live timer for one entity. Its pointer identity lets a
// firing callback detect that it was superseded or cancelled.
type armedTimer struct {
	handle CancelHandle
}

func (t *armedTimer) cancel() {
	if t != nil && t.handle != nil {
		t.handle.Cancel()
	}
}

type listener struct {
	fn func()
}

// PauseState owns the paused and scheduled entities, their timers and the
// change listeners. One instance exists per running service.
//
// An entity is in at most one of paused and scheduled, and each entry has
// exactly one live timer in the matching timer map.
//
// Thread Safety: all access goes through mu. Only the Coordinator mutates
// the maps.
type PauseState struct {
	mu sync.Mutex

	paused          map[string]PausedAutomation
	scheduled       map[string]ScheduledSnooze
	timers          map[string]*armedTimer
	scheduledTimers map[string]*armedTimer
	listeners       []*listener
	unloaded        bool
}

// NewPauseState creates an empty state.
func NewPauseState() *PauseState {
	return &PauseState{
		paused:          make(map[string]PausedAutomation),
		scheduled:       make(map[string]ScheduledSnooze),
		timers:          make(map[string]*armedTimer),
		scheduledTimers: make(map[string]*armedTimer),
	}
}

// AddListener registers fn to be called after every committed change.
// The returned function removes it and is safe to call more than once.
func (s *PauseState) AddListener(fn func()) (remove func()) {
	l := &listener{fn: fn}

	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.listeners = slices.DeleteFunc(s.listeners, func(other *listener) bool {
			return other == l
		})
	}
}

// ListenerCount returns the number of registered listeners.
func (s *PauseState) ListenerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// notify calls every listener in registration order. It must be called
// without mu held.
func (s *PauseState) notify() {
	s.mu.Lock()
	fns := make([]func(), len(s.listeners))
	for i, l := range s.listeners {
		fns[i] = l.fn
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Snapshot returns a copy of the paused and scheduled maps.
func (s *PauseState) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *PauseState) snapshotLocked() Snapshot {
	paused := maps.Clone(s.paused)
	for id, p := range paused {
		if p.DisableAt != nil {
			d := *p.DisableAt
			p.DisableAt = &d
			paused[id] = p
		}
	}
	return Snapshot{Paused: paused, Scheduled: maps.Clone(s.scheduled)}
}

// Paused returns the paused entry for entityID.
func (s *PauseState) Paused(entityID string) (PausedAutomation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.paused[entityID]
	return p, ok
}

// Scheduled returns the scheduled entry for entityID.
func (s *PauseState) Scheduled(entityID string) (ScheduledSnooze, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.scheduled[entityID]
	return sc, ok
}

// PausedCount returns the number of paused automations.
func (s *PauseState) PausedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.paused)
}

// PausedIDs returns the sorted entity IDs of paused automations.
func (s *PauseState) PausedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.paused))
}

// ScheduledIDs returns the sorted entity IDs of scheduled snoozes.
func (s *PauseState) ScheduledIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.scheduled))
}

// Unloaded reports whether the state has been shut down.
func (s *PauseState) Unloaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unloaded
}

