package snooze

import (
	"context"
	"maps"
	"slices"
	"time"
)

// DefaultDisableRetry is how long a failed scheduled disable or timed
// resume waits before trying again.
const DefaultDisableRetry = time.Minute

// SaveTimeout bounds one durable save, retries included.
const SaveTimeout = 10 * time.Second

// Logger is the logging interface used by the snooze package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Controller switches automations on and off. A false result means the
// change did not happen and must not be committed.
type Controller interface {
	SetEnabled(ctx context.Context, entityID string, enabled bool) bool
}

// EntityRegistry answers questions about the host's automations.
type EntityRegistry interface {
	Exists(ctx context.Context, entityID string) bool
	FriendlyName(ctx context.Context, entityID string) string
	AutomationIDsByArea(ctx context.Context, areaIDs []string) []string
	AutomationIDsByLabel(ctx context.Context, labels []string) []string
}

// Transition names a committed state change.
type Transition string

// Transitions reported to a TransitionRecorder.
const (
	TransitionPaused             Transition = "paused"
	TransitionScheduled          Transition = "scheduled"
	TransitionResumed            Transition = "resumed"
	TransitionDisableExecuted    Transition = "disable_executed"
	TransitionScheduledCancelled Transition = "scheduled_cancelled"
	TransitionAdjusted           Transition = "adjusted"
	TransitionDropped            Transition = "dropped"
)

// TransitionRecorder receives every committed transition, after the state
// lock is released.
type TransitionRecorder interface {
	RecordTransition(entityID string, transition Transition, at time.Time)
}

type transitionEvent struct {
	entityID   string
	transition Transition
	at         time.Time
}

// CoordinatorOptions are the collaborators of a Coordinator.
type CoordinatorOptions struct {
	Controller Controller
	Registry   EntityRegistry
	Gateway    *Gateway
	Clock      Clock
	Logger     Logger
	Recorder   TransitionRecorder

	// DisableRetry is the wait before retrying a failed timed transition.
	// Zero uses DefaultDisableRetry.
	DisableRetry time.Duration
}

// PauseSpec describes a pause to apply to a batch of automations.
type PauseSpec struct {
	ResumeAt time.Time
	Days     int
	Hours    int
	Minutes  int

	// DisableAt is recorded for windows whose disable time has already
	// passed when the pause is applied.
	DisableAt *time.Time
}

// Coordinator moves automations between paused, scheduled and enabled.
//
// Every operation holds the PauseState lock for its whole duration,
// including the controller calls and the save, and is a no-op once the
// state is unloaded. Within an operation the order is: mutate, save,
// then (after unlocking) record transitions and notify listeners.
//
// Timer callbacks take the same lock and check that their timer is still
// the one armed for the entity; superseded or cancelled timers do nothing.
type Coordinator struct {
	state        *PauseState
	controller   Controller
	registry     EntityRegistry
	gateway      *Gateway
	clock        Clock
	logger       Logger
	recorder     TransitionRecorder
	disableRetry time.Duration
}

// NewCoordinator creates a coordinator over state.
func NewCoordinator(state *PauseState, opts CoordinatorOptions) *Coordinator {
	c := &Coordinator{
		state:        state,
		controller:   opts.Controller,
		registry:     opts.Registry,
		gateway:      opts.Gateway,
		clock:        opts.Clock,
		logger:       opts.Logger,
		recorder:     opts.Recorder,
		disableRetry: opts.DisableRetry,
	}
	if c.clock == nil {
		c.clock = SystemClock()
	}
	if c.logger == nil {
		c.logger = noopLogger{}
	}
	if c.gateway == nil {
		c.gateway = NewGateway(nil, c.logger)
	}
	if c.disableRetry <= 0 {
		c.disableRetry = DefaultDisableRetry
	}
	return c
}

// State returns the state the coordinator mutates.
func (c *Coordinator) State() *PauseState {
	return c.state
}

// op is the bookkeeping of one locked operation.
type op struct {
	c      *Coordinator
	events []transitionEvent
}

func (o *op) record(entityID string, t Transition) {
	o.events = append(o.events, transitionEvent{entityID: entityID, transition: t, at: o.c.clock.Now()})
}

// begin locks the state. ok is false, and the lock released, if the state
// is unloaded.
func (c *Coordinator) begin() (*op, bool) {
	c.state.mu.Lock()
	if c.state.unloaded {
		c.state.mu.Unlock()
		return nil, false
	}
	return &op{c: c}, true
}

// save persists the current maps. Callers hold the lock. By the time it
// runs the controller calls have happened, so the save is detached from
// ctx's cancellation and bounded by SaveTimeout instead.
func (o *op) save(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), SaveTimeout)
	defer cancel()
	return o.c.gateway.Save(ctx, o.c.state.snapshotLocked())
}

// end unlocks, then reports transitions and notifies listeners.
func (o *op) end(notify bool) {
	o.c.state.mu.Unlock()

	if o.c.recorder != nil {
		for _, e := range o.events {
			o.c.recorder.RecordTransition(e.entityID, e.transition, e.at)
		}
	}
	if notify {
		o.c.state.notify()
	}
}

// ─── Timers ─────────────────────────────────────────────────────────

func (c *Coordinator) armResumeLocked(entityID string, resumeAt time.Time) {
	c.state.timers[entityID].cancel()

	t := &armedTimer{}
	t.handle = c.clock.After(resumeAt.Sub(c.clock.Now()), func() {
		c.fireResume(entityID, t)
	})
	c.state.timers[entityID] = t
}

func (c *Coordinator) armDisableLocked(entityID string, disableAt time.Time) {
	c.state.scheduledTimers[entityID].cancel()

	t := &armedTimer{}
	t.handle = c.clock.After(disableAt.Sub(c.clock.Now()), func() {
		c.fireDisable(entityID, t)
	})
	c.state.scheduledTimers[entityID] = t
}

func (c *Coordinator) cancelResumeLocked(entityID string) {
	c.state.timers[entityID].cancel()
	delete(c.state.timers, entityID)
}

func (c *Coordinator) cancelDisableLocked(entityID string) {
	c.state.scheduledTimers[entityID].cancel()
	delete(c.state.scheduledTimers, entityID)
}

// ScheduleResume arms the resume timer for entityID at resumeAt,
// superseding any existing one.
func (c *Coordinator) ScheduleResume(entityID string, resumeAt time.Time) {
	o, ok := c.begin()
	if !ok {
		return
	}
	c.armResumeLocked(entityID, resumeAt)
	o.end(false)
}

// ScheduleDisable arms the disable timer for entityID at s.DisableAt,
// superseding any existing one.
func (c *Coordinator) ScheduleDisable(entityID string, s ScheduledSnooze) {
	o, ok := c.begin()
	if !ok {
		return
	}
	c.armDisableLocked(entityID, s.DisableAt)
	o.end(false)
}

func (c *Coordinator) fireResume(entityID string, t *armedTimer) {
	o, ok := c.begin()
	if !ok {
		return
	}
	if c.state.timers[entityID] != t {
		o.end(false)
		return
	}
	delete(c.state.timers, entityID)

	ctx := context.Background()
	c.resumeLocked(ctx, o, entityID)
	o.save(ctx)
	o.end(true)
}

func (c *Coordinator) fireDisable(entityID string, t *armedTimer) {
	o, ok := c.begin()
	if !ok {
		return
	}
	if c.state.scheduledTimers[entityID] != t {
		o.end(false)
		return
	}

	ctx := context.Background()
	changed := c.executeScheduledDisableLocked(ctx, o, entityID)
	if changed {
		o.save(ctx)
	}
	o.end(changed)
}

// ─── Transitions ────────────────────────────────────────────────────

// resumeLocked re-enables entityID and removes it from paused. If the
// enable call fails while the registry still knows the automation, the
// entry stays paused and a retry is armed. It reports whether the entity
// left the paused map.
func (c *Coordinator) resumeLocked(ctx context.Context, o *op, entityID string) bool {
	c.cancelResumeLocked(entityID)
	_, wasPaused := c.state.paused[entityID]

	if c.controller.SetEnabled(ctx, entityID, true) {
		delete(c.state.paused, entityID)
		if wasPaused {
			o.record(entityID, TransitionResumed)
			c.logger.Info("automation resumed", "entity_id", entityID)
		}
		return true
	}

	if !wasPaused {
		c.logger.Warn("enabling automation failed", "entity_id", entityID)
		return true
	}
	if !c.registry.Exists(ctx, entityID) {
		delete(c.state.paused, entityID)
		o.record(entityID, TransitionDropped)
		c.logger.Info("paused automation no longer exists, dropping", "entity_id", entityID)
		return true
	}

	retryAt := c.clock.Now().Add(c.disableRetry)
	c.armResumeLocked(entityID, retryAt)
	c.logger.Warn("enabling automation failed, will retry",
		"entity_id", entityID,
		"retry_at", retryAt,
	)
	return false
}

// executeScheduledDisableLocked turns a due schedule into a pause. The
// disable call happens before the scheduled entry is touched: on failure
// the entry is kept and retried later, or dropped if the automation is
// gone or the retry would land after the window ends. It reports whether
// the maps changed.
func (c *Coordinator) executeScheduledDisableLocked(ctx context.Context, o *op, entityID string) bool {
	sched, ok := c.state.scheduled[entityID]
	if !ok {
		c.cancelDisableLocked(entityID)
		return false
	}

	if !c.controller.SetEnabled(ctx, entityID, false) {
		retryAt := c.clock.Now().Add(c.disableRetry)
		if !c.registry.Exists(ctx, entityID) || !retryAt.Before(sched.ResumeAt) {
			c.cancelDisableLocked(entityID)
			delete(c.state.scheduled, entityID)
			o.record(entityID, TransitionDropped)
			c.logger.Warn("scheduled disable failed, dropping schedule", "entity_id", entityID)
			return true
		}
		c.armDisableLocked(entityID, retryAt)
		c.logger.Warn("scheduled disable failed, will retry",
			"entity_id", entityID,
			"retry_at", retryAt,
		)
		return false
	}

	c.cancelDisableLocked(entityID)
	delete(c.state.scheduled, entityID)

	disableAt := sched.DisableAt
	c.state.paused[entityID] = PausedAutomation{
		EntityID:     entityID,
		FriendlyName: sched.FriendlyName,
		ResumeAt:     sched.ResumeAt,
		PausedAt:     c.clock.Now(),
		DisableAt:    &disableAt,
	}
	c.armResumeLocked(entityID, sched.ResumeAt)
	o.record(entityID, TransitionDisableExecuted)
	c.logger.Info("scheduled disable executed",
		"entity_id", entityID,
		"resume_at", sched.ResumeAt,
	)
	return true
}

// ExecuteScheduledDisable runs the scheduled disable for entityID now.
// It reports whether the automation is paused afterwards.
func (c *Coordinator) ExecuteScheduledDisable(ctx context.Context, entityID string) bool {
	o, ok := c.begin()
	if !ok {
		return false
	}
	changed := c.executeScheduledDisableLocked(ctx, o, entityID)
	if changed {
		o.save(ctx)
	}
	_, paused := c.state.paused[entityID]
	o.end(changed)
	return paused
}

// Resume re-enables one paused automation. It reports whether the
// automation left the paused state.
func (c *Coordinator) Resume(ctx context.Context, entityID string) bool {
	return len(c.ResumeBatch(ctx, []string{entityID})) == 0
}

// ResumeBatch re-enables automations with one save and one notification.
// It returns the IDs whose enable failed and remain paused for retry.
func (c *Coordinator) ResumeBatch(ctx context.Context, entityIDs []string) (failed []string) {
	o, ok := c.begin()
	if !ok {
		return nil
	}
	for _, id := range entityIDs {
		if !c.resumeLocked(ctx, o, id) {
			failed = append(failed, id)
		}
	}
	o.save(ctx)
	o.end(true)
	return failed
}

// ResumeAll re-enables every paused automation.
func (c *Coordinator) ResumeAll(ctx context.Context) (resumed, failed []string) {
	o, ok := c.begin()
	if !ok {
		return nil, nil
	}
	for _, id := range slices.Sorted(maps.Keys(c.state.paused)) {
		if c.resumeLocked(ctx, o, id) {
			resumed = append(resumed, id)
		} else {
			failed = append(failed, id)
		}
	}
	o.save(ctx)
	o.end(true)
	return resumed, failed
}

// CancelScheduled removes one scheduled snooze before it starts.
func (c *Coordinator) CancelScheduled(ctx context.Context, entityID string) {
	c.CancelScheduledBatch(ctx, []string{entityID})
}

// CancelScheduledBatch removes scheduled snoozes with one save and one
// notification.
func (c *Coordinator) CancelScheduledBatch(ctx context.Context, entityIDs []string) {
	o, ok := c.begin()
	if !ok {
		return
	}
	for _, id := range entityIDs {
		c.cancelScheduledLocked(o, id)
	}
	o.save(ctx)
	o.end(true)
}

// CancelAllScheduled removes every scheduled snooze and returns their IDs.
func (c *Coordinator) CancelAllScheduled(ctx context.Context) []string {
	o, ok := c.begin()
	if !ok {
		return nil
	}
	ids := slices.Sorted(maps.Keys(c.state.scheduled))
	for _, id := range ids {
		c.cancelScheduledLocked(o, id)
	}
	o.save(ctx)
	o.end(true)
	return ids
}

func (c *Coordinator) cancelScheduledLocked(o *op, entityID string) {
	c.cancelDisableLocked(entityID)
	if _, ok := c.state.scheduled[entityID]; !ok {
		return
	}
	delete(c.state.scheduled, entityID)
	o.record(entityID, TransitionScheduledCancelled)
	c.logger.Info("scheduled snooze cancelled", "entity_id", entityID)
}

// PauseBatch disables automations now and arms their resume timers. Only
// automations whose disable succeeded are committed; a pause replaces any
// schedule or earlier pause for the same automation. One save and one
// notification cover the batch.
func (c *Coordinator) PauseBatch(ctx context.Context, entityIDs []string, spec PauseSpec) (paused, failed []string) {
	o, ok := c.begin()
	if !ok {
		return nil, entityIDs
	}

	now := c.clock.Now()
	for _, id := range entityIDs {
		if !c.controller.SetEnabled(ctx, id, false) {
			failed = append(failed, id)
			c.logger.Warn("disabling automation failed", "entity_id", id)
			continue
		}

		c.cancelDisableLocked(id)
		delete(c.state.scheduled, id)

		p := PausedAutomation{
			EntityID:     id,
			FriendlyName: c.registry.FriendlyName(ctx, id),
			ResumeAt:     spec.ResumeAt,
			PausedAt:     now,
			Days:         spec.Days,
			Hours:        spec.Hours,
			Minutes:      spec.Minutes,
		}
		if spec.DisableAt != nil {
			d := *spec.DisableAt
			p.DisableAt = &d
		}
		c.state.paused[id] = p
		c.armResumeLocked(id, spec.ResumeAt)

		paused = append(paused, id)
		o.record(id, TransitionPaused)
		c.logger.Info("automation paused", "entity_id", id, "resume_at", spec.ResumeAt)
	}

	o.save(ctx)
	o.end(true)
	return paused, failed
}

// ScheduleBatch records future disable windows. An automation that is
// currently paused is re-enabled first; the new window replaces the pause.
func (c *Coordinator) ScheduleBatch(ctx context.Context, entityIDs []string, disableAt, resumeAt time.Time) (scheduled []string) {
	o, ok := c.begin()
	if !ok {
		return nil
	}

	for _, id := range entityIDs {
		if _, wasPaused := c.state.paused[id]; wasPaused {
			c.cancelResumeLocked(id)
			delete(c.state.paused, id)
			if !c.controller.SetEnabled(ctx, id, true) {
				c.logger.Warn("re-enabling paused automation before schedule failed", "entity_id", id)
			}
		}

		c.state.scheduled[id] = ScheduledSnooze{
			EntityID:     id,
			FriendlyName: c.registry.FriendlyName(ctx, id),
			DisableAt:    disableAt,
			ResumeAt:     resumeAt,
		}
		c.armDisableLocked(id, disableAt)

		scheduled = append(scheduled, id)
		o.record(id, TransitionScheduled)
		c.logger.Info("automation snooze scheduled",
			"entity_id", id,
			"disable_at", disableAt,
			"resume_at", resumeAt,
		)
	}

	o.save(ctx)
	o.end(true)
	return scheduled
}

// AdjustBatch shifts the resume time of paused automations by delta. The
// batch is applied only if every target is paused and every new resume
// time is in the future.
func (c *Coordinator) AdjustBatch(ctx context.Context, entityIDs []string, delta time.Duration) error {
	o, ok := c.begin()
	if !ok {
		return nil
	}

	now := c.clock.Now()
	for _, id := range entityIDs {
		p, paused := c.state.paused[id]
		if !paused {
			o.end(false)
			return reject(ReasonNotPaused, id)
		}
		if !p.ResumeAt.Add(delta).After(now) {
			o.end(false)
			return reject(ReasonResumeTimePast, id)
		}
	}

	for _, id := range entityIDs {
		p := c.state.paused[id]
		p.ResumeAt = p.ResumeAt.Add(delta)
		c.state.paused[id] = p
		c.armResumeLocked(id, p.ResumeAt)
		o.record(id, TransitionAdjusted)
		c.logger.Info("snooze adjusted", "entity_id", id, "resume_at", p.ResumeAt)
	}

	o.save(ctx)
	o.end(true)
	return nil
}

// ─── Lifecycle ──────────────────────────────────────────────────────

// LoadAndRecover restores stored state at startup.
//
// Paused entries whose automation no longer exists are dropped; expired
// ones are re-enabled and dropped; the rest are disabled again and get a
// resume timer, or are dropped if the disable fails. Scheduled entries are
// dropped when missing or fully expired, promoted to paused when only
// disable_at has passed, and re-armed otherwise. The state is saved once
// if anything was dropped or changed, and listeners are always notified.
//
// The registry check and the controller call are not atomic; an
// automation deleted in between makes the controller call fail, which is
// handled as a drop.
func (c *Coordinator) LoadAndRecover(ctx context.Context) {
	o, ok := c.begin()
	if !ok {
		return
	}

	collection := ValidateCollection(c.gateway.Load(ctx))
	if collection.Corrupted {
		c.logger.Warn("stored snooze state is corrupted, starting empty")
	}
	if collection.Skipped > 0 {
		c.logger.Warn("skipped invalid stored snooze entries", "count", collection.Skipped)
	}

	now := c.clock.Now()
	dirty := collection.Corrupted || collection.Skipped > 0

	for _, id := range slices.Sorted(maps.Keys(collection.Paused)) {
		p := collection.Paused[id]
		switch {
		case !c.registry.Exists(ctx, id):
			c.logger.Info("paused automation no longer exists, dropping", "entity_id", id)
			o.record(id, TransitionDropped)
			dirty = true
		case !p.ResumeAt.After(now):
			if c.controller.SetEnabled(ctx, id, true) {
				c.logger.Info("snooze expired while stopped, resumed", "entity_id", id)
				o.record(id, TransitionResumed)
			} else {
				c.logger.Warn("re-enabling expired snooze failed, dropping", "entity_id", id)
				o.record(id, TransitionDropped)
			}
			dirty = true
		case !c.controller.SetEnabled(ctx, id, false):
			c.logger.Warn("restoring paused automation failed, dropping", "entity_id", id)
			o.record(id, TransitionDropped)
			dirty = true
		default:
			c.state.paused[id] = p
			c.armResumeLocked(id, p.ResumeAt)
		}
	}

	for _, id := range slices.Sorted(maps.Keys(collection.Scheduled)) {
		s := collection.Scheduled[id]
		if _, dup := c.state.paused[id]; dup {
			c.logger.Warn("automation both paused and scheduled in store, keeping pause", "entity_id", id)
			dirty = true
			continue
		}
		switch {
		case !c.registry.Exists(ctx, id):
			c.logger.Info("scheduled automation no longer exists, dropping", "entity_id", id)
			o.record(id, TransitionDropped)
			dirty = true
		case !s.ResumeAt.After(now):
			c.logger.Info("scheduled snooze expired while stopped, dropping", "entity_id", id)
			o.record(id, TransitionDropped)
			dirty = true
		case !s.DisableAt.After(now):
			c.state.scheduled[id] = s
			c.executeScheduledDisableLocked(ctx, o, id)
			dirty = true
		default:
			c.state.scheduled[id] = s
			c.armDisableLocked(id, s.DisableAt)
		}
	}

	if dirty {
		o.save(ctx)
	}
	c.logger.Info("snooze state recovered",
		"paused", len(c.state.paused),
		"scheduled", len(c.state.scheduled),
	)
	o.end(true)
}

// Unload cancels every timer, marks the state unloaded and clears the
// listeners. Later operations and in-flight timer callbacks are no-ops.
func (c *Coordinator) Unload() {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()

	if c.state.unloaded {
		return
	}
	c.state.unloaded = true
	for id, t := range c.state.timers {
		t.cancel()
		delete(c.state.timers, id)
	}
	for id, t := range c.state.scheduledTimers {
		t.cancel()
		delete(c.state.scheduledTimers, id)
	}
	c.state.listeners = nil
}
