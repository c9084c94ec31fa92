package snooze

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"syscall"
	"time"

	"github.com/nerrad567/gray-logic-snooze/internal/infrastructure/database"
)

// Store is the durable key-value slot the snooze document lives in.
type Store interface {
	// Load returns the stored document, or nil if nothing was saved yet.
	Load(ctx context.Context) ([]byte, error)

	// Save replaces the stored document.
	Save(ctx context.Context, data []byte) error
}

// DefaultRetryDelays are the waits before each save retry.
var DefaultRetryDelays = []time.Duration{
	100 * time.Millisecond,
	200 * time.Millisecond,
	400 * time.Millisecond,
}

// Gateway saves and loads the snooze document through a Store.
//
// Save retries transient failures with DefaultRetryDelays and never
// returns an error; callers get a bool and the failure is logged. Load
// does not validate; see ValidateCollection.
type Gateway struct {
	store  Store
	logger Logger
	delays []time.Duration
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewGateway creates a gateway. A nil store makes Save a successful no-op
// and Load return nil.
func NewGateway(store Store, logger Logger) *Gateway {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Gateway{
		store:  store,
		logger: logger,
		delays: DefaultRetryDelays,
		sleep:  contextSleep,
	}
}

// Save writes the snapshot. It returns true on success, or when no store
// is configured, and false once retries are exhausted or a non-transient
// error occurs.
func (g *Gateway) Save(ctx context.Context, snap Snapshot) bool {
	if g == nil || g.store == nil {
		return true
	}

	data, err := json.Marshal(snap.ToMap())
	if err != nil {
		g.logger.Error("encoding snooze state failed", "error", err)
		return false
	}

	attempts := len(g.delays) + 1
	for attempt := 1; ; attempt++ {
		err := g.store.Save(ctx, data)
		if err == nil {
			if attempt > 1 {
				g.logger.Info("snooze state saved after retry", "attempt", attempt)
			}
			return true
		}

		if !IsTransient(err) {
			g.logger.Error("saving snooze state failed", "error", err)
			return false
		}
		if attempt == attempts {
			g.logger.Error("saving snooze state failed, retries exhausted",
				"attempts", attempts,
				"error", err,
			)
			return false
		}

		delay := g.delays[attempt-1]
		g.logger.Warn("saving snooze state failed, retrying",
			"attempt", attempt,
			"retry_in", delay.String(),
			"error", err,
		)
		if err := g.sleep(ctx, delay); err != nil {
			g.logger.Error("saving snooze state abandoned", "error", err)
			return false
		}
	}
}

// Load returns the decoded stored document, or nil when nothing was saved
// or it could not be read.
func (g *Gateway) Load(ctx context.Context) any {
	if g == nil || g.store == nil {
		return nil
	}

	data, err := g.store.Load(ctx)
	if err != nil {
		g.logger.Error("loading snooze state failed", "error", err)
		return nil
	}
	if len(data) == 0 {
		return nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		g.logger.Warn("stored snooze state is not valid JSON", "error", err)
		return nil
	}
	return raw
}

// IsTransient reports whether a store error is worth retrying: disk
// contention, timeouts and SQLite busy/locked/io conditions.
func IsTransient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrStoreTransient),
		errors.Is(err, syscall.EIO),
		errors.Is(err, syscall.EAGAIN),
		errors.Is(err, syscall.EBUSY),
		errors.Is(err, os.ErrDeadlineExceeded):
		return true
	default:
		return database.IsTransient(err)
	}
}

// contextSleep waits for d or until ctx is done.
func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
