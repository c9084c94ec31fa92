package automation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
)

// Logger defines the logging interface used by the Registry and Controller.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides automation lookups with caching and thread safety.
// It wraps a Repository and adds an in-memory cache for fast lookups.
//
// The cache is populated on startup via RefreshCache() and kept in sync by
// the mutating methods. All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Automation
	cacheMu sync.RWMutex
	logger  Logger
}

// NewRegistry creates a new automation registry.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Automation),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all automations from the repository into the cache.
func (r *Registry) RefreshCache(ctx context.Context) error {
	automations, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading automations: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache = make(map[string]*Automation, len(automations))
	for i := range automations {
		r.cache[automations[i].EntityID] = automations[i].DeepCopy()
	}

	r.logger.Info("automation cache refreshed", "count", len(automations))
	return nil
}

// GetAutomation retrieves an automation by entity ID as a deep copy.
func (r *Registry) GetAutomation(_ context.Context, entityID string) (*Automation, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[entityID]
	r.cacheMu.RUnlock()

	if !ok {
		return nil, ErrAutomationNotFound
	}
	return cached.DeepCopy(), nil
}

// Exists reports whether entityID is registered.
func (r *Registry) Exists(_ context.Context, entityID string) bool {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	_, ok := r.cache[entityID]
	return ok
}

// FriendlyName returns the display name of entityID, falling back to the
// entity ID itself when unknown or unnamed.
func (r *Registry) FriendlyName(_ context.Context, entityID string) string {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	if a, ok := r.cache[entityID]; ok {
		return a.DisplayName()
	}
	return entityID
}

// ListAutomations returns all automations sorted by entity ID.
func (r *Registry) ListAutomations(_ context.Context) []Automation {
	return r.filter(func(*Automation) bool { return true })
}

// AutomationIDsByArea returns the sorted entity IDs of automations in any
// of areaIDs.
func (r *Registry) AutomationIDsByArea(_ context.Context, areaIDs []string) []string {
	return entityIDs(r.filter(func(a *Automation) bool {
		return slices.ContainsFunc(areaIDs, a.InArea)
	}))
}

// AutomationIDsByLabel returns the sorted entity IDs of automations carrying
// any of labels.
func (r *Registry) AutomationIDsByLabel(_ context.Context, labels []string) []string {
	normalised, err := NormaliseLabels(labels)
	if err != nil {
		return nil
	}
	return entityIDs(r.filter(func(a *Automation) bool {
		return a.HasAnyLabel(normalised)
	}))
}

func (r *Registry) filter(keep func(*Automation) bool) []Automation {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	var out []Automation
	for _, a := range r.cache {
		if keep(a) {
			out = append(out, *a.DeepCopy())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].EntityID < out[j].EntityID
	})
	return out
}

func entityIDs(automations []Automation) []string {
	ids := make([]string, len(automations))
	for i := range automations {
		ids[i] = automations[i].EntityID
	}
	return ids
}

// Register validates and stores an automation, creating it or updating an
// existing registration with the same entity ID.
func (r *Registry) Register(ctx context.Context, a *Automation) error {
	if err := ValidateAutomation(a); err != nil {
		return err
	}

	err := r.repo.Create(ctx, a)
	if errors.Is(err, ErrAutomationExists) {
		err = r.repo.Update(ctx, a)
	}
	if err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[a.EntityID] = a.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("automation registered", "entity_id", a.EntityID, "name", a.Name)
	return nil
}

// Delete removes an automation from persistence and cache.
func (r *Registry) Delete(ctx context.Context, entityID string) error {
	if err := r.repo.Delete(ctx, entityID); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, entityID)
	r.cacheMu.Unlock()

	r.logger.Info("automation deleted", "entity_id", entityID)
	return nil
}

// MarkEnabled records the enabled state of an automation.
func (r *Registry) MarkEnabled(ctx context.Context, entityID string, enabled bool) error {
	r.cacheMu.RLock()
	cached, ok := r.cache[entityID]
	unchanged := ok && cached.Enabled == enabled
	r.cacheMu.RUnlock()

	if !ok {
		return ErrAutomationNotFound
	}
	if unchanged {
		return nil
	}

	if err := r.repo.SetEnabled(ctx, entityID, enabled); err != nil {
		return err
	}

	r.cacheMu.Lock()
	if a, stillThere := r.cache[entityID]; stillThere {
		a.Enabled = enabled
	}
	r.cacheMu.Unlock()
	return nil
}

// Count returns the number of cached automations.
func (r *Registry) Count() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}
