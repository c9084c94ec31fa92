package automation

import (
	"slices"
	"time"
)

// EntityDomain is the namespace every automation entity ID lives in.
const EntityDomain = "automation"

// EntityPrefix prefixes every automation entity ID ("automation.hall_lights").
const EntityPrefix = EntityDomain + "."

// Automation is a rule owned by the host platform that can be switched on
// and off. The snooze service never edits the rule itself; it only flips
// Enabled through the Controller.
type Automation struct {
	// Identity
	EntityID string `json:"entity_id"`
	Name     string `json:"name"`

	// Scope (optional)
	AreaID *string  `json:"area_id,omitempty"`
	Labels []string `json:"labels,omitempty"`

	// Last known state as reported by the owning bridge or set by the Controller.
	Enabled bool `json:"enabled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName returns Name, or the entity ID when no name is set.
func (a *Automation) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.EntityID
}

// InArea reports whether the automation is assigned to areaID.
func (a *Automation) InArea(areaID string) bool {
	return a.AreaID != nil && *a.AreaID == areaID
}

// HasAnyLabel reports whether the automation carries at least one of labels.
func (a *Automation) HasAnyLabel(labels []string) bool {
	for _, l := range labels {
		if slices.Contains(a.Labels, l) {
			return true
		}
	}
	return false
}

// DeepCopy creates an independent copy of the automation.
func (a *Automation) DeepCopy() *Automation {
	if a == nil {
		return nil
	}
	cp := *a
	if a.AreaID != nil {
		area := *a.AreaID
		cp.AreaID = &area
	}
	cp.Labels = slices.Clone(a.Labels)
	return &cp
}
