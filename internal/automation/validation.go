package automation

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Validation constants.
const (
	maxNameLength   = 100
	maxLabelLength  = 50
	maxLabels       = 20
	maxObjectIDLen  = 100
	objectIDPattern = `^[a-z0-9_]+$`
)

var objectIDRegex = regexp.MustCompile(objectIDPattern)

// IsAutomationID reports whether id is in the automation namespace.
// Only the prefix is checked; use ValidateEntityID for the full format.
func IsAutomationID(id string) bool {
	return strings.HasPrefix(id, EntityPrefix) && len(id) > len(EntityPrefix)
}

// ValidateEntityID checks that id is "automation.<object_id>" with a
// lowercase snake_case object ID.
func ValidateEntityID(id string) error {
	if !IsAutomationID(id) {
		return fmt.Errorf("%w: %q must start with %q", ErrInvalidEntityID, id, EntityPrefix)
	}
	objectID := strings.TrimPrefix(id, EntityPrefix)
	if len(objectID) > maxObjectIDLen {
		return fmt.Errorf("%w: object id exceeds %d characters", ErrInvalidEntityID, maxObjectIDLen)
	}
	if !objectIDRegex.MatchString(objectID) {
		return fmt.Errorf("%w: object id %q must be lowercase letters, digits and underscores", ErrInvalidEntityID, objectID)
	}
	return nil
}

// ValidateName checks the display name. Empty is allowed.
func ValidateName(name string) error {
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateAutomation performs full validation and normalises labels in place.
func ValidateAutomation(a *Automation) error {
	if a == nil {
		return ErrInvalidAutomation
	}
	if err := ValidateEntityID(a.EntityID); err != nil {
		return err
	}
	if err := ValidateName(a.Name); err != nil {
		return err
	}
	if a.AreaID != nil && strings.TrimSpace(*a.AreaID) == "" {
		a.AreaID = nil
	}

	labels, err := NormaliseLabels(a.Labels)
	if err != nil {
		return err
	}
	a.Labels = labels
	return nil
}

// NormaliseLabels trims, lowercases, de-duplicates and sorts labels.
func NormaliseLabels(labels []string) ([]string, error) {
	if len(labels) > maxLabels {
		return nil, fmt.Errorf("%w: more than %d labels", ErrInvalidLabel, maxLabels)
	}
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" {
			return nil, fmt.Errorf("%w: empty label", ErrInvalidLabel)
		}
		if len(l) > maxLabelLength {
			return nil, fmt.Errorf("%w: %q exceeds %d characters", ErrInvalidLabel, l, maxLabelLength)
		}
		out = append(out, l)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// GenerateID creates a new UUID for an outgoing command.
func GenerateID() string {
	return uuid.New().String()
}
