package snooze

import (
	"github.com/nerrad567/gray-logic-snooze/internal/automation"
)

// EntryKind selects which rules apply to a stored record.
type EntryKind string

// Stored record kinds.
const (
	KindPaused    EntryKind = "paused"
	KindScheduled EntryKind = "scheduled"
)

var requiredFields = map[EntryKind][]string{
	KindPaused:    {"resume_at", "paused_at"},
	KindScheduled: {"disable_at", "resume_at"},
}

var durationFields = []string{"days", "hours", "minutes"}

// ValidateEntry reports whether a stored record may be loaded back into
// memory. Rules are applied in order and each failure is final:
//
//  1. entityID must be in the automation namespace
//  2. raw must be a mapping
//  3. the kind's required timestamps must be present
//  4. each required timestamp must parse
//  5. paused: days, hours and minutes, when present, must be numbers >= 0
//  6. scheduled: resume_at must be strictly after disable_at
func ValidateEntry(entityID string, raw any, kind EntryKind) bool {
	if !automation.IsAutomationID(entityID) {
		return false
	}
	record, ok := raw.(map[string]any)
	if !ok {
		return false
	}

	required, known := requiredFields[kind]
	if !known {
		return false
	}
	for _, field := range required {
		if _, present := record[field]; !present {
			return false
		}
	}
	for _, field := range required {
		if _, err := timeField(record, field); err != nil {
			return false
		}
	}

	switch kind {
	case KindPaused:
		for _, field := range durationFields {
			if _, err := intField(record, field); err != nil {
				return false
			}
		}
	case KindScheduled:
		disableAt, _ := timeField(record, "disable_at") //nolint:errcheck // parsed above
		resumeAt, _ := timeField(record, "resume_at")   //nolint:errcheck // parsed above
		if !resumeAt.After(disableAt) {
			return false
		}
	}
	return true
}

// Collection is the validated content of a stored document.
type Collection struct {
	Paused    map[string]PausedAutomation
	Scheduled map[string]ScheduledSnooze

	// Skipped counts entries dropped by validation.
	Skipped int

	// Corrupted is set when the root was present but not a mapping.
	Corrupted bool
}

// ValidateCollection filters a raw stored document of any shape. A
// non-mapping root, or a non-mapping half, is treated as empty. Invalid
// entries are dropped and counted. It never fails.
func ValidateCollection(raw any) Collection {
	c := Collection{
		Paused:    make(map[string]PausedAutomation),
		Scheduled: make(map[string]ScheduledSnooze),
	}
	if raw == nil {
		return c
	}
	root, ok := raw.(map[string]any)
	if !ok {
		c.Corrupted = true
		return c
	}

	if paused, ok := root["paused"].(map[string]any); ok {
		for id, entry := range paused {
			if !ValidateEntry(id, entry, KindPaused) {
				c.Skipped++
				continue
			}
			p, err := PausedFromMap(id, entry.(map[string]any))
			if err != nil {
				c.Skipped++
				continue
			}
			c.Paused[id] = p
		}
	}

	if scheduled, ok := root["scheduled"].(map[string]any); ok {
		for id, entry := range scheduled {
			if !ValidateEntry(id, entry, KindScheduled) {
				c.Skipped++
				continue
			}
			s, err := ScheduledFromMap(id, entry.(map[string]any))
			if err != nil {
				c.Skipped++
				continue
			}
			c.Scheduled[id] = s
		}
	}
	return c
}
