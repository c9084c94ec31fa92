package snooze

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// storedTimeLayout is the layout timestamps are written with. Always UTC.
const storedTimeLayout = time.RFC3339Nano

// Layouts carrying an explicit offset.
var offsetLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04Z07:00",
}

// Layouts without an offset; the zone is supplied by the caller.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// formatTime renders t for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(storedTimeLayout)
}

// ParseStoredTime parses a persisted timestamp. A value without an offset
// is read as UTC, since storage is always written in UTC.
func ParseStoredTime(value string) (time.Time, error) {
	return parseDateTime(value, time.UTC)
}

// ParseUserTime parses a user-supplied timestamp. A value without an
// offset is read in loc, the deployment's local zone. The result is UTC.
func ParseUserTime(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return parseDateTime(value, loc)
}

func parseDateTime(value string, naiveLoc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty datetime")
	}
	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, value, naiveLoc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised datetime %q", value)
}
