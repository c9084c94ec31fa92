package snooze

import (
	"errors"
	"fmt"
)

// Domain-specific errors for the snooze service.
var (
	// ErrRejected is matched by every *RejectionError.
	ErrRejected = errors.New("snooze: request rejected")

	// ErrStoreTransient marks a store failure that may succeed on retry.
	ErrStoreTransient = errors.New("snooze: transient store error")

	// ErrInvalidRecord is returned when a stored record cannot be decoded.
	ErrInvalidRecord = errors.New("snooze: invalid stored record")
)

// RejectionReason is the machine-readable code of a rejected request.
type RejectionReason string

// Rejection reasons.
const (
	ReasonInvalidDuration    RejectionReason = "invalid_duration"
	ReasonNotAutomation      RejectionReason = "not_automation"
	ReasonResumeTimePast     RejectionReason = "resume_time_past"
	ReasonDisableAfterResume RejectionReason = "disable_after_resume"
	ReasonInvalidDateTime    RejectionReason = "invalid_datetime"
	ReasonNotPaused          RejectionReason = "not_paused"
	ReasonNoTargets          RejectionReason = "no_targets_resolved"
)

// RejectionError reports a request that failed validation. EntityID is set
// when a single target caused the rejection.
type RejectionError struct {
	Reason   RejectionReason
	EntityID string
}

func (e *RejectionError) Error() string {
	if e.EntityID != "" {
		return fmt.Sprintf("snooze: rejected (%s): %s", e.Reason, e.EntityID)
	}
	return fmt.Sprintf("snooze: rejected (%s)", e.Reason)
}

// Is makes errors.Is(err, ErrRejected) true for any rejection.
func (e *RejectionError) Is(target error) bool {
	return target == ErrRejected
}

func reject(reason RejectionReason, entityID string) error {
	return &RejectionError{Reason: reason, EntityID: entityID}
}

// ReasonOf extracts the rejection reason from err, if it is a rejection.
func ReasonOf(err error) (RejectionReason, bool) {
	var re *RejectionError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}
