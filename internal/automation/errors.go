package automation

import "errors"

// Domain errors for the automation package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, automation.ErrAutomationNotFound) {
//	    // handle not found case
//	}
var (
	// ErrAutomationNotFound is returned when an entity ID is not registered.
	ErrAutomationNotFound = errors.New("automation: not found")

	// ErrAutomationExists is returned when registering an entity ID twice.
	ErrAutomationExists = errors.New("automation: already exists")

	// ErrInvalidAutomation is returned when automation validation fails.
	ErrInvalidAutomation = errors.New("automation: invalid")

	// ErrInvalidEntityID is returned when an ID is outside the automation namespace.
	ErrInvalidEntityID = errors.New("automation: invalid entity id")

	// ErrInvalidName is returned when a name is too long.
	ErrInvalidName = errors.New("automation: invalid name")

	// ErrInvalidLabel is returned when a label is empty or too long.
	ErrInvalidLabel = errors.New("automation: invalid label")

	// ErrMQTTUnavailable is returned when no MQTT client is configured.
	ErrMQTTUnavailable = errors.New("automation: MQTT unavailable")
)
