package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes for the Gray Logic bus.
//
// Bridge-facing topics use the flat scheme graylogic/{category}/{protocol}/{id}.
// Automations are addressed with the "automation" protocol segment, so the
// bridge that owns them (e.g. a Home Assistant bridge) receives commands on
// graylogic/command/automation/{entity_id}.
const (
	// TopicPrefixBridge is the base for all bridge topics.
	TopicPrefixBridge = "graylogic"

	// TopicPrefixCore is the base for topics published by core services.
	TopicPrefixCore = "graylogic/core"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "graylogic/system"

	// automationProtocol is the protocol segment for automation entities.
	automationProtocol = "automation"
)

// Topics provides builders for Gray Logic MQTT topics.
//
//	topics := mqtt.Topics{}
//	cmd := topics.AutomationCommand("automation.hall_lights")
//	// Returns: "graylogic/command/automation/automation.hall_lights"
type Topics struct{}

// =============================================================================
// Automation Topics
// =============================================================================

// AutomationCommand returns the topic for enable/disable commands to the
// bridge that owns an automation.
//
// Example: graylogic/command/automation/automation.hall_lights
func (Topics) AutomationCommand(entityID string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefixBridge, automationProtocol, entityID)
}

// AutomationState returns the topic on which a bridge reports the current
// enabled state of an automation.
//
// Example: graylogic/state/automation/automation.hall_lights
func (Topics) AutomationState(entityID string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefixBridge, automationProtocol, entityID)
}

// AllAutomationStates returns a pattern matching every automation state report.
//
// Pattern: graylogic/state/automation/+
func (Topics) AllAutomationStates() string {
	return fmt.Sprintf("%s/state/%s/+", TopicPrefixBridge, automationProtocol)
}

// AutomationIDFromTopic extracts the entity ID from an automation state or
// command topic. ok is false if the topic is not an automation topic.
func (Topics) AutomationIDFromTopic(topic string) (entityID string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != TopicPrefixBridge || parts[2] != automationProtocol {
		return "", false
	}
	if parts[3] == "" {
		return "", false
	}
	return parts[3], true
}

// =============================================================================
// Core Topics
// =============================================================================

// CoreSnoozeState returns the retained topic carrying the snooze summary
// (paused count, paused and scheduled entries).
//
// Example: graylogic/core/snooze/state
func (Topics) CoreSnoozeState() string {
	return fmt.Sprintf("%s/snooze/state", TopicPrefixCore)
}

// CoreSnoozeEvent returns the topic for individual snooze transitions.
//
// Example: graylogic/core/snooze/event/paused
func (Topics) CoreSnoozeEvent(transition string) string {
	return fmt.Sprintf("%s/snooze/event/%s", TopicPrefixCore, transition)
}

// AllCoreSnoozeEvents returns a pattern matching all snooze transitions.
//
// Pattern: graylogic/core/snooze/event/+
func (Topics) AllCoreSnoozeEvents() string {
	return fmt.Sprintf("%s/snooze/event/+", TopicPrefixCore)
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the system status topic used for online/offline and LWT.
//
// Example: graylogic/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
