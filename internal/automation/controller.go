package automation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-snooze/internal/infrastructure/mqtt"
)

// stateReportTimeout bounds registry writes triggered by bridge state reports.
const stateReportTimeout = 5 * time.Second

// MQTTClient is the interface for publishing commands to the owning bridge.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// MQTTSubscriber is the interface for receiving bridge state reports.
type MQTTSubscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Controller switches automations on and off.
//
// Commands are published on graylogic/command/automation/{entity_id}; the
// bridge that owns the automation applies them and reports the resulting
// state on graylogic/state/automation/{entity_id}, which HandleStateReport
// folds back into the registry.
//
// Thread Safety: all methods are safe for concurrent use.
type Controller struct {
	registry *Registry
	mqtt     MQTTClient
	qos      byte
	logger   Logger
}

// commandPayload is the JSON body of an enable/disable command.
type commandPayload struct {
	ID        string `json:"id"`
	EntityID  string `json:"entity_id"`
	Command   string `json:"command"`
	Enabled   bool   `json:"enabled"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
}

// stateReport is the JSON body a bridge publishes on the state topic.
type stateReport struct {
	Enabled *bool `json:"enabled"`
}

// NewController creates a controller.
//
// Parameters:
//   - registry: Automation registry used for existence checks and state tracking
//   - mqtt: MQTT client for publishing commands (nil makes every call fail)
//   - qos: QoS level for commands
//   - logger: Logger instance (nil for no logging)
func NewController(registry *Registry, mqtt MQTTClient, qos byte, logger Logger) *Controller {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Controller{
		registry: registry,
		mqtt:     mqtt,
		qos:      qos,
		logger:   logger,
	}
}

// SetEnabled turns an automation on or off.
//
// It returns false, without error, when the automation is not registered or
// the command could not be published. Callers treat false as "do not
// commit the state change".
func (c *Controller) SetEnabled(ctx context.Context, entityID string, enabled bool) bool {
	if !c.registry.Exists(ctx, entityID) {
		c.logger.Warn("automation not found", "entity_id", entityID, "enabled", enabled)
		return false
	}
	if c.mqtt == nil {
		c.logger.Warn("cannot switch automation", "entity_id", entityID, "error", ErrMQTTUnavailable)
		return false
	}

	command := "disable"
	if enabled {
		command = "enable"
	}
	payload, err := json.Marshal(commandPayload{
		ID:        GenerateID(),
		EntityID:  entityID,
		Command:   command,
		Enabled:   enabled,
		Source:    "snooze",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		c.logger.Error("marshalling automation command", "entity_id", entityID, "error", err)
		return false
	}

	topic := mqtt.Topics{}.AutomationCommand(entityID)
	if err := c.mqtt.Publish(topic, payload, c.qos, false); err != nil {
		c.logger.Warn("publishing automation command failed",
			"entity_id", entityID,
			"command", command,
			"topic", topic,
			"error", err,
		)
		return false
	}

	if err := c.registry.MarkEnabled(ctx, entityID, enabled); err != nil {
		c.logger.Warn("recording automation state failed", "entity_id", entityID, "error", err)
	}

	c.logger.Debug("automation command published", "entity_id", entityID, "command", command)
	return true
}

// HandleStateReport is an mqtt.MessageHandler for automation state topics.
// Reports for unregistered automations are ignored.
func (c *Controller) HandleStateReport(topic string, payload []byte) error {
	entityID, ok := mqtt.Topics{}.AutomationIDFromTopic(topic)
	if !ok {
		return fmt.Errorf("%w: unexpected topic %q", ErrInvalidEntityID, topic)
	}

	var report stateReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return fmt.Errorf("decoding state report for %s: %w", entityID, err)
	}
	if report.Enabled == nil {
		return fmt.Errorf("state report for %s has no enabled field", entityID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), stateReportTimeout)
	defer cancel()

	err := c.registry.MarkEnabled(ctx, entityID, *report.Enabled)
	if errors.Is(err, ErrAutomationNotFound) {
		c.logger.Debug("state report for unregistered automation", "entity_id", entityID)
		return nil
	}
	return err
}

// Subscribe starts receiving state reports for every automation.
func (c *Controller) Subscribe(sub MQTTSubscriber) error {
	if err := sub.Subscribe(mqtt.Topics{}.AllAutomationStates(), c.qos, c.HandleStateReport); err != nil {
		return fmt.Errorf("subscribing to automation states: %w", err)
	}
	return nil
}
