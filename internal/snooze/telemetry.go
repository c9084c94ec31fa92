package snooze

import (
	"encoding/json"
	"time"

	"github.com/nerrad567/gray-logic-snooze/internal/infrastructure/mqtt"
)

// EventPublisher publishes MQTT messages.
type EventPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// TransitionWriter records a single transition as a time-series point.
type TransitionWriter interface {
	WriteSnoozeTransition(entityID, transition string, at time.Time)
}

// EventRecorder is a TransitionRecorder that publishes each transition on
// graylogic/core/snooze/event/{transition} and writes it to InfluxDB.
type EventRecorder struct {
	mqtt   EventPublisher
	writer TransitionWriter
	qos    byte
	logger Logger
}

type transitionPayload struct {
	EntityID   string `json:"entity_id"`
	Transition string `json:"transition"`
	Timestamp  string `json:"timestamp"`
}

// NewEventRecorder creates a recorder. Either sink may be nil.
func NewEventRecorder(publisher EventPublisher, writer TransitionWriter, qos byte, logger Logger) *EventRecorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &EventRecorder{mqtt: publisher, writer: writer, qos: qos, logger: logger}
}

// RecordTransition implements TransitionRecorder.
func (r *EventRecorder) RecordTransition(entityID string, transition Transition, at time.Time) {
	if r.writer != nil {
		r.writer.WriteSnoozeTransition(entityID, string(transition), at)
	}
	if r.mqtt == nil {
		return
	}

	payload, err := json.Marshal(transitionPayload{
		EntityID:   entityID,
		Transition: string(transition),
		Timestamp:  at.UTC().Format(time.RFC3339),
	})
	if err != nil {
		r.logger.Error("encoding snooze event failed", "error", err)
		return
	}
	if err := r.mqtt.Publish(mqtt.Topics{}.CoreSnoozeEvent(string(transition)), payload, r.qos, false); err != nil {
		r.logger.Warn("publishing snooze event failed",
			"entity_id", entityID,
			"transition", transition,
			"error", err,
		)
	}
}
