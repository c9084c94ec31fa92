package snooze

import (
	"encoding/json"
	"time"

	"github.com/nerrad567/gray-logic-snooze/internal/infrastructure/mqtt"
)

// ChannelChanged is the WebSocket channel carrying Attributes.
const ChannelChanged = "snooze.changed"

// RetainedPublisher publishes retained MQTT messages.
type RetainedPublisher interface {
	PublishRetained(topic string, payload []byte) error
}

// Broadcaster pushes a payload to WebSocket subscribers of a channel.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// GaugeWriter records paused and scheduled counts.
type GaugeWriter interface {
	WriteSnoozeGauge(paused, scheduled int, at time.Time)
}

// Attributes is the presentation view of the state.
type Attributes struct {
	PausedCount int                       `json:"paused_count"`
	Paused      map[string]map[string]any `json:"paused"`
	Scheduled   map[string]map[string]any `json:"scheduled"`
}

// AttributesOf builds the presentation view of a snapshot.
func AttributesOf(snap Snapshot) Attributes {
	a := Attributes{
		PausedCount: len(snap.Paused),
		Paused:      make(map[string]map[string]any, len(snap.Paused)),
		Scheduled:   make(map[string]map[string]any, len(snap.Scheduled)),
	}
	for id, p := range snap.Paused {
		a.Paused[id] = p.ToMap()
	}
	for id, s := range snap.Scheduled {
		a.Scheduled[id] = s.ToMap()
	}
	return a
}

// SensorOptions are the optional sinks of a Sensor. Nil sinks are skipped.
type SensorOptions struct {
	MQTT   RetainedPublisher
	Hub    Broadcaster
	Gauge  GaugeWriter
	Clock  Clock
	Logger Logger
}

// Sensor mirrors the state to MQTT, WebSocket clients and InfluxDB every
// time it changes.
type Sensor struct {
	state  *PauseState
	mqtt   RetainedPublisher
	hub    Broadcaster
	gauge  GaugeWriter
	clock  Clock
	logger Logger
}

// NewSensor creates a sensor for state. Call Attach to start mirroring.
func NewSensor(state *PauseState, opts SensorOptions) *Sensor {
	s := &Sensor{
		state:  state,
		mqtt:   opts.MQTT,
		hub:    opts.Hub,
		gauge:  opts.Gauge,
		clock:  opts.Clock,
		logger: opts.Logger,
	}
	if s.clock == nil {
		s.clock = SystemClock()
	}
	if s.logger == nil {
		s.logger = noopLogger{}
	}
	return s
}

// Attach registers the sensor as a state listener and returns the detach
// function.
func (s *Sensor) Attach() (detach func()) {
	return s.state.AddListener(s.Update)
}

// Attributes returns the current presentation view.
func (s *Sensor) Attributes() Attributes {
	return AttributesOf(s.state.Snapshot())
}

// Update publishes the current view to every configured sink.
func (s *Sensor) Update() {
	attrs := s.Attributes()

	if s.mqtt != nil {
		payload, err := json.Marshal(attrs)
		if err != nil {
			s.logger.Error("encoding snooze attributes failed", "error", err)
		} else if err := s.mqtt.PublishRetained(mqtt.Topics{}.CoreSnoozeState(), payload); err != nil {
			s.logger.Warn("publishing snooze state failed", "error", err)
		}
	}
	if s.hub != nil {
		s.hub.Broadcast(ChannelChanged, attrs)
	}
	if s.gauge != nil {
		s.gauge.WriteSnoozeGauge(attrs.PausedCount, len(attrs.Scheduled), s.clock.Now())
	}
}
