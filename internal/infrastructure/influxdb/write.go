package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the snooze service.
const (
	// MeasurementTransition records one point per state change of a single
	// automation (paused, resumed, disable_executed...).
	MeasurementTransition = "snooze_transition"

	// MeasurementGauge records how many automations are paused and
	// scheduled after each change.
	MeasurementGauge = "snooze_state"
)

// WriteSnoozeTransition records that entityID went through transition at
// time at. Non-blocking; a no-op when disconnected.
//
// Example:
//
//	client.WriteSnoozeTransition("automation.hall_lights", "paused", time.Now())
func (c *Client) WriteSnoozeTransition(entityID, transition string, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writer.WritePoint(transitionPoint(entityID, transition, at))
}

// WriteSnoozeGauge records the number of paused and scheduled automations.
func (c *Client) WriteSnoozeGauge(paused, scheduled int, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writer.WritePoint(gaugePoint(paused, scheduled, at))
}

func transitionPoint(entityID, transition string, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementTransition,
		map[string]string{
			"entity_id":  entityID,
			"transition": transition,
		},
		map[string]interface{}{
			"count": 1,
		},
		at,
	)
}

func gaugePoint(paused, scheduled int, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementGauge,
		nil,
		map[string]interface{}{
			"paused":    paused,
			"scheduled": scheduled,
		},
		at,
	)
}
