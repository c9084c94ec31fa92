// Package influxdb records snooze history in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Two measurements are
// written:
//
//   - snooze_transition: one point per automation state change, tagged by
//     entity_id and transition
//   - snooze_state: paused/scheduled counts after each change
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // history is optional
//	}
//	defer client.Close()
//
//	client.WriteSnoozeTransition("automation.hall_lights", "paused", time.Now())
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval. Batch errors are delivered via SetOnError.
package influxdb
