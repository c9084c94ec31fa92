// Package snooze temporarily disables automations and re-enables them on
// schedule.
//
// An automation is either enabled, paused (disabled until ResumeAt) or
// scheduled (to be disabled at DisableAt and resumed at ResumeAt). The
// package is layered:
//
//   - PauseState holds the paused and scheduled maps, their timers and the
//     change listeners behind a single mutex.
//   - ValidateEntry and ValidateCollection sanitise stored records before
//     they are loaded back.
//   - Gateway saves and loads the state document through a Store, retrying
//     transient failures. SQLiteStore is the production Store.
//   - Coordinator performs every transition: it calls the Controller, commits
//     the change only if the call succeeded, saves once per operation and
//     then notifies listeners. Timers come from a Clock; FakeClock drives
//     tests.
//   - Service validates user requests, resolves area and label targets and
//     forwards to the Coordinator.
//   - Sensor and EventRecorder mirror state and transitions to MQTT,
//     WebSocket clients and InfluxDB.
//
// # Stored document
//
//	{
//	  "paused": {
//	    "automation.hall_lights": {
//	      "friendly_name": "Hall lights",
//	      "resume_at": "2026-03-01T12:00:00Z",
//	      "paused_at": "2026-03-01T10:00:00Z",
//	      "days": 0, "hours": 2, "minutes": 0
//	    }
//	  },
//	  "scheduled": {
//	    "automation.porch": {
//	      "friendly_name": "Porch",
//	      "disable_at": "2026-03-02T22:00:00Z",
//	      "resume_at": "2026-03-03T06:00:00Z"
//	    }
//	  }
//	}
//
// Stored timestamps without an offset are read as UTC. User timestamps
// without an offset are read in the deployment's zone.
package snooze
