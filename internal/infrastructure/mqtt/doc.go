// Package mqtt provides MQTT client connectivity for the snooze service.
//
// The service talks to automations only through the bus: enable/disable
// commands go out on graylogic/command/automation/{entity_id}, bridges report
// the real state on graylogic/state/automation/{entity_id}, and the snooze
// summary is published retained on graylogic/core/snooze/state.
//
//	Snooze service ↔ MQTT Broker ↔ Automation bridge
//
// # Security Considerations
//
//   - TLS should be enabled for production deployments (cfg.Broker.TLS=true)
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.AutomationCommand("automation.hall_lights")
//	client.Publish(topic, []byte(`{"enabled":false}`), 1, false)
package mqtt
