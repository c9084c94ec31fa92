// Package automation tracks the automations the snooze service may switch
// on and off, and switches them.
//
// Architecture:
//
//	┌───────────────────────────────────────────────────────┐
//	│              Controller (controller.go)               │
//	│  SetEnabled → MQTT command → bridge                   │
//	│  bridge state report → HandleStateReport              │
//	│  ┌──────────────┐    ┌───────────────┐                │
//	│  │   Registry   │───▶│  Repository   │                │
//	│  │(registry.go) │    │(repository.go)│                │
//	│  └──────────────┘    └───────────────┘                │
//	└───────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - Automation: entity ID in the "automation." namespace, name, area, labels
//   - Registry: thread-safe cache with area/label resolution
//   - Controller: the single enable/disable control point
//
// # Usage
//
//	repo := automation.NewSQLiteRepository(db.DB)
//	registry := automation.NewRegistry(repo)
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//
//	controller := automation.NewController(registry, mqttClient, 1, log)
//	ok := controller.SetEnabled(ctx, "automation.hall_lights", false)
package automation
