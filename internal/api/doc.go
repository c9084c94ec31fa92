// Package api implements the HTTP REST API and WebSocket server for the
// snooze service.
//
// This package provides:
//   - REST endpoints to pause, schedule, adjust and cancel automation snoozes
//   - REST endpoints to list, register and delete automations
//   - WebSocket hub broadcasting snooze.changed events to subscribed clients
//   - JWT bearer authentication with a static role-permission model
//   - Middleware stack (request ID, logging, recovery, CORS, rate limiting)
//   - TLS support for production deployments
//
// # Errors
//
// Rejected snooze requests return 400 with the rejection reason as the
// error code (for example "resume_time_past"), so clients can translate
// them without parsing messages.
//
// # Security
//
// Every route except /health and /ws requires an "Authorization: Bearer"
// header. Browsers cannot set headers on a WebSocket upgrade, so /ws takes
// the same token in the token query parameter.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
