// Package auth provides bearer-token authentication and a static
// role-permission model for the snooze API.
//
// Three roles exist: viewer (read only), user (may pause and resume
// automations) and admin (may also edit the automation registry).
// Tokens are HS256 JWTs carrying the role claim; the signing secret
// comes from security.jwt.secret in the configuration.
package auth
