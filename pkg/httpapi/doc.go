// Package httpapi is the management and sync surface: alert-rule CRUD,
// notification queries, preference management, offline batch submission,
// operator endpoints, and the websocket upgrade route.
//
// Every route under /api/v1 requires a bearer token resolved through the
// pluggable IdentityProvider. Manager-level routes (bulk notifications,
// on-demand evaluation) require an elevated role; the connection snapshot
// requires admin. Errors are structured JSON {"error": "..."} with
// conventional status codes; batch endpoints answer 207 when outcomes are
// mixed.
package httpapi
