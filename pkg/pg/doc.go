// Package pg wires pgx connection pooling, health checking, and goose
// migrations into a small reusable surface: Connect with retry, Healthcheck
// for readiness probes, Migrate for embedded SQL migrations, and error
// classification helpers (IsNotFoundError, IsDuplicateKeyError).
package pg
