// Package services exposes the enrollment and directory queries used by the
// CLI and the HTTP API.
//
// EnrollmentService validates the requested years, serves processed tables
// from the cache when it can and otherwise runs the pipeline:
//
//	source table -> reconcile -> map columns -> classify -> (tidy)
//
// Results are written back to the cache as JSON. Errors carry the taxonomy
// from internal/errors so callers can match them with errors.Is:
// ErrInvalidYear, ErrNoDataForYear and ErrSourceUnavailable.
//
// HealthService reports process uptime and cache status.
package services
