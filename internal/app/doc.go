// Package app wires the vtschooldata components together.
//
// New loads nothing itself: it takes a validated config and a logger,
// initializes OpenTelemetry, opens the configured cache store, and builds
// the enrollment and health services on top of the HTTP source fetcher.
// The CLI calls the services directly. The serve command additionally
// calls Start, which mounts the chi router under /api, exposes /metrics
// when metrics are enabled and schedules cache pruning with robfig/cron.
//
// Middleware order is RequestID, RealIP, OTel, Logger, Recoverer, then
// security headers; API routes add rate limiting and a request timeout.
package app
