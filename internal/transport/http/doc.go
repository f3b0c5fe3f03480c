// Package http implements the JSON API over the enrollment service.
//
// Handlers stay thin: they parse and validate path and query parameters,
// call the service, and render either JSON or CSV (format=csv). Errors are
// passed to the shared ErrorHandler, which maps the domain taxonomy onto
// RFC 7807 problem responses: invalid years and malformed parameters are
// 400, a year without rows is 404 and an unreachable source is 502.
//
// Pipeline runs are serialized through one mutex and identical concurrent
// requests are collapsed with singleflight, so only one goroutine writes a
// given cache entry at a time.
//
// # Routes
//
//	GET    /api/years
//	GET    /api/enrollment?years=2023,2024&tidy=true
//	GET    /api/enrollment/{year}?tidy=true
//	GET    /api/enrollment/{year}/bands
//	GET    /api/directory?tidy=true
//	GET    /api/cache
//	DELETE /api/cache
//	DELETE /api/cache/{kind}/{year}
//	POST   /api/cache/prune
//	GET    /api/health
package http
