package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/almartin82/vtschooldata/internal/cache"
	"github.com/almartin82/vtschooldata/internal/config"
)

// HealthService reports process and cache health for the API.
type HealthService struct {
	version   string
	cache     *cache.Cache
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service. c may be nil.
func NewHealthService(version string, c *cache.Cache, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	if version == "" {
		version = config.AppVersion
	}

	return &HealthService{
		version:   version,
		cache:     c,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck reports ok with runtime details, or degraded when the cache
// cannot be listed.
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime_seconds": time.Since(hs.startTime).Seconds(),
			"go_version":     runtime.Version(),
			"goroutines":     runtime.NumGoroutine(),
		},
		Services: map[string]interface{}{
			"cache": hs.checkCacheHealth(ctx),
		},
	}

	if sh, ok := status.Services["cache"].(ServiceHealth); ok && sh.Status != "ready" {
		status.Status = "degraded"
	}

	hs.logger.DebugContext(ctx, "health check completed", slog.String("status", status.Status))
	return status
}

func (hs *HealthService) checkCacheHealth(ctx context.Context) ServiceHealth {
	if hs.cache == nil {
		return ServiceHealth{Status: "ready", Message: "cache disabled"}
	}

	entries, err := hs.cache.Status(ctx)
	if err != nil {
		hs.logger.WarnContext(ctx, "cache health check failed", slog.String("error", err.Error()))
		return ServiceHealth{Status: "unavailable", Message: err.Error()}
	}

	stale := 0
	for _, e := range entries {
		if !e.Fresh {
			stale++
		}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%s store, %d entries, %d stale", hs.cache.Driver(), len(entries), stale),
	}
}
