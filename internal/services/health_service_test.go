package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almartin82/vtschooldata/internal/cache"
	"github.com/almartin82/vtschooldata/internal/config"
	"github.com/almartin82/vtschooldata/internal/shared/testutil"
	"github.com/almartin82/vtschooldata/pkg/contracts/domain"
)

func TestHealthService_HealthCheck(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	ctx := context.Background()

	c := cache.New(cache.NewMemoryStore(), nil, logger, nil)
	require.NoError(t, c.Put(ctx, cache.NewKey(2024, domain.KindEnrollmentWide), []byte("[]")))

	hs := NewHealthService("", c, logger)
	status := hs.HealthCheck(ctx)

	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, config.AppVersion, status.Version)
	assert.Contains(t, status.Runtime, "uptime_seconds")

	cacheHealth, ok := status.Services["cache"].(ServiceHealth)
	require.True(t, ok)
	assert.Equal(t, "ready", cacheHealth.Status)
	assert.Equal(t, "memory store, 1 entries, 0 stale", cacheHealth.Message)
}

func TestHealthService_NoCache(t *testing.T) {
	hs := NewHealthService("1.2.3", nil, nil)
	status := hs.HealthCheck(context.Background())

	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "1.2.3", status.Version)
}
