package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/almartin82/vtschooldata/internal/cache"
	"github.com/almartin82/vtschooldata/internal/shared/testutil"
	"github.com/almartin82/vtschooldata/pkg/contracts/domain"
)

// MockSourceFetcher is a mock for the SourceFetcher interface
type MockSourceFetcher struct {
	mock.Mock
}

func (m *MockSourceFetcher) FetchSourceTable(ctx context.Context, dataset domain.DatasetID, endYear int) (*domain.RawTable, error) {
	args := m.Called(ctx, dataset, endYear)
	table, _ := args.Get(0).(*domain.RawTable)
	return table, args.Error(1)
}

func newTestService(t *testing.T) (*EnrollmentService, *MockSourceFetcher, *cache.Cache, *testutil.BufferedSlogHandler) {
	t.Helper()
	logger, handler := testutil.NewTestLogger(t)
	fetcher := &MockSourceFetcher{}
	c := cache.New(cache.NewMemoryStore(), nil, logger, nil)
	return NewEnrollmentService(fetcher, c, logger, nil), fetcher, c, handler
}
