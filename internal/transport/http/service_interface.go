package http

import (
	"context"

	"github.com/almartin82/vtschooldata/internal/cache"
	"github.com/almartin82/vtschooldata/pkg/contracts/domain"
)

// EnrollmentServiceInterface defines the operations the API exposes
type EnrollmentServiceInterface interface {
	AvailableYears() []int
	FetchEnrollment(ctx context.Context, endYear int, tidy bool) (*domain.EnrollmentTable, error)
	FetchEnrollmentMulti(ctx context.Context, endYears []int, tidy bool) (*domain.EnrollmentTable, error)
	GradeBandAggregates(tidy []domain.TidyRecord) []domain.GradeBandAggregate
	FetchDirectory(ctx context.Context, tidy bool) (*domain.DirectoryTable, error)

	CacheStatus(ctx context.Context) ([]cache.EntryStatus, error)
	ClearCache(ctx context.Context) (int, error)
	InvalidateCache(ctx context.Context, kind domain.DatasetKind, endYear int) (int, error)
	PruneCache(ctx context.Context) (int, error)
}
