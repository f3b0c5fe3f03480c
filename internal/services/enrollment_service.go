package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/almartin82/vtschooldata/internal/cache"
	"github.com/almartin82/vtschooldata/internal/config"
	"github.com/almartin82/vtschooldata/internal/dataprocessing"
	apperrors "github.com/almartin82/vtschooldata/internal/errors"
	"github.com/almartin82/vtschooldata/internal/infrastructure"
	"github.com/almartin82/vtschooldata/pkg/contracts/domain"
)

// SourceFetcher returns a parsed source table. The HTTP implementation lives
// in internal/source.
type SourceFetcher interface {
	FetchSourceTable(ctx context.Context, dataset domain.DatasetID, endYear int) (*domain.RawTable, error)
}

// directoryYear is the cache year for directory tables, which are not
// published per school year.
const directoryYear = 0

// EnrollmentService is the query surface over the fetch, normalize and
// cache pipeline. Calls run synchronously; callers that share one service
// across goroutines serialize pipeline runs themselves.
type EnrollmentService struct {
	fetcher   SourceFetcher
	cache     *cache.Cache
	processor *dataprocessing.Processor
	logger    *slog.Logger
}

// NewEnrollmentService wires the pipeline. metrics may be nil.
func NewEnrollmentService(fetcher SourceFetcher, c *cache.Cache, logger *slog.Logger, metrics *infrastructure.PipelineMetrics) *EnrollmentService {
	logger = infrastructure.WithComponent(logger, "enrollment_service")
	return &EnrollmentService{
		fetcher:   fetcher,
		cache:     c,
		processor: dataprocessing.NewProcessor(logger, metrics),
		logger:    logger,
	}
}

// AvailableYears lists the end years that can be requested.
func (s *EnrollmentService) AvailableYears() []int {
	return config.AvailableYears()
}

// ValidateYear rejects years outside the published range.
func (s *EnrollmentService) ValidateYear(endYear int) error {
	if !config.IsAvailableYear(endYear) {
		return apperrors.NewInvalidYearError(endYear, config.MinYear, config.MaxYear)
	}
	return nil
}

// FetchEnrollment returns one year's enrollment, wide or tidy. The year is
// checked before anything is fetched.
func (s *EnrollmentService) FetchEnrollment(ctx context.Context, endYear int, tidy bool) (*domain.EnrollmentTable, error) {
	if err := s.ValidateYear(endYear); err != nil {
		return nil, err
	}

	ctx, span := infrastructure.StartSpan(ctx, "services.FetchEnrollment",
		attribute.Int("end_year", endYear),
		attribute.Bool("tidy", tidy))
	defer span.End()

	logger := infrastructure.WithYear(s.logger, endYear)

	if tidy {
		var rows []domain.TidyRecord
		if s.readCache(ctx, cache.NewKey(endYear, domain.KindEnrollmentTidy), &rows) {
			logger.DebugContext(ctx, "tidy enrollment served from cache")
			return &domain.EnrollmentTable{Shape: domain.ShapeTidy, Tidy: rows}, nil
		}
	}

	wide, err := s.wide(ctx, logger, endYear)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	if !tidy {
		return &domain.EnrollmentTable{Shape: domain.ShapeWide, Wide: wide}, nil
	}

	rows := s.processor.Tidy(ctx, wide)
	s.writeCache(ctx, cache.NewKey(endYear, domain.KindEnrollmentTidy), rows)
	return &domain.EnrollmentTable{Shape: domain.ShapeTidy, Tidy: rows}, nil
}

func (s *EnrollmentService) wide(ctx context.Context, logger *slog.Logger, endYear int) ([]domain.CanonicalOrgRecord, error) {
	key := cache.NewKey(endYear, domain.KindEnrollmentWide)

	var wide []domain.CanonicalOrgRecord
	if s.readCache(ctx, key, &wide) {
		logger.DebugContext(ctx, "wide enrollment served from cache")
		return wide, nil
	}

	start := time.Now()
	raw, err := s.fetcher.FetchSourceTable(ctx, domain.DatasetEnrollment, endYear)
	if err != nil {
		return nil, sourceError(domain.DatasetEnrollment, err)
	}

	wide, err = s.processor.ProcessEnrollment(ctx, raw, endYear)
	if err != nil {
		return nil, err
	}

	s.writeCache(ctx, key, wide)
	logger.InfoContext(ctx, "enrollment built",
		slog.Int("records", len(wide)),
		slog.Duration("elapsed", time.Since(start)))
	return wide, nil
}

// FetchEnrollmentMulti concatenates single-year results in the order of
// endYears. Every year is checked before the first fetch.
func (s *EnrollmentService) FetchEnrollmentMulti(ctx context.Context, endYears []int, tidy bool) (*domain.EnrollmentTable, error) {
	if len(endYears) == 0 {
		return nil, apperrors.NewAppValidationError(ErrNoYears.Error())
	}
	for _, y := range endYears {
		if err := s.ValidateYear(y); err != nil {
			return nil, err
		}
	}

	shape := domain.ShapeWide
	if tidy {
		shape = domain.ShapeTidy
	}
	out := &domain.EnrollmentTable{Shape: shape}

	for _, y := range endYears {
		t, err := s.FetchEnrollment(ctx, y, tidy)
		if err != nil {
			return nil, err
		}
		out.Append(t)
	}
	return out, nil
}

// Tidy reshapes wide records that were fetched earlier.
func (s *EnrollmentService) Tidy(wide []domain.CanonicalOrgRecord) []domain.TidyRecord {
	return dataprocessing.Tidy(wide)
}

// ClassifyLevels re-derives the level flags of tidy rows.
func (s *EnrollmentService) ClassifyLevels(tidy []domain.TidyRecord) []domain.TidyRecord {
	return dataprocessing.ClassifyLevels(tidy)
}

// GradeBandAggregates sums tidy rows into K8, HS and K12 bands.
func (s *EnrollmentService) GradeBandAggregates(tidy []domain.TidyRecord) []domain.GradeBandAggregate {
	return dataprocessing.AggregateBands(tidy)
}

// FetchDirectory returns the organizations listing as published, or joined
// with principal and superintendent contacts when tidy is set. Missing
// contact listings leave the contact fields empty.
func (s *EnrollmentService) FetchDirectory(ctx context.Context, tidy bool) (*domain.DirectoryTable, error) {
	ctx, span := infrastructure.StartSpan(ctx, "services.FetchDirectory", attribute.Bool("tidy", tidy))
	defer span.End()

	if tidy {
		var records []domain.DirectoryRecord
		if s.readCache(ctx, cache.NewKey(directoryYear, domain.KindDirectoryTidy), &records) {
			return &domain.DirectoryTable{Shape: domain.ShapeTidy, Records: records}, nil
		}
	}

	orgs, err := s.directoryRaw(ctx)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	if !tidy {
		return &domain.DirectoryTable{Shape: domain.ShapeWide, Raw: orgs}, nil
	}

	principals := s.optionalListing(ctx, domain.DatasetPrincipals)
	superintendents := s.optionalListing(ctx, domain.DatasetSuperintendents)

	records := s.processor.ProcessDirectory(ctx, orgs, principals, superintendents)
	s.writeCache(ctx, cache.NewKey(directoryYear, domain.KindDirectoryTidy), records)
	return &domain.DirectoryTable{Shape: domain.ShapeTidy, Records: records}, nil
}

func (s *EnrollmentService) directoryRaw(ctx context.Context) (*domain.RawTable, error) {
	key := cache.NewKey(directoryYear, domain.KindDirectoryRaw)

	var orgs domain.RawTable
	if s.readCache(ctx, key, &orgs) {
		return &orgs, nil
	}

	table, err := s.fetcher.FetchSourceTable(ctx, domain.DatasetOrganizations, directoryYear)
	if err != nil {
		return nil, sourceError(domain.DatasetOrganizations, err)
	}
	s.writeCache(ctx, key, table)
	return table, nil
}

func (s *EnrollmentService) optionalListing(ctx context.Context, dataset domain.DatasetID) *domain.RawTable {
	table, err := s.fetcher.FetchSourceTable(ctx, dataset, directoryYear)
	if err != nil {
		s.logger.WarnContext(ctx, "contact listing unavailable, continuing without it",
			slog.String("dataset", string(dataset)),
			slog.String("error", err.Error()))
		return nil
	}
	return table
}

// CacheStatus lists cached entries with their age and freshness.
func (s *EnrollmentService) CacheStatus(ctx context.Context) ([]cache.EntryStatus, error) {
	if s.cache == nil {
		return nil, nil
	}
	return s.cache.Status(ctx)
}

// ClearCache removes every cached entry.
func (s *EnrollmentService) ClearCache(ctx context.Context) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	return s.cache.InvalidateAll(ctx)
}

// InvalidateCache removes the entries of kind for endYear.
func (s *EnrollmentService) InvalidateCache(ctx context.Context, kind domain.DatasetKind, endYear int) (int, error) {
	if _, err := domain.ParseDatasetKind(string(kind)); err != nil {
		return 0, apperrors.NewAppValidationError(err.Error())
	}
	if s.cache == nil {
		return 0, nil
	}
	return s.cache.InvalidateWhere(ctx, cache.KindAndYear(kind, endYear))
}

// PruneCache removes stale entries.
func (s *EnrollmentService) PruneCache(ctx context.Context) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	return s.cache.Prune(ctx)
}

func (s *EnrollmentService) readCache(ctx context.Context, key cache.Key, v any) bool {
	if s.cache == nil {
		return false
	}
	ok, err := s.cache.GetJSON(ctx, key, v)
	if err != nil {
		s.logger.WarnContext(ctx, "cache read failed",
			slog.String("key", key.String()),
			slog.String("error", err.Error()))
		return false
	}
	return ok
}

// writeCache stores v; a failed write only costs a rebuild next time.
func (s *EnrollmentService) writeCache(ctx context.Context, key cache.Key, v any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.PutJSON(ctx, key, v); err != nil {
		s.logger.WarnContext(ctx, "cache write failed",
			slog.String("key", key.String()),
			slog.String("error", err.Error()))
	}
}

// sourceError keeps errors that already carry the taxonomy and wraps
// anything else, unchanged, as SourceUnavailable.
func sourceError(dataset domain.DatasetID, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.NewSourceUnavailableError(string(dataset), err)
}
