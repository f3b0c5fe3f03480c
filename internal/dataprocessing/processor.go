package dataprocessing

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/almartin82/vtschooldata/internal/infrastructure"
	"github.com/almartin82/vtschooldata/pkg/contracts/domain"
)

// Processor runs the normalization stages over a raw source table, logging
// and timing each stage.
type Processor struct {
	catalog ColumnCatalog
	logger  *slog.Logger
	metrics *infrastructure.PipelineMetrics
}

// NewProcessor creates a processor using the default column catalog.
// metrics may be nil.
func NewProcessor(logger *slog.Logger, metrics *infrastructure.PipelineMetrics) *Processor {
	return &Processor{
		catalog: DefaultCatalog(),
		logger:  infrastructure.WithComponent(logger, "processor"),
		metrics: metrics,
	}
}

// WithCatalog replaces the column catalog.
func (p *Processor) WithCatalog(c ColumnCatalog) *Processor {
	p.catalog = c
	return p
}

// ProcessEnrollment turns the raw enrollment table into wide records for
// endYear, State row first.
func (p *Processor) ProcessEnrollment(ctx context.Context, table *domain.RawTable, endYear int) ([]domain.CanonicalOrgRecord, error) {
	ctx, span := infrastructure.StartSpan(ctx, "dataprocessing.ProcessEnrollment",
		attribute.Int("end_year", endYear),
		attribute.Int("raw_rows", table.Len()))
	defer span.End()

	logger := infrastructure.WithYear(p.logger, endYear)

	start := time.Now()
	reconciled, err := ReconcileWith(table, endYear, p.catalog)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		logger.WarnContext(ctx, "reconciliation left no rows",
			slog.Int("raw_rows", table.Len()))
		return nil, err
	}
	p.metrics.RecordStage(ctx, "reconcile", time.Since(start), reconciled.Len())
	logger.DebugContext(ctx, "reconciled collection passes",
		slog.Int("raw_rows", table.Len()),
		slog.Int("kept_rows", reconciled.Len()))

	start = time.Now()
	mapped := MapColumns(reconciled, p.catalog)
	p.metrics.RecordStage(ctx, "map_columns", time.Since(start), len(mapped))
	p.checkTotals(ctx, logger, mapped)

	start = time.Now()
	wide := ClassifyAndAggregate(endYear, mapped)
	p.metrics.RecordStage(ctx, "classify", time.Since(start), len(wide))

	if wide[0].DerivedFromCampus {
		logger.InfoContext(ctx, "no district rows, state total derived from campuses")
	}
	logger.InfoContext(ctx, "enrollment normalized", slog.Int("records", len(wide)))

	return wide, nil
}

// checkTotals logs rows whose grade counts add up to more than the source
// total. The data is left untouched.
func (p *Processor) checkTotals(ctx context.Context, logger *slog.Logger, rows []MappedRow) {
	for _, row := range rows {
		if row.SourceTotal == nil {
			continue
		}
		sum, ok := GradeSum(row.Grades)
		if !ok || sum <= *row.SourceTotal {
			continue
		}
		logger.WarnContext(ctx, "grade counts exceed reported total",
			slog.String("district_id", deref(row.DistrictID)),
			slog.String("campus_id", deref(row.CampusID)),
			slog.Int64("grade_sum", sum),
			slog.Int64("row_total", *row.SourceTotal))
	}
}

// Tidy reshapes wide records and records the stage.
func (p *Processor) Tidy(ctx context.Context, wide []domain.CanonicalOrgRecord) []domain.TidyRecord {
	start := time.Now()
	tidy := Tidy(wide)
	p.metrics.RecordStage(ctx, "tidy", time.Since(start), len(tidy))
	return tidy
}

// Bands computes grade-band aggregates and records the stage.
func (p *Processor) Bands(ctx context.Context, tidy []domain.TidyRecord) []domain.GradeBandAggregate {
	start := time.Now()
	bands := AggregateBands(tidy)
	p.metrics.RecordStage(ctx, "bands", time.Since(start), len(bands))
	return bands
}

// ProcessDirectory joins the three directory listings.
func (p *Processor) ProcessDirectory(ctx context.Context, orgs, principals, superintendents *domain.RawTable) []domain.DirectoryRecord {
	ctx, span := infrastructure.StartSpan(ctx, "dataprocessing.ProcessDirectory",
		attribute.Int("raw_rows", orgs.Len()))
	defer span.End()

	start := time.Now()
	records := NormalizeDirectory(orgs, principals, superintendents)
	p.metrics.RecordStage(ctx, "directory", time.Since(start), len(records))

	p.logger.InfoContext(ctx, "directory normalized",
		slog.Int("organizations", orgs.Len()),
		slog.Int("records", len(records)))
	return records
}
