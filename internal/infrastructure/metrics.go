package infrastructure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetrics are the business metrics recorded by the cache, source
// and processing layers. A nil *PipelineMetrics records nothing.
type PipelineMetrics struct {
	CacheHits     metric.Int64Counter
	CacheMisses   metric.Int64Counter
	CacheWrites   metric.Int64Counter
	StageDuration metric.Float64Histogram
	RowsProcessed metric.Int64Counter
	SourceFetches metric.Int64Counter
	SourceBytes   metric.Int64Counter
	HTTPRequests  metric.Int64Counter
}

// NewPipelineMetrics creates the instruments on meter. A nil meter uses the
// global provider, which is a no-op until InitializeOTel installs one.
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	if meter == nil {
		meter = otel.Meter(MeterName)
	}

	m := &PipelineMetrics{}
	var err error

	if m.CacheHits, err = meter.Int64Counter("vtsd_cache_hits_total",
		metric.WithDescription("Cache lookups answered from a fresh entry")); err != nil {
		return nil, err
	}
	if m.CacheMisses, err = meter.Int64Counter("vtsd_cache_misses_total",
		metric.WithDescription("Cache lookups that found no fresh entry")); err != nil {
		return nil, err
	}
	if m.CacheWrites, err = meter.Int64Counter("vtsd_cache_writes_total",
		metric.WithDescription("Cache entries written")); err != nil {
		return nil, err
	}
	if m.StageDuration, err = meter.Float64Histogram("vtsd_pipeline_stage_duration_seconds",
		metric.WithDescription("Duration of a pipeline stage"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.RowsProcessed, err = meter.Int64Counter("vtsd_rows_processed_total",
		metric.WithDescription("Rows emitted by a pipeline stage")); err != nil {
		return nil, err
	}
	if m.SourceFetches, err = meter.Int64Counter("vtsd_source_fetches_total",
		metric.WithDescription("Downloads from the Agency of Education")); err != nil {
		return nil, err
	}
	if m.SourceBytes, err = meter.Int64Counter("vtsd_source_bytes_total",
		metric.WithDescription("Bytes downloaded from the Agency of Education"),
		metric.WithUnit("By")); err != nil {
		return nil, err
	}
	if m.HTTPRequests, err = meter.Int64Counter("vtsd_http_requests_total",
		metric.WithDescription("HTTP API requests")); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordCacheLookup counts a hit or a miss for kind.
func (m *PipelineMetrics) RecordCacheLookup(ctx context.Context, kind string, hit bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("kind", kind))
	if hit {
		m.CacheHits.Add(ctx, 1, attrs)
		return
	}
	m.CacheMisses.Add(ctx, 1, attrs)
}

// RecordCacheWrite counts a cache write for kind.
func (m *PipelineMetrics) RecordCacheWrite(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.CacheWrites.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordStage records how long a stage took and how many rows it produced.
func (m *PipelineMetrics) RecordStage(ctx context.Context, stage string, duration time.Duration, rows int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("stage", stage))
	m.StageDuration.Record(ctx, duration.Seconds(), attrs)
	m.RowsProcessed.Add(ctx, int64(rows), attrs)
}

// RecordSourceFetch counts a download attempt and its size.
func (m *PipelineMetrics) RecordSourceFetch(ctx context.Context, dataset string, bytes int, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.SourceFetches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("dataset", dataset),
		attribute.String("outcome", outcome),
	))
	if err == nil {
		m.SourceBytes.Add(ctx, int64(bytes), metric.WithAttributes(attribute.String("dataset", dataset)))
	}
}

// RecordHTTPRequest counts an API request by route pattern and status.
func (m *PipelineMetrics) RecordHTTPRequest(ctx context.Context, route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route", route),
		attribute.Int("status", status),
	))
}
