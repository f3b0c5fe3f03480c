package source

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/almartin82/vtschooldata/internal/cache"
	"github.com/almartin82/vtschooldata/internal/config"
	apperrors "github.com/almartin82/vtschooldata/internal/errors"
	"github.com/almartin82/vtschooldata/internal/infrastructure"
	"github.com/almartin82/vtschooldata/pkg/contracts/domain"
)

// Datasets are the source tables the fetcher knows how to locate.
var Datasets = []domain.DatasetID{
	domain.DatasetEnrollment,
	domain.DatasetOrganizations,
	domain.DatasetPrincipals,
	domain.DatasetSuperintendents,
}

// HTTPFetcher downloads source files from the Agency of Education website,
// keeps the raw bytes in the cache and parses them into raw tables.
type HTTPFetcher struct {
	client  *resty.Client
	cfg     config.SourceConfig
	cache   *cache.Cache
	logger  *slog.Logger
	metrics *infrastructure.PipelineMetrics
}

// NewHTTPFetcher builds a rate-limited client that never retries. c and metrics may be nil;
// without a cache every call downloads.
func NewHTTPFetcher(cfg config.SourceConfig, c *cache.Cache, logger *slog.Logger, metrics *infrastructure.PipelineMetrics) *HTTPFetcher {
	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("User-Agent", cfg.UserAgent)

	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(cfg.Burst, 1))
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})

	return &HTTPFetcher{
		client:  client,
		cfg:     cfg,
		cache:   c,
		logger:  infrastructure.WithComponent(logger, "source"),
		metrics: metrics,
	}
}

// FetchSourceTable returns the parsed table for dataset. endYear selects the
// enrollment file; directory listings are not published per year and
// ignore it. Any failure is a SourceUnavailableError wrapping the cause.
func (f *HTTPFetcher) FetchSourceTable(ctx context.Context, dataset domain.DatasetID, endYear int) (*domain.RawTable, error) {
	ctx, span := infrastructure.StartSpan(ctx, "source.FetchSourceTable",
		attribute.String("dataset", string(dataset)),
		attribute.Int("end_year", endYear))
	defer span.End()

	key := rawKey(dataset, endYear)
	data, err := f.FetchRaw(ctx, dataset, endYear)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	table, err := ParseTable(data)
	if err != nil {
		// A cached file that cannot be parsed would fail every later call.
		if f.cache != nil {
			_, _ = f.cache.Invalidate(ctx, key)
		}
		perr := apperrors.NewParsingError(fmt.Sprintf("failed to parse %s file", dataset), err)
		infrastructure.RecordError(ctx, perr)
		return nil, apperrors.NewSourceUnavailableError(string(dataset), perr)
	}

	f.logger.InfoContext(ctx, "source table parsed",
		slog.String("dataset", string(dataset)),
		slog.Int("end_year", endYear),
		slog.Int("columns", len(table.Columns)),
		slog.Int("rows", table.Len()))
	return table, nil
}

// FetchRaw returns the downloaded bytes for dataset, from the cache when a
// fresh copy exists.
func (f *HTTPFetcher) FetchRaw(ctx context.Context, dataset domain.DatasetID, endYear int) ([]byte, error) {
	key := rawKey(dataset, endYear)
	if f.cache != nil {
		if blob, ok, err := f.cache.Get(ctx, key); err == nil && ok {
			f.logger.DebugContext(ctx, "raw source served from cache", slog.String("key", key.String()))
			return blob, nil
		}
	}

	start, err := f.startURL(dataset)
	if err != nil {
		return nil, apperrors.NewSourceUnavailableError(string(dataset), err)
	}

	data, err := f.download(ctx, dataset, start, key.EndYear)
	if err != nil {
		f.logger.WarnContext(ctx, "source download failed",
			slog.String("dataset", string(dataset)),
			slog.String("url", start),
			slog.String("error", err.Error()))
		return nil, apperrors.NewSourceUnavailableError(string(dataset), err)
	}

	if f.cache != nil {
		if err := f.cache.Put(ctx, key, data); err != nil {
			f.logger.WarnContext(ctx, "failed to cache raw source",
				slog.String("key", key.String()),
				slog.String("error", err.Error()))
		}
	}
	return data, nil
}

func (f *HTTPFetcher) startURL(dataset domain.DatasetID) (string, error) {
	switch dataset {
	case domain.DatasetEnrollment:
		if f.cfg.EnrollmentFileURL != "" {
			return f.cfg.EnrollmentFileURL, nil
		}
		return f.cfg.EnrollmentPageURL, nil
	case domain.DatasetOrganizations:
		return f.cfg.OrganizationsURL, nil
	case domain.DatasetPrincipals:
		return f.cfg.PrincipalsURL, nil
	case domain.DatasetSuperintendents:
		return f.cfg.SuperintendentsURL, nil
	default:
		return "", fmt.Errorf("unknown dataset %q", dataset)
	}
}

// download fetches u; when it is an HTML page, the spreadsheet it links to
// for endYear is fetched instead.
func (f *HTTPFetcher) download(ctx context.Context, dataset domain.DatasetID, u string, endYear int) ([]byte, error) {
	body, contentType, err := f.get(ctx, dataset, u)
	if err != nil {
		return nil, err
	}
	if !looksLikeHTML(contentType, body) {
		return body, nil
	}

	links, err := DiscoverLinks(body, u)
	if err != nil {
		return nil, err
	}
	link, ok := SelectLink(links, endYear)
	if !ok {
		return nil, fmt.Errorf("no data file linked from %s", u)
	}
	f.logger.DebugContext(ctx, "data file discovered",
		slog.String("page", u),
		slog.String("file", link.URL),
		slog.String("text", link.Text))

	body, contentType, err = f.get(ctx, dataset, link.URL)
	if err != nil {
		return nil, err
	}
	if looksLikeHTML(contentType, body) {
		return nil, fmt.Errorf("%s is a web page, not a data file", link.URL)
	}
	return body, nil
}

func (f *HTTPFetcher) get(ctx context.Context, dataset domain.DatasetID, u string) ([]byte, string, error) {
	resp, err := f.client.R().SetContext(ctx).Get(u)
	if err == nil && resp.IsError() {
		err = fmt.Errorf("GET %s: %s", u, resp.Status())
	}

	size := 0
	if resp != nil {
		size = len(resp.Body())
	}
	f.metrics.RecordSourceFetch(ctx, string(dataset), size, err)
	if err != nil {
		return nil, "", err
	}
	return resp.Body(), resp.Header().Get("Content-Type"), nil
}

func looksLikeHTML(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "text/html") {
		return true
	}
	head := bytes.ToLower(bytes.TrimSpace(body[:min(len(body), 512)]))
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}

// rawKey files directory listings under year 0 since they are not
// published per year.
func rawKey(dataset domain.DatasetID, endYear int) cache.Key {
	if dataset != domain.DatasetEnrollment {
		endYear = 0
	}
	return cache.RawKey(endYear, dataset)
}
