package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/spf13/cast"
	"golang.org/x/sync/singleflight"

	"github.com/almartin82/vtschooldata/internal/config"
	apierrors "github.com/almartin82/vtschooldata/internal/errors"
	"github.com/almartin82/vtschooldata/internal/exporter"
	"github.com/almartin82/vtschooldata/internal/middleware"
	api "github.com/almartin82/vtschooldata/pkg/contracts/api/v1"
	"github.com/almartin82/vtschooldata/pkg/contracts/domain"
)

// EnrollmentHandler serves enrollment, directory and cache routes.
type EnrollmentHandler struct {
	service      EnrollmentServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	validator    *middleware.Validator

	// run serializes pipeline work; group collapses identical requests.
	run        sync.Mutex
	group      singleflight.Group
	runTimeout time.Duration
}

// NewEnrollmentHandler creates a new enrollment handler
func NewEnrollmentHandler(service EnrollmentServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *EnrollmentHandler {
	return &EnrollmentHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "enrollment_handler")),
		errorHandler: errorHandler,
		validator:    middleware.NewValidator(logger, errorHandler),
		runTimeout:   config.DefaultPipelineTimeout,
	}
}

// WithRunTimeout sets the deadline of a single pipeline run.
func (h *EnrollmentHandler) WithRunTimeout(d time.Duration) *EnrollmentHandler {
	if d > 0 {
		h.runTimeout = d
	}
	return h
}

// RegisterRoutes registers the API routes on r
func (h *EnrollmentHandler) RegisterRoutes(r chi.Router) {
	r.Get("/years", h.GetYears)

	r.Route("/enrollment", func(r chi.Router) {
		r.Get("/", h.GetEnrollmentMulti)
		r.Get("/{year}", h.GetEnrollment)
		r.Get("/{year}/bands", h.GetBands)
	})

	r.Get("/directory", h.GetDirectory)

	r.Route("/cache", func(r chi.Router) {
		r.Get("/", h.GetCacheStatus)
		r.Delete("/", h.ClearCache)
		r.Delete("/{kind}/{year}", h.InvalidateCache)
		r.Post("/prune", h.PruneCache)
	})
}

// GetYears handles GET /api/years
func (h *EnrollmentHandler) GetYears(w http.ResponseWriter, r *http.Request) {
	years := h.service.AvailableYears()
	render.JSON(w, r, api.YearsResponse{
		Years: years,
		Min:   years[0],
		Max:   years[len(years)-1],
	})
}

// GetEnrollment handles GET /api/enrollment/{year}
func (h *EnrollmentHandler) GetEnrollment(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseTableQuery(w, r, chi.URLParam(r, "year"))
	if !ok {
		return
	}

	key := fmt.Sprintf("enrollment:%d:%t", q.Years[0], q.Tidy)
	v, err := h.do(r.Context(), key, func(ctx context.Context) (interface{}, error) {
		return h.service.FetchEnrollment(ctx, q.Years[0], q.Tidy)
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.renderEnrollment(w, r, q.Format, v.(*domain.EnrollmentTable))
}

// GetEnrollmentMulti handles GET /api/enrollment?years=2023,2024
func (h *EnrollmentHandler) GetEnrollmentMulti(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseTableQuery(w, r, r.URL.Query().Get("years"))
	if !ok {
		return
	}

	key := fmt.Sprintf("enrollment:%s:%t", joinInts(q.Years), q.Tidy)
	v, err := h.do(r.Context(), key, func(ctx context.Context) (interface{}, error) {
		return h.service.FetchEnrollmentMulti(ctx, q.Years, q.Tidy)
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.renderEnrollment(w, r, q.Format, v.(*domain.EnrollmentTable))
}

// GetBands handles GET /api/enrollment/{year}/bands
func (h *EnrollmentHandler) GetBands(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseTableQuery(w, r, chi.URLParam(r, "year"))
	if !ok {
		return
	}

	key := fmt.Sprintf("enrollment:%d:true", q.Years[0])
	v, err := h.do(r.Context(), key, func(ctx context.Context) (interface{}, error) {
		return h.service.FetchEnrollment(ctx, q.Years[0], true)
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	bands := h.service.GradeBandAggregates(v.(*domain.EnrollmentTable).Tidy)
	h.renderEnrollment(w, r, q.Format, &domain.EnrollmentTable{Shape: domain.ShapeTidy, Tidy: bands})
}

// GetDirectory handles GET /api/directory
func (h *EnrollmentHandler) GetDirectory(w http.ResponseWriter, r *http.Request) {
	q := api.DirectoryQuery{Format: r.URL.Query().Get("format")}
	tidy, ok := h.parseBool(w, r, "tidy")
	if !ok {
		return
	}
	q.Tidy = tidy
	if !h.validator.Check(w, r, &q) {
		return
	}

	key := fmt.Sprintf("directory:%t", q.Tidy)
	v, err := h.do(r.Context(), key, func(ctx context.Context) (interface{}, error) {
		return h.service.FetchDirectory(ctx, q.Tidy)
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	table := v.(*domain.DirectoryTable)
	if q.Format == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		if err := exporter.NewDirectoryExporter(nil, h.logger).ExportTo(w, table); err != nil {
			h.logger.ErrorContext(r.Context(), "csv write failed", slog.String("error", err.Error()))
		}
		return
	}

	var data interface{} = table.Records
	if table.Shape != domain.ShapeTidy {
		data = table.Raw
	}
	render.JSON(w, r, api.TableResponse{Shape: table.Shape, Count: table.Len(), Data: data})
}

// GetCacheStatus handles GET /api/cache
func (h *EnrollmentHandler) GetCacheStatus(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.CacheStatus(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	resp := api.CacheStatusResponse{Count: len(entries), Entries: make([]api.CacheEntry, len(entries))}
	for i, e := range entries {
		resp.Entries[i] = api.CacheEntry{
			Key:        e.Key.String(),
			Kind:       e.Kind,
			EndYear:    e.EndYear,
			Size:       e.Size,
			StoredAt:   e.StoredAt,
			AgeSeconds: e.AgeSeconds,
			Fresh:      e.Fresh,
		}
	}
	render.JSON(w, r, resp)
}

// ClearCache handles DELETE /api/cache
func (h *EnrollmentHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.run.Lock()
	n, err := h.service.ClearCache(r.Context())
	h.run.Unlock()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "cache cleared", slog.Int("removed", n))
	render.JSON(w, r, api.RemovedResponse{Removed: n})
}

// InvalidateCache handles DELETE /api/cache/{kind}/{year}
func (h *EnrollmentHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	year, err := cast.ToIntE(chi.URLParam(r, "year"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("year", "year must be an integer"))
		return
	}
	req := api.InvalidateRequest{Kind: chi.URLParam(r, "kind"), Year: year}
	if !h.validator.Check(w, r, &req) {
		return
	}

	h.run.Lock()
	n, err := h.service.InvalidateCache(r.Context(), domain.DatasetKind(req.Kind), req.Year)
	h.run.Unlock()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.RemovedResponse{Removed: n})
}

// PruneCache handles POST /api/cache/prune
func (h *EnrollmentHandler) PruneCache(w http.ResponseWriter, r *http.Request) {
	h.run.Lock()
	n, err := h.service.PruneCache(r.Context())
	h.run.Unlock()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.RemovedResponse{Removed: n})
}

// do runs fn once per key among concurrent callers, one pipeline at a time.
// The run is detached from the caller that started it and bounded by
// runTimeout instead, so a disconnecting client does not fail the others.
func (h *EnrollmentHandler) do(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	ch := h.group.DoChan(key, func() (interface{}, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.runTimeout)
		defer cancel()

		h.run.Lock()
		defer h.run.Unlock()
		return fn(runCtx)
	})

	select {
	case res := <-ch:
		if res.Shared {
			h.logger.DebugContext(ctx, "request collapsed", slog.String("key", key))
		}
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *EnrollmentHandler) renderEnrollment(w http.ResponseWriter, r *http.Request, format string, table *domain.EnrollmentTable) {
	if format == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		if err := exporter.NewEnrollmentExporter(nil, h.logger).ExportTo(w, table); err != nil {
			h.logger.ErrorContext(r.Context(), "csv write failed", slog.String("error", err.Error()))
		}
		return
	}

	var data interface{} = table.Wide
	if table.Shape == domain.ShapeTidy {
		data = table.Tidy
	}
	render.JSON(w, r, api.TableResponse{Shape: table.Shape, Count: table.Len(), Data: data})
}

// parseTableQuery reads years from raw (one year or a comma list) plus the
// tidy and format parameters. Range checks are left to the service so an
// out-of-range year reports as an invalid year.
func (h *EnrollmentHandler) parseTableQuery(w http.ResponseWriter, r *http.Request, raw string) (api.TableQuery, bool) {
	q := api.TableQuery{Format: r.URL.Query().Get("format")}

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		year, err := cast.ToIntE(part)
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("years", fmt.Sprintf("%q is not a year", part)))
			return q, false
		}
		q.Years = append(q.Years, year)
	}

	tidy, ok := h.parseBool(w, r, "tidy")
	if !ok {
		return q, false
	}
	q.Tidy = tidy

	return q, h.validator.Check(w, r, &q)
}

func (h *EnrollmentHandler) parseBool(w http.ResponseWriter, r *http.Request, param string) (bool, bool) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return false, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation(param, param+" must be true or false"))
		return false, false
	}
	return v, true
}

func joinInts(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
