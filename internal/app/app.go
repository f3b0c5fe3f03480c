package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/robfig/cron/v3"

	"github.com/almartin82/vtschooldata/internal/cache"
	"github.com/almartin82/vtschooldata/internal/config"
	apperrors "github.com/almartin82/vtschooldata/internal/errors"
	"github.com/almartin82/vtschooldata/internal/infrastructure"
	customMiddleware "github.com/almartin82/vtschooldata/internal/middleware"
	"github.com/almartin82/vtschooldata/internal/services"
	"github.com/almartin82/vtschooldata/internal/source"
	handlers "github.com/almartin82/vtschooldata/internal/transport/http"
)

// Application wires configuration, telemetry, the cache and the services.
// The CLI uses it directly; Start adds the HTTP server and the prune
// schedule on top.
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.PipelineMetrics
	Cache         *cache.Cache
	Enrollment    *services.EnrollmentService
	Health        *services.HealthService
	Router        *chi.Mux
	Server        *http.Server
	Scheduler     *cron.Cron
}

// New builds the application from cfg. The fetcher may be nil, in which
// case the HTTP fetcher for cfg.Source is used.
func New(cfg *config.Config, logger *slog.Logger, fetcher services.SourceFetcher) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.NewPipelineMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	c, err := cache.Open(cfg.Cache, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	if fetcher == nil {
		fetcher = source.NewHTTPFetcher(cfg.Source, c, logger, metrics)
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: providers,
		Metrics:       metrics,
		Cache:         c,
		Enrollment:    services.NewEnrollmentService(fetcher, c, logger, metrics),
		Health:        services.NewHealthService(config.AppVersion, c, logger),
	}

	logger.Info("Application initialized",
		slog.String("version", config.AppVersion),
		slog.String("cache_driver", string(c.Driver())))

	return a, nil
}

// Handler returns the HTTP router, building it on first use.
func (a *Application) Handler() http.Handler {
	if a.Router == nil {
		a.setupRouter()
	}
	return a.Router
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	errorHandler := apperrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)

	// RequestID → RealIP → OTel → Logger → Recoverer
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.NewOTelMiddleware(a.Metrics).Handler)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Logger))
	r.Use(customMiddleware.SecurityHeaders)

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Compress(5))

		if a.Config.Server.RateLimitRPS > 0 {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Server.RateLimitRPS,
				a.Config.Server.RateLimitBurst,
				a.Logger,
			).Handler)
		}

		healthHandler := handlers.NewHealthHandler(a.Health, a.Logger)
		r.Get("/health", healthHandler.HealthCheck)

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))
			handlers.NewEnrollmentHandler(a.Enrollment, a.Logger, errorHandler).
				WithRunTimeout(a.Config.Server.RequestTimeout).
				RegisterRoutes(r)
		})
	})

	if a.OTelProviders != nil && a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Handler(),
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// StartScheduler registers the cache prune job. An empty schedule disables it.
func (a *Application) StartScheduler(ctx context.Context) error {
	spec := a.Config.Cache.PruneSchedule
	if spec == "" {
		return nil
	}

	a.Scheduler = cron.New()
	_, err := a.Scheduler.AddFunc(spec, func() { a.pruneCache(ctx) })
	if err != nil {
		return apperrors.NewConfigError(fmt.Sprintf("invalid prune schedule %q", spec), err)
	}
	a.Scheduler.Start()

	a.Logger.InfoContext(ctx, "Cache prune scheduled", slog.String("schedule", spec))
	return nil
}

func (a *Application) pruneCache(ctx context.Context) {
	ctx = infrastructure.ContextWithTraceID(ctx)
	start := time.Now()

	n, err := a.Enrollment.PruneCache(ctx)
	if err != nil {
		a.Logger.ErrorContext(ctx, "Scheduled cache prune failed", slog.String("error", err.Error()))
		return
	}
	a.Logger.InfoContext(ctx, "Scheduled cache prune completed",
		slog.Int("removed", n),
		slog.Duration("elapsed", time.Since(start)))
}

// Start starts the HTTP server and the prune schedule. cancel is called
// when the server fails.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.createServer()

	if err := a.StartScheduler(ctx); err != nil {
		return err
	}

	a.Logger.InfoContext(ctx, "Starting server",
		slog.String("version", config.AppVersion),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	return nil
}

// Stop gracefully stops the server, the scheduler and the providers.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error

	if a.Scheduler != nil {
		<-a.Scheduler.Stop().Done()
	}

	if a.Server != nil {
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
		}
	}

	if err := a.Close(shutdownCtx); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Close releases the cache and flushes telemetry.
func (a *Application) Close(ctx context.Context) error {
	var errs []error

	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("cache close: %w", err))
		}
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
