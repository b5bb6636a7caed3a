// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/recruitflow/internal/api"
	"github.com/starford/recruitflow/internal/intake"
	"github.com/starford/recruitflow/internal/mcpserver"
	"github.com/starford/recruitflow/internal/metrics"
	"github.com/starford/recruitflow/internal/schedule"
	"github.com/starford/recruitflow/internal/sse"
	"github.com/starford/recruitflow/internal/storage"
	"github.com/starford/recruitflow/internal/store"
	"github.com/starford/recruitflow/internal/workflow"
)

// runtime is the set of components shared by every command.
type runtime struct {
	cfg     *Config
	logger  *slog.Logger
	db      *store.DB
	docs    *storage.FS
	engine  *workflow.Engine
	metrics *metrics.Manager
	version string
}

func (rt *runtime) Close() error {
	return rt.db.Close()
}

// bootstrap builds the logger, store, document root and engine.
func bootstrap(ctx context.Context, opts []Option, engineOpts ...workflow.Option) (*runtime, error) {
	app := &application{logOutput: os.Stdout, version: "dev"}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("version", app.version),
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_driver", cfg.Store.Driver),
		slog.String("documents_path", cfg.Documents.Path),
		slog.String("timezone", cfg.Schedule.Timezone),
		slog.String("log_level", cfg.App.LogLevel.String()))

	docs, err := storage.NewFS(cfg.Documents.Path)
	if err != nil {
		return nil, fmt.Errorf("init documents: %w", err)
	}

	db, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	rt := &runtime{cfg: cfg, logger: logger, db: db, docs: docs, version: app.version}

	var clock schedule.Clock = schedule.SystemClock{}
	if app.clock != nil {
		clock = app.clock
	}
	base := []workflow.Option{
		workflow.WithClock(clock),
		workflow.WithLocation(cfg.Schedule.Location()),
		workflow.WithDocuments(docs),
		workflow.WithLogger(logger),
	}
	if cfg.Metrics.Enabled {
		rt.metrics = metrics.NewManager()
		base = append(base, workflow.WithMetrics(rt.metrics))
	}
	rt.engine = workflow.New(db, append(base, engineOpts...)...)
	return rt, nil
}

func (rt *runtime) importer() *intake.Importer {
	return intake.NewImporter(rt.engine, rt.docs, rt.cfg.Intake.Dir, rt.logger)
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	// SSE broker, wired into the engine before it is built.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	rt, err := bootstrap(ctx, opts, workflow.WithNotifier(broker))
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg := rt.cfg
	logger := rt.logger

	// Run initial intake sync.
	var im *intake.Importer
	if cfg.Intake.Enabled {
		im = rt.importer()
		if _, err := im.Sync(ctx); err != nil {
			logger.Warn("initial intake sync failed", slog.String("error", err.Error()))
		}
	}

	apiRouter := api.NewRouter(rt.engine, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if rt.metrics != nil {
		r.Use(rt.metrics.Middleware)
		rt.metrics.RegisterGauge("sse", "clients", "Connected SSE clients.", func() float64 {
			return float64(broker.ClientCount())
		})
		rt.metrics.RegisterGauge("sse", "dropped_messages", "Messages discarded for slow SSE clients.", func() float64 {
			return float64(broker.Dropped())
		})
		r.Handle(cfg.Metrics.Path, rt.metrics.Handler())
	}

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		pingCtx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := rt.db.Ping(pingCtx); err != nil {
			logger.Warn("readiness check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api (includes /api/events).
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the intake folder.
	if im != nil && cfg.Intake.Watch {
		absDir, err := rt.docs.Abs(cfg.Intake.Dir)
		if err != nil {
			return fmt.Errorf("resolve intake dir: %w", err)
		}
		g.Go(func() error {
			if err := intake.Watch(gCtx, im, absDir, intake.DefaultDebounce); err != nil {
				logger.Error("intake watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Close SSE streams first so Shutdown does not wait on them.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group context so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout.
func RunMCP(ctx context.Context, opts ...Option) error {
	rt, err := bootstrap(ctx, append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.logger.Info("Starting MCP server on stdio")
	return mcpserver.New(rt.engine, rt.version).ServeStdio()
}

// RunImport runs one intake pass and returns its report.
func RunImport(ctx context.Context, opts ...Option) (intake.Report, error) {
	rt, err := bootstrap(ctx, opts)
	if err != nil {
		return intake.Report{}, err
	}
	defer rt.Close()

	return rt.importer().Sync(ctx)
}
