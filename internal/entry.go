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

	"github.com/starford/nspace/internal/api"
	"github.com/starford/nspace/internal/mcpserver"
	"github.com/starford/nspace/internal/property"
	"github.com/starford/nspace/internal/records"
	"github.com/starford/nspace/internal/sse"
	"github.com/starford/nspace/internal/storage"
)

// runtime holds the components shared by every command.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	store  *storage.FS
	db     *records.DB
	svc    *property.Service
}

func newApplication(opts []Option) (*application, error) {
	app := &application{out: os.Stdout, logOut: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// open builds the logger, ledger storage and record store, then brings the
// store up to date with the ledger.
func (a *application) open(ctx context.Context) (*runtime, error) {
	cfg := a.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(a.logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("ledger_path", cfg.Ledger.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("timezone", cfg.App.Timezone),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure ledger directory exists.
	if err := os.MkdirAll(cfg.Ledger.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Ledger.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := records.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init records: %w", err)
	}

	rep, err := records.Sync(ctx, db, store, logger)
	if err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	} else {
		logger.Info("Ledger synced",
			slog.Int("imported", rep.Imported),
			slog.Int("unchanged", rep.Unchanged),
			slog.Int("removed", rep.Removed),
			slog.Int("failed", rep.Failed))
	}

	svc := property.NewService(db,
		property.SystemClock{Location: cfg.App.Location()},
		logger,
		property.Options{RentInvoiceType: cfg.Rent.InvoiceType},
	)

	return &runtime{cfg: cfg, logger: logger, store: store, db: db, svc: svc}, nil
}

func (rt *runtime) close() {
	if err := rt.db.Close(); err != nil {
		rt.logger.Warn("close records", slog.String("error", err.Error()))
	}
}

func (rt *runtime) watch(ctx context.Context, cb records.EventCallback) error {
	if !rt.cfg.Ledger.Watch {
		return nil
	}
	if err := records.Watch(ctx, rt.db, rt.store, rt.store.Root(), rt.logger, cb); err != nil {
		// A broken watcher leaves the last synced state in place.
		rt.logger.Error("watcher stopped", slog.String("error", err.Error()))
	}
	return nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := app.open(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	cfg, logger := rt.cfg, rt.logger

	// SSE broker.
	broker := sse.NewBroker(cfg.SSE.Throttle)
	defer broker.Close()

	apiRouter := api.NewRouter(rt.svc, rt.db, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := rt.db.Counts(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start ledger watcher with SSE callback.
	g.Go(func() error {
		return rt.watch(gCtx, broker.PublishLedgerChange)
	})

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

// RunMCP serves the MCP tools over stdin/stdout until stdin closes.
func RunMCP(ctx context.Context, opts ...Option) error {
	opts = append([]Option{WithLogOutput(os.Stderr)}, opts...)
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := app.open(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = rt.watch(watchCtx, nil) }()

	rt.logger.Info("MCP server starting on stdio")
	return mcpserver.New(rt.svc, rt.store).ServeStdio()
}
