// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/erland/pwa-whiteboard-sub000/internal/api"
	"github.com/erland/pwa-whiteboard-sub000/internal/board"
	"github.com/erland/pwa-whiteboard-sub000/internal/boardservice"
	"github.com/erland/pwa-whiteboard-sub000/internal/export"
	"github.com/erland/pwa-whiteboard-sub000/internal/index"
	"github.com/erland/pwa-whiteboard-sub000/internal/mcpserver"
	"github.com/erland/pwa-whiteboard-sub000/internal/persist"
	"github.com/erland/pwa-whiteboard-sub000/internal/sse"
	"github.com/erland/pwa-whiteboard-sub000/internal/storage"
)

var errConfigRequired = errors.New("config is required")

// stack is the storage, index and board service shared by every command.
type stack struct {
	store *storage.FS
	db    *index.DB
	svc   *boardservice.Service
}

func (s *stack) close() {
	s.svc.Close()
	s.db.Close()
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// openStack prepares storage and the index and brings the index up to date.
func openStack(cfg *Config, logger *slog.Logger, svcOpts ...boardservice.Option) (*stack, error) {
	if err := os.MkdirAll(cfg.Storage.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Storage.Path, storage.WithMaxFileBytes(cfg.Storage.MaxBoardBytes))
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	opts := append([]boardservice.Option{
		boardservice.WithLogger(logger),
		boardservice.WithPasteOffset(cfg.Engine.PasteOffsetPx),
		boardservice.WithDefaultBoardType(board.BoardType(cfg.Engine.DefaultBoardType)),
		boardservice.WithStyle(cfg.Engine.Style),
	}, svcOpts...)
	svc := boardservice.NewService(persist.NewRepository(store, logger), db, opts...)

	return &stack{store: store, db: db, svc: svc}, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg, os.Stdout)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_path", cfg.Storage.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker(cfg.Realtime.AggregateThrottle)
	defer broker.Close()

	st, err := openStack(cfg, logger, boardservice.WithPublisher(broker))
	if err != nil {
		return err
	}
	defer st.close()

	apiRouter := api.NewRouter(st.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"status":"ok","open_boards":%d}`, st.svc.OpenCount())
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// External edits to snapshot files reach the index and SSE clients.
	g.Go(func() error {
		return index.Watch(gCtx, st.db, st.store, cfg.Storage.Path, logger, broker.PublishBoardChange)
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

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

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the board tools over stdio. Logs go to stderr since stdout
// carries the protocol.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config, os.Stderr)

	st, err := openStack(app.config, logger)
	if err != nil {
		return err
	}
	defer st.close()

	logger.Info("Starting MCP server", slog.String("storage_path", app.config.Storage.Path))
	return mcpserver.New(st.svc, app.version).ServeStdio()
}

// Export renders one board to w.
func Export(ctx context.Context, boardID, format string, w io.Writer, eo export.Options, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config, os.Stderr)

	st, err := openStack(app.config, logger)
	if err != nil {
		return err
	}
	defer st.close()

	return st.svc.Export(ctx, boardID, format, w, eo)
}
