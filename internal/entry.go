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

	"github.com/StevenGann/ObsidianDB/internal/api"
	"github.com/StevenGann/ObsidianDB/internal/index"
	"github.com/StevenGann/ObsidianDB/internal/mcpserver"
	"github.com/StevenGann/ObsidianDB/internal/sse"
	"github.com/StevenGann/ObsidianDB/internal/storage"
	"github.com/StevenGann/ObsidianDB/internal/vault"
)

// openVault builds the storage provider, optional search index, and registry
// for the configured vault, and runs the initial scan.
func openVault(cfg *Config, logger *slog.Logger) (*vault.Vault, *index.DB, error) {
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path, cfg.Vault.Extension)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}

	var idx *index.DB
	if cfg.Index.Enabled() {
		idx, err = index.Open(cfg.Index.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("init index: %w", err)
		}
	}

	var searchIndex vault.SearchIndex
	if idx != nil {
		searchIndex = idx
	}
	v := vault.New(store, logger, searchIndex)

	if err := v.ScanNotes(); err != nil {
		logger.Warn("initial scan failed", slog.String("error", err.Error()))
	}
	return v, idx, nil
}

func newLogger(cfg *Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := newLogger(cfg)
	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("index_path", cfg.Index.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	v, idx, err := openVault(cfg, logger)
	if err != nil {
		return err
	}
	if idx != nil {
		defer idx.Close()
	}

	// SSE broker re-broadcasts sync events to HTTP clients.
	broker := sse.NewBroker()
	defer broker.Close()

	manager := vault.NewManager(v, logger, func(kind, noteID, path string) {
		broker.PublishNoteEvent(kind, noteID, path)
	})

	apiRouter := api.NewRouter(v, idx, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// File watcher and operation queue.
	g.Go(func() error {
		if err := manager.Start(gCtx); err != nil {
			logger.Error("sync manager error", slog.String("error", err.Error()))
		}
		return nil
	})

	// Fixed-interval tick: keep the consumer alive and drain callbacks.
	g.Go(func() error {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				manager.Tick()
				v.Callbacks().Tick()
			}
		}
	})

	// HTTP server.
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
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the vault over MCP stdio. Logs go to stderr so stdout stays
// clean for the protocol.
func RunMCP(ctx context.Context, cfg *Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))

	v, idx, err := openVault(cfg, logger)
	if err != nil {
		return err
	}
	if idx != nil {
		defer idx.Close()
	}

	return mcpserver.New(v, idx).ServeStdio()
}

// RunDump writes the vault's JSON export to w.
func RunDump(cfg *Config, w io.Writer) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	v, idx, err := openVault(cfg, logger)
	if err != nil {
		return err
	}
	if idx != nil {
		defer idx.Close()
	}

	data, err := v.DumpJSON()
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
