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
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/pastename/internal/api"
	"github.com/starford/pastename/internal/journal"
	"github.com/starford/pastename/internal/mcpserver"
	"github.com/starford/pastename/internal/models"
	"github.com/starford/pastename/internal/naming"
	"github.com/starford/pastename/internal/notify"
	"github.com/starford/pastename/internal/paste"
	"github.com/starford/pastename/internal/renamer"
	"github.com/starford/pastename/internal/settings"
	"github.com/starford/pastename/internal/sse"
	"github.com/starford/pastename/internal/storage"
	"github.com/starford/pastename/internal/watcher"
	"github.com/starford/pastename/internal/workspace"
)

// services is the wired rename stack shared by every entry point.
type services struct {
	store     *storage.FS
	settings  *settings.Store
	workspace *workspace.Service
	journal   *journal.DB
	renamer   *renamer.Service
	paste     *paste.Saver
}

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev", logOutput: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func (a *application) logger() *slog.Logger {
	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// build opens storage, settings and the journal and wires the rename
// pipeline. Notices go to the log, the journal and any extra notifiers.
func (a *application) build(ctx context.Context, logger *slog.Logger, extra ...notify.Notifier) (*services, error) {
	cfg := a.config

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	// Initialize storage.
	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	st, err := settings.Open(cfg.Settings.Path)
	if err != nil {
		return nil, fmt.Errorf("init settings: %w", err)
	}

	// Initialize SQLite journal.
	db, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return nil, fmt.Errorf("init journal: %w", err)
	}
	if cfg.Journal.Keep > 0 {
		if n, pruneErr := db.Prune(ctx, cfg.Journal.Keep); pruneErr != nil {
			logger.Warn("journal prune failed", slog.String("error", pruneErr.Error()))
		} else if n > 0 {
			logger.Info("journal pruned", slog.Int64("removed", n))
		}
	}

	notifiers := notify.Fanout{notify.Log(logger), notify.Journal(db, logger)}
	notifiers = append(notifiers, extra...)

	ws := workspace.NewService(store)
	links := workspace.NewLinkStyleResolver(store, cfg.Link.Style, cfg.Link.AppConfig, logger)
	svc := renamer.New(ws, store, st, links, notifiers, renamer.WithLogger(logger))

	return &services{
		store:     store,
		settings:  st,
		workspace: ws,
		journal:   db,
		renamer:   svc,
		paste: paste.NewSaver(store, cfg.Attachments.Dir,
			paste.WithEditor(ws, links),
			paste.WithLogger(logger)),
	}, nil
}

// watch runs the vault watcher, feeding created files to the renamer.
func (s *services) watch(ctx context.Context, logger *slog.Logger) error {
	return watcher.Watch(ctx, s.store.Root(), logger, func(ctx context.Context, file models.ObservedFile) {
		s.renamer.Handle(ctx, file)
	})
}

// Run starts the watcher and HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("settings_path", cfg.Settings.Path),
		slog.String("journal_path", cfg.Journal.Path),
		slog.String("link_style", cfg.Link.Style),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(15 * time.Second)
	defer broker.Close()

	svcs, err := app.build(ctx, logger, broker)
	if err != nil {
		return err
	}
	defer svcs.journal.Close()

	// Build API router.
	apiRouter := api.NewRouter(api.Deps{
		Settings:  svcs.settings,
		Workspace: svcs.workspace,
		Renamer:   svcs.renamer,
		Journal:   svcs.journal,
		Paste:     svcs.paste,
	}, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		if _, err := svcs.journal.Recent(req.Context(), 1, ""); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"journal unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start vault watcher; renames are reported through the broker.
	g.Go(func() error {
		return svcs.watch(gCtx, logger)
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

// errShutdown cancels the group once a shutdown was requested, so the
// watcher stops along with the HTTP server.
var errShutdown = errors.New("shutdown requested")

// RunMCP serves the MCP tools on stdio while the watcher runs. Logs go to
// the configured log output, which must not be stdout.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	if app.logOutput == os.Stdout {
		app.logOutput = os.Stderr
	}
	logger := app.logger()

	svcs, err := app.build(ctx, logger)
	if err != nil {
		return err
	}
	defer svcs.journal.Close()

	srv := mcpserver.New(mcpserver.Deps{
		Settings:  svcs.settings,
		Workspace: svcs.workspace,
		Renamer:   svcs.renamer,
		Journal:   svcs.journal,
		Paste:     svcs.paste,
	}, app.version)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svcs.watch(gCtx, logger)
	})

	g.Go(func() error {
		// ServeStdio returns when stdin closes or on SIGINT/SIGTERM.
		defer cancel()
		logger.Info("MCP server starting on stdio", slog.String("version", app.version))
		return srv.ServeStdio()
	})

	return g.Wait()
}

// Preview renders the name a pasted image would get without touching the
// vault. An empty tmpl uses the saved template.
func Preview(opts []Option, tmpl, fileName, imageNameKey, ext string, now time.Time) (string, error) {
	app, err := newApplication(opts)
	if err != nil {
		return "", err
	}
	if tmpl == "" {
		st, err := settings.Open(app.config.Settings.Path)
		if err != nil {
			return "", err
		}
		tmpl = st.Template()
	}
	if err := naming.ValidateTemplate(tmpl); err != nil {
		return "", err
	}
	name := naming.Generate(tmpl, naming.Context{
		Now:          now,
		FileName:     fileName,
		ImageNameKey: imageNameKey,
	}, strings.TrimPrefix(ext, "."))
	if err := naming.ValidateName(name); err != nil {
		return "", err
	}
	return name, nil
}
