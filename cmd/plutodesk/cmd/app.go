package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/plutodesk/plutodesk/internal/adapter/outbound/memory"
	"github.com/plutodesk/plutodesk/internal/adapter/outbound/screenshots"
	"github.com/plutodesk/plutodesk/internal/adapter/outbound/sqlite"
	"github.com/plutodesk/plutodesk/internal/adapter/outbound/state"
	"github.com/plutodesk/plutodesk/internal/config"
	"github.com/plutodesk/plutodesk/internal/domain/catalog"
	"github.com/plutodesk/plutodesk/internal/domain/session"
	"github.com/plutodesk/plutodesk/internal/port/outbound"
	"github.com/plutodesk/plutodesk/internal/service"
)

// app holds the services shared by serve and the one-shot commands.
type app struct {
	cfg      *config.AppConfig
	logger   *slog.Logger
	files    *state.FileSessionStore // nil when ephemeral
	sessions *service.SessionService
	capture  *service.CaptureService
	closers  []func() error
}

type appOptions struct {
	// ephemeral keeps sessions and the catalog in memory only.
	ephemeral bool
	registry  prometheus.Registerer
	events    outbound.EventEmitter
}

// openApp wires the persistence adapters and services for cfg.
func openApp(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	var metrics *service.Metrics
	if opts.registry != nil {
		metrics = service.NewMetrics(opts.registry)
	}

	var repo session.Repository
	var cat catalog.Catalog
	if opts.ephemeral {
		repo = memory.NewSessionRepository()
		cat = memory.NewCatalog()
	} else {
		a.files = state.NewFileSessionStore(cfg.Sessions.File, logger)
		repo = a.files
		db, err := sqlite.Open(ctx, cfg.Database.Path, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		cat = db
	}

	svcOpts := []service.SessionServiceOption{service.WithMetrics(metrics)}
	if opts.events != nil {
		svcOpts = append(svcOpts, service.WithEventEmitter(opts.events))
	}
	store := service.OpenSessionStore(repo, logger)
	a.sessions = service.NewSessionService(store, repo, cat, logger, svcOpts...)

	images := screenshots.NewFileStore(cfg.Screenshots.Dir, logger)
	a.capture = service.NewCaptureService(a.sessions, cat, images, opts.events, metrics, logger)
	return a, nil
}

// Close releases the database.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// loadConfig loads and validates the configuration for one-shot commands.
func loadConfig() (*config.AppConfig, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger from the server settings.
// DevMode always forces debug.
func newLogger(cfg *config.AppConfig, w io.Writer) *slog.Logger {
	level := parseLogLevel(cfg.Server.LogLevel)
	if cfg.DevMode {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Server.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// cliLogger is used by one-shot commands: only warnings and errors reach
// stderr so command output stays readable.
func cliLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
