package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/plutodesk/plutodesk/internal/adapter/inbound/api"
	"github.com/plutodesk/plutodesk/internal/adapter/inbound/hotkey"
	"github.com/plutodesk/plutodesk/internal/adapter/inbound/tray"
	"github.com/plutodesk/plutodesk/internal/adapter/outbound/desktop"
	"github.com/plutodesk/plutodesk/internal/adapter/outbound/state"
	"github.com/plutodesk/plutodesk/internal/config"
	"github.com/plutodesk/plutodesk/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"start"},
	Short:   "Start the local API server",
	Long: `Start the PlutoDesk server on a loopback address.

The desktop UI talks to it over HTTP: session commands, screenshot uploads,
tray and hotkey forwarding, and a Server-Sent Events stream for UI events.
Sessions are saved to the sessions file after every change, and the file is
reloaded when another process (such as "plutodesk sessions") rewrites it.

Examples:
  # Start with config file settings
  plutodesk serve

  # Debug logging and tracing to stderr
  plutodesk serve --dev

  # Keep everything in memory (nothing is written to disk)
  plutodesk serve --ephemeral`,
	RunE: runServe,
}

var (
	devMode   bool
	ephemeral bool
)

func init() {
	serveCmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (debug logging, tracing)")
	serveCmd.Flags().BoolVar(&ephemeral, "ephemeral", false, "Keep sessions and the catalog in memory only")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load without validation so the --dev flag applies first.
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if devMode {
		cfg.DevMode = true
	}
	cfg.SetDevDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// stop() restores default signal handling so a second Ctrl+C kills hard.
	ctx, stop := signal.NotifyContext(context.Background(), gracefulSignals()...)
	defer stop()
	go func() {
		<-ctx.Done()
		stop()
	}()

	logger := newLogger(cfg, os.Stderr)
	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}
	logger.Debug("resolved locations", "paths", cfg.String())

	pidPath := cfg.PIDFile()
	if err := writePIDFile(pidPath); err != nil {
		logger.Warn("failed to write PID file", "path", pidPath, "error", err)
	} else {
		defer os.Remove(pidPath)
	}

	if err := serve(ctx, cfg, ephemeral, logger); err != nil {
		return err
	}
	logger.Info("plutodesk stopped")
	return nil
}

// serve runs the server until ctx is cancelled or the tray's quit item is used.
func serve(ctx context.Context, cfg *config.AppConfig, inMemory bool, logger *slog.Logger) error {
	tp, err := telemetry.Setup(telemetry.Config{
		Enabled:        cfg.Tracing.Enabled,
		Output:         cfg.Tracing.Output,
		ServiceVersion: Version,
	})
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	broker := desktop.NewBroker(logger)
	a, err := openApp(ctx, cfg, logger, appOptions{
		ephemeral: inMemory,
		registry:  registry,
		events:    broker,
	})
	if err != nil {
		return fmt.Errorf("failed to open data stores: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("failed to close data stores", "error", err)
		}
	}()

	if a.files != nil && cfg.Sessions.Watch {
		w, err := startSessionWatcher(ctx, a, cfg.Sessions.WatchDebounceDuration(), logger)
		if err != nil {
			// The server still works; external edits just need a restart.
			logger.Warn("sessions file watcher disabled", "error", err)
		} else {
			defer w.Stop()
		}
	}

	notifier := desktop.NewLogNotifier(broker, logger)
	windows := desktop.NewHeadlessWindows(broker)
	menu := tray.NewMenu(a.sessions, notifier, broker, windows, func() {
		logger.Info("quit requested from tray")
		cancel()
	}, logger)
	shortcut := hotkey.NewHandler(a.sessions, notifier, broker, windows, logger)

	handler := api.NewHandler(a.sessions,
		api.WithScreenshotSaver(a.capture),
		api.WithTray(menu),
		api.WithHotkey(shortcut),
		api.WithEventSource(broker),
		api.WithMaxUploadBytes(cfg.Screenshots.MaxUploadBytes()),
		api.WithLogger(logger),
	)
	server := api.NewServer(handler,
		api.WithAddr(cfg.Server.HTTPAddr),
		api.WithAllowedOrigins(cfg.Server.AllowedOrigins),
		api.WithRegistry(registry),
		api.WithHealthChecker(api.NewHealthChecker(a.sessions, broker, Version)),
		api.WithServerLogger(logger),
	)

	logger.Info("plutodesk ready",
		"addr", cfg.Server.HTTPAddr,
		"sessions", a.sessions.Count(),
		"ephemeral", inMemory,
	)
	return server.Start(ctx)
}

// startSessionWatcher reloads sessions when another process rewrites the
// sessions file. Events caused by this process's own saves are skipped
// because the content hash has not changed.
func startSessionWatcher(ctx context.Context, a *app, debounce time.Duration, logger *slog.Logger) (*state.Watcher, error) {
	w, err := state.NewWatcher(a.files.Path(), debounce, func() {
		if !a.files.Modified() {
			return
		}
		// Reload logs its own failures and keeps the current sessions.
		_ = a.sessions.Reload(ctx)
	}, logger)
	if err != nil {
		return nil, err
	}
	w.Start(ctx)
	return w, nil
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644)
}
