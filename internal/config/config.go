// Package config provides configuration types for PlutoDesk.
//
// Everything lives under a single data directory by default: the session
// file, the catalog database and the screenshot tree. Each location can be
// overridden individually.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// AppConfig is the top-level configuration.
type AppConfig struct {
	// DataDir holds the default locations of every persisted file.
	// Defaults to <user config dir>/plutodesk.
	DataDir string `yaml:"data_dir" mapstructure:"data_dir" validate:"required"`

	// Server configures the localhost API.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Database configures the catalog database.
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`

	// Sessions configures the session state file.
	Sessions SessionsConfig `yaml:"sessions" mapstructure:"sessions"`

	// Screenshots configures where captured images are written.
	Screenshots ScreenshotsConfig `yaml:"screenshots" mapstructure:"screenshots"`

	// Tracing configures OpenTelemetry span export.
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`

	// DevMode enables debug logging and tracing to stderr.
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// ServerConfig configures the localhost API.
type ServerConfig struct {
	// HTTPAddr must be a loopback host:port. Defaults to "127.0.0.1:7421".
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr"`

	// LogLevel sets the minimum log level.
	// Valid values: "debug", "info", "warn", "error". DevMode=true overrides to "debug".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// LogFormat selects "text" (default) or "json" log lines.
	LogFormat string `yaml:"log_format" mapstructure:"log_format" validate:"omitempty,oneof=text json"`

	// AllowedOrigins lists browser origins accepted by the API, typically
	// the UI shell's webview origin.
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// DatabaseConfig configures the SQLite catalog.
type DatabaseConfig struct {
	// Path of the SQLite file. Defaults to <data_dir>/plutodesk.db.
	Path string `yaml:"path" mapstructure:"path" validate:"required"`
}

// SessionsConfig configures the session state file.
type SessionsConfig struct {
	// File is the JSON session file. Defaults to <data_dir>/sessions.json.
	File string `yaml:"file" mapstructure:"file" validate:"required"`

	// Watch reloads sessions when another process rewrites the file.
	// Default: true.
	Watch bool `yaml:"watch" mapstructure:"watch"`

	// WatchDebounce coalesces bursts of file events (e.g., "250ms").
	WatchDebounce string `yaml:"watch_debounce" mapstructure:"watch_debounce" validate:"omitempty,duration"`
}

// WatchDebounceDuration parses WatchDebounce. Call after Validate.
func (c SessionsConfig) WatchDebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.WatchDebounce)
	if err != nil {
		return defaultWatchDebounce
	}
	return d
}

// ScreenshotsConfig configures screenshot storage.
type ScreenshotsConfig struct {
	// Dir is the root of the folder/course/set image tree.
	// Defaults to <data_dir>/screenshots.
	Dir string `yaml:"dir" mapstructure:"dir" validate:"required"`

	// MaxUploadMB caps a single uploaded image. Default: 20.
	MaxUploadMB int `yaml:"max_upload_mb" mapstructure:"max_upload_mb" validate:"min=1,max=512"`
}

// MaxUploadBytes returns MaxUploadMB in bytes.
func (c ScreenshotsConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	// Enabled installs a tracer provider. Default: false.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Output is "stderr", "stdout" or "file://<absolute-path>".
	Output string `yaml:"output" mapstructure:"output" validate:"omitempty,trace_output"`
}

const (
	defaultHTTPAddr      = "127.0.0.1:7421"
	defaultWatchDebounce = 250 * time.Millisecond
	defaultMaxUploadMB   = 20
)

// SetDefaults applies default values to unset scalar fields.
// Path defaults depend on DataDir and are applied by ResolvePaths.
func (c *AppConfig) SetDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = defaultHTTPAddr
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.LogFormat == "" {
		c.Server.LogFormat = "text"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"tauri://localhost", "http://tauri.localhost"}
	}

	// viper.IsSet distinguishes "not set" from "explicitly false".
	if !viper.IsSet("sessions.watch") {
		c.Sessions.Watch = true
	}
	if c.Sessions.WatchDebounce == "" {
		c.Sessions.WatchDebounce = defaultWatchDebounce.String()
	}

	if c.Screenshots.MaxUploadMB == 0 {
		c.Screenshots.MaxUploadMB = defaultMaxUploadMB
	}
	if c.Tracing.Output == "" {
		c.Tracing.Output = "stderr"
	}
}

// ResolvePaths fills DataDir and every location derived from it.
// Returns ErrNoDataDir when no data directory can be determined.
func (c *AppConfig) ResolvePaths() error {
	dir, err := ResolveDataDir(c.DataDir)
	if err != nil {
		return err
	}
	c.DataDir = dir

	if c.Database.Path == "" {
		c.Database.Path = filepath.Join(dir, "plutodesk.db")
	}
	if c.Sessions.File == "" {
		c.Sessions.File = filepath.Join(dir, "sessions.json")
	}
	if c.Screenshots.Dir == "" {
		c.Screenshots.Dir = filepath.Join(dir, "screenshots")
	}
	return nil
}

// SetDevDefaults applies development overrides. Applied after SetDefaults.
func (c *AppConfig) SetDevDefaults() {
	if !c.DevMode {
		return
	}
	c.Server.LogLevel = "debug"
	if !viper.IsSet("tracing.enabled") {
		c.Tracing.Enabled = true
	}
}

// PIDFile returns the path of the running server's pid file.
func (c *AppConfig) PIDFile() string {
	return filepath.Join(c.DataDir, "plutodesk.pid")
}

// String summarizes the resolved locations for startup logs.
func (c *AppConfig) String() string {
	return fmt.Sprintf("data_dir=%s sessions=%s database=%s screenshots=%s",
		c.DataDir, c.Sessions.File, c.Database.Path, c.Screenshots.Dir)
}
