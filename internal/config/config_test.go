package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestAppConfig_SetDefaults(t *testing.T) {
	t.Parallel()

	var cfg AppConfig
	cfg.SetDefaults()

	if cfg.Server.HTTPAddr != "127.0.0.1:7421" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "127.0.0.1:7421")
	}
	if cfg.Server.LogLevel != "info" || cfg.Server.LogFormat != "text" {
		t.Errorf("log = %q/%q, want info/text", cfg.Server.LogLevel, cfg.Server.LogFormat)
	}
	if !cfg.Sessions.Watch {
		t.Error("Sessions.Watch should default to true")
	}
	if got := cfg.Sessions.WatchDebounceDuration(); got != 250*time.Millisecond {
		t.Errorf("WatchDebounceDuration() = %v, want 250ms", got)
	}
	if cfg.Screenshots.MaxUploadMB != 20 {
		t.Errorf("MaxUploadMB = %d, want 20", cfg.Screenshots.MaxUploadMB)
	}
	if cfg.Screenshots.MaxUploadBytes() != 20<<20 {
		t.Errorf("MaxUploadBytes() = %d", cfg.Screenshots.MaxUploadBytes())
	}
	if cfg.Tracing.Enabled || cfg.Tracing.Output != "stderr" {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
}

func TestAppConfig_SetDefaults_PreservesExistingValues(t *testing.T) {
	t.Parallel()

	cfg := AppConfig{
		Server:      ServerConfig{HTTPAddr: "127.0.0.1:9000", LogFormat: "json", AllowedOrigins: []string{"http://localhost:5173"}},
		Sessions:    SessionsConfig{WatchDebounce: "1s"},
		Screenshots: ScreenshotsConfig{MaxUploadMB: 5},
	}
	cfg.SetDefaults()

	if cfg.Server.HTTPAddr != "127.0.0.1:9000" {
		t.Errorf("HTTPAddr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Server.LogFormat != "json" {
		t.Errorf("LogFormat = %q", cfg.Server.LogFormat)
	}
	if len(cfg.Server.AllowedOrigins) != 1 {
		t.Errorf("AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Sessions.WatchDebounceDuration() != time.Second {
		t.Errorf("WatchDebounceDuration() = %v", cfg.Sessions.WatchDebounceDuration())
	}
	if cfg.Screenshots.MaxUploadMB != 5 {
		t.Errorf("MaxUploadMB = %d", cfg.Screenshots.MaxUploadMB)
	}
}

func TestAppConfig_ResolvePaths(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := AppConfig{DataDir: dir, Screenshots: ScreenshotsConfig{Dir: "/srv/shots"}}
	if err := cfg.ResolvePaths(); err != nil {
		t.Fatalf("ResolvePaths() error = %v", err)
	}

	if cfg.Sessions.File != filepath.Join(dir, "sessions.json") {
		t.Errorf("Sessions.File = %q", cfg.Sessions.File)
	}
	if cfg.Database.Path != filepath.Join(dir, "plutodesk.db") {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Screenshots.Dir != "/srv/shots" {
		t.Errorf("Screenshots.Dir = %q, want override kept", cfg.Screenshots.Dir)
	}
	if cfg.PIDFile() != filepath.Join(dir, "plutodesk.pid") {
		t.Errorf("PIDFile() = %q", cfg.PIDFile())
	}
}

func TestAppConfig_SetDevDefaults(t *testing.T) {
	t.Parallel()

	cfg := AppConfig{DevMode: true}
	cfg.SetDefaults()
	cfg.SetDevDefaults()

	if cfg.Server.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.Server.LogLevel)
	}
	if !cfg.Tracing.Enabled {
		t.Error("Tracing.Enabled should default to true in dev mode")
	}
}

func TestResolveDataDir(t *testing.T) {
	orig := userConfigDir
	t.Cleanup(func() { userConfigDir = orig })

	userConfigDir = func() (string, error) { return "/home/student/.config", nil }
	got, err := ResolveDataDir("")
	if err != nil || got != filepath.Join("/home/student/.config", "plutodesk") {
		t.Errorf("ResolveDataDir(\"\") = %q, %v", got, err)
	}

	userConfigDir = func() (string, error) { return "", errors.New("$HOME is not defined") }
	if _, err := ResolveDataDir(""); !errors.Is(err, ErrNoDataDir) {
		t.Errorf("ResolveDataDir() error = %v, want ErrNoDataDir", err)
	}

	// An explicit directory never consults the user config dir.
	got, err = ResolveDataDir("/var/lib/plutodesk")
	if err != nil || got != "/var/lib/plutodesk" {
		t.Errorf("ResolveDataDir(explicit) = %q, %v", got, err)
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "plutodesk.yaml")
	yaml := "data_dir: " + dir + "\n" +
		"server:\n  log_format: json\n" +
		"sessions:\n  watch: false\n  watch_debounce: 500ms\n"
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PLUTODESK_SCREENSHOTS_MAX_UPLOAD_MB", "8")

	InitViper(cfgPath)
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if ConfigFileUsed() != cfgPath {
		t.Errorf("ConfigFileUsed() = %q", ConfigFileUsed())
	}
	if cfg.Server.LogFormat != "json" {
		t.Errorf("LogFormat = %q", cfg.Server.LogFormat)
	}
	if cfg.Sessions.Watch {
		t.Error("explicit sessions.watch=false overridden by default")
	}
	if cfg.Sessions.WatchDebounceDuration() != 500*time.Millisecond {
		t.Errorf("WatchDebounceDuration() = %v", cfg.Sessions.WatchDebounceDuration())
	}
	if cfg.Screenshots.MaxUploadMB != 8 {
		t.Errorf("MaxUploadMB = %d, want 8 from env", cfg.Screenshots.MaxUploadMB)
	}
	if cfg.Sessions.File != filepath.Join(dir, "sessions.json") {
		t.Errorf("Sessions.File = %q", cfg.Sessions.File)
	}
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "plutodesk.yaml")
	yaml := "data_dir: " + dir + "\nserver:\n  http_addr: 0.0.0.0:7421\n"
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	InitViper(cfgPath)
	if _, err := LoadConfig(); err == nil {
		t.Error("LoadConfig() accepted a non-loopback http_addr")
	}
}

func TestFindConfigFileInPaths_EmptyDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	if got := findConfigFileInPaths([]string{dir}); got != "" {
		t.Errorf("findConfigFileInPaths(empty dir) = %q, want empty", got)
	}
}

func TestFindConfigFileInPaths_MatchesYAML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "plutodesk.yaml")
	_ = os.WriteFile(cfgPath, []byte("server:\n  http_addr: 127.0.0.1:9090\n"), 0644)

	if got := findConfigFileInPaths([]string{dir}); got != cfgPath {
		t.Errorf("findConfigFileInPaths = %q, want %q", got, cfgPath)
	}
}

func TestFindConfigFileInPaths_MatchesYML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "plutodesk.yml")
	_ = os.WriteFile(cfgPath, []byte("server:\n  http_addr: 127.0.0.1:9090\n"), 0644)

	if got := findConfigFileInPaths([]string{dir}); got != cfgPath {
		t.Errorf("findConfigFileInPaths = %q, want %q", got, cfgPath)
	}
}

func TestFindConfigFileInPaths_IgnoresNoExtension(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	// Simulate the binary: a file named "plutodesk" with no extension.
	_ = os.WriteFile(filepath.Join(dir, "plutodesk"), []byte("\x7fELF binary"), 0755)

	if got := findConfigFileInPaths([]string{dir}); got != "" {
		t.Errorf("findConfigFileInPaths matched binary = %q, want empty", got)
	}
}

func TestFindConfigFileInPaths_PrefersYAMLOverYML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "plutodesk.yaml")
	_ = os.WriteFile(yamlPath, []byte("dev_mode: true\n"), 0644)
	_ = os.WriteFile(filepath.Join(dir, "plutodesk.yml"), []byte("dev_mode: false\n"), 0644)

	if got := findConfigFileInPaths([]string{dir}); got != yamlPath {
		t.Errorf("findConfigFileInPaths = %q, want %q", got, yamlPath)
	}
}
