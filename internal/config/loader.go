package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment variables.
// If configFile is empty, it searches for plutodesk.yaml/.yml in standard locations.
// The search requires an explicit YAML extension to avoid matching the binary itself.
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// ReadInConfig then returns ConfigFileNotFoundError, which callers ignore.
		viper.SetConfigName("plutodesk")
		viper.SetConfigType("yaml")
	}

	// Environment variable support: PLUTODESK_SERVER_HTTP_ADDR
	viper.SetEnvPrefix("PLUTODESK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

// findConfigFile searches ., the user config directory and the system
// config directory for plutodesk.yaml or plutodesk.yml.
func findConfigFile() string {
	paths := []string{"."}
	if dir, err := userConfigDir(); err == nil && dir != "" {
		paths = append(paths, filepath.Join(dir, appDirName))
	}
	if runtime.GOOS == "windows" {
		if pd := os.Getenv("ProgramData"); pd != "" {
			paths = append(paths, filepath.Join(pd, appDirName))
		}
	} else {
		paths = append(paths, "/etc/plutodesk")
	}
	return findConfigFileInPaths(paths)
}

// findConfigFileInPaths returns the first plutodesk.yaml or .yml found in
// paths, or an empty string.
func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "plutodesk"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds nested keys so AutomaticEnv can override them.
// Example: PLUTODESK_SESSIONS_FILE overrides sessions.file.
func bindNestedEnvKeys() {
	_ = viper.BindEnv("data_dir")

	_ = viper.BindEnv("server.http_addr")
	_ = viper.BindEnv("server.log_level")
	_ = viper.BindEnv("server.log_format")
	// server.allowed_origins is a list; set it in the config file.

	_ = viper.BindEnv("database.path")

	_ = viper.BindEnv("sessions.file")
	_ = viper.BindEnv("sessions.watch")
	_ = viper.BindEnv("sessions.watch_debounce")

	_ = viper.BindEnv("screenshots.dir")
	_ = viper.BindEnv("screenshots.max_upload_mb")

	_ = viper.BindEnv("tracing.enabled")
	_ = viper.BindEnv("tracing.output")

	_ = viper.BindEnv("dev_mode")
}

// LoadConfig reads the configuration file, applies environment overrides and
// defaults, resolves paths and validates the result.
func LoadConfig() (*AppConfig, error) {
	cfg, err := LoadConfigRaw()
	if err != nil {
		return nil, err
	}
	cfg.SetDevDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigRaw reads the configuration and applies defaults and paths, but
// does NOT apply dev defaults or validate. Use this when CLI flags may
// override DevMode before validation.
func LoadConfigRaw() (*AppConfig, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.ResolvePaths(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigFileUsed returns the path to the configuration file that was loaded,
// or an empty string when running from defaults and environment only.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
