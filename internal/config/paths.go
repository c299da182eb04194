package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoDataDir is returned when the user configuration directory cannot be
// determined and no data_dir is configured.
var ErrNoDataDir = errors.New("cannot determine data directory")

// appDirName is the per-user directory name under the OS config directory.
const appDirName = "plutodesk"

// userConfigDir is replaced in tests.
var userConfigDir = os.UserConfigDir

// ResolveDataDir returns configured as an absolute path, or the default
// <user config dir>/plutodesk when configured is empty.
func ResolveDataDir(configured string) (string, error) {
	if configured != "" {
		abs, err := filepath.Abs(configured)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrNoDataDir, err)
		}
		return abs, nil
	}

	base, err := userConfigDir()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoDataDir, err)
	}
	if base == "" {
		return "", ErrNoDataDir
	}
	return filepath.Join(base, appDirName), nil
}
