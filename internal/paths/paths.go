// Package paths resolves the per-user data and configuration directories
// for unitscope. An environment override, when set to a non-empty value, is
// used verbatim; otherwise the platform-conventional per-user location is
// joined with the application name. Resolution never creates directories;
// that is the caller's job.
package paths

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "unitscope"

const (
	// EnvData overrides the data directory. An empty value is treated as unset.
	EnvData = "UNITSCOPE_DATA"
	// EnvConfig overrides the config directory. An empty value is treated as unset.
	EnvConfig = "UNITSCOPE_CONFIG"
)

// ErrNoBaseDir is returned when no override is set and the platform cannot
// supply a per-user base directory (no home, minimal container).
var ErrNoBaseDir = errors.New("unable to determine base directory")

// Base-directory providers, swappable in tests.
var (
	configBase = os.UserConfigDir
	dataBase   = userDataBase
)

// DataDir returns the directory holding logs, trace files and crash dumps.
func DataDir() (string, error) {
	return resolve(EnvData, dataBase)
}

// ConfigDir returns the directory holding the optional config file.
func ConfigDir() (string, error) {
	return resolve(EnvConfig, configBase)
}

func resolve(envVar string, base func() (string, error)) (string, error) {
	if v := os.Getenv(envVar); v != "" {
		return v, nil
	}
	dir, err := base()
	if err != nil {
		return "", fmt.Errorf("%w for %s: %v", ErrNoBaseDir, appName, err)
	}
	return filepath.Join(dir, appName), nil
}

// userDataBase mirrors the local-data conventions of each platform:
// %LocalAppData% on Windows, ~/Library/Application Support on macOS and
// $XDG_DATA_HOME (or ~/.local/share) elsewhere.
func userDataBase() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if dir := os.Getenv("LocalAppData"); dir != "" {
			return dir, nil
		}
		return "", errors.New("%LocalAppData% is not defined")
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support"), nil
	default:
		if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
			return dir, nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share"), nil
	}
}
