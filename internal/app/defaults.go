package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment variables that override the default locations.
const (
	EnvConfigPath = "DS_CONFIG_PATH"
	EnvHome       = "DS_HOME"
)

// Defaults are the locations ds uses when nothing else is configured.
type Defaults struct {
	ConfigPath string // $DS_CONFIG_PATH or ~/.config/ds.toml
	BaseDir    string // $DS_HOME or ~/.local/share/ds
}

// LogDir is where the log file lives under BaseDir.
func (d Defaults) LogDir() string {
	return filepath.Join(d.BaseDir, "log")
}

// GetDefaults resolves the default locations, environment variables first.
func GetDefaults() (Defaults, error) {
	configPath, err := fromEnvOrHome(EnvConfigPath, ".config", "ds.toml")
	if err != nil {
		return Defaults{}, err
	}
	baseDir, err := fromEnvOrHome(EnvHome, ".local", "share", "ds")
	if err != nil {
		return Defaults{}, err
	}
	return Defaults{ConfigPath: configPath, BaseDir: baseDir}, nil
}

// fromEnvOrHome returns $env when set, else the path under the home directory.
func fromEnvOrHome(env string, underHome ...string) (string, error) {
	if p := os.Getenv(env); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append([]string{home}, underHome...)...), nil
}
