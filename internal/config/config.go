// Package config provides configuration for the buddy session store tooling.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultWorkerPort is the port the inspection worker listens on.
	DefaultWorkerPort = 7411
	// DefaultListLimit bounds session listings.
	DefaultListLimit = 20
	// DefaultTodoScope is the scope the todo manager operates on.
	DefaultTodoScope = "default"
	// DefaultLogLevel is the zerolog level name used when unset.
	DefaultLogLevel = "info"
)

// Config holds the runtime settings. Zero values fall back to defaults at
// load time, so a partial settings file is fine.
type Config struct {
	WorkerPort int    `yaml:"worker_port"`
	ListLimit  int    `yaml:"list_limit"`
	TodoScope  string `yaml:"todo_scope"`
	LogLevel   string `yaml:"log_level"`
	DBPath     string `yaml:"db_path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		WorkerPort: DefaultWorkerPort,
		ListLimit:  DefaultListLimit,
		TodoScope:  DefaultTodoScope,
		LogLevel:   DefaultLogLevel,
		DBPath:     DBPath(),
	}
}

// DataDir returns the buddy data directory: $BUDDY_DATA_DIR if set,
// otherwise ~/.buddy.
func DataDir() string {
	if dir := os.Getenv("BUDDY_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".buddy"
	}
	return filepath.Join(home, ".buddy")
}

// DBPath returns the session store file path.
func DBPath() string {
	return filepath.Join(DataDir(), "sessions.db")
}

// SettingsPath returns the optional settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), "settings.yaml")
}

// EnsureDataDir creates the data directory if missing.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0o755)
}

// Load merges the settings file, when present, over Default(). A missing
// file is not an error; a malformed one is.
func Load() (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(SettingsPath())
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, err
	}

	if file.WorkerPort > 0 {
		cfg.WorkerPort = file.WorkerPort
	}
	if file.ListLimit > 0 {
		cfg.ListLimit = file.ListLimit
	}
	if file.TodoScope != "" {
		cfg.TodoScope = file.TodoScope
	}
	if file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	if file.DBPath != "" {
		cfg.DBPath = file.DBPath
	}
	return cfg, nil
}
