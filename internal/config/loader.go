package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/crystaldolphin/waypoint/internal/providers"
)

// Environment variables that override file values.
const (
	EnvModel   = "WAYPOINT_MODEL"
	EnvJinaKey = "JINAI_API_KEY"
	EnvMapsKey = "GOOGLE_MAPS_API_KEY"
)

// ConfigPath returns the default configuration file path: ~/.waypoint/config.json.
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.json")
}

// DataDir returns the waypoint data directory: ~/.waypoint.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".waypoint"
	}
	return filepath.Join(home, ".waypoint")
}

// LoadEnvFiles loads KEY=VALUE files into the process environment. Missing
// files are skipped and variables that are already set are never replaced.
// With no arguments, ./.env and ~/.waypoint/.env are tried.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env", filepath.Join(DataDir(), ".env")}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load env file %s: %w", f, err)
		}
		slog.Debug("Loaded env file", "path", f)
	}
	return nil
}

// Load reads and parses the config file at path, then applies environment
// overrides. If path is empty, ConfigPath() is used. A missing file yields
// the defaults; on parse failure a warning is logged and the defaults are used.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := unmarshal(path, data, &cfg); err != nil {
			slog.Warn("Failed to parse config, using defaults", "path", path, "err", err)
			cfg = DefaultConfig()
		}
	}

	applyEnv(&cfg, os.LookupEnv)
	return &cfg, nil
}

// Save writes cfg to path as indented JSON, or as YAML when the extension
// says so. If path is empty, ConfigPath() is used.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func unmarshal(path string, data []byte, cfg *Config) error {
	if isYAML(path) {
		return yaml.Unmarshal(data, cfg)
	}
	return json.Unmarshal(data, cfg)
}

// applyEnv overlays non-empty environment values onto cfg.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	for _, spec := range providers.PROVIDERS {
		if p := cfg.ProviderByName(spec.Name); p != nil {
			set(&p.APIKey, spec.EnvKey)
		}
	}
	set(&cfg.Tools.Jina.APIKey, EnvJinaKey)
	set(&cfg.Tools.Maps.APIKey, EnvMapsKey)
	set(&cfg.Agent.Model, EnvModel)
}
