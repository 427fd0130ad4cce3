// Package config provides configuration management.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"cost-reports/internal/errors"
	"cost-reports/internal/logging"
)

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version" yaml:"version"`

	// Server contains HTTP server settings
	Server ServerConfig `json:"server" yaml:"server"`

	// Store contains summary store settings
	Store StoreConfig `json:"store" yaml:"store"`

	// Query contains query engine settings
	Query QueryConfig `json:"query" yaml:"query"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging" yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	// Addr is the listen address
	Addr string `json:"addr" yaml:"addr"`

	// ReadTimeoutSeconds bounds request reads
	ReadTimeoutSeconds int `json:"read_timeout_seconds" yaml:"read_timeout_seconds"`

	// WriteTimeoutSeconds bounds response writes
	WriteTimeoutSeconds int `json:"write_timeout_seconds" yaml:"write_timeout_seconds"`
}

// StoreConfig contains summary store settings
type StoreConfig struct {
	// DatabasePath is the path to the daily summary database
	DatabasePath string `json:"database_path" yaml:"database_path"`
}

// QueryConfig contains query engine settings
type QueryConfig struct {
	// DefaultLimit is the group limit applied when none is requested
	DefaultLimit int `json:"default_limit" yaml:"default_limit"`

	// MaxLimit caps the requested group limit
	MaxLimit int `json:"max_limit" yaml:"max_limit"`

	// Currency is the currency code reported for cost metrics
	Currency string `json:"currency" yaml:"currency"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Version: "1",
		Server: ServerConfig{
			Addr:                ":8080",
			ReadTimeoutSeconds:  30,
			WriteTimeoutSeconds: 60,
		},
		Store: StoreConfig{
			DatabasePath: "summaries.db",
		},
		Query: QueryConfig{
			DefaultLimit: 0,
			MaxLimit:     1000,
			Currency:     "USD",
		},
		Logging: logging.DefaultConfig(),
	}
}

var (
	current    = DefaultConfig()
	currentMux sync.RWMutex
)

// Get returns the current configuration
func Get() Config {
	currentMux.RLock()
	defer currentMux.RUnlock()
	return current
}

// Set replaces the current configuration
func Set(cfg Config) {
	currentMux.Lock()
	defer currentMux.Unlock()
	current = cfg
}

// Load reads configuration from a JSON or YAML file, selected by extension
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(errors.TypeConfig, "reading config file", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrap(errors.TypeConfig, "parsing YAML config", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrap(errors.TypeConfig, "parsing JSON config", err)
		}
	default:
		return cfg, errors.Newf(errors.TypeConfig, "unsupported config format: %s", filepath.Ext(path))
	}

	return cfg, nil
}
