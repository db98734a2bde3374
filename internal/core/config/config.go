package config

import (
	"time"
)

type Config struct {
	Version       int           `toml:"version"`
	Analysis      Analysis      `toml:"analysis"`
	Propath       Propath       `toml:"propath"`
	Watch         Watch         `toml:"watch"`
	Logging       Logging       `toml:"logging"`
	Observability Observability `toml:"observability"`
}

type Analysis struct {
	Debounce      time.Duration `toml:"debounce"`
	MaxReruns     int           `toml:"max_reruns"`
	FileCacheSize int           `toml:"file_cache_size"`
	Extensions    []string      `toml:"extensions"` // glob patterns of ABL source files
}

type Propath struct {
	Entries       []string `toml:"entries"`
	BaseLocalPath string   `toml:"base_local_path"`
	Extensions    []string `toml:"extensions"`
}

type Watch struct {
	Debounce     time.Duration `toml:"debounce"`
	ExcludeDirs  []string      `toml:"exclude_dirs"`
	ExcludeFiles []string      `toml:"exclude_files"`
}

type Logging struct {
	Level string `toml:"level"`
}

type Observability struct {
	Enabled       bool   `toml:"enabled"`
	Address       string `toml:"address"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
	EnableTracing bool   `toml:"enable_tracing"`
	EnableMetrics bool   `toml:"enable_metrics"`
}

const (
	DefaultAnalysisDebounce = 800 * time.Millisecond
	DefaultMaxReruns        = 8
	DefaultFileCacheSize    = 64
	DefaultWatchDebounce    = 200 * time.Millisecond
)

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}
