package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"proscope/internal/core/config/helpers"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"
)

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateAnalysis(cfg *Config) error {
	if cfg.Analysis.Debounce < 0 {
		return fmt.Errorf("analysis.debounce must not be negative, got %s", cfg.Analysis.Debounce)
	}
	if cfg.Analysis.MaxReruns < 0 {
		return fmt.Errorf("analysis.max_reruns must not be negative, got %d", cfg.Analysis.MaxReruns)
	}
	if cfg.Analysis.FileCacheSize < 0 {
		return fmt.Errorf("analysis.file_cache_size must not be negative, got %d", cfg.Analysis.FileCacheSize)
	}
	for i, pattern := range cfg.Analysis.Extensions {
		if strings.TrimSpace(pattern) == "" {
			return fmt.Errorf("analysis.extensions[%d] must not be empty", i)
		}
		if _, err := glob.Compile(strings.ToLower(pattern)); err != nil {
			return fmt.Errorf("analysis.extensions[%d] %q is not a valid pattern: %w", i, pattern, err)
		}
	}
	return nil
}

func validatePropath(cfg *Config) error {
	normalized := make([]string, 0, len(cfg.Propath.Entries))
	for i, entry := range cfg.Propath.Entries {
		entry = filepath.ToSlash(strings.TrimSpace(entry))
		if entry == "" {
			return fmt.Errorf("propath.entries[%d] must not be empty", i)
		}
		if helpers.HasWildcard(entry) && !doublestar.ValidatePattern(entry) {
			return fmt.Errorf("propath.entries[%d] %q is not a valid pattern", i, entry)
		}
		for _, prev := range normalized {
			if helpers.EntriesOverlap(prev, entry) {
				slog.Warn("overlapping propath entries", "first", prev, "second", entry)
			}
		}
		normalized = append(normalized, entry)
	}
	for i, ext := range cfg.Propath.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("propath.extensions[%d] must start with a dot, got %q", i, ext)
		}
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %s", cfg.Watch.Debounce)
	}
	for i, pattern := range cfg.Watch.ExcludeFiles {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("watch.exclude_files[%d] %q is not a valid pattern: %w", i, pattern, err)
		}
	}
	return nil
}

func validateLogging(cfg *Config) error {
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
}

func validateObservability(cfg *Config) error {
	obs := cfg.Observability
	if !obs.Enabled {
		return nil
	}
	if obs.EnableMetrics && strings.TrimSpace(obs.Address) == "" {
		return fmt.Errorf("observability.address must not be empty when metrics are enabled")
	}
	if obs.EnableTracing && strings.TrimSpace(obs.OTLPEndpoint) == "" {
		return fmt.Errorf("observability.otlp_endpoint must not be empty when tracing is enabled")
	}
	return nil
}

// SlogLevel maps logging.level onto a slog level.
func (l Logging) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(l.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
