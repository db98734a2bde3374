package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: PROSCOPE_[SECTION]_[KEY] (e.g., PROSCOPE_ANALYSIS_DEBOUNCE).
// List values are comma separated.
func ApplyEnvOverrides(cfg *Config) {
	// Analysis
	setEnvDuration(&cfg.Analysis.Debounce, "PROSCOPE_ANALYSIS_DEBOUNCE")
	setEnvInt(&cfg.Analysis.MaxReruns, "PROSCOPE_ANALYSIS_MAX_RERUNS")
	setEnvInt(&cfg.Analysis.FileCacheSize, "PROSCOPE_ANALYSIS_FILE_CACHE_SIZE")
	setEnvList(&cfg.Analysis.Extensions, "PROSCOPE_ANALYSIS_EXTENSIONS")

	// Propath
	setEnvList(&cfg.Propath.Entries, "PROSCOPE_PROPATH_ENTRIES")
	setEnvString(&cfg.Propath.BaseLocalPath, "PROSCOPE_PROPATH_BASE_LOCAL_PATH")
	setEnvList(&cfg.Propath.Extensions, "PROSCOPE_PROPATH_EXTENSIONS")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "PROSCOPE_WATCH_DEBOUNCE")

	// Logging
	setEnvString(&cfg.Logging.Level, "PROSCOPE_LOGGING_LEVEL")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "PROSCOPE_OBSERVABILITY_ENABLED")
	setEnvString(&cfg.Observability.Address, "PROSCOPE_OBSERVABILITY_ADDRESS")
	setEnvString(&cfg.Observability.OTLPEndpoint, "PROSCOPE_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.EnableTracing, "PROSCOPE_OBSERVABILITY_ENABLE_TRACING")
	setEnvBool(&cfg.Observability.EnableMetrics, "PROSCOPE_OBSERVABILITY_ENABLE_METRICS")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvList(target *[]string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		var items []string
		for _, part := range strings.Split(val, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
		slog.Debug("applying env override", "key", key, "value", val)
		*target = items
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
