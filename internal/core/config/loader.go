package config

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

var (
	defaultSourcePatterns = []string{"*.p", "*.i", "*.w", "*.t", "*.cls"}
	defaultPropathExts    = []string{".p", ".w", ".i", ".t", ".cls"}
	defaultExcludeDirs    = []string{".git", ".builder", "node_modules"}
	defaultExcludeFiles   = []string{"*.r", "*.bak", "*~"}
	defaultMetricsAddress = "127.0.0.1:9464"
	defaultLogLevel       = "info"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	ApplyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOptional loads path, falling back to defaults plus env overrides when
// the file does not exist.
func LoadOptional(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		ApplyEnvOverrides(cfg)
		if err := Validate(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return Load(path)
}

func Validate(cfg *Config) error {
	if err := validateVersion(cfg); err != nil {
		return err
	}
	if err := validateAnalysis(cfg); err != nil {
		return err
	}
	if err := validatePropath(cfg); err != nil {
		return err
	}
	if err := validateWatch(cfg); err != nil {
		return err
	}
	if err := validateLogging(cfg); err != nil {
		return err
	}
	return validateObservability(cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if cfg.Analysis.Debounce == 0 {
		cfg.Analysis.Debounce = DefaultAnalysisDebounce
	}
	if cfg.Analysis.MaxReruns == 0 {
		cfg.Analysis.MaxReruns = DefaultMaxReruns
	}
	if cfg.Analysis.FileCacheSize == 0 {
		cfg.Analysis.FileCacheSize = DefaultFileCacheSize
	}
	if len(cfg.Analysis.Extensions) == 0 {
		cfg.Analysis.Extensions = append([]string(nil), defaultSourcePatterns...)
	}

	if len(cfg.Propath.Entries) == 0 {
		cfg.Propath.Entries = []string{"."}
	}
	if len(cfg.Propath.Extensions) == 0 {
		cfg.Propath.Extensions = append([]string(nil), defaultPropathExts...)
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = DefaultWatchDebounce
	}
	if cfg.Watch.ExcludeDirs == nil {
		cfg.Watch.ExcludeDirs = append([]string(nil), defaultExcludeDirs...)
	}
	if cfg.Watch.ExcludeFiles == nil {
		cfg.Watch.ExcludeFiles = append([]string(nil), defaultExcludeFiles...)
	}

	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = defaultLogLevel
	}

	if strings.TrimSpace(cfg.Observability.Address) == "" {
		cfg.Observability.Address = defaultMetricsAddress
	}
}
