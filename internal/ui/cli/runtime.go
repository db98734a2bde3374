package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"proscope/internal/core/analysis"
	"proscope/internal/core/config"
	"proscope/internal/core/document"
	"proscope/internal/engine/propath"
	"proscope/internal/shared/observability"

	"github.com/spf13/cobra"
)

// runtime is the state shared by every subcommand of one invocation.
type runtime struct {
	opts     cliOptions
	cfg      *config.Config
	locator  *propath.Locator
	shutdown func(context.Context) error
}

func (rt *runtime) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadOptional(rt.opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	rt.cfg = cfg

	configureLogging(cmd.ErrOrStderr(), cfg.Logging.SlogLevel(), rt.opts.verbose)

	rt.locator = propath.New(cfg.Propath.Entries, cfg.Propath.BaseLocalPath, cfg.Propath.Extensions)
	rt.shutdown = func(context.Context) error { return nil }

	if cfg.Observability.Enabled && cfg.Observability.EnableTracing {
		shutdown, err := observability.InitTracing(cmd.Context(), cfg.Observability.OTLPEndpoint)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		rt.shutdown = shutdown
	}
	return nil
}

func (rt *runtime) teardown(cmd *cobra.Command, _ []string) error {
	if rt.shutdown == nil {
		return nil
	}
	if err := rt.shutdown(context.Background()); err != nil {
		slog.Warn("tracing shutdown failed", "error", err)
	}
	return nil
}

func (rt *runtime) sessionOptions() analysis.Options {
	return analysis.Options{
		Debounce:       rt.cfg.Analysis.Debounce,
		MaxReruns:      rt.cfg.Analysis.MaxReruns,
		FileCacheSize:  rt.cfg.Analysis.FileCacheSize,
		SourcePatterns: rt.cfg.Analysis.Extensions,
		Locator:        rt.locator,
		Logger:         slog.Default(),
	}
}

// openSession loads path as the current document and analyses it once.
// The caller closes the returned session.
func (rt *runtime) openSession(path string) (*document.Document, *analysis.Session, error) {
	doc := document.New()
	if err := doc.Load(path); err != nil {
		return nil, nil, err
	}
	s, err := analysis.New(doc, rt.sessionOptions())
	if err != nil {
		return nil, nil, err
	}
	s.RequestReanalysis(true)
	return doc, s, nil
}

func configureLogging(output io.Writer, level slog.Level, verbose bool) {
	if verbose {
		level = slog.LevelDebug
	}
	if output == nil {
		output = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}
