package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"proscope/internal/core/analysis"
	"proscope/internal/core/config"
	"proscope/internal/core/document"
	"proscope/internal/core/watcher"
	"proscope/internal/shared/util"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newWatchCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [path]...",
		Short: "Re-analyse ABL files as they change on disk",
		Long: `Watch directories or files and re-analyse every edited ABL source. Bursts
of writes are coalesced and each analysis result is logged. The config file
is reloaded on change; with observability enabled /metrics and /health are
served on the configured address.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := args
			if len(paths) == 0 {
				paths = []string{"."}
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return rt.watch(ctx, paths)
		},
	}
}

func (rt *runtime) watch(ctx context.Context, paths []string) error {
	doc := document.New()
	s, err := analysis.New(doc, rt.sessionOptions())
	if err != nil {
		return err
	}
	defer s.Close()

	var started atomic.Int64
	s.OnStarted(func() { started.Store(time.Now().UnixNano()) })
	s.OnCompleted(func() { logSnapshot(s.Snapshot(), time.Since(time.Unix(0, started.Load()))) })

	w, err := watcher.NewWatcher(rt.cfg.Watch.Debounce, rt.cfg.Watch.ExcludeDirs, rt.cfg.Watch.ExcludeFiles, analyseBatch(doc, s))
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.SetSourcePatterns(rt.cfg.Analysis.Extensions); err != nil {
		return err
	}
	if err := w.Watch(paths); err != nil {
		return fmt.Errorf("failed to watch %v: %w", paths, err)
	}

	stopInvalidate, err := rt.locator.InvalidateOnChange(ctx)
	if err != nil {
		slog.Warn("propath cache invalidation disabled", "error", err)
	} else {
		defer stopInvalidate()
	}

	if _, err := os.Stat(rt.opts.configPath); err == nil {
		cw := config.NewWatcher(rt.opts.configPath, func(cfg *config.Config) {
			s.SetDebounce(cfg.Analysis.Debounce)
			w.SetDebounce(cfg.Watch.Debounce)
			slog.Info("config reloaded", "analysisDebounce", cfg.Analysis.Debounce, "watchDebounce", cfg.Watch.Debounce)
		})
		if err := cw.Start(ctx); err != nil {
			slog.Warn("config watcher disabled", "error", err)
		} else {
			defer cw.Stop()
		}
	}

	obs := rt.cfg.Observability
	if obs.Enabled && obs.EnableMetrics {
		server := NewObservabilityServer(obs.Address, s.Snapshot)
		if err := server.Start(ctx); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Stop(shutdownCtx); err != nil {
				slog.Warn("observability server shutdown failed", "error", err)
			}
		}()
	}

	slog.Info("watching", "paths", paths)
	<-ctx.Done()
	slog.Info("stopping watcher")
	return nil
}

// analyseBatch returns the watcher callback. The watcher has already
// coalesced the burst, so every changed file gets its own immediate pass;
// a debounced request per file would only analyse the last one.
func analyseBatch(doc *document.Document, s *analysis.Session) func([]string) {
	return func(changed []string) {
		for _, path := range changed {
			if err := doc.Load(path); err != nil {
				slog.Warn("failed to load changed file", "path", path, "error", err)
				continue
			}
			s.RequestReanalysis(true)
		}
	}
}

func logSnapshot(snap *analysis.Snapshot, elapsed time.Duration) {
	attrs := []any{
		"file", snap.FilePath,
		"version", snap.Version,
		"items", len(snap.Items),
		"lines", snap.LineCount(),
		"parsingOk", snap.ParsingOk,
		"duration", elapsed,
		"heapMB", util.GetHeapAllocMB(),
	}
	if snap.Stale {
		slog.Warn("analysis completed with a stale snapshot", attrs...)
		return
	}
	slog.Info("analysis completed", attrs...)
}

func healthOf(snap *analysis.Snapshot) HealthStatus {
	status := "up"
	if snap.Stale {
		status = "stale"
	}
	return HealthStatus{
		Status:    status,
		File:      snap.FilePath,
		Version:   snap.Version,
		ParsingOk: snap.ParsingOk,
		Stale:     snap.Stale,
		HeapMB:    util.GetHeapAllocMB(),
	}
}
