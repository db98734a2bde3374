package errors

import (
	"log/slog"
	"sync"

	"proscope/internal/shared/observability"
	"proscope/internal/shared/util"
)

// LogReporter is the process-wide error collaborator. It logs reported
// faults through slog and drops reports beyond the configured rate so a
// failing pass that reruns on every keystroke cannot flood the log.
type LogReporter struct {
	logger  *slog.Logger
	limiter *util.Limiter

	mu      sync.Mutex
	dropped int
}

// NewLogReporter creates a reporter allowing perSecond reports with the given
// burst. A nil logger uses slog.Default().
func NewLogReporter(logger *slog.Logger, perSecond float64, burst int) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst <= 0 {
		burst = 5
	}
	return &LogReporter{
		logger:  logger,
		limiter: util.NewLimiter(perSecond, burst),
	}
}

func (r *LogReporter) Report(err error, context string) {
	if err == nil {
		return
	}
	observability.ErrorsReportedTotal.WithLabelValues(string(CodeOf(err))).Inc()

	if !r.limiter.Allow(1) {
		r.mu.Lock()
		r.dropped++
		r.mu.Unlock()
		return
	}

	r.mu.Lock()
	dropped := r.dropped
	r.dropped = 0
	r.mu.Unlock()

	attrs := []any{"context", context, "error", err}
	if dropped > 0 {
		attrs = append(attrs, "suppressed", dropped)
	}
	r.logger.Error("analysis fault", attrs...)
}

// Dropped returns the number of reports suppressed since the last logged one.
func (r *LogReporter) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}
