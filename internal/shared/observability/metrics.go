package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "proscope_stage_seconds",
		Help:    "Time spent in one stage of an analysis pass.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	PassesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proscope_passes_total",
		Help: "Total number of analysis passes by outcome.",
	}, []string{"outcome"})

	PassReruns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proscope_pass_reruns_total",
		Help: "Total number of passes rerun because the document changed while parsing.",
	})

	DebounceResetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proscope_debounce_resets_total",
		Help: "Total number of reanalysis requests that restarted a pending debounce timer.",
	})

	PublishedItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "proscope_published_items",
		Help: "Number of parsed items in the most recently published snapshot.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proscope_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	LocatorLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proscope_locator_lookups_total",
		Help: "Total number of propath lookups by result.",
	}, []string{"result"})

	ErrorsReportedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proscope_errors_reported_total",
		Help: "Total number of faults handed to the error reporter.",
	}, []string{"code"})
)
