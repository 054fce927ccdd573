package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "starling_run_duration_sec",
	Help:    "Total duration of an analysis run",
	Buckets: prometheus.ExponentialBuckets(0.005, 2, 16),
}, []string{"status"})

var stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "starling_stage_duration_sec",
	Help:    "Duration of each analysis stage",
	Buckets: prometheus.ExponentialBuckets(0.001, 2, 18),
}, []string{"stage"})

var runCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "starling_runs",
	Help: "Number of analysis runs, by outcome",
}, []string{"status"})

var warningCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "starling_stage_warnings",
	Help: "Number of isolated extractor or indicator failures",
}, []string{"stage", "name"})

var signalCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "starling_signals_emitted",
	Help: "Number of coordination signals emitted",
}, []string{"type"})

var groupCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "starling_coordinated_groups",
	Help: "Number of coordinated groups reported",
})

var clusterCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "starling_misinfo_clusters",
	Help: "Number of misinformation clusters reported, by indicator",
}, []string{"indicator"})

var cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "starling_result_cache_lookups",
	Help: "Result cache lookups, by outcome",
}, []string{"result"})
