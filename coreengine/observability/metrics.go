// Package observability provides Prometheus metrics instrumentation for the coreengine.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// APPEND WRITER METRICS
// =============================================================================

var (
	appendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vifei_appends_total",
			Help: "Total number of events appended to an event log",
		},
		[]string{"run_id", "status"}, // status: committed, rejected, skew_corrected
	)

	appendDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vifei_append_duration_seconds",
			Help:    "Append Writer call duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
		[]string{"run_id"},
	)
)

// =============================================================================
// REDUCER METRICS
// =============================================================================

var (
	reduceEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vifei_reduce_events_total",
			Help: "Total number of events folded by the reducer",
		},
		[]string{"run_id"},
	)

	checkpointsWrittenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vifei_checkpoints_written_total",
			Help: "Total number of checkpoints persisted during replay",
		},
		[]string{"run_id"},
	)
)

// =============================================================================
// EXPORT METRICS
// =============================================================================

var (
	exportOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vifei_export_outcomes_total",
			Help: "Total number of share-safe export attempts by outcome",
		},
		[]string{"run_id", "outcome"}, // outcome: bundled, refused
	)

	exportDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vifei_export_duration_seconds",
			Help:    "Share-safe export pipeline duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"run_id"},
	)
)

// =============================================================================
// TOUR / STRESS HARNESS METRICS
// =============================================================================

var (
	tourRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vifei_tour_runs_total",
			Help: "Total number of stress harness runs by final degradation level",
		},
		[]string{"final_level"},
	)

	tourTierADropsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vifei_tour_tier_a_drops_total",
			Help: "Total number of tier-A events dropped across stress harness runs",
		},
		[]string{"run_id"},
	)
)

// =============================================================================
// COMMAND BUS METRICS
// =============================================================================

var (
	busPublishErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vifei_bus_publish_errors_total",
			Help: "Total number of commbus Publish calls whose subscribers reported an error",
		},
		[]string{"event_type"},
	)
)

// =============================================================================
// PUBLIC API
// =============================================================================

// RecordAppend records Append Writer call metrics.
func RecordAppend(runID string, status string, durationSeconds float64) {
	appendsTotal.WithLabelValues(runID, status).Inc()
	appendDurationSeconds.WithLabelValues(runID).Observe(durationSeconds)
}

// RecordReduce records reducer fold progress for one run.
func RecordReduce(runID string, eventCount int, checkpointsWritten int) {
	reduceEventsTotal.WithLabelValues(runID).Add(float64(eventCount))
	checkpointsWrittenTotal.WithLabelValues(runID).Add(float64(checkpointsWritten))
}

// RecordExport records a share-safe export attempt.
func RecordExport(runID string, outcome string, durationSeconds float64) {
	exportOutcomesTotal.WithLabelValues(runID, outcome).Inc()
	exportDurationSeconds.WithLabelValues(runID).Observe(durationSeconds)
}

// RecordTourRun records completion of a stress harness run.
func RecordTourRun(runID string, finalLevel string, tierADrops int) {
	tourRunsTotal.WithLabelValues(finalLevel).Inc()
	tourTierADropsTotal.WithLabelValues(runID).Add(float64(tierADrops))
}

// RecordBusPublishError records that a commbus.Publish call for eventType
// returned a subscriber error instead of propagating it up the call stack.
func RecordBusPublishError(eventType string) {
	busPublishErrorsTotal.WithLabelValues(eventType).Inc()
}
