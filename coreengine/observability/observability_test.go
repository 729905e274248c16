package observability

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// METRICS TESTS
// =============================================================================

func TestRecordAppend(t *testing.T) {
	tests := []struct {
		name     string
		runID    string
		status   string
		duration float64
	}{
		{"committed", "run-1", "committed", 0.001},
		{"rejected", "run-1", "rejected", 0.0005},
		{"skew corrected", "run-2", "skew_corrected", 0.002},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordAppend(tt.runID, tt.status, tt.duration)
			count := testutil.ToFloat64(appendsTotal.WithLabelValues(tt.runID, tt.status))
			assert.Greater(t, count, 0.0)
		})
	}
}

func TestRecordReduce(t *testing.T) {
	RecordReduce("run-reduce", 100, 0)
	count := testutil.ToFloat64(reduceEventsTotal.WithLabelValues("run-reduce"))
	assert.GreaterOrEqual(t, count, 100.0)
}

func TestRecordExport(t *testing.T) {
	RecordExport("run-export", "bundled", 0.5)
	RecordExport("run-export", "refused", 0.01)

	bundled := testutil.ToFloat64(exportOutcomesTotal.WithLabelValues("run-export", "bundled"))
	refused := testutil.ToFloat64(exportOutcomesTotal.WithLabelValues("run-export", "refused"))
	assert.Greater(t, bundled, 0.0)
	assert.Greater(t, refused, 0.0)
}

func TestRecordTourRun(t *testing.T) {
	RecordTourRun("run-tour", "L0", 0)
	RecordTourRun("run-tour", "L3", 5)

	l0 := testutil.ToFloat64(tourRunsTotal.WithLabelValues("L0"))
	l3 := testutil.ToFloat64(tourRunsTotal.WithLabelValues("L3"))
	drops := testutil.ToFloat64(tourTierADropsTotal.WithLabelValues("run-tour"))
	assert.Greater(t, l0, 0.0)
	assert.Greater(t, l3, 0.0)
	assert.GreaterOrEqual(t, drops, 5.0)
}

func TestMetrics_Concurrent(t *testing.T) {
	const goroutines = 10
	const iterations = 100

	done := make(chan bool, goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			for j := 0; j < iterations; j++ {
				RecordAppend("concurrent-run", "committed", 0.001)
			}
			done <- true
		}()
	}
	for i := 0; i < goroutines; i++ {
		<-done
	}

	count := testutil.ToFloat64(appendsTotal.WithLabelValues("concurrent-run", "committed"))
	assert.Equal(t, float64(goroutines*iterations), count)
}

// =============================================================================
// TRACING TESTS
// =============================================================================

type fakeLogger struct {
	debugCalls int
}

func (l *fakeLogger) Debug(msg string, args ...any) { l.debugCalls++ }

func TestInitTracerRejectsEmptyCommandName(t *testing.T) {
	shutdown, err := InitTracer("", &fakeLogger{})
	require.Error(t, err)
	assert.Nil(t, shutdown)
}

func TestInitTracerRejectsNilLogger(t *testing.T) {
	shutdown, err := InitTracer("tour", nil)
	require.Error(t, err)
	assert.Nil(t, shutdown)
}

func TestInitTracerSucceedsAndShutsDownCleanly(t *testing.T) {
	logger := &fakeLogger{}
	shutdown, err := InitTracer("tour", logger)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	ctx, span := StartSpan(context.Background(), "vifei/tour", "fold-events")
	_ = ctx
	span()

	require.NoError(t, shutdown(context.Background()))
	assert.Equal(t, 1, logger.debugCalls)
}
