package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRun(t *testing.T) {
	before := testutil.ToFloat64(RunsTotal.WithLabelValues("success"))

	ObserveRun("success", 250*time.Millisecond)

	after := testutil.ToFloat64(RunsTotal.WithLabelValues("success"))
	assert.Equal(t, before+1, after)
}

func TestStageAndAdapterCounters(t *testing.T) {
	RowsProcessed.WithLabelValues("clean").Add(42)
	SourceFailures.WithLabelValues("raw-csv").Inc()
	RowsLoaded.WithLabelValues("warehouse").Add(10)

	assert.GreaterOrEqual(t, testutil.ToFloat64(RowsProcessed.WithLabelValues("clean")), 42.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(SourceFailures.WithLabelValues("raw-csv")), 1.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(RowsLoaded.WithLabelValues("warehouse")), 10.0)
}

func TestTimerMeasuresElapsed(t *testing.T) {
	timer := NewTimer("test")
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, timer.Stop(), 5*time.Millisecond)
}
