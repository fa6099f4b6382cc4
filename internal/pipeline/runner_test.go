package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-etl/strata/pkg/connector/core"
	"github.com/strata-etl/strata/pkg/errors"
	"github.com/strata-etl/strata/pkg/runlog"
	"github.com/strata-etl/strata/pkg/table"
	"github.com/strata-etl/strata/pkg/transform"
)

type stubSource struct {
	name string
	set  *table.RecordSet
	err  error
}

func (s *stubSource) Name() string { return s.name }
func (s *stubSource) Extract(ctx context.Context) (*table.RecordSet, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.set, nil
}
func (s *stubSource) Close(ctx context.Context) error { return nil }

type stubSink struct {
	name   string
	err    error
	loaded *table.RecordSet
	calls  int
}

func (s *stubSink) Name() string { return s.name }
func (s *stubSink) Load(ctx context.Context, set *table.RecordSet) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.loaded = set
	return nil
}
func (s *stubSink) Close(ctx context.Context) error { return nil }

func productSet(t *testing.T) *table.RecordSet {
	t.Helper()
	set := table.New(
		table.Column{Name: "name", Type: table.Text},
		table.Column{Name: "price", Type: table.Numeric},
	)
	set.Append(table.Row{"name": "widget", "price": 30.0})
	set.Append(table.Row{"name": "widget", "price": 30.0})
	set.Append(table.Row{"name": "gadget", "price": 120.0})
	set.Append(table.Row{"name": "gizmo", "price": nil})
	return set
}

func newTestRunner(t *testing.T, sources []*stubSource, sinks []*stubSink) (*Runner, *runlog.Recorder) {
	t.Helper()
	recorder := runlog.NewRecorder(filepath.Join(t.TempDir(), "metrics.json"))

	coreSources := make([]core.Source, 0, len(sources))
	for _, s := range sources {
		coreSources = append(coreSources, s)
	}
	coreSinks := make([]core.Sink, 0, len(sinks))
	for _, s := range sinks {
		coreSinks = append(coreSinks, s)
	}
	return NewRunner(coreSources, coreSinks, recorder), recorder
}

func TestRunSuccess(t *testing.T) {
	sink := &stubSink{name: "out"}
	runner, recorder := newTestRunner(t,
		[]*stubSource{{name: "src", set: productSet(t)}},
		[]*stubSink{sink})

	outcome, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, runlog.StatusSuccess, outcome.Status)
	assert.Equal(t, 3, outcome.RowsProcessed)
	assert.Equal(t, StateSucceeded, runner.State())

	require.NotNil(t, sink.loaded)
	assert.Equal(t, 3, sink.loaded.NumRows())
	assert.True(t, sink.loaded.HasColumn(transform.PriceCategoryCol))
	assert.True(t, sink.loaded.HasColumn(transform.ProcessedAtColumn))

	records := recorder.Read()
	require.Len(t, records, 1)
	assert.Equal(t, runlog.StatusSuccess, records[0].Status)
}

func TestRunToleratesPartialSourceFailure(t *testing.T) {
	failing := &stubSource{name: "down", err: errors.New(errors.ErrorTypeSource, "connection refused")}
	working := &stubSource{name: "up", set: productSet(t)}
	sink := &stubSink{name: "out"}
	runner, _ := newTestRunner(t, []*stubSource{failing, working}, []*stubSink{sink})

	outcome, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, runlog.StatusSuccess, outcome.Status)
	assert.Equal(t, 3, outcome.RowsProcessed)
}

func TestRunFailsWhenAllSourcesFail(t *testing.T) {
	runner, recorder := newTestRunner(t,
		[]*stubSource{
			{name: "a", err: errors.New(errors.ErrorTypeSource, "timeout")},
			{name: "b", err: errors.New(errors.ErrorTypeSource, "refused")},
		},
		[]*stubSink{{name: "out"}})

	outcome, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNoData))

	assert.Equal(t, runlog.StatusFailed, outcome.Status)
	assert.Equal(t, 0, outcome.RowsProcessed)
	assert.Equal(t, StateFailed, runner.State())

	records := recorder.Read()
	require.Len(t, records, 1)
	assert.Equal(t, runlog.StatusFailed, records[0].Status)
	assert.NotEmpty(t, records[0].Error)
}

func TestRunFailsOnSinkError(t *testing.T) {
	good := &stubSink{name: "good"}
	bad := &stubSink{name: "bad", err: errors.New(errors.ErrorTypeSink, "disk full")}
	runner, recorder := newTestRunner(t,
		[]*stubSource{{name: "src", set: productSet(t)}},
		[]*stubSink{good, bad})

	outcome, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSink))

	assert.Equal(t, runlog.StatusFailed, outcome.Status)
	assert.Equal(t, 0, outcome.RowsProcessed)
	assert.Equal(t, 1, good.calls)
	assert.Equal(t, 1, bad.calls)

	records := recorder.Read()
	require.Len(t, records, 1)
	assert.Contains(t, records[0].Error, "disk full")
}

func TestRunAppendsOneRecordPerInvocation(t *testing.T) {
	runner, recorder := newTestRunner(t,
		[]*stubSource{{name: "src", set: productSet(t)}},
		[]*stubSink{{name: "out"}})

	for i := 0; i < 3; i++ {
		_, err := runner.Run(context.Background())
		require.NoError(t, err)
	}

	assert.Len(t, recorder.Read(), 3)
}

func TestCollectEmptySuccessfulSourceIsNotNoData(t *testing.T) {
	empty := table.New(
		table.Column{Name: "name", Type: table.Text},
		table.Column{Name: "price", Type: table.Numeric},
	)
	runner, _ := newTestRunner(t,
		[]*stubSource{{name: "empty", set: empty}},
		[]*stubSink{{name: "out"}})

	combined, results, err := runner.aggregator.Collect(context.Background(), runner.sources)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)

	assert.Equal(t, 0, combined.NumRows())
	assert.Equal(t, []string{"name", "price"}, combined.ColumnNames())
}

func TestRunSucceedsWithEmptySource(t *testing.T) {
	empty := table.New(
		table.Column{Name: "name", Type: table.Text},
		table.Column{Name: "price", Type: table.Numeric},
	)
	sink := &stubSink{name: "out"}
	runner, recorder := newTestRunner(t,
		[]*stubSource{{name: "empty", set: empty}},
		[]*stubSink{sink})

	outcome, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, runlog.StatusSuccess, outcome.Status)
	assert.Equal(t, 0, outcome.RowsProcessed)
	require.NotNil(t, sink.loaded)
	assert.Equal(t, 0, sink.loaded.NumRows())

	records := recorder.Read()
	require.Len(t, records, 1)
	assert.Equal(t, runlog.StatusSuccess, records[0].Status)
}

func TestCollectMergesColumnUnion(t *testing.T) {
	first := table.New(
		table.Column{Name: "name", Type: table.Text},
		table.Column{Name: "price", Type: table.Numeric},
	)
	first.Append(table.Row{"name": "widget", "price": 10.0})

	second := table.New(
		table.Column{Name: "name", Type: table.Text},
		table.Column{Name: "stock", Type: table.Numeric},
	)
	second.Append(table.Row{"name": "gadget", "stock": 7.0})

	runner, _ := newTestRunner(t,
		[]*stubSource{{name: "a", set: first}, {name: "b", set: second}},
		[]*stubSink{{name: "out"}})

	combined, results, err := runner.aggregator.Collect(context.Background(),
		runner.sources)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, []string{"name", "price", "stock"}, combined.ColumnNames())
	require.Equal(t, 2, combined.NumRows())
	assert.Nil(t, combined.Value(0, "stock"))
	assert.Nil(t, combined.Value(1, "price"))
}
