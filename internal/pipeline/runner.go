package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/strata-etl/strata/pkg/config"
	"github.com/strata-etl/strata/pkg/connector/core"
	"github.com/strata-etl/strata/pkg/connector/registry"
	"github.com/strata-etl/strata/pkg/errors"
	"github.com/strata-etl/strata/pkg/logger"
	"github.com/strata-etl/strata/pkg/metrics"
	"github.com/strata-etl/strata/pkg/runlog"
	"github.com/strata-etl/strata/pkg/table"
	"github.com/strata-etl/strata/pkg/transform"
)

// State is the runner's position in the run lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateCollecting State = "collecting"
	StateCleaning   State = "cleaning"
	StateEnriching  State = "enriching"
	StateLoading    State = "loading"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Runner executes one pipeline run end to end: collect, clean, enrich, load,
// record the outcome.
type Runner struct {
	sources    []core.Source
	sinks      []core.Sink
	aggregator *Aggregator
	cleaner    *transform.Cleaner
	enricher   *transform.Enricher
	recorder   *runlog.Recorder
	logger     *zap.Logger

	mu    sync.RWMutex
	state State
}

// NewRunner creates a runner over explicit adapters. Used directly by tests;
// production code goes through FromConfig.
func NewRunner(sources []core.Source, sinks []core.Sink, recorder *runlog.Recorder) *Runner {
	log := logger.Get().With(zap.String("component", "runner"))
	return &Runner{
		sources:    sources,
		sinks:      sinks,
		aggregator: NewAggregator(log),
		cleaner:    transform.NewCleaner(),
		enricher:   transform.NewEnricher(),
		recorder:   recorder,
		logger:     log,
		state:      StateIdle,
	}
}

// FromConfig instantiates all configured adapters through the registry and
// wires them into a runner.
func FromConfig(cfg *config.Config) (*Runner, error) {
	sources := make([]core.Source, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		source, err := registry.CreateSource(sc)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}

	sinks := make([]core.Sink, 0, len(cfg.Targets))
	for _, tc := range cfg.Targets {
		sink, err := registry.CreateSink(tc)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
	}

	return NewRunner(sources, sinks, runlog.NewRecorder(cfg.MetricsPath)), nil
}

// State returns the runner's current lifecycle state.
func (r *Runner) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Run executes one full pipeline pass. Exactly one outcome record is appended
// whether the run succeeds or fails; the returned outcome mirrors it.
func (r *Runner) Run(ctx context.Context) (runlog.RunOutcome, error) {
	start := time.Now()
	timer := metrics.NewTimer("pipeline_run")
	r.logger.Info("pipeline run starting",
		zap.Int("sources", len(r.sources)),
		zap.Int("sinks", len(r.sinks)))

	rows, err := r.execute(ctx)
	finished := time.Now()

	outcome := runlog.NewOutcome(start, finished, rows, err)
	metrics.ObserveRun(string(outcome.Status), timer.Stop())
	if recordErr := r.recorder.Record(outcome); recordErr != nil {
		r.logger.Error("failed to record run outcome", zap.Error(recordErr))
	}

	if err != nil {
		r.setState(StateFailed)
		r.logger.Error("pipeline run failed",
			zap.Duration("duration", finished.Sub(start)),
			zap.Error(err))
		return outcome, err
	}

	r.setState(StateSucceeded)
	r.logger.Info("pipeline run succeeded",
		zap.Int("rows", rows),
		zap.Duration("duration", finished.Sub(start)))
	return outcome, nil
}

// execute walks the stages and returns the final row count.
func (r *Runner) execute(ctx context.Context) (int, error) {
	r.setState(StateCollecting)
	collected, results, err := r.aggregator.Collect(ctx, r.sources)
	if err != nil {
		return 0, err
	}
	for _, result := range results {
		if result.Err == nil {
			metrics.RowsProcessed.WithLabelValues("collect").Add(float64(result.Rows))
		}
	}

	r.setState(StateCleaning)
	cleaned, report, err := r.cleaner.Clean(collected)
	if err != nil {
		return 0, err
	}
	metrics.RowsProcessed.WithLabelValues("clean").Add(float64(cleaned.NumRows()))
	r.logger.Info("cleaning complete",
		zap.Int("rows_in", report.RowsIn),
		zap.Int("rows_out", report.RowsOut),
		zap.Int("duplicates_removed", report.DuplicatesRemoved),
		zap.Int("values_imputed", report.ValuesImputed),
		zap.Int("outliers_removed", report.OutliersRemoved))

	r.setState(StateEnriching)
	enriched, err := r.enricher.Enrich(cleaned)
	if err != nil {
		return 0, err
	}
	metrics.RowsProcessed.WithLabelValues("enrich").Add(float64(enriched.NumRows()))

	r.setState(StateLoading)
	for _, sink := range r.sinks {
		if err := r.load(ctx, sink, enriched); err != nil {
			return 0, err
		}
	}

	return enriched.NumRows(), nil
}

// load guards a single sink; any failure is fatal to the run.
func (r *Runner) load(ctx context.Context, sink core.Sink, set *table.RecordSet) error {
	defer func() {
		if err := sink.Close(ctx); err != nil {
			r.logger.Warn("failed to close sink",
				zap.String("sink", sink.Name()),
				zap.Error(err))
		}
	}()

	if err := sink.Load(ctx, set); err != nil {
		if errors.IsType(err, errors.ErrorTypeSink) || errors.IsType(err, errors.ErrorTypeFile) {
			return err
		}
		return errors.Wrap(err, errors.ErrorTypeSink, "sink load failed").
			WithDetail("sink", sink.Name())
	}

	metrics.RowsLoaded.WithLabelValues(sink.Name()).Add(float64(set.NumRows()))
	r.logger.Info("sink load complete",
		zap.String("sink", sink.Name()),
		zap.Int("rows", set.NumRows()))
	return nil
}
