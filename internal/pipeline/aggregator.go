// Package pipeline provides the run orchestration engine, moving data from
// source adapters through cleaning and enrichment into sink adapters.
//
// A run walks a fixed set of stages. Individual source failures are absorbed
// so one unreachable feed does not starve the rest; every later failure is
// fatal to the run. Each run appends exactly one outcome record to the run
// log, success or not.
package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/strata-etl/strata/pkg/connector/core"
	"github.com/strata-etl/strata/pkg/errors"
	"github.com/strata-etl/strata/pkg/metrics"
	"github.com/strata-etl/strata/pkg/table"
)

// SourceResult describes one source's contribution to a collection pass.
type SourceResult struct {
	Source string
	Rows   int
	Err    error
}

// Aggregator collects record sets from multiple sources into one table.
type Aggregator struct {
	logger *zap.Logger
}

// NewAggregator creates an aggregator.
func NewAggregator(logger *zap.Logger) *Aggregator {
	return &Aggregator{logger: logger.With(zap.String("component", "aggregator"))}
}

// Collect extracts from every source in order and concatenates the results.
// A failed extraction is logged and skipped; the combined table carries the
// union of all columns with absent cells left missing. A no_data error is
// returned only when the source list is empty or every source failed; a
// source that succeeds with zero rows still contributes its columns and the
// run proceeds.
func (a *Aggregator) Collect(ctx context.Context, sources []core.Source) (*table.RecordSet, []SourceResult, error) {
	results := make([]SourceResult, 0, len(sources))
	var sets []*table.RecordSet

	for _, source := range sources {
		set, err := a.extract(ctx, source)
		result := SourceResult{Source: source.Name(), Err: err}
		if err != nil {
			metrics.SourceFailures.WithLabelValues(source.Name()).Inc()
			a.logger.Warn("source extraction failed, continuing",
				zap.String("source", source.Name()),
				zap.Error(err))
			results = append(results, result)
			continue
		}
		result.Rows = set.NumRows()
		results = append(results, result)
		sets = append(sets, set)
	}

	if len(sets) == 0 {
		return nil, results, errors.New(errors.ErrorTypeNoData, "no data available from any source").
			WithDetail("sources", len(sources))
	}

	combined := merge(sets)

	a.logger.Info("collected source data",
		zap.Int("sources", len(sources)),
		zap.Int("rows", combined.NumRows()))
	return combined, results, nil
}

// extract guards a single source; Close errors are logged, not propagated.
func (a *Aggregator) extract(ctx context.Context, source core.Source) (*table.RecordSet, error) {
	defer func() {
		if err := source.Close(ctx); err != nil {
			a.logger.Warn("failed to close source",
				zap.String("source", source.Name()),
				zap.Error(err))
		}
	}()

	set, err := source.Extract(ctx)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeSource) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrorTypeSource, "source extraction failed").
			WithDetail("source", source.Name())
	}
	return set, nil
}

// merge concatenates record sets over the union of their columns, first-seen
// order, filling absent cells with the missing marker.
func merge(sets []*table.RecordSet) *table.RecordSet {
	var columns []table.Column
	seen := make(map[string]bool)
	for _, set := range sets {
		for _, column := range set.Columns() {
			if !seen[column.Name] {
				seen[column.Name] = true
				columns = append(columns, column)
			}
		}
	}

	combined := table.New(columns...)
	for _, set := range sets {
		for i := 0; i < set.NumRows(); i++ {
			combined.Append(set.Row(i))
		}
	}
	return combined
}
