// Package transform implements the cleaning and enrichment stages applied to
// a materialized record set between extraction and loading.
package transform

import (
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/strata-etl/strata/pkg/errors"
	"github.com/strata-etl/strata/pkg/logger"
	stringpool "github.com/strata-etl/strata/pkg/strings"
	"github.com/strata-etl/strata/pkg/table"
)

// TextMissingSentinel replaces missing values in text columns during
// imputation.
const TextMissingSentinel = "Unknown"

// CleanReport is the cleaning side channel: row counts before and after plus
// per-step activity, reported for observability rather than raised.
type CleanReport struct {
	RowsIn            int
	RowsOut           int
	DuplicatesRemoved int
	ValuesImputed     int
	OutliersRemoved   int
}

// Cleaner deduplicates, imputes missing values, and removes statistical
// outliers. Clean is deterministic for identical input and performs no I/O.
type Cleaner struct {
	logger *zap.Logger
}

// NewCleaner creates a cleaner.
func NewCleaner() *Cleaner {
	return &Cleaner{
		logger: logger.Get().With(zap.String("component", "cleaner")),
	}
}

// Clean runs deduplication, imputation, and sequential per-column IQR
// outlier removal. The input set is not modified. The only fatal path is a
// malformed numeric column; dirty-but-well-typed data is always absorbed.
func (c *Cleaner) Clean(set *table.RecordSet) (*table.RecordSet, CleanReport, error) {
	report := CleanReport{RowsIn: set.NumRows()}

	if err := table.ValidateNumeric(set); err != nil {
		return nil, report, errors.Wrap(err, errors.ErrorTypeCleaning, "cannot compute cleaning statistics")
	}

	out := c.deduplicate(set, &report)
	if err := c.impute(out, &report); err != nil {
		return nil, report, err
	}
	out, err := c.removeOutliers(out, &report)
	if err != nil {
		return nil, report, err
	}

	report.RowsOut = out.NumRows()
	c.logger.Info("data cleaning completed",
		zap.Int("rows_in", report.RowsIn),
		zap.Int("rows_out", report.RowsOut),
		zap.Int("duplicates_removed", report.DuplicatesRemoved),
		zap.Int("values_imputed", report.ValuesImputed),
		zap.Int("outliers_removed", report.OutliersRemoved))

	return out, report, nil
}

// deduplicate drops rows that are exact duplicates of an earlier row,
// keeping the first occurrence. Two missing markers in the same column count
// as equal.
func (c *Cleaner) deduplicate(set *table.RecordSet, report *CleanReport) *table.RecordSet {
	seen := make(map[string]struct{}, set.NumRows())
	columns := set.ColumnNames()

	out := set.Filter(func(rowIdx int) bool {
		key := rowKey(set, rowIdx, columns)
		if _, dup := seen[key]; dup {
			report.DuplicatesRemoved++
			return false
		}
		seen[key] = struct{}{}
		return true
	})
	return out
}

// rowKey builds a collision-safe fingerprint of a row's cells. Values are
// tagged by type and length-prefixed so "1"+"2" and "12" cannot collide.
func rowKey(set *table.RecordSet, rowIdx int, columns []string) string {
	builder := stringpool.GetBuilder(stringpool.Small)
	defer stringpool.PutBuilder(builder, stringpool.Small)

	for _, col := range columns {
		switch v := set.Value(rowIdx, col).(type) {
		case nil:
			builder.WriteString("_|")
		case float64:
			builder.WriteString("f")
			builder.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
			builder.WriteString("|")
		case string:
			builder.WriteString("s")
			builder.WriteString(strconv.Itoa(len(v)))
			builder.WriteString(":")
			builder.WriteString(v)
			builder.WriteString("|")
		case time.Time:
			builder.WriteString("t")
			builder.WriteString(v.UTC().Format(time.RFC3339Nano))
			builder.WriteString("|")
		default:
			builder.WriteString("?")
			builder.WriteString(stringpool.Sprintf("%v", v))
			builder.WriteString("|")
		}
	}
	return builder.String()
}

// impute fills missing numeric cells with the column median and missing text
// cells with the "Unknown" sentinel. A numeric column with zero non-missing
// values is skipped: its markers survive, a documented edge rather than an
// error.
func (c *Cleaner) impute(set *table.RecordSet, report *CleanReport) error {
	for _, column := range set.NumericColumns() {
		stats, err := table.ComputeStats(set, column)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeCleaning, "median computation failed").
				WithDetail("column", column)
		}
		if stats.Count == 0 {
			c.logger.Warn("numeric column entirely missing, imputation skipped",
				zap.String("column", column))
			continue
		}
		for i := 0; i < set.NumRows(); i++ {
			if set.Value(i, column) == nil {
				set.SetValue(i, column, stats.Median)
				report.ValuesImputed++
			}
		}
	}

	for _, column := range set.TextColumns() {
		for i := 0; i < set.NumRows(); i++ {
			if set.Value(i, column) == nil {
				set.SetValue(i, column, TextMissingSentinel)
				report.ValuesImputed++
			}
		}
	}
	return nil
}

// removeOutliers drops rows outside the IQR bounds of each numeric column,
// processing columns strictly in record-set column order. Each pass operates
// on the table as reduced by the previous passes, so a later column's bounds
// are computed over the already-filtered rows. That ordering dependency is
// part of the contract and must not be "fixed" by precomputing all bounds.
func (c *Cleaner) removeOutliers(set *table.RecordSet, report *CleanReport) (*table.RecordSet, error) {
	current := set
	for _, column := range current.NumericColumns() {
		stats, err := table.ComputeStats(current, column)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeCleaning, "outlier bounds computation failed").
				WithDetail("column", column)
		}
		if stats.Count == 0 {
			continue
		}

		lower, upper := stats.IQRBounds()
		col := column
		filtered := current.Filter(func(rowIdx int) bool {
			v, present, _ := current.NumericValue(rowIdx, col)
			if !present {
				// Only an all-missing column still has markers here; those
				// rows are not comparable and are retained.
				return true
			}
			keep := v >= lower && v <= upper
			if !keep {
				report.OutliersRemoved++
			}
			return keep
		})
		current = filtered
	}
	return current, nil
}
