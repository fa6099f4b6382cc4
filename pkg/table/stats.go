package table

import (
	"math"
	"sort"

	"github.com/strata-etl/strata/pkg/errors"
)

// ColumnStats holds the per-column quartiles used for imputation and outlier
// bounds. Stats are derived fresh from the current record set each run and
// never persisted.
type ColumnStats struct {
	Q1     float64
	Median float64
	Q3     float64
	Count  int // non-missing values the stats were computed over
}

// IQRBounds returns the [Q1 - 1.5*IQR, Q3 + 1.5*IQR] outlier bounds.
func (cs ColumnStats) IQRBounds() (lower, upper float64) {
	iqr := cs.Q3 - cs.Q1
	return cs.Q1 - 1.5*iqr, cs.Q3 + 1.5*iqr
}

// ComputeStats derives quartile stats for a numeric column over its
// non-missing values. A column with zero non-missing values yields
// Count == 0 and zero quartiles. A malformed cell is a data error.
func ComputeStats(s *RecordSet, column string) (ColumnStats, error) {
	values := make([]float64, 0, s.NumRows())
	for i := 0; i < s.NumRows(); i++ {
		v, present, err := s.NumericValue(i, column)
		if err != nil {
			return ColumnStats{}, err
		}
		if present {
			values = append(values, v)
		}
	}

	if len(values) == 0 {
		return ColumnStats{}, nil
	}

	sort.Float64s(values)
	return ColumnStats{
		Q1:     quantile(values, 0.25),
		Median: quantile(values, 0.5),
		Q3:     quantile(values, 0.75),
		Count:  len(values),
	}, nil
}

// quantile computes the q-th quantile of sorted values using linear
// interpolation between closest ranks.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}

	pos := q * float64(n-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// ValidateNumeric scans every numeric column for malformed cells so a clean
// run fails up front instead of mid-pass.
func ValidateNumeric(s *RecordSet) error {
	for _, column := range s.NumericColumns() {
		for i := 0; i < s.NumRows(); i++ {
			if _, _, err := s.NumericValue(i, column); err != nil {
				return errors.Wrap(err, errors.ErrorTypeData, "numeric column validation failed").
					WithDetail("column", column)
			}
		}
	}
	return nil
}
