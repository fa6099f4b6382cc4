package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-etl/strata/pkg/errors"
	"github.com/strata-etl/strata/pkg/table"
)

func TestCleanDeduplicatesKeepingFirst(t *testing.T) {
	set := table.New(
		table.Column{Name: "id", Type: table.Numeric},
		table.Column{Name: "name", Type: table.Text},
	)
	set.Append(table.Row{"id": 1.0, "name": "a"})
	set.Append(table.Row{"id": 1.0, "name": "a"})
	set.Append(table.Row{"id": 2.0, "name": "b"})
	set.Append(table.Row{"id": 1.0, "name": "a"})

	out, report, err := NewCleaner().Clean(set)
	require.NoError(t, err)

	assert.Equal(t, 2, out.NumRows())
	assert.Equal(t, 2, report.DuplicatesRemoved)
	assert.Equal(t, 1.0, out.Value(0, "id"), "first occurrence survives")
	assert.Equal(t, 2.0, out.Value(1, "id"))
}

func TestCleanDeduplicatesNullAware(t *testing.T) {
	set := table.New(
		table.Column{Name: "id", Type: table.Numeric},
		table.Column{Name: "note", Type: table.Text},
	)
	// Matching missing markers count as equal for duplicate purposes. The
	// missing note is later imputed, but dedup runs first.
	set.Append(table.Row{"id": 1.0, "note": nil})
	set.Append(table.Row{"id": 1.0, "note": nil})

	out, report, err := NewCleaner().Clean(set)
	require.NoError(t, err)
	assert.Equal(t, 1, out.NumRows())
	assert.Equal(t, 1, report.DuplicatesRemoved)
}

func TestCleanImputesMedianAndSentinel(t *testing.T) {
	set := table.New(
		table.Column{Name: "qty", Type: table.Numeric},
		table.Column{Name: "name", Type: table.Text},
	)
	set.Append(table.Row{"qty": 10.0, "name": "a"})
	set.Append(table.Row{"qty": nil, "name": nil})
	set.Append(table.Row{"qty": 20.0, "name": "c"})
	set.Append(table.Row{"qty": 30.0, "name": "d"})

	out, report, err := NewCleaner().Clean(set)
	require.NoError(t, err)

	assert.Equal(t, 20.0, out.Value(1, "qty"), "missing numeric becomes the column median")
	assert.Equal(t, TextMissingSentinel, out.Value(1, "name"))
	assert.Equal(t, 2, report.ValuesImputed)

	for i := 0; i < out.NumRows(); i++ {
		assert.NotNil(t, out.Value(i, "qty"))
		assert.NotNil(t, out.Value(i, "name"))
	}
}

func TestCleanSkipsAllMissingNumericColumn(t *testing.T) {
	set := table.New(
		table.Column{Name: "id", Type: table.Numeric},
		table.Column{Name: "ghost", Type: table.Numeric},
	)
	set.Append(table.Row{"id": 1.0, "ghost": nil})
	set.Append(table.Row{"id": 2.0, "ghost": nil})

	out, _, err := NewCleaner().Clean(set)
	require.NoError(t, err)

	// No median exists, so the markers remain and the rows survive.
	assert.Equal(t, 2, out.NumRows())
	assert.Nil(t, out.Value(0, "ghost"))
	assert.Nil(t, out.Value(1, "ghost"))
}

func TestCleanRemovesOutliers(t *testing.T) {
	set := table.New(table.Column{Name: "v", Type: table.Numeric})
	for _, v := range []float64{10, 11, 12, 13, 14, 1000} {
		set.Append(table.Row{"v": v})
	}

	out, report, err := NewCleaner().Clean(set)
	require.NoError(t, err)
	assert.Equal(t, 5, out.NumRows())
	assert.Equal(t, 1, report.OutliersRemoved)
	for i := 0; i < out.NumRows(); i++ {
		assert.Less(t, out.Value(i, "v").(float64), 100.0)
	}
}

// The outlier pass handles numeric columns sequentially, recomputing bounds
// on the table as already reduced by earlier columns. Reversing the column
// order must therefore be able to change how many rows survive.
func TestCleanOutlierOrderDependency(t *testing.T) {
	rows := []struct{ c1, c2 float64 }{
		{10, 10},
		{10, 12},
		{11, 11},
		{10, 13},
		{1000, 100},
		{11, 40},
	}

	forward := table.New(
		table.Column{Name: "c1", Type: table.Numeric},
		table.Column{Name: "c2", Type: table.Numeric},
	)
	reversed := table.New(
		table.Column{Name: "c2", Type: table.Numeric},
		table.Column{Name: "c1", Type: table.Numeric},
	)
	for _, r := range rows {
		forward.Append(table.Row{"c1": r.c1, "c2": r.c2})
		reversed.Append(table.Row{"c1": r.c1, "c2": r.c2})
	}

	outForward, _, err := NewCleaner().Clean(forward)
	require.NoError(t, err)
	outReversed, _, err := NewCleaner().Clean(reversed)
	require.NoError(t, err)

	// c1 first: the c1 outlier row goes, then c2's tightened bounds also
	// drop the c2=40 row. c2 first: inflated bounds keep c2=40, and the
	// later c1 pass no longer rejects it.
	assert.Equal(t, 4, outForward.NumRows())
	assert.Equal(t, 5, outReversed.NumRows())
}

func TestCleanMalformedNumericColumnFails(t *testing.T) {
	set := table.New(table.Column{Name: "v", Type: table.Numeric})
	set.Append(table.Row{"v": 1.0})
	set.Append(table.Row{"v": "not-a-number"})

	_, _, err := NewCleaner().Clean(set)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeCleaning))
	assert.True(t, errors.IsFatal(err))
}

func TestCleanEmptySet(t *testing.T) {
	set := table.New(table.Column{Name: "v", Type: table.Numeric})
	out, report, err := NewCleaner().Clean(set)
	require.NoError(t, err)
	assert.Equal(t, 0, out.NumRows())
	assert.Equal(t, 0, report.RowsIn)
	assert.Equal(t, 0, report.RowsOut)
}

func TestCleanDoesNotMutateInput(t *testing.T) {
	set := table.New(table.Column{Name: "v", Type: table.Numeric})
	set.Append(table.Row{"v": nil})
	set.Append(table.Row{"v": 5.0})
	set.Append(table.Row{"v": 7.0})

	_, _, err := NewCleaner().Clean(set)
	require.NoError(t, err)
	assert.Nil(t, set.Value(0, "v"), "caller's copy must stay untouched")
}
