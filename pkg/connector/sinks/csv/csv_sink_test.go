package csv

import (
	"bytes"
	"context"
	encodingcsv "encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-etl/strata/pkg/config"
	"github.com/strata-etl/strata/pkg/table"
)

func sampleSet(t *testing.T) *table.RecordSet {
	t.Helper()
	set := table.New(
		table.Column{Name: "name", Type: table.Text},
		table.Column{Name: "price", Type: table.Numeric},
		table.Column{Name: "processed_at", Type: table.Timestamp},
	)
	ts := time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)
	set.Append(table.Row{"name": "Widget", "price": 9.5, "processed_at": ts})
	set.Append(table.Row{"name": "Gadget", "price": nil, "processed_at": ts})
	return set
}

func TestLoadWritesHeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "products.csv")
	sink, err := NewSink(config.AdapterConfig{
		Name:    "test-csv",
		Type:    "csv",
		Options: map[string]string{"path": path},
	})
	require.NoError(t, err)

	require.NoError(t, sink.Load(context.Background(), sampleSet(t)))
	require.NoError(t, sink.Close(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	records, err := encodingcsv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"name", "price", "processed_at"}, records[0])
	assert.Equal(t, []string{"Widget", "9.5", "2026-08-25T10:30:00Z"}, records[1])
	assert.Equal(t, "", records[2][1])
}

func TestLoadCompressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.csv")
	sink, err := NewSink(config.AdapterConfig{
		Name:    "test-csv-gz",
		Type:    "csv",
		Options: map[string]string{"path": path, "compress": "true"},
	})
	require.NoError(t, err)

	require.NoError(t, sink.Load(context.Background(), sampleSet(t)))

	file, err := os.Open(path + ".gz")
	require.NoError(t, err)
	defer file.Close()

	gz, err := gzip.NewReader(file)
	require.NoError(t, err)

	records, err := encodingcsv.NewReader(gz).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestLoadReplacesPreviousContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.csv")
	sink, err := NewSink(config.AdapterConfig{
		Name:    "test-csv",
		Type:    "csv",
		Options: map[string]string{"path": path},
	})
	require.NoError(t, err)

	require.NoError(t, sink.Load(context.Background(), sampleSet(t)))

	small := table.New(table.Column{Name: "name", Type: table.Text})
	small.Append(table.Row{"name": "Only"})
	require.NoError(t, sink.Load(context.Background(), small))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	records, err := encodingcsv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"Only"}, records[1])
}

func TestNewSinkRequiresPath(t *testing.T) {
	_, err := NewSink(config.AdapterConfig{Name: "bad", Type: "csv"})
	assert.Error(t, err)
}
