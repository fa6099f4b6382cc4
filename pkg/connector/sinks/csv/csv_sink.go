// Package csv provides the CSV file sink adapter with optional gzip
// compression.
package csv

import (
	"context"
	encodingcsv "encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/strata-etl/strata/pkg/config"
	"github.com/strata-etl/strata/pkg/connector/core"
	"github.com/strata-etl/strata/pkg/connector/registry"
	"github.com/strata-etl/strata/pkg/errors"
	"github.com/strata-etl/strata/pkg/logger"
	"github.com/strata-etl/strata/pkg/table"
)

func init() {
	_ = registry.RegisterSink("csv", NewSink)
}

// Sink writes a record set to a CSV file, replacing the previous contents.
type Sink struct {
	name     string
	path     string
	compress bool
	logger   *zap.Logger
}

// NewSink creates a CSV sink from adapter configuration.
func NewSink(cfg config.AdapterConfig) (core.Sink, error) {
	path, err := cfg.RequireOption("path")
	if err != nil {
		return nil, err
	}
	sink := &Sink{
		name:     cfg.Name,
		path:     path,
		compress: cfg.Option("compress", "false") == "true",
		logger:   logger.Get().With(zap.String("sink", cfg.Name), zap.String("path", path)),
	}
	if sink.compress && !strings.HasSuffix(sink.path, ".gz") {
		sink.path += ".gz"
	}
	return sink, nil
}

// Name returns the adapter instance name.
func (s *Sink) Name() string { return s.name }

// Load writes the full record set, header first.
func (s *Sink) Load(ctx context.Context, set *table.RecordSet) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create output directory")
	}

	file, err := os.Create(s.path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create CSV file").
			WithDetail("path", s.path)
	}
	defer func() { _ = file.Close() }()

	var out io.Writer = file
	var gz *gzip.Writer
	if s.compress {
		gz = gzip.NewWriter(file)
		out = gz
	}

	writer := encodingcsv.NewWriter(out)
	columns := set.ColumnNames()
	if err := writer.Write(columns); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to write CSV header")
	}

	record := make([]string, len(columns))
	for i := 0; i < set.NumRows(); i++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeSink, "CSV load cancelled")
		}
		for j, column := range columns {
			record[j] = formatCell(set.Value(i, column))
		}
		if err := writer.Write(record); err != nil {
			return errors.Wrap(err, errors.ErrorTypeSink, "failed to write CSV row").
				WithDetail("row", i)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to flush CSV writer")
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeSink, "failed to finalize gzip stream")
		}
	}

	s.logger.Info("loaded rows to CSV", zap.Int("rows", set.NumRows()))
	return nil
}

// Close releases resources; file handles never outlive Load.
func (s *Sink) Close(ctx context.Context) error { return nil }

// formatCell renders a cell for CSV output. The missing marker becomes an
// empty field.
func formatCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case string:
		return val
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return ""
	}
}
