// Package jsonfile provides the JSON file sink adapter. Output is a JSON
// array of row objects with timestamps rendered as ISO-8601 strings.
package jsonfile

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/strata-etl/strata/pkg/config"
	"github.com/strata-etl/strata/pkg/connector/core"
	"github.com/strata-etl/strata/pkg/connector/registry"
	"github.com/strata-etl/strata/pkg/errors"
	"github.com/strata-etl/strata/pkg/json"
	"github.com/strata-etl/strata/pkg/logger"
	"github.com/strata-etl/strata/pkg/table"
)

func init() {
	_ = registry.RegisterSink("jsonfile", NewSink)
}

// Sink writes a record set as a JSON array of objects, replacing the
// previous file contents.
type Sink struct {
	name     string
	path     string
	compress bool
	logger   *zap.Logger
}

// NewSink creates a JSON file sink from adapter configuration.
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

// Load writes all rows as one JSON array.
func (s *Sink) Load(ctx context.Context, set *table.RecordSet) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "JSON load cancelled")
	}

	columns := set.ColumnNames()
	rows := make([]map[string]interface{}, 0, set.NumRows())
	for i := 0; i < set.NumRows(); i++ {
		row := make(map[string]interface{}, len(columns))
		for _, column := range columns {
			row[column] = encodeCell(set.Value(i, column))
		}
		rows = append(rows, row)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create output directory")
	}

	file, err := os.Create(s.path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create JSON file").
			WithDetail("path", s.path)
	}
	defer func() { _ = file.Close() }()

	var out io.Writer = file
	var gz *gzip.Writer
	if s.compress {
		gz = gzip.NewWriter(file)
		out = gz
	}

	if err := json.EncodeTo(out, rows); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to write JSON file")
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeSink, "failed to finalize gzip stream")
		}
	}

	s.logger.Info("loaded rows to JSON", zap.Int("rows", set.NumRows()))
	return nil
}

// Close releases resources; file handles never outlive Load.
func (s *Sink) Close(ctx context.Context) error { return nil }

// encodeCell renders a cell for JSON output. The missing marker becomes
// null; timestamps become ISO-8601 strings.
func encodeCell(v interface{}) interface{} {
	if t, ok := v.(time.Time); ok {
		return t.Format(time.RFC3339Nano)
	}
	return v
}
