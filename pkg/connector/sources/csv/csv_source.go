// Package csv provides the CSV file source adapter. Column types are
// sniffed from the data: a column whose non-empty cells all parse as numbers
// becomes numeric, everything else is text. Empty cells are the missing
// marker.
package csv

import (
	"context"
	encodingcsv "encoding/csv"
	"io"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/strata-etl/strata/pkg/config"
	"github.com/strata-etl/strata/pkg/connector/core"
	"github.com/strata-etl/strata/pkg/connector/registry"
	"github.com/strata-etl/strata/pkg/errors"
	"github.com/strata-etl/strata/pkg/logger"
	stringpool "github.com/strata-etl/strata/pkg/strings"
	"github.com/strata-etl/strata/pkg/table"
)

func init() {
	_ = registry.RegisterSource("csv", NewSource)
}

// Source reads a whole CSV file into a record set.
type Source struct {
	name      string
	path      string
	hasHeader bool
	logger    *zap.Logger
}

// NewSource creates a CSV source from adapter configuration.
func NewSource(cfg config.AdapterConfig) (core.Source, error) {
	path, err := cfg.RequireOption("path")
	if err != nil {
		return nil, err
	}
	return &Source{
		name:      cfg.Name,
		path:      path,
		hasHeader: cfg.Option("has_header", "true") == "true",
		logger:    logger.Get().With(zap.String("source", cfg.Name), zap.String("path", path)),
	}, nil
}

// Name returns the adapter instance name.
func (s *Source) Name() string { return s.name }

// Extract reads and materializes the full file.
func (s *Source) Extract(ctx context.Context) (*table.RecordSet, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open CSV file").
			WithDetail("path", s.path)
	}
	defer func() { _ = file.Close() }()

	reader := encodingcsv.NewReader(file)
	reader.FieldsPerRecord = -1

	var records [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeSource, "CSV extraction cancelled")
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read CSV record").
				WithDetail("path", s.path)
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return table.New(), nil
	}

	header, rows := s.splitHeader(records)
	set := table.New(sniffColumns(header, rows)...)
	for _, raw := range rows {
		row := make(table.Row, len(header))
		for i, name := range header {
			if i >= len(raw) || raw[i] == "" {
				continue // missing marker
			}
			colType, _ := set.ColumnType(name)
			if colType == table.Numeric {
				v, _ := strconv.ParseFloat(raw[i], 64)
				row[name] = v
			} else {
				row[name] = raw[i]
			}
		}
		set.Append(row)
	}

	s.logger.Info("extracted rows from CSV", zap.Int("rows", set.NumRows()))
	return set, nil
}

// Close releases resources; the file handle never outlives Extract.
func (s *Source) Close(ctx context.Context) error { return nil }

func (s *Source) splitHeader(records [][]string) (header []string, rows [][]string) {
	if s.hasHeader {
		return records[0], records[1:]
	}

	header = make([]string, len(records[0]))
	for i := range header {
		header[i] = stringpool.Sprintf("column_%d", i+1)
	}
	return header, records
}

// sniffColumns infers per-column types: numeric when every non-empty cell
// parses as a float and at least one cell is non-empty, text otherwise.
func sniffColumns(header []string, rows [][]string) []table.Column {
	columns := make([]table.Column, len(header))
	for i, name := range header {
		numeric := false
		for _, raw := range rows {
			if i >= len(raw) || raw[i] == "" {
				continue
			}
			if _, err := strconv.ParseFloat(raw[i], 64); err != nil {
				numeric = false
				break
			}
			numeric = true
		}
		colType := table.Text
		if numeric {
			colType = table.Numeric
		}
		columns[i] = table.Column{Name: name, Type: colType}
	}
	return columns
}
