// Package sqlite provides the SQLite source adapter. Column types come from
// the driver's scanned Go values: integers and floats map to numeric columns,
// everything else is text.
package sqlite

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
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
	_ = registry.RegisterSource("sqlite", NewSource)
}

// Source reads rows from a SQLite table or query into a record set.
type Source struct {
	name   string
	path   string
	query  string
	db     *sql.DB
	logger *zap.Logger
}

// NewSource creates a SQLite source from adapter configuration. Either a
// "query" option or a "table" option must be present; "query" wins when both
// are set.
func NewSource(cfg config.AdapterConfig) (core.Source, error) {
	path, err := cfg.RequireOption("path")
	if err != nil {
		return nil, err
	}

	query := cfg.Option("query", "")
	if query == "" {
		tableName := cfg.Option("table", "")
		if tableName == "" {
			return nil, errors.New(errors.ErrorTypeConfig, "sqlite source requires a query or table option").
				WithDetail("adapter", cfg.Name)
		}
		query = stringpool.Sprintf("SELECT * FROM %q", tableName)
	}

	return &Source{
		name:   cfg.Name,
		path:   path,
		query:  query,
		logger: logger.Get().With(zap.String("source", cfg.Name), zap.String("path", path)),
	}, nil
}

// Name returns the adapter instance name.
func (s *Source) Name() string { return s.name }

// Extract runs the query and materializes every row.
func (s *Source) Extract(ctx context.Context) (*table.RecordSet, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to query SQLite").
			WithDetail("query", s.query)
	}
	defer func() { _ = rows.Close() }()

	columnNames, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to read result columns")
	}

	var raw [][]interface{}
	values := make([]interface{}, len(columnNames))
	scanArgs := make([]interface{}, len(columnNames))
	for i := range values {
		scanArgs[i] = &values[i]
	}
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeSource, "SQLite extraction cancelled")
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to scan SQLite row")
		}
		record := make([]interface{}, len(values))
		copy(record, values)
		raw = append(raw, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "SQLite row iteration failed")
	}

	set := table.New(sniffColumns(columnNames, raw)...)
	for _, record := range raw {
		row := make(table.Row, len(columnNames))
		for i, name := range columnNames {
			cell := convertCell(record[i])
			if cell == nil {
				continue // missing marker
			}
			row[name] = cell
		}
		set.Append(row)
	}

	s.logger.Info("extracted rows from SQLite", zap.Int("rows", set.NumRows()))
	return set, nil
}

// Close closes the database handle.
func (s *Source) Close(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to close SQLite database")
	}
	return nil
}

func (s *Source) open() (*sql.DB, error) {
	if s.db != nil {
		return s.db, nil
	}
	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to open SQLite database").
			WithDetail("path", s.path)
	}
	s.db = db
	return db, nil
}

// convertCell maps driver values to cell values: integers widen to float64,
// byte slices become strings, NULL stays the missing marker.
func convertCell(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case int64:
		return float64(val)
	case float64:
		return val
	case []byte:
		return string(val)
	case string:
		return val
	default:
		return stringpool.Sprintf("%v", val)
	}
}

// sniffColumns infers per-column types from scanned values: numeric when
// every non-NULL value is an integer or float and at least one is non-NULL.
func sniffColumns(names []string, raw [][]interface{}) []table.Column {
	columns := make([]table.Column, len(names))
	for i, name := range names {
		numeric := false
		for _, record := range raw {
			switch record[i].(type) {
			case nil:
				continue
			case int64, float64:
				numeric = true
			default:
				numeric = false
			}
			if !numeric {
				break
			}
		}
		colType := table.Text
		if numeric {
			colType = table.Numeric
		}
		columns[i] = table.Column{Name: name, Type: colType}
	}
	return columns
}
