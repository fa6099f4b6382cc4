// Package sqlite provides the SQLite sink adapter. Each load drops and
// recreates the target table, so the table always reflects the latest run.
package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

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
	_ = registry.RegisterSink("sqlite", NewSink)
}

// Sink writes a record set into a SQLite table.
type Sink struct {
	name      string
	path      string
	tableName string
	db        *sql.DB
	logger    *zap.Logger
}

// NewSink creates a SQLite sink from adapter configuration.
func NewSink(cfg config.AdapterConfig) (core.Sink, error) {
	path, err := cfg.RequireOption("path")
	if err != nil {
		return nil, err
	}
	tableName, err := cfg.RequireOption("table")
	if err != nil {
		return nil, err
	}
	return &Sink{
		name:      cfg.Name,
		path:      path,
		tableName: tableName,
		logger: logger.Get().With(
			zap.String("sink", cfg.Name),
			zap.String("path", path),
			zap.String("table", tableName)),
	}, nil
}

// Name returns the adapter instance name.
func (s *Sink) Name() string { return s.name }

// Load replaces the target table with the record set. All inserts run in a
// single transaction.
func (s *Sink) Load(ctx context.Context, set *table.RecordSet) error {
	db, err := s.open()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to begin SQLite transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, stringpool.Sprintf("DROP TABLE IF EXISTS %q", s.tableName)); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to drop SQLite table").
			WithDetail("table", s.tableName)
	}
	if _, err := tx.ExecContext(ctx, createStatement(s.tableName, set.Columns())); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to create SQLite table").
			WithDetail("table", s.tableName)
	}

	columns := set.ColumnNames()
	stmt, err := tx.PrepareContext(ctx, insertStatement(s.tableName, columns))
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to prepare SQLite insert")
	}
	defer func() { _ = stmt.Close() }()

	args := make([]interface{}, len(columns))
	for i := 0; i < set.NumRows(); i++ {
		for j, column := range columns {
			args[j] = bindCell(set.Value(i, column))
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return errors.Wrap(err, errors.ErrorTypeSink, "failed to insert SQLite row").
				WithDetail("row", i)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to commit SQLite transaction")
	}

	s.logger.Info("loaded rows to SQLite", zap.Int("rows", set.NumRows()))
	return nil
}

// Close closes the database handle.
func (s *Sink) Close(ctx context.Context) error {
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

func (s *Sink) open() (*sql.DB, error) {
	if s.db != nil {
		return s.db, nil
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create database directory")
		}
	}
	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to open SQLite database").
			WithDetail("path", s.path)
	}
	s.db = db
	return db, nil
}

func createStatement(tableName string, columns []table.Column) string {
	defs := make([]string, len(columns))
	for i, column := range columns {
		sqlType := "TEXT"
		if column.Type == table.Numeric {
			sqlType = "REAL"
		}
		defs[i] = stringpool.Sprintf("%q %s", column.Name, sqlType)
	}
	return stringpool.Sprintf("CREATE TABLE %q (%s)", tableName, strings.Join(defs, ", "))
}

func insertStatement(tableName string, columns []string) string {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, column := range columns {
		quoted[i] = stringpool.Sprintf("%q", column)
		placeholders[i] = "?"
	}
	return stringpool.Sprintf("INSERT INTO %q (%s) VALUES (%s)",
		tableName, strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
}

// bindCell maps a cell value to a driver argument. The missing marker binds
// as NULL; timestamps bind as ISO-8601 strings.
func bindCell(v interface{}) interface{} {
	if t, ok := v.(time.Time); ok {
		return t.Format(time.RFC3339Nano)
	}
	return v
}
