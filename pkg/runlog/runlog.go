// Package runlog persists per-run outcome records to an append-only JSON
// array on disk so failures are observable without reading logs.
package runlog

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/strata-etl/strata/pkg/errors"
	"github.com/strata-etl/strata/pkg/json"
	"github.com/strata-etl/strata/pkg/logger"
)

// Status is the terminal state of a run.
type Status string

const (
	// StatusSuccess marks a run that loaded all sinks
	StatusSuccess Status = "success"
	// StatusFailed marks a run aborted by a fatal stage error
	StatusFailed Status = "failed"
)

// RunOutcome is one immutable entry of the metrics log. It is finalized
// exactly once per run and never mutated after append.
type RunOutcome struct {
	ExecutionTime float64 `json:"execution_time"` // seconds
	RowsProcessed int     `json:"rows_processed"`
	StartTime     string  `json:"start_time"` // ISO-8601
	EndTime       string  `json:"end_time"`   // ISO-8601
	Status        Status  `json:"status"`
	Error         string  `json:"error,omitempty"`
}

// NewOutcome builds a finalized outcome from run timing and result.
func NewOutcome(startedAt, finishedAt time.Time, rowsProcessed int, runErr error) RunOutcome {
	outcome := RunOutcome{
		ExecutionTime: finishedAt.Sub(startedAt).Seconds(),
		RowsProcessed: rowsProcessed,
		StartTime:     startedAt.Format(time.RFC3339Nano),
		EndTime:       finishedAt.Format(time.RFC3339Nano),
		Status:        StatusSuccess,
	}
	if runErr != nil {
		outcome.Status = StatusFailed
		outcome.RowsProcessed = 0
		outcome.Error = runErr.Error()
	}
	return outcome
}

// Recorder appends outcomes to a JSON array file. The file is opened,
// rewritten, and closed within a single Record call; no handle is held
// across runs. Concurrent writers are out of scope (single process).
type Recorder struct {
	path   string
	logger *zap.Logger
}

// NewRecorder creates a recorder for the given metrics file path.
func NewRecorder(path string) *Recorder {
	return &Recorder{
		path:   path,
		logger: logger.Get().With(zap.String("component", "runlog"), zap.String("path", path)),
	}
}

// Record appends one outcome, rewriting the whole array. A missing or
// corrupt existing file is treated as empty; corruption is swallowed, not
// surfaced, so a damaged log never blocks metrics for new runs.
func (r *Recorder) Record(outcome RunOutcome) error {
	existing := r.readExisting()
	existing = append(existing, outcome)

	data, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode metrics log")
	}

	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to create metrics directory").
				WithDetail("dir", dir)
		}
	}

	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write metrics log")
	}

	r.logger.Debug("run outcome recorded",
		zap.String("status", string(outcome.Status)),
		zap.Int("rows_processed", outcome.RowsProcessed))
	return nil
}

// Read returns the recorded outcomes, oldest first. Missing or corrupt files
// read as empty.
func (r *Recorder) Read() []RunOutcome {
	return r.readExisting()
}

func (r *Recorder) readExisting() []RunOutcome {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil
	}

	var outcomes []RunOutcome
	if err := json.Unmarshal(data, &outcomes); err != nil {
		r.logger.Warn("metrics log unreadable, starting fresh", zap.Error(err))
		return nil
	}
	return outcomes
}
