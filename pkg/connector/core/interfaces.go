// Package core defines the adapter interfaces the pipeline consumes.
// Adapters are opaque producers and consumers of materialized record sets;
// all algorithmic work happens in the transform stage.
package core

import (
	"context"

	"github.com/strata-etl/strata/pkg/table"
)

// AdapterType distinguishes sources from sinks.
type AdapterType string

const (
	AdapterTypeSource AdapterType = "source"
	AdapterTypeSink   AdapterType = "sink"
)

// Source extracts one fully materialized record set per run. Extraction
// blocks for its duration; the context covers I/O cancellation only.
type Source interface {
	// Name identifies the adapter instance in logs and source results
	Name() string
	// Extract produces the source's rows as one in-memory record set
	Extract(ctx context.Context) (*table.RecordSet, error)
	// Close releases adapter resources
	Close(ctx context.Context) error
}

// Sink persists a record set. Any load failure is fatal to the run; unlike
// sources, sinks are not optional.
type Sink interface {
	// Name identifies the adapter instance in logs
	Name() string
	// Load writes the record set to the target
	Load(ctx context.Context, set *table.RecordSet) error
	// Close releases adapter resources
	Close(ctx context.Context) error
}
