// Package schedule drives recurring pipeline runs on a fixed interval. Runs
// are strictly serialized: a tick that fires while a previous run is still
// executing is skipped, never queued.
package schedule

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/strata-etl/strata/pkg/errors"
	"github.com/strata-etl/strata/pkg/logger"
	stringpool "github.com/strata-etl/strata/pkg/strings"
)

// RunFunc executes one pipeline run.
type RunFunc func(ctx context.Context) error

// Driver triggers a run function on a recurring interval.
type Driver struct {
	interval time.Duration
	run      RunFunc
	running  atomic.Bool
	logger   *zap.Logger
}

// NewDriver creates a driver that invokes run every interval.
func NewDriver(interval time.Duration, run RunFunc) (*Driver, error) {
	if interval <= 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "schedule interval must be positive").
			WithDetail("interval", interval.String())
	}
	return &Driver{
		interval: interval,
		run:      run,
		logger:   logger.Get().With(zap.String("component", "scheduler")),
	}, nil
}

// Start runs the schedule until ctx is cancelled. The first run fires on the
// first tick, not immediately. Run errors are logged; the schedule keeps
// going.
func (d *Driver) Start(ctx context.Context) error {
	c := cron.New()
	spec := stringpool.Sprintf("@every %s", d.interval)
	if _, err := c.AddFunc(spec, func() { d.tick(ctx) }); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to register schedule").
			WithDetail("spec", spec)
	}

	d.logger.Info("schedule started", zap.Duration("interval", d.interval))
	c.Start()

	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	d.logger.Info("schedule stopped")
	return nil
}

// tick executes one guarded run. Overlapping ticks are dropped.
func (d *Driver) tick(ctx context.Context) {
	if !d.running.CompareAndSwap(false, true) {
		d.logger.Warn("previous run still executing, skipping tick")
		return
	}
	defer d.running.Store(false)

	if err := d.run(ctx); err != nil {
		d.logger.Error("scheduled run failed", zap.Error(err))
	}
}
