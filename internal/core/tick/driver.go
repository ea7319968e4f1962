// Package tick drives the game loop at a fixed rate.
package tick

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/l1jgo/tickworld/internal/core/system"
	"go.uber.org/zap"
)

// DefaultPeriod is the length of one game tick.
const DefaultPeriod = 600 * time.Millisecond

const defaultPostQueue = 4096

var (
	// ErrTickInFlight is returned by Step while another Step is running.
	ErrTickInFlight = errors.New("tick already in flight")
	// ErrPostQueueFull is returned by Post when the driver is not keeping up.
	ErrPostQueueFull = errors.New("driver post queue full")
)

// Driver fires the system runner every period. Ticks are fixed-rate: a
// tick that overruns is followed immediately by the next one, and missed
// fires are dropped instead of stacking up.
type Driver struct {
	period time.Duration
	runner *system.Runner
	posts  chan func()
	log    *zap.Logger

	inFlight atomic.Bool
	ticks    atomic.Uint64
	overruns atomic.Uint64
	last     atomic.Int64 // duration of the last tick, ns
}

// New builds a driver. period <= 0 means DefaultPeriod.
func New(period time.Duration, runner *system.Runner, postQueue int, log *zap.Logger) *Driver {
	if period <= 0 {
		period = DefaultPeriod
	}
	if postQueue <= 0 {
		postQueue = defaultPostQueue
	}
	return &Driver{
		period: period,
		runner: runner,
		posts:  make(chan func(), postQueue),
		log:    log,
	}
}

func (d *Driver) Period() time.Duration { return d.period }

// Ticks returns the number of completed ticks.
func (d *Driver) Ticks() uint64 { return d.ticks.Load() }

// Overruns returns how many ticks took longer than the period.
func (d *Driver) Overruns() uint64 { return d.overruns.Load() }

// LastDuration is how long the most recent tick took.
func (d *Driver) LastDuration() time.Duration { return time.Duration(d.last.Load()) }

// Post queues fn to run on the driver goroutine at the start of the next
// tick, before any system. Safe from any goroutine.
func (d *Driver) Post(fn func()) error {
	select {
	case d.posts <- fn:
		return nil
	default:
		return ErrPostQueueFull
	}
}

// Run ticks until ctx is cancelled.
func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.period)
	defer ticker.Stop()

	d.log.Info("遊戲迴圈啟動", zap.Duration("period", d.period))
	for {
		select {
		case <-ctx.Done():
			d.log.Info("遊戲迴圈停止",
				zap.Uint64("ticks", d.Ticks()),
				zap.Uint64("overruns", d.Overruns()),
			)
			return nil
		case <-ticker.C:
			_ = d.Step()
		}
	}
}

// Step runs exactly one tick: posted work, then every system in phase
// order. A panic escaping a system is logged and returned; the driver stays
// usable.
func (d *Driver) Step() (err error) {
	if !d.inFlight.CompareAndSwap(false, true) {
		return ErrTickInFlight
	}
	defer d.inFlight.Store(false)

	start := time.Now()
	n := d.ticks.Load() + 1
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick %d: panic: %v", n, r)
			d.log.Error("tick 執行失敗", zap.Uint64("tick", n), zap.Error(err))
		}
		d.finish(n, time.Since(start))
	}()

	d.drainPosts()
	d.runner.Tick(d.period)
	return nil
}

func (d *Driver) finish(n uint64, elapsed time.Duration) {
	d.ticks.Store(n)
	d.last.Store(int64(elapsed))
	if elapsed <= d.period {
		return
	}
	total := d.overruns.Add(1)
	fields := []zap.Field{
		zap.Uint64("tick", n),
		zap.Duration("elapsed", elapsed),
		zap.Duration("period", d.period),
		zap.String("overruns", humanize.Comma(int64(total))),
	}
	if name, took, ok := d.runner.Slowest(); ok {
		fields = append(fields, zap.String("slowest", name), zap.Duration("slowest_elapsed", took))
	}
	d.log.Warn("tick 逾時", fields...)
}

// drainPosts runs what was queued before this tick started. Work posted
// by these closures waits for the next tick.
func (d *Driver) drainPosts() {
	for i, n := 0, len(d.posts); i < n; i++ {
		d.runPost(<-d.posts)
	}
}

func (d *Driver) runPost(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("投遞工作失敗", zap.Any("panic", r))
		}
	}()
	fn()
}
