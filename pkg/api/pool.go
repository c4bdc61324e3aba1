package api

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrPoolBusy is returned by the Try helpers when every slot is taken.
var ErrPoolBusy = errors.New("worker pool busy")

// lane is one bounded class of work.
type lane struct {
	sem    chan struct{}
	queued atomic.Int64
	active atomic.Int64
	total  atomic.Int64
}

func newLane(size int) *lane {
	return &lane{sem: make(chan struct{}, size)}
}

func (l *lane) acquire(ctx context.Context) error {
	l.queued.Add(1)
	defer l.queued.Add(-1)

	select {
	case l.sem <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *lane) tryAcquire() bool {
	select {
	case l.sem <- struct{}{}:
		l.active.Add(1)
		return true
	default:
		return false
	}
}

func (l *lane) release() {
	l.active.Add(-1)
	l.total.Add(1)
	<-l.sem
}

// WorkerPool bounds concurrent request processing. Game actions (roll,
// validate, move, legal) share the fast lane; self-play batches run in the
// slow lane so they cannot starve live games.
type WorkerPool struct {
	fast *lane
	slow *lane
}

// PoolConfig configures the worker pool.
type PoolConfig struct {
	MaxFastWorkers int // Max concurrent game actions (default: 100)
	MaxSlowWorkers int // Max concurrent self-play batches (default: 4)
}

// DefaultPoolConfig returns a PoolConfig with sensible defaults.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxFastWorkers: 100,
		MaxSlowWorkers: 4,
	}
}

// NewWorkerPool creates a new worker pool with the given configuration.
func NewWorkerPool(config PoolConfig) *WorkerPool {
	def := DefaultPoolConfig()
	if config.MaxFastWorkers <= 0 {
		config.MaxFastWorkers = def.MaxFastWorkers
	}
	if config.MaxSlowWorkers <= 0 {
		config.MaxSlowWorkers = def.MaxSlowWorkers
	}
	return &WorkerPool{
		fast: newLane(config.MaxFastWorkers),
		slow: newLane(config.MaxSlowWorkers),
	}
}

// AcquireFast waits for a game action slot.
func (p *WorkerPool) AcquireFast(ctx context.Context) error { return p.fast.acquire(ctx) }

// ReleaseFast returns a game action slot.
func (p *WorkerPool) ReleaseFast() { p.fast.release() }

// AcquireSlow waits for a self-play slot.
func (p *WorkerPool) AcquireSlow(ctx context.Context) error { return p.slow.acquire(ctx) }

// ReleaseSlow returns a self-play slot.
func (p *WorkerPool) ReleaseSlow() { p.slow.release() }

// TryAcquireFast takes a fast slot without blocking.
func (p *WorkerPool) TryAcquireFast() bool { return p.fast.tryAcquire() }

// TryAcquireSlow takes a slow slot without blocking.
func (p *WorkerPool) TryAcquireSlow() bool { return p.slow.tryAcquire() }

// RunFast runs fn holding a fast slot. A nil pool runs fn directly.
func (p *WorkerPool) RunFast(ctx context.Context, fn func() error) error {
	if p == nil {
		return fn()
	}
	if err := p.AcquireFast(ctx); err != nil {
		return err
	}
	defer p.ReleaseFast()
	return fn()
}

// TryRunSlow runs fn holding a slow slot, or returns ErrPoolBusy at once when
// the slow lane is full. A nil pool runs fn directly.
func (p *WorkerPool) TryRunSlow(fn func() error) error {
	if p == nil {
		return fn()
	}
	if !p.TryAcquireSlow() {
		return ErrPoolBusy
	}
	defer p.ReleaseSlow()
	return fn()
}

// PoolStats is a snapshot of pool usage.
type PoolStats struct {
	ActiveFast int64 `json:"active_fast"`
	ActiveSlow int64 `json:"active_slow"`
	QueuedFast int64 `json:"queued_fast"`
	QueuedSlow int64 `json:"queued_slow"`
	TotalFast  int64 `json:"total_fast"`
	TotalSlow  int64 `json:"total_slow"`
	MaxFast    int   `json:"max_fast"`
	MaxSlow    int   `json:"max_slow"`
}

// Stats returns current pool statistics.
func (p *WorkerPool) Stats() PoolStats {
	return PoolStats{
		ActiveFast: p.fast.active.Load(),
		ActiveSlow: p.slow.active.Load(),
		QueuedFast: p.fast.queued.Load(),
		QueuedSlow: p.slow.queued.Load(),
		TotalFast:  p.fast.total.Load(),
		TotalSlow:  p.slow.total.Load(),
		MaxFast:    cap(p.fast.sem),
		MaxSlow:    cap(p.slow.sem),
	}
}
