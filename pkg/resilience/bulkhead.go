package resilience

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"ferrocp/pkg/helper/log"
)

// BulkheadSettings bounds how many operations a Bulkhead admits at once and
// how many more it will let wait behind them.
type BulkheadSettings struct {
	MaxConcurrent int64
	MaxQueueDepth int
	Timeout       time.Duration
}

// DefaultBulkheadSettings returns a moderate concurrency cap suitable for a
// single engine's copy operations.
func DefaultBulkheadSettings() BulkheadSettings {
	return BulkheadSettings{
		MaxConcurrent: 100,
		MaxQueueDepth: 500,
		Timeout:       30 * time.Second,
	}
}

// Bulkhead isolates a resource behind a fixed concurrency limit and a bounded
// waiting queue, so a burst of callers degrades by rejection rather than by
// unbounded goroutine growth.
type Bulkhead struct {
	name     string
	settings BulkheadSettings
	sem      *semaphore.Weighted
	queue    chan struct{}
	logger   log.Logger
	stats    bulkheadStats
}

type bulkheadStats struct {
	executions atomic.Int64
	rejections atomic.Int64
	timeouts   atomic.Int64
	active     atomic.Int64
	queued     atomic.Int64
}

// NewBulkhead creates a Bulkhead named name enforcing settings.
func NewBulkhead(name string, settings BulkheadSettings, logger log.Logger) *Bulkhead {
	if logger == nil {
		logger = log.NewBasicLogger(log.InfoLevel)
	}

	return &Bulkhead{
		name:     name,
		settings: settings,
		sem:      semaphore.NewWeighted(settings.MaxConcurrent),
		queue:    make(chan struct{}, settings.MaxQueueDepth),
		logger:   logger,
	}
}

// Execute waits for a queue slot and a concurrency permit, then runs fn. It
// returns an error without calling fn if the queue is full, or if a permit
// couldn't be acquired before ctx (or settings.Timeout) expired.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	select {
	case b.queue <- struct{}{}:
		b.stats.queued.Add(1)
		defer func() {
			<-b.queue
			b.stats.queued.Add(-1)
		}()
	default:
		b.stats.rejections.Add(1)
		b.logger.WithFields(map[string]interface{}{"bulkhead": b.name}).Warn("bulkhead queue full, rejecting request")
		return fmt.Errorf("bulkhead %q queue full", b.name)
	}

	acquireCtx := ctx
	if b.settings.Timeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, b.settings.Timeout)
		defer cancel()
	}

	if err := b.sem.Acquire(acquireCtx, 1); err != nil {
		b.stats.timeouts.Add(1)
		b.logger.WithFields(map[string]interface{}{"bulkhead": b.name}).Warn("bulkhead permit acquisition timed out")
		return fmt.Errorf("bulkhead %q timeout: %w", b.name, err)
	}
	defer b.sem.Release(1)

	b.stats.active.Add(1)
	b.stats.executions.Add(1)
	defer b.stats.active.Add(-1)

	return fn()
}

// Stats returns a snapshot of the bulkhead's counters.
func (b *Bulkhead) Stats() BulkheadStats {
	return BulkheadStats{
		Name:            b.name,
		MaxConcurrent:   b.settings.MaxConcurrent,
		MaxQueueDepth:   b.settings.MaxQueueDepth,
		ActiveCount:     b.stats.active.Load(),
		QueuedCount:     b.stats.queued.Load(),
		TotalExecutions: b.stats.executions.Load(),
		TotalRejections: b.stats.rejections.Load(),
		TotalTimeouts:   b.stats.timeouts.Load(),
	}
}

// BulkheadStats is a point-in-time snapshot of a Bulkhead's counters.
type BulkheadStats struct {
	Name            string
	MaxConcurrent   int64
	MaxQueueDepth   int
	ActiveCount     int64
	QueuedCount     int64
	TotalExecutions int64
	TotalRejections int64
	TotalTimeouts   int64
}
