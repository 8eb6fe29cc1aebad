package util

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// LimitedErrGroup is an errgroup.Group that caps how many of its Go
// functions run concurrently. A maxConcurrency of 0 or less disables the
// cap entirely (no semaphore is allocated), which is how callers that
// already throttle dispatch externally use it purely for error
// aggregation and context cancellation.
type LimitedErrGroup struct {
	group *errgroup.Group
	ctx   context.Context
	sem   *semaphore.Weighted
	limit int
}

// NewLimitedErrGroup creates a LimitedErrGroup bound to ctx, capped at
// maxConcurrency concurrent Go calls.
func NewLimitedErrGroup(ctx context.Context, maxConcurrency int) *LimitedErrGroup {
	g, gctx := errgroup.WithContext(ctx)

	leg := &LimitedErrGroup{group: g, ctx: gctx, limit: maxConcurrency}
	if maxConcurrency > 0 {
		leg.sem = semaphore.NewWeighted(int64(maxConcurrency))
	}
	return leg
}

// Limit reports the concurrency cap this group was created with; 0 means
// unlimited.
func (g *LimitedErrGroup) Limit() int {
	if g.limit < 0 {
		return 0
	}
	return g.limit
}

// Go runs f in a new goroutine, blocking until a concurrency slot is free
// when the group was created with a cap.
func (g *LimitedErrGroup) Go(f func() error) {
	if g.sem == nil {
		g.group.Go(f)
		return
	}

	g.group.Go(func() error {
		if err := g.sem.Acquire(g.ctx, 1); err != nil {
			return err
		}
		defer g.sem.Release(1)
		return f()
	})
}

// Wait blocks until every Go call has returned, yielding the first
// non-nil error if any occurred.
func (g *LimitedErrGroup) Wait() error {
	return g.group.Wait()
}
