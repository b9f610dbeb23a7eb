package resilience

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool caps how many relay sessions are open at once. Relay accounts
// usually limit concurrent connections, so the dispatcher shares a single
// Pool across every submission.
type Pool struct {
	slots *semaphore.Weighted
	limit int
}

// NewPool returns a Pool with limit slots. A limit below 1 means 1.
func NewPool(limit int) *Pool {
	limit = max(limit, 1)
	return &Pool{slots: semaphore.NewWeighted(int64(limit)), limit: limit}
}

// Limit reports how many sessions may run at once; zero for a nil Pool.
func (p *Pool) Limit() int {
	if p == nil {
		return 0
	}
	return p.limit
}

// Run holds one slot while fn talks to the relay. Waiting gives up with
// ctx.Err() once ctx is done; fn is then never called. A nil Pool runs fn
// unthrottled.
func (p *Pool) Run(ctx context.Context, fn func(context.Context) error) error {
	if p == nil {
		return fn(ctx)
	}
	if err := p.slots.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.slots.Release(1)
	return fn(ctx)
}
