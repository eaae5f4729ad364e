package governor

import (
	"context"
	"sync"
)

// Governor is the admission gate bounding how many tasks are in flight at
// once. admitted <= ceiling holds at every observable instant; the ceiling
// may be raised or lowered at runtime, affecting future admissions only —
// already-admitted tasks are never evicted.
//
// Waiters park on a condition variable signaled by Release rather than
// polling, so no admission ordering is guaranteed under contention.
type Governor struct {
	mu       sync.Mutex
	cond     *sync.Cond
	ceiling  int
	admitted int
}

// NewGovernor creates a Governor. ceiling is clamped to at least 1.
func NewGovernor(ceiling int) *Governor {
	if ceiling < 1 {
		ceiling = 1
	}
	g := &Governor{ceiling: ceiling}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Admit blocks until a slot is free or ctx is cancelled. The capacity check
// and the increment happen under one lock acquisition, so the bound cannot
// be overshot by concurrent callers. Every nil return must be paired with
// exactly one Release.
func (g *Governor) Admit(ctx context.Context) error {
	// Wake this waiter if the context goes away while parked.
	stop := context.AfterFunc(ctx, func() {
		g.cond.Broadcast()
	})
	defer stop()

	g.mu.Lock()
	defer g.mu.Unlock()
	// Fail fast: a cancelled context never admits, even with free capacity.
	if err := ctx.Err(); err != nil {
		return err
	}
	for g.admitted >= g.ceiling {
		if err := ctx.Err(); err != nil {
			return err
		}
		g.cond.Wait()
	}
	g.admitted++
	return nil
}

// Release frees one slot and wakes one waiter.
func (g *Governor) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.admitted > 0 {
		g.admitted--
	}
	g.cond.Signal()
}

// SetCeiling replaces the ceiling, clamped to at least 1. Raising it wakes
// all waiters; lowering it never evicts admitted tasks, it only delays
// future admissions until occupancy drains below the new bound.
func (g *Governor) SetCeiling(n int) {
	if n < 1 {
		n = 1
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	raised := n > g.ceiling
	g.ceiling = n
	if raised {
		g.cond.Broadcast()
	}
}

// Occupancy returns the admitted count and ceiling as one consistent pair.
func (g *Governor) Occupancy() (admitted, ceiling int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.admitted, g.ceiling
}
