package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/gogpu/shadersim/ir"
	"github.com/gogpu/shadersim/opcode"
	"github.com/gogpu/shadersim/transform"
	"github.com/gogpu/shadersim/valuetype"
)

// countingBarrier is a trivial stub satisfying [Barrier]: it just counts
// how many times Wait was called, for tests that don't need the real
// cyclic-latch semantics dispatch.Barrier provides.
type countingBarrier struct {
	calls int
}

func (b *countingBarrier) Wait(ctx context.Context) error {
	b.calls++
	return nil
}

// errBarrier always fails, for tests asserting Run propagates a barrier
// error without trying to interpret it.
type errBarrier struct{ err error }

func (b *errBarrier) Wait(ctx context.Context) error { return b.err }

func scalarCmd(opID uint64, op opcode.Op, val uint32) ir.Command {
	return ir.NewScalarCommand(opID, op, valuetype.U32, valuetype.FromU32(val), 0)
}

// uniformAddClosures builds n closures, each yielding a single subgroupAdd
// of its own lane index, then finishing. No divergence: every thread takes
// the same path (P1/P2).
func uniformAddClosures(n int) []transform.Closure {
	closures := make([]transform.Closure, n)
	for i := range n {
		lane := uint32(i)
		done := false
		closures[i] = transform.ClosureFunc(func(result ir.Result) (ir.Command, bool) {
			if !done {
				done = true
				return scalarCmd(0, opcode.Add, lane), true
			}
			return ir.Command{}, false
		})
	}
	return closures
}

func TestSubgroupUniformAdd(t *testing.T) {
	n := 8
	closures := uniformAddClosures(n)
	sg := NewSubgroup([3]uint32{0, 0, 0}, 0, closures, &countingBarrier{})

	if err := sg.Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}

	want := uint32(0)
	for i := range n {
		want += uint32(i)
	}
	for i := range n {
		got := uint32(sg.results[i].Val)
		if got != want {
			t.Errorf("lane %d: subgroupAdd result = %d, want %d", i, got, want)
		}
	}
}

// divergentReconvergeClosures models:
//
//	if laneID % 2 == 0 {
//	    x = subgroupAdd(1)   // opID 0
//	}
//	// reconverge            // opID 1
//
// Even lanes emit the Add command then the reconverge marker; odd lanes
// skip straight to the reconverge marker, as the compiled shader transform
// would (spec.md's divergent if/no-else example). Each even lane records
// the Result it received for its Add in addResults[lane].
func divergentReconvergeClosures(n int, addResults []uint32) []transform.Closure {
	closures := make([]transform.Closure, n)
	for i := range n {
		pc := 0
		even := i%2 == 0
		closures[i] = transform.ClosureFunc(func(result ir.Result) (ir.Command, bool) {
			if even {
				switch pc {
				case 0:
					pc++
					return scalarCmd(0, opcode.Add, 1), true
				case 1:
					pc++
					addResults[i] = uint32(result.Val)
					return ir.NewReconverge(1), true
				default:
					return ir.Command{}, false
				}
			}
			switch pc {
			case 0:
				pc++
				return ir.NewReconverge(1), true
			default:
				return ir.Command{}, false
			}
		})
	}
	return closures
}

func TestSubgroupDivergentReconverge(t *testing.T) {
	n := 4
	addResults := make([]uint32, n)
	closures := divergentReconvergeClosures(n, addResults)
	sg := NewSubgroup([3]uint32{1, 0, 0}, 2, closures, &countingBarrier{})

	if err := sg.Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}

	// Lanes 0 and 2 took the if-branch; the Add convergence group should
	// have reduced over exactly those two lanes, i.e. sum == 2. sg.results
	// holds the later reconverge Result once Run returns, so the check reads
	// the value each closure received for its Add.
	for _, lane := range []int{0, 2} {
		if got := addResults[lane]; got != 2 {
			t.Errorf("lane %d: subgroupAdd result = %d, want 2", lane, got)
		}
	}
}

// uniformBarrierClosures has every lane call barrier() once (same opID)
// before finishing — the straightforward uniform-barrier case (P3).
func uniformBarrierClosures(n int) []transform.Closure {
	closures := make([]transform.Closure, n)
	for i := range n {
		done := false
		closures[i] = transform.ClosureFunc(func(result ir.Result) (ir.Command, bool) {
			if !done {
				done = true
				return ir.NewSyncCommand(0, opcode.Barrier), true
			}
			return ir.Command{}, false
		})
	}
	return closures
}

func TestSubgroupUniformBarrier(t *testing.T) {
	n := 4
	closures := uniformBarrierClosures(n)
	barrier := &countingBarrier{}
	sg := NewSubgroup([3]uint32{0, 0, 0}, 0, closures, barrier)

	if err := sg.Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if barrier.calls != 1 {
		t.Errorf("barrier.Wait called %d times, want 1 (one convergence group crossed it)", barrier.calls)
	}
}

func TestSubgroupBarrierErrorPropagates(t *testing.T) {
	closures := uniformBarrierClosures(2)
	wantErr := errors.New("workgroup barrier aborted")
	sg := NewSubgroup([3]uint32{0, 0, 0}, 0, closures, &errBarrier{err: wantErr})

	err := sg.Run(context.Background())
	if !errors.Is(err, wantErr) {
		t.Fatalf("Run() = %v, want to wrap %v", err, wantErr)
	}
}

// divergentBarrierClosures models the deadlock scenario: one lane reaches
// a workgroup barrier while the rest skip straight past it to a later
// reconverge point, mirroring an `if (laneID == target) { barrier(); }`
// with no else — a non-uniform barrier that can never become uniform
// because the barrier's opID is assigned before the reconverge's.
func divergentBarrierClosures(n int, barrierLane int) []transform.Closure {
	closures := make([]transform.Closure, n)
	for i := range n {
		pc := 0
		atBarrier := i == barrierLane
		closures[i] = transform.ClosureFunc(func(result ir.Result) (ir.Command, bool) {
			if atBarrier {
				switch pc {
				case 0:
					pc++
					return ir.NewSyncCommand(0, opcode.Barrier), true
				default:
					return ir.Command{}, false
				}
			}
			switch pc {
			case 0:
				pc++
				return ir.NewReconverge(1), true
			default:
				return ir.Command{}, false
			}
		})
	}
	return closures
}

func TestSubgroupDivergentBarrierDeadlocks(t *testing.T) {
	closures := divergentBarrierClosures(4, 1)
	sg := NewSubgroup([3]uint32{0, 0, 0}, 0, closures, &countingBarrier{})

	err := sg.Run(context.Background())
	var deadlock *DeadlockError
	if !errors.As(err, &deadlock) {
		t.Fatalf("Run() = %v, want *DeadlockError", err)
	}
	if deadlock.NumActive != 4 {
		t.Errorf("DeadlockError.NumActive = %d, want 4", deadlock.NumActive)
	}
}

// nonUniformBarrierClosures has two lanes reach *different* barrier call
// sites (distinct opIDs) in the same tick — the scan phase must reject
// this immediately rather than let it masquerade as a deadlock.
func nonUniformBarrierClosures(n int) []transform.Closure {
	closures := make([]transform.Closure, n)
	for i := range n {
		done := false
		opID := uint64(0)
		if i%2 == 1 {
			opID = 1
		}
		closures[i] = transform.ClosureFunc(func(result ir.Result) (ir.Command, bool) {
			if !done {
				done = true
				return ir.NewSyncCommand(opID, opcode.Barrier), true
			}
			return ir.Command{}, false
		})
	}
	return closures
}

func TestSubgroupNonUniformBarrier(t *testing.T) {
	closures := nonUniformBarrierClosures(4)
	sg := NewSubgroup([3]uint32{0, 0, 0}, 0, closures, &countingBarrier{})

	err := sg.Run(context.Background())
	var nonUniform *NonUniformBarrierError
	if !errors.As(err, &nonUniform) {
		t.Fatalf("Run() = %v, want *NonUniformBarrierError", err)
	}
}

func TestSubgroupContextCancellation(t *testing.T) {
	closures := uniformBarrierClosures(2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sg := NewSubgroup([3]uint32{0, 0, 0}, 0, closures, &countingBarrier{})
	if err := sg.Run(ctx); err == nil {
		t.Fatal("Run() with a cancelled context = nil, want an error")
	}
}
