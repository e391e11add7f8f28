// Package scheduler implements the lockstep scheduler (C3): the per-subgroup
// state machine that advances cooperative thread closures in parallel,
// groups them into convergence groups by operation ID, invokes the
// collective kernels, and enforces barrier uniformity — the core of the
// emulator (spec.md §4.3).
package scheduler

import (
	"context"
	"runtime"
	"sort"
	"sync/atomic"

	"github.com/gogpu/shadersim/collective"
	"github.com/gogpu/shadersim/internal/obslog"
	"github.com/gogpu/shadersim/ir"
	"github.com/gogpu/shadersim/opcode"
	"github.com/gogpu/shadersim/transform"
)

// sentinelOpID marks "no pending reconverge/barrier" in the aggregates the
// scan phase computes: no real opID ever reaches this value since opIDs are
// assigned by a monotonic counter starting at 0.
const sentinelOpID = ^uint64(0)

// Barrier is the workgroup-wide synchronization primitive the dispatcher
// hands to every subgroup scheduler in a workgroup (O3). A subgroup calls
// Wait exactly once per barrier command it executes; Wait returns once
// every subgroup in the workgroup has called it the same number of times.
type Barrier interface {
	Wait(ctx context.Context) error
}

// Subgroup drives one subgroup's closures in lockstep. Construct with
// [NewSubgroup] and call [Subgroup.Run] exactly once.
type Subgroup struct {
	WorkGroupID [3]uint32
	SubgroupID  uint32

	// Debug enables per-tick scheduling trace at slog.LevelDebug. Left
	// false by default so a dispatch with no debug filter configured
	// never pays for building log attributes on every tick.
	Debug bool

	closures  []transform.Closure
	numActive int
	barrier   Barrier

	states   []opcode.ThreadState
	commands []ir.Command
	results  []ir.Result
}

// NewSubgroup constructs a scheduler for closures, all of which participate
// (size closures to numActive — the tail subgroup of a dispatch is expected
// to receive a shorter slice, never a padded one).
func NewSubgroup(workGroupID [3]uint32, subgroupID uint32, closures []transform.Closure, barrier Barrier) *Subgroup {
	n := len(closures)
	return &Subgroup{
		WorkGroupID: workGroupID,
		SubgroupID:  subgroupID,
		closures:    closures,
		numActive:   n,
		barrier:     barrier,
		states:      make([]opcode.ThreadState, n),
		commands:    make([]ir.Command, n),
		results:     make([]ir.Result, n),
	}
}

// Run drives every closure in this subgroup to completion, implementing
// the outer-tick scheduling rule from spec.md §4.3. All threads start in
// [opcode.Running] and are resumed with the zero [ir.Result] on their first
// tick.
func (s *Subgroup) Run(ctx context.Context) error {
	minReconvID := sentinelOpID
	barrierID := sentinelOpID
	barrierCount := 0
	allHalted := false

	for tick := 0; ; tick++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.allFinished() {
			return nil
		}

		madeProgress := s.resumePhase(minReconvID, barrierID, barrierCount, allHalted)

		var scanErr error
		minReconvID, barrierID, barrierCount, allHalted, scanErr = s.scan()
		if scanErr != nil {
			return scanErr
		}

		if s.allFinished() {
			return nil
		}

		if !madeProgress {
			return &DeadlockError{
				WorkGroupID:  s.WorkGroupID,
				SubgroupID:   s.SubgroupID,
				BarrierCount: barrierCount,
				NumActive:    s.numActive,
			}
		}

		if s.Debug {
			obslog.Get().Debug("scheduler tick",
				"workGroupID", s.WorkGroupID, "subgroupID", s.SubgroupID, "tick", tick,
				"minReconvID", minReconvID, "barrierID", barrierID, "barrierCount", barrierCount)
		}

		if err := s.groupAndExecute(ctx, minReconvID, barrierID, barrierCount, allHalted); err != nil {
			return err
		}
	}
}

func (s *Subgroup) allFinished() bool {
	for _, st := range s.states {
		if st != opcode.Finished {
			return false
		}
	}
	return true
}

// resumePhase resumes every thread eligible per the *previous* tick's
// aggregates: running unconditionally, or halted/atSubBarrier/atBarrier
// threads whose reconverge/barrier predicate was already satisfied. It
// returns whether any thread was resumed.
func (s *Subgroup) resumePhase(minReconvID, barrierID uint64, barrierCount int, allHalted bool) bool {
	madeProgress := false
	for t := range s.closures {
		if s.states[t] == opcode.Finished {
			continue
		}
		if !s.eligibleForResume(t, minReconvID, barrierID, barrierCount, allHalted) {
			continue
		}

		cmd, more := s.closures[t].Resume(s.results[t])
		madeProgress = true
		if !more {
			s.states[t] = opcode.Finished
			continue
		}
		s.commands[t] = cmd
		s.states[t] = nextStateFor(cmd.Op)
	}
	return madeProgress
}

// eligibleForResume implements canReconverge(t) (spec.md §4.3): a halted or
// atSubBarrier thread may resume only once every non-finished, non-atBarrier
// thread in the subgroup has itself halted or reached a sub-barrier —
// otherwise a thread still Running further down a longer branch would never
// get the chance to join this reconverge opID's group.
func (s *Subgroup) eligibleForResume(t int, minReconvID, barrierID uint64, barrierCount int, allHalted bool) bool {
	switch s.states[t] {
	case opcode.Running:
		return true
	case opcode.Halted, opcode.AtSubBarrier:
		return allHalted && minReconvID < barrierID && s.commands[t].OpID == minReconvID
	case opcode.AtBarrier:
		return barrierCount == s.numActive && s.commands[t].OpID == barrierID
	default:
		return false
	}
}

func nextStateFor(op opcode.Op) opcode.ThreadState {
	switch {
	case op == opcode.Reconverge:
		return opcode.Halted
	case op.IsWorkgroupBarrier():
		return opcode.AtBarrier
	case op.IsSync():
		return opcode.AtSubBarrier
	default:
		return opcode.Running
	}
}

// scan recomputes the aggregates the next tick's eligibility tests need,
// and enforces barrier uniformity (I3).
func (s *Subgroup) scan() (minReconvID, barrierID uint64, barrierCount int, allHalted bool, err error) {
	minReconvID = sentinelOpID
	barrierID = sentinelOpID
	allHalted = true

	for t, st := range s.states {
		switch st {
		case opcode.Halted, opcode.AtSubBarrier:
			if s.commands[t].OpID < minReconvID {
				minReconvID = s.commands[t].OpID
			}
		case opcode.AtBarrier:
			if barrierID == sentinelOpID {
				barrierID = s.commands[t].OpID
			} else if s.commands[t].OpID != barrierID {
				return 0, 0, 0, false, &NonUniformBarrierError{WorkGroupID: s.WorkGroupID, SubgroupID: s.SubgroupID}
			}
			barrierCount++
		case opcode.Finished:
			// excluded from the "all non-finished, non-atBarrier" check.
		default: // Running
			allHalted = false
		}
	}
	return minReconvID, barrierID, barrierCount, allHalted, nil
}

// groupAndExecute partitions every thread currently eligible to act — by
// the *fresh* aggregates scan just computed, which may include threads not
// resumed this tick (their stored command was produced on an earlier tick
// and is only now completing its convergence group) — into convergence
// groups by opID, and executes each via [collective.Execute]. Executing a
// group unparks its threads: halted/atSubBarrier/atBarrier transitions back
// to running, ready for the next tick's resume phase.
func (s *Subgroup) groupAndExecute(ctx context.Context, minReconvID, barrierID uint64, barrierCount int, allHalted bool) error {
	groups := make(map[uint64][]int)
	var opIDs []uint64

	addTo := func(opID uint64, t int) {
		if _, ok := groups[opID]; !ok {
			opIDs = append(opIDs, opID)
		}
		groups[opID] = append(groups[opID], t)
	}

	for t, st := range s.states {
		switch st {
		case opcode.Running:
			addTo(s.commands[t].OpID, t)
		case opcode.Halted, opcode.AtSubBarrier:
			if allHalted && minReconvID < barrierID && s.commands[t].OpID == minReconvID {
				addTo(s.commands[t].OpID, t)
			}
		case opcode.AtBarrier:
			if barrierCount == s.numActive && s.commands[t].OpID == barrierID {
				addTo(s.commands[t].OpID, t)
			}
		}
	}

	// Deterministic execution order across groups (O2 leaves this
	// unspecified, but a stable order makes traces reproducible).
	sort.Slice(opIDs, func(i, j int) bool { return opIDs[i] < opIDs[j] })

	for _, opID := range opIDs {
		active := groups[opID]
		sort.Ints(active) // ascending lane index, per spec.md §4.2 ordering rule (P5)
		op := s.commands[active[0]].Op
		firstThreadID := active[0]

		if op.IsWorkgroupBarrier() {
			if err := s.barrier.Wait(ctx); err != nil {
				return err
			}
		}

		if err := collective.Execute(op, s.results, s.commands, active, firstThreadID, opID); err != nil {
			return &InvalidOpResultError{WorkGroupID: s.WorkGroupID, SubgroupID: s.SubgroupID, Op: op, Err: err}
		}

		if op.IsMemoryFence() {
			fence()
		}

		for _, t := range active {
			s.states[t] = opcode.Running
		}
	}
	return nil
}

// fenceCounter backs the best-effort process-wide memory fence: a
// sequentially-consistent atomic operation establishes a happens-before
// edge under the Go memory model, and Gosched gives other goroutines a
// chance to observe it promptly. Real GPU memory ordering is not modelled
// (spec.md §9).
var fenceCounter int64

func fence() {
	atomic.AddInt64(&fenceCounter, 1)
	runtime.Gosched()
}
