// Package collective implements the pure per-operation kernels the lockstep
// scheduler invokes once per convergence group per tick. Every kernel has
// the same shape: given the commands and active-lane set of one
// convergence group, it fills in the per-lane results.
package collective

import (
	"fmt"

	"github.com/gogpu/shadersim/ir"
	"github.com/gogpu/shadersim/opcode"
	"github.com/gogpu/shadersim/valuetype"
)

// Kernel computes the per-lane results of one collective op for a single
// convergence group.
//
//   - out/in are the subgroup-wide result/command arrays (length
//     SubgroupSize); a kernel only writes the indices named in active.
//   - active is the ordered (ascending) list of lane indices in this
//     convergence group.
//   - firstThreadID is active's first element, passed separately since
//     several ops (broadcastFirst, elect, allEqual) are defined directly in
//     terms of "the group's first active thread".
//   - opID is stamped onto every written Result (I1).
type Kernel func(out []ir.Result, in []ir.Command, active []int, firstThreadID int, opID uint64)

var kernels = map[opcode.Op]Kernel{
	opcode.Reconverge:            syncKernel(opcode.Reconverge),
	opcode.SubgroupBarrier:       syncKernel(opcode.SubgroupBarrier),
	opcode.SubgroupMemoryBarrier: syncKernel(opcode.SubgroupMemoryBarrier),
	opcode.Barrier:               syncKernel(opcode.Barrier),
	opcode.MemoryBarrier:         syncKernel(opcode.MemoryBarrier),
	opcode.GroupMemoryBarrier:    syncKernel(opcode.GroupMemoryBarrier),

	opcode.Broadcast:      broadcast,
	opcode.BroadcastFirst: broadcastFirst,
	opcode.Add:            reduce(addReduce),
	opcode.Min:            reduce(minReduce),
	opcode.Max:            reduce(maxReduce),
	opcode.InclusiveAdd:   prefixSum(true),
	opcode.ExclusiveAdd:   prefixSum(false),
	opcode.Shuffle:        shuffle,
	opcode.ShuffleXor:     shuffleXor,
	opcode.ShuffleDown:    shuffleDown,
	opcode.ShuffleUp:      shuffleUp,
	opcode.AllEqual:       allEqual,

	opcode.Ballot: ballot,
	opcode.Elect:  elect,
	opcode.All:    allOp,
	opcode.Any:    anyOp,
}

// Execute runs the kernel registered for op. It returns an error if op has
// no registered kernel — this only happens for opcode.Invalid, which a
// well-formed closure never emits.
func Execute(op opcode.Op, out []ir.Result, in []ir.Command, active []int, firstThreadID int, opID uint64) error {
	k, ok := kernels[op]
	if !ok {
		return fmt.Errorf("collective: no kernel registered for op %s", op)
	}
	k(out, in, active, firstThreadID, opID)
	return nil
}

func indexOf(active []int, lane int) (int, bool) {
	for _, a := range active {
		if a == lane {
			return a, true
		}
	}
	return 0, false
}

func syncKernel(op opcode.Op) Kernel {
	return func(out []ir.Result, in []ir.Command, active []int, firstThreadID int, opID uint64) {
		for _, t := range active {
			out[t] = ir.Result{OpID: opID, Op: op}
		}
	}
}

func broadcast(out []ir.Result, in []ir.Command, active []int, firstThreadID int, opID uint64) {
	id := int(in[firstThreadID].Aux)
	src := firstThreadID
	if lane, ok := indexOf(active, id); ok {
		src = lane
	}
	for _, t := range active {
		out[t] = ir.Result{OpID: opID, Op: opcode.Broadcast, Type: in[t].Type, Val: in[src].Val}
	}
}

func broadcastFirst(out []ir.Result, in []ir.Command, active []int, firstThreadID int, opID uint64) {
	val := in[firstThreadID].Val
	for _, t := range active {
		out[t] = ir.Result{OpID: opID, Op: opcode.BroadcastFirst, Type: in[t].Type, Val: val}
	}
}

func shuffle(out []ir.Result, in []ir.Command, active []int, firstThreadID int, opID uint64) {
	for _, t := range active {
		id := int(in[t].Aux)
		src := t
		if lane, ok := indexOf(active, id); ok {
			src = lane
		}
		out[t] = ir.Result{OpID: opID, Op: opcode.Shuffle, Type: in[t].Type, Val: in[src].Val}
	}
}

func shuffleXor(out []ir.Result, in []ir.Command, active []int, firstThreadID int, opID uint64) {
	for _, t := range active {
		mask := in[t].Aux
		id := t ^ int(mask)
		src := t
		if lane, ok := indexOf(active, id); ok {
			src = lane
		}
		out[t] = ir.Result{OpID: opID, Op: opcode.ShuffleXor, Type: in[t].Type, Val: in[src].Val}
	}
}

func shuffleDown(out []ir.Result, in []ir.Command, active []int, firstThreadID int, opID uint64) {
	for _, t := range active {
		delta := int(in[t].Aux)
		id := t + delta
		src := t
		if lane, ok := indexOf(active, id); ok {
			src = lane
		}
		out[t] = ir.Result{OpID: opID, Op: opcode.ShuffleDown, Type: in[t].Type, Val: in[src].Val}
	}
}

func shuffleUp(out []ir.Result, in []ir.Command, active []int, firstThreadID int, opID uint64) {
	for _, t := range active {
		delta := int(in[t].Aux)
		src := t
		if t-delta >= 0 {
			if lane, ok := indexOf(active, t-delta); ok {
				src = lane
			}
		}
		out[t] = ir.Result{OpID: opID, Op: opcode.ShuffleUp, Type: in[t].Type, Val: in[src].Val}
	}
}

func allEqual(out []ir.Result, in []ir.Command, active []int, firstThreadID int, opID uint64) {
	ref := in[firstThreadID].Val
	eq := true
	for _, t := range active {
		if in[t].Val != ref {
			eq = false
			break
		}
	}
	for _, t := range active {
		out[t] = ir.Result{OpID: opID, Op: opcode.AllEqual, Bool: eq}
	}
}

func ballot(out []ir.Result, in []ir.Command, active []int, firstThreadID int, opID uint64) {
	var mask uint32
	for _, t := range active {
		if in[t].Bool {
			mask |= 1 << uint(t)
		}
	}
	for _, t := range active {
		out[t] = ir.Result{OpID: opID, Op: opcode.Ballot, Type: valuetype.U32, Val: valuetype.FromU32(mask)}
	}
}

func elect(out []ir.Result, in []ir.Command, active []int, firstThreadID int, opID uint64) {
	for _, t := range active {
		out[t] = ir.Result{OpID: opID, Op: opcode.Elect, Bool: t == firstThreadID}
	}
}

func allOp(out []ir.Result, in []ir.Command, active []int, firstThreadID int, opID uint64) {
	result := true
	for _, t := range active {
		if !in[t].Bool {
			result = false
			break
		}
	}
	for _, t := range active {
		out[t] = ir.Result{OpID: opID, Op: opcode.All, Bool: result}
	}
}

func anyOp(out []ir.Result, in []ir.Command, active []int, firstThreadID int, opID uint64) {
	result := false
	for _, t := range active {
		if in[t].Bool {
			result = true
			break
		}
	}
	for _, t := range active {
		out[t] = ir.Result{OpID: opID, Op: opcode.Any, Bool: result}
	}
}
