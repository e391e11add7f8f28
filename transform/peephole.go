package transform

import "github.com/gogpu/shadersim/opcode"

// peephole implements the optimization pass from spec.md §4.1 rule 5:
// a reconverge immediately before any barrier is redundant (the barrier
// already reconverges the subgroup), and a weaker fence immediately before
// a stronger one is redundant. Dropped steps are marked stepNop rather than
// removed, so every jumpTarget and elseStart recorded during compilation
// stays valid. Returns the number of stepIntrinsic entries that survive.
func peephole(steps []step) int {
	prev := -1
	for i := range steps {
		if steps[i].kind != stepIntrinsic {
			continue
		}
		if prev >= 0 && shouldDrop(steps[prev].op, steps[i].op) {
			steps[prev].kind = stepNop
		}
		prev = i
	}

	survived := 0
	for i := range steps {
		if steps[i].kind == stepIntrinsic {
			survived++
		}
	}
	return survived
}

// shouldDrop reports whether the earlier op becomes redundant once
// immediately followed by later.
func shouldDrop(earlier, later opcode.Op) bool {
	if earlier == opcode.Reconverge && later.IsSync() {
		return true
	}
	if earlier == opcode.SubgroupMemoryBarrier && (later == opcode.Barrier || later == opcode.SubgroupBarrier) {
		return true
	}
	if (earlier == opcode.MemoryBarrier || earlier == opcode.GroupMemoryBarrier) && later == opcode.Barrier {
		return true
	}
	return false
}
