package ir

import (
	"github.com/gogpu/shadersim/opcode"
	"github.com/gogpu/shadersim/valuetype"
)

// Command is emitted by a thread closure at every suspension point. Every
// Command and the [Result] it pairs with for a given suspension carry the
// same OpID (I1); the scheduler groups threads into convergence groups by
// OpID.
type Command struct {
	// OpID is the static, source-order-assigned identifier of this
	// suspension point.
	OpID uint64
	// Op identifies which operation this Command requests.
	Op opcode.Op

	// Type tags Val for scalar collective ops. Unused for boolean ops and
	// sync/control ops.
	Type valuetype.Type
	// Val is the scalar operand for scalar collective ops (e.g. the value
	// passed to subgroupAdd).
	Val valuetype.RawValue
	// Aux is the second argument to binary scalar ops: the target lane id
	// for broadcast/shuffle, the xor mask for shuffleXor, or the lane
	// delta for shuffleDown/shuffleUp.
	Aux uint32

	// Bool is the operand for boolean collective ops (ballot/all/any).
	Bool bool
}

// Result is written back by the scheduler once a convergence group's
// collective op has been evaluated. It has the same shape as Command
// without Aux (the scheduler never needs to echo the second operand back).
type Result struct {
	// OpID matches the Command's OpID this Result answers.
	OpID uint64
	// Op matches the Command's Op this Result answers.
	Op opcode.Op

	// Type tags Val for scalar collective ops.
	Type valuetype.Type
	// Val is the per-thread result of a scalar collective op.
	Val valuetype.RawValue

	// Bool is the per-thread result of a boolean collective op
	// (ballot/elect/all/any/allEqual).
	Bool bool
}

// NewReconverge builds the scheduler-only reconverge Command the shader
// transform inserts after divergent control flow. It carries no payload.
func NewReconverge(opID uint64) Command {
	return Command{OpID: opID, Op: opcode.Reconverge}
}

// NewSyncCommand builds a no-payload synchronization Command (any of the
// barrier/memory-barrier variants).
func NewSyncCommand(opID uint64, op opcode.Op) Command {
	return Command{OpID: opID, Op: op}
}

// NewScalarCommand builds a Command for a scalar collective op.
func NewScalarCommand(opID uint64, op opcode.Op, typ valuetype.Type, val valuetype.RawValue, aux uint32) Command {
	return Command{OpID: opID, Op: op, Type: typ, Val: val, Aux: aux}
}

// NewBoolCommand builds a Command for a boolean collective op.
func NewBoolCommand(opID uint64, op opcode.Op, cond bool) Command {
	return Command{OpID: opID, Op: op, Bool: cond}
}
