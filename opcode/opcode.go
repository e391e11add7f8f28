// Package opcode defines the closed set of operation tags and thread states
// the lockstep scheduler drives every subgroup through.
package opcode

import "fmt"

// Op is the tag carried by every [ir.Command] and [ir.Result]. It is a
// closed discriminated union, never extended outside this package.
type Op int

const (
	// Invalid marks a zero-value Op; it is never emitted by a well-formed
	// closure and exists only to make the zero value of Op detectable.
	Invalid Op = iota

	// Reconverge is a scheduler-only marker inserted by the shader
	// transform after divergent control flow. It carries no payload.
	Reconverge

	// Broadcast reads the value from the lane named by its auxU32 id.
	Broadcast
	// BroadcastFirst reads the value from the convergence group's first
	// active lane.
	BroadcastFirst
	// Add reduces the convergence group's values by addition.
	Add
	// Min reduces the convergence group's values by minimum.
	Min
	// Max reduces the convergence group's values by maximum.
	Max
	// InclusiveAdd computes an inclusive (own lane included) prefix sum.
	InclusiveAdd
	// ExclusiveAdd computes an exclusive (own lane excluded) prefix sum.
	ExclusiveAdd
	// Shuffle reads the value from the lane named by its auxU32 id.
	Shuffle
	// ShuffleXor reads the value from lane (self XOR auxU32 mask).
	ShuffleXor
	// ShuffleDown reads the value from lane (self + auxU32 delta).
	ShuffleDown
	// ShuffleUp reads the value from lane (self - auxU32 delta).
	ShuffleUp
	// AllEqual reports whether every active lane's value equals the first
	// active lane's value.
	AllEqual

	// Ballot packs each active lane's boolean into a bitmask.
	Ballot
	// All reports the logical AND of every active lane's boolean.
	All
	// Any reports the logical OR of every active lane's boolean.
	Any
	// Elect is true only for the convergence group's first active lane.
	Elect

	// SubgroupBarrier synchronizes a subgroup without crossing the
	// workgroup barrier.
	SubgroupBarrier
	// SubgroupMemoryBarrier is SubgroupBarrier plus a process-wide memory
	// fence.
	SubgroupMemoryBarrier
	// Barrier is a workgroup-wide synchronization point.
	Barrier
	// MemoryBarrier is Barrier plus a process-wide memory fence.
	MemoryBarrier
	// GroupMemoryBarrier is an alias of MemoryBarrier retained for shader
	// source compatibility with the GLSL intrinsic name.
	GroupMemoryBarrier
)

var opNames = map[Op]string{
	Invalid:                "invalid",
	Reconverge:             "reconverge",
	Broadcast:              "broadcast",
	BroadcastFirst:         "broadcastFirst",
	Add:                    "add",
	Min:                    "min",
	Max:                    "max",
	InclusiveAdd:           "inclusiveAdd",
	ExclusiveAdd:           "exclusiveAdd",
	Shuffle:                "shuffle",
	ShuffleXor:             "shuffleXor",
	ShuffleDown:            "shuffleDown",
	ShuffleUp:              "shuffleUp",
	AllEqual:               "allEqual",
	Ballot:                 "ballot",
	All:                    "all",
	Any:                    "any",
	Elect:                  "elect",
	SubgroupBarrier:        "subgroupBarrier",
	SubgroupMemoryBarrier:  "subgroupMemoryBarrier",
	Barrier:                "barrier",
	MemoryBarrier:          "memoryBarrier",
	GroupMemoryBarrier:     "groupMemoryBarrier",
}

// String returns the shader-facing name of the operation.
func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", int(o))
}

// IsSync reports whether o is one of the synchronization ops: it carries no
// payload and transitions a thread to atSubBarrier or atBarrier rather than
// producing a collective result.
func (o Op) IsSync() bool {
	switch o {
	case SubgroupBarrier, SubgroupMemoryBarrier, Barrier, MemoryBarrier, GroupMemoryBarrier:
		return true
	default:
		return false
	}
}

// IsWorkgroupBarrier reports whether o requires waiting on the
// dispatcher-provided workgroup barrier (as opposed to only a subgroup
// reconvergence).
func (o Op) IsWorkgroupBarrier() bool {
	switch o {
	case Barrier, MemoryBarrier, GroupMemoryBarrier:
		return true
	default:
		return false
	}
}

// IsMemoryFence reports whether o additionally requires a process-wide
// memory fence (O5).
func (o Op) IsMemoryFence() bool {
	switch o {
	case SubgroupMemoryBarrier, MemoryBarrier, GroupMemoryBarrier:
		return true
	default:
		return false
	}
}

// CommandIsBool reports whether o's Command payload is a bool (as opposed
// to a tagged scalar or no payload at all). Only ballot/all/any take a
// boolean condition as their operand; allEqual takes a scalar value
// despite producing a boolean result, and elect takes no operand.
func (o Op) CommandIsBool() bool {
	switch o {
	case Ballot, All, Any:
		return true
	default:
		return false
	}
}

// ResultIsBool reports whether o's Result payload is a bool. elect, all,
// any, and allEqual all resolve to a per-lane boolean; ballot resolves to a
// scalar u32 bitmask even though its Command payload is boolean.
func (o Op) ResultIsBool() bool {
	switch o {
	case Elect, All, Any, AllEqual:
		return true
	default:
		return false
	}
}

// ThreadState is the state of one cooperative thread within a subgroup, as
// tracked by the lockstep scheduler.
type ThreadState int

const (
	// Running means the thread is eligible to be resumed unconditionally.
	Running ThreadState = iota
	// Halted means the thread suspended at a reconverge marker and is
	// waiting for the rest of its convergence group to catch up.
	Halted
	// AtSubBarrier means the thread suspended at a subgroup-only
	// synchronization point.
	AtSubBarrier
	// AtBarrier means the thread suspended at a workgroup barrier and is
	// waiting for every subgroup in the workgroup to arrive.
	AtBarrier
	// Finished means the thread's closure has completed; it is excluded
	// from all further scheduling and barrier accounting.
	Finished
)

// String returns the name of the thread state.
func (s ThreadState) String() string {
	switch s {
	case Running:
		return "running"
	case Halted:
		return "halted"
	case AtSubBarrier:
		return "atSubBarrier"
	case AtBarrier:
		return "atBarrier"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}
