// Package ir defines the wire types cooperative thread closures exchange
// with the lockstep scheduler: [Command], [Result], and the read-only
// built-in context ([WorkGroupContext], [ThreadContext]) the dispatcher
// populates once per subgroup and per invocation.
package ir

// WorkGroupContext is immutable for the lifetime of one subgroup. It is
// cloned by the dispatcher into every subgroup scheduler it spawns.
type WorkGroupContext struct {
	// NumWorkGroups is gl_NumWorkGroups: the dispatch's grid dimensions.
	NumWorkGroups [3]uint32
	// WorkGroupSize is gl_WorkGroupSize: the local dimensions of one
	// workgroup.
	WorkGroupSize [3]uint32
	// WorkGroupID is gl_WorkGroupID: this workgroup's coordinates in the
	// dispatch grid.
	WorkGroupID [3]uint32
	// NumSubgroups is gl_NumSubgroups: the number of subgroups this
	// workgroup was partitioned into.
	NumSubgroups uint32
	// SubgroupID is gl_SubgroupID: this subgroup's index within its
	// workgroup.
	SubgroupID uint32
}

// ThreadContext carries the per-invocation built-in IDs the dispatcher
// computes once at subgroup construction and that never change for the
// lifetime of the closure.
type ThreadContext struct {
	// GlobalInvocationID is gl_GlobalInvocationID.
	GlobalInvocationID [3]uint32
	// LocalInvocationID is gl_LocalInvocationID.
	LocalInvocationID [3]uint32
	// SubgroupInvocationID is gl_SubgroupInvocationID: the thread's lane
	// index within its subgroup, in [0, SubgroupSize).
	SubgroupInvocationID uint32

	// EqMask is gl_SubgroupEqMask: bit SubgroupInvocationID set, all
	// others clear.
	EqMask uint32
	// GeMask is gl_SubgroupGeMask: bits >= SubgroupInvocationID set.
	GeMask uint32
	// GtMask is gl_SubgroupGtMask: bits > SubgroupInvocationID set.
	GtMask uint32
	// LeMask is gl_SubgroupLeMask: bits <= SubgroupInvocationID set.
	LeMask uint32
	// LtMask is gl_SubgroupLtMask: bits < SubgroupInvocationID set.
	LtMask uint32
}

// ComputeLaneMasks fills in the Eq/Ge/Gt/Le/Lt masks of a ThreadContext for
// a thread at lane laneID within a subgroup of the given size. subgroupSize
// must be in [1, 32] (I4); masks beyond bit 31 are not representable and
// are the caller's responsibility to reject earlier (see dispatch.Config
// validation).
func ComputeLaneMasks(laneID, subgroupSize uint32) (eq, ge, gt, le, lt uint32) {
	full := uint32(0)
	if subgroupSize >= 32 {
		full = ^uint32(0)
	} else {
		full = (uint32(1) << subgroupSize) - 1
	}
	eq = uint32(1) << laneID
	le = full & ((uint32(1) << (laneID + 1)) - 1)
	lt = le &^ eq
	ge = full &^ lt
	gt = ge &^ eq
	return eq, ge, gt, le, lt
}

// NewThreadContext builds a ThreadContext for one invocation given its
// global/local IDs, lane index, and the subgroup's width.
func NewThreadContext(global, local [3]uint32, laneID, subgroupSize uint32) ThreadContext {
	eq, ge, gt, le, lt := ComputeLaneMasks(laneID, subgroupSize)
	return ThreadContext{
		GlobalInvocationID:   global,
		LocalInvocationID:    local,
		SubgroupInvocationID: laneID,
		EqMask:               eq,
		GeMask:               ge,
		GtMask:               gt,
		LeMask:               le,
		LtMask:               lt,
	}
}

// Quad expands a single ballot/mask word into the u32 quadruple the
// shader-facing intrinsic signature uses for API compatibility (Q2). Lanes
// 1-3 are always zero: the emulator never models more than 32 lanes per
// subgroup.
func Quad(mask uint32) [4]uint32 {
	return [4]uint32{mask, 0, 0, 0}
}
