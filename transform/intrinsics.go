package transform

import "github.com/gogpu/shadersim/opcode"

// intrinsicInfo pairs the Op a shader-facing intrinsic compiles to with the
// number of arguments it expects.
type intrinsicInfo struct {
	op    opcode.Op
	arity int
}

// intrinsics maps every recognized shader-facing intrinsic name (spec.md
// §6) to the Op it compiles to and its expected argument count. Names not
// in this table are left untouched by the rewrite and evaluated as
// ordinary calls; [evalCall] accepts only the pure ballot helpers and the
// atomics below, and panics on any other function name.
var intrinsics = map[string]intrinsicInfo{
	"subgroupBroadcast":      {opcode.Broadcast, 2},
	"subgroupBroadcastFirst": {opcode.BroadcastFirst, 1},
	"subgroupAdd":            {opcode.Add, 1},
	"subgroupMin":            {opcode.Min, 1},
	"subgroupMax":            {opcode.Max, 1},
	"subgroupInclusiveAdd":   {opcode.InclusiveAdd, 1},
	"subgroupExclusiveAdd":   {opcode.ExclusiveAdd, 1},
	"subgroupShuffle":        {opcode.Shuffle, 2},
	"subgroupShuffleXor":     {opcode.ShuffleXor, 2},
	"subgroupShuffleDown":    {opcode.ShuffleDown, 2},
	"subgroupShuffleUp":      {opcode.ShuffleUp, 2},
	"subgroupAllEqual":       {opcode.AllEqual, 1},
	"subgroupBallot":         {opcode.Ballot, 1},
	"subgroupElect":          {opcode.Elect, 0},
	"subgroupAll":            {opcode.All, 1},
	"subgroupAny":            {opcode.Any, 1},
	"subgroupBarrier":        {opcode.SubgroupBarrier, 0},
	"subgroupMemoryBarrier":  {opcode.SubgroupMemoryBarrier, 0},
	"barrier":                {opcode.Barrier, 0},
	"memoryBarrier":          {opcode.MemoryBarrier, 0},
	"groupMemoryBarrier":     {opcode.GroupMemoryBarrier, 0},
}

// pureBallotHelpers are the ballot-mask intrinsics that are pure functions
// over an already-computed ballot result — they do not themselves suspend
// the closure, so the rewrite leaves their call sites untouched and they
// are evaluated by [evalExpr] like any other function call.
var pureBallotHelpers = map[string]bool{
	"subgroupInverseBallot":           true,
	"subgroupBallotBitCount":          true,
	"subgroupBallotBitExtract":        true,
	"subgroupBallotInclusiveBitCount": true,
	"subgroupBallotExclusiveBitCount": true,
	"subgroupBallotFindLSB":           true,
	"subgroupBallotFindMSB":           true,
}

// atomicIntrinsics are the sequentially-consistent storage-buffer atomics.
// They do not suspend the closure either (the scheduler has no role in
// arbitrating ssbo access — see spec.md §5); they execute inline via
// sync/atomic and are evaluated like ordinary calls.
var atomicIntrinsics = map[string]bool{
	"atomicAdd":      true,
	"atomicAnd":      true,
	"atomicOr":       true,
	"atomicXor":      true,
	"atomicExchange": true,
	"atomicCompSwap": true,
}
