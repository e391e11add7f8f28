package collective

import (
	"math"

	"github.com/gogpu/shadersim/ir"
	"github.com/gogpu/shadersim/opcode"
	"github.com/gogpu/shadersim/valuetype"
)

// reduceFn combines two already-tagged RawValues of the same Type.
// Implementations switch on Type to stay monomorphic over the closed value
// set rather than going through an interface per element.
type reduceFn func(typ valuetype.Type, a, b valuetype.RawValue) valuetype.RawValue

func addReduce(typ valuetype.Type, a, b valuetype.RawValue) valuetype.RawValue {
	switch typ {
	case valuetype.I32:
		return valuetype.FromI32(a.I32() + b.I32())
	case valuetype.U32:
		return valuetype.FromU32(a.U32() + b.U32())
	case valuetype.F32:
		return valuetype.FromF32(a.F32() + b.F32())
	case valuetype.F64:
		return valuetype.FromF64(a.F64() + b.F64())
	default:
		return a
	}
}

func minReduce(typ valuetype.Type, a, b valuetype.RawValue) valuetype.RawValue {
	switch typ {
	case valuetype.I32:
		if b.I32() < a.I32() {
			return b
		}
		return a
	case valuetype.U32:
		if b.U32() < a.U32() {
			return b
		}
		return a
	case valuetype.F32:
		return valuetype.FromF32(float32(math.Min(float64(a.F32()), float64(b.F32()))))
	case valuetype.F64:
		return valuetype.FromF64(math.Min(a.F64(), b.F64()))
	default:
		return a
	}
}

func maxReduce(typ valuetype.Type, a, b valuetype.RawValue) valuetype.RawValue {
	switch typ {
	case valuetype.I32:
		if b.I32() > a.I32() {
			return b
		}
		return a
	case valuetype.U32:
		if b.U32() > a.U32() {
			return b
		}
		return a
	case valuetype.F32:
		return valuetype.FromF32(float32(math.Max(float64(a.F32()), float64(b.F32()))))
	case valuetype.F64:
		return valuetype.FromF64(math.Max(a.F64(), b.F64()))
	default:
		return a
	}
}

// reduce builds a Kernel that folds fn over active in ascending lane order.
// Min/max seed the accumulator with the first active lane's own value
// instead of a type-minimum/maximum sentinel, which sidesteps
// signed/unsigned low-value asymmetry entirely.
func reduce(fn reduceFn) Kernel {
	return func(out []ir.Result, in []ir.Command, active []int, firstThreadID int, opID uint64) {
		if len(active) == 0 {
			return
		}
		typ := in[active[0]].Type
		acc := in[active[0]].Val
		for _, t := range active[1:] {
			acc = fn(typ, acc, in[t].Val)
		}
		for _, t := range active {
			out[t] = ir.Result{OpID: opID, Op: in[t].Op, Type: typ, Val: acc}
		}
	}
}

// prefixSum builds the inclusive or exclusive running-sum kernel, ordered
// by ascending lane index within active (P5 determinism).
func prefixSum(inclusive bool) Kernel {
	return func(out []ir.Result, in []ir.Command, active []int, firstThreadID int, opID uint64) {
		if len(active) == 0 {
			return
		}
		typ := in[active[0]].Type
		running := valuetype.Zero(typ)
		op := opcode.ExclusiveAdd
		if inclusive {
			op = opcode.InclusiveAdd
		}
		for _, t := range active {
			if inclusive {
				running = addReduce(typ, running, in[t].Val)
				out[t] = ir.Result{OpID: opID, Op: op, Type: typ, Val: running}
			} else {
				out[t] = ir.Result{OpID: opID, Op: op, Type: typ, Val: running}
				running = addReduce(typ, running, in[t].Val)
			}
		}
	}
}
