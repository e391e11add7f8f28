package transform

import (
	"fmt"

	"github.com/gogpu/shadersim/valuetype"
)

// scalarOf converts an interpreter-internal Go value (int64, uint64,
// float64, or bool) into a tagged (valuetype.Type, valuetype.RawValue)
// pair for embedding into an [ir.Command]. Unsigned-ness and width beyond
// what the closed value set supports are not tracked by the interpreter's
// environment; a variable's RawValue tag is decided at the point it is
// passed to an intrinsic, from its dynamic Go type, matching how a
// dynamically-typed reference interpreter would resolve it.
func scalarOf(v any) (valuetype.Type, valuetype.RawValue) {
	switch x := v.(type) {
	case bool:
		return valuetype.Bool, valuetype.FromBool(x)
	case int:
		return valuetype.I32, valuetype.FromI32(int32(x))
	case int32:
		return valuetype.I32, valuetype.FromI32(x)
	case int64:
		return valuetype.I32, valuetype.FromI32(int32(x))
	case uint:
		return valuetype.U32, valuetype.FromU32(uint32(x))
	case uint32:
		return valuetype.U32, valuetype.FromU32(x)
	case uint64:
		return valuetype.U32, valuetype.FromU32(uint32(x))
	case float32:
		return valuetype.F32, valuetype.FromF32(x)
	case float64:
		return valuetype.F64, valuetype.FromF64(x)
	default:
		panic(fmt.Sprintf("transform: value %v (%T) has no scalar representation", v, v))
	}
}

// nativeOf converts a tagged RawValue back into an interpreter-internal Go
// value, the inverse of scalarOf.
func nativeOf(typ valuetype.Type, raw valuetype.RawValue) any {
	switch typ {
	case valuetype.Bool:
		return raw.Bool()
	case valuetype.I32:
		return raw.I32()
	case valuetype.U32:
		return raw.U32()
	case valuetype.F32:
		return raw.F32()
	case valuetype.F64:
		return raw.F64()
	default:
		return int32(0)
	}
}

// asInt64 coerces a numeric interpreter value to int64, for use as an array
// index or a lane id/mask/delta argument.
func asInt64(v any) int64 {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	case float32:
		return int64(x)
	case float64:
		return int64(x)
	default:
		panic(fmt.Sprintf("transform: value %v (%T) is not numeric", v, v))
	}
}
