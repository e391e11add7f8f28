package transform

import (
	"fmt"
	"go/ast"
	"go/token"
	"math/bits"
	"reflect"
	"strconv"
)

// evalExpr evaluates e against en. It supports the subset of Go expression
// syntax a compute shader body needs: identifiers (locals, built-in gl_*
// IDs, and args fields), integer/float literals, parens, unary (- !),
// binary arithmetic/comparison/logical operators, selectors (.X/.Y/.Z on
// gl_* vectors and struct field access), indexing (array/slice/map), and
// calls to the pure ballot-mask helpers and storage-buffer atomics (which,
// unlike the collective intrinsics in [intrinsics], do not suspend the
// closure and so are evaluated inline here). Calls to a collective or sync
// intrinsic never reach evalExpr: the compiler extracts those into their
// own instruction before any expression referencing their result is built.
func evalExpr(e ast.Expr, en *env) reflect.Value {
	switch x := e.(type) {
	case *ast.ParenExpr:
		return evalExpr(x.X, en)

	case *ast.Ident:
		switch x.Name {
		case "true":
			return reflect.ValueOf(true)
		case "false":
			return reflect.ValueOf(false)
		}
		return en.mustLookup(x.Name)

	case *ast.BasicLit:
		switch x.Kind {
		case token.INT:
			n, err := strconv.ParseInt(x.Value, 0, 64)
			if err != nil {
				panic(fmt.Sprintf("transform: bad int literal %q: %v", x.Value, err))
			}
			return reflect.ValueOf(n)
		case token.FLOAT:
			f, err := strconv.ParseFloat(x.Value, 64)
			if err != nil {
				panic(fmt.Sprintf("transform: bad float literal %q: %v", x.Value, err))
			}
			return reflect.ValueOf(f)
		default:
			panic(fmt.Sprintf("transform: unsupported literal kind %v", x.Kind))
		}

	case *ast.UnaryExpr:
		v := evalExpr(x.X, en)
		switch x.Op {
		case token.SUB:
			return reflect.ValueOf(negate(v.Interface()))
		case token.NOT:
			return reflect.ValueOf(!asBool(v.Interface()))
		default:
			panic(fmt.Sprintf("transform: unsupported unary operator %v", x.Op))
		}

	case *ast.BinaryExpr:
		return reflect.ValueOf(evalBinary(x, en))

	case *ast.SelectorExpr:
		base := evalExpr(x.X, en)
		return selectField(base, x.Sel.Name)

	case *ast.IndexExpr:
		base := evalExpr(x.X, en)
		idx := asInt64(evalExpr(x.Index, en).Interface())
		return indexInto(base, int(idx))

	case *ast.CallExpr:
		return evalCall(x, en)

	default:
		panic(fmt.Sprintf("transform: unsupported expression %T", e))
	}
}

func evalBool(e ast.Expr, en *env) bool {
	return asBool(evalExpr(e, en).Interface())
}

func asBool(v any) bool {
	b, ok := v.(bool)
	if !ok {
		panic(fmt.Sprintf("transform: expected bool, got %T", v))
	}
	return b
}

func negate(v any) any {
	switch x := v.(type) {
	case int64:
		return -x
	case uint64:
		return -x
	case float64:
		return -x
	default:
		panic(fmt.Sprintf("transform: cannot negate %T", v))
	}
}

func selectField(base reflect.Value, name string) reflect.Value {
	// gl_* built-in vectors are represented as [3]uint32 or [4]uint32;
	// .X/.Y/.Z map to array indices 0/1/2.
	if base.Kind() == reflect.Array {
		switch name {
		case "X":
			return base.Index(0)
		case "Y":
			return base.Index(1)
		case "Z":
			return base.Index(2)
		}
	}
	// Unwrap the `any`-typed envelope fields (dispatch.closureArgs' SSBO/
	// Shared/Args) to the concrete value they carry before dereferencing.
	for base.Kind() == reflect.Interface || base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	f := base.FieldByName(name)
	if !f.IsValid() {
		panic(fmt.Sprintf("transform: no field %q on %s", name, base.Type()))
	}
	return f
}

func indexInto(base reflect.Value, idx int) reflect.Value {
	switch base.Kind() {
	case reflect.Array, reflect.Slice, reflect.String:
		return base.Index(idx)
	case reflect.Map:
		return base.MapIndex(reflect.ValueOf(idx))
	case reflect.Pointer:
		return indexInto(base.Elem(), idx)
	default:
		panic(fmt.Sprintf("transform: cannot index into %s", base.Type()))
	}
}

func evalBinary(x *ast.BinaryExpr, en *env) any {
	// Short-circuit logical operators.
	if x.Op == token.LAND {
		return evalBool(x.X, en) && evalBool(x.Y, en)
	}
	if x.Op == token.LOR {
		return evalBool(x.X, en) || evalBool(x.Y, en)
	}

	a := evalExpr(x.X, en).Interface()
	b := evalExpr(x.Y, en).Interface()
	return arith(x.Op, a, b)
}

// numKind classifies a native Go value's arithmetic domain. uint wins over
// int on mixed operands (matching Go's own refusal of such mixes is not
// replicated; the interpreter is deliberately permissive) and float wins
// over both.
func numKind(v any) int {
	switch v.(type) {
	case float64:
		return 2
	case uint64:
		return 1
	default:
		return 0
	}
}

func arith(op token.Token, a, b any) any {
	kind := numKind(a)
	if k := numKind(b); k > kind {
		kind = k
	}

	switch kind {
	case 2: // float64
		x, y := toFloat(a), toFloat(b)
		switch op {
		case token.ADD:
			return x + y
		case token.SUB:
			return x - y
		case token.MUL:
			return x * y
		case token.QUO:
			return x / y
		case token.EQL:
			return x == y
		case token.NEQ:
			return x != y
		case token.LSS:
			return x < y
		case token.LEQ:
			return x <= y
		case token.GTR:
			return x > y
		case token.GEQ:
			return x >= y
		default:
			panic(fmt.Sprintf("transform: unsupported float operator %v", op))
		}
	case 1: // uint64
		x, y := toUint(a), toUint(b)
		switch op {
		case token.ADD:
			return x + y
		case token.SUB:
			return x - y
		case token.MUL:
			return x * y
		case token.QUO:
			return x / y
		case token.REM:
			return x % y
		case token.AND:
			return x & y
		case token.OR:
			return x | y
		case token.XOR:
			return x ^ y
		case token.SHL:
			return x << y
		case token.SHR:
			return x >> y
		case token.EQL:
			return x == y
		case token.NEQ:
			return x != y
		case token.LSS:
			return x < y
		case token.LEQ:
			return x <= y
		case token.GTR:
			return x > y
		case token.GEQ:
			return x >= y
		default:
			panic(fmt.Sprintf("transform: unsupported uint operator %v", op))
		}
	default: // int64
		x, y := toInt(a), toInt(b)
		switch op {
		case token.ADD:
			return x + y
		case token.SUB:
			return x - y
		case token.MUL:
			return x * y
		case token.QUO:
			return x / y
		case token.REM:
			return x % y
		case token.AND:
			return x & y
		case token.OR:
			return x | y
		case token.XOR:
			return x ^ y
		case token.SHL:
			return x << y
		case token.SHR:
			return x >> y
		case token.EQL:
			return x == y
		case token.NEQ:
			return x != y
		case token.LSS:
			return x < y
		case token.LEQ:
			return x <= y
		case token.GTR:
			return x > y
		case token.GEQ:
			return x >= y
		default:
			panic(fmt.Sprintf("transform: unsupported int operator %v", op))
		}
	}
}

func toInt(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case uint64:
		return int64(x)
	case float64:
		return int64(x)
	case int32:
		return int64(x)
	case uint32:
		return int64(x)
	default:
		panic(fmt.Sprintf("transform: %T is not numeric", v))
	}
}

func toUint(v any) uint64 {
	switch x := v.(type) {
	case uint64:
		return x
	case int64:
		return uint64(x)
	case float64:
		return uint64(x)
	case uint32:
		return uint64(x)
	case int32:
		return uint64(x)
	default:
		panic(fmt.Sprintf("transform: %T is not numeric", v))
	}
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	default:
		panic(fmt.Sprintf("transform: %T is not numeric", v))
	}
}

// evalCall evaluates a call that is not a suspending intrinsic: the pure
// ballot-mask helpers and the storage-buffer atomics.
func evalCall(x *ast.CallExpr, en *env) reflect.Value {
	ident, ok := x.Fun.(*ast.Ident)
	if !ok {
		panic(fmt.Sprintf("transform: unsupported call target %T", x.Fun))
	}

	// Atomics evaluate their own arguments: the first is an address
	// (&expr), which evalExpr cannot evaluate as a value.
	if atomicIntrinsics[ident.Name] {
		return reflect.ValueOf(evalAtomic(ident.Name, x.Args, en))
	}

	args := make([]reflect.Value, len(x.Args))
	for i, a := range x.Args {
		args[i] = evalExpr(a, en)
	}

	switch {
	case pureBallotHelpers[ident.Name]:
		return reflect.ValueOf(evalBallotHelper(ident.Name, args, en))
	default:
		panic(fmt.Sprintf("transform: unsupported function call %q", ident.Name))
	}
}

// maskWord extracts the low u32 from either a bare uint32 mask or the
// [4]uint32 quadruple form subgroupBallot's compatibility wrapper produces
// (Q2) — lanes 1-3 of the quadruple are always zero in this emulator.
func maskWord(v any) uint32 {
	switch x := v.(type) {
	case [4]uint32:
		return x[0]
	case uint32:
		return x
	default:
		return uint32(asInt64(v))
	}
}

func evalBallotHelper(name string, args []reflect.Value, en *env) any {
	mask := maskWord(args[0].Interface())
	lane := en.mustLookup("gl_SubgroupInvocationID").Interface().(uint32)

	switch name {
	case "subgroupInverseBallot":
		return mask&(1<<lane) != 0
	case "subgroupBallotBitCount":
		return int32(bits.OnesCount32(mask))
	case "subgroupBallotBitExtract":
		id := uint32(asInt64(args[1].Interface()))
		return mask&(1<<id) != 0
	case "subgroupBallotInclusiveBitCount":
		le := en.mustLookup("gl_SubgroupLeMask").Interface().([4]uint32)[0]
		return int32(bits.OnesCount32(mask & le))
	case "subgroupBallotExclusiveBitCount":
		lt := en.mustLookup("gl_SubgroupLtMask").Interface().([4]uint32)[0]
		return int32(bits.OnesCount32(mask & lt))
	case "subgroupBallotFindLSB":
		if mask == 0 {
			return int32(-1)
		}
		return int32(bits.TrailingZeros32(mask))
	case "subgroupBallotFindMSB":
		if mask == 0 {
			return int32(-1)
		}
		return int32(31 - bits.LeadingZeros32(mask))
	default:
		panic("transform: unreachable ballot helper " + name)
	}
}
