package transform

import (
	"fmt"
	"go/ast"
	"go/token"
	"reflect"
	"sync/atomic"
)

// evalAtomic evaluates one of the sequentially-consistent storage-buffer
// atomics (spec.md §5, §6). These execute inline via sync/atomic rather
// than suspending the closure: the emulator does not interpose locks on
// ssbo, it only provides these primitives.
func evalAtomic(name string, argExprs []ast.Expr, en *env) any {
	ptr := addrOf(argExprs[0], en)

	switch name {
	case "atomicExchange":
		val := evalExpr(argExprs[1], en).Interface()
		return atomicExchange(ptr, val)
	case "atomicCompSwap":
		old := evalExpr(argExprs[1], en).Interface()
		newVal := evalExpr(argExprs[2], en).Interface()
		return atomicCompareSwap(ptr, old, newVal)
	default:
		delta := evalExpr(argExprs[1], en).Interface()
		return atomicCombine(name, ptr, delta)
	}
}

// addrOf evaluates an argument expression that must yield an addressable
// storage cell: either an explicit &expr, or an expression that already
// evaluates to a pointer (e.g. a slice element or a field typed as a
// pointer).
func addrOf(e ast.Expr, en *env) reflect.Value {
	if u, ok := e.(*ast.UnaryExpr); ok && u.Op == token.AND {
		v := evalExpr(u.X, en)
		if !v.CanAddr() {
			panic(fmt.Sprintf("transform: cannot take address of %s", u.X))
		}
		return v.Addr()
	}
	v := evalExpr(e, en)
	if v.Kind() != reflect.Pointer {
		panic(fmt.Sprintf("transform: atomic target %s is not addressable", e))
	}
	return v
}

func atomicCombine(name string, ptr reflect.Value, delta any) any {
	switch p := ptr.Interface().(type) {
	case *int32:
		d := int32(asInt64(delta))
		for {
			old := atomic.LoadInt32(p)
			var next int32
			switch name {
			case "atomicAdd":
				next = old + d
			case "atomicAnd":
				next = old & d
			case "atomicOr":
				next = old | d
			case "atomicXor":
				next = old ^ d
			}
			if atomic.CompareAndSwapInt32(p, old, next) {
				return old
			}
		}
	case *uint32:
		d := uint32(asInt64(delta))
		for {
			old := atomic.LoadUint32(p)
			var next uint32
			switch name {
			case "atomicAdd":
				next = old + d
			case "atomicAnd":
				next = old & d
			case "atomicOr":
				next = old | d
			case "atomicXor":
				next = old ^ d
			}
			if atomic.CompareAndSwapUint32(p, old, next) {
				return old
			}
		}
	default:
		panic(fmt.Sprintf("transform: unsupported atomic target type %T", ptr.Interface()))
	}
}

func atomicExchange(ptr reflect.Value, val any) any {
	switch p := ptr.Interface().(type) {
	case *int32:
		return atomic.SwapInt32(p, int32(asInt64(val)))
	case *uint32:
		return atomic.SwapUint32(p, uint32(asInt64(val)))
	default:
		panic(fmt.Sprintf("transform: unsupported atomic target type %T", ptr.Interface()))
	}
}

func atomicCompareSwap(ptr reflect.Value, old, newVal any) any {
	switch p := ptr.Interface().(type) {
	case *int32:
		o := int32(asInt64(old))
		atomic.CompareAndSwapInt32(p, o, int32(asInt64(newVal)))
		return atomic.LoadInt32(p)
	case *uint32:
		o := uint32(asInt64(old))
		atomic.CompareAndSwapUint32(p, o, uint32(asInt64(newVal)))
		return atomic.LoadUint32(p)
	default:
		panic(fmt.Sprintf("transform: unsupported atomic target type %T", ptr.Interface()))
	}
}
