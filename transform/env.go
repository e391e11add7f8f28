package transform

import (
	"fmt"
	"reflect"

	"github.com/gogpu/shadersim/ir"
)

// env is the interpreter's variable environment for one running closure
// instance. Built-in IDs are seeded once at construction; locals are added
// by assignment statements as the instruction stream runs; anything not
// found locally or among the built-ins is looked up by name among the
// exported fields of args, emulating the closure-over-enclosing-scope
// capture the original macro-based transform relied on (spec.md §9).
type env struct {
	vars map[string]reflect.Value
	args reflect.Value // dereferenced args struct, or the zero Value if args is nil
}

func newEnv(tctx ir.ThreadContext, wctx ir.WorkGroupContext, args any) *env {
	e := &env{vars: make(map[string]reflect.Value, 24)}

	e.vars["gl_GlobalInvocationID"] = reflect.ValueOf(tctx.GlobalInvocationID)
	e.vars["gl_LocalInvocationID"] = reflect.ValueOf(tctx.LocalInvocationID)
	e.vars["gl_SubgroupInvocationID"] = reflect.ValueOf(tctx.SubgroupInvocationID)
	e.vars["gl_SubgroupEqMask"] = reflect.ValueOf(ir.Quad(tctx.EqMask))
	e.vars["gl_SubgroupGeMask"] = reflect.ValueOf(ir.Quad(tctx.GeMask))
	e.vars["gl_SubgroupGtMask"] = reflect.ValueOf(ir.Quad(tctx.GtMask))
	e.vars["gl_SubgroupLeMask"] = reflect.ValueOf(ir.Quad(tctx.LeMask))
	e.vars["gl_SubgroupLtMask"] = reflect.ValueOf(ir.Quad(tctx.LtMask))

	e.vars["gl_NumWorkGroups"] = reflect.ValueOf(wctx.NumWorkGroups)
	e.vars["gl_WorkGroupSize"] = reflect.ValueOf(wctx.WorkGroupSize)
	e.vars["gl_WorkGroupID"] = reflect.ValueOf(wctx.WorkGroupID)
	e.vars["gl_NumSubgroups"] = reflect.ValueOf(wctx.NumSubgroups)
	e.vars["gl_SubgroupID"] = reflect.ValueOf(wctx.SubgroupID)

	if args != nil {
		v := reflect.ValueOf(args)
		for v.Kind() == reflect.Pointer && !v.IsNil() {
			v = v.Elem()
		}
		e.args = v
	}

	return e
}

// set assigns a local variable.
func (e *env) set(name string, v reflect.Value) {
	e.vars[name] = v
}

// lookup resolves an identifier to a value, checking locals/built-ins
// first and falling back to a field of args.
func (e *env) lookup(name string) (reflect.Value, bool) {
	if v, ok := e.vars[name]; ok {
		return v, true
	}
	if e.args.IsValid() && e.args.Kind() == reflect.Struct {
		if f := e.args.FieldByName(name); f.IsValid() {
			return f, true
		}
	}
	return reflect.Value{}, false
}

func (e *env) mustLookup(name string) reflect.Value {
	v, ok := e.lookup(name)
	if !ok {
		panic(fmt.Sprintf("transform: undefined identifier %q", name))
	}
	return v
}
