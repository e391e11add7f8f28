package transform

import (
	"go/ast"
	"go/token"
	"reflect"

	"github.com/gogpu/shadersim/ir"
	"github.com/gogpu/shadersim/opcode"
)

type stepKind int

const (
	stepNop stepKind = iota
	stepAssign
	stepExec
	stepIntrinsic
	stepIf
	stepJump
	stepReturn
)

// step is one entry in a Program's flattened instruction stream. Only the
// fields relevant to Kind are populated; the others are left at their zero
// value. This mirrors the "explicit state-machine enum per shader" design
// from spec.md §9: a shader compiles to a linear list of these rather than
// a tree the interpreter re-walks on every resume.
type step struct {
	kind stepKind

	// stepAssign / stepExec
	assignTok token.Token // token.DEFINE, token.ASSIGN, token.ADD_ASSIGN, token.INC, token.DEC, ...
	target    ast.Expr    // stepAssign only
	value     ast.Expr    // stepAssign (nil for INC/DEC) / stepExec

	// stepIntrinsic
	op        opcode.Op
	opID      uint64
	valueArg  ast.Expr
	auxArg    ast.Expr
	condArg   ast.Expr
	resultVar string

	// stepIf
	cond      ast.Expr
	elseStart int

	// stepJump
	jumpTarget int
}

// Program is a compiled shader: a flattened instruction stream plus enough
// metadata to spawn one [Closure] per invocation. Produced by [Compile] or
// [CompileFile].
type Program struct {
	steps  []step
	numOps int
}

// NumOps returns the number of static suspension points (intrinsic calls
// plus inserted reconverge markers) this program contains, surviving the
// peephole pass. Exposed for tests that check opID assignment and
// peephole-optimization behavior directly.
func (p *Program) NumOps() int { return p.numOps }

// NewClosure instantiates one cooperative thread for this program. ctx and
// wg populate the built-in IDs; args is promoted field-by-field into the
// closure's variable environment so the shader body can reference its
// captured state directly, the way the original closure-capturing shader
// functions did.
func (p *Program) NewClosure(ctx ir.ThreadContext, wg ir.WorkGroupContext, args any) Closure {
	return &programClosure{
		program: p,
		env:     newEnv(ctx, wg, args),
	}
}

// programClosure is the runtime state of one invocation of a compiled
// Program: a program counter into the shared, read-only step slice plus a
// private variable environment.
type programClosure struct {
	program *Program
	env     *env
	pc      int

	// pendingResultVar is the resultVar of the intrinsic step most
	// recently yielded; the next Resume call stores its Result here
	// before continuing execution.
	pendingResultVar string
	pendingOp        opcode.Op
}

// Resume implements [Closure].
func (c *programClosure) Resume(result ir.Result) (ir.Command, bool) {
	if c.pendingResultVar != "" {
		c.storeResult(result)
		c.pendingResultVar = ""
	}

	steps := c.program.steps
	for c.pc < len(steps) {
		s := &steps[c.pc]
		switch s.kind {
		case stepNop:
			c.pc++

		case stepAssign:
			c.execAssign(s)
			c.pc++

		case stepExec:
			evalExpr(s.value, c.env)
			c.pc++

		case stepIf:
			if evalBool(s.cond, c.env) {
				c.pc++
			} else {
				c.pc = s.elseStart
			}

		case stepJump:
			c.pc = s.jumpTarget

		case stepReturn:
			return ir.Command{}, false

		case stepIntrinsic:
			cmd := c.buildCommand(s)
			c.pendingResultVar = s.resultVar
			if c.pendingResultVar == "" {
				c.pendingResultVar = "_" // non-empty sentinel: still consume the Result on next Resume
			}
			c.pendingOp = s.op
			c.pc++
			return cmd, true
		}
	}
	return ir.Command{}, false
}

func (c *programClosure) storeResult(result ir.Result) {
	if c.pendingResultVar == "_" {
		return
	}
	if c.pendingOp.ResultIsBool() {
		c.env.set(c.pendingResultVar, reflect.ValueOf(result.Bool))
		return
	}
	c.env.set(c.pendingResultVar, reflect.ValueOf(nativeOf(result.Type, result.Val)))
}

func (c *programClosure) buildCommand(s *step) ir.Command {
	switch {
	case s.op == opcode.Reconverge:
		return ir.NewReconverge(s.opID)
	case s.op.IsSync():
		return ir.NewSyncCommand(s.opID, s.op)
	case s.op.CommandIsBool():
		cond := evalBool(s.condArg, c.env)
		return ir.NewBoolCommand(s.opID, s.op, cond)
	case s.op == opcode.Elect:
		return ir.Command{OpID: s.opID, Op: s.op}
	default:
		typ, val := scalarOf(evalExpr(s.valueArg, c.env).Interface())
		var aux uint32
		if s.auxArg != nil {
			aux = uint32(asInt64(evalExpr(s.auxArg, c.env).Interface()))
		}
		return ir.NewScalarCommand(s.opID, s.op, typ, val, aux)
	}
}

func (c *programClosure) execAssign(s *step) {
	var rv reflect.Value

	switch s.assignTok {
	case token.INC, token.DEC:
		cur := evalExpr(s.target, c.env).Interface()
		delta := int64(1)
		if s.assignTok == token.DEC {
			delta = -1
		}
		rv = reflect.ValueOf(arith(token.ADD, cur, delta))
	case token.ADD_ASSIGN, token.SUB_ASSIGN, token.MUL_ASSIGN, token.QUO_ASSIGN, token.REM_ASSIGN,
		token.AND_ASSIGN, token.OR_ASSIGN, token.XOR_ASSIGN, token.SHL_ASSIGN, token.SHR_ASSIGN:
		cur := evalExpr(s.target, c.env).Interface()
		delta := evalExpr(s.value, c.env).Interface()
		rv = reflect.ValueOf(arith(compoundOp(s.assignTok), cur, delta))
	default: // token.DEFINE, token.ASSIGN
		rv = evalExpr(s.value, c.env)
	}

	c.assignTarget(s.target, rv)
}

func (c *programClosure) assignTarget(target ast.Expr, rv reflect.Value) {
	if ident, ok := target.(*ast.Ident); ok {
		c.env.set(ident.Name, rv)
		return
	}
	dst := evalExpr(target, c.env)
	if !dst.CanSet() {
		panic("transform: assignment target is not addressable")
	}
	if rv.Type() != dst.Type() && rv.Type().ConvertibleTo(dst.Type()) {
		rv = rv.Convert(dst.Type())
	}
	dst.Set(rv)
}

func compoundOp(tok token.Token) token.Token {
	switch tok {
	case token.ADD_ASSIGN:
		return token.ADD
	case token.SUB_ASSIGN:
		return token.SUB
	case token.MUL_ASSIGN:
		return token.MUL
	case token.QUO_ASSIGN:
		return token.QUO
	case token.REM_ASSIGN:
		return token.REM
	case token.AND_ASSIGN:
		return token.AND
	case token.OR_ASSIGN:
		return token.OR
	case token.XOR_ASSIGN:
		return token.XOR
	case token.SHL_ASSIGN:
		return token.SHL
	case token.SHR_ASSIGN:
		return token.SHR
	default:
		panic("transform: unsupported compound assignment operator")
	}
}
