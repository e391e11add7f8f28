package transform

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"

	"github.com/gogpu/shadersim/opcode"
)

// Compile rewrites a single shader function's source into a [Program]. src
// must contain exactly one top-level function declaration — the shader
// entry point — optionally preceded by a package clause; a bare function
// body with no package clause is wrapped in one automatically so shader
// source files can omit it.
func Compile(fset *token.FileSet, src []byte) (*Program, error) {
	text := src
	if !hasPackageClause(src) {
		wrapped := make([]byte, 0, len(src)+16)
		wrapped = append(wrapped, "package shader\n\n"...)
		wrapped = append(wrapped, src...)
		text = wrapped
	}

	file, err := parser.ParseFile(fset, "", text, parser.ParseComments)
	if err != nil {
		return nil, &ShaderStructureError{Pos: "<source>", Err: err}
	}

	var fn *ast.FuncDecl
	for _, decl := range file.Decls {
		if d, ok := decl.(*ast.FuncDecl); ok {
			fn = d
			break
		}
	}
	if fn == nil {
		return nil, &ShaderStructureError{Pos: "<source>", Err: fmt.Errorf("no function declaration found")}
	}
	if fn.Body == nil {
		return nil, &ShaderStructureError{Pos: fset.Position(fn.Pos()).String(), Err: fmt.Errorf("function %s has no body", fn.Name)}
	}

	b := &builder{fset: fset}
	if err := b.checkNoNestedRoutines(fn.Body); err != nil {
		return nil, err
	}
	if err := b.compileBlock(fn.Body); err != nil {
		return nil, err
	}
	b.emit(step{kind: stepReturn})

	survived := peephole(b.steps)

	return &Program{steps: b.steps, numOps: survived}, nil
}

// CompileFile reads and compiles the shader function declared in the Go
// source file at path, suitable as the target of a go:generate directive
// that pre-compiles shader programs at build time.
func CompileFile(path string) (*Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Compile(token.NewFileSet(), src)
}

func hasPackageClause(src []byte) bool {
	fset := token.NewFileSet()
	_, err := parser.ParseFile(fset, "", src, parser.PackageClauseOnly)
	return err == nil
}

// loopContext tracks the jump targets break/continue resolve to while
// compiling the body of a for loop.
type loopContext struct {
	continueTarget int
	breakTarget    int
}

// builder accumulates the flattened instruction stream for one shader
// function. It is single-use: construct one per [Compile] call.
type builder struct {
	fset     *token.FileSet
	steps    []step
	nextOpID uint64
	loops    []loopContext
}

func (b *builder) pos(n ast.Node) string {
	return b.fset.Position(n.Pos()).String()
}

func (b *builder) emit(s step) int {
	b.steps = append(b.steps, s)
	return len(b.steps) - 1
}

func (b *builder) allocOpID() uint64 {
	id := b.nextOpID
	b.nextOpID++
	return id
}

func (b *builder) checkNoNestedRoutines(body *ast.BlockStmt) error {
	var found error
	ast.Inspect(body, func(n ast.Node) bool {
		if found != nil {
			return false
		}
		switch lit := n.(type) {
		case *ast.FuncLit:
			found = &ShaderStructureError{Pos: b.pos(lit), Err: ErrNestedRoutine}
			return false
		case *ast.FuncDecl:
			found = &ShaderStructureError{Pos: b.pos(lit), Err: ErrNestedRoutine}
			return false
		}
		return true
	})
	return found
}

func (b *builder) compileBlock(block *ast.BlockStmt) error {
	for _, stmt := range block.List {
		if err := b.compileStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) compileStmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.AssignStmt:
		return b.compileAssign(s)

	case *ast.IncDecStmt:
		b.emit(step{kind: stepAssign, assignTok: s.Tok, target: s.X})
		return nil

	case *ast.ExprStmt:
		return b.compileExprStmt(s)

	case *ast.IfStmt:
		return b.compileIf(s)

	case *ast.ForStmt:
		return b.compileFor(s)

	case *ast.ReturnStmt:
		b.emit(step{kind: stepReturn})
		return nil

	case *ast.BranchStmt:
		return b.compileBranch(s)

	case *ast.BlockStmt:
		return b.compileBlock(s)

	case *ast.DeclStmt:
		// Local var/const declarations with no initializer carry no runtime
		// effect the interpreter needs to model; declarations with values
		// arrive as AssignStmt via `:=` in shader source, the only form
		// this subset supports.
		return nil

	case *ast.EmptyStmt:
		return nil

	default:
		return &ShaderStructureError{Pos: b.pos(stmt), Err: fmt.Errorf("unsupported statement %T", stmt)}
	}
}

// compileAssign handles both plain assignment and the
// `result := subgroupX(...)` / `result = subgroupX(...)` form, where the
// right-hand side is a single call to a suspending intrinsic.
func (b *builder) compileAssign(s *ast.AssignStmt) error {
	if len(s.Lhs) != 1 || len(s.Rhs) != 1 {
		return &ShaderStructureError{Pos: b.pos(s), Err: fmt.Errorf("multi-value assignment is not supported")}
	}

	if call, ok := s.Rhs[0].(*ast.CallExpr); ok {
		if ident, ok := call.Fun.(*ast.Ident); ok {
			if info, isIntrinsic := intrinsics[ident.Name]; isIntrinsic {
				target, ok := s.Lhs[0].(*ast.Ident)
				if !ok {
					return &ShaderStructureError{Pos: b.pos(s), Err: fmt.Errorf("intrinsic result must be assigned to a plain identifier")}
				}
				return b.emitIntrinsic(ident.Name, info, call, target.Name)
			}
		}
	}

	switch s.Tok {
	case token.DEFINE, token.ASSIGN:
		b.emit(step{kind: stepAssign, assignTok: s.Tok, target: s.Lhs[0], value: s.Rhs[0]})
	default:
		b.emit(step{kind: stepAssign, assignTok: s.Tok, target: s.Lhs[0], value: s.Rhs[0]})
	}
	return nil
}

func (b *builder) compileExprStmt(s *ast.ExprStmt) error {
	if call, ok := s.X.(*ast.CallExpr); ok {
		if ident, ok := call.Fun.(*ast.Ident); ok {
			if info, isIntrinsic := intrinsics[ident.Name]; isIntrinsic {
				return b.emitIntrinsic(ident.Name, info, call, "")
			}
		}
	}
	b.emit(step{kind: stepExec, value: s.X})
	return nil
}

func (b *builder) emitIntrinsic(name string, info intrinsicInfo, call *ast.CallExpr, resultVar string) error {
	if len(call.Args) != info.arity {
		return &ShaderStructureError{Pos: b.pos(call), Err: &ErrIntrinsicArity{Name: name, Want: info.arity, Got: len(call.Args)}}
	}

	s := step{kind: stepIntrinsic, op: info.op, opID: b.allocOpID(), resultVar: resultVar}

	switch {
	case info.op.CommandIsBool():
		s.condArg = call.Args[0]
	case info.arity == 2:
		s.valueArg = call.Args[0]
		s.auxArg = call.Args[1]
	case info.arity == 1:
		s.valueArg = call.Args[0]
	}

	b.emit(s)
	return nil
}

// compileIf lowers an if/else-if/else chain into a stepIf plus a trailing
// reconverge, per spec.md §4.1 rule 3: every divergent branch reconverges
// before the next instruction.
func (b *builder) compileIf(s *ast.IfStmt) error {
	if s.Init != nil {
		if err := b.compileStmt(s.Init); err != nil {
			return err
		}
	}

	ifIdx := b.emit(step{kind: stepIf, cond: s.Cond})

	if err := b.compileBlock(s.Body); err != nil {
		return err
	}

	var jumpIdx = -1
	if s.Else != nil {
		jumpIdx = b.emit(step{kind: stepJump})
	}

	elseStart := len(b.steps)
	b.steps[ifIdx].elseStart = elseStart

	if s.Else != nil {
		switch e := s.Else.(type) {
		case *ast.BlockStmt:
			if err := b.compileBlock(e); err != nil {
				return err
			}
		case *ast.IfStmt:
			if err := b.compileIf(e); err != nil {
				return err
			}
		default:
			return &ShaderStructureError{Pos: b.pos(s.Else), Err: fmt.Errorf("unsupported else clause %T", s.Else)}
		}
		b.steps[jumpIdx].jumpTarget = len(b.steps)
	}

	reconvergeID := b.allocOpID()
	b.emit(step{kind: stepIntrinsic, op: opcode.Reconverge, opID: reconvergeID})
	return nil
}

// compileFor lowers a three-clause or condition-only for loop. A reconverge
// marker is inserted at the top of every iteration, and once more after the
// loop, only when the body contains an (unlabeled) continue — per spec.md
// §4.1 rule 3, loops that never diverge via continue need no extra
// reconvergence beyond the one the scheduler already performs at the next
// instruction.
func (b *builder) compileFor(s *ast.ForStmt) error {
	if s.Init != nil {
		if err := b.compileStmt(s.Init); err != nil {
			return err
		}
	}

	hasContinue := containsUnlabeledContinue(s.Body)

	loopStart := len(b.steps)
	if hasContinue {
		// opID assigned after the body, so it sorts after every suspension
		// point inside it: threads that continue wait here for the rest.
		b.emit(step{kind: stepIntrinsic, op: opcode.Reconverge})
	}

	var ifIdx = -1
	if s.Cond != nil {
		ifIdx = b.emit(step{kind: stepIf, cond: s.Cond})
	}

	b.loops = append(b.loops, loopContext{continueTarget: continueSentinel})
	defer func() { b.loops = b.loops[:len(b.loops)-1] }()

	if err := b.compileBlock(s.Body); err != nil {
		return err
	}

	// A continue runs the post statement before the next iteration.
	postStart := len(b.steps)
	for i := loopStart; i < postStart; i++ {
		if b.steps[i].kind == stepJump && b.steps[i].jumpTarget == continueSentinel {
			b.steps[i].jumpTarget = postStart
		}
	}
	if hasContinue {
		b.steps[loopStart].opID = b.allocOpID()
	}

	if s.Post != nil {
		if err := b.compileStmt(s.Post); err != nil {
			return err
		}
	}

	b.emit(step{kind: stepJump, jumpTarget: loopStart})

	loopEnd := len(b.steps)
	if ifIdx >= 0 {
		b.steps[ifIdx].elseStart = loopEnd
	}

	if hasContinue {
		b.emit(step{kind: stepIntrinsic, op: opcode.Reconverge, opID: b.allocOpID()})
	}

	// Patch break targets recorded while compiling the body: their real
	// target (just past the loop, including its trailing reconverge if any)
	// is only known now.
	afterLoop := len(b.steps)
	for i := loopStart; i < afterLoop; i++ {
		if b.steps[i].kind == stepJump && b.steps[i].jumpTarget == breakSentinel {
			b.steps[i].jumpTarget = afterLoop
		}
	}

	return nil
}

// breakSentinel marks a stepJump emitted for a break statement whose real
// target (the end of its enclosing loop) is not yet known at emit time.
const breakSentinel = -1

// continueSentinel marks a stepJump emitted for a continue statement whose
// real target (its loop's post statement) is not yet known at emit time.
const continueSentinel = -2

func (b *builder) compileBranch(s *ast.BranchStmt) error {
	if s.Label != nil {
		return &ShaderStructureError{Pos: b.pos(s), Err: fmt.Errorf("labeled break/continue is not supported")}
	}
	if len(b.loops) == 0 {
		return &ShaderStructureError{Pos: b.pos(s), Err: fmt.Errorf("%s outside of a loop", s.Tok)}
	}
	top := b.loops[len(b.loops)-1]

	switch s.Tok {
	case token.CONTINUE:
		b.emit(step{kind: stepJump, jumpTarget: top.continueTarget})
	case token.BREAK:
		b.emit(step{kind: stepJump, jumpTarget: breakSentinel})
	default:
		return &ShaderStructureError{Pos: b.pos(s), Err: fmt.Errorf("unsupported branch %s", s.Tok)}
	}
	return nil
}

// containsUnlabeledContinue reports whether body has a continue statement
// that targets its own enclosing loop (as opposed to a nested loop, which
// would shadow it unless the continue carries a label naming the outer
// loop — labels are outside this subset, see compileBranch).
func containsUnlabeledContinue(body *ast.BlockStmt) bool {
	found := false
	var walk func(n ast.Node) bool
	walk = func(n ast.Node) bool {
		if found {
			return false
		}
		switch x := n.(type) {
		case *ast.BranchStmt:
			if x.Tok == token.CONTINUE && x.Label == nil {
				found = true
			}
			return false
		case *ast.ForStmt, *ast.RangeStmt, *ast.FuncLit:
			return false // continue inside a nested loop targets that loop, not this one
		}
		return true
	}
	ast.Inspect(body, walk)
	return found
}
