// Package transform implements the build-time rewrite of a user-authored
// shader body into a cooperative thread closure factory. The rewrite turns
// every intrinsic call site into an emit-Command/suspend/consume-Result
// sequence and inserts reconverge markers after divergent control flow, so
// the [scheduler] package never has to parse or interpret shader source: it
// only ever drives [Closure] values it is handed.
package transform

import "github.com/gogpu/shadersim/ir"

// Closure is one resumable cooperative thread, as produced by a compiled
// [Program]. A compiled Program implements it as an interpreter over a
// flattened instruction stream with a per-closure program counter, rather
// than a goroutine-based coroutine, so Resume costs a function call, not a
// channel round-trip.
//
// Resume feeds back the Result the scheduler computed for the Command this
// closure most recently yielded (the zero Result on the very first call,
// before the closure has yielded anything) and returns the closure's next
// Command. The returned bool is false once the closure has completed; its
// accompanying Command is then the zero value and must not be
// scheduled.
type Closure interface {
	Resume(result ir.Result) (cmd ir.Command, more bool)
}

// ClosureFunc implements [Closure] by wrapping a single resume function.
// Hand-written tests (and the scheduler's own test suite, per SPEC_FULL.md
// §10) use it to drive the scheduler without going through the AST
// rewrite: a ClosureFunc value satisfies the same interface a compiled
// shader does.
type ClosureFunc func(result ir.Result) (ir.Command, bool)

// Resume implements [Closure].
func (f ClosureFunc) Resume(result ir.Result) (ir.Command, bool) { return f(result) }
