// Package shadersim is a CPU-hosted emulator of the GPU compute-shader
// execution model.
//
// # Overview
//
// A compute shader is authored as ordinary Go source and run through the
// build-time transform (package transform), which rewrites every intrinsic
// call site (subgroupAdd, subgroupBallot, barrier, ...) into an explicit
// state-machine closure: a [transform.Closure] suspends at each intrinsic
// and resumes with the intrinsic's result once the scheduler has computed
// it. [dispatch.RunCompute] then dispatches a grid of workgroups, spawning
// one closure per invocation and advancing every subgroup's closures in
// lockstep, reproducing control-flow divergence and reconvergence, subgroup
// collective operations, and the two-tier (subgroup + workgroup)
// synchronization model a real GPU exposes.
//
// # Quick Start
//
//	import (
//		"context"
//
//		"github.com/gogpu/shadersim/dispatch"
//		"github.com/gogpu/shadersim/transform"
//	)
//
//	program, err := transform.CompileFile("reduce.shader.go")
//	if err != nil {
//		// handle build-time error
//	}
//
//	cfg := dispatch.Config{SubgroupSize: 8}
//
//	err = dispatch.RunCompute(context.Background(), cfg,
//		[3]uint32{4, 1, 1}, [3]uint32{64, 1, 1},
//		program, ssbo, sharedSeed, nil)
//
// # Architecture
//
// The module is organized the way spec.md's components map onto Go
// packages:
//   - valuetype, opcode, ir: the tagged scalar value, closed enums, and
//     command/result/context types every other package shares.
//   - collective: one pure kernel per subgroup op, applied to the threads
//     active in a convergence group.
//   - scheduler: the lockstep core — one [scheduler.Subgroup] per hardware
//     subgroup, advancing its closures tick by tick.
//   - transform: the build-time AST rewrite from shader source to closure
//     factory.
//   - dispatch: workgroup/subgroup topology, concurrency limits, the
//     workgroup barrier, and shared-memory isolation between concurrent
//     workgroups.
//
// internal/parallel and cache are supporting infrastructure: a fixed
// work-stealing thread pool subgroup schedulers run on, and a sharded cache
// keyed by shader source text so repeated dispatches of the same shader
// skip re-running the transform.
//
// # Logging
//
// By default shadersim produces no log output. Call [SetLogger] to attach
// a [log/slog.Logger]; sub-packages read the same logger through the
// internal obslog package rather than each keeping their own package-level
// logger.
package shadersim
