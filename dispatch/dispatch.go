package dispatch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/gogpu/shadersim/internal/obslog"
	"github.com/gogpu/shadersim/internal/parallel"
	"github.com/gogpu/shadersim/ir"
	"github.com/gogpu/shadersim/scheduler"
	"github.com/gogpu/shadersim/transform"
)

// closureArgs is the single struct every compiled shader closure's args
// parameter resolves to: ssbo and args fields are shared, unmodified,
// across the whole dispatch; shared carries one deep copy per workgroup.
// Shader source reaches into these by their exported field name (e.g.
// `SSBO.Counter`), matching the `any`-typed fields' dynamic type.
type closureArgs struct {
	SSBO   any
	Shared any
	Args   any
}

// RunCompute dispatches a compute shader program across a numWorkGroups
// grid of workGroupSize-shaped workgroups, driving every thread's closure
// to completion through the lockstep scheduler (spec.md §4.4).
//
// ssbo is shared, unmodified, across every workgroup (it models a storage
// buffer: persistent state visible to every invocation in the dispatch).
// sharedSeed is deep-copied once per workgroup (it models workgroup-local
// shared memory: isolated between workgroups, shared within one). args is
// shared, read-only, uniform data. Any of the three may be nil.
//
// RunCompute returns a *ConfigError, before any workgroup starts, if cfg is
// invalid, program is nil, or workGroupSize has zero threads. The worker
// pool is created with MaxConcurrentWorkGroups * (numSubgroups + 1)
// workers, so the pool-sizing invariant holds by construction and has no
// error of its own. Otherwise RunCompute returns the first fatal scheduler error
// (*scheduler.NonUniformBarrierError, *scheduler.DeadlockError,
// *scheduler.InvalidOpResultError) encountered by any subgroup.
func RunCompute(ctx context.Context, cfg Config, numWorkGroups, workGroupSize [3]uint32, program *transform.Program, ssbo, sharedSeed, args any) error {
	cfg, err := NewConfig(cfg)
	if err != nil {
		return err
	}
	if program == nil {
		return &ConfigError{Reason: "program is nil"}
	}

	topo := computeTopology(workGroupSize, uint32(cfg.SubgroupSize))
	if topo.threadsPerWorkgroup == 0 {
		return &ConfigError{Reason: "workGroupSize has zero threads"}
	}

	poolCapacity := cfg.MaxConcurrentWorkGroups * (int(topo.numSubgroups) + 1)
	pool := parallel.NewWorkerPool(poolCapacity)
	defer pool.Close()

	totalWorkGroups := numWorkGroups[0] * numWorkGroups[1] * numWorkGroups[2]

	sem := semaphore.NewWeighted(int64(cfg.MaxConcurrentWorkGroups))
	g, gctx := errgroup.WithContext(ctx)

	for flat := uint32(0); flat < totalWorkGroups; flat++ {
		flat := flat
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			workGroupID := workGroupIDAt(flat, numWorkGroups)
			return runWorkGroup(gctx, cfg, pool, topo, workGroupID, numWorkGroups, workGroupSize, program, ssbo, sharedSeed, args)
		})
	}

	return g.Wait()
}

// runWorkGroup builds every subgroup scheduler for one workgroup, submits
// each to pool, and awaits them via an errgroup — the pool bounds how many
// goroutines are actually runnable at once, the errgroup collects the
// first error.
func runWorkGroup(ctx context.Context, cfg Config, pool *parallel.WorkerPool, topo topology, workGroupID, numWorkGroups, workGroupSize [3]uint32, program *transform.Program, ssbo, sharedSeed, args any) error {
	log := obslog.Get()
	sharedCopy := deepCopy(sharedSeed)
	barrier := NewBarrier(int(topo.numSubgroups))

	log.Info("workgroup dispatch starting", "workGroupID", workGroupID, "numSubgroups", topo.numSubgroups)

	tailActive := topo.numActive(topo.numSubgroups - 1)
	if tailActive < topo.subgroupSize {
		log.Warn("tail subgroup narrower than SubgroupSize",
			"workGroupID", workGroupID, "numActive", tailActive, "subgroupSize", topo.subgroupSize)
	}

	g, gctx := errgroup.WithContext(ctx)

	for sgID := uint32(0); sgID < topo.numSubgroups; sgID++ {
		sgID := sgID
		active := topo.numActive(sgID)

		wgCtx := ir.WorkGroupContext{
			NumWorkGroups: numWorkGroups,
			WorkGroupSize: workGroupSize,
			WorkGroupID:   workGroupID,
			NumSubgroups:  topo.numSubgroups,
			SubgroupID:    sgID,
		}

		closures := make([]transform.Closure, active)
		for lane := uint32(0); lane < active; lane++ {
			flatLocal := sgID*topo.subgroupSize + lane
			local := localID(flatLocal, workGroupSize)
			global := globalID(workGroupID, workGroupSize, local)
			tctx := ir.NewThreadContext(global, local, lane, topo.subgroupSize)
			closures[lane] = program.NewClosure(tctx, wgCtx, closureArgs{SSBO: ssbo, Shared: sharedCopy, Args: args})
		}

		sg := scheduler.NewSubgroup(workGroupID, sgID, closures, barrier)
		sg.Debug = cfg.debugMatches(workGroupID, sgID)

		g.Go(func() error {
			done := make(chan struct{})
			var runErr error
			pool.Submit(func() {
				defer close(done)
				runErr = sg.Run(gctx)
			})
			select {
			case <-done:
				return runErr
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("workgroup %v: %w", workGroupID, err)
	}
	log.Info("workgroup dispatch finished", "workGroupID", workGroupID)
	return nil
}
