package shadersim

import (
	"context"
	"go/token"

	"github.com/gogpu/shadersim/dispatch"
	"github.com/gogpu/shadersim/transform"
)

// Config controls dispatch-wide behavior: subgroup width, how many
// workgroups may run concurrently, and per-tick debug trace filtering. It
// is an alias of [dispatch.Config] so callers of the top-level RunCompute
// never need to import the dispatch package directly.
type Config = dispatch.Config

// RunCompute dispatches program across a numWorkGroups grid of
// workGroupSize-shaped workgroups. It is a thin wrapper around
// [dispatch.RunCompute]; see that function's doc comment for the meaning
// of ssbo, sharedSeed, and args.
func RunCompute(ctx context.Context, cfg Config, numWorkGroups, workGroupSize [3]uint32, program *transform.Program, ssbo, sharedSeed, args any) error {
	return dispatch.RunCompute(ctx, cfg, numWorkGroups, workGroupSize, program, ssbo, sharedSeed, args)
}

// CompileCached compiles shader source via [transform.Compile], caching the
// result by source text so a caller that dispatches the same shader
// repeatedly doesn't pay for re-compilation each time.
func CompileCached(src []byte) (*transform.Program, error) {
	return dispatch.CompileCached(token.NewFileSet(), src)
}
