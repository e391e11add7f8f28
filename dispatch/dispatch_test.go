package dispatch

import (
	"context"
	"errors"
	"go/token"
	"reflect"
	"testing"

	"github.com/gogpu/shadersim/scheduler"
)

// s1Shader implements S1: each thread adds its input element into the
// subgroup-wide sum, and the subgroup's first lane atomically folds that
// into its workgroup's partial sum slot (spec.md §8).
const s1Shader = `
func reduceInput() {
	idx := gl_GlobalInvocationID.X
	v := SSBO.Input[idx]
	total := subgroupAdd(v)
	if gl_SubgroupInvocationID == 0 {
		atomicAdd(&SSBO.PartialSums[gl_WorkGroupID.X], total)
	}
}
`

type s1SSBO struct {
	Input       []int32
	PartialSums [4]int32
}

func newS1SSBO() *s1SSBO {
	input := make([]int32, 1024)
	for i := range input {
		input[i] = int32(i)
	}
	return &s1SSBO{Input: input}
}

func TestRunComputeS1SubgroupReduction(t *testing.T) {
	program, err := CompileCached(token.NewFileSet(), []byte(s1Shader))
	if err != nil {
		t.Fatalf("CompileCached: %v", err)
	}

	ssbo := newS1SSBO()
	cfg := Config{SubgroupSize: 8, MaxConcurrentWorkGroups: 2}

	err = RunCompute(context.Background(), cfg, [3]uint32{4, 1, 1}, [3]uint32{256, 1, 1}, program, ssbo, nil, nil)
	if err != nil {
		t.Fatalf("RunCompute: %v", err)
	}

	var sum int64
	for _, p := range ssbo.PartialSums {
		sum += int64(p)
	}
	if sum != 523776 {
		t.Errorf("sum = %d, want 523776", sum)
	}
}

func TestRunComputeS6DeterminismUnderConcurrency(t *testing.T) {
	program, err := CompileCached(token.NewFileSet(), []byte(s1Shader))
	if err != nil {
		t.Fatalf("CompileCached: %v", err)
	}
	cfg := Config{SubgroupSize: 8, MaxConcurrentWorkGroups: 4}

	run := func() [4]int32 {
		ssbo := newS1SSBO()
		if err := RunCompute(context.Background(), cfg, [3]uint32{4, 1, 1}, [3]uint32{256, 1, 1}, program, ssbo, nil, nil); err != nil {
			t.Fatalf("RunCompute: %v", err)
		}
		return ssbo.PartialSums
	}

	first := run()
	for i := 0; i < 4; i++ {
		if got := run(); got != first {
			t.Fatalf("run %d produced %v, want %v (non-deterministic partial sums)", i, got, first)
		}
	}
}

// s3Shader implements S3: a barrier, a subgroupBroadcastFirst of a
// neighbor's value, another barrier, then the write-back.
const s3Shader = `
func broadcastNeighbor() {
	idx := gl_GlobalInvocationID.X
	barrier()
	v := SSBO.Output[idx+1]
	x := subgroupBroadcastFirst(v)
	barrier()
	SSBO.Output[idx] = x
}
`

type s3SSBO struct {
	Output []int32
}

func TestRunComputeS3BarrierBroadcastFirst(t *testing.T) {
	program, err := CompileCached(token.NewFileSet(), []byte(s3Shader))
	if err != nil {
		t.Fatalf("CompileCached: %v", err)
	}

	output := make([]int32, 17)
	for i := range output {
		output[i] = int32(i)
	}
	ssbo := &s3SSBO{Output: output}

	cfg := Config{SubgroupSize: 8, MaxConcurrentWorkGroups: 1}
	err = RunCompute(context.Background(), cfg, [3]uint32{1, 1, 1}, [3]uint32{16, 1, 1}, program, ssbo, nil, nil)
	if err != nil {
		t.Fatalf("RunCompute: %v", err)
	}

	want := []int32{1, 1, 1, 1, 1, 1, 1, 1, 9, 9, 9, 9, 9, 9, 9, 9}
	for i, w := range want {
		if ssbo.Output[i] != w {
			t.Errorf("Output[%d] = %d, want %d", i, ssbo.Output[i], w)
		}
	}
}

// s5Shader implements S5: a non-uniform barrier that can never become
// uniform, because only lane 1 ever reaches it.
const s5Shader = `
func divergentBarrier() {
	if gl_LocalInvocationID.X == 1 {
		barrier()
	}
}
`

func TestRunComputeS5NonUniformBarrierOrDeadlock(t *testing.T) {
	program, err := CompileCached(token.NewFileSet(), []byte(s5Shader))
	if err != nil {
		t.Fatalf("CompileCached: %v", err)
	}

	cfg := Config{SubgroupSize: 8, MaxConcurrentWorkGroups: 1}
	err = RunCompute(context.Background(), cfg, [3]uint32{1, 1, 1}, [3]uint32{8, 1, 1}, program, struct{}{}, nil, nil)
	if err == nil {
		t.Fatal("RunCompute with a divergent barrier = nil error, want NonUniformBarrier or Deadlock")
	}

	var nonUniform *scheduler.NonUniformBarrierError
	var deadlock *scheduler.DeadlockError
	if !errors.As(err, &nonUniform) && !errors.As(err, &deadlock) {
		t.Fatalf("RunCompute error = %v (%T), want *scheduler.NonUniformBarrierError or *scheduler.DeadlockError", err, err)
	}
}

// s4Shader implements S4: a loop with a continue that skips an iteration's
// collective for some lanes but not others, forcing the stragglers to catch
// up at the loop-top reconverge before the shared subgroupBroadcastFirst
// after it runs over the correct active set (spec.md §8).
const s4Shader = `
func continueReconverge() {
	tid := gl_GlobalInvocationID.X
	value := 0
	for i := 1; i <= 2; i++ {
		if (tid+i)%3 == 0 {
			continue
		}
		value = subgroupBroadcastFirst(tid + i)
	}
	SSBO.Output[tid] = value
}
`

type s4SSBO struct {
	Output []int32
}

func TestRunComputeS4ContinueAwareReconvergence(t *testing.T) {
	program, err := CompileCached(token.NewFileSet(), []byte(s4Shader))
	if err != nil {
		t.Fatalf("CompileCached: %v", err)
	}

	ssbo := &s4SSBO{Output: make([]int32, 64)}
	cfg := Config{SubgroupSize: 8, MaxConcurrentWorkGroups: 4}
	err = RunCompute(context.Background(), cfg, [3]uint32{4, 1, 1}, [3]uint32{16, 1, 1}, program, ssbo, nil, nil)
	if err != nil {
		t.Fatalf("RunCompute: %v", err)
	}

	want := []int32{2, 1, 2, 2, 1, 2, 2, 1}
	if got := ssbo.Output[:len(want)]; !reflect.DeepEqual(got, want) {
		t.Fatalf("Output[0:8] = %v, want %v", got, want)
	}
}

func TestNewConfigRejectsOversizedSubgroup(t *testing.T) {
	if _, err := NewConfig(Config{SubgroupSize: 64}); err == nil {
		t.Fatal("NewConfig with SubgroupSize=64 = nil error, want *ConfigError")
	}
}

func TestRunComputeRejectsNilProgram(t *testing.T) {
	err := RunCompute(context.Background(), Config{}, [3]uint32{1, 1, 1}, [3]uint32{1, 1, 1}, nil, nil, nil, nil)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("RunCompute with nil program = %v, want *ConfigError", err)
	}
}
