package scheduler

import (
	"fmt"

	"github.com/gogpu/shadersim/opcode"
)

// NonUniformBarrierError is raised when two threads arrive at a workgroup
// barrier with different static opIDs (I3): the shader called barrier()
// from divergent control flow. Fatal and unrecoverable.
type NonUniformBarrierError struct {
	WorkGroupID [3]uint32
	SubgroupID  uint32
}

func (e *NonUniformBarrierError) Error() string {
	return fmt.Sprintf("scheduler: non-uniform barrier in workgroup %v subgroup %d", e.WorkGroupID, e.SubgroupID)
}

// DeadlockError is raised when an outer tick resumes no thread while at
// least one thread remains non-finished: no forward progress is possible.
// Fatal and unrecoverable.
type DeadlockError struct {
	WorkGroupID  [3]uint32
	SubgroupID   uint32
	BarrierCount int
	NumActive    int
}

func (e *DeadlockError) Error() string {
	return fmt.Sprintf("scheduler: deadlock in workgroup %v subgroup %d (barrierCount=%d, numActive=%d)",
		e.WorkGroupID, e.SubgroupID, e.BarrierCount, e.NumActive)
}

// InvalidOpResultError is raised when a closure's command carries an Op
// with no registered collective kernel — a transform or runtime bug, never
// a property of well-formed shader source.
type InvalidOpResultError struct {
	WorkGroupID [3]uint32
	SubgroupID  uint32
	Op          opcode.Op
	Err         error
}

func (e *InvalidOpResultError) Error() string {
	return fmt.Sprintf("scheduler: invalid op result in workgroup %v subgroup %d for op %s: %v",
		e.WorkGroupID, e.SubgroupID, e.Op, e.Err)
}

func (e *InvalidOpResultError) Unwrap() error { return e.Err }
