package dispatch

// topology describes how one workgroup's threads are partitioned into
// subgroups, computed once per dispatch (spec.md §4.4).
type topology struct {
	threadsPerWorkgroup uint32
	numSubgroups        uint32
	subgroupSize        uint32
}

func computeTopology(workGroupSize [3]uint32, subgroupSize uint32) topology {
	threads := workGroupSize[0] * workGroupSize[1] * workGroupSize[2]
	return topology{
		threadsPerWorkgroup: threads,
		numSubgroups:        ceilDiv(threads, subgroupSize),
		subgroupSize:        subgroupSize,
	}
}

// numActive returns how many of the subgroup's lanes are real threads: the
// tail subgroup of a workgroup whose thread count isn't a multiple of
// subgroupSize is narrower than the rest.
func (t topology) numActive(subgroupID uint32) uint32 {
	start := subgroupID * t.subgroupSize
	remaining := t.threadsPerWorkgroup - start
	if remaining > t.subgroupSize {
		return t.subgroupSize
	}
	return remaining
}

func ceilDiv(a, b uint32) uint32 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// localID expands a flat row-major thread index within a workgroup back
// into its (x, y, z) local invocation ID.
func localID(flat uint32, workGroupSize [3]uint32) [3]uint32 {
	x := flat % workGroupSize[0]
	rest := flat / workGroupSize[0]
	y := rest % workGroupSize[1]
	z := rest / workGroupSize[1]
	return [3]uint32{x, y, z}
}

// globalID combines a workgroup's coordinates and a local invocation ID
// into gl_GlobalInvocationID.
func globalID(workGroupID [3]uint32, workGroupSize [3]uint32, local [3]uint32) [3]uint32 {
	return [3]uint32{
		workGroupID[0]*workGroupSize[0] + local[0],
		workGroupID[1]*workGroupSize[1] + local[1],
		workGroupID[2]*workGroupSize[2] + local[2],
	}
}

// workGroupIDAt expands a flat row-major workgroup index into its (x, y,
// z) coordinates in the dispatch grid (§4.4's row-major dispatch order).
func workGroupIDAt(flat uint32, numWorkGroups [3]uint32) [3]uint32 {
	x := flat % numWorkGroups[0]
	rest := flat / numWorkGroups[0]
	y := rest % numWorkGroups[1]
	z := rest / numWorkGroups[1]
	return [3]uint32{x, y, z}
}
