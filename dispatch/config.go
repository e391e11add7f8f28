// Package dispatch implements the dispatcher (C4): workgroup/subgroup
// topology, the workgroup barrier, concurrency caps, and shared-memory
// lifecycle around the lockstep scheduler.
package dispatch

import "fmt"

// Config configures a dispatch. Apply defaults with [NewConfig] rather than
// constructing a zero-value Config directly: a zero SubgroupSize would
// otherwise divide every workgroup into zero-width subgroups.
type Config struct {
	// SubgroupSize is the fixed width every subgroup in this build uses
	// (I4). Must be in [1, 32]. Zero is replaced by the default of 8.
	SubgroupSize int

	// MaxConcurrentWorkGroups caps how many workgroups run at once,
	// independent of how many subgroups or threads they contain. Zero is
	// replaced by the default of 2.
	MaxConcurrentWorkGroups int

	// DebugWorkGroup, together with DebugSubgroupID, filters per-tick
	// scheduler debug logging to one subgroup. A negative coordinate
	// matches any value on that axis; the zero value {0,0,0} therefore
	// filters to workgroup (0,0,0). Set every coordinate to -1 to trace
	// every workgroup.
	DebugWorkGroup [3]int32
	// DebugSubgroupID filters per-tick scheduler debug logging by
	// subgroup index. Negative matches any subgroup.
	DebugSubgroupID int32
}

// ConfigError reports an invalid [Config] or a dispatch request the
// configured resources cannot satisfy, detected before any workgroup
// starts running (§5's thread-pool sizing invariant).
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("dispatch: invalid configuration: %s", e.Reason)
}

const (
	defaultSubgroupSize            = 8
	defaultMaxConcurrentWorkGroups = 2
)

// NewConfig applies defaults to a zero-value or partially-filled Config and
// validates it, returning a *ConfigError if SubgroupSize is outside [1, 32]
// or MaxConcurrentWorkGroups is negative.
func NewConfig(cfg Config) (Config, error) {
	out := cfg
	if out.SubgroupSize == 0 {
		out.SubgroupSize = defaultSubgroupSize
	}
	if out.MaxConcurrentWorkGroups == 0 {
		out.MaxConcurrentWorkGroups = defaultMaxConcurrentWorkGroups
	}

	if out.SubgroupSize < 1 || out.SubgroupSize > 32 {
		return Config{}, &ConfigError{Reason: fmt.Sprintf("SubgroupSize must be in [1, 32], got %d", out.SubgroupSize)}
	}
	if out.MaxConcurrentWorkGroups < 1 {
		return Config{}, &ConfigError{Reason: fmt.Sprintf("MaxConcurrentWorkGroups must be >= 1, got %d", out.MaxConcurrentWorkGroups)}
	}
	return out, nil
}

// debugMatches reports whether workGroupID/subgroupID should be traced at
// debug level under cfg's filter.
func (c Config) debugMatches(workGroupID [3]uint32, subgroupID uint32) bool {
	if c.DebugSubgroupID >= 0 && uint32(c.DebugSubgroupID) != subgroupID {
		return false
	}
	for i, want := range c.DebugWorkGroup {
		if want >= 0 && uint32(want) != workGroupID[i] {
			return false
		}
	}
	return true
}
