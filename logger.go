// Package shadersim is a CPU-hosted emulator of the GPU compute-shader
// execution model. See SPEC_FULL.md in the repository root for the full
// design; this package is the public entry point: [RunCompute], [Config],
// and the logging surface shared by every sub-package.
package shadersim

import (
	"log/slog"

	"github.com/gogpu/shadersim/internal/obslog"
)

// SetLogger configures the logger for shadersim and all its sub-packages.
// By default, shadersim produces no log output. Call SetLogger to enable
// logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by shadersim:
//   - [slog.LevelDebug]: per-tick scheduling decisions (resume/halt/reconverge/
//     barrier-pass), filtered by [Config.DebugWorkGroup] / [Config.DebugSubgroupID].
//   - [slog.LevelInfo]: dispatch lifecycle (workgroup batch start/finish).
//   - [slog.LevelWarn]: non-fatal oddities (tail subgroup with numActive < SubgroupSize).
//
// Example:
//
//	// Enable info-level logging to stderr:
//	shadersim.SetLogger(slog.Default())
//
//	// Enable debug-level logging for a full per-tick trace:
//	shadersim.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	obslog.Set(l)
}

// Logger returns the current logger used by shadersim.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return obslog.Get()
}
