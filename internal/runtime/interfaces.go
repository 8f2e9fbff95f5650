package runtime

import (
	"context"
	"time"

	"codejudge/internal/domain/execution"
)

// Sandbox is one live, isolated execution environment holding a single job's
// source. It is owned by exactly one job and must be torn down exactly once.
type Sandbox interface {
	ID() string
	// Compile runs the profile's build step. Interpreted profiles return a
	// successful empty result.
	Compile(ctx context.Context) (*execution.Result, error)
	// Run executes the program once with stdin attached, racing it against timeLimit.
	Run(ctx context.Context, stdin string, timeLimit time.Duration) (*execution.Result, error)
	// MemoryPeak reports the highest memory usage observed in the sandbox, in bytes.
	MemoryPeak(ctx context.Context) (int64, error)
	// Teardown stops and removes the environment. Further calls are no-ops.
	Teardown(ctx context.Context) error
}

// Provisioner creates sandboxes.
type Provisioner interface {
	Provision(ctx context.Context, job execution.Job) (Sandbox, error)
	Close() error
}
