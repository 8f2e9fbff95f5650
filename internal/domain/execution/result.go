package execution

import "time"

// Status reports how a single process inside the sandbox ended.
type Status string

const (
	StatusOK          Status = "OK"
	StatusTimeLimit   Status = "TL"
	StatusMemoryLimit Status = "ML"
)

// Result captures the outcome of one process run inside the sandbox:
// the compile step or one test case.
type Result struct {
	Status   Status
	Stdout   string
	Stderr   string
	ExitCode int64
	Duration time.Duration
	// TruncatedAt is the capture limit in bytes when Stdout was cut short,
	// zero otherwise.
	TruncatedAt int
}

// Succeeded reports whether the process exited cleanly within its limits.
func (r *Result) Succeeded() bool {
	return r != nil && r.Status == StatusOK && r.ExitCode == 0
}
