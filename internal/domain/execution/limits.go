package execution

import "time"

// RunLimits describes resource boundaries for a single job.
//
// A zero field means "not set" and is filled from the language profile.
type RunLimits struct {
	// TimeLimit caps the wall-clock time of one test case.
	TimeLimit time.Duration
	// MemoryLimitBytes caps the sandbox memory. Swap is not granted on top.
	MemoryLimitBytes int64
}

// Clamp lowers every set field of l to the matching field of ceiling.
// Zero ceiling fields impose no bound.
func (l RunLimits) Clamp(ceiling RunLimits) RunLimits {
	if ceiling.TimeLimit > 0 && l.TimeLimit > ceiling.TimeLimit {
		l.TimeLimit = ceiling.TimeLimit
	}
	if ceiling.MemoryLimitBytes > 0 && l.MemoryLimitBytes > ceiling.MemoryLimitBytes {
		l.MemoryLimitBytes = ceiling.MemoryLimitBytes
	}
	return l
}

// Merge returns defaults with every positive field of overrides applied.
func (l RunLimits) Merge(overrides RunLimits) RunLimits {
	if overrides.TimeLimit > 0 {
		l.TimeLimit = overrides.TimeLimit
	}
	if overrides.MemoryLimitBytes > 0 {
		l.MemoryLimitBytes = overrides.MemoryLimitBytes
	}
	return l
}
