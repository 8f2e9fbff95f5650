package ports

import (
	"time"

	"codejudge/internal/domain/execution"
)

// JobMetrics receives job and sandbox lifecycle events.
type JobMetrics interface {
	JobFinished(lang execution.Language, verdict execution.Verdict, elapsed time.Duration)
	JobCancelled(lang execution.Language)
	SandboxProvisioned(lang execution.Language)
	SandboxReleased(lang execution.Language)
	ProvisionFailed(lang execution.Language)
	TeardownFailed(lang execution.Language)
}

// NopMetrics discards every event.
type NopMetrics struct{}

func (NopMetrics) JobFinished(execution.Language, execution.Verdict, time.Duration) {}
func (NopMetrics) JobCancelled(execution.Language)                                {}
func (NopMetrics) SandboxProvisioned(execution.Language)                          {}
func (NopMetrics) SandboxReleased(execution.Language)                             {}
func (NopMetrics) ProvisionFailed(execution.Language)                             {}
func (NopMetrics) TeardownFailed(execution.Language)                              {}
