package executor

import (
	"time"

	"go.uber.org/zap"

	"codejudge/internal/domain/execution"
)

// jobRun tracks the state of one job while it is evaluated.
type jobRun struct {
	job     execution.Job
	logger  *zap.Logger
	state   execution.JobState
	started time.Time
}

func newJobRun(job execution.Job, logger *zap.Logger) *jobRun {
	return &jobRun{
		job: job,
		logger: logger.With(
			zap.String("job", job.ID),
			zap.String("language", string(job.Language)),
		),
		state:   execution.JobPending,
		started: time.Now(),
	}
}

func (r *jobRun) transition(next execution.JobState) {
	if r.state.Terminal() {
		r.logger.Warn("ignoring transition out of terminal state",
			zap.String("from", string(r.state)),
			zap.String("to", string(next)),
		)
		return
	}
	r.logger.Debug("job state changed",
		zap.String("from", string(r.state)),
		zap.String("to", string(next)),
	)
	r.state = next
}

func (r *jobRun) elapsed() time.Duration {
	return time.Since(r.started)
}
