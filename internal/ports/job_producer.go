package ports

import (
	"context"

	"codejudge/internal/domain/execution"
)

// JobProducer supplies evaluation requests to the queue worker. It returns
// io.EOF once no more requests will arrive.
type JobProducer interface {
	NextJob(ctx context.Context) (execution.JobRequest, error)
}
