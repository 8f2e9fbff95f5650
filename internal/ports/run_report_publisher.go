package ports

import (
	"context"

	"codejudge/internal/domain/execution"
)

// RunReportPublisher publishes job outcomes to an external system.
type RunReportPublisher interface {
	PublishRunReport(ctx context.Context, report execution.RunReport) error
	Close() error
}
