package producer

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"

	"codejudge/internal/domain/execution"
	"codejudge/internal/ports"
)

// Service implements ports.JobProducer over a fixed list of requests.
type Service struct {
	mu       sync.Mutex
	requests []execution.JobRequest
	index    int
}

var _ ports.JobProducer = (*Service)(nil)

// NewService builds a producer that hands out requests in order and then
// reports io.EOF.
func NewService(requests ...execution.JobRequest) *Service {
	return &Service{requests: requests}
}

// NextJob returns the next queued request.
func (s *Service) NextJob(ctx context.Context) (execution.JobRequest, error) {
	select {
	case <-ctx.Done():
		return execution.JobRequest{}, ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index >= len(s.requests) {
		return execution.JobRequest{}, io.EOF
	}

	req := s.requests[s.index]
	s.index++

	return req, nil
}

// AddJob appends a request to the queue, assigning an ID when it has none.
func (s *Service) AddJob(req execution.JobRequest) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)
}
