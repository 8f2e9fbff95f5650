package executor

import (
	"context"
	"sync"

	"codejudge/internal/domain/execution"
)

// TaskState is the lifecycle of an asynchronous evaluation.
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskCompleted TaskState = "completed"
	TaskFailed    TaskState = "failed"
)

// Task is a job evaluating in the background. Its outcome is assigned once.
type Task struct {
	id   string
	done chan struct{}

	mu     sync.Mutex
	state  TaskState
	report execution.Report
	err    error
}

func newTask(id string) *Task {
	return &Task{id: id, done: make(chan struct{}), state: TaskPending}
}

// ID returns the job identifier.
func (t *Task) ID() string {
	return t.id
}

// Done is closed once the task has completed or failed.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

func (t *Task) State() TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Wait blocks until the task finishes or ctx is done. Giving up on the wait
// does not cancel the task.
func (t *Task) Wait(ctx context.Context) (execution.Report, error) {
	select {
	case <-t.done:
	case <-ctx.Done():
		return execution.Report{}, ctx.Err()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.report, t.err
}

func (t *Task) resolve(report execution.Report, err error) {
	t.mu.Lock()
	if t.state != TaskPending {
		t.mu.Unlock()
		return
	}
	t.report, t.err = report, err
	if err != nil {
		t.state = TaskFailed
	} else {
		t.state = TaskCompleted
	}
	t.mu.Unlock()
	close(t.done)
}

// Submit validates req and starts evaluating it in the background. Validation
// errors are returned immediately; every later outcome, including
// cancellation through ctx, is delivered through the task.
func (s *Service) Submit(ctx context.Context, req execution.JobRequest) (*Task, error) {
	job, err := execution.BuildJob(s.resolver, req, s.cfg.Ceiling)
	if err != nil {
		return nil, err
	}

	task := newTask(job.ID)
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		task.resolve(s.evaluateJob(ctx, job))
	}()
	return task, nil
}
