package docker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"go.uber.org/zap"

	"codejudge/internal/domain/execution"
	runtimex "codejudge/internal/runtime"
)

// State is the lifecycle position of a sandbox container.
type State string

const (
	StateCreated State = "created"
	StateStarted State = "started"
	StateStopped State = "stopped"
	StateRemoved State = "removed"
)

var _ runtimex.Sandbox = (*sandbox)(nil)

type sandbox struct {
	id     string
	name   string
	cli    dockerClient
	cfg    Config
	job    execution.Job
	logger *zap.Logger

	mu    sync.Mutex
	state State
	// oomSeen is the last oom_kill counter value already attributed to a run.
	oomSeen int64

	teardownOnce sync.Once
	teardownErr  error
}

func (s *sandbox) ID() string {
	return s.id
}

// State reports the current lifecycle position.
func (s *sandbox) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *sandbox) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *sandbox) writeSource(ctx context.Context) error {
	outcome, err := s.runExec(ctx, execRequest{
		cmd:         []string{"sh", "-c", "cat > " + s.job.Profile.SourceFile},
		stdin:       s.job.Source,
		attachStdin: true,
	})
	if err != nil {
		return fmt.Errorf("write source: %w", err)
	}
	if outcome.exitCode != 0 {
		return fmt.Errorf("write source: exit code %d: %s", outcome.exitCode, outcome.stderr)
	}
	return nil
}

func (s *sandbox) Compile(ctx context.Context) (*execution.Result, error) {
	if !s.job.Profile.Compiled() {
		return &execution.Result{Status: execution.StatusOK}, nil
	}

	outcome, err := s.runExec(ctx, execRequest{
		cmd:     s.job.Profile.CompileCommand,
		timeout: s.cfg.CompileTimeout,
	})
	if err != nil {
		return nil, err
	}
	return s.toResult(ctx, outcome), nil
}

func (s *sandbox) Run(ctx context.Context, stdin string, timeLimit time.Duration) (*execution.Result, error) {
	outcome, err := s.runExec(ctx, execRequest{
		cmd:         s.job.Profile.RunCommand,
		stdin:       stdin,
		attachStdin: true,
		timeout:     timeLimit,
	})
	if err != nil {
		return nil, err
	}
	return s.toResult(ctx, outcome), nil
}

func (s *sandbox) toResult(ctx context.Context, outcome *execOutcome) *execution.Result {
	if outcome.timedOut {
		s.stopStragglers()
		return &execution.Result{
			Status:   execution.StatusTimeLimit,
			ExitCode: outcome.exitCode,
			Duration: outcome.duration,
		}
	}

	result := &execution.Result{
		Status:   execution.StatusOK,
		Stdout:   outcome.stdout,
		Stderr:   outcome.stderr,
		ExitCode: outcome.exitCode,
		Duration: outcome.duration,
	}
	if outcome.stdoutTruncated {
		result.TruncatedAt = s.cfg.OutputLimitBytes
	}
	if outcome.exitCode != 0 && s.sawOOMKill(ctx, outcome.exitCode) {
		result.Status = execution.StatusMemoryLimit
	}
	return result
}

func (s *sandbox) stopStragglers() {
	if err := s.killAll(); err != nil {
		s.logger.Warn("failed to stop sandbox processes", zap.String("sandbox", s.id), zap.Error(err))
	}
}

// sawOOMKill reports whether the kernel killed a process for exceeding the
// memory ceiling since the last check. When the cgroup counters are not
// readable, a SIGKILL exit status is taken as the OOM signal.
func (s *sandbox) sawOOMKill(ctx context.Context, exitCode int64) bool {
	kills, err := s.oomKills(ctx)
	if err != nil {
		s.logger.Debug("oom counter unavailable", zap.String("sandbox", s.id), zap.Error(err))
		return exitCode == 137
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if kills > s.oomSeen {
		s.oomSeen = kills
		return true
	}
	return false
}

func (s *sandbox) MemoryPeak(ctx context.Context) (int64, error) {
	out, err := s.readCgroup(ctx, memoryPeakCommand)
	if err != nil {
		return 0, err
	}
	return parseMemoryPeak(out)
}

// Teardown stops and removes the container. It runs on a context detached
// from ctx's cancellation so a cancelled job still releases its sandbox.
func (s *sandbox) Teardown(ctx context.Context) error {
	s.teardownOnce.Do(func() {
		s.teardownErr = s.teardown(context.WithoutCancel(ctx))
	})
	return s.teardownErr
}

func (s *sandbox) teardown(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, s.cfg.TeardownTimeout)
	defer cancel()

	var errs []error

	if s.State() == StateStarted {
		timeout := 0
		err := s.cli.ContainerStop(ctx, s.id, container.StopOptions{Timeout: &timeout})
		if err != nil && !client.IsErrNotFound(err) {
			errs = append(errs, fmt.Errorf("stop: %w", err))
		} else {
			s.setState(StateStopped)
		}
	}

	err := s.cli.ContainerRemove(ctx, s.id, container.RemoveOptions{Force: true, RemoveVolumes: true})
	switch {
	case err == nil, client.IsErrNotFound(err), errdefs.IsConflict(err):
		// AutoRemove may already have removed the container, or be removing it.
		s.setState(StateRemoved)
	default:
		errs = append(errs, fmt.Errorf("remove: %w", err))
	}

	if len(errs) > 0 {
		return &execution.ResourceError{Op: "teardown", Err: errors.Join(errs...)}
	}

	s.logger.Debug("sandbox removed", zap.String("sandbox", s.id), zap.String("job", s.job.ID))
	return nil
}
