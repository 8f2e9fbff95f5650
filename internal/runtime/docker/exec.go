package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
)

const settlePollInterval = 10 * time.Millisecond

var killAllCommand = []string{"sh", "-c", "kill -9 -1"}

type execRequest struct {
	cmd         []string
	stdin       string
	attachStdin bool
	// timeout bounds the process run time. Zero means the caller's context only.
	timeout time.Duration
}

type execOutcome struct {
	stdout   string
	stderr   string
	exitCode int64
	duration time.Duration
	timedOut bool
	// stdoutTruncated is set when stdout exceeded the capture limit.
	stdoutTruncated bool
}

// runExec starts cmd inside the container and waits for it to finish, feeding
// stdin and demultiplexing stdout and stderr. A timed-out process is reported
// through execOutcome.timedOut and left running; the caller decides how to
// stop it. Cancellation of ctx is returned as an error. Creating and attaching
// the exec are bounded by the provisioning deadline.
func (s *sandbox) runExec(ctx context.Context, req execRequest) (*execOutcome, error) {
	opCtx, cancelOp := context.WithTimeout(ctx, s.cfg.ProvisionTimeout)
	defer cancelOp()

	created, err := s.cli.ContainerExecCreate(opCtx, s.id, container.ExecOptions{
		Cmd:          req.cmd,
		User:         s.cfg.User,
		WorkingDir:   s.cfg.Workdir,
		AttachStdin:  req.attachStdin,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create exec: %w", err)
	}

	attach, err := s.cli.ContainerExecAttach(opCtx, created.ID, container.ExecStartOptions{})
	if err != nil {
		return nil, fmt.Errorf("attach exec: %w", err)
	}
	defer attach.Close()

	start := time.Now()

	if req.attachStdin && attach.Conn != nil {
		go func() {
			_, _ = io.Copy(attach.Conn, strings.NewReader(req.stdin))
			_ = attach.CloseWrite()
		}()
	}

	stdout := newCappedBuffer(s.cfg.OutputLimitBytes)
	stderr := newCappedBuffer(s.cfg.OutputLimitBytes)
	done := make(chan error, 1)
	go func() {
		_, err := stdcopy.StdCopy(stdout, stderr, attach.Reader)
		done <- err
	}()

	waitCtx := ctx
	var cancel context.CancelFunc
	if req.timeout > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, req.timeout)
		defer cancel()
	}

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read exec output: %w", err)
		}
	case <-waitCtx.Done():
		attach.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &execOutcome{
			exitCode: -1,
			duration: time.Since(start),
			timedOut: true,
		}, nil
	}
	duration := time.Since(start)

	exitCode, err := s.waitExecExit(ctx, created.ID)
	if err != nil {
		return nil, err
	}

	return &execOutcome{
		stdout:          stdout.String(),
		stderr:          stderr.String(),
		exitCode:        exitCode,
		duration:        duration,
		stdoutTruncated: stdout.truncated,
	}, nil
}

// waitExecExit polls the exec until the daemon reports it stopped. The output
// stream may close slightly before the exit code is recorded.
func (s *sandbox) waitExecExit(ctx context.Context, execID string) (int64, error) {
	inspectCtx := ctx
	if inspectCtx.Err() != nil {
		inspectCtx = context.Background()
	}
	inspectCtx, cancel := context.WithTimeout(inspectCtx, s.cfg.SettleTimeout)
	defer cancel()

	for {
		inspect, err := s.cli.ContainerExecInspect(inspectCtx, execID)
		if err != nil {
			return 0, fmt.Errorf("inspect exec: %w", err)
		}
		if !inspect.Running {
			return int64(inspect.ExitCode), nil
		}

		select {
		case <-inspectCtx.Done():
			return 0, fmt.Errorf("exec %s did not settle: %w", execID, inspectCtx.Err())
		case <-time.After(settlePollInterval):
		}
	}
}

// killAll signals every process in the sandbox except PID 1, which keeps the
// container alive for the remaining test cases.
func (s *sandbox) killAll() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SettleTimeout)
	defer cancel()

	outcome, err := s.runExec(ctx, execRequest{cmd: killAllCommand})
	if err != nil {
		return fmt.Errorf("kill sandbox processes: %w", err)
	}
	if outcome.timedOut {
		return fmt.Errorf("kill sandbox processes: timed out")
	}
	return nil
}
