package docker

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/docker/docker/api/types"
	"go.uber.org/zap"

	"codejudge/internal/domain/execution"
)

func newTestJob(profile execution.Profile, tests int) execution.Job {
	cases := make([]execution.TestCase, tests)
	for i := range cases {
		cases[i] = execution.TestCase{Number: i + 1, Input: "1", ExpectedOutput: "1"}
	}
	return execution.Job{
		ID:       "job-42",
		Language: profile.Language,
		Profile:  profile,
		Source:   "print(input())",
		Tests:    cases,
		Limits:   execution.RunLimits{TimeLimit: 2 * time.Second, MemoryLimitBytes: 128 << 20},
	}
}

func TestProvisionHardensContainer(t *testing.T) {
	t.Parallel()

	cli := newFakeDockerClient()
	p := newProvisionerWithClient(cli, Config{Instance: "judge-a"}, zap.NewNop())
	job := newTestJob(pythonProfile, 3)

	sb, err := p.Provision(context.Background(), job)
	if err != nil {
		t.Fatalf("Provision returned error: %v", err)
	}
	if sb.ID() != "container-0" {
		t.Fatalf("unexpected sandbox id %q", sb.ID())
	}

	if len(cli.createCalls) != 1 {
		t.Fatalf("expected one container, got %d", len(cli.createCalls))
	}
	call := cli.createCalls[0]
	if !strings.HasPrefix(call.name, containerNamePrefix) {
		t.Fatalf("unexpected container name %q", call.name)
	}

	host := call.hostConfig
	if host.NetworkMode != "none" || !call.config.NetworkDisabled {
		t.Fatalf("expected networking to be disabled")
	}
	if !host.ReadonlyRootfs {
		t.Fatalf("expected read-only root filesystem")
	}
	if !host.AutoRemove {
		t.Fatalf("expected auto-remove")
	}
	if !slices.Equal(host.CapDrop, []string{"ALL"}) {
		t.Fatalf("expected all capabilities dropped, got %v", host.CapDrop)
	}
	if !slices.Contains(host.SecurityOpt, "no-new-privileges") {
		t.Fatalf("expected no-new-privileges, got %v", host.SecurityOpt)
	}
	if host.Memory != job.Limits.MemoryLimitBytes || host.MemorySwap != job.Limits.MemoryLimitBytes {
		t.Fatalf("expected memory == swap == %d, got %d/%d", job.Limits.MemoryLimitBytes, host.Memory, host.MemorySwap)
	}
	if host.CPUPeriod != 100_000 || host.CPUQuota != 50_000 {
		t.Fatalf("expected half a core, got quota %d period %d", host.CPUQuota, host.CPUPeriod)
	}
	if host.PidsLimit == nil || *host.PidsLimit != defaultPidsLimit {
		t.Fatalf("expected pids limit %d, got %v", defaultPidsLimit, host.PidsLimit)
	}
	for _, mount := range []string{"/workspace", "/tmp"} {
		opts, ok := host.Tmpfs[mount]
		if !ok || !strings.Contains(opts, "size=64m") {
			t.Fatalf("expected tmpfs at %s, got %q", mount, opts)
		}
	}

	cfg := call.config
	if cfg.User != defaultUser {
		t.Fatalf("expected user %q, got %q", defaultUser, cfg.User)
	}
	if cfg.Image != pythonProfile.Image {
		t.Fatalf("unexpected image %q", cfg.Image)
	}
	if len(cfg.Entrypoint) != 2 || cfg.Entrypoint[0] != "sleep" {
		t.Fatalf("expected idle entrypoint, got %v", cfg.Entrypoint)
	}
	if cfg.Labels[labelInstance] != "judge-a" || cfg.Labels[labelJob] != "job-42" || cfg.Labels[labelManaged] != "true" {
		t.Fatalf("unexpected labels %v", cfg.Labels)
	}
	if !slices.Contains(cfg.Env, "HOME=/tmp") {
		t.Fatalf("expected HOME=/tmp in env, got %v", cfg.Env)
	}

	cmds := cli.execCommands()
	if len(cmds) != 1 || cmds[0][2] != "cat > solution.py" {
		t.Fatalf("expected source to be written, got %v", cmds)
	}
}

func TestProvisionLifetimeCoversEveryTest(t *testing.T) {
	t.Parallel()

	p := newProvisionerWithClient(newFakeDockerClient(), Config{}, zap.NewNop())

	short := p.lifetime(newTestJob(pythonProfile, 1))
	long := p.lifetime(newTestJob(pythonProfile, 10))
	if long <= short {
		t.Fatalf("expected lifetime to grow with test count, got %v and %v", short, long)
	}
	if long < 10*2*time.Second {
		t.Fatalf("lifetime %v shorter than the combined time limits", long)
	}
}

func TestProvisionTearsDownOnStartFailure(t *testing.T) {
	t.Parallel()

	cli := newFakeDockerClient()
	cli.startErr = fmt.Errorf("cgroup setup failed")
	p := newProvisionerWithClient(cli, Config{}, zap.NewNop())

	_, err := p.Provision(context.Background(), newTestJob(pythonProfile, 1))
	var resErr *execution.ResourceError
	if !errors.As(err, &resErr) || resErr.Op != "provision" {
		t.Fatalf("expected provision ResourceError, got %v", err)
	}
	if got := cli.calls(&cli.removeCalls); len(got) != 1 {
		t.Fatalf("expected the container to be removed, got %v", got)
	}
	if got := cli.calls(&cli.stopCalls); len(got) != 0 {
		t.Fatalf("expected no stop for a container that never started, got %v", got)
	}
}

func TestProvisionTearsDownOnSourceWriteFailure(t *testing.T) {
	t.Parallel()

	cli := newFakeDockerClient()
	cli.setHandler(func(cmd []string, stdin string) fakeExec {
		return fakeExec{stderr: "no space left on device", exitCode: 1}
	})
	p := newProvisionerWithClient(cli, Config{}, zap.NewNop())

	_, err := p.Provision(context.Background(), newTestJob(pythonProfile, 1))
	if err == nil {
		t.Fatalf("expected provisioning to fail")
	}
	if got := cli.calls(&cli.stopCalls); len(got) != 1 {
		t.Fatalf("expected the started container to be stopped, got %v", got)
	}
	if got := cli.calls(&cli.removeCalls); len(got) != 1 {
		t.Fatalf("expected the container to be removed, got %v", got)
	}
}

func TestProvisionCreateFailure(t *testing.T) {
	t.Parallel()

	cli := newFakeDockerClient()
	cli.createErr = fmt.Errorf("no such image")
	p := newProvisionerWithClient(cli, Config{}, zap.NewNop())

	_, err := p.Provision(context.Background(), newTestJob(pythonProfile, 1))
	var resErr *execution.ResourceError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected ResourceError, got %v", err)
	}
	if got := cli.calls(&cli.removeCalls); len(got) != 0 {
		t.Fatalf("expected nothing to remove, got %v", got)
	}
}

func TestEnsureImagePullsOnce(t *testing.T) {
	t.Parallel()

	cli := newFakeDockerClient()
	p := newProvisionerWithClient(cli, Config{}, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.ensureImage(context.Background(), "python:3.12-alpine"); err != nil {
				t.Errorf("ensureImage returned error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := cli.calls(&cli.imagePulls); len(got) != 1 {
		t.Fatalf("expected a single pull, got %v", got)
	}
}

func TestEnsureImageSkipsLocalImages(t *testing.T) {
	t.Parallel()

	cli := newFakeDockerClient()
	cli.localImages["gcc:13"] = true
	p := newProvisionerWithClient(cli, Config{}, zap.NewNop())

	if err := p.Warmup(context.Background(), []string{"gcc:13"}); err != nil {
		t.Fatalf("Warmup returned error: %v", err)
	}
	if got := cli.calls(&cli.imagePulls); len(got) != 0 {
		t.Fatalf("expected no pulls, got %v", got)
	}
}

func TestEnsureImageRetriesAfterFailure(t *testing.T) {
	t.Parallel()

	cli := newFakeDockerClient()
	cli.pullErr = fmt.Errorf("registry unavailable")
	p := newProvisionerWithClient(cli, Config{}, zap.NewNop())

	if err := p.ensureImage(context.Background(), "node:20-alpine"); err == nil {
		t.Fatalf("expected pull failure")
	}

	cli.mu.Lock()
	cli.pullErr = nil
	cli.mu.Unlock()

	if err := p.ensureImage(context.Background(), "node:20-alpine"); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if got := cli.calls(&cli.imagePulls); len(got) != 2 {
		t.Fatalf("expected two pull attempts, got %v", got)
	}
}

func TestReapRemovesOwnedContainers(t *testing.T) {
	t.Parallel()

	cli := newFakeDockerClient()
	cli.listed = []types.Container{
		{ID: "orphan-1", Labels: map[string]string{labelJob: "a"}},
		{ID: "orphan-2", Labels: map[string]string{labelJob: "b"}},
	}
	p := newProvisionerWithClient(cli, Config{}, zap.NewNop())

	removed, err := p.Reap(context.Background())
	if err != nil {
		t.Fatalf("Reap returned error: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected two containers reaped, got %d", removed)
	}
	if got := cli.calls(&cli.removeCalls); !slices.Equal(got, []string{"orphan-1", "orphan-2"}) {
		t.Fatalf("unexpected removals %v", got)
	}
}

func TestProvisionerClose(t *testing.T) {
	t.Parallel()

	cli := newFakeDockerClient()
	p := newProvisionerWithClient(cli, Config{}, nil)
	if err := p.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if !cli.closed {
		t.Fatalf("expected docker client to be closed")
	}
}
