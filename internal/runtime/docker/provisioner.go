package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	typesimage "github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"codejudge/internal/domain/execution"
	runtimex "codejudge/internal/runtime"
)

const (
	labelManaged  = "codejudge.managed"
	labelInstance = "codejudge.instance"
	labelJob      = "codejudge.job"
	labelLanguage = "codejudge.language"

	containerNamePrefix = "codejudge-"
	tmpDir              = "/tmp"
)

var _ runtimex.Provisioner = (*Provisioner)(nil)

// Provisioner creates one disposable Docker container per job.
type Provisioner struct {
	cli    dockerClient
	cfg    Config
	logger *zap.Logger

	mu    sync.Mutex
	pulls map[string]*imagePull
}

type imagePull struct {
	ready chan struct{}
	err   error
}

// New constructs a Provisioner talking to the Docker daemon configured in the environment.
func New(cfg Config, logger *zap.Logger) (*Provisioner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker runtime: create client: %w", err)
	}
	return newProvisionerWithClient(cli, cfg, logger), nil
}

func newProvisionerWithClient(cli dockerClient, cfg Config, logger *zap.Logger) *Provisioner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provisioner{
		cli:    cli,
		cfg:    cfg.withDefaults(),
		logger: logger.Named("sandbox"),
		pulls:  make(map[string]*imagePull),
	}
}

// Provision creates, starts and seeds a sandbox for job. On any failure the
// partially created container is torn down before the error is returned.
func (p *Provisioner) Provision(ctx context.Context, job execution.Job) (runtimex.Sandbox, error) {
	if err := p.ensureImage(ctx, job.Profile.Image); err != nil {
		return nil, &execution.ResourceError{Op: "provision", Err: err}
	}

	provisionCtx, cancel := context.WithTimeout(ctx, p.cfg.ProvisionTimeout)
	defer cancel()

	name := containerNamePrefix + uuid.NewString()
	resp, err := p.cli.ContainerCreate(provisionCtx, p.containerConfig(job), p.hostConfig(job), nil, nil, name)
	if err != nil {
		return nil, &execution.ResourceError{Op: "provision", Err: fmt.Errorf("create container: %w", err)}
	}

	sb := &sandbox{
		id:     resp.ID,
		name:   name,
		cli:    p.cli,
		cfg:    p.cfg,
		job:    job,
		logger: p.logger,
		state:  StateCreated,
	}

	if err := p.start(provisionCtx, sb); err != nil {
		if terr := sb.Teardown(ctx); terr != nil {
			p.logger.Error("failed to tear down sandbox after provisioning error", zap.String("sandbox", sb.id), zap.Error(terr))
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &execution.ResourceError{Op: "provision", Err: err}
	}

	p.logger.Debug("sandbox ready",
		zap.String("sandbox", sb.id),
		zap.String("job", job.ID),
		zap.String("language", string(job.Language)),
	)
	return sb, nil
}

func (p *Provisioner) start(ctx context.Context, sb *sandbox) error {
	if err := p.cli.ContainerStart(ctx, sb.id, container.StartOptions{}); err != nil {
		return fmt.Errorf("start container: %w", err)
	}
	sb.setState(StateStarted)
	return sb.writeSource(ctx)
}

func (p *Provisioner) containerConfig(job execution.Job) *container.Config {
	env := append([]string{"HOME=" + tmpDir, "TMPDIR=" + tmpDir}, job.Profile.Env...)
	return &container.Config{
		Image: job.Profile.Image,
		// PID 1 idles until the job's worst-case lifetime elapses, so a
		// container orphaned by a crashed judge exits and auto-removes itself.
		Entrypoint:      []string{"sleep", strconv.FormatInt(int64(p.lifetime(job)/time.Second), 10)},
		Env:             env,
		User:            p.cfg.User,
		WorkingDir:      p.cfg.Workdir,
		NetworkDisabled: true,
		Labels: map[string]string{
			labelManaged:  "true",
			labelInstance: p.cfg.Instance,
			labelJob:      job.ID,
			labelLanguage: string(job.Language),
		},
	}
}

func (p *Provisioner) hostConfig(job execution.Job) *container.HostConfig {
	pids := p.cfg.PidsLimit
	tmpfs := fmt.Sprintf("rw,exec,nosuid,size=%dm,mode=1777", p.cfg.WorkspaceSizeMB)
	return &container.HostConfig{
		NetworkMode:    "none",
		ReadonlyRootfs: true,
		AutoRemove:     true,
		CapDrop:        []string{"ALL"},
		SecurityOpt:    []string{"no-new-privileges"},
		Tmpfs: map[string]string{
			p.cfg.Workdir: tmpfs,
			tmpDir:        tmpfs,
		},
		Resources: container.Resources{
			CPUPeriod:  cpuPeriod,
			CPUQuota:   p.cfg.cpuQuota(),
			Memory:     job.Limits.MemoryLimitBytes,
			MemorySwap: job.Limits.MemoryLimitBytes,
			PidsLimit:  &pids,
		},
	}
}

// lifetime is the longest a well-behaved job can keep its sandbox.
func (p *Provisioner) lifetime(job execution.Job) time.Duration {
	perTest := job.Limits.TimeLimit + 2*p.cfg.SettleTimeout + time.Second
	total := p.cfg.ProvisionTimeout + p.cfg.CompileTimeout + p.cfg.TeardownTimeout + time.Duration(len(job.Tests))*perTest
	return total.Round(time.Second) + time.Second
}

// Warmup pulls every image up front so the first jobs do not pay for it.
func (p *Provisioner) Warmup(ctx context.Context, images []string) error {
	var errs []error
	for _, ref := range images {
		if err := p.ensureImage(ctx, ref); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ensureImage pulls ref once. Concurrent callers wait for the same pull; a
// failed pull is not cached so the next job retries it.
func (p *Provisioner) ensureImage(ctx context.Context, ref string) error {
	p.mu.Lock()
	pull, inFlight := p.pulls[ref]
	if !inFlight {
		pull = &imagePull{ready: make(chan struct{})}
		p.pulls[ref] = pull
	}
	p.mu.Unlock()

	if inFlight {
		select {
		case <-pull.ready:
			return pull.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	pull.err = p.pullImage(ctx, ref)
	if pull.err != nil {
		p.mu.Lock()
		delete(p.pulls, ref)
		p.mu.Unlock()
	}
	close(pull.ready)
	return pull.err
}

func (p *Provisioner) pullImage(ctx context.Context, ref string) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.PullTimeout)
	defer cancel()

	if _, _, err := p.cli.ImageInspectWithRaw(ctx, ref); err == nil {
		return nil
	}

	p.logger.Info("pulling image", zap.String("image", ref))
	reader, err := p.cli.ImagePull(ctx, ref, typesimage.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", ref, err)
	}
	defer reader.Close()

	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("consume pull output for %s: %w", ref, err)
	}
	return nil
}

// Reap removes containers left behind by a previous run of this instance.
func (p *Provisioner) Reap(ctx context.Context) (int, error) {
	containers, err := p.cli.ContainerList(ctx, container.ListOptions{
		All: true,
		Filters: filters.NewArgs(
			filters.Arg("label", labelManaged+"=true"),
			filters.Arg("label", labelInstance+"="+p.cfg.Instance),
		),
	})
	if err != nil {
		return 0, &execution.ResourceError{Op: "reap", Err: err}
	}

	removed := 0
	var errs []error
	for _, c := range containers {
		err := p.cli.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true, RemoveVolumes: true})
		if err != nil && !client.IsErrNotFound(err) {
			errs = append(errs, fmt.Errorf("%s: %w", c.ID, err))
			continue
		}
		removed++
		p.logger.Info("reaped orphaned sandbox", zap.String("sandbox", c.ID), zap.String("job", c.Labels[labelJob]))
	}

	if len(errs) > 0 {
		return removed, &execution.ResourceError{Op: "reap", Err: errors.Join(errs...)}
	}
	return removed, nil
}

// Close releases the Docker client.
func (p *Provisioner) Close() error {
	if err := p.cli.Close(); err != nil {
		return fmt.Errorf("docker client: %w", err)
	}
	return nil
}
