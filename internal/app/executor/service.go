package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"codejudge/internal/domain/execution"
	"codejudge/internal/ports"
	runtimex "codejudge/internal/runtime"
)

const (
	systemErrorMessage = "System Error: the execution environment is unavailable, please try again later."
	memoryPeakTimeout  = 5 * time.Second
)

// Config tunes how jobs are evaluated.
type Config struct {
	// Ceiling bounds every caller-supplied limit override.
	Ceiling execution.RunLimits
	// StopOnHiddenFailure ends a suite at a failing hidden test as well as at
	// a failing visible one.
	StopOnHiddenFailure bool
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the logger used for job lifecycle events.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the recorder for job and sandbox events.
func WithMetrics(metrics ports.JobMetrics) Option {
	return func(s *Service) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// Service evaluates jobs, each in a sandbox of its own.
type Service struct {
	resolver    execution.ProfileResolver
	provisioner runtimex.Provisioner
	cfg         Config
	logger      *zap.Logger
	metrics     ports.JobMetrics

	tasks sync.WaitGroup
}

// NewService constructs a Service resolving languages through resolver and
// running jobs in sandboxes created by provisioner.
func NewService(resolver execution.ProfileResolver, provisioner runtimex.Provisioner, cfg Config, opts ...Option) *Service {
	s := &Service{
		resolver:    resolver,
		provisioner: provisioner,
		cfg:         cfg,
		logger:      zap.NewNop(),
		metrics:     ports.NopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("executor")
	return s
}

// Evaluate validates req, runs every test case subject to the short-circuit
// rule and returns the classified report.
//
// A malformed request yields a *execution.ValidationError before any sandbox
// exists. Sandbox failures are reported as a system_error verdict rather than
// an error. Cancelling ctx returns an error wrapping execution.ErrCancelled
// and discards partial results.
func (s *Service) Evaluate(ctx context.Context, req execution.JobRequest) (execution.Report, error) {
	job, err := execution.BuildJob(s.resolver, req, s.cfg.Ceiling)
	if err != nil {
		return execution.Report{}, err
	}
	return s.evaluateJob(ctx, job)
}

// SampleRequest is a single custom-input run.
type SampleRequest struct {
	Language       execution.Language
	Source         string
	Input          string
	ExpectedOutput string
	TimeLimitMs    *int64
	MemoryLimitMB  *int64
}

// EvaluateSample runs the program once against a synthetic visible test case.
func (s *Service) EvaluateSample(ctx context.Context, req SampleRequest) (execution.SampleResult, error) {
	input, expected := req.Input, req.ExpectedOutput
	report, err := s.Evaluate(ctx, execution.JobRequest{
		Language:      req.Language,
		Source:        req.Source,
		Tests:         []execution.TestCaseSpec{{Input: &input, ExpectedOutput: &expected}},
		TimeLimitMs:   req.TimeLimitMs,
		MemoryLimitMB: req.MemoryLimitMB,
	})
	if err != nil {
		return execution.SampleResult{}, err
	}

	sample := execution.SampleResult{
		Input:    req.Input,
		Expected: req.ExpectedOutput,
	}
	if len(report.Tests) == 0 {
		sample.Error = report.ErrorMessage
		return sample, nil
	}

	test := report.Tests[0]
	sample.Output = test.Stdout
	sample.Passed = test.Passed
	sample.Error = test.Error
	return sample, nil
}

func (s *Service) evaluateJob(ctx context.Context, job execution.Job) (execution.Report, error) {
	run := newJobRun(job, s.logger)

	if err := ctx.Err(); err != nil {
		return s.cancelled(run, err)
	}

	run.transition(execution.JobProvisioning)
	sandbox, err := s.provisioner.Provision(ctx, job)
	if err != nil {
		if ctx.Err() != nil {
			return s.cancelled(run, ctx.Err())
		}
		s.metrics.ProvisionFailed(job.Language)
		return s.systemError(run, fmt.Errorf("provision sandbox: %w", err)), nil
	}
	s.metrics.SandboxProvisioned(job.Language)

	report, err := func() (execution.Report, error) {
		defer s.release(ctx, job, sandbox)
		return s.runInSandbox(ctx, run, sandbox)
	}()
	if err != nil {
		if ctx.Err() != nil {
			return s.cancelled(run, ctx.Err())
		}
		return s.systemError(run, err), nil
	}

	run.transition(execution.JobDone)
	s.metrics.JobFinished(job.Language, report.Verdict, run.elapsed())
	run.logger.Info("job finished",
		zap.String("verdict", string(report.Verdict)),
		zap.Int("passed", report.Passed()),
		zap.Int("executed", len(report.Tests)),
		zap.Int("total", len(job.Tests)),
		zap.Duration("elapsed", run.elapsed()),
	)
	return report, nil
}

func (s *Service) runInSandbox(ctx context.Context, run *jobRun, sandbox runtimex.Sandbox) (execution.Report, error) {
	job := run.job
	report := execution.Report{
		JobID:    job.ID,
		Language: job.Language,
	}

	run.transition(execution.JobCompiling)
	compiled, err := sandbox.Compile(ctx)
	if err != nil {
		return execution.Report{}, fmt.Errorf("compile: %w", err)
	}
	if !compiled.Succeeded() {
		run.transition(execution.JobClassifying)
		report.Verdict = execution.VerdictCompilationError
		report.ErrorMessage = compileMessage(compiled)
		return report, nil
	}

	run.transition(execution.JobRunning)
	results, err := newSuiteRunner(sandbox, job, s.cfg.StopOnHiddenFailure).run(ctx)
	if err != nil {
		return execution.Report{}, err
	}

	run.transition(execution.JobClassifying)
	report.Verdict, report.ErrorMessage = Classify(results)
	report.Tests = results
	report.ExecutionTime = totalDuration(results)
	report.MemoryUsedBytes = s.memoryPeak(ctx, run, sandbox)
	return report, nil
}

// memoryPeak is best-effort: a sandbox that cannot report it yields zero.
func (s *Service) memoryPeak(ctx context.Context, run *jobRun, sandbox runtimex.Sandbox) int64 {
	ctx, cancel := context.WithTimeout(ctx, memoryPeakTimeout)
	defer cancel()

	peak, err := sandbox.MemoryPeak(ctx)
	if err != nil {
		run.logger.Debug("memory peak unavailable", zap.Error(err))
		return 0
	}
	return peak
}

// release tears the sandbox down on a context that survives cancellation of
// the job itself. Teardown failures never change the verdict.
func (s *Service) release(ctx context.Context, job execution.Job, sandbox runtimex.Sandbox) {
	if err := sandbox.Teardown(context.WithoutCancel(ctx)); err != nil {
		s.metrics.TeardownFailed(job.Language)
		s.logger.Error("failed to tear down sandbox",
			zap.String("job", job.ID),
			zap.String("sandbox", sandbox.ID()),
			zap.Error(err),
		)
	}
	s.metrics.SandboxReleased(job.Language)
}

func (s *Service) systemError(run *jobRun, err error) execution.Report {
	run.transition(execution.JobFailed)
	run.logger.Error("job failed", zap.Error(err))
	s.metrics.JobFinished(run.job.Language, execution.VerdictSystemError, run.elapsed())
	return execution.Report{
		JobID:        run.job.ID,
		Language:     run.job.Language,
		Verdict:      execution.VerdictSystemError,
		ErrorMessage: systemErrorMessage,
	}
}

func (s *Service) cancelled(run *jobRun, cause error) (execution.Report, error) {
	run.transition(execution.JobFailed)
	run.logger.Info("job cancelled", zap.Error(cause))
	s.metrics.JobCancelled(run.job.Language)
	return execution.Report{}, fmt.Errorf("%w: %w", execution.ErrCancelled, cause)
}

// ExecuteFromProducer pulls job requests from the supplied producer and
// evaluates them with bounded parallelism.
//
// If maxJobs is greater than zero the execution stops after the specified
// number of jobs has been processed. Otherwise it keeps consuming until the
// context is cancelled or the producer signals completion via io.EOF.
//
// When onReport is provided it is invoked after every job with its outcome.
func (s *Service) ExecuteFromProducer(
	ctx context.Context,
	producer ports.JobProducer,
	maxJobs int,
	maxParallel int,
	onReport func(execution.RunReport),
) error {
	if maxParallel <= 0 {
		maxParallel = 1
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxParallel)
	processed := 0

	finish := func(err error) error {
		wg.Wait()
		return err
	}

	for {
		if maxJobs > 0 && processed >= maxJobs {
			return finish(nil)
		}

		req, err := producer.NextJob(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) {
				return finish(nil)
			}
			return finish(fmt.Errorf("get next job: %w", err))
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return finish(nil)
		}
		wg.Add(1)
		processed++
		go func(req execution.JobRequest) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := execution.RunReport{Request: req}
			task, err := s.Submit(ctx, req)
			if err == nil {
				var report execution.Report
				report, err = task.Wait(context.Background())
				if err == nil {
					outcome.Report = &report
				}
			}
			outcome.Err = err

			if onReport != nil {
				onReport(outcome)
			}
		}(req)
	}
}

// Close waits for submitted tasks and releases the provisioner.
func (s *Service) Close() error {
	s.tasks.Wait()
	return s.provisioner.Close()
}
