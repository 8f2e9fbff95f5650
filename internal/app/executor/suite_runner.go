package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"codejudge/internal/domain/execution"
	runtimex "codejudge/internal/runtime"
)

const bytesPerMB = 1024 * 1024

type suiteRunner struct {
	sandbox runtimex.Sandbox
	job     execution.Job
	// stopOnHidden also ends the suite at a failing hidden test.
	stopOnHidden bool
}

func newSuiteRunner(sandbox runtimex.Sandbox, job execution.Job, stopOnHidden bool) *suiteRunner {
	return &suiteRunner{sandbox: sandbox, job: job, stopOnHidden: stopOnHidden}
}

// run executes the job's tests in order. A failing visible test ends the
// suite, so later tests are absent from the result rather than marked.
func (r *suiteRunner) run(ctx context.Context) ([]execution.TestResult, error) {
	results := make([]execution.TestResult, 0, len(r.job.Tests))

	for _, test := range r.job.Tests {
		result, err := r.runTestCase(ctx, test)
		if err != nil {
			return nil, err
		}
		results = append(results, result)

		if !result.Passed && (!test.Hidden || r.stopOnHidden) {
			break
		}
	}

	return results, nil
}

func (r *suiteRunner) runTestCase(ctx context.Context, test execution.TestCase) (execution.TestResult, error) {
	run, err := r.sandbox.Run(ctx, test.Input, r.job.Limits.TimeLimit)
	if err != nil {
		return execution.TestResult{}, fmt.Errorf("run test %d: %w", test.Number, err)
	}
	if run == nil {
		return execution.TestResult{}, fmt.Errorf("run test %d: sandbox returned no result", test.Number)
	}
	return evaluateRun(test, run, r.job.Limits), nil
}

func evaluateRun(test execution.TestCase, run *execution.Result, limits execution.RunLimits) execution.TestResult {
	result := execution.TestResult{
		Case:     test,
		ExitCode: run.ExitCode,
		Duration: run.Duration,
	}

	switch run.Status {
	case execution.StatusTimeLimit:
		result.Failure = execution.FailureTimeout
		result.Error = timeLimitMessage(limits.TimeLimit)
		return result
	case execution.StatusMemoryLimit:
		result.Failure = execution.FailureMemory
		result.Stdout = strings.TrimSpace(run.Stdout)
		result.Error = memoryLimitMessage(limits.MemoryLimitBytes)
		return result
	}

	result.Stdout = strings.TrimSpace(run.Stdout)
	result.TruncatedAt = run.TruncatedAt
	result.Error = CleanError(run.Stderr)
	// Output alone decides the outcome. The exit status only explains a failure.
	result.Passed = result.Stdout == strings.TrimSpace(test.ExpectedOutput)
	if run.ExitCode != 0 {
		if result.Error == "" {
			result.Error = fmt.Sprintf("Process exited with code %d", run.ExitCode)
		}
		if !result.Passed {
			result.Failure = execution.FailureRuntime
		}
	}
	return result
}

func timeLimitMessage(limit time.Duration) string {
	return fmt.Sprintf("Time Limit Exceeded: your code took longer than %dms to execute.", limit.Milliseconds())
}

func memoryLimitMessage(limitBytes int64) string {
	return fmt.Sprintf("Memory Limit Exceeded: your code used more than %dMB of memory.", limitBytes/bytesPerMB)
}

// compileMessage extracts the diagnostic of a failed build step.
func compileMessage(result *execution.Result) string {
	switch result.Status {
	case execution.StatusTimeLimit:
		return "Compilation Error: the compiler did not finish in time."
	case execution.StatusMemoryLimit:
		return "Compilation Error: the compiler ran out of memory."
	}

	if msg := CleanError(result.Stderr); msg != "" {
		return msg
	}
	if msg := CleanError(result.Stdout); msg != "" {
		return msg
	}
	return fmt.Sprintf("Compilation Error: compiler exited with code %d", result.ExitCode)
}

func totalDuration(results []execution.TestResult) time.Duration {
	var total time.Duration
	for _, result := range results {
		total += result.Duration
	}
	return total
}
