package execution

import "time"

// TestCase describes a single stdin/stdout expectation pair.
type TestCase struct {
	Number         int
	Input          string
	ExpectedOutput string
	// Hidden test cases are used for grading only and never shown to the submitter.
	Hidden bool
}

// Failure classifies why a test case did not pass.
type Failure string

const (
	FailureNone    Failure = ""
	FailureTimeout Failure = "timeout"
	FailureMemory  Failure = "memory"
	FailureCompile Failure = "compile"
	FailureRuntime Failure = "runtime"
)

// TestResult captures the outcome of executing a single TestCase.
type TestResult struct {
	Case     TestCase
	Stdout   string
	ExitCode int64
	Duration time.Duration
	Passed   bool
	Failure  Failure
	// Error is the cleaned, user-presentable error text. Empty when absent.
	Error string
	// TruncatedAt is the byte limit Stdout was cut at, zero when complete.
	TruncatedAt int
}

// Index returns the zero-based position of the test case within its job.
func (r TestResult) Index() int {
	return r.Case.Number - 1
}
