package execution

import (
	"math"
	"time"
)

// Verdict is the single overall classification of a job.
type Verdict string

const (
	VerdictAccepted            Verdict = "accepted"
	VerdictWrongAnswer         Verdict = "wrong_answer"
	VerdictTimeLimitExceeded   Verdict = "time_limit_exceeded"
	VerdictMemoryLimitExceeded Verdict = "memory_limit_exceeded"
	VerdictCompilationError    Verdict = "compilation_error"
	VerdictRuntimeError        Verdict = "runtime_error"
	VerdictSystemError         Verdict = "system_error"
)

// Report is the final output of a job.
type Report struct {
	JobID    string
	Language Language
	Verdict  Verdict
	Tests    []TestResult
	// ExecutionTime is the sum of the durations of every executed test case.
	ExecutionTime time.Duration
	// MemoryUsedBytes is the peak memory of the sandbox. Zero when the
	// isolation layer does not report it.
	MemoryUsedBytes int64
	ErrorMessage    string
}

// Passed returns the number of passing test results.
func (r Report) Passed() int {
	passed := 0
	for _, test := range r.Tests {
		if test.Passed {
			passed++
		}
	}
	return passed
}

// Score is the percentage of executed test cases that passed, rounded.
func (r Report) Score() int {
	if len(r.Tests) == 0 {
		return 0
	}
	return int(math.Round(float64(r.Passed()) / float64(len(r.Tests)) * 100))
}

// SampleResult is the response of a single custom-input run.
type SampleResult struct {
	Input    string
	Expected string
	Output   string
	Passed   bool
	Error    string
}
