package execution

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

const bytesPerMB = 1024 * 1024

// ProfileResolver looks up the profile registered for a language.
type ProfileResolver interface {
	Resolve(lang Language) (Profile, error)
}

// TestCaseSpec is a test case as supplied by a caller. Nil fields are
// undefined, which is different from an empty string.
type TestCaseSpec struct {
	Input          *string
	ExpectedOutput *string
	Hidden         bool
}

// JobRequest is a raw, unvalidated evaluation request.
type JobRequest struct {
	ID       string
	Language Language
	Source   string
	Tests    []TestCaseSpec
	// TimeLimitMs overrides the profile time limit when set.
	TimeLimitMs *int64
	// MemoryLimitMB overrides the profile memory ceiling when set.
	MemoryLimitMB *int64
}

// Job is an immutable execution plan built from a validated JobRequest.
type Job struct {
	ID       string
	Language Language
	Profile  Profile
	Source   string
	Tests    []TestCase
	Limits   RunLimits
}

// BuildJob validates req and turns it into a Job. Limit overrides are clamped
// to ceiling so a caller can never raise the worst-case resource usage.
func BuildJob(resolver ProfileResolver, req JobRequest, ceiling RunLimits) (Job, error) {
	if req.Language == "" {
		return Job{}, &ValidationError{Field: "language", Reason: "is required"}
	}
	profile, err := resolver.Resolve(req.Language)
	if err != nil {
		if errors.Is(err, ErrUnsupportedLanguage) {
			return Job{}, &ValidationError{Field: "language", Reason: fmt.Sprintf("%q is not supported", req.Language), Err: err}
		}
		return Job{}, fmt.Errorf("resolve language %q: %w", req.Language, err)
	}

	if len(req.Tests) == 0 {
		return Job{}, &ValidationError{Field: "testCases", Reason: "at least one test case is required"}
	}

	tests := make([]TestCase, len(req.Tests))
	for idx, tc := range req.Tests {
		if tc.Input == nil {
			return Job{}, &ValidationError{Field: fmt.Sprintf("testCases[%d].input", idx), Reason: "is undefined"}
		}
		if tc.ExpectedOutput == nil {
			return Job{}, &ValidationError{Field: fmt.Sprintf("testCases[%d].expectedOutput", idx), Reason: "is undefined"}
		}
		tests[idx] = TestCase{
			Number:         idx + 1,
			Input:          *tc.Input,
			ExpectedOutput: *tc.ExpectedOutput,
			Hidden:         tc.Hidden,
		}
	}

	var overrides RunLimits
	if req.TimeLimitMs != nil {
		if *req.TimeLimitMs <= 0 {
			return Job{}, &ValidationError{Field: "timeLimit", Reason: "must be positive"}
		}
		if *req.TimeLimitMs > math.MaxInt64/int64(time.Millisecond) {
			return Job{}, &ValidationError{Field: "timeLimit", Reason: "is too large"}
		}
		overrides.TimeLimit = time.Duration(*req.TimeLimitMs) * time.Millisecond
	}
	if req.MemoryLimitMB != nil {
		if *req.MemoryLimitMB <= 0 {
			return Job{}, &ValidationError{Field: "memoryLimit", Reason: "must be positive"}
		}
		if *req.MemoryLimitMB > math.MaxInt64/bytesPerMB {
			return Job{}, &ValidationError{Field: "memoryLimit", Reason: "is too large"}
		}
		overrides.MemoryLimitBytes = *req.MemoryLimitMB * bytesPerMB
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	return Job{
		ID:       id,
		Language: profile.Language,
		Profile:  profile,
		Source:   req.Source,
		Tests:    tests,
		Limits:   profile.DefaultLimits().Merge(overrides).Clamp(ceiling),
	}, nil
}
