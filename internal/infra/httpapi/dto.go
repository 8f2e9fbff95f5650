package httpapi

import (
	"codejudge/internal/domain/execution"
)

// EvaluateRequest is the body of POST /v1/evaluate.
type EvaluateRequest struct {
	ID          string         `json:"id"`
	Language    string         `json:"language"`
	SourceCode  string         `json:"sourceCode"`
	TestCases   []TestCaseBody `json:"testCases"`
	TimeLimit   *int64         `json:"timeLimit"`
	MemoryLimit *int64         `json:"memoryLimit"`
}

// TestCaseBody keeps input and expectedOutput as pointers so a missing field
// is distinguishable from an empty string.
type TestCaseBody struct {
	Input          *string `json:"input"`
	ExpectedOutput *string `json:"expectedOutput"`
	IsHidden       bool    `json:"isHidden"`
}

// RunSampleRequest is the body of POST /v1/run-sample.
type RunSampleRequest struct {
	Language       string `json:"language"`
	SourceCode     string `json:"sourceCode"`
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
	TimeLimit      *int64 `json:"timeLimit"`
	MemoryLimit    *int64 `json:"memoryLimit"`
}

// ReportResponse is the classified outcome of a job.
type ReportResponse struct {
	JobID         string               `json:"jobId"`
	Language      string               `json:"language"`
	Verdict       execution.Verdict    `json:"verdict"`
	Score         int                  `json:"score"`
	Passed        int                  `json:"passed"`
	Executed      int                  `json:"executed"`
	ExecutionTime int64                `json:"executionTime"`
	MemoryUsed    int64                `json:"memoryUsed"`
	ErrorMessage  string               `json:"errorMessage,omitempty"`
	TestResults   []TestResultResponse `json:"testResults"`
}

// TestResultResponse omits input and expected output of hidden tests.
type TestResultResponse struct {
	Index         int    `json:"index"`
	Input         string `json:"input,omitempty"`
	Expected      string `json:"expected,omitempty"`
	Output        string `json:"output"`
	Passed        bool   `json:"passed"`
	IsHidden      bool   `json:"isHidden"`
	ExecutionTime int64  `json:"executionTime"`
	Error         string `json:"error,omitempty"`
}

// SampleResponse mirrors execution.SampleResult.
type SampleResponse struct {
	Input    string `json:"input"`
	Expected string `json:"expected"`
	Output   string `json:"output"`
	Passed   bool   `json:"passed"`
	Error    string `json:"error,omitempty"`
}

// LanguageResponse describes one registered profile.
type LanguageResponse struct {
	Language    string `json:"language"`
	Image       string `json:"image"`
	Compiled    bool   `json:"compiled"`
	TimeLimit   int64  `json:"timeLimit"`
	MemoryLimit int64  `json:"memoryLimit"`
}

// ErrorResponse is returned for every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (r EvaluateRequest) toJobRequest() execution.JobRequest {
	req := execution.JobRequest{
		ID:            r.ID,
		Language:      execution.Language(r.Language),
		Source:        r.SourceCode,
		TimeLimitMs:   r.TimeLimit,
		MemoryLimitMB: r.MemoryLimit,
	}
	if len(r.TestCases) > 0 {
		req.Tests = make([]execution.TestCaseSpec, len(r.TestCases))
		for idx, tc := range r.TestCases {
			req.Tests[idx] = execution.TestCaseSpec{
				Input:          tc.Input,
				ExpectedOutput: tc.ExpectedOutput,
				Hidden:         tc.IsHidden,
			}
		}
	}
	return req
}

func newReportResponse(report execution.Report) ReportResponse {
	resp := ReportResponse{
		JobID:         report.JobID,
		Language:      string(report.Language),
		Verdict:       report.Verdict,
		Score:         report.Score(),
		Passed:        report.Passed(),
		Executed:      len(report.Tests),
		ExecutionTime: report.ExecutionTime.Milliseconds(),
		MemoryUsed:    report.MemoryUsedBytes,
		ErrorMessage:  report.ErrorMessage,
		TestResults:   make([]TestResultResponse, 0, len(report.Tests)),
	}

	for _, test := range report.Tests {
		result := TestResultResponse{
			Index:         test.Index(),
			Output:        test.Stdout,
			Passed:        test.Passed,
			IsHidden:      test.Case.Hidden,
			ExecutionTime: test.Duration.Milliseconds(),
			Error:         test.Error,
		}
		if !test.Case.Hidden {
			result.Input = test.Case.Input
			result.Expected = test.Case.ExpectedOutput
		}
		resp.TestResults = append(resp.TestResults, result)
	}
	return resp
}

func newLanguageResponse(profile execution.Profile) LanguageResponse {
	return LanguageResponse{
		Language:    string(profile.Language),
		Image:       profile.Image,
		Compiled:    profile.Compiled(),
		TimeLimit:   profile.TimeLimit.Milliseconds(),
		MemoryLimit: profile.MemoryLimitBytes / (1024 * 1024),
	}
}
