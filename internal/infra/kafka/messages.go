package kafka

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"codejudge/internal/domain/execution"
)

const (
	messageTypeJob  = "job"
	messageTypeDone = "done"
)

type jobEnvelope struct {
	Type          string        `json:"type"`
	ID            string        `json:"id"`
	Language      string        `json:"language"`
	Source        string        `json:"source"`
	TimeLimitMs   *int64        `json:"time_limit_ms,omitempty"`
	MemoryLimitMB *int64        `json:"memory_limit_mb,omitempty"`
	Tests         []jobTestCase `json:"tests"`
}

// jobTestCase keeps input and expected output as pointers so an absent field
// stays distinguishable from an empty one.
type jobTestCase struct {
	Input          *string `json:"input"`
	ExpectedOutput *string `json:"expected_output"`
	Hidden         bool    `json:"hidden,omitempty"`
}

type reportEnvelope struct {
	ID              string               `json:"id"`
	Language        string               `json:"language,omitempty"`
	Verdict         execution.Verdict    `json:"verdict,omitempty"`
	Score           *int                 `json:"score,omitempty"`
	Passed          int                  `json:"passed"`
	Executed        int                  `json:"executed"`
	ExecutionTimeMs *int64               `json:"execution_time_ms,omitempty"`
	MemoryUsedBytes *int64               `json:"memory_used_bytes,omitempty"`
	ErrorMessage    string               `json:"error_message,omitempty"`
	Error           string               `json:"error,omitempty"`
	Tests           []testResultEnvelope `json:"tests,omitempty"`
	Timestamp       time.Time            `json:"timestamp"`
}

type testResultEnvelope struct {
	Index           int               `json:"index"`
	Input           string            `json:"input"`
	ExpectedOutput  string            `json:"expected_output"`
	ActualOutput    string            `json:"actual_output"`
	Passed          bool              `json:"passed"`
	Hidden          bool              `json:"hidden,omitempty"`
	Failure         execution.Failure `json:"failure,omitempty"`
	ExitCode        int64             `json:"exit_code"`
	ExecutionTimeMs int64             `json:"execution_time_ms"`
	Error           string            `json:"error,omitempty"`
}

func decodeJobMessage(msg kafkago.Message) (execution.JobRequest, error) {
	var envelope jobEnvelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		return execution.JobRequest{}, fmt.Errorf("decode message: %w", err)
	}

	msgType := envelope.Type
	if msgType == "" {
		msgType = messageTypeJob
	}

	switch msgType {
	case messageTypeJob:
		return envelope.toRequest(msg), nil
	case messageTypeDone:
		return execution.JobRequest{}, io.EOF
	default:
		return execution.JobRequest{}, fmt.Errorf("unknown message type %q", msgType)
	}
}

// toRequest maps the envelope without validating it; malformed jobs are
// rejected by the executor and answered with an error report.
func (e jobEnvelope) toRequest(msg kafkago.Message) execution.JobRequest {
	jobID := e.ID
	if jobID == "" {
		jobID = string(msg.Key)
	}
	if jobID == "" {
		jobID = fmt.Sprintf("%s:%d:%d", msg.Topic, msg.Partition, msg.Offset)
	}

	tests := make([]execution.TestCaseSpec, len(e.Tests))
	for idx, test := range e.Tests {
		tests[idx] = execution.TestCaseSpec{
			Input:          test.Input,
			ExpectedOutput: test.ExpectedOutput,
			Hidden:         test.Hidden,
		}
	}

	return execution.JobRequest{
		ID:            jobID,
		Language:      execution.Language(e.Language),
		Source:        e.Source,
		Tests:         tests,
		TimeLimitMs:   e.TimeLimitMs,
		MemoryLimitMB: e.MemoryLimitMB,
	}
}

func encodeJobRequest(req execution.JobRequest) ([]byte, error) {
	envelope := jobEnvelope{
		Type:          messageTypeJob,
		ID:            req.ID,
		Language:      string(req.Language),
		Source:        req.Source,
		TimeLimitMs:   req.TimeLimitMs,
		MemoryLimitMB: req.MemoryLimitMB,
		Tests:         make([]jobTestCase, len(req.Tests)),
	}
	for idx, test := range req.Tests {
		envelope.Tests[idx] = jobTestCase{
			Input:          test.Input,
			ExpectedOutput: test.ExpectedOutput,
			Hidden:         test.Hidden,
		}
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}
	return payload, nil
}

func encodeRunReport(report execution.RunReport) ([]byte, error) {
	payload, err := json.Marshal(makeReportEnvelope(report))
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return payload, nil
}

func makeReportEnvelope(report execution.RunReport) reportEnvelope {
	envelope := reportEnvelope{
		ID:        report.JobID(),
		Language:  string(report.Request.Language),
		Timestamp: time.Now().UTC(),
	}

	if report.Err != nil {
		envelope.Error = report.Err.Error()
	}

	if report.Report == nil {
		return envelope
	}

	result := report.Report
	score := result.Score()
	executionMs := result.ExecutionTime.Milliseconds()
	memory := result.MemoryUsedBytes

	envelope.Language = string(result.Language)
	envelope.Verdict = result.Verdict
	envelope.Score = &score
	envelope.Passed = result.Passed()
	envelope.Executed = len(result.Tests)
	envelope.ExecutionTimeMs = &executionMs
	envelope.MemoryUsedBytes = &memory
	envelope.ErrorMessage = result.ErrorMessage

	if len(result.Tests) > 0 {
		envelope.Tests = make([]testResultEnvelope, 0, len(result.Tests))
		for _, test := range result.Tests {
			envelope.Tests = append(envelope.Tests, testResultEnvelope{
				Index:           test.Index(),
				Input:           test.Case.Input,
				ExpectedOutput:  test.Case.ExpectedOutput,
				ActualOutput:    test.Stdout,
				Passed:          test.Passed,
				Hidden:          test.Case.Hidden,
				Failure:         test.Failure,
				ExitCode:        test.ExitCode,
				ExecutionTimeMs: test.Duration.Milliseconds(),
				Error:           test.Error,
			})
		}
	}

	return envelope
}
