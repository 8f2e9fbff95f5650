package executor

import (
	"fmt"

	"codejudge/internal/domain/execution"
)

// Classify derives the overall verdict of a job from its test results. The
// first failing test decides; its failure kind is checked in priority order
// before falling back to a wrong answer.
func Classify(results []execution.TestResult) (execution.Verdict, string) {
	for _, result := range results {
		if result.Passed {
			continue
		}

		switch {
		case result.Failure == execution.FailureTimeout:
			return execution.VerdictTimeLimitExceeded, result.Error
		case result.Failure == execution.FailureMemory:
			return execution.VerdictMemoryLimitExceeded, result.Error
		case result.Failure == execution.FailureCompile:
			return execution.VerdictCompilationError, result.Error
		case result.Error != "", result.Failure == execution.FailureRuntime:
			return execution.VerdictRuntimeError, result.Error
		default:
			return execution.VerdictWrongAnswer, wrongAnswerMessage(result)
		}
	}

	return execution.VerdictAccepted, ""
}

func wrongAnswerMessage(result execution.TestResult) string {
	msg := fmt.Sprintf("Expected: \"%s\", Got: \"%s\"", result.Case.ExpectedOutput, result.Stdout)
	if result.Case.Hidden {
		msg = fmt.Sprintf("Wrong answer on hidden test %d", result.Case.Number)
	}
	if result.TruncatedAt > 0 {
		msg += fmt.Sprintf(" (output truncated at %d bytes)", result.TruncatedAt)
	}
	return msg
}
