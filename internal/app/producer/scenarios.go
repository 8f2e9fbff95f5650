package producer

import (
	"codejudge/internal/domain/execution"
)

// Scenario is a job with the verdict a healthy judge must give it.
type Scenario struct {
	Request execution.JobRequest
	Verdict execution.Verdict
}

// sumWrongByOne reads every integer on stdin and prints the total plus one.
const sumWrongByOne = `package main

import (
	"bufio"
	"fmt"
	"os"
)

func main() {
	reader := bufio.NewReader(os.Stdin)
	var total int64
	for {
		var value int64
		_, err := fmt.Fscan(reader, &value)
		if err != nil {
			break
		}
		total += value
	}
	fmt.Println(total + 1)
}
`

// Scenarios covers each verdict a submission can earn.
func Scenarios() []Scenario {
	shortLimit := int64(1000)
	return []Scenario{
		{
			Request: scenarioJob("scenario-accepted", execution.LanguagePython, smokeSources[execution.LanguagePython], nil),
			Verdict: execution.VerdictAccepted,
		},
		{
			Request: scenarioJob("scenario-wrong-answer", execution.LanguageGo, sumWrongByOne, nil),
			Verdict: execution.VerdictWrongAnswer,
		},
		{
			Request: scenarioJob("scenario-time-limit", execution.LanguagePython, "while True:\n    pass\n", &shortLimit),
			Verdict: execution.VerdictTimeLimitExceeded,
		},
		{
			Request: scenarioJob("scenario-runtime-error", execution.LanguagePython, "raise SystemExit(3)\n", nil),
			Verdict: execution.VerdictRuntimeError,
		},
		{
			Request: scenarioJob("scenario-compilation-error", execution.LanguageCPP, "int main() { return missing; }\n", nil),
			Verdict: execution.VerdictCompilationError,
		},
	}
}

func scenarioJob(id string, lang execution.Language, source string, timeLimitMs *int64) execution.JobRequest {
	input, expected := smokeInput, smokeExpected
	return execution.JobRequest{
		ID:          id,
		Language:    lang,
		Source:      source,
		TimeLimitMs: timeLimitMs,
		Tests: []execution.TestCaseSpec{
			{Input: &input, ExpectedOutput: &expected},
		},
	}
}
