package producer

import (
	"context"
	"errors"
	"io"
	"testing"

	"codejudge/internal/domain/execution"
)

func TestNextJobReturnsRequestsInOrder(t *testing.T) {
	t.Parallel()

	service := NewService(
		execution.JobRequest{ID: "first"},
		execution.JobRequest{ID: "second"},
	)

	first, err := service.NextJob(context.Background())
	if err != nil {
		t.Fatalf("NextJob returned error: %v", err)
	}
	if first.ID != "first" {
		t.Fatalf("expected first job ID 'first', got %q", first.ID)
	}

	second, err := service.NextJob(context.Background())
	if err != nil {
		t.Fatalf("NextJob returned error: %v", err)
	}
	if second.ID != "second" {
		t.Fatalf("expected second job ID 'second', got %q", second.ID)
	}
}

func TestNextJobReturnsEOFWhenExhausted(t *testing.T) {
	t.Parallel()

	service := NewService(execution.JobRequest{ID: "only"})
	_, _ = service.NextJob(context.Background())

	_, err := service.NextJob(context.Background())
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestNextJobContextCancellation(t *testing.T) {
	t.Parallel()

	service := NewService(execution.JobRequest{ID: "only"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := service.NextJob(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestAddJobAssignsIDWhenMissing(t *testing.T) {
	t.Parallel()

	service := NewService()
	service.AddJob(execution.JobRequest{Language: execution.LanguagePython, Source: "print(1)"})
	service.AddJob(execution.JobRequest{ID: "custom"})

	generated, err := service.NextJob(context.Background())
	if err != nil {
		t.Fatalf("NextJob returned error: %v", err)
	}
	if generated.ID == "" {
		t.Fatalf("expected generated job ID")
	}
	if generated.Source != "print(1)" {
		t.Fatalf("unexpected job source: %q", generated.Source)
	}

	custom, err := service.NextJob(context.Background())
	if err != nil {
		t.Fatalf("NextJob returned error: %v", err)
	}
	if custom.ID != "custom" {
		t.Fatalf("expected job ID 'custom', got %q", custom.ID)
	}
}

func TestSmokeJobsCoverKnownLanguages(t *testing.T) {
	t.Parallel()

	languages := []execution.Language{
		execution.LanguagePython,
		execution.LanguageCPP,
		execution.Language("cobol"),
	}
	jobs := SmokeJobs(languages)

	if len(jobs) != 2 {
		t.Fatalf("expected jobs for the two known languages, got %d", len(jobs))
	}
	for _, job := range jobs {
		if job.Source == "" {
			t.Fatalf("job %s has no source", job.ID)
		}
		if len(job.Tests) != 1 || *job.Tests[0].ExpectedOutput != smokeExpected {
			t.Fatalf("job %s has unexpected tests %+v", job.ID, job.Tests)
		}
	}
}

func TestSmokeSourcesMatchBuiltInLanguages(t *testing.T) {
	t.Parallel()

	for _, lang := range []execution.Language{
		execution.LanguagePython, execution.LanguageJavaScript, execution.LanguageJava,
		execution.LanguageCPP, execution.LanguageC, execution.LanguageGo,
		execution.LanguageRust, execution.LanguagePHP, execution.LanguageRuby,
		execution.LanguageCSharp,
	} {
		if _, ok := smokeSources[lang]; !ok {
			t.Fatalf("missing smoke program for %s", lang)
		}
	}
}

func TestScenariosCoverEveryUserVerdict(t *testing.T) {
	t.Parallel()

	seen := make(map[execution.Verdict]bool)
	ids := make(map[string]bool)
	for _, scenario := range Scenarios() {
		if ids[scenario.Request.ID] {
			t.Fatalf("duplicate scenario id %q", scenario.Request.ID)
		}
		ids[scenario.Request.ID] = true
		seen[scenario.Verdict] = true

		if len(scenario.Request.Tests) != 1 || scenario.Request.Tests[0].Input == nil {
			t.Fatalf("scenario %q must carry one defined test", scenario.Request.ID)
		}
	}

	for _, verdict := range []execution.Verdict{
		execution.VerdictAccepted,
		execution.VerdictWrongAnswer,
		execution.VerdictTimeLimitExceeded,
		execution.VerdictRuntimeError,
		execution.VerdictCompilationError,
	} {
		if !seen[verdict] {
			t.Fatalf("no scenario expects %q", verdict)
		}
	}
}
