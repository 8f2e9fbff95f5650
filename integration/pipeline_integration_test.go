//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"codejudge/internal/app/executor"
	"codejudge/internal/domain/execution"
	kafkainfra "codejudge/internal/infra/kafka"
	runtimex "codejudge/internal/runtime"
	"codejudge/internal/runtime/docker"
	"codejudge/internal/testhelpers"
)

type publishedReport struct {
	ID       string            `json:"id"`
	Verdict  execution.Verdict `json:"verdict"`
	Score    *int              `json:"score"`
	Passed   int               `json:"passed"`
	Executed int               `json:"executed"`
	Tests    []struct {
		Index        int    `json:"index"`
		ActualOutput string `json:"actual_output"`
		Passed       bool   `json:"passed"`
	} `json:"tests"`
}

func TestPipelineEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping pipeline integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	const (
		jobsTopic    = "integration-jobs"
		reportsTopic = "integration-reports"
	)
	broker := testhelpers.StartKafka(ctx, t, jobsTopic, reportsTopic)

	registry, err := runtimex.NewRegistry(runtimex.DefaultProfiles()...)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	provisioner, err := docker.New(docker.Config{Instance: "codejudge-pipeline"}, nil)
	if err != nil {
		t.Skipf("docker provisioner unavailable: %v", err)
	}
	service := executor.NewService(registry, provisioner, executor.Config{})
	defer service.Close()

	consumer, err := kafkainfra.NewConsumer(kafkainfra.Config{
		Brokers: []string{broker},
		Topic:   jobsTopic,
		GroupID: "integration-pipeline",
	}, nil)
	if err != nil {
		t.Fatalf("NewConsumer failed: %v", err)
	}
	defer consumer.Close()

	publisher, err := kafkainfra.NewPublisher(kafkainfra.PublisherConfig{
		Brokers: []string{broker},
		Topic:   reportsTopic,
	})
	if err != nil {
		t.Fatalf("NewPublisher failed: %v", err)
	}
	defer publisher.Close()

	job := map[string]any{
		"type":     "job",
		"id":       "pipeline-python",
		"language": "python",
		"source":   "print(int(input()) + 1)\n",
		"tests": []map[string]any{
			{"input": "1\n", "expected_output": "2"},
			{"input": "41\n", "expected_output": "42", "hidden": true},
		},
	}
	payload, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("marshal job: %v", err)
	}

	writer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: jobsTopic}
	defer writer.Close()
	if err := writer.WriteMessages(ctx, kafkago.Message{Key: []byte("pipeline-python"), Value: payload}); err != nil {
		t.Fatalf("write job: %v", err)
	}

	err = service.ExecuteFromProducer(ctx, consumer, 1, 1, func(report execution.RunReport) {
		if err := publisher.PublishRunReport(ctx, report); err != nil {
			t.Errorf("publish report: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("ExecuteFromProducer returned error: %v", err)
	}

	readCtx, cancelRead := context.WithTimeout(ctx, 30*time.Second)
	defer cancelRead()
	msg, err := testhelpers.ReadOne(readCtx, broker, reportsTopic, "integration-pipeline-reader")
	if err != nil {
		t.Fatalf("read report: %v", err)
	}

	var report publishedReport
	if err := json.Unmarshal(msg.Value, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.ID != "pipeline-python" {
		t.Fatalf("expected report for pipeline-python, got %q", report.ID)
	}
	if report.Verdict != execution.VerdictAccepted {
		t.Fatalf("expected accepted verdict, got %q", report.Verdict)
	}
	if report.Executed != 2 || report.Passed != 2 {
		t.Fatalf("expected 2/2 tests passed, got %d/%d", report.Passed, report.Executed)
	}
	if report.Score == nil || *report.Score != 100 {
		t.Fatalf("expected score 100, got %v", report.Score)
	}
	if report.Tests[1].ActualOutput != "42" {
		t.Fatalf("expected hidden test output 42, got %q", report.Tests[1].ActualOutput)
	}
}
