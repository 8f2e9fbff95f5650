// Command jobsim enqueues sample jobs on the judge's Kafka topic.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"codejudge/internal/app/producer"
	"codejudge/internal/domain/execution"
	kafkainfra "codejudge/internal/infra/kafka"
	runtimex "codejudge/internal/runtime"
)

const (
	defaultKafkaBrokers = "localhost:9092"
	defaultJobsTopic    = "jobs"
	defaultJobSet       = "all"
)

type simConfig struct {
	Brokers   []string
	Topic     string
	Set       string
	Languages []execution.Language
	SendDone  bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := loadSimConfig()
	jobs, err := selectJobs(cfg.Set, cfg.Languages)
	if err != nil {
		log.Fatalf("invalid job set: %v", err)
	}

	writer, err := kafkainfra.NewJobWriter(kafkainfra.PublisherConfig{Brokers: cfg.Brokers, Topic: cfg.Topic})
	if err != nil {
		log.Fatalf("failed to initialize kafka writer: %v", err)
	}
	defer func() {
		if cerr := writer.Close(); cerr != nil {
			log.Printf("warning: failed to close kafka writer: %v", cerr)
		}
	}()

	for _, job := range jobs {
		if err := writer.PublishJob(ctx, job); err != nil {
			log.Fatalf("failed to publish job %q: %v", job.ID, err)
		}
		fmt.Printf("published %s (%s)\n", job.ID, job.Language)
	}

	if cfg.SendDone {
		if err := writer.PublishDone(ctx); err != nil {
			log.Fatalf("failed to publish done marker: %v", err)
		}
		fmt.Println("published done marker")
	}
}

func loadSimConfig() simConfig {
	return simConfig{
		Brokers:   splitList(envOrDefault("KAFKA_BROKERS", defaultKafkaBrokers)),
		Topic:     envOrDefault("KAFKA_JOBS_TOPIC", defaultJobsTopic),
		Set:       envOrDefault("SIM_JOB_SET", defaultJobSet),
		Languages: parseLanguages(os.Getenv("SIM_LANGUAGES")),
		SendDone:  parseSendDone(os.Getenv("SIM_SEND_DONE")),
	}
}

// selectJobs returns the smoke jobs, the verdict scenarios or both.
func selectJobs(set string, languages []execution.Language) ([]execution.JobRequest, error) {
	var jobs []execution.JobRequest
	switch set {
	case "smoke":
		jobs = producer.SmokeJobs(languages)
	case "scenarios":
		jobs = scenarioRequests()
	case "all":
		jobs = append(producer.SmokeJobs(languages), scenarioRequests()...)
	default:
		return nil, fmt.Errorf("unknown set %q (want smoke, scenarios or all)", set)
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("set %q produced no jobs", set)
	}
	return jobs, nil
}

func scenarioRequests() []execution.JobRequest {
	scenarios := producer.Scenarios()
	requests := make([]execution.JobRequest, 0, len(scenarios))
	for _, scenario := range scenarios {
		requests = append(requests, scenario.Request)
	}
	return requests
}

func parseLanguages(raw string) []execution.Language {
	if strings.TrimSpace(raw) == "" {
		profiles := runtimex.DefaultProfiles()
		languages := make([]execution.Language, 0, len(profiles))
		for _, profile := range profiles {
			languages = append(languages, profile.Language)
		}
		return languages
	}

	fields := splitList(raw)
	languages := make([]execution.Language, 0, len(fields))
	for _, field := range fields {
		languages = append(languages, execution.Language(strings.ToLower(field)))
	}
	return languages
}

func parseSendDone(raw string) bool {
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("warning: ignoring invalid SIM_SEND_DONE value %q: %v", raw, err)
		return false
	}
	return value
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitList(raw string) []string {
	fields := strings.Split(raw, ",")
	values := make([]string, 0, len(fields))
	for _, field := range fields {
		if trimmed := strings.TrimSpace(field); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
