package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"codejudge/internal/app/executor"
	"codejudge/internal/domain/execution"
	"codejudge/internal/infra/httpapi"
	"codejudge/internal/logger"
	"codejudge/internal/runtime/docker"
)

const (
	defaultKafkaJobsTopic    = "jobs"
	defaultKafkaReportsTopic = "job-reports"
	defaultKafkaGroupID      = "codejudge-workers"
	defaultHTTPAddr          = ":8080"
	defaultShutdownTimeout   = 30 * time.Second
	defaultLimiterPrune      = time.Minute
	defaultTimeCeiling       = 15 * time.Second
	defaultMemoryCeilingMB   = 512

	bytesPerMB = 1024 * 1024
)

type appConfig struct {
	KafkaBrokers    []string
	JobsTopic       string
	ReportsTopic    string
	GroupID         string
	MaxJobs         int
	MaxParallel     int
	HTTP            httpapi.ServerConfig
	RateLimit       httpapi.RateLimitConfig
	Executor        executor.Config
	Sandbox         docker.Config
	Log             logger.Config
	ProfilesFile    string
	Warmup          bool
	SmokeTest       bool
	ShutdownTimeout time.Duration
	// Warnings lists settings that were ignored while loading. They are
	// logged once the logger exists.
	Warnings []string
}

func loadAppConfig() appConfig {
	maxJobs, maxJobsErr := parseMaxJobs(os.Getenv("JOB_EXPECTED"))

	cfg := appConfig{
		KafkaBrokers: parseBrokerList(os.Getenv("KAFKA_BROKERS")),
		JobsTopic:    envOrDefault("KAFKA_JOBS_TOPIC", defaultKafkaJobsTopic),
		ReportsTopic: envOrDefault("KAFKA_REPORTS_TOPIC", defaultKafkaReportsTopic),
		GroupID:      envOrDefault("KAFKA_GROUP_ID", defaultKafkaGroupID),
		MaxJobs:      maxJobs,
		MaxParallel:  parseMaxParallel(os.Getenv("RUNNER_MAX_PARALLEL")),
		HTTP: httpapi.ServerConfig{
			Addr:         envOrDefault("HTTP_ADDR", defaultHTTPAddr),
			ReadTimeout:  parseDuration(os.Getenv("HTTP_READ_TIMEOUT"), 15*time.Second),
			WriteTimeout: parseDuration(os.Getenv("HTTP_WRITE_TIMEOUT"), 2*time.Minute),
			IdleTimeout:  parseDuration(os.Getenv("HTTP_IDLE_TIMEOUT"), time.Minute),
		},
		RateLimit: httpapi.RateLimitConfig{
			GlobalRPS:  parseFloat(os.Getenv("RATE_LIMIT_RPS"), 50),
			PerIPRPS:   parseFloat(os.Getenv("RATE_LIMIT_PER_IP_RPS"), 5),
			PerIPBurst: parsePositiveInt(os.Getenv("RATE_LIMIT_PER_IP_BURST"), 10),
		},
		Executor: executor.Config{
			Ceiling: execution.RunLimits{
				TimeLimit:        parseDuration(os.Getenv("RUNNER_TIME_LIMIT_CEILING"), defaultTimeCeiling),
				MemoryLimitBytes: parseMegabytes(os.Getenv("RUNNER_MEMORY_LIMIT_CEILING_MB"), defaultMemoryCeilingMB),
			},
			StopOnHiddenFailure: parseBool(os.Getenv("STOP_ON_HIDDEN_FAILURE"), false),
		},
		Sandbox: docker.Config{
			Instance:         os.Getenv("SANDBOX_INSTANCE"),
			User:             os.Getenv("SANDBOX_USER"),
			CPUFraction:      parseFloat(os.Getenv("SANDBOX_CPU_FRACTION"), 0),
			PidsLimit:        int64(parsePositiveInt(os.Getenv("SANDBOX_PIDS_LIMIT"), 0)),
			WorkspaceSizeMB:  parsePositiveInt(os.Getenv("SANDBOX_WORKSPACE_MB"), 0),
			OutputLimitBytes: parsePositiveInt(os.Getenv("SANDBOX_OUTPUT_LIMIT_BYTES"), 0),
			ProvisionTimeout: parseDuration(os.Getenv("SANDBOX_PROVISION_TIMEOUT"), 0),
			PullTimeout:      parseDuration(os.Getenv("SANDBOX_PULL_TIMEOUT"), 0),
			CompileTimeout:   parseDuration(os.Getenv("SANDBOX_COMPILE_TIMEOUT"), 0),
			TeardownTimeout:  parseDuration(os.Getenv("SANDBOX_TEARDOWN_TIMEOUT"), 0),
		},
		Log: logger.Config{
			Level:      envOrDefault("LOG_LEVEL", "info"),
			Format:     envOrDefault("LOG_FORMAT", "json"),
			OutputPath: envOrDefault("LOG_OUTPUT", "stdout"),
		},
		ProfilesFile:    os.Getenv("PROFILES_FILE"),
		Warmup:          parseBool(os.Getenv("WARMUP_IMAGES"), true),
		SmokeTest:       parseBool(os.Getenv("SMOKE_TEST"), false),
		ShutdownTimeout: parseDuration(os.Getenv("SHUTDOWN_TIMEOUT"), defaultShutdownTimeout),
	}
	if maxJobsErr != nil {
		cfg.Warnings = append(cfg.Warnings, maxJobsErr.Error())
	}
	return cfg
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseBrokerList(raw string) []string {
	fields := strings.Split(raw, ",")
	brokers := make([]string, 0, len(fields))
	for _, field := range fields {
		if trimmed := strings.TrimSpace(field); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}

// parseMaxJobs returns zero, meaning unbounded, for empty or invalid input.
// The error describes an ignored invalid value.
func parseMaxJobs(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("ignoring invalid JOB_EXPECTED value %q: %w", raw, err)
	}
	if value < 0 {
		return 0, nil
	}
	return value, nil
}

func parseMaxParallel(raw string) int {
	return parsePositiveInt(raw, 1)
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func parseFloat(raw string, fallback float64) float64 {
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

func parseBool(raw string, fallback bool) bool {
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

func parseMegabytes(raw string, fallback int64) int64 {
	if raw == "" {
		return fallback * bytesPerMB
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		return fallback * bytesPerMB
	}
	return value * bytesPerMB
}
