package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"codejudge/internal/app/executor"
	"codejudge/internal/app/producer"
	"codejudge/internal/domain/execution"
	"codejudge/internal/infra/httpapi"
	kafkainfra "codejudge/internal/infra/kafka"
	"codejudge/internal/infra/metrics"
	"codejudge/internal/logger"
	"codejudge/internal/ports"
	runtimex "codejudge/internal/runtime"
	"codejudge/internal/runtime/docker"
)

func main() {
	cfg := loadAppConfig()

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	for _, warning := range cfg.Warnings {
		log.Warn("configuration", zap.String("warning", warning))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("judge stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg appConfig, log *zap.Logger) error {
	registry, err := loadRegistry(cfg.ProfilesFile)
	if err != nil {
		return err
	}
	log.Info("language profiles loaded", zap.Int("count", len(registry.Languages())))

	provisioner, err := docker.New(cfg.Sandbox, log)
	if err != nil {
		return fmt.Errorf("failed to initialize docker provisioner: %w", err)
	}
	if reaped, err := provisioner.Reap(ctx); err != nil {
		log.Warn("failed to reap orphaned sandboxes", zap.Error(err))
	} else if reaped > 0 {
		log.Info("reaped orphaned sandboxes", zap.Int("count", reaped))
	}
	if cfg.Warmup {
		if err := provisioner.Warmup(ctx, registry.Images()); err != nil {
			log.Warn("image warmup incomplete", zap.Error(err))
		}
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(promRegistry)

	service := executor.NewService(registry, provisioner, cfg.Executor,
		executor.WithLogger(log),
		executor.WithMetrics(collector),
	)
	defer func() {
		if cerr := service.Close(); cerr != nil {
			log.Warn("failed to close executor", zap.Error(cerr))
		}
	}()

	if cfg.SmokeTest {
		if err := runSmokeTest(ctx, service, registry.Languages(), cfg.MaxParallel, log); err != nil {
			return err
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	running := 0

	var server *httpapi.Server
	if cfg.HTTP.Addr != "" {
		limiter := httpapi.NewRateLimiter(cfg.RateLimit, collector.RateLimited)
		go pruneLimiter(runCtx, limiter, defaultLimiterPrune)

		router := httpapi.NewRouter(
			httpapi.NewHandler(service, registry, log),
			limiter,
			promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}),
			log,
		)
		server = httpapi.NewServer(cfg.HTTP, router, log)
		running++
		go func() { errCh <- server.ListenAndServe() }()
	}

	if len(cfg.KafkaBrokers) > 0 {
		running++
		go func() { errCh <- runKafkaWorker(runCtx, cfg, service, log) }()
	}

	if running == 0 {
		log.Info("no HTTP address or Kafka brokers configured, exiting")
		return nil
	}

	var runErr error
	for running > 0 && runErr == nil {
		select {
		case <-ctx.Done():
			log.Info("shutdown requested")
			runErr = ctx.Err()
		case err := <-errCh:
			running--
			runErr = err
		}
	}
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	cancel()
	if server != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancelShutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown incomplete", zap.Error(err))
		}
	}
	for ; running > 0; running-- {
		if err := <-errCh; err != nil && runErr == nil {
			runErr = err
		}
	}
	return runErr
}

func loadRegistry(profilesFile string) (*runtimex.Registry, error) {
	profiles := runtimex.DefaultProfiles()
	if profilesFile != "" {
		var err error
		profiles, err = runtimex.LoadProfiles(profilesFile, profiles)
		if err != nil {
			return nil, err
		}
	}

	registry, err := runtimex.NewRegistry(profiles...)
	if err != nil {
		return nil, fmt.Errorf("failed to build language registry: %w", err)
	}
	return registry, nil
}

func runKafkaWorker(ctx context.Context, cfg appConfig, service *executor.Service, log *zap.Logger) error {
	consumer, err := kafkainfra.NewConsumer(kafkainfra.Config{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.JobsTopic,
		GroupID: cfg.GroupID,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to initialize kafka consumer: %w", err)
	}
	defer func() {
		if cerr := consumer.Close(); cerr != nil {
			log.Warn("failed to close kafka consumer", zap.Error(cerr))
		}
	}()

	publisher, err := kafkainfra.NewPublisher(kafkainfra.PublisherConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.ReportsTopic,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize kafka publisher: %w", err)
	}
	defer func() {
		if cerr := publisher.Close(); cerr != nil {
			log.Warn("failed to close kafka publisher", zap.Error(cerr))
		}
	}()

	log.Info("consuming jobs",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.JobsTopic),
		zap.String("reports_topic", cfg.ReportsTopic),
		zap.Int("max_parallel", cfg.MaxParallel),
	)
	if err := service.ExecuteFromProducer(ctx, consumer, cfg.MaxJobs, cfg.MaxParallel, publishReports(ctx, publisher, log)); err != nil {
		return fmt.Errorf("failed to execute jobs: %w", err)
	}
	log.Info("job consumer finished")
	return nil
}

// publishReports answers every job except those abandoned by shutdown, which
// have no outcome to report.
func publishReports(ctx context.Context, publisher ports.RunReportPublisher, log *zap.Logger) func(execution.RunReport) {
	publishCtx := context.WithoutCancel(ctx)
	return func(report execution.RunReport) {
		if errors.Is(report.Err, execution.ErrCancelled) {
			log.Info("job abandoned, not publishing", zap.String("job", report.JobID()))
			return
		}
		if report.Err != nil {
			log.Warn("job rejected", zap.String("job", report.JobID()), zap.Error(report.Err))
		}
		if err := publisher.PublishRunReport(publishCtx, report); err != nil {
			log.Error("failed to publish report", zap.String("job", report.JobID()), zap.Error(err))
		}
	}
}

func runSmokeTest(ctx context.Context, service *executor.Service, languages []execution.Language, parallel int, log *zap.Logger) error {
	jobs := producer.SmokeJobs(languages)
	log.Info("running smoke test", zap.Int("jobs", len(jobs)))

	var (
		mu     sync.Mutex
		failed []string
	)
	err := service.ExecuteFromProducer(ctx, producer.NewService(jobs...), 0, parallel, func(report execution.RunReport) {
		if reason := smokeFailure(report); reason != "" {
			log.Error("smoke test failed", zap.String("job", report.JobID()), zap.String("reason", reason))
			mu.Lock()
			failed = append(failed, report.JobID())
			mu.Unlock()
			return
		}
		log.Info("smoke test passed", zap.String("job", report.JobID()))
	})
	if err != nil {
		return fmt.Errorf("smoke test: %w", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		return fmt.Errorf("smoke test failed for %s", strings.Join(failed, ", "))
	}
	return nil
}

// smokeFailure describes why a smoke job did not pass. Empty means it passed.
func smokeFailure(report execution.RunReport) string {
	switch {
	case report.Err != nil:
		return report.Err.Error()
	case report.Report == nil:
		return "no report"
	case report.Report.Verdict != execution.VerdictAccepted:
		if report.Report.ErrorMessage != "" {
			return fmt.Sprintf("%s: %s", report.Report.Verdict, report.Report.ErrorMessage)
		}
		return string(report.Report.Verdict)
	}
	return ""
}

func pruneLimiter(ctx context.Context, limiter *httpapi.RateLimiter, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Prune()
		}
	}
}
