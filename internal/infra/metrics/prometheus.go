package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"codejudge/internal/domain/execution"
	"codejudge/internal/ports"
)

const namespace = "codejudge"

var _ ports.JobMetrics = (*Collector)(nil)

// Collector records job and sandbox events as Prometheus metrics.
type Collector struct {
	jobsTotal        *prometheus.CounterVec
	jobDuration      *prometheus.HistogramVec
	cancellations    *prometheus.CounterVec
	activeSandboxes  *prometheus.GaugeVec
	provisionFailure *prometheus.CounterVec
	teardownFailure  *prometheus.CounterVec
	rateLimitHits    prometheus.Counter
}

// NewCollector registers the judge metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		jobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_total",
				Help:      "Total number of evaluated jobs by verdict",
			},
			[]string{"language", "verdict"},
		),
		jobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_ms",
				Help:      "Wall time of a job from provisioning to teardown in milliseconds",
				Buckets:   []float64{100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
			},
			[]string{"language"},
		),
		cancellations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_cancelled_total",
				Help:      "Total number of jobs abandoned by their caller",
			},
			[]string{"language"},
		),
		activeSandboxes: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sandboxes",
				Help:      "Number of sandboxes currently provisioned",
			},
			[]string{"language"},
		),
		provisionFailure: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sandbox_provision_failures_total",
				Help:      "Total number of sandboxes that could not be provisioned",
			},
			[]string{"language"},
		),
		teardownFailure: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sandbox_teardown_failures_total",
				Help:      "Total number of sandboxes whose teardown reported an error",
			},
			[]string{"language"},
		),
		rateLimitHits: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Total number of requests rejected by the rate limiter",
			},
		),
	}
}

func (c *Collector) JobFinished(lang execution.Language, verdict execution.Verdict, elapsed time.Duration) {
	c.jobsTotal.WithLabelValues(string(lang), string(verdict)).Inc()
	c.jobDuration.WithLabelValues(string(lang)).Observe(float64(elapsed.Milliseconds()))
}

func (c *Collector) JobCancelled(lang execution.Language) {
	c.cancellations.WithLabelValues(string(lang)).Inc()
}

func (c *Collector) SandboxProvisioned(lang execution.Language) {
	c.activeSandboxes.WithLabelValues(string(lang)).Inc()
}

func (c *Collector) SandboxReleased(lang execution.Language) {
	c.activeSandboxes.WithLabelValues(string(lang)).Dec()
}

func (c *Collector) ProvisionFailed(lang execution.Language) {
	c.provisionFailure.WithLabelValues(string(lang)).Inc()
}

func (c *Collector) TeardownFailed(lang execution.Language) {
	c.teardownFailure.WithLabelValues(string(lang)).Inc()
}

// RateLimited counts a request rejected before reaching the executor.
func (c *Collector) RateLimited() {
	c.rateLimitHits.Inc()
}
