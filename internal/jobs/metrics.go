// Package jobmetrics instruments background sweeps.
package jobmetrics

import (
	"errors"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
)

// Run statuses recorded on freightdesk_jobs_total.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusSkipped = "skipped"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs        *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	findings    *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
	now         func() time.Time
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against the provided registerer. A nil
// registerer shares one instance on the default Prometheus registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker instruments a single job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track starts a tracker for the given job name. It is safe on a nil Metrics.
func (m *Metrics) Track(job string) *Tracker {
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End records the outcome and returns err unchanged. Errors wrapping asynq.SkipRetry
// count as skipped rather than failed.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	m := t.metrics
	status := StatusSuccess
	switch {
	case err == nil:
		m.lastSuccess.WithLabelValues(t.job).Set(float64(m.now().Unix()))
	case errors.Is(err, asynq.SkipRetry):
		status = StatusSkipped
	default:
		status = StatusFailure
		m.failures.WithLabelValues(t.job).Inc()
	}
	m.runs.WithLabelValues(t.job, status).Inc()
	m.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// AddFindings counts what a sweep found: invoices marked overdue, integrity issues,
// jobs with outstanding documents.
func (m *Metrics) AddFindings(job string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.findings.WithLabelValues(job).Add(float64(count))
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	const ns = "freightdesk"
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "jobs_total",
			Help: "Job executions by job name and status.",
		}, []string{"job", "status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "jobs_failures_total",
			Help: "Job executions that returned a retryable error.",
		}, []string{"job"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Name: "job_duration_seconds",
			Help:    "Duration of job executions.",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 60},
		}, []string{"job"}),
		findings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "job_findings_total",
			Help: "Items flagged by sweep jobs.",
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns, Name: "job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run.",
		}, []string{"job"}),
		now: time.Now,
	}
	registerer.MustRegister(m.runs, m.failures, m.duration, m.findings, m.lastSuccess)
	return m
}
