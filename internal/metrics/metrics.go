// Package metrics exposes Prometheus counters, gauges and histograms
// for queue depth, throughput and latency. It is an observability
// surface only — nothing in the claim/settle/retry path depends on
// it being wired up, so a worker that never calls a metrics recorder
// still behaves correctly.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder groups the metrics a worker or the admin surface updates
// as jobs move through the queue. The metric names and shape follow
// the RED-method counters/histograms used for job queues in the
// example pack (jobs_enqueued_total, jobs_completed_total,
// jobs_failed_total, jobs_dead_total, job_latency_seconds,
// jobs_pending, jobs_in_flight).
type Recorder struct {
	JobsEnqueued  prometheus.Counter
	JobsCompleted prometheus.Counter
	JobsFailed    prometheus.Counter
	JobsDead      prometheus.Counter
	JobLatency    prometheus.Histogram
	JobsPending   prometheus.Gauge
	JobsInFlight  prometheus.Gauge
	ActiveWorkers prometheus.Gauge
}

// NewRecorder builds a Recorder and registers its metrics on reg.
// Pass prometheus.NewRegistry() for tests, or
// prometheus.DefaultRegisterer for the `metrics serve` command.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		JobsEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queuectl_jobs_enqueued_total",
			Help: "Total number of jobs enqueued.",
		}),
		JobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queuectl_jobs_completed_total",
			Help: "Total number of jobs that completed successfully.",
		}),
		JobsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queuectl_jobs_failed_total",
			Help: "Total number of job attempts that failed but were retried.",
		}),
		JobsDead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queuectl_jobs_dead_total",
			Help: "Total number of jobs moved to the dead-letter queue.",
		}),
		JobLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "queuectl_job_latency_seconds",
			Help:    "Wall-clock time a single job execution took.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		JobsPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queuectl_jobs_pending",
			Help: "Current number of jobs waiting to be claimed.",
		}),
		JobsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queuectl_jobs_in_flight",
			Help: "Current number of jobs being executed.",
		}),
		ActiveWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queuectl_active_workers",
			Help: "Current number of registered worker processes.",
		}),
	}
	reg.MustRegister(
		r.JobsEnqueued, r.JobsCompleted, r.JobsFailed, r.JobsDead,
		r.JobLatency, r.JobsPending, r.JobsInFlight, r.ActiveWorkers,
	)
	return r
}

// ObserveLatency records how long a job execution took.
func (r *Recorder) ObserveLatency(d time.Duration) {
	if r == nil {
		return
	}
	r.JobLatency.Observe(d.Seconds())
}

// IncEnqueued, IncCompleted, IncFailed and IncDead bump the matching
// counter. All are nil-safe so a worker built without a Recorder (no
// `metrics serve` running) doesn't need to guard every call site.
func (r *Recorder) IncEnqueued() {
	if r != nil {
		r.JobsEnqueued.Inc()
	}
}

func (r *Recorder) IncCompleted() {
	if r != nil {
		r.JobsCompleted.Inc()
	}
}

func (r *Recorder) IncFailed() {
	if r != nil {
		r.JobsFailed.Inc()
	}
}

func (r *Recorder) IncDead() {
	if r != nil {
		r.JobsDead.Inc()
	}
}

// RefreshGauges updates the point-in-time gauges from a state->count
// map (as returned by storage.CountsByState) and a worker count.
func (r *Recorder) RefreshGauges(counts map[string]int, activeWorkers int) {
	if r == nil {
		return
	}
	r.JobsPending.Set(float64(counts["pending"]))
	r.JobsInFlight.Set(float64(counts["running"]))
	r.ActiveWorkers.Set(float64(activeWorkers))
}
