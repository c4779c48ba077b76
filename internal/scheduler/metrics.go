package scheduler

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the job scheduler.
type Metrics struct {
	JobRuns     *prometheus.CounterVec
	JobsSkipped *prometheus.CounterVec
	JobDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers scheduler metrics.
// Returns nil if reg is nil.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		return nil
	}

	m := &Metrics{
		JobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bureau",
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Total scheduled job runs by job and result.",
		}, []string{"job", "result"}),
		JobsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bureau",
			Subsystem: "scheduler",
			Name:      "jobs_skipped_total",
			Help:      "Total job runs skipped because the job was still running or no slot was free.",
		}, []string{"job"}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bureau",
			Subsystem: "scheduler",
			Name:      "job_duration_seconds",
			Help:      "Duration of each scheduled job run.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 120},
		}, []string{"job"}),
	}

	reg.MustRegister(m.JobRuns, m.JobsSkipped, m.JobDuration)
	return m
}
