package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the pipeline collectors. A nil *Recorder records nothing.
type Recorder struct {
	messagesProcessed  prometheus.Counter
	messagesExcluded   prometheus.Counter
	claimsDetected     prometheus.Counter
	completionFailures prometheus.Counter
	completionLatency  *prometheus.HistogramVec
	runs               *prometheus.CounterVec
}

// New registers the collectors on reg
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		messagesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "claim_detector_messages_processed_total",
			Help: "Messages recorded by the pipeline",
		}),
		messagesExcluded: factory.NewCounter(prometheus.CounterOpts{
			Name: "claim_detector_messages_excluded_total",
			Help: "Messages exempted by exclusion rules",
		}),
		claimsDetected: factory.NewCounter(prometheus.CounterOpts{
			Name: "claim_detector_claims_detected_total",
			Help: "Messages classified as claims",
		}),
		completionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "claim_detector_completion_failures_total",
			Help: "Classification calls that failed",
		}),
		completionLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "claim_detector_completion_latency_seconds",
				Help:    "Classification call latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~50s
			},
			[]string{"status"},
		),
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "claim_detector_runs_total",
				Help: "Pipeline runs by final status",
			},
			[]string{"status"},
		),
	}
}

// MessageProcessed counts a recorded message
func (r *Recorder) MessageProcessed() {
	if r == nil {
		return
	}
	r.messagesProcessed.Inc()
}

// MessageExcluded counts an excluded message
func (r *Recorder) MessageExcluded() {
	if r == nil {
		return
	}
	r.messagesExcluded.Inc()
}

// ClaimDetected counts a claim
func (r *Recorder) ClaimDetected() {
	if r == nil {
		return
	}
	r.claimsDetected.Inc()
}

// ObserveCompletion records one classification call
func (r *Recorder) ObserveCompletion(duration time.Duration, err error) {
	if r == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
		r.completionFailures.Inc()
	}
	r.completionLatency.WithLabelValues(status).Observe(duration.Seconds())
}

// RunFinished counts a finished run by status
func (r *Recorder) RunFinished(status string) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(status).Inc()
}
