package classify

import "github.com/prometheus/client_golang/prometheus"

// Hooks are optional callbacks the dispatcher and tiers invoke as they work.
// Zero-value hooks are no-ops.
type Hooks struct {
	// OnClassified fires once per dispatch call with the recorded method.
	OnClassified func(method Method, seconds float64, isError bool)

	// OnBatch fires once per batch call.
	OnBatch func(size int, seconds float64)

	// OnGenerativeAttempt fires for every remote generative attempt.
	OnGenerativeAttempt func(seconds float64, isError bool)
}

// Metrics holds Prometheus metrics for the classification subsystem.
type Metrics struct {
	ClassificationsTotal    *prometheus.CounterVec
	ClassificationDuration  *prometheus.HistogramVec
	BatchSize               prometheus.Histogram
	BatchDuration           prometheus.Histogram
	GenerativeAttemptsTotal *prometheus.CounterVec
	GenerativeAttemptTime   prometheus.Histogram
}

// NewMetrics registers and returns classification metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ClassificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_classifications_total",
			Help: "Total classifications by producing method.",
		}, []string{"method"}),
		ClassificationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sift_classification_duration_seconds",
			Help:    "Duration of single dispatch calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms .. ~260s
		}, []string{"method"}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sift_batch_size",
			Help:    "Entries per batch classification call.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1 .. 2048
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sift_batch_duration_seconds",
			Help:    "Duration of batch classification calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8), // 10ms .. ~160s
		}),
		GenerativeAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_generative_attempts_total",
			Help: "Remote generative attempts by outcome.",
		}, []string{"outcome"}),
		GenerativeAttemptTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sift_generative_attempt_duration_seconds",
			Help:    "Duration of individual remote generative attempts in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s .. ~51s
		}),
	}

	reg.MustRegister(
		m.ClassificationsTotal,
		m.ClassificationDuration,
		m.BatchSize,
		m.BatchDuration,
		m.GenerativeAttemptsTotal,
		m.GenerativeAttemptTime,
	)

	return m
}

// Hooks returns a Hooks that increments the corresponding metrics.
func (m *Metrics) Hooks() Hooks {
	return Hooks{
		OnClassified: func(method Method, seconds float64, isError bool) {
			if isError {
				method = MethodError
			}
			m.ClassificationsTotal.WithLabelValues(string(method)).Inc()
			m.ClassificationDuration.WithLabelValues(string(method)).Observe(seconds)
		},
		OnBatch: func(size int, seconds float64) {
			m.BatchSize.Observe(float64(size))
			m.BatchDuration.Observe(seconds)
		},
		OnGenerativeAttempt: func(seconds float64, isError bool) {
			outcome := "success"
			if isError {
				outcome = "error"
			}
			m.GenerativeAttemptsTotal.WithLabelValues(outcome).Inc()
			m.GenerativeAttemptTime.Observe(seconds)
		},
	}
}
