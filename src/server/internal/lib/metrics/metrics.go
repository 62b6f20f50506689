// Package metrics holds the prometheus collectors of the separation service.
// Collectors are package level and registered once through Register.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeComplete = "complete"
	OutcomeError    = "error"
)

var (
	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "separation_jobs_total",
			Help: "Separation jobs handled, by outcome",
		},
		[]string{"outcome"},
	)

	jobDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "separation_job_duration_seconds",
			Help:    "Wall time of a separation job from staged upload to response",
			Buckets: []float64{5, 15, 30, 60, 90, 120, 180, 240, 300, 360},
		},
	)

	jobsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "separation_jobs_in_flight",
			Help: "Separation jobs currently running",
		},
	)

	conversionFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "separation_conversion_fallbacks_total",
			Help: "Inputs handed to the separator in their original format after a failed conversion",
		},
	)

	progressSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "progress_subscribers",
			Help: "Clients currently subscribed to progress events",
		},
	)

	progressPushFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "progress_push_failures_total",
			Help: "Progress events that could not be delivered to a subscriber",
		},
	)
)

var registerOnce sync.Once

func Register(registerer prometheus.Registerer) {
	registerOnce.Do(func() {
		registerer.MustRegister(
			jobsTotal,
			jobDurationSeconds,
			jobsInFlight,
			conversionFallbacksTotal,
			progressSubscribers,
			progressPushFailuresTotal,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// JobStarted returns the function to call once the job is over
func JobStarted() func(outcome string) {
	start := time.Now()
	jobsInFlight.Inc()

	return func(outcome string) {
		jobsInFlight.Dec()
		jobsTotal.WithLabelValues(outcome).Inc()
		jobDurationSeconds.Observe(time.Since(start).Seconds())
	}
}

func ConversionFellBack() {
	conversionFallbacksTotal.Inc()
}

func SetProgressSubscribers(count int) {
	progressSubscribers.Set(float64(count))
}

func ProgressPushFailed() {
	progressPushFailuresTotal.Inc()
}
