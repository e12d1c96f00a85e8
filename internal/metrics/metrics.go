package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for schedule planning.
// Tracks plan durations, window counts and collaborator failures.
type Metrics struct {
	PlansComputed    prometheus.Counter
	PlanFailures     prometheus.Counter
	PlanDuration     prometheus.Histogram
	WindowsPlanned   prometheus.Gauge
	ProviderFailures *prometheus.CounterVec
	LastRefresh      prometheus.Gauge
}

// New creates a Metrics instance registered with reg.
// A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		PlansComputed: f.NewCounter(prometheus.CounterOpts{
			Name: "custody_plans_computed_total",
			Help: "Total number of schedules computed",
		}),
		PlanFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "custody_plan_failures_total",
			Help: "Total number of schedule computations that returned an error",
		}),
		PlanDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "custody_plan_duration_seconds",
			Help:    "Duration of schedule computations, collaborator fetches included",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}),
		WindowsPlanned: f.NewGauge(prometheus.GaugeOpts{
			Name: "custody_windows_planned",
			Help: "Number of windows in the most recent schedule",
		}),
		ProviderFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_provider_failures_total",
			Help: "Collaborator failures that degraded to an empty set",
		}, []string{"provider"}),
		LastRefresh: f.NewGauge(prometheus.GaugeOpts{
			Name: "custody_last_refresh_timestamp_seconds",
			Help: "Unix time of the last successful daemon refresh",
		}),
	}
}

// ObservePlan records a finished computation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObservePlan(start time.Time, windows int, err error) {
	m.PlanDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		m.PlanFailures.Inc()
		return
	}
	m.PlansComputed.Inc()
	m.WindowsPlanned.Set(float64(windows))
}

// IncrementProviderFailure records a holiday or vacation fetch failure
func (m *Metrics) IncrementProviderFailure(provider string) {
	m.ProviderFailures.WithLabelValues(provider).Inc()
}

// MarkRefreshed records a successful daemon refresh
func (m *Metrics) MarkRefreshed(at time.Time) {
	m.LastRefresh.Set(float64(at.Unix()))
}
