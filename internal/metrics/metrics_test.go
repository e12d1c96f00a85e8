package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObservePlan(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObservePlan(time.Now(), 12, nil)
	m.ObservePlan(time.Now(), 0, errors.New("boom"))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.PlansComputed))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PlanFailures))
	assert.Equal(t, float64(12), testutil.ToFloat64(m.WindowsPlanned))
}

func TestProviderFailures(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncrementProviderFailure("holidays")
	m.IncrementProviderFailure("holidays")
	m.IncrementProviderFailure("vacations")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.ProviderFailures.WithLabelValues("holidays")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ProviderFailures.WithLabelValues("vacations")))
}

func TestMarkRefreshed(t *testing.T) {
	m := New(prometheus.NewRegistry())
	at := time.Date(2025, time.October, 3, 3, 0, 0, 0, time.UTC)

	m.MarkRefreshed(at)
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(m.LastRefresh))
}
