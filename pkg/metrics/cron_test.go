package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCronJobMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.IncSuccess("billing-pass")
	m.IncSuccess("billing-pass")
	m.IncFailure("payment-retry")
	m.ObserveDuration("billing-pass", 2*time.Second)
	m.AddEntityOutcomes("billing-pass", "invoiced", 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.success.WithLabelValues("billing-pass")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failure.WithLabelValues("payment-retry")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.entities.WithLabelValues("billing-pass", "invoiced")))
}

func TestCronJobMetricsNilSafe(t *testing.T) {
	var m *CronJobMetrics
	m.IncSuccess("billing-pass")
	m.IncFailure("billing-pass")
	m.ObserveDuration("billing-pass", time.Second)
	m.AddEntityOutcomes("billing-pass", "invoiced", 1)

	empty := NewCronJobMetrics(nil)
	empty.IncSuccess("billing-pass")
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, "unknown", normalizeLabel(""))
	assert.Equal(t, "billing-pass", normalizeLabel("billing-pass"))
}
