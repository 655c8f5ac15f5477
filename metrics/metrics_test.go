package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobMetrics_RecordsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewJobMetrics(reg)

	m.ObserveDuration("price-watch", 250*time.Millisecond)
	m.IncSuccess("price-watch")
	m.IncFailure("price-watch")
	m.IncFailure("")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.success.WithLabelValues("price-watch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failure.WithLabelValues("price-watch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failure.WithLabelValues("unknown")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "gamealert_job_duration_seconds")
}

func TestJobMetrics_NilRegistererIsSilent(t *testing.T) {
	m := NewJobMetrics(nil)
	assert.NotPanics(t, func() {
		m.ObserveDuration("x", time.Second)
		m.IncSuccess("x")
		m.IncFailure("x")
	})

	var nilMetrics *JobMetrics
	assert.NotPanics(t, func() { nilMetrics.IncSuccess("x") })
}

func TestDispatchMetrics_CountsByKind(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDispatchMetrics(reg)

	m.ObserveDelivery("giveaway", true)
	m.ObserveDelivery("giveaway", true)
	m.ObserveDelivery("giveaway", false)
	m.ObservePrune("giveaway")
	m.ObserveAnnounced("free-to-play")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.deliveries.WithLabelValues("giveaway", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues("giveaway", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pruned.WithLabelValues("giveaway")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.announced.WithLabelValues("free-to-play")))
}
