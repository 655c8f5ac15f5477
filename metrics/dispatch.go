package metrics

import "github.com/prometheus/client_golang/prometheus"

// DispatchMetrics counts deliveries, pruned channels and announced candidates per kind.
type DispatchMetrics struct {
	deliveries *prometheus.CounterVec
	pruned     *prometheus.CounterVec
	announced  *prometheus.CounterVec
}

// NewDispatchMetrics registers the dispatch metrics on reg.
// A nil registerer yields metrics that record nothing.
func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	if reg == nil {
		return &DispatchMetrics{}
	}
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deliveries_total",
		Help:      "Announcement delivery attempts by kind and outcome.",
	}, []string{"kind", "outcome"})
	pruned := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pruned_channels_total",
		Help:      "Channels removed after rejecting delivery.",
	}, []string{"kind"})
	announced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "announced_total",
		Help:      "Candidates marked announced.",
	}, []string{"kind"})
	reg.MustRegister(deliveries, pruned, announced)
	return &DispatchMetrics{deliveries: deliveries, pruned: pruned, announced: announced}
}

// ObserveDelivery counts one delivery attempt.
func (m *DispatchMetrics) ObserveDelivery(kind string, success bool) {
	if m == nil || m.deliveries == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.deliveries.WithLabelValues(normalizeLabel(kind), outcome).Inc()
}

// ObservePrune counts one pruned channel.
func (m *DispatchMetrics) ObservePrune(kind string) {
	if m == nil || m.pruned == nil {
		return
	}
	m.pruned.WithLabelValues(normalizeLabel(kind)).Inc()
}

// ObserveAnnounced counts one announced candidate.
func (m *DispatchMetrics) ObserveAnnounced(kind string) {
	if m == nil || m.announced == nil {
		return
	}
	m.announced.WithLabelValues(normalizeLabel(kind)).Inc()
}
