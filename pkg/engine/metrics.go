package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics are the collectors of an engine. Collectors are per engine so that several engines can
// live in the same process, each registered on its own registry.
type metrics struct {
	actions     *prometheus.CounterVec
	setSize     *prometheus.GaugeVec
	applyErrors *prometheus.CounterVec
}

func newMetrics() *metrics {
	return &metrics{
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipelet_actions_total",
			Help: "Cumulative number of values or update pairs applied per node and action.",
		}, []string{"node", "action"}),
		setSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pipelet_set_size",
			Help: "Number of values held by a set.",
		}, []string{"node"}),
		applyErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipelet_apply_errors_total",
			Help: "Cumulative number of transactions that failed to apply per node.",
		}, []string{"node"}),
	}
}

func (m *metrics) register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.actions, m.setSize, m.applyErrors} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
