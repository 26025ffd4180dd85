// Package monitoring exports engine counters to Prometheus.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics implements the engine's metrics hook on a Prometheus registry.
type Metrics struct {
	ticks   prometheus.Counter
	errors  prometheus.Counter
	actions *prometheus.CounterVec
	state   prometheus.Gauge
}

// New registers the tickbot collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agent_ticks_total",
			Help: "Decision cycles started since process boot.",
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agent_errors_total",
			Help: "Failed cycles and failed actions since process boot.",
		}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_actions_total",
			Help: "Executed actions by catalog name and outcome.",
		}, []string{"action", "outcome"}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agent_state",
			Help: "Engine state: 0 idle, 1 running, 2 paused, 3 stopping.",
		}),
	}
	reg.MustRegister(m.ticks, m.errors, m.actions, m.state)
	return m
}

func (m *Metrics) TickObserved()  { m.ticks.Inc() }
func (m *Metrics) ErrorObserved() { m.errors.Inc() }

func (m *Metrics) ActionObserved(action, outcome string) {
	m.actions.WithLabelValues(action, outcome).Inc()
}

// StateChanged records the engine state transition.
func (m *Metrics) StateChanged(state string) {
	switch state {
	case "running":
		m.state.Set(1)
	case "paused":
		m.state.Set(2)
	case "stopping":
		m.state.Set(3)
	default:
		m.state.Set(0)
	}
}
