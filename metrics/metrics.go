// Package metrics is the process-local operational instrumentation
// (§6 "added"), not the XPUM RPC surface itself. The two counters are
// fed by the registry's OnSample/OnSinkError hooks; the two active-task
// gauges are registered, but nothing in the daemon sets them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/intel/xpum/families"
)

// Metrics bundles every operational instrument the daemon exposes.
// Construct once per process and register against a prometheus.Registerer.
type Metrics struct {
	SamplesRouted    *prometheus.CounterVec
	SinkErrors       *prometheus.CounterVec
	ActiveTraceTasks prometheus.Gauge
	ActiveDumpTasks  prometheus.Gauge
}

// New builds the instrument set, unregistered.
func New() *Metrics {
	return &Metrics{
		SamplesRouted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xpum",
			Subsystem: "datalogic",
			Name:      "samples_routed_total",
			Help:      "Samples successfully routed to a family handler.",
		}, []string{"family"}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xpum",
			Subsystem: "datalogic",
			Name:      "sink_errors_total",
			Help:      "Sink.Store calls that returned an error.",
		}, []string{"family"}),
		ActiveTraceTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "xpum",
			Subsystem: "rawtrace",
			Name:      "active_tasks",
			Help:      "Currently running raw-trace tasks.",
		}),
		ActiveDumpTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "xpum",
			Subsystem: "dumpfile",
			Name:      "active_tasks",
			Help:      "Currently open dump-file tasks.",
		}),
	}
}

// MustRegister registers every instrument against reg, panicking on a
// duplicate-registration error (construction-time only, per prometheus
// convention).
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.SamplesRouted, m.SinkErrors, m.ActiveTraceTasks, m.ActiveDumpTasks)
}

// OnSample is a datalogic.Registry.OnSample hook.
func (m *Metrics) OnSample(f families.MetricFamily) {
	m.SamplesRouted.WithLabelValues(f.String()).Inc()
}

// OnSinkError is a datalogic.Registry.OnSinkError hook.
func (m *Metrics) OnSinkError(f families.MetricFamily, err error) {
	m.SinkErrors.WithLabelValues(f.String()).Inc()
}
