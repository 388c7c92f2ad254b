package datalogic

import (
	"log"
	"sync"

	"github.com/intel/xpum/families"
	"github.com/intel/xpum/sample"
)

// Tracer receives every accepted sample, for the raw-trace manager
// (§4.5). Kept as an interface here (rather than importing the
// rawtrace package directly) so datalogic has no dependency on it.
type Tracer interface {
	Observe(family families.MetricFamily, s *sample.Sample)
}

// Enablement reports whether a family is currently enabled (§4.8). A
// nil Enablement is treated as "everything enabled", which is what
// tests and the Avg-only code paths want by default.
type Enablement interface {
	Enabled(f families.MetricFamily) bool
}

// Registry is the handler registry (C3): maps metric family to handler
// instance, routes every incoming sample, and owns the coarse
// map lock (handler lookup takes only its read side).
type Registry struct {
	mu       sync.RWMutex
	handlers map[families.MetricFamily]Handler

	sink       Sink
	enablement Enablement
	tracer     Tracer

	// OnSample, if set, is invoked after a sample is successfully routed
	// to its handler. Used by the metrics package to count routed
	// samples without the registry importing it directly.
	OnSample func(f families.MetricFamily)
	// OnSinkError, if set, is invoked when the sink returns an error.
	OnSinkError func(f families.MetricFamily, err error)
}

// NewRegistry builds a Registry with one handler per declared family,
// wired per each family's Descriptor.Kind.
func NewRegistry(sink Sink, enablement Enablement, tracer Tracer) *Registry {
	if sink == nil {
		sink = NoopSink{}
	}
	r := &Registry{
		handlers:   make(map[families.MetricFamily]Handler, families.Count()),
		sink:       sink,
		enablement: enablement,
		tracer:     tracer,
	}
	for _, f := range families.All() {
		r.handlers[f] = newHandlerForKind(f.Descriptor().Kind)
	}
	return r
}

func newHandlerForKind(k families.Kind) Handler {
	switch k {
	case families.KindStats:
		return NewStatsHandler()
	case families.KindTimeWeightedAvg:
		return NewTimeWeightedAvgHandler()
	case families.KindCounter:
		return NewCounterHandler()
	case families.KindEngineUtil:
		return NewEngineUtilHandler()
	case families.KindEngineGroupUtil:
		return NewEngineGroupUtilHandler()
	case families.KindGPUUtil:
		return NewGPUUtilHandler()
	case families.KindFabricThroughput:
		return NewFabricThroughputHandler()
	case families.KindAvg:
		return NewAvgHandler()
	case families.KindPerfMetrics:
		return NewPerfMetricsHandler()
	case families.KindMetricCollectionStats:
		return NewMetricCollectionStatsHandler()
	default:
		return NewStatsHandler()
	}
}

// Handler returns the handler instance for a family, or nil if f isn't
// declared. Callers that need a family-specific method (EngineStats,
// FabricStats) type-assert the result.
func (r *Registry) Handler(f families.MetricFamily) Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handlers[f]
}

// StoreSample is the probe boundary operation (§4.1): store_sample.
// A family with no registered handler, or one the enablement filter
// currently excludes, is silently dropped.
func (r *Registry) StoreSample(f families.MetricFamily, tsMs uint64, data map[int]*sample.DeviceMetric) {
	if r.enablement != nil && !r.enablement.Enabled(f) {
		return
	}
	h := r.Handler(f)
	if h == nil {
		return
	}

	s := sample.New(tsMs, data)

	if err := r.sink.Store(f.String(), tsMs, data); err != nil {
		if r.OnSinkError != nil {
			r.OnSinkError(f, err)
		} else {
			log.Printf("datalogic: sink error for family %s: %v", f, err)
		}
	}

	h.PreHandle(s)
	h.Handle(s)

	if r.tracer != nil {
		r.tracer.Observe(f, s)
	}
	if r.OnSample != nil {
		r.OnSample(f)
	}
}
