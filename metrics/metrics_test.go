package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/intel/xpum/families"
)

func counterValue(t *testing.T, c prometheus.Collector, labelValue string) float64 {
	t.Helper()
	vec, ok := c.(*prometheus.CounterVec)
	if !ok {
		t.Fatalf("not a CounterVec: %T", c)
	}
	m := &dto.Metric{}
	if err := vec.WithLabelValues(labelValue).(prometheus.Counter).Write(m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestOnSampleIncrementsByFamily(t *testing.T) {
	m := New()
	m.OnSample(families.Temperature)
	m.OnSample(families.Temperature)
	m.OnSample(families.Power)

	if got := counterValue(t, m.SamplesRouted, families.Temperature.String()); got != 2 {
		t.Errorf("temperature count = %v, want 2", got)
	}
	if got := counterValue(t, m.SamplesRouted, families.Power.String()); got != 1 {
		t.Errorf("power count = %v, want 1", got)
	}
}

func TestOnSinkErrorIncrements(t *testing.T) {
	m := New()
	m.OnSinkError(families.Energy, nil)

	if got := counterValue(t, m.SinkErrors, families.Energy.String()); got != 1 {
		t.Errorf("sink error count = %v, want 1", got)
	}
}

func TestMustRegisterAttachesToRegistry(t *testing.T) {
	m := New()
	reg := prometheus.NewRegistry()
	m.MustRegister(reg)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Error("expected at least one registered metric family")
	}
}
