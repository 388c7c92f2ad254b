package datalogic

import (
	"testing"

	"github.com/intel/xpum/families"
	"github.com/intel/xpum/sample"
)

type fakeEnablement struct{ enabled map[families.MetricFamily]bool }

func (f fakeEnablement) Enabled(family families.MetricFamily) bool { return f.enabled[family] }

func TestRegistryRoutesToCorrectHandler(t *testing.T) {
	r := NewRegistry(nil, nil, nil)

	r.StoreSample(families.Temperature, 1000, deviceData(map[int]uint64{0: 42}))

	h, ok := r.Handler(families.Temperature).(*StatsHandler)
	if !ok {
		t.Fatalf("expected *StatsHandler for Temperature, got %T", r.Handler(families.Temperature))
	}
	dm := h.Latest(0)
	if dm == nil || !dm.Current.Valid || dm.Current.Value != 42 {
		t.Errorf("latest = %+v, want current=42", dm)
	}
}

func TestRegistrySkipsDisabledFamily(t *testing.T) {
	r := NewRegistry(nil, fakeEnablement{enabled: map[families.MetricFamily]bool{families.Power: true}}, nil)

	r.StoreSample(families.Energy, 1000, deviceData(map[int]uint64{0: 5}))

	h := r.Handler(families.Energy).(*StatsHandler)
	if dm := h.Latest(0); dm != nil {
		t.Errorf("expected no data routed to a disabled family, got %+v", dm)
	}
}

func TestRegistryOnSampleHook(t *testing.T) {
	r := NewRegistry(nil, nil, nil)
	var seen []families.MetricFamily
	r.OnSample = func(f families.MetricFamily) { seen = append(seen, f) }

	r.StoreSample(families.Power, 1000, map[int]*sample.DeviceMetric{0: {Raw: sample.Some(10), RawTimestamp: 1}})

	if len(seen) != 1 || seen[0] != families.Power {
		t.Errorf("OnSample hook saw %v, want [Power]", seen)
	}
}
