package datalogic

import (
	"testing"

	"github.com/intel/xpum/families"
	"github.com/intel/xpum/sample"
)

// E3 — engine utilization clamp.
func TestEngineUtilHandlerClamp(t *testing.T) {
	h := NewEngineUtilHandler()

	const handle = uint64(1)
	const tsDelta = uint64(1000)

	tick0 := sample.New(0, map[int]*sample.DeviceMetric{
		0: {Handles: map[uint64]*sample.HandleMetric{
			handle: {Handle: handle, Ext: &sample.ExtendedData{ActiveTime: 0, Timestamp: 0}},
		}},
	})
	h.PreHandle(tick0)
	h.Handle(tick0)

	tick1 := sample.New(tsDelta, map[int]*sample.DeviceMetric{
		0: {Handles: map[uint64]*sample.HandleMetric{
			// active advances by 2x the elapsed time: would overshoot 100%.
			handle: {Handle: handle, Ext: &sample.ExtendedData{ActiveTime: 2 * tsDelta, Timestamp: tsDelta}},
		}},
	})
	h.PreHandle(tick1)
	h.Handle(tick1)

	stats := h.EngineStats(0, 0)
	stat, ok := stats[handle]
	if !ok {
		t.Fatalf("expected stats for handle %d, got %v", handle, stats)
	}
	want := families.DefaultMeasurementDataScale * 100
	if stat.Max != want {
		t.Errorf("util = %d, want clamp at %d", stat.Max, want)
	}
}

func TestEngineUtilHandlerFirstTickIsFutureOnly(t *testing.T) {
	h := NewEngineUtilHandler()
	const handle = uint64(7)

	tick0 := sample.New(0, map[int]*sample.DeviceMetric{
		0: {Handles: map[uint64]*sample.HandleMetric{
			handle: {Handle: handle, Ext: &sample.ExtendedData{ActiveTime: 10, Timestamp: 0}},
		}},
	})
	h.PreHandle(tick0)
	h.Handle(tick0)

	stats := h.EngineStats(0, 0)
	if stat, ok := stats[handle]; !ok || stat.HasData {
		t.Errorf("first tick should contribute no stats yet, got %+v (ok=%v)", stat, ok)
	}
}
