package query

import (
	"testing"

	"github.com/intel/xpum/datalogic"
	"github.com/intel/xpum/families"
	"github.com/intel/xpum/sample"
	"github.com/intel/xpum/session"
)

func deviceData(values map[int]uint64) map[int]*sample.DeviceMetric {
	out := make(map[int]*sample.DeviceMetric, len(values))
	for id, v := range values {
		out[id] = &sample.DeviceMetric{Current: sample.Some(v)}
	}
	return out
}

func newFacade() (*Facade, *datalogic.Registry) {
	r := datalogic.NewRegistry(nil, nil, nil)
	return NewFacade(r, session.NewTables(), nil, nil), r
}

// E1 — temperature stats round-trip, exercised through the facade.
func TestGetStatsRoundTrip(t *testing.T) {
	f, r := newFacade()

	for _, tick := range []struct {
		ts, v uint64
	}{{1000, 40}, {2000, 50}, {3000, 60}} {
		r.StoreSample(families.Temperature, tick.ts, deviceData(map[int]uint64{0: tick.v}))
	}

	begin, end, rows, err := f.GetStats(0, 0)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if begin != 0 {
		t.Errorf("begin = %d, want 0 for a never-queried session", begin)
	}
	if end != 3000 {
		t.Errorf("end = %d, want 3000", end)
	}
	var found *datalogic.DeviceStat
	for _, row := range rows {
		if row.Family == families.Temperature {
			found = row.Stat
		}
	}
	if found == nil {
		t.Fatal("expected a temperature row")
	}
	if found.Count != 3 || found.Min != 40 || found.Max != 60 || found.Avg != 50 {
		t.Errorf("temperature stat = %+v, want count=3 min=40 max=60 avg=50", found)
	}
}

// E5 — session isolation, exercised through the facade's get_stats.
func TestGetStatsSessionIsolation(t *testing.T) {
	f, r := newFacade()

	r.StoreSample(families.Energy, 1000, deviceData(map[int]uint64{0: 100}))
	r.StoreSample(families.Energy, 2000, deviceData(map[int]uint64{0: 200}))

	_, _, rows1, _ := f.GetStats(1, 0)
	_, _, rows2, _ := f.GetStats(2, 0)
	avgOf := func(rows []DeviceStatRow) uint64 {
		for _, row := range rows {
			if row.Family == families.Energy {
				return row.Stat.Avg
			}
		}
		return 0
	}
	if avgOf(rows1) != 150 {
		t.Errorf("session 1 avg = %d, want 150", avgOf(rows1))
	}
	if avgOf(rows2) != 150 {
		t.Errorf("session 2 avg = %d, want 150", avgOf(rows2))
	}

	r.StoreSample(families.Energy, 3000, deviceData(map[int]uint64{0: 300}))

	_, _, rows1b, _ := f.GetStats(1, 0)
	_, _, rows2b, _ := f.GetStats(2, 0)
	if avgOf(rows1b) != 300 {
		t.Errorf("session 1 after reset avg = %d, want 300", avgOf(rows1b))
	}
	if avgOf(rows2b) != 300 {
		t.Errorf("session 2 after reset avg = %d, want 300", avgOf(rows2b))
	}
}

type fakeEnablement struct{ disabled map[families.MetricFamily]bool }

func (f fakeEnablement) SupportedOnDevice(deviceID int, fam families.MetricFamily) bool {
	return !f.disabled[fam]
}

func TestGetLatestMetricsOmitsDisabledAndAbsentFamilies(t *testing.T) {
	r := datalogic.NewRegistry(nil, nil, nil)
	f := NewFacade(r, session.NewTables(), fakeEnablement{disabled: map[families.MetricFamily]bool{families.Energy: true}}, nil)

	r.StoreSample(families.Temperature, 1000, deviceData(map[int]uint64{0: 40}))
	r.StoreSample(families.Energy, 1000, deviceData(map[int]uint64{0: 5}))

	rows, err := f.GetLatestMetrics(0)
	if err != nil {
		t.Fatalf("GetLatestMetrics: %v", err)
	}
	var sawTemp, sawEnergy, sawPower bool
	for _, row := range rows {
		switch row.Family {
		case families.Temperature:
			sawTemp = true
		case families.Energy:
			sawEnergy = true
		case families.Power:
			sawPower = true
		}
	}
	if !sawTemp {
		t.Error("expected a temperature row")
	}
	if sawEnergy {
		t.Error("energy is disabled and must be omitted")
	}
	if sawPower {
		t.Error("power was never stored and must be omitted, not emitted absent")
	}
}

func TestGetLatestMetricsDeviceNotFound(t *testing.T) {
	f, _ := newFacade()
	f.devices = fakeDeviceIndex{known: map[int]bool{0: true}}

	if _, err := f.GetLatestMetrics(7); err != ErrDeviceNotFound {
		t.Errorf("GetLatestMetrics(7) error = %v, want ErrDeviceNotFound", err)
	}
}

type fakeDeviceIndex struct{ known map[int]bool }

func (d fakeDeviceIndex) DeviceExists(deviceID int) bool { return d.known[deviceID] }
func (d fakeDeviceIndex) EnginePublicIndex(deviceID int, handle uint64) (int, bool) {
	return int(handle), true
}
func (d fakeDeviceIndex) RemoteDeviceForFabricID(remoteFabricID uint32) (int, bool) {
	return int(remoteFabricID), true
}

func TestGetRealtimeMetricsDerivesGPUUtilizationAsMax(t *testing.T) {
	f, r := newFacade()

	handle := uint64(1)
	tick := func(ts, active uint64) {
		dm := &sample.DeviceMetric{
			Handles: map[uint64]*sample.HandleMetric{
				handle: {Handle: handle, Ext: &sample.ExtendedData{ActiveTime: active, Timestamp: ts}},
			},
		}
		r.StoreSample(families.EngineGroupComputeAllUtilization, ts, map[int]*sample.DeviceMetric{0: dm})
	}
	tick(0, 0)
	tick(1000, 500) // 50% of the 1000-unit window at SCALE=100 -> 5000

	rows, err := f.GetRealtimeMetrics(0)
	if err != nil {
		t.Fatalf("GetRealtimeMetrics: %v", err)
	}
	var gpu *sample.OptionalUint64
	for _, row := range rows {
		if row.Family == families.GPUUtilization {
			gpu = &row.Current
		}
	}
	if gpu == nil || !gpu.Valid {
		t.Fatal("expected a derived GPU utilization row")
	}
	if gpu.Value != 5000 {
		t.Errorf("derived gpu utilization = %d, want 5000", gpu.Value)
	}
}
