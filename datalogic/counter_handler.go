package datalogic

import "github.com/intel/xpum/sample"

// CounterHandler implements §4.2.3 for plain counter families (memory
// read/write byte counters, PCIe read/write counters): the derived
// current is the per-tick delta of the monotonic raw counter, with
// rollover recovery at both whole-device and sub-device granularity.
// A family with no prior sample stays stale (no stats update) until a
// second sample establishes a baseline.
type CounterHandler struct {
	core *statsCore
}

func NewCounterHandler() *CounterHandler {
	return &CounterHandler{core: newStatsCore()}
}

func (h *CounterHandler) PreHandle(s *sample.Sample) { h.core.preHandle(s) }

func (h *CounterHandler) Handle(s *sample.Sample) {
	h.core.mu.Lock()
	defer h.core.mu.Unlock()

	prev := h.core.previous
	for deviceID, dm := range s.Data {
		if dm == nil {
			continue
		}
		var prevDM *sample.DeviceMetric
		if prev != nil {
			prevDM = prev.Data[deviceID]
		}
		derivedDM := &sample.DeviceMetric{}
		if prevDM != nil && prevDM.Raw.Valid && dm.Raw.Valid {
			var derived sample.OptionalUint64
			if prevDM.Raw.Value > dm.Raw.Value {
				// Rollover: previous is discarded for this tick; the next
				// tick re-seeds from this tick's raw value.
				derived = sample.None()
			} else {
				derived = sample.Some(dm.Raw.Value - prevDM.Raw.Value)
			}
			derivedDM.Current = derived
			for sID := 0; sID < MaxSessions; sID++ {
				h.core.rollingStats(sID, deviceID).touch(derived, s.TimestampMs, true)
			}
		}

		if len(dm.SubDevices) > 0 {
			derivedDM.SubDevices = make(map[uint32]*sample.SubDeviceMetric, len(dm.SubDevices))
		}
		for subID, sub := range dm.SubDevices {
			var prevSub *sample.SubDeviceMetric
			if prevDM != nil {
				prevSub = prevDM.SubDevices[subID]
			}
			if prevSub == nil || !prevSub.Raw.Valid || !sub.Raw.Valid {
				continue
			}
			var derived sample.OptionalUint64
			if prevSub.Raw.Value > sub.Raw.Value {
				derived = sample.None()
			} else {
				derived = sample.Some(sub.Raw.Value - prevSub.Raw.Value)
			}
			derivedDM.SubDevices[subID] = &sample.SubDeviceMetric{Current: derived}
			for sID := 0; sID < MaxSessions; sID++ {
				h.core.rollingStats(sID, deviceID).subDevice(subID).touch(derived, s.TimestampMs, false)
			}
		}
		h.core.setDerived(deviceID, derivedDM)
	}
}

func (h *CounterHandler) Latest(deviceID int) *sample.DeviceMetric {
	return h.core.latestDevice(deviceID)
}

func (h *CounterHandler) LatestStats(session, deviceID int) *DeviceStat {
	return h.core.latestStatsFor(session, deviceID, h.core.latestDevice(deviceID))
}
