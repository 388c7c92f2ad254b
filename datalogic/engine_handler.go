package datalogic

import (
	"github.com/intel/xpum/families"
	"github.com/intel/xpum/sample"
)

// EngineUtilHandler implements §4.2.4: per-engine-handle utilization,
// fed by a monotonic active_time/timestamp pair per handle. Query
// access is exclusively per-handle (GetEngineStats), not scalar.
type EngineUtilHandler struct {
	core      *fanoutCore
	lastValue map[int]map[uint64]sample.OptionalUint64
}

func NewEngineUtilHandler() *EngineUtilHandler {
	return &EngineUtilHandler{core: newFanoutCore(), lastValue: make(map[int]map[uint64]sample.OptionalUint64)}
}

func (h *EngineUtilHandler) PreHandle(s *sample.Sample) { h.core.preHandle(s) }

func (h *EngineUtilHandler) Handle(s *sample.Sample) {
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
		values := make(map[uint64]sample.OptionalUint64, len(dm.Handles))
		for handle, hm := range dm.Handles {
			if hm == nil || hm.Ext == nil {
				continue
			}
			var prevHM *sample.HandleMetric
			if prevDM != nil {
				prevHM = prevDM.Handles[handle]
			}
			if prevHM == nil || prevHM.Ext == nil {
				// First tick for this handle: present for future stats, but
				// this tick contributes no derivation yet.
				values[handle] = sample.None()
				continue
			}
			util := utilization(prevHM.Ext, hm.Ext)
			values[handle] = util
			h.core.fold(deviceID, handle, util, s.TimestampMs)
		}
		h.lastValue[deviceID] = values
	}
}

// utilization implements the shared §4.2.4/§4.2.5 formula, clamped to
// SCALE*100.
func utilization(prev, latest *sample.ExtendedData) sample.OptionalUint64 {
	if latest.Timestamp <= prev.Timestamp || latest.ActiveTime < prev.ActiveTime {
		return sample.None()
	}
	dt := latest.Timestamp - prev.Timestamp
	dActive := latest.ActiveTime - prev.ActiveTime
	ceiling := families.DefaultMeasurementDataScale * 100
	util := families.DefaultMeasurementDataScale * 100 * dActive / dt
	if util > ceiling {
		util = ceiling
	}
	return sample.Some(util)
}

func (h *EngineUtilHandler) Latest(deviceID int) *sample.DeviceMetric {
	h.core.mu.Lock()
	defer h.core.mu.Unlock()
	if h.core.latest == nil {
		return nil
	}
	return h.core.latest.Data[deviceID]
}

// LatestFanout returns the most recently derived utilization for every
// engine handle on a device, keyed by handle.
func (h *EngineUtilHandler) LatestFanout(deviceID int) map[uint64]sample.OptionalUint64 {
	h.core.mu.Lock()
	defer h.core.mu.Unlock()
	out := make(map[uint64]sample.OptionalUint64, len(h.lastValue[deviceID]))
	for handle, v := range h.lastValue[deviceID] {
		out[handle] = v
	}
	return out
}

// EngineStats is the read-and-reset per-handle stats query
// (GetEngineStats's data source).
func (h *EngineUtilHandler) EngineStats(session, deviceID int) map[uint64]*DeviceStat {
	return h.core.statsFor(session, deviceID, h.LatestFanout(deviceID))
}

// LatestStats and Latest on the base Handler interface are unused for
// this family (query access is exclusively per-handle); provided so
// EngineUtilHandler still satisfies Handler for registry storage.
func (h *EngineUtilHandler) LatestStats(session, deviceID int) *DeviceStat {
	return &DeviceStat{}
}
