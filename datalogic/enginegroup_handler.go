package datalogic

import "github.com/intel/xpum/sample"

// applyGroupUtilization implements §4.2.5's shared math for engine-group
// and GPU-utilization families: identical derivation to §4.2.4, but the
// result is stored as a scalar (whole-device or sub-device, selected by
// each handle's Ext.OnSubDevice/SubDeviceID) rather than per-handle.
func applyGroupUtilization(core *statsCore, s *sample.Sample) {
	core.mu.Lock()
	defer core.mu.Unlock()

	prev := core.previous
	for deviceID, dm := range s.Data {
		if dm == nil {
			continue
		}
		var prevDM *sample.DeviceMetric
		if prev != nil {
			prevDM = prev.Data[deviceID]
		}
		derivedDM := &sample.DeviceMetric{}
		for handle, hm := range dm.Handles {
			if hm == nil || hm.Ext == nil {
				continue
			}
			var prevHM *sample.HandleMetric
			if prevDM != nil {
				prevHM = prevDM.Handles[handle]
			}
			if prevHM == nil || prevHM.Ext == nil {
				continue
			}
			value := utilization(prevHM.Ext, hm.Ext)
			if hm.Ext.OnSubDevice {
				if derivedDM.SubDevices == nil {
					derivedDM.SubDevices = make(map[uint32]*sample.SubDeviceMetric)
				}
				derivedDM.SubDevices[hm.Ext.SubDeviceID] = &sample.SubDeviceMetric{Current: value}
				for sID := 0; sID < MaxSessions; sID++ {
					core.rollingStats(sID, deviceID).subDevice(hm.Ext.SubDeviceID).touch(value, s.TimestampMs, false)
				}
			} else {
				derivedDM.Current = value
				for sID := 0; sID < MaxSessions; sID++ {
					core.rollingStats(sID, deviceID).touch(value, s.TimestampMs, true)
				}
			}
		}
		core.setDerived(deviceID, derivedDM)
	}
}

// EngineGroupUtilHandler implements the five engine-group-utilization
// families (compute/media/copy/render/3D, "all" group instance).
type EngineGroupUtilHandler struct {
	core *statsCore
}

func NewEngineGroupUtilHandler() *EngineGroupUtilHandler {
	return &EngineGroupUtilHandler{core: newStatsCore()}
}

func (h *EngineGroupUtilHandler) PreHandle(s *sample.Sample) { h.core.preHandle(s) }
func (h *EngineGroupUtilHandler) Handle(s *sample.Sample)    { applyGroupUtilization(h.core, s) }

func (h *EngineGroupUtilHandler) Latest(deviceID int) *sample.DeviceMetric {
	return h.core.latestDevice(deviceID)
}

func (h *EngineGroupUtilHandler) LatestStats(session, deviceID int) *DeviceStat {
	return h.core.latestStatsFor(session, deviceID, h.core.latestDevice(deviceID))
}
