package datalogic

import "github.com/intel/xpum/sample"

// GPUUtilHandler implements §4.2.5's "all-engines group" special case:
// identical math to EngineGroupUtilHandler, recorded unchanged as the
// GPUUtilization family's own history. The query facade's realtime path
// additionally derives a GPU-utilization signal as a post-hoc max
// across the engine-group families (see query.Facade.GetRealtimeMetrics
// and SPEC_FULL.md's Open Question resolution); that derivation does
// not touch this handler's state.
type GPUUtilHandler struct {
	core *statsCore
}

func NewGPUUtilHandler() *GPUUtilHandler {
	return &GPUUtilHandler{core: newStatsCore()}
}

func (h *GPUUtilHandler) PreHandle(s *sample.Sample) { h.core.preHandle(s) }
func (h *GPUUtilHandler) Handle(s *sample.Sample)    { applyGroupUtilization(h.core, s) }

func (h *GPUUtilHandler) Latest(deviceID int) *sample.DeviceMetric {
	return h.core.latestDevice(deviceID)
}

func (h *GPUUtilHandler) LatestStats(session, deviceID int) *DeviceStat {
	return h.core.latestStatsFor(session, deviceID, h.core.latestDevice(deviceID))
}
