package datalogic

import "github.com/intel/xpum/sample"

// PerfMetricsHandler carries EU performance-counter samples. Its
// original counterpart computes no derived value (the source's
// calculateData is a debug trace only); this handler is behaviorally a
// Stats handler, kept as its own type for taxonomy fidelity with C2's
// ten-variant tagged union.
type PerfMetricsHandler struct {
	core *statsCore
}

func NewPerfMetricsHandler() *PerfMetricsHandler {
	return &PerfMetricsHandler{core: newStatsCore()}
}

func (h *PerfMetricsHandler) PreHandle(s *sample.Sample) { h.core.preHandle(s) }

func (h *PerfMetricsHandler) Handle(s *sample.Sample) {
	h.core.mu.Lock()
	defer h.core.mu.Unlock()
	for deviceID, dm := range s.Data {
		if dm == nil {
			continue
		}
		for sID := 0; sID < MaxSessions; sID++ {
			h.core.rollingStats(sID, deviceID).touch(dm.Current, s.TimestampMs, true)
		}
		for subID, sub := range dm.SubDevices {
			for sID := 0; sID < MaxSessions; sID++ {
				h.core.rollingStats(sID, deviceID).subDevice(subID).touch(sub.Current, s.TimestampMs, false)
			}
		}
	}
}

func (h *PerfMetricsHandler) Latest(deviceID int) *sample.DeviceMetric {
	return h.core.latestDevice(deviceID)
}

func (h *PerfMetricsHandler) LatestStats(session, deviceID int) *DeviceStat {
	return h.core.latestStatsFor(session, deviceID, h.core.latestDevice(deviceID))
}
