package datalogic

import "github.com/intel/xpum/sample"

// MetricCollectionStatsHandler tracks self-diagnostic counters about
// the collection process itself (e.g. metrics successfully collected
// per tick). The source's counterpart (MetricCollectionStatisticsDataHandler)
// is structurally a per-handle fan-out handler, but nothing in the
// public query surface (§4.7) exposes it per-handle, so it is modeled
// as a scalar Stats-equivalent handler here — its own type for C2
// taxonomy fidelity, sharing StatsHandler's behavior.
type MetricCollectionStatsHandler struct {
	core *statsCore
}

func NewMetricCollectionStatsHandler() *MetricCollectionStatsHandler {
	return &MetricCollectionStatsHandler{core: newStatsCore()}
}

func (h *MetricCollectionStatsHandler) PreHandle(s *sample.Sample) { h.core.preHandle(s) }

func (h *MetricCollectionStatsHandler) Handle(s *sample.Sample) {
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

func (h *MetricCollectionStatsHandler) Latest(deviceID int) *sample.DeviceMetric {
	return h.core.latestDevice(deviceID)
}

func (h *MetricCollectionStatsHandler) LatestStats(session, deviceID int) *DeviceStat {
	return h.core.latestStatsFor(session, deviceID, h.core.latestDevice(deviceID))
}
