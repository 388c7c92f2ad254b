package datalogic

import "github.com/intel/xpum/sample"

// StatsHandler is the default handler (§4.2.1): instantaneous gauges
// such as temperature, frequency, memory used, RAS categories and
// EU active/stall/idle. It performs no derivation — the value the
// probe reported is fed directly into the rolling-stats table.
type StatsHandler struct {
	core *statsCore
}

func NewStatsHandler() *StatsHandler {
	return &StatsHandler{core: newStatsCore()}
}

func (h *StatsHandler) PreHandle(s *sample.Sample) { h.core.preHandle(s) }

func (h *StatsHandler) Handle(s *sample.Sample) {
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

func (h *StatsHandler) Latest(deviceID int) *sample.DeviceMetric {
	return h.core.latestDevice(deviceID)
}

func (h *StatsHandler) LatestStats(session, deviceID int) *DeviceStat {
	return h.core.latestStatsFor(session, deviceID, h.core.latestDevice(deviceID))
}
