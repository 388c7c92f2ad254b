package datalogic

import "github.com/intel/xpum/sample"

// TimeWeightedAvgHandler implements §4.2.2: power instantaneous from an
// energy counter, memory bandwidth/throughput, and frequency-throttle
// time ratio. current = (raw_latest-raw_prev)/(raw_ts_latest-raw_ts_prev),
// in device units. Subject to the same rollover recovery as
// CounterHandler (§4.2.3), checked on the raw/raw_timestamp pair.
type TimeWeightedAvgHandler struct {
	core *statsCore
}

func NewTimeWeightedAvgHandler() *TimeWeightedAvgHandler {
	return &TimeWeightedAvgHandler{core: newStatsCore()}
}

func (h *TimeWeightedAvgHandler) PreHandle(s *sample.Sample) { h.core.preHandle(s) }

func (h *TimeWeightedAvgHandler) Handle(s *sample.Sample) {
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
			rate := deriveRate(prevDM.Raw.Value, dm.Raw.Value, prevDM.RawTimestamp, dm.RawTimestamp)
			derivedDM.Current = rate
			for sID := 0; sID < MaxSessions; sID++ {
				h.core.rollingStats(sID, deviceID).touch(rate, s.TimestampMs, true)
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
			rate := deriveRate(prevSub.Raw.Value, sub.Raw.Value, prevSub.RawTimestamp, sub.RawTimestamp)
			derivedDM.SubDevices[subID] = &sample.SubDeviceMetric{Current: rate}
			for sID := 0; sID < MaxSessions; sID++ {
				h.core.rollingStats(sID, deviceID).subDevice(subID).touch(rate, s.TimestampMs, false)
			}
		}
		h.core.setDerived(deviceID, derivedDM)
	}
}

// deriveRate applies §4.2.2's formula with §4.2.3's rollover guard: a
// decreasing raw counter discards the baseline for this tick rather
// than emitting a negative delta, and a zero elapsed-time denominator
// is treated the same way (no suspension, just skip this tick).
func deriveRate(rawPrev, rawLatest, tsPrev, tsLatest uint64) sample.OptionalUint64 {
	if rawPrev > rawLatest {
		return sample.None()
	}
	if tsLatest <= tsPrev {
		return sample.None()
	}
	return sample.Some((rawLatest - rawPrev) / (tsLatest - tsPrev))
}

func (h *TimeWeightedAvgHandler) Latest(deviceID int) *sample.DeviceMetric {
	return h.core.latestDevice(deviceID)
}

func (h *TimeWeightedAvgHandler) LatestStats(session, deviceID int) *DeviceStat {
	return h.core.latestStatsFor(session, deviceID, h.core.latestDevice(deviceID))
}
