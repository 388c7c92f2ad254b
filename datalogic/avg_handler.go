package datalogic

import (
	"sync"

	"github.com/intel/xpum/sample"
)

// DataHandlerCacheTimeLimitMs bounds the Avg handler's trailing window
// (DATA_HANDLER_CACHE_TIME_LIMIT). Not specified numerically by the
// retrieved configuration; 60 s is an assumption.
const DataHandlerCacheTimeLimitMs = 60_000

type avgEntry struct {
	ts    uint64
	value uint64
}

// AvgHandler implements §4.2.7: a short trailing-window average, not
// keyed by session. latest_stats recomputes min/avg/max over whatever
// is currently in the window; it does not reset on read.
type AvgHandler struct {
	mu     sync.Mutex
	latest *sample.Sample
	window map[int][]avgEntry
}

func NewAvgHandler() *AvgHandler {
	return &AvgHandler{window: make(map[int][]avgEntry)}
}

func (h *AvgHandler) PreHandle(s *sample.Sample) {
	h.mu.Lock()
	h.latest = s
	h.mu.Unlock()
}

func (h *AvgHandler) Handle(s *sample.Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := int64(s.TimestampMs) - DataHandlerCacheTimeLimitMs
	for deviceID, dm := range s.Data {
		if dm == nil || !dm.Current.Valid {
			continue
		}
		w := append(h.window[deviceID], avgEntry{s.TimestampMs, dm.Current.Value})
		i := 0
		for i < len(w) && int64(w[i].ts) < cutoff {
			i++
		}
		h.window[deviceID] = w[i:]
	}
}

func (h *AvgHandler) Latest(deviceID int) *sample.DeviceMetric {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.latest == nil {
		return nil
	}
	return h.latest.Data[deviceID]
}

// LatestStats ignores session: the Avg handler has one trailing window
// per device, not one per session.
func (h *AvgHandler) LatestStats(session, deviceID int) *DeviceStat {
	h.mu.Lock()
	defer h.mu.Unlock()

	var cur sample.OptionalUint64
	if h.latest != nil {
		if dm := h.latest.Data[deviceID]; dm != nil {
			cur = dm.Current
		}
	}

	w := h.window[deviceID]
	if len(w) == 0 {
		return &DeviceStat{Current: cur}
	}
	min, max, sum := w[0].value, w[0].value, uint64(0)
	for _, e := range w {
		if e.value < min {
			min = e.value
		}
		if e.value > max {
			max = e.value
		}
		sum += e.value
	}
	return &DeviceStat{
		Current:    cur,
		HasData:    true,
		Count:      uint64(len(w)),
		Min:        min,
		Max:        max,
		Avg:        sum / uint64(len(w)),
		StartTime:  w[0].ts,
		LatestTime: w[len(w)-1].ts,
	}
}
