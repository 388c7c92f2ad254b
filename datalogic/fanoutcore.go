package datalogic

import (
	"sync"

	"github.com/intel/xpum/sample"
)

// fanoutCore is the composition helper for handler kinds whose public
// query shape is per-handle rather than scalar (engine utilization,
// fabric throughput): previous/latest rotation plus a per-session
// rolling-stats table keyed by (device id, handle/synthetic id). A
// query call reads and resets every handle present for that
// (session, device) in one step, mirroring the source's
// MultiMetricsStatsDataHandler.
type fanoutCore struct {
	mu         sync.Mutex
	previous   *sample.Sample
	latest     *sample.Sample
	perSession [MaxSessions]map[int]map[uint64]*RollingStats
}

func newFanoutCore() *fanoutCore {
	c := &fanoutCore{}
	for i := range c.perSession {
		c.perSession[i] = make(map[int]map[uint64]*RollingStats)
	}
	return c
}

func (c *fanoutCore) preHandle(s *sample.Sample) {
	c.mu.Lock()
	c.previous = c.latest
	c.latest = s
	c.mu.Unlock()
}

func (c *fanoutCore) deviceHandles(session, deviceID int) map[uint64]*RollingStats {
	m := c.perSession[session][deviceID]
	if m == nil {
		m = make(map[uint64]*RollingStats)
		c.perSession[session][deviceID] = m
	}
	return m
}

func (c *fanoutCore) fold(deviceID int, handle uint64, value sample.OptionalUint64, ts uint64) {
	for sID := 0; sID < MaxSessions; sID++ {
		m := c.deviceHandles(sID, deviceID)
		rs, ok := m[handle]
		if !ok {
			rs = &RollingStats{}
			m[handle] = rs
		}
		rs.touch(value, ts, true)
	}
}

// statsFor reads and resets every handle's stats for (session, device),
// pairing each with its latest current value from curHandles.
func (c *fanoutCore) statsFor(session, deviceID int, curHandles map[uint64]sample.OptionalUint64) map[uint64]*DeviceStat {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.perSession[session][deviceID]
	var ts uint64
	if c.latest != nil {
		ts = c.latest.TimestampMs
	}
	out := make(map[uint64]*DeviceStat, len(m))
	for handle, rs := range m {
		if rs.Count == 0 {
			// Nothing folded since the previous read: the latest value alone.
			rs.touch(curHandles[handle], ts, true)
		}
		out[handle] = snapshotStat(curHandles[handle], rs)
	}
	// Handles present in the latest sample but never folded (first tick
	// for that handle) still surface with zero stats, per §3: "a handle
	// present in latest but not in previous contributes only to future
	// stats, not the current tick."
	for handle, cur := range curHandles {
		if _, ok := out[handle]; !ok {
			out[handle] = snapshotStat(cur, nil)
		}
	}
	fresh := make(map[uint64]*RollingStats, len(m))
	for handle := range m {
		fresh[handle] = &RollingStats{}
	}
	c.perSession[session][deviceID] = fresh
	return out
}
