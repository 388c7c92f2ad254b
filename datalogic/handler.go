// Package datalogic implements the per-metric-family handler taxonomy,
// the handler registry that routes samples to them, and the sink hook
// invoked ahead of every handler.
package datalogic

import (
	"sync"

	"github.com/intel/xpum/sample"
)

// Handler is the common surface every metric-family handler exposes to
// the registry and the query facade. Families with a per-handle or
// per-port fan-out (engine utilization, fabric throughput) additionally
// implement a family-specific fan-out query method instead of relying
// on Latest/LatestStats for their public shape.
type Handler interface {
	// PreHandle rotates previous/latest under the handler's lock.
	PreHandle(s *sample.Sample)
	// Handle performs family-specific derivation and updates
	// stats_by_session.
	Handle(s *sample.Sample)
	// Latest returns the device entry of the latest accepted sample.
	Latest(deviceID int) *sample.DeviceMetric
	// LatestStats returns the read-and-reset stats snapshot for
	// (session, device).
	LatestStats(session, deviceID int) *DeviceStat
}

// Sink is the persist hook invoked by the registry just before
// PreHandle, with no handler lock held. Implementations must be
// thread-safe; the registry swallows any error, passing it to
// OnSinkError when that hook is set and logging it otherwise.
type Sink interface {
	Store(family string, timestampMs uint64, data map[int]*sample.DeviceMetric) error
}

// NoopSink is the only in-scope Sink implementation: it discards the
// call. A production deployment would replace it with a real
// persistence backend; the core pipeline only depends on the
// interface.
type NoopSink struct{}

func (NoopSink) Store(string, uint64, map[int]*sample.DeviceMetric) error { return nil }

// statsCore is the composition helper shared by every scalar handler
// kind except Avg (Stats, Counter, TimeWeightedAvg, EngineGroupUtil,
// GPUUtil, PerfMetrics, MetricCollectionStats): previous/latest rotation
// plus a per-session rolling-stats table keyed by device id. Fan-out
// handlers use fanoutCore instead.
type statsCore struct {
	mu         sync.Mutex
	previous   *sample.Sample
	latest     *sample.Sample
	perSession [MaxSessions]map[int]*RollingStats

	// derived holds, per device, the handler's computed current value
	// for families that don't pass their current through unchanged
	// (Counter, TimeWeightedAvg, EngineGroupUtil, GPUUtil). A pass-
	// through handler (Stats, PerfMetrics, MetricCollectionStats) never
	// sets this, so latestDevice falls back to the raw input sample.
	derived map[int]*sample.DeviceMetric
}

func newStatsCore() *statsCore {
	c := &statsCore{derived: make(map[int]*sample.DeviceMetric)}
	for i := range c.perSession {
		c.perSession[i] = make(map[int]*RollingStats)
	}
	return c
}

// setDerived records deviceID's computed current value, to be returned
// by latestDevice in place of the raw input sample. Callers hold c.mu.
func (c *statsCore) setDerived(deviceID int, dm *sample.DeviceMetric) {
	c.derived[deviceID] = dm
}

func (c *statsCore) preHandle(s *sample.Sample) {
	c.mu.Lock()
	c.previous = c.latest
	c.latest = s
	c.mu.Unlock()
}

func (c *statsCore) latestDevice(deviceID int) *sample.DeviceMetric {
	c.mu.Lock()
	defer c.mu.Unlock()
	if dm, ok := c.derived[deviceID]; ok {
		return dm
	}
	if c.latest == nil {
		return nil
	}
	return c.latest.Data[deviceID]
}

func (c *statsCore) rollingStats(session, deviceID int) *RollingStats {
	m := c.perSession[session]
	rs, ok := m[deviceID]
	if !ok {
		rs = &RollingStats{}
		m[deviceID] = rs
	}
	return rs
}

// foldDevice updates every session's whole-device stats slot for
// deviceID with one observation.
func (c *statsCore) foldDevice(deviceID int, value sample.OptionalUint64, ts uint64) {
	for s := 0; s < MaxSessions; s++ {
		c.rollingStats(s, deviceID).touch(value, ts, true)
	}
}

// foldSubDevice updates every session's sub-device stats slot.
func (c *statsCore) foldSubDevice(deviceID int, subID uint32, value sample.OptionalUint64, ts uint64) {
	for s := 0; s < MaxSessions; s++ {
		c.rollingStats(s, deviceID).subDevice(subID).touch(value, ts, false)
	}
}

// latestStatsFor produces the read-and-reset snapshot for (session,
// device), using cur as the "latest value" half of the composite. A slot
// that has folded nothing since the previous read reports cur alone.
func (c *statsCore) latestStatsFor(session, deviceID int, cur *sample.DeviceMetric) *DeviceStat {
	c.mu.Lock()
	defer c.mu.Unlock()

	var curVal sample.OptionalUint64
	if cur != nil {
		curVal = cur.Current
	}
	var ts uint64
	if c.latest != nil {
		ts = c.latest.TimestampMs
	}
	rs, ok := c.perSession[session][deviceID]
	if ok && rs.Count == 0 {
		rs.touch(curVal, ts, true)
	}
	snap := snapshotStat(curVal, rs)
	if ok && rs.SubDevice != nil {
		snap.SubDevices = make(map[uint32]*DeviceStat, len(rs.SubDevice))
		for id, srs := range rs.SubDevice {
			var subVal sample.OptionalUint64
			if cur != nil {
				if sd := cur.SubDevices[id]; sd != nil {
					subVal = sd.Current
				}
			}
			if srs.Count == 0 {
				srs.touch(subVal, ts, false)
			}
			snap.SubDevices[id] = snapshotStat(subVal, srs)
		}
	}
	// The next window starts empty, so a later sample is not averaged with
	// the value already reported; sub-device keys are kept.
	fresh := &RollingStats{}
	if ok {
		for id := range rs.SubDevice {
			fresh.subDevice(id)
		}
	}
	c.perSession[session][deviceID] = fresh
	return snap
}
