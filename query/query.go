// Package query implements the query facade (C7): the read-side
// operations an RPC layer would call, built on top of the handler
// registry, the session-timestamp tables and the enablement filter.
package query

import (
	"fmt"

	"github.com/intel/xpum/datalogic"
	"github.com/intel/xpum/families"
	"github.com/intel/xpum/sample"
	"github.com/intel/xpum/session"
)

// ErrDeviceNotFound matches §6's DEVICE_NOT_FOUND RPC error code.
var ErrDeviceNotFound = fmt.Errorf("query: device not found")

// Enablement is the subset of enablement.Filter the facade needs: a
// per-device-and-family visibility predicate (§4.8 already folds the
// global set and the capability source together).
type Enablement interface {
	SupportedOnDevice(deviceID int, f families.MetricFamily) bool
}

// DeviceIndex resolves the public caller-facing indices (engine handle
// index, remote fabric id) that §4.7 says the facade must map raw
// handler keys through, and reports whether a device id is known at
// all.
type DeviceIndex interface {
	DeviceExists(deviceID int) bool
	EnginePublicIndex(deviceID int, handle uint64) (int, bool)
	RemoteDeviceForFabricID(remoteFabricID uint32) (int, bool)
}

// Facade is the query facade (C7).
type Facade struct {
	registry   *datalogic.Registry
	sessions   *session.Tables
	enablement Enablement
	devices    DeviceIndex
}

func NewFacade(registry *datalogic.Registry, sessions *session.Tables, enablement Enablement, devices DeviceIndex) *Facade {
	return &Facade{registry: registry, sessions: sessions, enablement: enablement, devices: devices}
}

func (f *Facade) enabled(deviceID int, fam families.MetricFamily) bool {
	if f.enablement == nil {
		return true
	}
	return f.enablement.SupportedOnDevice(deviceID, fam)
}

func (f *Facade) checkDevice(deviceID int) error {
	if f.devices != nil && !f.devices.DeviceExists(deviceID) {
		return ErrDeviceNotFound
	}
	return nil
}

// scalarFamilies is every family queried through Latest/LatestStats,
// i.e. every declared family except the two with their own fan-out
// calls (engine utilization, fabric throughput).
func scalarFamilies() []families.MetricFamily {
	out := make([]families.MetricFamily, 0, families.Count())
	for _, fam := range families.All() {
		d := fam.Descriptor()
		if d.HasFanout {
			continue
		}
		out = append(out, fam)
	}
	return out
}

// DeviceMetricRow is one family's entry in a get_latest_metrics result.
type DeviceMetricRow struct {
	Family  families.MetricFamily
	Current sample.OptionalUint64
	// SubDevices holds the per-sub-device current values, if the family
	// fans out by sub-device and this device has any.
	SubDevices map[uint32]sample.OptionalUint64
}

// GetLatestMetrics implements §4.7's get_latest_metrics: one row per
// enabled, device-supported scalar family, omitting fan-out families
// (they have their own calls) and omitting a family entirely rather
// than reporting an absent value, per §4.7's "surfaces sentinels by
// omitting the data point".
func (f *Facade) GetLatestMetrics(deviceID int) ([]DeviceMetricRow, error) {
	if err := f.checkDevice(deviceID); err != nil {
		return nil, err
	}
	var out []DeviceMetricRow
	for _, fam := range scalarFamilies() {
		if !f.enabled(deviceID, fam) {
			continue
		}
		h := f.registry.Handler(fam)
		if h == nil {
			continue
		}
		dm := h.Latest(deviceID)
		if !dm.HasDataOnDevice() {
			continue
		}
		row := DeviceMetricRow{Family: fam, Current: dm.Current}
		if len(dm.SubDevices) > 0 {
			row.SubDevices = make(map[uint32]sample.OptionalUint64, len(dm.SubDevices))
			for id, sub := range dm.SubDevices {
				if sub.Current.Valid {
					row.SubDevices[id] = sub.Current
				}
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// DeviceStatRow is one family's entry in a get_stats result.
type DeviceStatRow struct {
	Family families.MetricFamily
	Stat   *datalogic.DeviceStat
}

// GetStats implements §4.7's get_stats: begin/end window plus one
// read-and-reset stats row per enabled scalar family that has data.
func (f *Facade) GetStats(sessionID, deviceID int) (begin, end uint64, rows []DeviceStatRow, err error) {
	if err := f.checkDevice(deviceID); err != nil {
		return 0, 0, nil, err
	}
	var end64 uint64
	for _, fam := range scalarFamilies() {
		if !f.enabled(deviceID, fam) {
			continue
		}
		h := f.registry.Handler(fam)
		if h == nil {
			continue
		}
		stat := h.LatestStats(sessionID, deviceID)
		if stat == nil || !stat.HasData {
			continue
		}
		if stat.LatestTime > end64 {
			end64 = stat.LatestTime
		}
		rows = append(rows, DeviceStatRow{Family: fam, Stat: stat})
	}
	beginTs := f.sessions.Stats.Exchange(sessionID, deviceID, end64)
	return beginTs, end64, rows, nil
}

// EngineStatRow is one public engine index's read-and-reset stats row.
type EngineStatRow struct {
	EngineIndex int
	Stat        *datalogic.DeviceStat
}

// GetEngineStats implements §4.7's get_engine_stats: iterates the
// engine-utilization handler's per-handle stats, dropping handles the
// device index does not map to a public engine index.
func (f *Facade) GetEngineStats(sessionID, deviceID int) (begin, end uint64, rows []EngineStatRow, err error) {
	if err := f.checkDevice(deviceID); err != nil {
		return 0, 0, nil, err
	}
	h, ok := f.registry.Handler(families.EngineUtilization).(*datalogic.EngineUtilHandler)
	if !ok {
		return 0, 0, nil, nil
	}
	stats := h.EngineStats(sessionID, deviceID)
	var end64 uint64
	for handle, stat := range stats {
		idx, ok := f.publicEngineIndex(deviceID, handle)
		if !ok {
			continue
		}
		if stat.LatestTime > end64 {
			end64 = stat.LatestTime
		}
		rows = append(rows, EngineStatRow{EngineIndex: idx, Stat: stat})
	}
	beginTs := f.sessions.Engine.Exchange(sessionID, deviceID, end64)
	return beginTs, end64, rows, nil
}

func (f *Facade) publicEngineIndex(deviceID int, handle uint64) (int, bool) {
	if f.devices == nil {
		return int(handle), true
	}
	return f.devices.EnginePublicIndex(deviceID, handle)
}

// FabricStatRow is one synthetic fabric-id's read-and-reset stats row,
// resolved to a remote device id.
type FabricStatRow struct {
	RemoteDeviceID int
	Stat           *datalogic.DeviceStat
}

// GetFabricStats implements §4.7's get_fabric_stats for a single
// device.
func (f *Facade) GetFabricStats(sessionID, deviceID int) (begin, end uint64, rows []FabricStatRow, err error) {
	return f.fabricStats(sessionID, []int{deviceID})
}

// GetFabricStatsEx implements §4.7's get_fabric_stats_ex across several
// devices in one call.
func (f *Facade) GetFabricStatsEx(sessionID int, deviceIDs []int) (begin, end uint64, rows []FabricStatRow, err error) {
	return f.fabricStats(sessionID, deviceIDs)
}

func (f *Facade) fabricStats(sessionID int, deviceIDs []int) (begin, end uint64, rows []FabricStatRow, err error) {
	h, ok := f.registry.Handler(families.FabricThroughput).(*datalogic.FabricThroughputHandler)
	if !ok {
		return 0, 0, nil, nil
	}
	var end64 uint64
	var beginTs uint64
	for i, deviceID := range deviceIDs {
		if err := f.checkDevice(deviceID); err != nil {
			return 0, 0, nil, err
		}
		stats := h.FabricStats(sessionID, deviceID)
		for key, stat := range stats {
			remoteFabricID := decodeFabricRemoteID(key)
			remoteDeviceID, ok := f.resolveRemoteDevice(remoteFabricID)
			if !ok {
				continue
			}
			if stat.LatestTime > end64 {
				end64 = stat.LatestTime
			}
			rows = append(rows, FabricStatRow{RemoteDeviceID: remoteDeviceID, Stat: stat})
		}
		exchanged := f.sessions.Fabric.Exchange(sessionID, deviceID, end64)
		if i == 0 {
			beginTs = exchanged
		}
	}
	return beginTs, end64, rows, nil
}

func decodeFabricRemoteID(key uint64) uint32 {
	return uint32(key>>32) & 0xFFFF
}

func (f *Facade) resolveRemoteDevice(remoteFabricID uint32) (int, bool) {
	if f.devices == nil {
		return int(remoteFabricID), true
	}
	return f.devices.RemoteDeviceForFabricID(remoteFabricID)
}

// RealtimeMetricRow is one family's entry in a get_realtime_metrics
// result, with no session bookkeeping involved.
type RealtimeMetricRow struct {
	Family  families.MetricFamily
	Current sample.OptionalUint64
}

// GetRealtimeMetrics implements §4.7's get_realtime_metrics: fetches
// the latest sample for every enabled scalar family without touching session
// state, then derives a synthetic GPU-utilization row as the maximum
// across the engine-group families currently present (the Open
// Question resolution: this derivation is separate from, and does not
// feed, datalogic.GPUUtilHandler's own recorded history).
func (f *Facade) GetRealtimeMetrics(deviceID int) ([]RealtimeMetricRow, error) {
	if err := f.checkDevice(deviceID); err != nil {
		return nil, err
	}
	var out []RealtimeMetricRow
	var gpuUtil sample.OptionalUint64
	for _, fam := range scalarFamilies() {
		if fam == families.GPUUtilization {
			// Superseded below by the post-hoc max across engine groups.
			continue
		}
		if !f.enabled(deviceID, fam) {
			continue
		}
		h := f.registry.Handler(fam)
		if h == nil {
			continue
		}
		dm := h.Latest(deviceID)
		if !dm.HasDataOnDevice() {
			continue
		}
		out = append(out, RealtimeMetricRow{Family: fam, Current: dm.Current})
		if isEngineGroupFamily(fam) && dm.Current.Valid {
			if !gpuUtil.Valid || dm.Current.Value > gpuUtil.Value {
				gpuUtil = dm.Current
			}
		}
	}
	if gpuUtil.Valid {
		out = append(out, RealtimeMetricRow{Family: families.GPUUtilization, Current: gpuUtil})
	}
	return out, nil
}

func isEngineGroupFamily(fam families.MetricFamily) bool {
	switch fam {
	case families.EngineGroupComputeAllUtilization,
		families.EngineGroupMediaAllUtilization,
		families.EngineGroupCopyAllUtilization,
		families.EngineGroupRenderAllUtilization,
		families.EngineGroup3DAllUtilization:
		return true
	default:
		return false
	}
}
