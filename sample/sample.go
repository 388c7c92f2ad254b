// Package sample defines the immutable per-tick snapshot that flows
// from the probe boundary through the handler registry.
package sample

import "math"

// AbsentU64 is the in-band sentinel used by callers that hand in raw
// wire data built against the max-value-sentinel convention. Prefer
// OptionalUint64 inside the pipeline; FromRaw bridges the two.
const AbsentU64 = math.MaxUint64

// OptionalUint64 is an explicit optional wrapper around a 64-bit
// unsigned measurement, used in place of the source's sentinel value
// everywhere except on-wire shapes that must stay sentinel-compatible.
type OptionalUint64 struct {
	Value uint64
	Valid bool
}

// Some wraps a present value.
func Some(v uint64) OptionalUint64 { return OptionalUint64{Value: v, Valid: true} }

// None is the absent value.
func None() OptionalUint64 { return OptionalUint64{} }

// FromRaw converts a sentinel-based raw reading into an OptionalUint64,
// treating AbsentU64 as absent.
func FromRaw(v uint64) OptionalUint64 {
	if v == AbsentU64 {
		return None()
	}
	return Some(v)
}

// Raw converts back to the sentinel convention, for callers that must
// interoperate with wire shapes built around UINT64_MAX-as-absent.
func (o OptionalUint64) Raw() uint64 {
	if !o.Valid {
		return AbsentU64
	}
	return o.Value
}

// ExtendedData carries the active-time/timestamp pair used by
// utilization derivation for engine and engine-group handles.
type ExtendedData struct {
	ActiveTime   uint64
	Timestamp    uint64
	OnSubDevice  bool
	SubDeviceID  uint32
}

// HandleMetric is a per-handle fan-out entry (engine or engine-group).
type HandleMetric struct {
	Handle  uint64
	Current OptionalUint64
	Ext     *ExtendedData
}

// PortMetric is a per-fabric-port fan-out entry.
type PortMetric struct {
	Handle         uint64
	RxCounter      uint64
	TxCounter      uint64
	Timestamp      uint64
	LocalAttachID  uint32
	RemoteFabricID uint32
	RemoteAttachID uint32
}

// SubDeviceMetric is the scalar shape carried per sub-device.
type SubDeviceMetric struct {
	Current      OptionalUint64
	Raw          OptionalUint64
	RawTimestamp uint64
}

// DeviceMetric is one device's entry within a Sample for one family.
// Its wall-clock timestamp is the owning Sample's TimestampMs: a
// mutable handler-local timestamp does not exist, since a Sample must
// never be mutated after publication (it is shared, by pointer,
// between the registry, the handler and the raw-trace manager).
type DeviceMetric struct {
	Current      OptionalUint64
	Raw          OptionalUint64
	RawTimestamp uint64

	SubDevices map[uint32]*SubDeviceMetric
	Handles    map[uint64]*HandleMetric
	Ports      map[uint64]*PortMetric
}

// HasDataOnDevice reports whether the whole-device scalar is present.
// This is the fixed form of the source's getLatestData truthiness bug
// (see Design Notes): callers must use this predicate, never a raw
// field comparison.
func (d *DeviceMetric) HasDataOnDevice() bool {
	return d != nil && d.Current.Valid
}

// HasRawDataOnDevice reports whether the whole-device raw/raw_timestamp
// pair is present.
func (d *DeviceMetric) HasRawDataOnDevice() bool {
	return d != nil && d.Raw.Valid
}

// Sample is an immutable per-tick snapshot for one metric family across
// all devices. Once constructed it must not be mutated: the registry,
// each handler and the raw-trace manager all retain the same pointer.
type Sample struct {
	TimestampMs uint64
	Data        map[int]*DeviceMetric
}

// New builds a Sample. The caller must not mutate data or any
// DeviceMetric reachable from it after this call returns.
func New(timestampMs uint64, data map[int]*DeviceMetric) *Sample {
	return &Sample{TimestampMs: timestampMs, Data: data}
}
