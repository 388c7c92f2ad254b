package datalogic

import (
	"github.com/intel/xpum/families"
	"github.com/intel/xpum/sample"
)

type fabricMetricKind uint8

const (
	fabricKindRx fabricMetricKind = iota
	fabricKindTx
	fabricKindRxCounter
	fabricKindTxCounter
)

// encodeFabricKey packs a (local-attach, remote-fabric, remote-attach,
// kind) tuple into a single uint64 so the fan-out core's generic
// uint64-keyed stats table can hold fabric's synthetic ids alongside
// engine handles in other instances.
func encodeFabricKey(local, remoteFabric, remoteAttach uint32, kind fabricMetricKind) uint64 {
	return uint64(local)<<48 | uint64(remoteFabric&0xFFFF)<<32 | uint64(remoteAttach&0xFFFF)<<16 | uint64(kind)
}

// FabricThroughputHandler implements §4.2.6: per-port rx/tx rates,
// aggregated by (local-attach, remote-fabric, remote-attach) tuple into
// four synthetic metric ids ("rx", "tx", "rx_counter", "tx_counter").
type FabricThroughputHandler struct {
	core      *fanoutCore
	lastValue map[int]map[uint64]sample.OptionalUint64
}

func NewFabricThroughputHandler() *FabricThroughputHandler {
	return &FabricThroughputHandler{
		core:      newFanoutCore(),
		lastValue: make(map[int]map[uint64]sample.OptionalUint64),
	}
}

func (h *FabricThroughputHandler) PreHandle(s *sample.Sample) { h.core.preHandle(s) }

type fabricTuple struct{ local, remoteFabric, remoteAttach uint32 }

func (h *FabricThroughputHandler) Handle(s *sample.Sample) {
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

		type accum struct {
			rxSum, txSum, rxCounterSum, txCounterSum uint64
			rxValid, txValid                         bool
		}
		tuples := map[fabricTuple]*accum{}

		for handle, pm := range dm.Ports {
			if pm == nil {
				continue
			}
			key := fabricTuple{pm.LocalAttachID, pm.RemoteFabricID, pm.RemoteAttachID}
			a, ok := tuples[key]
			if !ok {
				a = &accum{}
				tuples[key] = a
			}
			a.rxCounterSum += pm.RxCounter
			a.txCounterSum += pm.TxCounter

			var prevPort *sample.PortMetric
			if prevDM != nil {
				prevPort = prevDM.Ports[handle]
			}
			if prevPort == nil || pm.Timestamp <= prevPort.Timestamp {
				continue
			}
			dt := pm.Timestamp - prevPort.Timestamp
			if pm.RxCounter >= prevPort.RxCounter {
				a.rxSum += families.DefaultMeasurementDataScale * 1_000_000 * (pm.RxCounter - prevPort.RxCounter) / dt
				a.rxValid = true
			}
			if pm.TxCounter >= prevPort.TxCounter {
				a.txSum += families.DefaultMeasurementDataScale * 1_000_000 * (pm.TxCounter - prevPort.TxCounter) / dt
				a.txValid = true
			}
		}

		values := make(map[uint64]sample.OptionalUint64, len(tuples)*4)
		for t, a := range tuples {
			rxKey := encodeFabricKey(t.local, t.remoteFabric, t.remoteAttach, fabricKindRx)
			txKey := encodeFabricKey(t.local, t.remoteFabric, t.remoteAttach, fabricKindTx)
			rxCounterKey := encodeFabricKey(t.local, t.remoteFabric, t.remoteAttach, fabricKindRxCounter)
			txCounterKey := encodeFabricKey(t.local, t.remoteFabric, t.remoteAttach, fabricKindTxCounter)

			rxVal, txVal := sample.None(), sample.None()
			if a.rxValid {
				rxVal = sample.Some(a.rxSum)
			}
			if a.txValid {
				txVal = sample.Some(a.txSum)
			}
			rxCounterVal := sample.Some(a.rxCounterSum)
			txCounterVal := sample.Some(a.txCounterSum)

			h.core.fold(deviceID, rxKey, rxVal, s.TimestampMs)
			h.core.fold(deviceID, txKey, txVal, s.TimestampMs)
			h.core.fold(deviceID, rxCounterKey, rxCounterVal, s.TimestampMs)
			h.core.fold(deviceID, txCounterKey, txCounterVal, s.TimestampMs)

			values[rxKey] = rxVal
			values[txKey] = txVal
			values[rxCounterKey] = rxCounterVal
			values[txCounterKey] = txCounterVal
		}
		h.lastValue[deviceID] = values
	}
}

// LatestFanout returns the most recently derived value for every
// synthetic fabric id on a device.
func (h *FabricThroughputHandler) LatestFanout(deviceID int) map[uint64]sample.OptionalUint64 {
	h.core.mu.Lock()
	defer h.core.mu.Unlock()
	out := map[uint64]sample.OptionalUint64{}
	for k, v := range h.lastValue[deviceID] {
		out[k] = v
	}
	return out
}

// FabricStats is the read-and-reset per-synthetic-id stats query
// (GetFabricStats/GetFabricStatsEx's data source).
func (h *FabricThroughputHandler) FabricStats(session, deviceID int) map[uint64]*DeviceStat {
	return h.core.statsFor(session, deviceID, h.LatestFanout(deviceID))
}

func (h *FabricThroughputHandler) Latest(deviceID int) *sample.DeviceMetric {
	h.core.mu.Lock()
	defer h.core.mu.Unlock()
	if h.core.latest == nil {
		return nil
	}
	return h.core.latest.Data[deviceID]
}

func (h *FabricThroughputHandler) LatestStats(session, deviceID int) *DeviceStat {
	return &DeviceStat{}
}
