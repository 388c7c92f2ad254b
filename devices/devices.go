// Package devices provides the facade's device-identity lookups
// (§4.7's "public index" mapping). Real device discovery and topology
// enumeration are out of scope (spec.md §1 Non-goals: "topology
// enumeration and XML export"); this package only satisfies
// query.DeviceIndex for the in-scope pipeline, interning raw handle
// ids into stable small public indices the way a topology-aware
// component would hand them out once discovery ran.
package devices

import "sync"

// Index is a process-local stand-in for device/topology discovery. It
// reports which of a fixed number of device ids exist, and interns
// engine-handle and fabric-remote ids into small sequential public
// indices on first sight.
type Index struct {
	count int

	mu           sync.Mutex
	enginePublic map[int]map[uint64]int
	engineNext   map[int]int
	fabricOwner  map[uint32]int
}

// NewIndex builds an Index over device ids [0, count). fabricOwner
// maps a remote fabric id to the local device id that owns it; a
// caller with no fabric topology (no multi-device fabric) can pass
// nil.
func NewIndex(count int, fabricOwner map[uint32]int) *Index {
	owner := make(map[uint32]int, len(fabricOwner))
	for k, v := range fabricOwner {
		owner[k] = v
	}
	return &Index{
		count:        count,
		enginePublic: make(map[int]map[uint64]int),
		engineNext:   make(map[int]int),
		fabricOwner:  owner,
	}
}

// DeviceExists reports whether deviceID is within the configured range.
func (idx *Index) DeviceExists(deviceID int) bool {
	return deviceID >= 0 && deviceID < idx.count
}

// EnginePublicIndex maps a raw engine handle to a small, stable,
// per-device public index, assigning the next free index the first
// time a handle is seen.
func (idx *Index) EnginePublicIndex(deviceID int, handle uint64) (int, bool) {
	if !idx.DeviceExists(deviceID) {
		return 0, false
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	byHandle, ok := idx.enginePublic[deviceID]
	if !ok {
		byHandle = make(map[uint64]int)
		idx.enginePublic[deviceID] = byHandle
	}
	if pub, ok := byHandle[handle]; ok {
		return pub, true
	}
	pub := idx.engineNext[deviceID]
	byHandle[handle] = pub
	idx.engineNext[deviceID] = pub + 1
	return pub, true
}

// RemoteDeviceForFabricID resolves which local device id owns a remote
// fabric id, per the fabric-owner map supplied at construction.
func (idx *Index) RemoteDeviceForFabricID(remoteFabricID uint32) (int, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	dev, ok := idx.fabricOwner[remoteFabricID]
	return dev, ok
}
