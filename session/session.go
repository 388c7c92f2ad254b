// Package session implements the three session-timestamp tables (C6):
// per-(session, device) "last read" markers for stats, engine_stats and
// fabric_stats queries, consulted via an atomic read-and-replace
// exchange.
package session

import "sync"

// Table is one (stats | engine_stats | fabric_stats) timestamp table.
// Each entry is the wall-clock millis of the last query read for a
// (session, device) pair.
type Table struct {
	mu      sync.Mutex
	entries map[key]uint64
}

type key struct {
	session int
	device  int
}

func NewTable() *Table {
	return &Table{entries: make(map[key]uint64)}
}

// Touch sets the entry for (session, device) to nowMs.
func (t *Table) Touch(sessionID, deviceID int, nowMs uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[key{sessionID, deviceID}] = nowMs
}

// Exchange returns the previously stored value for (session, device)
// and overwrites it with nowMs, in one critical section. A (session,
// device) pair with no prior Touch/Exchange returns 0, so the first
// query for it reports the full history since startup.
func (t *Table) Exchange(sessionID, deviceID int, nowMs uint64) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := key{sessionID, deviceID}
	prev := t.entries[k]
	t.entries[k] = nowMs
	return prev
}

// Tables bundles the three session-timestamp tables the registry owns.
type Tables struct {
	Stats  *Table
	Engine *Table
	Fabric *Table
}

func NewTables() *Tables {
	return &Tables{Stats: NewTable(), Engine: NewTable(), Fabric: NewTable()}
}
