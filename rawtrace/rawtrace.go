// Package rawtrace implements the raw-trace manager (C5): bounded
// per-task circular caches of raw samples plus task lifecycle (start,
// stop, auto-stop on cache full).
package rawtrace

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/intel/xpum/families"
	"github.com/intel/xpum/sample"
	"github.com/intel/xpum/storage"
)

// TaskNumMax is RAW_DATA_COLLECTION_TASK_NUM_MAX: the number of
// concurrent trace tasks the manager holds. Not specified numerically
// by the retrieved configuration; documented assumption, see DESIGN.md.
const TaskNumMax = 10

// CacheSizeLimit is CACHE_SIZE_LIMIT: the maximum number of rows cached
// per (task, family) before the task auto-stops.
const CacheSizeLimit = 10_000

// Row is one entry of a task's trace: device_id, family, timestamp_ms,
// value, is_subdevice, sub_id (§6, "Trace row").
type Row struct {
	DeviceID    int
	Family      families.MetricFamily
	TimestampMs uint64
	Value       sample.OptionalUint64
	IsSubDevice bool
	SubID       uint32
}

// Task is one trace task's lifecycle and bounded per-family caches.
type Task struct {
	ID        int
	DeviceID  int
	Families  map[families.MetricFamily]bool
	running   atomic.Bool
	StartTime uint64
	StopTime  uint64

	mu     sync.Mutex
	caches map[families.MetricFamily]*storage.RingBuffer[Row]
}

func newTask(id, deviceID int, fams []families.MetricFamily, startMs uint64, cacheSizeLimit int) *Task {
	t := &Task{
		ID:        id,
		DeviceID:  deviceID,
		Families:  make(map[families.MetricFamily]bool, len(fams)),
		StartTime: startMs,
		caches:    make(map[families.MetricFamily]*storage.RingBuffer[Row], len(fams)),
	}
	t.running.Store(true)
	for _, f := range fams {
		t.Families[f] = true
		t.caches[f] = storage.NewRingBuffer[Row](cacheSizeLimit)
	}
	return t
}

// Running reports whether the task is still collecting.
func (t *Task) Running() bool { return t.running.Load() }

// Rows returns the cached rows for one family, in arrival order.
func (t *Task) Rows(f families.MetricFamily) []Row {
	t.mu.Lock()
	rb := t.caches[f]
	t.mu.Unlock()
	if rb == nil {
		return nil
	}
	return rb.GetAll()
}

// Manager owns every trace task and feeds them from Observe, which
// satisfies datalogic.Tracer.
type Manager struct {
	mu             sync.Mutex
	nextID         int
	tasks          map[int]*Task
	order          []int // task ids in creation order, for oldest-stopped eviction
	cacheSizeLimit int
}

func NewManager() *Manager {
	return NewManagerWithCacheLimit(CacheSizeLimit)
}

// NewManagerWithCacheLimit builds a Manager with a non-default
// per-(task, family) row cap, e.g. for exercising the auto-stop
// behavior without feeding CacheSizeLimit rows.
func NewManagerWithCacheLimit(cacheSizeLimit int) *Manager {
	return &Manager{tasks: make(map[int]*Task), cacheSizeLimit: cacheSizeLimit}
}

// Start begins a new trace task for (device, families). If the manager
// is at TaskNumMax capacity it evicts the oldest stopped task to make
// room; if every slot holds a running task it refuses.
func (m *Manager) Start(deviceID int, fams []families.MetricFamily, nowMs uint64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.tasks) >= TaskNumMax {
		evicted := false
		for _, id := range m.order {
			if t, ok := m.tasks[id]; ok && !t.Running() {
				delete(m.tasks, id)
				evicted = true
				break
			}
		}
		if !evicted {
			return 0, fmt.Errorf("rawtrace: all %d task slots are in use", TaskNumMax)
		}
		m.order = compact(m.order, m.tasks)
	}

	id := m.nextID
	m.nextID++
	m.tasks[id] = newTask(id, deviceID, fams, nowMs, m.cacheSizeLimit)
	m.order = append(m.order, id)
	return id, nil
}

func compact(order []int, alive map[int]*Task) []int {
	out := order[:0:0]
	for _, id := range order {
		if _, ok := alive[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Stop marks a task as no longer running. The cached rows are retained
// until the slot is recycled by a future Start.
func (m *Manager) Stop(taskID int, nowMs uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return false
	}
	t.running.Store(false)
	t.StopTime = nowMs
	return true
}

// List enumerates active (and recently stopped, until recycled) tasks.
func (m *Manager) List() []*Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Task, 0, len(m.tasks))
	for _, id := range m.order {
		if t, ok := m.tasks[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Observe implements datalogic.Tracer: for every running task whose
// device matches and family is selected, enqueue one row per
// (device, sub-device) value present; a task whose per-family row count
// reaches CacheSizeLimit auto-stops.
func (m *Manager) Observe(f families.MetricFamily, s *sample.Sample) {
	m.mu.Lock()
	tasks := make([]*Task, 0, len(m.tasks))
	for _, id := range m.order {
		if t, ok := m.tasks[id]; ok {
			tasks = append(tasks, t)
		}
	}
	m.mu.Unlock()

	for _, t := range tasks {
		if !t.Running() || !t.Families[f] {
			continue
		}
		dm, ok := s.Data[t.DeviceID]
		if !ok || dm == nil {
			continue
		}

		t.mu.Lock()
		rb := t.caches[f]
		t.mu.Unlock()
		if rb == nil {
			continue
		}

		full := rb.Add(Row{
			DeviceID:    t.DeviceID,
			Family:      f,
			TimestampMs: s.TimestampMs,
			Value:       dm.Current,
		})
		for subID, sub := range dm.SubDevices {
			full = rb.Add(Row{
				DeviceID:    t.DeviceID,
				Family:      f,
				TimestampMs: s.TimestampMs,
				Value:       sub.Current,
				IsSubDevice: true,
				SubID:       subID,
			}) || full
		}
		if full {
			t.running.Store(false)
			t.StopTime = s.TimestampMs
		}
	}
}
