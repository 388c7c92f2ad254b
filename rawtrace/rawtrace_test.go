package rawtrace

import (
	"testing"

	"github.com/intel/xpum/families"
	"github.com/intel/xpum/sample"
)

// E6 — trace auto-stop.
func TestManagerAutoStopOnCacheFull(t *testing.T) {
	m := NewManagerWithCacheLimit(10)

	id, err := m.Start(0, []families.MetricFamily{families.Temperature}, 0)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < 15; i++ {
		s := sample.New(uint64(i*1000), map[int]*sample.DeviceMetric{
			0: {Current: sample.Some(uint64(40 + i))},
		})
		m.Observe(families.Temperature, s)
	}

	var task *Task
	for _, tk := range m.List() {
		if tk.ID == id {
			task = tk
		}
	}
	if task == nil {
		t.Fatal("task not found")
	}
	if task.Running() {
		t.Error("expected task to have auto-stopped")
	}
	if task.StopTime == 0 {
		t.Error("expected stop_time to be set")
	}
	rows := task.Rows(families.Temperature)
	if len(rows) != 10 {
		t.Errorf("cached rows = %d, want 10", len(rows))
	}
}

func TestManagerStartStopList(t *testing.T) {
	m := NewManager()

	id, err := m.Start(1, []families.MetricFamily{families.Power}, 0)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if len(m.List()) != 1 {
		t.Fatalf("expected 1 task, got %d", len(m.List()))
	}

	if ok := m.Stop(id, 5000); !ok {
		t.Fatal("Stop returned false for a known task")
	}
	task := m.List()[0]
	if task.Running() {
		t.Error("expected task to be stopped")
	}
	if task.StopTime != 5000 {
		t.Errorf("stop_time = %d, want 5000", task.StopTime)
	}
}

func TestManagerEvictsOldestStoppedTaskWhenFull(t *testing.T) {
	m := NewManager()

	ids := make([]int, 0, TaskNumMax)
	for i := 0; i < TaskNumMax; i++ {
		id, err := m.Start(i, []families.MetricFamily{families.Temperature}, 0)
		if err != nil {
			t.Fatalf("Start %d: %v", i, err)
		}
		ids = append(ids, id)
	}

	// All running: the next Start must refuse.
	if _, err := m.Start(99, []families.MetricFamily{families.Temperature}, 0); err == nil {
		t.Fatal("expected Start to refuse when every slot is running")
	}

	m.Stop(ids[0], 1000)
	newID, err := m.Start(100, []families.MetricFamily{families.Temperature}, 2000)
	if err != nil {
		t.Fatalf("Start after freeing a slot: %v", err)
	}
	if len(m.List()) != TaskNumMax {
		t.Errorf("task count = %d, want %d", len(m.List()), TaskNumMax)
	}
	for _, tk := range m.List() {
		if tk.ID == ids[0] {
			t.Error("expected the oldest stopped task to have been evicted")
		}
	}
	_ = newID
}
