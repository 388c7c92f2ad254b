package dumpfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/intel/xpum/datalogic"
	"github.com/intel/xpum/families"
	"github.com/intel/xpum/query"
	"github.com/intel/xpum/sample"
	"github.com/intel/xpum/session"
)

func deviceData(values map[int]uint64) map[int]*sample.DeviceMetric {
	out := make(map[int]*sample.DeviceMetric, len(values))
	for id, v := range values {
		out[id] = &sample.DeviceMetric{Current: sample.Some(v)}
	}
	return out
}

func TestStartWritesHeader(t *testing.T) {
	r := datalogic.NewRegistry(nil, nil, nil)
	facade := query.NewFacade(r, session.NewTables(), nil, nil)
	w := NewWriter(facade, time.Second)

	path := filepath.Join(t.TempDir(), "dump.csv")
	_, err := w.Start(0, []families.MetricFamily{families.Temperature, families.Power}, path, Options{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	header := strings.Split(strings.TrimRight(string(data), "\n"), "\n")[0]
	if !strings.HasPrefix(header, "Timestamp,DeviceId,") {
		t.Errorf("header = %q, want it to start with Timestamp,DeviceId,", header)
	}
	if !strings.Contains(header, "temperature (C)") {
		t.Errorf("header = %q, want a temperature column with its unit", header)
	}
}

func TestAppendRowFormatsAbsentAsEmptyField(t *testing.T) {
	r := datalogic.NewRegistry(nil, nil, nil)
	facade := query.NewFacade(r, session.NewTables(), nil, nil)
	w := NewWriter(facade, time.Second)

	path := filepath.Join(t.TempDir(), "dump.csv")
	id, err := w.Start(0, []families.MetricFamily{families.Temperature, families.Power}, path, Options{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	r.StoreSample(families.Temperature, 1000, deviceData(map[int]uint64{0: 42}))
	// Power never stored: must render as an empty field, not "0".

	var task *Task
	for _, tk := range w.List() {
		if tk.ID == id {
			task = tk
		}
	}
	w.appendRow(task, time.UnixMilli(1000))
	w.Stop(id)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected a header + one data row, got %d lines", len(lines))
	}
	fields := strings.Split(lines[1], ",")
	if len(fields) != 4 {
		t.Fatalf("expected 4 fields (timestamp, device, temperature, power), got %v", fields)
	}
	if fields[2] != "42" {
		t.Errorf("temperature field = %q, want 42", fields[2])
	}
	if fields[3] != "" {
		t.Errorf("power field = %q, want empty (never stored)", fields[3])
	}
}

func TestStopIsIdempotentAgainstUnknownTask(t *testing.T) {
	r := datalogic.NewRegistry(nil, nil, nil)
	facade := query.NewFacade(r, session.NewTables(), nil, nil)
	w := NewWriter(facade, time.Second)

	if w.Stop(999) {
		t.Error("Stop on an unknown task id should return false")
	}
}
