// Package dumpfile implements the dump-file writer (C9): a long-running
// facility that periodically appends one CSV row per running task, in
// the header-once-then-append style the teacher's logger.Logger uses
// for its own CSV export.
package dumpfile

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/intel/xpum/families"
	"github.com/intel/xpum/query"
)

// Options controls per-task formatting (§6's "Dump file format").
type Options struct {
	// ShowDate selects ISO-8601 local time over epoch millis.
	ShowDate bool
	// TileID, if non-nil, restricts the dump to one sub-device and adds
	// a TileId column.
	TileID *uint32
}

// Task is one dump-file task descriptor.
type Task struct {
	ID       int
	DeviceID int
	Families []families.MetricFamily
	Path     string
	Options  Options

	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
	done   chan struct{}
}

func (t *Task) stopRequested() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Writer owns every dump-file task and the worker goroutine that ticks
// them forward once per sampling interval.
type Writer struct {
	mu     sync.Mutex
	nextID int
	tasks  map[int]*Task

	facade   *query.Facade
	interval time.Duration

	wg     sync.WaitGroup
	stopCh chan struct{}
}

func NewWriter(facade *query.Facade, interval time.Duration) *Writer {
	return &Writer{
		tasks:    make(map[int]*Task),
		facade:   facade,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins a dump-file task: opens path, writes the header row, and
// registers the task for the worker goroutine to feed.
func (w *Writer) Start(deviceID int, fams []families.MetricFamily, path string, opts Options) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("dumpfile: create directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return 0, fmt.Errorf("dumpfile: open %s: %w", path, err)
	}
	writer := csv.NewWriter(file)
	if err := writer.Write(header(fams, opts)); err != nil {
		file.Close()
		return 0, fmt.Errorf("dumpfile: write header: %w", err)
	}
	writer.Flush()

	w.mu.Lock()
	id := w.nextID
	w.nextID++
	task := &Task{
		ID: id, DeviceID: deviceID, Families: fams, Path: path, Options: opts,
		file: file, writer: writer, done: make(chan struct{}),
	}
	w.tasks[id] = task
	w.mu.Unlock()
	return id, nil
}

func header(fams []families.MetricFamily, opts Options) []string {
	cols := []string{"Timestamp", "DeviceId"}
	if opts.TileID != nil {
		cols = append(cols, "TileId")
	}
	for _, f := range fams {
		d := f.Descriptor()
		if d.Unit != "" {
			cols = append(cols, fmt.Sprintf("%s (%s)", d.Name, d.Unit))
		} else {
			cols = append(cols, d.Name)
		}
	}
	return cols
}

// Stop flushes and closes a task's file.
func (w *Writer) Stop(taskID int) bool {
	w.mu.Lock()
	task, ok := w.tasks[taskID]
	if ok {
		delete(w.tasks, taskID)
	}
	w.mu.Unlock()
	if !ok {
		return false
	}
	close(task.done)
	task.mu.Lock()
	task.writer.Flush()
	task.file.Close()
	task.mu.Unlock()
	return true
}

// List enumerates active dump-file tasks.
func (w *Writer) List() []*Task {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*Task, 0, len(w.tasks))
	for _, t := range w.tasks {
		out = append(out, t)
	}
	return out
}

// Run starts the worker goroutine: once per interval it appends one row
// per active task, reading the relevant get_latest_metrics slice.
// Cancellation is cooperative: the worker checks stopCh between ticks.
func (w *Writer) Run() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-w.stopCh:
				return
			case now := <-ticker.C:
				w.tick(now)
			}
		}
	}()
}

func (w *Writer) tick(now time.Time) {
	for _, task := range w.List() {
		if task.stopRequested() {
			continue
		}
		w.appendRow(task, now)
	}
}

func (w *Writer) appendRow(task *Task, now time.Time) {
	rows, err := w.facade.GetLatestMetrics(task.DeviceID)
	if err != nil {
		return
	}
	byFamily := make(map[families.MetricFamily]query.DeviceMetricRow, len(rows))
	for _, r := range rows {
		byFamily[r.Family] = r
	}

	record := make([]string, 0, 2+len(task.Families)+1)
	record = append(record, formatTimestamp(now, task.Options.ShowDate), fmt.Sprintf("%d", task.DeviceID))
	if task.Options.TileID != nil {
		record = append(record, fmt.Sprintf("%d", *task.Options.TileID))
	}
	for _, fam := range task.Families {
		record = append(record, formatValue(byFamily[fam], task.Options.TileID))
	}

	task.mu.Lock()
	defer task.mu.Unlock()
	if err := task.writer.Write(record); err != nil {
		return
	}
	task.writer.Flush()
}

func formatTimestamp(t time.Time, showDate bool) string {
	if showDate {
		return t.Format("2006-01-02T15:04:05.000")
	}
	return fmt.Sprintf("%d", t.UnixMilli())
}

// formatValue renders a row's value, or an empty field for an absent
// value, per §6: "Absent values are emitted as an empty field."
func formatValue(row query.DeviceMetricRow, tileID *uint32) string {
	if tileID != nil {
		sub, ok := row.SubDevices[*tileID]
		if !ok || !sub.Valid {
			return ""
		}
		return fmt.Sprintf("%d", sub.Value)
	}
	if !row.Current.Valid {
		return ""
	}
	return fmt.Sprintf("%d", row.Current.Value)
}

// Close stops the worker goroutine and flushes every remaining task.
func (w *Writer) Close() {
	close(w.stopCh)
	w.wg.Wait()
	for _, task := range w.List() {
		w.Stop(task.ID)
	}
}
