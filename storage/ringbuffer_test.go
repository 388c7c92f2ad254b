package storage

import "testing"

func TestNewRingBuffer(t *testing.T) {
	rb := NewRingBuffer[int](5)
	if rb.Capacity() != 5 {
		t.Errorf("expected capacity 5, got %d", rb.Capacity())
	}
	if rb.Size() != 0 {
		t.Errorf("expected size 0, got %d", rb.Size())
	}

	rb2 := NewRingBuffer[int](0)
	if rb2.Capacity() != 1 {
		t.Errorf("expected fallback capacity 1, got %d", rb2.Capacity())
	}
}

func TestRingBufferAddAndOrder(t *testing.T) {
	rb := NewRingBuffer[int](3)

	rb.Add(1)
	rb.Add(2)
	if rb.Size() != 2 {
		t.Errorf("expected size 2, got %d", rb.Size())
	}
	if got := rb.GetAll(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("unexpected contents: %v", got)
	}

	full := rb.Add(3)
	if !full {
		t.Error("expected buffer to report full after third add")
	}
	if !rb.IsFull() {
		t.Error("expected IsFull to be true")
	}

	// Overwrite oldest entry.
	rb.Add(4)
	got := rb.GetAll()
	want := []int{2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestRingBufferGetLast(t *testing.T) {
	rb := NewRingBuffer[string](4)
	rb.Add("a")
	rb.Add("b")
	rb.Add("c")

	last2 := rb.GetLast(2)
	if len(last2) != 2 || last2[0] != "b" || last2[1] != "c" {
		t.Errorf("unexpected GetLast(2) result: %v", last2)
	}

	// Requesting more than stored returns everything available.
	all := rb.GetLast(10)
	if len(all) != 3 {
		t.Errorf("expected 3 entries, got %d", len(all))
	}
}

func TestRingBufferClear(t *testing.T) {
	rb := NewRingBuffer[int](3)
	rb.Add(1)
	rb.Add(2)
	rb.Clear()

	if rb.Size() != 0 {
		t.Errorf("expected size 0 after clear, got %d", rb.Size())
	}
	if got := rb.GetAll(); got != nil {
		t.Errorf("expected nil after clear, got %v", got)
	}
}
