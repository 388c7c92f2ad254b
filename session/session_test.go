package session

import "testing"

// Property 6 — session-timestamp exchange.
func TestTableExchange(t *testing.T) {
	tbl := NewTable()

	first := tbl.Exchange(1, 0, 1000)
	if first != 0 {
		t.Errorf("first exchange on an untouched pair = %d, want 0", first)
	}

	second := tbl.Exchange(1, 0, 2000)
	if second != 1000 {
		t.Errorf("second exchange = %d, want 1000 (the first call's now)", second)
	}

	third := tbl.Exchange(1, 0, 3000)
	if third != 2000 {
		t.Errorf("third exchange = %d, want 2000", third)
	}
}

func TestTableExchangeIsPerSessionDevice(t *testing.T) {
	tbl := NewTable()
	tbl.Exchange(1, 0, 1000)

	// A different session or device is unaffected.
	if v := tbl.Exchange(2, 0, 5000); v != 0 {
		t.Errorf("different session exchange = %d, want 0", v)
	}
	if v := tbl.Exchange(1, 1, 5000); v != 0 {
		t.Errorf("different device exchange = %d, want 0", v)
	}
}

func TestTouchThenExchange(t *testing.T) {
	tbl := NewTable()
	tbl.Touch(1, 0, 500)
	if v := tbl.Exchange(1, 0, 1000); v != 500 {
		t.Errorf("exchange after touch = %d, want 500", v)
	}
}
