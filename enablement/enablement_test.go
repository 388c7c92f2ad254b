package enablement

import (
	"testing"

	"github.com/intel/xpum/families"
)

func TestNewParsesCommaAndHyphenRanges(t *testing.T) {
	f := New("0,4-7,27-29", nil)

	for _, want := range []families.MetricFamily{
		families.Temperature, families.Energy, families.MemoryUsed,
		families.MemoryUtilization, families.MemoryBandwidth,
		families.RASErrorCatDisplayErrorsCorrectable,
		families.RASErrorCatNonComputeErrorsCorrectable,
		families.RASErrorCatNonComputeErrorsUncorrectable,
	} {
		if !f.Enabled(want) {
			t.Errorf("expected %s enabled", want)
		}
	}
	if f.Enabled(families.Frequency) {
		t.Error("index 1 (Frequency) was not in the spec and should be disabled")
	}
}

// E4 — enablement filter: only the indices named in the spec string are
// visible, everything else is filtered at the boundary.
func TestEnablementFilterE4(t *testing.T) {
	f := New("0,4", nil) // families.Temperature, families.Energy

	if !f.Enabled(families.Temperature) {
		t.Error("index 0 (Temperature) must be enabled")
	}
	if !f.Enabled(families.Energy) {
		t.Error("index 4 (Energy) must be enabled")
	}
	if f.Enabled(families.Power) {
		t.Error("index 3 (Power) was not in the spec and must stay disabled")
	}
}

func TestUnrecognizedTokenDisablesAll(t *testing.T) {
	f := New("0,bogus,2", nil)
	for _, fam := range families.All() {
		if f.Enabled(fam) {
			t.Errorf("expected every family disabled after a malformed spec, got %s enabled", fam)
		}
	}
}

func TestEmptySpecDisablesAll(t *testing.T) {
	f := New("", nil)
	if f.Enabled(families.Temperature) {
		t.Error("expected an empty spec to enable nothing")
	}
}

type fakeCapabilities struct {
	unsupported map[families.MetricFamily]bool
}

func (c fakeCapabilities) Supports(deviceID int, f families.MetricFamily) bool {
	return !c.unsupported[f]
}

func TestSupportedOnDeviceIntersectsCapabilities(t *testing.T) {
	f := New("0,1", fakeCapabilities{unsupported: map[families.MetricFamily]bool{families.Frequency: true}})

	if !f.SupportedOnDevice(0, families.Temperature) {
		t.Error("Temperature is globally enabled and has no capability restriction")
	}
	if f.SupportedOnDevice(0, families.Frequency) {
		t.Error("Frequency is globally enabled but unsupported on this device, must be elided")
	}
}
