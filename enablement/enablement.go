// Package enablement implements the enablement filter (C8): a
// process-wide enabled-family set parsed from the XPUM_METRICS
// environment variable, intersected per device with a capability
// source so a family unsupported on a device is elided even when
// globally enabled.
package enablement

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/intel/xpum/families"
)

// CapabilitySource reports which families a device supports. A nil
// source is treated as "every declared family is supported", which is
// what a capability-less test device wants.
type CapabilitySource interface {
	Supports(deviceID int, f families.MetricFamily) bool
}

// Filter is the enablement filter. Its global set is fixed at
// construction (matching the source's init-time env read); per-device
// elision is re-evaluated on every call since capability sources may
// change as devices attach.
type Filter struct {
	global       map[families.MetricFamily]bool
	capabilities CapabilitySource
}

// New parses spec, a comma-separated list of family indices with
// optional hyphen ranges (e.g. "0,4-7,27-29"), and builds a Filter. An
// unrecognized token (non-numeric, out of range, malformed range)
// disables every family, per §6's "unrecognized tokens disable all".
func New(spec string, capabilities CapabilitySource) *Filter {
	f := &Filter{global: make(map[families.MetricFamily]bool, families.Count()), capabilities: capabilities}
	if ok := f.parse(spec); !ok {
		f.global = make(map[families.MetricFamily]bool)
	}
	return f
}

func (f *Filter) parse(spec string) bool {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return true
	}
	for _, tok := range strings.Split(spec, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		lo, hi, err := parseToken(tok)
		if err != nil {
			return false
		}
		for i := lo; i <= hi; i++ {
			if i < 0 || i >= families.Count() {
				return false
			}
			f.global[families.MetricFamily(i)] = true
		}
	}
	return true
}

func parseToken(tok string) (lo, hi int, err error) {
	if dash := strings.IndexByte(tok, '-'); dash >= 0 {
		loS, hiS := tok[:dash], tok[dash+1:]
		lo, err = strconv.Atoi(loS)
		if err != nil {
			return 0, 0, fmt.Errorf("enablement: bad range start %q: %w", loS, err)
		}
		hi, err = strconv.Atoi(hiS)
		if err != nil {
			return 0, 0, fmt.Errorf("enablement: bad range end %q: %w", hiS, err)
		}
		if hi < lo {
			return 0, 0, fmt.Errorf("enablement: inverted range %q", tok)
		}
		return lo, hi, nil
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, 0, fmt.Errorf("enablement: bad index %q: %w", tok, err)
	}
	return v, v, nil
}

// Enabled reports whether f is in the process-wide enabled set. It
// satisfies datalogic.Enablement.
func (f *Filter) Enabled(fam families.MetricFamily) bool {
	if !families.Valid(fam) {
		return false
	}
	return f.global[fam] // absent key reads false
}

// SupportedOnDevice reports whether fam is both globally enabled and
// supported by the device's capability set (§4.8: "a family whose
// capability is not supported on a device is elided per device even if
// enabled globally").
func (f *Filter) SupportedOnDevice(deviceID int, fam families.MetricFamily) bool {
	if !f.Enabled(fam) {
		return false
	}
	if f.capabilities == nil {
		return true
	}
	return f.capabilities.Supports(deviceID, fam)
}
