package datalogic

import "github.com/intel/xpum/sample"

// MaxSessions bounds stats_by_session: the number of concurrent RPC
// sessions the pipeline tracks independent read-and-reset windows for.
// Not specified numerically by the source's retrieved configuration;
// recorded as a documented assumption in DESIGN.md.
const MaxSessions = 10

// RollingStats accumulates count/min/max/streaming-avg for one
// (session, device[, sub-device]) slot between reads. The zero value is
// ready to use.
type RollingStats struct {
	Count      uint64
	Min        uint64
	Max        uint64
	Avg        uint64
	HasData    bool
	StartTime  uint64
	LatestTime uint64

	SubDevice map[uint32]*RollingStats

	// valid counts the present values folded into Avg; an absent value
	// advances Count but not this.
	valid uint64
}

// touch folds one observation into the stats record. countOnAbsent
// controls whether an absent value still advances count/latest_time:
// true for the whole-device branch, false for sub-device branches, per
// §4.2.1's absent-value policy.
func (r *RollingStats) touch(value sample.OptionalUint64, ts uint64, countOnAbsent bool) {
	if !value.Valid && !countOnAbsent {
		return
	}
	if r.Count == 0 {
		r.StartTime = ts
	}
	r.Count++
	r.LatestTime = ts

	if !value.Valid {
		return
	}
	if !r.HasData {
		r.Min, r.Max, r.Avg = value.Value, value.Value, value.Value
		r.HasData = true
		r.valid = 1
		return
	}
	if value.Value < r.Min {
		r.Min = value.Value
	}
	if value.Value > r.Max {
		r.Max = value.Value
	}
	r.valid++
	n := float64(r.valid)
	r.Avg = uint64(float64(r.Avg)*(n-1)/n + float64(value.Value)/n)
}

func (r *RollingStats) subDevice(id uint32) *RollingStats {
	if r.SubDevice == nil {
		r.SubDevice = make(map[uint32]*RollingStats)
	}
	s, ok := r.SubDevice[id]
	if !ok {
		s = &RollingStats{}
		r.SubDevice[id] = s
	}
	return s
}

// DeviceStat is the read-and-reset snapshot returned by latest_stats:
// the latest value plus the rolling-stats window accumulated since the
// previous read for that (session, device) slot.
type DeviceStat struct {
	Current    sample.OptionalUint64
	HasData    bool
	Count      uint64
	Min        uint64
	Max        uint64
	Avg        uint64
	StartTime  uint64
	LatestTime uint64

	SubDevices map[uint32]*DeviceStat
}

func snapshotStat(cur sample.OptionalUint64, r *RollingStats) *DeviceStat {
	if r == nil {
		return &DeviceStat{Current: cur}
	}
	return &DeviceStat{
		Current:    cur,
		HasData:    r.HasData,
		Count:      r.Count,
		Min:        r.Min,
		Max:        r.Max,
		Avg:        r.Avg,
		StartTime:  r.StartTime,
		LatestTime: r.LatestTime,
	}
}
