// Package families declares the fixed catalogue of GPU metric families
// and the per-family semantics (counter-ness, sub-device fan-out,
// per-handle fan-out, handler kind, transmitted-value scale) that the
// rest of the data-logic pipeline dispatches on.
package families

// MetricFamily identifies a kind of measurement collected for a device.
// The integer value is the stable index used by the XPUM_METRICS
// environment variable and by the wire protocol; it must never be
// renumbered once shipped.
type MetricFamily int

const (
	Temperature MetricFamily = iota
	Frequency
	RequestFrequency
	Power
	Energy
	MemoryUsed
	MemoryUtilization
	MemoryBandwidth
	MemoryRead
	MemoryWrite
	MemoryReadThroughput
	MemoryWriteThroughput
	EngineUtilization
	GPUUtilization
	EngineGroupComputeAllUtilization
	EngineGroupMediaAllUtilization
	EngineGroupCopyAllUtilization
	EngineGroupRenderAllUtilization
	EngineGroup3DAllUtilization
	EUActive
	EUStall
	EUIdle
	RASErrorCatReset
	RASErrorCatProgrammingErrors
	RASErrorCatDriverErrors
	RASErrorCatCacheErrorsCorrectable
	RASErrorCatCacheErrorsUncorrectable
	RASErrorCatDisplayErrorsCorrectable
	RASErrorCatNonComputeErrorsCorrectable
	RASErrorCatNonComputeErrorsUncorrectable
	MemoryTemperature
	FrequencyThrottle
	FrequencyThrottleReasonGPU
	PCIeRead
	PCIeWrite
	PCIeReadThroughput
	PCIeWriteThroughput
	FabricThroughput
	PerfMetrics
	MetricCollectionStats

	familyCount
)

// Kind names the handler implementation (C2's tagged variant) that
// owns a family's derivation and stats bookkeeping.
type Kind int

const (
	KindStats Kind = iota
	KindTimeWeightedAvg
	KindCounter
	KindEngineUtil
	KindEngineGroupUtil
	KindGPUUtil
	KindFabricThroughput
	KindAvg
	KindPerfMetrics
	KindMetricCollectionStats
)

func (k Kind) String() string {
	switch k {
	case KindStats:
		return "stats"
	case KindTimeWeightedAvg:
		return "time_weighted_avg"
	case KindCounter:
		return "counter"
	case KindEngineUtil:
		return "engine_util"
	case KindEngineGroupUtil:
		return "engine_group_util"
	case KindGPUUtil:
		return "gpu_util"
	case KindFabricThroughput:
		return "fabric_throughput"
	case KindAvg:
		return "avg"
	case KindPerfMetrics:
		return "perf_metrics"
	case KindMetricCollectionStats:
		return "metric_collection_stats"
	default:
		return "unknown"
	}
}

// Descriptor carries the fixed semantics of one metric family.
type Descriptor struct {
	Name         string
	Kind         Kind
	IsCounter    bool // raw signal is a monotonic cumulative quantity
	HasSubDevice bool // whole-device scalar also fans out per sub-device
	HasFanout    bool // family exposes a per-handle/per-port query, not a scalar one
	Scale        uint64 // divisor a consumer applies to transmitted values; 0 means "no scaling"
	Unit         string
}

// DefaultMeasurementDataScale is DEFAULT_MEASUREMENT_DATA_SCALE: the
// common multiplier/divisor carried by derived rate and utilization
// families so percentages and rates can be transmitted as integers
// (e.g. a 73.4% utilization is transmitted as 7340 with scale 100).
// Plain gauges use scale 0 (no division).
const DefaultMeasurementDataScale uint64 = 100

const defaultScale = DefaultMeasurementDataScale

var descriptors = map[MetricFamily]Descriptor{
	Temperature:                         {"temperature", KindStats, false, true, false, 0, "C"},
	Frequency:                           {"frequency", KindStats, false, true, false, 0, "MHz"},
	RequestFrequency:                    {"request_frequency", KindStats, false, true, false, 0, "MHz"},
	Power:                               {"power", KindTimeWeightedAvg, true, true, false, defaultScale, "W"},
	Energy:                              {"energy", KindStats, false, true, false, 0, "J"},
	MemoryUsed:                          {"memory_used", KindStats, false, true, false, 0, "MiB"},
	MemoryUtilization:                   {"memory_utilization", KindStats, false, true, false, defaultScale, "%"},
	MemoryBandwidth:                     {"memory_bandwidth", KindTimeWeightedAvg, true, true, false, defaultScale, "%"},
	MemoryRead:                          {"memory_read", KindCounter, true, true, false, 0, "B"},
	MemoryWrite:                         {"memory_write", KindCounter, true, true, false, 0, "B"},
	MemoryReadThroughput:                {"memory_read_throughput", KindTimeWeightedAvg, true, true, false, defaultScale, "B/s"},
	MemoryWriteThroughput:               {"memory_write_throughput", KindTimeWeightedAvg, true, true, false, defaultScale, "B/s"},
	EngineUtilization:                   {"engine_utilization", KindEngineUtil, false, false, true, defaultScale, "%"},
	GPUUtilization:                      {"gpu_utilization", KindGPUUtil, false, false, false, defaultScale, "%"},
	EngineGroupComputeAllUtilization:    {"engine_group_compute_all_utilization", KindEngineGroupUtil, false, true, false, defaultScale, "%"},
	EngineGroupMediaAllUtilization:      {"engine_group_media_all_utilization", KindEngineGroupUtil, false, true, false, defaultScale, "%"},
	EngineGroupCopyAllUtilization:       {"engine_group_copy_all_utilization", KindEngineGroupUtil, false, true, false, defaultScale, "%"},
	EngineGroupRenderAllUtilization:     {"engine_group_render_all_utilization", KindEngineGroupUtil, false, true, false, defaultScale, "%"},
	EngineGroup3DAllUtilization:         {"engine_group_3d_all_utilization", KindEngineGroupUtil, false, true, false, defaultScale, "%"},
	EUActive:                            {"eu_active", KindStats, false, true, false, defaultScale, "%"},
	EUStall:                             {"eu_stall", KindStats, false, true, false, defaultScale, "%"},
	EUIdle:                              {"eu_idle", KindStats, false, true, false, defaultScale, "%"},
	RASErrorCatReset:                    {"ras_reset", KindStats, false, true, false, 0, "count"},
	RASErrorCatProgrammingErrors:        {"ras_programming_errors", KindStats, false, true, false, 0, "count"},
	RASErrorCatDriverErrors:             {"ras_driver_errors", KindStats, false, true, false, 0, "count"},
	RASErrorCatCacheErrorsCorrectable:   {"ras_cache_errors_correctable", KindStats, false, true, false, 0, "count"},
	RASErrorCatCacheErrorsUncorrectable: {"ras_cache_errors_uncorrectable", KindStats, false, true, false, 0, "count"},
	RASErrorCatDisplayErrorsCorrectable: {"ras_display_errors_correctable", KindStats, false, true, false, 0, "count"},
	RASErrorCatNonComputeErrorsCorrectable:   {"ras_non_compute_errors_correctable", KindStats, false, true, false, 0, "count"},
	RASErrorCatNonComputeErrorsUncorrectable: {"ras_non_compute_errors_uncorrectable", KindStats, false, true, false, 0, "count"},
	MemoryTemperature:                        {"memory_temperature", KindStats, false, true, false, 0, "C"},
	FrequencyThrottle:                        {"frequency_throttle", KindTimeWeightedAvg, true, true, false, defaultScale, "ratio"},
	FrequencyThrottleReasonGPU:               {"frequency_throttle_reason_gpu", KindStats, false, true, false, 0, "bitmask"},
	PCIeRead:                                 {"pcie_read", KindCounter, true, true, false, 0, "B"},
	PCIeWrite:                                {"pcie_write", KindCounter, true, true, false, 0, "B"},
	PCIeReadThroughput:                       {"pcie_read_throughput", KindStats, false, true, false, 0, "B/s"},
	PCIeWriteThroughput:                      {"pcie_write_throughput", KindStats, false, true, false, 0, "B/s"},
	FabricThroughput:                         {"fabric_throughput", KindFabricThroughput, true, false, true, defaultScale, "MB/s"},
	PerfMetrics:                               {"perf_metrics", KindPerfMetrics, false, true, false, 0, "count"},
	MetricCollectionStats:                     {"metric_collection_stats", KindMetricCollectionStats, false, true, false, 0, "count"},
}

// Descriptor returns the fixed semantics for a family. Callers must
// only pass one of the constants declared in this package.
func (f MetricFamily) Descriptor() Descriptor {
	d, ok := descriptors[f]
	if !ok {
		panic("families: unknown metric family")
	}
	return d
}

func (f MetricFamily) String() string { return f.Descriptor().Name }

// All returns every declared family, in stable index order.
func All() []MetricFamily {
	out := make([]MetricFamily, 0, int(familyCount))
	for i := MetricFamily(0); i < familyCount; i++ {
		out = append(out, i)
	}
	return out
}

// Count is the number of declared families; also the upper bound for
// the enablement filter's index range parsing.
func Count() int { return int(familyCount) }

// Valid reports whether f is a declared family index.
func Valid(f MetricFamily) bool { return f >= 0 && f < familyCount }
