package definitions

// Paradigm identifies the instrumentation source of a definition.
type Paradigm uint32

const (
	ParadigmUser Paradigm = iota
	ParadigmCompiler
	ParadigmSampling
	ParadigmMPI
	ParadigmShmem
	ParadigmOpenMP
	ParadigmPthread
	ParadigmCUDA
	ParadigmOpenCL
	ParadigmIO
	ParadigmMeasurement
)

var paradigmNames = [...]string{
	"user", "compiler", "sampling", "mpi", "shmem", "openmp", "pthread",
	"cuda", "opencl", "io", "measurement",
}

func (p Paradigm) String() string {
	if int(p) < len(paradigmNames) {
		return paradigmNames[p]
	}
	return "unknown"
}

// RegionType classifies a region.
type RegionType uint32

const (
	RegionUnknown RegionType = iota
	RegionFunction
	RegionLoop
	RegionUserRegion
	RegionCodeRegion
	RegionPhase
	RegionDynamic
	RegionParallel
	RegionBarrier
	RegionImplicitBarrier
	RegionCollective
	RegionPointToPoint
	RegionArtificial
	RegionThreadCreate
	RegionThreadWait
	RegionFileIO
)

// SystemTreeDomain is a bit set of hardware domains.
type SystemTreeDomain uint32

const (
	DomainNone        SystemTreeDomain = 0
	DomainMachine     SystemTreeDomain = 1 << 0
	DomainSharedMem   SystemTreeDomain = 1 << 1
	DomainNUMA        SystemTreeDomain = 1 << 2
	DomainSocket      SystemTreeDomain = 1 << 3
	DomainCore        SystemTreeDomain = 1 << 6
	DomainPU          SystemTreeDomain = 1 << 7
	DomainAccelerator SystemTreeDomain = 1 << 8
)

// LocationGroupType classifies a location group.
type LocationGroupType uint32

const (
	LocationGroupProcess LocationGroupType = iota
	LocationGroupAccelerator
)

// LocationType classifies a location.
type LocationType uint32

const (
	LocationCPUThread LocationType = iota
	LocationGPU
	LocationMetric
)

// GroupType classifies a group.
type GroupType uint32

const (
	GroupUnknown GroupType = iota
	GroupLocations
	GroupRegions
	GroupMetrics
	GroupCommLocations
	GroupCommGroup
	GroupCommSelf
)

// MetricSourceType is the origin of a metric.
type MetricSourceType uint32

const (
	MetricSourcePAPI MetricSourceType = iota
	MetricSourceRusage
	MetricSourceUser
	MetricSourceOther
	MetricSourceTaskCounter
	MetricSourcePlugin
)

// MetricMode describes how values accumulate.
type MetricMode uint32

const (
	MetricModeAccumulatedStart MetricMode = iota
	MetricModeAccumulatedPoint
	MetricModeAbsolutePoint
	MetricModeRelativePoint
)

// MetricValueType is the value representation.
type MetricValueType uint32

const (
	MetricValueInt64 MetricValueType = iota
	MetricValueUint64
	MetricValueDouble
)

// MetricBase is the base of the metric exponent.
type MetricBase uint32

const (
	MetricBaseBinary MetricBase = iota
	MetricBaseDecimal
)

// MetricOccurrence describes when a sampling set is recorded.
type MetricOccurrence uint32

const (
	OccurrenceSynchronousStrict MetricOccurrence = iota
	OccurrenceSynchronous
	OccurrenceAsynchronous
)

// SamplingSetClass classifies a sampling set.
type SamplingSetClass uint32

const (
	SamplingSetAbstract SamplingSetClass = iota
	SamplingSetCPU
	SamplingSetGPU
)

// ParameterType is the value type of a parameter.
type ParameterType uint32

const (
	ParameterInt64 ParameterType = iota
	ParameterUint64
	ParameterString
)

// AttributeType is the value type of an attribute.
type AttributeType uint32

const (
	AttributeUint64 AttributeType = iota
	AttributeInt64
	AttributeDouble
	AttributeString
	AttributeRegion
	AttributeLocation
)

// MarkerSeverity grades a marker.
type MarkerSeverity uint32

const (
	SeverityNone MarkerSeverity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
)

// PropertyType names a run-wide property.
type PropertyType uint32

const (
	PropertyMPICommunicationComplete PropertyType = iota
	PropertyThreadForkJoinEventComplete
	PropertyThreadCreateWaitEventComplete
	PropertyThreadLockEventComplete
	PropertyPthreadLocationReused
)

// PropertyCondition selects how per-location values combine.
type PropertyCondition uint32

const (
	// PropertyConditionAll holds only if every location keeps the initial value.
	PropertyConditionAll PropertyCondition = iota
	// PropertyConditionAny holds if at least one location keeps the initial value.
	PropertyConditionAny
)
