package definitions

// Record payloads. They live in arena memory and hold no Go pointers; every
// struct is a multiple of 8 bytes with explicit padding so identity can be
// compared bytewise.

// SourceFileDef names a source file.
type SourceFileDef struct {
	Name StringHandle
}

// SystemTreeNodeDef is one node of the machine hierarchy.
type SystemTreeNodeDef struct {
	Parent  SystemTreeNodeHandle
	Name    StringHandle
	Class   StringHandle
	Domains SystemTreeDomain
	_       uint32
}

// LocationGroupDef is a process (or accelerator context) grouping locations.
type LocationGroupDef struct {
	Name             StringHandle
	SystemTreeParent SystemTreeNodeHandle
	GlobalID         uint32
	Type             LocationGroupType
}

// LocationDef is one measurement location.
type LocationDef struct {
	Name     StringHandle
	Group    LocationGroupHandle
	GlobalID uint64
	Type     LocationType
	_        uint32
}

// RegionDef is a code region.
type RegionDef struct {
	Name          StringHandle
	CanonicalName StringHandle
	Description   StringHandle
	File          SourceFileHandle
	BeginLine     uint32
	EndLine       uint32
	Paradigm      Paradigm
	Type          RegionType
}

// GroupDef is a typed member list; members are stored in the record tail.
type GroupDef struct {
	Name StringHandle
	Type GroupType
	_    uint32
}

// InterimCommunicatorDef is a communicator as first seen by one location.
type InterimCommunicatorDef struct {
	Name     StringHandle
	Parent   InterimCommunicatorHandle
	Paradigm Paradigm
	_        uint32
}

// CommunicatorDef is a communicator over a group.
type CommunicatorDef struct {
	Group  GroupHandle
	Name   StringHandle
	Parent CommunicatorHandle
}

// RmaWindowDef is a one-sided communication window.
type RmaWindowDef struct {
	Name         StringHandle
	Communicator CommunicatorHandle
}

// MetricDef describes a measured metric.
type MetricDef struct {
	Name        StringHandle
	Description StringHandle
	Unit        StringHandle
	Exponent    int64
	SourceType  MetricSourceType
	Mode        MetricMode
	ValueType   MetricValueType
	Base        MetricBase
}

// SamplingSetDef groups metrics recorded together; the metrics are stored in
// the record tail.
type SamplingSetDef struct {
	Occurrence MetricOccurrence
	Class      SamplingSetClass
}

// ParameterDef names a region parameter.
type ParameterDef struct {
	Name StringHandle
	Type ParameterType
	_    uint32
}

// AttributeDef names an event attribute. The description is not part of its
// identity.
type AttributeDef struct {
	Name        StringHandle
	Type        AttributeType
	_           uint32
	Description StringHandle
}

// CallpathDef is a node of the call tree.
type CallpathDef struct {
	Parent    CallpathHandle
	Region    RegionHandle
	Parameter ParameterHandle
	Value     int64
}

// IoFileDef names a file accessed through an I/O paradigm.
type IoFileDef struct {
	Name  StringHandle
	Scope SystemTreeNodeHandle
}

// MarkerDef names a marker class.
type MarkerDef struct {
	Name     StringHandle
	Severity MarkerSeverity
	_        uint32
}

// PropertyDef is a run-wide boolean property. Invalidated is merged on
// duplicate definitions and is not part of the identity.
type PropertyDef struct {
	Property    PropertyType
	Condition   PropertyCondition
	Initial     bool
	_           [3]byte
	Invalidated bool
	_           [3]byte
}

// Value reports the effective property value.
func (p PropertyDef) Value() bool {
	return p.Initial != p.Invalidated
}

func mergeProperty(existing, incoming []byte) {
	cur := view[PropertyDef](existing)
	in := view[PropertyDef](incoming)
	switch cur.Condition {
	case PropertyConditionAll:
		cur.Invalidated = cur.Invalidated || in.Invalidated
	case PropertyConditionAny:
		cur.Invalidated = cur.Invalidated && in.Invalidated
	}
}
