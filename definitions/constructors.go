package definitions

import (
	"encoding/binary"
	"unsafe"
)

// UnknownRegion names regions defined without a name.
const UnknownRegion = "<unknown region>"

func internPOD[T any](m *Manager, k Kind, v *T, tail []byte) Handle {
	h, _ := m.intern(k, bytesOf(v), tail)
	return h
}

// NewString interns s.
func (m *Manager) NewString(s string) StringHandle {
	h, _ := m.intern(KindString, nil, unsafe.Slice(unsafe.StringData(s), len(s))) //nolint:gosec // read-only view
	return StringHandle(h)
}

// NewSourceFile interns a source file by name.
func (m *Manager) NewSourceFile(name string) SourceFileHandle {
	v := SourceFileDef{Name: m.NewString(name)}
	return SourceFileHandle(internPOD(m, KindSourceFile, &v, nil))
}

// NewSystemTreeNode interns a machine hierarchy node below parent (Invalid
// for a root).
func (m *Manager) NewSystemTreeNode(parent SystemTreeNodeHandle, domains SystemTreeDomain, class, name string) SystemTreeNodeHandle {
	v := SystemTreeNodeDef{
		Parent:  parent,
		Name:    m.NewString(name),
		Class:   m.NewString(class),
		Domains: domains,
	}
	return SystemTreeNodeHandle(internPOD(m, KindSystemTreeNode, &v, nil))
}

// NewLocationGroup interns a location group.
func (m *Manager) NewLocationGroup(globalID uint32, name string, typ LocationGroupType, parent SystemTreeNodeHandle) LocationGroupHandle {
	v := LocationGroupDef{
		Name:             m.NewString(name),
		SystemTreeParent: parent,
		GlobalID:         globalID,
		Type:             typ,
	}
	return LocationGroupHandle(internPOD(m, KindLocationGroup, &v, nil))
}

// NewLocation interns a location.
func (m *Manager) NewLocation(globalID uint64, name string, typ LocationType, group LocationGroupHandle) LocationHandle {
	v := LocationDef{
		Name:     m.NewString(name),
		Group:    group,
		GlobalID: globalID,
		Type:     typ,
	}
	return LocationHandle(internPOD(m, KindLocation, &v, nil))
}

// RegionSpec carries the arguments of NewRegion.
type RegionSpec struct {
	Name          string
	CanonicalName string
	Description   string
	File          string
	BeginLine     uint32
	EndLine       uint32
	Paradigm      Paradigm
	Type          RegionType
}

// NewRegion interns a region. An empty name becomes UnknownRegion and an
// empty canonical name defaults to the name. An empty file leaves File
// Invalid.
func (m *Manager) NewRegion(spec RegionSpec) RegionHandle {
	if spec.Name == "" {
		spec.Name = UnknownRegion
	}
	if spec.CanonicalName == "" {
		spec.CanonicalName = spec.Name
	}
	v := RegionDef{
		Name:          m.NewString(spec.Name),
		CanonicalName: m.NewString(spec.CanonicalName),
		Description:   m.NewString(spec.Description),
		BeginLine:     spec.BeginLine,
		EndLine:       spec.EndLine,
		Paradigm:      spec.Paradigm,
		Type:          spec.Type,
	}
	if spec.File != "" {
		v.File = m.NewSourceFile(spec.File)
	}
	return RegionHandle(internPOD(m, KindRegion, &v, nil))
}

// NewGroup interns a group with the given members.
func (m *Manager) NewGroup(typ GroupType, name string, members []uint64) GroupHandle {
	v := GroupDef{Name: m.NewString(name), Type: typ}
	tail := make([]byte, 8*len(members))
	for i, id := range members {
		binary.NativeEndian.PutUint64(tail[8*i:], id)
	}
	return GroupHandle(internPOD(m, KindGroup, &v, tail))
}

// NewInterimCommunicator interns a communicator as seen by one location.
func (m *Manager) NewInterimCommunicator(parent InterimCommunicatorHandle, paradigm Paradigm, name string) InterimCommunicatorHandle {
	v := InterimCommunicatorDef{Name: m.NewString(name), Parent: parent, Paradigm: paradigm}
	return InterimCommunicatorHandle(internPOD(m, KindInterimCommunicator, &v, nil))
}

// NewCommunicator interns a communicator over group.
func (m *Manager) NewCommunicator(group GroupHandle, name string, parent CommunicatorHandle) CommunicatorHandle {
	v := CommunicatorDef{Group: group, Name: m.NewString(name), Parent: parent}
	return CommunicatorHandle(internPOD(m, KindCommunicator, &v, nil))
}

// NewRmaWindow interns a window on comm.
func (m *Manager) NewRmaWindow(name string, comm CommunicatorHandle) RmaWindowHandle {
	v := RmaWindowDef{Name: m.NewString(name), Communicator: comm}
	return RmaWindowHandle(internPOD(m, KindRmaWindow, &v, nil))
}

// MetricSpec carries the arguments of NewMetric.
type MetricSpec struct {
	Name        string
	Description string
	Unit        string
	Exponent    int64
	SourceType  MetricSourceType
	Mode        MetricMode
	ValueType   MetricValueType
	Base        MetricBase
}

// NewMetric interns a metric.
func (m *Manager) NewMetric(spec MetricSpec) MetricHandle {
	v := MetricDef{
		Name:        m.NewString(spec.Name),
		Description: m.NewString(spec.Description),
		Unit:        m.NewString(spec.Unit),
		Exponent:    spec.Exponent,
		SourceType:  spec.SourceType,
		Mode:        spec.Mode,
		ValueType:   spec.ValueType,
		Base:        spec.Base,
	}
	return MetricHandle(internPOD(m, KindMetric, &v, nil))
}

// NewSamplingSet interns a set of metrics recorded together.
func (m *Manager) NewSamplingSet(occurrence MetricOccurrence, class SamplingSetClass, metrics ...MetricHandle) SamplingSetHandle {
	v := SamplingSetDef{Occurrence: occurrence, Class: class}
	tail := make([]byte, 8*len(metrics))
	for i, h := range metrics {
		putRef(tail, uintptr(8*i), Handle(h))
	}
	return SamplingSetHandle(internPOD(m, KindSamplingSet, &v, tail))
}

// NewParameter interns a parameter.
func (m *Manager) NewParameter(name string, typ ParameterType) ParameterHandle {
	v := ParameterDef{Name: m.NewString(name), Type: typ}
	return ParameterHandle(internPOD(m, KindParameter, &v, nil))
}

// NewAttribute interns an attribute. Attributes equal in name and type share
// a record; the first description wins.
func (m *Manager) NewAttribute(name, description string, typ AttributeType) AttributeHandle {
	v := AttributeDef{Name: m.NewString(name), Type: typ, Description: m.NewString(description)}
	return AttributeHandle(internPOD(m, KindAttribute, &v, nil))
}

// NewCallpath interns a call tree node. parent is Invalid for a root;
// parameter is Invalid when the node carries no parameter value.
func (m *Manager) NewCallpath(parent CallpathHandle, region RegionHandle, parameter ParameterHandle, value int64) CallpathHandle {
	v := CallpathDef{Parent: parent, Region: region, Parameter: parameter, Value: value}
	return CallpathHandle(internPOD(m, KindCallpath, &v, nil))
}

// NewIoFile interns a file accessed through I/O, scoped to a system tree node.
func (m *Manager) NewIoFile(name string, scope SystemTreeNodeHandle) IoFileHandle {
	v := IoFileDef{Name: m.NewString(name), Scope: scope}
	return IoFileHandle(internPOD(m, KindIoFile, &v, nil))
}

// NewMarker interns a marker class.
func (m *Manager) NewMarker(name string, severity MarkerSeverity) MarkerHandle {
	v := MarkerDef{Name: m.NewString(name), Severity: severity}
	return MarkerHandle(internPOD(m, KindMarker, &v, nil))
}

// NewProperty interns a property. A duplicate merges its invalidation into
// the existing record according to condition.
func (m *Manager) NewProperty(property PropertyType, condition PropertyCondition, initial, invalidated bool) PropertyHandle {
	v := PropertyDef{Property: property, Condition: condition, Initial: initial, Invalidated: invalidated}
	return PropertyHandle(internPOD(m, KindProperty, &v, nil))
}
