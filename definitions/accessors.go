package definitions

import "encoding/binary"

// StringValue returns the content of h.
func (m *Manager) StringValue(h StringHandle) string {
	hdr, _, tail := m.record(Handle(h))
	if hdr.kind != KindString {
		panic("definitions: not a string: " + Handle(h).String())
	}
	return string(tail)
}

// SourceFile returns a copy of the record h.
func (m *Manager) SourceFile(h SourceFileHandle) SourceFileDef {
	return load[SourceFileDef](m, Handle(h), KindSourceFile)
}

// SystemTreeNode returns a copy of the record h.
func (m *Manager) SystemTreeNode(h SystemTreeNodeHandle) SystemTreeNodeDef {
	return load[SystemTreeNodeDef](m, Handle(h), KindSystemTreeNode)
}

// LocationGroup returns a copy of the record h.
func (m *Manager) LocationGroup(h LocationGroupHandle) LocationGroupDef {
	return load[LocationGroupDef](m, Handle(h), KindLocationGroup)
}

// Location returns a copy of the record h.
func (m *Manager) Location(h LocationHandle) LocationDef {
	return load[LocationDef](m, Handle(h), KindLocation)
}

// Region returns a copy of the record h.
func (m *Manager) Region(h RegionHandle) RegionDef {
	return load[RegionDef](m, Handle(h), KindRegion)
}

// RegionName returns the name of region h.
func (m *Manager) RegionName(h RegionHandle) string {
	return m.StringValue(m.Region(h).Name)
}

// Group returns a copy of the record h.
func (m *Manager) Group(h GroupHandle) GroupDef {
	return load[GroupDef](m, Handle(h), KindGroup)
}

// GroupMembers returns the members of group h.
func (m *Manager) GroupMembers(h GroupHandle) []uint64 {
	hdr, _, tail := m.record(Handle(h))
	if hdr.kind != KindGroup {
		panic("definitions: not a group: " + Handle(h).String())
	}
	out := make([]uint64, len(tail)/8)
	for i := range out {
		out[i] = binary.NativeEndian.Uint64(tail[8*i:])
	}
	return out
}

// InterimCommunicator returns a copy of the record h.
func (m *Manager) InterimCommunicator(h InterimCommunicatorHandle) InterimCommunicatorDef {
	return load[InterimCommunicatorDef](m, Handle(h), KindInterimCommunicator)
}

// Communicator returns a copy of the record h.
func (m *Manager) Communicator(h CommunicatorHandle) CommunicatorDef {
	return load[CommunicatorDef](m, Handle(h), KindCommunicator)
}

// RmaWindow returns a copy of the record h.
func (m *Manager) RmaWindow(h RmaWindowHandle) RmaWindowDef {
	return load[RmaWindowDef](m, Handle(h), KindRmaWindow)
}

// Metric returns a copy of the record h.
func (m *Manager) Metric(h MetricHandle) MetricDef {
	return load[MetricDef](m, Handle(h), KindMetric)
}

// SamplingSet returns a copy of the record h.
func (m *Manager) SamplingSet(h SamplingSetHandle) SamplingSetDef {
	return load[SamplingSetDef](m, Handle(h), KindSamplingSet)
}

// SamplingSetMetrics returns the metrics of sampling set h.
func (m *Manager) SamplingSetMetrics(h SamplingSetHandle) []MetricHandle {
	hdr, _, tail := m.record(Handle(h))
	if hdr.kind != KindSamplingSet {
		panic("definitions: not a sampling set: " + Handle(h).String())
	}
	out := make([]MetricHandle, len(tail)/8)
	for i := range out {
		out[i] = MetricHandle(getRef(tail, uintptr(8*i)))
	}
	return out
}

// Parameter returns a copy of the record h.
func (m *Manager) Parameter(h ParameterHandle) ParameterDef {
	return load[ParameterDef](m, Handle(h), KindParameter)
}

// Attribute returns a copy of the record h.
func (m *Manager) Attribute(h AttributeHandle) AttributeDef {
	return load[AttributeDef](m, Handle(h), KindAttribute)
}

// Callpath returns a copy of the record h.
func (m *Manager) Callpath(h CallpathHandle) CallpathDef {
	return load[CallpathDef](m, Handle(h), KindCallpath)
}

// IoFile returns a copy of the record h.
func (m *Manager) IoFile(h IoFileHandle) IoFileDef {
	return load[IoFileDef](m, Handle(h), KindIoFile)
}

// Marker returns a copy of the record h.
func (m *Manager) Marker(h MarkerHandle) MarkerDef {
	return load[MarkerDef](m, Handle(h), KindMarker)
}

// Property returns a copy of the record h.
func (m *Manager) Property(h PropertyHandle) PropertyDef {
	return load[PropertyDef](m, Handle(h), KindProperty)
}
