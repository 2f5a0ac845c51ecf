package definitions

import (
	"fmt"
	"unsafe"
)

// Kind identifies a definition kind.
type Kind uint8

// Kinds in dependency order: every kind references only kinds listed before
// it (or itself, through a parent link to an earlier record).
const (
	KindString Kind = iota
	KindSourceFile
	KindSystemTreeNode
	KindLocationGroup
	KindLocation
	KindRegion
	KindGroup
	KindInterimCommunicator
	KindCommunicator
	KindRmaWindow
	KindMetric
	KindSamplingSet
	KindParameter
	KindAttribute
	KindCallpath
	KindIoFile
	KindMarker
	KindProperty

	numKinds int = iota
)

// KindNone marks the absence of a reference target.
const KindNone Kind = 0xFF

// NumKinds is the number of definition kinds.
const NumKinds = numKinds

var kindNames = [numKinds]string{
	"String", "SourceFile", "SystemTreeNode", "LocationGroup", "Location",
	"Region", "Group", "InterimCommunicator", "Communicator", "RmaWindow",
	"Metric", "SamplingSet", "Parameter", "Attribute", "Callpath", "IoFile",
	"Marker", "Property",
}

func (k Kind) String() string {
	if int(k) < numKinds {
		return kindNames[k]
	}
	if k == KindNone {
		return "None"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Valid reports whether k names a definition kind.
func (k Kind) Valid() bool { return int(k) < numKinds }

// ParseKind returns the kind with the given name.
func ParseKind(name string) (Kind, error) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil //nolint:gosec // i < numKinds
		}
	}
	return KindNone, fmt.Errorf("definitions: unknown kind %q", name)
}

// Kinds returns every kind in dependency order.
func Kinds() []Kind {
	out := make([]Kind, numKinds)
	for i := range out {
		out[i] = Kind(i) //nolint:gosec // i < numKinds
	}
	return out
}

// Deps returns the other kinds k references, in dependency order.
func (k Kind) Deps() []Kind {
	var seen [numKinds]bool
	d := &descriptors[k]
	for _, r := range d.refs {
		if r.kind != k {
			seen[r.kind] = true
		}
	}
	if d.tailRef != KindNone && d.tailRef != k {
		seen[d.tailRef] = true
	}
	var out []Kind
	for i, ok := range seen {
		if ok {
			out = append(out, Kind(i)) //nolint:gosec // i < numKinds
		}
	}
	return out
}

// refSlot is a handle field inside a payload.
type refSlot struct {
	offset uintptr
	kind   Kind
}

// descriptor is the per-kind capability set driving the generic interning.
type descriptor struct {
	payloadSize int
	identSize   int // payload prefix that takes part in identity
	refs        []refSlot
	tailRef     Kind // tail is a list of handles of this kind
	tailElem    int  // tail element size, 0 for raw bytes
	merge       func(existing, incoming []byte)
}

func describe[T any](identSize int, refs ...refSlot) descriptor {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if identSize < 0 {
		identSize = size
	}
	return descriptor{payloadSize: size, identSize: identSize, refs: refs, tailRef: KindNone}
}

func ref(offset uintptr, k Kind) refSlot { return refSlot{offset: offset, kind: k} }

var descriptors = func() [numKinds]descriptor {
	var d [numKinds]descriptor

	d[KindString] = descriptor{tailRef: KindNone, tailElem: 0}

	var sf SourceFileDef
	d[KindSourceFile] = describe[SourceFileDef](-1,
		ref(unsafe.Offsetof(sf.Name), KindString))

	var stn SystemTreeNodeDef
	d[KindSystemTreeNode] = describe[SystemTreeNodeDef](-1,
		ref(unsafe.Offsetof(stn.Parent), KindSystemTreeNode),
		ref(unsafe.Offsetof(stn.Name), KindString),
		ref(unsafe.Offsetof(stn.Class), KindString))

	var lg LocationGroupDef
	d[KindLocationGroup] = describe[LocationGroupDef](-1,
		ref(unsafe.Offsetof(lg.Name), KindString),
		ref(unsafe.Offsetof(lg.SystemTreeParent), KindSystemTreeNode))

	var loc LocationDef
	d[KindLocation] = describe[LocationDef](-1,
		ref(unsafe.Offsetof(loc.Name), KindString),
		ref(unsafe.Offsetof(loc.Group), KindLocationGroup))

	var rg RegionDef
	d[KindRegion] = describe[RegionDef](-1,
		ref(unsafe.Offsetof(rg.Name), KindString),
		ref(unsafe.Offsetof(rg.CanonicalName), KindString),
		ref(unsafe.Offsetof(rg.Description), KindString),
		ref(unsafe.Offsetof(rg.File), KindSourceFile))

	var gr GroupDef
	d[KindGroup] = describe[GroupDef](-1,
		ref(unsafe.Offsetof(gr.Name), KindString))
	d[KindGroup].tailElem = 8

	var ic InterimCommunicatorDef
	d[KindInterimCommunicator] = describe[InterimCommunicatorDef](-1,
		ref(unsafe.Offsetof(ic.Name), KindString),
		ref(unsafe.Offsetof(ic.Parent), KindInterimCommunicator))

	var cm CommunicatorDef
	d[KindCommunicator] = describe[CommunicatorDef](-1,
		ref(unsafe.Offsetof(cm.Group), KindGroup),
		ref(unsafe.Offsetof(cm.Name), KindString),
		ref(unsafe.Offsetof(cm.Parent), KindCommunicator))

	var rw RmaWindowDef
	d[KindRmaWindow] = describe[RmaWindowDef](-1,
		ref(unsafe.Offsetof(rw.Name), KindString),
		ref(unsafe.Offsetof(rw.Communicator), KindCommunicator))

	var mt MetricDef
	d[KindMetric] = describe[MetricDef](-1,
		ref(unsafe.Offsetof(mt.Name), KindString),
		ref(unsafe.Offsetof(mt.Description), KindString),
		ref(unsafe.Offsetof(mt.Unit), KindString))

	d[KindSamplingSet] = describe[SamplingSetDef](-1)
	d[KindSamplingSet].tailRef = KindMetric
	d[KindSamplingSet].tailElem = 8

	var pr ParameterDef
	d[KindParameter] = describe[ParameterDef](-1,
		ref(unsafe.Offsetof(pr.Name), KindString))

	var at AttributeDef
	d[KindAttribute] = describe[AttributeDef](int(unsafe.Offsetof(at.Description)),
		ref(unsafe.Offsetof(at.Name), KindString),
		ref(unsafe.Offsetof(at.Description), KindString))

	var cp CallpathDef
	d[KindCallpath] = describe[CallpathDef](-1,
		ref(unsafe.Offsetof(cp.Parent), KindCallpath),
		ref(unsafe.Offsetof(cp.Region), KindRegion),
		ref(unsafe.Offsetof(cp.Parameter), KindParameter))

	var io IoFileDef
	d[KindIoFile] = describe[IoFileDef](-1,
		ref(unsafe.Offsetof(io.Name), KindString),
		ref(unsafe.Offsetof(io.Scope), KindSystemTreeNode))

	var mk MarkerDef
	d[KindMarker] = describe[MarkerDef](-1,
		ref(unsafe.Offsetof(mk.Name), KindString))

	var pp PropertyDef
	d[KindProperty] = describe[PropertyDef](int(unsafe.Offsetof(pp.Invalidated)))
	d[KindProperty].merge = mergeProperty

	return d
}()
