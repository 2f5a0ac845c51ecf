package definitions

import "github.com/hupe1980/scoredef/allocator"

// Handle references a definition record inside one Manager. The zero handle
// is the INVALID sentinel for every kind.
type Handle = allocator.MovableMemory

// Invalid is the sentinel accepted by every reference field.
const Invalid Handle = allocator.Null

// Typed handles. They share Handle's representation and convert freely to it.
type (
	StringHandle              Handle
	SourceFileHandle          Handle
	SystemTreeNodeHandle      Handle
	LocationGroupHandle       Handle
	LocationHandle            Handle
	RegionHandle              Handle
	GroupHandle               Handle
	InterimCommunicatorHandle Handle
	CommunicatorHandle        Handle
	RmaWindowHandle           Handle
	MetricHandle              Handle
	SamplingSetHandle         Handle
	ParameterHandle           Handle
	AttributeHandle           Handle
	CallpathHandle            Handle
	IoFileHandle              Handle
	MarkerHandle              Handle
	PropertyHandle            Handle
)
