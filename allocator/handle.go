package allocator

import "fmt"

// MovableMemory is a relocatable reference into the arena. It resolves only
// through the page manager that issued it, or through the moved page manager
// that later adopted the issuing manager's pages.
//
// Layout: issuing manager tag in the upper 16 bits, arena offset + 1 below.
type MovableMemory uint64

// Null is the zero handle. It never resolves.
const Null MovableMemory = 0

const (
	tagBits    = 16
	tagShift   = 64 - tagBits
	offsetMask = uint64(1)<<tagShift - 1
	maxTag     = 1<<tagBits - 1
)

func makeHandle(tag uint32, offset int) MovableMemory {
	return MovableMemory(uint64(tag)<<tagShift | (uint64(offset) + 1)) //nolint:gosec // offset < arena size < 1<<48
}

// IsNull reports whether h is the zero handle.
func (h MovableMemory) IsNull() bool { return h == Null }

func (h MovableMemory) tag() uint32 { return uint32(uint64(h) >> tagShift) }

func (h MovableMemory) offset() int { return int(uint64(h)&offsetMask) - 1 } //nolint:gosec // masked to 48 bits

func (h MovableMemory) String() string {
	if h == Null {
		return "mm(null)"
	}
	return fmt.Sprintf("mm(%d:%#x)", h.tag(), h.offset())
}
