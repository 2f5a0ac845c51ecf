package unify

import (
	"fmt"

	"github.com/hupe1980/scoredef/allocator"
	"github.com/hupe1980/scoredef/definitions"
)

// Mapping translates one source manager's sequence numbers into global
// sequence numbers, per kind.
type Mapping struct {
	tables [][]uint32
}

func newMapping() *Mapping {
	return &Mapping{tables: make([][]uint32, len(definitions.Kinds()))}
}

// Global returns the global sequence number of the local record seq of kind k.
func (m *Mapping) Global(k definitions.Kind, seq uint32) uint32 {
	t := m.tables[k]
	if int(seq) >= len(t) {
		panic(fmt.Sprintf("unify: %s #%d has no mapping", k, seq))
	}
	return t[seq]
}

// Len returns the number of mapped records of kind k.
func (m *Mapping) Len(k definitions.Kind) int { return len(m.tables[k]) }

// Table returns a copy of the mapping for kind k.
func (m *Mapping) Table(k definitions.Kind) []uint32 {
	return append([]uint32(nil), m.tables[k]...)
}

// Result is the outcome of Unify on one rank.
type Result struct {
	rank     int
	size     int
	self     *definitions.Manager
	selfPM   *allocator.PageManager
	global   *definitions.Manager
	globalPM *allocator.PageManager
	sources  []*definitions.Manager
	mappings map[*definitions.Manager]*Mapping
	closed   bool
}

// Rank returns the rank this result belongs to.
func (r *Result) Rank() int { return r.rank }

// Size returns the number of ranks that took part.
func (r *Result) Size() int { return r.size }

// Unified returns the global table. It is nil on ranks other than 0.
func (r *Result) Unified() *definitions.Manager { return r.global }

// SelfUnified returns this rank's deduplicated table.
func (r *Result) SelfUnified() *definitions.Manager { return r.self }

// Mapping returns the local -> global mapping of src, or nil if src did not
// take part.
func (r *Result) Mapping(src *definitions.Manager) *Mapping { return r.mappings[src] }

// Sources returns the unified managers in unification order: the process
// manager first, then locations.
func (r *Result) Sources() []*definitions.Manager {
	return append([]*definitions.Manager(nil), r.sources...)
}

// Close returns the pages of the self-unified and global tables.
func (r *Result) Close() {
	if r.closed {
		return
	}
	r.closed = true
	if r.globalPM != nil && r.globalPM != r.selfPM {
		r.globalPM.Delete()
	}
	r.selfPM.Delete()
}
