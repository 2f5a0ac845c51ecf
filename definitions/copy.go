package definitions

import "fmt"

// CopyTo interns every record of kind k into dst, rewriting references
// through their unified back references, and sets each source record's
// unified back reference to its dst record. Every kind k references must have
// been copied before. It returns the sequence mapping source -> dst.
func (m *Manager) CopyTo(dst *Manager, k Kind) []uint32 {
	d := &descriptors[k]
	t := &m.tables[k]
	out := make([]uint32, len(t.records))
	payload := make([]byte, d.payloadSize)
	var tail []byte

	for i, h := range t.records {
		hdr, p, tl := m.record(h)
		copy(payload, p)
		for _, s := range d.refs {
			putRef(payload, s.offset, m.unifiedRef(getRef(payload, s.offset)))
		}
		tail = append(tail[:0], tl...)
		if d.tailRef != KindNone {
			for off := 0; off+8 <= len(tail); off += 8 {
				putRef(tail, uintptr(off), m.unifiedRef(getRef(tail, uintptr(off))))
			}
		}

		u, _ := dst.intern(k, payload, tail)
		m.setUnified(hdr, u)
		out[i] = dst.Sequence(u)
	}
	return out
}

func (m *Manager) unifiedRef(h Handle) Handle {
	if h == Invalid {
		return Invalid
	}
	hdr := m.header(h)
	if hdr.unified == Invalid {
		panic(fmt.Sprintf("definitions: %s #%d referenced before it was unified", hdr.kind, hdr.seq))
	}
	return hdr.unified
}
