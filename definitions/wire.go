package definitions

import "fmt"

// Record is the exchange form of one definition: its payload and tail with
// every reference replaced by a sequence number plus one (zero for Invalid).
// References to the record's own kind carry the sender's sequence number;
// references to other kinds carry the global sequence number.
type Record struct {
	Payload []byte `json:"p,omitempty"`
	Tail    []byte `json:"t,omitempty"`
}

// Export encodes every record of kind k. global maps a sequence number of
// another kind in m to its global sequence number.
func (m *Manager) Export(k Kind, global func(Kind, uint32) uint32) []Record {
	d := &descriptors[k]
	t := &m.tables[k]
	out := make([]Record, len(t.records))

	encode := func(h Handle, target Kind) Handle {
		if h == Invalid {
			return 0
		}
		seq := m.Sequence(h)
		if target != k {
			seq = global(target, seq)
		}
		return Handle(seq) + 1
	}

	for i, h := range t.records {
		_, p, tl := m.record(h)
		payload := append([]byte(nil), p...)
		tail := append([]byte(nil), tl...)
		for _, s := range d.refs {
			putRef(payload, s.offset, encode(getRef(payload, s.offset), s.kind))
		}
		if d.tailRef != KindNone {
			for off := 0; off+8 <= len(tail); off += 8 {
				putRef(tail, uintptr(off), encode(getRef(tail, uintptr(off)), d.tailRef))
			}
		}
		out[i] = Record{Payload: payload, Tail: tail}
	}
	return out
}

// Import interns records exported by one sender and returns, per record, its
// sequence number in m. References to other kinds must already exist in m.
func (m *Manager) Import(k Kind, recs []Record) ([]uint32, error) {
	d := &descriptors[k]
	out := make([]uint32, len(recs))

	decode := func(v Handle, target Kind, i int) (Handle, error) {
		if v == 0 {
			return Invalid, nil
		}
		seq := uint64(v) - 1
		if target == k {
			if seq >= uint64(i) { //nolint:gosec // i >= 0
				return Invalid, fmt.Errorf("%w: %s #%d refers forward to #%d", ErrDangling, k, i, seq)
			}
			seq = uint64(out[seq])
		}
		if seq >= uint64(m.Count(target)) { //nolint:gosec // count >= 0
			return Invalid, fmt.Errorf("%w: %s #%d refers to missing %s #%d", ErrDangling, k, i, target, seq)
		}
		return m.HandleAt(target, uint32(seq)), nil
	}

	for i, r := range recs {
		if len(r.Payload) != d.payloadSize || (d.tailElem > 0 && len(r.Tail)%d.tailElem != 0) {
			return nil, fmt.Errorf("definitions: malformed %s record #%d", k, i)
		}
		payload := append([]byte(nil), r.Payload...)
		tail := append([]byte(nil), r.Tail...)
		for _, s := range d.refs {
			h, err := decode(getRef(payload, s.offset), s.kind, i)
			if err != nil {
				return nil, err
			}
			putRef(payload, s.offset, h)
		}
		if d.tailRef != KindNone {
			for off := 0; off+8 <= len(tail); off += 8 {
				h, err := decode(getRef(tail, uintptr(off)), d.tailRef, i)
				if err != nil {
					return nil, err
				}
				putRef(tail, uintptr(off), h)
			}
		}
		h, _ := m.intern(k, payload, tail)
		out[i] = m.Sequence(h)
	}
	return out, nil
}
