package definitions

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/hupe1980/scoredef/allocator"
	"github.com/hupe1980/scoredef/internal/conv"
	"github.com/hupe1980/scoredef/internal/hash"
)

// ErrDangling is returned by Validate for a reference that does not name a
// record of the declared kind in the same manager.
var ErrDangling = errors.New("definitions: dangling reference")

// Memory resolves handles to bytes.
type Memory interface {
	Resolve(h allocator.MovableMemory, n int) []byte
}

// Pages is Memory that can also allocate. *allocator.PageManager satisfies it.
type Pages interface {
	Memory
	AllocMovable(size int) (allocator.MovableMemory, error)
}

// header prefixes every record.
type header struct {
	next    Handle
	unified Handle
	hash    uint64
	seq     uint32
	tailLen uint32
	kind    Kind
	_       [7]byte
}

const headerSize = int(unsafe.Sizeof(header{}))

type table struct {
	records []Handle // dense, by sequence number
	buckets []Handle // hash chain heads
}

type options struct {
	onOOM    func(error)
	observer func(Kind, bool)
}

// Option configures a Manager.
type Option func(*options)

// WithOutOfMemory installs the handler invoked when the arena is exhausted.
// The manager panics with the error if the handler returns.
func WithOutOfMemory(fn func(error)) Option {
	return func(o *options) {
		o.onOOM = fn
	}
}

// WithObserver is called for every New call with the kind and whether a new
// record was created (false for a deduplicated hit).
func WithObserver(fn func(Kind, bool)) Option {
	return func(o *options) {
		o.observer = fn
	}
}

// Manager interns definitions of every kind into one page manager.
//
// A Manager is not safe for concurrent use. The process-wide manager shared
// by several locations must be held with Lock around every New call.
type Manager struct {
	mu     sync.Mutex
	mem    Memory
	pages  Pages
	tables [numKinds]table
	opts   options
}

// New creates an empty manager backed by pages.
func New(pages Pages, optFns ...Option) *Manager {
	m := &Manager{mem: pages, pages: pages}
	for _, fn := range optFns {
		fn(&m.opts)
	}
	return m
}

// Lock acquires the manager for the calling location.
func (m *Manager) Lock() { m.mu.Lock() }

// Unlock releases the manager.
func (m *Manager) Unlock() { m.mu.Unlock() }

// Rebind points the manager at mem, typically a moved page manager that
// adopted this manager's pages. The manager becomes read-only.
func (m *Manager) Rebind(mem Memory) {
	m.mem = mem
	m.pages = nil
}

// ReadOnly reports whether the manager has been rebound.
func (m *Manager) ReadOnly() bool { return m.pages == nil }

// Count returns the number of records of kind k.
func (m *Manager) Count(k Kind) int { return len(m.tables[k].records) }

// Total returns the number of records of all kinds.
func (m *Manager) Total() int {
	n := 0
	for k := range m.tables {
		n += len(m.tables[k].records)
	}
	return n
}

// HandleAt returns the record of kind k with sequence number seq.
func (m *Manager) HandleAt(k Kind, seq uint32) Handle {
	return m.tables[k].records[seq]
}

// Sequence returns the creation-order position of h within its kind.
func (m *Manager) Sequence(h Handle) uint32 { return m.header(h).seq }

// KindOf returns the kind of the record h.
func (m *Manager) KindOf(h Handle) Kind { return m.header(h).kind }

// Unified returns the back reference set during local unification, or
// Invalid before it.
func (m *Manager) Unified(h Handle) Handle { return m.header(h).unified }

func (m *Manager) setUnified(hdr *header, u Handle) {
	if hdr.unified != Invalid {
		panic(fmt.Sprintf("definitions: %s #%d unified twice", hdr.kind, hdr.seq))
	}
	hdr.unified = u
}

func (m *Manager) header(h Handle) *header {
	if h == Invalid {
		panic("definitions: dereference of invalid handle")
	}
	b := m.mem.Resolve(h, headerSize)
	return (*header)(unsafe.Pointer(&b[0])) //nolint:gosec // records are laid out by intern
}

// record returns the header, payload and tail of h.
func (m *Manager) record(h Handle) (*header, []byte, []byte) {
	hdr := m.header(h)
	d := &descriptors[hdr.kind]
	b := m.mem.Resolve(h, headerSize+d.payloadSize+int(hdr.tailLen))
	return hdr, b[headerSize : headerSize+d.payloadSize], b[headerSize+d.payloadSize:]
}

func (m *Manager) payload(h Handle, k Kind) []byte {
	hdr, p, _ := m.record(h)
	if hdr.kind != k {
		panic(fmt.Sprintf("definitions: %v is a %s, not a %s", h, hdr.kind, k))
	}
	return p
}

func view[T any](b []byte) *T {
	return (*T)(unsafe.Pointer(&b[0])) //nolint:gosec // payload layout matches T
}

func load[T any](m *Manager, h Handle, k Kind) T {
	return *view[T](m.payload(h, k))
}

func bytesOf[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v)) //nolint:gosec // POD payload
}

func getRef(b []byte, off uintptr) Handle {
	return Handle(binary.NativeEndian.Uint64(b[off:]))
}

func putRef(b []byte, off uintptr, h Handle) {
	binary.NativeEndian.PutUint64(b[off:], uint64(h))
}

// intern returns the existing record equal to (payload, tail) or appends a
// new one.
func (m *Manager) intern(k Kind, payload, tail []byte) (Handle, bool) {
	if m.pages == nil {
		panic("definitions: manager is read-only")
	}
	d := &descriptors[k]
	m.checkRefs(k, payload, tail)

	ident := payload[:d.identSize]
	hv := hash.Structural(uint8(k), ident, tail)
	t := &m.tables[k]

	if n := len(t.buckets); n > 0 {
		for h := t.buckets[hv&uint64(n-1)]; h != Invalid; { //nolint:gosec // n > 0
			hdr, p, tl := m.record(h)
			if hdr.hash == hv && bytes.Equal(p[:d.identSize], ident) && bytes.Equal(tl, tail) {
				if d.merge != nil {
					d.merge(p, payload)
				}
				m.observe(k, false)
				return h, false
			}
			h = hdr.next
		}
	}

	seq, err := conv.IntToUint32(len(t.records))
	if err != nil {
		panic(fmt.Sprintf("definitions: %s table full", k))
	}
	tailLen, err := conv.IntToUint32(len(tail))
	if err != nil {
		panic(fmt.Sprintf("definitions: %s tail too large", k))
	}

	size := headerSize + d.payloadSize + len(tail)
	h, err := m.pages.AllocMovable(size)
	if err != nil {
		m.outOfMemory(err)
	}
	b := m.pages.Resolve(h, size)
	hdr := (*header)(unsafe.Pointer(&b[0])) //nolint:gosec // fresh record
	hdr.hash = hv
	hdr.seq = seq
	hdr.tailLen = tailLen
	hdr.kind = k
	copy(b[headerSize:], payload)
	copy(b[headerSize+d.payloadSize:], tail)

	t.records = append(t.records, h)
	m.link(t, h, hdr)
	m.observe(k, true)
	return h, true
}

func (m *Manager) link(t *table, h Handle, hdr *header) {
	if len(t.records) > 2*len(t.buckets) {
		m.rehash(t)
		return
	}
	i := hdr.hash & uint64(len(t.buckets)-1) //nolint:gosec // buckets non-empty here
	hdr.next = t.buckets[i]
	t.buckets[i] = h
}

func (m *Manager) rehash(t *table) {
	n := 16
	for n < len(t.records) {
		n <<= 1
	}
	t.buckets = make([]Handle, n)
	mask := uint64(n - 1) //nolint:gosec // n > 0
	for _, h := range t.records {
		hdr := m.header(h)
		i := hdr.hash & mask
		hdr.next = t.buckets[i]
		t.buckets[i] = h
	}
}

func (m *Manager) observe(k Kind, created bool) {
	if m.opts.observer != nil {
		m.opts.observer(k, created)
	}
}

func (m *Manager) outOfMemory(err error) {
	if m.opts.onOOM != nil {
		m.opts.onOOM(err)
	}
	panic(err)
}

// checkRefs panics unless every reference names a record of the declared
// kind in this manager.
func (m *Manager) checkRefs(k Kind, payload, tail []byte) {
	if err := m.validateRefs(k, payload, tail); err != nil {
		panic(err.Error())
	}
}

func (m *Manager) validateRefs(k Kind, payload, tail []byte) error {
	d := &descriptors[k]
	for _, s := range d.refs {
		if err := m.validateRef(k, getRef(payload, s.offset), s.kind); err != nil {
			return err
		}
	}
	if d.tailRef != KindNone {
		for off := 0; off+8 <= len(tail); off += 8 {
			if err := m.validateRef(k, getRef(tail, uintptr(off)), d.tailRef); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Manager) validateRef(owner Kind, h Handle, want Kind) (err error) {
	if h == Invalid {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s reference %v of %s: %v", ErrDangling, want, h, owner, r)
		}
	}()
	hdr := m.header(h)
	t := &m.tables[want]
	if hdr.kind != want || int(hdr.seq) >= len(t.records) || t.records[hdr.seq] != h {
		return fmt.Errorf("%w: %s reference %v of %s", ErrDangling, want, h, owner)
	}
	return nil
}

// Validate checks every stored reference of every record.
func (m *Manager) Validate() error {
	for k := range m.tables {
		kind := Kind(k) //nolint:gosec // k < numKinds
		for _, h := range m.tables[k].records {
			_, p, tl := m.record(h)
			if err := m.validateRefs(kind, p, tl); err != nil {
				return err
			}
		}
	}
	return nil
}

// Each calls fn for every record of kind k in sequence order.
func (m *Manager) Each(k Kind, fn func(seq uint32, h Handle)) {
	for i, h := range m.tables[k].records {
		fn(uint32(i), h) //nolint:gosec // bounded by intern
	}
}
