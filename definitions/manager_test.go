package definitions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/scoredef/allocator"
)

func newTestManager(t *testing.T, opts ...Option) (*Manager, *allocator.PageManager) {
	t.Helper()
	a, err := allocator.New(1<<20, 4096)
	require.NoError(t, err)
	pm, err := a.NewPageManager()
	require.NoError(t, err)
	t.Cleanup(func() {
		pm.Delete()
		_ = a.Close()
	})
	return New(pm, opts...), pm
}

func TestNewString_Dedup(t *testing.T) {
	m, _ := newTestManager(t)

	x1 := m.NewString("x")
	x2 := m.NewString("x")
	y := m.NewString("y")

	assert.Equal(t, x1, x2)
	assert.Equal(t, m.Sequence(Handle(x1)), m.Sequence(Handle(x2)))
	assert.NotEqual(t, x1, y)
	assert.Equal(t, 2, m.Count(KindString))
	assert.Equal(t, "x", m.StringValue(x1))
	assert.Equal(t, "y", m.StringValue(y))
}

func TestNewString_Empty(t *testing.T) {
	m, _ := newTestManager(t)

	e := m.NewString("")
	assert.Equal(t, e, m.NewString(""))
	assert.Equal(t, "", m.StringValue(e))
	assert.Equal(t, uint32(0), m.Sequence(Handle(e)))
}

func TestSequenceNumbers_CreationOrder(t *testing.T) {
	m, _ := newTestManager(t)

	for i, s := range []string{"a", "b", "c", "a", "d"} {
		h := m.NewString(s)
		if i < 3 {
			assert.Equal(t, uint32(i), m.Sequence(Handle(h)))
		}
	}
	assert.Equal(t, 4, m.Count(KindString))
	assert.Equal(t, "d", m.StringValue(StringHandle(m.HandleAt(KindString, 3))))
}

func TestManyStrings_Rehash(t *testing.T) {
	m, _ := newTestManager(t)

	handles := make([]StringHandle, 2000)
	for i := range handles {
		handles[i] = m.NewString(string(rune('a'+i%26)) + string(rune('0'+i/26%10)) + string(rune(i)))
	}
	for i := range handles {
		s := m.StringValue(handles[i])
		assert.Equal(t, handles[i], m.NewString(s))
	}
	require.NoError(t, m.Validate())
}

func TestNewRegion(t *testing.T) {
	m, _ := newTestManager(t)

	r1 := m.NewRegion(RegionSpec{Name: "main", File: "a.c", BeginLine: 1, EndLine: 20, Type: RegionFunction})
	r2 := m.NewRegion(RegionSpec{Name: "main", File: "a.c", BeginLine: 1, EndLine: 20, Type: RegionFunction})
	r3 := m.NewRegion(RegionSpec{Name: "main", File: "b.c", BeginLine: 1, EndLine: 20, Type: RegionFunction})
	assert.Equal(t, r1, r2)
	assert.NotEqual(t, r1, r3)

	def := m.Region(r1)
	assert.Equal(t, "main", m.StringValue(def.Name))
	assert.Equal(t, def.Name, def.CanonicalName)
	assert.Equal(t, "a.c", m.StringValue(m.SourceFile(def.File).Name))
	assert.Equal(t, uint32(20), def.EndLine)
	assert.Equal(t, "main", m.RegionName(r1))
}

func TestNewRegion_Defaults(t *testing.T) {
	m, _ := newTestManager(t)

	r := m.NewRegion(RegionSpec{})
	def := m.Region(r)
	assert.Equal(t, UnknownRegion, m.StringValue(def.Name))
	assert.Equal(t, UnknownRegion, m.StringValue(def.CanonicalName))
	assert.Equal(t, SourceFileHandle(Invalid), def.File)
}

func TestNewGroup_MembersAreIdentity(t *testing.T) {
	m, _ := newTestManager(t)

	g1 := m.NewGroup(GroupCommLocations, "world", []uint64{0, 1, 2})
	g2 := m.NewGroup(GroupCommLocations, "world", []uint64{0, 1, 2})
	g3 := m.NewGroup(GroupCommLocations, "world", []uint64{0, 2})

	assert.Equal(t, g1, g2)
	assert.NotEqual(t, g1, g3)
	assert.Equal(t, []uint64{0, 1, 2}, m.GroupMembers(g1))
	assert.Equal(t, []uint64{0, 2}, m.GroupMembers(g3))
	assert.Empty(t, m.GroupMembers(m.NewGroup(GroupCommSelf, "self", nil)))
}

func TestNewAttribute_DescriptionNotIdentity(t *testing.T) {
	m, _ := newTestManager(t)

	a1 := m.NewAttribute("bytes", "first", AttributeUint64)
	a2 := m.NewAttribute("bytes", "second", AttributeUint64)
	a3 := m.NewAttribute("bytes", "first", AttributeInt64)

	assert.Equal(t, a1, a2)
	assert.NotEqual(t, a1, a3)
	assert.Equal(t, "first", m.StringValue(m.Attribute(a2).Description))
}

func TestNewProperty_Merge(t *testing.T) {
	t.Run("all", func(t *testing.T) {
		m, _ := newTestManager(t)
		p := m.NewProperty(PropertyMPICommunicationComplete, PropertyConditionAll, true, false)
		assert.True(t, m.Property(p).Value())

		p2 := m.NewProperty(PropertyMPICommunicationComplete, PropertyConditionAll, true, true)
		assert.Equal(t, p, p2)
		assert.False(t, m.Property(p).Value())

		m.NewProperty(PropertyMPICommunicationComplete, PropertyConditionAll, true, false)
		assert.False(t, m.Property(p).Value())
	})

	t.Run("any", func(t *testing.T) {
		m, _ := newTestManager(t)
		p := m.NewProperty(PropertyPthreadLocationReused, PropertyConditionAny, false, true)
		assert.True(t, m.Property(p).Value())

		m.NewProperty(PropertyPthreadLocationReused, PropertyConditionAny, false, false)
		assert.False(t, m.Property(p).Value())
		assert.Equal(t, 1, m.Count(KindProperty))
	})
}

func TestCallpath_Tree(t *testing.T) {
	m, _ := newTestManager(t)

	main := m.NewRegion(RegionSpec{Name: "main"})
	foo := m.NewRegion(RegionSpec{Name: "foo"})
	param := m.NewParameter("n", ParameterInt64)

	root := m.NewCallpath(CallpathHandle(Invalid), main, ParameterHandle(Invalid), 0)
	child := m.NewCallpath(root, foo, param, 42)
	assert.Equal(t, child, m.NewCallpath(root, foo, param, 42))
	assert.NotEqual(t, child, m.NewCallpath(root, foo, param, 43))

	def := m.Callpath(child)
	assert.Equal(t, root, def.Parent)
	assert.Equal(t, foo, def.Region)
	assert.Equal(t, int64(42), def.Value)
	require.NoError(t, m.Validate())
}

func TestSamplingSet(t *testing.T) {
	m, _ := newTestManager(t)

	cycles := m.NewMetric(MetricSpec{Name: "PAPI_TOT_CYC", Unit: "#"})
	instr := m.NewMetric(MetricSpec{Name: "PAPI_TOT_INS", Unit: "#"})

	s := m.NewSamplingSet(OccurrenceSynchronousStrict, SamplingSetCPU, cycles, instr)
	assert.Equal(t, s, m.NewSamplingSet(OccurrenceSynchronousStrict, SamplingSetCPU, cycles, instr))
	assert.NotEqual(t, s, m.NewSamplingSet(OccurrenceSynchronousStrict, SamplingSetCPU, instr, cycles))
	assert.Equal(t, []MetricHandle{cycles, instr}, m.SamplingSetMetrics(s))
}

func TestAllKinds_Constructors(t *testing.T) {
	m, _ := newTestManager(t)
	populate(m, "r0")

	for _, k := range Kinds() {
		assert.Positive(t, m.Count(k), "kind %s", k)
	}
	require.NoError(t, m.Validate())

	node := SystemTreeNodeHandle(m.HandleAt(KindSystemTreeNode, 1))
	assert.Equal(t, "node", m.StringValue(m.SystemTreeNode(node).Class))
	loc := LocationHandle(m.HandleAt(KindLocation, 0))
	assert.Equal(t, "main thread", m.StringValue(m.Location(loc).Name))
	assert.Equal(t, KindLocation, m.KindOf(Handle(loc)))
}

func TestForeignReference_Panics(t *testing.T) {
	a, err := allocator.New(1<<20, 4096)
	require.NoError(t, err)
	pm1, err := a.NewPageManager()
	require.NoError(t, err)
	pm2, err := a.NewPageManager()
	require.NoError(t, err)
	defer func() {
		pm1.Delete()
		pm2.Delete()
		_ = a.Close()
	}()

	m1, m2 := New(pm1), New(pm2)
	name := m1.NewString("main")
	foreign := m1.NewSourceFile("a.c")
	comm := m2.NewCommunicator(GroupHandle(Invalid), "w", CommunicatorHandle(Invalid))

	assert.Panics(t, func() { m2.NewRmaWindow("w", CommunicatorHandle(foreign)) })
	assert.NotPanics(t, func() { m2.NewRmaWindow("w", comm) })

	// Right manager, wrong kind.
	assert.Panics(t, func() { m1.NewCallpath(CallpathHandle(Invalid), RegionHandle(name), ParameterHandle(Invalid), 0) })
}

func TestObserver(t *testing.T) {
	created, hits := 0, 0
	m, _ := newTestManager(t, WithObserver(func(_ Kind, isNew bool) {
		if isNew {
			created++
		} else {
			hits++
		}
	}))

	m.NewString("a")
	m.NewString("a")
	m.NewSourceFile("a")
	assert.Equal(t, 2, created)
	assert.Equal(t, 2, hits)
}

func TestOutOfMemory(t *testing.T) {
	a, err := allocator.New(4096, 4096)
	require.NoError(t, err)
	pm, err := a.NewPageManager()
	require.NoError(t, err)
	defer func() {
		pm.Delete()
		_ = a.Close()
	}()

	calls := 0
	m := New(pm, WithOutOfMemory(func(error) { calls++ }))

	assert.Panics(t, func() {
		for i := 0; ; i++ {
			m.NewString(string(make([]byte, 100+i)))
		}
	})
	assert.Equal(t, 1, calls)
}

func TestReadOnlyAfterRebind(t *testing.T) {
	m, pm := newTestManager(t)
	s := m.NewString("x")

	m.Rebind(pm)
	assert.True(t, m.ReadOnly())
	assert.Equal(t, "x", m.StringValue(s))
	assert.PanicsWithValue(t, "definitions: manager is read-only", func() { m.NewString("y") })
}

func TestUnifiedWriteOnce(t *testing.T) {
	m, _ := newTestManager(t)
	dst, _ := newTestManager(t)

	m.NewString("a")
	m.CopyTo(dst, KindString)
	assert.Panics(t, func() { m.CopyTo(dst, KindString) })
}
