package definitions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyTo_AllKinds(t *testing.T) {
	src, _ := newTestManager(t)
	dst, _ := newTestManager(t)
	populate(src, "r0")

	maps := make(map[Kind][]uint32)
	for _, k := range Kinds() {
		maps[k] = src.CopyTo(dst, k)
		assert.Len(t, maps[k], src.Count(k))
	}
	require.NoError(t, dst.Validate())

	for _, k := range Kinds() {
		assert.Equal(t, src.Count(k), dst.Count(k), "kind %s", k)
		src.Each(k, func(seq uint32, h Handle) {
			u := src.Unified(h)
			require.NotEqual(t, Invalid, u)
			assert.Equal(t, maps[k][seq], dst.Sequence(u))
		})
	}

	cp := CallpathHandle(src.HandleAt(KindCallpath, 1))
	ucp := CallpathHandle(src.Unified(Handle(cp)))
	assert.Equal(t, "r0_work", dst.RegionName(dst.Callpath(ucp).Region))
	assert.Equal(t, int64(7), dst.Callpath(ucp).Value)
}

func TestCopyTo_MergesTwoSources(t *testing.T) {
	a, _ := newTestManager(t)
	b, _ := newTestManager(t)
	dst, _ := newTestManager(t)

	a.NewString("main")
	a.NewRegion(RegionSpec{Name: "main", File: "a.c"})
	rb := b.NewRegion(RegionSpec{Name: "main", File: "a.c"})
	b.NewString("main")

	for _, k := range Kinds() {
		a.CopyTo(dst, k)
		b.CopyTo(dst, k)
	}
	assert.Equal(t, 1, dst.Count(KindRegion))
	assert.Equal(t, 3, dst.Count(KindString)) // "main", "a.c", ""
	assert.Equal(t, uint32(0), dst.Sequence(b.Unified(Handle(rb))))
}

func TestExportImport(t *testing.T) {
	src, _ := newTestManager(t)
	dst, _ := newTestManager(t)
	populate(src, "r1")

	identity := func(_ Kind, seq uint32) uint32 { return seq }
	for _, k := range Kinds() {
		recs := src.Export(k, identity)
		seqs, err := dst.Import(k, recs)
		require.NoError(t, err)
		for i, s := range seqs {
			assert.Equal(t, uint32(i), s, "kind %s", k)
		}
	}
	require.NoError(t, dst.Validate())

	for _, k := range Kinds() {
		assert.Equal(t, src.Count(k), dst.Count(k))
	}
	ss := SamplingSetHandle(dst.HandleAt(KindSamplingSet, 0))
	metrics := dst.SamplingSetMetrics(ss)
	require.Len(t, metrics, 2)
	assert.Equal(t, "r1_instructions", dst.StringValue(dst.Metric(metrics[1]).Name))
}

func TestImport_Rejects(t *testing.T) {
	dst, _ := newTestManager(t)

	_, err := dst.Import(KindSourceFile, []Record{{Payload: make([]byte, 3)}})
	assert.Error(t, err)

	// Name refers to global string #0, which dst does not have.
	p := make([]byte, 8)
	putRef(p, 0, 1)
	_, err = dst.Import(KindSourceFile, []Record{{Payload: p}})
	assert.ErrorIs(t, err, ErrDangling)

	// Parent refers forward to the record itself.
	dst.NewString("x")
	cp := make([]byte, 32)
	putRef(cp, 0, 1)
	_, err = dst.Import(KindCallpath, []Record{{Payload: cp}})
	assert.ErrorIs(t, err, ErrDangling)
}
