package unify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/scoredef/allocator"
	"github.com/hupe1980/scoredef/definitions"
)

type rankSetup struct {
	alloc  *allocator.Allocator
	procPM *allocator.PageManager
	proc   *definitions.Manager
	locs   []Source
}

func newRank(t *testing.T, locations int) *rankSetup {
	t.Helper()
	a, err := allocator.New(1<<20, 4096)
	require.NoError(t, err)
	pm, err := a.NewPageManager()
	require.NoError(t, err)

	r := &rankSetup{alloc: a, procPM: pm, proc: definitions.New(pm)}
	for i := 0; i < locations; i++ {
		lpm, err := a.NewPageManager()
		require.NoError(t, err)
		r.locs = append(r.locs, Source{Pages: lpm, Definitions: definitions.New(lpm)})
	}
	return r
}

func (r *rankSetup) input() Input {
	return Input{Allocator: r.alloc, Process: r.proc, Locations: r.locs}
}

func (r *rankSetup) close(t *testing.T, res *Result) {
	t.Helper()
	if res != nil {
		res.Close()
	}
	for _, l := range r.locs {
		l.Pages.Delete()
	}
	r.procPM.Delete()
	require.NoError(t, r.alloc.Close())
}

// stringTable returns the string table of m in sequence order.
func stringTable(m *definitions.Manager) []string {
	var out []string
	m.Each(definitions.KindString, func(_ uint32, h definitions.Handle) {
		out = append(out, m.StringValue(definitions.StringHandle(h)))
	})
	return out
}

func countString(m *definitions.Manager, s string) int {
	n := 0
	for _, v := range stringTable(m) {
		if v == s {
			n++
		}
	}
	return n
}
