package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type batch struct {
	Kind    string   `json:"kind"`
	Rank    int      `json:"rank"`
	Records [][]byte `json:"records"`
	Map     []uint32 `json:"map,omitempty"`
}

func TestCodecs_Interchangeable(t *testing.T) {
	in := batch{
		Kind:    "Region",
		Rank:    3,
		Records: [][]byte{{1, 2, 3}, {}, {0xFF}},
		Map:     []uint32{0, 4, 2},
	}

	for _, enc := range []Codec{JSON{}, GoJSON{}} {
		for _, dec := range []Codec{JSON{}, GoJSON{}} {
			t.Run(enc.Name()+"->"+dec.Name(), func(t *testing.T) {
				data, err := enc.Marshal(in)
				require.NoError(t, err)

				var out batch
				require.NoError(t, dec.Unmarshal(data, &out))
				assert.Equal(t, in.Kind, out.Kind)
				assert.Equal(t, in.Rank, out.Rank)
				assert.Equal(t, in.Map, out.Map)
				require.Len(t, out.Records, 3)
				assert.Equal(t, []byte{1, 2, 3}, out.Records[0])
				assert.Equal(t, []byte{0xFF}, out.Records[2])
			})
		}
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "go-json"} {
		c, ok := ByName(name)
		require.True(t, ok)
		assert.Equal(t, name, c.Name())
	}
	c, ok := ByName("")
	require.True(t, ok)
	assert.Equal(t, Default.Name(), c.Name())

	_, ok = ByName("gob")
	assert.False(t, ok)
	assert.Panics(t, func() { Must("gob") })
}
