package compress

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	compressible := bytes.Repeat([]byte("region main callpath "), 200)
	random := make([]byte, 4096)
	_, _ = rand.Read(random)

	for _, algo := range []Type{None, LZ4, ZSTD} {
		t.Run(algo.String(), func(t *testing.T) {
			for _, data := range [][]byte{compressible, random, {}} {
				block, err := Encode(data, algo)
				require.NoError(t, err)

				got, err := Decode(block)
				require.NoError(t, err)
				assert.Equal(t, len(data), len(got))
				assert.True(t, bytes.Equal(data, got))
			}
		})
	}
}

func TestEncode_Shrinks(t *testing.T) {
	data := bytes.Repeat([]byte{1, 2, 3, 4}, 4096)
	for _, algo := range []Type{LZ4, ZSTD} {
		block, err := Encode(data, algo)
		require.NoError(t, err)
		assert.Less(t, len(block), len(data)/2)
		assert.Equal(t, byte(algo), block[0])
	}
}

func TestEncode_IncompressibleStoredRaw(t *testing.T) {
	data := make([]byte, 1024)
	_, _ = rand.Read(data)

	block, err := Encode(data, ZSTD)
	require.NoError(t, err)
	assert.Equal(t, byte(None), block[0])
	assert.Len(t, block, headerSize+len(data))
}

func TestDecode_Corrupt(t *testing.T) {
	_, err := Decode([]byte{1, 2})
	assert.ErrorIs(t, err, ErrCorrupt)

	block, err := Encode(bytes.Repeat([]byte("x"), 512), LZ4)
	require.NoError(t, err)
	_, err = Decode(block[:len(block)-1])
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestParse(t *testing.T) {
	for _, algo := range []Type{None, LZ4, ZSTD} {
		got, err := Parse(algo.String())
		require.NoError(t, err)
		assert.Equal(t, algo, got)
	}
	_, err := Parse("snappy")
	assert.Error(t, err)
}
