package conv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntToUint32(t *testing.T) {
	t.Run("valid zero", func(t *testing.T) {
		got, err := IntToUint32(0)
		assert.NoError(t, err)
		assert.Equal(t, uint32(0), got)
	})

	t.Run("invalid negative", func(t *testing.T) {
		_, err := IntToUint32(-1)
		assert.Error(t, err)
	})

	t.Run("valid max int32", func(t *testing.T) {
		got, err := IntToUint32(math.MaxInt32)
		assert.NoError(t, err)
		assert.Equal(t, uint32(math.MaxInt32), got)
	})
}

func TestUint64ToUint32(t *testing.T) {
	_, err := Uint64ToUint32(math.MaxUint32 + 1)
	assert.Error(t, err)

	got, err := Uint64ToUint32(42)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), got)
}

func TestFitsBits(t *testing.T) {
	assert.True(t, FitsBits(0, 1))
	assert.True(t, FitsBits(255, 8))
	assert.False(t, FitsBits(256, 8))
	assert.True(t, FitsBits(math.MaxUint64, 64))
}

func TestLog2(t *testing.T) {
	tests := []struct {
		in   int
		want uint
		err  bool
	}{
		{in: 1, want: 0},
		{in: 4096, want: 12},
		{in: 8192, want: 13},
		{in: 0, err: true},
		{in: 3000, err: true},
		{in: -8, err: true},
	}

	for _, tt := range tests {
		got, err := Log2(tt.in)
		if tt.err {
			assert.Error(t, err, "Log2(%d)", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
