package ipc

import (
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/scoredef/codec"
	"github.com/hupe1980/scoredef/internal/compress"
	"github.com/hupe1980/scoredef/internal/hash"
)

// Framer turns values into checksummed, compressed frames.
//
// Frame layout: [crc32c u32][compressed block]. The checksum covers the
// block.
type Framer struct {
	Codec       codec.Codec
	Compression compress.Type
}

func (f Framer) codec() codec.Codec {
	if f.Codec == nil {
		return codec.Default
	}
	return f.Codec
}

// Encode marshals v into a frame.
func (f Framer) Encode(v any) ([]byte, error) {
	raw, err := f.codec().Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("ipc: encode frame: %w", err)
	}
	block, err := compress.Encode(raw, f.Compression)
	if err != nil {
		return nil, fmt.Errorf("ipc: compress frame: %w", err)
	}
	out := make([]byte, 4+len(block))
	binary.LittleEndian.PutUint32(out, hash.CRC32C(block))
	copy(out[4:], block)
	return out, nil
}

// Decode verifies frame and unmarshals it into v.
func (f Framer) Decode(frame []byte, v any) error {
	if len(frame) < 4 {
		return fmt.Errorf("%w: short frame", ErrChecksum)
	}
	block := frame[4:]
	if binary.LittleEndian.Uint32(frame) != hash.CRC32C(block) {
		return ErrChecksum
	}
	raw, err := compress.Decode(block)
	if err != nil {
		return fmt.Errorf("ipc: decompress frame: %w", err)
	}
	if err := f.codec().Unmarshal(raw, v); err != nil {
		return fmt.Errorf("ipc: decode frame: %w", err)
	}
	return nil
}
