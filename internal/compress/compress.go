package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type identifies a block compression algorithm.
type Type uint8

const (
	// None stores blocks verbatim.
	None Type = 0
	// LZ4 is fast block compression, used for collective frames.
	LZ4 Type = 1
	// ZSTD trades speed for ratio, used for archives.
	ZSTD Type = 2
)

// String returns the stable name of t.
func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compress(%d)", uint8(t))
	}
}

// Parse maps a stable name back to a Type.
func Parse(name string) (Type, error) {
	switch name {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return ZSTD, nil
	default:
		return None, fmt.Errorf("compress: unknown algorithm %q", name)
	}
}

var (
	// ErrCorrupt is returned for truncated or inconsistent blocks.
	ErrCorrupt = errors.New("compress: corrupt block")
)

// Block format: [algo u8][uncompressed u32][compressed u32][data...].
// compressed == 0 means data is stored raw.
const headerSize = 9

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Encode compresses data with t and prepends a self-describing header. Blocks
// that do not shrink below 90% are stored raw.
func Encode(data []byte, t Type) ([]byte, error) {
	var packed []byte
	switch t {
	case None:
	case LZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		packed = buf[:n]
	case ZSTD:
		enc := getZstdEncoder()
		packed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("compress: unknown algorithm %d", uint8(t))
	}

	if len(packed) == 0 || float64(len(packed)) > float64(len(data))*0.9 {
		out := make([]byte, headerSize+len(data))
		out[0] = byte(None)
		binary.LittleEndian.PutUint32(out[1:], uint32(len(data))) //nolint:gosec // frames are bounded by the arena size
		copy(out[headerSize:], data)
		return out, nil
	}

	out := make([]byte, headerSize+len(packed))
	out[0] = byte(t)
	binary.LittleEndian.PutUint32(out[1:], uint32(len(data)))   //nolint:gosec // frames are bounded by the arena size
	binary.LittleEndian.PutUint32(out[5:], uint32(len(packed))) //nolint:gosec // frames are bounded by the arena size
	copy(out[headerSize:], packed)
	return out, nil
}

// Decode reverses Encode.
func Decode(block []byte) ([]byte, error) {
	if len(block) < headerSize {
		return nil, ErrCorrupt
	}
	algo := Type(block[0])
	rawSize := binary.LittleEndian.Uint32(block[1:])
	packedSize := binary.LittleEndian.Uint32(block[5:])
	body := block[headerSize:]

	if packedSize == 0 {
		if uint32(len(body)) < rawSize { //nolint:gosec // len is non-negative
			return nil, ErrCorrupt
		}
		return body[:rawSize], nil
	}
	if uint32(len(body)) < packedSize { //nolint:gosec // len is non-negative
		return nil, ErrCorrupt
	}
	body = body[:packedSize]

	out := make([]byte, rawSize)
	switch algo {
	case LZ4:
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if uint32(n) != rawSize { //nolint:gosec // n is non-negative
			return nil, ErrCorrupt
		}
		return out, nil
	case ZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		decoded, err := dec.DecodeAll(body, out[:0])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if uint32(len(decoded)) != rawSize { //nolint:gosec // len is non-negative
			return nil, ErrCorrupt
		}
		return decoded, nil
	default:
		return nil, ErrCorrupt
	}
}
