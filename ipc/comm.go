package ipc

import (
	"context"
	"errors"
)

var (
	// ErrChecksum is returned when a frame fails its CRC32C check.
	ErrChecksum = errors.New("ipc: frame checksum mismatch")
	// ErrBadRoot is returned for a root rank outside the communicator.
	ErrBadRoot = errors.New("ipc: root rank out of range")
	// ErrPartCount is returned when Scatter gets the wrong number of parts.
	ErrPartCount = errors.New("ipc: scatter part count does not match size")
)

// Comm is the collective-exchange interface. Every rank must call the same
// collectives in the same order; a rank that never arrives blocks the others
// until their context ends.
type Comm interface {
	// Rank returns this process's rank in [0, Size).
	Rank() int
	// Size returns the number of ranks.
	Size() int
	// Barrier returns once every rank has entered it.
	Barrier(ctx context.Context) error
	// Gather collects data from every rank at root, in rank order. Non-root
	// ranks receive nil.
	Gather(ctx context.Context, root int, data []byte) ([][]byte, error)
	// Scatter sends parts[i] from root to rank i. parts is ignored on
	// non-root ranks.
	Scatter(ctx context.Context, root int, parts [][]byte) ([]byte, error)
	// Bcast distributes root's data to every rank.
	Bcast(ctx context.Context, root int, data []byte) ([]byte, error)
	// Allgather gives every rank every rank's data, in rank order.
	Allgather(ctx context.Context, data []byte) ([][]byte, error)
}

type single struct{}

// Single returns the communicator of a non-distributed run.
func Single() Comm { return single{} }

func (single) Rank() int { return 0 }
func (single) Size() int { return 1 }

func (single) Barrier(ctx context.Context) error { return ctx.Err() }

func (single) Gather(ctx context.Context, root int, data []byte) ([][]byte, error) {
	if root != 0 {
		return nil, ErrBadRoot
	}
	return [][]byte{data}, ctx.Err()
}

func (single) Scatter(ctx context.Context, root int, parts [][]byte) ([]byte, error) {
	if root != 0 {
		return nil, ErrBadRoot
	}
	if len(parts) != 1 {
		return nil, ErrPartCount
	}
	return parts[0], ctx.Err()
}

func (single) Bcast(ctx context.Context, root int, data []byte) ([]byte, error) {
	if root != 0 {
		return nil, ErrBadRoot
	}
	return data, ctx.Err()
}

func (single) Allgather(ctx context.Context, data []byte) ([][]byte, error) {
	return [][]byte{data}, ctx.Err()
}
