package ipc

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// World is an in-process transport connecting k ranks through channels.
type World struct {
	size  int
	inbox [][]chan [][]byte // inbox[to][from]
}

// NewWorld creates a world of k ranks.
func NewWorld(k int) *World {
	if k < 1 {
		panic(fmt.Sprintf("ipc: world size %d", k))
	}
	w := &World{size: k, inbox: make([][]chan [][]byte, k)}
	for to := range w.inbox {
		w.inbox[to] = make([]chan [][]byte, k)
		for from := range w.inbox[to] {
			w.inbox[to][from] = make(chan [][]byte)
		}
	}
	return w
}

// Size returns the number of ranks.
func (w *World) Size() int { return w.size }

// Comm returns the communicator of rank.
func (w *World) Comm(rank int) Comm {
	if rank < 0 || rank >= w.size {
		panic(fmt.Sprintf("ipc: rank %d outside world of %d", rank, w.size))
	}
	return &worldComm{w: w, rank: rank}
}

// Run executes fn once per rank of a fresh k-rank world and waits for all of
// them. The first error cancels the context passed to the other ranks.
func Run(ctx context.Context, k int, fn func(ctx context.Context, comm Comm) error) error {
	w := NewWorld(k)
	g, gctx := errgroup.WithContext(ctx)
	for r := 0; r < k; r++ {
		comm := w.Comm(r)
		g.Go(func() error {
			if err := fn(gctx, comm); err != nil {
				return fmt.Errorf("rank %d: %w", comm.Rank(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

type worldComm struct {
	w    *World
	rank int
}

func (c *worldComm) Rank() int { return c.rank }
func (c *worldComm) Size() int { return c.w.size }

func (c *worldComm) send(ctx context.Context, to int, msg [][]byte) error {
	cp := make([][]byte, len(msg))
	for i, b := range msg {
		if b != nil {
			cp[i] = append([]byte{}, b...)
		}
	}
	select {
	case c.w.inbox[to][c.rank] <- cp:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *worldComm) recv(ctx context.Context, from int) ([][]byte, error) {
	select {
	case msg := <-c.w.inbox[c.rank][from]:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *worldComm) checkRoot(root int) error {
	if root < 0 || root >= c.w.size {
		return fmt.Errorf("%w: %d", ErrBadRoot, root)
	}
	return nil
}

func (c *worldComm) Barrier(ctx context.Context) error {
	if _, err := c.Gather(ctx, 0, nil); err != nil {
		return err
	}
	_, err := c.Bcast(ctx, 0, nil)
	return err
}

func (c *worldComm) Gather(ctx context.Context, root int, data []byte) ([][]byte, error) {
	if err := c.checkRoot(root); err != nil {
		return nil, err
	}
	if c.rank != root {
		return nil, c.send(ctx, root, [][]byte{data})
	}
	out := make([][]byte, c.w.size)
	for from := 0; from < c.w.size; from++ {
		if from == root {
			out[from] = data
			continue
		}
		msg, err := c.recv(ctx, from)
		if err != nil {
			return nil, err
		}
		out[from] = msg[0]
	}
	return out, nil
}

func (c *worldComm) Scatter(ctx context.Context, root int, parts [][]byte) ([]byte, error) {
	if err := c.checkRoot(root); err != nil {
		return nil, err
	}
	if c.rank != root {
		msg, err := c.recv(ctx, root)
		if err != nil {
			return nil, err
		}
		return msg[0], nil
	}
	if len(parts) != c.w.size {
		return nil, fmt.Errorf("%w: %d parts for %d ranks", ErrPartCount, len(parts), c.w.size)
	}
	for to := 0; to < c.w.size; to++ {
		if to == root {
			continue
		}
		if err := c.send(ctx, to, [][]byte{parts[to]}); err != nil {
			return nil, err
		}
	}
	return parts[root], nil
}

func (c *worldComm) Bcast(ctx context.Context, root int, data []byte) ([]byte, error) {
	if err := c.checkRoot(root); err != nil {
		return nil, err
	}
	if c.rank != root {
		msg, err := c.recv(ctx, root)
		if err != nil {
			return nil, err
		}
		return msg[0], nil
	}
	for to := 0; to < c.w.size; to++ {
		if to == root {
			continue
		}
		if err := c.send(ctx, to, [][]byte{data}); err != nil {
			return nil, err
		}
	}
	return data, nil
}

func (c *worldComm) Allgather(ctx context.Context, data []byte) ([][]byte, error) {
	parts, err := c.Gather(ctx, 0, data)
	if err != nil {
		return nil, err
	}
	if c.rank != 0 {
		return c.recv(ctx, 0)
	}
	for to := 1; to < c.w.size; to++ {
		if err := c.send(ctx, to, parts); err != nil {
			return nil, err
		}
	}
	return parts, nil
}
