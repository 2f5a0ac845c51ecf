package resource

import (
	"context"
	"errors"
	"io"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrBudgetExceeded is returned when a reservation would exceed the memory budget.
var ErrBudgetExceeded = errors.New("resource: memory budget exceeded")

// Config holds process-wide limits.
type Config struct {
	// MemoryBudget caps the bytes reserved by all allocator arenas in the
	// process. Zero means track only.
	MemoryBudget int64

	// ArchiveWorkers bounds concurrent archive uploads. Defaults to 1.
	ArchiveWorkers int64

	// IOBytesPerSec throttles archive writes. Zero means unlimited.
	IOBytesPerSec int64
}

// Controller governs memory reservations, archive concurrency and archive IO.
// A nil *Controller is valid and imposes no limits.
type Controller struct {
	cfg Config

	budget   *semaphore.Weighted
	reserved atomic.Int64

	workers *semaphore.Weighted
	io      *rate.Limiter
}

// NewController creates a controller for cfg.
func NewController(cfg Config) *Controller {
	if cfg.ArchiveWorkers <= 0 {
		cfg.ArchiveWorkers = 1
	}

	c := &Controller{
		cfg:     cfg,
		workers: semaphore.NewWeighted(cfg.ArchiveWorkers),
	}
	if cfg.MemoryBudget > 0 {
		c.budget = semaphore.NewWeighted(cfg.MemoryBudget)
	}
	if cfg.IOBytesPerSec > 0 {
		c.io = rate.NewLimiter(rate.Limit(cfg.IOBytesPerSec), int(cfg.IOBytesPerSec))
	}
	return c
}

// Reserve claims n bytes of the memory budget without blocking.
func (c *Controller) Reserve(n int64) error {
	if c == nil || n <= 0 {
		return nil
	}
	if c.budget != nil && !c.budget.TryAcquire(n) {
		return ErrBudgetExceeded
	}
	c.reserved.Add(n)
	return nil
}

// Release returns n bytes to the memory budget.
func (c *Controller) Release(n int64) {
	if c == nil || n <= 0 {
		return
	}
	if c.budget != nil {
		c.budget.Release(n)
	}
	c.reserved.Add(-n)
}

// Reserved reports the bytes currently reserved.
func (c *Controller) Reserved() int64 {
	if c == nil {
		return 0
	}
	return c.reserved.Load()
}

// Budget reports the configured budget (0 if unlimited).
func (c *Controller) Budget() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryBudget
}

// AcquireWorker blocks until an archive worker slot is free.
func (c *Controller) AcquireWorker(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.workers.Acquire(ctx, 1)
}

// TryAcquireWorker claims a worker slot without blocking.
func (c *Controller) TryAcquireWorker() bool {
	if c == nil {
		return true
	}
	return c.workers.TryAcquire(1)
}

// ReleaseWorker frees a worker slot.
func (c *Controller) ReleaseWorker() {
	if c == nil {
		return
	}
	c.workers.Release(1)
}

// WaitIO blocks until n bytes of IO are permitted.
func (c *Controller) WaitIO(ctx context.Context, n int) error {
	if c == nil || c.io == nil || n <= 0 {
		return nil
	}
	// Large writes are paced in burst-sized steps.
	burst := c.io.Burst()
	for n > 0 {
		step := min(n, burst)
		if err := c.io.WaitN(ctx, step); err != nil {
			return err
		}
		n -= step
	}
	return nil
}

type throttledWriter struct {
	ctx context.Context
	w   io.Writer
	c   *Controller
}

// NewThrottledWriter wraps w so every write first waits for IO tokens.
func NewThrottledWriter(ctx context.Context, w io.Writer, c *Controller) io.Writer {
	if c == nil || c.io == nil {
		return w
	}
	return &throttledWriter{ctx: ctx, w: w, c: c}
}

func (t *throttledWriter) Write(p []byte) (int, error) {
	if err := t.c.WaitIO(t.ctx, len(p)); err != nil {
		return 0, err
	}
	return t.w.Write(p)
}
