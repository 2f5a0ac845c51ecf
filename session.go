package scoredef

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/scoredef/allocator"
	"github.com/hupe1980/scoredef/archive"
	"github.com/hupe1980/scoredef/blobstore"
	"github.com/hupe1980/scoredef/codec"
	"github.com/hupe1980/scoredef/config"
	"github.com/hupe1980/scoredef/definitions"
	"github.com/hupe1980/scoredef/internal/compress"
	"github.com/hupe1980/scoredef/internal/resource"
	"github.com/hupe1980/scoredef/ipc"
	"github.com/hupe1980/scoredef/unify"
)

// Session is one measurement: an arena, the process-wide definitions and the
// locations that record into it. It replaces process-global state; every
// subsystem receives the session it belongs to.
type Session struct {
	cfg    config.Config
	opts   options
	runID  string
	logger *Logger

	alloc  *allocator.Allocator
	ctrl   *resource.Controller
	procPM *allocator.PageManager
	miscPM *allocator.PageManager
	proc   *definitions.Manager

	codec       codec.Codec
	compression compress.Type

	mu        sync.Mutex
	locations []*Location
	result    *unify.Result
	comm      ipc.Comm
	started   bool // Unify was called
	unifying  bool
	closed    bool

	// miscMu serializes AllocMisc; page managers are single-writer.
	miscMu sync.Mutex

	fatalOnce sync.Once
	failed    atomic.Bool
}

// Start validates cfg, maps the arena and creates the process-wide
// definition manager.
func Start(cfg config.Config, optFns ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.fatal == nil {
		opts.fatal = exitFatal
	}

	c, _ := codec.ByName(cfg.Codec)
	comp, _ := compress.Parse(cfg.Compression)

	s := &Session{
		cfg:         cfg,
		opts:        opts,
		runID:       uuid.NewString(),
		codec:       c,
		compression: comp,
		ctrl: resource.NewController(resource.Config{
			MemoryBudget:   opts.memoryBudget,
			ArchiveWorkers: int64(cfg.Archive.Workers),
			IOBytesPerSec:  cfg.Archive.IOLimit,
		}),
	}
	s.logger = opts.logger.WithRunID(s.runID)

	alloc, err := allocator.New(int(cfg.TotalMemory), int(cfg.PageSize),
		allocator.WithGuard(&sync.Mutex{}),
		allocator.WithMemoryAcquirer(s.ctrl),
		allocator.WithHandleChecks(cfg.HandleChecks),
		allocator.WithObserver(func(st allocator.Stats) {
			opts.metricsCollector.RecordPages(st.PagesInUse, st.PagesTotal)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("scoredef: create allocator: %w", err)
	}
	s.alloc = alloc

	if s.procPM, err = alloc.NewPageManager(); err != nil {
		_ = alloc.Close()
		return nil, fmt.Errorf("scoredef: process page manager: %w", err)
	}
	if s.miscPM, err = alloc.NewPageManager(); err != nil {
		s.procPM.Delete()
		_ = alloc.Close()
		return nil, fmt.Errorf("scoredef: misc page manager: %w", err)
	}
	s.proc = definitions.New(s.procPM, s.definitionOptions()...)

	s.logger.LogStart(context.Background(), alloc.Stats())
	return s, nil
}

func (s *Session) definitionOptions() []definitions.Option {
	return []definitions.Option{
		definitions.WithOutOfMemory(s.outOfMemory),
		definitions.WithObserver(s.opts.metricsCollector.RecordDefinition),
	}
}

// RunID returns the session's run id. Archives are stored under it. After
// Unify every rank reports rank 0's id.
func (s *Session) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// Config returns the configuration the session was started with.
func (s *Session) Config() config.Config { return s.cfg }

// Logger returns the session logger.
func (s *Session) Logger() *Logger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logger
}

// Stats returns a snapshot of arena usage.
func (s *Session) Stats() allocator.Stats { return s.alloc.Stats() }

// Failed reports whether the fatal path was taken.
func (s *Session) Failed() bool { return s.failed.Load() }

// Definitions runs fn with the process-wide manager locked.
func (s *Session) Definitions(fn func(m *definitions.Manager)) {
	s.proc.Lock()
	defer s.proc.Unlock()
	fn(s.proc)
}

// ProcessDefinitions returns the process-wide manager without locking it.
// Use Definitions when locations may run concurrently.
func (s *Session) ProcessDefinitions() *definitions.Manager { return s.proc }

// AllocMisc returns size zeroed bytes from the process-wide miscellaneous
// page manager. It takes the fatal path when the arena is exhausted.
func (s *Session) AllocMisc(size int) []byte {
	s.miscMu.Lock()
	defer s.miscMu.Unlock()
	b, err := s.miscPM.Alloc(size)
	if err != nil {
		s.outOfMemory(err)
		return nil
	}
	return b
}

// NewLocation creates a location with its own page manager and definitions.
func (s *Session) NewLocation() (*Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.started {
		return nil, fmt.Errorf("scoredef: new location after unification")
	}
	pm, err := s.alloc.NewPageManager()
	if err != nil {
		return nil, fmt.Errorf("scoredef: location page manager: %w", err)
	}
	l := &Location{
		s:     s,
		id:    len(s.locations),
		pages: pm,
		defs:  definitions.New(pm, s.definitionOptions()...),
	}
	s.locations = append(s.locations, l)
	return l, nil
}

// Locations returns the session's locations in creation order.
func (s *Session) Locations() []*Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Location(nil), s.locations...)
}

// outOfMemory routes arena exhaustion to the fatal handler.
func (s *Session) outOfMemory(err error) {
	if !errors.Is(err, allocator.ErrOutOfPages) {
		s.fatal(err)
		return
	}
	s.fatal(&OutOfMemoryError{TotalMemory: s.cfg.TotalMemory, PageSize: s.cfg.PageSize, cause: err})
}

// fatal reports err once and hands it to the fatal handler.
func (s *Session) fatal(err error) {
	s.fatalOnce.Do(func() {
		s.failed.Store(true)
		var oom *OutOfMemoryError
		if errors.As(err, &oom) {
			s.opts.metricsCollector.RecordOutOfMemory()
			s.Logger().LogOutOfMemory(context.Background(), err, s.alloc.Stats())
		} else {
			s.Logger().Error("fatal error", "error", err)
		}
		s.opts.fatal(err)
	})
}

// Unify merges the process and location definitions across comm. Locations
// are read-only afterwards. A failure is passed to the fatal handler and
// returned. Calling Unify twice panics.
func (s *Session) Unify(ctx context.Context, comm ipc.Comm) (*unify.Result, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.started {
		s.mu.Unlock()
		panic("scoredef: Unify called twice")
	}
	s.started, s.unifying = true, true
	in := unify.Input{Allocator: s.alloc, Process: s.proc}
	for _, l := range s.locations {
		in.Locations = append(in.Locations, unify.Source{Pages: l.pages, Definitions: l.defs})
	}

	logger := s.logger.WithRank(comm.Rank())
	s.mu.Unlock()

	engine := unify.New(comm,
		unify.WithCodec(s.codec),
		unify.WithCompression(s.compression),
		unify.WithLogger(logger.Logger),
		unify.WithRoundHook(s.opts.metricsCollector.RecordUnifyRound),
		unify.WithOutOfMemory(s.outOfMemory),
	)

	start := time.Now()
	res, err := engine.Unify(ctx, in)
	if err == nil {
		err = s.adoptRunID(ctx, comm)
		if err != nil {
			res.Close()
			res = nil
		}
	}
	elapsed := time.Since(start)
	s.opts.metricsCollector.RecordUnify(elapsed, err)

	s.mu.Lock()
	s.unifying = false
	s.result = res
	if res != nil {
		s.comm = comm
	}
	s.mu.Unlock()

	if err != nil {
		logger.LogUnify(ctx, comm.Size(), 0, elapsed, err)
		uerr := &UnifyError{Rank: comm.Rank(), cause: err}
		s.fatal(uerr)
		return nil, uerr
	}
	s.Logger().WithRank(comm.Rank()).LogUnify(ctx, comm.Size(), res.SelfUnified().Total(), elapsed, nil)
	return res, nil
}

// adoptRunID replaces the run id with rank 0's so that all ranks archive
// into the same run.
func (s *Session) adoptRunID(ctx context.Context, comm ipc.Comm) error {
	s.mu.Lock()
	id := s.runID
	s.mu.Unlock()

	got, err := comm.Bcast(ctx, 0, []byte(id))
	if err != nil {
		return fmt.Errorf("broadcast run id: %w", err)
	}
	if _, err := uuid.ParseBytes(got); err != nil {
		return fmt.Errorf("broadcast run id: %w", err)
	}

	s.mu.Lock()
	s.runID = string(got)
	s.logger = s.opts.logger.WithRunID(s.runID)
	s.mu.Unlock()
	return nil
}

// Result returns the unification result, or nil before Unify.
func (s *Session) Result() *unify.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Archive writes the unified definitions and this rank's mappings to store
// under the session's run id. It is collective over the communicator passed
// to Unify: every rank must call it.
func (s *Session) Archive(ctx context.Context, store blobstore.BlobStore) (*archive.Report, error) {
	s.mu.Lock()
	res, comm, closed, runID, logger := s.result, s.comm, s.closed, s.runID, s.logger
	s.mu.Unlock()
	switch {
	case closed:
		return nil, ErrSessionClosed
	case res == nil:
		return nil, ErrNotUnified
	case store == nil:
		return nil, ErrNoArchive
	}

	comp, err := compress.Parse(s.cfg.Archive.Compression)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rep, err := archive.Write(ctx, comm, store, runID, res,
		archive.WithCodec(s.codec),
		archive.WithCompression(comp),
		archive.WithController(s.ctrl),
		archive.WithLogger(logger.WithRank(res.Rank()).Logger),
	)
	elapsed := time.Since(start)

	if err != nil {
		s.opts.metricsCollector.RecordArchive(0, 0, elapsed, err)
		logger.LogArchive(ctx, runID, 0, 0, err)
		return nil, err
	}
	s.opts.metricsCollector.RecordArchive(len(rep.Blobs), rep.Bytes, elapsed, nil)
	logger.LogArchive(ctx, runID, len(rep.Blobs), rep.Bytes, nil)
	return rep, nil
}

// Close releases every page and the arena. It is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if s.unifying {
		return fmt.Errorf("scoredef: close during unification")
	}
	s.closed = true

	if s.result != nil {
		s.result.Close()
	}
	for _, l := range s.locations {
		l.pages.Delete()
	}
	s.miscPM.Delete()
	s.procPM.Delete()
	return s.alloc.Close()
}

// Location is one thread of recording. It owns a page manager and a
// definition manager and must be used by one goroutine at a time.
type Location struct {
	s     *Session
	id    int
	pages *allocator.PageManager
	defs  *definitions.Manager
}

// ID returns the location's index in creation order.
func (l *Location) ID() int { return l.id }

// Definitions returns the location's definition manager.
func (l *Location) Definitions() *definitions.Manager { return l.defs }

// Alloc returns size zeroed bytes from the location's pages. On arena
// exhaustion it takes the fatal path and, if the handler returns, yields nil.
func (l *Location) Alloc(size int) []byte {
	b, err := l.pages.Alloc(size)
	if err != nil {
		l.s.outOfMemory(err)
		return nil
	}
	return b
}

// AllocMovable is Alloc returning a handle. It yields allocator.Null after
// the fatal path.
func (l *Location) AllocMovable(size int) allocator.MovableMemory {
	h, err := l.pages.AllocMovable(size)
	if err != nil {
		l.s.outOfMemory(err)
		return allocator.Null
	}
	return h
}

// Resolve returns the n bytes behind a handle issued by AllocMovable.
func (l *Location) Resolve(h allocator.MovableMemory, n int) []byte {
	return l.pages.Resolve(h, n)
}
