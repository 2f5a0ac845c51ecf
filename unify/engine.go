package unify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hupe1980/scoredef/allocator"
	"github.com/hupe1980/scoredef/codec"
	"github.com/hupe1980/scoredef/definitions"
	"github.com/hupe1980/scoredef/ipc"
)

// ErrProtocol is returned when a peer sends a frame for the wrong round or a
// mapping of the wrong length.
var ErrProtocol = errors.New("unify: protocol violation")

// Source is a location's page manager and the definitions stored in it.
type Source struct {
	Pages       *allocator.PageManager
	Definitions *definitions.Manager
}

// Input is everything one rank unifies.
type Input struct {
	// Allocator issues the pages of the self-unified and global tables.
	Allocator *allocator.Allocator
	// Process is the process-wide manager. It keeps its pages.
	Process *definitions.Manager
	// Locations are merged through a moved page manager and become
	// read-only; their page managers are consumed.
	Locations []Source
}

// Engine runs local and collective unification for one rank.
type Engine struct {
	comm ipc.Comm
	opts options
	used atomic.Bool
}

// New creates an engine on comm.
func New(comm ipc.Comm, optFns ...Option) *Engine {
	opts := options{codec: codec.Default}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.logger == nil {
		opts.logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{comm: comm, opts: opts}
}

type batch struct {
	Kind    string               `json:"kind"`
	Rank    int                  `json:"rank"`
	Records []definitions.Record `json:"records"`
}

type reply struct {
	Kind   string   `json:"kind"`
	Global []uint32 `json:"global"`
}

// Unify merges in into one globally numbered table. It may be called once.
func (e *Engine) Unify(ctx context.Context, in Input) (*Result, error) {
	if e.used.Swap(true) {
		panic("unify: Unify called twice")
	}
	start := time.Now()

	res := &Result{
		rank:     e.comm.Rank(),
		size:     e.comm.Size(),
		mappings: make(map[*definitions.Manager]*Mapping),
	}

	localToSelf, err := e.local(in, res)
	if err != nil {
		return nil, err
	}

	selfToGlobal, err := e.collective(ctx, in.Allocator, res)
	if err != nil {
		res.Close()
		return nil, err
	}

	for i, src := range res.sources {
		m := newMapping()
		for _, k := range definitions.Kinds() {
			local := localToSelf[i][k]
			t := make([]uint32, len(local))
			for seq, s := range local {
				t[seq] = selfToGlobal[k][s]
			}
			m.tables[k] = t
		}
		res.mappings[src] = m
	}

	e.opts.logger.Info("unification complete",
		slog.Int("rank", res.rank),
		slog.Int("size", res.size),
		slog.Int("self_definitions", res.self.Total()),
		slog.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// local runs Phase A: every source is copied, kind by kind in dependency
// order, into a fresh self-unified manager.
func (e *Engine) local(in Input, res *Result) ([][][]uint32, error) {
	moved, err := in.Allocator.NewMovedPageManager()
	if err != nil {
		return nil, fmt.Errorf("unify: moved page manager: %w", err)
	}
	defer moved.Delete()

	res.sources = append(res.sources, in.Process)
	for _, loc := range in.Locations {
		moved.Adopt(loc.Pages)
		loc.Definitions.Rebind(moved)
		res.sources = append(res.sources, loc.Definitions)
	}

	res.selfPM, err = in.Allocator.NewPageManager()
	if err != nil {
		return nil, fmt.Errorf("unify: self-unified page manager: %w", err)
	}
	res.self = e.newTable(res.selfPM)

	out := make([][][]uint32, len(res.sources))
	for i := range out {
		out[i] = make([][]uint32, len(definitions.Kinds()))
	}
	for _, k := range definitions.Kinds() {
		for i, src := range res.sources {
			out[i][k] = src.CopyTo(res.self, k)
		}
	}

	e.opts.logger.Debug("local unification done",
		slog.Int("rank", res.rank),
		slog.Int("sources", len(res.sources)),
		slog.Int("moved_pages", moved.Pages()),
		slog.Int("definitions", res.self.Total()),
	)
	return out, nil
}

// newTable returns an empty unified table whose string 0 is "".
func (e *Engine) newTable(pages definitions.Pages) *definitions.Manager {
	m := definitions.New(pages, e.defOpts()...)
	m.NewString("")
	return m
}

func (e *Engine) defOpts() []definitions.Option {
	if e.opts.onOOM == nil {
		return nil
	}
	return []definitions.Option{definitions.WithOutOfMemory(e.opts.onOOM)}
}

// collective runs Phase B and returns, per kind, self -> global sequence
// numbers.
func (e *Engine) collective(ctx context.Context, alloc *allocator.Allocator, res *Result) ([][]uint32, error) {
	kinds := definitions.Kinds()
	selfToGlobal := make([][]uint32, len(kinds))

	if res.size == 1 {
		res.global, res.globalPM = res.self, res.selfPM
		for _, k := range kinds {
			t := make([]uint32, res.self.Count(k))
			for i := range t {
				t[i] = uint32(i) //nolint:gosec // bounded by table size
			}
			selfToGlobal[k] = t
		}
		return selfToGlobal, nil
	}

	if res.rank == 0 {
		pm, err := alloc.NewPageManager()
		if err != nil {
			return nil, fmt.Errorf("unify: global page manager: %w", err)
		}
		res.globalPM = pm
		res.global = e.newTable(pm)
	}

	for _, k := range kinds {
		r := &round{e: e, kind: k, res: res, selfToGlobal: selfToGlobal}
		if err := r.run(ctx); err != nil {
			return nil, fmt.Errorf("unify: %s round: %w", k, err)
		}
	}
	return selfToGlobal, nil
}
