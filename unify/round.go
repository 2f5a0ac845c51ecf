package unify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hupe1980/scoredef/definitions"
	"github.com/hupe1980/scoredef/ipc"
)

// round is the state machine of one kind's collective unification.
type round struct {
	e            *Engine
	kind         definitions.Kind
	res          *Result
	selfToGlobal [][]uint32

	state   State
	frame   []byte
	records int
	replies [][]byte
}

func (r *round) framer() ipc.Framer {
	return ipc.Framer{Codec: r.e.opts.codec, Compression: r.e.opts.compression}
}

func (r *round) enter(s State) {
	r.state = s
	if r.e.opts.observer != nil {
		r.e.opts.observer(r.kind, s)
	}
}

func (r *round) run(ctx context.Context) error {
	start := time.Now()
	steps := []struct {
		state State
		do    func(context.Context) error
	}{
		{StateCollectLocal, func(context.Context) error { return r.collectLocal() }},
		{StateBarrier, r.e.comm.Barrier},
		{StateMergeGlobal, r.mergeGlobal},
		{StateBroadcast, r.broadcast},
	}
	for _, step := range steps {
		r.enter(step.state)
		if err := step.do(ctx); err != nil {
			return fmt.Errorf("%s: %w", step.state, err)
		}
	}
	r.enter(StateDone)

	elapsed := time.Since(start)
	if r.e.opts.roundHook != nil {
		r.e.opts.roundHook(r.kind, r.records, elapsed)
	}
	r.e.opts.logger.Debug("unify round",
		slog.String("kind", r.kind.String()),
		slog.Int("rank", r.res.rank),
		slog.Int("records", r.records),
		slog.Duration("elapsed", elapsed),
	)
	return nil
}

func (r *round) collectLocal() error {
	recs := r.res.self.Export(r.kind, func(k definitions.Kind, seq uint32) uint32 {
		return r.selfToGlobal[k][seq]
	})
	r.records = len(recs)

	frame, err := r.framer().Encode(batch{Kind: r.kind.String(), Rank: r.res.rank, Records: recs})
	if err != nil {
		return err
	}
	r.frame = frame
	return nil
}

func (r *round) mergeGlobal(ctx context.Context) error {
	parts, err := r.e.comm.Gather(ctx, 0, r.frame)
	if err != nil {
		return err
	}
	if r.res.rank != 0 {
		return nil
	}

	f := r.framer()
	r.replies = make([][]byte, len(parts))
	for rank, part := range parts {
		var b batch
		if err := f.Decode(part, &b); err != nil {
			return fmt.Errorf("rank %d batch: %w", rank, err)
		}
		if b.Kind != r.kind.String() || b.Rank != rank {
			return fmt.Errorf("%w: expected %s from rank %d, got %s from rank %d", ErrProtocol, r.kind, rank, b.Kind, b.Rank)
		}
		global, err := r.res.global.Import(r.kind, b.Records)
		if err != nil {
			return fmt.Errorf("rank %d batch: %w", rank, err)
		}
		if r.replies[rank], err = f.Encode(reply{Kind: b.Kind, Global: global}); err != nil {
			return err
		}
	}
	return nil
}

func (r *round) broadcast(ctx context.Context) error {
	part, err := r.e.comm.Scatter(ctx, 0, r.replies)
	if err != nil {
		return err
	}
	var rep reply
	if err := r.framer().Decode(part, &rep); err != nil {
		return err
	}
	if rep.Kind != r.kind.String() || len(rep.Global) != r.records {
		return fmt.Errorf("%w: %s mapping of %d entries for %d records", ErrProtocol, rep.Kind, len(rep.Global), r.records)
	}
	r.selfToGlobal[r.kind] = rep.Global
	return nil
}
