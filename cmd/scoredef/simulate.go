package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/scoredef"
	"github.com/hupe1980/scoredef/archive"
	"github.com/hupe1980/scoredef/blobstore"
	"github.com/hupe1980/scoredef/config"
	"github.com/hupe1980/scoredef/definitions"
	"github.com/hupe1980/scoredef/ipc"
)

// CmdSimulate runs a synthetic multi-rank measurement.
var CmdSimulate = &cli.Command{
	Name:  "simulate",
	Usage: "Record synthetic definitions on several ranks, unify and archive them",
	Description: `Every rank starts a session, records a workload on each of its locations
and joins the collective unification. Ranks are goroutines connected by an
in-process communicator.`,
	Action: runSimulate,
	Flags: append([]cli.Flag{
		&cli.IntFlag{
			Name:    "ranks",
			Aliases: []string{"n"},
			Value:   4,
			Usage:   "number of ranks",
		},
		&cli.IntFlag{
			Name:  "locations",
			Value: 2,
			Usage: "locations per rank",
		},
		&cli.IntFlag{
			Name:  "regions",
			Value: 64,
			Usage: "regions recorded per location",
		},
		&cli.Float64Flag{
			Name:  "shared",
			Value: 0.75,
			Usage: "fraction of regions that every rank shares",
		},
	}, archiveFlags()...),
}

type workload struct {
	locations int
	regions   int
	shared    int
}

type rankSummary struct {
	rank        int
	definitions int
	report      *archive.Report
}

func runSimulate(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ranks := c.Int("ranks")
	if ranks < 1 {
		return fmt.Errorf("ranks must be positive, got %d", ranks)
	}
	w := workload{
		locations: max(c.Int("locations"), 0),
		regions:   max(c.Int("regions"), 1),
	}
	w.shared = int(float64(w.regions) * min(max(c.Float64("shared"), 0), 1))

	ctx := c.Context
	logger := newLogger(c, cfg)

	store, err := scoredef.OpenArchiveStore(ctx, cfg.Archive)
	switch {
	case errors.Is(err, scoredef.ErrNoArchive):
		store = nil
	case err != nil:
		return err
	}

	summaries := make([]rankSummary, ranks)
	var unified map[definitions.Kind]int
	var runID string

	start := time.Now()
	err = ipc.Run(ctx, ranks, func(ctx context.Context, comm ipc.Comm) error {
		sum, counts, id, err := simulateRank(ctx, comm, cfg, logger, store, w)
		if err != nil {
			return fmt.Errorf("rank %d: %w", comm.Rank(), err)
		}
		summaries[comm.Rank()] = sum
		if comm.Rank() == 0 {
			unified, runID = counts, id
		}
		return nil
	})
	if err != nil {
		return err
	}

	return printSimulation(c.App.Writer, runID, time.Since(start), summaries, unified)
}

func simulateRank(ctx context.Context, comm ipc.Comm, cfg config.Config, logger *scoredef.Logger,
	store blobstore.BlobStore, w workload,
) (rankSummary, map[definitions.Kind]int, string, error) {
	s, err := scoredef.Start(cfg, scoredef.WithLogger(logger.WithRank(comm.Rank())))
	if err != nil {
		return rankSummary{}, nil, "", err
	}
	defer func() { _ = s.Close() }()

	rank := comm.Rank()
	var group definitions.LocationGroupHandle
	s.Definitions(func(m *definitions.Manager) {
		machine := m.NewSystemTreeNode(definitions.SystemTreeNodeHandle(definitions.Invalid),
			definitions.DomainMachine, "machine", "simulator")
		node := m.NewSystemTreeNode(machine, definitions.DomainSharedMem, "node", fmt.Sprintf("node%d", rank/2))
		group = m.NewLocationGroup(uint32(rank), fmt.Sprintf("rank %d", rank), //nolint:gosec // rank is small
			definitions.LocationGroupProcess, node)
		m.NewMetric(definitions.MetricSpec{Name: "cycles", Unit: "#", Mode: definitions.MetricModeAccumulatedStart})
	})

	locs := make([]*scoredef.Location, w.locations)
	for i := range locs {
		if locs[i], err = s.NewLocation(); err != nil {
			return rankSummary{}, nil, "", err
		}
	}

	var g errgroup.Group
	for _, loc := range locs {
		g.Go(func() error {
			record(s, loc, rank, group, w)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return rankSummary{}, nil, "", err
	}

	res, err := s.Unify(ctx, comm)
	if err != nil {
		return rankSummary{}, nil, "", err
	}
	sum := rankSummary{rank: rank, definitions: res.SelfUnified().Total()}

	var counts map[definitions.Kind]int
	if global := res.Unified(); global != nil {
		counts = make(map[definitions.Kind]int, definitions.NumKinds)
		for _, k := range definitions.Kinds() {
			counts[k] = global.Count(k)
		}
	}

	if store != nil {
		if sum.report, err = s.Archive(ctx, store); err != nil {
			return sum, nil, "", err
		}
	}
	return sum, counts, s.RunID(), nil
}

// record defines the workload of one location.
func record(s *scoredef.Session, loc *scoredef.Location, rank int, group definitions.LocationGroupHandle, w workload) {
	m := loc.Definitions()

	gid := uint64(rank)<<32 | uint64(loc.ID()) //nolint:gosec // ids are small
	s.Definitions(func(pm *definitions.Manager) {
		pm.NewLocation(gid, fmt.Sprintf("thread %d", loc.ID()), definitions.LocationCPUThread, group)
	})

	size := m.NewParameter("size", definitions.ParameterInt64)
	root := m.NewCallpath(definitions.CallpathHandle(definitions.Invalid),
		m.NewRegion(definitions.RegionSpec{Name: "main", File: "main.c", Type: definitions.RegionFunction}),
		definitions.ParameterHandle(definitions.Invalid), 0)

	for i := range w.regions {
		name := fmt.Sprintf("kernel_%d", i)
		if i >= w.shared {
			name = fmt.Sprintf("rank%d_kernel_%d", rank, i)
		}
		r := m.NewRegion(definitions.RegionSpec{
			Name:      name,
			File:      fmt.Sprintf("kernels/%d.c", i%8),
			BeginLine: uint32(10 * i), //nolint:gosec // bounded by flags
			Paradigm:  definitions.ParadigmCompiler,
			Type:      definitions.RegionFunction,
		})
		m.NewCallpath(root, r, size, int64(i%4))
	}

	// Per-location scratch data lives next to the definitions.
	buf := loc.Alloc(64)
	copy(buf, fmt.Sprintf("rank %d location %d", rank, loc.ID()))
}

func printSimulation(out io.Writer, runID string, elapsed time.Duration, sums []rankSummary, unified map[definitions.Kind]int) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "run %s: %d ranks in %s\n\n", runID, len(sums), elapsed.Round(time.Millisecond))

	_, _ = fmt.Fprintln(tw, "RANK\tLOCAL\tBLOBS\tBYTES")
	for _, s := range sums {
		blobs, bytes := "-", "-"
		if s.report != nil {
			blobs = fmt.Sprint(len(s.report.Blobs))
			bytes = humanize.IBytes(uint64(max(s.report.Bytes, 0))) //nolint:gosec // clamped
		}
		_, _ = fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", s.rank, s.definitions, blobs, bytes)
	}

	_, _ = fmt.Fprintln(tw, "\nKIND\tUNIFIED")
	for _, k := range definitions.Kinds() {
		if n := unified[k]; n > 0 {
			_, _ = fmt.Fprintf(tw, "%s\t%d\n", k, n)
		}
	}
	return tw.Flush()
}
