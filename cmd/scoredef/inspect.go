package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/hupe1980/scoredef"
	"github.com/hupe1980/scoredef/allocator"
	"github.com/hupe1980/scoredef/archive"
	"github.com/hupe1980/scoredef/definitions"
)

// CmdInspect lists archived runs or summarizes one of them.
var CmdInspect = &cli.Command{
	Name:      "inspect",
	Usage:     "List archived runs or show the definitions of one run",
	ArgsUsage: "[run-id]",
	Action:    runInspect,
	Flags: append([]cli.Flag{
		&cli.BoolFlag{
			Name:  "mappings",
			Usage: "show per-source mapping sizes",
		},
	}, archiveFlags()...),
}

func runInspect(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx := c.Context
	store, err := scoredef.OpenArchiveStore(ctx, cfg.Archive)
	if err != nil {
		return err
	}

	out := c.App.Writer
	if !c.Args().Present() {
		runs, err := archive.Runs(ctx, store)
		if err != nil {
			return err
		}
		for _, id := range runs {
			man, err := archive.ReadManifest(ctx, store, id)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "%s\t%d ranks\t%s\n", id, man.Ranks, man.Created.Format(time.RFC3339))
		}
		return nil
	}

	runID := c.Args().First()
	alloc, err := allocator.New(int(cfg.TotalMemory), int(cfg.PageSize))
	if err != nil {
		return err
	}
	defer func() { _ = alloc.Close() }()
	pm, err := alloc.NewPageManager()
	if err != nil {
		return err
	}
	defer pm.Delete()

	run, err := archive.Read(ctx, store, runID, pm)
	if err != nil {
		return err
	}
	return printRun(out, run, c.Bool("mappings"))
}

func printRun(out io.Writer, run *archive.Run, mappings bool) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	m := run.Manifest
	_, _ = fmt.Fprintf(tw, "run %s: %d ranks, codec %s, compression %s, created %s\n\n",
		m.RunID, m.Ranks, m.Codec, m.Compression, m.Created.Format(time.RFC3339))

	_, _ = fmt.Fprintln(tw, "KIND\tUNIFIED")
	for _, k := range definitions.Kinds() {
		if n := run.Unified.Count(k); n > 0 {
			_, _ = fmt.Fprintf(tw, "%s\t%d\n", k, n)
		}
	}

	if mappings {
		_, _ = fmt.Fprintln(tw, "\nRANK\tSOURCE\tMAPPED")
		for rank, srcs := range run.Mappings {
			for _, sm := range srcs {
				n := 0
				for _, k := range definitions.Kinds() {
					n += sm.Len(k)
				}
				_, _ = fmt.Fprintf(tw, "%d\t%d\t%d\n", rank, sm.Source, n)
			}
		}
	}
	return tw.Flush()
}
