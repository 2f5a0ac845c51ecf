package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/scoredef/blobstore"
	"github.com/hupe1980/scoredef/codec"
	"github.com/hupe1980/scoredef/definitions"
	"github.com/hupe1980/scoredef/internal/resource"
	"github.com/hupe1980/scoredef/ipc"
	"github.com/hupe1980/scoredef/unify"
	"golang.org/x/sync/errgroup"
)

// FormatVersion is the archive layout version recorded in manifests.
const FormatVersion = 1

const (
	manifestName = "manifest.json"
	maxInflight  = 8
)

var (
	// ErrIncomplete is returned by Read when a run has no manifest or is
	// missing mapping blobs of some rank, and by Write when a rank failed to
	// store its blobs.
	ErrIncomplete = errors.New("archive: incomplete run")

	// ErrCorrupt is returned by Read when blob contents are inconsistent.
	ErrCorrupt = errors.New("archive: corrupt run")

	// ErrVersion is returned by Read for manifests of an unknown layout.
	ErrVersion = errors.New("archive: unsupported format version")
)

// Manifest describes one archived run.
type Manifest struct {
	Version     int            `json:"version"`
	RunID       string         `json:"run_id"`
	Ranks       int            `json:"ranks"`
	Codec       string         `json:"codec"`
	Compression string         `json:"compression"`
	Counts      map[string]int `json:"counts"`
	Created     time.Time      `json:"created"`
}

// Report summarizes the blobs one rank wrote.
type Report struct {
	RunID string
	Blobs []string
	Bytes int64
}

type unifiedBlob struct {
	Kind    string               `json:"kind"`
	Records []definitions.Record `json:"records"`
}

type mappingBlob struct {
	Rank   int                 `json:"rank"`
	Source int                 `json:"source"`
	Tables map[string][]uint32 `json:"tables"`
}

func unifiedName(runID string, k definitions.Kind) string {
	return path.Join(runID, "unified", fmt.Sprintf("%02d-%s.def", uint8(k), k))
}

func mappingDir(runID string, rank int) string {
	return path.Join(runID, "mapping", fmt.Sprintf("rank-%05d", rank))
}

func mappingName(runID string, rank, source int) string {
	return path.Join(mappingDir(runID, rank), fmt.Sprintf("source-%05d.map", source))
}

// Write stores the outcome of one rank's unification under runID. It is
// collective over comm: every rank writes the mappings of its sources, rank 0
// also writes the unified table, and rank 0 publishes the manifest only after
// every rank has reported its blobs stored. If any rank fails, no manifest is
// written and every rank returns an error.
func Write(ctx context.Context, comm ipc.Comm, store blobstore.BlobStore, runID string, res *unify.Result, optFns ...Option) (*Report, error) {
	if runID == "" || strings.Contains(runID, "/") {
		return nil, fmt.Errorf("archive: invalid run id %q", runID)
	}
	if comm.Rank() != res.Rank() || comm.Size() != res.Size() {
		return nil, fmt.Errorf("archive: communicator rank %d/%d does not match result rank %d/%d",
			comm.Rank(), comm.Size(), res.Rank(), res.Size())
	}
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	w := &writer{
		store:  store,
		opts:   opts,
		framer: ipc.Framer{Codec: opts.codec, Compression: opts.compression},
	}
	start := time.Now()

	werr := w.blobs(ctx, runID, res)
	if werr != nil {
		werr = fmt.Errorf("archive: rank %d: %w", res.Rank(), werr)
	}

	statuses, err := comm.Gather(ctx, 0, status(werr))
	if err != nil {
		return nil, fmt.Errorf("archive: gather status: %w", err)
	}

	var published error
	if comm.Rank() == 0 {
		published = w.publish(ctx, runID, res, statuses)
	}
	got, err := comm.Bcast(ctx, 0, status(published))
	if err != nil {
		return nil, fmt.Errorf("archive: broadcast status: %w", err)
	}
	switch {
	case werr != nil:
		return nil, werr
	case published != nil:
		return nil, published
	case len(got) > 0:
		return nil, fmt.Errorf("%w: run %s not published by rank 0", ErrIncomplete, runID)
	}

	rep := &Report{RunID: runID, Blobs: w.names(), Bytes: w.bytes.Load()}
	opts.logger.Info("archive written",
		slog.String("run_id", runID),
		slog.Int("rank", res.Rank()),
		slog.Int("blobs", len(rep.Blobs)),
		slog.Int64("bytes", rep.Bytes),
		slog.Duration("elapsed", time.Since(start)),
	)
	return rep, nil
}

// status encodes an outcome for the status exchange; success is empty.
func status(err error) []byte {
	if err == nil {
		return nil
	}
	return []byte(err.Error())
}

// blobs writes the mapping blobs of res and, on rank 0, the unified table.
func (w *writer) blobs(ctx context.Context, runID string, res *unify.Result) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInflight)

	for i, src := range res.Sources() {
		m := res.Mapping(src)
		if m == nil {
			continue
		}
		blob := mappingBlob{Rank: res.Rank(), Source: i, Tables: make(map[string][]uint32)}
		for _, k := range definitions.Kinds() {
			blob.Tables[k.String()] = m.Table(k)
		}
		name := mappingName(runID, res.Rank(), i)
		g.Go(func() error { return w.put(gctx, name, blob) })
	}

	if global := res.Unified(); global != nil {
		for _, k := range definitions.Kinds() {
			blob := unifiedBlob{
				Kind:    k.String(),
				Records: global.Export(k, func(_ definitions.Kind, seq uint32) uint32 { return seq }),
			}
			name := unifiedName(runID, k)
			g.Go(func() error { return w.put(gctx, name, blob) })
		}
	}
	return g.Wait()
}

// publish writes the manifest once every rank reported success.
func (w *writer) publish(ctx context.Context, runID string, res *unify.Result, statuses [][]byte) error {
	var failed []string
	for _, st := range statuses {
		if len(st) > 0 {
			failed = append(failed, string(st))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%w: %s", ErrIncomplete, strings.Join(failed, "; "))
	}

	global := res.Unified()
	man := Manifest{
		Version:     FormatVersion,
		RunID:       runID,
		Ranks:       res.Size(),
		Codec:       w.opts.codec.Name(),
		Compression: w.opts.compression.String(),
		Counts:      make(map[string]int),
		Created:     time.Now().UTC(),
	}
	for _, k := range definitions.Kinds() {
		man.Counts[k.String()] = global.Count(k)
	}
	data, err := codec.Default.Marshal(man)
	if err != nil {
		return fmt.Errorf("archive: manifest: %w", err)
	}
	if err := w.write(ctx, path.Join(runID, manifestName), data); err != nil {
		return fmt.Errorf("archive: manifest: %w", err)
	}
	return nil
}

type writer struct {
	store  blobstore.BlobStore
	opts   options
	framer ipc.Framer
	bytes  atomic.Int64

	mu   sync.Mutex
	list []string
}

func (w *writer) record(name string) {
	w.mu.Lock()
	w.list = append(w.list, name)
	w.mu.Unlock()
}

func (w *writer) names() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := append([]string(nil), w.list...)
	sort.Strings(out)
	return out
}

func (w *writer) put(ctx context.Context, name string, v any) error {
	frame, err := w.framer.Encode(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return w.write(ctx, name, frame)
}

// write streams data into a new blob, holding one archive worker and pacing
// bytes through the controller.
func (w *writer) write(ctx context.Context, name string, data []byte) error {
	c := w.opts.controller
	if err := c.AcquireWorker(ctx); err != nil {
		return err
	}
	defer c.ReleaseWorker()

	blob, err := w.store.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if _, err := resource.NewThrottledWriter(ctx, blob, c).Write(data); err != nil {
		_ = blobstore.Abort(blob)
		_ = w.store.Delete(context.WithoutCancel(ctx), name)
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := blob.Close(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	w.bytes.Add(int64(len(data)))
	w.record(name)
	w.opts.logger.Debug("archive blob", slog.String("name", name), slog.Int("bytes", len(data)))
	return nil
}
