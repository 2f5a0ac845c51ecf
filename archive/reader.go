package archive

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/hupe1980/scoredef/blobstore"
	"github.com/hupe1980/scoredef/codec"
	"github.com/hupe1980/scoredef/definitions"
	"github.com/hupe1980/scoredef/ipc"
)

// SourceMapping is the archived local -> global mapping of one source.
type SourceMapping struct {
	Rank   int
	Source int
	tables [][]uint32
}

// Global returns the global sequence number of the source's record seq of
// kind k, and false if the source had no such record.
func (m *SourceMapping) Global(k definitions.Kind, seq uint32) (uint32, bool) {
	t := m.tables[k]
	if int(seq) >= len(t) {
		return 0, false
	}
	return t[seq], true
}

// Len returns the number of mapped records of kind k.
func (m *SourceMapping) Len(k definitions.Kind) int { return len(m.tables[k]) }

// Run is an archived run loaded back into memory.
type Run struct {
	Manifest Manifest
	// Unified holds the global table, numbered exactly as during the run.
	Unified *definitions.Manager
	// Mappings holds, per rank, the mappings of its sources in source order.
	Mappings [][]*SourceMapping
}

// Runs lists the run ids in store that have a manifest. Write publishes the
// manifest only after every rank stored its blobs, so listed runs are
// complete.
func Runs(ctx context.Context, store blobstore.BlobStore) ([]string, error) {
	names, err := store.List(ctx, "")
	if err != nil {
		return nil, err
	}
	var runs []string
	for _, n := range names {
		dir, file := path.Split(n)
		if file == manifestName && strings.Count(dir, "/") == 1 {
			runs = append(runs, strings.TrimSuffix(dir, "/"))
		}
	}
	sort.Strings(runs)
	return runs, nil
}

// ReadManifest loads the manifest of runID.
func ReadManifest(ctx context.Context, store blobstore.BlobStore, runID string) (Manifest, error) {
	var man Manifest
	data, err := blobstore.ReadAll(ctx, store, path.Join(runID, manifestName))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return man, fmt.Errorf("%w: %s has no manifest", ErrIncomplete, runID)
		}
		return man, err
	}
	if err := codec.Default.Unmarshal(data, &man); err != nil {
		return man, fmt.Errorf("%w: manifest: %v", ErrCorrupt, err)
	}
	if man.Version != FormatVersion {
		return man, fmt.Errorf("%w: %d", ErrVersion, man.Version)
	}
	return man, nil
}

// Read loads runID and rebuilds the unified table into pages.
func Read(ctx context.Context, store blobstore.BlobStore, runID string, pages definitions.Pages, optFns ...Option) (*Run, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	man, err := ReadManifest(ctx, store, runID)
	if err != nil {
		return nil, err
	}
	c, ok := codec.ByName(man.Codec)
	if !ok {
		return nil, fmt.Errorf("%w: unknown codec %q", ErrCorrupt, man.Codec)
	}
	framer := ipc.Framer{Codec: c}

	run := &Run{Manifest: man, Unified: definitions.New(pages)}
	for _, k := range definitions.Kinds() {
		var blob unifiedBlob
		if err := readFrame(ctx, store, framer, unifiedName(runID, k), &blob); err != nil {
			return nil, err
		}
		if blob.Kind != k.String() {
			return nil, fmt.Errorf("%w: %s blob holds %s", ErrCorrupt, k, blob.Kind)
		}
		seqs, err := run.Unified.Import(k, blob.Records)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		for i, s := range seqs {
			if int(s) != i {
				return nil, fmt.Errorf("%w: %s #%d duplicates #%d", ErrCorrupt, k, i, s)
			}
		}
		if len(seqs) != man.Counts[k.String()] {
			return nil, fmt.Errorf("%w: %s has %d records, manifest says %d", ErrCorrupt, k, len(seqs), man.Counts[k.String()])
		}
	}

	run.Mappings = make([][]*SourceMapping, man.Ranks)
	for rank := range man.Ranks {
		names, err := store.List(ctx, mappingDir(runID, rank)+"/")
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("%w: no mappings for rank %d", ErrIncomplete, rank)
		}
		for i, name := range names {
			var blob mappingBlob
			if err := readFrame(ctx, store, framer, name, &blob); err != nil {
				return nil, err
			}
			if blob.Rank != rank || blob.Source != i {
				return nil, fmt.Errorf("%w: %s holds rank %d source %d", ErrCorrupt, name, blob.Rank, blob.Source)
			}
			sm := &SourceMapping{Rank: rank, Source: i, tables: make([][]uint32, len(definitions.Kinds()))}
			for _, k := range definitions.Kinds() {
				t := blob.Tables[k.String()]
				for _, g := range t {
					if int(g) >= run.Unified.Count(k) {
						return nil, fmt.Errorf("%w: %s maps %s to missing #%d", ErrCorrupt, name, k, g)
					}
				}
				sm.tables[k] = t
			}
			run.Mappings[rank] = append(run.Mappings[rank], sm)
		}
	}
	return run, nil
}

func readFrame(ctx context.Context, store blobstore.BlobStore, f ipc.Framer, name string, v any) error {
	data, err := blobstore.ReadAll(ctx, store, name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return fmt.Errorf("%w: missing %s", ErrIncomplete, name)
		}
		return err
	}
	if err := f.Decode(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, name, err)
	}
	return nil
}
