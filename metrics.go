package scoredef

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/scoredef/definitions"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; see
// PrometheusCollector for a ready-made one.
type MetricsCollector interface {
	// RecordPages is called whenever pages move between the free list and
	// page managers.
	RecordPages(inUse, total int)

	// RecordDefinition is called for every definition constructor call.
	// created is false when an existing record was returned.
	RecordDefinition(kind definitions.Kind, created bool)

	// RecordUnifyRound is called after each kind's collective round.
	RecordUnifyRound(kind definitions.Kind, records int, duration time.Duration)

	// RecordUnify is called once per Unify with its total duration.
	RecordUnify(duration time.Duration, err error)

	// RecordArchive is called after each archive hand-off.
	RecordArchive(blobs int, bytes int64, duration time.Duration, err error)

	// RecordOutOfMemory is called when the arena is exhausted.
	RecordOutOfMemory()
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordPages(int, int)                                  {}
func (NoopMetricsCollector) RecordDefinition(definitions.Kind, bool)               {}
func (NoopMetricsCollector) RecordUnifyRound(definitions.Kind, int, time.Duration) {}
func (NoopMetricsCollector) RecordUnify(time.Duration, error)                      {}
func (NoopMetricsCollector) RecordArchive(int, int64, time.Duration, error)        {}
func (NoopMetricsCollector) RecordOutOfMemory()                                    {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and tests without external dependencies.
type BasicMetricsCollector struct {
	PagesInUse       atomic.Int64
	PagesTotal       atomic.Int64
	PagesPeak        atomic.Int64
	DefinitionsNew   atomic.Int64
	DefinitionsDedup atomic.Int64
	UnifyRounds      atomic.Int64
	UnifyRecords     atomic.Int64
	UnifyCount       atomic.Int64
	UnifyErrors      atomic.Int64
	UnifyTotalNanos  atomic.Int64
	ArchiveCount     atomic.Int64
	ArchiveErrors    atomic.Int64
	ArchiveBlobs     atomic.Int64
	ArchiveBytes     atomic.Int64
	OutOfMemory      atomic.Int64

	perKind [definitions.NumKinds]atomic.Int64
}

// RecordPages implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPages(inUse, total int) {
	b.PagesInUse.Store(int64(inUse))
	b.PagesTotal.Store(int64(total))
	for {
		peak := b.PagesPeak.Load()
		if int64(inUse) <= peak || b.PagesPeak.CompareAndSwap(peak, int64(inUse)) {
			return
		}
	}
}

// RecordDefinition implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDefinition(kind definitions.Kind, created bool) {
	if !created {
		b.DefinitionsDedup.Add(1)
		return
	}
	b.DefinitionsNew.Add(1)
	if int(kind) < len(b.perKind) {
		b.perKind[kind].Add(1)
	}
}

// RecordUnifyRound implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUnifyRound(_ definitions.Kind, records int, _ time.Duration) {
	b.UnifyRounds.Add(1)
	b.UnifyRecords.Add(int64(records))
}

// RecordUnify implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUnify(duration time.Duration, err error) {
	b.UnifyCount.Add(1)
	b.UnifyTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.UnifyErrors.Add(1)
	}
}

// RecordArchive implements MetricsCollector.
func (b *BasicMetricsCollector) RecordArchive(blobs int, bytes int64, _ time.Duration, err error) {
	b.ArchiveCount.Add(1)
	if err != nil {
		b.ArchiveErrors.Add(1)
		return
	}
	b.ArchiveBlobs.Add(int64(blobs))
	b.ArchiveBytes.Add(bytes)
}

// RecordOutOfMemory implements MetricsCollector.
func (b *BasicMetricsCollector) RecordOutOfMemory() {
	b.OutOfMemory.Add(1)
}

// Created returns the number of new definitions of kind.
func (b *BasicMetricsCollector) Created(kind definitions.Kind) int64 {
	if int(kind) >= len(b.perKind) {
		return 0
	}
	return b.perKind[kind].Load()
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		PagesInUse:       b.PagesInUse.Load(),
		PagesTotal:       b.PagesTotal.Load(),
		PagesPeak:        b.PagesPeak.Load(),
		DefinitionsNew:   b.DefinitionsNew.Load(),
		DefinitionsDedup: b.DefinitionsDedup.Load(),
		UnifyRounds:      b.UnifyRounds.Load(),
		UnifyRecords:     b.UnifyRecords.Load(),
		UnifyCount:       b.UnifyCount.Load(),
		UnifyErrors:      b.UnifyErrors.Load(),
		UnifyAvgNanos:    b.getAvgUnifyNanos(),
		ArchiveCount:     b.ArchiveCount.Load(),
		ArchiveErrors:    b.ArchiveErrors.Load(),
		ArchiveBlobs:     b.ArchiveBlobs.Load(),
		ArchiveBytes:     b.ArchiveBytes.Load(),
		OutOfMemory:      b.OutOfMemory.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgUnifyNanos() int64 {
	count := b.UnifyCount.Load()
	if count == 0 {
		return 0
	}
	return b.UnifyTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	PagesInUse       int64
	PagesTotal       int64
	PagesPeak        int64
	DefinitionsNew   int64
	DefinitionsDedup int64
	UnifyRounds      int64
	UnifyRecords     int64
	UnifyCount       int64
	UnifyErrors      int64
	UnifyAvgNanos    int64
	ArchiveCount     int64
	ArchiveErrors    int64
	ArchiveBlobs     int64
	ArchiveBytes     int64
	OutOfMemory      int64
}
