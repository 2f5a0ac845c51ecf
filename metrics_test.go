package scoredef

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/scoredef/definitions"
)

func TestBasicMetricsCollector(t *testing.T) {
	var m BasicMetricsCollector

	m.RecordPages(3, 10)
	m.RecordPages(5, 10)
	m.RecordPages(1, 10)
	m.RecordDefinition(definitions.KindString, true)
	m.RecordDefinition(definitions.KindString, false)
	m.RecordDefinition(definitions.KindRegion, true)
	m.RecordUnifyRound(definitions.KindString, 4, time.Millisecond)
	m.RecordUnify(2*time.Second, nil)
	m.RecordUnify(4*time.Second, errors.New("boom"))
	m.RecordArchive(3, 100, time.Second, nil)
	m.RecordArchive(0, 0, time.Second, errors.New("boom"))
	m.RecordOutOfMemory()

	stats := m.GetStats()
	assert.Equal(t, int64(1), stats.PagesInUse)
	assert.Equal(t, int64(5), stats.PagesPeak)
	assert.Equal(t, int64(2), stats.DefinitionsNew)
	assert.Equal(t, int64(1), stats.DefinitionsDedup)
	assert.Equal(t, int64(4), stats.UnifyRecords)
	assert.Equal(t, int64(2), stats.UnifyCount)
	assert.Equal(t, int64(1), stats.UnifyErrors)
	assert.Equal(t, (3 * time.Second).Nanoseconds(), stats.UnifyAvgNanos)
	assert.Equal(t, int64(2), stats.ArchiveCount)
	assert.Equal(t, int64(1), stats.ArchiveErrors)
	assert.Equal(t, int64(100), stats.ArchiveBytes)
	assert.Equal(t, int64(1), stats.OutOfMemory)

	assert.Equal(t, int64(1), m.Created(definitions.KindString))
	assert.Equal(t, int64(1), m.Created(definitions.KindRegion))
	assert.Zero(t, m.Created(definitions.KindNone))
}

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewPrometheusCollector(reg)
	require.NoError(t, err)

	c.RecordPages(2, 8)
	c.RecordDefinition(definitions.KindRegion, true)
	c.RecordDefinition(definitions.KindRegion, true)
	c.RecordDefinition(definitions.KindRegion, false)
	c.RecordUnifyRound(definitions.KindString, 7, time.Millisecond)
	c.RecordArchive(2, 512, time.Second, nil)
	c.RecordArchive(0, 0, time.Second, errors.New("boom"))
	c.RecordOutOfMemory()

	assert.InDelta(t, 2, testutil.ToFloat64(c.pagesInUse), 0)
	assert.InDelta(t, 8, testutil.ToFloat64(c.pagesTotal), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(c.definitions.WithLabelValues("Region", "created")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.definitions.WithLabelValues("Region", "deduplicated")), 0)
	assert.InDelta(t, 7, testutil.ToFloat64(c.roundRecords.WithLabelValues("String")), 0)
	assert.InDelta(t, 512, testutil.ToFloat64(c.archiveBytes), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.archives.WithLabelValues("error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.outOfMemory), 0)

	// A second collector on the same registry collides.
	_, err = NewPrometheusCollector(reg)
	require.Error(t, err)
}
