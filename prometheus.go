package scoredef

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/scoredef/definitions"
)

// PrometheusCollector exports MetricsCollector events as Prometheus metrics.
type PrometheusCollector struct {
	pagesInUse   prometheus.Gauge
	pagesTotal   prometheus.Gauge
	definitions  *prometheus.CounterVec
	roundLatency *prometheus.HistogramVec
	roundRecords *prometheus.CounterVec
	unifyLatency *prometheus.HistogramVec
	archiveBytes prometheus.Counter
	archives     *prometheus.CounterVec
	outOfMemory  prometheus.Counter
}

var _ MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheusCollector creates the collector and registers its metrics with
// reg. A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &PrometheusCollector{
		pagesInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scoredef_pages_in_use",
			Help: "Arena pages held by page managers",
		}),
		pagesTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scoredef_pages_total",
			Help: "Pages in the arena",
		}),
		definitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scoredef_definitions_total",
			Help: "Definition constructor calls by kind and outcome",
		}, []string{"kind", "outcome"}),
		roundLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scoredef_unify_round_seconds",
			Help:    "Latency of one kind's collective unification round",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		roundRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scoredef_unify_round_records_total",
			Help: "Records sent to the root by kind",
		}, []string{"kind"}),
		unifyLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scoredef_unify_seconds",
			Help:    "Latency of complete unifications",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
		archiveBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scoredef_archive_bytes_total",
			Help: "Bytes written to archives",
		}),
		archives: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scoredef_archives_total",
			Help: "Archive hand-offs by status",
		}, []string{"status"}),
		outOfMemory: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scoredef_out_of_memory_total",
			Help: "Arena exhaustion events",
		}),
	}

	for _, col := range []prometheus.Collector{
		c.pagesInUse, c.pagesTotal, c.definitions, c.roundLatency,
		c.roundRecords, c.unifyLatency, c.archiveBytes, c.archives, c.outOfMemory,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordPages implements MetricsCollector.
func (c *PrometheusCollector) RecordPages(inUse, total int) {
	c.pagesInUse.Set(float64(inUse))
	c.pagesTotal.Set(float64(total))
}

// RecordDefinition implements MetricsCollector.
func (c *PrometheusCollector) RecordDefinition(kind definitions.Kind, created bool) {
	outcome := "deduplicated"
	if created {
		outcome = "created"
	}
	c.definitions.WithLabelValues(kind.String(), outcome).Inc()
}

// RecordUnifyRound implements MetricsCollector.
func (c *PrometheusCollector) RecordUnifyRound(kind definitions.Kind, records int, duration time.Duration) {
	c.roundLatency.WithLabelValues(kind.String()).Observe(duration.Seconds())
	c.roundRecords.WithLabelValues(kind.String()).Add(float64(records))
}

// RecordUnify implements MetricsCollector.
func (c *PrometheusCollector) RecordUnify(duration time.Duration, err error) {
	c.unifyLatency.WithLabelValues(status(err)).Observe(duration.Seconds())
}

// RecordArchive implements MetricsCollector.
func (c *PrometheusCollector) RecordArchive(_ int, bytes int64, _ time.Duration, err error) {
	c.archives.WithLabelValues(status(err)).Inc()
	if err == nil {
		c.archiveBytes.Add(float64(bytes))
	}
}

// RecordOutOfMemory implements MetricsCollector.
func (c *PrometheusCollector) RecordOutOfMemory() {
	c.outOfMemory.Inc()
}
