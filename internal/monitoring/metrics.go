package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "equipment"

var (
	// IngestFailures counts rejected uploads by error kind.
	IngestFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingest_failures_total",
		Help:      "Uploads rejected by the ingestion pipeline, by error kind.",
	}, []string{"kind"})

	IngestedRecords = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingested_records_total",
		Help:      "Records stored by successful ingestions.",
	})

	IngestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ingest_duration_seconds",
		Help:      "Time from upload to committed dataset.",
		Buckets:   prometheus.DefBuckets,
	})

	PrunedDatasets = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pruned_datasets_total",
		Help:      "Datasets removed by the retention policy.",
	})

	PruneFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "prune_failures_total",
		Help:      "Retention runs that failed after a successful ingestion.",
	})

	// ReportDuration observes report generation time by output format.
	ReportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "report_duration_seconds",
		Help:      "Time spent composing and rendering a report.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"format"})

	// ChartFailures counts reports that were produced without charts
	// because chart rendering failed.
	ChartFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "report_chart_failures_total",
		Help:      "Reports rendered without the chart set after a chart error.",
	})
)
