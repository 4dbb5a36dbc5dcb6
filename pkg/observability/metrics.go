package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics must be global for registration
var (
	// ReportsTotal counts reports produced
	ReportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tally_reports_total",
			Help: "Total number of reports produced",
		},
		[]string{"kind", "format", "status"}, // format: json, html, xlsx; status: success, failed
	)

	// ReportDuration measures report build and render time in seconds
	ReportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tally_report_duration_seconds",
			Help:    "Report build and render time in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"kind", "format"},
	)

	// ReportRows tracks the row counts of the last report per kind
	ReportRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tally_report_rows",
			Help: "Row counts of the last report produced",
		},
		[]string{"kind", "stage"}, // stage: total, filtered
	)

	// FiltersSkipped counts date filters ignored because a date did not parse
	FiltersSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tally_filters_skipped_total",
			Help: "Total number of date filters skipped because of unparsable dates",
		},
		[]string{"kind", "op"},
	)

	// StoreLoads counts data file loads
	StoreLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tally_store_loads_total",
			Help: "Total number of data file loads",
		},
		[]string{"file", "status"}, // status: success, missing, failed
	)

	// StoreInvalidations counts cached snapshot invalidations
	StoreInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tally_store_invalidations_total",
			Help: "Total number of cached snapshot invalidations caused by data file changes",
		},
	)

	// ScheduledRuns counts scheduled export runs
	ScheduledRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tally_scheduled_runs_total",
			Help: "Total number of scheduled export runs",
		},
		[]string{"job", "status"},
	)

	// ScheduledLastRun tracks the last run of a scheduled export
	ScheduledLastRun = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tally_scheduled_last_run_timestamp",
			Help: "Last run of a scheduled export (unix timestamp)",
		},
		[]string{"job"},
	)

	// ErrorsTotal counts total number of errors
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tally_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordReport records a produced report
func RecordReport(kind, format, status string, duration time.Duration) {
	ReportsTotal.WithLabelValues(kind, format, status).Inc()
	ReportDuration.WithLabelValues(kind, format).Observe(duration.Seconds())
}

// RecordReportRows records the row counts of a report
func RecordReportRows(kind string, total, filtered int) {
	ReportRows.WithLabelValues(kind, "total").Set(float64(total))
	ReportRows.WithLabelValues(kind, "filtered").Set(float64(filtered))
}

// RecordFilterSkipped records a date filter ignored because of a bad date
func RecordFilterSkipped(kind, op string) {
	FiltersSkipped.WithLabelValues(kind, op).Inc()
}

// RecordStoreLoad records a data file load
func RecordStoreLoad(file, status string) {
	StoreLoads.WithLabelValues(file, status).Inc()
}

// RecordStoreInvalidation records a cached snapshot invalidation
func RecordStoreInvalidation() {
	StoreInvalidations.Inc()
}

// RecordScheduledRun records a scheduled export run
func RecordScheduledRun(job, status string, at time.Time) {
	ScheduledRuns.WithLabelValues(job, status).Inc()
	ScheduledLastRun.WithLabelValues(job).Set(float64(at.Unix()))
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
