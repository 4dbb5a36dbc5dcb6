package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ethpandaops/tally/pkg/history"
	"github.com/ethpandaops/tally/pkg/observability"
	"github.com/ethpandaops/tally/pkg/reports"
	"github.com/ethpandaops/tally/pkg/store"
	"github.com/ethpandaops/tally/pkg/table"
	"github.com/sirupsen/logrus"
)

// Export sources recorded in the history
const (
	SourceAPI       = "api"
	SourceScheduler = "scheduler"
	SourceCLI       = "cli"
)

// Format names used in metrics
const (
	FormatJSON = "json"
	FormatHTML = "html"
	FormatXLSX = "xlsx"
)

// ErrNilQuery is returned when a request carries no query
var ErrNilQuery = errors.New("query is required")

// Request describes one report to produce
type Request struct {
	Kind   reports.Kind
	Query  *table.Query
	UserID string
	Source string
	// At is the production time used in the file name, now when zero
	At time.Time
}

// Result is a produced spreadsheet
type Result struct {
	Filename string
	Entry    history.Entry
	Table    *table.Table
}

// Exporter builds report tables from the store and writes them as spreadsheets
type Exporter struct {
	log       logrus.FieldLogger
	store     store.Service
	recorder  history.Recorder
	filenames *FilenameRenderer
	numbering bool
}

// NewExporter creates an exporter. A nil recorder keeps no history.
func NewExporter(log logrus.FieldLogger, cfg *Config, st store.Service, recorder history.Recorder) (*Exporter, error) {
	filenames, err := NewFilenameRenderer(cfg.FilenameTemplate)
	if err != nil {
		return nil, fmt.Errorf("invalid filename template: %w", err)
	}

	if recorder == nil {
		recorder = history.NopRecorder{}
	}

	return &Exporter{
		log:       log.WithField("component", "exporter"),
		store:     st,
		recorder:  recorder,
		filenames: filenames,
		numbering: cfg.Numbering,
	}, nil
}

// Recorder returns the export history
func (e *Exporter) Recorder() history.Recorder {
	return e.recorder
}

// Table loads the current snapshot, builds the report of kind and applies q
func (e *Exporter) Table(ctx context.Context, kind reports.Kind, q *table.Query) (*table.Table, error) {
	if q == nil {
		return nil, ErrNilQuery
	}

	snapshot, err := e.store.Snapshot(ctx)
	if err != nil {
		observability.RecordError("exporter", "snapshot")
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	base, err := reports.Build(kind, snapshot, table.WithLogger(e.log.WithField("kind", kind)))
	if err != nil {
		return nil, err
	}

	result := q.Apply(base)

	for _, step := range result.Steps() {
		if step.Skipped() {
			observability.RecordFilterSkipped(kind.String(), string(step.Op))
		}
	}

	observability.RecordReportRows(kind.String(), result.TotalCount(), result.FilteredCount())

	return result, nil
}

// Export writes the requested report to w and records it in the history.
// History failures are logged and do not fail the export.
func (e *Exporter) Export(ctx context.Context, w io.Writer, req Request) (*Result, error) {
	start := time.Now()

	result, err := e.export(ctx, w, req)

	status := "success"
	if err != nil {
		status = "failed"
	}

	observability.RecordReport(req.Kind.String(), FormatXLSX, status, time.Since(start))

	return result, err
}

func (e *Exporter) export(ctx context.Context, w io.Writer, req Request) (*Result, error) {
	at := req.At
	if at.IsZero() {
		at = time.Now()
	}

	filename, err := e.filenames.Render(req.Kind.String(), req.UserID, at)
	if err != nil {
		return nil, err
	}

	tbl, err := e.Table(ctx, req.Kind, req.Query)
	if err != nil {
		return nil, err
	}

	if err := WriteXLSX(w, tbl, Options{Numbering: e.numbering}); err != nil {
		return nil, err
	}

	filters := tbl.Describe()
	if filters == "" {
		filters = NoFilters
	}

	entry, err := e.recorder.Record(ctx, history.Entry{
		Kind:          req.Kind.String(),
		UserID:        SanitizeUserID(req.UserID),
		Filename:      filename,
		TotalCount:    tbl.TotalCount(),
		FilteredCount: tbl.FilteredCount(),
		Filters:       filters,
		Source:        req.Source,
		CreatedAt:     at.UTC(),
	})
	if err != nil {
		e.log.WithError(err).WithField("filename", filename).Warn("Failed to record export history")
		observability.RecordError("exporter", "history")
	}

	e.log.WithFields(logrus.Fields{
		"kind":     req.Kind,
		"filename": filename,
		"source":   req.Source,
		"total":    tbl.TotalCount(),
		"filtered": tbl.FilteredCount(),
	}).Info("Exported report")

	return &Result{
		Filename: filename,
		Entry:    entry,
		Table:    tbl,
	}, nil
}
