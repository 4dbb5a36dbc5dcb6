package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/ethpandaops/tally/pkg/engine"
	"github.com/ethpandaops/tally/pkg/export"
	"github.com/ethpandaops/tally/pkg/history"
	"github.com/ethpandaops/tally/pkg/reports"
	"github.com/ethpandaops/tally/pkg/store"
	"github.com/ethpandaops/tally/pkg/table"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Output formats of the export command
const (
	formatText = "text"
)

// ErrUnknownFormat is returned for an unsupported --format value
var ErrUnknownFormat = errors.New("unknown output format")

// exportOptions holds the export command flags
type exportOptions struct {
	DataDir     string
	Kind        string
	Search      string
	DateField   string
	Date        string
	StartDate   string
	EndDate     string
	Format      string
	Out         string
	User        string
	NoNumbering bool
}

// param returns the report query parameter named key, see table.ParseQuery
func (o *exportOptions) param(key string) string {
	switch key {
	case table.ParamSearch:
		return o.Search
	case table.ParamDateField:
		return o.DateField
	case table.ParamDate:
		return o.Date
	case table.ParamStartDate:
		return o.StartDate
	case table.ParamEndDate:
		return o.EndDate
	default:
		return ""
	}
}

//nolint:gochecknoglobals // Cobra flags are typically global
var exportOpts exportOptions

// exportCmd builds one report from the data files
//
//nolint:gochecknoglobals // Cobra commands are typically global
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Build a project or task report",
	Long: `Build a report from the data files and print it or write it to a file.

Examples:
  # Tasks assigned to anyone matching "сидорова", as a table
  tally export --kind tasks --search сидорова

  # Projects ending in the first half of 2024, as a spreadsheet
  tally export --kind projects --date-field end_date --start-date 01.01.2024 --end-date 30.06.2024 --format xlsx

  # Tasks due on a single day, as JSON
  tally export --kind tasks --date-field end_date --date 15.06.2024 --format json`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	flags := exportCmd.Flags()
	flags.StringVar(&exportOpts.DataDir, "data-dir", "", "directory holding users.json, projects.json and tasks.json (overrides the config)")
	flags.StringVar(&exportOpts.Kind, "kind", "", "report kind (projects, tasks)")
	flags.StringVar(&exportOpts.Search, "search", "", "case-insensitive substring searched in every column")
	flags.StringVar(&exportOpts.DateField, "date-field", "", "date column to filter on (start_date, end_date)")
	flags.StringVar(&exportOpts.Date, "date", "", "exact date, DD.MM.YYYY")
	flags.StringVar(&exportOpts.StartDate, "start-date", "", "range start, DD.MM.YYYY")
	flags.StringVar(&exportOpts.EndDate, "end-date", "", "range end, DD.MM.YYYY")
	flags.StringVar(&exportOpts.Format, "format", formatText, "output format (text, json, html, xlsx)")
	flags.StringVar(&exportOpts.Out, "out", "", "output file (default is stdout, or the rendered file name for xlsx)")
	flags.StringVar(&exportOpts.User, "user", "", "user id recorded in the file name and export history")
	flags.BoolVar(&exportOpts.NoNumbering, "no-numbering", false, "omit the row number column")

	_ = exportCmd.MarkFlagRequired("kind")
}

func runExport(cmd *cobra.Command, _ []string) error {
	// Silence usage on error
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	// A config file is optional for exports
	cfg, err := loadConfig(cfgFile, true)
	if err != nil {
		return err
	}

	if exportOpts.DataDir != "" {
		cfg.Store.DataDir = exportOpts.DataDir
	}

	if exportOpts.NoNumbering {
		cfg.Export.Numbering = false
	}

	exporter, closeFn, err := newCLIExporter(logger, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	return writeReport(ctx, cmd.OutOrStdout(), exporter, &exportOpts, cfg.Export.Numbering)
}

// newCLIExporter creates an exporter over the configured data files. Exports
// are recorded in the history when Redis is configured.
func newCLIExporter(log logrus.FieldLogger, cfg *engine.Config) (*export.Exporter, func(), error) {
	if err := cfg.Store.Validate(); err != nil {
		return nil, nil, fmt.Errorf("store: %w", err)
	}

	var (
		recorder history.Recorder = history.NopRecorder{}
		closeFn                   = func() {}
	)

	if cfg.Redis != nil {
		if err := cfg.Redis.Validate(); err != nil {
			return nil, nil, fmt.Errorf("redis: %w", err)
		}

		client, err := cfg.Redis.NewClient()
		if err != nil {
			return nil, nil, err
		}

		recorder = history.NewRedisRecorder(client, cfg.Redis.PrefixKey("exports"), cfg.Redis.MaxHistory)
		closeFn = func() {
			if err := client.Close(); err != nil {
				log.WithError(err).Error("Failed to close Redis client")
			}
		}
	}

	exporter, err := export.NewExporter(log, &cfg.Export, store.New(log, &cfg.Store), recorder)
	if err != nil {
		closeFn()
		return nil, nil, err
	}

	return exporter, closeFn, nil
}

// writeReport builds the report described by opts and writes it in the
// requested format. Spreadsheets always go to a file.
func writeReport(ctx context.Context, stdout io.Writer, exporter *export.Exporter, opts *exportOptions, numbering bool) error {
	kind, err := reports.ParseKind(opts.Kind)
	if err != nil {
		return err
	}

	query := table.ParseQuery(opts.param)
	format := strings.ToLower(opts.Format)

	if format == export.FormatXLSX {
		return writeSpreadsheet(ctx, stdout, exporter, kind, query, opts)
	}

	t, err := exporter.Table(ctx, kind, query)
	if err != nil {
		return err
	}

	var buf bytes.Buffer

	switch format {
	case formatText:
		err = writeText(&buf, t, numbering)
	case export.FormatJSON:
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		err = enc.Encode(t.ToDict())
	case export.FormatHTML:
		_, err = fmt.Fprintln(&buf, t.RenderHTML(numbering))
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}

	if err != nil {
		return err
	}

	if opts.Out == "" {
		_, err = stdout.Write(buf.Bytes())
		return err
	}

	return os.WriteFile(opts.Out, buf.Bytes(), 0o600)
}

func writeSpreadsheet(ctx context.Context, stdout io.Writer, exporter *export.Exporter, kind reports.Kind, query *table.Query, opts *exportOptions) error {
	var buf bytes.Buffer

	result, err := exporter.Export(ctx, &buf, export.Request{
		Kind:   kind,
		Query:  query,
		UserID: opts.User,
		Source: export.SourceCLI,
	})
	if err != nil {
		return err
	}

	path := opts.Out
	if path == "" {
		path = result.Filename
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return err
	}

	_, err = fmt.Fprintf(stdout, "Wrote %d of %d rows to %s\n", result.Table.FilteredCount(), result.Table.TotalCount(), path)

	return err
}

// writeText prints the filtered rows as an aligned table followed by the
// applied filters
func writeText(w io.Writer, t *table.Table, numbering bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fields := t.Fields()

	header := make([]string, 0, len(fields)+1)
	if numbering {
		header = append(header, "№")
	}
	for _, f := range fields {
		header = append(header, strings.ToUpper(f.Label))
	}
	_, _ = fmt.Fprintln(tw, strings.Join(header, "\t"))

	for i, row := range t.FilteredData() {
		cells := make([]string, 0, len(fields)+1)
		if numbering {
			cells = append(cells, fmt.Sprintf("%d", i+1))
		}
		for _, f := range fields {
			cells = append(cells, row.Value(f.Name))
		}
		_, _ = fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\n%d of %d rows\n", t.FilteredCount(), t.TotalCount())
	if err != nil {
		return err
	}

	if filters := t.Describe(); filters != "" {
		_, err = fmt.Fprintln(w, filters)
	}

	return err
}
