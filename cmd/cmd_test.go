package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethpandaops/tally/internal/testutil"
	"github.com/ethpandaops/tally/pkg/engine"
	"github.com/ethpandaops/tally/pkg/export"
	"github.com/ethpandaops/tally/pkg/reports"
	"github.com/ethpandaops/tally/pkg/scheduler"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func newTestExporter(t *testing.T, numbering bool) *export.Exporter {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"), true)
	require.NoError(t, err)

	cfg.Store.DataDir = testutil.WriteDataDir(t, testutil.SampleSnapshot())
	cfg.Export.Numbering = numbering

	exporter, closeFn, err := newCLIExporter(log, cfg)
	require.NoError(t, err)
	t.Cleanup(closeFn)

	return exporter
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing file allowed", func(t *testing.T) {
		cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"), true)
		require.NoError(t, err)

		assert.Equal(t, "info", cfg.Logging)
		assert.Equal(t, "data", cfg.Store.DataDir)
		assert.True(t, cfg.API.Enabled)
		assert.Nil(t, cfg.Redis)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("missing file required", func(t *testing.T) {
		_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"), false)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("overrides defaults", func(t *testing.T) {
		path := writeConfig(t, `
logging: debug
store:
  dataDir: /srv/tracker
  watch: true
api:
  enabled: false
frontend:
  enabled: false
redis:
  url: redis://localhost:6379/0
scheduler:
  enabled: true
  jobs:
    - name: weekly-tasks
      kind: tasks
      schedule: "0 8 * * 1"
      dateField: end_date
      startDate: 01.01.2024
      outputDir: /srv/reports
`)

		cfg, err := loadConfig(path, false)
		require.NoError(t, err)

		assert.Equal(t, "debug", cfg.Logging)
		assert.Equal(t, "/srv/tracker", cfg.Store.DataDir)
		assert.Equal(t, "tasks.json", cfg.Store.TasksFile)
		assert.True(t, cfg.Store.Watch)
		assert.False(t, cfg.API.Enabled)

		require.NotNil(t, cfg.Redis)
		assert.Equal(t, "tally", cfg.Redis.Prefix)
		assert.Equal(t, 1000, cfg.Redis.MaxHistory)

		require.Len(t, cfg.Scheduler.Jobs, 1)
		assert.Equal(t, "weekly-tasks", cfg.Scheduler.Jobs[0].Name)
		assert.Equal(t, time.Second, cfg.Scheduler.TickInterval)

		assert.NoError(t, cfg.Validate())
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := loadConfig(writeConfig(t, "store: ["), false)
		assert.Error(t, err)
	})
}

func TestWriteReport(t *testing.T) {
	tests := []struct {
		name        string
		opts        exportOptions
		numbering   bool
		wantContain []string
		wantAbsent  []string
		wantErr     error
	}{
		{
			name:        "text with search",
			opts:        exportOptions{Kind: "tasks", Search: "сидорова", Format: formatText},
			numbering:   true,
			wantContain: []string{"№", "Макет", "Тесты", "2 of 5 rows", `Поиск: "сидорова"`},
			wantAbsent:  []string{"Верстка"},
		},
		{
			name:        "text without numbering",
			opts:        exportOptions{Kind: "projects", Format: formatText},
			wantContain: []string{"Портал", "Склад", "2 of 2 rows"},
			wantAbsent:  []string{"№"},
		},
		{
			name: "json with range",
			opts: exportOptions{
				Kind: "projects", Format: "JSON",
				DateField: "end_date", StartDate: "01.01.2024", EndDate: "30.06.2024",
			},
			wantContain: []string{`"total_count": 2`, `"filtered_count": 1`, "Склад"},
			wantAbsent:  []string{"Портал"},
		},
		{
			name:        "html",
			opts:        exportOptions{Kind: "tasks", Format: export.FormatHTML, DateField: "end_date", Date: "15.06.2024"},
			numbering:   true,
			wantContain: []string{"<table", "Верстка"},
			wantAbsent:  []string{"Макет"},
		},
		{
			name:    "unknown kind",
			opts:    exportOptions{Kind: "users", Format: formatText},
			wantErr: reports.ErrUnknownKind,
		},
		{
			name:    "unknown format",
			opts:    exportOptions{Kind: "tasks", Format: "pdf"},
			wantErr: ErrUnknownFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter := newTestExporter(t, tt.numbering)

			var out bytes.Buffer

			err := writeReport(context.Background(), &out, exporter, &tt.opts, tt.numbering)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			for _, s := range tt.wantContain {
				assert.Contains(t, out.String(), s)
			}
			for _, s := range tt.wantAbsent {
				assert.NotContains(t, out.String(), s)
			}
		})
	}
}

func TestWriteReport_JSONToFile(t *testing.T) {
	exporter := newTestExporter(t, true)
	path := filepath.Join(t.TempDir(), "tasks.json")

	var out bytes.Buffer
	opts := exportOptions{Kind: "tasks", Format: export.FormatJSON, Out: path}

	require.NoError(t, writeReport(context.Background(), &out, exporter, &opts, true))
	assert.Empty(t, out.String())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var body struct {
		TotalCount int `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, 5, body.TotalCount)
}

func TestWriteReport_Spreadsheet(t *testing.T) {
	exporter := newTestExporter(t, true)
	path := filepath.Join(t.TempDir(), "projects.xlsx")

	var out bytes.Buffer
	opts := exportOptions{Kind: "projects", Format: export.FormatXLSX, Out: path, Search: "портал"}

	require.NoError(t, writeReport(context.Background(), &out, exporter, &opts, true))
	assert.Equal(t, "Wrote 1 of 2 rows to "+path+"\n", out.String())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)

	var cells []string
	for _, r := range rows {
		cells = append(cells, r...)
	}
	assert.Contains(t, cells, "Портал")
	assert.NotContains(t, cells, "Склад")
}

func TestPrintJobStatuses(t *testing.T) {
	last := time.Date(2024, 6, 3, 8, 0, 0, 0, time.Local)

	var out bytes.Buffer
	require.NoError(t, printJobStatuses(&out, []scheduler.JobStatus{
		{Name: "weekly-tasks", Kind: "tasks", Schedule: "0 8 * * 1", LastRun: &last, NextRun: last.AddDate(0, 0, 7)},
		{Name: "daily-projects", Kind: "projects", Schedule: "@daily", NextRun: last},
	}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "LAST RUN")
	assert.Contains(t, lines[1], "2024-06-03 08:00:00")
	assert.Contains(t, lines[1], "2024-06-10 08:00:00")
	assert.Contains(t, lines[2], "never")
}

func TestWithScheduler_RunJob(t *testing.T) {
	dataDir := testutil.WriteDataDir(t, testutil.SampleSnapshot())
	outDir := t.TempDir()

	cfgFile = writeConfig(t, `
metricsAddr: ""
api:
  enabled: false
frontend:
  enabled: false
store:
  dataDir: `+dataDir+`
scheduler:
  enabled: false
  jobs:
    - name: sidorova
      kind: tasks
      schedule: "@daily"
      search: сидорова
      outputDir: `+outDir+`
`)
	t.Cleanup(func() { cfgFile = "" })

	var results []*scheduler.RunResult

	err := withScheduler(func(ctx context.Context, sched scheduler.Service) error {
		result, err := sched.RunJob(ctx, "sidorova")
		if err != nil {
			return err
		}
		results = append(results, result)

		return nil
	})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.FileExists(t, results[0].Path)
	assert.Equal(t, outDir, filepath.Dir(results[0].Path))

	var out bytes.Buffer
	require.NoError(t, printRunResults(&out, results))
	assert.Contains(t, out.String(), "2/5")
}

func TestEngineConfigFromFile(t *testing.T) {
	path := writeConfig(t, "api:\n  enabled: false\n")

	cfg, err := loadConfig(path, false)
	require.NoError(t, err)

	assert.ErrorIs(t, cfg.Validate(), engine.ErrFrontendRequiresAPI)
}
