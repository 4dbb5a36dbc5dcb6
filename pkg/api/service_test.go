package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethpandaops/tally/internal/testutil"
	"github.com/ethpandaops/tally/pkg/export"
	"github.com/ethpandaops/tally/pkg/frontend"
	"github.com/ethpandaops/tally/pkg/scheduler"
	"github.com/ethpandaops/tally/pkg/store"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	st := store.New(log, testutil.StoreConfig(testutil.WriteDataDir(t, testutil.SampleSnapshot())))

	exporter, err := export.NewExporter(log, &export.Config{Numbering: true}, st, nil)
	require.NoError(t, err)

	sched, err := scheduler.NewService(log, &scheduler.Config{}, exporter, nil, "tally:")
	require.NoError(t, err)

	frontendHandler, err := frontend.NewHandler()
	require.NoError(t, err)

	svc, ok := NewService(&Config{Enabled: true, Addr: ":0", UserHeader: "X-User-ID"}, exporter, sched, frontendHandler, log).(*service)
	require.True(t, ok)

	app, err := svc.newApp(context.Background())
	require.NoError(t, err)

	return app
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "disabled", cfg: Config{}},
		{name: "valid", cfg: Config{Enabled: true, Addr: ":8080", UserHeader: "X-User-ID"}},
		{name: "missing addr", cfg: Config{Enabled: true, UserHeader: "X-User-ID"}, wantErr: ErrAPIAddrRequired},
		{name: "missing user header", cfg: Config{Enabled: true, Addr: ":8080"}, wantErr: ErrUserHeaderRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoadOpenAPI(t *testing.T) {
	doc, err := LoadOpenAPI(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Tally API", doc.Info.Title)

	for _, path := range []string{
		"/reports/{kind}",
		"/reports/{kind}/html",
		"/reports/{kind}/download",
		"/exports",
		"/schedules",
		"/schedules/{name}/run",
	} {
		assert.NotNil(t, doc.Paths.Find(path), path)
	}
}

func TestApp_Routes(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name        string
		method      string
		target      string
		wantStatus  int
		wantType    string
		wantContain string
	}{
		{
			name:        "openapi document",
			method:      http.MethodGet,
			target:      "/api/v1/openapi.json",
			wantStatus:  http.StatusOK,
			wantType:    "application/json",
			wantContain: `"openapi":"3.0.3"`,
		},
		{
			name:        "report",
			method:      http.MethodGet,
			target:      "/api/v1/reports/projects",
			wantStatus:  http.StatusOK,
			wantType:    "application/json",
			wantContain: `"total_count":2`,
		},
		{
			name:        "error handler formats fiber errors",
			method:      http.MethodGet,
			target:      "/api/v1/reports/unknown",
			wantStatus:  http.StatusBadRequest,
			wantType:    "application/json",
			wantContain: `"code":400`,
		},
		{
			name:        "disabled scheduler lists no jobs",
			method:      http.MethodGet,
			target:      "/api/v1/schedules",
			wantStatus:  http.StatusOK,
			wantContain: `"jobs":[]`,
		},
		{
			name:        "frontend index",
			method:      http.MethodGet,
			target:      "/",
			wantStatus:  http.StatusOK,
			wantType:    "text/html",
			wantContain: "<title>Отчеты</title>",
		},
		{
			name:        "frontend fallback",
			method:      http.MethodGet,
			target:      "/reports/tasks",
			wantStatus:  http.StatusOK,
			wantType:    "text/html",
			wantContain: "<title>Отчеты</title>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(tt.method, tt.target, nil))
			require.NoError(t, err)

			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantType != "" {
				assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), tt.wantType)
			}

			raw, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Contains(t, string(raw), tt.wantContain)
		})
	}
}

func TestApp_ErrorBody(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/exports?limit=-5", nil))
	require.NoError(t, err)

	defer resp.Body.Close()

	var body struct {
		Error string `json:"error"`
		Code  int    `json:"code"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.Equal(t, http.StatusBadRequest, body.Code)
	assert.Equal(t, "limit must be a non-negative integer", body.Error)
}

func TestService_DisabledStartStop(t *testing.T) {
	svc := NewService(&Config{Enabled: false}, nil, nil, nil, logrus.New())

	require.NoError(t, svc.Start(context.Background()))
	assert.NoError(t, svc.Stop())
}
