package frontend

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler(t *testing.T) {
	h, err := NewHandler()
	require.NoError(t, err)

	tests := []struct {
		name   string
		target string
	}{
		{name: "root", target: "/"},
		{name: "index file", target: "/index.html"},
		{name: "unknown route falls back to index", target: "/reports/tasks"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			// FileServer redirects /index.html to /
			if rec.Code == http.StatusMovedPermanently {
				assert.Equal(t, "./", rec.Header().Get("Location"))
				return
			}

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), "/api/v1/reports/")
		})
	}
}
