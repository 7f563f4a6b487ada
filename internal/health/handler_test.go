package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthy(ctx context.Context) (Status, error) {
	return StatusHealthy, nil
}

func TestRunChecks(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]CheckFunc
		want   Status
	}{
		{name: "no checks", checks: nil, want: StatusHealthy},
		{name: "all healthy", checks: map[string]CheckFunc{"a": healthy, "b": healthy}, want: StatusHealthy},
		{
			name: "degraded wins over healthy",
			checks: map[string]CheckFunc{
				"a": healthy,
				"b": func(ctx context.Context) (Status, error) { return StatusDegraded, errors.New("slow") },
			},
			want: StatusDegraded,
		},
		{
			name: "unhealthy wins over degraded",
			checks: map[string]CheckFunc{
				"a": func(ctx context.Context) (Status, error) { return StatusUnhealthy, errors.New("down") },
				"b": func(ctx context.Context) (Status, error) { return StatusDegraded, nil },
			},
			want: StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler("test")
			for name, check := range tt.checks {
				h.Register(name, check)
			}
			resp := h.RunChecks(context.Background())
			assert.Equal(t, tt.want, resp.Status)
			assert.Len(t, resp.Checks, len(tt.checks))
			assert.Equal(t, "test", resp.Version)
		})
	}
}

func TestReadinessHandler(t *testing.T) {
	h := NewHandler("1.0")
	h.Register("storage", func(ctx context.Context) (Status, error) {
		return StatusUnhealthy, errors.New("bucket missing")
	})
	mux := http.NewServeMux()
	h.Routes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Equal(t, "bucket missing", resp.Checks["storage"].Error)

	// the full report still answers 200
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLivenessHandler(t *testing.T) {
	h := NewHandler("1.0")
	h.Register("never-called", func(ctx context.Context) (Status, error) {
		t.Fatal("liveness must not run checks")
		return StatusUnhealthy, nil
	})
	mux := http.NewServeMux()
	h.Routes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
