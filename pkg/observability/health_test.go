package observability

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

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

func TestHealthChecker_Check(t *testing.T) {
	tests := []struct {
		name       string
		db         Pinger
		extra      error
		wantStatus string
		wantDB     string
	}{
		{"all healthy", stubPinger{}, nil, "healthy", "healthy"},
		{"database down", stubPinger{err: errors.New("refused")}, nil, "unhealthy", "unhealthy: refused"},
		{"extra check fails", stubPinger{}, errors.New("missing"), "unhealthy", "healthy"},
		{"no database", nil, nil, "healthy", "not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthChecker(tt.db)
			h.AddCheck("tenant_config", func(ctx context.Context) error { return tt.extra })

			status := h.Check(context.Background())

			assert.Equal(t, tt.wantStatus, status.Status)
			assert.Equal(t, tt.wantDB, status.Checks["database"])
		})
	}
}

func TestHealthChecker_HealthHandler(t *testing.T) {
	h := NewHealthChecker(stubPinger{err: errors.New("refused")})

	rec := httptest.NewRecorder()
	h.HealthHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "unhealthy", body.Status)
}
