package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestHealthCheck(t *testing.T) {
	recorder := httptest.NewRecorder()
	HealthCheck(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))
	assertStatusCode(t, recorder, http.StatusOK)
	var resp map[string]string
	parseJSONResponse(t, recorder, &resp)
	if resp["status"] != "ok" {
		t.Errorf("status = %q, want ok", resp["status"])
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name         string
		db           Pinger
		wantCode     int
		wantDatabase string
	}{
		{"no database", nil, http.StatusOK, "disabled"},
		{"database up", fakePinger{}, http.StatusOK, "ok"},
		{"database down", fakePinger{err: errors.New("connection refused")}, http.StatusServiceUnavailable, "unreachable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			NewReadinessHandler(tt.db)(recorder, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assertStatusCode(t, recorder, tt.wantCode)
			var resp ReadinessResponse
			parseJSONResponse(t, recorder, &resp)
			if resp.Database != tt.wantDatabase {
				t.Errorf("database = %q, want %q", resp.Database, tt.wantDatabase)
			}
		})
	}
}
