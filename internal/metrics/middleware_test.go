package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/scans/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/scans/scan_123", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/scans/{id}", "404"))
	if got < 1 {
		t.Errorf("expected a request counted under the route pattern, got %f", got)
	}
}

func TestObserveScan(t *testing.T) {
	okBefore := testutil.ToFloat64(ScansTotal.WithLabelValues("ok"))
	errBefore := testutil.ToFloat64(ScansTotal.WithLabelValues("error"))

	ObserveScan(10*time.Millisecond, 3, nil)
	ObserveScan(0, 0, errors.New("boom"))

	if got := testutil.ToFloat64(ScansTotal.WithLabelValues("ok")); got != okBefore+1 {
		t.Errorf("ok scans = %f, want %f", got, okBefore+1)
	}
	if got := testutil.ToFloat64(ScansTotal.WithLabelValues("error")); got != errBefore+1 {
		t.Errorf("error scans = %f, want %f", got, errBefore+1)
	}
}

func TestHandler_ExposesCollectors(t *testing.T) {
	GalleryEntries.Set(7)

	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	if !strings.Contains(rr.Body.String(), "facescan_gallery_entries 7") {
		t.Error("expected gallery gauge in exposition output")
	}
}
