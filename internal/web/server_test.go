package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/facescan/internal/config"
	"github.com/kozaktomas/facescan/internal/database/mock"
	"github.com/kozaktomas/facescan/internal/extractor"
	"github.com/kozaktomas/facescan/internal/facematch"
	"github.com/kozaktomas/facescan/internal/gallery"
)

const testDim = 16

func newTestServer(t *testing.T) (*Server, []byte) {
	t.Helper()

	stub := extractor.NewStubExtractor(testDim)
	probe := []byte("probe image bytes")

	entries := gallery.Generate(5, testDim, 3, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	entries = append(entries, facematch.GalleryEntry{
		IdentityID:  "known",
		DisplayName: "Known Person",
		Location:    "Prague",
		SourceTag:   "seed",
		Descriptor:  stub.Descriptor(probe),
	})
	store := gallery.NewStore(entries)

	pipeline, err := facematch.NewPipeline(stub, facematch.CosineScorer{}, store, facematch.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{Web: config.WebConfig{Host: "127.0.0.1", Port: 0, SessionSecret: "secret"}}
	srv := NewServer(cfg, Deps{
		Scanner:       pipeline,
		Identity:      mock.NewMockIdentityStore(),
		Gallery:       store,
		GallerySource: config.GallerySourceDemo,
		ExtractorName: "stub",
		SessionRepo:   mock.NewMockSessionRepository(),
	})
	return srv, probe
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/health", "/api/v1/health", "/ready"} {
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s: status = %d", path, w.Code)
		}
		if w.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s: missing X-Request-ID", path)
		}
	}
}

func TestServer_Metrics(t *testing.T) {
	srv, _ := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "facescan_") {
		t.Error("metrics output should contain facescan metrics")
	}
}

func TestServer_RequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/api/v1/scans", "/api/v1/report", "/api/v1/gallery", "/api/v1/config"} {
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", path, w.Code)
		}
	}
}

func TestServer_ScanFlow(t *testing.T) {
	srv, probe := newTestServer(t)
	router := srv.Router()

	// Register.
	body, _ := json.Marshal(map[string]string{"email": "ana@example.com", "password": "password123"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(body)))
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d: %s", w.Code, w.Body.String())
	}
	var login struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &login); err != nil {
		t.Fatal(err)
	}
	bearer := "Bearer " + login.SessionID

	// Scan.
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "probe.bin")
	part.Write(probe)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scans", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", bearer)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("scan status = %d: %s", w.Code, w.Body.String())
	}

	var scan struct {
		ScanID  string `json:"scan_id"`
		Matches []struct {
			IdentityID    string  `json:"identity_id"`
			RawSimilarity float64 `json:"raw_similarity"`
			Confidence    float64 `json:"confidence"`
			Band          string  `json:"band"`
		} `json:"matches"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &scan); err != nil {
		t.Fatal(err)
	}
	if len(scan.Matches) == 0 || scan.Matches[0].IdentityID != "known" {
		t.Fatalf("expected the known identity first, got %+v", scan.Matches)
	}
	if scan.Matches[0].Confidence != 1.0 || scan.Matches[0].Band != "high" {
		t.Errorf("unexpected top match: %+v", scan.Matches[0])
	}

	// Fetch it back.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/scans/"+scan.ScanID, nil)
	req.Header.Set("Authorization", bearer)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("get scan status = %d", w.Code)
	}

	// Report.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/report", nil)
	req.Header.Set("Authorization", bearer)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Known Person") {
		t.Errorf("report status = %d, body:\n%s", w.Code, w.Body.String())
	}

	// Delete all data.
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/scans", nil)
	req.Header.Set("Authorization", bearer)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("delete status = %d", w.Code)
	}
}
