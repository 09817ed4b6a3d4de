package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/facescan/internal/database/mock"
	"github.com/kozaktomas/facescan/internal/facematch"
	"github.com/kozaktomas/facescan/internal/identity"
	"github.com/kozaktomas/facescan/internal/web/middleware"
)

// fakeScanner returns a canned record or error.
type fakeScanner struct {
	record *facematch.ScanRecord
	err    error
	images []facematch.Image
}

func (f *fakeScanner) Scan(ctx context.Context, img facematch.Image) (*facematch.ScanRecord, error) {
	f.images = append(f.images, img)
	if f.err != nil {
		return nil, f.err
	}
	rec := *f.record
	rec.SourceImageRef = img.Ref
	return &rec, nil
}

func (f *fakeScanner) Options() facematch.Options {
	return facematch.DefaultOptions()
}

func sampleRecord() *facematch.ScanRecord {
	return &facematch.ScanRecord{
		ScanID:      "scan_test",
		RequestedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Matches: []facematch.Match{
			{IdentityID: "id-1", DisplayName: "Alice Smith", RawSimilarity: 0.7, Confidence: 0.84},
			{IdentityID: "id-2", DisplayName: "Bob Jones", RawSimilarity: 0.61, Confidence: 0.732},
		},
		MatchCount: 2,
	}
}

// newAccount registers an account in store and returns a session for it.
func newAccount(t *testing.T, store identity.Store, email string) *middleware.Session {
	t.Helper()
	acc, err := store.CreateAccount(context.Background(), email, "password123")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return &middleware.Session{ID: "sess-" + acc.ID, AccountID: acc.ID, Email: acc.Email}
}

func newMockStore() *mock.MockIdentityStore {
	return mock.NewMockIdentityStore()
}

// requestWithSession attaches an authenticated session to a request
func requestWithSession(r *http.Request, session *middleware.Session) *http.Request {
	return r.WithContext(middleware.SetSessionInContext(r.Context(), session))
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// multipartRequest builds a POST with one file part.
func multipartRequest(t *testing.T, path, field, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		part, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(data)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// jsonRequest builds a request with a JSON body.
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
