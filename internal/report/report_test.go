package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/facescan/internal/facematch"
	"github.com/kozaktomas/facescan/internal/identity"
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func testScans() []facematch.ScanRecord {
	return []facematch.ScanRecord{
		{
			ScanID:      "scan_1",
			RequestedAt: testNow.Add(-time.Hour),
			Matches: []facematch.Match{
				{DisplayName: "Jane Smith", Location: "Chicago", SourceTag: "public_database", Confidence: 1.0, RawSimilarity: 0.95},
				{DisplayName: "Tom Miller", Location: "Phoenix", SourceTag: "public_database", Confidence: 0.732, RawSimilarity: 0.61},
			},
			MatchCount: 2,
		},
		{ScanID: "scan_2", RequestedAt: testNow, Matches: []facematch.Match{}, Degraded: true, DegradedReason: "no_face"},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(testScans(), facematch.DefaultBands())
	if s.Scans != 2 || s.Matches != 2 || s.DegradedRuns != 1 {
		t.Errorf("unexpected summary: %+v", s)
	}
	if s.ByBand[facematch.BandHigh] != 1 || s.ByBand[facematch.BandMedium] != 1 || s.ByBand[facematch.BandLow] != 0 {
		t.Errorf("unexpected band counts: %v", s.ByBand)
	}
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	err := RenderText(&buf, Report{
		Account:     identity.Account{Email: "jane@example.com", CreatedAt: testNow.AddDate(0, -1, 0)},
		Scans:       testScans(),
		GeneratedAt: testNow,
	})
	if err != nil {
		t.Fatalf("RenderText() error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Email: jane@example.com",
		"Total Scans Performed: 2",
		"High Confidence Matches: 1",
		"1. Jane Smith (100% confidence, high)",
		"2. Tom Miller (73% confidence, medium)",
		"No matches found",
		"no usable face descriptor (no_face)",
		"Privacy Notice",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestRenderText_WriteError(t *testing.T) {
	if err := RenderText(failingWriter{}, Report{}); err == nil {
		t.Error("expected the write error to be returned")
	}
}

func TestExport(t *testing.T) {
	var buf bytes.Buffer
	acc := identity.Account{ID: "u1", Email: "jane@example.com"}
	if err := Export(&buf, acc, testScans(), facematch.DefaultBands(), testNow); err != nil {
		t.Fatalf("Export() error: %v", err)
	}

	var doc ExportDocument
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if doc.Account.Email != "jane@example.com" || len(doc.Scans) != 2 || doc.Summary.Matches != 2 {
		t.Errorf("unexpected export: %+v", doc)
	}
	if !doc.ExportedAt.Equal(testNow) {
		t.Errorf("ExportedAt = %v", doc.ExportedAt)
	}
}

func TestExport_EmptyHistory(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, identity.Account{}, nil, facematch.DefaultBands(), testNow); err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	if !strings.Contains(buf.String(), `"scans": []`) {
		t.Errorf("expected an empty scans array, got %s", buf.String())
	}
}

func TestPercentAndFileName(t *testing.T) {
	if Percent(0.732) != 73 || Percent(0.846) != 85 || Percent(1) != 100 {
		t.Error("unexpected percentage rounding")
	}
	if got := ExportFileName(testNow); got != "identity-monitor-data-2026-10-19.json" {
		t.Errorf("ExportFileName() = %q", got)
	}
}
