// Package report renders a user's scan history as a plain-text report and
// as a JSON data export.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/kozaktomas/facescan/internal/facematch"
	"github.com/kozaktomas/facescan/internal/identity"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const title = "Digital Identity Monitor"

const timeLayout = "2006-01-02 15:04:05 MST"

// Report is the input of RenderText.
type Report struct {
	Account     identity.Account
	Scans       []facematch.ScanRecord
	GeneratedAt time.Time
	Bands       facematch.Bands
	Language    language.Tag
}

// Summary aggregates a scan history.
type Summary struct {
	Scans        int                    `json:"scans"`
	Matches      int                    `json:"matches"`
	ByBand       map[facematch.Band]int `json:"by_band"`
	DegradedRuns int                    `json:"degraded_scans"`
}

// Summarize counts scans, matches and matches per confidence band.
func Summarize(scans []facematch.ScanRecord, bands facematch.Bands) Summary {
	s := Summary{
		Scans:  len(scans),
		ByBand: map[facematch.Band]int{facematch.BandHigh: 0, facematch.BandMedium: 0, facematch.BandLow: 0},
	}
	for _, scan := range scans {
		s.Matches += len(scan.Matches)
		if scan.Degraded {
			s.DegradedRuns++
		}
		for _, m := range scan.Matches {
			s.ByBand[bands.Classify(m.Confidence)]++
		}
	}
	return s
}

// Percent renders a confidence as a whole percentage.
func Percent(confidence float64) int {
	return int(math.Round(confidence * 100))
}

// RenderText writes the report as plain text.
func RenderText(w io.Writer, r Report) error {
	if r.Bands == (facematch.Bands{}) {
		r.Bands = facematch.DefaultBands()
	}
	if r.GeneratedAt.IsZero() {
		r.GeneratedAt = time.Now()
	}
	if r.Language == language.Und {
		r.Language = language.English
	}

	tw := &textWriter{w: w, p: message.NewPrinter(r.Language)}
	rule := strings.Repeat("-", 60)

	tw.line(title)
	tw.line("Scan Report")
	tw.line("Generated: %s", r.GeneratedAt.Format(timeLayout))
	tw.line(rule)

	tw.line("User Information")
	tw.line("Email: %s", r.Account.Email)
	tw.line("Account Created: %s", r.Account.CreatedAt.Format(timeLayout))
	tw.line("Total Scans: %d", len(r.Scans))
	tw.line(rule)

	sum := Summarize(r.Scans, r.Bands)
	tw.line("Scan Summary")
	tw.line("Total Scans Performed: %d", sum.Scans)
	tw.line("Total Matches Found: %d", sum.Matches)
	tw.line("High Confidence Matches: %d", sum.ByBand[facematch.BandHigh])
	tw.line("Medium Confidence Matches: %d", sum.ByBand[facematch.BandMedium])
	if sum.DegradedRuns > 0 {
		tw.line("Scans Using Fallback Descriptors: %d", sum.DegradedRuns)
	}
	tw.line(rule)

	tw.line("Detailed Scan Results")
	for i, scan := range r.Scans {
		tw.line("")
		tw.line("Scan %d - %s (%s)", i+1, scan.RequestedAt.Format(timeLayout), scan.ScanID)
		if scan.Degraded {
			tw.line("  Note: no usable face descriptor (%s); results are low quality", scan.DegradedReason)
		}
		if len(scan.Matches) == 0 {
			tw.line("  No matches found")
			continue
		}
		tw.line("  Matches Found: %d", len(scan.Matches))
		for j, m := range scan.Matches {
			tw.line("  %d. %s (%d%% confidence, %s)", j+1, m.DisplayName, Percent(m.Confidence), r.Bands.Classify(m.Confidence))
			tw.line("     Location: %s", m.Location)
			tw.line("     Source: %s", m.SourceTag)
			tw.line("     Last Seen: %s", m.CapturedAt.Format(timeLayout))
		}
	}
	tw.line(rule)

	tw.line("Privacy Notice")
	tw.line("This report contains sensitive information about your digital identity scans.")
	tw.line("Keep this document secure and do not share it with unauthorized parties.")
	tw.line("You can delete all your scan data at any time.")
	tw.line("Confidence is a display rescaling of similarity, not a probability of identity.")

	return tw.err
}

// textWriter formats lines through a locale-aware printer and keeps the
// first write error.
type textWriter struct {
	w   io.Writer
	p   *message.Printer
	err error
}

func (t *textWriter) line(format string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = t.p.Fprintf(t.w, format+"\n", args...)
}

// ExportDocument is the JSON data export of one account.
type ExportDocument struct {
	ExportedAt time.Time              `json:"exported_at"`
	Account    identity.Account       `json:"account"`
	Summary    Summary                `json:"summary"`
	Scans      []facematch.ScanRecord `json:"scans"`
}

// Export writes the account and its scans as indented JSON.
func Export(w io.Writer, account identity.Account, scans []facematch.ScanRecord, bands facematch.Bands, now time.Time) error {
	if scans == nil {
		scans = []facematch.ScanRecord{}
	}
	doc := ExportDocument{
		ExportedAt: now.UTC(),
		Account:    account,
		Summary:    Summarize(scans, bands),
		Scans:      scans,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

// ExportFileName returns the suggested download name for an export made at now.
func ExportFileName(now time.Time) string {
	return "identity-monitor-data-" + now.UTC().Format("2006-01-02") + ".json"
}
