package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/kozaktomas/facescan/internal/facematch"
	"github.com/kozaktomas/facescan/internal/identity"
	"github.com/kozaktomas/facescan/internal/report"
	"golang.org/x/text/language"
)

// ReportsHandler serves the text report and the JSON data export
type ReportsHandler struct {
	store identity.Store
	bands facematch.Bands
	now   func() time.Time
}

// NewReportsHandler creates a new reports handler
func NewReportsHandler(store identity.Store, bands facematch.Bands) *ReportsHandler {
	return &ReportsHandler{store: store, bands: bands, now: time.Now}
}

func (h *ReportsHandler) load(w http.ResponseWriter, r *http.Request) (*identity.Account, []facematch.ScanRecord, bool) {
	session := mustSession(w, r)
	if session == nil {
		return nil, nil, false
	}
	acc, err := h.store.GetAccount(r.Context(), session.AccountID)
	if err != nil {
		respondInternal(w, r, "failed to load account", err)
		return nil, nil, false
	}
	scans, err := h.store.ListScans(r.Context(), session.AccountID)
	if err != nil {
		respondInternal(w, r, "failed to list scans", err)
		return nil, nil, false
	}
	return acc, scans, true
}

// Report renders the plain-text report in the language of Accept-Language.
func (h *ReportsHandler) Report(w http.ResponseWriter, r *http.Request) {
	acc, scans, ok := h.load(w, r)
	if !ok {
		return
	}

	tags, _, _ := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	lang := language.English
	if len(tags) > 0 {
		lang = tags[0]
	}

	var buf bytes.Buffer
	err := report.RenderText(&buf, report.Report{
		Account:     *acc,
		Scans:       scans,
		GeneratedAt: h.now(),
		Bands:       h.bands,
		Language:    lang,
	})
	if err != nil {
		respondInternal(w, r, "failed to render report", err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// Export returns every stored scan of the caller as a JSON attachment.
func (h *ReportsHandler) Export(w http.ResponseWriter, r *http.Request) {
	acc, scans, ok := h.load(w, r)
	if !ok {
		return
	}

	now := h.now()
	var buf bytes.Buffer
	if err := report.Export(&buf, *acc, scans, h.bands, now); err != nil {
		respondInternal(w, r, "failed to export data", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.ExportFileName(now)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
