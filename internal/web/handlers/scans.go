package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/facescan/internal/constants"
	"github.com/kozaktomas/facescan/internal/facematch"
	"github.com/kozaktomas/facescan/internal/identity"
	"github.com/kozaktomas/facescan/internal/logger"
	"github.com/kozaktomas/facescan/internal/metrics"
	"go.uber.org/zap"
)

// Scanner runs one probe image through the match pipeline.
type Scanner interface {
	Scan(ctx context.Context, img facematch.Image) (*facematch.ScanRecord, error)
	Options() facematch.Options
}

// ScansHandler handles scan endpoints
type ScansHandler struct {
	scanner Scanner
	store   identity.Store
}

// NewScansHandler creates a new scans handler
func NewScansHandler(scanner Scanner, store identity.Store) *ScansHandler {
	return &ScansHandler{scanner: scanner, store: store}
}

type matchView struct {
	facematch.Match
	Band facematch.Band `json:"band"`
}

type scanView struct {
	*facematch.ScanRecord
	Matches []matchView `json:"matches"`
}

func newScanView(rec *facematch.ScanRecord, bands facematch.Bands) scanView {
	view := scanView{ScanRecord: rec, Matches: make([]matchView, 0, len(rec.Matches))}
	for _, m := range rec.Matches {
		view.Matches = append(view.Matches, matchView{Match: m, Band: bands.Classify(m.Confidence)})
	}
	return view
}

// Create scans an uploaded probe image and stores the record in the
// caller's history.
func (h *ScansHandler) Create(w http.ResponseWriter, r *http.Request) {
	session := mustSession(w, r)
	if session == nil {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	file, header, err := r.FormFile(constants.UploadFormField)
	if err != nil {
		respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	if len(data) == 0 {
		respondError(w, http.StatusBadRequest, "file is empty")
		return
	}

	ctx := r.Context()
	log := logger.FromContext(ctx)

	start := time.Now()
	rec, err := h.scanner.Scan(ctx, facematch.Image{Ref: header.Filename, Data: data})
	metrics.ObserveScan(time.Since(start), matchCount(rec), err)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusServiceUnavailable, "scan cancelled")
		return
	case errors.Is(err, facematch.ErrDimensionMismatch):
		respondInternal(w, r, "gallery descriptor dimension mismatch", err)
		return
	case err != nil:
		respondInternal(w, r, "scan failed", err)
		return
	}

	if err := h.store.AppendScan(ctx, session.AccountID, rec); err != nil {
		respondInternal(w, r, "failed to store scan", err)
		return
	}

	log.Info("scan completed",
		zap.String("scan_id", rec.ScanID),
		zap.Int("matches", rec.MatchCount),
		zap.Bool("degraded", rec.Degraded),
	)
	respondJSON(w, http.StatusCreated, newScanView(rec, h.scanner.Options().Bands))
}

func matchCount(rec *facematch.ScanRecord) int {
	if rec == nil {
		return 0
	}
	return rec.MatchCount
}

// List returns the caller's scan history, oldest first.
func (h *ScansHandler) List(w http.ResponseWriter, r *http.Request) {
	session := mustSession(w, r)
	if session == nil {
		return
	}

	scans, err := h.store.ListScans(r.Context(), session.AccountID)
	if err != nil {
		respondInternal(w, r, "failed to list scans", err)
		return
	}

	bands := h.scanner.Options().Bands
	views := make([]scanView, 0, len(scans))
	for i := range scans {
		views = append(views, newScanView(&scans[i], bands))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"scans": views,
		"count": len(views),
	})
}

// Get returns one scan of the caller.
func (h *ScansHandler) Get(w http.ResponseWriter, r *http.Request) {
	session := mustSession(w, r)
	if session == nil {
		return
	}

	rec, err := h.store.GetScan(r.Context(), session.AccountID, chi.URLParam(r, "id"))
	if errors.Is(err, identity.ErrNotFound) {
		respondError(w, http.StatusNotFound, "scan not found")
		return
	}
	if err != nil {
		respondInternal(w, r, "failed to get scan", err)
		return
	}
	respondJSON(w, http.StatusOK, newScanView(rec, h.scanner.Options().Bands))
}

// DeleteAll removes the caller's whole scan history.
func (h *ScansHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	session := mustSession(w, r)
	if session == nil {
		return
	}

	n, err := h.store.DeleteScans(r.Context(), session.AccountID)
	if err != nil {
		respondInternal(w, r, "failed to delete scans", err)
		return
	}
	logger.FromContext(r.Context()).Info("scan history deleted", zap.Int("scans", n))
	respondJSON(w, http.StatusOK, map[string]int{"deleted": n})
}
