package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/facescan/internal/constants"
	"github.com/kozaktomas/facescan/internal/facematch"
	"github.com/kozaktomas/facescan/internal/gallery"
)

// GalleryHandler lets authenticated users browse the reference gallery
type GalleryHandler struct {
	store *gallery.Store

	mu        sync.Mutex
	snapshot  *gallery.Index
	neighbors *gallery.NeighborIndex
}

// NewGalleryHandler creates a new gallery handler
func NewGalleryHandler(store *gallery.Store) *GalleryHandler {
	return &GalleryHandler{store: store}
}

// entryView is a gallery entry without its descriptor.
type entryView struct {
	IdentityID   string                 `json:"identity_id"`
	DisplayName  string                 `json:"display_name"`
	Location     string                 `json:"location"`
	SourceTag    string                 `json:"source_tag"`
	CapturedAt   time.Time              `json:"captured_at"`
	Demographics facematch.Demographics `json:"demographics"`
}

func newEntryView(e facematch.GalleryEntry) entryView {
	return entryView{
		IdentityID:   e.IdentityID,
		DisplayName:  e.DisplayName,
		Location:     e.Location,
		SourceTag:    e.SourceTag,
		CapturedAt:   e.CapturedAt,
		Demographics: e.Demographics,
	}
}

// List returns the gallery entries, optionally filtered by ?name=.
func (h *GalleryHandler) List(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Snapshot()

	entries := snap.All()
	if name := r.URL.Query().Get("name"); name != "" {
		entries = snap.FindByName(name)
	}

	views := make([]entryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, newEntryView(e))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"entries": views,
		"count":   len(views),
		"total":   snap.Len(),
		"dim":     snap.Dim(),
	})
}

type neighborView struct {
	entryView
	Similarity float64 `json:"similarity"`
}

// Neighbors returns the gallery identities closest to {id}.
func (h *GalleryHandler) Neighbors(w http.ResponseWriter, r *http.Request) {
	k := constants.DefaultNeighbors
	if raw := r.URL.Query().Get("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || validate.Var(n, "min=1,max="+strconv.Itoa(constants.MaxNeighbors)) != nil {
			respondError(w, http.StatusBadRequest, "k must be between 1 and "+strconv.Itoa(constants.MaxNeighbors))
			return
		}
		k = n
	}

	idx, err := h.neighborIndex()
	if err != nil {
		respondInternal(w, r, "failed to build neighbor index", err)
		return
	}

	id := chi.URLParam(r, "id")
	neighbors, err := idx.Neighbors(id, k)
	if errors.Is(err, gallery.ErrNotFound) {
		respondError(w, http.StatusNotFound, "gallery entry not found")
		return
	}
	if err != nil {
		respondInternal(w, r, "neighbor lookup failed", err)
		return
	}

	views := make([]neighborView, 0, len(neighbors))
	for _, n := range neighbors {
		views = append(views, neighborView{entryView: newEntryView(n.Entry), Similarity: n.Similarity})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"identity_id": id,
		"neighbors":   views,
	})
}

// neighborIndex returns the HNSW index for the current snapshot, rebuilding
// it when the gallery changed since the last lookup.
func (h *GalleryHandler) neighborIndex() (*gallery.NeighborIndex, error) {
	snap := h.store.Snapshot()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.neighbors != nil && h.snapshot == snap {
		return h.neighbors, nil
	}
	idx, err := gallery.NewNeighborIndex(snap)
	if err != nil {
		return nil, err
	}
	h.snapshot = snap
	h.neighbors = idx
	return idx, nil
}
