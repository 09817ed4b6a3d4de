package handlers

import (
	"net/http"

	"github.com/kozaktomas/facescan/internal/facematch"
	"github.com/kozaktomas/facescan/internal/gallery"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	options   facematch.Options
	extractor string
	gallery   *gallery.Store
	source    string
}

// NewConfigHandler creates a new config handler. extractor names the active
// descriptor extractor and source the gallery backend.
func NewConfigHandler(options facematch.Options, extractor, source string, g *gallery.Store) *ConfigHandler {
	return &ConfigHandler{
		options:   options,
		extractor: extractor,
		gallery:   g,
		source:    source,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	Match         facematch.Options `json:"match"`
	Extractor     string            `json:"extractor"`
	GallerySource string            `json:"gallery_source"`
	GallerySize   int               `json:"gallery_size"`
	DescriptorDim int               `json:"descriptor_dim"`
}

// Get returns the active matching configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap := h.gallery.Snapshot()
	respondJSON(w, http.StatusOK, ConfigResponse{
		Match:         h.options,
		Extractor:     h.extractor,
		GallerySource: h.source,
		GallerySize:   snap.Len(),
		DescriptorDim: snap.Dim(),
	})
}
