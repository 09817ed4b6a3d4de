package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/facescan/internal/facematch"
)

func TestConfigHandler_Get(t *testing.T) {
	h := NewConfigHandler(facematch.DefaultOptions(), "stub", "demo", testGallery())

	recorder := httptest.NewRecorder()
	h.Get(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/config", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp ConfigResponse
	parseJSONResponse(t, recorder, &resp)

	if resp.Match.MatchThreshold != 0.6 || resp.Match.ConfidenceBoost != 1.2 {
		t.Errorf("unexpected match options: %+v", resp.Match)
	}
	if resp.Extractor != "stub" || resp.GallerySource != "demo" || resp.GallerySize != 3 || resp.DescriptorDim != 3 {
		t.Errorf("unexpected response: %+v", resp)
	}
}
