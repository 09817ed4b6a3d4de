package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/facescan/internal/facematch"
	"github.com/kozaktomas/facescan/internal/logger"
	"github.com/kozaktomas/facescan/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Fallback reasons reported in facematch.Extraction.Reason.
const (
	ReasonModelUnavailable  = "model_unavailable"
	ReasonRequestFailed     = "request_failed"
	ReasonNoFace            = "no_face"
	ReasonDimensionMismatch = "dimension_mismatch"
)

const defaultRetryAfter = 30 * time.Second

var errModelUnavailable = errors.New("face model unavailable")

// FaceDetection represents a single detected face
type FaceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// FaceResponse represents the response from the face embedding endpoint
type FaceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []FaceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// ModelExtractor computes descriptors with a face embedding server.
// Any failure falls back to a StubExtractor of the same dimension and the
// result is marked degraded.
type ModelExtractor struct {
	baseURL    string
	dim        int
	client     *http.Client
	stub       *StubExtractor
	retryAfter time.Duration
	now        func() time.Time

	loads    singleflight.Group
	mu       sync.Mutex
	ready    bool
	failedAt time.Time
}

// ModelOption customizes a ModelExtractor.
type ModelOption func(*ModelExtractor)

// WithHTTPClient sets the HTTP client used for model requests.
func WithHTTPClient(c *http.Client) ModelOption {
	return func(m *ModelExtractor) { m.client = c }
}

// WithRetryAfter sets how long a failed model load is remembered before probing again.
func WithRetryAfter(d time.Duration) ModelOption {
	return func(m *ModelExtractor) { m.retryAfter = d }
}

// NewModelExtractor creates an extractor backed by the server at baseURL.
func NewModelExtractor(baseURL string, dim int, opts ...ModelOption) *ModelExtractor {
	if dim <= 0 {
		dim = DefaultDim
	}
	m := &ModelExtractor{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		dim:        dim,
		client:     &http.Client{Timeout: 60 * time.Second},
		stub:       NewStubExtractor(dim),
		retryAfter: defaultRetryAfter,
		now:        time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Dim returns the descriptor length this extractor produces.
func (m *ModelExtractor) Dim() int {
	return m.dim
}

// Extract implements facematch.Extractor.
func (m *ModelExtractor) Extract(ctx context.Context, img facematch.Image) facematch.Extraction {
	if err := m.EnsureLoaded(ctx); err != nil {
		return m.fallback(ctx, img, ReasonModelUnavailable, err)
	}

	resp, err := m.ComputeFaceEmbeddings(ctx, img.Data)
	if err != nil {
		return m.fallback(ctx, img, ReasonRequestFailed, err)
	}

	best := bestFace(resp.Faces)
	if best == nil {
		return m.fallback(ctx, img, ReasonNoFace, nil)
	}
	if len(best.Embedding) != m.dim {
		return m.fallback(ctx, img, ReasonDimensionMismatch,
			&facematch.DimensionError{Want: m.dim, Got: len(best.Embedding)})
	}

	metrics.ExtractionsTotal.WithLabelValues("model", "ok").Inc()
	return facematch.Extraction{Descriptor: facematch.Descriptor(best.Embedding)}
}

func (m *ModelExtractor) fallback(ctx context.Context, img facematch.Image, reason string, err error) facematch.Extraction {
	logger.FromContext(ctx).Warn("face extraction degraded to stub descriptor",
		zap.String("image", img.Ref),
		zap.String("reason", reason),
		zap.Error(err),
	)
	metrics.ExtractionsTotal.WithLabelValues("model", reason).Inc()

	return facematch.Extraction{
		Descriptor: m.stub.Descriptor(img.Data),
		Degraded:   true,
		Reason:     reason,
	}
}

// bestFace returns the detection with the highest detection score.
func bestFace(faces []FaceDetection) *FaceDetection {
	var best *FaceDetection
	for i := range faces {
		if len(faces[i].Embedding) == 0 {
			continue
		}
		if best == nil || faces[i].DetScore > best.DetScore {
			best = &faces[i]
		}
	}
	return best
}

// EnsureLoaded probes the model server once. Concurrent callers share a
// single probe; a failed probe is not repeated until retryAfter has passed.
func (m *ModelExtractor) EnsureLoaded(ctx context.Context) error {
	if done, err := m.loadState(); done {
		return err
	}

	_, err, _ := m.loads.Do("load", func() (any, error) {
		// A caller that lost the race to an earlier probe sees its result here.
		if done, err := m.loadState(); done {
			return nil, err
		}

		// One caller going away must not fail the probe for the others.
		err := m.probe(context.WithoutCancel(ctx))

		m.mu.Lock()
		defer m.mu.Unlock()
		if err != nil {
			m.failedAt = m.now()
			metrics.ModelLoadsTotal.WithLabelValues("error").Inc()
			logger.FromContext(ctx).Warn("face model not reachable", zap.String("url", m.baseURL), zap.Error(err))
			return nil, fmt.Errorf("%w: %w", errModelUnavailable, err)
		}
		m.ready = true
		m.failedAt = time.Time{}
		metrics.ModelLoadsTotal.WithLabelValues("ok").Inc()
		logger.FromContext(ctx).Info("face model ready", zap.String("url", m.baseURL), zap.Int("dim", m.dim))
		return nil, nil
	})
	return err
}

// loadState reports whether the load outcome is already known, and the error
// to return for it.
func (m *ModelExtractor) loadState() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ready {
		return true, nil
	}
	if !m.failedAt.IsZero() && m.now().Sub(m.failedAt) < m.retryAfter {
		return true, errModelUnavailable
	}
	return false, nil
}

func (m *ModelExtractor) probe(ctx context.Context) error {
	if m.baseURL == "" {
		return errors.New("no model URL configured")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// ComputeFaceEmbeddings detects faces and computes their embeddings
func (m *ModelExtractor) ComputeFaceEmbeddings(ctx context.Context, imageData []byte) (*FaceResponse, error) {
	body, err := m.postMultipartImage(ctx, "/embed/face", imageData)
	if err != nil {
		return nil, err
	}

	var faceResp FaceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &faceResp, nil
}

// postMultipartImage posts the image as the "file" part of a multipart form,
// with a Content-Type detected from magic bytes.
func (m *ModelExtractor) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image"`)
	h.Set("Content-Type", DetectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// DetectMIMEType detects the MIME type from image magic bytes.
func DetectMIMEType(data []byte) string {
	switch {
	case len(data) < 8:
		return "application/octet-stream"
	case data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "image/jpeg"
	case data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47:
		return "image/png"
	case data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x38:
		return "image/gif"
	case data[0] == 0x42 && data[1] == 0x4D:
		return "image/bmp"
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return "image/webp"
	}
	return "application/octet-stream"
}
