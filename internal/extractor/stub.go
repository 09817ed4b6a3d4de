// Package extractor turns images into face descriptors.
package extractor

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"math/rand/v2"

	"github.com/kozaktomas/facescan/internal/constants"
	"github.com/kozaktomas/facescan/internal/facematch"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultDim is the descriptor length of the face-api recognition net.
const DefaultDim = 128

// maxDecodePixels is read from the image header before any pixel data is
// allocated. Larger images are hashed instead of decoded.
var maxDecodePixels = constants.MaxDecodePixels

// StubExtractor derives a deterministic descriptor from the image content.
// Decodable images are sampled on a grayscale grid; anything else is hashed
// into a seeded vector. Identical bytes always give identical descriptors.
type StubExtractor struct {
	Dim int
}

// NewStubExtractor returns a stub producing descriptors of length dim.
func NewStubExtractor(dim int) *StubExtractor {
	if dim <= 0 {
		dim = DefaultDim
	}
	return &StubExtractor{Dim: dim}
}

// Extract implements facematch.Extractor.
func (s *StubExtractor) Extract(_ context.Context, img facematch.Image) facematch.Extraction {
	return facematch.Extraction{Descriptor: s.Descriptor(img.Data)}
}

// Descriptor computes the stub descriptor of raw image bytes.
func (s *StubExtractor) Descriptor(data []byte) facematch.Descriptor {
	dim := s.Dim
	if dim <= 0 {
		dim = DefaultDim
	}
	if d := pixelDescriptor(data, dim); d != nil {
		return d
	}
	return hashDescriptor(data, dim)
}

// pixelDescriptor samples the decoded image on a square grayscale grid,
// centers the samples and scales them into [-1, 1].
// Returns nil for undecodable, oversized or flat images.
func pixelDescriptor(data []byte, dim int) facematch.Descriptor {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return nil
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxDecodePixels) {
		return nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	if b := src.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil
	}

	side := int(math.Ceil(math.Sqrt(float64(dim))))
	gray := image.NewGray(image.Rect(0, 0, side, side))
	draw.ApproxBiLinear.Scale(gray, gray.Bounds(), src, src.Bounds(), draw.Src, nil)

	samples := gray.Pix[:dim]
	var mean float64
	for _, p := range samples {
		mean += float64(p)
	}
	mean /= float64(dim)

	var maxDev float64
	for _, p := range samples {
		maxDev = math.Max(maxDev, math.Abs(float64(p)-mean))
	}
	if maxDev == 0 {
		return nil
	}

	d := make(facematch.Descriptor, dim)
	for i, p := range samples {
		d[i] = float32((float64(p) - mean) / maxDev)
	}
	return d
}

// hashDescriptor seeds a PCG source from the SHA-256 of data and draws
// values uniformly from [-1, 1).
func hashDescriptor(data []byte, dim int) facematch.Descriptor {
	sum := sha256.Sum256(data)
	rng := rand.New(rand.NewPCG(binary.LittleEndian.Uint64(sum[:8]), binary.LittleEndian.Uint64(sum[8:16])))

	d := make(facematch.Descriptor, dim)
	for i := range d {
		d[i] = float32(rng.Float64()*2 - 1)
	}
	return d
}
