package facematch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Extractor maps an image to a descriptor of a fixed length.
// Implementations never fail: an unusable image or model yields a
// degraded fallback descriptor instead.
type Extractor interface {
	Extract(ctx context.Context, img Image) Extraction
}

// Gallery is a read-only view of the reference identities.
// All must return a consistent snapshot that the caller will not mutate.
type Gallery interface {
	All() []GalleryEntry
}

// Pipeline runs extraction, scoring, thresholding and ranking for a scan.
type Pipeline struct {
	extractor Extractor
	scorer    Scorer
	gallery   Gallery
	opts      Options

	now   func() time.Time
	newID func() string
}

// PipelineOption customizes a Pipeline.
type PipelineOption func(*Pipeline)

// WithClock overrides the clock used for RequestedAt.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) { p.now = now }
}

// WithIDGenerator overrides scan id generation.
func WithIDGenerator(newID func() string) PipelineOption {
	return func(p *Pipeline) { p.newID = newID }
}

// NewPipeline wires a pipeline. A nil scorer defaults to CosineScorer.
func NewPipeline(extractor Extractor, scorer Scorer, gallery Gallery, opts Options, options ...PipelineOption) (*Pipeline, error) {
	if extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if gallery == nil {
		return nil, errors.New("gallery is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid match options: %w", err)
	}
	if scorer == nil {
		scorer = CosineScorer{}
	}

	p := &Pipeline{
		extractor: extractor,
		scorer:    scorer,
		gallery:   gallery,
		opts:      opts,
		now:       time.Now,
		newID:     NewScanID,
	}
	for _, o := range options {
		o(p)
	}
	return p, nil
}

// Options returns the options the pipeline was built with.
func (p *Pipeline) Options() Options {
	return p.opts
}

// Scan extracts a descriptor from img and ranks it against the gallery.
//
// The only error Scan produces on its own is a *DimensionError when a gallery
// entry's descriptor length differs from the probe. A context that is already
// done returns its error before any work starts.
func (p *Pipeline) Scan(ctx context.Context, img Image) (*ScanRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	requestedAt := p.now()
	extraction := p.extractor.Extract(ctx, img)

	matches, err := p.Rank(extraction.Descriptor)
	if err != nil {
		return nil, err
	}

	return &ScanRecord{
		ScanID:         p.newID(),
		RequestedAt:    requestedAt,
		SourceImageRef: img.Ref,
		Matches:        matches,
		MatchCount:     len(matches),
		Degraded:       extraction.Degraded,
		DegradedReason: extraction.Reason,
	}, nil
}

// Rank scores probe against every gallery entry and returns the accepted
// matches ordered by confidence, then raw similarity, both descending.
// Remaining ties keep gallery order.
func (p *Pipeline) Rank(probe Descriptor) ([]Match, error) {
	entries := p.gallery.All()
	matches := make([]Match, 0)

	for i := range entries {
		e := &entries[i]
		if len(e.Descriptor) != len(probe) {
			return nil, &DimensionError{Want: len(probe), Got: len(e.Descriptor), IdentityID: e.IdentityID}
		}

		s, err := p.scorer.Score(probe, e.Descriptor)
		if err != nil {
			return nil, fmt.Errorf("scoring %s: %w", e.IdentityID, err)
		}
		if !p.opts.Accepts(s) {
			continue
		}

		matches = append(matches, Match{
			IdentityID:    e.IdentityID,
			DisplayName:   e.DisplayName,
			Location:      e.Location,
			SourceTag:     e.SourceTag,
			CapturedAt:    e.CapturedAt,
			RawSimilarity: s,
			Confidence:    p.opts.Confidence(s),
			Demographics:  e.Demographics,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		return matches[i].RawSimilarity > matches[j].RawSimilarity
	})

	return matches, nil
}

// NewScanID returns a new unique scan identifier.
func NewScanID() string {
	return "scan_" + uuid.NewString()
}
