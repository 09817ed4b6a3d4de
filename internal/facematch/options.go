package facematch

import (
	"errors"
	"fmt"
	"math"
)

const (
	// DefaultMatchThreshold is the similarity a gallery entry must exceed.
	DefaultMatchThreshold = 0.6
	// DefaultConfidenceBoost scales similarity into displayed confidence.
	DefaultConfidenceBoost = 1.2
	// DefaultConfidenceCap is the upper clamp of confidence.
	DefaultConfidenceCap = 1.0
)

// Options controls thresholding, confidence rescaling and band cutoffs.
type Options struct {
	MatchThreshold  float64 `json:"match_threshold"`
	ConfidenceBoost float64 `json:"confidence_boost"`
	ConfidenceCap   float64 `json:"confidence_cap"`
	Bands           Bands   `json:"bands"`
}

// DefaultOptions returns threshold 0.6, boost 1.2, cap 1.0 and bands 0.8 / 0.6.
func DefaultOptions() Options {
	return Options{
		MatchThreshold:  DefaultMatchThreshold,
		ConfidenceBoost: DefaultConfidenceBoost,
		ConfidenceCap:   DefaultConfidenceCap,
		Bands:           DefaultBands(),
	}
}

// Validate rejects option sets the pipeline cannot apply. Threshold, cap
// and band cutoffs live in [0, 1] so every accepted match has a confidence
// in [0, 1].
func (o Options) Validate() error {
	if !inUnitRange(o.MatchThreshold) {
		return fmt.Errorf("match threshold %v outside [0, 1]", o.MatchThreshold)
	}
	if !(o.ConfidenceBoost > 0) || math.IsInf(o.ConfidenceBoost, 0) {
		return fmt.Errorf("confidence boost must be positive and finite, got %v", o.ConfidenceBoost)
	}
	if !(o.ConfidenceCap > 0 && o.ConfidenceCap <= 1) {
		return fmt.Errorf("confidence cap %v outside (0, 1]", o.ConfidenceCap)
	}
	if !inUnitRange(o.Bands.High) || !inUnitRange(o.Bands.Medium) {
		return fmt.Errorf("band cutoffs %v / %v outside [0, 1]", o.Bands.High, o.Bands.Medium)
	}
	if o.Bands.High < o.Bands.Medium {
		return errors.New("high band cutoff must not be below medium band cutoff")
	}
	return nil
}

// inUnitRange is false for NaN.
func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}

// Confidence rescales a similarity: min(similarity * boost, cap).
func (o Options) Confidence(similarity float64) float64 {
	return math.Min(similarity*o.ConfidenceBoost, o.ConfidenceCap)
}

// Accepts reports whether a similarity strictly exceeds the match threshold.
func (o Options) Accepts(similarity float64) bool {
	return similarity > o.MatchThreshold
}
