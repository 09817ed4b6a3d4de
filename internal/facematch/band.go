package facematch

// Band groups confidences for display. It never filters matches.
type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

const (
	DefaultBandHigh   = 0.8
	DefaultBandMedium = 0.6
)

// Bands holds the lower cutoffs of the high and medium bands.
type Bands struct {
	High   float64 `json:"high"`
	Medium float64 `json:"medium"`
}

// DefaultBands returns the 0.8 / 0.6 cutoffs.
func DefaultBands() Bands {
	return Bands{High: DefaultBandHigh, Medium: DefaultBandMedium}
}

// Classify returns high for confidence >= High, medium for >= Medium, else low.
func (b Bands) Classify(confidence float64) Band {
	switch {
	case confidence >= b.High:
		return BandHigh
	case confidence >= b.Medium:
		return BandMedium
	default:
		return BandLow
	}
}

// ClassifyConfidence classifies a confidence with the default cutoffs.
func ClassifyConfidence(confidence float64) Band {
	return DefaultBands().Classify(confidence)
}
