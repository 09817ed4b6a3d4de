package facematch

import "testing"

func TestClassifyConfidence(t *testing.T) {
	tests := []struct {
		confidence float64
		want       Band
	}{
		{1.0, BandHigh},
		{0.81, BandHigh},
		{0.8, BandHigh},
		{0.7999, BandMedium},
		{0.65, BandMedium},
		{0.6, BandMedium},
		{0.5999, BandLow},
		{0.4, BandLow},
		{0, BandLow},
	}

	for _, tt := range tests {
		if got := ClassifyConfidence(tt.confidence); got != tt.want {
			t.Errorf("ClassifyConfidence(%v) = %q, want %q", tt.confidence, got, tt.want)
		}
	}
}

func TestBands_CustomCutoffs(t *testing.T) {
	b := Bands{High: 0.9, Medium: 0.5}
	if got := b.Classify(0.85); got != BandMedium {
		t.Errorf("Classify(0.85) = %q, want medium", got)
	}
	if got := b.Classify(0.5); got != BandMedium {
		t.Errorf("Classify(0.5) = %q, want medium", got)
	}
	if got := b.Classify(0.49); got != BandLow {
		t.Errorf("Classify(0.49) = %q, want low", got)
	}
}
