package facematch

import (
	"errors"
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b Descriptor
		want float64
	}{
		{"identical", Descriptor{1, 2, 3}, Descriptor{1, 2, 3}, 1},
		{"opposite", Descriptor{1, 0}, Descriptor{-1, 0}, -1},
		{"orthogonal", Descriptor{1, 0}, Descriptor{0, 1}, 0},
		{"three-four-five", Descriptor{1, 0}, Descriptor{3, 4}, 0.6},
		{"scaled", Descriptor{1, 1}, Descriptor{5, 5}, 1},
		{"empty", Descriptor{}, Descriptor{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineSimilarity_ZeroNorm(t *testing.T) {
	zero := make(Descriptor, 128)
	other := make(Descriptor, 128)
	for i := range other {
		other[i] = float32(i%7) - 3
	}

	for _, pair := range [][2]Descriptor{{zero, other}, {other, zero}, {zero, zero}} {
		got, err := CosineScorer{}.Score(pair[0], pair[1])
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 0 || math.IsNaN(got) {
			t.Errorf("zero-norm similarity = %v, want 0", got)
		}
	}
}

func TestCosineSimilarity_DimensionMismatch(t *testing.T) {
	a := make(Descriptor, 128)
	b := make(Descriptor, 64)
	a[0], b[0] = 1, 1

	_, err := CosineScorer{}.Score(a, b)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}

	var dimErr *DimensionError
	if !errors.As(err, &dimErr) {
		t.Fatalf("expected *DimensionError, got %T", err)
	}
	if dimErr.Want != 128 || dimErr.Got != 64 {
		t.Errorf("DimensionError = %+v, want 128 vs 64", dimErr)
	}
}
