package facematch

import "math"

// Scorer computes a bounded similarity between two descriptors.
type Scorer interface {
	Score(a, b Descriptor) (float64, error)
}

// CosineScorer scores descriptors by cosine similarity.
type CosineScorer struct{}

// Score returns the cosine similarity of a and b in [-1, 1].
// A zero-norm vector scores 0. Unequal lengths return a *DimensionError.
func (CosineScorer) Score(a, b Descriptor) (float64, error) {
	return CosineSimilarity(a, b)
}

// CosineSimilarity computes (a·b) / (|a|·|b|) in float64.
func CosineSimilarity(a, b Descriptor) (float64, error) {
	if len(a) != len(b) {
		return 0, &DimensionError{Want: len(a), Got: len(b)}
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to handle floating point errors
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}
	return similarity, nil
}
