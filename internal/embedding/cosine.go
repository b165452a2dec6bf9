package embedding

import "math"

// CosineSimilarity returns the cosine similarity of two vectors clamped to
// [0, 1]. Mismatched lengths or a zero-norm vector score 0.0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if similarity < 0 {
		return 0.0
	}
	if similarity > 1 {
		return 1.0
	}
	return similarity
}
