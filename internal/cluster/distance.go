package cluster

import "math"

// CosineDistance computes the cosine distance between two vectors.
// Returns a value between 0 (identical direction) and 2 (opposite).
// Invalid input (mismatched length, empty, or zero vectors) yields the
// maximum distance so such pairs never count as neighbors.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 2.0
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to absorb floating point error.
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}

	return 1 - similarity
}

// Centroid returns the arithmetic mean of the given embeddings.
// The mean (rather than a medoid) is the documented centroid statistic for
// both transient clusters and persisted person identities; it is deterministic
// for a fixed input order. Returns nil for empty input.
func Centroid(embeddings [][]float32) []float32 {
	if len(embeddings) == 0 {
		return nil
	}

	dim := len(embeddings[0])
	sum := make([]float64, dim)
	for _, emb := range embeddings {
		if len(emb) != dim {
			continue
		}
		for i, v := range emb {
			sum[i] += float64(v)
		}
	}

	centroid := make([]float32, dim)
	n := float64(len(embeddings))
	for i, v := range sum {
		centroid[i] = float32(v / n)
	}
	return centroid
}
