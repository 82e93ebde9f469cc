// Package faceprint holds the embedding arithmetic shared by enrollment
// and verification: L2 normalization and the remapped cosine similarity.
package faceprint

import "math"

// Similarity computes the similarity between two unit-norm embeddings.
// The raw dot product (cosine similarity, range [-1, 1]) is remapped to
// [0, 1] via (cos+1)/2 so that 1.0 means identical and 0.0 means opposite.
// Returns 0 for vectors of mismatched or zero length.
func Similarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}

	// Clamp to [-1, 1] to handle floating point errors
	if dot > 1 {
		dot = 1
	}
	if dot < -1 {
		dot = -1
	}

	return (dot + 1) / 2
}

// Normalize returns a copy of v scaled to unit L2 norm.
// A zero vector is returned unchanged (copied).
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		copy(out, v)
		return out
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Norm returns the L2 norm of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
