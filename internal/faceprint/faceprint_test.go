package faceprint

import (
	"math"
	"testing"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1.0},
		{"opposite", []float32{1, 0, 0}, []float32{-1, 0, 0}, 0.0},
		{"orthogonal", []float32{1, 0, 0}, []float32{0, 1, 0}, 0.5},
		{"mismatched length", []float32{1, 0}, []float32{1, 0, 0}, 0.0},
		{"empty", nil, nil, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Similarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Similarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSimilarityClampsRoundingError(t *testing.T) {
	// Slightly over-unit vectors can push the dot product past 1.0.
	a := []float32{1.0000001, 0}
	got := Similarity(a, a)
	if got > 1.0 {
		t.Errorf("Similarity() = %v, want <= 1.0", got)
	}
}

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	n := Normalize(v)
	if math.Abs(Norm(n)-1.0) > 1e-6 {
		t.Errorf("Norm(Normalize(v)) = %v, want 1.0", Norm(n))
	}
	if v[0] != 3 || v[1] != 4 {
		t.Error("Normalize mutated its input")
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	v := []float32{0, 0, 0}
	n := Normalize(v)
	if len(n) != 3 || n[0] != 0 || n[1] != 0 || n[2] != 0 {
		t.Errorf("Normalize(zero) = %v, want zero vector", n)
	}
}
