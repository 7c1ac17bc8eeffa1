// Package embeddings provides utilities for embedding vectors (L2 normalization, dot products).
package embeddings

import (
	"errors"
	"fmt"
	"math"
)

// ErrDimensionMismatch is returned when two vectors of different length are combined.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// NormalizeL2 scales vector to unit length in place.
// A zero vector is left untouched.
func NormalizeL2(vector []float32) {
	var sumSquares float64

	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}

	if sumSquares == 0 {
		return
	}

	magnitude := math.Sqrt(sumSquares)

	for i := range vector {
		vector[i] = float32(float64(vector[i]) / magnitude)
	}
}

// Dot returns the dot product of a and b accumulated in float64.
func Dot(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}

	return sum, nil
}
