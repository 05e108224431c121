// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package embeddings

import (
	"fmt"
	"math"
)

// CosineSimilarity returns 1 - cosine distance between a and b.
// Mismatched lengths and zero-norm inputs score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CheckDimensions returns an error when vec is not exactly dimensions long
// or holds a NaN or infinite component.
func CheckDimensions(vec []float32, dimensions int) error {
	if len(vec) != dimensions {
		return fmt.Errorf("embedding must have %d dimensions, got %d", dimensions, len(vec))
	}
	for i, x := range vec {
		if f := float64(x); math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("embedding component %d is not a finite number", i)
		}
	}
	return nil
}

// WeightedMean averages vectors with the given weights. Vectors whose
// length differs from dimensions are skipped. A zero total weight yields
// a zero vector.
func WeightedMean(vectors [][]float32, weights []float64, dimensions int) Vector {
	sum := make([]float64, dimensions)
	var total float64

	for i, vec := range vectors {
		if len(vec) != dimensions || i >= len(weights) {
			continue
		}
		w := weights[i]
		for j, x := range vec {
			sum[j] += float64(x) * w
		}
		total += w
	}

	out := Zero(dimensions)
	if total == 0 {
		return out
	}
	for j := range sum {
		out[j] = float32(sum[j] / total)
	}
	return out
}
