// Package formulas provides the shared statistical primitives of the
// engine: Shannon entropy, direction cosines, softmax normalization and
// thin wrappers around gonum's descriptive statistics.
package formulas

import (
	"fmt"
	"math"

	"github.com/aristath/qbayes/internal/domain"
)

// cosineFloor keeps the direction-cosine geometry away from the origin.
const cosineFloor = 1e-10

// ShannonEntropy computes the Shannon entropy, in bits, of a raw sample
// sequence. Each distinct value contributes its empirical frequency;
// zero-probability mass is dropped before taking logarithms.
func ShannonEntropy(data []float64) (float64, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("shannon entropy: %w", domain.ErrEmptyInput)
	}

	counts := make(map[float64]int, len(data))
	for _, v := range data {
		counts[v]++
	}

	n := float64(len(data))
	var entropy float64
	for _, c := range counts {
		p := float64(c) / n
		if p > 0 {
			entropy -= p * math.Log2(p)
		}
	}
	return entropy, nil
}

// EntropyOfDistribution computes the Shannon entropy, in bits, of an
// already-normalized probability mapping. Non-positive entries are
// skipped rather than rejected, matching the sequence form.
func EntropyOfDistribution(probabilities map[string]float64) float64 {
	var entropy float64
	for _, p := range probabilities {
		if p > 0 {
			entropy -= p * math.Log2(p)
		}
	}
	return entropy
}

// DirectionalCosines returns the three direction cosines of the 3-D
// vector (entropy, contextValue, 1). Both inputs are clamped to a small
// positive floor so the magnitude never degenerates.
func DirectionalCosines(entropy, contextValue float64) (cosX, cosY, cosZ float64) {
	entropy = math.Max(entropy, cosineFloor)
	contextValue = math.Max(contextValue, cosineFloor)

	magnitude := math.Sqrt(entropy*entropy + contextValue*contextValue + 1)

	return entropy / magnitude, contextValue / magnitude, 1 / magnitude
}

// Softmax returns the softmax normalization of x. The maximum is
// subtracted before exponentiation for numerical stability. An empty
// input yields an empty output.
func Softmax(x []float64) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}

	maxVal := x[0]
	for _, v := range x[1:] {
		if v > maxVal {
			maxVal = v
		}
	}

	var sum float64
	for i, v := range x {
		out[i] = math.Exp(v - maxVal)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
