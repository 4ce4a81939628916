package formulas

import (
	"errors"
	"math"
	"testing"

	"github.com/aristath/qbayes/internal/domain"
)

func TestShannonEntropy(t *testing.T) {
	tests := []struct {
		name     string
		data     []float64
		expected float64
	}{
		{"Uniform over 4 outcomes", []float64{1, 2, 3, 4}, 2.0},
		{"Uniform over 8 outcomes", []float64{1, 2, 3, 4, 5, 6, 7, 8}, 3.0},
		{"One-hot distribution", []float64{7, 7, 7, 7}, 0.0},
		{"Repeated values", []float64{1, 2, 3, 4, 5, 5, 2}, 2.2359},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ShannonEntropy(tt.data)
			if err != nil {
				t.Fatalf("ShannonEntropy() error = %v", err)
			}
			if math.Abs(result-tt.expected) > 0.001 {
				t.Errorf("ShannonEntropy() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestShannonEntropy_EmptyInput(t *testing.T) {
	_, err := ShannonEntropy(nil)
	if !errors.Is(err, domain.ErrEmptyInput) {
		t.Errorf("ShannonEntropy(nil) error = %v, want ErrEmptyInput", err)
	}
}

func TestEntropyOfDistribution(t *testing.T) {
	tests := []struct {
		name     string
		probs    map[string]float64
		expected float64
	}{
		{"Fair coin", map[string]float64{"0": 0.5, "1": 0.5}, 1.0},
		{"Certain outcome", map[string]float64{"0": 1.0}, 0.0},
		{"Skewed", map[string]float64{"0": 0.3, "1": 0.7}, 0.8813},
		{"Non-positive mass skipped", map[string]float64{"0": 0.5, "1": 0.5, "2": 0.0, "3": -0.1}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := EntropyOfDistribution(tt.probs)
			if math.Abs(result-tt.expected) > 0.001 {
				t.Errorf("EntropyOfDistribution() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestDirectionalCosines(t *testing.T) {
	cosX, cosY, cosZ := DirectionalCosines(2.5216, 0.8)

	magnitude := math.Sqrt(2.5216*2.5216 + 0.8*0.8 + 1)
	if math.Abs(cosX-2.5216/magnitude) > 1e-12 {
		t.Errorf("cosX = %v, want %v", cosX, 2.5216/magnitude)
	}
	if math.Abs(cosY-0.8/magnitude) > 1e-12 {
		t.Errorf("cosY = %v, want %v", cosY, 0.8/magnitude)
	}
	if math.Abs(cosZ-1/magnitude) > 1e-12 {
		t.Errorf("cosZ = %v, want %v", cosZ, 1/magnitude)
	}
}

func TestDirectionalCosines_UnitVector(t *testing.T) {
	tests := []struct {
		name    string
		entropy float64
		context float64
	}{
		{"Typical values", 2.5, 0.8},
		{"Zero entropy", 0, 1.0},
		{"Both zero", 0, 0},
		{"Large values", 1000, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cosX, cosY, cosZ := DirectionalCosines(tt.entropy, tt.context)
			sumSq := cosX*cosX + cosY*cosY + cosZ*cosZ
			if math.Abs(sumSq-1.0) > 1e-9 {
				t.Errorf("cos_x²+cos_y²+cos_z² = %v, want 1", sumSq)
			}
		})
	}
}

func TestSoftmax(t *testing.T) {
	out := Softmax([]float64{1, 2, 3})

	var sum float64
	for _, v := range out {
		sum += v
	}
	if math.Abs(sum-1.0) > 1e-12 {
		t.Errorf("softmax sum = %v, want 1", sum)
	}
	if !(out[2] > out[1] && out[1] > out[0]) {
		t.Errorf("softmax ordering not preserved: %v", out)
	}
}

func TestSoftmax_LargeInputsStable(t *testing.T) {
	out := Softmax([]float64{1000, 1001})
	for _, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("softmax overflowed: %v", out)
		}
	}
}
