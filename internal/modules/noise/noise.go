// Package noise models the probabilistic reference noise value object: a
// bounded scalar influence with an audit history, weighted combination
// and entropy reporting.
package noise

import (
	"fmt"

	"github.com/aristath/qbayes/internal/domain"
	"github.com/aristath/qbayes/pkg/formulas"
)

// AdjustmentRecord captures one influence mutation.
type AdjustmentRecord struct {
	Previous   float64 `json:"previous"`
	Adjustment float64 `json:"adjustment"`
	New        float64 `json:"new"`
	Truncated  bool    `json:"truncated"`
}

// ReferenceNoise is a bounded scalar influence in [0,1] with an optional
// algorithm tag and free-form parameters. Every mutation appends exactly
// one history record. Combination produces a new instance and never
// mutates its operands.
type ReferenceNoise struct {
	influence     float64
	algorithmType string
	parameters    map[string]float64
	history       []AdjustmentRecord
}

// New creates a ReferenceNoise with a validated initial influence.
func New(influence float64, algorithmType string, parameters map[string]float64) (*ReferenceNoise, error) {
	if influence < 0 || influence > 1 {
		return nil, fmt.Errorf("influence must be in [0,1], got %v: %w", influence, domain.ErrInvalidRange)
	}

	params := make(map[string]float64, len(parameters))
	for k, v := range parameters {
		params[k] = v
	}

	return &ReferenceNoise{
		influence:     influence,
		algorithmType: algorithmType,
		parameters:    params,
	}, nil
}

// Influence returns the current influence factor.
func (n *ReferenceNoise) Influence() float64 {
	return n.influence
}

// AlgorithmType returns the algorithm tag, if any.
func (n *ReferenceNoise) AlgorithmType() string {
	return n.algorithmType
}

// Parameter returns a named parameter and whether it is set.
func (n *ReferenceNoise) Parameter(key string) (float64, bool) {
	v, ok := n.parameters[key]
	return v, ok
}

// Parameters returns a copy of the parameter mapping.
func (n *ReferenceNoise) Parameters() map[string]float64 {
	out := make(map[string]float64, len(n.parameters))
	for k, v := range n.parameters {
		out[k] = v
	}
	return out
}

// History returns the append-only adjustment history.
func (n *ReferenceNoise) History() []AdjustmentRecord {
	out := make([]AdjustmentRecord, len(n.history))
	copy(out, n.history)
	return out
}

// Adjust shifts the influence by delta, clamping the result into [0,1],
// and appends a history record. Truncated is set when clamping changed
// the raw sum. Returns the new influence.
func (n *ReferenceNoise) Adjust(delta float64) float64 {
	previous := n.influence
	raw := n.influence + delta

	clamped := raw
	if clamped < 0 {
		clamped = 0
	} else if clamped > 1 {
		clamped = 1
	}

	n.influence = clamped
	n.history = append(n.history, AdjustmentRecord{
		Previous:   previous,
		Adjustment: delta,
		New:        clamped,
		Truncated:  raw != clamped,
	})

	return clamped
}

// Combine merges this noise with another under the given weight and
// returns a new instance. The result influence is
// weight·self + (1-weight)·other; parameters are the union of both maps
// with other's values winning on collision; the algorithm tag follows
// whichever operand dominates the weight.
func (n *ReferenceNoise) Combine(other *ReferenceNoise, weight float64) (*ReferenceNoise, error) {
	if other == nil {
		return nil, fmt.Errorf("combine requires a ReferenceNoise operand: %w", domain.ErrTypeMismatch)
	}
	if weight < 0 || weight > 1 {
		return nil, fmt.Errorf("weight must be in [0,1], got %v: %w", weight, domain.ErrInvalidRange)
	}

	combined := n.influence*weight + other.influence*(1-weight)

	params := make(map[string]float64, len(n.parameters)+len(other.parameters))
	for k, v := range n.parameters {
		params[k] = v
	}
	for k, v := range other.parameters {
		params[k] = v
	}

	algorithm := n.algorithmType
	if weight < 0.5 {
		algorithm = other.algorithmType
	}

	return New(combined, algorithm, params)
}

// EntropyOf reports the Shannon entropy, in bits, of a probability
// mapping, skipping non-positive entries.
func (n *ReferenceNoise) EntropyOf(probabilities map[string]float64) float64 {
	return formulas.EntropyOfDistribution(probabilities)
}

// String implements fmt.Stringer.
func (n *ReferenceNoise) String() string {
	if n.algorithmType != "" {
		return fmt.Sprintf("ReferenceNoise(influence=%.4f, algorithm=%s)", n.influence, n.algorithmType)
	}
	return fmt.Sprintf("ReferenceNoise(influence=%.4f)", n.influence)
}
