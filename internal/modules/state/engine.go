// Package state manages a normalized probability state vector that
// evolves through posterior-weighted updates. Engines can interfere
// with and entangle against each other, and serialize to a portable
// snapshot record.
package state

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/aristath/qbayes/internal/domain"
	"github.com/aristath/qbayes/internal/modules/quantumbayes"
	"github.com/aristath/qbayes/pkg/formulas"
)

// Engine holds one mutable state vector. Single-owner mutable state;
// callers serialize access.
type Engine struct {
	scorer        *quantumbayes.Scorer
	numPositions  int
	learningRate  float64
	vector        []float64
	probabilities []float64
	rng           *rand.Rand
	log           zerolog.Logger
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithRand injects a deterministic random source.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithVector seeds the engine with an explicit state vector instead of
// a random one. The vector is normalized on construction and its
// length must match numPositions.
func WithVector(vector []float64) Option {
	return func(e *Engine) {
		e.vector = make([]float64, len(vector))
		copy(e.vector, vector)
	}
}

// New constructs an engine with a random normalized state vector.
func New(scorer *quantumbayes.Scorer, numPositions int, learningRate float64, log zerolog.Logger, opts ...Option) (*Engine, error) {
	if numPositions < 1 {
		return nil, fmt.Errorf("num positions %d must be at least 1: %w", numPositions, domain.ErrInvalidRange)
	}
	if learningRate <= 0 || learningRate > 1 {
		return nil, fmt.Errorf("learning rate %f must be in (0, 1]: %w", learningRate, domain.ErrInvalidRange)
	}

	e := &Engine{
		scorer:       scorer,
		numPositions: numPositions,
		learningRate: learningRate,
		log:          log.With().Str("component", "state").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if e.vector == nil {
		e.vector = make([]float64, numPositions)
		for i := range e.vector {
			e.vector[i] = e.rng.Float64()
		}
	} else if len(e.vector) != numPositions {
		return nil, fmt.Errorf("seed vector has %d entries, expected %d: %w",
			len(e.vector), numPositions, domain.ErrShapeMismatch)
	}

	e.vector = normalize(e.vector)
	e.probabilities = make([]float64, numPositions)
	copy(e.probabilities, e.vector)

	return e, nil
}

// normalize scales the vector to unit L2 norm. A zero vector is left
// untouched to avoid dividing by zero.
func normalize(vector []float64) []float64 {
	norm := floats.Norm(vector, 2)
	if norm == 0 {
		return vector
	}
	floats.Scale(1/norm, vector)
	return vector
}

// NumPositions returns the vector dimension.
func (e *Engine) NumPositions() int { return e.numPositions }

// LearningRate returns the configured learning rate.
func (e *Engine) LearningRate() float64 { return e.learningRate }

// Vector returns a copy of the current state vector.
func (e *Engine) Vector() []float64 {
	out := make([]float64, len(e.vector))
	copy(out, e.vector)
	return out
}

// Probabilities returns a copy of the current probability vector.
func (e *Engine) Probabilities() []float64 {
	out := make([]float64, len(e.probabilities))
	copy(out, e.probabilities)
	return out
}

// PredictUpdate runs the projection pipeline over the current vector
// as a single-row batch and returns the normalized scalar prediction
// together with the posterior that weighted it. The pipeline projects
// two-column batches, so it is only defined for two-position engines.
func (e *Engine) PredictUpdate() (next, posterior float64, err error) {
	entropy, err := formulas.ShannonEntropy(e.vector)
	if err != nil {
		return 0, 0, err
	}
	coherence := formulas.Mean(e.vector)

	batch := [][]float64{e.Vector()}
	next, posterior, err = e.scorer.PredictNext(batch, entropy, coherence)
	if err != nil {
		return 0, 0, err
	}

	// Scalar renormalization reduces to the sign.
	if next != 0 {
		next = next / math.Abs(next)
	}
	return next, posterior, nil
}

// updateFactor scales the blend by the posterior: action 1 leans into
// the prediction, action 0 holds closer to the current state.
func (e *Engine) updateFactor(action int, posterior float64) float64 {
	if action == 1 {
		return e.learningRate * (1 + posterior)
	}
	return e.learningRate * (1 - posterior)
}

// Update blends the current vector toward the predicted state. The
// result is renormalized and the probabilities recomputed as
// elementwise absolute values.
func (e *Engine) Update(action int) error {
	next, posterior, err := e.PredictUpdate()
	if err != nil {
		return err
	}

	updateFactor := e.updateFactor(action, posterior)

	for i := range e.vector {
		e.vector[i] = (1-updateFactor)*e.vector[i] + updateFactor*next
	}
	e.vector = normalize(e.vector)

	for i, v := range e.vector {
		e.probabilities[i] = math.Abs(v)
	}

	e.log.Debug().
		Int("action", action).
		Float64("posterior", posterior).
		Float64("update_factor", updateFactor).
		Msg("State updated")
	return nil
}

// Uncertainty returns the Shannon entropy of the probability vector.
func (e *Engine) Uncertainty() float64 {
	entropy, err := formulas.ShannonEntropy(e.probabilities)
	if err != nil {
		return 0
	}
	return entropy
}

// Interference combines two states through a simplified interference
// model: the scalar dot product of their magnitudes modulates this
// engine's vector through a cosine. Not a physical superposition.
func (e *Engine) Interference(other *Engine) ([]float64, error) {
	if other == nil || len(other.vector) != len(e.vector) {
		return nil, fmt.Errorf("interference requires matching dimensions: %w", domain.ErrShapeMismatch)
	}

	var pattern float64
	for i := range e.vector {
		pattern += math.Abs(e.vector[i]) * math.Abs(other.vector[i])
	}

	result := make([]float64, len(e.vector))
	scale := math.Cos(pattern)
	for i, v := range e.vector {
		result[i] = v * scale
	}
	return normalize(result), nil
}

// Entanglement measures the Shannon entropy of the flattened outer
// product of the two probability vectors.
func (e *Engine) Entanglement(other *Engine) (float64, error) {
	if other == nil {
		return 0, fmt.Errorf("entanglement requires a second state: %w", domain.ErrTypeMismatch)
	}

	flat := make([]float64, 0, len(e.probabilities)*len(other.probabilities))
	for _, a := range e.probabilities {
		for _, b := range other.probabilities {
			flat = append(flat, math.Abs(a)*math.Abs(b))
		}
	}
	return formulas.ShannonEntropy(flat)
}

// Measure returns the expectation value of the observable against the
// current state. A nil observable defaults to the diagonal of the
// probability vector.
func (e *Engine) Measure(observable [][]float64) (float64, error) {
	n := len(e.vector)
	if observable == nil {
		observable = make([][]float64, n)
		for i := range observable {
			observable[i] = make([]float64, n)
			observable[i][i] = e.probabilities[i]
		}
	}
	if len(observable) != n {
		return 0, fmt.Errorf("observable has %d rows, expected %d: %w",
			len(observable), n, domain.ErrShapeMismatch)
	}

	var expectation float64
	for i, row := range observable {
		if len(row) != n {
			return 0, fmt.Errorf("observable row %d has %d columns, expected %d: %w",
				i, len(row), n, domain.ErrShapeMismatch)
		}
		var inner float64
		for j, v := range row {
			inner += v * e.vector[j]
		}
		expectation += e.vector[i] * inner
	}
	return expectation, nil
}

// View is the visualization snapshot of an engine.
type View struct {
	StateVector   []float64 `json:"state_vector"`
	Probabilities []float64 `json:"probabilities"`
	Uncertainty   float64   `json:"uncertainty"`
	Norm          float64   `json:"norm"`
}

// Visualize returns the current state, probabilities, uncertainty, and
// norm.
func (e *Engine) Visualize() View {
	return View{
		StateVector:   e.Vector(),
		Probabilities: e.Probabilities(),
		Uncertainty:   e.Uncertainty(),
		Norm:          floats.Norm(e.vector, 2),
	}
}
