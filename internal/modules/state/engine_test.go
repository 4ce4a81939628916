package state

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/qbayes/internal/domain"
	"github.com/aristath/qbayes/internal/modules/bayes"
	"github.com/aristath/qbayes/internal/modules/mahalanobis"
	"github.com/aristath/qbayes/internal/modules/quantumbayes"
)

func newStateScorer() *quantumbayes.Scorer {
	log := zerolog.Nop()
	return quantumbayes.NewScorer(bayes.NewEngine(log), mahalanobis.NewEstimator(log), log)
}

func newTestEngine(t *testing.T, numPositions int, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithRand(rand.New(rand.NewSource(42)))}, opts...)
	e, err := New(newStateScorer(), numPositions, 0.1, zerolog.Nop(), opts...)
	require.NoError(t, err)
	return e
}

func vectorNorm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

func TestNewValidation(t *testing.T) {
	scorer := newStateScorer()
	log := zerolog.Nop()

	_, err := New(scorer, 0, 0.1, log)
	assert.True(t, errors.Is(err, domain.ErrInvalidRange))

	_, err = New(scorer, 2, 0, log)
	assert.True(t, errors.Is(err, domain.ErrInvalidRange))

	_, err = New(scorer, 2, 1.5, log)
	assert.True(t, errors.Is(err, domain.ErrInvalidRange))

	_, err = New(scorer, 3, 0.1, log, WithVector([]float64{1, 2}))
	assert.True(t, errors.Is(err, domain.ErrShapeMismatch))
}

func TestNewNormalizes(t *testing.T) {
	e := newTestEngine(t, 4)
	assert.InDelta(t, 1.0, vectorNorm(e.Vector()), 1e-9)
	assert.Equal(t, e.Vector(), e.Probabilities())
}

func TestWithVectorSeed(t *testing.T) {
	e := newTestEngine(t, 2, WithVector([]float64{3, 4}))
	v := e.Vector()
	assert.InDelta(t, 0.6, v[0], 1e-12)
	assert.InDelta(t, 0.8, v[1], 1e-12)
}

func TestUpdatePreservesNormAndDirection(t *testing.T) {
	e := newTestEngine(t, 2, WithVector([]float64{3, 4}))
	before := e.Vector()

	require.NoError(t, e.Update(1))

	after := e.Vector()
	assert.InDelta(t, 1.0, vectorNorm(after), 1e-9)
	// A single-row batch has zero projection variance, so the posterior
	// vanishes and the blend pulls toward zero before renormalizing:
	// the direction survives.
	assert.InDelta(t, before[0], after[0], 1e-9)
	assert.InDelta(t, before[1], after[1], 1e-9)
	assert.Equal(t, math.Abs(after[0]), e.Probabilities()[0])
}

func TestUpdateActionZero(t *testing.T) {
	e := newTestEngine(t, 2, WithVector([]float64{3, 4}))
	before := e.Vector()

	require.NoError(t, e.Update(0))

	after := e.Vector()
	assert.InDelta(t, 1.0, vectorNorm(after), 1e-9)
	// The single-row pipeline always yields a zero posterior, so both
	// actions blend with the same factor and the direction survives.
	assert.InDelta(t, before[0], after[0], 1e-9)
	assert.InDelta(t, before[1], after[1], 1e-9)
	assert.Equal(t, math.Abs(after[0]), e.Probabilities()[0])
	assert.Equal(t, math.Abs(after[1]), e.Probabilities()[1])
}

func TestUpdateFactorBranches(t *testing.T) {
	e := newTestEngine(t, 2, WithVector([]float64{3, 4}))

	// A non-trivial posterior separates the two branches.
	assert.InDelta(t, 0.1*1.5, e.updateFactor(1, 0.5), 1e-12)
	assert.InDelta(t, 0.1*0.5, e.updateFactor(0, 0.5), 1e-12)
	assert.InDelta(t, 0.1, e.updateFactor(1, 0), 1e-12)
	assert.InDelta(t, 0.1, e.updateFactor(0, 0), 1e-12)
}

func TestUpdateRequiresTwoPositions(t *testing.T) {
	e := newTestEngine(t, 3)
	err := e.Update(1)
	assert.True(t, errors.Is(err, domain.ErrShapeMismatch), "got %v", err)
}

func TestUncertainty(t *testing.T) {
	e := newTestEngine(t, 2, WithVector([]float64{3, 4}))
	// Two distinct probabilities carry one bit.
	assert.InDelta(t, 1.0, e.Uncertainty(), 1e-12)
}

func TestInterference(t *testing.T) {
	a := newTestEngine(t, 2, WithVector([]float64{3, 4}))
	b := newTestEngine(t, 2, WithVector([]float64{1, 1}))

	result, err := a.Interference(b)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, vectorNorm(result), 1e-9)

	c := newTestEngine(t, 3)
	_, err = a.Interference(c)
	assert.True(t, errors.Is(err, domain.ErrShapeMismatch))

	_, err = a.Interference(nil)
	assert.True(t, errors.Is(err, domain.ErrShapeMismatch))
}

func TestEntanglement(t *testing.T) {
	a := newTestEngine(t, 2, WithVector([]float64{3, 4}))
	b := newTestEngine(t, 2, WithVector([]float64{1, 2}))

	entanglement, err := a.Entanglement(b)
	require.NoError(t, err)
	// Four distinct products in the outer matrix give two bits.
	assert.InDelta(t, 2.0, entanglement, 1e-12)

	_, err = a.Entanglement(nil)
	assert.True(t, errors.Is(err, domain.ErrTypeMismatch))
}

func TestMeasure(t *testing.T) {
	e := newTestEngine(t, 2, WithVector([]float64{1, 0}))

	// Identity observable on a unit vector has expectation 1.
	identity := [][]float64{{1, 0}, {0, 1}}
	expectation, err := e.Measure(identity)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, expectation, 1e-12)

	// Default observable is diag(probabilities).
	expectation, err = e.Measure(nil)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, expectation, 1e-12)

	_, err = e.Measure([][]float64{{1, 0}})
	assert.True(t, errors.Is(err, domain.ErrShapeMismatch))
}

func TestVisualize(t *testing.T) {
	e := newTestEngine(t, 2, WithVector([]float64{3, 4}))
	view := e.Visualize()

	assert.Equal(t, e.Vector(), view.StateVector)
	assert.Equal(t, e.Probabilities(), view.Probabilities)
	assert.InDelta(t, 1.0, view.Norm, 1e-9)
}
