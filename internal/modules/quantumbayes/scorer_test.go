package quantumbayes

import (
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/qbayes/internal/domain"
	"github.com/aristath/qbayes/internal/modules/bayes"
	"github.com/aristath/qbayes/internal/modules/mahalanobis"
)

func newTestScorer() *Scorer {
	log := zerolog.Nop()
	return NewScorer(bayes.NewEngine(log), mahalanobis.NewEstimator(log), log)
}

var testSamples = [][]float64{
	{0.8, 0.2},
	{0.6, 0.4},
	{0.9, 0.1},
	{0.5, 0.5},
}

func TestProjectAndScore(t *testing.T) {
	s := newTestScorer()

	scores, err := s.ProjectAndScore(testSamples, 0.9, 0.7)
	require.NoError(t, err)
	require.Len(t, scores, len(testSamples))

	var sum float64
	for i, score := range scores {
		assert.Greater(t, score, 0.0, "score %d", i)
		assert.Less(t, score, 1.0, "score %d", i)
		sum += score
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}

func TestProjectAndScoreShapeMismatch(t *testing.T) {
	s := newTestScorer()

	tests := []struct {
		name    string
		samples [][]float64
	}{
		{"empty batch", [][]float64{}},
		{"one column", [][]float64{{1.0}, {2.0}}},
		{"three columns", [][]float64{{1, 2, 3}, {4, 5, 6}}},
		{"ragged", [][]float64{{1, 2}, {3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ProjectAndScore(tt.samples, 0.9, 0.7)
			assert.True(t, errors.Is(err, domain.ErrShapeMismatch), "got %v", err)
		})
	}
}

func TestPosteriorWithDistance(t *testing.T) {
	s := newTestScorer()

	posterior, projections, err := s.PosteriorWithDistance(testSamples, 0.9, 0.7)
	require.NoError(t, err)
	require.Len(t, projections, len(testSamples))

	assert.False(t, math.IsNaN(posterior))
	assert.False(t, math.IsInf(posterior, 0))
	assert.GreaterOrEqual(t, posterior, 0.0)
}

func TestPredictNextCollapsesToPosterior(t *testing.T) {
	s := newTestScorer()

	// The projected vector is softmax-normalized, so the
	// posterior-weighted sum reduces to the posterior itself.
	next, posterior, err := s.PredictNext(testSamples, 0.9, 0.7)
	require.NoError(t, err)
	assert.InDelta(t, posterior, next, 1e-9)
}

func TestCollapserRecordsNoise(t *testing.T) {
	log := zerolog.Nop()
	engine := bayes.NewEngine(log)
	estimator := mahalanobis.NewEstimator(log)
	scorer := NewScorer(engine, estimator, log)
	c := NewCollapser(engine, scorer, estimator, 0.5, log)

	probabilities := map[string]float64{"0": 0.5, "1": 0.5}
	entropy, meanDist, err := c.RecordQuantumNoise(probabilities, testSamples)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, entropy, 1e-12)
	assert.GreaterOrEqual(t, meanDist, 0.0)

	entropies, distances := c.NoiseRecords()
	require.Len(t, entropies, 1)
	require.Len(t, distances, 1)
	assert.Equal(t, entropy, entropies[0])
	assert.Equal(t, meanDist, distances[0])
}

func TestSimulateWaveCollapse(t *testing.T) {
	log := zerolog.Nop()
	engine := bayes.NewEngine(log)
	estimator := mahalanobis.NewEstimator(log)
	scorer := NewScorer(engine, estimator, log)
	c := NewCollapser(engine, scorer, estimator, 0.5, log)

	result, err := c.SimulateWaveCollapse(testSamples, 0.5, 1)
	require.NoError(t, err)

	assert.Contains(t, []int{0, 1}, result.Action)
	// The projection is softmax-normalized, so the collapsed state is
	// the action scaled by a unit mass.
	assert.InDelta(t, float64(result.Action), result.CollapsedState, 1e-9)
	assert.GreaterOrEqual(t, result.MahalanobisDistance, 0.0)
	assert.False(t, math.IsNaN(result.Coherence))

	var magnitude float64
	for _, cos := range result.Cosines {
		magnitude += cos * cos
	}
	assert.InDelta(t, 1.0, magnitude, 1e-9)
}
