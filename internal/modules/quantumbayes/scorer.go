// Package quantumbayes scores two-column sample batches by projecting
// them through direction cosines and measuring the Mahalanobis distance
// between the two projections. The normalized distances feed the Bayes
// engine to produce posteriors, next-state predictions, and simulated
// wave collapses.
package quantumbayes

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/qbayes/internal/domain"
	"github.com/aristath/qbayes/internal/modules/bayes"
	"github.com/aristath/qbayes/internal/modules/mahalanobis"
	"github.com/aristath/qbayes/pkg/formulas"
)

// Scorer projects sample batches and derives Bayesian posteriors from
// their projection distances.
type Scorer struct {
	bayes     *bayes.Engine
	estimator *mahalanobis.Estimator
	log       zerolog.Logger
}

// NewScorer creates a scorer on top of the given inference engine and
// distance estimator.
func NewScorer(engine *bayes.Engine, estimator *mahalanobis.Estimator, log zerolog.Logger) *Scorer {
	return &Scorer{
		bayes:     engine,
		estimator: estimator,
		log:       log.With().Str("component", "quantumbayes").Logger(),
	}
}

func validateTwoColumns(samples [][]float64) error {
	if len(samples) == 0 {
		return fmt.Errorf("sample batch is empty: %w", domain.ErrShapeMismatch)
	}
	for i, row := range samples {
		if len(row) != 2 {
			return fmt.Errorf("row %d has %d columns, expected 2: %w",
				i, len(row), domain.ErrShapeMismatch)
		}
	}
	return nil
}

// ProjectAndScore maps the batch through the direction cosines of
// (entropy, coherence) into two projections, A scaled by (cx, cy) and B
// additionally scaled by cz, then returns the softmax-normalized
// Mahalanobis distances of B against A's distribution. Samples must
// have exactly two columns.
func (s *Scorer) ProjectAndScore(samples [][]float64, entropy, coherence float64) ([]float64, error) {
	if err := validateTwoColumns(samples); err != nil {
		return nil, err
	}

	cosX, cosY, cosZ := formulas.DirectionalCosines(entropy, coherence)

	projectionA := make([][]float64, len(samples))
	projectionB := make([][]float64, len(samples))
	for i, row := range samples {
		projectionA[i] = []float64{row[0] * cosX, row[1] * cosY}
		projectionB[i] = []float64{row[0] * cosX * cosZ, row[1] * cosY * cosZ}
	}

	distances, err := s.estimator.Distances(projectionA, projectionB)
	if err != nil {
		return nil, err
	}
	return formulas.Softmax(distances), nil
}

// PosteriorWithDistance projects the batch, takes the variance of the
// normalized distances as a quantum prior, and composes it with the
// coherence prior and the joint policy through the Bayes engine.
// Returns the posterior and the projected distance vector.
func (s *Scorer) PosteriorWithDistance(samples [][]float64, entropy, coherence float64) (float64, []float64, error) {
	projections, err := s.ProjectAndScore(samples, entropy, coherence)
	if err != nil {
		return 0, nil, err
	}

	quantumPrior := formulas.PopVariance(projections)
	priorCoherence := s.bayes.HighCoherencePrior(coherence)
	joint := s.bayes.JointProbability(coherence, 1, formulas.Mean(projections))
	conditional := s.bayes.Conditional(joint, quantumPrior)
	posterior := s.bayes.Posterior(quantumPrior, priorCoherence, conditional)

	return posterior, projections, nil
}

// PredictNext collapses the projected vector into a posterior-weighted
// sum, yielding the scalar next-state prediction and the posterior used
// to weight it.
func (s *Scorer) PredictNext(samples [][]float64, entropy, coherence float64) (float64, float64, error) {
	posterior, projections, err := s.PosteriorWithDistance(samples, entropy, coherence)
	if err != nil {
		return 0, 0, err
	}

	var next float64
	for _, p := range projections {
		next += p * posterior
	}
	return next, posterior, nil
}
