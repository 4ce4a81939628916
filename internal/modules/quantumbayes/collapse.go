package quantumbayes

import (
	"math"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/aristath/qbayes/internal/modules/bayes"
	"github.com/aristath/qbayes/internal/modules/mahalanobis"
	"github.com/aristath/qbayes/pkg/formulas"
)

// CollapseResult is the outcome of one simulated wave collapse.
type CollapseResult struct {
	CollapsedState      float64    `json:"collapsed_state"`
	Action              int        `json:"action"`
	Entropy             float64    `json:"entropy"`
	Coherence           float64    `json:"coherence"`
	MahalanobisDistance float64    `json:"mahalanobis_distance"`
	Cosines             [3]float64 `json:"cosines"`
}

// Collapser simulates wave collapses over sample batches, keeping a
// running record of the entropy and mean-distance noise it observes.
// Single-owner mutable state; callers serialize access.
type Collapser struct {
	bayes     *bayes.Engine
	scorer    *Scorer
	estimator *mahalanobis.Estimator

	influence       float64
	entropyRecords  []float64
	distanceRecords []float64
	log             zerolog.Logger
}

// NewCollapser creates a collapser with the given default influence.
func NewCollapser(engine *bayes.Engine, scorer *Scorer, estimator *mahalanobis.Estimator, influence float64, log zerolog.Logger) *Collapser {
	return &Collapser{
		bayes:     engine,
		scorer:    scorer,
		estimator: estimator,
		influence: influence,
		log:       log.With().Str("component", "collapse").Logger(),
	}
}

// Influence returns the collapser's default influence.
func (c *Collapser) Influence() float64 {
	return c.influence
}

// RecordQuantumNoise measures the entropy of the probability mapping
// and the mean Mahalanobis self-distance of the batch, appending both
// to the collapser's records.
func (c *Collapser) RecordQuantumNoise(probabilities map[string]float64, samples [][]float64) (entropy, meanDistance float64, err error) {
	entropy = formulas.EntropyOfDistribution(probabilities)
	c.entropyRecords = append(c.entropyRecords, entropy)

	distances, err := c.estimator.Distances(samples, samples)
	if err != nil {
		return 0, 0, err
	}
	meanDistance = formulas.Mean(distances)
	c.distanceRecords = append(c.distanceRecords, meanDistance)

	return entropy, meanDistance, nil
}

// NoiseRecords returns copies of the entropy and mean-distance series
// recorded so far.
func (c *Collapser) NoiseRecords() (entropies, distances []float64) {
	entropies = make([]float64, len(c.entropyRecords))
	copy(entropies, c.entropyRecords)
	distances = make([]float64, len(c.distanceRecords))
	copy(distances, c.distanceRecords)
	return entropies, distances
}

// SimulateWaveCollapse derives a probability mapping from the row sums
// of the batch, records the resulting noise, turns it into a coherence
// estimate, asks the Bayes engine for an action, and collapses the
// projected batch weighted by that action.
func (c *Collapser) SimulateWaveCollapse(samples [][]float64, influence float64, previousAction int) (CollapseResult, error) {
	probabilities := make(map[string]float64, len(samples))
	for i, row := range samples {
		var sum float64
		for _, v := range row {
			sum += v
		}
		probabilities[strconv.Itoa(i)] = sum
	}

	entropy, mahalMean, err := c.RecordQuantumNoise(probabilities, samples)
	if err != nil {
		return CollapseResult{}, err
	}

	cosX, cosY, cosZ := formulas.DirectionalCosines(entropy, mahalMean)
	coherence := math.Exp(-mahalMean) * (cosX + cosY + cosZ) / 3.0

	decision := c.bayes.Decide(entropy, coherence, influence, previousAction)

	projected, err := c.scorer.ProjectAndScore(samples, entropy, coherence)
	if err != nil {
		return CollapseResult{}, err
	}

	var collapsed float64
	for _, p := range projected {
		collapsed += p * float64(decision.ActionToTake)
	}

	result := CollapseResult{
		CollapsedState:      collapsed,
		Action:              decision.ActionToTake,
		Entropy:             entropy,
		Coherence:           coherence,
		MahalanobisDistance: mahalMean,
		Cosines:             [3]float64{cosX, cosY, cosZ},
	}

	c.log.Debug().
		Float64("entropy", entropy).
		Float64("coherence", coherence).
		Int("action", decision.ActionToTake).
		Msg("Wave collapse simulated")

	return result, nil
}
