// Package optimizer tunes sample batches toward a target vector with a
// noise-aware objective: fidelity to the target, penalized by the batch
// entropy and its Mahalanobis self-distance. The search is Adam over
// finite-difference gradients.
package optimizer

import (
	"fmt"
	"math"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/aristath/qbayes/internal/domain"
	"github.com/aristath/qbayes/internal/modules/mahalanobis"
	"github.com/aristath/qbayes/pkg/formulas"
)

const (
	beta1       = 0.9
	beta2       = 0.999
	adamEpsilon = 1e-8
	gradStep    = 1e-4
)

// Result summarizes one optimization run.
type Result struct {
	BestSamples   [][]float64 `json:"best_samples"`
	BestObjective float64     `json:"best_objective"`
	Iterations    int         `json:"iterations"`
}

// Optimizer minimizes the noise-aware objective.
type Optimizer struct {
	estimator *mahalanobis.Estimator
	log       zerolog.Logger
}

// New creates an optimizer backed by the given distance estimator.
func New(estimator *mahalanobis.Estimator, log zerolog.Logger) *Optimizer {
	return &Optimizer{
		estimator: estimator,
		log:       log.With().Str("component", "optimizer").Logger(),
	}
}

func validateInputs(samples [][]float64, target []float64) (rows, cols int, err error) {
	if len(samples) == 0 {
		return 0, 0, fmt.Errorf("sample batch is empty: %w", domain.ErrShapeMismatch)
	}
	cols = len(samples[0])
	if cols == 0 {
		return 0, 0, fmt.Errorf("sample batch has zero columns: %w", domain.ErrShapeMismatch)
	}
	for i, row := range samples {
		if len(row) != cols {
			return 0, 0, fmt.Errorf("row %d has %d columns, expected %d: %w",
				i, len(row), cols, domain.ErrShapeMismatch)
		}
	}
	if len(target) != cols {
		return 0, 0, fmt.Errorf("target has %d entries, samples have %d columns: %w",
			len(target), cols, domain.ErrShapeMismatch)
	}
	return len(samples), cols, nil
}

// Objective scores a batch against the target: (1 - fidelity) plus the
// entropy of the row-sum distribution weighted by entropyWeight, plus a
// saturating penalty on the mean Mahalanobis self-distance.
func (o *Optimizer) Objective(samples [][]float64, target []float64, entropyWeight float64) (float64, error) {
	if _, _, err := validateInputs(samples, target); err != nil {
		return 0, err
	}
	return o.objective(samples, target, entropyWeight)
}

// objective skips validation for use inside the optimization loop.
func (o *Optimizer) objective(samples [][]float64, target []float64, entropyWeight float64) (float64, error) {
	var overlap float64
	probabilities := make(map[string]float64, len(samples))
	for i, row := range samples {
		var rowSum float64
		for j, v := range row {
			overlap += v * target[j]
			rowSum += v
		}
		probabilities[strconv.Itoa(i)] = rowSum
	}
	fidelity := overlap * overlap

	entropy := formulas.EntropyOfDistribution(probabilities)

	distances, err := o.estimator.Distances(samples, samples)
	if err != nil {
		return 0, err
	}
	meanDistance := formulas.Mean(distances)

	return (1 - fidelity) + entropyWeight*entropy + (1 - math.Exp(-meanDistance)), nil
}

// Optimize runs Adam over finite-difference gradients of the objective,
// starting from initial. It retains the best batch seen across
// iterations and stops early when the gradient is identically zero.
func (o *Optimizer) Optimize(initial [][]float64, target []float64, maxIterations int, learningRate float64) (Result, error) {
	rows, cols, err := validateInputs(initial, target)
	if err != nil {
		return Result{}, err
	}
	if maxIterations < 1 {
		return Result{}, fmt.Errorf("max iterations %d must be positive: %w", maxIterations, domain.ErrInvalidRange)
	}
	if learningRate <= 0 {
		return Result{}, fmt.Errorf("learning rate %f must be positive: %w", learningRate, domain.ErrInvalidRange)
	}

	current := cloneBatch(initial)

	bestObjective, err := o.objective(current, target, 1.0)
	if err != nil {
		return Result{}, err
	}
	best := cloneBatch(current)

	params := rows * cols
	firstMoment := make([]float64, params)
	secondMoment := make([]float64, params)
	gradient := make([]float64, params)

	iterations := 0
	for step := 1; step <= maxIterations; step++ {
		iterations = step

		flat := true
		for p := 0; p < params; p++ {
			i, j := p/cols, p%cols
			original := current[i][j]

			current[i][j] = original + gradStep
			forward, err := o.objective(current, target, 1.0)
			if err != nil {
				current[i][j] = original
				return Result{}, err
			}
			current[i][j] = original - gradStep
			backward, err := o.objective(current, target, 1.0)
			current[i][j] = original
			if err != nil {
				return Result{}, err
			}

			gradient[p] = (forward - backward) / (2 * gradStep)
			if gradient[p] != 0 {
				flat = false
			}
		}

		if flat {
			o.log.Debug().Int("iteration", step).Msg("Gradient vanished, stopping early")
			break
		}

		correction1 := 1 - math.Pow(beta1, float64(step))
		correction2 := 1 - math.Pow(beta2, float64(step))
		for p := 0; p < params; p++ {
			firstMoment[p] = beta1*firstMoment[p] + (1-beta1)*gradient[p]
			secondMoment[p] = beta2*secondMoment[p] + (1-beta2)*gradient[p]*gradient[p]

			mHat := firstMoment[p] / correction1
			vHat := secondMoment[p] / correction2
			current[p/cols][p%cols] -= learningRate * mHat / (math.Sqrt(vHat) + adamEpsilon)
		}

		objective, err := o.objective(current, target, 1.0)
		if err != nil {
			return Result{}, err
		}
		if objective < bestObjective {
			bestObjective = objective
			best = cloneBatch(current)
		}
	}

	o.log.Info().
		Int("iterations", iterations).
		Float64("best_objective", bestObjective).
		Msg("Optimization finished")

	return Result{
		BestSamples:   best,
		BestObjective: bestObjective,
		Iterations:    iterations,
	}, nil
}

func cloneBatch(samples [][]float64) [][]float64 {
	out := make([][]float64, len(samples))
	for i, row := range samples {
		out[i] = make([]float64, len(row))
		copy(out[i], row)
	}
	return out
}
