// Package mahalanobis fits an empirical covariance model over a reference
// sample set and scores query samples by their Mahalanobis distance from
// that distribution. Covariance inversion falls back to a pseudo-inverse
// on singular input; distance failures degrade to an entropy-only report
// rather than aborting the caller.
package mahalanobis

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/qbayes/internal/domain"
	"github.com/aristath/qbayes/pkg/formulas"
)

// Report summarizes the self-distance distribution of a reference batch.
// When distance computation fails irrecoverably, Err carries the failure
// and only Entropy is meaningful.
type Report struct {
	Mean         float64 `json:"mean"`
	Std          float64 `json:"std"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	OutlierCount int     `json:"outlier_count"`
	Entropy      float64 `json:"entropy"`
	SampleCount  int     `json:"sample_count"`
	Err          string  `json:"error,omitempty"`
}

// Valid reports whether the distance fields are usable.
func (r Report) Valid() bool {
	return r.Err == ""
}

// AggregateStats summarizes all reports an estimator has produced.
type AggregateStats struct {
	Count      int     `json:"count"`
	ValidCount int     `json:"valid_count"`
	GlobalMean float64 `json:"global_mean"`
	GlobalStd  float64 `json:"global_std"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Last       float64 `json:"last"`
}

// Estimator computes Mahalanobis distances and keeps an audit trail of
// the reports it has produced. Single-owner mutable state; callers
// serialize access.
type Estimator struct {
	reports []Report
	log     zerolog.Logger
}

// NewEstimator creates a new distance estimator.
func NewEstimator(log zerolog.Logger) *Estimator {
	return &Estimator{
		log: log.With().Str("component", "mahalanobis").Logger(),
	}
}

// validateBatch checks that samples form a rectangular n×d matrix with
// n ≥ 1 and d ≥ 1, returning the dimensions.
func validateBatch(samples [][]float64) (rows, cols int, err error) {
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
	return len(samples), cols, nil
}

// covariance returns the empirical covariance of the batch using the
// population (1/n) normalization, together with the column means.
func covariance(samples [][]float64) (*mat.SymDense, []float64) {
	n := len(samples)
	d := len(samples[0])

	means := make([]float64, d)
	for _, row := range samples {
		floats.Add(means, row)
	}
	floats.Scale(1/float64(n), means)

	cov := mat.NewSymDense(d, nil)
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			var sum float64
			for _, row := range samples {
				sum += (row[i] - means[i]) * (row[j] - means[j])
			}
			cov.SetSym(i, j, sum/float64(n))
		}
	}
	return cov, means
}

// pseudoInverse computes the Moore-Penrose pseudo-inverse via SVD.
// Singular values below max(m,n)·eps·σmax are treated as zero, so a zero
// matrix pseudo-inverts to a zero matrix.
func pseudoInverse(a mat.Matrix) (*mat.Dense, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, fmt.Errorf("SVD factorization failed: %w", domain.ErrLinAlgFailure)
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)

	rows, cols := a.Dims()
	maxDim := float64(rows)
	if cols > rows {
		maxDim = float64(cols)
	}
	var sigmaMax float64
	if len(values) > 0 {
		sigmaMax = values[0]
	}
	tol := maxDim * 2.220446049250313e-16 * sigmaMax

	inverted := make([]float64, len(values))
	for i, s := range values {
		if s > tol {
			inverted[i] = 1 / s
		}
	}

	// pinv = V · Σ⁺ · Uᵀ
	k := len(values)
	sigmaInv := mat.NewDiagDense(k, inverted)
	var tmp, pinv mat.Dense
	tmp.Mul(&v, sigmaInv)
	pinv.Mul(&tmp, u.T())
	return &pinv, nil
}

// FitInverseCovariance fits the empirical covariance of the reference
// batch and returns its inverse. A singular covariance does not fail:
// the pseudo-inverse is returned instead.
func (e *Estimator) FitInverseCovariance(reference [][]float64) (*mat.Dense, error) {
	inv, _, err := e.fitInverseCovariance(reference)
	return inv, err
}

func (e *Estimator) fitInverseCovariance(reference [][]float64) (*mat.Dense, []float64, error) {
	rows, cols, err := validateBatch(reference)
	if err != nil {
		return nil, nil, err
	}

	cov, means := covariance(reference)

	for i := 0; i < cols; i++ {
		for j := i; j < cols; j++ {
			if v := cov.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, nil, fmt.Errorf("covariance entry (%d,%d) is not finite: %w",
					i, j, domain.ErrLinAlgFailure)
			}
		}
	}

	var inv mat.Dense
	if err := inv.Inverse(cov); err == nil {
		return &inv, means, nil
	}

	e.log.Warn().
		Int("rows", rows).
		Int("cols", cols).
		Msg("Covariance matrix is singular, falling back to pseudo-inverse")

	pinv, err := pseudoInverse(cov)
	if err != nil {
		return nil, nil, fmt.Errorf("pseudo-inverse of %dx%d covariance: %w", cols, cols, err)
	}
	return pinv, means, nil
}

// Distances computes the Mahalanobis distance of every row in query from
// the distribution of reference. Both batches must be rectangular with
// matching dimensionality.
func (e *Estimator) Distances(reference, query [][]float64) ([]float64, error) {
	_, refCols, err := validateBatch(reference)
	if err != nil {
		return nil, err
	}
	_, queryCols, err := validateBatch(query)
	if err != nil {
		return nil, err
	}
	if refCols != queryCols {
		return nil, fmt.Errorf("reference has %d dims, query has %d: %w",
			refCols, queryCols, domain.ErrShapeMismatch)
	}

	invCov, means, err := e.fitInverseCovariance(reference)
	if err != nil {
		return nil, err
	}

	return distancesFrom(invCov, means, query), nil
}

// distancesFrom computes √((q-μ)ᵗ·Σ⁻¹·(q-μ)) for every query row.
func distancesFrom(invCov *mat.Dense, means []float64, query [][]float64) []float64 {
	d := len(means)
	diff := mat.NewVecDense(d, nil)
	aux := mat.NewVecDense(d, nil)

	distances := make([]float64, len(query))
	for i, row := range query {
		for j := 0; j < d; j++ {
			diff.SetVec(j, row[j]-means[j])
		}
		aux.MulVec(invCov, diff)
		distSqr := mat.Dot(diff, aux)
		if distSqr < 0 {
			// Round-off from the pseudo-inverse path.
			distSqr = 0
		}
		distances[i] = math.Sqrt(distSqr)
	}
	return distances
}

// Summarize fits the reference batch against itself and returns a
// DistanceReport co-reporting the entropy of the supplied probability
// mapping. Distance failures degrade to an {error, entropy} report;
// entropy is always computed. The report is retained in the estimator's
// audit trail.
func (e *Estimator) Summarize(reference [][]float64, probabilities map[string]float64) (Report, error) {
	entropy := formulas.EntropyOfDistribution(probabilities)

	// The sample-count requirement subsumes the non-empty check, so it
	// runs first and an empty batch reports the same error class.
	if len(reference) < 2 {
		return Report{}, fmt.Errorf("covariance estimation needs at least 2 samples, got %d: %w",
			len(reference), domain.ErrInsufficientSamples)
	}
	rows, _, err := validateBatch(reference)
	if err != nil {
		return Report{}, err
	}

	invCov, means, err := e.fitInverseCovariance(reference)
	if err != nil {
		e.log.Error().
			Err(err).
			Int("rows", rows).
			Int("cols", len(reference[0])).
			Msg("Distance computation failed, returning entropy-only report")
		report := Report{Entropy: entropy, Err: err.Error()}
		e.reports = append(e.reports, report)
		return report, nil
	}

	distances := distancesFrom(invCov, means, reference)

	mean := formulas.Mean(distances)
	std := formulas.PopStdDev(distances)

	outliers := 0
	for _, dist := range distances {
		if dist > mean+3*std {
			outliers++
		}
	}

	report := Report{
		Mean:         mean,
		Std:          std,
		Min:          floats.Min(distances),
		Max:          floats.Max(distances),
		OutlierCount: outliers,
		Entropy:      entropy,
		SampleCount:  len(distances),
	}
	e.reports = append(e.reports, report)
	return report, nil
}

// Stats aggregates all reports the estimator has produced so far.
func (e *Estimator) Stats() AggregateStats {
	stats := AggregateStats{Count: len(e.reports)}

	var means []float64
	for _, r := range e.reports {
		if r.Valid() {
			means = append(means, r.Mean)
		}
	}
	stats.ValidCount = len(means)
	if len(means) == 0 {
		return stats
	}

	stats.GlobalMean = formulas.Mean(means)
	stats.GlobalStd = formulas.PopStdDev(means)
	stats.Min = floats.Min(means)
	stats.Max = floats.Max(means)
	stats.Last = means[len(means)-1]
	return stats
}
