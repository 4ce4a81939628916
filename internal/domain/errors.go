// Package domain holds types and errors shared across the engine's modules.
package domain

import "errors"

// Error taxonomy for the engine. Validation errors are surfaced to the
// caller unchanged; ErrLinAlgFailure is handled locally by the distance
// estimator (pseudo-inverse fallback, degraded report) and only escapes
// when the fallback itself fails.
var (
	// ErrInvalidRange indicates a scalar outside its required bound.
	ErrInvalidRange = errors.New("value outside valid range")

	// ErrTypeMismatch indicates a wrong operand kind passed to a combinator.
	ErrTypeMismatch = errors.New("operand type mismatch")

	// ErrShapeMismatch indicates an array rank or dimension mismatch.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrEmptyInput indicates an empty sequence where data is required.
	ErrEmptyInput = errors.New("empty input")

	// ErrInsufficientSamples indicates fewer than two reference rows.
	ErrInsufficientSamples = errors.New("insufficient samples")

	// ErrInvalidSignal indicates a signal with non-finite entries.
	ErrInvalidSignal = errors.New("invalid signal")

	// ErrLinAlgFailure indicates a singular or ill-conditioned covariance.
	ErrLinAlgFailure = errors.New("linear algebra failure")
)
