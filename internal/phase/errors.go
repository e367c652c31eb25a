package phase

import "errors"

// Precondition errors. These are raised before any numerical work starts.
var (
	// ErrDimensionMismatch indicates a state, direction, or field of
	// incompatible dimensions.
	ErrDimensionMismatch = errors.New("phase: dimension mismatch")

	// ErrNegativeDuration indicates a negative integration horizon.
	ErrNegativeDuration = errors.New("phase: negative duration")

	// ErrBatchShape indicates an ensemble batch whose initial-state count
	// and duration count disagree.
	ErrBatchShape = errors.New("phase: batch shape mismatch")

	// ErrNoField indicates a problem without a vector field.
	ErrNoField = errors.New("phase: problem has no vector field")
)
