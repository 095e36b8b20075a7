package sim

import "errors"

var (
	// ErrInvalidState indicates a state vector containing NaN or Inf.
	ErrInvalidState = errors.New("sim: invalid state (NaN or Inf detected)")

	// ErrNotInitialized indicates Advance was called before Initialize.
	ErrNotInitialized = errors.New("sim: simulator not initialized")

	// ErrDimensionMismatch indicates an initial state of the wrong size.
	ErrDimensionMismatch = errors.New("sim: dimension mismatch between state and system")
)
