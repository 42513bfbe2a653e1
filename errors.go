package deinterlace

import "errors"

// Sentinel errors for deinterlacer operations.
// These errors enable reliable error classification using errors.Is().
var (
	// ErrNegotiation indicates the input description cannot be handled by
	// the configured mode and method combination.
	ErrNegotiation = errors.New("caps negotiation failed")

	// ErrNotNegotiated indicates a buffer was pushed before SetCaps succeeded.
	ErrNotNegotiated = errors.New("deinterlacer not negotiated")

	// ErrAllocation indicates an output frame could not be obtained.
	ErrAllocation = errors.New("failed to allocate output frame")

	// ErrInvalidOption indicates an out-of-range configuration value.
	ErrInvalidOption = errors.New("invalid option")
)
