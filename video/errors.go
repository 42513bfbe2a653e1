package video

import "errors"

// Sentinel errors for video package operations.
// These errors enable reliable error classification using errors.Is().
var (
	// ErrMap indicates the pixel memory of a frame cannot be accessed for
	// its declared description.
	ErrMap = errors.New("failed to map video frame")

	// ErrUnsupportedFormat indicates a pixel format outside the supported set.
	ErrUnsupportedFormat = errors.New("unsupported pixel format")

	// ErrShortRead indicates a raw stream ended in the middle of a frame.
	ErrShortRead = errors.New("short read of raw frame")
)
