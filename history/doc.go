// Package history keeps the sliding window of fields a deinterlacer reads
// from, and the per-buffer classification used for telecine detection.
//
// Every pushed buffer is stamped with a monotonically increasing sequence
// number. Fields decomposed from the same buffer share that number, which
// is how callers detect that popping a field finished a buffer.
package history
