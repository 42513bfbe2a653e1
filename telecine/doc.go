// Package telecine detects film pulldown cadences in a stream of buffer
// classifications and rewrites timestamps of locked streams.
//
// The cadence table lists each known pattern as a sequence of accepted
// buffer states. A Locker scores every pattern at every phase against the
// state history, locks onto the best match and then predicts the state of
// every following buffer until a buffer breaks the prediction.
//
// Active locking waits for a full pattern repeat and projects output
// timestamps from the pattern ratio. Passive locking only looks at buffers
// already received and smooths timestamps from their neighbours, so it adds
// no latency.
package telecine
