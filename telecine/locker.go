package telecine

import (
	"fmt"
	"time"

	"github.com/opd-ai/deinterlace/history"
	"github.com/sirupsen/logrus"
)

// LockingMode selects whether and how telecine patterns are detected.
type LockingMode uint8

const (
	// LockingNone disables pattern detection.
	LockingNone LockingMode = iota
	// LockingAuto picks passive locking for live sources and active
	// locking otherwise.
	LockingAuto
	// LockingActive waits for a full pattern before committing to a lock
	// and projects accurate timestamps from it.
	LockingActive
	// LockingPassive locks on buffers already seen and never holds output
	// back.
	LockingPassive
)

func (m LockingMode) String() string {
	switch m {
	case LockingNone:
		return "none"
	case LockingAuto:
		return "auto"
	case LockingActive:
		return "active"
	case LockingPassive:
		return "passive"
	default:
		return fmt.Sprintf("LockingMode(%d)", uint8(m))
	}
}

// ParseLockingMode converts a mode name to a LockingMode.
func ParseLockingMode(s string) (LockingMode, error) {
	for m := LockingNone; m <= LockingPassive; m++ {
		if m.String() == s {
			return m, nil
		}
	}
	return LockingNone, fmt.Errorf("unknown locking mode %q", s)
}

const (
	// obscureThreshold is the number of buffer states needed before a lock
	// is attempted when obscure patterns are ignored.
	obscureThreshold = 5
	// fullMatchBonus outranks any partial match.
	fullMatchBonus = history.MaxStates
)

// Status is the outcome of a lock attempt.
type Status uint8

const (
	NeedMoreData Status = iota
	NoMatch
	Locked
)

func (s Status) String() string {
	switch s {
	case NeedMoreData:
		return "need-more-data"
	case NoMatch:
		return "no-match"
	default:
		return "locked"
	}
}

// LockResult describes a lock attempt.
type LockResult struct {
	Status  Status
	Pattern int
	Phase   int
	Score   int
	// OrphanFirstField is set when the pattern is entered at a field with
	// no partner. It is only reported in active mode.
	OrphanFirstField bool
}

// LiveQuerier reports whether the upstream source is live.
type LiveQuerier interface {
	IsLive() (bool, error)
}

// LiveFunc adapts a function to LiveQuerier.
type LiveFunc func() (bool, error)

// IsLive calls f.
func (f LiveFunc) IsLive() (bool, error) {
	return f()
}

// Locker tracks the telecine cadence of a stream.
//
// It is driven by the frame assembler: TryLock whenever NeedsRefresh
// reports the oldest buffer does not fit the predicted slot, and
// OnBufferConsumed each time the last field of a buffer leaves the field
// history.
type Locker struct {
	mode          LockingMode
	ignoreObscure bool
	lowLatency    bool

	pattern     int
	phase       int
	count       int
	outputCount int
	locked      bool
	refresh     bool

	// The projection base is taken from the first buffer output after a
	// lock or after each pattern repeat.
	baseValid bool
	baseTS    time.Duration
	bufDur    time.Duration
	fixed     bool
	fixedSeq  uint64
}

// NewLocker creates an unlocked locker.
func NewLocker(mode LockingMode, ignoreObscure bool) *Locker {
	return &Locker{
		mode:          mode,
		ignoreObscure: ignoreObscure,
		lowLatency:    mode == LockingPassive,
		pattern:       -1,
		refresh:       true,
	}
}

// Mode returns the configured locking mode.
func (l *Locker) Mode() LockingMode {
	return l.mode
}

// Enabled reports whether pattern detection runs at all.
func (l *Locker) Enabled() bool {
	return l.mode != LockingNone
}

// LowLatency reports whether passive locking is in effect.
func (l *Locker) LowLatency() bool {
	return l.lowLatency
}

// ResolveLatency decides between active and passive locking. Auto mode asks
// q whether upstream is live; an unanswerable query selects passive.
func (l *Locker) ResolveLatency(q LiveQuerier) bool {
	switch l.mode {
	case LockingActive:
		l.lowLatency = false
	case LockingPassive:
		l.lowLatency = true
	case LockingAuto:
		live := true
		if q != nil {
			var err error
			live, err = q.IsLive()
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"function": "Locker.ResolveLatency",
					"error":    err.Error(),
				}).Warn("Latency query failed, using passive locking")
				live = true
			}
		}
		l.lowLatency = live
	}

	logrus.WithFields(logrus.Fields{
		"function":    "Locker.ResolveLatency",
		"mode":        l.mode,
		"low_latency": l.lowLatency,
	}).Debug("Resolved telecine locking latency")
	return l.lowLatency
}

// Pattern returns the locked pattern.
func (l *Locker) Pattern() (Pattern, bool) {
	if l.pattern < 0 {
		return Pattern{}, false
	}
	return patterns[l.pattern], true
}

// PatternIndex returns the table index of the locked pattern or -1.
func (l *Locker) PatternIndex() int {
	return l.pattern
}

// Phase returns the position within the pattern of the first locked buffer.
func (l *Locker) Phase() int {
	return l.phase
}

// Locked reports whether a pattern is currently locked.
func (l *Locker) Locked() bool {
	return l.locked && l.pattern >= 0
}

// Telecine reports whether the locked pattern is a pulldown cadence.
func (l *Locker) Telecine() bool {
	p, ok := l.Pattern()
	return ok && p.Telecine()
}

// NeedsRefresh reports whether the lock must be recomputed before the
// buffer classified as state can be output.
func (l *Locker) NeedsRefresh(state history.StateMask) bool {
	if l.pattern < 0 || l.refresh {
		return true
	}
	return !l.Expects(state)
}

// Expects reports whether state fits the slot the locked pattern predicts
// for the next buffer.
func (l *Locker) Expects(state history.StateMask) bool {
	p, ok := l.Pattern()
	if !ok {
		return false
	}
	return state&p.Expected(l.phase+l.count) != 0
}

// scanRange returns the position in states of the buffer owning the oldest
// held field (tip) and of the buffer scoring starts from. Passive locking
// scores from the tip towards newer buffers; active locking scores every
// counted state, which may reach past buffers already aged out of the
// field history.
func (l *Locker) scanRange(states *history.StateHistory, buffers int) (tip, start int) {
	last := states.Len() - 1
	tip = buffers - 1
	if tip > last {
		tip = last
	}
	if tip < 0 {
		panic(fmt.Sprintf("telecine: no buffer state for the oldest field (%d buffers, %d states)", buffers, states.Len()))
	}
	if l.lowLatency {
		return tip, tip
	}
	return tip, last
}

// TryLock scores every (pattern, phase) pair against the buffer-state
// history and locks onto the best one. buffers is the number of distinct
// buffers held in the field history.
//
// A pair scores the number of consecutive buffers it matches; a full period
// match additionally scores fullMatchBonus. Only a strictly greater score
// replaces the current best, so the first declared pattern wins ties. The
// reported phase is that of the first scored buffer; the locker itself
// tracks the phase of the buffer owning the oldest field.
func (l *Locker) TryLock(states *history.StateHistory, buffers int, eos bool) LockResult {
	l.pattern = -1
	l.locked = false
	l.refresh = true

	stateCount := states.Len()
	required := history.MaxStates
	if l.ignoreObscure {
		required = obscureThreshold
	}
	if !eos && stateCount < required {
		logrus.WithFields(logrus.Fields{
			"function": "Locker.TryLock",
			"states":   stateCount,
			"required": required,
		}).Debug("Need more buffers in state history")
		return LockResult{Status: NeedMoreData, Pattern: -1}
	}

	best := LockResult{Status: NoMatch, Pattern: -1, Phase: -1, Score: -1}
	if stateCount == 0 {
		logrus.WithFields(logrus.Fields{
			"function": "Locker.TryLock",
		}).Warn("Failed to select a pattern")
		return best
	}
	tip, start := l.scanRange(states, buffers)
	for i, p := range patterns {
		if l.ignoreObscure && p.Obscure {
			continue
		}
		if stateCount < p.Length {
			continue
		}
		for phase := 0; phase < p.Length; phase++ {
			k := 0
			for ; k < p.Length && k <= start; k++ {
				if states.At(start-k).State&p.Expected(phase+k) == 0 {
					break
				}
			}
			if k == p.Length {
				k += fullMatchBonus
			}
			if k > best.Score {
				best.Score = k
				best.Pattern = i
				best.Phase = phase
			}
		}
	}

	if best.Pattern < 0 {
		logrus.WithFields(logrus.Fields{
			"function": "Locker.TryLock",
			"states":   stateCount,
		}).Warn("Failed to select a pattern")
		return best
	}

	p := patterns[best.Pattern]
	best.Status = Locked
	l.pattern = best.Pattern
	l.phase = (best.Phase + start - tip) % p.Length
	l.count = 0
	l.outputCount = 0
	l.locked = true
	l.refresh = false
	l.baseValid = false
	l.fixed = false

	if p.Telecine() && !l.lowLatency {
		best.OrphanFirstField = p.orphanLead(l.phase)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Locker.TryLock",
		"pattern":  p.Name,
		"phase":    l.phase,
		"skipped":  start - tip,
		"length":   p.Length,
		"score":    best.Score,
		"orphan":   best.OrphanFirstField,
	}).Debug("Pattern locked")
	return best
}

// OnBufferConsumed advances the cadence after the last field of a buffer
// left the field history. Active locking also forgets the consumed state.
func (l *Locker) OnBufferConsumed(states *history.StateHistory) {
	if !l.Enabled() {
		return
	}
	if !l.lowLatency {
		states.Consume()
	}
	if !l.locked {
		return
	}
	l.count++
	if l.pattern >= 0 && l.count >= patterns[l.pattern].Length {
		l.count = 0
		l.outputCount = 0
		l.baseValid = false
	}
}

// Reset drops the lock and forces a refresh on the next buffer.
func (l *Locker) Reset() {
	l.pattern = -1
	l.phase = 0
	l.count = 0
	l.outputCount = 0
	l.locked = false
	l.refresh = true
	l.baseValid = false
	l.fixed = false
}

// FrameRate returns the output frame rate ratio of the locked pattern as
// (n, d), or (1, 1) when unlocked.
func (l *Locker) FrameRate() (int, int) {
	p, ok := l.Pattern()
	if !ok {
		return 1, 1
	}
	return p.RatioN, p.RatioD
}
