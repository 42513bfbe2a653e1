package history

import (
	"strings"
	"time"

	"github.com/opd-ai/deinterlace/video"
)

// StateMask classifies one incoming buffer. Pattern tables combine several
// bits into one mask when a position accepts more than one classification.
type StateMask uint8

const (
	StateProgressive StateMask = 1 << iota
	StateInterlaced
	StateTelecineBottom
	StateTelecineTop
	StateTelecineProgressive
	StateTelecineMixed
	StateRepeatedField
)

// Composite masks used by the telecine pattern table.
const (
	// StateOne matches a buffer carrying a single telecine field.
	StateOne = StateTelecineTop | StateTelecineBottom
	// StateProgressiveLike matches any whole progressive frame.
	StateProgressiveLike = StateProgressive | StateTelecineProgressive
	// StateInterlacedLike matches any frame whose fields differ in time.
	StateInterlacedLike = StateInterlaced | StateTelecineMixed
)

var stateNames = []struct {
	mask StateMask
	name string
}{
	{StateProgressive, "P"},
	{StateInterlaced, "I"},
	{StateTelecineBottom, "TC_B"},
	{StateTelecineTop, "TC_T"},
	{StateTelecineProgressive, "TC_P"},
	{StateTelecineMixed, "TC_M"},
	{StateRepeatedField, "RFF"},
}

func (s StateMask) String() string {
	if s == 0 {
		return "none"
	}
	var parts []string
	for _, n := range stateNames {
		if s&n.mask != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// Matches reports whether the single classification s is accepted by mask.
func (s StateMask) Matches(mask StateMask) bool {
	return s&mask != 0
}

// Classify derives the buffer state of one incoming buffer from its
// interlace mode and flags. The repeated-field flag wins regardless of mode.
func Classify(mode video.InterlaceMode, rff, oneField, tff, interlaced bool) StateMask {
	telecine := mode == video.InterlaceMixed || mode == video.InterlaceAlternate
	switch {
	case rff:
		return StateRepeatedField
	case telecine && oneField:
		if tff {
			return StateTelecineTop
		}
		return StateTelecineBottom
	case telecine && interlaced:
		return StateTelecineMixed
	case telecine:
		return StateTelecineProgressive
	case mode == video.InterlaceInterleaved:
		return StateInterlaced
	default:
		return StateProgressive
	}
}

// BufferState is the classification of one incoming buffer together with
// its timing.
type BufferState struct {
	State     StateMask
	Timestamp time.Duration
	Duration  time.Duration
}

// MaxStates is the capacity of a StateHistory.
const MaxStates = 16

// StateHistory is a bounded list of buffer states, newest first.
//
// Len counts the states still considered by the pattern locker. Consume
// forgets the oldest counted state without touching the stored entries, so
// an active locker can walk the history from the buffer currently being
// output.
type StateHistory struct {
	states [MaxStates]BufferState
	count  int
}

// Push prepends s, aging out the oldest entry when full.
func (h *StateHistory) Push(s BufferState) {
	copy(h.states[1:], h.states[:MaxStates-1])
	h.states[0] = s
	if h.count < MaxStates {
		h.count++
	}
}

// Len returns the number of counted states.
func (h *StateHistory) Len() int {
	return h.count
}

// At returns the state i buffers back from the newest. Indexes past Len
// but within capacity return stale entries, which passive locking relies on
// at end of stream.
func (h *StateHistory) At(i int) BufferState {
	if i < 0 || i >= MaxStates {
		return BufferState{}
	}
	return h.states[i]
}

// Newest returns the most recently pushed state.
func (h *StateHistory) Newest() BufferState {
	return h.states[0]
}

// Consume forgets the oldest counted state.
func (h *StateHistory) Consume() {
	if h.count > 0 {
		h.count--
	}
}

// Clear forgets every state.
func (h *StateHistory) Clear() {
	*h = StateHistory{}
}
