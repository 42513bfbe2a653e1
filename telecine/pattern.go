package telecine

import (
	"time"

	"github.com/opd-ai/deinterlace/history"
)

const (
	prg = history.StateProgressiveLike
	one = history.StateOne
	itl = history.StateInterlacedLike
	rff = history.StateRepeatedField
)

// Pattern is one entry of the cadence table.
//
// States holds, per buffer position, the mask of classifications accepted
// at that position. RatioN/RatioD converts the input frame rate to the
// output frame rate of a locked stream.
type Pattern struct {
	Name    string
	Length  int
	RatioN  int
	RatioD  int
	States  []history.StateMask
	Obscure bool
}

var patterns = []Pattern{
	// 60i -> 60p or 50i -> 50p
	{Name: "1:1", Length: 1, RatioN: 2, RatioD: 1, States: []history.StateMask{one}},
	// 60i -> 30p or 50i -> 25p
	{Name: "2:2", Length: 1, RatioN: 1, RatioD: 1, States: []history.StateMask{itl}},
	// 60i telecine -> 24p
	{Name: "2:3-RFF", Length: 4, RatioN: 4, RatioD: 5, States: []history.StateMask{prg, rff, prg, rff}},
	{Name: "2:3", Length: 5, RatioN: 4, RatioD: 5, States: []history.StateMask{prg, prg, one, one, prg}},
	{Name: "3:2:2:3-RFF", Length: 4, RatioN: 4, RatioD: 5, States: []history.StateMask{rff, prg, prg, rff}},
	{Name: "3:2:2:3", Length: 5, RatioN: 4, RatioD: 5, States: []history.StateMask{prg, one, itl, one, prg}},
	// 50i Euro pulldown -> 24p
	{Name: "2-11:3", Length: 25, RatioN: 24, RatioD: 25, Obscure: true, States: []history.StateMask{
		prg, prg, prg, prg, prg,
		prg, prg, prg, prg, prg,
		prg, prg, one, itl, itl,
		itl, itl, itl, itl, itl,
		itl, itl, itl, one, prg,
	}},
	// NTSC 60i -> 27.5p
	{Name: "3:2-4", Length: 11, RatioN: 10, RatioD: 11, Obscure: true, States: []history.StateMask{
		prg, prg, prg, prg, prg,
		prg, one, itl, itl, itl,
		one,
	}},
	// PAL 50i -> 27.5p
	{Name: "1:2-4", Length: 9, RatioN: 9, RatioD: 10, Obscure: true, States: []history.StateMask{
		prg, prg, prg, prg, itl,
		itl, itl, itl, itl,
	}},
}

// Patterns returns a copy of the cadence table in match-priority order.
func Patterns() []Pattern {
	out := make([]Pattern, len(patterns))
	copy(out, patterns)
	return out
}

// PatternByName looks up a table entry.
func PatternByName(name string) (Pattern, int, bool) {
	for i, p := range patterns {
		if p.Name == name {
			return p, i, true
		}
	}
	return Pattern{}, -1, false
}

// Expected returns the accepted states at position pos, which wraps around
// the pattern length.
func (p Pattern) Expected(pos int) history.StateMask {
	return p.States[pos%p.Length]
}

// Telecine reports whether the pattern describes pulled-down film rather
// than plain interlaced content.
func (p Pattern) Telecine() bool {
	return p.RatioN != p.RatioD*2 && p.RatioN != p.RatioD
}

// BufferDuration rescales the duration of one incoming buffer to the
// duration of one output frame of the pattern. A repeated-field buffer
// spans three fields instead of two.
func (p Pattern) BufferDuration(d time.Duration, state history.StateMask) time.Duration {
	if state == rff {
		return d * time.Duration(p.RatioD) * 2 / time.Duration(p.RatioN*3)
	}
	return d * time.Duration(p.RatioD) / time.Duration(p.RatioN)
}

// orphanLead reports whether a pattern entered at phase starts with a field
// that has no partner: the field count up to the next progressive position
// is odd.
func (p Pattern) orphanLead(phase int) bool {
	if p.States[phase]&(one|itl) == 0 {
		return false
	}
	fields := 0
	for n, i := 0, phase; n < p.Length; n++ {
		if p.States[i]&one != 0 {
			fields++
		} else {
			fields += 2
		}
		i = (i + 1) % p.Length
		if p.States[i]&prg != 0 {
			break
		}
	}
	return fields&1 == 1
}
