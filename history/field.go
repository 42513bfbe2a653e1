package history

import (
	"fmt"
	"time"

	"github.com/opd-ai/deinterlace/video"
)

// Parity identifies which rows of a frame a field occupies.
type Parity uint8

const (
	// ParityTop fields hold the even rows.
	ParityTop Parity = iota
	// ParityBottom fields hold the odd rows.
	ParityBottom
)

func (p Parity) String() string {
	if p == ParityBottom {
		return "bottom"
	}
	return "top"
}

// Opposite returns the other parity.
func (p Parity) Opposite() Parity {
	return p ^ 1
}

// FirstRow returns the index of the first row belonging to the parity.
func (p Parity) FirstRow() int {
	return int(p)
}

// Layout selects how the temporal order of the two fields of a buffer is
// determined.
type Layout uint8

const (
	// LayoutAuto follows the top-field-first flag of each buffer.
	LayoutAuto Layout = iota
	// LayoutTFF forces top field first.
	LayoutTFF
	// LayoutBFF forces bottom field first.
	LayoutBFF
)

func (l Layout) String() string {
	switch l {
	case LayoutTFF:
		return "tff"
	case LayoutBFF:
		return "bff"
	default:
		return "auto"
	}
}

// ParseLayout converts "auto", "tff" or "bff" to a Layout.
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "auto", "":
		return LayoutAuto, nil
	case "tff", "top-field-first":
		return LayoutTFF, nil
	case "bff", "bottom-field-first":
		return LayoutBFF, nil
	}
	return LayoutAuto, fmt.Errorf("unknown field layout %q", s)
}

// Field is one field of an incoming buffer held in a FieldHistory.
//
// Every field decomposed from the same buffer shares Frame and Seq; Index is
// the temporal position of the field inside that buffer and Count the number
// of fields the buffer was split into. State and Mode record how the buffer
// was classified when it was pushed.
type Field struct {
	Frame    *video.Frame
	Parity   Parity
	Seq      uint64
	Index    int
	Count    int
	State    StateMask
	Mode     video.InterlaceMode
	TimeCode *video.TimeCode
	Caption  *video.Caption
}

// SameBuffer reports whether two fields were decomposed from one buffer.
func (f Field) SameBuffer(o Field) bool {
	return f.Seq == o.Seq
}

// Timestamp returns the presentation instant of the field: the buffer
// timestamp advanced by one field duration per earlier field. In reverse
// playback the last field of a buffer is presented first.
func (f Field) Timestamp(fieldDuration time.Duration, reverse bool) time.Duration {
	if f.Frame == nil || !f.Frame.HasTimestamp() {
		return video.NoTimestamp
	}
	idx := f.Index
	if reverse {
		idx = f.Count - 1 - f.Index
	}
	return f.Frame.PTS + time.Duration(idx)*fieldDuration
}

// Row returns row y of plane p of the underlying frame.
func (f Field) Row(p, y int) []byte {
	return f.Frame.Row(p, y)
}
