package video

import "fmt"

// TimeCodeFlags mirror the SMPTE time code configuration bits.
type TimeCodeFlags uint8

const (
	// TimeCodeDropFrame marks a drop-frame time code.
	TimeCodeDropFrame TimeCodeFlags = 1 << iota
	// TimeCodeInterlaced marks a time code that counts fields.
	TimeCodeInterlaced
)

// TimeCode is an SMPTE time code attached to a buffer.
type TimeCode struct {
	FPS     Rational
	Flags   TimeCodeFlags
	Hours   uint
	Minutes uint
	Seconds uint
	Frames  uint
}

// Copy returns a copy of the time code, or nil for a nil receiver.
func (tc *TimeCode) Copy() *TimeCode {
	if tc == nil {
		return nil
	}
	c := *tc
	return &c
}

func (tc *TimeCode) String() string {
	sep := ":"
	if tc.Flags&TimeCodeDropFrame != 0 {
		sep = ";"
	}
	return fmt.Sprintf("%02d:%02d:%02d%s%02d", tc.Hours, tc.Minutes, tc.Seconds, sep, tc.Frames)
}

// CaptionType identifies the closed caption encapsulation.
type CaptionType uint8

const (
	CaptionUnknown CaptionType = iota
	CaptionCEA608Raw
	CaptionCEA608S334_1A
	CaptionCEA708Raw
	CaptionCEA708CDP
)

// Caption is a closed caption payload attached to a buffer.
type Caption struct {
	Type CaptionType
	Data []byte
}

// Copy returns a deep copy of the caption, or nil for a nil receiver.
func (c *Caption) Copy() *Caption {
	if c == nil {
		return nil
	}
	return &Caption{Type: c.Type, Data: append([]byte(nil), c.Data...)}
}
