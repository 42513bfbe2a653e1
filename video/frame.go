package video

import (
	"fmt"
	"time"
)

// NoTimestamp marks a frame without a valid presentation timestamp.
const NoTimestamp time.Duration = -1

// Flags carry per-buffer interlacing and stream signalling.
type Flags uint16

const (
	// FlagInterlaced marks a buffer of a mixed stream as interlaced.
	FlagInterlaced Flags = 1 << iota
	// FlagTFF marks the top field as temporally first.
	FlagTFF
	// FlagRFF marks the first field as repeated after the second.
	FlagRFF
	// FlagOneField marks a buffer carrying a single valid field.
	FlagOneField
	// FlagDiscont marks the first buffer after a discontinuity.
	FlagDiscont
)

// Has reports whether all bits of mask are set.
func (f Flags) Has(mask Flags) bool {
	return f&mask == mask
}

// Frame is a raw video frame with per-plane memory.
//
// Planes are addressed through Row, which returns a slice whose length and
// capacity are exactly one row, so any access outside the row panics
// instead of silently reading a neighbouring line.
type Frame struct {
	Info     Info
	Planes   [][]byte
	Strides  []int
	PTS      time.Duration
	Duration time.Duration
	Flags    Flags
	TimeCode *TimeCode
	Caption  *Caption
}

// NewFrame allocates a tightly packed frame for the given description.
func NewFrame(info Info) (*Frame, error) {
	if err := info.Validate(); err != nil {
		return nil, err
	}
	n := info.PlaneCount()
	f := &Frame{
		Info:     info,
		Planes:   make([][]byte, n),
		Strides:  make([]int, n),
		PTS:      NoTimestamp,
		Duration: 0,
	}
	for p := 0; p < n; p++ {
		l := info.Plane(p)
		f.Strides[p] = l.RowBytes
		f.Planes[p] = make([]byte, l.RowBytes*l.Rows)
	}
	return f, nil
}

// Map verifies that every plane of the frame is readable for its
// description. It returns an error wrapping ErrMap otherwise.
func (f *Frame) Map() error {
	if f == nil {
		return fmt.Errorf("%w: nil frame", ErrMap)
	}
	if err := f.Info.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrMap, err)
	}
	if len(f.Planes) < f.Info.PlaneCount() || len(f.Strides) < f.Info.PlaneCount() {
		return fmt.Errorf("%w: expected %d planes, got %d", ErrMap, f.Info.PlaneCount(), len(f.Planes))
	}
	for p := 0; p < f.Info.PlaneCount(); p++ {
		l := f.Info.Plane(p)
		if f.Strides[p] < l.RowBytes {
			return fmt.Errorf("%w: plane %d stride %d shorter than row %d", ErrMap, p, f.Strides[p], l.RowBytes)
		}
		need := f.Strides[p]*(l.Rows-1) + l.RowBytes
		if len(f.Planes[p]) < need {
			return fmt.Errorf("%w: plane %d too small: got %d, expected %d", ErrMap, p, len(f.Planes[p]), need)
		}
	}
	return nil
}

// Row returns row y of plane p, limited to the meaningful bytes of the row.
func (f *Frame) Row(p, y int) []byte {
	l := f.Info.Plane(p)
	start := y * f.Strides[p]
	end := start + l.RowBytes
	return f.Planes[p][start:end:end]
}

// IsInterlaced reports whether a buffer of a mixed stream holds
// interlaced content. Single-field buffers are always interlaced.
func (f *Frame) IsInterlaced() bool {
	return f.Flags&(FlagInterlaced|FlagOneField) != 0
}

// HasTimestamp reports whether the frame carries a valid PTS.
func (f *Frame) HasTimestamp() bool {
	return f.PTS >= 0
}

// Clone returns a deep copy of the frame including its metadata.
func (f *Frame) Clone() *Frame {
	out := &Frame{
		Info:     f.Info,
		Planes:   make([][]byte, len(f.Planes)),
		Strides:  append([]int(nil), f.Strides...),
		PTS:      f.PTS,
		Duration: f.Duration,
		Flags:    f.Flags,
		TimeCode: f.TimeCode.Copy(),
		Caption:  f.Caption.Copy(),
	}
	for i, p := range f.Planes {
		out.Planes[i] = append([]byte(nil), p...)
	}
	return out
}

// Equal reports whether two frames have identical descriptions and pixels.
func (f *Frame) Equal(o *Frame) bool {
	if f.Info != o.Info {
		return false
	}
	for p := 0; p < f.Info.PlaneCount(); p++ {
		for y := 0; y < f.Info.Plane(p).Rows; y++ {
			if string(f.Row(p, y)) != string(o.Row(p, y)) {
				return false
			}
		}
	}
	return true
}
