package video

import (
	"fmt"
	"time"
)

// InterlaceMode describes how the fields of a stream are stored in its buffers.
type InterlaceMode uint8

const (
	// InterlaceProgressive buffers hold whole frames sampled at one instant.
	InterlaceProgressive InterlaceMode = iota
	// InterlaceInterleaved buffers hold two fields sampled at different instants.
	InterlaceInterleaved
	// InterlaceMixed streams switch between progressive and interlaced
	// buffers, signalled per buffer with flags (telecine).
	InterlaceMixed
	// InterlaceAlternate buffers hold a single field each.
	InterlaceAlternate
)

// String returns the caps spelling of the mode.
func (m InterlaceMode) String() string {
	switch m {
	case InterlaceProgressive:
		return "progressive"
	case InterlaceInterleaved:
		return "interleaved"
	case InterlaceMixed:
		return "mixed"
	case InterlaceAlternate:
		return "alternate"
	default:
		return fmt.Sprintf("InterlaceMode(%d)", uint8(m))
	}
}

// ParseInterlaceMode converts a caps spelling to an InterlaceMode.
func ParseInterlaceMode(s string) (InterlaceMode, error) {
	switch s {
	case "progressive":
		return InterlaceProgressive, nil
	case "interleaved":
		return InterlaceInterleaved, nil
	case "mixed":
		return InterlaceMixed, nil
	case "alternate":
		return InterlaceAlternate, nil
	}
	return InterlaceProgressive, fmt.Errorf("unknown interlace mode %q", s)
}

// Rational is a frame rate or ratio expressed as N/D.
type Rational struct {
	N int
	D int
}

// IsZero reports whether the rational represents an unknown/variable rate.
func (r Rational) IsZero() bool {
	return r.N == 0
}

// Double returns the rate doubled, halving the denominator where that keeps
// the fraction exact.
func (r Rational) Double() Rational {
	if r.D%2 == 0 {
		return Rational{N: r.N, D: r.D / 2}
	}
	return Rational{N: r.N * 2, D: r.D}
}

// Half returns the rate halved.
func (r Rational) Half() Rational {
	if r.N%2 == 0 {
		return Rational{N: r.N / 2, D: r.D}
	}
	return Rational{N: r.N, D: r.D * 2}
}

// Mul multiplies by n/d and reduces the result.
func (r Rational) Mul(n, d int) Rational {
	out := Rational{N: r.N * n, D: r.D * d}
	if g := gcd(out.N, out.D); g > 1 {
		out.N /= g
		out.D /= g
	}
	return out
}

// FieldDuration returns the duration of one field at this frame rate, or
// zero for a variable rate.
func (r Rational) FieldDuration() time.Duration {
	if r.N == 0 {
		return 0
	}
	return time.Duration(int64(time.Second) * int64(r.D) / (2 * int64(r.N)))
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.N, r.D)
}

func gcd(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Info is the negotiated description of a video stream.
type Info struct {
	Format        PixelFormat
	Width         int
	Height        int
	InterlaceMode InterlaceMode
	FrameRate     Rational
}

// IsInterlaced reports whether the stream carries any interlaced content.
func (i Info) IsInterlaced() bool {
	return i.InterlaceMode != InterlaceProgressive
}

// Validate checks that the description can back a frame.
func (i Info) Validate() error {
	if !i.Format.Valid() {
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, i.Format)
	}
	if i.Width <= 0 || i.Height <= 0 {
		return fmt.Errorf("invalid frame dimensions: %dx%d", i.Width, i.Height)
	}
	return nil
}

// PlaneLayout is the geometry of one plane as seen by scanline code.
type PlaneLayout struct {
	// RowBytes is the number of meaningful bytes in a row.
	RowBytes int
	// Rows is the plane height.
	Rows int
	// Colors is the byte distance between horizontally adjacent samples
	// of the same component (1 planar, 2 NV12 chroma / packed 4:2:2 luma,
	// 3 or 4 packed RGB).
	Colors int
	// YAlternatesEvery is non-zero for packed 4:2:2 formats: only every
	// YAlternatesEvery-th byte (at LumaPhase) is luma, and chroma bytes of
	// one component are 2*Colors apart.
	YAlternatesEvery int
	LumaPhase        int
}

// SampleStride returns the distance to the next sample of the component
// stored at byte x.
func (p PlaneLayout) SampleStride(x int) int {
	if p.YAlternatesEvery == 0 || x%p.YAlternatesEvery == p.LumaPhase {
		return p.Colors
	}
	return p.Colors * 2
}

// MaxSampleStride returns the largest value SampleStride can return.
func (p PlaneLayout) MaxSampleStride() int {
	if p.YAlternatesEvery == 0 {
		return p.Colors
	}
	return p.Colors * 2
}

// Plane returns the layout of plane n.
func (i Info) Plane(n int) PlaneLayout {
	d := formats[i.Format].planes[n]
	w := (i.Width + (1 << d.wShift) - 1) >> d.wShift
	h := (i.Height + (1 << d.hShift) - 1) >> d.hShift
	rowBytes := w
	switch i.Format.Family() {
	case FamilySemiPlanar:
		if n == 1 {
			rowBytes = ((i.Width + 1) / 2) * 2
		}
	case FamilyPacked422:
		rowBytes = ((i.Width + 1) / 2) * 4
	case FamilyPackedRGB:
		rowBytes = w * d.colors
	}
	return PlaneLayout{
		RowBytes:         rowBytes,
		Rows:             h,
		Colors:           d.colors,
		YAlternatesEvery: d.yAlternatesEvery,
		LumaPhase:        d.lumaPhase,
	}
}

// PlaneCount returns the number of planes of the format.
func (i Info) PlaneCount() int {
	return i.Format.PlaneCount()
}

// FrameSize returns the number of bytes of a tightly packed frame.
func (i Info) FrameSize() int {
	size := 0
	for p := 0; p < i.PlaneCount(); p++ {
		l := i.Plane(p)
		size += l.RowBytes * l.Rows
	}
	return size
}

// Progressive returns a copy of the description with a progressive interlace mode.
func (i Info) Progressive() Info {
	i.InterlaceMode = InterlaceProgressive
	return i
}

func (i Info) String() string {
	return fmt.Sprintf("%v %dx%d %v @ %v", i.Format, i.Width, i.Height, i.InterlaceMode, i.FrameRate)
}
