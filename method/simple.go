package method

import (
	"fmt"

	"github.com/opd-ai/deinterlace/history"
	"github.com/opd-ai/deinterlace/video"
	"golang.org/x/sync/errgroup"
)

// ScanlineWindow borrows the rows around one output row from up to five
// consecutive fields. A nil row is unavailable, usually because the field
// it would come from is not in the history yet.
//
// Suffix p is the next (newer) field, 0 the field being output, 1 the
// previous field and 2 the one before it; p2 is two fields forward. Prefix
// TT/T/M/B/BB names rows y-2, y-1, y, y+1 and y+2. Rows past the top or
// bottom of the plane are replaced by the nearest row of the same parity.
type ScanlineWindow struct {
	Layout video.PlaneLayout
	Plane  int
	Y      int
	// Bottom is set when the field being output is a bottom field.
	Bottom bool

	TTp, Tp, Mp, Bp, BBp []byte
	TT0, T0, M0, B0, BB0 []byte
	TT1, T1, M1, B1, BB1 []byte
	TT2, T2, M2, B2, BB2 []byte
	Tp2, Bp2             []byte
}

// ScanlineFunc produces one output row from a window.
type ScanlineFunc func(out []byte, w *ScanlineWindow)

// SimpleMethod runs a pair of scanline functions over every row of every
// plane. Rows that exist in the current field go through Copy, the others
// through Interpolate.
type SimpleMethod struct {
	Desc        Descriptor
	Interpolate ScanlineFunc
	Copy        ScanlineFunc
	// Families restricts the supported pixel layouts; empty means all.
	Families []video.Family
	// Workers splits each plane into bands processed concurrently. Zero or
	// one processes rows sequentially.
	Workers int
}

// Descriptor returns the method descriptor.
func (m *SimpleMethod) Descriptor() Descriptor {
	return m.Desc
}

// Supports reports whether the pixel layout of info is handled.
func (m *SimpleMethod) Supports(info video.Info) bool {
	if !info.Format.Valid() {
		return false
	}
	if len(m.Families) == 0 {
		return true
	}
	for _, f := range m.Families {
		if info.Format.Family() == f {
			return true
		}
	}
	return false
}

// DeinterlaceFrame implements Method.
func (m *SimpleMethod) DeinterlaceFrame(fields []history.Field, out *video.Frame, cur int) error {
	if cur < 0 || cur >= len(fields) {
		return fmt.Errorf("%w: %d of %d", ErrFieldIndex, cur, len(fields))
	}
	if err := out.Map(); err != nil {
		return err
	}

	var frames [5]*video.Frame // cur-2 .. cur+2
	for i := range frames {
		idx := cur - 2 + i
		if idx < 0 || idx >= len(fields) {
			continue
		}
		f := fields[idx].Frame
		if !sameGeometry(f.Info, out.Info) {
			return fmt.Errorf("%w: field %d is %v, output is %v", ErrGeometry, idx, f.Info, out.Info)
		}
		frames[i] = f
	}

	bottom := fields[cur].Parity == history.ParityBottom
	for p := 0; p < out.Info.PlaneCount(); p++ {
		layout := out.Info.Plane(p)
		plane := p
		err := forEachBand(m.Workers, layout.Rows, func(y0, y1 int) error {
			for y := y0; y < y1; y++ {
				w := newWindow(&frames, plane, y, layout, bottom)
				dst := out.Row(plane, y)
				if (y&1 == 1) == bottom {
					m.Copy(dst, &w)
				} else {
					m.Interpolate(dst, &w)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func sameGeometry(a, b video.Info) bool {
	return a.Format == b.Format && a.Width == b.Width && a.Height == b.Height
}

// newWindow collects the rows around y. frames holds the fields cur-2
// through cur+2.
func newWindow(frames *[5]*video.Frame, p, y int, l video.PlaneLayout, bottom bool) ScanlineWindow {
	fp2, fp, f0, f1, f2 := frames[0], frames[1], frames[2], frames[3], frames[4]
	w := ScanlineWindow{Layout: l, Plane: p, Y: y, Bottom: bottom}
	row := func(f *video.Frame, r int) []byte {
		if f == nil {
			return nil
		}
		return f.Row(p, clampRow(r, l.Rows))
	}

	if (y&1 == 1) == bottom {
		w.Tp, w.Bp = row(fp, y-1), row(fp, y+1)
		w.TT0, w.M0, w.BB0 = row(f0, y-2), row(f0, y), row(f0, y+2)
		w.T1, w.B1 = row(f1, y-1), row(f1, y+1)
		w.TT2, w.M2, w.BB2 = row(f2, y-2), row(f2, y), row(f2, y+2)
		return w
	}

	w.TTp, w.Mp, w.BBp = row(fp, y-2), row(fp, y), row(fp, y+2)
	w.T0, w.B0 = row(f0, y-1), row(f0, y+1)
	w.TT1, w.M1, w.BB1 = row(f1, y-2), row(f1, y), row(f1, y+2)
	w.T2, w.B2 = row(f2, y-1), row(f2, y+1)
	w.Tp2, w.Bp2 = row(fp2, y-1), row(fp2, y+1)
	return w
}

// clampRow maps a row outside the plane to the nearest row of the same
// parity, falling back to the plane edge for planes of one row.
func clampRow(r, rows int) int {
	if r < 0 {
		r += 2
	} else if r >= rows {
		r -= 2
	}
	if r < 0 {
		return 0
	}
	if r >= rows {
		return rows - 1
	}
	return r
}

// forEachBand calls fn over [0, rows) split into at most workers bands.
// Bands write disjoint output rows and only read history rows.
func forEachBand(workers, rows int, fn func(y0, y1 int) error) error {
	if workers <= 1 || rows < 2*workers {
		return fn(0, rows)
	}
	band := (rows + workers - 1) / workers
	var g errgroup.Group
	for y0 := 0; y0 < rows; y0 += band {
		y1 := min(y0+band, rows)
		g.Go(func() error {
			return fn(y0, y1)
		})
	}
	return g.Wait()
}

func copyM0(out []byte, w *ScanlineWindow) {
	copy(out, w.M0)
}

func interpolateLinear(out []byte, w *ScanlineWindow) {
	t, b := w.T0, w.B0
	for x := range out {
		out[x] = byte((int(t[x]) + int(b[x]) + 1) >> 1)
	}
}

func clampByte(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
