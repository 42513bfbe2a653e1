package video

import (
	"errors"
	"fmt"
	"io"
)

// ReadFrame reads one tightly packed raw frame described by info from r.
//
// Planes are read in order with no padding between rows. io.EOF is returned
// unchanged when r is exhausted on a frame boundary; a stream that ends in
// the middle of a frame yields an error wrapping ErrShortRead.
func ReadFrame(r io.Reader, info Info) (*Frame, error) {
	f, err := NewFrame(info)
	if err != nil {
		return nil, err
	}
	for p := range f.Planes {
		n, err := io.ReadFull(r, f.Planes[p])
		if err == nil {
			continue
		}
		if p == 0 && n == 0 && errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: plane %d", ErrShortRead, p)
		}
		return nil, fmt.Errorf("failed to read plane %d: %w", p, err)
	}
	return f, nil
}

// WriteFrame writes the meaningful bytes of every row of f to w, dropping
// any stride padding.
func WriteFrame(w io.Writer, f *Frame) error {
	if err := f.Map(); err != nil {
		return err
	}
	for p := 0; p < f.Info.PlaneCount(); p++ {
		rows := f.Info.Plane(p).Rows
		if f.Strides[p] == f.Info.Plane(p).RowBytes {
			if _, err := w.Write(f.Planes[p][:rows*f.Strides[p]]); err != nil {
				return fmt.Errorf("failed to write plane %d: %w", p, err)
			}
			continue
		}
		for y := 0; y < rows; y++ {
			if _, err := w.Write(f.Row(p, y)); err != nil {
				return fmt.Errorf("failed to write plane %d row %d: %w", p, y, err)
			}
		}
	}
	return nil
}
