package method

func newWeave(id ID) Method {
	interp := interpolateWeave
	switch id {
	case WeaveTFF:
		interp = interpolateWeaveOrdered(false)
	case WeaveBFF:
		interp = interpolateWeaveOrdered(true)
	}
	return &SimpleMethod{
		Desc:        descriptors[id],
		Interpolate: interp,
		Copy:        copyM0,
	}
}

// interpolateWeave fills missing rows from the previous field, or the next
// one at the start of a stream.
func interpolateWeave(out []byte, w *ScanlineWindow) {
	switch {
	case w.M1 != nil:
		copy(out, w.M1)
	case w.Mp != nil:
		copy(out, w.Mp)
	default:
		interpolateLinear(out, w)
	}
}

// interpolateWeaveOrdered pairs each field with its partner in a stream
// whose first field has parity firstBottom: the first field takes the
// missing rows from the next field, the second from the previous one.
func interpolateWeaveOrdered(firstBottom bool) ScanlineFunc {
	return func(out []byte, w *ScanlineWindow) {
		first, second := w.Mp, w.M1
		if w.Bottom != firstBottom {
			first, second = w.M1, w.Mp
		}
		switch {
		case first != nil:
			copy(out, first)
		case second != nil:
			copy(out, second)
		default:
			interpolateLinear(out, w)
		}
	}
}
