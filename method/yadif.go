package method

// YADIF: motion adaptive, edge directed interpolation.
//
// Every missing pixel gets a spatial prediction from the best of five edge
// directions through the rows above and below it, and a temporal
// prediction from the same pixel in the previous and next fields. The
// spatial prediction is clamped to within the observed temporal change of
// the temporal prediction, so static areas weave and moving areas follow
// edges.

func newYadif() Method {
	return &SimpleMethod{
		Desc:        descriptors[Yadif],
		Interpolate: interpolateYadif,
		Copy:        copyM0,
	}
}

// yadifEdge is the number of widest sample strides at each end of a row
// where the directional search would read outside the row.
const yadifEdge = 3

func interpolateYadif(out []byte, w *ScanlineWindow) {
	m1, mp := w.M1, w.Mp
	if m1 == nil {
		m1 = mp
	}
	if mp == nil {
		mp = m1
	}

	t0, b0 := w.T0, w.B0
	if m1 == nil {
		for x := range out {
			out[x] = byte(yadifSpatial(t0, b0, x, w, len(out)))
		}
		return
	}

	t2, b2 := w.T2, w.B2
	if t2 == nil || b2 == nil {
		t2, b2 = t0, b0
	}
	tp2, bp2 := w.Tp2, w.Bp2
	if tp2 == nil || bp2 == nil {
		tp2, bp2 = t0, b0
	}
	full := w.TT1 != nil && w.BB1 != nil && w.TTp != nil && w.BBp != nil

	n := len(out)
	for x := 0; x < n; x++ {
		c, e := int(t0[x]), int(b0[x])
		d := (int(m1[x]) + int(mp[x])) >> 1

		td0 := abs(int(m1[x]) - int(mp[x]))
		td1 := (abs(int(t2[x])-c) + abs(int(b2[x])-e)) >> 1
		td2 := (abs(int(tp2[x])-c) + abs(int(bp2[x])-e)) >> 1
		diff := max(td0>>1, td1, td2)

		spatial := yadifSpatial(t0, b0, x, w, n)

		if full {
			bt := (int(w.TT1[x]) + int(w.TTp[x])) >> 1
			bf := (int(w.BB1[x]) + int(w.BBp[x])) >> 1
			hi := max(d-e, d-c, min(bt-c, bf-e))
			lo := min(d-e, d-c, max(bt-c, bf-e))
			diff = max(diff, lo, -hi)
		}

		if spatial > d+diff {
			spatial = d + diff
		} else if spatial < d-diff {
			spatial = d - diff
		}
		out[x] = byte(spatial)
	}
}

// yadifSpatial returns the edge directed average of the rows above and
// below x. Samples near either end of the row use the vertical average.
func yadifSpatial(t, b []byte, x int, w *ScanlineWindow, n int) int {
	c, e := int(t[x]), int(b[x])
	pred := (c + e) >> 1

	edge := yadifEdge * w.Layout.MaxSampleStride()
	if x < edge || x >= n-edge {
		return pred
	}

	s := w.Layout.SampleStride(x)
	score := abs(int(t[x-s])-int(b[x-s])) + abs(c-e) + abs(int(t[x+s])-int(b[x+s])) - 1

	// check tests direction j and reports whether it beat the best so far.
	check := func(j int) bool {
		sc := abs(int(t[x+(j-1)*s])-int(b[x-(j+1)*s])) +
			abs(int(t[x+j*s])-int(b[x-j*s])) +
			abs(int(t[x+(j+1)*s])-int(b[x-(j-1)*s]))
		if sc < score {
			score = sc
			pred = (int(t[x+j*s]) + int(b[x-j*s])) >> 1
			return true
		}
		return false
	}

	if check(-1) {
		check(-2)
	}
	if check(1) {
		check(2)
	}
	return pred
}
