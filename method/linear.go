package method

// Spatial and blending methods. None of them looks at motion.

func newLinear() Method {
	return &SimpleMethod{
		Desc:        descriptors[Linear],
		Interpolate: interpolateLinear,
		Copy:        copyM0,
	}
}

func newScalerBob() Method {
	return &SimpleMethod{
		Desc: descriptors[ScalerBob],
		Interpolate: func(out []byte, w *ScanlineWindow) {
			copy(out, w.T0)
		},
		Copy: copyM0,
	}
}

func newLinearBlend() Method {
	return &SimpleMethod{
		Desc:        descriptors[LinearBlend],
		Interpolate: interpolateLinearBlend,
		Copy:        copyLinearBlend,
	}
}

func interpolateLinearBlend(out []byte, w *ScanlineWindow) {
	if w.M1 == nil {
		interpolateLinear(out, w)
		return
	}
	t, m, b := w.T0, w.M1, w.B0
	for x := range out {
		out[x] = byte((int(t[x]) + 2*int(m[x]) + int(b[x]) + 2) >> 2)
	}
}

func copyLinearBlend(out []byte, w *ScanlineWindow) {
	if w.T1 == nil || w.B1 == nil {
		copy(out, w.M0)
		return
	}
	t, m, b := w.T1, w.M0, w.B1
	for x := range out {
		out[x] = byte((int(t[x]) + 2*int(m[x]) + int(b[x]) + 2) >> 2)
	}
}

func newVFIR() Method {
	return &SimpleMethod{
		Desc:        descriptors[VFIR],
		Interpolate: interpolateVFIR,
		Copy:        copyM0,
	}
}

// interpolateVFIR applies the vertical filter [-1 4 2 4 -1] across the
// current field and the previous one.
func interpolateVFIR(out []byte, w *ScanlineWindow) {
	if w.M1 == nil || w.TT1 == nil || w.BB1 == nil {
		interpolateLinear(out, w)
		return
	}
	for x := range out {
		sum := -int(w.TT1[x]) + 4*int(w.T0[x]) + 2*int(w.M1[x]) + 4*int(w.B0[x]) - int(w.BB1[x])
		out[x] = clampByte((sum + 4) >> 3)
	}
}
