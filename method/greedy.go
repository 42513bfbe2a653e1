package method

// Greedy methods pick whichever temporal neighbour of a missing pixel is
// closest to the spatial average and limit how far it may stray from the
// rows above and below, which suppresses combing on moving edges.

const (
	greedyLMaxComb = 15

	greedyHMaxComb         = 5
	greedyHMotionThreshold = 25
	greedyHMotionSense     = 30
)

func newGreedyL() Method {
	return &SimpleMethod{
		Desc:        descriptors[GreedyL],
		Interpolate: interpolateGreedyL,
		Copy:        copyM0,
	}
}

func newGreedyH() Method {
	return &SimpleMethod{
		Desc:        descriptors[GreedyH],
		Interpolate: interpolateGreedyH,
		Copy:        copyM0,
	}
}

// greedyBest returns the candidate closest to avg clamped to the comb
// band around t and b.
func greedyBest(t, b, prev, next, maxComb int) (best, avg int) {
	avg = (t + b) >> 1
	best = prev
	if abs(next-avg) < abs(prev-avg) {
		best = next
	}
	hi, lo := max(t, b), min(t, b)
	hi = min(hi+maxComb, 255)
	lo = max(lo-maxComb, 0)
	return min(max(best, lo), hi), avg
}

func interpolateGreedyL(out []byte, w *ScanlineWindow) {
	prev, next := w.M1, w.Mp
	if prev == nil {
		prev = next
	}
	if prev == nil {
		interpolateLinear(out, w)
		return
	}
	if next == nil {
		next = prev
	}
	for x := range out {
		best, _ := greedyBest(int(w.T0[x]), int(w.B0[x]), int(prev[x]), int(next[x]), greedyLMaxComb)
		out[x] = byte(best)
	}
}

// interpolateGreedyH blends the greedy choice towards the spatial average
// in proportion to the motion between the two temporal neighbours.
func interpolateGreedyH(out []byte, w *ScanlineWindow) {
	if w.M1 == nil || w.Mp == nil {
		interpolateGreedyL(out, w)
		return
	}
	for x := range out {
		prev, next := int(w.M1[x]), int(w.Mp[x])
		best, avg := greedyBest(int(w.T0[x]), int(w.B0[x]), prev, next, greedyHMaxComb)
		motion := max(abs(prev-next)-greedyHMotionThreshold, 0) * greedyHMotionSense
		motion = min(motion, 256)
		out[x] = byte((avg*motion + best*(256-motion)) >> 8)
	}
}
