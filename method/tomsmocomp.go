package method

import "github.com/opd-ai/deinterlace/video"

// tomsMoCompSearch is the number of sample strides searched on each side
// for the best edge direction.
const tomsMoCompSearch = 2

func newTomsMoComp() Method {
	return &SimpleMethod{
		Desc:        descriptors[TomsMoComp],
		Interpolate: interpolateTomsMoComp,
		Copy:        copyM0,
		Families:    []video.Family{video.FamilyPlanar, video.FamilyPacked422},
	}
}

// interpolateTomsMoComp finds the edge direction through the missing pixel
// with the smallest difference between the rows above and below, then
// takes the pixel from the previous field clamped between the two samples
// along that direction. Static content is woven, moving content follows
// the edge.
func interpolateTomsMoComp(out []byte, w *ScanlineWindow) {
	t, b := w.T0, w.B0
	prev := w.M1
	if prev == nil {
		prev = w.Mp
	}
	edge := tomsMoCompSearch * w.Layout.MaxSampleStride()
	n := len(out)
	for x := 0; x < n; x++ {
		a, c := int(t[x]), int(b[x])
		if x >= edge && x < n-edge {
			s := w.Layout.SampleStride(x)
			bestDiff := abs(a - c)
			for k := 1; k <= tomsMoCompSearch; k++ {
				for _, d := range [2]int{-k * s, k * s} {
					ta, bc := int(t[x+d]), int(b[x-d])
					if diff := abs(ta - bc); diff < bestDiff {
						bestDiff, a, c = diff, ta, bc
					}
				}
			}
		}
		if prev == nil {
			out[x] = byte((a + c + 1) >> 1)
			continue
		}
		lo, hi := min(a, c), max(a, c)
		out[x] = byte(min(max(int(prev[x]), lo), hi))
	}
}
