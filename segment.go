package deinterlace

import (
	"time"

	"github.com/opd-ai/deinterlace/video"
)

// Segment is the playback range output frames are clipped to.
type Segment struct {
	Start time.Duration
	// Stop is video.NoTimestamp for an open-ended segment.
	Stop time.Duration
	// Rate is the playback rate; negative for reverse playback.
	Rate float64
}

// NewSegment returns an open segment starting at zero with rate 1.
func NewSegment() Segment {
	return Segment{Start: 0, Stop: video.NoTimestamp, Rate: 1}
}

// Reverse reports whether the segment plays backwards.
func (s Segment) Reverse() bool {
	return s.Rate < 0
}

// Clip clamps [start, stop) to the segment. It returns false when the
// range lies entirely outside of it. A stop of video.NoTimestamp is open.
func (s Segment) Clip(start, stop time.Duration) (time.Duration, time.Duration, bool) {
	if s.Stop >= 0 && start >= 0 && (start > s.Stop || (s.Start != s.Stop && start == s.Stop)) {
		return 0, 0, false
	}
	if stop >= 0 && (stop < s.Start || (start != stop && stop == s.Start)) {
		return 0, 0, false
	}

	cstart := start
	if start >= 0 && start < s.Start {
		cstart = s.Start
	}
	cstop := stop
	switch {
	case stop < 0:
		cstop = s.Stop
	case s.Stop >= 0 && stop > s.Stop:
		cstop = s.Stop
	}
	return cstart, cstop, true
}

// RunningTime converts a stream timestamp to the time elapsed since the
// segment started playing, or video.NoTimestamp if ts is outside it.
func (s Segment) RunningTime(ts time.Duration) time.Duration {
	if ts < 0 {
		return video.NoTimestamp
	}
	rate := s.Rate
	if rate == 0 {
		rate = 1
	}
	var d time.Duration
	if rate > 0 {
		if ts < s.Start {
			return video.NoTimestamp
		}
		d = ts - s.Start
	} else {
		if s.Stop < 0 || ts > s.Stop {
			return video.NoTimestamp
		}
		d = s.Stop - ts
		rate = -rate
	}
	if rate != 1 {
		d = time.Duration(float64(d) / rate)
	}
	return d
}
