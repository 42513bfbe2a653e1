package telecine

import (
	"time"

	"github.com/opd-ai/deinterlace/history"
	"github.com/opd-ai/deinterlace/video"
	"github.com/sirupsen/logrus"
)

// FixTimestamps rewrites the timestamp and duration of the buffer owning
// the oldest field so that a telecine stream plays at its film rate.
//
// While locked the timestamp is projected from the first buffer output in
// the current pattern repeat. Otherwise it is smoothed from the
// neighbouring buffers, which needs three fields of history (four for
// telecine content); false is returned when that many are not available
// yet. While locked, a buffer that was already fixed is left untouched.
func (l *Locker) FixTimestamps(fields []history.Field) bool {
	n := len(fields)
	if n == 0 {
		return false
	}
	oldest := fields[n-1]
	field1 := oldest.Frame

	if l.Locked() {
		if l.fixed && l.fixedSeq == oldest.Seq {
			return true
		}
		if !l.baseValid {
			l.updateBase(oldest)
		}
		field1.PTS = l.baseTS + time.Duration(l.outputCount)*l.bufDur
		field1.Duration = l.bufDur
		l.outputCount++
		l.fixed, l.fixedSeq = true, oldest.Seq
		l.logAdjusted(field1)
		return true
	}

	SmoothPair(fields)

	if n < 3 {
		logrus.WithFields(logrus.Fields{
			"function": "Locker.FixTimestamps",
			"have":     n,
			"need":     3,
		}).Debug("Need more fields")
		return false
	}

	field3 := fields[n-3].Frame
	mode := field3.Info.InterlaceMode
	if mode == video.InterlaceMixed || mode == video.InterlaceAlternate {
		if n < 4 {
			logrus.WithFields(logrus.Fields{
				"function": "Locker.FixTimestamps",
				"have":     n,
				"need":     4,
			}).Debug("Need more fields")
			return false
		}
		if !fields[n-3].SameBuffer(fields[n-4]) {
			field3.PTS = (field3.PTS + fields[n-4].Frame.PTS) / 2
		}
	}

	field1.Duration = field3.PTS - field1.PTS
	l.logAdjusted(field1)
	return true
}

// SmoothPair nudges the timestamps of the buffers owning the two oldest
// fields when those fields come from different buffers. Contiguous buffers
// both move to the midpoint of their timestamps; otherwise the newer one
// adopts the timestamp of the older.
func SmoothPair(fields []history.Field) {
	n := len(fields)
	if n < 2 || fields[n-1].SameBuffer(fields[n-2]) {
		return
	}
	f1, f2 := fields[n-1].Frame, fields[n-2].Frame
	if f1.PTS+f1.Duration == f2.PTS {
		mid := (f1.PTS + f2.PTS) / 2
		f1.PTS, f2.PTS = mid, mid
		return
	}
	f2.PTS = f1.PTS
}

func (l *Locker) updateBase(f history.Field) {
	p := patterns[l.pattern]
	l.baseTS = f.Frame.PTS
	l.bufDur = p.BufferDuration(f.Frame.Duration, f.State)
	l.outputCount = 0
	l.baseValid = true

	logrus.WithFields(logrus.Fields{
		"function": "Locker.updateBase",
		"pattern":  p.Name,
		"count":    l.count,
		"base_ts":  l.baseTS,
		"buf_dur":  l.bufDur,
	}).Debug("Starting a new pattern repeat")
}

func (l *Locker) logAdjusted(f *video.Frame) {
	logrus.WithFields(logrus.Fields{
		"function": "Locker.FixTimestamps",
		"pts":      f.PTS,
		"duration": f.Duration,
	}).Debug("Adjusted buffer timestamp")
}
