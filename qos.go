package deinterlace

import (
	"sync"
	"time"

	"github.com/opd-ai/deinterlace/video"
	"github.com/sirupsen/logrus"
)

// maxQoSJitter bounds how far ahead a lateness report pushes the earliest
// acceptable timestamp.
const maxQoSJitter = time.Second

// qosState holds the latest downstream quality-of-service observation.
// UpdateQoS may be called from a goroutine other than the one pushing
// buffers, so every field is guarded by mu.
type qosState struct {
	mu         sync.Mutex
	proportion float64
	earliest   time.Duration
	// frameDur is the duration of one output frame: one field when all
	// fields are output, two otherwise.
	frameDur  time.Duration
	processed uint64
	dropped   uint64
}

func (q *qosState) reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.proportion = 0.5
	q.earliest = video.NoTimestamp
	q.processed = 0
	q.dropped = 0
}

func (q *qosState) setFrameDuration(d time.Duration) {
	q.mu.Lock()
	q.frameDur = d
	q.mu.Unlock()
}

// UpdateQoS records a downstream lateness report. diff is how late (positive)
// or early (negative) the frame with the given running-time timestamp
// arrived. A timestamp of video.NoTimestamp clears the observation.
func (d *Deinterlacer) UpdateQoS(proportion float64, diff, timestamp time.Duration) {
	q := &d.qos
	q.mu.Lock()
	defer q.mu.Unlock()

	q.proportion = proportion
	switch {
	case timestamp < 0:
		q.earliest = video.NoTimestamp
	case diff > 0:
		jitter := 2 * diff
		if jitter > maxQoSJitter {
			jitter = maxQoSJitter
		}
		q.earliest = timestamp + jitter + q.frameDur
	default:
		q.earliest = timestamp + diff
	}

	d.logger("Deinterlacer.UpdateQoS").WithField("earliest", q.earliest).Debug("Updated QoS observation")
}

// ResetQoS forgets the QoS observation and zeroes the frame counters.
func (d *Deinterlacer) ResetQoS() {
	d.qos.reset()
}

// doQoS decides whether the frame with stream timestamp ts is still worth
// producing. It returns false and counts a drop when ts is already late.
func (d *Deinterlacer) doQoS(ts time.Duration) bool {
	q := &d.qos
	q.mu.Lock()
	defer q.mu.Unlock()

	if ts < 0 || q.earliest < 0 {
		q.processed++
		return true
	}
	qosTime := d.segment.RunningTime(ts)
	if qosTime >= 0 && qosTime <= q.earliest {
		q.dropped++
		d.logger("Deinterlacer.doQoS").WithFields(logrus.Fields{
			"qos_time": qosTime,
			"earliest": q.earliest,
			"jitter":   q.earliest - qosTime,
			"dropped":  q.dropped,
		}).Debug("Late frame, dropping")
		return false
	}
	q.processed++
	return true
}
