package deinterlace

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opd-ai/deinterlace/history"
	"github.com/opd-ai/deinterlace/method"
	"github.com/opd-ai/deinterlace/telecine"
	"github.com/opd-ai/deinterlace/video"
	"github.com/sirupsen/logrus"
)

// Step is the outcome of the most recent output step.
type Step uint8

const (
	// StepNeedMoreFields means the history cannot produce a frame yet.
	StepNeedMoreFields Step = iota
	// StepReadyWeave means two fields of one instant were combined: a
	// progressive buffer or a telecine frame split across two buffers.
	StepReadyWeave
	// StepReadyFilter means the configured method produced a frame.
	StepReadyFilter
	// StepReadyFlushLinear means a lone field was interpolated on its own.
	StepReadyFlushLinear
)

func (s Step) String() string {
	switch s {
	case StepNeedMoreFields:
		return "need-more-fields"
	case StepReadyWeave:
		return "ready-weave"
	case StepReadyFilter:
		return "ready-filter"
	case StepReadyFlushLinear:
		return "ready-flush-linear"
	default:
		return fmt.Sprintf("Step(%d)", uint8(s))
	}
}

// Stats is a snapshot of the deinterlacer counters.
type Stats struct {
	// Processed counts frames that passed the QoS check.
	Processed uint64
	// Dropped counts frames skipped because they were already late.
	Dropped uint64
	// Output counts frames handed to the caller, passthrough included.
	Output uint64
	// Passthrough counts input buffers forwarded unchanged.
	Passthrough uint64
	// Pattern names the locked telecine pattern, empty when unlocked.
	Pattern string
	Phase   int
}

// Deinterlacer converts interlaced or telecined video into progressive
// frames. It is driven synchronously: every call returns the frames that
// became ready. Apart from UpdateQoS, which may be called concurrently,
// methods must be called from a single goroutine.
type Deinterlacer struct {
	opts Options
	id   uuid.UUID

	mode       Mode
	userFields Fields
	fields     Fields

	alloc   Allocator
	history *history.FieldHistory
	locker  *telecine.Locker
	methods map[method.ID]method.Method

	inInfo          video.Info
	outInfo         video.Info
	downstream      *Caps
	negotiated      bool
	passthrough     bool
	reconfigure     bool
	latencyResolved bool
	fieldDuration   time.Duration

	// cur indexes, from the newest, the next field to output. It is -1
	// when every held field has been output.
	cur        int
	needMore   bool
	discont    bool
	eos        bool
	stillFrame bool
	lastFrame  *video.Frame
	segment    Segment
	step       Step
	captionSeq uint64
	// lastEnd is the end of the last telecine-locked output, or -1.
	lastEnd time.Duration

	qos       qosState
	output    uint64
	forwarded uint64
	out       []*video.Frame
}

// New creates a Deinterlacer. A nil opts selects NewOptions.
func New(opts *Options) (*Deinterlacer, error) {
	if opts == nil {
		opts = NewOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	d := &Deinterlacer{
		opts:       *opts,
		id:         uuid.New(),
		mode:       opts.Mode,
		userFields: opts.Fields,
		fields:     opts.Fields,
		alloc:      opts.Allocator,
		history:    history.NewFieldHistory(),
		locker:     telecine.NewLocker(opts.Locking, opts.IgnoreObscure),
		methods:    make(map[method.ID]method.Method),
		cur:        -1,
		segment:    NewSegment(),
		lastEnd:    video.NoTimestamp,
	}
	if d.fields == FieldsAuto {
		d.fields = FieldsAll
	}
	if d.alloc == nil {
		d.alloc = DefaultAllocator
	}
	d.qos.reset()

	d.logger("New").WithFields(logrus.Fields{
		"mode":           d.mode,
		"method":         opts.Method,
		"fields":         opts.Fields,
		"layout":         opts.Layout,
		"locking":        opts.Locking,
		"ignore_obscure": opts.IgnoreObscure,
		"drop_orphans":   opts.DropOrphans,
	}).Info("Created deinterlacer")
	return d, nil
}

func (d *Deinterlacer) logger(function string) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"function": function,
		"stream":   d.id.String(),
	})
}

// ID returns the stream identifier used in log output.
func (d *Deinterlacer) ID() uuid.UUID {
	return d.id
}

// OutputInfo returns the negotiated output description.
func (d *Deinterlacer) OutputInfo() video.Info {
	return d.outInfo
}

// Passthrough reports whether buffers are forwarded unchanged.
func (d *Deinterlacer) Passthrough() bool {
	return d.passthrough
}

// LastStep returns the outcome of the most recent output step.
func (d *Deinterlacer) LastStep() Step {
	return d.step
}

// Fields returns the negotiated output field policy.
func (d *Deinterlacer) Fields() Fields {
	return d.fields
}

// Stats returns a snapshot of the counters.
func (d *Deinterlacer) Stats() Stats {
	d.qos.mu.Lock()
	s := Stats{Processed: d.qos.processed, Dropped: d.qos.dropped}
	d.qos.mu.Unlock()

	s.Output = d.output
	s.Passthrough = d.forwarded
	if p, ok := d.locker.Pattern(); ok && d.locker.Locked() {
		s.Pattern = p.Name
		s.Phase = d.locker.Phase()
	}
	return s
}

// SetMode changes the mode; the change is negotiated on the next Push.
func (d *Deinterlacer) SetMode(m Mode) {
	if m != d.mode {
		d.mode = m
		d.reconfigure = true
	}
}

// SetFields changes the field policy; the change is negotiated on the
// next Push.
func (d *Deinterlacer) SetFields(f Fields) {
	if f != d.userFields {
		d.userFields = f
		d.reconfigure = true
	}
}

// Latency returns how far output lags input: the fields a method needs
// plus its own latency, in field durations. It is zero in passthrough.
func (d *Deinterlacer) Latency() time.Duration {
	if !d.negotiated || d.passthrough {
		return 0
	}
	desc := d.methodFor(d.opts.Method).Descriptor()
	return time.Duration(desc.FieldsRequired+desc.Latency) * d.fieldDuration
}

// Push hands a buffer to the deinterlacer, which takes ownership of it,
// and returns the frames that became ready.
func (d *Deinterlacer) Push(frame *video.Frame) ([]*video.Frame, error) {
	if !d.negotiated {
		return d.takeOutput(), ErrNotNegotiated
	}
	if d.reconfigure {
		d.reconfigure = false
		if _, err := d.negotiate(d.inInfo, d.downstream, true); err != nil {
			d.reconfigure = true
			return d.takeOutput(), err
		}
	}

	log := d.logger("Deinterlacer.Push")
	log.WithFields(logrus.Fields{
		"pts":      frame.PTS,
		"duration": frame.Duration,
		"flags":    frame.Flags,
	}).Debug("Received buffer")

	if d.stillFrame || d.passthrough {
		d.forwarded++
		d.emitFrame(frame)
		return d.takeOutput(), nil
	}

	if frame.Flags.Has(video.FlagDiscont) {
		log.Debug("DISCONT buffer, resetting history")
		if err := d.resetHistory(false); err != nil {
			log.WithField("error", err.Error()).Warn("Failed to drain history on discontinuity")
		}
		d.discont = true
		frame.Flags &^= video.FlagDiscont
	}

	if _, err := d.history.Push(frame); err != nil {
		log.WithField("error", err.Error()).Warn("Dropping unreadable buffer")
		return d.takeOutput(), err
	}
	d.cur += d.history.At(0).Count
	if last := d.history.Len() - 1; d.cur > last {
		d.cur = last
	}
	d.lastFrame = frame

	for {
		if err := d.outputFrame(false); err != nil {
			return d.takeOutput(), err
		}
		if d.needMore || d.history.Len() == 0 {
			break
		}
	}
	return d.takeOutput(), nil
}

// Drain signals end of stream and returns every frame that can still be
// produced from the held fields.
func (d *Deinterlacer) Drain() ([]*video.Frame, error) {
	d.eos = true
	err := d.resetHistory(false)
	d.logger("Deinterlacer.Drain").WithField("output", d.output).Debug("Drained history")
	return d.takeOutput(), err
}

// Flush drops every held field and undelivered frame, forgets the
// telecine lock and QoS state and leaves still-frame mode.
func (d *Deinterlacer) Flush() {
	d.stillFrame = false
	d.eos = false
	d.resetHistory(true)
	d.ResetQoS()
	d.segment = NewSegment()
	d.history.SetReverse(false)
	d.out = nil
	d.step = StepNeedMoreFields
	d.logger("Deinterlacer.Flush").Debug("Flushed")
}

// SetSegment drains the held fields and starts clipping output to seg.
func (d *Deinterlacer) SetSegment(seg Segment) ([]*video.Frame, error) {
	d.ResetQoS()
	err := d.resetHistory(false)
	d.segment = seg
	d.history.SetReverse(seg.Reverse())
	d.logger("Deinterlacer.SetSegment").WithFields(logrus.Fields{
		"start": seg.Start,
		"stop":  seg.Stop,
		"rate":  seg.Rate,
	}).Debug("New segment")
	return d.takeOutput(), err
}

// SetStillFrame enters or leaves still-frame mode. Entering drains the
// held fields and outputs the last pushed buffer once more; while active,
// pushed buffers are forwarded unchanged.
func (d *Deinterlacer) SetStillFrame(still bool) ([]*video.Frame, error) {
	log := d.logger("Deinterlacer.SetStillFrame")
	if !still {
		log.Debug("Ending still frames")
		d.stillFrame = false
		return d.takeOutput(), nil
	}

	d.stillFrame = true
	err := d.resetHistory(false)
	if d.lastFrame != nil {
		d.emitFrame(d.lastFrame.Clone())
	} else {
		log.Warn("No pending buffer for still frame")
	}
	return d.takeOutput(), err
}

func (d *Deinterlacer) takeOutput() []*video.Frame {
	out := d.out
	d.out = nil
	return out
}

func (d *Deinterlacer) emitFrame(f *video.Frame) {
	d.out = append(d.out, f)
	d.output++
}

// methodFor returns the cached instance of id for the negotiated input,
// falling back to a supporting method when id cannot handle its format.
func (d *Deinterlacer) methodFor(id method.ID) method.Method {
	if m, ok := d.methods[id]; ok {
		return m
	}
	m, err := method.Select(id, d.inInfo)
	if err != nil {
		// Negotiation verified a method exists for the input format.
		panic(fmt.Sprintf("deinterlace: no method for negotiated caps %v: %v", d.inInfo, err))
	}
	method.SetWorkers(m, d.opts.Workers)
	d.methods[id] = m
	return m
}

// pop removes the oldest field and advances the telecine cadence when it
// was the last field of its buffer.
func (d *Deinterlacer) pop() history.Field {
	f := d.history.PopOldest()
	if d.history.CompletesBuffer(f) {
		d.locker.OnBufferConsumed(d.history.States())
	}
	return f
}

// resetHistory empties the history. Unless dropAll is set the held fields
// are first output as if at end of stream.
func (d *Deinterlacer) resetHistory(dropAll bool) error {
	log := d.logger("Deinterlacer.resetHistory")
	var err error
	if !dropAll {
		log.WithField("fields", d.history.Len()).Debug("Flushing history")
		for d.history.Len() > 0 {
			n, cur := d.history.Len(), d.cur
			if err = d.outputFrame(true); err != nil {
				break
			}
			if d.history.Len() == n && d.cur == cur {
				log.WithField("fields", n).Warn("Flushing made no progress, dropping remaining fields")
				break
			}
		}
	}
	if d.history.Len() > 0 {
		log.WithField("fields", d.history.Len()).Debug("Resetting history")
	}
	d.history.Clear()
	d.locker.Reset()
	d.cur = -1
	d.lastEnd = video.NoTimestamp
	if !d.stillFrame {
		d.lastFrame = nil
	}
	return err
}

// outputFrame runs output steps until one completes without restarting.
func (d *Deinterlacer) outputFrame(flushing bool) error {
	for {
		restart, err := d.outputStep(flushing)
		if err != nil || !restart {
			return err
		}
	}
}

// outputStep produces at most one frame per field policy branch from the
// held fields. It reports restart when an orphan field was consumed and
// the history must be looked at afresh.
func (d *Deinterlacer) outputStep(flushing bool) (bool, error) {
	h := d.history
	log := d.logger("Deinterlacer.outputStep")

	d.needMore = false
	d.step = StepNeedMoreFields

	if h.Len() == 0 {
		d.needMore = true
		return false, nil
	}
	if flushing && d.cur < 0 {
		// Every remaining field was already output and is held only as
		// context for later fields.
		log.WithField("fields", h.Len()).Debug("Dropping context fields")
		for h.Len() > 0 {
			d.pop()
		}
		return false, nil
	}

	field1 := h.Oldest()
	mode := field1.Mode
	flushOne := false

	if d.locker.Enabled() {
		if d.locker.PatternIndex() > 1 {
			mode = video.InterlaceMixed
		}
		if d.locker.NeedsRefresh(field1.State) {
			res := d.locker.TryLock(h.States(), h.Buffers(), d.eos || flushing)
			switch res.Status {
			case telecine.Locked:
				p, _ := d.locker.Pattern()
				log.WithFields(logrus.Fields{
					"pattern": p.Name,
					"phase":   res.Phase,
				}).Info("Pattern locked")
				d.refreshOutputRate()
			case telecine.NeedMoreData:
				if !d.locker.LowLatency() && !flushing {
					d.needMore = true
					return false, nil
				}
			case telecine.NoMatch:
				log.Debug("No telecine pattern, deinterlacing plainly")
			}

			flushOne = res.OrphanFirstField
			if flushOne && d.opts.DropOrphans {
				log.Debug("Dropping orphan first field")
				d.cur--
				d.pop()
				return true, nil
			}
		}
	}

	isTelecine := mode == video.InterlaceMixed && d.locker.Telecine()
	n := h.Len()
	sameBuffer := n >= 2 && field1.SameBuffer(h.At(n-2))

	var m method.Method
	required := 0
	step := StepReadyFilter

	switch {
	case (flushing && n == 1) || (flushOne && !d.opts.DropOrphans):
		log.Debug("Flushing one field using linear method")
		m = d.methodFor(method.Linear)
		required = m.Descriptor().FieldsRequired
		step = StepReadyFlushLinear

	case mode == video.InterlaceProgressive ||
		(mode == video.InterlaceMixed && !field1.Frame.IsInterlaced()):
		return false, d.outputProgressive(flushing, isTelecine)

	case isTelecine && field1.Frame.IsInterlaced() && !sameBuffer:
		required = 2
		if !flushing && n < required {
			d.needMore = true
			return false, nil
		}
		if !d.locker.FixTimestamps(h.Fields()) && !flushing {
			d.needMore = true
			return false, nil
		}
		if n >= 2 && field1.Parity == h.At(n-2).Parity {
			log.WithField("parity", field1.Parity).Error("Telecine mixed with fields of same parity")
		}
		log.Debug("Telecine mixed, weaving tip two fields into a frame")
		m = d.methodFor(method.Weave)
		step = StepReadyWeave

	default:
		m = d.methodFor(d.opts.Method)
		required = m.Descriptor().FieldsRequired
		if flushing && n < required {
			m = d.methodFor(method.VFIR)
			required = m.Descriptor().FieldsRequired
			log.WithField("method", m.Descriptor().ShortID).Debug("Flushing fields with fallback method")
		}
		if !flushing && n < required {
			d.needMore = true
			return false, nil
		}
	}

	if !flushing && d.cur < 1 {
		d.needMore = true
		return false, nil
	}
	d.step = step

	all := d.fields == FieldsAll && !isTelecine

	parity := h.At(d.cur).Parity
	switch {
	case (parity == history.ParityTop && (d.fields == FieldsTop || isTelecine)) || all:
		stop, err := d.emit(m, flushing, isTelecine, true)
		if err != nil || stop {
			return false, err
		}
		if flushOne && !d.opts.DropOrphans {
			log.Debug("Orphan field deinterlaced, reconfiguring")
			return true, nil
		}
	case parity == history.ParityTop && d.fields == FieldsBottom && !isTelecine:
		log.Debug("Removing unused top field")
		d.cur--
		d.pop()
		if flushOne && !d.opts.DropOrphans {
			return true, nil
		}
	}

	if h.Len() < required || d.cur < 0 {
		return false, nil
	}

	parity = h.At(d.cur).Parity
	switch {
	case (parity == history.ParityBottom && (d.fields == FieldsBottom || isTelecine)) || all:
		stop, err := d.emit(m, flushing, isTelecine, false)
		if err != nil || stop {
			return false, err
		}
		if flushOne && !d.opts.DropOrphans {
			log.Debug("Orphan field deinterlaced, reconfiguring")
			return true, nil
		}
	case parity == history.ParityBottom && d.fields == FieldsTop && !isTelecine:
		log.Debug("Removing unused bottom field")
		d.cur--
		d.pop()
		if flushOne && !d.opts.DropOrphans {
			return true, nil
		}
	}
	return false, nil
}

// outputProgressive forwards the buffer owning the oldest field as a
// frame of its own.
func (d *Deinterlacer) outputProgressive(flushing, isTelecine bool) error {
	h := d.history
	log := d.logger("Deinterlacer.outputProgressive")

	n := h.Len()
	if !flushing && n < 2 {
		d.needMore = true
		return nil
	}
	field1 := h.Oldest()
	if n >= 2 && !field1.SameBuffer(h.At(n-2)) {
		log.Error("Progressive buffer but two fields at tip aren't in the same buffer")
	}
	// A buffer whose fields lie beyond cur was output by a method and is
	// only held as context.
	context := n-1 > d.cur
	if !context && isTelecine && !d.locker.FixTimestamps(h.Fields()) && !flushing {
		d.needMore = true
		return nil
	}

	for {
		if h.Len()-1 <= d.cur {
			d.cur--
		}
		d.pop()
		if h.Len() == 0 || !h.Oldest().SameBuffer(field1) {
			break
		}
	}
	if context {
		log.WithField("pts", field1.Frame.PTS).Debug("Dropping progressive context buffer")
		return nil
	}

	frame := field1.Frame
	frame.Info = d.outInfo
	frame.Flags &^= video.FlagInterlaced | video.FlagTFF | video.FlagRFF | video.FlagOneField
	if d.discont {
		frame.Flags |= video.FlagDiscont
		d.discont = false
	}

	d.step = StepReadyWeave
	d.keepOrder(frame)
	log.WithFields(logrus.Fields{
		"pts":      frame.PTS,
		"duration": frame.Duration,
	}).Debug("Progressive buffer, pushing as a frame")
	d.emitFrame(frame)
	return nil
}

// emit produces the frame for the field at d.cur with m. It reports stop
// when no further output may be attempted in this step.
func (d *Deinterlacer) emit(m method.Method, flushing, isTelecine, first bool) (bool, error) {
	h := d.history
	log := d.logger("Deinterlacer.emit")
	desc := m.Descriptor()
	src := h.At(d.cur)

	out, err := d.alloc.Allocate(d.outInfo)
	if err != nil {
		return true, fmt.Errorf("%w: %w", ErrAllocation, err)
	}
	out.Info = d.outInfo
	out.Flags = 0

	if src.TimeCode != nil {
		tc := src.TimeCode.Copy()
		if d.fields == FieldsAll {
			tc.FPS.N *= 2
			tc.Frames *= 2
			if src.Index > 0 {
				tc.Frames++
			}
		}
		out.TimeCode = tc
	}
	if src.Caption != nil && src.Seq != d.captionSeq {
		out.Caption = src.Caption.Copy()
		d.captionSeq = src.Seq
	}

	if isTelecine {
		f1 := h.Oldest().Frame
		out.PTS = f1.PTS
		out.Duration = f1.Duration
	} else if d.fields == FieldsAll {
		out.PTS = src.Timestamp(d.fieldDuration, d.segment.Reverse())
		out.Duration = d.fieldDuration
	} else {
		out.PTS = src.Frame.PTS
		out.Duration = 2 * d.fieldDuration
	}

	weave := isTelecine && desc.ID == method.Weave
	if !d.doQoS(src.Frame.PTS) {
		d.cur--
		d.pop()
		if weave {
			// Both buffers make up the dropped frame.
			d.cur--
			d.pop()
			return true, nil
		}
		return false, nil
	}

	if err := m.DeinterlaceFrame(h.Fields(), out, d.cur); err != nil {
		return true, fmt.Errorf("failed to deinterlace field %d with %s: %w", d.cur, desc.ShortID, err)
	}

	d.cur--
	if weave || d.cur+1+desc.Latency < h.Len() || (first && flushing) {
		d.pop()
	}

	d.keepOrder(out)
	if d.clip(out) {
		if d.discont {
			out.Flags |= video.FlagDiscont
			d.discont = false
		}
		log.WithFields(logrus.Fields{
			"pts":      out.PTS,
			"duration": out.Duration,
			"method":   desc.ShortID,
			"parity":   src.Parity,
		}).Debug("Output frame")
		d.emitFrame(out)
	}

	if weave {
		log.WithField("fields", h.Len()).Debug("Removing unused field")
		d.cur--
		d.pop()
		return true, nil
	}
	return false, nil
}

// keepOrder stops output of a stream under telecine locking from running
// backwards or overlapping when the lock is re-established part way
// through a pattern repeat. A frame starting before the end of the
// previous one is moved to that end, and a frame without a duration gets
// one frame's worth.
func (d *Deinterlacer) keepOrder(f *video.Frame) {
	if !d.locker.Enabled() || d.segment.Reverse() || !f.HasTimestamp() {
		return
	}
	if d.lastEnd >= 0 && f.PTS < d.lastEnd {
		d.logger("Deinterlacer.keepOrder").WithFields(logrus.Fields{
			"pts":      f.PTS,
			"last_end": d.lastEnd,
		}).Debug("Moving frame after the previous output")
		f.PTS = d.lastEnd
	}
	if f.Duration <= 0 {
		f.Duration = 2 * d.fieldDuration
	}
	d.lastEnd = f.PTS + f.Duration
}

// clip restricts the frame to the current segment and reports whether any
// of it remains.
func (d *Deinterlacer) clip(f *video.Frame) bool {
	if !f.HasTimestamp() {
		return true
	}
	stop := f.PTS + f.Duration
	cstart, cstop, ok := d.segment.Clip(f.PTS, stop)
	if !ok {
		d.logger("Deinterlacer.clip").WithField("pts", f.PTS).Debug("Frame outside the current segment, dropping")
		return false
	}
	f.PTS = cstart
	if cstop >= 0 {
		f.Duration = cstop - cstart
	}
	return true
}
