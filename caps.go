package deinterlace

import (
	"fmt"

	"github.com/opd-ai/deinterlace/method"
	"github.com/opd-ai/deinterlace/video"
	"github.com/sirupsen/logrus"
)

// Caps describes the stream descriptions a downstream consumer accepts.
// An empty list accepts any value for that property; a nil *Caps accepts
// everything.
type Caps struct {
	Formats        []video.PixelFormat
	InterlaceModes []video.InterlaceMode
	FrameRates     []video.Rational
}

// Accepts reports whether downstream can consume frames described by info.
func (c *Caps) Accepts(info video.Info) bool {
	return c.acceptsLayout(info) && c.acceptsRate(info.FrameRate)
}

func (c *Caps) acceptsLayout(info video.Info) bool {
	if c == nil {
		return true
	}
	if len(c.Formats) > 0 {
		found := false
		for _, f := range c.Formats {
			if f == info.Format {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(c.InterlaceModes) > 0 {
		for _, m := range c.InterlaceModes {
			if m == info.InterlaceMode {
				return true
			}
		}
		return false
	}
	return true
}

func (c *Caps) acceptsRate(r video.Rational) bool {
	if c == nil || len(c.FrameRates) == 0 {
		return true
	}
	for _, fr := range c.FrameRates {
		if int64(fr.N)*int64(r.D) == int64(r.N)*int64(fr.D) {
			return true
		}
	}
	return false
}

// deinterlaceable reports whether the input can be processed by at least
// one method.
func deinterlaceable(info video.Info) bool {
	if info.Validate() != nil {
		return false
	}
	for _, id := range method.IDs() {
		if m, err := method.New(id); err == nil && m.Supports(info) {
			return true
		}
	}
	return false
}

// AcceptCaps reports whether info can be accepted as input in the
// configured mode. Progressive input is always accepted; interlaced input
// is accepted unless deinterlacing is disabled, and in auto-strict and
// interlaced mode only if it can actually be deinterlaced.
func (d *Deinterlacer) AcceptCaps(info video.Info) bool {
	if !info.Format.Valid() {
		return false
	}
	if !info.IsInterlaced() && d.mode != ModeInterlaced {
		return true
	}
	switch d.mode {
	case ModeDisabled:
		return false
	case ModeAuto:
		return true
	default:
		return deinterlaceable(info)
	}
}

// SetCaps negotiates the input description and returns the output one.
//
// downstream describes what the consumer accepts and may be nil when it is
// not known yet. Negotiating a different description while buffers are
// held drains them first; the drained frames are returned by the next Push
// or Drain.
func (d *Deinterlacer) SetCaps(info video.Info, downstream *Caps) (video.Info, error) {
	return d.negotiate(info, downstream, false)
}

func (d *Deinterlacer) negotiate(info video.Info, downstream *Caps, force bool) (video.Info, error) {
	log := d.logger("Deinterlacer.SetCaps")

	if d.negotiated && !force {
		if info == d.inInfo {
			log.Debug("Got same caps again")
			d.downstream = downstream
			return d.outInfo, nil
		}
		if err := d.resetHistory(false); err != nil {
			log.WithField("error", err.Error()).Warn("Failed to drain history before renegotiation")
		}
	}

	if d.locker.Enabled() && !d.latencyResolved {
		d.locker.ResolveLatency(d.opts.Live)
		d.latencyResolved = true
	}

	passthrough, err := d.decidePassthrough(info, downstream)
	if err != nil {
		d.negotiated = false
		log.WithFields(logrus.Fields{
			"caps":  info.String(),
			"mode":  d.mode,
			"error": err.Error(),
		}).Error("Invalid caps")
		return video.Info{}, err
	}

	out := info
	fields := d.fields
	if !passthrough {
		out, fields, err = d.outputInfo(info, downstream)
		if err != nil {
			d.negotiated = false
			return video.Info{}, err
		}
		if _, err := method.Select(d.opts.Method, info); err != nil {
			d.negotiated = false
			return video.Info{}, fmt.Errorf("%w: %w", ErrNegotiation, err)
		}
	}

	d.inInfo = info
	d.outInfo = out
	d.downstream = downstream
	d.passthrough = passthrough
	d.fields = fields
	d.methods = make(map[method.ID]method.Method)
	d.fieldDuration = info.FrameRate.FieldDuration()
	d.history.SetLayout(d.opts.Layout)
	d.history.SetForceInterlaced(d.mode == ModeInterlaced)
	d.negotiated = true

	frameDur := 2 * d.fieldDuration
	if fields == FieldsAll {
		frameDur = d.fieldDuration
	}
	d.qos.setFrameDuration(frameDur)

	log.WithFields(logrus.Fields{
		"sink":        info.String(),
		"src":         out.String(),
		"passthrough": passthrough,
		"fields":      fields,
		"method":      d.opts.Method,
	}).Info("Negotiated caps")
	return out, nil
}

// decidePassthrough applies the configured mode to the input description.
func (d *Deinterlacer) decidePassthrough(info video.Info, downstream *Caps) (bool, error) {
	log := d.logger("Deinterlacer.SetCaps")
	supported := deinterlaceable(info)

	switch d.mode {
	case ModeDisabled:
		log.Debug("Passthrough because mode=disabled")
		return true, nil
	case ModeInterlaced:
		if !supported {
			return false, fmt.Errorf("%w: unsupported caps %v for mode=interlaced", ErrNegotiation, info)
		}
		return false, nil
	}

	if !info.IsInterlaced() {
		log.Debug("Passthrough because mode=auto and progressive caps")
		return true, nil
	}
	if !supported {
		if d.mode == ModeAuto {
			log.WithField("caps", info.String()).Warn("Passthrough because mode=auto and unsupported interlaced caps")
			return true, nil
		}
		return false, fmt.Errorf("%w: unsupported interlaced caps %v in mode=auto-strict", ErrNegotiation, info)
	}
	if downstream != nil && downstream.Accepts(info) && !downstream.acceptsLayout(info.Progressive()) {
		log.Debug("Passthrough because downstream only supports interlaced caps")
		return true, nil
	}
	return false, nil
}

// outputInfo computes the progressive output description and the
// effective field policy.
func (d *Deinterlacer) outputInfo(info video.Info, downstream *Caps) (video.Info, Fields, error) {
	out := info.Progressive()
	rate := info.FrameRate
	fields := d.fields

	switch {
	case d.locker.Locked():
		n, den := d.locker.FrameRate()
		rate = rate.Mul(n, den)
	case d.locker.Enabled() && !d.locker.LowLatency():
		// Until a lock is acquired the input rate is the best estimate.
	case d.locker.Enabled() && info.InterlaceMode == video.InterlaceMixed && d.locker.PatternIndex() < 0:
		rate = video.Rational{N: 0, D: 1}
	case d.userFields == FieldsAuto:
		if downstream == nil {
			fields = FieldsAll
			rate = rate.Double()
			break
		}
		single := out
		single.FrameRate = rate
		double := out
		double.FrameRate = rate.Double()
		switch {
		case downstream.Accepts(double):
			fields = FieldsAll
			rate = double.FrameRate
		case downstream.Accepts(single):
			fields = FieldsTop
		default:
			return video.Info{}, fields, fmt.Errorf("%w: downstream accepts neither %v nor %v", ErrNegotiation, single.FrameRate, double.FrameRate)
		}
	default:
		fields = d.userFields
		if fields == FieldsAll {
			rate = rate.Double()
		}
	}

	out.FrameRate = rate
	return out, fields, nil
}

// refreshOutputRate recomputes the output description after the telecine
// lock changed.
func (d *Deinterlacer) refreshOutputRate() {
	out, fields, err := d.outputInfo(d.inInfo, d.downstream)
	if err != nil {
		d.logger("Deinterlacer.refreshOutputRate").WithField("error", err.Error()).Warn("Keeping previous output caps")
		return
	}
	d.outInfo = out
	d.fields = fields
}
