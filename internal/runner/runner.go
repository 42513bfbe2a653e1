// Package runner drives a Deinterlacer over a raw video stream: it reads
// fixed-size frames, stamps them with timestamps and cadence flags, writes
// the progressive result and fingerprints every output frame.
package runner

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"time"

	"github.com/opd-ai/deinterlace"
	"github.com/opd-ai/deinterlace/video"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
)

// Sentinel errors for runner operations.
// These errors enable reliable error classification using errors.Is().
var (
	// ErrNoInput indicates a Config without an input reader.
	ErrNoInput = errors.New("no input stream")

	// ErrCanceled indicates the run stopped because its context ended.
	ErrCanceled = errors.New("run canceled")
)

// Config holds everything a run needs.
type Config struct {
	Input  io.Reader
	Output io.Writer // nil discards frames
	// Digests receives one "pts duration blake2b" line per output frame.
	Digests io.Writer

	Info    video.Info
	Cadence []video.Flags
	Options *deinterlace.Options
	// Downstream restricts output negotiation; nil accepts anything.
	Downstream *deinterlace.Caps

	// MaxFrames stops reading after that many input frames; zero reads
	// until EOF.
	MaxFrames uint64

	// Progress, if set, receives a snapshot after every input frame. Sends
	// never block: a snapshot is skipped while the receiver is busy.
	Progress chan<- Progress

	TimeProvider TimeProvider
}

// Progress is a snapshot of a running conversion.
type Progress struct {
	FramesIn  uint64
	FramesOut uint64
	PTS       time.Duration
	Stats     deinterlace.Stats
}

// Result summarises a finished run.
type Result struct {
	FramesIn  uint64
	FramesOut uint64
	// Skipped counts input frames the deinterlacer could not read.
	Skipped      uint64
	BytesWritten int64
	Elapsed      time.Duration
	InputInfo    video.Info
	OutputInfo   video.Info
	Latency      time.Duration
	Stats        deinterlace.Stats
	// Digest is the BLAKE2b-256 of every output frame in order.
	Digest [blake2b.Size256]byte
}

// Runner converts one stream.
type Runner struct {
	cfg    Config
	d      *deinterlace.Deinterlacer
	clock  TimeProvider
	digest hash.Hash
	frame  hash.Hash
	result Result

	readFrame func(io.Reader, video.Info) (*video.Frame, error)
}

// New validates cfg and negotiates the deinterlacer for the input.
func New(cfg Config) (*Runner, error) {
	if cfg.Input == nil {
		return nil, ErrNoInput
	}
	if len(cfg.Cadence) == 0 {
		cfg.Cadence = []video.Flags{0}
	}
	if cfg.TimeProvider == nil {
		cfg.TimeProvider = DefaultTimeProvider{}
	}

	d, err := deinterlace.New(cfg.Options)
	if err != nil {
		return nil, fmt.Errorf("failed to create deinterlacer: %w", err)
	}
	out, err := d.SetCaps(cfg.Info, cfg.Downstream)
	if err != nil {
		return nil, fmt.Errorf("failed to negotiate %v: %w", cfg.Info, err)
	}

	// Unkeyed BLAKE2b never fails to construct.
	digest, _ := blake2b.New256(nil)
	frame, _ := blake2b.New256(nil)

	logrus.WithFields(logrus.Fields{
		"function":    "runner.New",
		"stream":      d.ID().String(),
		"input":       cfg.Info.String(),
		"output":      out.String(),
		"passthrough": d.Passthrough(),
		"latency":     d.Latency(),
	}).Info("Runner ready")

	return &Runner{
		cfg:    cfg,
		d:      d,
		clock:  cfg.TimeProvider,
		digest: digest,
		frame:  frame,
		result: Result{InputInfo: cfg.Info, OutputInfo: out, Latency: d.Latency()},

		readFrame: video.ReadFrame,
	}, nil
}

// Deinterlacer returns the deinterlacer driven by the runner.
func (r *Runner) Deinterlacer() *deinterlace.Deinterlacer {
	return r.d
}

// Run reads input until EOF, MaxFrames or ctx cancellation and drains the
// deinterlacer. The result is returned even when err is non-nil.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	log := logrus.WithFields(logrus.Fields{
		"function": "Runner.Run",
		"stream":   r.d.ID().String(),
	})
	start := r.clock.Now()
	frameDur := r.cfg.Info.FrameRate.FieldDuration() * 2

	err := r.pump(ctx, frameDur)
	// Draining forgets the telecine lock.
	locked := r.d.Stats()
	if err == nil || errors.Is(err, ErrCanceled) {
		frames, drainErr := r.d.Drain()
		if werr := r.write(frames); werr != nil && err == nil {
			err = werr
		}
		if drainErr != nil && err == nil {
			err = fmt.Errorf("failed to drain: %w", drainErr)
		}
	}

	r.result.Elapsed = r.clock.Since(start)
	r.result.Stats = r.d.Stats()
	if r.result.Stats.Pattern == "" {
		r.result.Stats.Pattern = locked.Pattern
		r.result.Stats.Phase = locked.Phase
	}
	r.result.OutputInfo = r.d.OutputInfo()
	copy(r.result.Digest[:], r.digest.Sum(nil))
	r.report()

	fields := logrus.Fields{
		"frames_in":  r.result.FramesIn,
		"frames_out": r.result.FramesOut,
		"skipped":    r.result.Skipped,
		"dropped":    r.result.Stats.Dropped,
		"elapsed":    r.result.Elapsed,
		"digest":     hex.EncodeToString(r.result.Digest[:8]),
	}
	if err != nil {
		fields["error"] = err.Error()
		log.WithFields(fields).Warn("Run finished with error")
	} else {
		log.WithFields(fields).Info("Run finished")
	}

	res := r.result
	return &res, err
}

func (r *Runner) pump(ctx context.Context, frameDur time.Duration) error {
	for r.cfg.MaxFrames == 0 || r.result.FramesIn < r.cfg.MaxFrames {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
		default:
		}

		f, err := r.readFrame(r.cfg.Input, r.cfg.Info)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read frame %d: %w", r.result.FramesIn, err)
		}

		n := r.result.FramesIn
		f.PTS = time.Duration(n) * frameDur
		f.Duration = frameDur
		f.Flags = r.cfg.Cadence[n%uint64(len(r.cfg.Cadence))]
		if n == 0 {
			f.Flags |= video.FlagDiscont
		}
		r.result.FramesIn++

		frames, err := r.d.Push(f)
		if werr := r.write(frames); werr != nil {
			return werr
		}
		if errors.Is(err, video.ErrMap) {
			logrus.WithFields(logrus.Fields{
				"function": "Runner.pump",
				"frame":    n,
				"error":    err.Error(),
			}).Warn("Skipping unreadable frame")
			r.result.Skipped++
			r.report()
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to process frame %d: %w", n, err)
		}
		r.report()
	}
	return nil
}

func (r *Runner) write(frames []*video.Frame) error {
	for _, f := range frames {
		r.frame.Reset()
		if err := video.WriteFrame(io.MultiWriter(r.frame, r.digest), f); err != nil {
			return fmt.Errorf("failed to hash frame: %w", err)
		}
		if r.cfg.Output != nil {
			cw := &countingWriter{w: r.cfg.Output}
			err := video.WriteFrame(cw, f)
			r.result.BytesWritten += cw.n
			if err != nil {
				return fmt.Errorf("failed to write frame %d: %w", r.result.FramesOut, err)
			}
		}
		if r.cfg.Digests != nil {
			sum := r.frame.Sum(nil)
			if _, err := fmt.Fprintf(r.cfg.Digests, "%d %d %s\n", f.PTS, f.Duration, hex.EncodeToString(sum)); err != nil {
				return fmt.Errorf("failed to write digest: %w", err)
			}
		}
		r.result.FramesOut++
	}
	return nil
}

func (r *Runner) report() {
	if r.cfg.Progress == nil {
		return
	}
	p := Progress{
		FramesIn:  r.result.FramesIn,
		FramesOut: r.result.FramesOut,
		PTS:       time.Duration(r.result.FramesIn) * r.cfg.Info.FrameRate.FieldDuration() * 2,
		Stats:     r.d.Stats(),
	}
	select {
	case r.cfg.Progress <- p:
	default:
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
