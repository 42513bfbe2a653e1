package history

import (
	"fmt"

	"github.com/opd-ai/deinterlace/video"
	"github.com/sirupsen/logrus"
)

// MaxFields is the capacity of a FieldHistory.
const MaxFields = 10

// FieldHistory holds the most recent fields, newest at index 0, together
// with the buffer-state history derived from the same buffers.
type FieldHistory struct {
	fields []Field
	states StateHistory
	seq    uint64

	layout          Layout
	reverse         bool
	forceInterlaced bool
}

// NewFieldHistory creates an empty history.
func NewFieldHistory() *FieldHistory {
	return &FieldHistory{
		fields: make([]Field, 0, MaxFields),
	}
}

// SetLayout sets the field order policy for subsequent pushes.
func (h *FieldHistory) SetLayout(l Layout) {
	h.layout = l
}

// SetReverse selects reverse playback, which swaps the parity of the two
// fields of every subsequent buffer.
func (h *FieldHistory) SetReverse(reverse bool) {
	h.reverse = reverse
}

// SetForceInterlaced classifies every subsequent buffer as if the stream
// were interleaved.
func (h *FieldHistory) SetForceInterlaced(force bool) {
	h.forceInterlaced = force
}

// Push decomposes frame into one, two or three fields and prepends them.
//
// Single-field buffers yield one field, repeated-field buffers three (the
// first field is presented again after the second) and every other buffer
// two. When the history is full the oldest fields are aged out. The derived
// BufferState is pushed to the state history and returned.
func (h *FieldHistory) Push(frame *video.Frame) (BufferState, error) {
	if err := frame.Map(); err != nil {
		return BufferState{}, fmt.Errorf("failed to push buffer: %w", err)
	}

	info := frame.Info
	oneField := frame.Flags.Has(video.FlagOneField) || info.InterlaceMode == video.InterlaceAlternate
	rff := frame.Flags.Has(video.FlagRFF) && !oneField

	tff := h.topFieldFirst(frame)

	n := 2
	if oneField {
		n = 1
	} else if rff {
		n = 3
	}

	first, second := ParityBottom, ParityTop
	if tff {
		first, second = ParityTop, ParityBottom
	}
	if h.reverse && !oneField {
		first, second = second, first
	}
	parities := []Parity{first, second, first}

	mode := info.InterlaceMode
	if h.forceInterlaced {
		mode = video.InterlaceInterleaved
	}
	state := BufferState{
		State:     Classify(mode, rff, oneField, tff, frame.IsInterlaced()),
		Timestamp: frame.PTS,
		Duration:  frame.Duration,
	}

	h.seq++
	tc := frame.TimeCode.Copy()
	if tc != nil {
		tc.Flags &^= video.TimeCodeInterlaced
	}

	if overflow := len(h.fields) + n - MaxFields; overflow > 0 {
		logrus.WithFields(logrus.Fields{
			"function": "FieldHistory.Push",
			"fields":   len(h.fields),
			"dropped":  overflow,
		}).Warn("Field history full, aging out oldest fields")
		h.fields = h.fields[:len(h.fields)-overflow]
	}

	added := make([]Field, n)
	for i := 0; i < n; i++ {
		added[n-1-i] = Field{
			Frame:    frame,
			Parity:   parities[i],
			Seq:      h.seq,
			Index:    i,
			Count:    n,
			State:    state.State,
			Mode:     mode,
			TimeCode: tc.Copy(),
			Caption:  frame.Caption.Copy(),
		}
	}
	h.fields = append(added, h.fields...)

	h.states.Push(state)

	logrus.WithFields(logrus.Fields{
		"function": "FieldHistory.Push",
		"seq":      h.seq,
		"fields":   n,
		"tff":      tff,
		"state":    state.State,
		"pts":      frame.PTS,
		"history":  len(h.fields),
	}).Debug("Pushed buffer into field history")

	return state, nil
}

func (h *FieldHistory) topFieldFirst(frame *video.Frame) bool {
	switch h.layout {
	case LayoutTFF:
		return true
	case LayoutBFF:
		return false
	}
	if frame.Info.IsInterlaced() {
		return frame.Flags.Has(video.FlagTFF)
	}
	logrus.WithFields(logrus.Fields{
		"function": "FieldHistory.Push",
		"mode":     frame.Info.InterlaceMode,
	}).Warn("Can't detect field layout, assuming top field first")
	return true
}

// PopOldest removes and returns the oldest field. Popping an empty history
// is a bookkeeping bug and panics.
func (h *FieldHistory) PopOldest() Field {
	if len(h.fields) == 0 {
		panic("history: pop from empty field history")
	}
	last := len(h.fields) - 1
	f := h.fields[last]
	h.fields[last] = Field{}
	h.fields = h.fields[:last]
	return f
}

// CompletesBuffer reports whether popping f consumed the last field of its
// buffer.
func (h *FieldHistory) CompletesBuffer(f Field) bool {
	return len(h.fields) == 0 || !h.fields[len(h.fields)-1].SameBuffer(f)
}

// Len returns the number of fields held.
func (h *FieldHistory) Len() int {
	return len(h.fields)
}

// Buffers returns the number of distinct buffers owning the held fields.
// The oldest of them sits at that count minus one in the state history.
func (h *FieldHistory) Buffers() int {
	n := 0
	for i, f := range h.fields {
		if i == 0 || !f.SameBuffer(h.fields[i-1]) {
			n++
		}
	}
	return n
}

// At returns the field i positions back from the newest.
func (h *FieldHistory) At(i int) Field {
	return h.fields[i]
}

// Oldest returns the oldest field without removing it.
func (h *FieldHistory) Oldest() Field {
	return h.fields[len(h.fields)-1]
}

// Fields returns the held fields, newest first. The slice is only valid
// until the next Push or PopOldest.
func (h *FieldHistory) Fields() []Field {
	return h.fields
}

// States returns the buffer-state history fed by Push.
func (h *FieldHistory) States() *StateHistory {
	return &h.states
}

// Clear drops every field and buffer state.
func (h *FieldHistory) Clear() {
	for i := range h.fields {
		h.fields[i] = Field{}
	}
	h.fields = h.fields[:0]
	h.states.Clear()
}
