package deinterlace

import (
	"fmt"

	"github.com/opd-ai/deinterlace/history"
	"github.com/opd-ai/deinterlace/method"
	"github.com/opd-ai/deinterlace/telecine"
	"github.com/opd-ai/deinterlace/video"
)

// Mode governs whether deinterlacing is forced, skipped or negotiated.
type Mode uint8

const (
	// ModeAuto deinterlaces interlaced input and passes progressive input
	// through unchanged.
	ModeAuto Mode = iota
	// ModeInterlaced deinterlaces every buffer, even if flagged progressive.
	ModeInterlaced
	// ModeDisabled passes every buffer through unchanged.
	ModeDisabled
	// ModeAutoStrict behaves like ModeAuto but refuses interlaced formats
	// it cannot deinterlace.
	ModeAutoStrict
)

func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeInterlaced:
		return "interlaced"
	case ModeDisabled:
		return "disabled"
	case ModeAutoStrict:
		return "auto-strict"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// ParseMode converts a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	for m := ModeAuto; m <= ModeAutoStrict; m++ {
		if m.String() == s {
			return m, nil
		}
	}
	return ModeAuto, fmt.Errorf("unknown mode %q", s)
}

// Fields is the output field-rate policy.
type Fields uint8

const (
	// FieldsAll outputs one frame per field at double the input rate.
	FieldsAll Fields = iota
	// FieldsTop outputs one frame per top field.
	FieldsTop
	// FieldsBottom outputs one frame per bottom field.
	FieldsBottom
	// FieldsAuto picks FieldsAll or FieldsTop from the downstream caps.
	FieldsAuto
)

func (f Fields) String() string {
	switch f {
	case FieldsAll:
		return "all"
	case FieldsTop:
		return "top"
	case FieldsBottom:
		return "bottom"
	case FieldsAuto:
		return "auto"
	default:
		return fmt.Sprintf("Fields(%d)", uint8(f))
	}
}

// ParseFields converts a field policy name to Fields.
func ParseFields(s string) (Fields, error) {
	for f := FieldsAll; f <= FieldsAuto; f++ {
		if f.String() == s {
			return f, nil
		}
	}
	return FieldsAll, fmt.Errorf("unknown fields policy %q", s)
}

// Allocator provides output frames.
type Allocator interface {
	Allocate(info video.Info) (*video.Frame, error)
}

// AllocatorFunc adapts a function to Allocator.
type AllocatorFunc func(info video.Info) (*video.Frame, error)

// Allocate calls f.
func (f AllocatorFunc) Allocate(info video.Info) (*video.Frame, error) {
	return f(info)
}

// DefaultAllocator allocates tightly packed frames.
var DefaultAllocator Allocator = AllocatorFunc(video.NewFrame)

// Options configures a Deinterlacer.
type Options struct {
	Mode          Mode
	Method        method.ID
	Fields        Fields
	Layout        history.Layout
	Locking       telecine.LockingMode
	IgnoreObscure bool
	DropOrphans   bool

	// Workers is the number of row bands a frame is split into. Values
	// below 2 process frames on the calling goroutine.
	Workers int

	// Allocator provides output frames. Nil selects DefaultAllocator.
	Allocator Allocator

	// Live answers whether upstream is live when Locking is auto. Nil
	// assumes a live source.
	Live telecine.LiveQuerier
}

// NewOptions returns the default configuration.
func NewOptions() *Options {
	return &Options{
		Mode:          ModeAuto,
		Method:        method.Yadif,
		Fields:        FieldsAll,
		Layout:        history.LayoutAuto,
		Locking:       telecine.LockingNone,
		IgnoreObscure: true,
		DropOrphans:   true,
		Workers:       1,
	}
}

// Validate checks that every enumerated option is in range.
func (o *Options) Validate() error {
	if o.Mode > ModeAutoStrict {
		return fmt.Errorf("%w: mode %v", ErrInvalidOption, o.Mode)
	}
	if o.Fields > FieldsAuto {
		return fmt.Errorf("%w: fields %v", ErrInvalidOption, o.Fields)
	}
	if o.Layout > history.LayoutBFF {
		return fmt.Errorf("%w: layout %v", ErrInvalidOption, o.Layout)
	}
	if o.Locking > telecine.LockingPassive {
		return fmt.Errorf("%w: locking %v", ErrInvalidOption, o.Locking)
	}
	if _, err := method.Describe(o.Method); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}
	if o.Workers < 0 {
		return fmt.Errorf("%w: workers %d", ErrInvalidOption, o.Workers)
	}
	return nil
}
