package method

import (
	"errors"
	"fmt"
	"strings"

	"github.com/opd-ai/deinterlace/history"
	"github.com/opd-ai/deinterlace/video"
)

// Sentinel errors returned by DeinterlaceFrame.
var (
	// ErrFieldIndex indicates the requested field is outside the history.
	ErrFieldIndex = errors.New("field index out of range")

	// ErrGeometry indicates the output frame or a history field does not
	// match the geometry of the field being deinterlaced.
	ErrGeometry = errors.New("frame geometry mismatch")

	// ErrUnknownMethod indicates an unrecognised method name or id.
	ErrUnknownMethod = errors.New("unknown deinterlace method")
)

// ID identifies a deinterlacing method.
type ID uint8

// Method ids in registry order.
const (
	TomsMoComp ID = iota
	GreedyH
	GreedyL
	VFIR
	Linear
	LinearBlend
	ScalerBob
	Weave
	WeaveTFF
	WeaveBFF
	Yadif
)

// Descriptor holds the static facts of a method.
type Descriptor struct {
	ID      ID
	Name    string
	ShortID string
	// FieldsRequired is the history depth needed before the method runs.
	FieldsRequired int
	// Latency is the number of fields older than the one being output
	// that must be kept in history.
	Latency int
}

// Method turns a window of the field history into one progressive frame.
type Method interface {
	Descriptor() Descriptor
	// Supports reports whether the method can process the pixel layout.
	Supports(info video.Info) bool
	// DeinterlaceFrame writes a full frame into out, taking the rows of
	// fields[cur] as they are and reconstructing the missing rows.
	// fields is ordered newest first.
	DeinterlaceFrame(fields []history.Field, out *video.Frame, cur int) error
}

func (id ID) String() string {
	if int(id) < len(descriptors) {
		return descriptors[id].ShortID
	}
	return fmt.Sprintf("ID(%d)", uint8(id))
}

// ParseID converts a method name to an ID. Dashes are optional, so both
// "greedy-h" and "greedyh" are accepted.
func ParseID(name string) (ID, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "")
	for _, d := range descriptors {
		if d.ShortID == key {
			return d.ID, nil
		}
	}
	return Linear, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
}
