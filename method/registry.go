package method

import (
	"fmt"

	"github.com/opd-ai/deinterlace/video"
	"github.com/sirupsen/logrus"
)

var descriptors = []Descriptor{
	TomsMoComp:  {ID: TomsMoComp, Name: "Motion Adaptive: Motion Search", ShortID: "tomsmocomp", FieldsRequired: 2, Latency: 1},
	GreedyH:     {ID: GreedyH, Name: "Motion Adaptive: Advanced Detection", ShortID: "greedyh", FieldsRequired: 3, Latency: 1},
	GreedyL:     {ID: GreedyL, Name: "Motion Adaptive: Simple Detection", ShortID: "greedyl", FieldsRequired: 3, Latency: 1},
	VFIR:        {ID: VFIR, Name: "Blur Vertical", ShortID: "vfir", FieldsRequired: 2, Latency: 1},
	Linear:      {ID: Linear, Name: "Linear", ShortID: "linear", FieldsRequired: 1, Latency: 0},
	LinearBlend: {ID: LinearBlend, Name: "Blur: Temporal", ShortID: "linearblend", FieldsRequired: 2, Latency: 1},
	ScalerBob:   {ID: ScalerBob, Name: "Double lines", ShortID: "scalerbob", FieldsRequired: 1, Latency: 0},
	Weave:       {ID: Weave, Name: "Weave", ShortID: "weave", FieldsRequired: 2, Latency: 1},
	WeaveTFF:    {ID: WeaveTFF, Name: "Progressive: Top Field First", ShortID: "weavetff", FieldsRequired: 2, Latency: 1},
	WeaveBFF:    {ID: WeaveBFF, Name: "Progressive: Bottom Field First", ShortID: "weavebff", FieldsRequired: 2, Latency: 1},
	Yadif:       {ID: Yadif, Name: "YADIF Adaptive Deinterlacer", ShortID: "yadif", FieldsRequired: 5, Latency: 2},
}

// IDs returns every method id in registry order.
func IDs() []ID {
	ids := make([]ID, len(descriptors))
	for i, d := range descriptors {
		ids[i] = d.ID
	}
	return ids
}

// Describe returns the descriptor of id.
func Describe(id ID) (Descriptor, error) {
	if int(id) >= len(descriptors) {
		return Descriptor{}, fmt.Errorf("%w: %d", ErrUnknownMethod, id)
	}
	return descriptors[id], nil
}

// New constructs the method identified by id.
func New(id ID) (Method, error) {
	switch id {
	case TomsMoComp:
		return newTomsMoComp(), nil
	case GreedyH:
		return newGreedyH(), nil
	case GreedyL:
		return newGreedyL(), nil
	case VFIR:
		return newVFIR(), nil
	case Linear:
		return newLinear(), nil
	case LinearBlend:
		return newLinearBlend(), nil
	case ScalerBob:
		return newScalerBob(), nil
	case Weave, WeaveTFF, WeaveBFF:
		return newWeave(id), nil
	case Yadif:
		return newYadif(), nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownMethod, id)
}

// Select constructs id, or the first method in registry order that
// supports info when id does not.
func Select(id ID, info video.Info) (Method, error) {
	m, err := New(id)
	if err != nil {
		return nil, err
	}
	if m.Supports(info) {
		return m, nil
	}
	for _, other := range IDs() {
		fallback, _ := New(other)
		if fallback.Supports(info) {
			logrus.WithFields(logrus.Fields{
				"function":  "Select",
				"requested": id,
				"selected":  other,
				"format":    info.Format,
			}).Warn("Method does not support format, falling back")
			return fallback, nil
		}
	}
	return nil, fmt.Errorf("no method supports format %v", info.Format)
}

// SetWorkers sets band parallelism on methods built on SimpleMethod and
// is a no-op for any other Method.
func SetWorkers(m Method, workers int) {
	if s, ok := m.(*SimpleMethod); ok {
		s.Workers = workers
	}
}
