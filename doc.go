// Package deinterlace converts interlaced and telecined raw video into
// progressive frames.
//
// A [Deinterlacer] is a synchronous transform: negotiate the input with
// [Deinterlacer.SetCaps], then hand it buffers with [Deinterlacer.Push]
// and collect the frames each call returns. At end of stream
// [Deinterlacer.Drain] produces whatever the held fields still allow.
//
// # Getting Started
//
//	opts := deinterlace.NewOptions()
//	opts.Method = method.Yadif
//	opts.Fields = deinterlace.FieldsAll
//
//	d, err := deinterlace.New(opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	info := video.Info{
//	    Format:        video.FormatI420,
//	    Width:         720,
//	    Height:        576,
//	    InterlaceMode: video.InterlaceInterleaved,
//	    FrameRate:     video.Rational{N: 25, D: 1},
//	}
//	if _, err := d.SetCaps(info, nil); err != nil {
//	    log.Fatal(err)
//	}
//
//	for frame := range input {
//	    frames, err := d.Push(frame)
//	    if err != nil {
//	        log.Println(err)
//	        continue
//	    }
//	    for _, f := range frames {
//	        emit(f)
//	    }
//	}
//	frames, _ := d.Drain()
//
// # Modes and Field Policies
//
// [ModeAuto] deinterlaces interlaced input and forwards progressive input
// untouched. [ModeInterlaced] deinterlaces everything, [ModeDisabled]
// nothing, and [ModeAutoStrict] refuses interlaced input no method can
// process.
//
// [FieldsAll] produces one frame per field at twice the input rate.
// [FieldsTop] and [FieldsBottom] keep the input rate by discarding the
// other field, and [FieldsAuto] chooses between all and top from the
// downstream [Caps].
//
// # Telecine
//
// With a locking mode other than none, the buffer-state history is
// matched against the pulldown cadences of package telecine. Once locked,
// fields belonging to one film frame are woven back together and output
// timestamps are projected at the film rate instead of being deinterlaced.
//
// # Quality of Service
//
// [Deinterlacer.UpdateQoS] records how late downstream is running. Frames
// whose timestamp is already behind the earliest acceptable time are
// dropped without running the method; [Deinterlacer.Stats] counts them.
package deinterlace
