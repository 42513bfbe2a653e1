package deinterlace

import (
	"testing"
	"time"

	"github.com/opd-ai/deinterlace/method"
	"github.com/opd-ai/deinterlace/video"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcceptCaps(t *testing.T) {
	progressive := testInfo(video.FormatI420, video.InterlaceProgressive)
	interleaved := testInfo(video.FormatI420, video.InterlaceInterleaved)
	unknown := testInfo(video.FormatUnknown, video.InterlaceInterleaved)

	tests := []struct {
		name string
		mode Mode
		info video.Info
		want bool
	}{
		{"auto progressive", ModeAuto, progressive, true},
		{"auto interleaved", ModeAuto, interleaved, true},
		{"auto unknown format", ModeAuto, unknown, false},
		{"disabled progressive", ModeDisabled, progressive, true},
		{"disabled interleaved", ModeDisabled, interleaved, false},
		{"interlaced progressive", ModeInterlaced, progressive, true},
		{"interlaced interleaved", ModeInterlaced, interleaved, true},
		{"strict interleaved", ModeAutoStrict, interleaved, true},
		{"strict unknown format", ModeAutoStrict, unknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := NewOptions()
			opts.Mode = tt.mode
			d, err := New(opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.AcceptCaps(tt.info))
		})
	}
}

func TestSetCapsNegotiation(t *testing.T) {
	interleaved := testInfo(video.FormatI420, video.InterlaceInterleaved)
	progressive := testInfo(video.FormatI420, video.InterlaceProgressive)
	unknown := testInfo(video.FormatUnknown, video.InterlaceInterleaved)

	tests := []struct {
		name            string
		mode            Mode
		fields          Fields
		info            video.Info
		downstream      *Caps
		wantErr         error
		wantPassthrough bool
		wantFields      Fields
		wantRate        video.Rational
	}{
		{
			name: "auto interleaved doubles rate",
			mode: ModeAuto, fields: FieldsAll, info: interleaved,
			wantFields: FieldsAll, wantRate: video.Rational{N: 50, D: 1},
		},
		{
			name: "auto progressive passes through",
			mode: ModeAuto, fields: FieldsAll, info: progressive,
			wantPassthrough: true, wantFields: FieldsAll, wantRate: testRate,
		},
		{
			name: "disabled interleaved passes through",
			mode: ModeDisabled, fields: FieldsAll, info: interleaved,
			wantPassthrough: true, wantFields: FieldsAll, wantRate: testRate,
		},
		{
			name: "interlaced mode deinterlaces progressive input",
			mode: ModeInterlaced, fields: FieldsAll, info: progressive,
			wantFields: FieldsAll, wantRate: video.Rational{N: 50, D: 1},
		},
		{
			name: "auto unsupported passes through",
			mode: ModeAuto, fields: FieldsAll, info: unknown,
			wantPassthrough: true, wantFields: FieldsAll, wantRate: testRate,
		},
		{
			name: "strict unsupported fails",
			mode: ModeAutoStrict, fields: FieldsAll, info: unknown,
			wantErr: ErrNegotiation,
		},
		{
			name: "interlaced mode unsupported fails",
			mode: ModeInterlaced, fields: FieldsAll, info: unknown,
			wantErr: ErrNegotiation,
		},
		{
			name: "fields auto without downstream",
			mode: ModeAuto, fields: FieldsAuto, info: interleaved,
			wantFields: FieldsAll, wantRate: video.Rational{N: 50, D: 1},
		},
		{
			name: "fields auto picks top for single rate downstream",
			mode: ModeAuto, fields: FieldsAuto, info: interleaved,
			downstream: &Caps{FrameRates: []video.Rational{{N: 25, D: 1}}},
			wantFields: FieldsTop, wantRate: testRate,
		},
		{
			name: "fields auto picks all for double rate downstream",
			mode: ModeAuto, fields: FieldsAuto, info: interleaved,
			downstream: &Caps{FrameRates: []video.Rational{{N: 100, D: 2}}},
			wantFields: FieldsAll, wantRate: video.Rational{N: 50, D: 1},
		},
		{
			name: "fields auto with incompatible downstream",
			mode: ModeAuto, fields: FieldsAuto, info: interleaved,
			downstream: &Caps{FrameRates: []video.Rational{{N: 30, D: 1}}},
			wantErr:    ErrNegotiation,
		},
		{
			name: "interleaved-only downstream passes through",
			mode: ModeAuto, fields: FieldsAll, info: interleaved,
			downstream:      &Caps{InterlaceModes: []video.InterlaceMode{video.InterlaceInterleaved}},
			wantPassthrough: true, wantFields: FieldsAll, wantRate: testRate,
		},
		{
			name: "bottom fields keep rate",
			mode: ModeAuto, fields: FieldsBottom, info: interleaved,
			wantFields: FieldsBottom, wantRate: testRate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := NewOptions()
			opts.Mode = tt.mode
			opts.Fields = tt.fields
			d, err := New(opts)
			require.NoError(t, err)

			out, err := d.SetCaps(tt.info, tt.downstream)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				_, err = d.Push(createFrame(t, interleaved, 0, video.FlagTFF, 0))
				assert.ErrorIs(t, err, ErrNotNegotiated)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPassthrough, d.Passthrough())
			assert.Equal(t, tt.wantFields, d.Fields())
			assert.Equal(t, tt.wantRate, out.FrameRate)
			assert.Equal(t, out, d.OutputInfo())
			if !tt.wantPassthrough {
				assert.Equal(t, video.InterlaceProgressive, out.InterlaceMode)
			}
		})
	}
}

func TestSetCapsSameCapsIsNoop(t *testing.T) {
	info := testInfo(video.FormatI420, video.InterlaceInterleaved)
	d := newTestDeinterlacer(t, info, nil)

	_, err := d.Push(createFrame(t, info, 0, video.FlagTFF, 0))
	require.NoError(t, err)
	require.Equal(t, 2, d.history.Len())

	out, err := d.SetCaps(info, nil)
	require.NoError(t, err)
	assert.Equal(t, d.OutputInfo(), out)
	assert.Equal(t, 2, d.history.Len(), "same caps keep held fields")
}

func TestSetCapsChangeDrainsHistory(t *testing.T) {
	info := testInfo(video.FormatI420, video.InterlaceInterleaved)
	d := newTestDeinterlacer(t, info, nil)

	_, err := d.Push(createFrame(t, info, 0, video.FlagTFF, 0))
	require.NoError(t, err)

	changed := info
	changed.FrameRate = video.Rational{N: 30000, D: 1001}
	out, err := d.SetCaps(changed, nil)
	require.NoError(t, err)
	assert.Equal(t, video.Rational{N: 60000, D: 1001}, out.FrameRate)
	assert.Zero(t, d.history.Len())

	pending, err := d.Drain()
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{0, testFieldDuration}, timestamps(pending))
}

func TestNegotiationSelectsSupportingMethod(t *testing.T) {
	info := testInfo(video.FormatBGRX, video.InterlaceInterleaved)
	d := newTestDeinterlacer(t, info, func(o *Options) {
		o.Method = method.TomsMoComp
	})
	assert.False(t, d.Passthrough())
	assert.NotEqual(t, method.TomsMoComp, d.methodFor(method.TomsMoComp).Descriptor().ID)
}

func TestCapsAccepts(t *testing.T) {
	info := testInfo(video.FormatI420, video.InterlaceProgressive)

	var nilCaps *Caps
	assert.True(t, nilCaps.Accepts(info))
	assert.True(t, (&Caps{}).Accepts(info))
	assert.True(t, (&Caps{Formats: []video.PixelFormat{video.FormatYV12, video.FormatI420}}).Accepts(info))
	assert.False(t, (&Caps{Formats: []video.PixelFormat{video.FormatYUY2}}).Accepts(info))
	assert.False(t, (&Caps{InterlaceModes: []video.InterlaceMode{video.InterlaceMixed}}).Accepts(info))
	assert.True(t, (&Caps{FrameRates: []video.Rational{{N: 50, D: 2}}}).Accepts(info))
	assert.False(t, (&Caps{FrameRates: []video.Rational{{N: 50, D: 1}}}).Accepts(info))
}
