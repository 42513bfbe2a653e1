package video

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestInfo(format PixelFormat, width, height int) Info {
	return Info{
		Format:        format,
		Width:         width,
		Height:        height,
		InterlaceMode: InterlaceInterleaved,
		FrameRate:     Rational{N: 30000, D: 1001},
	}
}

func TestPlaneLayout(t *testing.T) {
	tests := []struct {
		name     string
		format   PixelFormat
		width    int
		height   int
		planes   int
		rowBytes []int
		rows     []int
		colors   []int
	}{
		{"I420", FormatI420, 7, 5, 3, []int{7, 4, 4}, []int{5, 3, 3}, []int{1, 1, 1}},
		{"Y41B", FormatY41B, 9, 4, 3, []int{9, 3, 3}, []int{4, 4, 4}, []int{1, 1, 1}},
		{"Y42B", FormatY42B, 6, 4, 3, []int{6, 3, 3}, []int{4, 4, 4}, []int{1, 1, 1}},
		{"Y444", FormatY444, 6, 4, 3, []int{6, 6, 6}, []int{4, 4, 4}, []int{1, 1, 1}},
		{"NV12", FormatNV12, 5, 4, 2, []int{5, 6}, []int{4, 2}, []int{1, 2}},
		{"YUY2", FormatYUY2, 5, 4, 1, []int{12}, []int{4}, []int{2}},
		{"RGB", FormatRGB, 5, 4, 1, []int{15}, []int{4}, []int{3}},
		{"BGRx", FormatBGRX, 5, 4, 1, []int{20}, []int{4}, []int{4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := createTestInfo(tt.format, tt.width, tt.height)
			require.Equal(t, tt.planes, info.PlaneCount())
			for p := 0; p < tt.planes; p++ {
				l := info.Plane(p)
				assert.Equal(t, tt.rowBytes[p], l.RowBytes, "plane %d row bytes", p)
				assert.Equal(t, tt.rows[p], l.Rows, "plane %d rows", p)
				assert.Equal(t, tt.colors[p], l.Colors, "plane %d colors", p)
			}
		})
	}
}

func TestSampleStridePacked422(t *testing.T) {
	yuy2 := createTestInfo(FormatYUY2, 8, 2).Plane(0)
	assert.Equal(t, 2, yuy2.SampleStride(0), "luma")
	assert.Equal(t, 4, yuy2.SampleStride(1), "chroma")
	assert.Equal(t, 4, yuy2.MaxSampleStride())

	uyvy := createTestInfo(FormatUYVY, 8, 2).Plane(0)
	assert.Equal(t, 4, uyvy.SampleStride(0), "chroma")
	assert.Equal(t, 2, uyvy.SampleStride(1), "luma")

	planar := createTestInfo(FormatI420, 8, 2).Plane(0)
	assert.Equal(t, 1, planar.SampleStride(3))
	assert.Equal(t, 1, planar.MaxSampleStride())
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("yuy2")
	require.NoError(t, err)
	assert.Equal(t, FormatYUY2, f)

	f, err = ParseFormat("BGRx")
	require.NoError(t, err)
	assert.Equal(t, FormatBGRX, f)

	_, err = ParseFormat("P010")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	for _, f := range Formats() {
		parsed, err := ParseFormat(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, parsed)
	}
}

func TestRational(t *testing.T) {
	r := Rational{N: 30000, D: 1001}
	assert.Equal(t, Rational{N: 60000, D: 1001}, r.Double())
	assert.Equal(t, Rational{N: 15000, D: 1001}, r.Half())
	assert.Equal(t, Rational{N: 24000, D: 1001}, r.Mul(4, 5))
	assert.Equal(t, Rational{N: 25, D: 1}, Rational{N: 25, D: 2}.Double())
	assert.Equal(t, 20*time.Millisecond, Rational{N: 25, D: 1}.FieldDuration())
	assert.Equal(t, time.Duration(0), Rational{}.FieldDuration())
	assert.True(t, Rational{D: 1}.IsZero())
}

func TestNewFrameAndMap(t *testing.T) {
	info := createTestInfo(FormatI420, 16, 8)
	f, err := NewFrame(info)
	require.NoError(t, err)
	require.NoError(t, f.Map())
	assert.Equal(t, NoTimestamp, f.PTS)
	assert.False(t, f.HasTimestamp())
	assert.Len(t, f.Row(1, 0), 8)
	assert.Equal(t, len(f.Row(1, 0)), cap(f.Row(1, 0)))

	f.Planes[2] = f.Planes[2][:10]
	err = f.Map()
	assert.True(t, errors.Is(err, ErrMap))

	var nilFrame *Frame
	assert.True(t, errors.Is(nilFrame.Map(), ErrMap))

	_, err = NewFrame(createTestInfo(FormatUnknown, 16, 8))
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestFrameCloneIsDeep(t *testing.T) {
	f, err := NewFrame(createTestInfo(FormatNV12, 4, 4))
	require.NoError(t, err)
	f.TimeCode = &TimeCode{FPS: Rational{N: 30, D: 1}, Frames: 3}
	f.Caption = &Caption{Type: CaptionCEA708Raw, Data: []byte{1, 2, 3}}
	f.Planes[0][0] = 9

	c := f.Clone()
	require.True(t, f.Equal(c))
	c.Planes[0][0] = 10
	c.Caption.Data[0] = 7
	c.TimeCode.Frames = 4

	assert.Equal(t, byte(9), f.Planes[0][0])
	assert.Equal(t, byte(1), f.Caption.Data[0])
	assert.Equal(t, uint(3), f.TimeCode.Frames)
	assert.False(t, f.Equal(c))
}

func TestFrameFlags(t *testing.T) {
	f := &Frame{Flags: FlagTFF | FlagRFF}
	assert.True(t, f.Flags.Has(FlagTFF))
	assert.True(t, f.Flags.Has(FlagTFF|FlagRFF))
	assert.False(t, f.Flags.Has(FlagOneField))
	assert.False(t, f.IsInterlaced())

	f.Flags |= FlagOneField
	assert.True(t, f.IsInterlaced())
}

func TestRawRoundTrip(t *testing.T) {
	info := createTestInfo(FormatY42B, 6, 4)
	src, err := NewFrame(info)
	require.NoError(t, err)
	for p := range src.Planes {
		for i := range src.Planes[p] {
			src.Planes[p][i] = byte(p*31 + i)
		}
	}

	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, src))
	require.NoError(t, WriteFrame(&buf, src))
	assert.Equal(t, 2*info.FrameSize(), buf.Len())

	for i := 0; i < 2; i++ {
		got, err := ReadFrame(&buf, info)
		require.NoError(t, err)
		assert.True(t, src.Equal(got))
	}

	_, err = ReadFrame(&buf, info)
	assert.Equal(t, io.EOF, err)

	_, err = ReadFrame(bytes.NewReader(make([]byte, info.FrameSize()-1)), info)
	assert.True(t, errors.Is(err, ErrShortRead))
}

func TestWriteFrameDropsStridePadding(t *testing.T) {
	info := createTestInfo(FormatRGB, 2, 2)
	f := &Frame{
		Info:    info,
		Planes:  [][]byte{{1, 2, 3, 4, 5, 6, 0xff, 0xff, 7, 8, 9, 10, 11, 12}},
		Strides: []int{8},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, f))
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, buf.Bytes())
}

func TestTimeCodeString(t *testing.T) {
	tc := &TimeCode{Hours: 1, Minutes: 2, Seconds: 3, Frames: 4}
	assert.Equal(t, "01:02:03:04", tc.String())
	tc.Flags |= TimeCodeDropFrame
	assert.Equal(t, "01:02:03;04", tc.String())
	assert.Nil(t, (*TimeCode)(nil).Copy())
	assert.Nil(t, (*Caption)(nil).Copy())
}

func BenchmarkWriteFrame(b *testing.B) {
	f, _ := NewFrame(createTestInfo(FormatI420, 720, 480))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = WriteFrame(io.Discard, f)
	}
}
