package video

import (
	"fmt"
	"strings"
)

// PixelFormat identifies the memory layout of a raw 8-bit video frame.
type PixelFormat uint8

// Supported pixel formats. Only 8-bit-per-component layouts are handled.
const (
	FormatUnknown PixelFormat = iota
	FormatI420
	FormatYV12
	FormatY41B
	FormatY42B
	FormatY444
	FormatNV12
	FormatNV21
	FormatYUY2
	FormatYVYU
	FormatUYVY
	FormatAYUV
	FormatARGB
	FormatABGR
	FormatRGBA
	FormatBGRA
	FormatXRGB
	FormatXBGR
	FormatRGBX
	FormatBGRX
	FormatRGB
	FormatBGR
)

// Family groups pixel formats that share a plane organisation.
type Family uint8

const (
	// FamilyPlanar has one byte per sample and a separate plane per component.
	FamilyPlanar Family = iota
	// FamilySemiPlanar has a luma plane and one interleaved chroma plane.
	FamilySemiPlanar
	// FamilyPacked422 interleaves luma and subsampled chroma in a single plane.
	FamilyPacked422
	// FamilyPackedRGB interleaves 3 or 4 full-resolution components in a single plane.
	FamilyPackedRGB
)

// planeDesc describes one plane of a pixel format.
type planeDesc struct {
	wShift int // horizontal subsampling, log2
	hShift int // vertical subsampling, log2
	colors int // bytes between horizontally adjacent samples of one component
	// yAlternatesEvery is non-zero for packed 4:2:2, where luma bytes
	// alternate with chroma bytes and chroma samples are twice as far apart.
	yAlternatesEvery int
	lumaPhase        int
}

type formatDesc struct {
	name   string
	family Family
	planes []planeDesc
}

var planar420 = []planeDesc{{colors: 1}, {wShift: 1, hShift: 1, colors: 1}, {wShift: 1, hShift: 1, colors: 1}}

var formats = map[PixelFormat]formatDesc{
	FormatI420: {"I420", FamilyPlanar, planar420},
	FormatYV12: {"YV12", FamilyPlanar, planar420},
	FormatY41B: {"Y41B", FamilyPlanar, []planeDesc{{colors: 1}, {wShift: 2, colors: 1}, {wShift: 2, colors: 1}}},
	FormatY42B: {"Y42B", FamilyPlanar, []planeDesc{{colors: 1}, {wShift: 1, colors: 1}, {wShift: 1, colors: 1}}},
	FormatY444: {"Y444", FamilyPlanar, []planeDesc{{colors: 1}, {colors: 1}, {colors: 1}}},
	FormatNV12: {"NV12", FamilySemiPlanar, []planeDesc{{colors: 1}, {hShift: 1, colors: 2}}},
	FormatNV21: {"NV21", FamilySemiPlanar, []planeDesc{{colors: 1}, {hShift: 1, colors: 2}}},
	FormatYUY2: {"YUY2", FamilyPacked422, []planeDesc{{colors: 2, yAlternatesEvery: 2}}},
	FormatYVYU: {"YVYU", FamilyPacked422, []planeDesc{{colors: 2, yAlternatesEvery: 2}}},
	FormatUYVY: {"UYVY", FamilyPacked422, []planeDesc{{colors: 2, yAlternatesEvery: 2, lumaPhase: 1}}},
	FormatAYUV: {"AYUV", FamilyPackedRGB, []planeDesc{{colors: 4}}},
	FormatARGB: {"ARGB", FamilyPackedRGB, []planeDesc{{colors: 4}}},
	FormatABGR: {"ABGR", FamilyPackedRGB, []planeDesc{{colors: 4}}},
	FormatRGBA: {"RGBA", FamilyPackedRGB, []planeDesc{{colors: 4}}},
	FormatBGRA: {"BGRA", FamilyPackedRGB, []planeDesc{{colors: 4}}},
	FormatXRGB: {"xRGB", FamilyPackedRGB, []planeDesc{{colors: 4}}},
	FormatXBGR: {"xBGR", FamilyPackedRGB, []planeDesc{{colors: 4}}},
	FormatRGBX: {"RGBx", FamilyPackedRGB, []planeDesc{{colors: 4}}},
	FormatBGRX: {"BGRx", FamilyPackedRGB, []planeDesc{{colors: 4}}},
	FormatRGB:  {"RGB", FamilyPackedRGB, []planeDesc{{colors: 3}}},
	FormatBGR:  {"BGR", FamilyPackedRGB, []planeDesc{{colors: 3}}},
}

// String returns the conventional short name of the format.
func (f PixelFormat) String() string {
	if d, ok := formats[f]; ok {
		return d.name
	}
	return "unknown"
}

// Family returns the plane organisation of the format.
func (f PixelFormat) Family() Family {
	return formats[f].family
}

// Valid reports whether the format is one of the supported layouts.
func (f PixelFormat) Valid() bool {
	_, ok := formats[f]
	return ok
}

// PlaneCount returns the number of memory planes the format uses.
func (f PixelFormat) PlaneCount() int {
	return len(formats[f].planes)
}

// ParseFormat converts a format name such as "I420" or "yuy2" to a PixelFormat.
func ParseFormat(name string) (PixelFormat, error) {
	for f, d := range formats {
		if strings.EqualFold(d.name, name) {
			return f, nil
		}
	}
	return FormatUnknown, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// Formats returns every supported pixel format in declaration order.
func Formats() []PixelFormat {
	list := make([]PixelFormat, 0, len(formats))
	for f := FormatI420; f <= FormatBGR; f++ {
		list = append(list, f)
	}
	return list
}
