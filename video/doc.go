// Package video describes raw 8-bit video frames for the deinterlacer.
//
// A Frame owns one byte slice per plane plus a stride per plane. The Info
// attached to a frame determines how many planes exist, how many rows each
// plane has, and how far apart horizontally adjacent samples of the same
// component are (PlaneLayout.Colors). Packed 4:2:2 layouts such as YUY2 and
// UYVY additionally alternate luma and chroma bytes, which PlaneLayout
// models with YAlternatesEvery and LumaPhase.
//
// Supported families:
//
//	planar       I420 YV12 Y41B Y42B Y444
//	semi-planar  NV12 NV21
//	packed 4:2:2 YUY2 YVYU UYVY
//	packed RGB   AYUV ARGB ABGR RGBA BGRA xRGB xBGR RGBx BGRx RGB BGR
//
// Frames carry per-buffer interlacing flags (FlagInterlaced, FlagTFF,
// FlagRFF, FlagOneField) and optional SMPTE time code and closed caption
// metadata, which the deinterlacer propagates to its output.
package video
