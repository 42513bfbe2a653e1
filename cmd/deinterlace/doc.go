// Package main is the deinterlace command.
//
// # Overview
//
// The command reads headerless raw video, one tightly packed frame after
// another, feeds it through a Deinterlacer and writes the progressive
// frames back out in the same raw layout. Each output frame can also be
// fingerprinted with BLAKE2b so two runs can be compared without keeping
// the video around.
//
// # Usage
//
// Convert a PAL capture to 50 frames per second:
//
//	deinterlace -input in.yuv -output out.yuv -width 720 -height 576
//
// Reverse 2:3 pulldown in NTSC material:
//
//	deinterlace -input film.yuv -interlace-mode mixed -framerate 30000/1001 \
//	    -locking active -cadence 'tff;tff;tff,onefield;onefield;tff'
//
// Load settings from YAML and override one of them:
//
//	deinterlace -config deinterlace.yaml -method greedyl -progress
//
// # Configuration
//
// Flags given on the command line win over the file given with -config,
// which in turn wins over the built-in defaults. A configuration file looks
// like this:
//
//	log_level: info
//	input:
//	  format: I420
//	  width: 720
//	  height: 480
//	  interlace_mode: mixed
//	  framerate: 30000/1001
//	  cadence: [tff, tff, "tff,onefield", onefield, tff]
//	deinterlace:
//	  method: yadif
//	  locking: active
//
// # Cadence
//
// Raw files carry no per-buffer metadata, so -cadence supplies it. Entries
// are separated by ';' and repeat once exhausted. Each entry is a comma
// separated list of tff, rff, onefield and interlaced, or none.
//
// # Exit Codes
//
//   - 0: the input was converted, or the run was interrupted and drained
//   - 1: configuration, I/O or processing error
//   - 2: invalid command line
package main
