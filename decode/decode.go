/*
DESCRIPTION
  decode.go defines the media decoder capability interface the frame loader
  depends on. The concrete decoder is an out-of-scope external collaborator;
  this package defines only the contract, plus the value types passed across
  it, and is implemented for real media by decode/mjpeg and for tests by
  internal/testdecoder.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package decode defines the media decoder interface consumed by the frame
// loader: an opaque source of timestamped frames supporting "seek before t".
package decode

import (
	"errors"
	"fmt"

	"github.com/ausocean/playout/interval"
)

// ErrNotFound is returned by a Decoder's FileInfo (or by whatever opens a
// Decoder for a given name) when the referenced media file does not exist.
// It is surfaced by the runner as a typed error so an HTTP control surface
// (out of scope here) can answer 404.
var ErrNotFound = errors.New("decode: media file not found")

// Image is the opaque per-frame payload produced by a Decoder. Its concrete
// type is decided by the Decoder implementation (decode/mjpeg produces raw
// encoded JPEG bytes); only a display.Driver's Upload needs to understand
// it.
type Image interface{}

// Frame is a single decoded frame: Time.Begin is the frame's presentation
// timestamp in source time, Time.End-Time.Begin its duration.
type Frame struct {
	Time      interval.Interval
	Image     Image
	IsCorrupt bool
	IsKey     bool
	Kind      string
}

// FileInfo holds static metadata about a media file, as reported by a
// Decoder once opened.
type FileInfo struct {
	Container   string
	Codec       string
	PixelFormat string

	// Width and Height are zero when unknown.
	Width, Height int

	// FrameRate, Duration and BitRate are zero when unknown.
	FrameRate float64
	Duration  float64
	BitRate   int
}

// Decoder is the capability interface the frame loader (loader.Loader)
// depends on: an opaque, seekable source of timestamped frames. A Decoder is
// owned exclusively by one loader's background worker; none of its methods
// need be safe for concurrent use by multiple goroutines.
type Decoder interface {
	// FileInfo opens the underlying media if necessary and returns its
	// static metadata.
	FileInfo() (FileInfo, error)

	// SeekBefore positions the decoder such that the next NextFrame call
	// yields a key-frame at a time <= t.
	SeekBefore(t float64) error

	// NextFrame returns the next decoded frame. It returns io.EOF (wrapped
	// or not) when no further frames are available; any other non-nil error
	// is a fatal decode error for the current position.
	NextFrame() (Frame, error)
}

// Error describes a fatal decode error captured against a source-time
// position, recorded in loader.LoadedFrames.Error. It is treated as an EOF
// at Position to avoid the loader hot-looping against an unrecoverable
// decoder state.
type Error struct {
	Position float64
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("decode: error at position %g: %v", e.Position, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
