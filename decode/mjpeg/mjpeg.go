/*
DESCRIPTION
  mjpeg.go implements decode.Decoder for motion-JPEG files: a concatenation
  of standalone JFIF images with no container-level timestamps. Frame times
  are synthesised from a configured frame rate, mirroring how the same
  files are served to a raw MJPEG display pipeline.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package mjpeg provides a decode.Decoder for motion-JPEG files.
package mjpeg

import (
	"fmt"
	"io"
	"os"

	"github.com/ausocean/playout/decode"
	"github.com/ausocean/playout/interval"
	"github.com/ausocean/playout/internal/codecutil"
)

const (
	markerFF  = 0xff
	markerSOI = 0xd8
	markerEOI = 0xd9
)

// frameSpan is the byte range of one JPEG image within the file, [off,
// off+n).
type frameSpan struct {
	off, n int64
}

// Decoder is a decode.Decoder for a single motion-JPEG file. It is not safe
// for concurrent use.
type Decoder struct {
	path      string
	frameRate float64

	f      *os.File
	frames []frameSpan
	cur    int
}

// New returns a Decoder for the MJPEG file at path, synthesising frame
// timestamps at frameRate frames per second. The file is opened and indexed
// lazily, on the first FileInfo, SeekBefore or NextFrame call.
func New(path string, frameRate float64) *Decoder {
	return &Decoder{path: path, frameRate: frameRate}
}

// FileInfo opens and indexes the file if necessary, then reports its static
// metadata. Width and Height are left zero: this decoder never inflates
// pixels, leaving that to the display driver's Upload.
func (d *Decoder) FileInfo() (decode.FileInfo, error) {
	if err := d.ensureIndexed(); err != nil {
		return decode.FileInfo{}, err
	}
	var duration float64
	if d.frameRate > 0 {
		duration = float64(len(d.frames)) / d.frameRate
	}
	return decode.FileInfo{
		Container: "mjpeg",
		Codec:     "mjpeg",
		FrameRate: d.frameRate,
		Duration:  duration,
	}, nil
}

// SeekBefore positions the decoder so the next NextFrame call yields the
// synthetic frame whose timestamp is the greatest one <= t. Since every
// frame in a motion-JPEG stream is a key frame, this is a plain index
// computation.
func (d *Decoder) SeekBefore(t float64) error {
	if err := d.ensureIndexed(); err != nil {
		return err
	}
	if len(d.frames) == 0 {
		d.cur = 0
		return nil
	}
	idx := int(t * d.frameRate)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(d.frames) {
		idx = len(d.frames) - 1
	}
	d.cur = idx
	return nil
}

// NextFrame returns the next frame in the file, advancing the decoder's
// position. It returns io.EOF once the last frame has been delivered.
func (d *Decoder) NextFrame() (decode.Frame, error) {
	if err := d.ensureIndexed(); err != nil {
		return decode.Frame{}, err
	}
	if d.cur >= len(d.frames) {
		return decode.Frame{}, io.EOF
	}
	sp := d.frames[d.cur]
	buf := make([]byte, sp.n)
	if _, err := d.f.ReadAt(buf, sp.off); err != nil {
		return decode.Frame{}, &decode.Error{Position: d.timeOf(d.cur), Err: fmt.Errorf("mjpeg: read frame %d: %w", d.cur, err)}
	}
	begin := d.timeOf(d.cur)
	end := d.timeOf(d.cur + 1)
	d.cur++
	return decode.Frame{
		Time:  interval.New(begin, end),
		Image: buf,
		IsKey: true,
		Kind:  "jpeg",
	}, nil
}

func (d *Decoder) timeOf(i int) float64 {
	if d.frameRate <= 0 {
		return 0
	}
	return float64(i) / d.frameRate
}

// ensureIndexed opens the file and builds the frame span index on first
// use.
func (d *Decoder) ensureIndexed() error {
	if d.f != nil {
		return nil
	}
	f, err := os.Open(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", decode.ErrNotFound, d.path)
		}
		return fmt.Errorf("mjpeg: open %s: %w", d.path, err)
	}

	frames, err := indexFrames(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("mjpeg: index %s: %w", d.path, err)
	}
	d.f = f
	d.frames = frames
	return nil
}

// indexFrames scans r once, recording the byte span of every
// SOI(0xFFD8)...EOI(0xFFD9) image it finds. It does not attempt to skip
// entropy-coded data specially; a literal 0xFFD9 inside scan data is
// exceedingly rare in practice for the baseline JFIF streams this decoder
// targets, matching the scanning tolerance of codec/h264/lex.go for its own
// start codes.
func indexFrames(r io.Reader) ([]frameSpan, error) {
	s := codecutil.NewByteScanner(r, make([]byte, 32*1024))

	var frames []frameSpan
	var prev byte
	var have bool
	var start int64 = -1

	for {
		b, err := s.ReadByte()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		if have && prev == markerFF {
			switch b {
			case markerSOI:
				start = s.Offset() - 2
			case markerEOI:
				if start >= 0 {
					frames = append(frames, frameSpan{off: start, n: s.Offset() - start})
					start = -1
				}
			}
		}
		prev = b
		have = true
	}
	return frames, nil
}
