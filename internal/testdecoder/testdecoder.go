/*
DESCRIPTION
  testdecoder.go provides a synthetic decode.Decoder for unit tests: a fixed
  or generated sequence of frames, with optional error injection for every
  SeekBefore or FileInfo call,
  so loader tests can exercise seek/scan and EOF behaviour deterministically
  without a real media file.
*/

// Package testdecoder provides a scriptable decode.Decoder fake.
package testdecoder

import (
	"fmt"
	"io"
	"sync"

	"github.com/ausocean/playout/decode"
	"github.com/ausocean/playout/interval"
)

// Decoder is a scriptable decode.Decoder: NextFrame walks Frames in order
// starting from whatever SeekBefore last positioned it at.
type Decoder struct {
	Info   decode.FileInfo
	Frames []decode.Frame

	// InfoErr, if set, is returned by every FileInfo call.
	InfoErr error

	mu      sync.Mutex
	cur     int
	seeks   int
	reads   int
	seekErr error
}

// Generate returns a Decoder with n frames, each spanning 1/fps seconds
// starting at t=0, carrying its index as Image.
func Generate(n int, fps float64) *Decoder {
	frames := make([]decode.Frame, n)
	for i := 0; i < n; i++ {
		b := float64(i) / fps
		e := float64(i+1) / fps
		frames[i] = decode.Frame{Time: interval.New(b, e), Image: i, IsKey: true, Kind: "test"}
	}
	return &Decoder{Info: decode.FileInfo{Container: "test", FrameRate: fps}, Frames: frames}
}

// FailSeeksWith makes every subsequent SeekBefore call return err.
func (d *Decoder) FailSeeksWith(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seekErr = err
}

// SeekCount reports how many SeekBefore calls have been made.
func (d *Decoder) SeekCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seeks
}

// ReadCount reports how many NextFrame calls have been made.
func (d *Decoder) ReadCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reads
}

// FileInfo implements decode.Decoder.
func (d *Decoder) FileInfo() (decode.FileInfo, error) {
	return d.Info, d.InfoErr
}

// SeekBefore implements decode.Decoder: it positions at the last frame
// whose begin time is <= t, or before the first frame if none qualifies.
func (d *Decoder) SeekBefore(t float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seeks++
	if d.seekErr != nil {
		return d.seekErr
	}
	idx := 0
	for i, f := range d.Frames {
		if f.Time.Begin <= t {
			idx = i
		} else {
			break
		}
	}
	d.cur = idx
	return nil
}

// NextFrame implements decode.Decoder.
func (d *Decoder) NextFrame() (decode.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reads++
	if d.cur >= len(d.Frames) {
		return decode.Frame{}, io.EOF
	}
	f := d.Frames[d.cur]
	d.cur++
	return f, nil
}

// ErrSentinel is a distinguishable fatal decode error for tests that
// inject a decode failure.
var ErrSentinel = fmt.Errorf("testdecoder: injected decode failure")
