/*
DESCRIPTION
  loader.go implements the per-file asynchronous frame loader: it maintains
  a cache of decoded frames covering the current "wanted" interval set,
  reusing and evicting decoder instances as that set moves, and reports
  EOF/error state back to the script runner.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package loader implements the per-file asynchronous frame loader (C3):
// it keeps a cache of decoded frames covering a requested interval set,
// managing decoder instances with reuse, eviction, and a seek-vs-scan
// heuristic.
package loader

import (
	"io"
	"math"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/ausocean/playout/clock"
	"github.com/ausocean/playout/decode"
	"github.com/ausocean/playout/display"
	"github.com/ausocean/playout/interval"
	"github.com/ausocean/utils/logging"
)

// frameSlackEpsilon is the amount by which a kept frame's source time is
// padded so that it falls strictly inside the half-open "keep" interval
// cache maintenance builds around it.
const frameSlackEpsilon = 1e-9

// Request is the current demand placed on a Loader: the set_request
// argument of the spec's frame loader contract.
type Request struct {
	// Wanted is the interval set of source times the runner wants decoded.
	Wanted interval.Set

	// DecoderIdleTime is how long (seconds) an unassigned decoder slot may
	// sit idle before it is evicted.
	DecoderIdleTime float64

	// SeekScanTime is the floor (seconds) below which the loader prefers a
	// forward scan over a fresh seek; see the seek-vs-scan heuristic.
	SeekScanTime float64

	// Notify, if non-nil, is raised whenever the worker makes progress
	// while servicing this request.
	Notify *clock.Flag
}

// FrameEntry is one decoded frame held in a LoadedFrames cache, keyed by
// its source-time presentation timestamp.
type FrameEntry struct {
	Time  float64
	Image display.ImageHandle
}

// LoadedFrames is a Loader's cache snapshot: the coverage interval set, the
// decoded frames within it, and the most recent EOF/error observations.
type LoadedFrames struct {
	Coverage interval.Set
	Frames   []FrameEntry
	EOF      *float64
	Error    *decode.Error
}

// frameIndex returns the index of the first frame with Time >= t.
func (lf *LoadedFrames) frameIndex(t float64) int {
	return sort.Search(len(lf.Frames), func(i int) bool { return lf.Frames[i].Time >= t })
}

// frameBefore returns the time of the greatest frame with Time <= t.
func (lf *LoadedFrames) frameBefore(t float64) (float64, bool) {
	i := lf.frameIndex(t)
	if i < len(lf.Frames) && lf.Frames[i].Time == t {
		return lf.Frames[i].Time, true
	}
	if i == 0 {
		return 0, false
	}
	return lf.Frames[i-1].Time, true
}

// frameAtOrAfter returns the time of the smallest frame with Time >= t.
func (lf *LoadedFrames) frameAtOrAfter(t float64) (float64, bool) {
	i := lf.frameIndex(t)
	if i == len(lf.Frames) {
		return 0, false
	}
	return lf.Frames[i].Time, true
}

// NearestAtOrBefore returns the frame with the greatest Time <= t, used by
// the runner to pick a frame to present at a given source time.
func (lf *LoadedFrames) NearestAtOrBefore(t float64) (display.ImageHandle, float64, bool) {
	i := lf.frameIndex(t)
	if i < len(lf.Frames) && lf.Frames[i].Time == t {
		return lf.Frames[i].Image, lf.Frames[i].Time, true
	}
	if i == 0 {
		return nil, 0, false
	}
	e := lf.Frames[i-1]
	return e.Image, e.Time, true
}

// insert adds or replaces the frame at t, keeping Frames sorted by Time.
func (lf *LoadedFrames) insert(t float64, img display.ImageHandle) {
	i := lf.frameIndex(t)
	if i < len(lf.Frames) && lf.Frames[i].Time == t {
		lf.Frames[i].Image = img
		return
	}
	lf.Frames = append(lf.Frames, FrameEntry{})
	copy(lf.Frames[i+1:], lf.Frames[i:])
	lf.Frames[i] = FrameEntry{Time: t, Image: img}
}

// prune removes every frame entry whose time falls within r.
func (lf *LoadedFrames) prune(r interval.Interval) {
	if r.Empty() {
		return
	}
	lo := lf.frameIndex(r.Begin)
	hi := lf.frameIndex(r.End)
	if lo >= hi {
		return
	}
	lf.Frames = append(lf.Frames[:lo], lf.Frames[hi:]...)
}

// clone returns a snapshot copy of lf, safe to hand to a caller outside the
// loader's lock.
func (lf *LoadedFrames) clone() LoadedFrames {
	out := LoadedFrames{Coverage: lf.Coverage.Clone(), Error: lf.Error}
	if lf.EOF != nil {
		eof := *lf.EOF
		out.EOF = &eof
	}
	out.Frames = make([]FrameEntry, len(lf.Frames))
	copy(out.Frames, lf.Frames)
	return out
}

// Loader is the per-file asynchronous frame loader.
type Loader struct {
	log        logging.Logger
	clock      clock.Clock
	newDecoder func() decode.Decoder
	display    display.Driver

	wake *clock.Flag

	mu       sync.Mutex
	request  Request
	loaded   LoadedFrames
	slots    []*decoderSlot
	shutdown bool

	infoOnce sync.Once
	infoDec  decode.Decoder
	info     decode.FileInfo
	infoErr  error

	wg sync.WaitGroup
}

// New returns a Loader that creates decoders via newDecoder and uploads
// frames through disp. log may be nil, in which case logging is a no-op.
func New(log logging.Logger, clk clock.Clock, newDecoder func() decode.Decoder, disp display.Driver) *Loader {
	if log == nil {
		log = logging.New(-1, nil, false)
	}
	return &Loader{
		log:        log,
		clock:      clk,
		newDecoder: newDecoder,
		display:    disp,
		wake:       clock.NewFlag(clk),
	}
}

// Start launches the loader's background worker goroutine.
func (l *Loader) Start() {
	l.wg.Add(1)
	go l.run()
}

// Stop signals the worker to exit and waits for it to do so.
func (l *Loader) Stop() {
	l.mu.Lock()
	l.shutdown = true
	l.mu.Unlock()
	l.wake.Set()
	l.wg.Wait()

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, sl := range l.slots {
		sl.state = slotEvicted
	}
	l.slots = nil
}

// SetRequest atomically replaces the loader's current Request, runs cache
// maintenance against the new wanted set, and wakes the worker if the
// wanted set changed.
func (l *Loader) SetRequest(req Request) {
	l.mu.Lock()
	changed := !req.Wanted.Equal(l.request.Wanted)
	l.request = req
	l.maintainCache()
	l.mu.Unlock()

	if changed {
		l.wake.Set()
	}
}

// Loaded returns a cheap snapshot of the loader's current cache.
func (l *Loader) Loaded() LoadedFrames {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded.clone()
}

// FileInfo opens a decoder if necessary and returns the file's static
// metadata, caching the result for subsequent calls.
func (l *Loader) FileInfo() (decode.FileInfo, error) {
	l.infoOnce.Do(func() {
		l.infoDec = l.newDecoder()
		l.info, l.infoErr = l.infoDec.FileInfo()
		if l.infoErr != nil {
			l.infoErr = errors.Wrap(l.infoErr, "loader: file_info")
		}
	})
	return l.info, l.infoErr
}

// maintainCache deletes cached frames and coverage that fall outside the
// current wanted set, while retaining one frame of slack on each side of
// every wanted interval. Must be called with l.mu held.
func (l *Loader) maintainCache() {
	var keep interval.Set
	for _, want := range l.request.Wanted.Intervals() {
		lo := want.Begin
		if t, ok := l.loaded.frameBefore(want.Begin); ok && t < lo {
			lo = t
		}
		hi := want.End
		if t, ok := l.loaded.frameAtOrAfter(want.End); ok {
			if c := t + frameSlackEpsilon; c > hi {
				hi = c
			}
		}
		keep.Insert(interval.New(lo, hi))
	}

	toErase := l.loaded.Coverage.Clone()
	for _, k := range keep.Intervals() {
		toErase.Erase(k)
	}
	for _, e := range toErase.Intervals() {
		l.loaded.Coverage.Erase(e)
		l.loaded.prune(e)
	}
}

// toLoad computes wanted - coverage - [eof, +inf), with any residual
// negative-time portion dropped.
func (l *Loader) toLoad() []interval.Interval {
	s := l.request.Wanted.Clone()
	s.Subtract(l.loaded.Coverage)
	if l.loaded.EOF != nil {
		s.Erase(interval.New(*l.loaded.EOF, math.Inf(1)))
	}
	s.Erase(interval.New(math.Inf(-1), 0))
	return s.Intervals()
}

// run is the loader's background worker loop.
func (l *Loader) run() {
	defer l.wg.Done()
	for {
		l.mu.Lock()
		if l.shutdown {
			l.mu.Unlock()
			return
		}

		toLoad := l.toLoad()
		assignments, used := assignSlots(toLoad, &l.slots)
		l.slots = evictIdle(l.slots, used, l.clock.Seconds(), l.request.DecoderIdleTime)

		if len(assignments) == 0 {
			l.mu.Unlock()
			l.wake.Wait()
			continue
		}
		seekScanTime := l.request.SeekScanTime
		notify := l.request.Notify
		l.mu.Unlock()

		progressed := false
		for _, a := range assignments {
			if l.service(a, seekScanTime) {
				progressed = true
			}
			l.mu.Lock()
			if l.shutdown {
				l.mu.Unlock()
				return
			}
			l.mu.Unlock()
		}
		if progressed && notify != nil {
			notify.Set()
		}
	}
}

// service performs the decode work for one assignment: lazily opening the
// decoder, applying the seek-vs-scan heuristic, reading the next frame, and
// recording the outcome into the loader's cache. It reports whether any
// cache-visible progress was made.
func (l *Loader) service(a assignment, seekScanTime float64) bool {
	sl := a.slot
	if sl.decoder == nil {
		sl.decoder = l.newDecoder()
	}

	cutoff := a.want.Begin - math.Max(seekScanTime, 2*sl.backtrack)
	if sl.position < cutoff || sl.position >= a.want.End {
		sl.state = slotSeeking
		if err := sl.decoder.SeekBefore(a.want.Begin); err != nil {
			l.log.Warning("loader: seek failed", "error", err.Error())
			l.mu.Lock()
			l.loaded.Error = &decode.Error{Position: sl.position, Err: err}
			l.lowerEOF(sl.position)
			l.mu.Unlock()
			return false
		}
		sl.position = a.want.Begin
		sl.backtrack = 0
	}

	sl.state = slotReading
	frame, err := sl.decoder.NextFrame()

	l.mu.Lock()
	defer l.mu.Unlock()
	defer func() { sl.lastUse = l.clock.Seconds() }()

	if err != nil {
		if errors.Is(err, io.EOF) {
			l.lowerEOF(sl.position)
			return false
		}
		l.log.Error("loader: decode error", "error", err.Error(), "position", sl.position)
		l.loaded.Error = &decode.Error{Position: sl.position, Err: err}
		l.lowerEOF(sl.position)
		return false
	}

	if bt := sl.position - frame.Time.Begin; bt > sl.backtrack {
		sl.backtrack = bt
	}

	progressed := false
	if overlapsWanted(l.request.Wanted, frame.Time) {
		handle, uerr := l.display.Upload(frame.Image)
		if uerr != nil {
			l.log.Error("loader: upload failed", "error", uerr.Error())
		} else {
			l.loaded.insert(frame.Time.Begin, handle)
			begin := math.Min(sl.position, frame.Time.Begin)
			l.loaded.Coverage.Insert(interval.New(begin, frame.Time.End))
			progressed = true
		}
	}
	sl.position = frame.Time.End
	return progressed
}

// lowerEOF records pos as the loader's EOF position if it is lower than
// (or the first) observed EOF.
func (l *Loader) lowerEOF(pos float64) {
	if l.loaded.EOF == nil || pos < *l.loaded.EOF {
		eof := pos
		l.loaded.EOF = &eof
	}
}

// overlapsWanted reports whether iv overlaps any interval of wanted.
func overlapsWanted(wanted interval.Set, iv interval.Interval) bool {
	r, ok := wanted.OverlapBegin(iv.Begin)
	return ok && r.Overlaps(iv)
}
