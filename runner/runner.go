/*
DESCRIPTION
  runner.go implements the script runner: a periodic tick that evaluates
  the current script, derives per-file wanted interval sets and per-screen
  timelines, and steers the frame loaders and frame players accordingly.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package runner implements the script runner (C5): it orchestrates the
// frame loaders and frame players from the current script.
package runner

import (
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/ausocean/playout/bezier"
	"github.com/ausocean/playout/clock"
	"github.com/ausocean/playout/decode"
	"github.com/ausocean/playout/display"
	"github.com/ausocean/playout/interval"
	"github.com/ausocean/playout/loader"
	"github.com/ausocean/playout/player"
	"github.com/ausocean/playout/script"
	"github.com/ausocean/utils/logging"
)

// fileRetention is how long (seconds) a loader is kept alive after its file
// stops being referenced by the script, to absorb brief gaps without
// repeatedly tearing down and recreating a decoder.
const fileRetention = 2.0

// loaderState bundles a loader with the bookkeeping the runner needs to
// decide when to drop it.
type loaderState struct {
	loader       *loader.Loader
	lastReferenced float64
}

// Runner is the script runner.
type Runner struct {
	cfg        Config
	clk        clock.Clock
	disp       display.Driver
	newDecoder func(file string) decode.Decoder
	log        logging.Logger

	screens []display.Screen

	mu       sync.Mutex
	scr      *script.Script
	loaders  map[string]*loaderState
	players  map[string]*player.Player
	lastP    float64
	shutdown bool

	wg sync.WaitGroup
}

// New constructs a Runner. It enumerates disp's screens immediately;
// failure to do so is fatal, per the spec's error-handling design.
func New(cfg Config, clk clock.Clock, disp display.Driver, newDecoder func(file string) decode.Decoder) (*Runner, error) {
	cfg = cfg.withDefaults()
	screens, err := disp.ListScreens()
	if err != nil {
		return nil, errors.Wrap(err, "runner: enumerate screens")
	}
	return &Runner{
		cfg:        cfg,
		clk:        clk,
		disp:       disp,
		newDecoder: newDecoder,
		log:        cfg.Logger,
		screens:    screens,
		loaders:    make(map[string]*loaderState),
		players:    make(map[string]*player.Player),
	}, nil
}

// SetScript atomically swaps in a new script, resolving its relative
// times against start.
func (r *Runner) SetScript(s *script.Script, start float64) {
	resolved := s.Resolve(start)
	r.mu.Lock()
	r.scr = resolved
	r.mu.Unlock()
}

// Start launches the runner's tick goroutine.
func (r *Runner) Start() {
	r.wg.Add(1)
	go r.run()
}

// Stop halts the tick goroutine and every loader/player it owns.
func (r *Runner) Stop() {
	r.mu.Lock()
	r.shutdown = true
	loaders := make([]*loaderState, 0, len(r.loaders))
	for _, ls := range r.loaders {
		loaders = append(loaders, ls)
	}
	players := make([]*player.Player, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, p)
	}
	r.mu.Unlock()

	r.wg.Wait()
	for _, ls := range loaders {
		ls.loader.Stop()
	}
	for _, p := range players {
		p.Stop()
	}
}

func (r *Runner) run() {
	defer r.wg.Done()
	period := time.Duration(r.cfg.tickPeriod() * float64(time.Second))
	for {
		r.mu.Lock()
		done := r.shutdown
		r.mu.Unlock()
		if done {
			return
		}
		r.Tick(r.clk.Seconds())
		time.Sleep(period)
	}
}

// Tick runs one iteration of the tick algorithm at the given now. It is
// exported so tests can drive the runner deterministically.
func (r *Runner) Tick(now float64) {
	r.mu.Lock()
	s := r.scr
	r.mu.Unlock()
	if s == nil {
		return
	}

	horizonEnd := now + r.cfg.Horizon
	wanted := r.wantedByFile(s, now, horizonEnd)
	r.steerLoaders(wanted, now)

	maxP := now
	for i := range s.Screens {
		p := r.buildTimeline(&s.Screens[i], now, horizonEnd)
		if p > maxP {
			maxP = p
		}
	}

	r.mu.Lock()
	r.lastP = maxP
	r.mu.Unlock()
}

// wantedByFile computes, for every file referenced by an active layer or
// the standby list, the union of its play spline's value-range over
// [now, horizonEnd], padded by the media's configured Buffer.
func (r *Runner) wantedByFile(s *script.Script, now, horizonEnd float64) map[string]interval.Set {
	wanted := make(map[string]interval.Set)
	add := func(file string, play bezier.Spline, buffer float64) {
		if file == "" {
			return
		}
		rng := play.RangeOver(now, horizonEnd)
		if buffer > 0 {
			rng = padEnd(rng, buffer)
		}
		w := wanted[file]
		w.Union(rng)
		wanted[file] = w
	}

	for _, scr := range s.Screens {
		for _, l := range scr.Layers {
			add(l.Media.File, l.Media.Play, l.Media.Buffer)
		}
	}
	for _, sb := range s.Standbys {
		add(sb.File, sb.Play, sb.Buffer)
	}
	return wanted
}

// padEnd extends every interval of s by pad seconds at its end.
func padEnd(s interval.Set, pad float64) interval.Set {
	var out interval.Set
	for _, iv := range s.Intervals() {
		out.Insert(interval.New(iv.Begin, iv.End+pad))
	}
	return out
}

// steerLoaders ensures a loader exists for every referenced file, pushes
// its wanted set, and drops loaders for files that have gone unreferenced
// for longer than fileRetention.
func (r *Runner) steerLoaders(wanted map[string]interval.Set, now float64) {
	r.mu.Lock()
	for file, w := range wanted {
		ls, ok := r.loaders[file]
		if !ok {
			file := file
			l := loader.New(r.log, r.clk, func() decode.Decoder { return r.newDecoder(file) }, r.disp)
			l.Start()
			ls = &loaderState{loader: l}
			r.loaders[file] = ls
		}
		ls.lastReferenced = now
		ls.loader.SetRequest(loader.Request{
			Wanted:          w,
			DecoderIdleTime: r.cfg.DecoderIdleTime,
			SeekScanTime:    r.cfg.SeekScanTime,
		})
	}

	var stale []*loaderState
	for file, ls := range r.loaders {
		if _, ok := wanted[file]; ok {
			continue
		}
		if now-ls.lastReferenced > fileRetention {
			stale = append(stale, ls)
			delete(r.loaders, file)
		}
	}
	r.mu.Unlock()

	for _, ls := range stale {
		ls.loader.Stop()
	}
}

// loaderFor returns the loader for file, or nil if none exists.
func (r *Runner) loaderFor(file string) *loader.Loader {
	r.mu.Lock()
	defer r.mu.Unlock()
	ls, ok := r.loaders[file]
	if !ok {
		return nil
	}
	return ls.loader
}

// playerFor returns the screen's Player, creating and starting one on
// first use.
func (r *Runner) playerFor(scr *script.Screen) *player.Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[scr.ID]
	if ok {
		return p
	}
	mode := r.modeFor(scr)
	p = player.New(r.log, r.clk, r.disp, scr.ID, mode)
	p.Start()
	r.players[scr.ID] = p
	return p
}

// modeFor resolves a screen's effective display.Mode: the script's
// dimensions combined with its ModeHz, falling back to the driver's
// reported active mode when the script leaves a field unset.
func (r *Runner) modeFor(scr *script.Screen) display.Mode {
	mode := display.Mode{Width: scr.Width, Height: scr.Height, RefreshHz: scr.ModeHz}
	for _, s := range r.screens {
		if s.ID != scr.ID {
			continue
		}
		if mode.Width == 0 || mode.Height == 0 {
			if s.ActiveMode != nil {
				mode.Width, mode.Height = s.ActiveMode.Width, s.ActiveMode.Height
			}
		}
		if mode.RefreshHz == 0 && s.ActiveMode != nil {
			mode.RefreshHz = s.ActiveMode.RefreshHz
		}
	}
	if mode.RefreshHz == 0 {
		mode.RefreshHz = script.DefaultMainLoopHz
	}
	return mode
}

// buildTimeline evaluates scr's layers across its refresh grid within
// [now, horizonEnd], hands the result to the screen's player, and returns
// the latest presentation time evaluated.
func (r *Runner) buildTimeline(scr *script.Screen, now, horizonEnd float64) float64 {
	mode := r.modeFor(scr)
	step := 1 / mode.RefreshHz

	var entries []player.Entry
	last := now
	for p := now; p <= horizonEnd; p += step {
		entries = append(entries, player.Entry{Time: p, Layers: r.layersAt(scr, p)})
		last = p
	}

	r.playerFor(scr).SetTimeline(entries, nil)
	return last
}

// layersAt assembles the layer stack for screen scr at presentation time p,
// in Z-order, skipping any layer whose play mapping is undefined at p, past
// its file's EOF, or not yet backed by a loaded frame.
func (r *Runner) layersAt(scr *script.Screen, p float64) []display.LayerUpdate {
	var stack []display.LayerUpdate
	for i := range scr.Layers {
		l := &scr.Layers[i]

		play := l.Media.Play
		s, ok := play.At(p)
		if !ok {
			continue
		}

		ld := r.loaderFor(l.Media.File)
		if ld == nil {
			continue
		}
		lf := ld.Loaded()
		if lf.EOF != nil && s > *lf.EOF {
			continue
		}
		img, _, ok := lf.NearestAtOrBefore(s)
		if !ok {
			continue
		}

		fromX, fromY := evalAt(&l.FromX, p), evalAt(&l.FromY, p)
		fromW, fromH := evalAt(&l.FromW, p), evalAt(&l.FromH, p)
		toX, toY := evalAt(&l.ToX, p), evalAt(&l.ToY, p)
		toW, toH := evalAt(&l.ToW, p), evalAt(&l.ToH, p)
		opacity := evalAt(&l.Opacity, p)

		stack = append(stack, display.LayerUpdate{
			Image:   img,
			Src:     display.Rect{X: fromX, Y: fromY, W: fromW, H: fromH},
			Dst:     display.Rect{X: toX, Y: toY, W: toW, H: toH},
			Opacity: opacity,
		})
	}
	return stack
}

// evalAt evaluates sp at t, defaulting to 0 where the spline is undefined
// (an unset geometry/opacity spline has no segments at all).
func evalAt(sp *bezier.Spline, t float64) float64 {
	v, ok := sp.At(t)
	if !ok {
		return 0
	}
	return v
}

// FileInfo exposes a file's static metadata. When a loader exists for the
// file, that loader's cached FileInfo is returned; otherwise a new decoder is
// opened for this call alone and its result is not cached.
func (r *Runner) FileInfo(file string) (decode.FileInfo, error) {
	if ld := r.loaderFor(file); ld != nil {
		return ld.FileInfo()
	}
	dec := r.newDecoder(file)
	info, err := dec.FileInfo()
	if err != nil {
		return decode.FileInfo{}, errors.Wrapf(err, "runner: file_info for %s", file)
	}
	return info, nil
}

// Done reports whether every file currently referenced by the script has
// reached EOF at or below the latest evaluated presentation time, and every
// referenced layer's play spline has no further future interval.
func (r *Runner) Done() bool {
	r.mu.Lock()
	s := r.scr
	lastP := r.lastP
	r.mu.Unlock()
	if s == nil {
		return false
	}

	for _, file := range s.Files() {
		ld := r.loaderFor(file)
		if ld == nil {
			return false
		}
		lf := ld.Loaded()
		if lf.EOF == nil || *lf.EOF > lastP {
			return false
		}
	}

	for _, scr := range s.Screens {
		for _, l := range scr.Layers {
			if !splineExhausted(l.Media.Play, lastP) {
				return false
			}
		}
	}
	return true
}

// splineExhausted reports whether sp has no value remaining after now: a
// repeating spline or one whose last segment reaches +Inf never exhausts.
func splineExhausted(sp bezier.Spline, now float64) bool {
	if len(sp.Segments) == 0 {
		return true
	}
	if sp.Repeat > 0 {
		return false
	}
	last := sp.Segments[len(sp.Segments)-1]
	if math.IsInf(last.TE, 1) {
		return false
	}
	return now > last.TE
}
