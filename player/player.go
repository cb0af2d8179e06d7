/*
DESCRIPTION
  player.go implements the per-screen asynchronous frame player: it wakes at
  each scheduled presentation time, drives the external display driver, and
  reports frames that were skipped by lateness.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package player implements the per-screen asynchronous frame player (C4):
// it schedules presentation at precise times via the display driver and
// reports skipped frames.
package player

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/ausocean/playout/clock"
	"github.com/ausocean/playout/display"
	"github.com/ausocean/utils/logging"
)

// presentWarnSlack is how far over a mode's frame period a present call may
// run before the player logs a warning.
const presentWarnSlack = 5 * time.Millisecond

// latenessWindow bounds the rolling sample of present-call lateness kept
// for diagnostic logging.
const latenessWindow = 64

// Entry is one scheduled (presentation time -> layer stack) pair.
type Entry struct {
	Time   float64
	Layers []display.LayerUpdate
}

// Player is the per-screen asynchronous frame player.
type Player struct {
	log      logging.Logger
	clk      clock.Clock
	driver   display.Driver
	screenID string
	mode     display.Mode

	wake *clock.Flag

	mu        sync.Mutex
	timeline  []Entry // sorted ascending by Time.
	lastShown float64
	hasShown  bool
	notify    *clock.Flag
	shutdown  bool

	lateness []float64 // rolling wall-clock lateness samples, seconds.

	wg sync.WaitGroup
}

// New returns a Player driving screenID on driver under mode. log may be
// nil, in which case logging is a no-op.
func New(log logging.Logger, clk clock.Clock, driver display.Driver, screenID string, mode display.Mode) *Player {
	if log == nil {
		log = logging.New(-1, nil, false)
	}
	return &Player{
		log:      log,
		clk:      clk,
		driver:   driver,
		screenID: screenID,
		mode:     mode,
		wake:     clock.NewFlag(clk),
	}
}

// SetMode updates the mode used for frame-period lateness warnings.
func (p *Player) SetMode(mode display.Mode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = mode
}

// Start launches the player's background worker goroutine.
func (p *Player) Start() {
	p.wg.Add(1)
	go p.run()
}

// Stop signals the worker to exit and waits for it to do so.
func (p *Player) Stop() {
	p.mu.Lock()
	p.shutdown = true
	p.mu.Unlock()
	p.wake.Set()
	p.wg.Wait()
}

// SetTimeline atomically replaces the scheduled entries, sorted by Time.
// The worker is woken if the set of scheduled times changed.
func (p *Player) SetTimeline(entries []Entry, notify *clock.Flag) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	p.mu.Lock()
	changed := timesChanged(p.timeline, sorted)
	p.timeline = sorted
	p.notify = notify
	p.mu.Unlock()

	if changed {
		p.wake.Set()
	}
}

// timesChanged reports whether the ordered set of scheduled times differs
// between a and b.
func timesChanged(a, b []Entry) bool {
	if len(a) != len(b) {
		return true
	}
	for i := range a {
		if a[i].Time != b[i].Time {
			return true
		}
	}
	return false
}

// LastShown returns the scheduled presentation time of the most recently
// driven frame, and whether any frame has been shown yet.
func (p *Player) LastShown() (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastShown, p.hasShown
}

// run is the player's background worker loop.
func (p *Player) run() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		if p.shutdown {
			p.mu.Unlock()
			return
		}
		if len(p.timeline) == 0 {
			p.mu.Unlock()
			p.wake.Wait()
			continue
		}

		now := p.clk.Seconds()
		idx := dueIndex(p.timeline, now)
		var showIdx int
		if idx >= 0 {
			showIdx = idx
		} else {
			showIdx = 0
		}
		show := p.timeline[showIdx]

		if skipped := p.timeline[:showIdx]; len(skipped) > 0 {
			p.warnSkipped(skipped)
		}

		if now < show.Time {
			deadline := show.Time
			p.mu.Unlock()
			if !p.wake.WaitUntil(deadline) {
				// Deadline reached with no new timeline; loop and re-evaluate.
			}
			continue
		}

		p.timeline = p.timeline[showIdx+1:]
		notify := p.notify
		mode := p.mode
		screenID := p.screenID
		p.mu.Unlock()

		start := time.Now()
		if err := p.driver.PresentAtomic(screenID, mode, show.Layers); err != nil {
			p.log.Error("player: present failed", "error", err.Error(), "screen", screenID)
		}
		elapsed := time.Since(start)
		p.recordLateness(elapsed, mode)

		p.mu.Lock()
		p.lastShown = show.Time
		p.hasShown = true
		p.mu.Unlock()

		if notify != nil {
			notify.Set()
		}
	}
}

// dueIndex returns the largest index whose Time <= now, or -1 if no entry
// qualifies.
func dueIndex(timeline []Entry, now float64) int {
	i := sort.Search(len(timeline), func(i int) bool { return timeline[i].Time > now })
	return i - 1
}

// warnSkipped logs the entries that were displaced by lateness and had a
// non-empty layer stack; an empty entry skipped by lateness never had
// anything to present, so it is not worth a warning.
func (p *Player) warnSkipped(skipped []Entry) {
	var times []float64
	for _, e := range skipped {
		if len(e.Layers) == 0 {
			continue
		}
		times = append(times, e.Time)
	}
	if len(times) == 0 {
		return
	}
	p.log.Warning("player: skipped frames due to lateness", "screen", p.screenID, "times", times)
}

// recordLateness keeps a rolling window of present-call durations and warns
// when one exceeds the mode's frame period by more than presentWarnSlack.
func (p *Player) recordLateness(elapsed time.Duration, mode display.Mode) {
	p.mu.Lock()
	if len(p.lateness) >= latenessWindow {
		p.lateness = p.lateness[1:]
	}
	p.lateness = append(p.lateness, elapsed.Seconds())
	mean, std := stat.MeanStdDev(p.lateness, nil)
	p.mu.Unlock()

	budget := time.Duration(mode.Period()*float64(time.Second)) + presentWarnSlack
	if elapsed > budget {
		p.log.Warning("player: present exceeded frame budget", "screen", p.screenID,
			"elapsed_ms", elapsed.Milliseconds(), "budget_ms", budget.Milliseconds(),
			"mean_ms", mean*1000, "stddev_ms", std*1000)
	}
}
