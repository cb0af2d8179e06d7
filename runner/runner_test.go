package runner

import (
	"sync"
	"testing"
	"time"

	"github.com/ausocean/playout/bezier"
	"github.com/ausocean/playout/decode"
	"github.com/ausocean/playout/display"
	"github.com/ausocean/playout/internal/testdecoder"
	"github.com/ausocean/playout/internal/testdisplay"
	"github.com/ausocean/playout/script"
	"github.com/ausocean/utils/logging"
)

// settableClock is a manually advanced clock.Clock for deterministic runner
// tests.
type settableClock struct {
	mu sync.Mutex
	t  float64
}

func (c *settableClock) Seconds() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *settableClock) set(t float64) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func waitForRunner(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// identityishMapping maps presentation time in [0,1] to source time in
// [0,2], monotonically but not linearly (a genuine cubic), used wherever a
// test needs a play spline covering a real source-time range.
func identityishMapping() bezier.Spline {
	return bezier.Spline{Segments: []bezier.Segment{{TB: 0, TE: 1, XB: 0, P1: 0, P2: 2, XE: 2}}}
}

func oneScreenOneLayerScript(file string, play bezier.Spline) *script.Script {
	return &script.Script{
		MainLoopHz: 30,
		Screens: []script.Screen{{
			ID: "hdmi0", Width: 640, Height: 480, ModeHz: 30,
			Layers: []script.Layer{{
				Media:   script.Media{File: file, Play: play},
				FromX:   bezier.Const(0),
				FromY:   bezier.Const(0),
				FromW:   bezier.Const(640),
				FromH:   bezier.Const(480),
				ToX:     bezier.Const(0),
				ToY:     bezier.Const(0),
				ToW:     bezier.Const(640),
				ToH:     bezier.Const(480),
				Opacity: bezier.Const(1),
			}},
		}},
	}
}

func sharedDecoderFactory(frames []decode.Frame, info decode.FileInfo) func(string) decode.Decoder {
	return func(string) decode.Decoder {
		cp := make([]decode.Frame, len(frames))
		copy(cp, frames)
		return &testdecoder.Decoder{Frames: cp, Info: info}
	}
}

func TestRunnerPresentsLoadedFrame(t *testing.T) {
	src := testdecoder.Generate(60, 30) // 2 seconds of frames at 30fps.
	disp := &testdisplay.Driver{Screens: []display.Screen{{
		ID: "hdmi0", Connected: true,
		ActiveMode: &display.Mode{Width: 640, Height: 480, RefreshHz: 30},
	}}}

	cfg := Config{MainLoopHz: 30, Horizon: 1.0, DecoderIdleTime: 5, SeekScanTime: 0.2, Logger: (*logging.TestLogger)(t)}
	clk := &settableClock{t: 0}
	r, err := New(cfg, clk, disp, sharedDecoderFactory(src.Frames, src.Info))
	if err != nil {
		t.Fatal(err)
	}

	s := oneScreenOneLayerScript("clip.mjpeg", identityishMapping())
	r.SetScript(s, 0)
	r.Tick(0)
	defer r.Stop()

	// The loader decodes asynchronously, so the first tick may build its
	// timeline before any frame is loaded; tick again once one is.
	waitForRunner(t, func() bool {
		ld := r.loaderFor("clip.mjpeg")
		return ld != nil && len(ld.Loaded().Frames) > 0
	})
	r.Tick(0)

	waitForRunner(t, func() bool {
		ps := disp.Presents()
		return len(ps) > 0 && len(ps[len(ps)-1].Layers) > 0
	})

	presents := disp.Presents()
	last := presents[len(presents)-1]
	if last.ScreenID != "hdmi0" {
		t.Fatalf("presented to screen %q, want hdmi0", last.ScreenID)
	}
	if len(last.Layers) != 1 {
		t.Fatalf("got %d layers, want 1", len(last.Layers))
	}
	l := last.Layers[0]
	if l.Image == nil {
		t.Fatal("presented layer has no image handle")
	}
	if l.Dst != (display.Rect{X: 0, Y: 0, W: 640, H: 480}) {
		t.Fatalf("dst rect = %+v, want full screen", l.Dst)
	}
	if l.Opacity != 1 {
		t.Fatalf("opacity = %v, want 1", l.Opacity)
	}
}

func TestRunnerDoneAfterPlaybackExhausted(t *testing.T) {
	src := testdecoder.Generate(5, 30) // ~0.167s of frames, much shorter than the layer's source range.
	disp := &testdisplay.Driver{Screens: []display.Screen{{
		ID: "hdmi0", Connected: true,
		ActiveMode: &display.Mode{Width: 640, Height: 480, RefreshHz: 30},
	}}}

	cfg := Config{MainLoopHz: 30, Horizon: 1.0, DecoderIdleTime: 5, SeekScanTime: 0.2, Logger: (*logging.TestLogger)(t)}
	clk := &settableClock{t: 0}
	r, err := New(cfg, clk, disp, sharedDecoderFactory(src.Frames, src.Info))
	if err != nil {
		t.Fatal(err)
	}

	s := oneScreenOneLayerScript("short.mjpeg", identityishMapping())
	r.SetScript(s, 0)
	r.Tick(0)
	defer r.Stop()

	if r.Done() {
		t.Fatal("runner reports done before any playback has happened")
	}

	waitForRunner(t, func() bool {
		ld := r.loaderFor("short.mjpeg")
		return ld != nil && ld.Loaded().EOF != nil
	})

	clk.set(2) // past the layer's play spline (TE=1).
	r.Tick(2)

	if !r.Done() {
		t.Fatal("runner should be done once the only referenced file hit EOF and its layer's play range is exhausted")
	}
}

func TestModeForFallsBackToDriverMode(t *testing.T) {
	disp := &testdisplay.Driver{Screens: []display.Screen{{
		ID: "hdmi0", ActiveMode: &display.Mode{Width: 1920, Height: 1080, RefreshHz: 60},
	}}}
	cfg := Config{Logger: (*logging.TestLogger)(t)}
	r, err := New(cfg, &settableClock{}, disp, func(string) decode.Decoder { return nil })
	if err != nil {
		t.Fatal(err)
	}

	scr := &script.Screen{ID: "hdmi0"} // no Width/Height/ModeHz set.
	mode := r.modeFor(scr)
	if mode != (display.Mode{Width: 1920, Height: 1080, RefreshHz: 60}) {
		t.Fatalf("mode = %+v, want the driver's active mode", mode)
	}
}
