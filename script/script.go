/*
DESCRIPTION
  script.go defines the in-memory script document the runner plays:
  per-screen layer stacks animated by bezier splines, plus a standby list of
  files to keep warm. Parsing a script from serialized form (JSON/YAML/etc)
  is an out-of-scope collaborator; this package only defines the shape and
  the absolute/relative time resolution rule.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package script defines the declarative, time-varying composition of
// media layers the runner plays out.
package script

import "github.com/ausocean/playout/bezier"

// DefaultMainLoopHz is used when a Script's MainLoopHz is unset (<= 0).
const DefaultMainLoopHz = 30

// relativeMagnitude is the threshold below which a time value in a script
// is interpreted as relative to a start instant rather than an absolute
// Unix epoch second count (an epoch second count comfortably exceeds 1e7
// for any date since 1970-04-26).
const relativeMagnitude = 1e7

// Media identifies a source file and the presentation-time-to-source-time
// mapping used to play it within a layer.
type Media struct {
	File string
	Play bezier.Spline

	// Buffer, if positive, is additional lookahead (in seconds, source
	// time) the runner should request beyond the layer's own play range,
	// to give the loader a head start on files that are expensive to seek.
	Buffer float64
}

// Layer is one entry in a screen's Z-ordered layer stack: a media source
// plus the splines that animate its source and destination rectangles and
// its opacity, all as functions of presentation time.
type Layer struct {
	Media Media

	FromX, FromY bezier.Spline
	FromW, FromH bezier.Spline
	ToX, ToY     bezier.Spline
	ToW, ToH     bezier.Spline
	Opacity      bezier.Spline
}

// Screen is one display output's mode and layer stack.
type Screen struct {
	ID            string
	Width, Height int

	// ModeHz is the display refresh rate; zero means "use the driver's
	// active mode as reported by ListScreens".
	ModeHz float64

	Layers []Layer
}

// Standby is a file the runner should keep loaded even when no layer
// currently references it, so that a future layer referencing it can play
// without a cold-start seek.
type Standby struct {
	File   string
	Play   bezier.Spline
	Buffer float64
}

// Script is the top level document the runner plays.
type Script struct {
	Screens    []Screen
	Standbys   []Standby
	MainLoopHz float64
}

// EffectiveMainLoopHz returns s.MainLoopHz, or DefaultMainLoopHz if unset.
func (s *Script) EffectiveMainLoopHz() float64 {
	if s.MainLoopHz <= 0 {
		return DefaultMainLoopHz
	}
	return s.MainLoopHz
}

// normalizeTime resolves a single script time value against start: a
// magnitude below relativeMagnitude is treated as relative to start, any
// larger magnitude is treated as an absolute epoch time and passed through
// unchanged.
func normalizeTime(t, start float64) float64 {
	if t < 0 {
		if -t < relativeMagnitude {
			return start + t
		}
		return t
	}
	if t < relativeMagnitude {
		return start + t
	}
	return t
}

// resolveSpline returns a copy of sp with every segment's TB/TE resolved
// against start via normalizeTime.
func resolveSpline(sp bezier.Spline, start float64) bezier.Spline {
	out := bezier.Spline{Repeat: sp.Repeat, Segments: make([]bezier.Segment, len(sp.Segments))}
	for i, seg := range sp.Segments {
		seg.TB = normalizeTime(seg.TB, start)
		seg.TE = normalizeTime(seg.TE, start)
		out.Segments[i] = seg
	}
	return out
}

// Resolve returns a copy of s with every spline's segment times resolved
// against a single start instant, per the absolute-vs-relative rule. The
// runner calls this once, when a script is loaded or swapped in, rather
// than on every tick.
func (s *Script) Resolve(start float64) *Script {
	out := &Script{MainLoopHz: s.MainLoopHz}
	out.Screens = make([]Screen, len(s.Screens))
	for i, scr := range s.Screens {
		rscr := Screen{ID: scr.ID, Width: scr.Width, Height: scr.Height, ModeHz: scr.ModeHz}
		rscr.Layers = make([]Layer, len(scr.Layers))
		for j, l := range scr.Layers {
			rscr.Layers[j] = Layer{
				Media: Media{
					File:   l.Media.File,
					Play:   resolveSpline(l.Media.Play, start),
					Buffer: l.Media.Buffer,
				},
				FromX:   resolveSpline(l.FromX, start),
				FromY:   resolveSpline(l.FromY, start),
				FromW:   resolveSpline(l.FromW, start),
				FromH:   resolveSpline(l.FromH, start),
				ToX:     resolveSpline(l.ToX, start),
				ToY:     resolveSpline(l.ToY, start),
				ToW:     resolveSpline(l.ToW, start),
				ToH:     resolveSpline(l.ToH, start),
				Opacity: resolveSpline(l.Opacity, start),
			}
		}
		out.Screens[i] = rscr
	}
	out.Standbys = make([]Standby, len(s.Standbys))
	for i, sb := range s.Standbys {
		out.Standbys[i] = Standby{File: sb.File, Play: resolveSpline(sb.Play, start), Buffer: sb.Buffer}
	}
	return out
}

// Files returns the set of distinct media file names referenced by s,
// across every layer and the standby list.
func (s *Script) Files() []string {
	seen := make(map[string]bool)
	var files []string
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		files = append(files, name)
	}
	for _, scr := range s.Screens {
		for _, l := range scr.Layers {
			add(l.Media.File)
		}
	}
	for _, sb := range s.Standbys {
		add(sb.File)
	}
	return files
}
