/*
DESCRIPTION
  display.go defines the display driver capability interface the frame
  player depends on. The concrete driver is an out-of-scope external
  collaborator (real KMS/DRM enumeration and atomic page-flips); this
  package defines only the contract, plus the value types passed across it.
  display/compositor provides a software reference implementation and
  internal/testdisplay a recording fake for unit tests.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package display defines the display driver interface consumed by the
// frame player: enumerate screens+modes, upload an image, and atomically
// present a layer stack at the next vsync.
package display

import "github.com/ausocean/playout/decode"

// Mode is a display mode: a pixel size and a refresh rate.
type Mode struct {
	Width, Height int
	RefreshHz     float64
}

// Period returns the mode's frame period.
func (m Mode) Period() float64 {
	if m.RefreshHz <= 0 {
		return 0
	}
	return 1 / m.RefreshHz
}

// Screen describes one directly attached display output.
type Screen struct {
	ID         string
	Connector  string
	Connected  bool
	ActiveMode *Mode
	Modes      []Mode
}

// Rect is an axis-aligned destination (or source) rectangle, in the
// coordinate space the driver expects (source rects are in source-image
// pixels, destination rects in screen pixels).
type Rect struct {
	X, Y, W, H float64
}

// ImageHandle is the opaque, shared-ownership handle a Driver's Upload
// returns. It must remain valid for as long as any in-flight presentation
// references it; loader.LoadedFrames, a player's []player.Entry timeline and a Driver's own
// internal bookkeeping may all hold independent references.
type ImageHandle interface{}

// LayerUpdate is one layer of a PresentAtomic call: an uploaded image plus
// its resolved source/destination geometry and opacity, in Z-order (index 0
// is the bottom layer).
type LayerUpdate struct {
	Image   ImageHandle
	Src     Rect
	Dst     Rect
	Opacity float64
}

// Driver is the capability interface the frame player (player.Player)
// depends on.
type Driver interface {
	// ListScreens enumerates the directly attached display outputs and
	// their supported modes.
	ListScreens() ([]Screen, error)

	// Upload uploads img, returning a shared-ownership handle.
	Upload(img decode.Image) (ImageHandle, error)

	// PresentAtomic schedules layers to become visible at screenID's next
	// vsync under mode, blocking until the kernel (or its software stand-in)
	// accepts the update.
	PresentAtomic(screenID string, mode Mode, layers []LayerUpdate) error
}
