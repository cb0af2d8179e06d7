//go:build !withcv
// +build !withcv

/*
DESCRIPTION
  compositor_circleci.go replaces the OpenCV-backed Compositor when built
  without gocv (CircleCI has no OpenCV installed). It implements the same
  display.Driver contract as a stand-in: Upload hands out handles with unique
  ids and PresentAtomic accepts every call, without decoding or blending any
  pixels, so non-display tests (loader, player, runner) can still exercise
  their control flow in this build.

AUTHORS
  Scott Barnard <scott@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package compositor

import (
	"sync"
	"sync/atomic"

	"github.com/ausocean/playout/decode"
	"github.com/ausocean/playout/display"
)

// Compositor is the no-OpenCV stand-in for the real software compositor.
type Compositor struct {
	mu      sync.Mutex
	screens []display.Screen
	next    int64
}

// New returns a Compositor reporting the given screens as its outputs.
func New(screens []display.Screen) *Compositor {
	return &Compositor{screens: screens}
}

// ListScreens implements display.Driver.
func (c *Compositor) ListScreens() ([]display.Screen, error) {
	return c.screens, nil
}

// noopHandle is the ImageHandle this build's Upload returns: it records
// nothing but a unique id, since no pixels are ever decoded.
type noopHandle struct{ id int64 }

// Upload implements display.Driver without decoding img.
func (c *Compositor) Upload(img decode.Image) (display.ImageHandle, error) {
	return &noopHandle{id: atomic.AddInt64(&c.next, 1)}, nil
}

// PresentAtomic implements display.Driver as a no-op: it records nothing and
// always returns nil, so callers still exercise their real layer-building
// logic.
func (c *Compositor) PresentAtomic(screenID string, mode display.Mode, layers []display.LayerUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return nil
}

// Close is a no-op in this build.
func (c *Compositor) Close() error { return nil }
