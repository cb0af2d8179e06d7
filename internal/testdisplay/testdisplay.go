/*
DESCRIPTION
  testdisplay.go provides a recording display.Driver fake: it uploads images
  as plain wrapped values (no pixel decoding) and records every
  PresentAtomic call, so loader/player/runner tests can assert on what was
  presented without a real display.
*/

// Package testdisplay provides a recording display.Driver fake.
package testdisplay

import (
	"sync"

	"github.com/ausocean/playout/decode"
	"github.com/ausocean/playout/display"
)

// Present is one recorded PresentAtomic call.
type Present struct {
	ScreenID string
	Mode     display.Mode
	Layers   []display.LayerUpdate
}

// Driver is a recording display.Driver fake.
type Driver struct {
	Screens []display.Screen

	mu       sync.Mutex
	uploaded int
	presents []Present

	// PresentErr, if set, is returned by every PresentAtomic call.
	PresentErr error
}

// handle is the ImageHandle this fake's Upload returns: the original
// decode.Image, unchanged, plus a sequence id for uniqueness assertions.
type handle struct {
	Image decode.Image
	Seq   int
}

// ListScreens implements display.Driver.
func (d *Driver) ListScreens() ([]display.Screen, error) {
	return d.Screens, nil
}

// Upload implements display.Driver without touching pixels.
func (d *Driver) Upload(img decode.Image) (display.ImageHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.uploaded++
	return &handle{Image: img, Seq: d.uploaded}, nil
}

// PresentAtomic implements display.Driver, recording the call.
func (d *Driver) PresentAtomic(screenID string, mode display.Mode, layers []display.LayerUpdate) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.PresentErr != nil {
		return d.PresentErr
	}
	cp := make([]display.LayerUpdate, len(layers))
	copy(cp, layers)
	d.presents = append(d.presents, Present{ScreenID: screenID, Mode: mode, Layers: cp})
	return nil
}

// Presents returns every PresentAtomic call recorded so far.
func (d *Driver) Presents() []Present {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Present, len(d.presents))
	copy(out, d.presents)
	return out
}

// UploadCount reports how many images have been uploaded.
func (d *Driver) UploadCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.uploaded
}
