//go:build withcv
// +build withcv

/*
DESCRIPTION
  compositor.go implements display.Driver as an off-screen software
  compositor, for development and test rigs with no KMS/DRM output: Upload
  decodes each image with OpenCV, and each PresentAtomic call alpha-blends
  its layers into one frame buffer per screen, in place of a kernel
  page-flip.

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
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ausocean/playout/decode"
	"github.com/ausocean/playout/display"
)

// Compositor is a software display.Driver backed by OpenCV Mats. It holds
// one output frame buffer per screen and blends PresentAtomic's layers into
// it in Z-order.
type Compositor struct {
	mu      sync.Mutex
	screens []display.Screen
	out     map[string]gocv.Mat
}

// New returns a Compositor reporting the given screens as its outputs. Each
// screen's output buffer is sized to the mode passed to PresentAtomic and is
// reallocated whenever that mode's size changes; the screens' ActiveMode is
// not consulted.
func New(screens []display.Screen) *Compositor {
	return &Compositor{screens: screens, out: make(map[string]gocv.Mat)}
}

// ListScreens implements display.Driver.
func (c *Compositor) ListScreens() ([]display.Screen, error) {
	return c.screens, nil
}

// Upload implements display.Driver: it decodes img (raw encoded bytes, as
// produced by decode/mjpeg) into a gocv.Mat and returns it as the
// ImageHandle.
func (c *Compositor) Upload(img decode.Image) (display.ImageHandle, error) {
	buf, ok := img.([]byte)
	if !ok {
		return nil, fmt.Errorf("compositor: Upload expects raw encoded bytes, got %T", img)
	}
	mat, err := gocv.IMDecode(buf, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("compositor: decode image: %w", err)
	}
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("compositor: decoded empty image")
	}
	return &matHandle{mat: mat}, nil
}

// matHandle is the concrete ImageHandle a Compositor's Upload returns.
type matHandle struct{ mat gocv.Mat }

// Close releases the handle's underlying Mat. The frame loader does not call
// Close when it evicts a frame from its cache; the Mat is released only by an
// explicit Close.
func (h *matHandle) Close() error {
	h.mat.Close()
	return nil
}

// PresentAtomic implements display.Driver: it blends layers onto the
// screen's output Mat (creating it on first use) in Z-order, by opacity.
func (c *Compositor) PresentAtomic(screenID string, mode display.Mode, layers []display.LayerUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	out, ok := c.out[screenID]
	if !ok || out.Cols() != mode.Width || out.Rows() != mode.Height {
		if ok {
			out.Close()
		}
		out = gocv.NewMatWithSize(mode.Height, mode.Width, gocv.MatTypeCV8UC3)
		out.SetTo(gocv.NewScalar(0, 0, 0, 0))
		c.out[screenID] = out
	}

	for _, l := range layers {
		h, ok := l.Image.(*matHandle)
		if !ok {
			return fmt.Errorf("compositor: layer image is not a Compositor handle (%T)", l.Image)
		}
		if err := blendLayer(out, h.mat, l); err != nil {
			return err
		}
	}
	return nil
}

// blendLayer alpha-blends src (cropped to l.Src) onto dst at l.Dst, scaled
// to fit, at l.Opacity.
func blendLayer(dst, src gocv.Mat, l display.LayerUpdate) error {
	srcRect := clampRect(l.Src, src.Cols(), src.Rows())
	if srcRect.Dx() == 0 || srcRect.Dy() == 0 {
		return nil
	}
	cropped := src.Region(srcRect)
	defer cropped.Close()

	dstRect := clampRect(l.Dst, dst.Cols(), dst.Rows())
	if dstRect.Dx() == 0 || dstRect.Dy() == 0 {
		return nil
	}

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(cropped, &resized, imagePoint(dstRect.Dx(), dstRect.Dy()), 0, 0, gocv.InterpolationLinear)

	region := dst.Region(dstRect)
	defer region.Close()

	alpha := clampUnit(l.Opacity)
	if alpha >= 1 {
		resized.CopyTo(&region)
		return nil
	}
	gocv.AddWeighted(region, 1-alpha, resized, alpha, 0, &region)
	return nil
}

// clampRect converts a display.Rect to an image.Rectangle clipped to
// [0,w)x[0,h).
func clampRect(r display.Rect, w, h int) image.Rectangle {
	x0 := clampInt(int(r.X), 0, w)
	y0 := clampInt(int(r.Y), 0, h)
	x1 := clampInt(int(r.X+r.W), 0, w)
	y1 := clampInt(int(r.Y+r.H), 0, h)
	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}
	return image.Rect(x0, y0, x1, y1)
}

func imagePoint(w, h int) image.Point { return image.Pt(w, h) }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Close releases every output Mat held by the Compositor. Callers should
// call it once the Compositor is no longer in use, since gocv.Mat memory is
// managed by C++ and not the Go garbage collector.
func (c *Compositor) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, m := range c.out {
		m.Close()
		delete(c.out, id)
	}
	return nil
}
