// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package soft

import (
	"errors"
	"fmt"
	"image"
	"slices"

	"cogentcore.org/vhal/driver"
)

// Surface is a resizable window surface. It can be scripted to return
// given results from upcoming acquire and present calls, to simulate
// out of date swapchains and device errors.
type Surface struct {
	Size         image.Point
	Formats      []driver.SurfaceFormat
	PresentModes []driver.PresentMode
	MinImages    uint32
	MaxImages    uint32

	acquire []driver.Result
	present []driver.Result
}

// NewSurface returns a surface of the given size in pixels that
// supports RGBA8 and BGRA8 sRGB formats and FIFO and mailbox modes.
func NewSurface(width, height int) *Surface {
	return &Surface{
		Size: image.Pt(width, height),
		Formats: []driver.SurfaceFormat{
			{Format: driver.FormatB8G8R8A8Srgb, ColorSpace: driver.ColorSpaceSrgbNonlinear},
			{Format: driver.FormatR8G8B8A8Srgb, ColorSpace: driver.ColorSpaceSrgbNonlinear},
		},
		PresentModes: []driver.PresentMode{driver.PresentMailbox, driver.PresentFifo},
		MinImages:    2,
		MaxImages:    3,
	}
}

// PixelSize returns the current size of the surface.
func (s *Surface) PixelSize() image.Point {
	return s.Size
}

// NativeSurface returns the surface itself.
func (s *Surface) NativeSurface() driver.Surface {
	return s
}

// Resize sets the surface size; existing swapchains become out of date.
func (s *Surface) Resize(width, height int) {
	s.Size = image.Pt(width, height)
}

// ScriptAcquire queues results for the next acquire calls.
func (s *Surface) ScriptAcquire(results ...driver.Result) {
	s.acquire = append(s.acquire, results...)
}

// ScriptPresent queues results for the next present calls.
func (s *Surface) ScriptPresent(results ...driver.Result) {
	s.present = append(s.present, results...)
}

func (s *Surface) next(q *[]driver.Result) (driver.Result, bool) {
	if len(*q) == 0 {
		return driver.Success, false
	}
	r := (*q)[0]
	*q = (*q)[1:]
	return r, true
}

func (s *Surface) extent() driver.Extent2D {
	return driver.Extent2D{Width: uint32(max(s.Size.X, 0)), Height: uint32(max(s.Size.Y, 0))}
}

// Swapchain is a software swapchain.
type Swapchain struct {
	Desc     driver.SwapchainDesc
	Images   []*Image
	surface  *Surface
	acquired []bool
	next     uint32
	dead     bool
}

// status reports whether the swapchain still matches its surface.
func (sc *Swapchain) status() driver.Result {
	if sc.surface.extent() != sc.Desc.Extent {
		return driver.ErrorOutOfDate
	}
	return driver.Success
}

func (d *Device) SurfaceCapabilities(s driver.Surface) (driver.SurfaceCapabilities, error) {
	ss, ok := s.(*Surface)
	if !ok {
		return driver.SurfaceCapabilities{}, fmt.Errorf("soft: unsupported surface type %T", s)
	}
	return driver.SurfaceCapabilities{
		MinImageCount: ss.MinImages,
		MaxImageCount: ss.MaxImages,
		CurrentExtent: ss.extent(),
		MinExtent:     driver.Extent2D{Width: 1, Height: 1},
		MaxExtent:     driver.Extent2D{Width: 16384, Height: 16384},
		Formats:       slices.Clone(ss.Formats),
		PresentModes:  slices.Clone(ss.PresentModes),
	}, nil
}

func (d *Device) CreateSwapchain(desc driver.SwapchainDesc) (driver.Swapchain, []driver.Image, error) {
	ss := desc.Surface.(*Surface)
	switch {
	case desc.Extent.IsZero():
		return nil, nil, errors.New("soft: swapchain extent must be non-zero")
	case !slices.Contains(ss.Formats, desc.Format):
		return nil, nil, fmt.Errorf("soft: surface does not support format %v", desc.Format.Format)
	case !slices.Contains(ss.PresentModes, desc.PresentMode):
		return nil, nil, fmt.Errorf("soft: surface does not support present mode %v", desc.PresentMode)
	case desc.MinImageCount < ss.MinImages || (ss.MaxImages > 0 && desc.MinImageCount > ss.MaxImages):
		return nil, nil, fmt.Errorf("soft: image count %d out of range", desc.MinImageCount)
	}
	if desc.Old != nil && desc.Old.(*Swapchain).dead {
		return nil, nil, errors.New("soft: old swapchain already destroyed")
	}
	d.trace("CreateSwapchain")
	n := int(desc.MinImageCount)
	sc := &Swapchain{Desc: desc, surface: ss, acquired: make([]bool, n)}
	imgs := make([]driver.Image, n)
	for i := range n {
		im := d.newImage(driver.ImageDesc{Type: driver.ImageColorAttachment, Format: desc.Format.Format,
			Extent: driver.Extent3D{Width: desc.Extent.Width, Height: desc.Extent.Height, Depth: 1}, MipLevels: 1, Samples: 1})
		im.Swapchain = true
		sc.Images = append(sc.Images, im)
		imgs[i] = im
	}
	d.created("swapchain")
	return sc, imgs, nil
}

func (d *Device) DestroySwapchain(s driver.Swapchain) {
	d.trace("DestroySwapchain")
	d.release("swapchain", &s.(*Swapchain).dead)
}

func (d *Device) AcquireNextImage(s driver.Swapchain, timeout uint64, signal driver.Semaphore) (uint32, driver.Result) {
	d.trace("AcquireNextImage")
	sc := s.(*Swapchain)
	sem := signal.(*Semaphore)
	if sem.Signaled {
		d.invalid("acquire signals a semaphore that is already signaled")
		return 0, driver.ErrorUnknown
	}
	res, ok := sc.surface.next(&sc.surface.acquire)
	if !ok {
		res = sc.status()
	}
	if res != driver.Success && res != driver.Suboptimal {
		return 0, res
	}
	idx := sc.next
	if sc.acquired[idx] {
		d.invalid("acquire of image %d that is still held", idx)
		return 0, driver.ErrorUnknown
	}
	sc.acquired[idx] = true
	sc.next = (sc.next + 1) % uint32(len(sc.Images))
	sem.Signaled = true
	return idx, res
}
