// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hal

import (
	"image"
	"log/slog"
	"math"

	"cogentcore.org/core/base/errors"
	"cogentcore.org/vhal/driver"
)

// WindowSurface is a window that can be presented to.
type WindowSurface interface {

	// PixelSize returns the current framebuffer size of the window,
	// which is zero while the window is minimized.
	PixelSize() image.Point

	// NativeSurface returns the driver surface of the window.
	NativeSurface() driver.Surface
}

// SwapchainConfig has the parameters of a [Swapchain].
type SwapchainConfig struct {

	// Buffering is the number of frames in flight.
	Buffering int

	// PresentMode is the preferred present mode.
	PresentMode driver.PresentMode

	// ColorFormat is the preferred image format.
	ColorFormat driver.Format

	// Samples is the multisample count; a resolved color
	// attachment is made when it is above 1.
	Samples driver.SampleCount

	// DepthFormat is the format of the depth attachment,
	// or undefined for none.
	DepthFormat driver.Format

	// ClearColor is the color that rendering clears to.
	ClearColor [4]float32
}

// frameSync has the synchronization objects of one frame slot.
type frameSync struct {
	imageAcquired  driver.Semaphore
	renderFinished driver.Semaphore
	inFlight       driver.Fence
}

// attachment is a swapchain sized image with a view.
type attachment struct {
	image driver.Image
	view  driver.ImageView
}

// Swapchain manages the presentable images of a window surface, the
// attachments rendered into before presentation, and the pacing of
// up to Buffering frames in flight. Each frame slot has its own
// semaphores and fence, and the CPU waits on the slot's fence before
// reusing it. The whole swapchain is rebuilt when it no longer matches
// the surface.
type Swapchain struct {
	Config SwapchainConfig

	// Format is the actual image format.
	Format driver.SurfaceFormat

	// PresentMode is the actual present mode.
	PresentMode driver.PresentMode

	// Extent is the size of the images.
	Extent driver.Extent2D

	// Recreations counts the rebuilds since creation.
	Recreations int

	dev     *Device
	cmds    *CmdPool
	surface WindowSurface

	native driver.Swapchain
	images []driver.Image
	views  []driver.ImageView
	sync   []frameSync
	color  attachment
	depth  attachment

	slot int

	// current is the frame between BeginFrame and EndFrame.
	current  Frame
	inFrame  bool
	outdated bool
}

// NewSwapchain returns a new swapchain for the surface. The command
// pool is used for attachment layout transitions.
func NewSwapchain(dev *Device, cmds *CmdPool, surface WindowSurface, cfg SwapchainConfig) (*Swapchain, error) {
	if cfg.Buffering < 1 {
		return nil, preconditionf("make swapchain: buffering must be at least 1, got %d", cfg.Buffering)
	}
	if cfg.Samples < 1 {
		cfg.Samples = 1
	}
	sc := &Swapchain{Config: cfg, dev: dev, cmds: cmds, surface: surface}
	if sz := surface.PixelSize(); sz.X <= 0 || sz.Y <= 0 {
		return nil, preconditionf("make swapchain: surface has zero size %v", sz)
	}
	if err := sc.build(); err != nil {
		sc.Destroy()
		return nil, opError("make swapchain", err)
	}
	return sc, nil
}

// Slot returns the frame slot that the next frame will use.
func (sc *Swapchain) Slot() int {
	return sc.slot
}

// NumImages returns the number of presentable images.
func (sc *Swapchain) NumImages() int {
	return len(sc.images)
}

// Outdated returns whether a rebuild is pending, because
// the surface had a zero size when one was needed.
func (sc *Swapchain) Outdated() bool {
	return sc.outdated
}

// chooseFormat returns the preferred format in the sRGB color space,
// or the first supported one.
func chooseFormat(formats []driver.SurfaceFormat, want driver.Format) (driver.SurfaceFormat, error) {
	if len(formats) == 0 {
		return driver.SurfaceFormat{}, errors.New("surface has no pixel formats")
	}
	if len(formats) == 1 && formats[0].Format == driver.FormatUndefined {
		return driver.SurfaceFormat{Format: want, ColorSpace: formats[0].ColorSpace}, nil
	}
	for _, f := range formats {
		if f.Format == want && f.ColorSpace == driver.ColorSpaceSrgbNonlinear {
			return f, nil
		}
	}
	return formats[0], nil
}

// choosePresentMode returns the preferred mode if supported, else FIFO,
// which is always supported.
func choosePresentMode(modes []driver.PresentMode, want driver.PresentMode) driver.PresentMode {
	for _, m := range modes {
		if m == want {
			return m
		}
	}
	return driver.PresentFifo
}

// chooseExtent returns the surface's current extent, or the window size
// clamped to the surface limits when the swapchain determines it.
func chooseExtent(caps driver.SurfaceCapabilities, size image.Point) driver.Extent2D {
	if caps.CurrentExtent.Width != math.MaxUint32 {
		return caps.CurrentExtent
	}
	clamp := func(v int, lo, hi uint32) uint32 {
		return min(max(uint32(max(v, 0)), lo), hi)
	}
	return driver.Extent2D{
		Width:  clamp(size.X, caps.MinExtent.Width, caps.MaxExtent.Width),
		Height: clamp(size.Y, caps.MinExtent.Height, caps.MaxExtent.Height),
	}
}

// build makes the swapchain and everything that depends on it,
// replacing any existing native swapchain.
func (sc *Swapchain) build() error {
	nd := sc.dev.Native
	caps, err := nd.SurfaceCapabilities(sc.surface.NativeSurface())
	if err != nil {
		return err
	}
	sc.Format, err = chooseFormat(caps.Formats, sc.Config.ColorFormat)
	if err != nil {
		return err
	}
	sc.PresentMode = choosePresentMode(caps.PresentModes, sc.Config.PresentMode)
	sc.Extent = chooseExtent(caps, sc.surface.PixelSize())
	if sc.Extent.IsZero() {
		return errors.New("surface extent is zero")
	}
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}

	old := sc.native
	sc.native, sc.images, err = nd.CreateSwapchain(driver.SwapchainDesc{
		Surface:       sc.surface.NativeSurface(),
		MinImageCount: count,
		Format:        sc.Format,
		Extent:        sc.Extent,
		PresentMode:   sc.PresentMode,
		Old:           old,
	})
	if old != nil {
		nd.DestroySwapchain(old)
	}
	if err != nil {
		sc.native = nil
		return err
	}
	if Debug {
		slog.Info("vhal: swapchain", "extent", sc.Extent, "images", len(sc.images), "format", sc.Format.Format, "present", sc.PresentMode)
	}

	for _, img := range sc.images {
		v, err := nd.CreateImageView(driver.ImageViewDesc{Image: img, Format: sc.Format.Format, Aspect: driver.AspectColor, MipLevels: 1})
		if err != nil {
			return err
		}
		sc.views = append(sc.views, v)
	}
	for range sc.Config.Buffering {
		var fs frameSync
		fs.imageAcquired, err = nd.CreateSemaphore()
		if err == nil {
			fs.renderFinished, err = nd.CreateSemaphore()
		}
		if err == nil {
			fs.inFlight, err = nd.CreateFence(true)
		}
		sc.sync = append(sc.sync, fs)
		if err != nil {
			return err
		}
	}
	return sc.buildAttachments()
}

// buildAttachments makes the multisampled color and depth attachments.
func (sc *Swapchain) buildAttachments() error {
	ext := driver.Extent3D{Width: sc.Extent.Width, Height: sc.Extent.Height, Depth: 1}
	if sc.Config.Samples > 1 {
		err := sc.makeAttachment(&sc.color, driver.ImageDesc{Type: driver.ImageColorAttachment, Extent: ext,
			Format: sc.Format.Format, MipLevels: 1, Samples: sc.Config.Samples}, driver.AspectColor)
		if err != nil {
			return err
		}
	}
	if sc.Config.DepthFormat == driver.FormatUndefined {
		return nil
	}
	aspect := depthAspect(sc.Config.DepthFormat)
	err := sc.makeAttachment(&sc.depth, driver.ImageDesc{Type: driver.ImageDepthAttachment, Extent: ext,
		Format: sc.Config.DepthFormat, MipLevels: 1, Samples: sc.Config.Samples}, aspect)
	if err != nil {
		return err
	}
	return sc.cmds.OneTime(func(cb CommandBuffer) error {
		ncb, err := sc.cmds.recording(cb)
		if err != nil {
			return err
		}
		bar, err := layoutBarrier(sc.depth.image, driver.LayoutUndefined, driver.LayoutDepthStencilAttachment, aspect, 1)
		if err != nil {
			return err
		}
		ncb.PipelineBarrier(bar)
		return nil
	})
}

func (sc *Swapchain) makeAttachment(at *attachment, desc driver.ImageDesc, aspect driver.ImageAspect) error {
	nd := sc.dev.Native
	img, err := nd.CreateImage(desc)
	if err != nil {
		return err
	}
	at.image = img
	at.view, err = nd.CreateImageView(driver.ImageViewDesc{Image: img, Format: desc.Format, Aspect: aspect &^ driver.AspectStencil, MipLevels: 1})
	return err
}

// depthAspect returns the aspects of a depth format.
func depthAspect(f driver.Format) driver.ImageAspect {
	if f.HasStencil() {
		return driver.AspectDepth | driver.AspectStencil
	}
	return driver.AspectDepth
}

// destroyFrames destroys everything made by build except
// the native swapchain, which build replaces.
func (sc *Swapchain) destroyFrames() {
	nd := sc.dev.Native
	for _, at := range []*attachment{&sc.color, &sc.depth} {
		if at.view != nil {
			nd.DestroyImageView(at.view)
		}
		if at.image != nil {
			nd.DestroyImage(at.image)
		}
		*at = attachment{}
	}
	for _, fs := range sc.sync {
		if fs.imageAcquired != nil {
			nd.DestroySemaphore(fs.imageAcquired)
		}
		if fs.renderFinished != nil {
			nd.DestroySemaphore(fs.renderFinished)
		}
		if fs.inFlight != nil {
			nd.DestroyFence(fs.inFlight)
		}
	}
	sc.sync = nil
	for _, v := range sc.views {
		nd.DestroyImageView(v)
	}
	sc.views = nil
	sc.images = nil
}

// Recreate rebuilds the swapchain against the current size of the
// surface. While the surface has a zero size the rebuild is deferred,
// and [Swapchain.Outdated] reports true.
func (sc *Swapchain) Recreate() error {
	if sz := sc.surface.PixelSize(); sz.X <= 0 || sz.Y <= 0 {
		if Debug {
			slog.Info("vhal: swapchain rebuild deferred for zero size surface")
		}
		sc.outdated = true
		return nil
	}
	if err := sc.dev.WaitIdle(); err != nil {
		return err
	}
	sc.destroyFrames()
	sc.inFrame = false
	if err := sc.build(); err != nil {
		sc.outdated = true
		return opError("recreate swapchain", err)
	}
	sc.outdated = false
	sc.Recreations++
	return nil
}

// Destroy waits for the device and destroys the swapchain.
func (sc *Swapchain) Destroy() {
	if sc.dev == nil {
		return
	}
	sc.dev.WaitIdle()
	sc.destroyFrames()
	if sc.native != nil {
		sc.dev.Native.DestroySwapchain(sc.native)
		sc.native = nil
	}
	sc.dev = nil
}
