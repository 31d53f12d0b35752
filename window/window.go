// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !offscreen && ((darwin && !ios) || windows || (linux && !android) || dragonfly || openbsd)

// Package window provides a glfw desktop window that can be presented to
// through the Vulkan driver.
package window

import (
	"image"
	"log/slog"

	"cogentcore.org/core/base/errors"
	"cogentcore.org/vhal/driver"
	"cogentcore.org/vhal/driver/vulkan"
	"cogentcore.org/vhal/hal"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
)

// Window is a glfw window with a Vulkan surface. It implements
// [hal.WindowSurface]. All methods must be called on the main thread.
type Window struct {

	// Glfw is the underlying window.
	Glfw *glfw.Window

	// Surface is the Vulkan surface, set by [Window.CreateSurface].
	Surface vk.Surface

	// OnResize, if set, is called with the new framebuffer size.
	OnResize func(size image.Point)

	instance *vulkan.Instance
}

var _ hal.WindowSurface = (*Window)(nil)

// New makes a resizable window without a client API, for Vulkan
// rendering. [vulkan.Init] must have been called.
func New(size image.Point, title string) (*Window, error) {
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	gw, err := glfw.CreateWindow(size.X, size.Y, title, nil, nil)
	if err != nil {
		return nil, errors.Log(err)
	}
	w := &Window{Glfw: gw}
	gw.SetFramebufferSizeCallback(func(gw *glfw.Window, width, height int) {
		slog.Debug("window: framebuffer resized", "width", width, "height", height)
		if w.OnResize != nil {
			w.OnResize(image.Point{width, height})
		}
	})
	return w, nil
}

// InstanceExtensions returns the instance extensions needed to present
// to this window, for [vulkan.NewInstance].
func (w *Window) InstanceExtensions() []string {
	return w.Glfw.GetRequiredInstanceExtensions()
}

// CreateSurface creates the Vulkan surface of the window on the instance.
func (w *Window) CreateSurface(in *vulkan.Instance) error {
	ptr, err := w.Glfw.CreateWindowSurface(in.Instance, nil)
	if err != nil {
		return errors.Log(err)
	}
	w.Surface = vk.SurfaceFromPointer(ptr)
	w.instance = in
	return nil
}

// PixelSize returns the framebuffer size, which is zero when minimized.
func (w *Window) PixelSize() image.Point {
	width, height := w.Glfw.GetFramebufferSize()
	return image.Point{width, height}
}

func (w *Window) NativeSurface() driver.Surface {
	return w.Surface
}

// PollEvents processes pending events and returns false once the
// window has been asked to close.
func (w *Window) PollEvents() bool {
	if w.Glfw.ShouldClose() {
		return false
	}
	glfw.PollEvents()
	return true
}

// Destroy destroys the surface and the window. Anything presenting to
// the surface must be destroyed first.
func (w *Window) Destroy() {
	if w.instance != nil && w.Surface != vk.NullSurface {
		w.instance.DestroySurface(w.Surface)
		w.Surface = vk.NullSurface
	}
	w.Glfw.Destroy()
}
