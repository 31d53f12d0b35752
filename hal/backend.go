// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hal

import (
	"log/slog"

	"cogentcore.org/core/base/errors"
	"cogentcore.org/vhal/driver"
)

// Backend is the facade through which a renderer uses the GPU. Its
// methods fall in three groups: resource creation (resource.go), host
// side operations (host.go) and command recording (command.go).
// A Backend is used from a single goroutine.
type Backend struct {
	Options *Options

	// Device is the device that the backend was made with.
	Device *Device

	// Cmds is the pool for all command buffers.
	Cmds *CmdPool

	registries

	queue       Queue
	sampleCount driver.SampleCount
	depthFormat driver.Format
	colorFormat driver.Format
	presentMode driver.PresentMode
}

// NewBackend returns a new Backend on the given device, which must
// outlive it.
// Nil options are the defaults.
func NewBackend(dev driver.Device, opts *Options) (*Backend, error) {
	if opts == nil {
		opts = NewOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, opError("make backend", err)
	}
	be := &Backend{Options: opts, Device: NewDevice(dev)}
	be.colorFormat = errors.Log1(driver.ParseFormat(opts.ColorFormat))
	be.presentMode = errors.Log1(driver.ParsePresentMode(opts.PresentMode))
	be.sampleCount = 1
	for sc := driver.SampleCount(2); sc <= dev.MaxSampleCount() && int(sc) <= opts.MaxSamples; sc *= 2 {
		be.sampleCount = sc
	}
	if opts.Depth {
		df, err := dev.FindDepthFormat()
		if err != nil {
			return nil, opError("make backend", err)
		}
		be.depthFormat = df
	}
	var err error
	be.Cmds, err = NewCmdPool(be.Device)
	if err != nil {
		return nil, err
	}
	be.registries.setup(be.Device)
	be.queue = be.queues.Add(be.Device.Queue)
	if Debug {
		slog.Info("vhal: backend", "samples", be.sampleCount, "depth", be.depthFormat, "buffering", opts.Buffering)
	}
	return be, nil
}

// Queue returns the handle of the graphics queue.
func (be *Backend) Queue() Queue {
	return be.queue
}

// WaitIdle blocks until the device has completed all work.
func (be *Backend) WaitIdle() error {
	return be.Device.WaitIdle()
}

// Destroy waits for the device and destroys the command pool and the
// queue handle. All other handles must be released before, and the
// native device is destroyed by its creator.
func (be *Backend) Destroy() {
	errors.Log(be.WaitIdle())
	be.queue.Release()
	be.Cmds.Destroy()
}
