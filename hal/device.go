// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hal

import (
	"cogentcore.org/vhal/driver"
)

// Device holds the native logical device and its graphics queue,
// which is also used for presentation.
type Device struct {

	// Native is the driver device.
	Native driver.Device

	// Queue is the graphics + present queue.
	Queue driver.Queue

	// QueueFamily is the index of the queue family of Queue.
	QueueFamily uint32
}

// NewDevice returns a new Device for the given driver device.
func NewDevice(dev driver.Device) *Device {
	return &Device{Native: dev, Queue: dev.Queue(), QueueFamily: dev.QueueFamily()}
}

// WaitIdle blocks until all work on the device has completed.
func (dv *Device) WaitIdle() error {
	return opError("device wait idle", dv.Native.WaitIdle())
}

// waitFence waits forever on the fence; a result other than
// success means the device was lost.
func (dv *Device) waitFence(f driver.Fence) error {
	if r := dv.Native.WaitFence(f, driver.WaitForever); r != driver.Success {
		return opError("wait fence", &driver.ResultError{Result: r})
	}
	return nil
}

// Destroy destroys the native device.
func (dv *Device) Destroy() {
	if dv.Native == nil {
		return
	}
	dv.Native.Destroy()
	dv.Native = nil
	dv.Queue = nil
}
