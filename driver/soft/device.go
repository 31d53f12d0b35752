// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package soft is a headless, in-memory implementation of the
// [driver.Device] contract. Commands are recorded as closures and
// replayed when submitted, so submission is synchronous and every
// fence is signaled by the time Submit returns. It validates image
// layouts, command buffer states and synchronization primitives the way
// the Vulkan validation layers would, which makes it suitable for testing
// the hal package without a GPU.
package soft

import (
	"fmt"
	"slices"

	"cogentcore.org/vhal/driver"
)

// Device is a software [driver.Device].
type Device struct {

	// MaxSamples is returned by MaxSampleCount.
	MaxSamples driver.SampleCount

	// DepthFormats are the depth attachment formats the device supports.
	DepthFormats []driver.Format

	// Trace enables recording of synchronization calls in Calls.
	Trace bool

	// Calls is the trace of synchronization calls, when Trace is on.
	Calls []string

	// Errors are validation errors detected in calls that
	// cannot return an error.
	Errors []error

	// Draws is the total number of indexed draws executed.
	Draws int

	// Presents is the total number of images presented.
	Presents int

	queue     *Queue
	live      map[string]int
	destroyed bool
}

// NewDevice returns a new software device supporting 4x multisampling
// and all depth formats.
func NewDevice() *Device {
	d := &Device{
		MaxSamples:   4,
		DepthFormats: []driver.Format{driver.FormatD32Sfloat, driver.FormatD32SfloatS8Uint, driver.FormatD24UnormS8Uint},
		live:         map[string]int{},
	}
	d.queue = &Queue{dev: d}
	return d
}

// Live returns the number of live objects of the given kind,
// e.g. "buffer", "image", "fence".
func (d *Device) Live(kind string) int {
	return d.live[kind]
}

// LiveTotal returns the total number of live objects.
func (d *Device) LiveTotal() int {
	n := 0
	for _, c := range d.live {
		n += c
	}
	return n
}

// ResetTrace clears the recorded calls.
func (d *Device) ResetTrace() {
	d.Calls = d.Calls[:0]
}

func (d *Device) trace(format string, args ...any) {
	if d.Trace {
		d.Calls = append(d.Calls, fmt.Sprintf(format, args...))
	}
}

func (d *Device) invalid(format string, args ...any) {
	d.Errors = append(d.Errors, fmt.Errorf("soft: "+format, args...))
}

func (d *Device) created(kind string) {
	d.live[kind]++
}

// release marks an object as destroyed, panicking on a double destroy
// since that is always a bug in the caller.
func (d *Device) release(kind string, dead *bool) {
	if *dead {
		panic("soft: " + kind + " destroyed twice")
	}
	*dead = true
	d.live[kind]--
}

func (d *Device) Queue() driver.Queue {
	return d.queue
}

func (d *Device) QueueFamily() uint32 {
	return 0
}

func (d *Device) MaxSampleCount() driver.SampleCount {
	return d.MaxSamples
}

func (d *Device) FindDepthFormat() (driver.Format, error) {
	for _, f := range []driver.Format{driver.FormatD32Sfloat, driver.FormatD32SfloatS8Uint, driver.FormatD24UnormS8Uint} {
		if slices.Contains(d.DepthFormats, f) {
			return f, nil
		}
	}
	return driver.FormatUndefined, fmt.Errorf("soft: no supported depth format")
}

func (d *Device) WaitIdle() error {
	d.trace("WaitIdle")
	return nil
}

func (d *Device) Destroy() {
	if d.LiveTotal() != 0 {
		d.invalid("device destroyed with %d live objects: %v", d.LiveTotal(), d.live)
	}
	d.destroyed = true
}
