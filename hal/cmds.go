// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hal

import (
	"fmt"

	"cogentcore.org/core/base/errors"
	"cogentcore.org/vhal/driver"
	"cogentcore.org/vhal/resource"
)

// CmdMode is whether a command buffer is submitted once or can be
// submitted repeatedly. It is fixed when recording begins.
type CmdMode int32

const (
	// OneTime buffers are consumed by their submission.
	OneTime CmdMode = iota

	// Reusable buffers can be submitted again until re-recorded.
	Reusable
)

// CmdState is the recording state of a command buffer.
type CmdState int32

const (
	NotRecording CmdState = iota
	Recording
	Recorded

	// Consumed is a submitted [OneTime] buffer.
	Consumed
)

func (cs CmdState) String() string {
	switch cs {
	case NotRecording:
		return "NotRecording"
	case Recording:
		return "Recording"
	case Recorded:
		return "Recorded"
	case Consumed:
		return "Consumed"
	}
	return fmt.Sprintf("CmdState(%d)", int32(cs))
}

type commandBuffer struct {
	native driver.CommandBuffer
	state  CmdState
	mode   CmdMode
}

// CmdPool is a command pool on the graphics queue family that owns
// the registry of its command buffers. Submissions through the pool
// are synchronous: they wait for the work to complete.
type CmdPool struct {
	dev    *Device
	native driver.CommandPool

	// fence is signaled by synchronous submits.
	fence driver.Fence

	// Buffers is the registry of command buffers made by this pool.
	Buffers *resource.Map[commandBufferTag, *commandBuffer]

	destroyed bool
}

// NewCmdPool returns a new command pool on the given device.
func NewCmdPool(dev *Device) (*CmdPool, error) {
	cp := &CmdPool{dev: dev}
	var err error
	cp.native, err = dev.Native.CreateCommandPool(false)
	if err != nil {
		return nil, opError("make command pool", err)
	}
	cp.fence, err = dev.Native.CreateFence(false)
	if err != nil {
		dev.Native.DestroyCommandPool(cp.native)
		return nil, opError("make command pool", err)
	}
	cp.Buffers = resource.NewMap[commandBufferTag]("command buffers", func(cb *commandBuffer) {
		// destroying the pool has already freed every buffer
		if !cp.destroyed {
			dev.Native.FreeCommandBuffers(cp.native, cb.native)
		}
	})
	return cp, nil
}

// MakeBuffers allocates count primary command buffers.
func (cp *CmdPool) MakeBuffers(count int) ([]CommandBuffer, error) {
	if cp.destroyed {
		return nil, invalidStatef("make command buffers from a destroyed pool")
	}
	if count < 1 {
		return nil, preconditionf("make command buffers: count must be at least 1, got %d", count)
	}
	natives, err := cp.dev.Native.AllocateCommandBuffers(cp.native, count)
	if err != nil {
		return nil, opError("make command buffers", err)
	}
	cbs := make([]CommandBuffer, count)
	for i, n := range natives {
		cbs[i] = cp.Buffers.Add(&commandBuffer{native: n})
	}
	return cbs, nil
}

func (cp *CmdPool) get(cb CommandBuffer) (*commandBuffer, error) {
	if cp.destroyed {
		return nil, invalidStatef("use of a command buffer from a destroyed pool")
	}
	return cp.Buffers.Get(cb)
}

// State returns the recording state of the command buffer.
func (cp *CmdPool) State(cb CommandBuffer) (CmdState, error) {
	c, err := cp.get(cb)
	if err != nil {
		return NotRecording, err
	}
	return c.state, nil
}

// recording returns the native buffer, which must be recording.
func (cp *CmdPool) recording(cb CommandBuffer) (driver.CommandBuffer, error) {
	c, err := cp.get(cb)
	if err != nil {
		return nil, err
	}
	if c.state != Recording {
		return nil, invalidStatef("%v is %v, not Recording", cb, c.state)
	}
	return c.native, nil
}

// Begin resets the command buffer and begins recording in the given mode.
func (cp *CmdPool) Begin(cb CommandBuffer, mode CmdMode) error {
	c, err := cp.get(cb)
	if err != nil {
		return err
	}
	if c.state == Recording {
		return invalidStatef("begin %v, which is already Recording", cb)
	}
	if err := c.native.Begin(mode == OneTime); err != nil {
		return opError("begin command buffer", err)
	}
	c.state = Recording
	c.mode = mode
	return nil
}

// End ends recording.
func (cp *CmdPool) End(cb CommandBuffer) error {
	c, err := cp.get(cb)
	if err != nil {
		return err
	}
	if c.state != Recording {
		return invalidStatef("end %v, which is %v", cb, c.state)
	}
	if err := c.native.End(); err != nil {
		c.state = NotRecording
		return opError("end command buffer", err)
	}
	c.state = Recorded
	return nil
}

// Submit submits the recorded command buffer on the device queue and
// waits for it to complete. A [OneTime] buffer is then Consumed.
func (cp *CmdPool) Submit(cb CommandBuffer) error {
	c, err := cp.get(cb)
	if err != nil {
		return err
	}
	if c.state != Recorded {
		return invalidStatef("submit %v, which is %v", cb, c.state)
	}
	err = cp.dev.Queue.Submit(driver.SubmitInfo{CommandBuffers: []driver.CommandBuffer{c.native}}, cp.fence)
	if err != nil {
		return opError("submit command buffer", err)
	}
	err = cp.dev.waitFence(cp.fence)
	errors.Log(cp.dev.Native.ResetFence(cp.fence))
	if err != nil {
		return err
	}
	if c.mode == OneTime {
		c.state = Consumed
	}
	return nil
}

// OneTime records commands with fun into a new one-time command buffer,
// submits it, waits for completion, and frees it.
func (cp *CmdPool) OneTime(fun func(cb CommandBuffer) error) error {
	cbs, err := cp.MakeBuffers(1)
	if err != nil {
		return err
	}
	cb := cbs[0]
	defer cb.Release()
	if err := cp.Begin(cb, OneTime); err != nil {
		return err
	}
	if err := fun(cb); err != nil {
		// close recording so the buffer is not freed while recording
		cp.End(cb)
		return err
	}
	if err := cp.End(cb); err != nil {
		return err
	}
	return cp.Submit(cb)
}

// Destroy destroys the pool, which frees all of its buffers.
// Command buffer refs may still be released afterward.
func (cp *CmdPool) Destroy() {
	if cp.destroyed {
		return
	}
	cp.destroyed = true
	cp.dev.Native.DestroyFence(cp.fence)
	cp.dev.Native.DestroyCommandPool(cp.native)
}
