// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vulkan

import (
	"cogentcore.org/vhal/driver"
	vk "github.com/goki/vulkan"
)

// Queue is the device's graphics and present queue.
type Queue struct {
	dev   *Device
	Queue vk.Queue
}

func (dv *Device) CreateFence(signaled bool) (driver.Fence, error) {
	var flags vk.FenceCreateFlagBits
	if signaled {
		flags = vk.FenceCreateSignaledBit
	}
	var f vk.Fence
	ret := vk.CreateFence(dv.Device, &vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(flags),
	}, nil, &f)
	if err := NewError(ret); err != nil {
		return nil, err
	}
	return f, nil
}

func (dv *Device) DestroyFence(f driver.Fence) {
	vk.DestroyFence(dv.Device, f.(vk.Fence), nil)
}

func (dv *Device) WaitFence(f driver.Fence, timeout uint64) driver.Result {
	return toResult(vk.WaitForFences(dv.Device, 1, []vk.Fence{f.(vk.Fence)}, vk.True, timeout))
}

func (dv *Device) ResetFence(f driver.Fence) error {
	return NewError(vk.ResetFences(dv.Device, 1, []vk.Fence{f.(vk.Fence)}))
}

func (dv *Device) FenceSignaled(f driver.Fence) bool {
	return vk.GetFenceStatus(dv.Device, f.(vk.Fence)) == vk.Success
}

func (dv *Device) CreateSemaphore() (driver.Semaphore, error) {
	var s vk.Semaphore
	ret := vk.CreateSemaphore(dv.Device, &vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}, nil, &s)
	if err := NewError(ret); err != nil {
		return nil, err
	}
	return s, nil
}

func (dv *Device) DestroySemaphore(s driver.Semaphore) {
	vk.DestroySemaphore(dv.Device, s.(vk.Semaphore), nil)
}

func semaphores(ss []driver.Semaphore) []vk.Semaphore {
	vs := make([]vk.Semaphore, len(ss))
	for i, s := range ss {
		vs[i] = s.(vk.Semaphore)
	}
	return vs
}

func (q *Queue) Submit(batch driver.SubmitInfo, fence driver.Fence) error {
	cbs := make([]vk.CommandBuffer, len(batch.CommandBuffers))
	for i, c := range batch.CommandBuffers {
		cbs[i] = c.(*CommandBuffer).Buffer
	}
	stages := make([]vk.PipelineStageFlags, len(batch.WaitStages))
	for i, s := range batch.WaitStages {
		stages[i] = pipelineStages(s)
	}
	vf := vk.NullFence
	if fence != nil {
		vf = fence.(vk.Fence)
	}
	ret := vk.QueueSubmit(q.Queue, 1, []vk.SubmitInfo{{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(batch.Wait)),
		PWaitSemaphores:      semaphores(batch.Wait),
		PWaitDstStageMask:    stages,
		CommandBufferCount:   uint32(len(cbs)),
		PCommandBuffers:      cbs,
		SignalSemaphoreCount: uint32(len(batch.Signal)),
		PSignalSemaphores:    semaphores(batch.Signal),
	}}, vf)
	return NewError(ret)
}

func (q *Queue) Present(info driver.PresentInfo) driver.Result {
	ret := vk.QueuePresent(q.Queue, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(info.Wait)),
		PWaitSemaphores:    semaphores(info.Wait),
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{info.Swapchain.(*Swapchain).Swapchain},
		PImageIndices:      []uint32{info.ImageIndex},
	})
	return toResult(ret)
}

func (q *Queue) WaitIdle() error {
	return NewError(vk.QueueWaitIdle(q.Queue))
}
