// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package soft

import (
	"testing"

	"cogentcore.org/vhal/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ driver.Device = (*Device)(nil)

func record(t *testing.T, d *Device, fun func(cb driver.CommandBuffer)) (driver.CommandBuffer, error) {
	t.Helper()
	pool, err := d.CreateCommandPool(true)
	require.NoError(t, err)
	cbs, err := d.AllocateCommandBuffers(pool, 1)
	require.NoError(t, err)
	cb := cbs[0]
	require.NoError(t, cb.Begin(true))
	fun(cb)
	require.NoError(t, cb.End())
	return cb, d.Queue().Submit(driver.SubmitInfo{CommandBuffers: cbs}, nil)
}

func TestBarrierLayoutValidation(t *testing.T) {
	d := NewDevice()
	img, err := d.CreateImage(driver.ImageDesc{Extent: driver.Extent3D{Width: 4, Height: 4, Depth: 1},
		Format: driver.FormatR8G8B8A8Unorm, MipLevels: 1, Samples: 1})
	require.NoError(t, err)
	_, err = record(t, d, func(cb driver.CommandBuffer) {
		cb.PipelineBarrier(driver.ImageBarrier{Image: img, OldLayout: driver.LayoutTransferDst,
			NewLayout: driver.LayoutShaderReadOnly, Aspect: driver.AspectColor, MipCount: 1})
	})
	assert.ErrorContains(t, err, "barrier from TransferDst")

	_, err = record(t, d, func(cb driver.CommandBuffer) {
		cb.PipelineBarrier(driver.ImageBarrier{Image: img, NewLayout: driver.LayoutTransferDst, Aspect: driver.AspectColor, MipCount: 1})
	})
	require.NoError(t, err)
	assert.Equal(t, driver.LayoutTransferDst, img.(*Image).Layouts[0])
}

func TestOneTimeBufferInvalidAfterSubmit(t *testing.T) {
	d := NewDevice()
	cb, err := record(t, d, func(cb driver.CommandBuffer) {})
	require.NoError(t, err)
	err = d.Queue().Submit(driver.SubmitInfo{CommandBuffers: []driver.CommandBuffer{cb}}, nil)
	assert.Error(t, err)
}

func TestRecordOutsideBegin(t *testing.T) {
	d := NewDevice()
	pool, _ := d.CreateCommandPool(false)
	cbs, _ := d.AllocateCommandBuffers(pool, 1)
	cbs[0].EndRendering()
	require.NoError(t, cbs[0].Begin(false))
	assert.NoError(t, cbs[0].End())
	assert.NoError(t, cbs[0].Begin(false))
	cbs[0].EndRendering()
	assert.NoError(t, cbs[0].End())
	assert.ErrorContains(t, d.Queue().Submit(driver.SubmitInfo{CommandBuffers: cbs}, nil), "EndRendering without BeginRendering")
}

func TestSubmitSync(t *testing.T) {
	d := NewDevice()
	sem, _ := d.CreateSemaphore()
	fence, _ := d.CreateFence(false)
	q := d.Queue()

	err := q.Submit(driver.SubmitInfo{Wait: []driver.Semaphore{sem}, WaitStages: []driver.PipelineStages{driver.StageTransfer}}, nil)
	assert.Error(t, err)

	require.NoError(t, q.Submit(driver.SubmitInfo{Signal: []driver.Semaphore{sem}}, fence))
	assert.True(t, d.FenceSignaled(fence))
	assert.Equal(t, driver.Success, d.WaitFence(fence, driver.WaitForever))
	assert.Error(t, q.Submit(driver.SubmitInfo{}, fence))

	require.NoError(t, d.ResetFence(fence))
	assert.Equal(t, driver.Timeout, d.WaitFence(fence, 0))
	require.NoError(t, q.Submit(driver.SubmitInfo{Wait: []driver.Semaphore{sem},
		WaitStages: []driver.PipelineStages{driver.StageTransfer}}, fence))
	assert.False(t, sem.(*Semaphore).Signaled)
}

func TestSwapchainScript(t *testing.T) {
	d := NewDevice()
	s := NewSurface(8, 8)
	sc, imgs, err := d.CreateSwapchain(driver.SwapchainDesc{Surface: s, MinImageCount: 2,
		Format: s.Formats[0], Extent: driver.Extent2D{Width: 8, Height: 8}, PresentMode: driver.PresentFifo})
	require.NoError(t, err)
	assert.Len(t, imgs, 2)
	sem, _ := d.CreateSemaphore()

	s.ScriptAcquire(driver.ErrorOutOfDate)
	_, r := d.AcquireNextImage(sc, driver.WaitForever, sem)
	assert.Equal(t, driver.ErrorOutOfDate, r)
	assert.False(t, sem.(*Semaphore).Signaled)

	idx, r := d.AcquireNextImage(sc, driver.WaitForever, sem)
	assert.Equal(t, driver.Success, r)
	assert.Equal(t, uint32(0), idx)
	assert.True(t, sem.(*Semaphore).Signaled)

	s.Resize(4, 4)
	r = d.Queue().Present(driver.PresentInfo{Swapchain: sc, ImageIndex: idx, Wait: []driver.Semaphore{sem}})
	assert.Equal(t, driver.ErrorOutOfDate, r)
	// the image was never transitioned for presentation
	assert.Len(t, d.Errors, 1)
}

func TestDoubleDestroyPanics(t *testing.T) {
	d := NewDevice()
	b, err := d.CreateBuffer(driver.BufferDesc{Size: 4, Usage: driver.BufferStaging})
	require.NoError(t, err)
	d.DestroyBuffer(b)
	assert.Panics(t, func() { d.DestroyBuffer(b) })
	assert.Equal(t, 0, d.LiveTotal())
}

func TestDepthFormatPreference(t *testing.T) {
	d := NewDevice()
	d.DepthFormats = []driver.Format{driver.FormatD24UnormS8Uint, driver.FormatD32SfloatS8Uint}
	f, err := d.FindDepthFormat()
	require.NoError(t, err)
	assert.Equal(t, driver.FormatD32SfloatS8Uint, f)
	d.DepthFormats = nil
	_, err = d.FindDepthFormat()
	assert.Error(t, err)
}
