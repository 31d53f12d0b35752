// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vulkan

import (
	"errors"
	"fmt"
	"unsafe"

	"cogentcore.org/vhal/driver"
	vk "github.com/goki/vulkan"
)

// CommandPool is a command pool whose buffers can be reset individually.
type CommandPool struct {
	Pool vk.CommandPool
}

// CommandBuffer is a primary command buffer. Recording errors that the
// native API cannot report are collected and returned by End.
type CommandBuffer struct {
	dev    *Device
	Buffer vk.CommandBuffer
	err    error
}

var _ driver.CommandBuffer = (*CommandBuffer)(nil)

func (dv *Device) CreateCommandPool(transient bool) (driver.CommandPool, error) {
	flags := vk.CommandPoolCreateResetCommandBufferBit
	if transient {
		flags |= vk.CommandPoolCreateTransientBit
	}
	cp := &CommandPool{}
	ret := vk.CreateCommandPool(dv.Device, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: dv.family,
		Flags:            vk.CommandPoolCreateFlags(flags),
	}, nil, &cp.Pool)
	if err := NewError(ret); err != nil {
		return nil, err
	}
	return cp, nil
}

func (dv *Device) DestroyCommandPool(p driver.CommandPool) {
	cp := p.(*CommandPool)
	if cp.Pool == vk.NullCommandPool {
		return
	}
	vk.DestroyCommandPool(dv.Device, cp.Pool, nil)
	cp.Pool = vk.NullCommandPool
}

func (dv *Device) AllocateCommandBuffers(pool driver.CommandPool, count int) ([]driver.CommandBuffer, error) {
	if count < 1 {
		return nil, fmt.Errorf("vulkan: invalid command buffer count %d", count)
	}
	bufs := make([]vk.CommandBuffer, count)
	ret := vk.AllocateCommandBuffers(dv.Device, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool.(*CommandPool).Pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(count),
	}, bufs)
	if err := NewError(ret); err != nil {
		return nil, err
	}
	cbs := make([]driver.CommandBuffer, count)
	for i, b := range bufs {
		cbs[i] = &CommandBuffer{dev: dv, Buffer: b}
	}
	return cbs, nil
}

func (dv *Device) FreeCommandBuffers(pool driver.CommandPool, bufs ...driver.CommandBuffer) {
	if len(bufs) == 0 {
		return
	}
	vbs := make([]vk.CommandBuffer, len(bufs))
	for i, b := range bufs {
		vbs[i] = b.(*CommandBuffer).Buffer
	}
	vk.FreeCommandBuffers(dv.Device, pool.(*CommandPool).Pool, uint32(len(vbs)), vbs)
}

func (cb *CommandBuffer) Reset() error {
	cb.err = nil
	return NewError(vk.ResetCommandBuffer(cb.Buffer, 0))
}

func (cb *CommandBuffer) Begin(oneTime bool) error {
	cb.err = nil
	var flags vk.CommandBufferUsageFlagBits
	if oneTime {
		flags = vk.CommandBufferUsageOneTimeSubmitBit
	}
	return NewError(vk.BeginCommandBuffer(cb.Buffer, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(flags),
	}))
}

func (cb *CommandBuffer) End() error {
	ret := vk.EndCommandBuffer(cb.Buffer)
	if cb.err != nil {
		return cb.err
	}
	return NewError(ret)
}

func (cb *CommandBuffer) CopyBuffer(src, dst driver.Buffer, regions ...driver.BufferCopy) {
	vr := make([]vk.BufferCopy, len(regions))
	for i, r := range regions {
		vr[i] = vk.BufferCopy{SrcOffset: vk.DeviceSize(r.SrcOffset), DstOffset: vk.DeviceSize(r.DstOffset), Size: vk.DeviceSize(r.Size)}
	}
	vk.CmdCopyBuffer(cb.Buffer, src.(*Buffer).Buffer, dst.(*Buffer).Buffer, uint32(len(vr)), vr)
}

func (cb *CommandBuffer) CopyBufferToImage(src driver.Buffer, dst driver.Image, layout driver.ImageLayout, region driver.BufferImageCopy) {
	vk.CmdCopyBufferToImage(cb.Buffer, src.(*Buffer).Buffer, dst.(*Image).Image, layouts[layout], 1, []vk.BufferImageCopy{{
		BufferOffset: vk.DeviceSize(region.BufferOffset),
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: aspectFlags(region.Aspect),
			MipLevel:   uint32(region.MipLevel),
			LayerCount: 1,
		},
		ImageExtent: vk.Extent3D{Width: region.Extent.Width, Height: region.Extent.Height, Depth: max(region.Extent.Depth, 1)},
	}})
}

func (cb *CommandBuffer) PipelineBarrier(barriers ...driver.ImageBarrier) {
	for _, b := range barriers {
		vk.CmdPipelineBarrier(cb.Buffer, pipelineStages(b.SrcStage), pipelineStages(b.DstStage), 0, 0, nil, 0, nil,
			1, []vk.ImageMemoryBarrier{{
				SType:               vk.StructureTypeImageMemoryBarrier,
				SrcAccessMask:       accessFlags(b.SrcAccess),
				DstAccessMask:       accessFlags(b.DstAccess),
				OldLayout:           layouts[b.OldLayout],
				NewLayout:           layouts[b.NewLayout],
				SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
				DstQueueFamilyIndex: vk.QueueFamilyIgnored,
				Image:               b.Image.(*Image).Image,
				SubresourceRange: vk.ImageSubresourceRange{
					AspectMask:   aspectFlags(b.Aspect),
					BaseMipLevel: uint32(b.BaseMip),
					LevelCount:   uint32(b.MipCount),
					LayerCount:   1,
				},
			}})
	}
}

func (cb *CommandBuffer) BlitImage(img driver.Image, blit driver.ImageBlit) {
	im := img.(*Image).Image
	vk.CmdBlitImage(cb.Buffer, im, vk.ImageLayoutTransferSrcOptimal, im, vk.ImageLayoutTransferDstOptimal, 1, []vk.ImageBlit{{
		SrcSubresource: vk.ImageSubresourceLayers{AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit), MipLevel: uint32(blit.SrcMip), LayerCount: 1},
		SrcOffsets:     [2]vk.Offset3D{{}, {X: int32(blit.SrcExtent.Width), Y: int32(blit.SrcExtent.Height), Z: 1}},
		DstSubresource: vk.ImageSubresourceLayers{AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit), MipLevel: uint32(blit.DstMip), LayerCount: 1},
		DstOffsets:     [2]vk.Offset3D{{}, {X: int32(blit.DstExtent.Width), Y: int32(blit.DstExtent.Height), Z: 1}},
	}}, vk.FilterLinear)
}

func (cb *CommandBuffer) BindPipeline(p driver.Pipeline) {
	vk.CmdBindPipeline(cb.Buffer, vk.PipelineBindPointGraphics, p.(*Pipeline).Pipeline)
}

func (cb *CommandBuffer) BindDescriptorSets(p driver.Pipeline, first int, sets ...driver.DescriptorSet) {
	if len(sets) == 0 {
		return
	}
	vs := make([]vk.DescriptorSet, len(sets))
	for i, s := range sets {
		vs[i] = s.(vk.DescriptorSet)
	}
	vk.CmdBindDescriptorSets(cb.Buffer, vk.PipelineBindPointGraphics, p.(*Pipeline).Layout, uint32(first), uint32(len(vs)), vs, 0, nil)
}

func (cb *CommandBuffer) BindVertexBuffers(first int, bufs []driver.Buffer, offsets []int) {
	if len(bufs) != len(offsets) {
		cb.err = errors.Join(cb.err, fmt.Errorf("vulkan: %d vertex buffers with %d offsets", len(bufs), len(offsets)))
		return
	}
	vb := make([]vk.Buffer, len(bufs))
	vo := make([]vk.DeviceSize, len(offsets))
	for i, b := range bufs {
		vb[i] = b.(*Buffer).Buffer
		vo[i] = vk.DeviceSize(offsets[i])
	}
	vk.CmdBindVertexBuffers(cb.Buffer, uint32(first), uint32(len(vb)), vb, vo)
}

func (cb *CommandBuffer) BindIndexBuffer(b driver.Buffer, offset int, typ driver.IndexType) {
	it := vk.IndexTypeUint32
	if typ == driver.IndexUint16 {
		it = vk.IndexTypeUint16
	}
	vk.CmdBindIndexBuffer(cb.Buffer, b.(*Buffer).Buffer, vk.DeviceSize(offset), it)
}

func (cb *CommandBuffer) PushConstants(p driver.Pipeline, stages driver.ShaderStages, offset int, data []byte) {
	if len(data) == 0 {
		return
	}
	vk.CmdPushConstants(cb.Buffer, p.(*Pipeline).Layout, shaderStages(stages), uint32(offset), uint32(len(data)), unsafe.Pointer(&data[0]))
}

func (cb *CommandBuffer) SetViewport(vp driver.Viewport) {
	vk.CmdSetViewport(cb.Buffer, 0, 1, []vk.Viewport{{
		X: vp.X, Y: vp.Y, Width: vp.Width, Height: vp.Height, MinDepth: vp.MinDepth, MaxDepth: vp.MaxDepth,
	}})
}

func (cb *CommandBuffer) SetScissor(r driver.Rect2D) {
	vk.CmdSetScissor(cb.Buffer, 0, 1, []vk.Rect2D{{
		Offset: vk.Offset2D{X: r.X, Y: r.Y},
		Extent: extent2D(r.Extent),
	}})
}

func (cb *CommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex, vertexOffset, firstInstance int) {
	vk.CmdDrawIndexed(cb.Buffer, uint32(indexCount), uint32(instanceCount), uint32(firstIndex), int32(vertexOffset), uint32(firstInstance))
}

// BeginRendering begins a render pass compatible with pipelines created
// for the same formats and sample count.
func (cb *CommandBuffer) BeginRendering(info driver.RenderingInfo) {
	dv := cb.dev
	rp, err := dv.renderPass(makePassKey(info.ColorFormat, info.DepthFormat, info.Samples))
	if err != nil {
		cb.err = errors.Join(cb.err, err)
		return
	}
	fb, err := dv.framebuffer(rp, &info)
	if err != nil {
		cb.err = errors.Join(cb.err, err)
		return
	}
	clears := make([]vk.ClearValue, 3)
	clears[0].SetColor(info.ClearColor[:])
	clears[1].SetDepthStencil(info.ClearDepth, 0)
	n := 1
	if info.Depth != nil {
		n++
	}
	vk.CmdBeginRenderPass(cb.Buffer, &vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      rp,
		Framebuffer:     fb,
		RenderArea:      vk.Rect2D{Extent: extent2D(info.Extent)},
		ClearValueCount: uint32(n),
		PClearValues:    clears[:n],
	}, vk.SubpassContentsInline)
}

func (cb *CommandBuffer) EndRendering() {
	vk.CmdEndRenderPass(cb.Buffer)
}
