// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hal

import (
	"log/slog"

	"cogentcore.org/core/base/errors"
	"cogentcore.org/vhal/driver"
)

// layoutBarrier returns the barrier for a supported layout transition
// of all mips of an image: Undefined to TransferDst, TransferDst to
// ShaderReadOnly, and Undefined to DepthStencilAttachment.
func layoutBarrier(img driver.Image, from, to driver.ImageLayout, aspect driver.ImageAspect, mips int) (driver.ImageBarrier, error) {
	b := driver.ImageBarrier{Image: img, OldLayout: from, NewLayout: to, Aspect: aspect, MipCount: mips}
	switch {
	case from == driver.LayoutUndefined && to == driver.LayoutTransferDst:
		b.SrcStage, b.DstStage = driver.StageTopOfPipe, driver.StageTransfer
		b.DstAccess = driver.AccessTransferWrite
	case from == driver.LayoutTransferDst && to == driver.LayoutShaderReadOnly:
		b.SrcStage, b.DstStage = driver.StageTransfer, driver.StageFragmentShader
		b.SrcAccess, b.DstAccess = driver.AccessTransferWrite, driver.AccessShaderRead
	case from == driver.LayoutUndefined && to == driver.LayoutDepthStencilAttachment:
		b.SrcStage, b.DstStage = driver.StageTopOfPipe, driver.StageEarlyFragmentTests
		b.DstAccess = driver.AccessDepthStencilRead | driver.AccessDepthStencilWrite
	default:
		return b, preconditionf("unsupported layout transition %v -> %v", from, to)
	}
	return b, nil
}

// BeginCommandBuffer resets the command buffer and begins recording.
func (be *Backend) BeginCommandBuffer(cmd CommandBuffer, mode CmdMode) error {
	return be.Cmds.Begin(cmd, mode)
}

// EndCommandBuffer ends recording.
func (be *Backend) EndCommandBuffer(cmd CommandBuffer) error {
	return be.Cmds.End(cmd)
}

// SubmitCommandBuffer submits the command buffer and waits for it.
func (be *Backend) SubmitCommandBuffer(cmd CommandBuffer) error {
	return be.Cmds.Submit(cmd)
}

// CopyBuffer records a copy of all of src into dst,
// which must have the same size.
func (be *Backend) CopyBuffer(cmd CommandBuffer, src, dst Buffer) error {
	cb, err := be.Cmds.recording(cmd)
	if err != nil {
		return err
	}
	sb, err := be.buffers.Get(src)
	if err != nil {
		return err
	}
	db, err := be.buffers.Get(dst)
	if err != nil {
		return err
	}
	if sb.desc.Size != db.desc.Size {
		return preconditionf("copy buffer: source %v has %d bytes, destination %v has %d", src, sb.desc.Size, dst, db.desc.Size)
	}
	cb.CopyBuffer(sb.native, db.native, driver.BufferCopy{Size: sb.desc.Size})
	return nil
}

// CopyBufferToImage records a copy of tightly packed texels from src
// into mip 0 of dst, which must be in the TransferDst layout.
func (be *Backend) CopyBufferToImage(cmd CommandBuffer, src Buffer, dst Image) error {
	cb, err := be.Cmds.recording(cmd)
	if err != nil {
		return err
	}
	sb, err := be.buffers.Get(src)
	if err != nil {
		return err
	}
	im, err := be.images.Get(dst)
	if err != nil {
		return err
	}
	if im.layout != driver.LayoutTransferDst {
		return preconditionf("copy buffer to image: %v is in layout %v, not TransferDst", dst, im.layout)
	}
	ex := im.desc.Extent
	if need := int(ex.Width) * int(ex.Height) * im.desc.Format.Bytes(); sb.desc.Size < need {
		return preconditionf("copy buffer to image: %v has %d bytes, %v needs %d", src, sb.desc.Size, dst, need)
	}
	cb.CopyBufferToImage(sb.native, im.native, driver.LayoutTransferDst, driver.BufferImageCopy{
		Aspect: driver.AspectColor,
		Extent: driver.Extent3D{Width: ex.Width, Height: ex.Height, Depth: 1},
	})
	return nil
}

// GenerateMipmaps records blits that fill each mip level from the one
// above it, at half the size. Mip 0 must be filled and every mip must be
// in the TransferDst layout; all mips end in ShaderReadOnly.
func (be *Backend) GenerateMipmaps(cmd CommandBuffer, img Image) error {
	cb, err := be.Cmds.recording(cmd)
	if err != nil {
		return err
	}
	im, err := be.images.Get(img)
	if err != nil {
		return err
	}
	if im.layout != driver.LayoutTransferDst {
		return preconditionf("generate mipmaps: %v is in layout %v, not TransferDst", img, im.layout)
	}
	bar := driver.ImageBarrier{Image: im.native, Aspect: driver.AspectColor, MipCount: 1}
	w, h := im.desc.Extent.Width, im.desc.Extent.Height
	for i := 1; i < im.desc.MipLevels; i++ {
		bar.BaseMip = i - 1
		bar.OldLayout, bar.NewLayout = driver.LayoutTransferDst, driver.LayoutTransferSrc
		bar.SrcStage, bar.DstStage = driver.StageTransfer, driver.StageTransfer
		bar.SrcAccess, bar.DstAccess = driver.AccessTransferWrite, driver.AccessTransferRead
		cb.PipelineBarrier(bar)

		nw, nh := max(w/2, 1), max(h/2, 1)
		cb.BlitImage(im.native, driver.ImageBlit{
			SrcMip:    i - 1,
			DstMip:    i,
			SrcExtent: driver.Extent2D{Width: w, Height: h},
			DstExtent: driver.Extent2D{Width: nw, Height: nh},
		})

		bar.OldLayout, bar.NewLayout = driver.LayoutTransferSrc, driver.LayoutShaderReadOnly
		bar.SrcStage, bar.DstStage = driver.StageTransfer, driver.StageFragmentShader
		bar.SrcAccess, bar.DstAccess = driver.AccessTransferRead, driver.AccessShaderRead
		cb.PipelineBarrier(bar)
		w, h = nw, nh
	}
	bar.BaseMip = im.desc.MipLevels - 1
	bar.OldLayout, bar.NewLayout = driver.LayoutTransferDst, driver.LayoutShaderReadOnly
	bar.SrcStage, bar.DstStage = driver.StageTransfer, driver.StageFragmentShader
	bar.SrcAccess, bar.DstAccess = driver.AccessTransferWrite, driver.AccessShaderRead
	cb.PipelineBarrier(bar)
	im.layout = driver.LayoutShaderReadOnly
	return nil
}

// TransitionImageLayout records a transition of all mips of the image
// from its tracked layout to the given one.
func (be *Backend) TransitionImageLayout(cmd CommandBuffer, img Image, layout driver.ImageLayout) error {
	cb, err := be.Cmds.recording(cmd)
	if err != nil {
		return err
	}
	im, err := be.images.Get(img)
	if err != nil {
		return err
	}
	aspect := driver.AspectColor
	if im.desc.Format.IsDepth() {
		aspect = depthAspect(im.desc.Format)
	}
	bar, err := layoutBarrier(im.native, im.layout, layout, aspect, im.desc.MipLevels)
	if err != nil {
		return err
	}
	cb.PipelineBarrier(bar)
	im.layout = layout
	return nil
}

// SetVertexBuffers binds vertex buffers at the given offsets
// to consecutive slots starting at firstSlot.
func (be *Backend) SetVertexBuffers(cmd CommandBuffer, bufs []Buffer, offsets []int, firstSlot int) error {
	if len(bufs) != len(offsets) {
		return preconditionf("set vertex buffers: %d buffers with %d offsets", len(bufs), len(offsets))
	}
	cb, err := be.Cmds.recording(cmd)
	if err != nil {
		return err
	}
	nbs := make([]driver.Buffer, len(bufs))
	for i, buf := range bufs {
		b, err := be.buffers.Get(buf)
		if err != nil {
			return err
		}
		nbs[i] = b.native
	}
	cb.BindVertexBuffers(firstSlot, nbs, offsets)
	return nil
}

// SetIndexBuffer binds a uint32 index buffer at the given byte offset.
func (be *Backend) SetIndexBuffer(cmd CommandBuffer, buf Buffer, offset int) error {
	cb, err := be.Cmds.recording(cmd)
	if err != nil {
		return err
	}
	b, err := be.buffers.Get(buf)
	if err != nil {
		return err
	}
	cb.BindIndexBuffer(b.native, offset, driver.IndexUint32)
	return nil
}

// PushConstants records an update of push constant data.
func (be *Backend) PushConstants(cmd CommandBuffer, pipe Pipeline, stages driver.ShaderStages, offset int, data []byte) error {
	cb, err := be.Cmds.recording(cmd)
	if err != nil {
		return err
	}
	p, err := be.pipelines.Get(pipe)
	if err != nil {
		return err
	}
	cb.PushConstants(p.native, stages, offset, data)
	return nil
}

// DrawIndexed records an indexed draw.
func (be *Backend) DrawIndexed(cmd CommandBuffer, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance int) error {
	cb, err := be.Cmds.recording(cmd)
	if err != nil {
		return err
	}
	cb.DrawIndexed(indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
	return nil
}

// WriteDescriptorSet points the set's uniform bindings, starting at
// uniformFirst, at the given buffers, and its image sampler bindings,
// starting at textureFirst, at the given views and samplers.
func (be *Backend) WriteDescriptorSet(set DescriptorSet, uniformFirst int, uniforms []Buffer, textureFirst int, views []ImageView, samplers []Sampler) error {
	if len(views) != len(samplers) {
		return preconditionf("write descriptor set: %d image views with %d samplers", len(views), len(samplers))
	}
	ds, err := be.descriptorSets.Get(set)
	if err != nil {
		return err
	}
	w := driver.DescriptorWrite{Set: ds.native, UniformBinding: uniformFirst, TextureBinding: textureFirst}
	for _, u := range uniforms {
		b, err := be.buffers.Get(u)
		if err != nil {
			return err
		}
		w.Uniforms = append(w.Uniforms, driver.BufferBinding{Buffer: b.native, Size: b.desc.Size})
	}
	for i, v := range views {
		iv, err := be.imageViews.Get(v)
		if err != nil {
			return err
		}
		s, err := be.samplers.Get(samplers[i])
		if err != nil {
			return err
		}
		w.Textures = append(w.Textures, driver.TextureBinding{View: iv.native, Sampler: s})
	}
	be.Device.Native.WriteDescriptorSet(w)
	return nil
}

// frameCommand returns the swapchain, which must be in a frame, and the
// native command buffer.
func (be *Backend) frameCommand(cmd CommandBuffer, sc SwapchainRef) (*Swapchain, *commandBuffer, error) {
	s, err := be.swapchains.Get(sc)
	if err != nil {
		return nil, nil, err
	}
	if !s.inFrame {
		return nil, nil, invalidStatef("%v has no frame in progress", sc)
	}
	c, err := be.Cmds.get(cmd)
	if err != nil {
		return nil, nil, err
	}
	return s, c, nil
}

// BeginRendering begins recording the command buffer for the current
// frame and begins rendering into the frame's image, clearing it.
func (be *Backend) BeginRendering(cmd CommandBuffer, sc SwapchainRef) error {
	s, c, err := be.frameCommand(cmd, sc)
	if err != nil {
		return err
	}
	if err := be.Cmds.Begin(cmd, Reusable); err != nil {
		return err
	}
	s.beginRendering(c.native)
	return nil
}

// SetPipelineState binds the pipeline and its descriptor sets, and sets
// the viewport and scissor to the whole swapchain image.
func (be *Backend) SetPipelineState(cmd CommandBuffer, sc SwapchainRef, pipe Pipeline, sets []DescriptorSet) error {
	s, _, err := be.frameCommand(cmd, sc)
	if err != nil {
		return err
	}
	cb, err := be.Cmds.recording(cmd)
	if err != nil {
		return err
	}
	p, err := be.pipelines.Get(pipe)
	if err != nil {
		return err
	}
	nsets := make([]driver.DescriptorSet, len(sets))
	for i, set := range sets {
		ds, err := be.descriptorSets.Get(set)
		if err != nil {
			return err
		}
		nsets[i] = ds.native
	}
	cb.BindPipeline(p.native)
	if len(nsets) > 0 {
		cb.BindDescriptorSets(p.native, 0, nsets...)
	}
	s.setViewport(cb)
	return nil
}

// EndRendering ends rendering, transitions the frame's image for
// presentation, and ends recording.
func (be *Backend) EndRendering(cmd CommandBuffer, sc SwapchainRef) error {
	s, _, err := be.frameCommand(cmd, sc)
	if err != nil {
		return err
	}
	cb, err := be.Cmds.recording(cmd)
	if err != nil {
		return err
	}
	s.endRendering(cb)
	return be.Cmds.End(cmd)
}

// AbortFrame ends any recording of the command buffer and gives up the
// current frame; see [Swapchain.AbortFrame].
func (be *Backend) AbortFrame(cmd CommandBuffer, sc SwapchainRef) error {
	s, c, err := be.frameCommand(cmd, sc)
	if err != nil {
		return err
	}
	if c.state == Recording {
		errors.Log(be.Cmds.End(cmd))
	}
	return s.AbortFrame()
}

// EndFrame submits the recorded command buffer and presents the frame;
// see [Swapchain.EndFrame].
func (be *Backend) EndFrame(cmd CommandBuffer, sc SwapchainRef) (FrameResult, error) {
	s, c, err := be.frameCommand(cmd, sc)
	if err != nil {
		return FrameError, err
	}
	if c.state != Recorded {
		return FrameError, invalidStatef("end frame with %v, which is %v", cmd, c.state)
	}
	res, err := s.EndFrame(c.native)
	if res != FrameOK && Debug {
		slog.Info("vhal: frame skipped", "result", res, "err", err)
	}
	return res, err
}
