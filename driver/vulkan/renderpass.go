// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vulkan

import (
	"slices"

	"cogentcore.org/vhal/driver"
	vk "github.com/goki/vulkan"
)

// Dynamic rendering is expressed with single-subpass render passes,
// cached by attachment formats, and framebuffers cached by their views.

type passKey struct {
	color, depth vk.Format
	samples      vk.SampleCountFlagBits
	resolve      bool
}

type framebufferKey struct {
	pass   vk.RenderPass
	views  [3]vk.ImageView
	extent driver.Extent2D
}

func makePassKey(color, depth driver.Format, samples driver.SampleCount) passKey {
	return passKey{color: Formats[color], depth: Formats[depth], samples: sampleCount(samples), resolve: samples > 1}
}

// renderPass returns the cached render pass for the key, creating it.
// Attachments are 0: color, 1: depth (if any), then the resolve target.
func (dv *Device) renderPass(k passKey) (vk.RenderPass, error) {
	if rp, ok := dv.passes[k]; ok {
		return rp, nil
	}
	store := vk.AttachmentStoreOpStore
	if k.resolve {
		store = vk.AttachmentStoreOpDontCare
	}
	atts := []vk.AttachmentDescription{{
		Format:         k.color,
		Samples:        k.samples,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        store,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
	}}
	sub := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    []vk.AttachmentReference{{Attachment: 0, Layout: vk.ImageLayoutColorAttachmentOptimal}},
	}
	if k.depth != vk.FormatUndefined {
		sub.PDepthStencilAttachment = &vk.AttachmentReference{Attachment: uint32(len(atts)), Layout: vk.ImageLayoutDepthStencilAttachmentOptimal}
		atts = append(atts, vk.AttachmentDescription{
			Format:         k.depth,
			Samples:        k.samples,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		})
	}
	if k.resolve {
		sub.PResolveAttachments = []vk.AttachmentReference{{Attachment: uint32(len(atts)), Layout: vk.ImageLayoutColorAttachmentOptimal}}
		atts = append(atts, vk.AttachmentDescription{
			Format:         k.color,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpDontCare,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
		})
	}
	stages := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit)
	var rp vk.RenderPass
	ret := vk.CreateRenderPass(dv.Device, &vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(atts)),
		PAttachments:    atts,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{sub},
		DependencyCount: 1,
		PDependencies: []vk.SubpassDependency{{
			SrcSubpass:    vk.SubpassExternal,
			SrcStageMask:  stages,
			DstStageMask:  stages,
			DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit | vk.AccessDepthStencilAttachmentWriteBit),
		}},
	}, nil, &rp)
	if err := NewError(ret); err != nil {
		return vk.NullRenderPass, err
	}
	dv.passes[k] = rp
	return rp, nil
}

// framebuffer returns the cached framebuffer for the rendering info.
func (dv *Device) framebuffer(rp vk.RenderPass, info *driver.RenderingInfo) (vk.Framebuffer, error) {
	views := []vk.ImageView{info.Color.(*ImageView).View}
	if info.Depth != nil {
		views = append(views, info.Depth.(*ImageView).View)
	}
	if info.Resolve != nil {
		views = append(views, info.Resolve.(*ImageView).View)
	}
	k := framebufferKey{pass: rp, extent: info.Extent}
	copy(k.views[:], views)
	if fb, ok := dv.framebuffers[k]; ok {
		return fb, nil
	}
	var fb vk.Framebuffer
	ret := vk.CreateFramebuffer(dv.Device, &vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      rp,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           info.Extent.Width,
		Height:          info.Extent.Height,
		Layers:          1,
	}, nil, &fb)
	if err := NewError(ret); err != nil {
		return vk.NullFramebuffer, err
	}
	dv.framebuffers[k] = fb
	return fb, nil
}

// dropFramebuffers destroys the framebuffers that use the view.
func (dv *Device) dropFramebuffers(view vk.ImageView) {
	for k, fb := range dv.framebuffers {
		if slices.Contains(k.views[:], view) {
			vk.DestroyFramebuffer(dv.Device, fb, nil)
			delete(dv.framebuffers, k)
		}
	}
}
