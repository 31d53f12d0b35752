// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vulkan

import (
	"cogentcore.org/vhal/driver"
	vk "github.com/goki/vulkan"
)

// Formats maps driver formats to native formats.
var Formats = map[driver.Format]vk.Format{
	driver.FormatUndefined:          vk.FormatUndefined,
	driver.FormatR8G8B8A8Srgb:       vk.FormatR8g8b8a8Srgb,
	driver.FormatB8G8R8A8Srgb:       vk.FormatB8g8r8a8Srgb,
	driver.FormatR8G8B8A8Unorm:      vk.FormatR8g8b8a8Unorm,
	driver.FormatB8G8R8A8Unorm:      vk.FormatB8g8r8a8Unorm,
	driver.FormatR32Sfloat:          vk.FormatR32Sfloat,
	driver.FormatR32G32Sfloat:       vk.FormatR32g32Sfloat,
	driver.FormatR32G32B32Sfloat:    vk.FormatR32g32b32Sfloat,
	driver.FormatR32G32B32A32Sfloat: vk.FormatR32g32b32a32Sfloat,
	driver.FormatD32Sfloat:          vk.FormatD32Sfloat,
	driver.FormatD32SfloatS8Uint:    vk.FormatD32SfloatS8Uint,
	driver.FormatD24UnormS8Uint:     vk.FormatD24UnormS8Uint,
}

// FormatFromNative is the reverse of [Formats]; unknown native formats
// map to [driver.FormatUndefined].
func FormatFromNative(f vk.Format) driver.Format {
	for df, vf := range Formats {
		if vf == f {
			return df
		}
	}
	return driver.FormatUndefined
}

var presentModes = map[driver.PresentMode]vk.PresentMode{
	driver.PresentImmediate:   vk.PresentModeImmediate,
	driver.PresentMailbox:     vk.PresentModeMailbox,
	driver.PresentFifo:        vk.PresentModeFifo,
	driver.PresentFifoRelaxed: vk.PresentModeFifoRelaxed,
}

var layouts = [...]vk.ImageLayout{
	driver.LayoutUndefined:              vk.ImageLayoutUndefined,
	driver.LayoutGeneral:                vk.ImageLayoutGeneral,
	driver.LayoutColorAttachment:        vk.ImageLayoutColorAttachmentOptimal,
	driver.LayoutDepthStencilAttachment: vk.ImageLayoutDepthStencilAttachmentOptimal,
	driver.LayoutShaderReadOnly:         vk.ImageLayoutShaderReadOnlyOptimal,
	driver.LayoutTransferSrc:            vk.ImageLayoutTransferSrcOptimal,
	driver.LayoutTransferDst:            vk.ImageLayoutTransferDstOptimal,
	driver.LayoutPresentSrc:             vk.ImageLayoutPresentSrc,
}

var descriptorTypes = [...]vk.DescriptorType{
	driver.DescriptorUniformBuffer:        vk.DescriptorTypeUniformBuffer,
	driver.DescriptorCombinedImageSampler: vk.DescriptorTypeCombinedImageSampler,
}

func aspectFlags(a driver.ImageAspect) vk.ImageAspectFlags {
	var f vk.ImageAspectFlagBits
	if a&driver.AspectColor != 0 {
		f |= vk.ImageAspectColorBit
	}
	if a&driver.AspectDepth != 0 {
		f |= vk.ImageAspectDepthBit
	}
	if a&driver.AspectStencil != 0 {
		f |= vk.ImageAspectStencilBit
	}
	return vk.ImageAspectFlags(f)
}

func shaderStages(s driver.ShaderStages) vk.ShaderStageFlags {
	var f vk.ShaderStageFlagBits
	if s&driver.StageVertex != 0 {
		f |= vk.ShaderStageVertexBit
	}
	if s&driver.StageFragment != 0 {
		f |= vk.ShaderStageFragmentBit
	}
	return vk.ShaderStageFlags(f)
}

func pipelineStages(s driver.PipelineStages) vk.PipelineStageFlags {
	bits := []struct {
		d driver.PipelineStages
		v vk.PipelineStageFlagBits
	}{
		{driver.StageTopOfPipe, vk.PipelineStageTopOfPipeBit},
		{driver.StageTransfer, vk.PipelineStageTransferBit},
		{driver.StageEarlyFragmentTests, vk.PipelineStageEarlyFragmentTestsBit},
		{driver.StageFragmentShader, vk.PipelineStageFragmentShaderBit},
		{driver.StageColorAttachmentOutput, vk.PipelineStageColorAttachmentOutputBit},
		{driver.StageBottomOfPipe, vk.PipelineStageBottomOfPipeBit},
	}
	var f vk.PipelineStageFlagBits
	for _, b := range bits {
		if s&b.d != 0 {
			f |= b.v
		}
	}
	return vk.PipelineStageFlags(f)
}

func accessFlags(a driver.Access) vk.AccessFlags {
	bits := []struct {
		d driver.Access
		v vk.AccessFlagBits
	}{
		{driver.AccessTransferRead, vk.AccessTransferReadBit},
		{driver.AccessTransferWrite, vk.AccessTransferWriteBit},
		{driver.AccessShaderRead, vk.AccessShaderReadBit},
		{driver.AccessColorAttachmentWrite, vk.AccessColorAttachmentWriteBit},
		{driver.AccessDepthStencilRead, vk.AccessDepthStencilAttachmentReadBit},
		{driver.AccessDepthStencilWrite, vk.AccessDepthStencilAttachmentWriteBit},
	}
	var f vk.AccessFlagBits
	for _, b := range bits {
		if a&b.d != 0 {
			f |= b.v
		}
	}
	return vk.AccessFlags(f)
}

func sampleCount(n driver.SampleCount) vk.SampleCountFlagBits {
	if n < 1 {
		n = 1
	}
	return vk.SampleCountFlagBits(n)
}

func extent2D(e driver.Extent2D) vk.Extent2D {
	return vk.Extent2D{Width: e.Width, Height: e.Height}
}
