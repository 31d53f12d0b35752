// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vulkan

import (
	"errors"

	"cogentcore.org/vhal/driver"
	vk "github.com/goki/vulkan"
)

// Pipeline is a graphics pipeline with its layout.
type Pipeline struct {
	Pipeline vk.Pipeline
	Layout   vk.PipelineLayout
	Desc     driver.PipelineDesc
}

// CreatePipeline creates a pipeline drawing triangle lists with dynamic
// viewport and scissor, back-face culling, premultiplied alpha blending,
// and depth testing when desc.DepthFormat is set.
func (dv *Device) CreatePipeline(desc driver.PipelineDesc) (driver.Pipeline, error) {
	if desc.Vertex == nil || desc.Fragment == nil {
		return nil, errors.New("vulkan: pipeline needs vertex and fragment shaders")
	}
	pl := &Pipeline{Desc: desc}
	if err := pl.makeLayout(dv); err != nil {
		return nil, err
	}
	rp, err := dv.renderPass(makePassKey(desc.ColorFormat, desc.DepthFormat, desc.Samples))
	if err != nil {
		dv.DestroyPipeline(pl)
		return nil, err
	}

	binds := make([]vk.VertexInputBindingDescription, len(desc.Bindings))
	for i, b := range desc.Bindings {
		rate := vk.VertexInputRateVertex
		if b.Rate == driver.RatePerInstance {
			rate = vk.VertexInputRateInstance
		}
		binds[i] = vk.VertexInputBindingDescription{Binding: uint32(b.Binding), Stride: uint32(b.Stride), InputRate: rate}
	}
	attrs := make([]vk.VertexInputAttributeDescription, len(desc.Attributes))
	for i, a := range desc.Attributes {
		attrs[i] = vk.VertexInputAttributeDescription{
			Location: uint32(a.Location),
			Binding:  uint32(a.Binding),
			Format:   Formats[a.Format],
			Offset:   uint32(a.Offset),
		}
	}

	var depth vk.Bool32 = vk.False
	if desc.DepthFormat != driver.FormatUndefined {
		depth = vk.True
	}
	dynamic := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	info := vk.GraphicsPipelineCreateInfo{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: 2,
		PStages: []vk.PipelineShaderStageCreateInfo{
			{
				SType:  vk.StructureTypePipelineShaderStageCreateInfo,
				Stage:  vk.ShaderStageVertexBit,
				Module: desc.Vertex.(vk.ShaderModule),
				PName:  "main\x00",
			},
			{
				SType:  vk.StructureTypePipelineShaderStageCreateInfo,
				Stage:  vk.ShaderStageFragmentBit,
				Module: desc.Fragment.(vk.ShaderModule),
				PName:  "main\x00",
			},
		},
		PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
			SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
			VertexBindingDescriptionCount:   uint32(len(binds)),
			PVertexBindingDescriptions:      binds,
			VertexAttributeDescriptionCount: uint32(len(attrs)),
			PVertexAttributeDescriptions:    attrs,
		},
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology: vk.PrimitiveTopologyTriangleList,
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
			PolygonMode: vk.PolygonModeFill,
			CullMode:    vk.CullModeFlags(vk.CullModeBackBit),
			FrontFace:   vk.FrontFaceCounterClockwise,
			LineWidth:   1,
		},
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: sampleCount(desc.Samples),
			MinSampleShading:     1,
		},
		PDepthStencilState: &vk.PipelineDepthStencilStateCreateInfo{
			SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
			DepthTestEnable:  depth,
			DepthWriteEnable: depth,
			DepthCompareOp:   vk.CompareOpLess,
			MaxDepthBounds:   1,
		},
		PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
			AttachmentCount: 1,
			PAttachments: []vk.PipelineColorBlendAttachmentState{{
				BlendEnable:         vk.True,
				SrcColorBlendFactor: vk.BlendFactorOne,
				DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
				ColorBlendOp:        vk.BlendOpAdd,
				SrcAlphaBlendFactor: vk.BlendFactorOne,
				DstAlphaBlendFactor: vk.BlendFactorZero,
				AlphaBlendOp:        vk.BlendOpAdd,
				ColorWriteMask:      0xF,
			}},
		},
		PDynamicState: &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: uint32(len(dynamic)),
			PDynamicStates:    dynamic,
		},
		Layout:            pl.Layout,
		RenderPass:        rp,
		BasePipelineIndex: -1,
	}
	pipes := make([]vk.Pipeline, 1)
	ret := vk.CreateGraphicsPipelines(dv.Device, vk.PipelineCache(vk.NullHandle), 1, []vk.GraphicsPipelineCreateInfo{info}, nil, pipes)
	if err := NewError(ret); err != nil {
		dv.DestroyPipeline(pl)
		return nil, err
	}
	pl.Pipeline = pipes[0]
	return pl, nil
}

func (pl *Pipeline) makeLayout(dv *Device) error {
	sets := make([]vk.DescriptorSetLayout, len(pl.Desc.SetLayouts))
	for i, l := range pl.Desc.SetLayouts {
		sets[i] = l.(vk.DescriptorSetLayout)
	}
	push := make([]vk.PushConstantRange, len(pl.Desc.PushConstants))
	for i, r := range pl.Desc.PushConstants {
		push[i] = vk.PushConstantRange{StageFlags: shaderStages(r.Stages), Offset: uint32(r.Offset), Size: uint32(r.Size)}
	}
	ret := vk.CreatePipelineLayout(dv.Device, &vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(sets)),
		PSetLayouts:            sets,
		PushConstantRangeCount: uint32(len(push)),
		PPushConstantRanges:    push,
	}, nil, &pl.Layout)
	return NewError(ret)
}

func (dv *Device) DestroyPipeline(p driver.Pipeline) {
	pl := p.(*Pipeline)
	if pl.Pipeline != vk.NullPipeline {
		vk.DestroyPipeline(dv.Device, pl.Pipeline, nil)
		pl.Pipeline = vk.NullPipeline
	}
	if pl.Layout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(dv.Device, pl.Layout, nil)
		pl.Layout = vk.NullPipelineLayout
	}
}
