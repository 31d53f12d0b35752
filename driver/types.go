// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package driver

import (
	"fmt"
	"strings"
)

// Format is a pixel or vertex attribute format.
type Format int32

const (
	FormatUndefined Format = iota
	FormatR8G8B8A8Srgb
	FormatB8G8R8A8Srgb
	FormatR8G8B8A8Unorm
	FormatB8G8R8A8Unorm
	FormatR32Sfloat
	FormatR32G32Sfloat
	FormatR32G32B32Sfloat
	FormatR32G32B32A32Sfloat
	FormatD32Sfloat
	FormatD32SfloatS8Uint
	FormatD24UnormS8Uint

	FormatN
)

var formatNames = [FormatN]string{"undefined", "rgba8-srgb", "bgra8-srgb", "rgba8-unorm", "bgra8-unorm",
	"r32f", "rg32f", "rgb32f", "rgba32f", "d32f", "d32f-s8", "d24-s8"}

func (f Format) String() string {
	if f < 0 || f >= FormatN {
		return fmt.Sprintf("Format(%d)", int32(f))
	}
	return formatNames[f]
}

// ParseFormat returns the format with the given [Format.String] name.
func ParseFormat(s string) (Format, error) {
	for i, nm := range formatNames {
		if strings.EqualFold(nm, s) {
			return Format(i), nil
		}
	}
	return FormatUndefined, fmt.Errorf("driver.ParseFormat: unknown format %q", s)
}

// FormatSizes gives the size of one texel or attribute in bytes.
var FormatSizes = map[Format]int{
	FormatUndefined:          0,
	FormatR8G8B8A8Srgb:       4,
	FormatB8G8R8A8Srgb:       4,
	FormatR8G8B8A8Unorm:      4,
	FormatB8G8R8A8Unorm:      4,
	FormatR32Sfloat:          4,
	FormatR32G32Sfloat:       8,
	FormatR32G32B32Sfloat:    12,
	FormatR32G32B32A32Sfloat: 16,
	FormatD32Sfloat:          4,
	FormatD32SfloatS8Uint:    8,
	FormatD24UnormS8Uint:     4,
}

// Bytes returns the size of one texel or attribute in bytes.
func (f Format) Bytes() int {
	return FormatSizes[f]
}

// IsDepth returns true for depth (and depth-stencil) formats.
func (f Format) IsDepth() bool {
	return f == FormatD32Sfloat || f == FormatD32SfloatS8Uint || f == FormatD24UnormS8Uint
}

// HasStencil returns true for formats with a stencil component.
func (f Format) HasStencil() bool {
	return f == FormatD32SfloatS8Uint || f == FormatD24UnormS8Uint
}

// ColorSpace is the color space of presentable images.
type ColorSpace int32

const (
	ColorSpaceSrgbNonlinear ColorSpace = iota
	ColorSpaceOther
)

// PresentMode is the presentation engine's queueing mode.
type PresentMode int32

const (
	PresentImmediate PresentMode = iota
	PresentMailbox

	// PresentFifo is always supported and never tears.
	PresentFifo
	PresentFifoRelaxed
)

var presentModeNames = []string{"immediate", "mailbox", "fifo", "fifo-relaxed"}

func (pm PresentMode) String() string {
	if pm < 0 || int(pm) >= len(presentModeNames) {
		return fmt.Sprintf("PresentMode(%d)", int32(pm))
	}
	return presentModeNames[pm]
}

// ParsePresentMode returns the present mode with the given name.
func ParsePresentMode(s string) (PresentMode, error) {
	for i, nm := range presentModeNames {
		if strings.EqualFold(nm, s) {
			return PresentMode(i), nil
		}
	}
	return PresentFifo, fmt.Errorf("driver.ParsePresentMode: unknown present mode %q", s)
}

// SampleCount is the number of samples per pixel (1, 2, 4, ...).
type SampleCount int32

// ImageLayout is the memory layout of an image, as seen by the device.
type ImageLayout int32

const (
	LayoutUndefined ImageLayout = iota
	LayoutGeneral
	LayoutColorAttachment
	LayoutDepthStencilAttachment
	LayoutShaderReadOnly
	LayoutTransferSrc
	LayoutTransferDst
	LayoutPresentSrc
)

var layoutNames = []string{"Undefined", "General", "ColorAttachment", "DepthStencilAttachment",
	"ShaderReadOnly", "TransferSrc", "TransferDst", "PresentSrc"}

func (il ImageLayout) String() string {
	if il < 0 || int(il) >= len(layoutNames) {
		return fmt.Sprintf("ImageLayout(%d)", int32(il))
	}
	return layoutNames[il]
}

// ImageType is the role an image is created for, which
// determines its usage flags and memory placement.
type ImageType int32

const (
	// ImageTexture is a sampled image, filled by transfer, with mips.
	ImageTexture ImageType = iota

	// ImageColorAttachment is a transient multisampled render target.
	ImageColorAttachment

	// ImageDepthAttachment is a depth buffer.
	ImageDepthAttachment
)

// ImageAspect selects color, depth and/or stencil planes of an image.
type ImageAspect int32

const (
	AspectColor   ImageAspect = 1 << 0
	AspectDepth   ImageAspect = 1 << 1
	AspectStencil ImageAspect = 1 << 2
)

// BufferUsage is the role a buffer is created for.
type BufferUsage int32

const (
	// BufferStaging is host-visible and a transfer source.
	BufferStaging BufferUsage = iota

	// BufferVertex is device-local and a transfer destination.
	BufferVertex

	// BufferIndex is device-local and a transfer destination.
	BufferIndex

	// BufferUniform is host-visible and coherent.
	BufferUniform
)

var bufferUsageNames = []string{"staging", "vertex", "index", "uniform"}

func (bu BufferUsage) String() string {
	if bu < 0 || int(bu) >= len(bufferUsageNames) {
		return fmt.Sprintf("BufferUsage(%d)", int32(bu))
	}
	return bufferUsageNames[bu]
}

// HostVisible returns true if buffers of this usage can be mapped.
func (bu BufferUsage) HostVisible() bool {
	return bu == BufferStaging || bu == BufferUniform
}

// DescriptorType is the type of a shader-visible resource binding.
type DescriptorType int32

const (
	DescriptorUniformBuffer DescriptorType = iota
	DescriptorCombinedImageSampler
)

// ShaderStages is a bit set of shader stages.
type ShaderStages int32

const (
	StageVertex   ShaderStages = 1 << 0
	StageFragment ShaderStages = 1 << 1
)

// PipelineStages is a bit set of pipeline stages, used in barriers
// and semaphore waits.
type PipelineStages int32

const (
	StageTopOfPipe PipelineStages = 1 << iota
	StageTransfer
	StageEarlyFragmentTests
	StageFragmentShader
	StageColorAttachmentOutput
	StageBottomOfPipe
)

// Access is a bit set of memory access types, used in barriers.
type Access int32

const (
	AccessTransferRead Access = 1 << iota
	AccessTransferWrite
	AccessShaderRead
	AccessColorAttachmentWrite
	AccessDepthStencilRead
	AccessDepthStencilWrite
)

// IndexType is the integer type of an index buffer.
type IndexType int32

const (
	IndexUint16 IndexType = iota
	IndexUint32
)

// Bytes returns the size of one index.
func (it IndexType) Bytes() int {
	if it == IndexUint16 {
		return 2
	}
	return 4
}

// InputRate is whether a vertex binding advances per vertex or instance.
type InputRate int32

const (
	RatePerVertex InputRate = iota
	RatePerInstance
)
