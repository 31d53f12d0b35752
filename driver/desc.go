// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package driver

// Extent2D is a width and height in pixels.
type Extent2D struct {
	Width, Height uint32
}

// IsZero returns true if either dimension is zero.
func (e Extent2D) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}

// Extent3D is a width, height and depth in pixels.
type Extent3D struct {
	Width, Height, Depth uint32
}

// Extent2D returns the width and height.
func (e Extent3D) Extent2D() Extent2D {
	return Extent2D{e.Width, e.Height}
}

// Rect2D is a rectangle in framebuffer coordinates.
type Rect2D struct {
	X, Y   int32
	Extent Extent2D
}

// Viewport maps normalized device coordinates to the framebuffer.
type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

// BufferDesc describes a buffer to create.
type BufferDesc struct {
	Size  int
	Usage BufferUsage
}

// ImageDesc describes an image to create.
type ImageDesc struct {
	Type      ImageType
	Extent    Extent3D
	Format    Format
	MipLevels int
	Samples   SampleCount
}

// ImageViewDesc describes a 2D view of an image.
type ImageViewDesc struct {
	Image     Image
	Format    Format
	Aspect    ImageAspect
	MipLevels int
}

// SamplerDesc describes a linear, repeating sampler.
type SamplerDesc struct {
	MaxLod float32

	// Anisotropy enables anisotropic filtering when the device supports it.
	Anisotropy bool
}

// DescriptorPoolSize is the capacity of a pool for one descriptor type.
type DescriptorPoolSize struct {
	Type  DescriptorType
	Count int
}

// DescriptorPoolDesc describes a descriptor pool.
type DescriptorPoolDesc struct {
	Sizes   []DescriptorPoolSize
	MaxSets int
}

// DescriptorBinding is one binding slot of a descriptor set layout.
type DescriptorBinding struct {
	Binding int
	Type    DescriptorType
	Count   int
	Stages  ShaderStages
}

// DescriptorSetLayoutDesc describes a descriptor set layout.
type DescriptorSetLayoutDesc struct {
	Bindings []DescriptorBinding
}

// BufferBinding is a buffer range bound to a uniform descriptor.
type BufferBinding struct {
	Buffer Buffer
	Offset int
	Size   int
}

// TextureBinding is an image view plus sampler bound to a
// combined image sampler descriptor.
type TextureBinding struct {
	View    ImageView
	Sampler Sampler
}

// DescriptorWrite updates the descriptors of one set: Uniforms go to
// consecutive bindings starting at UniformBinding, Textures to
// consecutive bindings starting at TextureBinding.
type DescriptorWrite struct {
	Set            DescriptorSet
	UniformBinding int
	Uniforms       []BufferBinding
	TextureBinding int
	Textures       []TextureBinding
}

// VertexBinding describes one vertex buffer slot.
type VertexBinding struct {
	Binding int
	Stride  int
	Rate    InputRate
}

// VertexAttribute describes one vertex shader input.
type VertexAttribute struct {
	Location int
	Binding  int
	Format   Format
	Offset   int
}

// PushConstantRange is a range of push constant memory.
type PushConstantRange struct {
	Stages ShaderStages
	Offset int
	Size   int
}

// PipelineDesc describes a graphics pipeline that draws indexed
// triangle lists with back-face culling and depth testing.
type PipelineDesc struct {
	SetLayouts    []DescriptorSetLayout
	Vertex        Shader
	Fragment      Shader
	Bindings      []VertexBinding
	Attributes    []VertexAttribute
	PushConstants []PushConstantRange
	ColorFormat   Format
	DepthFormat   Format
	Samples       SampleCount
}

// BufferCopy is a region copied between buffers.
type BufferCopy struct {
	SrcOffset int
	DstOffset int
	Size      int
}

// BufferImageCopy copies tightly packed buffer data into
// one mip level of an image.
type BufferImageCopy struct {
	BufferOffset int
	MipLevel     int
	Aspect       ImageAspect
	Extent       Extent3D
}

// ImageBarrier is an image memory barrier with a layout transition.
type ImageBarrier struct {
	Image     Image
	OldLayout ImageLayout
	NewLayout ImageLayout
	SrcStage  PipelineStages
	DstStage  PipelineStages
	SrcAccess Access
	DstAccess Access
	Aspect    ImageAspect
	BaseMip   int
	MipCount  int
}

// ImageBlit blits all of SrcMip into all of DstMip of the same image,
// with linear filtering. The image must be in TransferSrc layout at
// SrcMip and TransferDst layout at DstMip.
type ImageBlit struct {
	SrcMip    int
	DstMip    int
	SrcExtent Extent2D
	DstExtent Extent2D
}

// RenderingInfo begins dynamic rendering into the given attachments.
// Resolve is nil when Samples is 1. Depth is nil without depth testing.
type RenderingInfo struct {
	Extent      Extent2D
	Color       ImageView
	Resolve     ImageView
	Depth       ImageView
	ColorFormat Format
	DepthFormat Format
	Samples     SampleCount
	ClearColor  [4]float32
	ClearDepth  float32
}

// SubmitInfo is one queue submission.
type SubmitInfo struct {
	CommandBuffers []CommandBuffer
	Wait           []Semaphore
	WaitStages     []PipelineStages
	Signal         []Semaphore
}

// PresentInfo presents one swapchain image.
type PresentInfo struct {
	Swapchain  Swapchain
	ImageIndex uint32
	Wait       []Semaphore
}

// SurfaceFormat is a format and color space pair supported by a surface.
type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

// SurfaceCapabilities are the swapchain limits of a surface.
// CurrentExtent.Width is math.MaxUint32 when the surface size
// is determined by the swapchain.
type SurfaceCapabilities struct {
	MinImageCount uint32

	// MaxImageCount is 0 when there is no limit.
	MaxImageCount uint32
	CurrentExtent Extent2D
	MinExtent     Extent2D
	MaxExtent     Extent2D
	Formats       []SurfaceFormat
	PresentModes  []PresentMode
}

// SwapchainDesc describes a swapchain to create.
type SwapchainDesc struct {
	Surface       Surface
	MinImageCount uint32
	Format        SurfaceFormat
	Extent        Extent2D
	PresentMode   PresentMode

	// Old is the swapchain being replaced, or nil.
	Old Swapchain
}
