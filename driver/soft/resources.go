// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package soft

import (
	"errors"
	"fmt"
	"image"

	"cogentcore.org/vhal/driver"
)

// Buffer is a software buffer.
type Buffer struct {
	Desc driver.BufferDesc
	Data []byte
	dead bool
}

// Image is a software image. Each mip level is stored tightly packed,
// and every level tracks its own layout. Multisampled images store a
// single sample per pixel.
type Image struct {
	Desc    driver.ImageDesc
	Mips    [][]byte
	Layouts []driver.ImageLayout

	// Swapchain is set for images owned by a swapchain.
	Swapchain bool
	dead      bool
}

// MipExtent returns the size of the given mip level.
func (im *Image) MipExtent(level int) driver.Extent2D {
	w := max(im.Desc.Extent.Width>>level, 1)
	h := max(im.Desc.Extent.Height>>level, 1)
	return driver.Extent2D{Width: w, Height: h}
}

// RGBA returns the given mip level as an [image.RGBA] sharing its
// pixels, for 4 byte color formats.
func (im *Image) RGBA(level int) (*image.RGBA, error) {
	if im.Desc.Format.Bytes() != 4 || im.Desc.Format.IsDepth() {
		return nil, fmt.Errorf("soft: format %v is not a 4 byte color format", im.Desc.Format)
	}
	ex := im.MipExtent(level)
	return &image.RGBA{Pix: im.Mips[level], Stride: int(ex.Width) * 4, Rect: image.Rect(0, 0, int(ex.Width), int(ex.Height))}, nil
}

// ImageView is a software image view.
type ImageView struct {
	Image *Image
	Desc  driver.ImageViewDesc
	dead  bool
}

// Sampler is a software sampler; sampling is not emulated.
type Sampler struct {
	Desc driver.SamplerDesc
	dead bool
}

// Shader holds shader code; shaders are not executed.
type Shader struct {
	Code []byte
	dead bool
}

// Pipeline is a software graphics pipeline.
type Pipeline struct {
	Desc driver.PipelineDesc
	dead bool
}

// DescriptorPool is a software descriptor pool.
type DescriptorPool struct {
	Desc driver.DescriptorPoolDesc
	sets int
	dead bool
}

// DescriptorSetLayout is a software descriptor set layout.
type DescriptorSetLayout struct {
	Desc driver.DescriptorSetLayoutDesc
	dead bool
}

// DescriptorSet is a software descriptor set.
type DescriptorSet struct {
	Layout   *DescriptorSetLayout
	Uniforms map[int]driver.BufferBinding
	Textures map[int]driver.TextureBinding
	pool     *DescriptorPool
	dead     bool
}

func (d *Device) CreateBuffer(desc driver.BufferDesc) (driver.Buffer, error) {
	if desc.Size <= 0 {
		return nil, fmt.Errorf("soft: buffer size must be positive, got %d", desc.Size)
	}
	d.created("buffer")
	return &Buffer{Desc: desc, Data: make([]byte, desc.Size)}, nil
}

func (d *Device) DestroyBuffer(b driver.Buffer) {
	d.release("buffer", &b.(*Buffer).dead)
}

func (d *Device) hostRange(b driver.Buffer, offset, n int) (*Buffer, error) {
	sb := b.(*Buffer)
	if sb.dead {
		return nil, errors.New("soft: use of destroyed buffer")
	}
	if !sb.Desc.Usage.HostVisible() {
		return nil, fmt.Errorf("soft: %v buffer is not host visible", sb.Desc.Usage)
	}
	if offset < 0 || offset+n > len(sb.Data) {
		return nil, fmt.Errorf("soft: range [%d, %d) out of buffer of size %d", offset, offset+n, len(sb.Data))
	}
	return sb, nil
}

func (d *Device) WriteBuffer(b driver.Buffer, offset int, data []byte) error {
	sb, err := d.hostRange(b, offset, len(data))
	if err != nil {
		return err
	}
	copy(sb.Data[offset:], data)
	return nil
}

func (d *Device) ReadBuffer(b driver.Buffer, offset int, data []byte) error {
	sb, err := d.hostRange(b, offset, len(data))
	if err != nil {
		return err
	}
	copy(data, sb.Data[offset:])
	return nil
}

func (d *Device) newImage(desc driver.ImageDesc) *Image {
	im := &Image{Desc: desc}
	im.Mips = make([][]byte, desc.MipLevels)
	im.Layouts = make([]driver.ImageLayout, desc.MipLevels)
	for i := range desc.MipLevels {
		ex := im.MipExtent(i)
		im.Mips[i] = make([]byte, int(ex.Width)*int(ex.Height)*desc.Format.Bytes())
	}
	return im
}

func (d *Device) CreateImage(desc driver.ImageDesc) (driver.Image, error) {
	switch {
	case desc.Extent.Width == 0 || desc.Extent.Height == 0:
		return nil, errors.New("soft: image extent must be non-zero")
	case desc.MipLevels < 1:
		return nil, fmt.Errorf("soft: image needs at least one mip level, got %d", desc.MipLevels)
	case desc.Format == driver.FormatUndefined:
		return nil, errors.New("soft: image format is undefined")
	case desc.Samples < 1 || desc.Samples > d.MaxSamples:
		return nil, fmt.Errorf("soft: unsupported sample count %d", desc.Samples)
	case desc.Type == driver.ImageDepthAttachment && !desc.Format.IsDepth():
		return nil, fmt.Errorf("soft: depth attachment with color format %v", desc.Format)
	}
	d.created("image")
	return d.newImage(desc), nil
}

func (d *Device) DestroyImage(img driver.Image) {
	im := img.(*Image)
	if im.Swapchain {
		panic("soft: swapchain images are destroyed with their swapchain")
	}
	d.release("image", &im.dead)
}

func (d *Device) CreateImageView(desc driver.ImageViewDesc) (driver.ImageView, error) {
	im := desc.Image.(*Image)
	if im.dead {
		return nil, errors.New("soft: view of a destroyed image")
	}
	depth := desc.Aspect&driver.AspectDepth != 0
	if depth != im.Desc.Format.IsDepth() {
		return nil, fmt.Errorf("soft: aspect %d does not match format %v", desc.Aspect, im.Desc.Format)
	}
	if desc.MipLevels < 1 || desc.MipLevels > im.Desc.MipLevels {
		return nil, fmt.Errorf("soft: view of %d mips of an image with %d", desc.MipLevels, im.Desc.MipLevels)
	}
	d.created("imageview")
	return &ImageView{Image: im, Desc: desc}, nil
}

func (d *Device) DestroyImageView(v driver.ImageView) {
	d.release("imageview", &v.(*ImageView).dead)
}

func (d *Device) CreateSampler(desc driver.SamplerDesc) (driver.Sampler, error) {
	d.created("sampler")
	return &Sampler{Desc: desc}, nil
}

func (d *Device) DestroySampler(s driver.Sampler) {
	d.release("sampler", &s.(*Sampler).dead)
}

func (d *Device) CreateShader(code []byte) (driver.Shader, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, fmt.Errorf("soft: shader code size %d is not a positive multiple of 4", len(code))
	}
	d.created("shader")
	return &Shader{Code: code}, nil
}

func (d *Device) DestroyShader(s driver.Shader) {
	d.release("shader", &s.(*Shader).dead)
}

func (d *Device) CreateDescriptorPool(desc driver.DescriptorPoolDesc) (driver.DescriptorPool, error) {
	if desc.MaxSets < 1 {
		return nil, errors.New("soft: descriptor pool needs MaxSets >= 1")
	}
	d.created("descriptorpool")
	return &DescriptorPool{Desc: desc}, nil
}

func (d *Device) DestroyDescriptorPool(p driver.DescriptorPool) {
	dp := p.(*DescriptorPool)
	d.live["descriptorset"] -= dp.sets
	dp.sets = 0
	d.release("descriptorpool", &dp.dead)
}

func (d *Device) CreateDescriptorSetLayout(desc driver.DescriptorSetLayoutDesc) (driver.DescriptorSetLayout, error) {
	d.created("descriptorsetlayout")
	return &DescriptorSetLayout{Desc: desc}, nil
}

func (d *Device) DestroyDescriptorSetLayout(l driver.DescriptorSetLayout) {
	d.release("descriptorsetlayout", &l.(*DescriptorSetLayout).dead)
}

func (d *Device) AllocateDescriptorSets(pool driver.DescriptorPool, layout driver.DescriptorSetLayout, count int) ([]driver.DescriptorSet, error) {
	dp := pool.(*DescriptorPool)
	if dp.dead {
		return nil, errors.New("soft: allocate from a destroyed descriptor pool")
	}
	if dp.sets+count > dp.Desc.MaxSets {
		return nil, fmt.Errorf("soft: descriptor pool exhausted: %d + %d > %d sets", dp.sets, count, dp.Desc.MaxSets)
	}
	sets := make([]driver.DescriptorSet, count)
	for i := range sets {
		sets[i] = &DescriptorSet{Layout: layout.(*DescriptorSetLayout), pool: dp,
			Uniforms: map[int]driver.BufferBinding{}, Textures: map[int]driver.TextureBinding{}}
	}
	dp.sets += count
	d.live["descriptorset"] += count
	return sets, nil
}

func (d *Device) FreeDescriptorSets(pool driver.DescriptorPool, sets ...driver.DescriptorSet) {
	dp := pool.(*DescriptorPool)
	for _, s := range sets {
		ds := s.(*DescriptorSet)
		if ds.pool != dp {
			d.invalid("descriptor set freed to a different pool")
			continue
		}
		dp.sets--
		d.release("descriptorset", &ds.dead)
	}
}

func (d *Device) WriteDescriptorSet(w driver.DescriptorWrite) {
	ds := w.Set.(*DescriptorSet)
	for i, u := range w.Uniforms {
		ds.Uniforms[w.UniformBinding+i] = u
	}
	for i, t := range w.Textures {
		ds.Textures[w.TextureBinding+i] = t
	}
}

func (d *Device) CreatePipeline(desc driver.PipelineDesc) (driver.Pipeline, error) {
	if desc.Vertex == nil || desc.Fragment == nil {
		return nil, errors.New("soft: pipeline needs vertex and fragment shaders")
	}
	if desc.Samples < 1 {
		return nil, fmt.Errorf("soft: invalid pipeline sample count %d", desc.Samples)
	}
	d.created("pipeline")
	return &Pipeline{Desc: desc}, nil
}

func (d *Device) DestroyPipeline(p driver.Pipeline) {
	d.release("pipeline", &p.(*Pipeline).dead)
}
