// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package render draws textured triangle mesh models into a window
// surface using the hal [hal.Backend]. Model data is uploaded once
// through staging buffers into device-local vertex and index buffers,
// and each [Renderer.Update] renders one frame of the models added with
// [Renderer.AddModel].
package render

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"cogentcore.org/core/base/errors"
	"cogentcore.org/core/math32"
	"cogentcore.org/vhal/driver"
	"cogentcore.org/vhal/hal"
	"cogentcore.org/vhal/resource"
	"golang.org/x/image/draw"
)

// Debug is whether to log every rendered frame.
var Debug = false

type (
	modelListTag struct{}
	modelTag     struct{}
	textureTag   struct{}
)

func (modelListTag) KindName() string { return "ModelList" }
func (modelTag) KindName() string     { return "Model" }
func (textureTag) KindName() string   { return "Texture" }

type (
	// ModelRef is a handle to a model uploaded by [Renderer.MakeModels].
	ModelRef = resource.Ref[modelTag]

	// TextureRef is a handle to a texture made by [Renderer.MakeTexture].
	TextureRef = resource.Ref[textureTag]

	modelListRef = resource.Ref[modelListTag]
)

// modelList is the device buffers shared by the models uploaded together.
type modelList struct {
	Positions, Normals, TexCoords, Indices hal.Buffer
	Layout                                 listLayout
}

func (ml *modelList) release() {
	ml.Positions.Release()
	ml.Normals.Release()
	ml.TexCoords.Release()
	ml.Indices.Release()
}

// model is one model of a list, which it keeps alive.
type model struct {
	List  modelListRef
	Index int
}

// texture is a sampled image with mips.
type texture struct {
	Image   hal.Image
	View    hal.ImageView
	Sampler hal.Sampler
}

func (tx *texture) release() {
	tx.Sampler.Release()
	tx.View.Release()
	tx.Image.Release()
}

// Item is a model added for drawing, with its transform.
type Item struct {
	Model     ModelRef
	Transform math32.Matrix4
}

// Camera has the view and projection matrices shared by all models.
type Camera struct {
	View       math32.Matrix4
	Projection math32.Matrix4
}

// LookAt sets the view matrix for a camera at pos facing target.
func (cm *Camera) LookAt(pos, target, up math32.Vector3) {
	var lookq math32.Quat
	lookq.SetFromRotationMatrix(math32.NewLookAt(pos, target, up))
	var cview math32.Matrix4
	cview.SetTransform(pos, lookq, math32.Vec3(1, 1, 1))
	view, err := cview.Inverse()
	if errors.Log(err) == nil {
		cm.View = *view
	}
}

// SetPerspective sets a perspective projection with the given vertical
// field of view in degrees, flipping Y for the native clip space.
func (cm *Camera) SetPerspective(fov, aspect, near, far float32) {
	cm.Projection.SetPerspective(fov, aspect, near, far)
	cm.Projection[5] = -cm.Projection[5]
}

// Config configures a [Renderer].
type Config struct {

	// Vertex is the SPIR-V vertex shader. Its inputs are position,
	// normal and texture coordinates at locations 0, 1 and 2, its
	// uniform block at set 0 binding 0 is a [Camera], and its push
	// constant block is the model transform.
	Vertex []byte

	// Fragment is the SPIR-V fragment shader, which samples the
	// texture at set 0 binding 1.
	Fragment []byte

	// Buffering is the number of frames in flight; 0 uses
	// the backend options.
	Buffering int
}

// Renderer draws models into a window surface.
type Renderer struct {

	// Backend is the backend used for all resources; it is not owned.
	Backend *hal.Backend

	// Surface is the window surface rendered into.
	Surface hal.WindowSurface

	// Camera is uploaded at the start of each frame.
	Camera Camera

	// Frames is the number of frames presented.
	Frames int

	// Skipped is the number of frames skipped because the swapchain was
	// out of date or acquire or present failed.
	Skipped int

	swapchain hal.SwapchainRef
	buffering int
	cmds      []hal.CommandBuffer
	layout    hal.DescriptorSetLayout
	pool      hal.DescriptorPool
	sets      []hal.DescriptorSet
	uniforms  []hal.Buffer
	pipeline  hal.Pipeline

	lists    *resource.Map[modelListTag, *modelList]
	models   *resource.Map[modelTag, *model]
	textures *resource.Map[textureTag, *texture]

	// white is the texture used when none is set.
	white   TextureRef
	texture TextureRef

	// bound is the texture written into each slot's descriptor set,
	// kept until the slot is reused.
	bound []TextureRef
	items []Item
}

// New returns a renderer drawing into the surface.
func New(be *hal.Backend, surface hal.WindowSurface, cfg Config) (*Renderer, error) {
	if cfg.Buffering <= 0 {
		cfg.Buffering = be.Options.Buffering
	}
	rd := &Renderer{Backend: be, Surface: surface, buffering: cfg.Buffering}
	rd.lists = resource.NewMap[modelListTag]("model lists", (*modelList).release)
	rd.models = resource.NewMap[modelTag]("models", func(m *model) { m.List.Release() })
	rd.textures = resource.NewMap[textureTag]("textures", (*texture).release)
	if err := rd.config(cfg); err != nil {
		rd.Destroy()
		return nil, fmt.Errorf("render: %w", err)
	}
	return rd, nil
}

func (rd *Renderer) config(cfg Config) error {
	be := rd.Backend
	var err error
	rd.swapchain, err = be.MakeSwapchain(rd.Surface, rd.buffering)
	if err != nil {
		return err
	}
	sc, err := be.Swapchain(rd.swapchain)
	if err != nil {
		return err
	}
	rd.cmds, err = be.MakeCommandBuffers(rd.buffering)
	if err != nil {
		return err
	}
	rd.layout, err = be.MakeDescriptorSetLayout(driver.DescriptorSetLayoutDesc{Bindings: []driver.DescriptorBinding{
		{Binding: 0, Type: driver.DescriptorUniformBuffer, Stages: driver.StageVertex},
		{Binding: 1, Type: driver.DescriptorCombinedImageSampler, Stages: driver.StageFragment},
	}})
	if err != nil {
		return err
	}
	rd.pool, err = be.MakeDescriptorPool(driver.DescriptorPoolDesc{
		MaxSets: rd.buffering,
		Sizes: []driver.DescriptorPoolSize{
			{Type: driver.DescriptorUniformBuffer, Count: rd.buffering},
			{Type: driver.DescriptorCombinedImageSampler, Count: rd.buffering},
		},
	})
	if err != nil {
		return err
	}
	rd.sets, err = be.MakeDescriptorSets(rd.pool, rd.layout, rd.buffering)
	if err != nil {
		return err
	}
	rd.bound = make([]TextureRef, rd.buffering)
	var cam Camera
	for i := range rd.buffering {
		ub, err := be.MakeUniformBuffer(len(valueBytes(&cam)))
		if err != nil {
			return err
		}
		rd.uniforms = append(rd.uniforms, ub)
		if err := be.WriteDescriptorSet(rd.sets[i], 0, []hal.Buffer{ub}, 0, nil, nil); err != nil {
			return err
		}
	}

	vs, err := be.MakeShader(cfg.Vertex)
	if err != nil {
		return err
	}
	defer vs.Release()
	fs, err := be.MakeShader(cfg.Fragment)
	if err != nil {
		return err
	}
	defer fs.Release()
	var xform math32.Matrix4
	rd.pipeline, err = be.MakeGraphicsPipeline(hal.PipelineDesc{
		SetLayouts: []hal.DescriptorSetLayout{rd.layout},
		Vertex:     vs,
		Fragment:   fs,
		Bindings: []driver.VertexBinding{
			{Binding: 0, Stride: vec3Size},
			{Binding: 1, Stride: vec3Size},
			{Binding: 2, Stride: vec2Size},
		},
		Attributes: []driver.VertexAttribute{
			{Location: 0, Binding: 0, Format: driver.FormatR32G32B32Sfloat},
			{Location: 1, Binding: 1, Format: driver.FormatR32G32B32Sfloat},
			{Location: 2, Binding: 2, Format: driver.FormatR32G32Sfloat},
		},
		PushConstants: []driver.PushConstantRange{{Stages: driver.StageVertex, Size: len(valueBytes(&xform))}},
		ColorFormat:   sc.Format.Format,
		DepthFormat:   be.DepthFormat(),
		Samples:       be.SampleCount(),
	})
	if err != nil {
		return err
	}

	white := image.NewRGBA(image.Rect(0, 0, 1, 1))
	white.Set(0, 0, color.White)
	rd.white, err = rd.MakeTexture(white)
	if err != nil {
		return err
	}
	rd.SetTexture(rd.white)

	sz := rd.Surface.PixelSize()
	rd.Camera.LookAt(math32.Vec3(2, 2, 2), math32.Vec3(0, 0, 0), math32.Vec3(0, 1, 0))
	rd.Camera.SetPerspective(45, float32(sz.X)/float32(max(sz.Y, 1)), 0.1, 10)
	return nil
}

// MakeModels uploads the models into shared vertex and index buffers
// and returns a handle for each. The buffers are freed when all of the
// returned handles are released.
func (rd *Renderer) MakeModels(models []Model) ([]ModelRef, error) {
	ll, err := layoutModels(models)
	if err != nil {
		return nil, fmt.Errorf("render: make models: %w", err)
	}
	be := rd.Backend
	ml := &modelList{Layout: ll}
	fail := func(err error) ([]ModelRef, error) {
		ml.release()
		return nil, fmt.Errorf("render: make models: %w", err)
	}
	type upload struct {
		dst   *hal.Buffer
		make  func(int) (hal.Buffer, error)
		elem  int
		index bool
		data  func(ms *Mesh) []byte
	}
	uploads := []upload{
		{&ml.Positions, be.MakeVertexBuffer, vec3Size, false, func(ms *Mesh) []byte { return sliceBytes(ms.Positions) }},
		{&ml.Normals, be.MakeVertexBuffer, vec3Size, false, func(ms *Mesh) []byte { return sliceBytes(ms.Normals) }},
		{&ml.TexCoords, be.MakeVertexBuffer, vec2Size, false, func(ms *Mesh) []byte { return sliceBytes(ms.TexCoords) }},
		{&ml.Indices, be.MakeIndexBuffer, indexSize, true, func(ms *Mesh) []byte { return sliceBytes(ms.Indices) }},
	}
	staging := make([]hal.Buffer, len(uploads))
	defer resource.ReleaseAll(staging)
	for i, up := range uploads {
		size := ll.Vertices * up.elem
		if up.index {
			size = ll.Indices * up.elem
		}
		if *up.dst, err = up.make(size); err != nil {
			return fail(err)
		}
		if staging[i], err = be.MakeStagingBuffer(size); err != nil {
			return fail(err)
		}
		var updates []hal.BufferUpdate
		for mi, ranges := range ll.Meshes {
			for si, mr := range ranges {
				first, count := mr.FirstVertex, mr.VertexCount
				if up.index {
					first, count = mr.FirstIndex, mr.IndexCount
				}
				data := up.data(&models[mi].Meshes[si])
				if len(data) == 0 {
					data = make([]byte, count*up.elem)
				}
				updates = append(updates, hal.BufferUpdate{Data: data, Offset: first * up.elem})
			}
		}
		if err := be.UpdateBuffer(staging[i], updates); err != nil {
			return fail(err)
		}
	}
	err = be.Cmds.OneTime(func(cb hal.CommandBuffer) error {
		for i, up := range uploads {
			if err := be.CopyBuffer(cb, staging[i], *up.dst); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fail(err)
	}

	list := rd.lists.Add(ml)
	defer list.Release()
	refs := make([]ModelRef, len(models))
	for i := range models {
		refs[i] = rd.models.Add(&model{List: list.Clone(), Index: i})
	}
	slog.Debug("render: uploaded models", "models", len(models), "vertices", ll.Vertices, "indices", ll.Indices)
	return refs, nil
}

// MakeTexture uploads the image into a mipmapped texture.
func (rd *Renderer) MakeTexture(img image.Image) (TextureRef, error) {
	be := rd.Backend
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || b.Min != (image.Point{}) || rgba.Stride != 4*b.Dx() {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	if len(rgba.Pix) == 0 {
		return TextureRef{}, fmt.Errorf("render: make texture: empty image %v", b)
	}
	mips := hal.MipLevels(b.Dx(), b.Dy())
	tx := &texture{}
	fail := func(err error) (TextureRef, error) {
		tx.release()
		return TextureRef{}, fmt.Errorf("render: make texture: %w", err)
	}
	staging, err := be.MakeStagingBuffer(len(rgba.Pix))
	if err != nil {
		return fail(err)
	}
	defer staging.Release()
	if err := be.UpdateBuffer(staging, []hal.BufferUpdate{{Data: rgba.Pix}}); err != nil {
		return fail(err)
	}
	tx.Image, err = be.MakeImage(driver.ImageDesc{
		Type:      driver.ImageTexture,
		Extent:    driver.Extent3D{Width: uint32(b.Dx()), Height: uint32(b.Dy()), Depth: 1},
		Format:    driver.FormatR8G8B8A8Srgb,
		MipLevels: mips,
		Samples:   1,
	})
	if err != nil {
		return fail(err)
	}
	err = be.Cmds.OneTime(func(cb hal.CommandBuffer) error {
		if err := be.TransitionImageLayout(cb, tx.Image, driver.LayoutTransferDst); err != nil {
			return err
		}
		if err := be.CopyBufferToImage(cb, staging, tx.Image); err != nil {
			return err
		}
		return be.GenerateMipmaps(cb, tx.Image)
	})
	if err != nil {
		return fail(err)
	}
	if tx.View, err = be.MakeImageView(tx.Image, driver.AspectColor, mips); err != nil {
		return fail(err)
	}
	if tx.Sampler, err = be.MakeSampler(float32(mips)); err != nil {
		return fail(err)
	}
	return rd.textures.Add(tx), nil
}

// SetTexture sets the texture sampled by all models. It is written
// into each frame's descriptor set once that frame's slot is free.
func (rd *Renderer) SetTexture(tex TextureRef) {
	rd.texture.Release()
	rd.texture = tex.Clone()
}

func (rd *Renderer) writeTexture(set hal.DescriptorSet) error {
	tx, err := rd.textures.Get(rd.texture)
	if err != nil {
		return err
	}
	return rd.Backend.WriteDescriptorSet(set, 0, nil, 1, []hal.ImageView{tx.View}, []hal.Sampler{tx.Sampler})
}

// AddModel adds the model to be drawn with the given transform.
func (rd *Renderer) AddModel(m ModelRef, transform math32.Matrix4) error {
	if _, err := rd.models.Get(m); err != nil {
		return fmt.Errorf("render: add model: %w", err)
	}
	rd.items = append(rd.items, Item{Model: m.Clone(), Transform: transform})
	return nil
}

// RemoveModel removes every drawing of the model, returning how many
// were removed.
func (rd *Renderer) RemoveModel(m ModelRef) int {
	n := 0
	kept := rd.items[:0]
	for _, it := range rd.items {
		if it.Model.Same(m) {
			it.Model.Release()
			n++
			continue
		}
		kept = append(kept, it)
	}
	clear(rd.items[len(kept):])
	rd.items = kept
	return n
}

// ClearModels removes all models from drawing.
func (rd *Renderer) ClearModels() {
	for i := range rd.items {
		rd.items[i].Model.Release()
	}
	rd.items = nil
}

// Items returns the models being drawn.
func (rd *Renderer) Items() []Item {
	return rd.items
}

// Update renders and presents one frame. A frame that cannot be
// rendered because the swapchain is out of date or the acquire or
// present failed is skipped and logged, without an error; errors
// are returned for misuse and device failures, after which the next
// Update starts over on a rebuilt swapchain.
func (rd *Renderer) Update() error {
	be := rd.Backend
	frame, res, err := be.BeginFrame(rd.swapchain)
	if err != nil {
		return err
	}
	if res != hal.FrameOK {
		rd.skip("acquire", res)
		return nil
	}
	cmd := rd.cmds[frame.Slot]
	err = rd.record(cmd, frame)
	if err == nil {
		err = be.UpdateBuffer(rd.uniforms[frame.Slot], []hal.BufferUpdate{{Data: valueBytes(&rd.Camera)}})
	}
	if err != nil {
		errors.Log(be.AbortFrame(cmd, rd.swapchain))
		return err
	}
	res, err = be.EndFrame(cmd, rd.swapchain)
	if err != nil {
		return err
	}
	if res != hal.FrameOK {
		rd.skip("present", res)
		return nil
	}
	if Debug {
		slog.Debug("render: frame", "slot", frame.Slot, "image", frame.ImageIndex, "frames", rd.Frames)
	}
	rd.Frames++
	return nil
}

// record records the draws of all items into the frame's command buffer.
func (rd *Renderer) record(cmd hal.CommandBuffer, frame hal.Frame) error {
	be := rd.Backend
	set := rd.sets[frame.Slot]
	if err := rd.writeTexture(set); err != nil {
		return err
	}
	rd.bound[frame.Slot].Release()
	rd.bound[frame.Slot] = rd.texture.Clone()
	if err := be.BeginRendering(cmd, rd.swapchain); err != nil {
		return err
	}
	if err := be.SetPipelineState(cmd, rd.swapchain, rd.pipeline, []hal.DescriptorSet{set}); err != nil {
		return err
	}
	for _, it := range rd.items {
		if err := rd.draw(cmd, it); err != nil {
			return err
		}
	}
	return be.EndRendering(cmd, rd.swapchain)
}

func (rd *Renderer) draw(cmd hal.CommandBuffer, it Item) error {
	be := rd.Backend
	m, err := rd.models.Get(it.Model)
	if err != nil {
		return err
	}
	ml, err := rd.lists.Get(m.List)
	if err != nil {
		return err
	}
	if err := be.PushConstants(cmd, rd.pipeline, driver.StageVertex, 0, valueBytes(&it.Transform)); err != nil {
		return err
	}
	if err := be.SetVertexBuffers(cmd, []hal.Buffer{ml.Positions, ml.Normals, ml.TexCoords}, []int{0, 0, 0}, 0); err != nil {
		return err
	}
	if err := be.SetIndexBuffer(cmd, ml.Indices, 0); err != nil {
		return err
	}
	for _, mr := range ml.Layout.Meshes[m.Index] {
		if err := be.DrawIndexed(cmd, mr.IndexCount, 1, mr.FirstIndex, mr.FirstVertex, 0); err != nil {
			return err
		}
	}
	return nil
}

// skip logs a frame that was not presented.
func (rd *Renderer) skip(stage string, res hal.FrameResult) {
	rd.Skipped++
	if res == hal.FrameRecreationRequired {
		slog.Info("render: frame skipped, swapchain recreated", "stage", stage, "frames", rd.Frames)
		if sc, err := rd.Backend.Swapchain(rd.swapchain); err == nil && !sc.Extent.IsZero() {
			rd.Camera.SetPerspective(45, float32(sc.Extent.Width)/float32(sc.Extent.Height), 0.1, 10)
		}
		return
	}
	slog.Error("render: frame skipped", "stage", stage, "result", res, "frames", rd.Frames)
}

// Destroy waits for the device to be idle and releases all resources.
func (rd *Renderer) Destroy() {
	if rd.Backend == nil {
		return
	}
	errors.Log(rd.Backend.WaitIdle())
	rd.ClearModels()
	rd.texture.Release()
	resource.ReleaseAll(rd.bound)
	rd.white.Release()
	rd.pipeline.Release()
	resource.ReleaseAll(rd.uniforms)
	resource.ReleaseAll(rd.sets)
	rd.pool.Release()
	rd.layout.Release()
	resource.ReleaseAll(rd.cmds)
	rd.swapchain.Release()
	rd.Backend = nil
}
