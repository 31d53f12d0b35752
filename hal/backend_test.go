// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hal

import (
	"os"
	"path/filepath"
	"testing"

	"cogentcore.org/vhal/driver"
	"cogentcore.org/vhal/driver/soft"
	"cogentcore.org/vhal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImageDesc(w, h uint32, mips int) driver.ImageDesc {
	return driver.ImageDesc{Type: driver.ImageTexture, Extent: driver.Extent3D{Width: w, Height: h, Depth: 1},
		Format: driver.FormatR8G8B8A8Srgb, MipLevels: mips, Samples: 1}
}

func TestMakeBuffers(t *testing.T) {
	be, dev := newTestBackend(t, nil)
	var bufs []Buffer
	for _, mk := range []func(int) (Buffer, error){be.MakeStagingBuffer, be.MakeVertexBuffer, be.MakeIndexBuffer, be.MakeUniformBuffer} {
		b, err := mk(64)
		require.NoError(t, err)
		bufs = append(bufs, b)
	}
	for i, b := range bufs {
		assert.Equal(t, uint64(i), b.ID())
		sz, err := be.BufferSize(b)
		require.NoError(t, err)
		assert.Equal(t, 64, sz)
	}
	assert.Equal(t, 4, dev.Live("buffer"))

	_, err := be.MakeStagingBuffer(0)
	assert.ErrorIs(t, err, ErrPrecondition)

	resource.ReleaseAll(bufs)
	assert.Equal(t, 0, dev.Live("buffer"))
	assert.Equal(t, 0, be.buffers.Len())
}

func TestLookupAfterRelease(t *testing.T) {
	be, _ := newTestBackend(t, nil)
	a, err := be.MakeUniformBuffer(16)
	require.NoError(t, err)
	b, err := be.MakeUniformBuffer(16)
	require.NoError(t, err)
	stale := a
	a.Release()
	assert.False(t, a.IsValid())

	err = be.UpdateBuffer(stale, []BufferUpdate{{Data: []byte{1}}})
	assert.ErrorContains(t, err, "buffers has no resource with id 0")
	assert.NoError(t, be.UpdateBuffer(b, []BufferUpdate{{Data: []byte{1}}}))

	c, err := be.MakeUniformBuffer(16)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), c.ID())
}

func TestUpdateReadBuffer(t *testing.T) {
	be, _ := newTestBackend(t, nil)
	u, err := be.MakeUniformBuffer(8)
	require.NoError(t, err)
	require.NoError(t, be.UpdateBuffer(u, []BufferUpdate{{Data: []byte{1, 2}, Offset: 0}, {Data: []byte{7, 8}, Offset: 6}}))
	got := make([]byte, 8)
	require.NoError(t, be.ReadBuffer(u, 0, got))
	assert.Equal(t, []byte{1, 2, 0, 0, 0, 0, 7, 8}, got)

	err = be.UpdateBuffer(u, []BufferUpdate{{Data: []byte{1, 2}, Offset: 7}})
	assert.ErrorIs(t, err, ErrPrecondition)
	assert.ErrorIs(t, be.ReadBuffer(u, 4, got), ErrPrecondition)

	// device local buffers are not host visible
	v, err := be.MakeVertexBuffer(8)
	require.NoError(t, err)
	assert.Error(t, be.UpdateBuffer(v, []BufferUpdate{{Data: []byte{1}}}))
}

func TestCopyBufferSizeMismatch(t *testing.T) {
	be, _ := newTestBackend(t, nil)
	src, err := be.MakeStagingBuffer(16)
	require.NoError(t, err)
	dst, err := be.MakeVertexBuffer(32)
	require.NoError(t, err)
	err = be.Cmds.OneTime(func(cmd CommandBuffer) error {
		return be.CopyBuffer(cmd, src, dst)
	})
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestSetVertexBuffersMismatch(t *testing.T) {
	be, _ := newTestBackend(t, nil)
	vb, err := be.MakeVertexBuffer(16)
	require.NoError(t, err)
	err = be.Cmds.OneTime(func(cmd CommandBuffer) error {
		return be.SetVertexBuffers(cmd, []Buffer{vb}, []int{0, 4}, 0)
	})
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestDescriptorSets(t *testing.T) {
	be, dev := newTestBackend(t, nil)
	pool, err := be.MakeDescriptorPool(driver.DescriptorPoolDesc{})
	require.NoError(t, err)
	layout, err := be.MakeDescriptorSetLayout(driver.DescriptorSetLayoutDesc{Bindings: []driver.DescriptorBinding{
		{Binding: 0, Type: driver.DescriptorUniformBuffer, Stages: driver.StageVertex},
		{Binding: 1, Type: driver.DescriptorCombinedImageSampler, Stages: driver.StageFragment},
	}})
	require.NoError(t, err)
	sets, err := be.MakeDescriptorSets(pool, layout, 2)
	require.NoError(t, err)

	// the default pool holds Buffering sets
	_, err = be.MakeDescriptorSets(pool, layout, 1)
	assert.Error(t, err)

	ub, err := be.MakeUniformBuffer(64)
	require.NoError(t, err)
	img, err := be.MakeImage(testImageDesc(4, 4, 1))
	require.NoError(t, err)
	view, err := be.MakeImageView(img, driver.AspectColor, 1)
	require.NoError(t, err)
	smp, err := be.MakeSampler(1)
	require.NoError(t, err)

	err = be.WriteDescriptorSet(sets[0], 0, []Buffer{ub}, 1, []ImageView{view}, nil)
	assert.ErrorIs(t, err, ErrPrecondition)
	require.NoError(t, be.WriteDescriptorSet(sets[0], 0, []Buffer{ub}, 1, []ImageView{view}, []Sampler{smp}))
	ds, _ := be.descriptorSets.Get(sets[0])
	native := ds.native.(*soft.DescriptorSet)
	assert.Equal(t, 64, native.Uniforms[0].Size)
	assert.Contains(t, native.Textures, 1)

	// sets keep their pool alive
	pool.Release()
	assert.Equal(t, 1, dev.Live("descriptorpool"))
	resource.ReleaseAll(sets)
	assert.Equal(t, 0, dev.Live("descriptorpool"))
	assert.Equal(t, 0, dev.Live("descriptorset"))
}

func TestImageViewKeepsImage(t *testing.T) {
	be, dev := newTestBackend(t, nil)
	img, err := be.MakeImage(testImageDesc(8, 8, 4))
	require.NoError(t, err)
	view, err := be.MakeImageView(img, driver.AspectColor, 4)
	require.NoError(t, err)
	img.Release()
	assert.Equal(t, 1, dev.Live("image"))
	view.Release()
	assert.Equal(t, 0, dev.Live("image"))
	assert.Equal(t, 0, dev.Live("imageview"))
}

func TestMakeImageError(t *testing.T) {
	be, _ := newTestBackend(t, nil)
	_, err := be.MakeImage(testImageDesc(0, 8, 1))
	assert.ErrorContains(t, err, "vhal: make image:")
}

func TestTransitions(t *testing.T) {
	be, dev := newTestBackend(t, nil)
	img, err := be.MakeImage(testImageDesc(4, 4, 1))
	require.NoError(t, err)

	err = be.Cmds.OneTime(func(cmd CommandBuffer) error {
		return be.TransitionImageLayout(cmd, img, driver.LayoutShaderReadOnly)
	})
	assert.ErrorIs(t, err, ErrPrecondition)

	err = be.Cmds.OneTime(func(cmd CommandBuffer) error {
		if err := be.TransitionImageLayout(cmd, img, driver.LayoutTransferDst); err != nil {
			return err
		}
		return be.TransitionImageLayout(cmd, img, driver.LayoutShaderReadOnly)
	})
	require.NoError(t, err)
	l, err := be.ImageLayout(img)
	require.NoError(t, err)
	assert.Equal(t, driver.LayoutShaderReadOnly, l)

	depth, err := be.MakeImage(driver.ImageDesc{Type: driver.ImageDepthAttachment, Extent: driver.Extent3D{Width: 4, Height: 4},
		Format: driver.FormatD24UnormS8Uint})
	require.NoError(t, err)
	err = be.Cmds.OneTime(func(cmd CommandBuffer) error {
		return be.TransitionImageLayout(cmd, depth, driver.LayoutDepthStencilAttachment)
	})
	require.NoError(t, err)
	assert.Empty(t, dev.Errors)
}

func TestTextureUploadAndMipmaps(t *testing.T) {
	be, _ := newTestBackend(t, nil)
	const w, h = 8, 4
	mips := MipLevels(w, h)
	assert.Equal(t, 4, mips)

	pix := make([]byte, w*h*4)
	for i := range pix {
		pix[i] = 200
	}
	staging, err := be.MakeStagingBuffer(len(pix))
	require.NoError(t, err)
	require.NoError(t, be.UpdateBuffer(staging, []BufferUpdate{{Data: pix}}))
	img, err := be.MakeImage(testImageDesc(w, h, mips))
	require.NoError(t, err)

	err = be.Cmds.OneTime(func(cmd CommandBuffer) error {
		if err := be.CopyBufferToImage(cmd, staging, img); err != nil {
			return err
		}
		return nil
	})
	assert.ErrorIs(t, err, ErrPrecondition)

	err = be.Cmds.OneTime(func(cmd CommandBuffer) error {
		if err := be.TransitionImageLayout(cmd, img, driver.LayoutTransferDst); err != nil {
			return err
		}
		if err := be.CopyBufferToImage(cmd, staging, img); err != nil {
			return err
		}
		return be.GenerateMipmaps(cmd, img)
	})
	require.NoError(t, err)

	im, _ := be.images.Get(img)
	native := im.native.(*soft.Image)
	for i := range mips {
		assert.Equal(t, driver.LayoutShaderReadOnly, native.Layouts[i], "mip %d", i)
	}
	last := native.Mips[mips-1]
	require.Len(t, last, 4)
	assert.InDelta(t, 200, int(last[0]), 1)
}

func TestMipLevels(t *testing.T) {
	assert.Equal(t, 1, MipLevels(1, 1))
	assert.Equal(t, 11, MipLevels(1024, 512))
	assert.Equal(t, 10, MipLevels(1023, 1))
	assert.Equal(t, 1, MipLevels(0, 0))
}

func TestPipelineAndDraw(t *testing.T) {
	be, dev := newTestBackend(t, nil)
	sc, _ := newTestSwapchain(t, be, 2)
	vs, err := be.MakeShader(shaderCode)
	require.NoError(t, err)
	fs, err := be.MakeShader(shaderCode)
	require.NoError(t, err)
	_, err = be.MakeShader([]byte{1, 2, 3})
	assert.ErrorContains(t, err, "vhal: make shader")

	layout, err := be.MakeDescriptorSetLayout(driver.DescriptorSetLayoutDesc{Bindings: []driver.DescriptorBinding{
		{Binding: 0, Type: driver.DescriptorUniformBuffer, Stages: driver.StageVertex}}})
	require.NoError(t, err)
	pool, err := be.MakeDescriptorPool(driver.DescriptorPoolDesc{})
	require.NoError(t, err)
	sets, err := be.MakeDescriptorSets(pool, layout, 2)
	require.NoError(t, err)

	pipe, err := be.MakeGraphicsPipeline(PipelineDesc{
		SetLayouts:    []DescriptorSetLayout{layout},
		Vertex:        vs,
		Fragment:      fs,
		Bindings:      []driver.VertexBinding{{Binding: 0, Stride: 12}},
		Attributes:    []driver.VertexAttribute{{Location: 0, Format: driver.FormatR32G32B32Sfloat}},
		PushConstants: []driver.PushConstantRange{{Stages: driver.StageVertex, Size: 64}},
		ColorFormat:   be.ColorFormat(),
		DepthFormat:   be.DepthFormat(),
		Samples:       be.SampleCount(),
	})
	require.NoError(t, err)
	// the pipeline does not need its shaders after creation
	vs.Release()
	fs.Release()

	vb, err := be.MakeVertexBuffer(36)
	require.NoError(t, err)
	ib, err := be.MakeIndexBuffer(12)
	require.NoError(t, err)
	cmds, err := be.MakeCommandBuffers(2)
	require.NoError(t, err)

	for range 3 {
		frame, res, err := be.BeginFrame(sc)
		require.NoError(t, err)
		require.Equal(t, FrameOK, res)
		cmd := cmds[frame.Slot]
		require.NoError(t, be.BeginRendering(cmd, sc))
		require.NoError(t, be.SetPipelineState(cmd, sc, pipe, sets[frame.Slot:frame.Slot+1]))
		require.NoError(t, be.PushConstants(cmd, pipe, driver.StageVertex, 0, make([]byte, 64)))
		require.NoError(t, be.SetVertexBuffers(cmd, []Buffer{vb}, []int{0}, 0))
		require.NoError(t, be.SetIndexBuffer(cmd, ib, 0))
		require.NoError(t, be.DrawIndexed(cmd, 3, 1, 0, 0, 0))
		require.NoError(t, be.EndRendering(cmd, sc))
		res, err = be.EndFrame(cmd, sc)
		require.NoError(t, err)
		assert.Equal(t, FrameOK, res)
	}
	assert.Equal(t, 3, dev.Draws)
	assert.Empty(t, dev.Errors)
}

func TestOptions(t *testing.T) {
	o := NewOptions()
	assert.Equal(t, 2, o.Buffering)
	assert.Equal(t, "fifo", o.PresentMode)
	assert.Equal(t, 8, o.MaxSamples)
	assert.True(t, o.Depth)
	assert.Equal(t, "rgba8-srgb", o.ColorFormat)
	assert.Equal(t, [4]float32{0, 0, 0, 1}, o.ClearColor)
	assert.NoError(t, o.Validate())
	assert.Contains(t, o.String(), "Buffering = 2")

	fn := filepath.Join(t.TempDir(), "vhal.toml")
	require.NoError(t, os.WriteFile(fn, []byte("Buffering = 3\nPresentMode = \"mailbox\"\n"), 0666))
	o, err := OpenOptions(fn)
	require.NoError(t, err)
	assert.Equal(t, 3, o.Buffering)
	assert.Equal(t, "mailbox", o.PresentMode)
	assert.True(t, o.Depth)

	o.PresentMode = "sideways"
	o.Buffering = 0
	err = o.Validate()
	assert.ErrorIs(t, err, ErrPrecondition)
	assert.ErrorContains(t, err, "sideways")
	_, err = NewBackend(soft.NewDevice(), o)
	assert.Error(t, err)
}
