// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"image"
	"image/color"
	"testing"

	"cogentcore.org/core/math32"
	"cogentcore.org/vhal/driver"
	"cogentcore.org/vhal/driver/soft"
	"cogentcore.org/vhal/hal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shaderCode is a stand-in for SPIR-V bytecode.
var shaderCode = []byte{0x03, 0x02, 0x23, 0x07, 0, 0, 1, 0}

func newTestRenderer(t *testing.T) (*Renderer, *soft.Device, *soft.Surface) {
	t.Helper()
	dev := soft.NewDevice()
	be, err := hal.NewBackend(dev, nil)
	require.NoError(t, err)
	surf := soft.NewSurface(64, 48)
	rd, err := New(be, surf, Config{Vertex: shaderCode, Fragment: shaderCode})
	require.NoError(t, err)
	t.Cleanup(func() {
		rd.Destroy()
		be.Destroy()
	})
	return rd, dev, surf
}

func triangle() Model {
	return Model{Meshes: []Mesh{{
		Positions: []math32.Vector3{math32.Vec3(-0.5, 0.5, 0), math32.Vec3(0.5, 0.5, 0), math32.Vec3(0, -0.5, 0)},
		Indices:   []uint32{0, 1, 2},
	}}}
}

func TestLayoutModels(t *testing.T) {
	box := NewBox(math32.Vec3(1, 2, 3))
	require.Len(t, box.Meshes, 1)
	assert.Len(t, box.Meshes[0].Positions, 24)
	assert.Len(t, box.Meshes[0].Indices, 36)
	assert.NoError(t, box.Meshes[0].Validate())
	for _, p := range box.Meshes[0].Positions {
		assert.Equal(t, float32(0.5), math32.Abs(p.X))
		assert.Equal(t, float32(1.5), math32.Abs(p.Z))
	}

	two := Model{Meshes: append(triangle().Meshes, triangle().Meshes...)}
	ll, err := layoutModels([]Model{box, two})
	require.NoError(t, err)
	assert.Equal(t, 30, ll.Vertices)
	assert.Equal(t, 42, ll.Indices)
	assert.Equal(t, []meshRange{{FirstVertex: 24, VertexCount: 3, FirstIndex: 36, IndexCount: 3},
		{FirstVertex: 27, VertexCount: 3, FirstIndex: 39, IndexCount: 3}}, ll.Meshes[1])

	_, err = layoutModels([]Model{{}})
	assert.ErrorContains(t, err, "no meshes")
	bad := triangle()
	bad.Meshes[0].Indices = []uint32{0, 1, 3}
	_, err = layoutModels([]Model{bad})
	assert.ErrorContains(t, err, "model 0: mesh index 3 out of range")
	bad = triangle()
	bad.Meshes[0].Normals = make([]math32.Vector3, 2)
	_, err = layoutModels([]Model{bad})
	assert.ErrorContains(t, err, "2 normals for 3 positions")
}

func TestDrawModels(t *testing.T) {
	rd, dev, _ := newTestRenderer(t)
	refs, err := rd.MakeModels([]Model{triangle(), NewBox(math32.Vec3(1, 1, 1))})
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, 1, rd.lists.Len())
	assert.Equal(t, 2, rd.models.Len())

	require.NoError(t, rd.AddModel(refs[0], *math32.Identity4()))
	require.NoError(t, rd.AddModel(refs[1], *math32.Identity4()))
	require.NoError(t, rd.AddModel(refs[1], *math32.Identity4()))
	for range 3 {
		require.NoError(t, rd.Update())
	}
	assert.Equal(t, 3, rd.Frames)
	assert.Equal(t, 0, rd.Skipped)
	assert.Equal(t, 9, dev.Draws)
	assert.Equal(t, 3, dev.Presents)
	assert.Empty(t, dev.Errors)

	// the camera is uploaded into the slot's uniform buffer
	cam := make([]byte, len(valueBytes(&rd.Camera)))
	require.NoError(t, rd.Backend.ReadBuffer(rd.uniforms[0], 0, cam))
	assert.Equal(t, valueBytes(&rd.Camera), cam)

	assert.Equal(t, 2, rd.RemoveModel(refs[1]))
	assert.Equal(t, 0, rd.RemoveModel(refs[1]))
	require.Len(t, rd.Items(), 1)
	require.NoError(t, rd.Update())
	assert.Equal(t, 10, dev.Draws)

	// the shared buffers live until every model is released
	rd.ClearModels()
	refs[0].Release()
	assert.Equal(t, 1, rd.lists.Len())
	refs[1].Release()
	assert.Equal(t, 0, rd.lists.Len())
	assert.Equal(t, 0, rd.models.Len())

	err = rd.AddModel(refs[0], *math32.Identity4())
	assert.ErrorContains(t, err, "render: add model")
}

func TestMakeModelsError(t *testing.T) {
	rd, dev, _ := newTestRenderer(t)
	buffers := dev.Live("buffer")
	_, err := rd.MakeModels([]Model{{}})
	assert.ErrorContains(t, err, "render: make models")
	assert.Equal(t, buffers, dev.Live("buffer"))
	assert.Equal(t, 0, rd.lists.Len())
}

func TestTexture(t *testing.T) {
	rd, dev, _ := newTestRenderer(t)
	img := image.NewNRGBA(image.Rect(2, 2, 10, 6))
	for y := 2; y < 6; y++ {
		for x := 2; x < 10; x++ {
			img.Set(x, y, color.NRGBA{R: 255, A: 255})
		}
	}
	tex, err := rd.MakeTexture(img)
	require.NoError(t, err)
	tx, err := rd.textures.Get(tex)
	require.NoError(t, err)
	layout, err := rd.Backend.ImageLayout(tx.Image)
	require.NoError(t, err)
	assert.Equal(t, driver.LayoutShaderReadOnly, layout)

	rd.SetTexture(tex)
	tex.Release()
	assert.Equal(t, 2, rd.textures.Len())
	require.NoError(t, rd.Update())
	assert.Empty(t, dev.Errors)

	// the texture stays alive until its frame slot is reused
	rd.SetTexture(rd.white)
	assert.Equal(t, 2, rd.textures.Len())
	require.NoError(t, rd.Update())
	require.NoError(t, rd.Update())
	assert.Equal(t, 1, rd.textures.Len())

	_, err = rd.MakeTexture(image.NewRGBA(image.Rectangle{}))
	assert.ErrorContains(t, err, "empty image")
}

func TestSkippedFrames(t *testing.T) {
	rd, dev, surf := newTestRenderer(t)
	refs, err := rd.MakeModels([]Model{triangle()})
	require.NoError(t, err)
	defer refs[0].Release()
	require.NoError(t, rd.AddModel(refs[0], *math32.Identity4()))

	surf.ScriptAcquire(driver.ErrorOutOfDate)
	require.NoError(t, rd.Update())
	assert.Equal(t, 1, rd.Skipped)
	assert.Equal(t, 0, rd.Frames)

	surf.Resize(80, 40)
	require.NoError(t, rd.Update())
	assert.Equal(t, 2, rd.Skipped)
	sc, err := rd.Backend.Swapchain(rd.swapchain)
	require.NoError(t, err)
	assert.Equal(t, driver.Extent2D{Width: 80, Height: 40}, sc.Extent)

	// a failed present still executed the draws
	surf.ScriptPresent(driver.ErrorOutOfDate)
	require.NoError(t, rd.Update())
	assert.Equal(t, 3, rd.Skipped)
	assert.Equal(t, 1, dev.Draws)

	require.NoError(t, rd.Update())
	assert.Equal(t, 1, rd.Frames)
	assert.Equal(t, 2, dev.Draws)
	assert.Empty(t, dev.Errors)
}

func TestFailedFrameRecovers(t *testing.T) {
	rd, dev, _ := newTestRenderer(t)
	refs, err := rd.MakeModels([]Model{triangle()})
	require.NoError(t, err)
	defer refs[0].Release()
	require.NoError(t, rd.AddModel(refs[0], *math32.Identity4()))

	// with no texture, recording fails after the frame began
	rd.texture.Release()
	assert.ErrorContains(t, rd.Update(), "empty Texture ref")
	assert.Error(t, rd.Update())
	assert.Equal(t, 0, rd.Frames)

	rd.SetTexture(rd.white)
	for range 3 {
		require.NoError(t, rd.Update())
	}
	assert.Equal(t, 3, rd.Frames)
	assert.Equal(t, 0, rd.Skipped)
	assert.Equal(t, 3, dev.Draws)
	sc, err := rd.Backend.Swapchain(rd.swapchain)
	require.NoError(t, err)
	assert.Equal(t, 2, sc.Recreations)
	assert.Empty(t, dev.Errors)
}
