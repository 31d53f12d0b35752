// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"fmt"
	"unsafe"

	"cogentcore.org/core/math32"
)

// Mesh is an indexed triangle mesh. Normals and TexCoords, if present,
// have one entry per position; missing ones are uploaded as zeros.
type Mesh struct {
	Positions []math32.Vector3
	Normals   []math32.Vector3
	TexCoords []math32.Vector2
	Indices   []uint32
}

// Validate returns an error if the mesh cannot be drawn.
func (ms *Mesh) Validate() error {
	np := len(ms.Positions)
	if np == 0 || len(ms.Indices) == 0 {
		return fmt.Errorf("mesh has %d positions and %d indices", np, len(ms.Indices))
	}
	if n := len(ms.Normals); n != 0 && n != np {
		return fmt.Errorf("mesh has %d normals for %d positions", n, np)
	}
	if n := len(ms.TexCoords); n != 0 && n != np {
		return fmt.Errorf("mesh has %d texture coordinates for %d positions", n, np)
	}
	for _, ix := range ms.Indices {
		if int(ix) >= np {
			return fmt.Errorf("mesh index %d out of range for %d positions", ix, np)
		}
	}
	return nil
}

// Model is a list of meshes drawn with one transform.
type Model struct {
	Meshes []Mesh
}

// meshRange is where a mesh lives in the buffers of its model list.
type meshRange struct {
	FirstVertex, VertexCount int
	FirstIndex, IndexCount   int
}

// listLayout is the packing of a list of models into shared
// position, normal, texture coordinate and index buffers.
type listLayout struct {
	Vertices int
	Indices  int

	// Meshes has the mesh ranges per model.
	Meshes [][]meshRange
}

// layoutModels packs the meshes of all models back to back.
func layoutModels(models []Model) (listLayout, error) {
	var ll listLayout
	ll.Meshes = make([][]meshRange, len(models))
	for mi := range models {
		for si := range models[mi].Meshes {
			ms := &models[mi].Meshes[si]
			if err := ms.Validate(); err != nil {
				return ll, fmt.Errorf("model %d: %w", mi, err)
			}
			mr := meshRange{FirstVertex: ll.Vertices, VertexCount: len(ms.Positions), FirstIndex: ll.Indices, IndexCount: len(ms.Indices)}
			ll.Meshes[mi] = append(ll.Meshes[mi], mr)
			ll.Vertices += mr.VertexCount
			ll.Indices += mr.IndexCount
		}
	}
	if ll.Vertices == 0 {
		return ll, fmt.Errorf("no meshes in %d models", len(models))
	}
	return ll, nil
}

// Vertex attribute strides.
const (
	vec3Size  = int(unsafe.Sizeof(math32.Vector3{}))
	vec2Size  = int(unsafe.Sizeof(math32.Vector2{}))
	indexSize = 4
)

// sliceBytes returns the memory of a slice of plain values as bytes.
func sliceBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var t T
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(t)))
}

// valueBytes returns the memory of a plain value as bytes.
func valueBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))
}

// NewBox returns a box model of the given size centered on the origin,
// with one quad per face so each face has its own normal and texture
// coordinates.
func NewBox(size math32.Vector3) Model {
	h := size.MulScalar(0.5)
	// each face: normal, then two in-plane axes u, v with u x v = normal
	faces := [6][3]math32.Vector3{
		{math32.Vec3(1, 0, 0), math32.Vec3(0, 0, -1), math32.Vec3(0, 1, 0)},
		{math32.Vec3(-1, 0, 0), math32.Vec3(0, 0, 1), math32.Vec3(0, 1, 0)},
		{math32.Vec3(0, 1, 0), math32.Vec3(1, 0, 0), math32.Vec3(0, 0, -1)},
		{math32.Vec3(0, -1, 0), math32.Vec3(1, 0, 0), math32.Vec3(0, 0, 1)},
		{math32.Vec3(0, 0, 1), math32.Vec3(1, 0, 0), math32.Vec3(0, 1, 0)},
		{math32.Vec3(0, 0, -1), math32.Vec3(-1, 0, 0), math32.Vec3(0, 1, 0)},
	}
	corners := [4]math32.Vector2{{X: -1, Y: -1}, {X: 1, Y: -1}, {X: 1, Y: 1}, {X: -1, Y: 1}}
	var ms Mesh
	for _, f := range faces {
		n, u, v := f[0], f[1], f[2]
		base := uint32(len(ms.Positions))
		for _, c := range corners {
			p := n.Add(u.MulScalar(c.X)).Add(v.MulScalar(c.Y)).Mul(h)
			ms.Positions = append(ms.Positions, p)
			ms.Normals = append(ms.Normals, n)
			ms.TexCoords = append(ms.TexCoords, math32.Vec2((c.X+1)/2, (1-c.Y)/2))
		}
		ms.Indices = append(ms.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return Model{Meshes: []Mesh{ms}}
}
