// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bufferKind struct{}

func (bufferKind) KindName() string { return "Buffer" }

type imageKind struct{}

func TestMapAddGetRelease(t *testing.T) {
	mp := NewMap[bufferKind, string]("buffers", nil)
	a := mp.Add("A")
	b := mp.Add("B")
	assert.Equal(t, uint64(0), a.ID())
	assert.Equal(t, uint64(1), b.ID())

	v, err := mp.Get(a)
	require.NoError(t, err)
	assert.Equal(t, "A", v)

	a.Release()
	assert.False(t, a.IsValid())
	_, err = mp.GetID(0)
	assert.ErrorContains(t, err, "buffers has no resource with id 0")

	v, err = mp.Get(b)
	require.NoError(t, err)
	assert.Equal(t, "B", v)
	assert.Equal(t, 1, mp.Len())
}

func TestGetAfterAddAlways(t *testing.T) {
	mp := NewMap[bufferKind, int]("buffers", nil)
	var refs []Ref[bufferKind]
	for i := range 50 {
		r := mp.Add(i * 10)
		v, err := mp.Get(r)
		require.NoError(t, err)
		assert.Equal(t, i*10, v)
		refs = append(refs, r)
	}
	for i, r := range refs {
		id := r.ID()
		refs[i].Release()
		_, err := mp.GetID(id)
		assert.Error(t, err)
	}
	assert.Equal(t, 0, mp.Len())
}

func TestIDsNeverReused(t *testing.T) {
	mp := NewMap[bufferKind, int]("buffers", nil)
	r := mp.Add(1)
	r.Release()
	r2 := mp.Add(2)
	assert.Equal(t, uint64(1), r2.ID())
	assert.Equal(t, uint64(2), mp.NextID())
}

func TestCloneDeleterOnce(t *testing.T) {
	for _, n := range []int{0, 1, 5, 32} {
		calls := 0
		r := New[bufferKind](7, func() { calls++ })
		clones := make([]Ref[bufferKind], n)
		for i := range clones {
			clones[i] = r.Clone()
		}
		assert.Equal(t, n+1, r.RefCount())
		for i := range clones {
			clones[i].Release()
			assert.Equal(t, 0, calls)
		}
		r.Release()
		assert.Equal(t, 1, calls, "clones: %d", n)
	}
}

func TestReleaseTwiceSameVariable(t *testing.T) {
	calls := 0
	r := New[bufferKind](0, func() { calls++ })
	r.Release()
	r.Release()
	assert.Equal(t, 1, calls)
}

func TestFreeCalledOnErase(t *testing.T) {
	var freed []string
	mp := NewMap[bufferKind, string]("buffers", func(s string) { freed = append(freed, s) })
	a := mp.Add("A")
	a2 := a.Clone()
	a.Release()
	assert.Empty(t, freed)
	a2.Release()
	assert.Equal(t, []string{"A"}, freed)
}

func TestEmptyRef(t *testing.T) {
	var r Ref[imageKind]
	assert.False(t, r.IsValid())
	assert.Equal(t, 0, r.RefCount())
	assert.Panics(t, func() { r.ID() })
	assert.Panics(t, func() { r.Clone() })
	r.Release()

	mp := NewMap[imageKind, int]("images", nil)
	_, err := mp.Get(r)
	assert.ErrorContains(t, err, "images")
}

func TestRefString(t *testing.T) {
	var r Ref[bufferKind]
	assert.Equal(t, "Buffer(empty)", r.String())
	r = New[bufferKind](3, nil)
	assert.Equal(t, "Buffer(3)", r.String())
	c := r.Clone()
	assert.True(t, c.Same(r))
	ReleaseAll([]Ref[bufferKind]{r, c})
}
