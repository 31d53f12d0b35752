// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package resource provides reference-counted typed handles to GPU objects
([Ref]) and the per-kind registries that own those objects ([Map]).

A [Ref] is a shared-ownership token: [Ref.Clone] adds an owner and
[Ref.Release] removes one. When the last owner releases, the deleter
captured at creation runs exactly once, which erases the object from its
[Map] and destroys the native object. Plain Go assignment of a Ref does
not add an owner; it is a borrow that is valid only while some owner
remains.

The kind type parameter K makes refs of different resource kinds distinct
Go types, so a buffer ref can never be passed where an image ref is
expected, even if their numeric ids collide.
*/
package resource

import (
	"fmt"
	"sync/atomic"
)

// state is the shared state behind all clones of one [Ref].
type state struct {
	id      uint64
	refs    atomic.Int64
	deleter func()
}

// Ref is a reference-counted handle to one resource of kind K.
// The zero value refers to no resource.
type Ref[K any] struct {
	st *state
}

// New returns a new [Ref] with the given id, owning one reference.
// The deleter is called exactly once, when the last reference is released.
func New[K any](id uint64, deleter func()) Ref[K] {
	st := &state{id: id, deleter: deleter}
	st.refs.Store(1)
	return Ref[K]{st: st}
}

// IsValid returns true if the ref refers to a live resource.
func (r Ref[K]) IsValid() bool {
	return r.st != nil && r.st.refs.Load() > 0
}

// ID returns the numeric id of the resource within its registry.
// It panics on an empty ref: using one is a programmer error.
func (r Ref[K]) ID() uint64 {
	if r.st == nil {
		panic(fmt.Sprintf("resource.Ref[%s]: ID called on an empty ref", kindName[K]()))
	}
	return r.st.id
}

// RefCount returns the number of owners currently sharing the resource.
func (r Ref[K]) RefCount() int {
	if r.st == nil {
		return 0
	}
	return int(r.st.refs.Load())
}

// Clone returns a new owning copy of the ref, incrementing the shared count.
// The id is shared; no new resource is allocated. The returned ref must be
// released independently of r.
func (r Ref[K]) Clone() Ref[K] {
	if r.st == nil {
		panic(fmt.Sprintf("resource.Ref[%s]: Clone called on an empty ref", kindName[K]()))
	}
	for {
		n := r.st.refs.Load()
		if n <= 0 {
			panic(fmt.Sprintf("resource.Ref[%s]: Clone of released resource %d", kindName[K](), r.st.id))
		}
		if r.st.refs.CompareAndSwap(n, n+1) {
			return Ref[K]{st: r.st}
		}
	}
}

// Release drops this owner of the resource and resets r to the empty ref.
// When the last owner releases, the deleter runs synchronously before
// Release returns. Releasing an empty ref does nothing.
func (r *Ref[K]) Release() {
	st := r.st
	if st == nil {
		return
	}
	r.st = nil
	n := st.refs.Add(-1)
	switch {
	case n == 0:
		if st.deleter != nil {
			st.deleter()
			st.deleter = nil
		}
	case n < 0:
		panic(fmt.Sprintf("resource.Ref[%s]: resource %d released more times than cloned", kindName[K](), st.id))
	}
}

// Same returns true if r and o refer to the same shared resource.
func (r Ref[K]) Same(o Ref[K]) bool {
	return r.st != nil && r.st == o.st
}

// String returns a short description for debugging.
func (r Ref[K]) String() string {
	if r.st == nil {
		return fmt.Sprintf("%s(empty)", kindName[K]())
	}
	return fmt.Sprintf("%s(%d)", kindName[K](), r.st.id)
}

// ReleaseAll releases every ref in the slice and clears it.
func ReleaseAll[K any](refs []Ref[K]) {
	for i := range refs {
		refs[i].Release()
	}
}

// CloneAll returns an owning clone of every ref in the slice.
func CloneAll[K any](refs []Ref[K]) []Ref[K] {
	out := make([]Ref[K], len(refs))
	for i, r := range refs {
		out[i] = r.Clone()
	}
	return out
}

// kindName returns the name of the kind type K.
func kindName[K any]() string {
	var k K
	if nm, ok := any(k).(interface{ KindName() string }); ok {
		return nm.KindName()
	}
	return fmt.Sprintf("%T", k)
}
