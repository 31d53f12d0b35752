// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resource

import (
	"fmt"
)

// Map is the registry that owns all objects of one resource kind K,
// keyed by a numeric id. It issues a [Ref] for every added object, and
// the object is erased (and freed) when the last clone of that ref is
// released. Ids come from a counter that is never reset, so an id is
// never reused.
//
// A Map must outlive every Ref it issues. It is not safe for concurrent
// use; all Add and Get calls must come from one goroutine.
type Map[K any, T any] struct {

	// Name is used in error messages, e.g., "buffers".
	Name string

	// Free, if set, is called with each object after it is erased,
	// to destroy the underlying native object.
	Free func(T)

	nextID  uint64
	objects map[uint64]T
}

// NewMap returns a new [Map] with the given name and free function,
// which may be nil.
func NewMap[K any, T any](name string, free func(T)) *Map[K, T] {
	return &Map[K, T]{Name: name, Free: free, objects: make(map[uint64]T)}
}

// Add takes ownership of obj, assigning it the next id, and returns
// a [Ref] whose deleter erases it from the map.
func (mp *Map[K, T]) Add(obj T) Ref[K] {
	if mp.objects == nil {
		mp.objects = make(map[uint64]T)
	}
	id := mp.nextID
	mp.nextID++
	mp.objects[id] = obj
	return New[K](id, func() { mp.erase(id) })
}

// erase removes the object with the given id and frees it.
func (mp *Map[K, T]) erase(id uint64) {
	obj, ok := mp.objects[id]
	if !ok {
		return
	}
	delete(mp.objects, id)
	if mp.Free != nil {
		mp.Free(obj)
	}
}

// Get returns the object for the given ref. It returns an error naming
// the registry and id if the ref is empty or its object is gone.
func (mp *Map[K, T]) Get(r Ref[K]) (T, error) {
	var zero T
	if r.st == nil {
		return zero, fmt.Errorf("%s: lookup with an empty %s ref", mp.Name, kindName[K]())
	}
	return mp.GetID(r.st.id)
}

// GetID returns the object for the given numeric id.
func (mp *Map[K, T]) GetID(id uint64) (T, error) {
	obj, ok := mp.objects[id]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s has no resource with id %d", mp.Name, id)
	}
	return obj, nil
}

// Has returns true if an object with the given id is present.
func (mp *Map[K, T]) Has(id uint64) bool {
	_, ok := mp.objects[id]
	return ok
}

// Len returns the number of live objects, for observability.
func (mp *Map[K, T]) Len() int {
	return len(mp.objects)
}

// NextID returns the id that the next Add will assign.
func (mp *Map[K, T]) NextID() uint64 {
	return mp.nextID
}
