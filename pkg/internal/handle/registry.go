/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package handle maps opaque 32-bit handles to live engine objects.
//
// Handles are generation tagged slot indexes: the low 20 bits select a slot and the high 12 bits
// carry the slot generation. Releasing a handle bumps the generation, so stale handles never
// resolve. A slot whose generation is exhausted is retired and never reused.
package handle

import (
	"fmt"
	"sync"

	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

// Handle is an opaque object reference handed to callers. The zero Handle is never valid.
type Handle uint32

const (
	indexBits = 20
	genBits   = 12

	indexMask = 1<<indexBits - 1
	maxIndex  = indexMask
	maxGen    = 1<<genBits - 1
)

func newHandle(gen, index uint32) Handle {
	return Handle(gen<<indexBits | index)
}

func (h Handle) index() uint32 {
	return uint32(h) & indexMask
}

func (h Handle) gen() uint32 {
	return uint32(h) >> indexBits
}

func (h Handle) String() string {
	return fmt.Sprintf("%d", uint32(h))
}

type entry[T any] struct {
	mu       sync.Mutex
	value    T
	released bool
}

type slot[T any] struct {
	gen   uint32
	entry *entry[T]
}

// Registry is a slot map of objects of one kind.
type Registry[T any] struct {
	kind  string
	lock  sync.RWMutex
	slots []slot[T]
	free  []uint32
	live  int
}

// New returns an empty registry. kind is used in error messages.
func New[T any](kind string) *Registry[T] {
	return &Registry[T]{kind: kind}
}

// Allocate stores obj and returns its handle.
func (r *Registry[T]) Allocate(obj T) (Handle, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	var index uint32

	if n := len(r.free); n > 0 {
		index = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		if len(r.slots) > maxIndex {
			return 0, fmt.Errorf("%s registry is full", r.kind)
		}

		index = uint32(len(r.slots))
		r.slots = append(r.slots, slot[T]{gen: 1})
	}

	s := &r.slots[index]
	s.entry = &entry[T]{value: obj}
	r.live++

	return newHandle(s.gen, index), nil
}

// Lookup returns the object referenced by h.
func (r *Registry[T]) Lookup(h Handle) (T, error) {
	e, err := r.entry(h)
	if err != nil {
		var zero T

		return zero, err
	}

	return e.value, nil
}

// Do runs fn with the object referenced by h. Calls for the same handle are serialized;
// calls for different handles run in parallel.
func (r *Registry[T]) Do(h Handle, fn func(T) error) error {
	e, err := r.entry(h)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.released {
		return r.invalid(h)
	}

	return fn(e.value)
}

// Release invalidates h. Releasing an unknown or already released handle fails with InvalidHandle.
func (r *Registry[T]) Release(h Handle) error {
	r.lock.Lock()

	s, ok := r.slot(h)
	if !ok {
		r.lock.Unlock()

		return r.invalid(h)
	}

	e := s.entry
	s.entry = nil
	r.live--

	if s.gen < maxGen {
		s.gen++
		r.free = append(r.free, h.index())
	}

	r.lock.Unlock()

	// wait for a running Do on this handle to finish.
	e.mu.Lock()
	e.released = true
	e.mu.Unlock()

	return nil
}

// Len returns the number of live handles.
func (r *Registry[T]) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return r.live
}

// Handles returns the live handles in slot order.
func (r *Registry[T]) Handles() []Handle {
	r.lock.RLock()
	defer r.lock.RUnlock()

	handles := make([]Handle, 0, r.live)

	for i := range r.slots {
		if r.slots[i].entry != nil {
			handles = append(handles, newHandle(r.slots[i].gen, uint32(i)))
		}
	}

	return handles
}

func (r *Registry[T]) entry(h Handle) (*entry[T], error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	s, ok := r.slot(h)
	if !ok {
		return nil, r.invalid(h)
	}

	return s.entry, nil
}

// slot must be called with the lock held.
func (r *Registry[T]) slot(h Handle) (*slot[T], bool) {
	if h == 0 || h.index() >= uint32(len(r.slots)) {
		return nil, false
	}

	s := &r.slots[h.index()]
	if s.entry == nil || s.gen != h.gen() {
		return nil, false
	}

	return s, true
}

func (r *Registry[T]) invalid(h Handle) error {
	return vcxerr.New(vcxerr.InvalidHandle, "invalid %s handle %d", r.kind, uint32(h))
}
