/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package handle

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

type object struct {
	name    string
	counter int
}

func TestRegistry_AllocateLookup(t *testing.T) {
	r := New[*object]("connection")

	h1, err := r.Allocate(&object{name: "a"})
	require.NoError(t, err)
	require.NotZero(t, h1)

	h2, err := r.Allocate(&object{name: "b"})
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)

	o, err := r.Lookup(h1)
	require.NoError(t, err)
	require.Equal(t, "a", o.name)

	o, err = r.Lookup(h2)
	require.NoError(t, err)
	require.Equal(t, "b", o.name)

	require.Equal(t, 2, r.Len())
	require.Equal(t, []Handle{h1, h2}, r.Handles())
}

func TestRegistry_Release(t *testing.T) {
	r := New[*object]("credential")

	h, err := r.Allocate(&object{name: "a"})
	require.NoError(t, err)

	require.NoError(t, r.Release(h))

	_, err = r.Lookup(h)
	require.True(t, vcxerr.Is(err, vcxerr.InvalidHandle))

	err = r.Release(h)
	require.True(t, vcxerr.Is(err, vcxerr.InvalidHandle))

	err = r.Do(h, func(*object) error { return nil })
	require.True(t, vcxerr.Is(err, vcxerr.InvalidHandle))

	require.Equal(t, 0, r.Len())

	t.Run("reused slot does not resolve stale handle", func(t *testing.T) {
		h2, err := r.Allocate(&object{name: "b"})
		require.NoError(t, err)
		require.Equal(t, h.index(), h2.index())
		require.NotEqual(t, h, h2)

		_, err = r.Lookup(h)
		require.True(t, vcxerr.Is(err, vcxerr.InvalidHandle))

		o, err := r.Lookup(h2)
		require.NoError(t, err)
		require.Equal(t, "b", o.name)
	})
}

func TestRegistry_InvalidHandles(t *testing.T) {
	r := New[*object]("proof")

	for _, h := range []Handle{0, 1, newHandle(1, 12), newHandle(7, 0)} {
		_, err := r.Lookup(h)
		require.True(t, vcxerr.Is(err, vcxerr.InvalidHandle), "handle %d", h)
		require.Contains(t, err.Error(), "invalid proof handle")
	}
}

func TestRegistry_RetiresExhaustedSlot(t *testing.T) {
	r := New[*object]("schema")

	first, err := r.Allocate(&object{})
	require.NoError(t, err)
	require.NoError(t, r.Release(first))

	for gen := uint32(2); gen <= maxGen; gen++ {
		h, err := r.Allocate(&object{})
		require.NoError(t, err)
		require.Equal(t, first.index(), h.index())
		require.Equal(t, gen, h.gen())
		require.NoError(t, r.Release(h))
	}

	h, err := r.Allocate(&object{})
	require.NoError(t, err)
	require.NotEqual(t, first.index(), h.index())
	require.Equal(t, uint32(1), h.gen())
}

func TestRegistry_Do(t *testing.T) {
	r := New[*object]("connection")

	h, err := r.Allocate(&object{})
	require.NoError(t, err)

	t.Run("serializes writers on one handle", func(t *testing.T) {
		var wg sync.WaitGroup

		for i := 0; i < 100; i++ {
			wg.Add(1)

			go func() {
				defer wg.Done()

				require.NoError(t, r.Do(h, func(o *object) error {
					o.counter++

					return nil
				}))
			}()
		}

		wg.Wait()

		require.NoError(t, r.Do(h, func(o *object) error {
			require.Equal(t, 100, o.counter)

			return nil
		}))
	})

	t.Run("returns callback error", func(t *testing.T) {
		expected := errors.New("step failed")
		require.ErrorIs(t, r.Do(h, func(*object) error { return expected }), expected)
	})
}

func TestRegistry_ConcurrentAllocate(t *testing.T) {
	r := New[*object]("credential_def")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		handles = map[Handle]struct{}{}
	)

	for i := 0; i < 50; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			h, err := r.Allocate(&object{})
			require.NoError(t, err)

			mu.Lock()
			handles[h] = struct{}{}
			mu.Unlock()
		}()
	}

	wg.Wait()

	require.Len(t, handles, 50)
	require.Equal(t, 50, r.Len())
}
