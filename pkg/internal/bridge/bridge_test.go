/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

func TestBridge_ResolveOnce(t *testing.T) {
	b := New()

	token, future := b.Begin()
	require.NotZero(t, token)
	require.Equal(t, 1, b.Pending())

	go func() {
		require.NoError(t, b.Resolve(token, "handle-7", nil))
	}()

	v, err := future.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, "handle-7", v)
	require.Equal(t, 0, b.Pending())

	err = b.Resolve(token, "again", nil)
	require.True(t, vcxerr.Is(err, vcxerr.InvalidHandle))
}

func TestBridge_ResolveError(t *testing.T) {
	b := New()
	token, future := b.Begin()

	expected := errors.New("ledger down")
	require.NoError(t, b.Resolve(token, nil, expected))

	_, err := future.Wait(context.Background())
	require.ErrorIs(t, err, expected)
}

func TestBridge_UnknownToken(t *testing.T) {
	b := New()
	require.Error(t, b.Resolve(42, nil, nil))

	_, ok := b.Lookup(42)
	require.False(t, ok)
}

func TestBridge_AbandonedWait(t *testing.T) {
	b := New()
	token, future := b.Begin()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := future.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	f, ok := b.Lookup(token)
	require.True(t, ok)
	require.Equal(t, future, f)

	require.NoError(t, b.Resolve(token, 1, nil))

	select {
	case <-future.Done():
	default:
		require.Fail(t, "future not resolved")
	}
}

func TestBridge_ConcurrentRoundTrips(t *testing.T) {
	b := New()

	var wg sync.WaitGroup

	for i := 0; i < 64; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			token, future := b.Begin()

			go func() {
				require.NoError(t, b.Resolve(token, i, nil))
			}()

			v, err := future.Wait(context.Background())
			require.NoError(t, err)
			require.Equal(t, i, v)
		}(i)
	}

	wg.Wait()
	require.Equal(t, 0, b.Pending())
}
