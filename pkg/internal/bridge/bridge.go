/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package bridge correlates asynchronous completions with the caller waiting for them.
package bridge

import (
	"context"
	"sync"

	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

// Token identifies one pending round trip.
type Token uint32

// Future is completed exactly once by Bridge.Resolve.
type Future struct {
	done  chan struct{}
	value interface{}
	err   error
}

// Done is closed when the future is resolved.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future is resolved or ctx is done. Giving up on ctx does not cancel the
// round trip; the token stays resolvable.
func (f *Future) Wait(ctx context.Context) (interface{}, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Bridge hands out tokens and resolves their futures. A Bridge is owned by one engine instance.
type Bridge struct {
	lock    sync.Mutex
	next    Token
	pending map[Token]*Future
}

// New returns an empty bridge.
func New() *Bridge {
	return &Bridge{pending: map[Token]*Future{}}
}

// Begin registers a new round trip.
func (b *Bridge) Begin() (Token, *Future) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.next++
	// zero is reserved.
	for b.next == 0 || b.pending[b.next] != nil {
		b.next++
	}

	f := &Future{done: make(chan struct{})}
	b.pending[b.next] = f

	return b.next, f
}

// Resolve completes the future of token with value or err. Resolving an unknown or already
// resolved token is an error.
func (b *Bridge) Resolve(token Token, value interface{}, err error) error {
	b.lock.Lock()

	f, ok := b.pending[token]
	if !ok {
		b.lock.Unlock()

		return vcxerr.New(vcxerr.InvalidHandle, "unknown or already resolved token %d", token)
	}

	delete(b.pending, token)
	b.lock.Unlock()

	f.value, f.err = value, err
	close(f.done)

	return nil
}

// Lookup returns the future of a pending token.
func (b *Bridge) Lookup(token Token) (*Future, bool) {
	b.lock.Lock()
	defer b.lock.Unlock()

	f, ok := b.pending[token]

	return f, ok
}

// Pending returns the number of unresolved tokens.
func (b *Bridge) Pending() int {
	b.lock.Lock()
	defer b.lock.Unlock()

	return len(b.pending)
}
