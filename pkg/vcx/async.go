/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vcx

import (
	"context"
	"sync"

	"github.com/hyperledger/aries-vcx-go/pkg/internal/bridge"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

// Token identifies an operation started with Async.Start.
type Token = bridge.Token

// Async runs engine operations in the background and hands out a token per operation, for binding
// layers that complete calls through callbacks.
type Async struct {
	bridge *bridge.Bridge

	lock    sync.Mutex
	futures map[Token]*pending
}

type pending struct {
	future  *bridge.Future
	claimed bool
}

func newAsync(b *bridge.Bridge) *Async {
	return &Async{bridge: b, futures: map[Token]*pending{}}
}

// Start runs fn on its own goroutine. The result is kept until collected by Await.
func (a *Async) Start(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) Token {
	token, future := a.bridge.Begin()

	a.lock.Lock()
	a.futures[token] = &pending{future: future}
	a.lock.Unlock()

	go func() {
		value, err := fn(ctx)

		if resolveErr := a.bridge.Resolve(token, value, err); resolveErr != nil {
			logger.Errorf("async operation %d: %s", token, resolveErr)
		}
	}()

	return token
}

// Await waits for the operation of token. Once its result is returned the token is forgotten. A
// wait abandoned through ctx leaves the result collectable. Only one Await of a token may wait at a
// time; others fail with InvalidState.
func (a *Async) Await(ctx context.Context, token Token) (interface{}, error) {
	a.lock.Lock()
	p, ok := a.futures[token]

	claimed := ok && !p.claimed
	if claimed {
		p.claimed = true
	}
	a.lock.Unlock()

	if !ok {
		return nil, vcxerr.New(vcxerr.InvalidHandle, "unknown async token %d", token)
	}

	if !claimed {
		return nil, vcxerr.New(vcxerr.InvalidState, "async token %d is already awaited", token)
	}

	select {
	case <-p.future.Done():
	case <-ctx.Done():
		a.lock.Lock()
		p.claimed = false
		a.lock.Unlock()

		return nil, ctx.Err()
	}

	a.lock.Lock()
	delete(a.futures, token)
	a.lock.Unlock()

	return p.future.Wait(ctx)
}

// Done reports whether the operation of token has completed.
func (a *Async) Done(token Token) (bool, error) {
	a.lock.Lock()
	p, ok := a.futures[token]
	a.lock.Unlock()

	if !ok {
		return false, vcxerr.New(vcxerr.InvalidHandle, "unknown async token %d", token)
	}

	select {
	case <-p.future.Done():
		return true, nil
	default:
		return false, nil
	}
}

// Pending returns the number of operations still running.
func (a *Async) Pending() int {
	return a.bridge.Pending()
}
