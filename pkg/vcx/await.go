/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vcx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// AwaitOptions tune AwaitState. Zero values take the defaults.
type AwaitOptions struct {
	// Interval is the initial delay between polls.
	Interval time.Duration
	// MaxInterval caps the delay between polls.
	MaxInterval time.Duration
	// Timeout bounds the whole wait. Zero waits until ctx is done.
	Timeout time.Duration
}

var errNotYet = errors.New("state not reached")

const (
	defaultAwaitInterval    = 100 * time.Millisecond
	defaultAwaitMaxInterval = 5 * time.Second
)

// AwaitState calls poll with exponential backoff until done accepts the state it returns. An error
// from poll ends the wait; the engine never retries collaborator failures on its own.
func AwaitState[S any](ctx context.Context, poll func(ctx context.Context) (S, error), done func(S) bool,
	opts AwaitOptions) (S, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = defaultAwaitInterval
	b.MaxInterval = defaultAwaitMaxInterval
	b.MaxElapsedTime = opts.Timeout

	if opts.Interval > 0 {
		b.InitialInterval = opts.Interval
	}

	if opts.MaxInterval > 0 {
		b.MaxInterval = opts.MaxInterval
	}

	var state S

	err := backoff.RetryNotify(func() error {
		var err error

		state, err = poll(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}

		if !done(state) {
			return errNotYet
		}

		return nil
	}, backoff.WithContext(b, ctx), func(_ error, next time.Duration) {
		logger.Debugf("state %v not reached, polling again in %s", state, next)
	})

	if errors.Is(err, errNotYet) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return state, ctxErr
		}

		return state, fmt.Errorf("state not reached within %s: %w", opts.Timeout, context.DeadlineExceeded)
	}

	return state, err
}
