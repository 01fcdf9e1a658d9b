/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vcx

import (
	"errors"
	"net/http"

	"github.com/hyperledger/aries-framework-go/spi/storage"

	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/transport"
	"github.com/hyperledger/aries-vcx-go/pkg/ledger"
	"github.com/hyperledger/aries-vcx-go/pkg/store/wallet"
)

// Option configures the engine.
type Option func(opts *Engine) error

// WithTransport injects the agency transport. Defaults to an HTTP client of the configured agency
// endpoint.
func WithTransport(t transport.Transport) Option {
	return func(opts *Engine) error {
		if t == nil {
			return errors.New("nil transport")
		}

		opts.transport = t

		return nil
	}
}

// WithHTTPClient sets the HTTP client of the default agency transport.
func WithHTTPClient(client *http.Client) Option {
	return func(opts *Engine) error {
		opts.httpClient = client
		return nil
	}
}

// WithLedger injects the ledger collaborator. It is mandatory.
func WithLedger(l ledger.Ledger) Option {
	return func(opts *Engine) error {
		if l == nil {
			return errors.New("nil ledger")
		}

		opts.ledger = l

		return nil
	}
}

// WithLedgerCacheSize sets the number of immutable ledger objects cached by the engine.
func WithLedgerCacheSize(size int) Option {
	return func(opts *Engine) error {
		opts.cacheSize = size
		return nil
	}
}

// WithWallet injects the wallet. It takes precedence over WithStorageProvider.
func WithWallet(w wallet.Wallet) Option {
	return func(opts *Engine) error {
		if w == nil {
			return errors.New("nil wallet")
		}

		opts.wallet = w

		return nil
	}
}

// WithStorageProvider sets the storage the default wallet is built on. Defaults to in-memory
// storage.
func WithStorageProvider(p storage.Provider) Option {
	return func(opts *Engine) error {
		opts.storeProvider = p
		return nil
	}
}

// WithMessageEvents injects the register notified after every state transition of every object.
func WithMessageEvents(events *service.Message) Option {
	return func(opts *Engine) error {
		opts.events = events
		return nil
	}
}
