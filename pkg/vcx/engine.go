/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package vcx is the handle based facade over the connection, credential and proof exchanges and
// the ledger artifacts they rely on. Every object created through the engine is addressed by a
// Handle until it is released.
package vcx

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/hyperledger/aries-framework-go/spi/storage"

	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/connection"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/issuecredential"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/presentproof"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/transport"
	arieshttp "github.com/hyperledger/aries-vcx-go/pkg/didcomm/transport/http"
	"github.com/hyperledger/aries-vcx-go/pkg/internal/bridge"
	"github.com/hyperledger/aries-vcx-go/pkg/internal/handle"
	"github.com/hyperledger/aries-vcx-go/pkg/ledger"
	"github.com/hyperledger/aries-vcx-go/pkg/ledger/creddef"
	"github.com/hyperledger/aries-vcx-go/pkg/ledger/schema"
	"github.com/hyperledger/aries-vcx-go/pkg/store/wallet"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

var logger = log.New("vcx/engine")

var (
	_ connection.Provider      = (*Engine)(nil)
	_ issuecredential.Provider = (*Engine)(nil)
	_ presentproof.Provider    = (*Engine)(nil)
)

// Handle addresses an object owned by the engine.
type Handle = handle.Handle

// Engine owns the collaborators and one handle registry per object kind.
type Engine struct {
	cfgLock sync.RWMutex
	cfg     Config

	transport     transport.Transport
	httpClient    *http.Client
	ledger        ledger.Ledger
	cacheSize     int
	storeProvider storage.Provider
	wallet        wallet.Wallet
	keys          *wallet.Keys
	client        *ledger.Client
	events        *service.Message
	async         *Async

	connections *handle.Registry[*connection.Connection]
	issuers     *handle.Registry[*issuecredential.Issuer]
	holders     *handle.Registry[*issuecredential.Holder]
	verifiers   *handle.Registry[*presentproof.Verifier]
	provers     *handle.Registry[*presentproof.Prover]
	schemas     *handle.Registry[*schema.Schema]
	credDefs    *handle.Registry[*creddef.CredDef]

	closeOnce sync.Once
	closed    chan struct{}
}

// New initializes an engine for the institution described by cfg. A configuration without an
// institution DID gets a fresh one from the wallet.
func New(ctx context.Context, cfg *Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, vcxerr.New(vcxerr.ValidationFailure, "config is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:         *cfg,
		connections: handle.New[*connection.Connection]("connection"),
		issuers:     handle.New[*issuecredential.Issuer]("issuer credential"),
		holders:     handle.New[*issuecredential.Holder]("credential"),
		verifiers:   handle.New[*presentproof.Verifier]("proof"),
		provers:     handle.New[*presentproof.Prover]("disclosed proof"),
		schemas:     handle.New[*schema.Schema]("schema"),
		credDefs:    handle.New[*creddef.CredDef]("credential definition"),
		closed:      make(chan struct{}),
	}

	for _, option := range opts {
		if err := option(e); err != nil {
			return nil, vcxerr.Wrap(vcxerr.ValidationFailure, err, "error in option passed to New")
		}
	}

	if err := defEngineOpts(e); err != nil {
		return nil, err
	}

	if err := e.initInstitution(ctx); err != nil {
		return nil, err
	}

	e.client = ledger.NewClient(ledger.NewCachedReader(e.ledger, e.cacheSize), e.keys,
		e.cfg.InstitutionDID, e.cfg.InstitutionVerkey)
	e.async = newAsync(bridge.New())

	logger.Infof("engine %s initialized for %s (institution DID %s)", Version, e.cfg.InstitutionName,
		e.cfg.InstitutionDID)

	return e, nil
}

// defEngineOpts provides default collaborators.
func defEngineOpts(e *Engine) error {
	if e.ledger == nil {
		return vcxerr.New(vcxerr.ValidationFailure, "a ledger is required")
	}

	if e.wallet == nil {
		if e.storeProvider == nil {
			e.storeProvider = mem.NewProvider()
		}

		w, err := wallet.New(e.storeProvider)
		if err != nil {
			return fmt.Errorf("wallet initialization failed: %w", err)
		}

		e.wallet = w
	}

	if e.transport == nil {
		client := e.httpClient
		if client == nil {
			client = &http.Client{}
		}

		t, err := arieshttp.NewAgencyClient(e.cfg.AgencyEndpoint, arieshttp.WithOutboundHTTPClient(client))
		if err != nil {
			return fmt.Errorf("agency transport initialization failed: %w", err)
		}

		e.transport = t
	}

	if e.events == nil {
		e.events = &service.Message{}
	}

	e.keys = wallet.NewKeys(e.wallet)

	return nil
}

func (e *Engine) initInstitution(ctx context.Context) error {
	if e.cfg.InstitutionDID == "" {
		did, verkey, err := e.keys.CreateDID(ctx)
		if err != nil {
			return fmt.Errorf("create institution DID: %w", err)
		}

		e.cfg.InstitutionDID, e.cfg.InstitutionVerkey = did, verkey

		return nil
	}

	// the configured identity must be backed by a key in the wallet.
	if _, err := e.keys.Sign(ctx, e.cfg.InstitutionVerkey, []byte(e.cfg.InstitutionDID)); err != nil {
		return vcxerr.Wrap(vcxerr.ValidationFailure, err, "institution verkey %s is not in the wallet",
			e.cfg.InstitutionVerkey)
	}

	return nil
}

// Transport returns the agency transport.
func (e *Engine) Transport() transport.Transport {
	return e.transport
}

// Signer returns the wallet keys.
func (e *Engine) Signer() connection.Signer {
	return e.keys
}

// ServiceEndpoint returns the agency endpoint advertised in invitations.
func (e *Engine) ServiceEndpoint() string {
	e.cfgLock.RLock()
	defer e.cfgLock.RUnlock()

	return e.cfg.AgencyEndpoint
}

// Label returns the institution name shown to other parties.
func (e *Engine) Label() string {
	e.cfgLock.RLock()
	defer e.cfgLock.RUnlock()

	return e.cfg.InstitutionName
}

// Events returns the register notified after every state transition.
func (e *Engine) Events() *service.Message {
	return e.events
}

// Wallet returns the wallet.
func (e *Engine) Wallet() wallet.Wallet {
	return e.wallet
}

// Ledger returns the ledger client acting as the institution DID.
func (e *Engine) Ledger() *ledger.Client {
	return e.client
}

// Async returns the token based completion API of the engine.
func (e *Engine) Async() *Async {
	return e.async
}

// Config returns a copy of the active configuration.
func (e *Engine) Config() Config {
	e.cfgLock.RLock()
	defer e.cfgLock.RUnlock()

	return e.cfg
}

// UpdateInstitutionInfo changes the name and logo shown to other parties in new invitations.
func (e *Engine) UpdateInstitutionInfo(name, logoURL string) error {
	if name == "" {
		return vcxerr.New(vcxerr.ValidationFailure, "institution name is required")
	}

	e.cfgLock.Lock()
	defer e.cfgLock.Unlock()

	e.cfg.InstitutionName, e.cfg.InstitutionLogoURL = name, logoURL

	return nil
}

// UpdateWebhookURL changes the URL new message notifications are posted to.
func (e *Engine) UpdateWebhookURL(webhookURL string) error {
	if err := checkURL("webhook_url", webhookURL); err != nil {
		return err
	}

	e.cfgLock.Lock()
	defer e.cfgLock.Unlock()

	e.cfg.WebhookURL = webhookURL

	return nil
}

// ErrorMessage returns the message of an error code.
func (e *Engine) ErrorMessage(code vcxerr.Code) string {
	return vcxerr.Message(code)
}

// Version returns the engine version.
func (e *Engine) Version() string {
	return Version
}

// Shutdown releases every handle and closes the storage. Objects must be serialized beforehand to
// survive it.
func (e *Engine) Shutdown() error {
	var err error

	e.closeOnce.Do(func() {
		close(e.closed)

		released := releaseAll(e.connections) + releaseAll(e.issuers) + releaseAll(e.holders) +
			releaseAll(e.verifiers) + releaseAll(e.provers) + releaseAll(e.schemas) + releaseAll(e.credDefs)

		logger.Infof("engine shutdown: released %d handles", released)

		if e.storeProvider != nil {
			if closeErr := e.storeProvider.Close(); closeErr != nil {
				err = fmt.Errorf("failed to close the store: %w", closeErr)
			}
		}
	})

	return err
}

func (e *Engine) checkOpen() error {
	select {
	case <-e.closed:
		return vcxerr.New(vcxerr.InvalidState, "engine is shut down")
	default:
		return nil
	}
}

// allocate registers obj with r unless the engine is shut down.
func allocate[T any](e *Engine, r *handle.Registry[T], obj T) (Handle, error) {
	if err := e.checkOpen(); err != nil {
		return 0, err
	}

	return r.Allocate(obj)
}

func releaseAll[T any](r *handle.Registry[T]) int {
	n := 0

	for _, h := range r.Handles() {
		if r.Release(h) == nil {
			n++
		}
	}

	return n
}

// do runs fn under the handle lock of h and returns its result.
func do[T, R any](r *handle.Registry[T], h Handle, fn func(T) (R, error)) (R, error) {
	var result R

	err := r.Do(h, func(obj T) error {
		var err error
		result, err = fn(obj)

		return err
	})

	return result, err
}
