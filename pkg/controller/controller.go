/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package controller

import (
	"fmt"

	"github.com/hyperledger/aries-vcx-go/pkg/controller/command"
	connectioncmd "github.com/hyperledger/aries-vcx-go/pkg/controller/command/connection"
	issuecredentialcmd "github.com/hyperledger/aries-vcx-go/pkg/controller/command/issuecredential"
	ledgercmd "github.com/hyperledger/aries-vcx-go/pkg/controller/command/ledger"
	messagingcmd "github.com/hyperledger/aries-vcx-go/pkg/controller/command/messaging"
	presentproofcmd "github.com/hyperledger/aries-vcx-go/pkg/controller/command/presentproof"
	utilitycmd "github.com/hyperledger/aries-vcx-go/pkg/controller/command/utility"
	walletcmd "github.com/hyperledger/aries-vcx-go/pkg/controller/command/wallet"
	"github.com/hyperledger/aries-vcx-go/pkg/controller/rest"
	"github.com/hyperledger/aries-vcx-go/pkg/controller/rest/operation"
	"github.com/hyperledger/aries-vcx-go/pkg/controller/webnotifier"
	"github.com/hyperledger/aries-vcx-go/pkg/vcx"
)

type allOpts struct {
	webhookURLs []string
	notifier    command.Notifier
	observer    **webnotifier.Observer
	syncOnly    bool
}

const wsPath = "/ws"

// Opt represents a controller option.
type Opt func(opts *allOpts)

// WithWebhookURLs is an option for setting up a webhook dispatcher which will notify clients of
// state events. The engine webhook_url is always notified as well.
func WithWebhookURLs(webhookURLs ...string) Opt {
	return func(opts *allOpts) {
		opts.webhookURLs = webhookURLs
	}
}

// WithNotifier is an option for setting up a notifier which will notify clients of state events.
func WithNotifier(notifier command.Notifier) Opt {
	return func(opts *allOpts) {
		opts.notifier = notifier
	}
}

// WithObserver receives the observer forwarding state events, so the caller can stop it.
func WithObserver(observer **webnotifier.Observer) Opt {
	return func(opts *allOpts) {
		opts.observer = observer
	}
}

// WithSyncOnly disables ?async=true on REST calls.
func WithSyncOnly() Opt {
	return func(opts *allOpts) {
		opts.syncOnly = true
	}
}

// GetRESTHandlers returns all REST handlers provided by controller.
func GetRESTHandlers(e *vcx.Engine, opts ...Opt) ([]rest.Handler, error) {
	restAPIOpts := &allOpts{}
	// Apply options
	for _, opt := range opts {
		opt(restAPIOpts)
	}

	notifier := restAPIOpts.notifier
	if notifier == nil {
		notifier = webnotifier.New(wsPath, restAPIOpts.webhookURLs,
			webnotifier.WithWebhookURLSource(func() string { return e.Config().WebhookURL }))
	}

	if err := observe(e, notifier, restAPIOpts); err != nil {
		return nil, err
	}

	var async operation.Async
	if !restAPIOpts.syncOnly {
		async = e.Async()
	}

	allHandlers := operation.New(commandHandlers(e), async).GetRESTHandlers()

	nhp, ok := notifier.(handlerProvider)
	if ok {
		allHandlers = append(allHandlers, nhp.GetRESTHandlers()...)
	}

	return allHandlers, nil
}

type handlerProvider interface {
	GetRESTHandlers() []rest.Handler
}

// GetCommandHandlers returns all command handlers provided by controller. State events are
// forwarded only when a notifier is given.
func GetCommandHandlers(e *vcx.Engine, opts ...Opt) ([]command.Handler, error) {
	cmdOpts := &allOpts{}
	// Apply options
	for _, opt := range opts {
		opt(cmdOpts)
	}

	if cmdOpts.notifier != nil {
		if err := observe(e, cmdOpts.notifier, cmdOpts); err != nil {
			return nil, err
		}
	}

	return commandHandlers(e), nil
}

func observe(e *vcx.Engine, notifier command.Notifier, opts *allOpts) error {
	obs := webnotifier.NewObserver(notifier)

	if err := obs.Observe(e.Events()); err != nil {
		return fmt.Errorf("observe engine events: %w", err)
	}

	if opts.observer != nil {
		*opts.observer = obs
	}

	return nil
}

func commandHandlers(e *vcx.Engine) []command.Handler {
	var allHandlers []command.Handler
	allHandlers = append(allHandlers, connectioncmd.New(e).GetHandlers()...)
	allHandlers = append(allHandlers, issuecredentialcmd.New(e).GetHandlers()...)
	allHandlers = append(allHandlers, presentproofcmd.New(e).GetHandlers()...)
	allHandlers = append(allHandlers, ledgercmd.New(e).GetHandlers()...)
	allHandlers = append(allHandlers, walletcmd.New(e).GetHandlers()...)
	allHandlers = append(allHandlers, messagingcmd.New(e).GetHandlers()...)
	allHandlers = append(allHandlers, utilitycmd.New(e).GetHandlers()...)

	return allHandlers
}
