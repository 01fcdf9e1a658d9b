/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package webnotifier

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-vcx-go/pkg/controller/command"
	"github.com/hyperledger/aries-vcx-go/pkg/controller/rest"
)

var logger = log.New("vcx/controller/webnotifier")

const (
	notificationSendTimeout = 10 * time.Second

	emptyTopicErrMsg     = "cannot notify with an empty topic"
	emptyMessageErrMsg   = "cannot notify with an empty message"
	failedToCreateErrMsg = "failed to create topic message: %w"
)

// Opt configures a WebNotifier.
type Opt func(n *WebNotifier)

// WithWebhookURLSource adds a webhook URL read on every notification, such as the engine webhook_url
// which callers may change at runtime. An empty URL is skipped.
func WithWebhookURLSource(source func() string) Opt {
	return func(n *WebNotifier) {
		n.http.source = source
	}
}

// WithWebhookRetries sets how many times a failed webhook post is retried.
func WithWebhookRetries(retries uint64) Opt {
	return func(n *WebNotifier) {
		n.http.retries = retries
	}
}

// WebNotifier notifies webhook subscribers and websocket clients.
type WebNotifier struct {
	http      *HTTPNotifier
	notifiers []command.Notifier
	handlers  []rest.Handler
}

// New returns a WebNotifier posting to webhookURLs and serving websocket clients at path.
func New(path string, webhookURLs []string, opts ...Opt) *WebNotifier {
	ws := NewWSNotifier(path)

	n := &WebNotifier{
		http:     NewHTTPNotifier(webhookURLs),
		handlers: ws.GetRESTHandlers(),
	}

	for _, opt := range opts {
		opt(n)
	}

	n.notifiers = []command.Notifier{n.http, ws}

	return n
}

// Notify sends the message to every subscriber. Errors of all subscribers are combined.
func (n *WebNotifier) Notify(topic string, message []byte) error {
	var allErrs error

	for _, notifier := range n.notifiers {
		allErrs = appendError(allErrs, notifier.Notify(topic, message))
	}

	return allErrs
}

// GetRESTHandlers returns the websocket endpoint.
func (n *WebNotifier) GetRESTHandlers() []rest.Handler {
	return n.handlers
}

type topicMessage struct {
	ID      string          `json:"id"`
	Topic   string          `json:"topic"`
	Message json.RawMessage `json:"message"`
}

// PrepareTopicMessage wraps a JSON message in the envelope sent to subscribers.
func PrepareTopicMessage(topic string, message []byte) ([]byte, error) {
	return json.Marshal(&topicMessage{
		ID:      uuid.New().String(),
		Topic:   topic,
		Message: message,
	})
}

func appendError(errs, err error) error {
	switch {
	case errs == nil:
		return err
	case err == nil:
		return errs
	default:
		return fmt.Errorf("%v; %w", errs, err)
	}
}
