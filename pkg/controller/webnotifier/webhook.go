/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package webnotifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultWebhookRetries = 2
	webhookRetryInterval  = 200 * time.Millisecond
)

// HTTPNotifier is a webhook dispatcher capable of notifying multiple subscribers via HTTP.
type HTTPNotifier struct {
	urls    []string
	source  func() string
	retries uint64
	client  *http.Client
}

// NewHTTPNotifier returns a new instance of an HTTPNotifier.
func NewHTTPNotifier(webhookURLs []string) *HTTPNotifier {
	return &HTTPNotifier{urls: webhookURLs, retries: defaultWebhookRetries, client: http.DefaultClient}
}

// Notify posts the topic message to every webhook URL. Server errors are retried, client errors
// are not.
func (n *HTTPNotifier) Notify(topic string, message []byte) error {
	if topic == "" {
		return fmt.Errorf(emptyTopicErrMsg)
	}

	if len(message) == 0 {
		return fmt.Errorf(emptyMessageErrMsg)
	}

	topicMsg, err := PrepareTopicMessage(topic, message)
	if err != nil {
		return fmt.Errorf(failedToCreateErrMsg, err)
	}

	var allErrs error

	for _, webhookURL := range n.destinations() {
		allErrs = appendError(allErrs, n.notifyWithRetry(webhookURL, topicMsg))
	}

	return allErrs
}

func (n *HTTPNotifier) destinations() []string {
	if n.source == nil {
		return n.urls
	}

	extra := n.source()
	if extra == "" {
		return n.urls
	}

	for _, u := range n.urls {
		if u == extra {
			return n.urls
		}
	}

	return append(n.urls[:len(n.urls):len(n.urls)], extra)
}

func (n *HTTPNotifier) notifyWithRetry(destination string, message []byte) error {
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(webhookRetryInterval), n.retries)

	return backoff.Retry(func() error {
		return n.notifyWH(destination, message)
	}, b)
}

func (n *HTTPNotifier) notifyWH(destination string, message []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), notificationSendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destination, bytes.NewReader(message))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create new http post request for %s: %w", destination, err))
	}

	req.Header.Add("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post notification to %s: %w", destination, err)
	}

	defer closeResponse(resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusCreated,
		resp.StatusCode == http.StatusAccepted, resp.StatusCode == http.StatusNoContent:
		logger.Debugf("notification sent to %s", destination)

		return nil
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("notification was sent to %s, but %s was received", destination, resp.Status)
	default:
		return backoff.Permanent(fmt.Errorf("notification was rejected by %s with %s", destination, resp.Status))
	}
}

func closeResponse(c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Errorf("failed to close response body: %s", err)
	}
}
