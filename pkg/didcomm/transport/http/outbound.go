/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/transport"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

var logger = log.New("vcx/transport/http")

const contentType = "application/json"

// Agency API paths, relative to the agency endpoint.
const (
	SendPath   = "/agency/msg"
	PollPath   = "/agency/search"
	StatusPath = "/agency/status"
)

type sendRequest struct {
	Route   transport.Route `json:"route"`
	Payload json.RawMessage `json:"payload"`
}

type sendResponse struct {
	UID string `json:"uid"`
}

type pollResponse struct {
	Messages []transport.Message `json:"messages"`
}

type statusRequest struct {
	Status transport.Status `json:"status_code"`
	UIDs   []string         `json:"uids"`
}

// outboundCommHTTPOpts holds options for the HTTP agency client
// it has an http.Client instance
type outboundCommHTTPOpts struct {
	client *http.Client
}

// OutboundHTTPOpt is an agency client option.
type OutboundHTTPOpt func(opts *outboundCommHTTPOpts)

// WithOutboundHTTPClient option is for creating an agency client using an http.Client instance.
func WithOutboundHTTPClient(client *http.Client) OutboundHTTPOpt {
	return func(opts *outboundCommHTTPOpts) {
		opts.client = client
	}
}

// WithOutboundTimeout option is for creating an agency client using a client timeout value.
func WithOutboundTimeout(timeout time.Duration) OutboundHTTPOpt {
	return func(opts *outboundCommHTTPOpts) {
		opts.client.Timeout = timeout
	}
}

// WithOutboundTLSConfig option is for creating an agency client using a tls.Config instance.
func WithOutboundTLSConfig(tlsConfig *tls.Config) OutboundHTTPOpt {
	return func(opts *outboundCommHTTPOpts) {
		opts.client = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: tlsConfig,
			},
		}
	}
}

// AgencyClient is the Transport collaborator backed by a remote agency reached over HTTP.
type AgencyClient struct {
	endpoint string
	client   *http.Client
}

// NewAgencyClient creates a client of the agency at endpoint.
// An http.Client or tls.Config option is mandatory.
func NewAgencyClient(endpoint string, opts ...OutboundHTTPOpt) (*AgencyClient, error) {
	clOpts := &outboundCommHTTPOpts{}
	// Apply options
	for _, opt := range opts {
		opt(clOpts)
	}

	if clOpts.client == nil {
		return nil, errors.New("creation of agency client requires an HTTP client")
	}

	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, vcxerr.New(vcxerr.ValidationFailure, "agency endpoint %q is not an http url", endpoint)
	}

	return &AgencyClient{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		client:   clOpts.client,
	}, nil
}

// Send uploads payload to the mailbox of route.
func (c *AgencyClient) Send(ctx context.Context, route transport.Route, payload []byte) (string, error) {
	var resp sendResponse

	err := c.post(ctx, SendPath, sendRequest{Route: route, Payload: payload}, &resp)
	if err != nil {
		return "", err
	}

	return resp.UID, nil
}

// Poll downloads the messages matching query.
func (c *AgencyClient) Poll(ctx context.Context, query transport.Query) ([]transport.Message, error) {
	var resp pollResponse

	err := c.post(ctx, PollPath, query, &resp)
	if err != nil {
		return nil, err
	}

	return resp.Messages, nil
}

// UpdateMessageStatus sets the status of the given messages.
func (c *AgencyClient) UpdateMessageStatus(ctx context.Context, status transport.Status, uids []string) error {
	return c.post(ctx, StatusPath, statusRequest{Status: status, UIDs: uids}, nil)
}

func (c *AgencyClient) post(ctx context.Context, path string, req, resp interface{}) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal agency request: %w", err)
	}

	url := c.endpoint + path

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return vcxerr.Wrap(vcxerr.ValidationFailure, err, "agency request")
	}

	httpReq.Header.Set("Content-Type", contentType)

	res, err := c.client.Do(httpReq)
	if err != nil {
		logger.Errorf("HTTP Transport - Error posting to agency at [%s]: %v", url, err)

		return vcxerr.Collaborator(vcxerr.TransportCollaborator, 0, err)
	}

	defer func() {
		e := res.Body.Close()
		if e != nil {
			logger.Errorf("HTTP Transport - Error closing response body: %v", e)
		}
	}()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return vcxerr.Collaborator(vcxerr.TransportCollaborator, 0, err)
	}

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusAccepted {
		logger.Errorf("HTTP Transport - agency at [%s] returned %s", url, res.Status)

		return vcxerr.Collaborator(vcxerr.TransportCollaborator, int32(res.StatusCode),
			fmt.Errorf("agency at %s returned %s: %s", url, res.Status, strings.TrimSpace(string(data))))
	}

	if resp == nil {
		return nil
	}

	if err := json.Unmarshal(data, resp); err != nil {
		return vcxerr.Collaborator(vcxerr.TransportCollaborator, 0, fmt.Errorf("decode agency response: %w", err))
	}

	return nil
}
