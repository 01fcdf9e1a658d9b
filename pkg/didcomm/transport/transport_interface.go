/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package transport

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/exp/slices"
)

// Status is an agency message status code.
type Status string

// Agency message statuses.
const (
	StatusCreated  Status = "MS-101"
	StatusSent     Status = "MS-102"
	StatusReceived Status = "MS-103"
	StatusAccepted Status = "MS-104"
	StatusRejected Status = "MS-105"
	StatusReviewed Status = "MS-106"
)

// Route is where an outbound message is delivered.
type Route struct {
	// RecipientKey is the verkey of the receiving pairwise relationship. It addresses the mailbox.
	RecipientKey string `json:"recipient_key"`
	// SenderKey is the verkey of the sending side, empty for anonymous messages.
	SenderKey       string   `json:"sender_key,omitempty"`
	ServiceEndpoint string   `json:"service_endpoint"`
	RoutingKeys     []string `json:"routing_keys,omitempty"`
}

// Message is a message held by the agency.
type Message struct {
	UID          string          `json:"uid"`
	RecipientKey string          `json:"recipient_key"`
	SenderKey    string          `json:"sender_key,omitempty"`
	Status       Status          `json:"status_code"`
	Payload      json.RawMessage `json:"payload"`
	Received     time.Time       `json:"received"`
}

// Query filters a poll. Empty fields match everything.
type Query struct {
	RecipientKeys []string `json:"recipient_keys,omitempty"`
	Statuses      []Status `json:"statuses,omitempty"`
	UIDs          []string `json:"uids,omitempty"`
}

// Transport is the agency collaborator. Poll returns messages in arrival order.
type Transport interface {
	// Send delivers payload to the mailbox of route and returns the agency message id.
	Send(ctx context.Context, route Route, payload []byte) (string, error)
	// Poll returns the messages matching query.
	Poll(ctx context.Context, query Query) ([]Message, error)
	// UpdateMessageStatus sets the status of the given messages.
	UpdateMessageStatus(ctx context.Context, status Status, uids []string) error
}

// MatchStatus reports whether s is one of statuses. An empty list matches every status.
func MatchStatus(s Status, statuses []Status) bool {
	if len(statuses) == 0 {
		return true
	}

	return slices.Contains(statuses, s)
}
