/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package messaging

import (
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/transport"
	"github.com/hyperledger/aries-vcx-go/pkg/vcx"
)

// GetMessagesRequest filters agency messages. Empty fields match everything.
type GetMessagesRequest struct {
	Statuses []transport.Status `json:"message_status,omitempty"`
	UIDs     []string           `json:"uids,omitempty"`
	PwDIDs   []string           `json:"pw_dids,omitempty"`
}

// GetMessagesResponse are agency messages grouped by connection.
type GetMessagesResponse struct {
	Connections []vcx.ConnectionMessages `json:"connections"`
}

// UpdateMessagesRequest sets the status of agency messages.
type UpdateMessagesRequest struct {
	Status  transport.Status          `json:"message_status"`
	Updates []vcx.MessageStatusUpdate `json:"msg_json"`
}

// PwDIDRequest names a connection by pairwise DID.
type PwDIDRequest struct {
	PwDID string `json:"pw_did"`
}

// HandleResponse is a connection handle.
type HandleResponse struct {
	Handle vcx.Handle `json:"handle"`
}
