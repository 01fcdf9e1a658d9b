/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package connection

import (
	"encoding/json"

	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/connection"
	"github.com/hyperledger/aries-vcx-go/pkg/vcx"
)

// CreateRequest creates a connection as inviter.
type CreateRequest struct {
	SourceID string `json:"source_id"`
}

// CreateWithInviteRequest creates a connection as invitee of invite.
type CreateWithInviteRequest struct {
	SourceID string          `json:"source_id"`
	Invite   json.RawMessage `json:"invite"`
}

// HandleRequest names a connection.
type HandleRequest struct {
	Handle vcx.Handle `json:"handle"`
}

// HandleResponse returns the handle of a new connection.
type HandleResponse struct {
	Handle vcx.Handle `json:"handle"`
}

// UpdateWithMessageRequest applies a message delivered outside the agency.
type UpdateWithMessageRequest struct {
	Handle  vcx.Handle      `json:"handle"`
	Message json.RawMessage `json:"message"`
}

// StateResponse is the state of a connection.
type StateResponse struct {
	State connection.State `json:"state"`
	Name  string           `json:"state_name"`
}

// PwDIDResponse is a pairwise DID.
type PwDIDResponse struct {
	PwDID string `json:"pw_did"`
}

// SendMessageRequest sends a basic message.
type SendMessageRequest struct {
	Handle   vcx.Handle `json:"handle"`
	Content  string     `json:"content"`
	MsgType  string     `json:"msg_type,omitempty"`
	MsgTitle string     `json:"msg_title,omitempty"`
	RefMsgID string     `json:"ref_msg_id,omitempty"`
}

// MessageIDResponse is the agency id of a sent message.
type MessageIDResponse struct {
	MsgID string `json:"msg_id"`
}

// SendPingRequest sends a trust ping.
type SendPingRequest struct {
	Handle  vcx.Handle `json:"handle"`
	Comment string     `json:"comment,omitempty"`
}

// SignDataRequest signs data with the pairwise key.
type SignDataRequest struct {
	Handle vcx.Handle `json:"handle"`
	Data   []byte     `json:"data"`
}

// SignatureResponse is a signature.
type SignatureResponse struct {
	Signature []byte `json:"signature"`
}

// VerifySignatureRequest checks a signature of the remote party.
type VerifySignatureRequest struct {
	Handle    vcx.Handle `json:"handle"`
	Data      []byte     `json:"data"`
	Signature []byte     `json:"signature"`
}

// VerifySignatureResponse is the outcome of a signature check.
type VerifySignatureResponse struct {
	Valid bool `json:"valid"`
}

// RedirectRequest answers the invitation of Handle with the existing connection.
type RedirectRequest struct {
	Handle   vcx.Handle `json:"handle"`
	Existing vcx.Handle `json:"existing_handle"`
}

// SerializedObject is the versioned JSON of a connection.
type SerializedObject struct {
	Data json.RawMessage `json:"data"`
}
