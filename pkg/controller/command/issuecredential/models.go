/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuecredential

import (
	"encoding/json"

	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/issuecredential"
	"github.com/hyperledger/aries-vcx-go/pkg/vcx"
)

// CreateOfferRequest prepares a credential offer.
type CreateOfferRequest struct {
	SourceID   string          `json:"source_id"`
	CredDef    vcx.Handle      `json:"cred_def_handle"`
	Attributes json.RawMessage `json:"credential_data"`
	Name       string          `json:"credential_name"`
	Price      string          `json:"price,omitempty"`
}

// HandleRequest names a credential exchange.
type HandleRequest struct {
	Handle vcx.Handle `json:"handle"`
}

// HandleResponse returns the handle of a new credential exchange.
type HandleResponse struct {
	Handle vcx.Handle `json:"handle"`
}

// ConnectionRequest drives a credential exchange over a connection.
type ConnectionRequest struct {
	Handle     vcx.Handle `json:"handle"`
	Connection vcx.Handle `json:"connection_handle"`
}

// UpdateWithMessageRequest applies a message delivered outside the agency.
type UpdateWithMessageRequest struct {
	Handle     vcx.Handle      `json:"handle"`
	Connection vcx.Handle      `json:"connection_handle,omitempty"`
	Message    json.RawMessage `json:"message"`
}

// ReasonRequest ends a credential exchange with a reason.
type ReasonRequest struct {
	Handle     vcx.Handle `json:"handle"`
	Connection vcx.Handle `json:"connection_handle"`
	Reason     string     `json:"reason,omitempty"`
}

// StateResponse is the state of a credential exchange.
type StateResponse struct {
	State issuecredential.State `json:"state"`
	Name  string                `json:"state_name"`
}

// OffersRequest lists the offers pending on a connection.
type OffersRequest struct {
	Connection vcx.Handle `json:"connection_handle"`
}

// OffersResponse are the valid offers pending on a connection.
type OffersResponse struct {
	Offers []*issuecredential.OfferCredential `json:"offers"`
}

// CreateWithOfferRequest starts a holder exchange from an offer.
type CreateWithOfferRequest struct {
	SourceID string          `json:"source_id"`
	Offer    json.RawMessage `json:"offer"`
}

// CreateWithMsgIDRequest starts a holder exchange from an offer waiting at the agency.
type CreateWithMsgIDRequest struct {
	SourceID   string     `json:"source_id"`
	Connection vcx.Handle `json:"connection_handle"`
	MsgID      string     `json:"msg_id"`
}

// RevokedResponse is the revocation status of a received credential.
type RevokedResponse struct {
	Revoked bool `json:"revoked"`
}

// SerializedObject is the versioned JSON of a credential exchange.
type SerializedObject struct {
	Data json.RawMessage `json:"data"`
}
