/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presentproof

import (
	"encoding/json"

	"github.com/hyperledger/aries-vcx-go/pkg/anoncreds"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/presentproof"
	"github.com/hyperledger/aries-vcx-go/pkg/vcx"
)

// CreateProofRequest prepares a proof request.
type CreateProofRequest struct {
	SourceID           string          `json:"source_id"`
	Attributes         json.RawMessage `json:"requested_attrs"`
	Predicates         json.RawMessage `json:"requested_predicates,omitempty"`
	RevocationInterval json.RawMessage `json:"revocation_interval,omitempty"`
	Name               string          `json:"name"`
}

// HandleRequest names a proof exchange.
type HandleRequest struct {
	Handle vcx.Handle `json:"handle"`
}

// HandleResponse returns the handle of a new proof exchange.
type HandleResponse struct {
	Handle vcx.Handle `json:"handle"`
}

// ConnectionRequest drives a proof exchange over a connection.
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

// StateResponse is the state of a proof exchange.
type StateResponse struct {
	State presentproof.State `json:"state"`
	Name  string             `json:"state_name"`
}

// RequestsRequest lists the proof requests pending on a connection.
type RequestsRequest struct {
	Connection vcx.Handle `json:"connection_handle"`
}

// RequestsResponse are the valid proof requests pending on a connection.
type RequestsResponse struct {
	Requests []*presentproof.RequestPresentation `json:"requests"`
}

// CreateWithRequestRequest starts a prover exchange from a proof request.
type CreateWithRequestRequest struct {
	SourceID string          `json:"source_id"`
	Request  json.RawMessage `json:"request"`
}

// CreateWithMsgIDRequest starts a prover exchange from a request waiting at the agency.
type CreateWithMsgIDRequest struct {
	SourceID   string     `json:"source_id"`
	Connection vcx.Handle `json:"connection_handle"`
	MsgID      string     `json:"msg_id"`
}

// GenerateRequest builds the presentation.
type GenerateRequest struct {
	Handle       vcx.Handle                     `json:"handle"`
	Selected     *anoncreds.SelectedCredentials `json:"selected_credentials"`
	SelfAttested map[string]string              `json:"self_attested_attrs,omitempty"`
}

// RejectRequest refuses a proof request with a problem report.
type RejectRequest struct {
	Handle     vcx.Handle `json:"handle"`
	Connection vcx.Handle `json:"connection_handle"`
	Reason     string     `json:"reason,omitempty"`
}

// DeclineRequest refuses a proof request with a reason or a counter proposal.
type DeclineRequest struct {
	Handle     vcx.Handle                        `json:"handle"`
	Connection vcx.Handle                        `json:"connection_handle"`
	Reason     string                            `json:"reason,omitempty"`
	Proposal   *presentproof.PresentationPreview `json:"proposal,omitempty"`
}

// SerializedObject is the versioned JSON of a proof exchange.
type SerializedObject struct {
	Data json.RawMessage `json:"data"`
}
