/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"encoding/json"

	"github.com/hyperledger/aries-vcx-go/pkg/ledger"
	"github.com/hyperledger/aries-vcx-go/pkg/ledger/creddef"
	"github.com/hyperledger/aries-vcx-go/pkg/vcx"
)

// CreateSchemaRequest writes a schema.
type CreateSchemaRequest struct {
	SourceID   string          `json:"source_id"`
	Name       string          `json:"schema_name"`
	Version    string          `json:"schema_version"`
	Attributes json.RawMessage `json:"schema_data"`
	// Endorser, when set, only prepares the transaction for that DID to submit.
	Endorser string `json:"endorser,omitempty"`
}

// GetSchemaRequest reads a schema from the ledger.
type GetSchemaRequest struct {
	SourceID string `json:"source_id"`
	SchemaID string `json:"schema_id"`
}

// CreateCredentialDefRequest writes a credential definition.
type CreateCredentialDefRequest struct {
	SourceID   string          `json:"source_id"`
	Name       string          `json:"credentialdef_name"`
	SchemaID   string          `json:"schema_id"`
	Tag        string          `json:"tag"`
	Revocation json.RawMessage `json:"revocation_details,omitempty"`
	Endorser   string          `json:"endorser,omitempty"`
}

// HandleRequest names a schema or credential definition.
type HandleRequest struct {
	Handle vcx.Handle `json:"handle"`
}

// HandleResponse returns a schema or credential definition handle.
type HandleResponse struct {
	Handle vcx.Handle `json:"handle"`
	// Transaction is the schema transaction prepared for an endorser.
	Transaction json.RawMessage `json:"transaction,omitempty"`
	// Transactions are the credential definition transactions prepared for an endorser.
	Transactions []creddef.PreparedTxn `json:"transactions,omitempty"`
}

// SchemaResponse is a schema read from the ledger.
type SchemaResponse struct {
	Handle     vcx.Handle `json:"handle"`
	SchemaID   string     `json:"schema_id"`
	Name       string     `json:"name"`
	Version    string     `json:"version"`
	Attributes []string   `json:"data"`
}

// StateResponse is the publish state of a schema or credential definition.
type StateResponse struct {
	State int    `json:"state"`
	Name  string `json:"state_name"`
}

// IDResponse is a ledger identifier.
type IDResponse struct {
	ID string `json:"id"`
}

// FeesResponse are the ledger fees.
type FeesResponse struct {
	Fees ledger.Fees `json:"fees"`
}

// AcceptAgreementRequest records the transaction author agreement acceptance.
type AcceptAgreementRequest struct {
	Text       string `json:"text,omitempty"`
	Version    string `json:"version,omitempty"`
	Digest     string `json:"hash,omitempty"`
	Mechanism  string `json:"acc_mech_type"`
	AcceptedAt int64  `json:"time_of_acceptance,omitempty"`
}

// EndorseRequest submits a transaction prepared by an author.
type EndorseRequest struct {
	Transaction json.RawMessage `json:"transaction"`
}

// SerializedObject is the versioned JSON of a schema or credential definition.
type SerializedObject struct {
	Data json.RawMessage `json:"data"`
}
