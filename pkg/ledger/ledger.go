/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package ledger defines the ledger collaborator, the ledger artifacts the engine reads and writes,
// and a client that signs, endorses and submits transactions.
package ledger

import (
	"context"
)

// RequestType selects the kind of ledger object a query reads.
type RequestType string

// Query request types.
const (
	SchemaRequest      RequestType = "schema"
	CredDefRequest     RequestType = "cred_def"
	RevRegDefRequest   RequestType = "rev_reg_def"
	RevRegDeltaRequest RequestType = "rev_reg_delta"
	// TxnRequest reads the receipt of a committed transaction by request id.
	TxnRequest RequestType = "txn"
)

// Request is a ledger read.
type Request struct {
	Type RequestType `json:"type"`
	ID   string      `json:"id"`
	// To bounds delta reads: only entries committed at or before To are returned. Zero means now.
	To int64 `json:"to,omitempty"`
}

// Receipt is returned for a committed transaction.
type Receipt struct {
	ReqID   string `json:"reqId"`
	SeqNo   int64  `json:"seqNo"`
	TxnTime int64  `json:"txnTime"`
}

// Fees maps transaction types to their cost.
type Fees map[string]uint64

// AuthorAgreement is the active transaction author agreement of the ledger.
type AuthorAgreement struct {
	Text           string   `json:"text"`
	Version        string   `json:"version"`
	Digest         string   `json:"digest,omitempty"`
	RatificationTs int64    `json:"ratification_ts,omitempty"`
	Mechanisms     []string `json:"aml,omitempty"`
}

// Ledger is the ledger collaborator. Query returns the JSON of the requested object and fails with
// vcxerr.NotFound when it does not exist or is not committed yet.
type Ledger interface {
	Submit(ctx context.Context, txn []byte) (Receipt, error)
	Query(ctx context.Context, req Request) ([]byte, error)
	GetFees(ctx context.Context) (Fees, error)
	GetAuthorAgreement(ctx context.Context) (AuthorAgreement, error)
}

// Endorser submits transactions prepared by another author.
type Endorser interface {
	Endorse(ctx context.Context, txn []byte) (Receipt, error)
}

// Signer signs with a key held by the wallet.
type Signer interface {
	Sign(ctx context.Context, verkey string, data []byte) ([]byte, error)
}
