/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package creddef manages credential definitions and their optional revocation registries.
package creddef

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-vcx-go/pkg/ledger"
	"github.com/hyperledger/aries-vcx-go/pkg/store/wallet"
	"github.com/hyperledger/aries-vcx-go/pkg/vcx/codec"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

var logger = log.New("vcx/ledger/creddef")

// State is the publish state of a credential definition.
type State int

// Publish states.
const (
	Built     State = 0
	Published State = 1
)

func (s State) String() string {
	if s == Published {
		return "published"
	}

	return "built"
}

const (
	revRegTag    = "tag1"
	issuanceType = "ISSUANCE_BY_DEFAULT"
)

// Kinds of prepared transactions.
const (
	CredDefTxn     = "cred_def"
	RevRegDefTxn   = "rev_reg_def"
	RevRegEntryTxn = "rev_reg_entry"
)

// RevocationDetails configures the revocation registry of a credential definition.
type RevocationDetails struct {
	SupportRevocation bool   `json:"support_revocation"`
	TailsFile         string `json:"tails_file,omitempty"`
	MaxCreds          int    `json:"max_creds,omitempty"`
}

// ParseRevocationDetails reads revocation details. Empty input disables revocation.
func ParseRevocationDetails(data []byte) (RevocationDetails, error) {
	var d RevocationDetails

	if len(data) == 0 {
		return d, nil
	}

	if err := json.Unmarshal(data, &d); err != nil {
		return d, vcxerr.Wrap(vcxerr.ValidationFailure, err, "revocation details")
	}

	return d, nil
}

// PreparedTxn is a transaction awaiting its endorser.
type PreparedTxn struct {
	Kind      string          `json:"kind"`
	ReqID     string          `json:"req_id"`
	Txn       json.RawMessage `json:"txn"`
	Committed bool            `json:"committed,omitempty"`
}

// CredDef is a credential definition record.
type CredDef struct {
	SourceID     string            `json:"source_id"`
	Name         string            `json:"name"`
	ID           string            `json:"cred_def_id"`
	SchemaID     string            `json:"schema_id"`
	Tag          string            `json:"tag"`
	IssuerDID    string            `json:"issuer_did"`
	IssuerVerkey string            `json:"issuer_verkey"`
	Revocation   RevocationDetails `json:"revocation_details"`
	RevRegID     string            `json:"rev_reg_id,omitempty"`
	State        State             `json:"state"`
	Prepared     []PreparedTxn     `json:"prepared,omitempty"`
}

// Options are the parameters of a new credential definition.
type Options struct {
	SourceID   string
	Name       string
	SchemaID   string
	Tag        string
	Revocation RevocationDetails
}

// Create writes the credential definition, and its revocation registry when enabled, and returns it
// published.
func Create(ctx context.Context, c *ledger.Client, w wallet.Wallet, opts Options) (*CredDef, error) {
	cd, txns, err := build(ctx, c, opts)
	if err != nil {
		return nil, err
	}

	if err := initRevocationRegistry(ctx, w, cd); err != nil {
		return nil, err
	}

	for _, t := range txns {
		if _, err := c.SignAndSubmit(ctx, t.Txn); err != nil {
			return nil, err
		}
	}

	cd.State = Published

	logger.Infof("credential definition %s published", cd.ID)

	return cd, nil
}

// PrepareForEndorser builds the credential definition transactions for endorser: the definition,
// and for revocable definitions the registry definition and its first entry. The record stays Built
// until every transaction is committed.
func PrepareForEndorser(ctx context.Context, c *ledger.Client, w wallet.Wallet, opts Options,
	endorser string) (*CredDef, error) {
	cd, txns, err := build(ctx, c, opts)
	if err != nil {
		return nil, err
	}

	for _, t := range txns {
		prepared, err := c.PrepareForEndorser(ctx, t.Txn, endorser)
		if err != nil {
			return nil, err
		}

		cd.Prepared = append(cd.Prepared, PreparedTxn{Kind: t.Kind, ReqID: ledger.ReqID(prepared), Txn: prepared})
	}

	if err := initRevocationRegistry(ctx, w, cd); err != nil {
		return nil, err
	}

	logger.Debugf("credential definition %s prepared with %d transactions", cd.ID, len(cd.Prepared))

	return cd, nil
}

// UpdateState checks the prepared transactions and publishes the definition once every one of them
// is committed.
func (cd *CredDef) UpdateState(ctx context.Context, c *ledger.Client) (State, error) {
	if cd.State == Published {
		return cd.State, nil
	}

	if len(cd.Prepared) == 0 {
		return cd.State, vcxerr.New(vcxerr.InvalidState, "credential definition %s has no pending transactions", cd.SourceID)
	}

	pending := 0

	for i := range cd.Prepared {
		t := &cd.Prepared[i]
		if t.Committed {
			continue
		}

		committed, err := c.IsCommitted(ctx, t.ReqID)
		if err != nil {
			return cd.State, err
		}

		if committed {
			t.Committed = true

			logger.Debugf("credential definition %s: %s transaction committed", cd.ID, t.Kind)

			continue
		}

		pending++
	}

	if pending > 0 {
		return cd.State, nil
	}

	cd.State = Published
	cd.Prepared = nil

	logger.Debugf("credential definition %s: built -> published", cd.ID)

	return cd.State, nil
}

// TransactionsForEndorser returns the prepared transactions not yet committed.
func (cd *CredDef) TransactionsForEndorser() []PreparedTxn {
	var txns []PreparedTxn

	for _, t := range cd.Prepared {
		if !t.Committed {
			txns = append(txns, t)
		}
	}

	return txns
}

// SupportsRevocation reports whether credentials of the definition can be revoked.
func (cd *CredDef) SupportsRevocation() bool {
	return cd.RevRegID != ""
}

// Serialize returns the versioned JSON of the credential definition.
func (cd *CredDef) Serialize() ([]byte, error) {
	return codec.Marshal(codec.CredentialDef, cd)
}

// Deserialize restores a credential definition.
func Deserialize(data []byte) (*CredDef, error) {
	cd := &CredDef{}
	if _, err := codec.Unmarshal(codec.CredentialDef, data, cd); err != nil {
		return nil, err
	}

	return cd, nil
}

type unsignedTxn struct {
	Kind string
	Txn  []byte
}

func build(ctx context.Context, c *ledger.Client, opts Options) (*CredDef, []unsignedTxn, error) {
	if opts.SchemaID == "" {
		return nil, nil, vcxerr.New(vcxerr.ValidationFailure, "schema id is required")
	}

	if opts.Tag == "" {
		opts.Tag = "tag1"
	}

	if opts.Revocation.SupportRevocation && opts.Revocation.MaxCreds <= 0 {
		return nil, nil, vcxerr.New(vcxerr.ValidationFailure, "revocable definitions need a positive max_creds")
	}

	schema, err := c.GetSchema(ctx, opts.SchemaID)
	if err != nil {
		return nil, nil, err
	}

	did := c.DID()

	cd := &CredDef{
		SourceID:     opts.SourceID,
		Name:         opts.Name,
		ID:           ledger.CredDefID(did, schema.SeqNo, opts.Tag),
		SchemaID:     opts.SchemaID,
		Tag:          opts.Tag,
		IssuerDID:    did,
		IssuerVerkey: c.Verkey(),
		Revocation:   opts.Revocation,
		State:        Built,
	}

	credDefTxn, err := ledger.NewCredDefTxn(did, &ledger.CredDef{
		Ver:      "1.0",
		ID:       cd.ID,
		SchemaID: cd.SchemaID,
		Type:     "CL",
		Tag:      cd.Tag,
		Value:    ledger.CredDefValue{IssuerVerkey: cd.IssuerVerkey, SupportsRevocation: opts.Revocation.SupportRevocation},
	})
	if err != nil {
		return nil, nil, err
	}

	txns := []unsignedTxn{{Kind: CredDefTxn, Txn: credDefTxn}}

	if !opts.Revocation.SupportRevocation {
		return cd, txns, nil
	}

	cd.RevRegID = ledger.RevRegID(did, cd.ID, revRegTag)

	defTxn, err := ledger.NewRevRegDefTxn(did, &ledger.RevRegDef{
		Ver:       "1.0",
		ID:        cd.RevRegID,
		Type:      "CL_ACCUM",
		Tag:       revRegTag,
		CredDefID: cd.ID,
		Value: ledger.RevRegDefValue{
			IssuanceType:  issuanceType,
			MaxCredNum:    opts.Revocation.MaxCreds,
			TailsLocation: opts.Revocation.TailsFile,
		},
	})
	if err != nil {
		return nil, nil, err
	}

	entryTxn, err := ledger.NewRevRegEntryTxn(did, &ledger.RevRegEntry{RevRegDefID: cd.RevRegID})
	if err != nil {
		return nil, nil, err
	}

	txns = append(txns, unsignedTxn{Kind: RevRegDefTxn, Txn: defTxn}, unsignedTxn{Kind: RevRegEntryTxn, Txn: entryTxn})

	return cd, txns, nil
}

func initRevocationRegistry(ctx context.Context, w wallet.Wallet, cd *CredDef) error {
	if !cd.SupportsRevocation() {
		return nil
	}

	if err := putRegistryInfo(ctx, w, cd.RevRegID, cd.Revocation.MaxCreds); err != nil {
		return fmt.Errorf("init revocation registry %s: %w", cd.RevRegID, err)
	}

	return nil
}
