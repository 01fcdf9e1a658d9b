/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vcx

import (
	"context"
	"time"

	"github.com/hyperledger/aries-vcx-go/pkg/ledger"
	"github.com/hyperledger/aries-vcx-go/pkg/ledger/creddef"
	"github.com/hyperledger/aries-vcx-go/pkg/ledger/schema"
)

// CreateSchema writes a schema of the JSON list of attribute names and returns it published.
func (e *Engine) CreateSchema(ctx context.Context, sourceID, name, version string, attrsJSON []byte) (Handle, error) {
	attrs, err := schema.ParseAttrNames(attrsJSON)
	if err != nil {
		return 0, err
	}

	s, err := schema.Create(ctx, e.client, sourceID, name, version, attrs)
	if err != nil {
		return 0, err
	}

	return allocate(e, e.schemas, s)
}

// PrepareSchemaForEndorser builds the schema transaction for endorser to submit. The schema stays
// Built until UpdateSchemaState finds the transaction committed.
func (e *Engine) PrepareSchemaForEndorser(ctx context.Context, sourceID, name, version string, attrsJSON []byte,
	endorser string) (Handle, []byte, error) {
	attrs, err := schema.ParseAttrNames(attrsJSON)
	if err != nil {
		return 0, nil, err
	}

	s, err := schema.PrepareForEndorser(ctx, e.client, sourceID, name, version, attrs, endorser)
	if err != nil {
		return 0, nil, err
	}

	h, err := allocate(e, e.schemas, s)
	if err != nil {
		return 0, nil, err
	}

	return h, s.TransactionForEndorser(), nil
}

// GetSchemaAttributes reads a schema from the ledger into a new handle.
func (e *Engine) GetSchemaAttributes(ctx context.Context, sourceID, schemaID string) (Handle, *schema.Schema, error) {
	s, err := schema.GetAttributes(ctx, e.client, sourceID, schemaID)
	if err != nil {
		return 0, nil, err
	}

	h, err := allocate(e, e.schemas, s)
	if err != nil {
		return 0, nil, err
	}

	return h, s, nil
}

// UpdateSchemaState checks whether a schema prepared for an endorser has been committed.
func (e *Engine) UpdateSchemaState(ctx context.Context, h Handle) (schema.State, error) {
	return do(e.schemas, h, func(s *schema.Schema) (schema.State, error) {
		return s.UpdateState(ctx, e.client)
	})
}

// SchemaState returns the publish state of a schema.
func (e *Engine) SchemaState(h Handle) (schema.State, error) {
	return do(e.schemas, h, func(s *schema.Schema) (schema.State, error) {
		return s.State, nil
	})
}

// SchemaID returns the ledger id of a schema.
func (e *Engine) SchemaID(h Handle) (string, error) {
	return do(e.schemas, h, func(s *schema.Schema) (string, error) {
		return s.ID, nil
	})
}

// SerializeSchema returns the versioned JSON of a schema.
func (e *Engine) SerializeSchema(h Handle) ([]byte, error) {
	return do(e.schemas, h, func(s *schema.Schema) ([]byte, error) {
		return s.Serialize()
	})
}

// DeserializeSchema restores a schema under a new handle.
func (e *Engine) DeserializeSchema(data []byte) (Handle, error) {
	s, err := schema.Deserialize(data)
	if err != nil {
		return 0, err
	}

	return allocate(e, e.schemas, s)
}

// ReleaseSchema releases the handle.
func (e *Engine) ReleaseSchema(h Handle) error {
	return e.schemas.Release(h)
}

// CredentialDefOptions are the parameters of CreateCredentialDef. RevocationJSON is the libvcx
// revocation details object, empty to disable revocation.
type CredentialDefOptions struct {
	SourceID       string
	Name           string
	SchemaID       string
	Tag            string
	RevocationJSON []byte
}

func (o CredentialDefOptions) options() (creddef.Options, error) {
	rev, err := creddef.ParseRevocationDetails(o.RevocationJSON)
	if err != nil {
		return creddef.Options{}, err
	}

	return creddef.Options{SourceID: o.SourceID, Name: o.Name, SchemaID: o.SchemaID, Tag: o.Tag, Revocation: rev}, nil
}

// CreateCredentialDef writes a credential definition, with its revocation registry when enabled,
// and returns it published.
func (e *Engine) CreateCredentialDef(ctx context.Context, opts CredentialDefOptions) (Handle, error) {
	o, err := opts.options()
	if err != nil {
		return 0, err
	}

	cd, err := creddef.Create(ctx, e.client, e.wallet, o)
	if err != nil {
		return 0, err
	}

	return allocate(e, e.credDefs, cd)
}

// PrepareCredentialDefForEndorser builds the credential definition transactions for endorser to
// submit, in submission order.
func (e *Engine) PrepareCredentialDefForEndorser(ctx context.Context, opts CredentialDefOptions,
	endorser string) (Handle, []creddef.PreparedTxn, error) {
	o, err := opts.options()
	if err != nil {
		return 0, nil, err
	}

	cd, err := creddef.PrepareForEndorser(ctx, e.client, e.wallet, o, endorser)
	if err != nil {
		return 0, nil, err
	}

	h, err := allocate(e, e.credDefs, cd)
	if err != nil {
		return 0, nil, err
	}

	return h, cd.TransactionsForEndorser(), nil
}

// UpdateCredentialDefState checks whether every prepared transaction has been committed.
func (e *Engine) UpdateCredentialDefState(ctx context.Context, h Handle) (creddef.State, error) {
	return do(e.credDefs, h, func(cd *creddef.CredDef) (creddef.State, error) {
		return cd.UpdateState(ctx, e.client)
	})
}

// CredentialDefState returns the publish state of a credential definition.
func (e *Engine) CredentialDefState(h Handle) (creddef.State, error) {
	return do(e.credDefs, h, func(cd *creddef.CredDef) (creddef.State, error) {
		return cd.State, nil
	})
}

// CredentialDefID returns the ledger id of a credential definition.
func (e *Engine) CredentialDefID(h Handle) (string, error) {
	return do(e.credDefs, h, func(cd *creddef.CredDef) (string, error) {
		return cd.ID, nil
	})
}

// CredentialDefRevRegID returns the revocation registry id, empty for non revocable definitions.
func (e *Engine) CredentialDefRevRegID(h Handle) (string, error) {
	return do(e.credDefs, h, func(cd *creddef.CredDef) (string, error) {
		return cd.RevRegID, nil
	})
}

// SerializeCredentialDef returns the versioned JSON of a credential definition.
func (e *Engine) SerializeCredentialDef(h Handle) ([]byte, error) {
	return do(e.credDefs, h, func(cd *creddef.CredDef) ([]byte, error) {
		return cd.Serialize()
	})
}

// DeserializeCredentialDef restores a credential definition under a new handle.
func (e *Engine) DeserializeCredentialDef(data []byte) (Handle, error) {
	cd, err := creddef.Deserialize(data)
	if err != nil {
		return 0, err
	}

	return allocate(e, e.credDefs, cd)
}

// ReleaseCredentialDef releases the handle.
func (e *Engine) ReleaseCredentialDef(h Handle) error {
	return e.credDefs.Release(h)
}

// GetLedgerFees returns the transaction fees of the ledger.
func (e *Engine) GetLedgerFees(ctx context.Context) (ledger.Fees, error) {
	return e.client.GetFees(ctx)
}

// GetLedgerAuthorAgreement returns the active transaction author agreement.
func (e *Engine) GetLedgerAuthorAgreement(ctx context.Context) (ledger.AuthorAgreement, error) {
	return e.client.GetAuthorAgreement(ctx)
}

// SetActiveTxnAuthorAgreementMeta records the acceptance appended to every transaction written
// from now on. A zero acceptedAt means now.
func (e *Engine) SetActiveTxnAuthorAgreementMeta(text, version, digest, mechanism string, acceptedAt int64) error {
	if acceptedAt == 0 {
		acceptedAt = time.Now().Unix()
	}

	acceptance, err := ledger.NewTAAAcceptance(text, version, digest, mechanism, acceptedAt)
	if err != nil {
		return err
	}

	e.client.SetTAAAcceptance(acceptance)

	return nil
}

// EndorseTransaction signs a transaction naming the institution DID as endorser and submits it.
func (e *Engine) EndorseTransaction(ctx context.Context, txn []byte) (ledger.Receipt, error) {
	return e.client.Endorse(ctx, txn)
}
