/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

var logger = log.New("vcx/ledger")

// Client writes and reads ledger artifacts on behalf of one submitter DID.
type Client struct {
	ledger Ledger
	signer Signer
	did    string
	verkey string

	lock sync.RWMutex
	taa  *TAAAcceptance
}

// NewClient returns a client submitting as did, signing with verkey.
func NewClient(l Ledger, signer Signer, did, verkey string) *Client {
	return &Client{ledger: l, signer: signer, did: did, verkey: verkey}
}

// DID returns the submitter DID.
func (c *Client) DID() string {
	return c.did
}

// Verkey returns the submitter verkey.
func (c *Client) Verkey() string {
	return c.verkey
}

// SetTAAAcceptance sets the author agreement acceptance appended to every written transaction.
func (c *Client) SetTAAAcceptance(acceptance TAAAcceptance) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.taa = &acceptance
}

// TAAAcceptance returns the active acceptance, if any.
func (c *Client) TAAAcceptance() (TAAAcceptance, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if c.taa == nil {
		return TAAAcceptance{}, false
	}

	return *c.taa, true
}

// SignAndSubmit signs an unsigned transaction as its author and submits it.
func (c *Client) SignAndSubmit(ctx context.Context, txn []byte) (Receipt, error) {
	signed, err := c.authorSign(ctx, txn, false)
	if err != nil {
		return Receipt{}, err
	}

	return c.submit(ctx, signed)
}

// PrepareForEndorser names endorser, adds the author signature and returns the transaction for the
// endorser to submit out of band.
func (c *Client) PrepareForEndorser(ctx context.Context, txn []byte, endorser string) ([]byte, error) {
	if endorser == "" {
		return nil, vcxerr.New(vcxerr.ValidationFailure, "endorser DID is required")
	}

	withEndorser, err := AppendEndorser(txn, endorser)
	if err != nil {
		return nil, fmt.Errorf("set endorser: %w", err)
	}

	return c.authorSign(ctx, withEndorser, true)
}

// Endorse adds the client's signature to a transaction naming it as endorser and submits it.
func (c *Client) Endorse(ctx context.Context, txn []byte) (Receipt, error) {
	if _, _, err := Operation(txn); err != nil {
		return Receipt{}, err
	}

	if endorser := EndorserOf(txn); endorser != c.did {
		return Receipt{}, vcxerr.New(vcxerr.ValidationFailure,
			"transaction endorser %q does not match %q", endorser, c.did)
	}

	payload, err := SigningPayload(txn)
	if err != nil {
		return Receipt{}, fmt.Errorf("signing payload: %w", err)
	}

	sig, err := c.signer.Sign(ctx, c.verkey, payload)
	if err != nil {
		return Receipt{}, err
	}

	endorsed, err := appendSignature(txn, c.did, sig, true)
	if err != nil {
		return Receipt{}, fmt.Errorf("set endorser signature: %w", err)
	}

	return c.submit(ctx, endorsed)
}

// IsCommitted reports whether the transaction with reqID is on the ledger.
func (c *Client) IsCommitted(ctx context.Context, reqID string) (bool, error) {
	_, err := c.query(ctx, Request{Type: TxnRequest, ID: reqID})
	if vcxerr.Is(err, vcxerr.NotFound) {
		return false, nil
	}

	return err == nil, err
}

// GetSchema reads a schema.
func (c *Client) GetSchema(ctx context.Context, id string) (*Schema, error) {
	schema := &Schema{}

	return schema, c.read(ctx, Request{Type: SchemaRequest, ID: id}, schema)
}

// GetCredDef reads a credential definition.
func (c *Client) GetCredDef(ctx context.Context, id string) (*CredDef, error) {
	credDef := &CredDef{}

	return credDef, c.read(ctx, Request{Type: CredDefRequest, ID: id}, credDef)
}

// GetRevRegDef reads a revocation registry definition.
func (c *Client) GetRevRegDef(ctx context.Context, id string) (*RevRegDef, error) {
	def := &RevRegDef{}

	return def, c.read(ctx, Request{Type: RevRegDefRequest, ID: id}, def)
}

// GetRevRegDelta reads the state of a revocation registry as of to. Zero means now.
func (c *Client) GetRevRegDelta(ctx context.Context, id string, to int64) (*RevRegDelta, error) {
	delta := &RevRegDelta{}

	return delta, c.read(ctx, Request{Type: RevRegDeltaRequest, ID: id, To: to}, delta)
}

// GetFees returns the ledger fee schedule.
func (c *Client) GetFees(ctx context.Context) (Fees, error) {
	fees, err := c.ledger.GetFees(ctx)
	if err != nil {
		return nil, collaboratorError(err, "get fees")
	}

	return fees, nil
}

// GetAuthorAgreement returns the active author agreement.
func (c *Client) GetAuthorAgreement(ctx context.Context) (AuthorAgreement, error) {
	taa, err := c.ledger.GetAuthorAgreement(ctx)
	if err != nil {
		return AuthorAgreement{}, collaboratorError(err, "get author agreement")
	}

	return taa, nil
}

func (c *Client) authorSign(ctx context.Context, txn []byte, multi bool) ([]byte, error) {
	if _, _, err := Operation(txn); err != nil {
		return nil, err
	}

	if submitter := Submitter(txn); submitter != c.did {
		return nil, vcxerr.New(vcxerr.ValidationFailure, "transaction author %q does not match %q", submitter, c.did)
	}

	var err error

	if acceptance, ok := c.TAAAcceptance(); ok {
		txn, err = AppendTAA(txn, acceptance)
		if err != nil {
			return nil, fmt.Errorf("set author agreement acceptance: %w", err)
		}
	}

	payload, err := SigningPayload(txn)
	if err != nil {
		return nil, fmt.Errorf("signing payload: %w", err)
	}

	sig, err := c.signer.Sign(ctx, c.verkey, payload)
	if err != nil {
		return nil, err
	}

	signed, err := appendSignature(txn, c.did, sig, multi)
	if err != nil {
		return nil, fmt.Errorf("set signature: %w", err)
	}

	return signed, nil
}

func (c *Client) submit(ctx context.Context, txn []byte) (Receipt, error) {
	receipt, err := c.ledger.Submit(ctx, txn)
	if err != nil {
		return Receipt{}, collaboratorError(err, "submit transaction "+ReqID(txn))
	}

	logger.Debugf("transaction %s committed with seqNo %d", receipt.ReqID, receipt.SeqNo)

	return receipt, nil
}

func (c *Client) read(ctx context.Context, req Request, v interface{}) error {
	raw, err := c.query(ctx, req)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return vcxerr.Collaborator(vcxerr.LedgerCollaborator, 0, fmt.Errorf("decode %s %s: %w", req.Type, req.ID, err))
	}

	return nil
}

func (c *Client) query(ctx context.Context, req Request) ([]byte, error) {
	raw, err := c.ledger.Query(ctx, req)
	if vcxerr.Is(err, vcxerr.NotFound) {
		return nil, err
	}

	if err != nil {
		return nil, collaboratorError(err, fmt.Sprintf("query %s %s", req.Type, req.ID))
	}

	return raw, nil
}

func collaboratorError(err error, op string) error {
	logger.Errorf("ledger %s failed: %s", op, err)

	return vcxerr.Collaborator(vcxerr.LedgerCollaborator, 0, fmt.Errorf("%s: %w", op, err))
}
