/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package anoncreds

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/btcsuite/btcutil/base58"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-vcx-go/pkg/ledger"
	"github.com/hyperledger/aries-vcx-go/pkg/store/wallet"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

var logger = log.New("vcx/anoncreds")

// LedgerReader reads the ledger objects needed to check credentials and presentations.
type LedgerReader interface {
	GetSchema(ctx context.Context, id string) (*ledger.Schema, error)
	GetCredDef(ctx context.Context, id string) (*ledger.CredDef, error)
	GetRevRegDelta(ctx context.Context, id string, to int64) (*ledger.RevRegDelta, error)
}

// CredentialOffer is sent by the issuer to start an issuance.
type CredentialOffer struct {
	SchemaID  string `json:"schema_id"`
	CredDefID string `json:"cred_def_id"`
	Nonce     string `json:"nonce"`
}

// CredentialRequest is the holder's answer to an offer.
type CredentialRequest struct {
	ProverDID string `json:"prover_did"`
	CredDefID string `json:"cred_def_id"`
	Nonce     string `json:"nonce"`
}

// AttributeValue is one credential attribute in raw and encoded form.
type AttributeValue struct {
	Raw     string `json:"raw"`
	Encoded string `json:"encoded"`
}

// Credential is an issued credential. Signature is the issuer's base58 ed25519 signature over the
// credential with an empty signature field.
type Credential struct {
	SchemaID  string                    `json:"schema_id"`
	CredDefID string                    `json:"cred_def_id"`
	RevRegID  string                    `json:"rev_reg_id,omitempty"`
	CredRevID string                    `json:"cred_rev_id,omitempty"`
	Values    map[string]AttributeValue `json:"values"`
	Signature string                    `json:"signature"`
}

// RevocationIndex returns the index of the credential in its revocation registry.
func (c *Credential) RevocationIndex() (int, bool) {
	if c.RevRegID == "" || c.CredRevID == "" {
		return 0, false
	}

	idx, err := strconv.Atoi(c.CredRevID)
	if err != nil {
		return 0, false
	}

	return idx, true
}

func (c *Credential) signingPayload() ([]byte, error) {
	unsigned := *c
	unsigned.Signature = ""

	return json.Marshal(&unsigned)
}

// RevocationInfo places an issued credential in a revocation registry.
type RevocationInfo struct {
	RevRegID string `json:"rev_reg_id"`
	Index    int    `json:"cred_rev_id"`
}

// NewOffer returns an offer for credentials of credDef.
func NewOffer(credDef *ledger.CredDef) *CredentialOffer {
	return &CredentialOffer{SchemaID: credDef.SchemaID, CredDefID: credDef.ID, Nonce: NewNonce()}
}

// NewRequest returns the holder's request for offer.
func NewRequest(offer *CredentialOffer, proverDID string) (*CredentialRequest, error) {
	if offer.CredDefID == "" {
		return nil, vcxerr.New(vcxerr.ValidationFailure, "credential offer has no credential definition")
	}

	if proverDID == "" {
		return nil, vcxerr.New(vcxerr.ValidationFailure, "prover DID is required")
	}

	return &CredentialRequest{ProverDID: proverDID, CredDefID: offer.CredDefID, Nonce: NewNonce()}, nil
}

// Issue signs a credential with the issuer's key. rev is nil for credentials that cannot be revoked.
func Issue(ctx context.Context, signer ledger.Signer, issuerVerkey string, offer *CredentialOffer,
	req *CredentialRequest, attrs map[string]string, rev *RevocationInfo) (*Credential, error) {
	if req.CredDefID != offer.CredDefID {
		return nil, vcxerr.New(vcxerr.ValidationFailure,
			"credential request is for %s, offer was for %s", req.CredDefID, offer.CredDefID)
	}

	if len(attrs) == 0 {
		return nil, vcxerr.New(vcxerr.ValidationFailure, "credential has no attributes")
	}

	cred := &Credential{
		SchemaID:  offer.SchemaID,
		CredDefID: offer.CredDefID,
		Values:    EncodeValues(attrs),
	}

	if rev != nil {
		cred.RevRegID = rev.RevRegID
		cred.CredRevID = strconv.Itoa(rev.Index)
	}

	payload, err := cred.signingPayload()
	if err != nil {
		return nil, fmt.Errorf("credential signing payload: %w", err)
	}

	sig, err := signer.Sign(ctx, issuerVerkey, payload)
	if err != nil {
		return nil, err
	}

	cred.Signature = base58.Encode(sig)

	return cred, nil
}

// VerifyCredential checks the issuer signature against the credential definition on the ledger and
// the encoding of every value.
func VerifyCredential(ctx context.Context, l LedgerReader, cred *Credential) error {
	credDef, err := l.GetCredDef(ctx, cred.CredDefID)
	if err != nil {
		return err
	}

	return verifyCredential(credDef, cred)
}

func verifyCredential(credDef *ledger.CredDef, cred *Credential) error {
	if credDef.SchemaID != "" && credDef.SchemaID != cred.SchemaID {
		return vcxerr.New(vcxerr.ValidationFailure,
			"credential schema %s does not match its definition %s", cred.SchemaID, credDef.SchemaID)
	}

	for name, v := range cred.Values {
		if EncodeValue(v.Raw) != v.Encoded {
			return vcxerr.New(vcxerr.ValidationFailure, "attribute %s is not correctly encoded", name)
		}
	}

	payload, err := cred.signingPayload()
	if err != nil {
		return fmt.Errorf("credential signing payload: %w", err)
	}

	ok, err := wallet.Verify(credDef.Value.IssuerVerkey, payload, base58.Decode(cred.Signature))
	if err != nil {
		return err
	}

	if !ok {
		return vcxerr.New(vcxerr.ValidationFailure, "credential signature does not verify against %s", cred.CredDefID)
	}

	return nil
}
