/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package anoncreds

import (
	"context"
	"fmt"

	"github.com/hyperledger/aries-vcx-go/pkg/store/wallet"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

// Identifier names the ledger objects behind one sub proof. Timestamp is the revocation registry
// state the prover relied on.
type Identifier struct {
	SchemaID  string `json:"schema_id"`
	CredDefID string `json:"cred_def_id"`
	RevRegID  string `json:"rev_reg_id,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// SubProof carries one signed credential.
type SubProof struct {
	Credential Credential `json:"credential"`
}

// Proof is the cryptographic part of a presentation.
type Proof struct {
	Proofs []SubProof `json:"proofs"`
	Nonce  string     `json:"nonce"`
}

// RevealedAttr is a revealed attribute answering a single-name referent.
type RevealedAttr struct {
	SubProofIndex int    `json:"sub_proof_index"`
	Raw           string `json:"raw"`
	Encoded       string `json:"encoded"`
}

// RevealedAttrGroup answers a multi-name referent from one credential.
type RevealedAttrGroup struct {
	SubProofIndex int                       `json:"sub_proof_index"`
	Values        map[string]AttributeValue `json:"values"`
}

// SubProofReferent points a predicate at its sub proof.
type SubProofReferent struct {
	SubProofIndex int `json:"sub_proof_index"`
}

// RequestedProof maps referents of the proof request to their answers.
type RequestedProof struct {
	RevealedAttrs      map[string]RevealedAttr      `json:"revealed_attrs"`
	RevealedAttrGroups map[string]RevealedAttrGroup `json:"revealed_attr_groups,omitempty"`
	SelfAttestedAttrs  map[string]string            `json:"self_attested_attrs"`
	UnrevealedAttrs    map[string]SubProofReferent  `json:"unrevealed_attrs"`
	Predicates         map[string]SubProofReferent  `json:"predicates"`
}

// Presentation is the prover's answer to a proof request.
type Presentation struct {
	Proof          Proof          `json:"proof"`
	RequestedProof RequestedProof `json:"requested_proof"`
	Identifiers    []Identifier   `json:"identifiers"`
}

// RevealedValues returns the revealed and self-attested values keyed by referent.
func (p *Presentation) RevealedValues() map[string]string {
	values := map[string]string{}

	for ref, a := range p.RequestedProof.RevealedAttrs {
		values[ref] = a.Raw
	}

	for ref, v := range p.RequestedProof.SelfAttestedAttrs {
		values[ref] = v
	}

	return values
}

type presentationBuilder struct {
	ctx    context.Context
	wallet wallet.Wallet
	ledger LedgerReader
	pres   *Presentation
	index  map[string]int
}

// CreatePresentation answers req with the selected stored credentials and self-attested values.
func CreatePresentation(ctx context.Context, w wallet.Wallet, l LedgerReader, req *ProofRequest,
	selected *SelectedCredentials, selfAttested map[string]string) (*Presentation, error) {
	if selected == nil {
		selected = &SelectedCredentials{}
	}

	b := &presentationBuilder{
		ctx:    ctx,
		wallet: w,
		ledger: l,
		index:  map[string]int{},
		pres: &Presentation{
			Proof: Proof{Proofs: []SubProof{}, Nonce: req.Nonce},
			RequestedProof: RequestedProof{
				RevealedAttrs:      map[string]RevealedAttr{},
				RevealedAttrGroups: map[string]RevealedAttrGroup{},
				SelfAttestedAttrs:  map[string]string{},
				UnrevealedAttrs:    map[string]SubProofReferent{},
				Predicates:         map[string]SubProofReferent{},
			},
			Identifiers: []Identifier{},
		},
	}

	for _, referent := range req.AttributeReferents() {
		info := req.RequestedAttributes[referent]

		if err := b.attribute(req, referent, &info, selected.Attrs, selfAttested); err != nil {
			return nil, err
		}
	}

	for _, referent := range req.PredicateReferents() {
		info := req.RequestedPredicates[referent]

		if err := b.predicate(req, referent, &info, selected.Predicates); err != nil {
			return nil, err
		}
	}

	return b.pres, nil
}

func (b *presentationBuilder) attribute(req *ProofRequest, referent string, info *AttributeInfo,
	selected map[string]SelectedCredential, selfAttested map[string]string) error {
	sel, ok := selected[referent]
	if !ok {
		value, attested := selfAttested[referent]
		if !attested {
			return vcxerr.New(vcxerr.ValidationFailure, "no credential selected for attribute %s", referent)
		}

		if len(info.Restrictions) > 0 || len(info.Names) > 0 {
			return vcxerr.New(vcxerr.ValidationFailure, "attribute %s cannot be self-attested", referent)
		}

		b.pres.RequestedProof.SelfAttestedAttrs[referent] = value

		return nil
	}

	cred, idx, err := b.subProof(sel.Credential.CredInfo.Referent, req.Interval(info.NonRevoked))
	if err != nil {
		return err
	}

	values := rawValues(cred)

	if info.Name != "" {
		raw, found := lookupAttr(values, info.Name)
		if !found {
			return vcxerr.New(vcxerr.ValidationFailure, "credential selected for %s has no attribute %s", referent, info.Name)
		}

		b.pres.RequestedProof.RevealedAttrs[referent] = RevealedAttr{
			SubProofIndex: idx, Raw: raw, Encoded: EncodeValue(raw),
		}

		return nil
	}

	group := RevealedAttrGroup{SubProofIndex: idx, Values: map[string]AttributeValue{}}

	for _, name := range info.Names {
		raw, found := lookupAttr(values, name)
		if !found {
			return vcxerr.New(vcxerr.ValidationFailure, "credential selected for %s has no attribute %s", referent, name)
		}

		group.Values[name] = AttributeValue{Raw: raw, Encoded: EncodeValue(raw)}
	}

	b.pres.RequestedProof.RevealedAttrGroups[referent] = group

	return nil
}

func (b *presentationBuilder) predicate(req *ProofRequest, referent string, info *PredicateInfo,
	selected map[string]SelectedCredential) error {
	sel, ok := selected[referent]
	if !ok {
		return vcxerr.New(vcxerr.ValidationFailure, "no credential selected for predicate %s", referent)
	}

	cred, idx, err := b.subProof(sel.Credential.CredInfo.Referent, req.Interval(info.NonRevoked))
	if err != nil {
		return err
	}

	holds, err := predicateHolds(rawValues(cred), info)
	if err != nil {
		return vcxerr.Wrap(vcxerr.ValidationFailure, err, "predicate %s", referent)
	}

	if !holds {
		return vcxerr.New(vcxerr.ValidationFailure, "credential selected for predicate %s does not satisfy it", referent)
	}

	b.pres.RequestedProof.Predicates[referent] = SubProofReferent{SubProofIndex: idx}

	return nil
}

// subProof returns the sub proof of a stored credential at the registry state for interval, adding
// it on first use.
func (b *presentationBuilder) subProof(credID string, interval *NonRevokedInterval) (*Credential, int, error) {
	if credID == "" {
		return nil, 0, vcxerr.New(vcxerr.ValidationFailure, "selected credential has no referent")
	}

	cred, err := GetCredential(b.ctx, b.wallet, credID)
	if err != nil {
		return nil, 0, err
	}

	var timestamp int64

	if interval != nil && cred.RevRegID != "" {
		delta, err := b.ledger.GetRevRegDelta(b.ctx, cred.RevRegID, interval.To)
		if err != nil {
			return nil, 0, err
		}

		timestamp = delta.Timestamp
	}

	key := fmt.Sprintf("%s@%d", credID, timestamp)

	if idx, ok := b.index[key]; ok {
		return cred, idx, nil
	}

	idx := len(b.pres.Proof.Proofs)
	b.index[key] = idx
	b.pres.Proof.Proofs = append(b.pres.Proof.Proofs, SubProof{Credential: *cred})
	b.pres.Identifiers = append(b.pres.Identifiers, Identifier{
		SchemaID:  cred.SchemaID,
		CredDefID: cred.CredDefID,
		RevRegID:  cred.RevRegID,
		Timestamp: timestamp,
	})

	return cred, idx, nil
}

func rawValues(cred *Credential) map[string]string {
	values := make(map[string]string, len(cred.Values))
	for name, v := range cred.Values {
		values[name] = v.Raw
	}

	return values
}
