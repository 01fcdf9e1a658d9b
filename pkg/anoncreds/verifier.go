/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package anoncreds

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

// Verification is the outcome of checking a presentation.
type Verification struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

type rejection struct {
	reason string
}

func (r *rejection) Error() string {
	return r.reason
}

func reject(format string, args ...interface{}) error {
	return &rejection{reason: fmt.Sprintf(format, args...)}
}

type verifier struct {
	ctx   context.Context
	l     LedgerReader
	req   *ProofRequest
	pres  *Presentation
	tags  []map[string]string
	creds []*Credential
}

// VerifyPresentation checks pres against req. A presentation that fails a check yields an invalid
// Verification; the error reports collaborator failures only.
func VerifyPresentation(ctx context.Context, l LedgerReader, req *ProofRequest, pres *Presentation) (Verification, error) {
	v := &verifier{ctx: ctx, l: l, req: req, pres: pres}

	err := v.verify()
	if err == nil {
		return Verification{Valid: true}, nil
	}

	var r *rejection
	if errors.As(err, &r) {
		logger.Infof("presentation rejected: %s", r.reason)

		return Verification{Reason: r.reason}, nil
	}

	return Verification{}, err
}

func (v *verifier) verify() error {
	if v.pres.Proof.Nonce != v.req.Nonce {
		return reject("presentation nonce does not match the request")
	}

	if len(v.pres.Proof.Proofs) != len(v.pres.Identifiers) {
		return reject("presentation has %d sub proofs and %d identifiers",
			len(v.pres.Proof.Proofs), len(v.pres.Identifiers))
	}

	for i := range v.pres.Proof.Proofs {
		if err := v.subProof(i); err != nil {
			return err
		}
	}

	for _, referent := range v.req.AttributeReferents() {
		info := v.req.RequestedAttributes[referent]

		if err := v.attribute(referent, &info); err != nil {
			return err
		}
	}

	for _, referent := range v.req.PredicateReferents() {
		info := v.req.RequestedPredicates[referent]

		if err := v.predicate(referent, &info); err != nil {
			return err
		}
	}

	return nil
}

func (v *verifier) subProof(i int) error {
	cred := &v.pres.Proof.Proofs[i].Credential
	id := v.pres.Identifiers[i]

	if id.SchemaID != cred.SchemaID || id.CredDefID != cred.CredDefID || id.RevRegID != cred.RevRegID {
		return reject("identifier %d does not match its credential", i)
	}

	credDef, err := v.l.GetCredDef(v.ctx, cred.CredDefID)
	if vcxerr.Is(err, vcxerr.NotFound) {
		return reject("credential definition %s is not on the ledger", cred.CredDefID)
	}

	if err != nil {
		return err
	}

	if err := verifyCredential(credDef, cred); err != nil {
		return reject("sub proof %d: %s", i, err)
	}

	tags, err := credentialTags(cred)
	if err != nil {
		return reject("sub proof %d: %s", i, err)
	}

	v.creds = append(v.creds, cred)
	v.tags = append(v.tags, tags)

	return nil
}

func (v *verifier) attribute(referent string, info *AttributeInfo) error {
	proof := &v.pres.RequestedProof

	if revealed, ok := proof.RevealedAttrs[referent]; ok && info.Name != "" {
		cred, err := v.credential(referent, revealed.SubProofIndex)
		if err != nil {
			return err
		}

		if err := checkValue(cred, info.Name, AttributeValue{Raw: revealed.Raw, Encoded: revealed.Encoded}); err != nil {
			return reject("attribute %s: %s", referent, err)
		}

		return v.checkConstraints(referent, revealed.SubProofIndex, info.Restrictions, v.req.Interval(info.NonRevoked))
	}

	if group, ok := proof.RevealedAttrGroups[referent]; ok && len(info.Names) > 0 {
		cred, err := v.credential(referent, group.SubProofIndex)
		if err != nil {
			return err
		}

		for _, name := range info.Names {
			value, found := group.Values[name]
			if !found {
				return reject("attribute group %s does not reveal %s", referent, name)
			}

			if err := checkValue(cred, name, value); err != nil {
				return reject("attribute group %s: %s", referent, err)
			}
		}

		return v.checkConstraints(referent, group.SubProofIndex, info.Restrictions, v.req.Interval(info.NonRevoked))
	}

	if _, ok := proof.SelfAttestedAttrs[referent]; ok {
		if len(info.Restrictions) > 0 || len(info.Names) > 0 {
			return reject("attribute %s is restricted and cannot be self-attested", referent)
		}

		return nil
	}

	return reject("attribute %s is not answered", referent)
}

func (v *verifier) predicate(referent string, info *PredicateInfo) error {
	answer, ok := v.pres.RequestedProof.Predicates[referent]
	if !ok {
		return reject("predicate %s is not answered", referent)
	}

	cred, err := v.credential(referent, answer.SubProofIndex)
	if err != nil {
		return err
	}

	holds, err := predicateHolds(rawValues(cred), info)
	if err != nil {
		return reject("predicate %s: %s", referent, err)
	}

	if !holds {
		return reject("predicate %s is not satisfied", referent)
	}

	return v.checkConstraints(referent, answer.SubProofIndex, info.Restrictions, v.req.Interval(info.NonRevoked))
}

func (v *verifier) credential(referent string, idx int) (*Credential, error) {
	if idx < 0 || idx >= len(v.creds) {
		return nil, reject("%s refers to missing sub proof %d", referent, idx)
	}

	return v.creds[idx], nil
}

func (v *verifier) checkConstraints(referent string, idx int, restrictions Restrictions,
	interval *NonRevokedInterval) error {
	normalized := make(Restrictions, 0, len(restrictions))

	for _, r := range restrictions {
		n := Restriction{}
		for tag, value := range r {
			n[normalizeTag(tag)] = value
		}

		normalized = append(normalized, n)
	}

	if !normalized.Matches(v.tags[idx]) {
		return reject("credential for %s does not satisfy its restrictions", referent)
	}

	return v.checkNonRevoked(referent, idx, interval)
}

func (v *verifier) checkNonRevoked(referent string, idx int, interval *NonRevokedInterval) error {
	if interval == nil {
		return nil
	}

	cred := v.creds[idx]

	index, revocable := cred.RevocationIndex()
	if !revocable {
		return nil
	}

	ts := v.pres.Identifiers[idx].Timestamp
	if ts == 0 {
		return reject("credential for %s has no revocation timestamp", referent)
	}

	if interval.To != 0 && ts > interval.To {
		return reject("revocation timestamp %d for %s is after the requested interval", ts, referent)
	}

	delta, err := v.l.GetRevRegDelta(v.ctx, cred.RevRegID, interval.To)
	if vcxerr.Is(err, vcxerr.NotFound) {
		return reject("revocation registry %s is not on the ledger", cred.RevRegID)
	}

	if err != nil {
		return err
	}

	if at, revoked := delta.RevokedAt(index); revoked {
		return reject("credential for %s was revoked at %d", referent, at)
	}

	return nil
}

func checkValue(cred *Credential, name string, got AttributeValue) error {
	raw, ok := lookupAttr(rawValues(cred), name)
	if !ok {
		return fmt.Errorf("credential has no attribute %s", name)
	}

	if got.Raw != raw || got.Encoded != EncodeValue(raw) {
		return fmt.Errorf("revealed value of %s does not match the signed credential", name)
	}

	return nil
}
