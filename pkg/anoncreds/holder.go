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
	"strings"

	"github.com/google/uuid"

	"github.com/hyperledger/aries-vcx-go/pkg/ledger"
	"github.com/hyperledger/aries-vcx-go/pkg/store/wallet"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

// CredentialRecordType is the wallet record type of stored credentials.
const CredentialRecordType = "credential"

const markerValue = "1"

// CredentialInfo describes a stored credential.
type CredentialInfo struct {
	Referent  string            `json:"referent"`
	Attrs     map[string]string `json:"attrs"`
	SchemaID  string            `json:"schema_id"`
	CredDefID string            `json:"cred_def_id"`
	RevRegID  string            `json:"rev_reg_id,omitempty"`
	CredRevID string            `json:"cred_rev_id,omitempty"`
}

// RetrievedCredential is a stored credential matching a requested group, with the group's
// non-revocation interval.
type RetrievedCredential struct {
	CredInfo CredentialInfo      `json:"cred_info"`
	Interval *NonRevokedInterval `json:"interval,omitempty"`
}

// RetrievedCredentials lists candidate credentials per referent.
type RetrievedCredentials struct {
	Attrs      map[string][]RetrievedCredential `json:"attrs"`
	Predicates map[string][]RetrievedCredential `json:"predicates"`
}

// SelectedCredential is the caller's choice for one referent.
type SelectedCredential struct {
	Credential RetrievedCredential `json:"credential"`
}

// SelectedCredentials maps referents to the chosen credentials.
type SelectedCredentials struct {
	Attrs      map[string]SelectedCredential `json:"attrs"`
	Predicates map[string]SelectedCredential `json:"predicates,omitempty"`
}

// StoreCredential saves cred in the wallet under id, tagged for proof request searches. An empty id
// gets a fresh one. The id is returned.
func StoreCredential(ctx context.Context, w wallet.Wallet, id string, cred *Credential) (string, error) {
	if id == "" {
		id = uuid.New().String()
	}

	tags, err := credentialTags(cred)
	if err != nil {
		return "", err
	}

	value, err := json.Marshal(cred)
	if err != nil {
		return "", fmt.Errorf("marshal credential: %w", err)
	}

	err = w.Put(ctx, wallet.Record{Type: CredentialRecordType, ID: id, Value: string(value), Tags: tags})
	if err != nil {
		return "", err
	}

	logger.Debugf("stored credential %s of %s", id, cred.CredDefID)

	return id, nil
}

// GetCredential reads a stored credential.
func GetCredential(ctx context.Context, w wallet.Wallet, id string) (*Credential, error) {
	rec, err := w.Get(ctx, CredentialRecordType, id, wallet.Options{RetrieveValue: true})
	if err != nil {
		return nil, err
	}

	cred := &Credential{}
	if err := json.Unmarshal([]byte(rec.Value), cred); err != nil {
		return nil, fmt.Errorf("decode stored credential %s: %w", id, err)
	}

	return cred, nil
}

// DeleteCredential removes a stored credential.
func DeleteCredential(ctx context.Context, w wallet.Wallet, id string) error {
	return w.Delete(ctx, CredentialRecordType, id)
}

// RetrieveCredentials searches the wallet for the credentials able to answer each referent of req.
func RetrieveCredentials(ctx context.Context, w wallet.Wallet, req *ProofRequest) (*RetrievedCredentials, error) {
	result := &RetrievedCredentials{
		Attrs:      map[string][]RetrievedCredential{},
		Predicates: map[string][]RetrievedCredential{},
	}

	for _, referent := range req.AttributeReferents() {
		info := req.RequestedAttributes[referent]

		matches, err := search(ctx, w, info.AttrNames(), info.Restrictions, req.Interval(info.NonRevoked), nil)
		if err != nil {
			return nil, err
		}

		result.Attrs[referent] = matches
	}

	for _, referent := range req.PredicateReferents() {
		info := req.RequestedPredicates[referent]

		satisfied := func(cred *CredentialInfo) bool {
			ok, _ := predicateHolds(cred.Attrs, &info)
			return ok
		}

		matches, err := search(ctx, w, []string{info.Name}, info.Restrictions, req.Interval(info.NonRevoked), satisfied)
		if err != nil {
			return nil, err
		}

		result.Predicates[referent] = matches
	}

	return result, nil
}

// search runs one conjunctive wallet query per restriction and unions the results.
func search(ctx context.Context, w wallet.Wallet, names []string, restrictions Restrictions,
	interval *NonRevokedInterval, keep func(*CredentialInfo) bool) ([]RetrievedCredential, error) {
	queries := make([]wallet.Query, 0, len(restrictions)+1)

	for _, r := range restrictions {
		queries = append(queries, restrictionQuery(names, r))
	}

	if len(queries) == 0 {
		queries = append(queries, restrictionQuery(names, nil))
	}

	seen := map[string]bool{}
	matches := []RetrievedCredential{}

	for _, q := range queries {
		records, err := wallet.SearchAll(ctx, w, CredentialRecordType, q, wallet.Options{RetrieveValue: true})
		if err != nil {
			return nil, err
		}

		for _, rec := range records {
			if seen[rec.ID] {
				continue
			}

			seen[rec.ID] = true

			info, err := credentialInfo(rec)
			if err != nil {
				return nil, err
			}

			if keep != nil && !keep(info) {
				continue
			}

			matches = append(matches, RetrievedCredential{CredInfo: *info, Interval: interval})
		}
	}

	return matches, nil
}

func restrictionQuery(names []string, r Restriction) wallet.Query {
	q := wallet.Query{}

	for tag, value := range r {
		q[normalizeTag(tag)] = value
	}

	for _, name := range names {
		q[attrMarkerTag(name)] = markerValue
	}

	return q
}

// normalizeTag folds the attribute name inside attr::<name>::value and attr::<name>::marker tags.
func normalizeTag(tag string) string {
	parts := strings.Split(tag, "::")
	if len(parts) == 3 && parts[0] == "attr" {
		return "attr::" + NormalizeAttrName(parts[1]) + "::" + parts[2]
	}

	return tag
}

func credentialInfo(rec wallet.Record) (*CredentialInfo, error) {
	cred := &Credential{}
	if err := json.Unmarshal([]byte(rec.Value), cred); err != nil {
		return nil, fmt.Errorf("decode stored credential %s: %w", rec.ID, err)
	}

	return &CredentialInfo{
		Referent:  rec.ID,
		Attrs:     rawValues(cred),
		SchemaID:  cred.SchemaID,
		CredDefID: cred.CredDefID,
		RevRegID:  cred.RevRegID,
		CredRevID: cred.CredRevID,
	}, nil
}

// credentialTags returns the searchable tags of a credential. Restrictions are evaluated against
// the same tags on the verifier side.
func credentialTags(cred *Credential) (map[string]string, error) {
	schemaIssuer, schemaName, schemaVersion, err := ledger.ParseSchemaID(cred.SchemaID)
	if err != nil {
		return nil, vcxerr.Wrap(vcxerr.ValidationFailure, err, "credential schema")
	}

	issuer, _, _, err := ledger.ParseCredDefID(cred.CredDefID)
	if err != nil {
		return nil, vcxerr.Wrap(vcxerr.ValidationFailure, err, "credential definition")
	}

	tags := map[string]string{
		TagSchemaID:        cred.SchemaID,
		TagSchemaIssuerDID: schemaIssuer,
		TagSchemaName:      schemaName,
		TagSchemaVersion:   schemaVersion,
		TagIssuerDID:       issuer,
		TagCredDefID:       cred.CredDefID,
	}

	if cred.RevRegID != "" {
		tags[TagRevRegID] = cred.RevRegID
	}

	for name, v := range cred.Values {
		tags[attrMarkerTag(name)] = markerValue
		tags[attrValueTag(name)] = v.Raw
	}

	return tags, nil
}

// lookupAttr finds an attribute by normalized name.
func lookupAttr(values map[string]string, name string) (string, bool) {
	if v, ok := values[name]; ok {
		return v, true
	}

	want := NormalizeAttrName(name)

	for n, v := range values {
		if NormalizeAttrName(n) == want {
			return v, true
		}
	}

	return "", false
}

func predicateHolds(values map[string]string, p *PredicateInfo) (bool, error) {
	raw, ok := lookupAttr(values, p.Name)
	if !ok {
		return false, fmt.Errorf("credential has no attribute %s", p.Name)
	}

	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return false, fmt.Errorf("attribute %s is not an integer", p.Name)
	}

	if p.PType != PredicateGE {
		return false, fmt.Errorf("unsupported predicate type %q", p.PType)
	}

	return int32(n) >= p.PValue, nil
}
