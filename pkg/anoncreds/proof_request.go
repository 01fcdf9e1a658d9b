/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package anoncreds

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

// PredicateGE is the only supported predicate type.
const PredicateGE = ">="

const proofRequestVersion = "1.0"

// Restriction tags matched against stored credentials.
const (
	TagSchemaID        = "schema_id"
	TagSchemaIssuerDID = "schema_issuer_did"
	TagSchemaName      = "schema_name"
	TagSchemaVersion   = "schema_version"
	TagIssuerDID       = "issuer_did"
	TagCredDefID       = "cred_def_id"
	TagRevRegID        = "rev_reg_id"
)

//nolint:gochecknoglobals
var (
	restrictionTags = []string{
		TagSchemaID, TagSchemaIssuerDID, TagSchemaName, TagSchemaVersion, TagIssuerDID, TagCredDefID,
	}

	attributesSchemaLoader = gojsonschema.NewStringLoader(attributesSchema)
	predicatesSchemaLoader = gojsonschema.NewStringLoader(predicatesSchema)
)

const definitions = `
  "definitions": {
    "restriction": {
      "type": "object",
      "additionalProperties": {"type": "string"}
    },
    "restrictions": {
      "oneOf": [
        {"$ref": "#/definitions/restriction"},
        {"type": "array", "items": {"$ref": "#/definitions/restriction"}}
      ]
    },
    "interval": {
      "type": "object",
      "properties": {
        "from": {"type": "integer", "minimum": 0},
        "to": {"type": "integer", "minimum": 0}
      },
      "additionalProperties": false
    }
  }`

const attributesSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "properties": {
      "name": {"type": "string", "minLength": 1},
      "names": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}},
      "restrictions": {"$ref": "#/definitions/restrictions"},
      "non_revoked": {"$ref": "#/definitions/interval"}
    },
    "oneOf": [
      {"required": ["name"]},
      {"required": ["names"]}
    ]
  },` + definitions + `
}`

const predicatesSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["name", "p_type", "p_value"],
    "properties": {
      "name": {"type": "string", "minLength": 1},
      "p_type": {"type": "string", "enum": [">="]},
      "p_value": {"type": "integer"},
      "restrictions": {"$ref": "#/definitions/restrictions"},
      "non_revoked": {"$ref": "#/definitions/interval"}
    }
  },` + definitions + `
}`

// NonRevokedInterval bounds the time at which credentials must be unrevoked. Zero bounds are unset.
type NonRevokedInterval struct {
	From int64 `json:"from,omitempty"`
	To   int64 `json:"to,omitempty"`
}

func (i *NonRevokedInterval) validate() error {
	if i != nil && i.From != 0 && i.To != 0 && i.From > i.To {
		return vcxerr.New(vcxerr.ValidationFailure, "non-revocation interval from %d is after to %d", i.From, i.To)
	}

	return nil
}

// Restriction is a conjunction of tag equalities a credential must satisfy.
type Restriction map[string]string

// Restrictions is a disjunction of restrictions. It accepts a single object or a list.
type Restrictions []Restriction

// UnmarshalJSON accepts a restriction object or a list of them.
func (r *Restrictions) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)

	if len(trimmed) > 0 && trimmed[0] == '{' {
		single := Restriction{}
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return err
		}

		*r = Restrictions{single}

		return nil
	}

	var list []Restriction
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return err
	}

	*r = list

	return nil
}

func (r Restrictions) validate() error {
	for _, restriction := range r {
		for tag := range restriction {
			if slices.Contains(restrictionTags, tag) {
				continue
			}

			if strings.HasPrefix(tag, "attr::") &&
				(strings.HasSuffix(tag, "::value") || strings.HasSuffix(tag, "::marker")) {
				continue
			}

			return vcxerr.New(vcxerr.ValidationFailure, "unsupported restriction %q", tag)
		}
	}

	return nil
}

// Matches reports whether tags satisfy at least one restriction. No restrictions match anything.
func (r Restrictions) Matches(tags map[string]string) bool {
	if len(r) == 0 {
		return true
	}

	for _, restriction := range r {
		if matchRestriction(restriction, tags) {
			return true
		}
	}

	return false
}

func matchRestriction(restriction Restriction, tags map[string]string) bool {
	for tag, want := range restriction {
		if tags[tag] != want {
			return false
		}
	}

	return true
}

// AttributeInfo is one requested attribute group: a single name or a set of names that must come
// from the same credential.
type AttributeInfo struct {
	Name         string              `json:"name,omitempty"`
	Names        []string            `json:"names,omitempty"`
	Restrictions Restrictions        `json:"restrictions,omitempty"`
	NonRevoked   *NonRevokedInterval `json:"non_revoked,omitempty"`
}

// AttrNames returns the attribute names of the group.
func (a *AttributeInfo) AttrNames() []string {
	if a.Name != "" {
		return []string{a.Name}
	}

	return a.Names
}

// PredicateInfo is a requested predicate.
type PredicateInfo struct {
	Name         string              `json:"name"`
	PType        string              `json:"p_type"`
	PValue       int32               `json:"p_value"`
	Restrictions Restrictions        `json:"restrictions,omitempty"`
	NonRevoked   *NonRevokedInterval `json:"non_revoked,omitempty"`
}

// ProofRequest is the verifier's presentation request.
type ProofRequest struct {
	Name                string                   `json:"name"`
	Version             string                   `json:"version"`
	Nonce               string                   `json:"nonce"`
	RequestedAttributes map[string]AttributeInfo `json:"requested_attributes"`
	RequestedPredicates map[string]PredicateInfo `json:"requested_predicates"`
	NonRevoked          *NonRevokedInterval      `json:"non_revoked,omitempty"`
}

// NewProofRequest builds a proof request from JSON lists of requested attributes and predicates.
// Referents are assigned in list order.
func NewProofRequest(name string, attrsJSON, predsJSON []byte, nonRevoked *NonRevokedInterval) (*ProofRequest, error) {
	var (
		attrs []AttributeInfo
		preds []PredicateInfo
	)

	if err := decodeValidated(attributesSchemaLoader, attrsJSON, "requested attributes", &attrs); err != nil {
		return nil, err
	}

	if err := decodeValidated(predicatesSchemaLoader, predsJSON, "requested predicates", &preds); err != nil {
		return nil, err
	}

	if len(attrs) == 0 && len(preds) == 0 {
		return nil, vcxerr.New(vcxerr.ValidationFailure, "proof request asks for nothing")
	}

	req := &ProofRequest{
		Name:                name,
		Version:             proofRequestVersion,
		Nonce:               NewNonce(),
		RequestedAttributes: make(map[string]AttributeInfo, len(attrs)),
		RequestedPredicates: make(map[string]PredicateInfo, len(preds)),
		NonRevoked:          nonRevoked,
	}

	for i, a := range attrs {
		req.RequestedAttributes[fmt.Sprintf("attribute_%d", i)] = a
	}

	for i, p := range preds {
		req.RequestedPredicates[fmt.Sprintf("predicate_%d", i)] = p
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	return req, nil
}

// Validate checks a proof request received from a verifier.
func (r *ProofRequest) Validate() error {
	if r.Nonce == "" {
		return vcxerr.New(vcxerr.ValidationFailure, "proof request has no nonce")
	}

	if err := r.NonRevoked.validate(); err != nil {
		return err
	}

	for referent, a := range r.RequestedAttributes {
		if (a.Name == "") == (len(a.Names) == 0) {
			return vcxerr.New(vcxerr.ValidationFailure, "attribute %s must have exactly one of name or names", referent)
		}

		if err := a.Restrictions.validate(); err != nil {
			return err
		}

		if err := a.NonRevoked.validate(); err != nil {
			return err
		}
	}

	for referent, p := range r.RequestedPredicates {
		if p.Name == "" {
			return vcxerr.New(vcxerr.ValidationFailure, "predicate %s has no attribute name", referent)
		}

		if p.PType != PredicateGE {
			return vcxerr.New(vcxerr.ValidationFailure, "predicate %s: unsupported type %q", referent, p.PType)
		}

		if err := p.Restrictions.validate(); err != nil {
			return err
		}

		if err := p.NonRevoked.validate(); err != nil {
			return err
		}
	}

	return nil
}

// Interval returns the effective non-revocation interval of a group: its own, else the global one.
func (r *ProofRequest) Interval(local *NonRevokedInterval) *NonRevokedInterval {
	if local != nil {
		return local
	}

	return r.NonRevoked
}

// AttributeReferents returns the attribute referents in sorted order.
func (r *ProofRequest) AttributeReferents() []string {
	keys := maps.Keys(r.RequestedAttributes)
	slices.Sort(keys)

	return keys
}

// PredicateReferents returns the predicate referents in sorted order.
func (r *ProofRequest) PredicateReferents() []string {
	keys := maps.Keys(r.RequestedPredicates)
	slices.Sort(keys)

	return keys
}

func decodeValidated(schema gojsonschema.JSONLoader, data []byte, what string, v interface{}) error {
	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("[]")
	}

	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return vcxerr.Wrap(vcxerr.ValidationFailure, err, "%s are not valid JSON", what)
	}

	if !result.Valid() {
		return vcxerr.New(vcxerr.ValidationFailure, "%s", describeSchemaValidationError(result, what))
	}

	if err := json.Unmarshal(data, v); err != nil {
		return vcxerr.Wrap(vcxerr.ValidationFailure, err, "decode %s", what)
	}

	return nil
}

func describeSchemaValidationError(result *gojsonschema.Result, what string) string {
	msg := what + " are not valid:"
	for _, desc := range result.Errors() {
		msg += fmt.Sprintf(" %s;", desc)
	}

	return msg
}
