/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package schema manages the lifecycle of ledger schemas: direct publishing, and the two-phase
// path where an endorser submits a transaction prepared by the author.
package schema

import (
	"context"
	"encoding/json"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-vcx-go/pkg/ledger"
	"github.com/hyperledger/aries-vcx-go/pkg/vcx/codec"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

var logger = log.New("vcx/ledger/schema")

// State is the publish state of a schema.
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

// Schema is a schema record.
type Schema struct {
	SourceID string   `json:"source_id"`
	ID       string   `json:"schema_id"`
	Name     string   `json:"name"`
	Version  string   `json:"version"`
	Attrs    []string `json:"data"`
	SeqNo    int64    `json:"sequence_num,omitempty"`
	State    State    `json:"state"`
	// ReqID is the request id of the transaction prepared for an endorser.
	ReqID string `json:"req_id,omitempty"`
	// Txn is the transaction prepared for an endorser.
	Txn json.RawMessage `json:"txn,omitempty"`
}

// ParseAttrNames reads a JSON list of attribute names.
func ParseAttrNames(data []byte) ([]string, error) {
	var attrs []string
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, vcxerr.Wrap(vcxerr.ValidationFailure, err, "schema attributes must be a JSON list of names")
	}

	return attrs, nil
}

// Create writes a schema to the ledger and returns it published.
func Create(ctx context.Context, c *ledger.Client, sourceID, name, version string, attrs []string) (*Schema, error) {
	s, txn, err := build(c.DID(), sourceID, name, version, attrs)
	if err != nil {
		return nil, err
	}

	receipt, err := c.SignAndSubmit(ctx, txn)
	if err != nil {
		return nil, err
	}

	s.SeqNo = receipt.SeqNo
	s.State = Published

	logger.Infof("schema %s published with seqNo %d", s.ID, s.SeqNo)

	return s, nil
}

// PrepareForEndorser builds a schema transaction for endorser to submit. The schema stays Built until
// UpdateState observes it on the ledger.
func PrepareForEndorser(ctx context.Context, c *ledger.Client, sourceID, name, version string, attrs []string,
	endorser string) (*Schema, error) {
	s, txn, err := build(c.DID(), sourceID, name, version, attrs)
	if err != nil {
		return nil, err
	}

	prepared, err := c.PrepareForEndorser(ctx, txn, endorser)
	if err != nil {
		return nil, err
	}

	s.ReqID = ledger.ReqID(prepared)
	s.Txn = prepared

	logger.Debugf("schema %s prepared for endorser %s", s.ID, endorser)

	return s, nil
}

// GetAttributes reads a published schema from the ledger.
func GetAttributes(ctx context.Context, c *ledger.Client, sourceID, schemaID string) (*Schema, error) {
	if schemaID == "" {
		return nil, vcxerr.New(vcxerr.ValidationFailure, "schema id is required")
	}

	onLedger, err := c.GetSchema(ctx, schemaID)
	if err != nil {
		return nil, err
	}

	return &Schema{
		SourceID: sourceID,
		ID:       onLedger.ID,
		Name:     onLedger.Name,
		Version:  onLedger.Version,
		Attrs:    onLedger.AttrNames,
		SeqNo:    onLedger.SeqNo,
		State:    Published,
	}, nil
}

// UpdateState checks whether the prepared transaction was committed. Published schemas are left
// unchanged.
func (s *Schema) UpdateState(ctx context.Context, c *ledger.Client) (State, error) {
	if s.State == Published {
		return s.State, nil
	}

	if s.ReqID == "" {
		return s.State, vcxerr.New(vcxerr.InvalidState, "schema %s has no pending transaction", s.SourceID)
	}

	committed, err := c.IsCommitted(ctx, s.ReqID)
	if err != nil || !committed {
		return s.State, err
	}

	onLedger, err := c.GetSchema(ctx, s.ID)
	if err != nil {
		return s.State, err
	}

	s.SeqNo = onLedger.SeqNo
	s.State = Published
	s.Txn = nil

	logger.Debugf("schema %s: built -> published", s.ID)

	return s.State, nil
}

// TransactionForEndorser returns the prepared transaction, nil once published.
func (s *Schema) TransactionForEndorser() []byte {
	return s.Txn
}

// Serialize returns the versioned JSON of the schema.
func (s *Schema) Serialize() ([]byte, error) {
	return codec.Marshal(codec.Schema, s)
}

// Deserialize restores a schema.
func Deserialize(data []byte) (*Schema, error) {
	s := &Schema{}
	if _, err := codec.Unmarshal(codec.Schema, data, s); err != nil {
		return nil, err
	}

	return s, nil
}

func build(did, sourceID, name, version string, attrs []string) (*Schema, []byte, error) {
	if err := validate(name, version, attrs); err != nil {
		return nil, nil, err
	}

	s := &Schema{
		SourceID: sourceID,
		ID:       ledger.SchemaID(did, name, version),
		Name:     name,
		Version:  version,
		Attrs:    append([]string(nil), attrs...),
		State:    Built,
	}

	txn, err := ledger.NewSchemaTxn(did, &ledger.Schema{
		Ver: "1.0", ID: s.ID, Name: name, Version: version, AttrNames: s.Attrs,
	})
	if err != nil {
		return nil, nil, err
	}

	return s, txn, nil
}

func validate(name, version string, attrs []string) error {
	if name == "" || version == "" {
		return vcxerr.New(vcxerr.ValidationFailure, "schema name and version are required")
	}

	if len(attrs) == 0 {
		return vcxerr.New(vcxerr.ValidationFailure, "schema has no attributes")
	}

	if len(attrs) > ledger.MaxSchemaAttributes {
		return vcxerr.New(vcxerr.ValidationFailure,
			"schema has %d attributes, at most %d are allowed", len(attrs), ledger.MaxSchemaAttributes)
	}

	seen := make(map[string]bool, len(attrs))

	for _, a := range attrs {
		if a == "" {
			return vcxerr.New(vcxerr.ValidationFailure, "schema attribute names must not be empty")
		}

		if seen[a] {
			return vcxerr.New(vcxerr.ValidationFailure, "duplicate schema attribute %s", a)
		}

		seen[a] = true
	}

	return nil
}
