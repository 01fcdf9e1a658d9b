/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"fmt"
	"strconv"
	"strings"
)

// Indy transaction types.
const (
	SchemaTxnType      = "101"
	CredDefTxnType     = "102"
	RevRegDefTxnType   = "113"
	RevRegEntryTxnType = "114"
)

const (
	objectVersion   = "1.0"
	signatureType   = "CL"
	accumulatorType = "CL_ACCUM"
	// MaxSchemaAttributes is the maximum number of attributes of a schema.
	MaxSchemaAttributes = 125
)

// Schema is a ledger schema.
type Schema struct {
	Ver       string   `json:"ver"`
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	AttrNames []string `json:"attrNames"`
	SeqNo     int64    `json:"seqNo,omitempty"`
}

// CredDefValue is the public part of a credential definition.
type CredDefValue struct {
	// IssuerVerkey verifies the credentials issued under the definition.
	IssuerVerkey       string `json:"issuer_verkey"`
	SupportsRevocation bool   `json:"supports_revocation,omitempty"`
}

// CredDef is a ledger credential definition.
type CredDef struct {
	Ver      string       `json:"ver"`
	ID       string       `json:"id"`
	SchemaID string       `json:"schemaId"`
	Type     string       `json:"type"`
	Tag      string       `json:"tag"`
	Value    CredDefValue `json:"value"`
}

// RevRegDefValue holds the revocation registry parameters.
type RevRegDefValue struct {
	IssuanceType  string `json:"issuanceType"`
	MaxCredNum    int    `json:"maxCredNum"`
	TailsHash     string `json:"tailsHash,omitempty"`
	TailsLocation string `json:"tailsLocation,omitempty"`
}

// RevRegDef is a ledger revocation registry definition.
type RevRegDef struct {
	Ver       string         `json:"ver"`
	ID        string         `json:"id"`
	Type      string         `json:"revocDefType"`
	Tag       string         `json:"tag"`
	CredDefID string         `json:"credDefId"`
	Value     RevRegDefValue `json:"value"`
}

// RevRegEntry is the payload of a revocation registry entry transaction.
type RevRegEntry struct {
	RevRegDefID string `json:"revocRegDefId"`
	Revoked     []int  `json:"revoked,omitempty"`
}

// RevRegDelta is the state of a revocation registry as of Timestamp: the credential indexes revoked
// so far, mapped to the time of their revocation.
type RevRegDelta struct {
	RevRegDefID string        `json:"revocRegDefId"`
	Revoked     map[int]int64 `json:"revoked"`
	Timestamp   int64         `json:"timestamp"`
}

// RevokedAt returns when index was revoked, and whether it was.
func (d *RevRegDelta) RevokedAt(index int) (int64, bool) {
	ts, ok := d.Revoked[index]

	return ts, ok
}

// SchemaID returns the id of a schema.
func SchemaID(did, name, version string) string {
	return fmt.Sprintf("%s:2:%s:%s", did, name, version)
}

// CredDefID returns the id of a credential definition.
func CredDefID(did string, schemaSeqNo int64, tag string) string {
	return fmt.Sprintf("%s:3:%s:%d:%s", did, signatureType, schemaSeqNo, tag)
}

// RevRegID returns the id of a revocation registry.
func RevRegID(did, credDefID, tag string) string {
	return fmt.Sprintf("%s:4:%s:%s:%s", did, credDefID, accumulatorType, tag)
}

// ParseSchemaID splits a schema id into its issuer DID, name and version.
func ParseSchemaID(id string) (did, name, version string, err error) {
	parts := strings.Split(id, ":")
	if len(parts) != 4 || parts[1] != "2" {
		return "", "", "", fmt.Errorf("invalid schema id %q", id)
	}

	return parts[0], parts[2], parts[3], nil
}

// ParseCredDefID splits a credential definition id into its issuer DID, schema sequence number and tag.
func ParseCredDefID(id string) (did string, schemaSeqNo int64, tag string, err error) {
	parts := strings.Split(id, ":")
	if len(parts) != 5 || parts[1] != "3" {
		return "", 0, "", fmt.Errorf("invalid cred def id %q", id)
	}

	seq, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return "", 0, "", fmt.Errorf("invalid cred def id %q: %w", id, err)
	}

	return parts[0], seq, parts[4], nil
}
