/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

const (
	protocolVersion = 2
	secondsPerDay   = 86400

	jsonReqID         = "reqId"
	jsonIdentifier    = "identifier"
	jsonEndorser      = "endorser"
	jsonSignature     = "signature"
	jsonSignatures    = "signatures"
	jsonTAAAcceptance = "taaAcceptance"
	jsonOpType        = "operation.type"
	jsonOpData        = "operation.data"
)

type transaction struct {
	ReqID           string    `json:"reqId"`
	Identifier      string    `json:"identifier"`
	Operation       operation `json:"operation"`
	ProtocolVersion int       `json:"protocolVersion"`
}

type operation struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// TAAAcceptance records the acceptance of the transaction author agreement.
type TAAAcceptance struct {
	Digest    string `json:"taaDigest"`
	Mechanism string `json:"mechanism"`
	Time      int64  `json:"time"`
}

// NewTAAAcceptance builds the acceptance metadata. The digest is derived from version and text when
// not given. The acceptance time is rounded down to the day.
func NewTAAAcceptance(text, version, digest, mechanism string, acceptedAt int64) (TAAAcceptance, error) {
	if digest == "" {
		if text == "" || version == "" {
			return TAAAcceptance{}, vcxerr.New(vcxerr.ValidationFailure,
				"author agreement text and version, or digest, are required")
		}

		sum := sha256.Sum256([]byte(version + text))
		digest = hex.EncodeToString(sum[:])
	}

	if mechanism == "" {
		return TAAAcceptance{}, vcxerr.New(vcxerr.ValidationFailure, "acceptance mechanism is required")
	}

	return TAAAcceptance{Digest: digest, Mechanism: mechanism, Time: acceptedAt - acceptedAt%secondsPerDay}, nil
}

// NewSchemaTxn returns an unsigned schema transaction.
func NewSchemaTxn(did string, schema *Schema) ([]byte, error) {
	return newTxn(did, SchemaTxnType, schema)
}

// NewCredDefTxn returns an unsigned credential definition transaction.
func NewCredDefTxn(did string, credDef *CredDef) ([]byte, error) {
	return newTxn(did, CredDefTxnType, credDef)
}

// NewRevRegDefTxn returns an unsigned revocation registry definition transaction.
func NewRevRegDefTxn(did string, def *RevRegDef) ([]byte, error) {
	return newTxn(did, RevRegDefTxnType, def)
}

// NewRevRegEntryTxn returns an unsigned revocation registry entry transaction.
func NewRevRegEntryTxn(did string, entry *RevRegEntry) ([]byte, error) {
	return newTxn(did, RevRegEntryTxnType, entry)
}

func newTxn(did, typ string, data interface{}) ([]byte, error) {
	if did == "" {
		return nil, vcxerr.New(vcxerr.ValidationFailure, "submitter DID is required")
	}

	b, err := json.Marshal(transaction{
		ReqID:           uuid.New().String(),
		Identifier:      did,
		Operation:       operation{Type: typ, Data: data},
		ProtocolVersion: protocolVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal %s transaction: %w", typ, err)
	}

	return b, nil
}

// ReqID returns the request id of a transaction.
func ReqID(txn []byte) string {
	return gjson.GetBytes(txn, jsonReqID).String()
}

// Submitter returns the author DID of a transaction.
func Submitter(txn []byte) string {
	return gjson.GetBytes(txn, jsonIdentifier).String()
}

// EndorserOf returns the endorser DID of a transaction, empty if it has none.
func EndorserOf(txn []byte) string {
	return gjson.GetBytes(txn, jsonEndorser).String()
}

// Operation returns the type and the raw data of a transaction's operation.
func Operation(txn []byte) (string, []byte, error) {
	if !gjson.ValidBytes(txn) {
		return "", nil, vcxerr.New(vcxerr.ValidationFailure, "transaction is not valid JSON")
	}

	typ := gjson.GetBytes(txn, jsonOpType)
	data := gjson.GetBytes(txn, jsonOpData)

	if !typ.Exists() || !data.IsObject() {
		return "", nil, vcxerr.New(vcxerr.ValidationFailure, "transaction has no operation")
	}

	return typ.String(), []byte(data.Raw), nil
}

// AppendTAA adds the author agreement acceptance to a transaction.
func AppendTAA(txn []byte, acceptance TAAAcceptance) ([]byte, error) {
	return sjson.SetBytes(txn, jsonTAAAcceptance, acceptance)
}

// AppendEndorser names the endorser of a transaction.
func AppendEndorser(txn []byte, endorser string) ([]byte, error) {
	return sjson.SetBytes(txn, jsonEndorser, endorser)
}

// SigningPayload is the part of a transaction covered by signatures.
func SigningPayload(txn []byte) ([]byte, error) {
	payload, err := sjson.DeleteBytes(txn, jsonSignature)
	if err != nil {
		return nil, err
	}

	return sjson.DeleteBytes(payload, jsonSignatures)
}

// Signatures returns every signature of a transaction keyed by DID.
func Signatures(txn []byte) map[string][]byte {
	sigs := map[string][]byte{}

	if single := gjson.GetBytes(txn, jsonSignature); single.Exists() {
		sigs[Submitter(txn)] = base58.Decode(single.String())
	}

	gjson.GetBytes(txn, jsonSignatures).ForEach(func(did, sig gjson.Result) bool {
		sigs[did.String()] = base58.Decode(sig.String())

		return true
	})

	return sigs
}

func appendSignature(txn []byte, did string, sig []byte, multi bool) ([]byte, error) {
	if !multi {
		return sjson.SetBytes(txn, jsonSignature, base58.Encode(sig))
	}

	return sjson.SetBytes(txn, jsonSignatures+"."+did, base58.Encode(sig))
}
