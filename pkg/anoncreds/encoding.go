/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package anoncreds implements the Indy-shaped credential format: offers, requests, credentials,
// proof requests and presentations, and the issuer, holder and verifier steps over them.
package anoncreds

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

// EncodeValue returns the encoded form of a raw attribute value: 32-bit integers encode as
// themselves, anything else as the decimal value of its sha256 digest.
func EncodeValue(raw string) string {
	if _, err := strconv.ParseInt(raw, 10, 32); err == nil {
		return raw
	}

	sum := sha256.Sum256([]byte(raw))

	return new(big.Int).SetBytes(sum[:]).String()
}

// EncodeValues encodes every raw value of a credential.
func EncodeValues(raw map[string]string) map[string]AttributeValue {
	values := make(map[string]AttributeValue, len(raw))

	for name, v := range raw {
		values[name] = AttributeValue{Raw: v, Encoded: EncodeValue(v)}
	}

	return values
}

// ParseAttributes reads credential attributes given either as {"name":"value"} or in the legacy
// {"name":["value"]} form.
func ParseAttributes(data []byte) (map[string]string, error) {
	var generic map[string]interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, vcxerr.Wrap(vcxerr.ValidationFailure, err, "credential attributes are not a JSON object")
	}

	if len(generic) == 0 {
		return nil, vcxerr.New(vcxerr.ValidationFailure, "credential attributes are empty")
	}

	attrs := make(map[string]string, len(generic))

	for name, v := range generic {
		switch value := v.(type) {
		case string:
			attrs[name] = value
		case []interface{}:
			if len(value) != 1 {
				return nil, vcxerr.New(vcxerr.ValidationFailure, "attribute %s must have exactly one value", name)
			}

			s, ok := value[0].(string)
			if !ok {
				return nil, vcxerr.New(vcxerr.ValidationFailure, "attribute %s value is not a string", name)
			}

			attrs[name] = s
		default:
			return nil, vcxerr.New(vcxerr.ValidationFailure, "attribute %s value is not a string", name)
		}
	}

	return attrs, nil
}

// NormalizeAttrName folds an attribute name the way credential markers are stored: lower case without
// spaces.
func NormalizeAttrName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", ""))
}

// NewNonce returns a decimal nonce.
func NewNonce() string {
	id := uuid.New()

	return new(big.Int).SetBytes(id[:]).String()
}

func attrMarkerTag(name string) string {
	return fmt.Sprintf("attr::%s::marker", NormalizeAttrName(name))
}

func attrValueTag(name string) string {
	return fmt.Sprintf("attr::%s::value", NormalizeAttrName(name))
}
