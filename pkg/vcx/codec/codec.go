/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package codec implements the versioned JSON layout used to persist protocol objects:
//
//	{"version":"1.0","data":{...}}
//
// Each object kind has a current version. Any older minor version of the same major version is
// accepted; fields added after that minor are left at their zero value.
package codec

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

// Kind is a serializable object kind.
type Kind string

// Object kinds.
const (
	Connection    Kind = "connection"
	Issuer        Kind = "issuer_credential"
	Holder        Kind = "credential"
	Verifier      Kind = "proof"
	Prover        Kind = "disclosed_proof"
	Schema        Kind = "schema"
	CredentialDef Kind = "credential_def"
)

// Major is the only supported major version.
const Major = 1

var currentMinor = map[Kind]int{
	Connection:    1,
	Issuer:        0,
	Holder:        0,
	Verifier:      0,
	Prover:        0,
	Schema:        0,
	CredentialDef: 0,
}

// Header describes the version of a serialized object.
type Header struct {
	Major int
	Minor int
}

func (h Header) String() string {
	return fmt.Sprintf("%d.%d", h.Major, h.Minor)
}

// Current returns the header written for kind.
func Current(kind Kind) (Header, error) {
	minor, ok := currentMinor[kind]
	if !ok {
		return Header{}, fmt.Errorf("unknown object kind %q", kind)
	}

	return Header{Major: Major, Minor: minor}, nil
}

type envelope struct {
	Version string      `json:"version"`
	Data    interface{} `json:"data"`
}

// Marshal serializes v at the current version of kind.
func Marshal(kind Kind, v interface{}) ([]byte, error) {
	h, err := Current(kind)
	if err != nil {
		return nil, err
	}

	return MarshalVersion(h, v)
}

// MarshalVersion serializes v with an explicit version header.
func MarshalVersion(h Header, v interface{}) ([]byte, error) {
	b, err := json.Marshal(envelope{Version: h.String(), Data: v})
	if err != nil {
		return nil, fmt.Errorf("marshal %s object: %w", h, err)
	}

	return b, nil
}

// Unmarshal decodes a serialized object of kind into v and returns its header.
func Unmarshal(kind Kind, data []byte, v interface{}) (Header, error) {
	current, err := Current(kind)
	if err != nil {
		return Header{}, err
	}

	if !gjson.ValidBytes(data) {
		return Header{}, vcxerr.New(vcxerr.ValidationFailure, "serialized %s is not valid JSON", kind)
	}

	version := gjson.GetBytes(data, "version")
	if !version.Exists() {
		return Header{}, vcxerr.New(vcxerr.UnsupportedVersion, "serialized %s has no version", kind)
	}

	h, err := parseVersion(version.String())
	if err != nil {
		return Header{}, vcxerr.Wrap(vcxerr.UnsupportedVersion, err, "serialized %s", kind)
	}

	if h.Major != current.Major || h.Minor > current.Minor {
		return Header{}, vcxerr.New(vcxerr.UnsupportedVersion,
			"serialized %s version %s is not supported (current %s)", kind, h, current)
	}

	payload := gjson.GetBytes(data, "data")
	if !payload.IsObject() {
		return Header{}, vcxerr.New(vcxerr.ValidationFailure, "serialized %s has no data object", kind)
	}

	if err := json.Unmarshal([]byte(payload.Raw), v); err != nil {
		return Header{}, vcxerr.Wrap(vcxerr.ValidationFailure, err, "decode %s", kind)
	}

	return h, nil
}

func parseVersion(v string) (Header, error) {
	parts := strings.Split(v, ".")
	if len(parts) != 2 {
		return Header{}, fmt.Errorf("malformed version %q", v)
	}

	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return Header{}, fmt.Errorf("malformed major version %q", v)
	}

	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return Header{}, fmt.Errorf("malformed minor version %q", v)
	}

	if major < 0 || minor < 0 {
		return Header{}, fmt.Errorf("malformed version %q", v)
	}

	return Header{Major: major, Minor: minor}, nil
}
