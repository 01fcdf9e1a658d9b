/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package connection

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hyperledger/aries-vcx-go/pkg/store/wallet"
)

// Signer signs with wallet keys. *wallet.Keys implements it.
type Signer interface {
	CreateDID(ctx context.Context) (did, verkey string, err error)
	Sign(ctx context.Context, verkey string, data []byte) ([]byte, error)
}

// signPayload signs the 8 byte big endian timestamp followed by the JSON of v.
func signPayload(ctx context.Context, s Signer, verkey string, v interface{}, now time.Time) (*ConnectionSignature, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal signed payload : %w", err)
	}

	timestampBuf := make([]byte, timestampLength)
	binary.BigEndian.PutUint64(timestampBuf, uint64(now.Unix()))

	sigData := append(timestampBuf, payload...) //nolint:gocritic

	signature, err := s.Sign(ctx, verkey, sigData)
	if err != nil {
		return nil, fmt.Errorf("sign with %s: %w", verkey, err)
	}

	return &ConnectionSignature{
		Type:       signatureType,
		SignedData: base64.URLEncoding.EncodeToString(sigData),
		SignVerKey: verkey,
		Signature:  base64.URLEncoding.EncodeToString(signature),
	}, nil
}

// verifyPayload checks sig against verkey and decodes the signed payload into v.
func verifyPayload(sig *ConnectionSignature, verkey string, v interface{}) error {
	if sig == nil {
		return errors.New("missing signature")
	}

	if sig.SignVerKey != verkey {
		return fmt.Errorf("signed by %s, expected %s", sig.SignVerKey, verkey)
	}

	sigData, err := base64.URLEncoding.DecodeString(sig.SignedData)
	if err != nil {
		return fmt.Errorf("decode signature data: %w", err)
	}

	signature, err := base64.URLEncoding.DecodeString(sig.Signature)
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}

	ok, err := wallet.Verify(verkey, sigData, signature)
	if err != nil {
		return fmt.Errorf("verify signature: %w", err)
	}

	if !ok {
		return errors.New("signature does not verify")
	}

	// trimming the timestamp, only the payload bytes are decoded
	if len(sigData) <= timestampLength {
		return errors.New("missing signed payload bytes")
	}

	if err := json.Unmarshal(sigData[timestampLength:], v); err != nil {
		return fmt.Errorf("JSON unmarshalling of signed payload: %w", err)
	}

	return nil
}
