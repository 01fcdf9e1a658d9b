/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/btcsuite/btcutil/base58"

	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

// KeyRecordType is the wallet record type holding signing keys, addressed by verkey.
const KeyRecordType = "Indy::Key"

// didKeyLength is the number of verkey bytes forming a DID.
const didKeyLength = 16

// Keys manages ed25519 signing keys stored in a wallet.
type Keys struct {
	wallet Wallet
}

// NewKeys returns a key manager over w.
func NewKeys(w Wallet) *Keys {
	return &Keys{wallet: w}
}

// CreateKey creates a key pair, stores the private key and returns the base58 verkey.
func (k *Keys) CreateKey(ctx context.Context) (string, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", fmt.Errorf("generate ed25519 key: %w", err)
	}

	verkey := base58.Encode(pub)

	err = k.wallet.Put(ctx, Record{Type: KeyRecordType, ID: verkey, Value: base58.Encode(priv)})
	if err != nil {
		return "", err
	}

	return verkey, nil
}

// CreateDID creates a key and derives a pairwise DID from it.
func (k *Keys) CreateDID(ctx context.Context) (did, verkey string, err error) {
	verkey, err = k.CreateKey(ctx)
	if err != nil {
		return "", "", err
	}

	did, err = DIDFromVerkey(verkey)

	return did, verkey, err
}

// Sign signs data with the private key of verkey.
func (k *Keys) Sign(ctx context.Context, verkey string, data []byte) ([]byte, error) {
	rec, err := k.wallet.Get(ctx, KeyRecordType, verkey, Options{RetrieveValue: true})
	if err != nil {
		return nil, vcxerr.Wrap(vcxerr.NotFound, err, "signing key %s", verkey)
	}

	priv := base58.Decode(rec.Value)
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("stored key %s is malformed", verkey)
	}

	return ed25519.Sign(priv, data), nil
}

// Verify checks an ed25519 signature against a base58 verkey.
func Verify(verkey string, data, signature []byte) (bool, error) {
	pub := base58.Decode(verkey)
	if len(pub) != ed25519.PublicKeySize {
		return false, vcxerr.New(vcxerr.ValidationFailure, "invalid verkey %q", verkey)
	}

	return ed25519.Verify(pub, data, signature), nil
}

// DIDFromVerkey returns the DID derived from the first bytes of a verkey.
func DIDFromVerkey(verkey string) (string, error) {
	pub := base58.Decode(verkey)
	if len(pub) != ed25519.PublicKeySize {
		return "", vcxerr.New(vcxerr.ValidationFailure, "invalid verkey %q", verkey)
	}

	return base58.Encode(pub[:didKeyLength]), nil
}
