/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package creddef

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hyperledger/aries-vcx-go/pkg/ledger"
	"github.com/hyperledger/aries-vcx-go/pkg/store/wallet"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

// RegistryInfoRecordType is the wallet record type tracking issued revocation indexes.
const RegistryInfoRecordType = "Indy::RevocationRegistryInfo"

type registryInfo struct {
	CurrID int `json:"curr_id"`
	MaxID  int `json:"max_id"`
}

//nolint:gochecknoglobals
var registryLocks sync.Map

func lockRegistry(revRegID string) func() {
	l, _ := registryLocks.LoadOrStore(revRegID, &sync.Mutex{})
	mu := l.(*sync.Mutex) //nolint:forcetypeassert

	mu.Lock()

	return mu.Unlock
}

func putRegistryInfo(ctx context.Context, w wallet.Wallet, revRegID string, max int) error {
	_, err := w.Get(ctx, RegistryInfoRecordType, revRegID, wallet.Options{})
	if err == nil {
		return nil
	}

	if !vcxerr.Is(err, vcxerr.NotFound) {
		return err
	}

	value, err := json.Marshal(registryInfo{MaxID: max})
	if err != nil {
		return err
	}

	return w.Put(ctx, wallet.Record{Type: RegistryInfoRecordType, ID: revRegID, Value: string(value)})
}

// AllocateIndex reserves the next credential index of the definition's revocation registry.
func (cd *CredDef) AllocateIndex(ctx context.Context, w wallet.Wallet) (int, error) {
	if !cd.SupportsRevocation() {
		return 0, vcxerr.New(vcxerr.RevocationNotSupported,
			"credential definition %s does not support revocation", cd.ID)
	}

	unlock := lockRegistry(cd.RevRegID)
	defer unlock()

	rec, err := w.Get(ctx, RegistryInfoRecordType, cd.RevRegID, wallet.Options{RetrieveValue: true})
	if err != nil {
		return 0, err
	}

	var info registryInfo
	if err := json.Unmarshal([]byte(rec.Value), &info); err != nil {
		return 0, fmt.Errorf("decode revocation registry info: %w", err)
	}

	if info.CurrID >= info.MaxID {
		return 0, vcxerr.New(vcxerr.InvalidState, "revocation registry %s is full (%d credentials)", cd.RevRegID, info.MaxID)
	}

	info.CurrID++

	value, err := json.Marshal(info)
	if err != nil {
		return 0, err
	}

	if err := w.Update(ctx, RegistryInfoRecordType, cd.RevRegID, string(value)); err != nil {
		return 0, err
	}

	return info.CurrID, nil
}

// Revoke publishes a registry entry revoking the given credential indexes.
func Revoke(ctx context.Context, c *ledger.Client, revRegID string, indexes ...int) (ledger.Receipt, error) {
	if revRegID == "" {
		return ledger.Receipt{}, vcxerr.New(vcxerr.RevocationNotSupported, "no revocation registry")
	}

	if len(indexes) == 0 {
		return ledger.Receipt{}, vcxerr.New(vcxerr.ValidationFailure, "no credential to revoke")
	}

	txn, err := ledger.NewRevRegEntryTxn(c.DID(), &ledger.RevRegEntry{RevRegDefID: revRegID, Revoked: indexes})
	if err != nil {
		return ledger.Receipt{}, err
	}

	receipt, err := c.SignAndSubmit(ctx, txn)
	if err != nil {
		return ledger.Receipt{}, err
	}

	logger.Infof("revoked %v in %s", indexes, revRegID)

	return receipt, nil
}
