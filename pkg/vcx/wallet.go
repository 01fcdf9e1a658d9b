/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vcx

import (
	"context"

	"github.com/hyperledger/aries-vcx-go/pkg/store/wallet"
)

// AddRecord adds a record to the wallet.
func (e *Engine) AddRecord(ctx context.Context, record wallet.Record) error {
	return e.wallet.Put(ctx, record)
}

// GetRecord reads a wallet record.
func (e *Engine) GetRecord(ctx context.Context, typ, id string, opts wallet.Options) (wallet.Record, error) {
	return e.wallet.Get(ctx, typ, id, opts)
}

// UpdateRecordValue replaces the value of a wallet record.
func (e *Engine) UpdateRecordValue(ctx context.Context, typ, id, value string) error {
	return e.wallet.Update(ctx, typ, id, value)
}

// DeleteRecord removes a wallet record.
func (e *Engine) DeleteRecord(ctx context.Context, typ, id string) error {
	return e.wallet.Delete(ctx, typ, id)
}

// AddRecordTags adds tags to a wallet record.
func (e *Engine) AddRecordTags(ctx context.Context, typ, id string, tags map[string]string) error {
	return e.wallet.AddTags(ctx, typ, id, tags)
}

// UpdateRecordTags replaces the tags of a wallet record.
func (e *Engine) UpdateRecordTags(ctx context.Context, typ, id string, tags map[string]string) error {
	return e.wallet.UpdateTags(ctx, typ, id, tags)
}

// DeleteRecordTags removes tags of a wallet record.
func (e *Engine) DeleteRecordTags(ctx context.Context, typ, id string, names []string) error {
	return e.wallet.DeleteTags(ctx, typ, id, names)
}

// OpenSearch opens a wallet search.
func (e *Engine) OpenSearch(ctx context.Context, typ string, query wallet.Query,
	opts wallet.Options) (wallet.SearchHandle, error) {
	return e.wallet.Search(ctx, typ, query, opts)
}

// SearchNextRecords returns up to count records of an open search.
func (e *Engine) SearchNextRecords(ctx context.Context, search wallet.SearchHandle, count int) ([]wallet.Record, error) {
	return e.wallet.Next(ctx, search, count)
}

// CloseSearch closes a wallet search.
func (e *Engine) CloseSearch(ctx context.Context, search wallet.SearchHandle) error {
	return e.wallet.CloseSearch(ctx, search)
}
