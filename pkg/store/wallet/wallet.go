/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package wallet provides the wallet collaborator: typed records with searchable tags, and the
// signing keys stored in it.
package wallet

import (
	"context"

	"github.com/hyperledger/aries-vcx-go/pkg/internal/handle"
)

// Record is a wallet record. Values are opaque to the wallet.
type Record struct {
	Type  string            `json:"type,omitempty"`
	ID    string            `json:"id"`
	Value string            `json:"value,omitempty"`
	Tags  map[string]string `json:"tags,omitempty"`
}

// Options selects which parts of a record are returned.
type Options struct {
	RetrieveType  bool `json:"retrieveType"`
	RetrieveValue bool `json:"retrieveValue"`
	RetrieveTags  bool `json:"retrieveTags"`
}

// DefaultOptions returns every part of a record.
func DefaultOptions() Options {
	return Options{RetrieveType: true, RetrieveValue: true, RetrieveTags: true}
}

// SearchHandle references an open search.
type SearchHandle = handle.Handle

// Query is a conjunction of tag equalities.
type Query map[string]string

// Wallet is the wallet collaborator.
type Wallet interface {
	// Put adds a new record. Adding an existing type/id fails.
	Put(ctx context.Context, record Record) error
	// Get returns the record, NotFound if it does not exist.
	Get(ctx context.Context, typ, id string, opts Options) (Record, error)
	// Update replaces the value of a record.
	Update(ctx context.Context, typ, id, value string) error
	// Delete removes a record.
	Delete(ctx context.Context, typ, id string) error
	// AddTags adds or overwrites the given tags.
	AddTags(ctx context.Context, typ, id string, tags map[string]string) error
	// UpdateTags replaces all tags of a record.
	UpdateTags(ctx context.Context, typ, id string, tags map[string]string) error
	// DeleteTags removes the named tags.
	DeleteTags(ctx context.Context, typ, id string, names []string) error
	// Search opens a search over records of typ matching query.
	Search(ctx context.Context, typ string, query Query, opts Options) (SearchHandle, error)
	// Next returns up to count records of an open search. An exhausted search returns no records.
	Next(ctx context.Context, search SearchHandle, count int) ([]Record, error)
	// CloseSearch releases an open search.
	CloseSearch(ctx context.Context, search SearchHandle) error
}

// SearchAll runs a search and returns every matching record.
func SearchAll(ctx context.Context, w Wallet, typ string, query Query, opts Options) ([]Record, error) {
	const batch = 100

	search, err := w.Search(ctx, typ, query, opts)
	if err != nil {
		return nil, err
	}

	defer func() {
		if e := w.CloseSearch(ctx, search); e != nil {
			logger.Warnf("failed to close wallet search: %s", e)
		}
	}()

	var all []Record

	for {
		records, err := w.Next(ctx, search, batch)
		if err != nil {
			return nil, err
		}

		all = append(all, records...)

		if len(records) < batch {
			return all, nil
		}
	}
}
