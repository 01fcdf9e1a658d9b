/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/btcsuite/btcutil/base58"
	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/hyperledger/aries-framework-go/spi/storage"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/hyperledger/aries-vcx-go/pkg/internal/handle"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

// Namespace is the name of the underlying store.
const Namespace = "vcx_wallet"

const (
	typeTag        = "ty"
	userTagPrefix  = "tg"
	valuePrefix    = "v"
	keySeparator   = "/"
	queryConjoiner = "&&"
)

// wallet error codes reported with collaborator failures.
const (
	codeStorageError      int32 = 210
	codeItemAlreadyExists int32 = 213
	codeQueryError        int32 = 214
)

var logger = log.New("vcx/store/wallet")

// Store is a Wallet backed by an aries storage provider.
type Store struct {
	store    storage.Store
	lock     sync.Mutex
	searches *handle.Registry[*search]
}

type search struct {
	records []Record
	pos     int
}

type storedRecord struct {
	Type  string            `json:"type"`
	ID    string            `json:"id"`
	Value string            `json:"value"`
	Tags  map[string]string `json:"tags,omitempty"`
}

// New opens the wallet store of the given provider.
func New(p storage.Provider) (*Store, error) {
	store, err := p.OpenStore(Namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to open wallet store: %w", err)
	}

	err = p.SetStoreConfig(Namespace, storage.StoreConfiguration{TagNames: []string{typeTag}})
	if err != nil {
		return nil, fmt.Errorf("failed to set wallet store config: %w", err)
	}

	return &Store{store: store, searches: handle.New[*search]("wallet search")}, nil
}

// Put adds a new record.
func (s *Store) Put(_ context.Context, record Record) error {
	if err := validateKey(record.Type, record.ID); err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	_, err := s.store.Get(recordKey(record.Type, record.ID))
	if err == nil {
		return vcxerr.Collaborator(vcxerr.WalletCollaborator, codeItemAlreadyExists,
			fmt.Errorf("record %s/%s already exists", record.Type, record.ID))
	}

	if !errors.Is(err, storage.ErrDataNotFound) {
		return storageError(err, "get record")
	}

	return s.write(storedRecord{Type: record.Type, ID: record.ID, Value: record.Value, Tags: record.Tags})
}

// Get returns a record.
func (s *Store) Get(_ context.Context, typ, id string, opts Options) (Record, error) {
	if err := validateKey(typ, id); err != nil {
		return Record{}, err
	}

	rec, err := s.read(typ, id)
	if err != nil {
		return Record{}, err
	}

	return rec.project(opts), nil
}

// Update replaces the value of a record.
func (s *Store) Update(_ context.Context, typ, id, value string) error {
	return s.modify(typ, id, func(rec *storedRecord) {
		rec.Value = value
	})
}

// Delete removes a record.
func (s *Store) Delete(_ context.Context, typ, id string) error {
	if err := validateKey(typ, id); err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if _, err := s.read(typ, id); err != nil {
		return err
	}

	if err := s.store.Delete(recordKey(typ, id)); err != nil {
		return storageError(err, "delete record")
	}

	return nil
}

// AddTags adds or overwrites tags.
func (s *Store) AddTags(_ context.Context, typ, id string, tags map[string]string) error {
	return s.modify(typ, id, func(rec *storedRecord) {
		if rec.Tags == nil {
			rec.Tags = map[string]string{}
		}

		maps.Copy(rec.Tags, tags)
	})
}

// UpdateTags replaces all tags.
func (s *Store) UpdateTags(_ context.Context, typ, id string, tags map[string]string) error {
	return s.modify(typ, id, func(rec *storedRecord) {
		rec.Tags = maps.Clone(tags)
	})
}

// DeleteTags removes tags by name.
func (s *Store) DeleteTags(_ context.Context, typ, id string, names []string) error {
	return s.modify(typ, id, func(rec *storedRecord) {
		for _, name := range names {
			delete(rec.Tags, name)
		}
	})
}

// Search opens a search. Matches are ordered by record id.
func (s *Store) Search(_ context.Context, typ string, query Query, opts Options) (SearchHandle, error) {
	if typ == "" {
		return 0, vcxerr.New(vcxerr.ValidationFailure, "wallet search requires a record type")
	}

	expression := buildQuery(typ, query)

	iter, err := s.store.Query(expression)
	if err != nil {
		return 0, vcxerr.Collaborator(vcxerr.WalletCollaborator, codeQueryError,
			fmt.Errorf("query %s: %w", typ, err))
	}

	defer storage.Close(iter, logger)

	var records []Record

	for {
		ok, err := iter.Next()
		if err != nil {
			return 0, storageError(err, "iterate search")
		}

		if !ok {
			break
		}

		raw, err := iter.Value()
		if err != nil {
			return 0, storageError(err, "read search result")
		}

		var rec storedRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return 0, storageError(err, "decode search result")
		}

		records = append(records, rec.project(opts))
	}

	slices.SortFunc(records, func(a, b Record) int { return strings.Compare(a.ID, b.ID) })

	h, err := s.searches.Allocate(&search{records: records})
	if err != nil {
		return 0, storageError(err, "open search")
	}

	logger.Debugf("wallet search over %s matched %d records", typ, len(records))

	return h, nil
}

// Next returns up to count records of an open search.
func (s *Store) Next(_ context.Context, h SearchHandle, count int) ([]Record, error) {
	if count <= 0 {
		return nil, vcxerr.New(vcxerr.ValidationFailure, "count must be positive, got %d", count)
	}

	var records []Record

	err := s.searches.Do(h, func(sr *search) error {
		end := sr.pos + count
		if end > len(sr.records) {
			end = len(sr.records)
		}

		records = append(records, sr.records[sr.pos:end]...)
		sr.pos = end

		return nil
	})

	return records, err
}

// CloseSearch releases a search.
func (s *Store) CloseSearch(_ context.Context, h SearchHandle) error {
	return s.searches.Release(h)
}

func (s *Store) modify(typ, id string, fn func(*storedRecord)) error {
	if err := validateKey(typ, id); err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	rec, err := s.read(typ, id)
	if err != nil {
		return err
	}

	fn(&rec)

	return s.write(rec)
}

func (s *Store) read(typ, id string) (storedRecord, error) {
	raw, err := s.store.Get(recordKey(typ, id))
	if errors.Is(err, storage.ErrDataNotFound) {
		return storedRecord{}, vcxerr.New(vcxerr.NotFound, "wallet record %s/%s not found", typ, id)
	}

	if err != nil {
		return storedRecord{}, storageError(err, "get record")
	}

	var rec storedRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return storedRecord{}, storageError(err, "decode record")
	}

	return rec, nil
}

func (s *Store) write(rec storedRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal wallet record: %w", err)
	}

	tags := []storage.Tag{{Name: typeTag, Value: encode(rec.Type)}}

	for _, name := range sortedKeys(rec.Tags) {
		tags = append(tags, storage.Tag{Name: userTagPrefix + base58.Encode([]byte(name)), Value: encode(rec.Tags[name])})
	}

	if err := s.store.Put(recordKey(rec.Type, rec.ID), raw, tags...); err != nil {
		return storageError(err, "put record")
	}

	return nil
}

func (r storedRecord) project(opts Options) Record {
	rec := Record{ID: r.ID}

	if opts.RetrieveType {
		rec.Type = r.Type
	}

	if opts.RetrieveValue {
		rec.Value = r.Value
	}

	if opts.RetrieveTags && len(r.Tags) > 0 {
		rec.Tags = maps.Clone(r.Tags)
	}

	return rec
}

func buildQuery(typ string, query Query) string {
	parts := []string{typeTag + ":" + encode(typ)}

	for _, name := range sortedKeys(query) {
		parts = append(parts, userTagPrefix+base58.Encode([]byte(name))+":"+encode(query[name]))
	}

	return strings.Join(parts, queryConjoiner)
}

// encode makes tag values safe for the storage query syntax and never empty.
func encode(v string) string {
	return valuePrefix + base58.Encode([]byte(v))
}

func recordKey(typ, id string) string {
	return typ + keySeparator + id
}

func sortedKeys(m map[string]string) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)

	return keys
}

func validateKey(typ, id string) error {
	if typ == "" || id == "" {
		return vcxerr.New(vcxerr.ValidationFailure, "wallet record type and id are required")
	}

	return nil
}

func storageError(err error, op string) error {
	logger.Errorf("wallet %s failed: %s", op, err)

	return vcxerr.Collaborator(vcxerr.WalletCollaborator, codeStorageError, fmt.Errorf("%s: %w", op, err))
}
