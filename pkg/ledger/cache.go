/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"context"

	"github.com/bluele/gcache"
)

// DefaultCacheSize is the number of ledger objects kept by a CachedReader.
const DefaultCacheSize = 1000

// CachedReader is a Ledger whose reads of committed schemas, credential definitions and revocation
// registry definitions are served from an LRU cache. Those objects never change once written.
type CachedReader struct {
	Ledger
	cache gcache.Cache
}

// NewCachedReader wraps l with a cache of size entries.
func NewCachedReader(l Ledger, size int) *CachedReader {
	if size <= 0 {
		size = DefaultCacheSize
	}

	return &CachedReader{Ledger: l, cache: gcache.New(size).LRU().Build()}
}

// Query reads through the cache for immutable objects.
func (r *CachedReader) Query(ctx context.Context, req Request) ([]byte, error) {
	if !cacheable(req.Type) {
		return r.Ledger.Query(ctx, req)
	}

	key := string(req.Type) + "/" + req.ID

	if v, err := r.cache.Get(key); err == nil {
		if raw, ok := v.([]byte); ok {
			return raw, nil
		}
	}

	raw, err := r.Ledger.Query(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(key, raw); err != nil {
		logger.Warnf("failed to cache %s: %s", key, err)
	}

	return raw, nil
}

func cacheable(t RequestType) bool {
	switch t { //nolint:exhaustive
	case SchemaRequest, CredDefRequest, RevRegDefRequest:
		return true
	default:
		return false
	}
}
