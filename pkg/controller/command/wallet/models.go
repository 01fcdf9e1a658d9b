/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"github.com/hyperledger/aries-vcx-go/pkg/store/wallet"
)

// RecordRequest names a wallet record.
type RecordRequest struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	// Options of a get, every part of the record when absent.
	Options *wallet.Options `json:"options,omitempty"`
}

// UpdateValueRequest replaces a record value.
type UpdateValueRequest struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Value string `json:"value"`
}

// TagsRequest adds or replaces record tags.
type TagsRequest struct {
	Type string            `json:"type"`
	ID   string            `json:"id"`
	Tags map[string]string `json:"tags"`
}

// DeleteTagsRequest removes record tags.
type DeleteTagsRequest struct {
	Type  string   `json:"type"`
	ID    string   `json:"id"`
	Names []string `json:"tag_names"`
}

// OpenSearchRequest opens a search over records of one type.
type OpenSearchRequest struct {
	Type    string          `json:"type"`
	Query   wallet.Query    `json:"query,omitempty"`
	Options *wallet.Options `json:"options,omitempty"`
}

// SearchResponse returns the handle of an open search.
type SearchResponse struct {
	Search wallet.SearchHandle `json:"search_handle"`
}

// NextRecordsRequest fetches the next records of a search.
type NextRecordsRequest struct {
	Search wallet.SearchHandle `json:"search_handle"`
	Count  int                 `json:"count"`
}

// RecordsResponse are fetched records.
type RecordsResponse struct {
	Records []wallet.Record `json:"records"`
}

// CloseSearchRequest closes a search.
type CloseSearchRequest struct {
	Search wallet.SearchHandle `json:"search_handle"`
}
