/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package schema

import (
	"context"
	"fmt"
	"testing"

	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-vcx-go/pkg/ledger"
	mockledger "github.com/hyperledger/aries-vcx-go/pkg/mock/ledger"
	"github.com/hyperledger/aries-vcx-go/pkg/store/wallet"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

func newClient(t *testing.T, l ledger.Ledger) *ledger.Client {
	t.Helper()

	w, err := wallet.New(mem.NewProvider())
	require.NoError(t, err)

	keys := wallet.NewKeys(w)

	did, verkey, err := keys.CreateDID(context.Background())
	require.NoError(t, err)

	return ledger.NewClient(l, keys, did, verkey)
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, mockledger.New())

	s, err := Create(ctx, c, "degree_source", "degree_schema", "1.0", []string{"name", "degree"})
	require.NoError(t, err)
	require.Equal(t, Published, s.State)
	require.Equal(t, c.DID()+":2:degree_schema:1.0", s.ID)
	require.NotZero(t, s.SeqNo)
	require.Nil(t, s.TransactionForEndorser())

	read, err := GetAttributes(ctx, c, "reader", s.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"name", "degree"}, read.Attrs)
	require.Equal(t, s.SeqNo, read.SeqNo)

	t.Run("same schema twice", func(t *testing.T) {
		_, err := Create(ctx, c, "again", "degree_schema", "1.0", []string{"name"})
		require.True(t, vcxerr.Is(err, vcxerr.CollaboratorFailure))
	})

	t.Run("unknown schema", func(t *testing.T) {
		_, err := GetAttributes(ctx, c, "reader", "did:2:none:1.0")
		require.True(t, vcxerr.Is(err, vcxerr.NotFound))

		_, err = GetAttributes(ctx, c, "reader", "")
		require.True(t, vcxerr.Is(err, vcxerr.ValidationFailure))
	})
}

func TestCreate_Validation(t *testing.T) {
	ctx := context.Background()
	ml := mockledger.New()
	c := newClient(t, ml)

	tooMany := make([]string, ledger.MaxSchemaAttributes+1)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf("attr%d", i)
	}

	for name, attrs := range map[string][]string{
		"no attributes": nil,
		"too many":      tooMany,
		"empty name":    {"a", ""},
		"duplicate":     {"a", "a"},
	} {
		attrs := attrs

		t.Run(name, func(t *testing.T) {
			_, err := Create(ctx, c, "s", "n", "1.0", attrs)
			require.True(t, vcxerr.Is(err, vcxerr.ValidationFailure))
		})
	}

	_, err := Create(ctx, c, "s", "", "1.0", []string{"a"})
	require.True(t, vcxerr.Is(err, vcxerr.ValidationFailure))

	s, err := Create(ctx, c, "s", "max", "1.0", tooMany[:ledger.MaxSchemaAttributes])
	require.NoError(t, err)
	require.Len(t, s.Attrs, ledger.MaxSchemaAttributes)

	_, err = ParseAttrNames([]byte(`{"a":1}`))
	require.True(t, vcxerr.Is(err, vcxerr.ValidationFailure))

	attrs, err := ParseAttrNames([]byte(`["name","degree"]`))
	require.NoError(t, err)
	require.Equal(t, []string{"name", "degree"}, attrs)
}

func TestPrepareForEndorser(t *testing.T) {
	ctx := context.Background()
	ml := mockledger.New()
	ml.AutoCommit = false

	author := newClient(t, ml)
	endorser := newClient(t, ml)

	s, err := PrepareForEndorser(ctx, author, "degree_source", "degree_schema", "1.0",
		[]string{"name", "degree"}, endorser.DID())
	require.NoError(t, err)
	require.Equal(t, Built, s.State)
	require.NotEmpty(t, s.TransactionForEndorser())

	state, err := s.UpdateState(ctx, author)
	require.NoError(t, err)
	require.Equal(t, Built, state)

	_, err = endorser.Endorse(ctx, s.TransactionForEndorser())
	require.NoError(t, err)

	state, err = s.UpdateState(ctx, author)
	require.NoError(t, err)
	require.Equal(t, Built, state, "submitted but not committed")

	require.NoError(t, ml.CommitAll())

	state, err = s.UpdateState(ctx, author)
	require.NoError(t, err)
	require.Equal(t, Published, state)
	require.NotZero(t, s.SeqNo)
	require.Nil(t, s.TransactionForEndorser())

	state, err = s.UpdateState(ctx, author)
	require.NoError(t, err)
	require.Equal(t, Published, state)
	require.Equal(t, 1, ml.Submissions(s.ReqID))

	t.Run("no pending transaction", func(t *testing.T) {
		_, err := (&Schema{SourceID: "x"}).UpdateState(ctx, author)
		require.True(t, vcxerr.Is(err, vcxerr.InvalidState))
	})

	t.Run("ledger failure", func(t *testing.T) {
		pending, err := PrepareForEndorser(ctx, author, "other", "other_schema", "1.0", []string{"a"}, endorser.DID())
		require.NoError(t, err)

		ml.QueryErr = &mockledger.Error{Code: 1, Msg: "down"}
		defer func() { ml.QueryErr = nil }()

		state, err := pending.UpdateState(ctx, author)
		require.True(t, vcxerr.Is(err, vcxerr.CollaboratorFailure))
		require.Equal(t, Built, state)
	})
}

func TestSerialize(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, mockledger.New())

	s, err := PrepareForEndorser(ctx, c, "degree_source", "degree_schema", "1.0", []string{"name"}, "endorser")
	require.NoError(t, err)

	data, err := s.Serialize()
	require.NoError(t, err)

	restored, err := Deserialize(data)
	require.NoError(t, err)
	require.Equal(t, s.ID, restored.ID)
	require.Equal(t, s.ReqID, restored.ReqID)
	require.JSONEq(t, string(s.Txn), string(restored.Txn))
	require.Equal(t, Built, restored.State)

	again, err := restored.Serialize()
	require.NoError(t, err)
	require.JSONEq(t, string(data), string(again))

	_, err = Deserialize([]byte(`{"version":"2.0","data":{}}`))
	require.True(t, vcxerr.Is(err, vcxerr.UnsupportedVersion))
}
