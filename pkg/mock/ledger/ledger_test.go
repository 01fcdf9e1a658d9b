/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/btcsuite/btcutil/base58"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/sjson"

	"github.com/hyperledger/aries-vcx-go/pkg/ledger"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

func signed(t *testing.T, txn []byte, err error) []byte {
	t.Helper()

	require.NoError(t, err)

	out, err := sjson.SetBytes(txn, "signature", base58.Encode([]byte("sig")))
	require.NoError(t, err)

	return out
}

func TestMockLedger_Objects(t *testing.T) {
	ctx := context.Background()
	m := New()
	now := int64(10)
	m.Now = func() int64 { return now }

	schema := &ledger.Schema{ID: ledger.SchemaID("did", "s", "1.0"), Name: "s", Version: "1.0", AttrNames: []string{"a"}}
	txn, err := ledger.NewSchemaTxn("did", schema)
	schemaTxn := signed(t, txn, err)

	receipt, err := m.Submit(ctx, schemaTxn)
	require.NoError(t, err)
	require.Equal(t, int64(1), receipt.SeqNo)
	require.Equal(t, int64(10), receipt.TxnTime)

	raw, err := m.Query(ctx, ledger.Request{Type: ledger.SchemaRequest, ID: schema.ID})
	require.NoError(t, err)

	stored := &ledger.Schema{}
	require.NoError(t, json.Unmarshal(raw, stored))
	require.Equal(t, int64(1), stored.SeqNo)

	t.Run("duplicate request", func(t *testing.T) {
		_, err := m.Submit(ctx, schemaTxn)

		var e *Error
		require.True(t, errors.As(err, &e))
		require.Equal(t, CodeDuplicateRequest, e.ErrorCode())
	})

	t.Run("schema already exists", func(t *testing.T) {
		again, err := ledger.NewSchemaTxn("did", schema)

		_, err = m.Submit(ctx, signed(t, again, err))

		var e *Error
		require.True(t, errors.As(err, &e))
		require.Equal(t, CodeRejected, e.Code)
	})

	t.Run("unsigned", func(t *testing.T) {
		txn, err := ledger.NewSchemaTxn("did", schema)
		require.NoError(t, err)

		_, err = m.Submit(ctx, txn)
		require.Error(t, err)
	})

	t.Run("missing object", func(t *testing.T) {
		_, err := m.Query(ctx, ledger.Request{Type: ledger.CredDefRequest, ID: "x"})
		require.True(t, vcxerr.Is(err, vcxerr.NotFound))

		_, err = m.Query(ctx, ledger.Request{Type: ledger.TxnRequest, ID: "x"})
		require.True(t, vcxerr.Is(err, vcxerr.NotFound))

		_, err = m.Query(ctx, ledger.Request{Type: "other", ID: "x"})
		require.Error(t, err)
	})

	t.Run("revocation delta", func(t *testing.T) {
		def := &ledger.RevRegDef{ID: "rr", CredDefID: "cd"}
		txn, err := ledger.NewRevRegDefTxn("did", def)
		_, err = m.Submit(ctx, signed(t, txn, err))
		require.NoError(t, err)

		now = 20
		txn, err = ledger.NewRevRegEntryTxn("did", &ledger.RevRegEntry{RevRegDefID: "rr", Revoked: []int{2}})
		_, err = m.Submit(ctx, signed(t, txn, err))
		require.NoError(t, err)

		readDelta := func(to int64) *ledger.RevRegDelta {
			raw, err := m.Query(ctx, ledger.Request{Type: ledger.RevRegDeltaRequest, ID: "rr", To: to})
			require.NoError(t, err)

			delta := &ledger.RevRegDelta{}
			require.NoError(t, json.Unmarshal(raw, delta))

			return delta
		}

		early := readDelta(15)
		require.Empty(t, early.Revoked)
		require.Equal(t, int64(10), early.Timestamp)

		late := readDelta(0)
		at, revoked := late.RevokedAt(2)
		require.True(t, revoked)
		require.Equal(t, int64(20), at)
		require.Equal(t, int64(20), late.Timestamp)
	})
}

func TestMockLedger_ManualCommit(t *testing.T) {
	ctx := context.Background()
	m := New()
	m.AutoCommit = false

	txn, err := ledger.NewSchemaTxn("did", &ledger.Schema{ID: "did:2:s:1.0"})
	txn = signed(t, txn, err)
	reqID := ledger.ReqID(txn)

	receipt, err := m.Submit(ctx, txn)
	require.NoError(t, err)
	require.Zero(t, receipt.SeqNo)
	require.Equal(t, []string{reqID}, m.Pending())

	_, err = m.Submit(ctx, txn)
	require.Error(t, err)
	require.Equal(t, 2, m.Submissions(reqID))

	_, err = m.Query(ctx, ledger.Request{Type: ledger.TxnRequest, ID: reqID})
	require.True(t, vcxerr.Is(err, vcxerr.NotFound))

	receipt, err = m.Commit(reqID)
	require.NoError(t, err)
	require.Equal(t, int64(1), receipt.SeqNo)

	_, err = m.Commit(reqID)
	require.Error(t, err)

	_, err = m.Query(ctx, ledger.Request{Type: ledger.TxnRequest, ID: reqID})
	require.NoError(t, err)
}

func TestMockLedger_Errors(t *testing.T) {
	ctx := context.Background()
	m := New()
	m.SubmitErr = errors.New("submit")
	m.QueryErr = errors.New("query")

	_, err := m.Submit(ctx, []byte(`{}`))
	require.EqualError(t, err, "submit")

	_, err = m.Query(ctx, ledger.Request{Type: ledger.SchemaRequest})
	require.EqualError(t, err, "query")

	_, err = m.GetAuthorAgreement(ctx)
	require.True(t, vcxerr.Is(err, vcxerr.NotFound))

	fees, err := m.GetFees(ctx)
	require.NoError(t, err)
	require.Empty(t, fees)
}
