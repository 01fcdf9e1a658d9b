/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package creddef

import (
	"context"
	"sync"
	"testing"

	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-vcx-go/pkg/ledger"
	"github.com/hyperledger/aries-vcx-go/pkg/ledger/schema"
	mockledger "github.com/hyperledger/aries-vcx-go/pkg/mock/ledger"
	"github.com/hyperledger/aries-vcx-go/pkg/store/wallet"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

type env struct {
	ctx      context.Context
	ledger   *mockledger.MockLedger
	wallet   *wallet.Store
	client   *ledger.Client
	schemaID string
}

func newEnv(t *testing.T) *env {
	t.Helper()

	e := &env{ctx: context.Background(), ledger: mockledger.New()}

	var err error

	e.wallet, err = wallet.New(mem.NewProvider())
	require.NoError(t, err)

	keys := wallet.NewKeys(e.wallet)

	did, verkey, err := keys.CreateDID(e.ctx)
	require.NoError(t, err)

	e.client = ledger.NewClient(e.ledger, keys, did, verkey)

	s, err := schema.Create(e.ctx, e.client, "schema", "degree_schema", "1.0", []string{"name", "degree"})
	require.NoError(t, err)

	e.schemaID = s.ID

	return e
}

func TestCreate(t *testing.T) {
	e := newEnv(t)

	cd, err := Create(e.ctx, e.client, e.wallet, Options{SourceID: "cd", Name: "degree", SchemaID: e.schemaID})
	require.NoError(t, err)
	require.Equal(t, Published, cd.State)
	require.Regexp(t, "^"+e.client.DID()+":3:CL:[0-9]+:tag1$", cd.ID)
	require.False(t, cd.SupportsRevocation())

	onLedger, err := e.client.GetCredDef(e.ctx, cd.ID)
	require.NoError(t, err)
	require.Equal(t, e.client.Verkey(), onLedger.Value.IssuerVerkey)

	_, err = cd.AllocateIndex(e.ctx, e.wallet)
	require.True(t, vcxerr.Is(err, vcxerr.RevocationNotSupported))

	t.Run("validation", func(t *testing.T) {
		_, err := Create(e.ctx, e.client, e.wallet, Options{SourceID: "cd"})
		require.True(t, vcxerr.Is(err, vcxerr.ValidationFailure))

		_, err = Create(e.ctx, e.client, e.wallet, Options{
			SchemaID: e.schemaID, Tag: "rev", Revocation: RevocationDetails{SupportRevocation: true},
		})
		require.True(t, vcxerr.Is(err, vcxerr.ValidationFailure))

		_, err = Create(e.ctx, e.client, e.wallet, Options{SchemaID: e.client.DID() + ":2:none:1.0"})
		require.True(t, vcxerr.Is(err, vcxerr.NotFound))
	})
}

func TestCreate_Revocable(t *testing.T) {
	e := newEnv(t)

	details, err := ParseRevocationDetails([]byte(`{"support_revocation":true,"max_creds":2,"tails_file":"/tmp/tails"}`))
	require.NoError(t, err)

	cd, err := Create(e.ctx, e.client, e.wallet, Options{SourceID: "cd", SchemaID: e.schemaID, Revocation: details})
	require.NoError(t, err)
	require.Equal(t, ledger.RevRegID(e.client.DID(), cd.ID, "tag1"), cd.RevRegID)

	def, err := e.client.GetRevRegDef(e.ctx, cd.RevRegID)
	require.NoError(t, err)
	require.Equal(t, 2, def.Value.MaxCredNum)

	first, err := cd.AllocateIndex(e.ctx, e.wallet)
	require.NoError(t, err)
	require.Equal(t, 1, first)

	second, err := cd.AllocateIndex(e.ctx, e.wallet)
	require.NoError(t, err)
	require.Equal(t, 2, second)

	_, err = cd.AllocateIndex(e.ctx, e.wallet)
	require.True(t, vcxerr.Is(err, vcxerr.InvalidState))

	_, err = Revoke(e.ctx, e.client, cd.RevRegID, first)
	require.NoError(t, err)

	delta, err := e.client.GetRevRegDelta(e.ctx, cd.RevRegID, 0)
	require.NoError(t, err)

	_, revoked := delta.RevokedAt(first)
	require.True(t, revoked)

	_, err = Revoke(e.ctx, e.client, "", 1)
	require.True(t, vcxerr.Is(err, vcxerr.RevocationNotSupported))

	_, err = Revoke(e.ctx, e.client, cd.RevRegID)
	require.True(t, vcxerr.Is(err, vcxerr.ValidationFailure))
}

func TestAllocateIndex_Concurrent(t *testing.T) {
	e := newEnv(t)

	cd, err := Create(e.ctx, e.client, e.wallet, Options{
		SchemaID: e.schemaID, Revocation: RevocationDetails{SupportRevocation: true, MaxCreds: 50},
	})
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		lock sync.Mutex
		seen = map[int]bool{}
	)

	for i := 0; i < 50; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			idx, err := cd.AllocateIndex(e.ctx, e.wallet)
			require.NoError(t, err)

			lock.Lock()
			seen[idx] = true
			lock.Unlock()
		}()
	}

	wg.Wait()
	require.Len(t, seen, 50)
}

func TestPrepareForEndorser(t *testing.T) {
	e := newEnv(t)
	e.ledger.AutoCommit = false

	w, err := wallet.New(mem.NewProvider())
	require.NoError(t, err)

	endorserKeys := wallet.NewKeys(w)

	endorserDID, endorserVerkey, err := endorserKeys.CreateDID(e.ctx)
	require.NoError(t, err)

	endorser := ledger.NewClient(e.ledger, endorserKeys, endorserDID, endorserVerkey)

	cd, err := PrepareForEndorser(e.ctx, e.client, e.wallet, Options{
		SourceID: "cd", SchemaID: e.schemaID,
		Revocation: RevocationDetails{SupportRevocation: true, MaxCreds: 10},
	}, endorserDID)
	require.NoError(t, err)
	require.Equal(t, Built, cd.State)

	txns := cd.TransactionsForEndorser()
	require.Len(t, txns, 3)
	require.Equal(t, []string{CredDefTxn, RevRegDefTxn, RevRegEntryTxn}, []string{txns[0].Kind, txns[1].Kind, txns[2].Kind})

	for _, txn := range txns {
		_, err := endorser.Endorse(e.ctx, txn.Txn)
		require.NoError(t, err)
	}

	_, err = e.ledger.Commit(txns[0].ReqID)
	require.NoError(t, err)

	state, err := cd.UpdateState(e.ctx, e.client)
	require.NoError(t, err)
	require.Equal(t, Built, state, "partial commit stays built")
	require.Len(t, cd.TransactionsForEndorser(), 2)

	data, err := cd.Serialize()
	require.NoError(t, err)

	restored, err := Deserialize(data)
	require.NoError(t, err)
	require.Len(t, restored.TransactionsForEndorser(), 2)

	require.NoError(t, e.ledger.CommitAll())

	state, err = restored.UpdateState(e.ctx, e.client)
	require.NoError(t, err)
	require.Equal(t, Published, state)

	state, err = restored.UpdateState(e.ctx, e.client)
	require.NoError(t, err)
	require.Equal(t, Published, state)

	for _, txn := range txns {
		require.Equal(t, 1, e.ledger.Submissions(txn.ReqID))
	}

	_, err = (&CredDef{}).UpdateState(e.ctx, e.client)
	require.True(t, vcxerr.Is(err, vcxerr.InvalidState))
}

func TestParseRevocationDetails(t *testing.T) {
	d, err := ParseRevocationDetails(nil)
	require.NoError(t, err)
	require.False(t, d.SupportRevocation)

	_, err = ParseRevocationDetails([]byte(`[`))
	require.True(t, vcxerr.Is(err, vcxerr.ValidationFailure))
}
