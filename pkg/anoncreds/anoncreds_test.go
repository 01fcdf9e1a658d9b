/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package anoncreds

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-vcx-go/pkg/ledger"
	mockledger "github.com/hyperledger/aries-vcx-go/pkg/mock/ledger"
	"github.com/hyperledger/aries-vcx-go/pkg/store/wallet"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

type fixture struct {
	ctx      context.Context
	wallet   *wallet.Store
	keys     *wallet.Keys
	ledger   *mockledger.MockLedger
	client   *ledger.Client
	now      int64
	schema   *ledger.Schema
	credDef  *ledger.CredDef
	revRegID string
}

func newFixture(t *testing.T, revocable bool) *fixture {
	t.Helper()

	f := &fixture{ctx: context.Background(), now: 100}

	var err error

	f.wallet, err = wallet.New(mem.NewProvider())
	require.NoError(t, err)

	f.keys = wallet.NewKeys(f.wallet)

	did, verkey, err := f.keys.CreateDID(f.ctx)
	require.NoError(t, err)

	f.ledger = mockledger.New()
	f.ledger.Now = func() int64 { return f.now }
	f.client = ledger.NewClient(f.ledger, f.keys, did, verkey)

	schema := &ledger.Schema{
		Ver: "1.0", ID: ledger.SchemaID(did, "degree", "1.0"), Name: "degree", Version: "1.0",
		AttrNames: []string{"name", "degree", "age"},
	}
	f.submit(t, func() ([]byte, error) { return ledger.NewSchemaTxn(did, schema) })

	f.schema, err = f.client.GetSchema(f.ctx, schema.ID)
	require.NoError(t, err)

	f.credDef = &ledger.CredDef{
		Ver: "1.0", ID: ledger.CredDefID(did, f.schema.SeqNo, "tag1"), SchemaID: schema.ID, Type: "CL", Tag: "tag1",
		Value: ledger.CredDefValue{IssuerVerkey: verkey, SupportsRevocation: revocable},
	}
	f.submit(t, func() ([]byte, error) { return ledger.NewCredDefTxn(did, f.credDef) })

	if revocable {
		f.revRegID = ledger.RevRegID(did, f.credDef.ID, "tag1")
		f.submit(t, func() ([]byte, error) {
			return ledger.NewRevRegDefTxn(did, &ledger.RevRegDef{
				Ver: "1.0", ID: f.revRegID, Type: "CL_ACCUM", Tag: "tag1", CredDefID: f.credDef.ID,
				Value: ledger.RevRegDefValue{IssuanceType: "ISSUANCE_BY_DEFAULT", MaxCredNum: 10},
			})
		})
	}

	return f
}

func (f *fixture) submit(t *testing.T, build func() ([]byte, error)) {
	t.Helper()

	txn, err := build()
	require.NoError(t, err)

	_, err = f.client.SignAndSubmit(f.ctx, txn)
	require.NoError(t, err)
}

func (f *fixture) issue(t *testing.T, attrs map[string]string, rev *RevocationInfo) (string, *Credential) {
	t.Helper()

	offer := NewOffer(f.credDef)

	req, err := NewRequest(offer, "prover-did")
	require.NoError(t, err)

	cred, err := Issue(f.ctx, f.keys, f.credDef.Value.IssuerVerkey, offer, req, attrs, rev)
	require.NoError(t, err)

	require.NoError(t, VerifyCredential(f.ctx, f.client, cred))

	id, err := StoreCredential(f.ctx, f.wallet, "", cred)
	require.NoError(t, err)

	return id, cred
}

func (f *fixture) selectFirst(t *testing.T, req *ProofRequest) *SelectedCredentials {
	t.Helper()

	retrieved, err := RetrieveCredentials(f.ctx, f.wallet, req)
	require.NoError(t, err)

	selected := &SelectedCredentials{
		Attrs:      map[string]SelectedCredential{},
		Predicates: map[string]SelectedCredential{},
	}

	for ref, list := range retrieved.Attrs {
		if len(list) > 0 {
			selected.Attrs[ref] = SelectedCredential{Credential: list[0]}
		}
	}

	for ref, list := range retrieved.Predicates {
		if len(list) > 0 {
			selected.Predicates[ref] = SelectedCredential{Credential: list[0]}
		}
	}

	return selected
}

func TestEncodeValue(t *testing.T) {
	require.Equal(t, "42", EncodeValue("42"))
	require.Equal(t, "-7", EncodeValue("-7"))
	require.NotEqual(t, "2147483648", EncodeValue("2147483648"))
	require.Equal(t, EncodeValue("alice"), EncodeValue("alice"))
	require.NotEqual(t, EncodeValue("alice"), EncodeValue("bob"))
	require.Regexp(t, "^[0-9]{60,}$", EncodeValue("alice"))
}

func TestParseAttributes(t *testing.T) {
	attrs, err := ParseAttributes([]byte(`{"name":"alice","degree":["maths"]}`))
	require.NoError(t, err)
	require.Equal(t, map[string]string{"name": "alice", "degree": "maths"}, attrs)

	for _, bad := range []string{`[]`, `{}`, `{"a":1}`, `{"a":["x","y"]}`, `{"a":[1]}`} {
		_, err = ParseAttributes([]byte(bad))
		require.True(t, vcxerr.Is(err, vcxerr.ValidationFailure), bad)
	}
}

func TestIssue(t *testing.T) {
	f := newFixture(t, false)

	t.Run("request for another definition", func(t *testing.T) {
		offer := NewOffer(f.credDef)
		req := &CredentialRequest{ProverDID: "p", CredDefID: "other", Nonce: "1"}

		_, err := Issue(f.ctx, f.keys, f.credDef.Value.IssuerVerkey, offer, req, map[string]string{"name": "a"}, nil)
		require.True(t, vcxerr.Is(err, vcxerr.ValidationFailure))
	})

	t.Run("request without prover", func(t *testing.T) {
		_, err := NewRequest(NewOffer(f.credDef), "")
		require.True(t, vcxerr.Is(err, vcxerr.ValidationFailure))
	})

	t.Run("tampered credential", func(t *testing.T) {
		_, cred := f.issue(t, map[string]string{"name": "alice", "degree": "maths", "age": "25"}, nil)

		cred.Values["degree"] = AttributeValue{Raw: "physics", Encoded: EncodeValue("physics")}

		err := VerifyCredential(f.ctx, f.client, cred)
		require.True(t, vcxerr.Is(err, vcxerr.ValidationFailure))
	})

	t.Run("bad encoding", func(t *testing.T) {
		_, cred := f.issue(t, map[string]string{"name": "alice", "degree": "maths", "age": "25"}, nil)

		cred.Values["age"] = AttributeValue{Raw: "25", Encoded: "26"}

		err := VerifyCredential(f.ctx, f.client, cred)
		require.True(t, vcxerr.Is(err, vcxerr.ValidationFailure))
	})
}

func TestNewProofRequest(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		req, err := NewProofRequest("degree proof",
			[]byte(`[{"name":"name","restrictions":{"issuer_did":"abc"}},{"names":["name","degree"]}]`),
			[]byte(`[{"name":"age","p_type":">=","p_value":18}]`),
			&NonRevokedInterval{To: 100})
		require.NoError(t, err)
		require.NotEmpty(t, req.Nonce)
		require.Equal(t, []string{"attribute_0", "attribute_1"}, req.AttributeReferents())
		require.Equal(t, []string{"predicate_0"}, req.PredicateReferents())
		require.Len(t, req.RequestedAttributes["attribute_0"].Restrictions, 1)
		require.Equal(t, &NonRevokedInterval{To: 100}, req.Interval(nil))
		require.Equal(t, &NonRevokedInterval{To: 5}, req.Interval(&NonRevokedInterval{To: 5}))
	})

	for name, tc := range map[string]struct{ attrs, preds string }{
		"name and names":       {attrs: `[{"name":"a","names":["b"]}]`},
		"neither name":         {attrs: `[{"restrictions":[]}]`},
		"not a list":           {attrs: `{"name":"a"}`},
		"unsupported p_type":   {preds: `[{"name":"age","p_type":">","p_value":18}]`},
		"missing p_value":      {preds: `[{"name":"age","p_type":">="}]`},
		"bad restriction":      {attrs: `[{"name":"a","restrictions":{"issuer":"x"}}]`},
		"inverted interval":    {attrs: `[{"name":"a","non_revoked":{"from":10,"to":5}}]`},
		"empty request":        {},
		"malformed json":       {attrs: `[{`},
		"non string restrict.": {attrs: `[{"name":"a","restrictions":{"issuer_did":1}}]`},
	} {
		tc := tc

		t.Run(name, func(t *testing.T) {
			_, err := NewProofRequest("p", []byte(tc.attrs), []byte(tc.preds), nil)
			require.Error(t, err)
			require.True(t, vcxerr.Is(err, vcxerr.ValidationFailure), err.Error())
		})
	}

	t.Run("received request", func(t *testing.T) {
		req := &ProofRequest{Nonce: "1", RequestedPredicates: map[string]PredicateInfo{
			"p": {Name: "age", PType: "<", PValue: 1},
		}}
		require.True(t, vcxerr.Is(req.Validate(), vcxerr.ValidationFailure))

		req = &ProofRequest{}
		require.True(t, vcxerr.Is(req.Validate(), vcxerr.ValidationFailure))
	})
}

func TestRestrictions(t *testing.T) {
	var r Restrictions

	require.NoError(t, json.Unmarshal([]byte(`{"issuer_did":"a"}`), &r))
	require.Equal(t, Restrictions{{"issuer_did": "a"}}, r)

	require.NoError(t, json.Unmarshal([]byte(`[{"issuer_did":"a"},{"cred_def_id":"b"}]`), &r))
	require.Len(t, r, 2)

	require.True(t, r.Matches(map[string]string{"cred_def_id": "b"}))
	require.False(t, r.Matches(map[string]string{"issuer_did": "b"}))
	require.True(t, Restrictions(nil).Matches(nil))
}

func TestPresentation(t *testing.T) {
	f := newFixture(t, false)
	issuer := f.client.DID()

	_, _ = f.issue(t, map[string]string{"name": "alice", "degree": "maths", "age": "25"}, nil)

	req, err := NewProofRequest("degree",
		[]byte(`[
			{"name":"Name","restrictions":[{"issuer_did":"unknown"},{"issuer_did":"`+issuer+`"}]},
			{"names":["name","degree"],"restrictions":{"schema_name":"degree","attr::degree::value":"maths"}},
			{"name":"nickname"}
		]`),
		[]byte(`[{"name":"age","p_type":">=","p_value":18}]`), nil)
	require.NoError(t, err)

	t.Run("retrieve", func(t *testing.T) {
		retrieved, err := RetrieveCredentials(f.ctx, f.wallet, req)
		require.NoError(t, err)
		require.Len(t, retrieved.Attrs["attribute_0"], 1)
		require.Len(t, retrieved.Attrs["attribute_1"], 1)
		require.Empty(t, retrieved.Attrs["attribute_2"])
		require.Len(t, retrieved.Predicates["predicate_0"], 1)
		require.Equal(t, "alice", retrieved.Attrs["attribute_0"][0].CredInfo.Attrs["name"])
	})

	t.Run("restriction excludes credential", func(t *testing.T) {
		other, err := NewProofRequest("other", []byte(`[{"name":"name","restrictions":{"issuer_did":"unknown"}}]`), nil, nil)
		require.NoError(t, err)

		retrieved, err := RetrieveCredentials(f.ctx, f.wallet, other)
		require.NoError(t, err)
		require.Empty(t, retrieved.Attrs["attribute_0"])
	})

	t.Run("unsatisfied predicate is not offered", func(t *testing.T) {
		other, err := NewProofRequest("other", nil, []byte(`[{"name":"age","p_type":">=","p_value":30}]`), nil)
		require.NoError(t, err)

		retrieved, err := RetrieveCredentials(f.ctx, f.wallet, other)
		require.NoError(t, err)
		require.Empty(t, retrieved.Predicates["predicate_0"])
	})

	selected := f.selectFirst(t, req)

	t.Run("missing self-attested value", func(t *testing.T) {
		_, err := CreatePresentation(f.ctx, f.wallet, f.client, req, selected, nil)
		require.True(t, vcxerr.Is(err, vcxerr.ValidationFailure))
	})

	pres, err := CreatePresentation(f.ctx, f.wallet, f.client, req, selected, map[string]string{"attribute_2": "ali"})
	require.NoError(t, err)
	require.Len(t, pres.Proof.Proofs, 1)
	require.Equal(t, "alice", pres.RequestedProof.RevealedAttrs["attribute_0"].Raw)
	require.Equal(t, "maths", pres.RequestedProof.RevealedAttrGroups["attribute_1"].Values["degree"].Raw)
	require.Equal(t, "ali", pres.RevealedValues()["attribute_2"])

	t.Run("valid", func(t *testing.T) {
		result, err := VerifyPresentation(f.ctx, f.client, req, roundTrip(t, pres))
		require.NoError(t, err)
		require.True(t, result.Valid, result.Reason)
	})

	t.Run("tampered value", func(t *testing.T) {
		tampered := roundTrip(t, pres)
		tampered.RequestedProof.RevealedAttrs["attribute_0"] = RevealedAttr{Raw: "bob", Encoded: EncodeValue("bob")}

		result, err := VerifyPresentation(f.ctx, f.client, req, tampered)
		require.NoError(t, err)
		require.False(t, result.Valid)
	})

	t.Run("nonce mismatch", func(t *testing.T) {
		tampered := roundTrip(t, pres)
		tampered.Proof.Nonce = "1"

		result, err := VerifyPresentation(f.ctx, f.client, req, tampered)
		require.NoError(t, err)
		require.False(t, result.Valid)
		require.Contains(t, result.Reason, "nonce")
	})

	t.Run("restricted attribute self-attested", func(t *testing.T) {
		tampered := roundTrip(t, pres)
		delete(tampered.RequestedProof.RevealedAttrs, "attribute_0")
		tampered.RequestedProof.SelfAttestedAttrs["attribute_0"] = "alice"

		result, err := VerifyPresentation(f.ctx, f.client, req, tampered)
		require.NoError(t, err)
		require.False(t, result.Valid)
	})

	t.Run("restriction not met", func(t *testing.T) {
		strict := *req
		strict.RequestedAttributes = map[string]AttributeInfo{
			"attribute_0": {Name: "name", Restrictions: Restrictions{{"schema_version": "2.0"}}},
		}
		strict.RequestedPredicates = nil

		result, err := VerifyPresentation(f.ctx, f.client, &strict, roundTrip(t, pres))
		require.NoError(t, err)
		require.False(t, result.Valid)
	})

	t.Run("ledger failure", func(t *testing.T) {
		f.ledger.QueryErr = &mockledger.Error{Code: 1, Msg: "down"}
		defer func() { f.ledger.QueryErr = nil }()

		_, err := VerifyPresentation(f.ctx, f.client, req, roundTrip(t, pres))
		require.True(t, vcxerr.Is(err, vcxerr.CollaboratorFailure))
	})
}

func TestPresentation_Revocation(t *testing.T) {
	f := newFixture(t, true)

	_, _ = f.issue(t, map[string]string{"name": "alice", "degree": "maths", "age": "25"},
		&RevocationInfo{RevRegID: f.revRegID, Index: 1})

	f.now = 200
	f.submit(t, func() ([]byte, error) {
		return ledger.NewRevRegEntryTxn(f.client.DID(), &ledger.RevRegEntry{RevRegDefID: f.revRegID, Revoked: []int{1}})
	})

	prove := func(t *testing.T, to int64) Verification {
		t.Helper()

		req, err := NewProofRequest("degree",
			[]byte(`[{"name":"degree","restrictions":{"cred_def_id":"`+f.credDef.ID+`"}}]`),
			nil, &NonRevokedInterval{To: to})
		require.NoError(t, err)

		pres, err := CreatePresentation(f.ctx, f.wallet, f.client, req, f.selectFirst(t, req), nil)
		require.NoError(t, err)
		require.NotZero(t, pres.Identifiers[0].Timestamp)

		result, err := VerifyPresentation(f.ctx, f.client, req, pres)
		require.NoError(t, err)

		return result
	}

	t.Run("unrevoked at the end of the interval", func(t *testing.T) {
		require.True(t, prove(t, 150).Valid)
	})

	t.Run("revoked before the end of the interval", func(t *testing.T) {
		result := prove(t, 250)
		require.False(t, result.Valid)
		require.Contains(t, result.Reason, "revoked")
	})
}

func roundTrip(t *testing.T, pres *Presentation) *Presentation {
	t.Helper()

	raw, err := json.Marshal(pres)
	require.NoError(t, err)

	out := &Presentation{}
	require.NoError(t, json.Unmarshal(raw, out))

	if out.RequestedProof.SelfAttestedAttrs == nil {
		out.RequestedProof.SelfAttestedAttrs = map[string]string{}
	}

	if out.RequestedProof.RevealedAttrs == nil {
		out.RequestedProof.RevealedAttrs = map[string]RevealedAttr{}
	}

	return out
}
