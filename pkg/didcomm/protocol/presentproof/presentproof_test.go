/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presentproof

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-vcx-go/pkg/anoncreds"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/connection"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/issuecredential"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/transport"
	mockexchange "github.com/hyperledger/aries-vcx-go/pkg/internal/gomocks/didcomm/protocol/exchange"
	"github.com/hyperledger/aries-vcx-go/pkg/ledger"
	"github.com/hyperledger/aries-vcx-go/pkg/ledger/creddef"
	"github.com/hyperledger/aries-vcx-go/pkg/ledger/schema"
	mockledger "github.com/hyperledger/aries-vcx-go/pkg/mock/ledger"
	mocktransport "github.com/hyperledger/aries-vcx-go/pkg/mock/transport"
	"github.com/hyperledger/aries-vcx-go/pkg/store/wallet"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

const degreeRequest = `[{"name":"degree","restrictions":{"schema_name":"degree_schema"}}]`

type agent struct {
	label  string
	agency *mocktransport.Agency
	wallet *wallet.Store
	keys   *wallet.Keys
	client *ledger.Client
	events *service.Message
}

func newAgent(t *testing.T, agency *mocktransport.Agency, l *mockledger.MockLedger, label string) *agent {
	t.Helper()

	w, err := wallet.New(mem.NewProvider())
	require.NoError(t, err)

	keys := wallet.NewKeys(w)

	did, verkey, err := keys.CreateDID(context.Background())
	require.NoError(t, err)

	return &agent{
		label:  label,
		agency: agency,
		wallet: w,
		keys:   keys,
		client: ledger.NewClient(l, keys, did, verkey),
	}
}

func (a *agent) Transport() transport.Transport { return a.agency }
func (a *agent) Signer() connection.Signer      { return a.keys }
func (a *agent) ServiceEndpoint() string        { return "http://agency.example/" + a.label }
func (a *agent) Label() string                  { return a.label }
func (a *agent) Events() *service.Message       { return a.events }
func (a *agent) Wallet() wallet.Wallet          { return a.wallet }
func (a *agent) Ledger() *ledger.Client         { return a.client }

type env struct {
	ctx       context.Context
	now       int64
	agency    *mocktransport.Agency
	ledger    *mockledger.MockLedger
	faber     *agent
	alice     *agent
	faberConn *connection.Connection
	aliceConn *connection.Connection
	credDef   *creddef.CredDef
	issuer    *issuecredential.Issuer
}

// newEnv connects faber and alice and has faber issue alice a revocable degree credential at time 100.
func newEnv(t *testing.T) *env {
	t.Helper()

	e := &env{ctx: context.Background(), now: 100, agency: mocktransport.NewAgency(), ledger: mockledger.New()}
	e.ledger.Now = func() int64 { return e.now }
	e.faber = newAgent(t, e.agency, e.ledger, "faber")
	e.alice = newAgent(t, e.agency, e.ledger, "alice")

	var err error

	e.faberConn, err = connection.Create(e.ctx, e.faber, "faber_conn")
	require.NoError(t, err)
	require.NoError(t, e.faberConn.Connect(e.ctx))

	inv, err := e.faberConn.InviteDetails()
	require.NoError(t, err)

	inviteJS, err := json.Marshal(inv)
	require.NoError(t, err)

	e.aliceConn, err = connection.CreateWithInvite(e.ctx, e.alice, "alice_conn", inviteJS)
	require.NoError(t, err)
	require.NoError(t, e.aliceConn.Connect(e.ctx))

	for _, c := range []*connection.Connection{e.faberConn, e.aliceConn, e.faberConn} {
		_, err = c.UpdateState(e.ctx)
		require.NoError(t, err)
	}

	s, err := schema.Create(e.ctx, e.faber.client, "schema", "degree_schema", "1.0", []string{"name", "degree"})
	require.NoError(t, err)

	e.credDef, err = creddef.Create(e.ctx, e.faber.client, e.faber.wallet, creddef.Options{
		SourceID: "cd", Name: "degree", SchemaID: s.ID,
		Revocation: creddef.RevocationDetails{SupportRevocation: true, MaxCreds: 5},
	})
	require.NoError(t, err)

	e.issuer, err = issuecredential.NewIssuer(e.faber, "degree", e.credDef,
		[]byte(`{"name":"alice","degree":"maths"}`), "degree", "")
	require.NoError(t, err)
	require.NoError(t, e.issuer.SendOffer(e.ctx, e.faberConn))

	offers, err := issuecredential.GetOffers(e.ctx, e.aliceConn)
	require.NoError(t, err)
	require.Len(t, offers, 1)

	holder, err := issuecredential.NewHolderFromOffer(e.alice, "degree", offers[0])
	require.NoError(t, err)
	require.NoError(t, holder.SendRequest(e.ctx, e.aliceConn))

	_, err = e.issuer.UpdateState(e.ctx, e.faberConn)
	require.NoError(t, err)
	require.NoError(t, e.issuer.SendCredential(e.ctx, e.faberConn))

	state, err := holder.UpdateState(e.ctx, e.aliceConn)
	require.NoError(t, err)
	require.Equal(t, issuecredential.StateAccepted, state)

	return e
}

// request sends a presentation request from faber and builds the prover from what alice receives.
func (e *env) request(t *testing.T, interval string) (*Verifier, *Prover) {
	t.Helper()

	verifier, err := NewVerifier(e.faber, "proof", []byte(degreeRequest), nil, []byte(interval), "degree proof")
	require.NoError(t, err)
	require.NoError(t, verifier.SendRequest(e.ctx, e.faberConn))
	require.Equal(t, StateRequestSent, verifier.State())

	requests, err := GetRequests(e.ctx, e.aliceConn)
	require.NoError(t, err)
	require.Len(t, requests, 1)

	prover, err := NewProverFromRequest(e.alice, "proof", requests[0])
	require.NoError(t, err)
	require.Equal(t, StateRequestReceived, prover.State())
	require.Equal(t, verifier.ThreadID(), prover.ThreadID())

	return verifier, prover
}

// present selects the first candidate for every referent, then generates and sends the presentation.
func (e *env) present(t *testing.T, prover *Prover) {
	t.Helper()

	retrieved, err := prover.RetrieveCredentials(e.ctx)
	require.NoError(t, err)

	selected := &anoncreds.SelectedCredentials{Attrs: map[string]anoncreds.SelectedCredential{}}

	for ref, candidates := range retrieved.Attrs {
		require.NotEmpty(t, candidates, ref)
		selected.Attrs[ref] = anoncreds.SelectedCredential{Credential: candidates[0]}
	}

	require.NoError(t, prover.Generate(e.ctx, selected, nil))
	require.NoError(t, prover.Send(e.ctx, e.aliceConn))
	require.Equal(t, StatePresentationSent, prover.State())
}

func sentOfType(t *testing.T, agency *mocktransport.Agency, recipientKey, msgType string) []transport.Message {
	t.Helper()

	var out []transport.Message

	for _, m := range agency.SentTo(recipientKey) {
		msg, err := service.ParseDIDCommMsgMap(m.Payload)
		require.NoError(t, err)

		if msg.Type() == msgType {
			out = append(out, m)
		}
	}

	return out
}

func TestPresentation(t *testing.T) {
	e := newEnv(t)

	t.Run("unrevoked credential is accepted", func(t *testing.T) {
		verifier, prover := e.request(t, `{"to":150}`)
		e.present(t, prover)

		state, err := verifier.UpdateState(e.ctx, e.faberConn)
		require.NoError(t, err)
		require.Equal(t, StateAccepted, state)
		require.Equal(t, StatusValidated, verifier.VerificationStatus())

		pres, err := verifier.Presentation()
		require.NoError(t, err)
		require.Equal(t, "maths", pres.RevealedValues()["attribute_0"])

		state, err = prover.UpdateState(e.ctx, e.aliceConn)
		require.NoError(t, err)
		require.Equal(t, StateAccepted, state)

		requests, err := GetRequests(e.ctx, e.aliceConn)
		require.NoError(t, err)
		require.Empty(t, requests, "the answered request is reviewed")
	})

	t.Run("duplicate presentation is ignored", func(t *testing.T) {
		verifier, prover := e.request(t, "")
		e.present(t, prover)

		_, err := verifier.UpdateState(e.ctx, e.faberConn)
		require.NoError(t, err)

		acks := len(sentOfType(t, e.agency, e.aliceConn.PwVerkey(), AckMsgType))

		presentations := sentOfType(t, e.agency, e.faberConn.PwVerkey(), PresentationMsgType)
		_, err = e.agency.Redeliver(presentations[len(presentations)-1].UID)
		require.NoError(t, err)

		state, err := verifier.UpdateState(e.ctx, e.faberConn)
		require.NoError(t, err)
		require.Equal(t, StateAccepted, state)
		require.Len(t, sentOfType(t, e.agency, e.aliceConn.PwVerkey(), AckMsgType), acks)
	})

	t.Run("credential revoked within the interval is rejected", func(t *testing.T) {
		e.now = 200
		require.NoError(t, e.issuer.Revoke(e.ctx))

		verifier, prover := e.request(t, `{"to":250}`)
		e.present(t, prover)

		state, err := verifier.UpdateState(e.ctx, e.faberConn)
		require.NoError(t, err)
		require.Equal(t, StateRejected, state)
		require.Equal(t, StatusInvalid, verifier.VerificationStatus())
		require.Contains(t, verifier.Verification().Reason, "revoked")

		state, err = prover.UpdateState(e.ctx, e.aliceConn)
		require.NoError(t, err)
		require.Equal(t, StateRejected, state)
		require.Equal(t, problemCodeInvalidPresented, prover.Problem().Code)
	})

	t.Run("an interval ending before the revocation still accepts", func(t *testing.T) {
		verifier, prover := e.request(t, `{"to":150}`)
		e.present(t, prover)

		state, err := verifier.UpdateState(e.ctx, e.faberConn)
		require.NoError(t, err)
		require.Equal(t, StateAccepted, state)
	})
}

func TestVerifier_AckRetry(t *testing.T) {
	e := newEnv(t)

	verifier, prover := e.request(t, "")
	e.present(t, prover)

	e.agency.SendErr = errors.New("agency unreachable")

	state, err := verifier.UpdateState(e.ctx, e.faberConn)
	require.True(t, vcxerr.Is(err, vcxerr.CollaboratorFailure))
	require.Equal(t, StatePresentationReceived, state)
	require.Equal(t, StatusValidated, verifier.VerificationStatus())

	e.agency.SendErr = nil

	state, err = verifier.UpdateState(e.ctx, e.faberConn)
	require.NoError(t, err)
	require.Equal(t, StateAccepted, state)

	state, err = prover.UpdateState(e.ctx, e.aliceConn)
	require.NoError(t, err)
	require.Equal(t, StateAccepted, state)
}

func TestProver_DeclineRequest(t *testing.T) {
	e := newEnv(t)

	t.Run("arguments are checked before anything is sent", func(t *testing.T) {
		verifier, err := NewVerifier(e.faber, "proof", []byte(degreeRequest), nil, nil, "degree proof")
		require.NoError(t, err)

		req, err := verifier.RequestMessage()
		require.NoError(t, err)

		prover, err := NewProverFromRequest(e.alice, "proof", req)
		require.NoError(t, err)

		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		conn := mockexchange.NewMockConn(ctrl)
		proposal := &PresentationPreview{Attributes: []Attribute{{Name: "name"}}}

		err = prover.DeclineRequest(e.ctx, conn, "no", proposal)
		require.True(t, vcxerr.Is(err, vcxerr.ValidationFailure))

		err = prover.DeclineRequest(e.ctx, conn, "", nil)
		require.True(t, vcxerr.Is(err, vcxerr.ValidationFailure))

		err = prover.DeclineRequest(e.ctx, conn, "", &PresentationPreview{})
		require.True(t, vcxerr.Is(err, vcxerr.ValidationFailure))

		require.Equal(t, StateRequestReceived, prover.State())
	})

	t.Run("decline with a reason", func(t *testing.T) {
		verifier, prover := e.request(t, "")

		require.NoError(t, prover.DeclineRequest(e.ctx, e.aliceConn, "not now", nil))
		require.Equal(t, StateDeclined, prover.State())

		state, err := verifier.UpdateState(e.ctx, e.faberConn)
		require.NoError(t, err)
		require.Equal(t, StateDeclined, state)
		require.Equal(t, "not now", verifier.Problem().En)
		require.Equal(t, problemCodeDeclined, verifier.Problem().Code)
		require.Nil(t, verifier.Proposal())

		err = prover.Send(e.ctx, e.aliceConn)
		require.True(t, vcxerr.Is(err, vcxerr.InvalidState))
	})

	t.Run("decline with a proposal", func(t *testing.T) {
		verifier, prover := e.request(t, "")

		proposal := &PresentationPreview{Attributes: []Attribute{{Name: "name", CredDefID: e.credDef.ID}}}
		require.NoError(t, prover.DeclineRequest(e.ctx, e.aliceConn, "", proposal))

		state, err := verifier.UpdateState(e.ctx, e.faberConn)
		require.NoError(t, err)
		require.Equal(t, StateDeclined, state)
		require.NotNil(t, verifier.Proposal())
		require.Equal(t, "name", verifier.Proposal().Attributes[0].Name)
	})

	t.Run("reject over a failing connection keeps the request open", func(t *testing.T) {
		verifier, err := NewVerifier(e.faber, "proof", []byte(degreeRequest), nil, nil, "degree proof")
		require.NoError(t, err)

		req, err := verifier.RequestMessage()
		require.NoError(t, err)

		prover, err := NewProverFromRequest(e.alice, "proof", req)
		require.NoError(t, err)

		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		conn := mockexchange.NewMockConn(ctrl)
		conn.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, msg interface{}) (string, error) {
				report, ok := msg.(*ProblemReport)
				require.True(t, ok)
				require.Equal(t, problemCodeRejected, report.Description.Code)
				require.Equal(t, req.ID, report.Thread.ID)

				return "", vcxerr.Collaborator(vcxerr.TransportCollaborator, 0, errors.New("down"))
			})

		err = prover.Reject(e.ctx, conn, "wrong verifier")
		require.True(t, vcxerr.Is(err, vcxerr.CollaboratorFailure))
		require.Equal(t, StateRequestReceived, prover.State())
		require.Nil(t, prover.Problem())
	})
}

func TestProver_Generate(t *testing.T) {
	e := newEnv(t)

	verifier, prover := e.request(t, "")

	err := prover.Send(e.ctx, e.aliceConn)
	require.True(t, vcxerr.Is(err, vcxerr.InvalidState), "nothing generated yet")

	_, err = prover.PresentationMessage()
	require.True(t, vcxerr.Is(err, vcxerr.InvalidState))

	t.Run("self attested values answer unrestricted attributes", func(t *testing.T) {
		v, err := NewVerifier(e.faber, "self", []byte(`[{"name":"nickname"}]`), nil, nil, "self")
		require.NoError(t, err)

		req, err := v.RequestMessage()
		require.NoError(t, err)

		p, err := NewProverFromRequest(e.alice, "self", req)
		require.NoError(t, err)

		require.NoError(t, p.Generate(e.ctx, nil, map[string]string{"attribute_0": "ally"}))

		pres, err := p.Presentation()
		require.NoError(t, err)
		require.Equal(t, "ally", pres.RevealedValues()["attribute_0"])
	})

	e.present(t, prover)

	msg, err := prover.PresentationMessage()
	require.NoError(t, err)
	require.Equal(t, prover.ThreadID(), msg.Thread.ID)

	err = prover.Generate(e.ctx, nil, nil)
	require.True(t, vcxerr.Is(err, vcxerr.InvalidState), "presentation already sent")

	payload, err := json.Marshal(msg)
	require.NoError(t, err)

	state, err := verifier.UpdateStateWithMessage(e.ctx, nil, payload)
	require.NoError(t, err)
	require.Equal(t, StatePresentationReceived, state, "the verdict waits for a connection")

	state, err = verifier.UpdateState(e.ctx, e.faberConn)
	require.NoError(t, err)
	require.Equal(t, StateAccepted, state)

	t.Run("wrong message for the prover", func(t *testing.T) {
		_, err := prover.UpdateStateWithMessage(e.ctx, payload)
		require.True(t, vcxerr.Is(err, vcxerr.InvalidMessageForState))
	})
}

func TestSerialize(t *testing.T) {
	e := newEnv(t)

	verifier, prover := e.request(t, `{"to":150}`)

	data, err := verifier.Serialize()
	require.NoError(t, err)

	restoredVerifier, err := DeserializeVerifier(e.faber, data)
	require.NoError(t, err)
	require.Equal(t, verifier.ThreadID(), restoredVerifier.ThreadID())
	require.Equal(t, int64(150), restoredVerifier.ProofRequest().NonRevoked.To)

	data, err = prover.Serialize()
	require.NoError(t, err)

	restoredProver, err := DeserializeProver(e.alice, data)
	require.NoError(t, err)
	require.Equal(t, StateRequestReceived, restoredProver.State())

	e.present(t, restoredProver)

	state, err := restoredVerifier.UpdateState(e.ctx, e.faberConn)
	require.NoError(t, err)
	require.Equal(t, StateAccepted, state)

	again, err := restoredVerifier.Serialize()
	require.NoError(t, err)

	final, err := DeserializeVerifier(e.faber, again)
	require.NoError(t, err)
	require.Equal(t, StateAccepted, final.State())
	require.Equal(t, StatusValidated, final.VerificationStatus())

	t.Run("bound to its connection", func(t *testing.T) {
		_, err := final.UpdateState(e.ctx, e.aliceConn)
		require.True(t, vcxerr.Is(err, vcxerr.InvalidState))
	})

	t.Run("invalid data", func(t *testing.T) {
		_, err := DeserializeVerifier(e.faber, []byte(`{"version":"1.0","data":{}}`))
		require.True(t, vcxerr.Is(err, vcxerr.ValidationFailure))

		_, err = DeserializeProver(e.alice, []byte(`{"version":"1.0","data":{}}`))
		require.True(t, vcxerr.Is(err, vcxerr.ValidationFailure))

		_, err = DeserializeProver(e.alice, []byte(`{"version":"2.0","data":{}}`))
		require.True(t, vcxerr.Is(err, vcxerr.UnsupportedVersion))
	})
}

func TestNewVerifier(t *testing.T) {
	a := newAgent(t, mocktransport.NewAgency(), mockledger.New(), "faber")

	tests := map[string]struct {
		attrs    string
		preds    string
		interval string
	}{
		"nothing requested":  {},
		"attrs not a list":   {attrs: `{"name":"degree"}`},
		"bad predicate type": {preds: `[{"name":"age","p_type":"<","p_value":18}]`},
		"interval not json":  {attrs: degreeRequest, interval: `{"to":`},
		"interval reversed":  {attrs: degreeRequest, interval: `{"from":20,"to":10}`},
	}

	for name, tc := range tests {
		tc := tc

		t.Run(name, func(t *testing.T) {
			_, err := NewVerifier(a, "proof", []byte(tc.attrs), []byte(tc.preds), []byte(tc.interval), "proof")
			require.True(t, vcxerr.Is(err, vcxerr.ValidationFailure), err)
		})
	}

	t.Run("empty interval applies nothing", func(t *testing.T) {
		v, err := NewVerifier(a, "proof", []byte(degreeRequest),
			[]byte(`[{"name":"age","p_type":">=","p_value":18}]`), []byte(`{}`), "proof")
		require.NoError(t, err)
		require.Nil(t, v.ProofRequest().NonRevoked)
		require.Len(t, v.ProofRequest().RequestedPredicates, 1)
	})
}

func TestParseRequest(t *testing.T) {
	a := newAgent(t, mocktransport.NewAgency(), mockledger.New(), "faber")

	v, err := NewVerifier(a, "proof", []byte(degreeRequest), nil, nil, "proof")
	require.NoError(t, err)

	msg, err := v.RequestMessage()
	require.NoError(t, err)

	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	parsed, err := ParseRequest(raw)
	require.NoError(t, err)
	require.Equal(t, msg.ID, parsed.ID)

	noAttach := *msg
	noAttach.RequestPresentations = nil

	raw, err = json.Marshal(noAttach)
	require.NoError(t, err)

	_, err = ParseRequest(raw)
	require.True(t, vcxerr.Is(err, vcxerr.ValidationFailure))

	_, err = ParseRequest([]byte(`{"@type":"` + AckMsgType + `","@id":"1"}`))
	require.True(t, vcxerr.Is(err, vcxerr.ValidationFailure))

	_, err = NewProverFromRequest(a, "proof", nil)
	require.True(t, vcxerr.Is(err, vcxerr.ValidationFailure))
}

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		role    Role
		from    State
		event   event
		to      State
		effect  effect
		ignored bool
		err     bool
	}{
		{"verifier sends request", RoleVerifier, StateInitialized, eventSendRequest, StateRequestSent, effectSendRequest, false, false},
		{"presentation arrives", RoleVerifier, StateRequestSent, eventPresentation, StatePresentationReceived, effectNone, false, false},
		{"verified", RoleVerifier, StatePresentationReceived, eventVerified, StateAccepted, effectSendAck, false, false},
		{"invalid", RoleVerifier, StatePresentationReceived, eventVerifyFailed, StateRejected, effectSendProblemReport, false, false},
		{"late presentation", RoleVerifier, StatePresentationReceived, eventPresentation, StatePresentationReceived, effectNone, true, false},
		{"presentation after accept", RoleVerifier, StateAccepted, eventPresentation, StateAccepted, effectNone, true, false},
		{"presentation before request", RoleVerifier, StateInitialized, eventPresentation, 0, effectNone, false, true},
		{"proposal declines", RoleVerifier, StateRequestSent, eventProposal, StateDeclined, effectNone, false, false},
		{"prover sends", RoleProver, StateRequestReceived, eventSendPresentation, StatePresentationSent, effectSendPresentation, false, false},
		{"prover declines", RoleProver, StateRequestReceived, eventDecline, StateDeclined, effectSendDecline, false, false},
		{"redelivered request", RoleProver, StatePresentationSent, eventRequest, StatePresentationSent, effectNone, true, false},
		{"ack", RoleProver, StatePresentationSent, eventAck, StateAccepted, effectNone, false, false},
		{"ack before sending", RoleProver, StateRequestReceived, eventAck, 0, effectNone, false, true},
		{"rejected", RoleProver, StatePresentationSent, eventProblemReport, StateRejected, effectNone, false, false},
	}

	for _, tc := range tests {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			next, ignored, err := transition(tc.role, tc.from, tc.event)
			if tc.err {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.ignored, ignored)
			require.Equal(t, tc.to, next.to)
			require.Equal(t, tc.effect, next.effect)
		})
	}
}
