/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package connection

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/sjson"

	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/transport"
	mocktransport "github.com/hyperledger/aries-vcx-go/pkg/mock/transport"
	"github.com/hyperledger/aries-vcx-go/pkg/store/wallet"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

type provider struct {
	agency *mocktransport.Agency
	keys   *wallet.Keys
	label  string
	events *service.Message
}

func newProvider(t *testing.T, agency *mocktransport.Agency, label string) *provider {
	t.Helper()

	w, err := wallet.New(mem.NewProvider())
	require.NoError(t, err)

	return &provider{agency: agency, keys: wallet.NewKeys(w), label: label}
}

func (p *provider) Transport() transport.Transport { return p.agency }
func (p *provider) Signer() Signer                 { return p.keys }
func (p *provider) ServiceEndpoint() string        { return "http://agency.example/" + p.label }
func (p *provider) Label() string                  { return p.label }
func (p *provider) Events() *service.Message       { return p.events }

type pair struct {
	agency   *mocktransport.Agency
	faber    *provider
	alice    *provider
	inviter  *Connection
	invitee  *Connection
	ctx      context.Context
	inviteJS []byte
}

func newPair(t *testing.T) *pair {
	t.Helper()

	agency := mocktransport.NewAgency()
	p := &pair{
		agency: agency,
		faber:  newProvider(t, agency, "faber"),
		alice:  newProvider(t, agency, "alice"),
		ctx:    context.Background(),
	}

	var err error

	p.inviter, err = Create(p.ctx, p.faber, "faber_conn")
	require.NoError(t, err)
	require.Equal(t, StateInitialized, p.inviter.State())

	_, err = p.inviter.InviteDetails()
	require.True(t, vcxerr.Is(err, vcxerr.InvalidState))

	require.NoError(t, p.inviter.Connect(p.ctx))
	require.Equal(t, StateInvitationGenerated, p.inviter.State())

	inv, err := p.inviter.InviteDetails()
	require.NoError(t, err)

	p.inviteJS, err = json.Marshal(inv)
	require.NoError(t, err)

	p.invitee, err = CreateWithInvite(p.ctx, p.alice, "alice_conn", p.inviteJS)
	require.NoError(t, err)
	require.Equal(t, StateInvitationReceived, p.invitee.State())

	return p
}

func (p *pair) establish(t *testing.T) {
	t.Helper()

	require.NoError(t, p.invitee.Connect(p.ctx))
	require.Equal(t, StateRequestSent, p.invitee.State())

	state, err := p.inviter.UpdateState(p.ctx)
	require.NoError(t, err)
	require.Equal(t, StateResponseSent, state)

	state, err = p.invitee.UpdateState(p.ctx)
	require.NoError(t, err)
	require.Equal(t, StateCompleted, state)

	state, err = p.inviter.UpdateState(p.ctx)
	require.NoError(t, err)
	require.Equal(t, StateCompleted, state)
}

func TestConnection_Establish(t *testing.T) {
	p := newPair(t)
	p.establish(t)

	require.Equal(t, p.invitee.PwDID(), p.inviter.TheirPwDID())
	require.Equal(t, p.inviter.PwDID(), p.invitee.TheirPwDID())
	require.Equal(t, p.invitee.PwVerkey(), p.inviter.TheirPwVerkey())
	require.Equal(t, p.inviter.PwVerkey(), p.invitee.TheirPwVerkey())
	require.Equal(t, p.inviter.ThreadID(), p.invitee.ThreadID())
	require.NotEmpty(t, p.inviter.ThreadID())

	info := p.inviter.Info()
	require.Equal(t, Inviter, info.Role)
	require.Equal(t, "completed", info.State)
	require.NotNil(t, info.Their)
	require.Equal(t, "alice", info.Their.Label)
	require.Equal(t, "http://agency.example/alice", info.Their.ServiceEndpoint)

	for _, m := range p.agency.Sent() {
		require.Equal(t, transport.StatusReviewed, m.Status, "every protocol message is consumed")
	}

	t.Run("completed connection rejects connect", func(t *testing.T) {
		err := p.invitee.Connect(p.ctx)
		require.True(t, vcxerr.Is(err, vcxerr.InvalidState))
	})
}

func TestConnection_StateIsMonotonic(t *testing.T) {
	p := newPair(t)

	last := map[*Connection]State{p.inviter: p.inviter.State(), p.invitee: p.invitee.State()}

	redeliverAll := func() {
		for _, m := range p.agency.Sent() {
			_, err := p.agency.Redeliver(m.UID)
			require.NoError(t, err)
		}
	}

	check := func(c *Connection) {
		_, err := c.UpdateState(p.ctx)
		require.NoError(t, err)
		require.GreaterOrEqual(t, c.State(), last[c], "%s went back from %s to %s", c.SourceID(), last[c], c.State())
		last[c] = c.State()
	}

	require.NoError(t, p.invitee.Connect(p.ctx))

	for i := 0; i < 4; i++ {
		redeliverAll()
		check(p.inviter)
		check(p.invitee)
	}

	require.Equal(t, StateCompleted, p.inviter.State())
	require.Equal(t, StateCompleted, p.invitee.State())

	redeliverAll()
	check(p.invitee)
	check(p.inviter)
}

func TestConnection_UpdateStateWithMessage(t *testing.T) {
	p := newPair(t)
	require.NoError(t, p.invitee.Connect(p.ctx))

	requests := p.agency.SentTo(p.inviter.PwVerkey())
	require.Len(t, requests, 1)

	state, err := p.inviter.UpdateStateWithMessage(p.ctx, requests[0].Payload)
	require.NoError(t, err)
	require.Equal(t, StateResponseSent, state)

	t.Run("duplicate request is ignored", func(t *testing.T) {
		state, err := p.inviter.UpdateStateWithMessage(p.ctx, requests[0].Payload)
		require.NoError(t, err)
		require.Equal(t, StateResponseSent, state)
		require.Len(t, p.agency.SentTo(p.invitee.PwVerkey()), 1, "no second response")
	})

	t.Run("message of the wrong role", func(t *testing.T) {
		_, err := p.invitee.UpdateStateWithMessage(p.ctx, requests[0].Payload)
		require.True(t, vcxerr.Is(err, vcxerr.InvalidMessageForState))

		_, err = p.inviter.UpdateStateWithMessage(p.ctx, []byte(`{"@type":"https://didcomm.org/unknown/1.0/x"}`))
		require.True(t, vcxerr.Is(err, vcxerr.InvalidMessageForState))

		_, err = p.inviter.UpdateStateWithMessage(p.ctx, []byte(`{`))
		require.True(t, vcxerr.Is(err, vcxerr.ValidationFailure))
	})

	t.Run("ack before response", func(t *testing.T) {
		other := newPair(t)

		ack, err := json.Marshal(&Ack{Type: AckMsgType, ID: "1"})
		require.NoError(t, err)

		_, err = other.inviter.UpdateStateWithMessage(other.ctx, ack)
		require.True(t, vcxerr.Is(err, vcxerr.InvalidMessageForState))
		require.Equal(t, StateInvitationGenerated, other.inviter.State())
	})

	responses := p.agency.SentTo(p.invitee.PwVerkey())
	require.Len(t, responses, 1)

	state, err = p.invitee.UpdateStateWithMessage(p.ctx, responses[0].Payload)
	require.NoError(t, err)
	require.Equal(t, StateCompleted, state)
}

func TestConnection_TamperedResponse(t *testing.T) {
	p := newPair(t)
	require.NoError(t, p.invitee.Connect(p.ctx))

	_, err := p.inviter.UpdateState(p.ctx)
	require.NoError(t, err)

	responses := p.agency.SentTo(p.invitee.PwVerkey())
	require.Len(t, responses, 1)

	tampered, err := sjson.SetBytes(responses[0].Payload, "connection~sig.signature", "AAAA")
	require.NoError(t, err)

	_, err = p.invitee.UpdateStateWithMessage(p.ctx, tampered)
	require.True(t, vcxerr.Is(err, vcxerr.ValidationFailure))
	require.Equal(t, StateRequestSent, p.invitee.State())

	foreign, err := sjson.SetBytes(responses[0].Payload, "connection~sig.signer", p.invitee.PwVerkey())
	require.NoError(t, err)

	_, err = p.invitee.UpdateStateWithMessage(p.ctx, foreign)
	require.True(t, vcxerr.Is(err, vcxerr.ValidationFailure))

	wrongThread, err := sjson.SetBytes(responses[0].Payload, "~thread.thid", "other")
	require.NoError(t, err)

	_, err = p.invitee.UpdateStateWithMessage(p.ctx, wrongThread)
	require.True(t, vcxerr.Is(err, vcxerr.ValidationFailure))

	state, err := p.invitee.UpdateState(p.ctx)
	require.NoError(t, err)
	require.Equal(t, StateCompleted, state, "the genuine response is still in the mailbox")
}

func TestConnection_TransportFailure(t *testing.T) {
	p := newPair(t)
	p.agency.SendErr = errors.New("agency down")

	err := p.invitee.Connect(p.ctx)
	require.True(t, vcxerr.Is(err, vcxerr.CollaboratorFailure))
	require.Equal(t, vcxerr.TransportFailureCode, vcxerr.CodeOf(err))
	require.Equal(t, StateInvitationReceived, p.invitee.State())

	p.agency.SendErr = nil
	require.NoError(t, p.invitee.Connect(p.ctx))

	p.agency.SendErr = errors.New("agency down")

	_, err = p.inviter.UpdateState(p.ctx)
	require.True(t, vcxerr.Is(err, vcxerr.CollaboratorFailure))
	require.Equal(t, StateRequestReceived, p.inviter.State(), "request absorbed, response owed")

	p.agency.SendErr = nil

	state, err := p.inviter.UpdateState(p.ctx)
	require.NoError(t, err)
	require.Equal(t, StateResponseSent, state)
	require.Len(t, p.agency.SentTo(p.invitee.PwVerkey()), 1)

	p.agency.PollErr = errors.New("poll failed")

	_, err = p.invitee.UpdateState(p.ctx)
	require.True(t, vcxerr.Is(err, vcxerr.CollaboratorFailure))
}

func TestConnection_Ping(t *testing.T) {
	p := newPair(t)

	err := p.inviter.SendPing(p.ctx, "hello")
	require.True(t, vcxerr.Is(err, vcxerr.InvalidState))

	require.NoError(t, p.invitee.Connect(p.ctx))

	_, err = p.inviter.UpdateState(p.ctx)
	require.NoError(t, err)

	_, err = p.invitee.UpdateState(p.ctx)
	require.NoError(t, err)
	require.NoError(t, p.invitee.SendPing(p.ctx, "hello"))

	state, err := p.inviter.UpdateState(p.ctx)
	require.NoError(t, err)
	require.Equal(t, StateCompleted, state)

	toInvitee := p.agency.SentTo(p.invitee.PwVerkey())
	last, err := service.ParseDIDCommMsgMap(toInvitee[len(toInvitee)-1].Payload)
	require.NoError(t, err)
	require.Equal(t, PingResponseType, last.Type())
}

func TestConnection_Messaging(t *testing.T) {
	p := newPair(t)

	_, err := p.invitee.SendMessage(p.ctx, "hi", SendOptions{})
	require.True(t, vcxerr.Is(err, vcxerr.InvalidState))

	_, err = p.invitee.VerifySignature([]byte("data"), []byte("sig"))
	require.True(t, vcxerr.Is(err, vcxerr.InvalidState))

	p.establish(t)

	uid, err := p.invitee.SendMessage(p.ctx, "hi", SendOptions{MsgTitle: "greeting", RefMsgID: "ref"})
	require.NoError(t, err)

	msgs, err := p.inviter.Receive(p.ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, uid, msgs[0].UID)
	require.Equal(t, BasicMessageType, msgs[0].Msg.Type())

	basic := &BasicMessage{}
	require.NoError(t, msgs[0].Msg.Decode(basic))
	require.Equal(t, "hi", basic.Content)
	require.Equal(t, "ref", basic.Thread.ID)

	require.NoError(t, p.inviter.MarkReviewed(p.ctx, uid))

	msgs, err = p.inviter.Receive(p.ctx)
	require.NoError(t, err)
	require.Empty(t, msgs)

	sig, err := p.invitee.SignData(p.ctx, []byte("data"))
	require.NoError(t, err)

	ok, err := p.inviter.VerifySignature([]byte("data"), sig)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = p.inviter.VerifySignature([]byte("other"), sig)
	require.NoError(t, err)
	require.False(t, ok)

	t.Run("delete consumes pending messages", func(t *testing.T) {
		_, err := p.invitee.SendMessage(p.ctx, "bye", SendOptions{})
		require.NoError(t, err)

		require.NoError(t, p.inviter.Delete(p.ctx))

		for _, m := range p.agency.SentTo(p.inviter.PwVerkey()) {
			require.Equal(t, transport.StatusReviewed, m.Status)
		}
	})
}

func TestConnection_Redirect(t *testing.T) {
	p := newPair(t)
	p.establish(t)

	again, err := Create(p.ctx, p.faber, "faber_again")
	require.NoError(t, err)
	require.NoError(t, again.Connect(p.ctx))

	inv, err := again.InviteDetails()
	require.NoError(t, err)

	invJSON, err := json.Marshal(inv)
	require.NoError(t, err)

	redirected, err := CreateWithInvite(p.ctx, p.alice, "alice_again", invJSON)
	require.NoError(t, err)

	_, err = redirected.RedirectDetails()
	require.True(t, vcxerr.Is(err, vcxerr.InvalidState))

	err = redirected.Redirect(p.ctx, redirected)
	require.True(t, vcxerr.Is(err, vcxerr.InvalidState))

	require.NoError(t, redirected.Redirect(p.ctx, p.invitee))
	require.Equal(t, StateRedirected, redirected.State())

	state, err := again.UpdateState(p.ctx)
	require.NoError(t, err)
	require.Equal(t, StateRedirected, state)

	details, err := again.RedirectDetails()
	require.NoError(t, err)
	require.Equal(t, p.invitee.PwDID(), details.DID)
	require.Equal(t, p.invitee.PwVerkey(), details.Verkey)
	require.Equal(t, p.inviter.PwDID(), details.TheirDID)

	err = redirected.Connect(p.ctx)
	require.True(t, vcxerr.Is(err, vcxerr.InvalidState))
}

func TestConnection_Serialize(t *testing.T) {
	p := newPair(t)
	require.NoError(t, p.invitee.Connect(p.ctx))

	data, err := p.invitee.Serialize()
	require.NoError(t, err)

	restored, err := Deserialize(p.alice, data)
	require.NoError(t, err)
	require.Equal(t, p.invitee.State(), restored.State())
	require.Equal(t, p.invitee.ThreadID(), restored.ThreadID())

	again, err := restored.Serialize()
	require.NoError(t, err)
	require.JSONEq(t, string(data), string(again))

	_, err = p.inviter.UpdateState(p.ctx)
	require.NoError(t, err)

	state, err := restored.UpdateState(p.ctx)
	require.NoError(t, err)
	require.Equal(t, StateCompleted, state)

	t.Run("older minor version", func(t *testing.T) {
		old, err := sjson.SetBytes(data, "version", "1.0")
		require.NoError(t, err)

		c, err := Deserialize(p.alice, old)
		require.NoError(t, err)
		require.Nil(t, c.rec.Redirect)
	})

	t.Run("invalid", func(t *testing.T) {
		future, err := sjson.SetBytes(data, "version", "2.0")
		require.NoError(t, err)

		_, err = Deserialize(p.alice, future)
		require.True(t, vcxerr.Is(err, vcxerr.UnsupportedVersion))

		_, err = Deserialize(p.alice, []byte(`{"version":"1.1","data":{"role":"inviter"}}`))
		require.True(t, vcxerr.Is(err, vcxerr.ValidationFailure))
	})
}

func TestConnection_Events(t *testing.T) {
	p := newPair(t)

	events := make(chan service.StateMsg, 10)
	p.faber.events = &service.Message{}
	require.NoError(t, p.faber.events.RegisterMsgEvent(events))

	require.NoError(t, p.invitee.Connect(p.ctx))

	_, err := p.inviter.UpdateState(p.ctx)
	require.NoError(t, err)

	require.Equal(t, "request_received", (<-events).StateID)

	sent := <-events
	require.Equal(t, "response_sent", sent.StateID)
	require.Equal(t, ProtocolName, sent.ProtocolName)
	require.Equal(t, "faber_conn", sent.SourceID)
}

func TestConnection_AbsorbParty(t *testing.T) {
	const verkey = "GJ1SzoWzavQYfNL9XkaJdrQejfztN4XqdsiV4ct3LXKL"

	tests := []struct {
		name     string
		body     *ConnectionBody
		verkey   string
		endpoint string
		err      string
	}{
		{name: "missing body", err: "no DID document"},
		{name: "missing document", body: &ConnectionBody{DID: "alice"}, err: "no DID document"},
		{
			name: "service entry",
			body: &ConnectionBody{DID: "alice", DIDDoc: &DIDDoc{Service: []Service{
				{RecipientKeys: nil},
				{RecipientKeys: []string{verkey}, ServiceEndpoint: "http://agency.example/alice"},
			}}},
			verkey:   verkey,
			endpoint: "http://agency.example/alice",
		},
		{
			name:   "public key only",
			body:   &ConnectionBody{DID: "alice", DIDDoc: &DIDDoc{PublicKey: []PublicKey{{PublicKeyBase58: verkey}}}},
			verkey: verkey,
		},
		{name: "no recipient key", body: &ConnectionBody{DID: "alice", DIDDoc: &DIDDoc{}}, err: "has no recipient key"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			c := newConnection(nil, record{})

			err := c.absorbParty(tc.body)
			if tc.err != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.err)

				return
			}

			require.NoError(t, err)
			require.Equal(t, "alice", c.rec.TheirPwDID)
			require.Equal(t, tc.verkey, c.rec.TheirPwVerkey)
			require.Equal(t, tc.endpoint, c.rec.TheirEndpoint)
		})
	}
}

func TestParseInvitation(t *testing.T) {
	for name, data := range map[string]string{
		"not json":   `{`,
		"wrong type": `{"@type":"https://didcomm.org/out-of-band/1.0/invitation","@id":"1","recipientKeys":["k"]}`,
		"no keys":    `{"@id":"1"}`,
		"no id":      `{"recipientKeys":["k"]}`,
		"empty key":  `{"@id":"1","recipientKeys":[""]}`,
	} {
		data := data

		t.Run(name, func(t *testing.T) {
			_, err := ParseInvitation([]byte(data))
			require.True(t, vcxerr.Is(err, vcxerr.ValidationFailure))
		})
	}

	inv, err := ParseInvitation([]byte(`{"@id":"1","recipientKeys":["k"],"label":"faber"}`))
	require.NoError(t, err)
	require.Equal(t, "faber", inv.Label)
}

func TestTransition(t *testing.T) {
	tests := []struct {
		role    Role
		from    State
		event   event
		to      State
		effect  effect
		ignored bool
		err     bool
	}{
		{role: Inviter, from: StateInitialized, event: eventConnect, to: StateInvitationGenerated},
		{role: Inviter, from: StateInvitationGenerated, event: eventRequest, to: StateRequestReceived},
		{role: Inviter, from: StateRequestReceived, event: eventResponseDispatched, to: StateResponseSent,
			effect: effectSendResponse},
		{role: Inviter, from: StateResponseSent, event: eventRequest, to: StateResponseSent, ignored: true},
		{role: Inviter, from: StateResponseSent, event: eventAck, to: StateCompleted},
		{role: Inviter, from: StateCompleted, event: eventAck, to: StateCompleted, ignored: true},
		{role: Inviter, from: StateInvitationGenerated, event: eventAck, err: true},
		{role: Inviter, from: StateInitialized, event: eventRequest, err: true},
		{role: Invitee, from: StateInvitationReceived, event: eventConnect, to: StateRequestSent,
			effect: effectSendRequest},
		{role: Invitee, from: StateInvitationReceived, event: eventRedirect, to: StateRedirected,
			effect: effectSendRedirect},
		{role: Invitee, from: StateRequestSent, event: eventResponse, to: StateResponseReceived},
		{role: Invitee, from: StateResponseReceived, event: eventResponse, to: StateResponseReceived, ignored: true},
		{role: Invitee, from: StateResponseReceived, event: eventAckDispatched, to: StateCompleted, effect: effectSendAck},
		{role: Invitee, from: StateInvitationReceived, event: eventResponse, err: true},
		{role: Invitee, from: StateRedirected, event: eventResponse, to: StateRedirected, ignored: true},
	}

	for _, tc := range tests {
		next, ignored, err := transition(tc.role, tc.from, tc.event)
		if tc.err {
			require.Error(t, err, "%s %s %s", tc.role, tc.from, tc.event)

			continue
		}

		require.NoError(t, err)
		require.Equal(t, tc.ignored, ignored, "%s %s %s", tc.role, tc.from, tc.event)
		require.Equal(t, tc.to, next.to)
		require.Equal(t, tc.effect, next.effect)
	}
}
