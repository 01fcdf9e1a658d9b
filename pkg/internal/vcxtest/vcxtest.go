/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package vcxtest builds engines wired to the in-memory agency and ledger for tests of the layers
// above the engine.
package vcxtest

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/connection"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/issuecredential"
	mockledger "github.com/hyperledger/aries-vcx-go/pkg/mock/ledger"
	mocktransport "github.com/hyperledger/aries-vcx-go/pkg/mock/transport"
	"github.com/hyperledger/aries-vcx-go/pkg/vcx"
)

// NewEngine returns an engine for institution name, shut down when the test ends.
func NewEngine(t *testing.T, agency *mocktransport.Agency, l *mockledger.MockLedger, name string) *vcx.Engine {
	t.Helper()

	cfg := &vcx.Config{InstitutionName: name, AgencyEndpoint: "http://agency.example/" + name}

	e, err := vcx.New(context.Background(), cfg, vcx.WithTransport(agency), vcx.WithLedger(l))
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, e.Shutdown())
	})

	return e
}

// Connect completes a connection between inviter and invitee and returns both handles.
func Connect(t *testing.T, inviter, invitee *vcx.Engine) (vcx.Handle, vcx.Handle) {
	t.Helper()

	ctx := context.Background()

	inviterConn, err := inviter.CreateConnection(ctx, "inviter_conn")
	require.NoError(t, err)
	require.NoError(t, inviter.Connect(ctx, inviterConn))

	inv, err := inviter.InviteDetails(inviterConn)
	require.NoError(t, err)

	inviteJS, err := json.Marshal(inv)
	require.NoError(t, err)

	inviteeConn, err := invitee.CreateConnectionWithInvite(ctx, "invitee_conn", inviteJS)
	require.NoError(t, err)
	require.NoError(t, invitee.Connect(ctx, inviteeConn))

	for _, step := range []struct {
		e *vcx.Engine
		h vcx.Handle
	}{{inviter, inviterConn}, {invitee, inviteeConn}, {inviter, inviterConn}} {
		_, err = step.e.UpdateConnectionState(ctx, step.h)
		require.NoError(t, err)
	}

	state, err := invitee.ConnectionState(inviteeConn)
	require.NoError(t, err)
	require.Equal(t, connection.StateCompleted, state)

	return inviterConn, inviteeConn
}

// CredentialDef writes a degree schema and a credential definition over it.
func CredentialDef(t *testing.T, e *vcx.Engine, revocationJSON string) vcx.Handle {
	t.Helper()

	ctx := context.Background()

	s, err := e.CreateSchema(ctx, "schema", "degree_schema", "1.0", []byte(`["name","degree"]`))
	require.NoError(t, err)

	schemaID, err := e.SchemaID(s)
	require.NoError(t, err)

	var rev []byte
	if revocationJSON != "" {
		rev = []byte(revocationJSON)
	}

	cd, err := e.CreateCredentialDef(ctx, vcx.CredentialDefOptions{
		SourceID: "cred_def", Name: "degree", SchemaID: schemaID, Tag: "tag1", RevocationJSON: rev,
	})
	require.NoError(t, err)

	return cd
}

// Issue runs a credential exchange of a maths degree to alice over the connection and returns the
// issuer and holder handles.
func Issue(t *testing.T, faber, alice *vcx.Engine, faberConn, aliceConn, credDef vcx.Handle) (vcx.Handle, vcx.Handle) {
	t.Helper()

	ctx := context.Background()

	issuer, err := faber.CreateIssuerCredential("degree", credDef, []byte(`{"name":"alice","degree":"maths"}`),
		"degree", "")
	require.NoError(t, err)
	require.NoError(t, faber.SendCredentialOffer(ctx, issuer, faberConn))

	offers, err := alice.GetCredentialOffers(ctx, aliceConn)
	require.NoError(t, err)
	require.Len(t, offers, 1)

	offerJS, err := json.Marshal(offers[0])
	require.NoError(t, err)

	holder, err := alice.CreateCredentialWithOffer("degree", offerJS)
	require.NoError(t, err)
	require.NoError(t, alice.SendCredentialRequest(ctx, holder, aliceConn))

	_, err = faber.UpdateIssuerState(ctx, issuer, faberConn)
	require.NoError(t, err)
	require.NoError(t, faber.SendCredential(ctx, issuer, faberConn))

	state, err := alice.UpdateCredentialState(ctx, holder, aliceConn)
	require.NoError(t, err)
	require.Equal(t, issuecredential.StateAccepted, state)

	return issuer, holder
}
