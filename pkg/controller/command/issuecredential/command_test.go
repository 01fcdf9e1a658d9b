/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuecredential

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-vcx-go/pkg/controller/command"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/issuecredential"
	"github.com/hyperledger/aries-vcx-go/pkg/internal/vcxtest"
	mockledger "github.com/hyperledger/aries-vcx-go/pkg/mock/ledger"
	mocktransport "github.com/hyperledger/aries-vcx-go/pkg/mock/transport"
	"github.com/hyperledger/aries-vcx-go/pkg/vcx"
)

func TestNew(t *testing.T) {
	cmd := New(vcxtest.NewEngine(t, mocktransport.NewAgency(), mockledger.New(), "faber"))

	handlers := cmd.GetHandlers()
	require.Len(t, handlers, 29)

	names := map[string]int{}
	for _, h := range handlers {
		names[h.Name()]++
	}

	require.Equal(t, map[string]int{IssuerCommandName: 14, HolderCommandName: 15}, names)
}

func TestCommand_Exchange(t *testing.T) {
	agency, l := mocktransport.NewAgency(), mockledger.New()
	faberEngine := vcxtest.NewEngine(t, agency, l, "faber")
	aliceEngine := vcxtest.NewEngine(t, agency, l, "alice")
	faberConn, aliceConn := vcxtest.Connect(t, faberEngine, aliceEngine)
	cd := vcxtest.CredentialDef(t, faberEngine, "")

	faber, alice := New(faberEngine), New(aliceEngine)

	var issuer HandleResponse
	run(t, faber.CreateOffer, &CreateOfferRequest{
		SourceID: "degree", CredDef: cd, Attributes: json.RawMessage(`{"name":"alice","degree":"maths"}`),
		Name: "degree",
	}, &issuer)
	run(t, faber.SendOffer, &ConnectionRequest{Handle: issuer.Handle, Connection: faberConn}, nil)

	var state StateResponse
	run(t, faber.IssuerState, &HandleRequest{Handle: issuer.Handle}, &state)
	require.Equal(t, issuecredential.StateOfferSent, state.State)

	var offers OffersResponse
	run(t, alice.GetOffers, &OffersRequest{Connection: aliceConn}, &offers)
	require.Len(t, offers.Offers, 1)

	offerJS, err := json.Marshal(offers.Offers[0])
	require.NoError(t, err)

	var holder HandleResponse
	run(t, alice.CreateWithOffer, &CreateWithOfferRequest{SourceID: "degree", Offer: offerJS}, &holder)
	run(t, alice.SendRequest, &ConnectionRequest{Handle: holder.Handle, Connection: aliceConn}, nil)

	run(t, faber.UpdateIssuerState, &ConnectionRequest{Handle: issuer.Handle, Connection: faberConn}, &state)
	require.Equal(t, issuecredential.StateRequestReceived, state.State)
	require.Equal(t, issuecredential.StateRequestReceived.String(), state.Name)

	run(t, faber.SendCredential, &ConnectionRequest{Handle: issuer.Handle, Connection: faberConn}, nil)

	run(t, alice.UpdateHolderState, &ConnectionRequest{Handle: holder.Handle, Connection: aliceConn}, &state)
	require.Equal(t, issuecredential.StateAccepted, state.State)

	t.Run("credential details", func(t *testing.T) {
		cred := map[string]interface{}{}
		run(t, alice.GetCredential, &HandleRequest{Handle: holder.Handle}, &cred)
		require.NotEmpty(t, cred)

		issued := map[string]interface{}{}
		run(t, faber.CredentialMessage, &HandleRequest{Handle: issuer.Handle}, &issued)
		require.NotEmpty(t, issued)
	})

	t.Run("revocation is not supported", func(t *testing.T) {
		err := exec(faber.Revoke, &HandleRequest{Handle: issuer.Handle}, nil)
		require.Error(t, err)
		require.Equal(t, RevocationErrorCode, err.Code())
		require.Equal(t, command.ExecuteError, err.Type())
	})

	t.Run("serialize round trip", func(t *testing.T) {
		var serialized SerializedObject
		run(t, alice.SerializeHolder, &HandleRequest{Handle: holder.Handle}, &serialized)

		var restored HandleResponse
		run(t, alice.DeserializeHolder, &serialized, &restored)
		run(t, alice.HolderState, &HandleRequest{Handle: restored.Handle}, &state)
		require.Equal(t, issuecredential.StateAccepted, state.State)

		run(t, alice.ReleaseHolder, &HandleRequest{Handle: restored.Handle}, nil)
	})

	t.Run("delete", func(t *testing.T) {
		run(t, alice.Delete, &HandleRequest{Handle: holder.Handle}, nil)

		err := exec(alice.HolderState, &HandleRequest{Handle: holder.Handle}, nil)
		require.Error(t, err)
		require.Equal(t, command.ValidationError, err.Type())
	})
}

func TestCommand_Errors(t *testing.T) {
	cmd := New(vcxtest.NewEngine(t, mocktransport.NewAgency(), mockledger.New(), "faber"))

	t.Run("invalid request", func(t *testing.T) {
		var b bytes.Buffer

		err := cmd.CreateOffer(&b, bytes.NewBufferString(`[`))
		require.Error(t, err)
		require.Equal(t, InvalidRequestErrorCode, err.Code())
	})

	t.Run("missing credential data", func(t *testing.T) {
		err := exec(cmd.CreateOffer, &CreateOfferRequest{SourceID: "degree"}, nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "credential_data is required")
	})

	t.Run("unknown credential definition", func(t *testing.T) {
		err := exec(cmd.CreateOffer, &CreateOfferRequest{
			SourceID: "degree", CredDef: 4242, Attributes: json.RawMessage(`{"name":"alice"}`),
		}, nil)
		require.Error(t, err)
		require.Equal(t, CreateErrorCode, err.Code())
		require.Equal(t, command.ValidationError, err.Type())
	})

	t.Run("unknown message id", func(t *testing.T) {
		agency, l := mocktransport.NewAgency(), mockledger.New()
		faber := vcxtest.NewEngine(t, agency, l, "faber")
		alice := vcxtest.NewEngine(t, agency, l, "alice")
		_, aliceConn := vcxtest.Connect(t, faber, alice)

		err := exec(New(alice).CreateWithMsgID, &CreateWithMsgIDRequest{
			SourceID: "degree", Connection: aliceConn, MsgID: "unknown",
		}, nil)
		require.Error(t, err)
		require.Equal(t, CreateErrorCode, err.Code())
		require.Equal(t, command.ExecuteError, err.Type())
	})
}

func exec(fn command.Exec, req, resp interface{}) command.Error {
	body, err := json.Marshal(req)
	if err != nil {
		return command.NewValidationError(command.UnknownStatus, err)
	}

	var b bytes.Buffer

	if cmdErr := fn(&b, bytes.NewBuffer(body)); cmdErr != nil {
		return cmdErr
	}

	if resp != nil {
		if err := json.Unmarshal(b.Bytes(), resp); err != nil {
			return command.NewExecuteError(command.UnknownStatus, err)
		}
	}

	return nil
}

func run(t *testing.T, fn command.Exec, req, resp interface{}) {
	t.Helper()

	require.NoError(t, exec(fn, req, resp))
}

var _ Engine = (*vcx.Engine)(nil)
