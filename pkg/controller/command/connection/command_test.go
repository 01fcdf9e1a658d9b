/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package connection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-vcx-go/pkg/controller/command"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/connection"
	"github.com/hyperledger/aries-vcx-go/pkg/internal/vcxtest"
	mockledger "github.com/hyperledger/aries-vcx-go/pkg/mock/ledger"
	mocktransport "github.com/hyperledger/aries-vcx-go/pkg/mock/transport"
	"github.com/hyperledger/aries-vcx-go/pkg/vcx"
)

func TestNew(t *testing.T) {
	e := vcxtest.NewEngine(t, mocktransport.NewAgency(), mockledger.New(), "faber")

	cmd := New(e)
	require.NotNil(t, cmd)

	handlers := cmd.GetHandlers()
	require.Len(t, handlers, 20)

	for _, h := range handlers {
		require.Equal(t, CommandName, h.Name())
		require.NotEmpty(t, h.Method())
		require.NotNil(t, h.Handle())
	}
}

func TestCommand_Protocol(t *testing.T) {
	agency, l := mocktransport.NewAgency(), mockledger.New()
	faber := New(vcxtest.NewEngine(t, agency, l, "faber"))
	alice := New(vcxtest.NewEngine(t, agency, l, "alice"))

	var created HandleResponse
	run(t, faber.Create, `{"source_id":"alice"}`, &created)
	run(t, faber.Connect, handleJSON(created.Handle), nil)

	inv := json.RawMessage{}
	run(t, faber.InviteDetails, handleJSON(created.Handle), &inv)

	var invitee HandleResponse
	run(t, alice.CreateWithInvite, fmt.Sprintf(`{"source_id":"faber","invite":%s}`, inv), &invitee)
	run(t, alice.Connect, handleJSON(invitee.Handle), nil)

	var state StateResponse
	run(t, faber.UpdateState, handleJSON(created.Handle), &state)
	run(t, alice.UpdateState, handleJSON(invitee.Handle), &state)
	require.Equal(t, connection.StateCompleted, state.State)
	require.Equal(t, connection.StateCompleted.String(), state.Name)

	run(t, faber.UpdateState, handleJSON(created.Handle), &state)
	require.Equal(t, connection.StateCompleted, state.State)

	t.Run("pairwise DIDs", func(t *testing.T) {
		var mine, theirs PwDIDResponse
		run(t, faber.PwDID, handleJSON(created.Handle), &mine)
		run(t, alice.TheirPwDID, handleJSON(invitee.Handle), &theirs)
		require.NotEmpty(t, mine.PwDID)
		require.Equal(t, mine.PwDID, theirs.PwDID)
	})

	t.Run("messages and pings", func(t *testing.T) {
		var sent MessageIDResponse
		run(t, faber.SendMessage, fmt.Sprintf(`{"handle":%d,"content":"hello"}`, created.Handle), &sent)
		require.NotEmpty(t, sent.MsgID)

		run(t, faber.SendPing, handleJSON(created.Handle), nil)

		err := exec(faber.SendMessage, fmt.Sprintf(`{"handle":%d}`, created.Handle), nil)
		require.Error(t, err)
		require.Equal(t, command.ValidationError, err.Type())
		require.Equal(t, InvalidRequestErrorCode, err.Code())
	})

	t.Run("signatures", func(t *testing.T) {
		data := []byte("payload")

		req, err := json.Marshal(&SignDataRequest{Handle: created.Handle, Data: data})
		require.NoError(t, err)

		var sig SignatureResponse
		run(t, faber.SignData, string(req), &sig)
		require.NotEmpty(t, sig.Signature)

		req, err = json.Marshal(&VerifySignatureRequest{Handle: invitee.Handle, Data: data, Signature: sig.Signature})
		require.NoError(t, err)

		var verified VerifySignatureResponse
		run(t, alice.VerifySignature, string(req), &verified)
		require.True(t, verified.Valid)
	})

	t.Run("serialize and delete", func(t *testing.T) {
		var serialized SerializedObject
		run(t, alice.Serialize, handleJSON(invitee.Handle), &serialized)
		run(t, alice.Release, handleJSON(invitee.Handle), nil)

		err := exec(alice.GetState, handleJSON(invitee.Handle), nil)
		require.Error(t, err)
		require.Equal(t, command.ValidationError, err.Type())
		require.Equal(t, ReadErrorCode, err.Code())

		body, err2 := json.Marshal(&serialized)
		require.NoError(t, err2)

		var restored HandleResponse
		run(t, alice.Deserialize, string(body), &restored)
		run(t, alice.GetState, handleJSON(restored.Handle), &state)
		require.Equal(t, connection.StateCompleted, state.State)

		run(t, alice.Delete, handleJSON(restored.Handle), nil)
	})
}

func TestCommand_Errors(t *testing.T) {
	cmd := New(vcxtest.NewEngine(t, mocktransport.NewAgency(), mockledger.New(), "faber"))

	t.Run("invalid request", func(t *testing.T) {
		err := exec(cmd.Create, `{`, nil)
		require.Error(t, err)
		require.Equal(t, command.ValidationError, err.Type())
		require.Equal(t, InvalidRequestErrorCode, err.Code())
	})

	t.Run("missing source id", func(t *testing.T) {
		err := exec(cmd.Create, `{}`, nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "source_id is required")
	})

	t.Run("invalid invitation", func(t *testing.T) {
		err := exec(cmd.CreateWithInvite, `{"source_id":"faber","invite":{"@type":"unknown"}}`, nil)
		require.Error(t, err)
		require.Equal(t, CreateConnectionErrorCode, err.Code())
	})

	t.Run("unknown handle", func(t *testing.T) {
		err := exec(cmd.Connect, handleJSON(12345), nil)
		require.Error(t, err)
		require.Equal(t, command.ValidationError, err.Type())
		require.Equal(t, ProtocolErrorCode, err.Code())
	})
}

func handleJSON(h vcx.Handle) string {
	return fmt.Sprintf(`{"handle":%d}`, h)
}

func exec(fn command.Exec, req string, resp interface{}) command.Error {
	var b bytes.Buffer

	if err := fn(&b, bytes.NewBufferString(req)); err != nil {
		return err
	}

	if resp != nil {
		if err := json.Unmarshal(b.Bytes(), resp); err != nil {
			return command.NewExecuteError(command.UnknownStatus, err)
		}
	}

	return nil
}

func run(t *testing.T, fn command.Exec, req string, resp interface{}) {
	t.Helper()

	require.NoError(t, exec(fn, req, resp))
}
