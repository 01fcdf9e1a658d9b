/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presentproof

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-vcx-go/pkg/anoncreds"
	"github.com/hyperledger/aries-vcx-go/pkg/controller/command"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/presentproof"
	"github.com/hyperledger/aries-vcx-go/pkg/internal/vcxtest"
	mockledger "github.com/hyperledger/aries-vcx-go/pkg/mock/ledger"
	mocktransport "github.com/hyperledger/aries-vcx-go/pkg/mock/transport"
	"github.com/hyperledger/aries-vcx-go/pkg/vcx"
)

const degreeRequest = `[{"name":"degree","restrictions":{"schema_name":"degree_schema"}}]`

func TestNew(t *testing.T) {
	cmd := New(vcxtest.NewEngine(t, mocktransport.NewAgency(), mockledger.New(), "faber"))

	names := map[string]int{}
	for _, h := range cmd.GetHandlers() {
		names[h.Name()]++
	}

	require.Equal(t, map[string]int{VerifierCommandName: 10, ProverCommandName: 16}, names)
}

func TestCommand_Exchange(t *testing.T) {
	agency, l := mocktransport.NewAgency(), mockledger.New()
	faberEngine := vcxtest.NewEngine(t, agency, l, "faber")
	aliceEngine := vcxtest.NewEngine(t, agency, l, "alice")
	faberConn, aliceConn := vcxtest.Connect(t, faberEngine, aliceEngine)
	vcxtest.Issue(t, faberEngine, aliceEngine, faberConn, aliceConn, vcxtest.CredentialDef(t, faberEngine, ""))

	faber, alice := New(faberEngine), New(aliceEngine)

	request := func(t *testing.T) (vcx.Handle, vcx.Handle) {
		t.Helper()

		var verifier HandleResponse
		run(t, faber.Create, &CreateProofRequest{
			SourceID: "proof", Attributes: json.RawMessage(degreeRequest), Name: "degree proof",
		}, &verifier)
		run(t, faber.SendRequest, &ConnectionRequest{Handle: verifier.Handle, Connection: faberConn}, nil)

		var requests RequestsResponse
		run(t, alice.GetRequests, &RequestsRequest{Connection: aliceConn}, &requests)
		require.Len(t, requests.Requests, 1)

		requestJS, err := json.Marshal(requests.Requests[0])
		require.NoError(t, err)

		var prover HandleResponse
		run(t, alice.CreateWithRequest, &CreateWithRequestRequest{SourceID: "proof", Request: requestJS}, &prover)

		return verifier.Handle, prover.Handle
	}

	t.Run("presentation is verified", func(t *testing.T) {
		verifier, prover := request(t)

		var retrieved anoncreds.RetrievedCredentials
		run(t, alice.RetrieveCredentials, &HandleRequest{Handle: prover}, &retrieved)

		selected := &anoncreds.SelectedCredentials{Attrs: map[string]anoncreds.SelectedCredential{}}

		for ref, candidates := range retrieved.Attrs {
			require.NotEmpty(t, candidates, ref)
			selected.Attrs[ref] = anoncreds.SelectedCredential{Credential: candidates[0]}
		}

		run(t, alice.Generate, &GenerateRequest{Handle: prover, Selected: selected}, nil)
		run(t, alice.Send, &ConnectionRequest{Handle: prover, Connection: aliceConn}, nil)

		var state StateResponse
		run(t, faber.UpdateState, &ConnectionRequest{Handle: verifier, Connection: faberConn}, &state)
		require.Equal(t, presentproof.StateAccepted, state.State)

		var result vcx.ProofResult
		run(t, faber.GetProof, &HandleRequest{Handle: verifier}, &result)
		require.Equal(t, presentproof.StatusValidated, result.Status)
		require.Equal(t, "maths", result.Revealed["attribute_0"])

		run(t, alice.UpdateProverState, &ConnectionRequest{Handle: prover, Connection: aliceConn}, &state)
		require.Equal(t, presentproof.StateAccepted, state.State)
	})

	t.Run("request is declined", func(t *testing.T) {
		verifier, prover := request(t)

		run(t, alice.Decline, &DeclineRequest{Handle: prover, Connection: aliceConn, Reason: "not today"}, nil)

		var problem presentproof.Description
		run(t, alice.RejectMessage, &HandleRequest{Handle: prover}, &problem)
		require.Equal(t, "not today", problem.En)

		var state StateResponse
		run(t, faber.UpdateState, &ConnectionRequest{Handle: verifier, Connection: faberConn}, &state)
		require.Equal(t, presentproof.StateDeclined, state.State)

		err := exec(faber.GetProof, &HandleRequest{Handle: verifier}, nil)
		require.Error(t, err)
		require.Equal(t, ReadErrorCode, err.Code())
	})

	t.Run("verifier survives serialization", func(t *testing.T) {
		verifier, _ := request(t)

		var serialized SerializedObject
		run(t, faber.Serialize, &HandleRequest{Handle: verifier}, &serialized)
		run(t, faber.Release, &HandleRequest{Handle: verifier}, nil)

		var restored HandleResponse
		run(t, faber.Deserialize, &serialized, &restored)

		var state StateResponse
		run(t, faber.GetState, &HandleRequest{Handle: restored.Handle}, &state)
		require.Equal(t, presentproof.StateRequestSent, state.State)
	})
}

func TestCommand_Errors(t *testing.T) {
	cmd := New(vcxtest.NewEngine(t, mocktransport.NewAgency(), mockledger.New(), "faber"))

	t.Run("missing requested attributes", func(t *testing.T) {
		err := exec(cmd.Create, &CreateProofRequest{SourceID: "proof"}, nil)
		require.Error(t, err)
		require.Equal(t, InvalidRequestErrorCode, err.Code())
		require.Equal(t, command.ValidationError, err.Type())
	})

	t.Run("unknown handle", func(t *testing.T) {
		err := exec(cmd.ProverState, &HandleRequest{Handle: 777}, nil)
		require.Error(t, err)
		require.Equal(t, ReadErrorCode, err.Code())
		require.Equal(t, command.ValidationError, err.Type())
	})

	t.Run("undecodable request", func(t *testing.T) {
		var b bytes.Buffer

		err := cmd.Generate(&b, bytes.NewBufferString(`{"handle":"one"}`))
		require.Error(t, err)
		require.Equal(t, InvalidRequestErrorCode, err.Code())
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
