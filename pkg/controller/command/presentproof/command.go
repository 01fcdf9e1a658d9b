/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presentproof

import (
	"context"
	"io"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-vcx-go/pkg/anoncreds"
	"github.com/hyperledger/aries-vcx-go/pkg/controller/command"
	"github.com/hyperledger/aries-vcx-go/pkg/controller/internal/cmdutil"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/presentproof"
	"github.com/hyperledger/aries-vcx-go/pkg/vcx"
)

var logger = log.New("vcx/controller/presentproof")

// command names of the two sides of the exchange.
const (
	VerifierCommandName = "proof"
	ProverCommandName   = "disclosed_proof"
)

// command methods.
const (
	CreateCommandMethod                 = "Create"
	SendRequestCommandMethod            = "SendRequest"
	RequestMessageCommandMethod         = "RequestMessage"
	UpdateStateCommandMethod            = "UpdateState"
	UpdateStateWithMessageCommandMethod = "UpdateStateWithMessage"
	GetStateCommandMethod               = "GetState"
	GetProofCommandMethod               = "GetProof"
	GetRequestsCommandMethod            = "GetRequests"
	CreateWithRequestCommandMethod      = "CreateWithRequest"
	CreateWithMsgIDCommandMethod        = "CreateWithMsgID"
	RetrieveCredentialsCommandMethod    = "RetrieveCredentials"
	GenerateCommandMethod               = "Generate"
	SendCommandMethod                   = "Send"
	RejectCommandMethod                 = "Reject"
	DeclineCommandMethod                = "Decline"
	PresentationCommandMethod           = "Presentation"
	RejectMessageCommandMethod          = "RejectMessage"
	SerializeCommandMethod              = "Serialize"
	DeserializeCommandMethod            = "Deserialize"
	ReleaseCommandMethod                = "Release"
)

const (
	// InvalidRequestErrorCode is typically a code for invalid requests.
	InvalidRequestErrorCode = command.Code(iota + command.PresentProof)
	// CreateErrorCode is for failures creating an exchange.
	CreateErrorCode
	// ProtocolErrorCode is for failures driving the exchange.
	ProtocolErrorCode
	// ReadErrorCode is for failures reading exchange details.
	ReadErrorCode
	// SerializationErrorCode is for serialize and deserialize failures.
	SerializationErrorCode
	// ReleaseErrorCode is for release failures.
	ReleaseErrorCode
)

// Engine is the part of the engine the proof commands run on.
type Engine interface {
	CreateProof(sourceID string, attrsJSON, predsJSON, revocationInterval []byte, name string) (vcx.Handle, error)
	SendProofRequest(ctx context.Context, h, conn vcx.Handle) error
	ProofRequestMessage(h vcx.Handle) (*presentproof.RequestPresentation, error)
	UpdateProofState(ctx context.Context, h, conn vcx.Handle) (presentproof.State, error)
	UpdateProofStateWithMessage(ctx context.Context, h, conn vcx.Handle, payload []byte) (presentproof.State, error)
	ProofState(h vcx.Handle) (presentproof.State, error)
	GetProof(h vcx.Handle) (*vcx.ProofResult, error)
	SerializeProof(h vcx.Handle) ([]byte, error)
	DeserializeProof(data []byte) (vcx.Handle, error)
	ReleaseProof(h vcx.Handle) error

	GetProofRequests(ctx context.Context, conn vcx.Handle) ([]*presentproof.RequestPresentation, error)
	CreateDisclosedProofWithRequest(sourceID string, requestJSON []byte) (vcx.Handle, error)
	CreateDisclosedProofWithMsgID(ctx context.Context, sourceID string, conn vcx.Handle,
		msgID string) (vcx.Handle, error)
	RetrieveCredentials(ctx context.Context, h vcx.Handle) (*anoncreds.RetrievedCredentials, error)
	GenerateProof(ctx context.Context, h vcx.Handle, selected *anoncreds.SelectedCredentials,
		selfAttested map[string]string) error
	SendProof(ctx context.Context, h, conn vcx.Handle) error
	RejectProof(ctx context.Context, h, conn vcx.Handle, reason string) error
	DeclineProofRequest(ctx context.Context, h, conn vcx.Handle, reason string,
		proposal *presentproof.PresentationPreview) error
	DisclosedProofMessage(h vcx.Handle) (*presentproof.Presentation, error)
	DisclosedProofRejectMessage(h vcx.Handle) (*presentproof.Description, error)
	UpdateDisclosedProofState(ctx context.Context, h, conn vcx.Handle) (presentproof.State, error)
	UpdateDisclosedProofStateWithMessage(ctx context.Context, h vcx.Handle, payload []byte) (presentproof.State, error)
	DisclosedProofState(h vcx.Handle) (presentproof.State, error)
	SerializeDisclosedProof(h vcx.Handle) ([]byte, error)
	DeserializeDisclosedProof(data []byte) (vcx.Handle, error)
	ReleaseDisclosedProof(h vcx.Handle) error
}

// Command provides controller API for both sides of the proof exchange.
type Command struct {
	engine   Engine
	verifier cmdutil.Runner
	prover   cmdutil.Runner
}

// New returns new present proof controller command instance.
func New(engine Engine) *Command {
	return &Command{
		engine:   engine,
		verifier: cmdutil.Runner{Logger: logger, Command: VerifierCommandName, InvalidRequest: InvalidRequestErrorCode},
		prover:   cmdutil.Runner{Logger: logger, Command: ProverCommandName, InvalidRequest: InvalidRequestErrorCode},
	}
}

// GetHandlers returns list of all commands supported by this controller command.
func (c *Command) GetHandlers() []command.Handler {
	return []command.Handler{
		cmdutil.NewCommandHandler(VerifierCommandName, CreateCommandMethod, c.Create),
		cmdutil.NewCommandHandler(VerifierCommandName, SendRequestCommandMethod, c.SendRequest),
		cmdutil.NewCommandHandler(VerifierCommandName, RequestMessageCommandMethod, c.RequestMessage),
		cmdutil.NewCommandHandler(VerifierCommandName, UpdateStateCommandMethod, c.UpdateState),
		cmdutil.NewCommandHandler(VerifierCommandName, UpdateStateWithMessageCommandMethod, c.UpdateStateWithMessage),
		cmdutil.NewCommandHandler(VerifierCommandName, GetStateCommandMethod, c.GetState),
		cmdutil.NewCommandHandler(VerifierCommandName, GetProofCommandMethod, c.GetProof),
		cmdutil.NewCommandHandler(VerifierCommandName, SerializeCommandMethod, c.Serialize),
		cmdutil.NewCommandHandler(VerifierCommandName, DeserializeCommandMethod, c.Deserialize),
		cmdutil.NewCommandHandler(VerifierCommandName, ReleaseCommandMethod, c.Release),

		cmdutil.NewCommandHandler(ProverCommandName, GetRequestsCommandMethod, c.GetRequests),
		cmdutil.NewCommandHandler(ProverCommandName, CreateWithRequestCommandMethod, c.CreateWithRequest),
		cmdutil.NewCommandHandler(ProverCommandName, CreateWithMsgIDCommandMethod, c.CreateWithMsgID),
		cmdutil.NewCommandHandler(ProverCommandName, RetrieveCredentialsCommandMethod, c.RetrieveCredentials),
		cmdutil.NewCommandHandler(ProverCommandName, GenerateCommandMethod, c.Generate),
		cmdutil.NewCommandHandler(ProverCommandName, SendCommandMethod, c.Send),
		cmdutil.NewCommandHandler(ProverCommandName, RejectCommandMethod, c.Reject),
		cmdutil.NewCommandHandler(ProverCommandName, DeclineCommandMethod, c.Decline),
		cmdutil.NewCommandHandler(ProverCommandName, PresentationCommandMethod, c.Presentation),
		cmdutil.NewCommandHandler(ProverCommandName, RejectMessageCommandMethod, c.RejectMessage),
		cmdutil.NewCommandHandler(ProverCommandName, UpdateStateCommandMethod, c.UpdateProverState),
		cmdutil.NewCommandHandler(ProverCommandName, UpdateStateWithMessageCommandMethod, c.UpdateProverStateWithMessage),
		cmdutil.NewCommandHandler(ProverCommandName, GetStateCommandMethod, c.ProverState),
		cmdutil.NewCommandHandler(ProverCommandName, SerializeCommandMethod, c.SerializeProver),
		cmdutil.NewCommandHandler(ProverCommandName, DeserializeCommandMethod, c.DeserializeProver),
		cmdutil.NewCommandHandler(ProverCommandName, ReleaseCommandMethod, c.ReleaseProver),
	}
}

// Create prepares a proof request.
func (c *Command) Create(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.verifier, CreateCommandMethod, CreateErrorCode, rw, req,
		func(r *CreateProofRequest) (interface{}, error) {
			if err := cmdutil.Required(InvalidRequestErrorCode, "source_id", r.SourceID,
				"requested_attrs", r.Attributes); err != nil {
				return nil, err
			}

			h, err := c.engine.CreateProof(r.SourceID, r.Attributes, r.Predicates, r.RevocationInterval, r.Name)

			return &HandleResponse{Handle: h}, err
		})
}

// SendRequest sends the proof request over a connection.
func (c *Command) SendRequest(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.verifier, SendRequestCommandMethod, ProtocolErrorCode, rw, req,
		func(r *ConnectionRequest) (interface{}, error) {
			return nil, c.engine.SendProofRequest(context.Background(), r.Handle, r.Connection)
		})
}

// RequestMessage returns the proof request message.
func (c *Command) RequestMessage(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.verifier, RequestMessageCommandMethod, ReadErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			return c.engine.ProofRequestMessage(r.Handle)
		})
}

// UpdateState applies the proof messages received on a connection.
func (c *Command) UpdateState(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.verifier, UpdateStateCommandMethod, ProtocolErrorCode, rw, req,
		func(r *ConnectionRequest) (interface{}, error) {
			return stateResponse(c.engine.UpdateProofState(context.Background(), r.Handle, r.Connection))
		})
}

// UpdateStateWithMessage applies one proof message.
func (c *Command) UpdateStateWithMessage(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.verifier, UpdateStateWithMessageCommandMethod, ProtocolErrorCode, rw, req,
		func(r *UpdateWithMessageRequest) (interface{}, error) {
			if err := cmdutil.Required(InvalidRequestErrorCode, "message", r.Message); err != nil {
				return nil, err
			}

			return stateResponse(c.engine.UpdateProofStateWithMessage(context.Background(), r.Handle,
				r.Connection, r.Message))
		})
}

// GetState returns the verifier state.
func (c *Command) GetState(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.verifier, GetStateCommandMethod, ReadErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			return stateResponse(c.engine.ProofState(r.Handle))
		})
}

// GetProof returns the received presentation and its verification outcome.
func (c *Command) GetProof(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.verifier, GetProofCommandMethod, ReadErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			return c.engine.GetProof(r.Handle)
		})
}

// Serialize returns the versioned JSON of a verifier exchange.
func (c *Command) Serialize(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.verifier, SerializeCommandMethod, SerializationErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			data, err := c.engine.SerializeProof(r.Handle)

			return &SerializedObject{Data: data}, err
		})
}

// Deserialize restores a verifier exchange.
func (c *Command) Deserialize(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.verifier, DeserializeCommandMethod, SerializationErrorCode, rw, req,
		func(r *SerializedObject) (interface{}, error) {
			h, err := c.engine.DeserializeProof(r.Data)

			return &HandleResponse{Handle: h}, err
		})
}

// Release releases a verifier handle.
func (c *Command) Release(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.verifier, ReleaseCommandMethod, ReleaseErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			return nil, c.engine.ReleaseProof(r.Handle)
		})
}

// GetRequests lists the valid proof requests pending on a connection.
func (c *Command) GetRequests(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.prover, GetRequestsCommandMethod, ReadErrorCode, rw, req,
		func(r *RequestsRequest) (interface{}, error) {
			requests, err := c.engine.GetProofRequests(context.Background(), r.Connection)

			return &RequestsResponse{Requests: requests}, err
		})
}

// CreateWithRequest starts a prover exchange from a proof request.
func (c *Command) CreateWithRequest(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.prover, CreateWithRequestCommandMethod, CreateErrorCode, rw, req,
		func(r *CreateWithRequestRequest) (interface{}, error) {
			if err := cmdutil.Required(InvalidRequestErrorCode, "source_id", r.SourceID,
				"request", r.Request); err != nil {
				return nil, err
			}

			h, err := c.engine.CreateDisclosedProofWithRequest(r.SourceID, r.Request)

			return &HandleResponse{Handle: h}, err
		})
}

// CreateWithMsgID starts a prover exchange from a request waiting at the agency.
func (c *Command) CreateWithMsgID(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.prover, CreateWithMsgIDCommandMethod, CreateErrorCode, rw, req,
		func(r *CreateWithMsgIDRequest) (interface{}, error) {
			if err := cmdutil.Required(InvalidRequestErrorCode, "source_id", r.SourceID,
				"msg_id", r.MsgID); err != nil {
				return nil, err
			}

			h, err := c.engine.CreateDisclosedProofWithMsgID(context.Background(), r.SourceID, r.Connection, r.MsgID)

			return &HandleResponse{Handle: h}, err
		})
}

// RetrieveCredentials returns the stored credentials matching each requested referent.
func (c *Command) RetrieveCredentials(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.prover, RetrieveCredentialsCommandMethod, ReadErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			return c.engine.RetrieveCredentials(context.Background(), r.Handle)
		})
}

// Generate builds the presentation from the selected credentials.
func (c *Command) Generate(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.prover, GenerateCommandMethod, ProtocolErrorCode, rw, req,
		func(r *GenerateRequest) (interface{}, error) {
			if r.Selected == nil {
				r.Selected = &anoncreds.SelectedCredentials{}
			}

			return nil, c.engine.GenerateProof(context.Background(), r.Handle, r.Selected, r.SelfAttested)
		})
}

// Send sends the generated presentation.
func (c *Command) Send(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.prover, SendCommandMethod, ProtocolErrorCode, rw, req,
		func(r *ConnectionRequest) (interface{}, error) {
			return nil, c.engine.SendProof(context.Background(), r.Handle, r.Connection)
		})
}

// Reject refuses the proof request.
func (c *Command) Reject(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.prover, RejectCommandMethod, ProtocolErrorCode, rw, req,
		func(r *RejectRequest) (interface{}, error) {
			return nil, c.engine.RejectProof(context.Background(), r.Handle, r.Connection, r.Reason)
		})
}

// Decline refuses the proof request with a reason or a counter proposal.
func (c *Command) Decline(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.prover, DeclineCommandMethod, ProtocolErrorCode, rw, req,
		func(r *DeclineRequest) (interface{}, error) {
			return nil, c.engine.DeclineProofRequest(context.Background(), r.Handle, r.Connection, r.Reason, r.Proposal)
		})
}

// Presentation returns the presentation message.
func (c *Command) Presentation(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.prover, PresentationCommandMethod, ReadErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			return c.engine.DisclosedProofMessage(r.Handle)
		})
}

// RejectMessage returns the problem the verifier reported.
func (c *Command) RejectMessage(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.prover, RejectMessageCommandMethod, ReadErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			return c.engine.DisclosedProofRejectMessage(r.Handle)
		})
}

// UpdateProverState applies the proof messages received on a connection.
func (c *Command) UpdateProverState(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.prover, UpdateStateCommandMethod, ProtocolErrorCode, rw, req,
		func(r *ConnectionRequest) (interface{}, error) {
			return stateResponse(c.engine.UpdateDisclosedProofState(context.Background(), r.Handle, r.Connection))
		})
}

// UpdateProverStateWithMessage applies one proof message.
func (c *Command) UpdateProverStateWithMessage(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.prover, UpdateStateWithMessageCommandMethod, ProtocolErrorCode, rw, req,
		func(r *UpdateWithMessageRequest) (interface{}, error) {
			if err := cmdutil.Required(InvalidRequestErrorCode, "message", r.Message); err != nil {
				return nil, err
			}

			return stateResponse(c.engine.UpdateDisclosedProofStateWithMessage(context.Background(), r.Handle,
				r.Message))
		})
}

// ProverState returns the prover state.
func (c *Command) ProverState(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.prover, GetStateCommandMethod, ReadErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			return stateResponse(c.engine.DisclosedProofState(r.Handle))
		})
}

// SerializeProver returns the versioned JSON of a prover exchange.
func (c *Command) SerializeProver(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.prover, SerializeCommandMethod, SerializationErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			data, err := c.engine.SerializeDisclosedProof(r.Handle)

			return &SerializedObject{Data: data}, err
		})
}

// DeserializeProver restores a prover exchange.
func (c *Command) DeserializeProver(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.prover, DeserializeCommandMethod, SerializationErrorCode, rw, req,
		func(r *SerializedObject) (interface{}, error) {
			h, err := c.engine.DeserializeDisclosedProof(r.Data)

			return &HandleResponse{Handle: h}, err
		})
}

// ReleaseProver releases a prover handle.
func (c *Command) ReleaseProver(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.prover, ReleaseCommandMethod, ReleaseErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			return nil, c.engine.ReleaseDisclosedProof(r.Handle)
		})
}

func stateResponse(state presentproof.State, err error) (interface{}, error) {
	if err != nil {
		return nil, err
	}

	return &StateResponse{State: state, Name: state.String()}, nil
}
