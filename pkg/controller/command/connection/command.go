/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package connection

import (
	"context"
	"io"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-vcx-go/pkg/controller/command"
	"github.com/hyperledger/aries-vcx-go/pkg/controller/internal/cmdutil"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/connection"
	"github.com/hyperledger/aries-vcx-go/pkg/vcx"
)

var logger = log.New("vcx/controller/connection")

// constants for the connection commands.
const (
	CommandName = "connection"

	CreateCommandMethod                 = "Create"
	CreateWithInviteCommandMethod       = "CreateWithInvite"
	ConnectCommandMethod                = "Connect"
	UpdateStateCommandMethod            = "UpdateState"
	UpdateStateWithMessageCommandMethod = "UpdateStateWithMessage"
	GetStateCommandMethod               = "GetState"
	InviteDetailsCommandMethod          = "InviteDetails"
	InfoCommandMethod                   = "Info"
	PwDIDCommandMethod                  = "PwDID"
	TheirPwDIDCommandMethod             = "TheirPwDID"
	SendMessageCommandMethod            = "SendMessage"
	SendPingCommandMethod               = "SendPing"
	SignDataCommandMethod               = "SignData"
	VerifySignatureCommandMethod        = "VerifySignature"
	RedirectCommandMethod               = "Redirect"
	RedirectDetailsCommandMethod        = "RedirectDetails"
	SerializeCommandMethod              = "Serialize"
	DeserializeCommandMethod            = "Deserialize"
	DeleteCommandMethod                 = "Delete"
	ReleaseCommandMethod                = "Release"
)

const (
	// InvalidRequestErrorCode is typically a code for invalid requests.
	InvalidRequestErrorCode = command.Code(iota + command.Connection)
	// CreateConnectionErrorCode is for failures in create commands.
	CreateConnectionErrorCode
	// ProtocolErrorCode is for failures driving the connection protocol.
	ProtocolErrorCode
	// ReadErrorCode is for failures reading connection details.
	ReadErrorCode
	// SendErrorCode is for failures sending over the connection.
	SendErrorCode
	// SignatureErrorCode is for failures signing or verifying.
	SignatureErrorCode
	// SerializationErrorCode is for serialize and deserialize failures.
	SerializationErrorCode
	// ReleaseErrorCode is for delete and release failures.
	ReleaseErrorCode
)

// Engine is the part of the engine the connection commands run on.
type Engine interface {
	CreateConnection(ctx context.Context, sourceID string) (vcx.Handle, error)
	CreateConnectionWithInvite(ctx context.Context, sourceID string, invite []byte) (vcx.Handle, error)
	Connect(ctx context.Context, h vcx.Handle) error
	UpdateConnectionState(ctx context.Context, h vcx.Handle) (connection.State, error)
	UpdateConnectionStateWithMessage(ctx context.Context, h vcx.Handle, payload []byte) (connection.State, error)
	ConnectionState(h vcx.Handle) (connection.State, error)
	InviteDetails(h vcx.Handle) (*connection.Invitation, error)
	ConnectionInfo(h vcx.Handle) (connection.Info, error)
	ConnectionPwDID(h vcx.Handle) (string, error)
	ConnectionTheirPwDID(h vcx.Handle) (string, error)
	SendMessage(ctx context.Context, h vcx.Handle, content string, opts connection.SendOptions) (string, error)
	SendPing(ctx context.Context, h vcx.Handle, comment string) error
	SignData(ctx context.Context, h vcx.Handle, data []byte) ([]byte, error)
	VerifySignature(h vcx.Handle, data, signature []byte) (bool, error)
	RedirectConnection(ctx context.Context, h, existing vcx.Handle) error
	RedirectDetails(h vcx.Handle) (*connection.RedirectDetails, error)
	SerializeConnection(h vcx.Handle) ([]byte, error)
	DeserializeConnection(data []byte) (vcx.Handle, error)
	DeleteConnection(ctx context.Context, h vcx.Handle) error
	ReleaseConnection(h vcx.Handle) error
}

// Command provides controller API for connection commands.
type Command struct {
	engine Engine
	runner cmdutil.Runner
}

// New returns new connection controller command instance.
func New(engine Engine) *Command {
	return &Command{
		engine: engine,
		runner: cmdutil.Runner{Logger: logger, Command: CommandName, InvalidRequest: InvalidRequestErrorCode},
	}
}

// GetHandlers returns list of all commands supported by this controller command.
func (c *Command) GetHandlers() []command.Handler {
	return []command.Handler{
		cmdutil.NewCommandHandler(CommandName, CreateCommandMethod, c.Create),
		cmdutil.NewCommandHandler(CommandName, CreateWithInviteCommandMethod, c.CreateWithInvite),
		cmdutil.NewCommandHandler(CommandName, ConnectCommandMethod, c.Connect),
		cmdutil.NewCommandHandler(CommandName, UpdateStateCommandMethod, c.UpdateState),
		cmdutil.NewCommandHandler(CommandName, UpdateStateWithMessageCommandMethod, c.UpdateStateWithMessage),
		cmdutil.NewCommandHandler(CommandName, GetStateCommandMethod, c.GetState),
		cmdutil.NewCommandHandler(CommandName, InviteDetailsCommandMethod, c.InviteDetails),
		cmdutil.NewCommandHandler(CommandName, InfoCommandMethod, c.Info),
		cmdutil.NewCommandHandler(CommandName, PwDIDCommandMethod, c.PwDID),
		cmdutil.NewCommandHandler(CommandName, TheirPwDIDCommandMethod, c.TheirPwDID),
		cmdutil.NewCommandHandler(CommandName, SendMessageCommandMethod, c.SendMessage),
		cmdutil.NewCommandHandler(CommandName, SendPingCommandMethod, c.SendPing),
		cmdutil.NewCommandHandler(CommandName, SignDataCommandMethod, c.SignData),
		cmdutil.NewCommandHandler(CommandName, VerifySignatureCommandMethod, c.VerifySignature),
		cmdutil.NewCommandHandler(CommandName, RedirectCommandMethod, c.Redirect),
		cmdutil.NewCommandHandler(CommandName, RedirectDetailsCommandMethod, c.RedirectDetails),
		cmdutil.NewCommandHandler(CommandName, SerializeCommandMethod, c.Serialize),
		cmdutil.NewCommandHandler(CommandName, DeserializeCommandMethod, c.Deserialize),
		cmdutil.NewCommandHandler(CommandName, DeleteCommandMethod, c.Delete),
		cmdutil.NewCommandHandler(CommandName, ReleaseCommandMethod, c.Release),
	}
}

// Create creates a connection as inviter.
func (c *Command) Create(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, CreateCommandMethod, CreateConnectionErrorCode, rw, req,
		func(r *CreateRequest) (interface{}, error) {
			if err := cmdutil.Required(InvalidRequestErrorCode, "source_id", r.SourceID); err != nil {
				return nil, err
			}

			h, err := c.engine.CreateConnection(context.Background(), r.SourceID)

			return &HandleResponse{Handle: h}, err
		})
}

// CreateWithInvite creates a connection as the invitee of an invitation.
func (c *Command) CreateWithInvite(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, CreateWithInviteCommandMethod, CreateConnectionErrorCode, rw, req,
		func(r *CreateWithInviteRequest) (interface{}, error) {
			if err := cmdutil.Required(InvalidRequestErrorCode, "source_id", r.SourceID,
				"invite", r.Invite); err != nil {
				return nil, err
			}

			h, err := c.engine.CreateConnectionWithInvite(context.Background(), r.SourceID, r.Invite)

			return &HandleResponse{Handle: h}, err
		})
}

// Connect sends the invitation or the connection request.
func (c *Command) Connect(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, ConnectCommandMethod, ProtocolErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			return nil, c.engine.Connect(context.Background(), r.Handle)
		})
}

// UpdateState applies the connection messages waiting at the agency.
func (c *Command) UpdateState(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, UpdateStateCommandMethod, ProtocolErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			return stateResponse(c.engine.UpdateConnectionState(context.Background(), r.Handle))
		})
}

// UpdateStateWithMessage applies one connection message.
func (c *Command) UpdateStateWithMessage(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, UpdateStateWithMessageCommandMethod, ProtocolErrorCode, rw, req,
		func(r *UpdateWithMessageRequest) (interface{}, error) {
			if err := cmdutil.Required(InvalidRequestErrorCode, "message", r.Message); err != nil {
				return nil, err
			}

			return stateResponse(c.engine.UpdateConnectionStateWithMessage(context.Background(), r.Handle, r.Message))
		})
}

// GetState returns the connection state.
func (c *Command) GetState(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, GetStateCommandMethod, ReadErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			return stateResponse(c.engine.ConnectionState(r.Handle))
		})
}

// InviteDetails returns the invitation of an inviter connection.
func (c *Command) InviteDetails(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, InviteDetailsCommandMethod, ReadErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			return c.engine.InviteDetails(r.Handle)
		})
}

// Info returns the connection details.
func (c *Command) Info(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, InfoCommandMethod, ReadErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			return c.engine.ConnectionInfo(r.Handle)
		})
}

// PwDID returns the local pairwise DID.
func (c *Command) PwDID(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, PwDIDCommandMethod, ReadErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			did, err := c.engine.ConnectionPwDID(r.Handle)

			return &PwDIDResponse{PwDID: did}, err
		})
}

// TheirPwDID returns the remote pairwise DID.
func (c *Command) TheirPwDID(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, TheirPwDIDCommandMethod, ReadErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			did, err := c.engine.ConnectionTheirPwDID(r.Handle)

			return &PwDIDResponse{PwDID: did}, err
		})
}

// SendMessage sends a basic message.
func (c *Command) SendMessage(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, SendMessageCommandMethod, SendErrorCode, rw, req,
		func(r *SendMessageRequest) (interface{}, error) {
			if err := cmdutil.Required(InvalidRequestErrorCode, "content", r.Content); err != nil {
				return nil, err
			}

			uid, err := c.engine.SendMessage(context.Background(), r.Handle, r.Content, connection.SendOptions{
				MsgType: r.MsgType, MsgTitle: r.MsgTitle, RefMsgID: r.RefMsgID,
			})

			return &MessageIDResponse{MsgID: uid}, err
		})
}

// SendPing sends a trust ping.
func (c *Command) SendPing(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, SendPingCommandMethod, SendErrorCode, rw, req,
		func(r *SendPingRequest) (interface{}, error) {
			return nil, c.engine.SendPing(context.Background(), r.Handle, r.Comment)
		})
}

// SignData signs data with the pairwise key.
func (c *Command) SignData(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, SignDataCommandMethod, SignatureErrorCode, rw, req,
		func(r *SignDataRequest) (interface{}, error) {
			sig, err := c.engine.SignData(context.Background(), r.Handle, r.Data)

			return &SignatureResponse{Signature: sig}, err
		})
}

// VerifySignature checks a signature of the remote party.
func (c *Command) VerifySignature(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, VerifySignatureCommandMethod, SignatureErrorCode, rw, req,
		func(r *VerifySignatureRequest) (interface{}, error) {
			valid, err := c.engine.VerifySignature(r.Handle, r.Data, r.Signature)

			return &VerifySignatureResponse{Valid: valid}, err
		})
}

// Redirect answers an invitation with an existing connection.
func (c *Command) Redirect(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, RedirectCommandMethod, ProtocolErrorCode, rw, req,
		func(r *RedirectRequest) (interface{}, error) {
			return nil, c.engine.RedirectConnection(context.Background(), r.Handle, r.Existing)
		})
}

// RedirectDetails returns the identity a connection was redirected to.
func (c *Command) RedirectDetails(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, RedirectDetailsCommandMethod, ReadErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			return c.engine.RedirectDetails(r.Handle)
		})
}

// Serialize returns the versioned JSON of a connection.
func (c *Command) Serialize(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, SerializeCommandMethod, SerializationErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			data, err := c.engine.SerializeConnection(r.Handle)

			return &SerializedObject{Data: data}, err
		})
}

// Deserialize restores a connection under a new handle.
func (c *Command) Deserialize(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, DeserializeCommandMethod, SerializationErrorCode, rw, req,
		func(r *SerializedObject) (interface{}, error) {
			if err := cmdutil.Required(InvalidRequestErrorCode, "data", r.Data); err != nil {
				return nil, err
			}

			h, err := c.engine.DeserializeConnection(r.Data)

			return &HandleResponse{Handle: h}, err
		})
}

// Delete retires the connection messages and releases the handle.
func (c *Command) Delete(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, DeleteCommandMethod, ReleaseErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			return nil, c.engine.DeleteConnection(context.Background(), r.Handle)
		})
}

// Release releases the handle.
func (c *Command) Release(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, ReleaseCommandMethod, ReleaseErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			return nil, c.engine.ReleaseConnection(r.Handle)
		})
}

func stateResponse(state connection.State, err error) (interface{}, error) {
	if err != nil {
		return nil, err
	}

	return &StateResponse{State: state, Name: state.String()}, nil
}
