/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package messaging

import (
	"context"
	"io"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-vcx-go/pkg/controller/command"
	"github.com/hyperledger/aries-vcx-go/pkg/controller/internal/cmdutil"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/transport"
	"github.com/hyperledger/aries-vcx-go/pkg/vcx"
)

var logger = log.New("vcx/controller/messaging")

// CommandName package command name.
const CommandName = "messaging"

// command methods.
const (
	GetMessagesCommandMethod       = "GetMessages"
	UpdateMessagesCommandMethod    = "UpdateMessages"
	ConnectionByPwDIDCommandMethod = "ConnectionByPwDID"
)

const (
	// InvalidRequestErrorCode is typically a code for invalid requests.
	InvalidRequestErrorCode = command.Code(iota + command.Messaging)
	// GetMessagesErrorCode is for failures downloading messages.
	GetMessagesErrorCode
	// UpdateMessagesErrorCode is for failures updating message status.
	UpdateMessagesErrorCode
	// LookupErrorCode is for failures finding a connection.
	LookupErrorCode
)

// Engine is the part of the engine the messaging commands run on.
type Engine interface {
	GetMessages(ctx context.Context, statuses []transport.Status, uids,
		pwDIDs []string) ([]vcx.ConnectionMessages, error)
	UpdateMessages(ctx context.Context, status transport.Status, updates []vcx.MessageStatusUpdate) error
	ConnectionByPwDID(pwDID string) (vcx.Handle, error)
}

// Command provides controller API for agency messages.
type Command struct {
	engine Engine
	runner cmdutil.Runner
}

// New returns new messaging controller command instance.
func New(engine Engine) *Command {
	return &Command{
		engine: engine,
		runner: cmdutil.Runner{Logger: logger, Command: CommandName, InvalidRequest: InvalidRequestErrorCode},
	}
}

// GetHandlers returns list of all commands supported by this controller command.
func (c *Command) GetHandlers() []command.Handler {
	return []command.Handler{
		cmdutil.NewCommandHandler(CommandName, GetMessagesCommandMethod, c.GetMessages),
		cmdutil.NewCommandHandler(CommandName, UpdateMessagesCommandMethod, c.UpdateMessages),
		cmdutil.NewCommandHandler(CommandName, ConnectionByPwDIDCommandMethod, c.ConnectionByPwDID),
	}
}

// GetMessages downloads agency messages of the live connections.
func (c *Command) GetMessages(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, GetMessagesCommandMethod, GetMessagesErrorCode, rw, req,
		func(r *GetMessagesRequest) (interface{}, error) {
			msgs, err := c.engine.GetMessages(context.Background(), r.Statuses, r.UIDs, r.PwDIDs)

			return &GetMessagesResponse{Connections: msgs}, err
		})
}

// UpdateMessages sets the status of agency messages.
func (c *Command) UpdateMessages(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, UpdateMessagesCommandMethod, UpdateMessagesErrorCode, rw, req,
		func(r *UpdateMessagesRequest) (interface{}, error) {
			return nil, c.engine.UpdateMessages(context.Background(), r.Status, r.Updates)
		})
}

// ConnectionByPwDID returns the live connection with a pairwise DID.
func (c *Command) ConnectionByPwDID(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, ConnectionByPwDIDCommandMethod, LookupErrorCode, rw, req,
		func(r *PwDIDRequest) (interface{}, error) {
			if err := cmdutil.Required(InvalidRequestErrorCode, "pw_did", r.PwDID); err != nil {
				return nil, err
			}

			h, err := c.engine.ConnectionByPwDID(r.PwDID)

			return &HandleResponse{Handle: h}, err
		})
}
