/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuecredential

import (
	"context"
	"io"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-vcx-go/pkg/anoncreds"
	"github.com/hyperledger/aries-vcx-go/pkg/controller/command"
	"github.com/hyperledger/aries-vcx-go/pkg/controller/internal/cmdutil"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/issuecredential"
	"github.com/hyperledger/aries-vcx-go/pkg/vcx"
)

var logger = log.New("vcx/controller/issuecredential")

// command names of the two sides of the exchange.
const (
	IssuerCommandName = "issuer_credential"
	HolderCommandName = "credential"
)

// issuer command methods.
const (
	CreateOfferCommandMethod           = "CreateOffer"
	SendOfferCommandMethod             = "SendOffer"
	OfferMessageCommandMethod          = "OfferMessage"
	UpdateIssuerStateCommandMethod     = "UpdateState"
	UpdateIssuerStateWithMessageMethod = "UpdateStateWithMessage"
	IssuerStateCommandMethod           = "GetState"
	SendCredentialCommandMethod        = "SendCredential"
	CredentialMessageCommandMethod     = "CredentialMessage"
	RevokeCommandMethod                = "Revoke"
	RevocationInfoCommandMethod        = "RevocationInfo"
	TerminateCommandMethod             = "Terminate"
	SerializeIssuerCommandMethod       = "Serialize"
	DeserializeIssuerCommandMethod     = "Deserialize"
	ReleaseIssuerCommandMethod         = "Release"
	GetOffersCommandMethod             = "GetOffers"
	CreateWithOfferCommandMethod       = "CreateWithOffer"
	CreateWithMsgIDCommandMethod       = "CreateWithMsgID"
	SendRequestCommandMethod           = "SendRequest"
	RequestMessageCommandMethod        = "RequestMessage"
	UpdateHolderStateCommandMethod     = "UpdateState"
	UpdateHolderStateWithMessageMethod = "UpdateStateWithMessage"
	HolderStateCommandMethod           = "GetState"
	GetCredentialCommandMethod         = "GetCredential"
	RevokedCommandMethod               = "Revoked"
	RejectCommandMethod                = "Reject"
	DeleteCommandMethod                = "Delete"
	SerializeHolderCommandMethod       = "Serialize"
	DeserializeHolderCommandMethod     = "Deserialize"
	ReleaseHolderCommandMethod         = "Release"
)

const (
	// InvalidRequestErrorCode is typically a code for invalid requests.
	InvalidRequestErrorCode = command.Code(iota + command.IssueCredential)
	// CreateErrorCode is for failures creating an exchange.
	CreateErrorCode
	// ProtocolErrorCode is for failures driving the exchange.
	ProtocolErrorCode
	// ReadErrorCode is for failures reading exchange details.
	ReadErrorCode
	// RevocationErrorCode is for revocation failures.
	RevocationErrorCode
	// SerializationErrorCode is for serialize and deserialize failures.
	SerializationErrorCode
	// ReleaseErrorCode is for delete and release failures.
	ReleaseErrorCode
)

// Engine is the part of the engine the credential commands run on.
type Engine interface {
	CreateIssuerCredential(sourceID string, credDef vcx.Handle, attrsJSON []byte, name, price string) (vcx.Handle, error)
	SendCredentialOffer(ctx context.Context, h, conn vcx.Handle) error
	CredentialOfferMessage(h vcx.Handle) (*issuecredential.OfferCredential, error)
	UpdateIssuerState(ctx context.Context, h, conn vcx.Handle) (issuecredential.State, error)
	UpdateIssuerStateWithMessage(ctx context.Context, h vcx.Handle, payload []byte) (issuecredential.State, error)
	IssuerState(h vcx.Handle) (issuecredential.State, error)
	SendCredential(ctx context.Context, h, conn vcx.Handle) error
	CredentialMessage(h vcx.Handle) (*issuecredential.IssueCredential, error)
	RevokeCredential(ctx context.Context, h vcx.Handle) error
	IssuerRevocationInfo(h vcx.Handle) (anoncreds.RevocationInfo, error)
	TerminateCredential(ctx context.Context, h, conn vcx.Handle, reason string) error
	SerializeIssuerCredential(h vcx.Handle) ([]byte, error)
	DeserializeIssuerCredential(data []byte) (vcx.Handle, error)
	ReleaseIssuerCredential(h vcx.Handle) error

	GetCredentialOffers(ctx context.Context, conn vcx.Handle) ([]*issuecredential.OfferCredential, error)
	CreateCredentialWithOffer(sourceID string, offerJSON []byte) (vcx.Handle, error)
	CreateCredentialWithMsgID(ctx context.Context, sourceID string, conn vcx.Handle, msgID string) (vcx.Handle, error)
	SendCredentialRequest(ctx context.Context, h, conn vcx.Handle) error
	CredentialRequestMessage(h vcx.Handle) (*issuecredential.RequestCredential, error)
	UpdateCredentialState(ctx context.Context, h, conn vcx.Handle) (issuecredential.State, error)
	UpdateCredentialStateWithMessage(ctx context.Context, h, conn vcx.Handle,
		payload []byte) (issuecredential.State, error)
	CredentialState(h vcx.Handle) (issuecredential.State, error)
	GetCredential(h vcx.Handle) (*anoncreds.Credential, error)
	CredentialRevoked(ctx context.Context, h vcx.Handle) (bool, error)
	RejectCredential(ctx context.Context, h, conn vcx.Handle, reason string) error
	DeleteCredential(ctx context.Context, h vcx.Handle) error
	SerializeCredential(h vcx.Handle) ([]byte, error)
	DeserializeCredential(data []byte) (vcx.Handle, error)
	ReleaseCredential(h vcx.Handle) error
}

// Command provides controller API for both sides of the credential exchange.
type Command struct {
	engine Engine
	issuer cmdutil.Runner
	holder cmdutil.Runner
}

// New returns new issue credential controller command instance.
func New(engine Engine) *Command {
	return &Command{
		engine: engine,
		issuer: cmdutil.Runner{Logger: logger, Command: IssuerCommandName, InvalidRequest: InvalidRequestErrorCode},
		holder: cmdutil.Runner{Logger: logger, Command: HolderCommandName, InvalidRequest: InvalidRequestErrorCode},
	}
}

// GetHandlers returns list of all commands supported by this controller command.
func (c *Command) GetHandlers() []command.Handler {
	return []command.Handler{
		cmdutil.NewCommandHandler(IssuerCommandName, CreateOfferCommandMethod, c.CreateOffer),
		cmdutil.NewCommandHandler(IssuerCommandName, SendOfferCommandMethod, c.SendOffer),
		cmdutil.NewCommandHandler(IssuerCommandName, OfferMessageCommandMethod, c.OfferMessage),
		cmdutil.NewCommandHandler(IssuerCommandName, UpdateIssuerStateCommandMethod, c.UpdateIssuerState),
		cmdutil.NewCommandHandler(IssuerCommandName, UpdateIssuerStateWithMessageMethod, c.UpdateIssuerStateWithMessage),
		cmdutil.NewCommandHandler(IssuerCommandName, IssuerStateCommandMethod, c.IssuerState),
		cmdutil.NewCommandHandler(IssuerCommandName, SendCredentialCommandMethod, c.SendCredential),
		cmdutil.NewCommandHandler(IssuerCommandName, CredentialMessageCommandMethod, c.CredentialMessage),
		cmdutil.NewCommandHandler(IssuerCommandName, RevokeCommandMethod, c.Revoke),
		cmdutil.NewCommandHandler(IssuerCommandName, RevocationInfoCommandMethod, c.RevocationInfo),
		cmdutil.NewCommandHandler(IssuerCommandName, TerminateCommandMethod, c.Terminate),
		cmdutil.NewCommandHandler(IssuerCommandName, SerializeIssuerCommandMethod, c.SerializeIssuer),
		cmdutil.NewCommandHandler(IssuerCommandName, DeserializeIssuerCommandMethod, c.DeserializeIssuer),
		cmdutil.NewCommandHandler(IssuerCommandName, ReleaseIssuerCommandMethod, c.ReleaseIssuer),

		cmdutil.NewCommandHandler(HolderCommandName, GetOffersCommandMethod, c.GetOffers),
		cmdutil.NewCommandHandler(HolderCommandName, CreateWithOfferCommandMethod, c.CreateWithOffer),
		cmdutil.NewCommandHandler(HolderCommandName, CreateWithMsgIDCommandMethod, c.CreateWithMsgID),
		cmdutil.NewCommandHandler(HolderCommandName, SendRequestCommandMethod, c.SendRequest),
		cmdutil.NewCommandHandler(HolderCommandName, RequestMessageCommandMethod, c.RequestMessage),
		cmdutil.NewCommandHandler(HolderCommandName, UpdateHolderStateCommandMethod, c.UpdateHolderState),
		cmdutil.NewCommandHandler(HolderCommandName, UpdateHolderStateWithMessageMethod, c.UpdateHolderStateWithMessage),
		cmdutil.NewCommandHandler(HolderCommandName, HolderStateCommandMethod, c.HolderState),
		cmdutil.NewCommandHandler(HolderCommandName, GetCredentialCommandMethod, c.GetCredential),
		cmdutil.NewCommandHandler(HolderCommandName, RevokedCommandMethod, c.Revoked),
		cmdutil.NewCommandHandler(HolderCommandName, RejectCommandMethod, c.Reject),
		cmdutil.NewCommandHandler(HolderCommandName, DeleteCommandMethod, c.Delete),
		cmdutil.NewCommandHandler(HolderCommandName, SerializeHolderCommandMethod, c.SerializeHolder),
		cmdutil.NewCommandHandler(HolderCommandName, DeserializeHolderCommandMethod, c.DeserializeHolder),
		cmdutil.NewCommandHandler(HolderCommandName, ReleaseHolderCommandMethod, c.ReleaseHolder),
	}
}

// CreateOffer prepares a credential offer under a credential definition.
func (c *Command) CreateOffer(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.issuer, CreateOfferCommandMethod, CreateErrorCode, rw, req,
		func(r *CreateOfferRequest) (interface{}, error) {
			if err := cmdutil.Required(InvalidRequestErrorCode, "source_id", r.SourceID,
				"credential_data", r.Attributes); err != nil {
				return nil, err
			}

			h, err := c.engine.CreateIssuerCredential(r.SourceID, r.CredDef, r.Attributes, r.Name, r.Price)

			return &HandleResponse{Handle: h}, err
		})
}

// SendOffer sends the offer over a connection.
func (c *Command) SendOffer(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.issuer, SendOfferCommandMethod, ProtocolErrorCode, rw, req,
		func(r *ConnectionRequest) (interface{}, error) {
			return nil, c.engine.SendCredentialOffer(context.Background(), r.Handle, r.Connection)
		})
}

// OfferMessage returns the offer message.
func (c *Command) OfferMessage(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.issuer, OfferMessageCommandMethod, ReadErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			return c.engine.CredentialOfferMessage(r.Handle)
		})
}

// UpdateIssuerState applies the credential messages received on a connection.
func (c *Command) UpdateIssuerState(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.issuer, UpdateIssuerStateCommandMethod, ProtocolErrorCode, rw, req,
		func(r *ConnectionRequest) (interface{}, error) {
			return stateResponse(c.engine.UpdateIssuerState(context.Background(), r.Handle, r.Connection))
		})
}

// UpdateIssuerStateWithMessage applies one credential message.
func (c *Command) UpdateIssuerStateWithMessage(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.issuer, UpdateIssuerStateWithMessageMethod, ProtocolErrorCode, rw, req,
		func(r *UpdateWithMessageRequest) (interface{}, error) {
			if err := cmdutil.Required(InvalidRequestErrorCode, "message", r.Message); err != nil {
				return nil, err
			}

			return stateResponse(c.engine.UpdateIssuerStateWithMessage(context.Background(), r.Handle, r.Message))
		})
}

// IssuerState returns the issuer state.
func (c *Command) IssuerState(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.issuer, IssuerStateCommandMethod, ReadErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			return stateResponse(c.engine.IssuerState(r.Handle))
		})
}

// SendCredential issues the requested credential.
func (c *Command) SendCredential(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.issuer, SendCredentialCommandMethod, ProtocolErrorCode, rw, req,
		func(r *ConnectionRequest) (interface{}, error) {
			return nil, c.engine.SendCredential(context.Background(), r.Handle, r.Connection)
		})
}

// CredentialMessage returns the credential message sent.
func (c *Command) CredentialMessage(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.issuer, CredentialMessageCommandMethod, ReadErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			return c.engine.CredentialMessage(r.Handle)
		})
}

// Revoke revokes the issued credential.
func (c *Command) Revoke(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.issuer, RevokeCommandMethod, RevocationErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			return nil, c.engine.RevokeCredential(context.Background(), r.Handle)
		})
}

// RevocationInfo returns where the issued credential sits in its revocation registry.
func (c *Command) RevocationInfo(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.issuer, RevocationInfoCommandMethod, RevocationErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			return c.engine.IssuerRevocationInfo(r.Handle)
		})
}

// Terminate abandons the exchange.
func (c *Command) Terminate(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.issuer, TerminateCommandMethod, ProtocolErrorCode, rw, req,
		func(r *ReasonRequest) (interface{}, error) {
			return nil, c.engine.TerminateCredential(context.Background(), r.Handle, r.Connection, r.Reason)
		})
}

// SerializeIssuer returns the versioned JSON of an issuer exchange.
func (c *Command) SerializeIssuer(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.issuer, SerializeIssuerCommandMethod, SerializationErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			data, err := c.engine.SerializeIssuerCredential(r.Handle)

			return &SerializedObject{Data: data}, err
		})
}

// DeserializeIssuer restores an issuer exchange.
func (c *Command) DeserializeIssuer(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.issuer, DeserializeIssuerCommandMethod, SerializationErrorCode, rw, req,
		func(r *SerializedObject) (interface{}, error) {
			h, err := c.engine.DeserializeIssuerCredential(r.Data)

			return &HandleResponse{Handle: h}, err
		})
}

// ReleaseIssuer releases an issuer handle.
func (c *Command) ReleaseIssuer(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.issuer, ReleaseIssuerCommandMethod, ReleaseErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			return nil, c.engine.ReleaseIssuerCredential(r.Handle)
		})
}

// GetOffers lists the valid offers pending on a connection.
func (c *Command) GetOffers(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.holder, GetOffersCommandMethod, ReadErrorCode, rw, req,
		func(r *OffersRequest) (interface{}, error) {
			offers, err := c.engine.GetCredentialOffers(context.Background(), r.Connection)

			return &OffersResponse{Offers: offers}, err
		})
}

// CreateWithOffer starts a holder exchange from an offer.
func (c *Command) CreateWithOffer(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.holder, CreateWithOfferCommandMethod, CreateErrorCode, rw, req,
		func(r *CreateWithOfferRequest) (interface{}, error) {
			if err := cmdutil.Required(InvalidRequestErrorCode, "source_id", r.SourceID,
				"offer", r.Offer); err != nil {
				return nil, err
			}

			h, err := c.engine.CreateCredentialWithOffer(r.SourceID, r.Offer)

			return &HandleResponse{Handle: h}, err
		})
}

// CreateWithMsgID starts a holder exchange from an offer waiting at the agency.
func (c *Command) CreateWithMsgID(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.holder, CreateWithMsgIDCommandMethod, CreateErrorCode, rw, req,
		func(r *CreateWithMsgIDRequest) (interface{}, error) {
			if err := cmdutil.Required(InvalidRequestErrorCode, "source_id", r.SourceID,
				"msg_id", r.MsgID); err != nil {
				return nil, err
			}

			h, err := c.engine.CreateCredentialWithMsgID(context.Background(), r.SourceID, r.Connection, r.MsgID)

			return &HandleResponse{Handle: h}, err
		})
}

// SendRequest requests the offered credential.
func (c *Command) SendRequest(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.holder, SendRequestCommandMethod, ProtocolErrorCode, rw, req,
		func(r *ConnectionRequest) (interface{}, error) {
			return nil, c.engine.SendCredentialRequest(context.Background(), r.Handle, r.Connection)
		})
}

// RequestMessage returns the credential request message.
func (c *Command) RequestMessage(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.holder, RequestMessageCommandMethod, ReadErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			return c.engine.CredentialRequestMessage(r.Handle)
		})
}

// UpdateHolderState applies the credential messages received on a connection.
func (c *Command) UpdateHolderState(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.holder, UpdateHolderStateCommandMethod, ProtocolErrorCode, rw, req,
		func(r *ConnectionRequest) (interface{}, error) {
			return stateResponse(c.engine.UpdateCredentialState(context.Background(), r.Handle, r.Connection))
		})
}

// UpdateHolderStateWithMessage applies one credential message.
func (c *Command) UpdateHolderStateWithMessage(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.holder, UpdateHolderStateWithMessageMethod, ProtocolErrorCode, rw, req,
		func(r *UpdateWithMessageRequest) (interface{}, error) {
			if err := cmdutil.Required(InvalidRequestErrorCode, "message", r.Message); err != nil {
				return nil, err
			}

			return stateResponse(c.engine.UpdateCredentialStateWithMessage(context.Background(), r.Handle,
				r.Connection, r.Message))
		})
}

// HolderState returns the holder state.
func (c *Command) HolderState(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.holder, HolderStateCommandMethod, ReadErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			return stateResponse(c.engine.CredentialState(r.Handle))
		})
}

// GetCredential returns the received credential.
func (c *Command) GetCredential(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.holder, GetCredentialCommandMethod, ReadErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			return c.engine.GetCredential(r.Handle)
		})
}

// Revoked reports whether the received credential has been revoked.
func (c *Command) Revoked(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.holder, RevokedCommandMethod, RevocationErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			revoked, err := c.engine.CredentialRevoked(context.Background(), r.Handle)

			return &RevokedResponse{Revoked: revoked}, err
		})
}

// Reject refuses the offer.
func (c *Command) Reject(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.holder, RejectCommandMethod, ProtocolErrorCode, rw, req,
		func(r *ReasonRequest) (interface{}, error) {
			return nil, c.engine.RejectCredential(context.Background(), r.Handle, r.Connection, r.Reason)
		})
}

// Delete removes the stored credential and releases the handle.
func (c *Command) Delete(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.holder, DeleteCommandMethod, ReleaseErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			return nil, c.engine.DeleteCredential(context.Background(), r.Handle)
		})
}

// SerializeHolder returns the versioned JSON of a holder exchange.
func (c *Command) SerializeHolder(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.holder, SerializeHolderCommandMethod, SerializationErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			data, err := c.engine.SerializeCredential(r.Handle)

			return &SerializedObject{Data: data}, err
		})
}

// DeserializeHolder restores a holder exchange.
func (c *Command) DeserializeHolder(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.holder, DeserializeHolderCommandMethod, SerializationErrorCode, rw, req,
		func(r *SerializedObject) (interface{}, error) {
			h, err := c.engine.DeserializeCredential(r.Data)

			return &HandleResponse{Handle: h}, err
		})
}

// ReleaseHolder releases a holder handle.
func (c *Command) ReleaseHolder(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.holder, ReleaseHolderCommandMethod, ReleaseErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			return nil, c.engine.ReleaseCredential(r.Handle)
		})
}

func stateResponse(state issuecredential.State, err error) (interface{}, error) {
	if err != nil {
		return nil, err
	}

	return &StateResponse{State: state, Name: state.String()}, nil
}
