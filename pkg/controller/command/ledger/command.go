/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"context"
	"io"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-vcx-go/pkg/controller/command"
	"github.com/hyperledger/aries-vcx-go/pkg/controller/internal/cmdutil"
	"github.com/hyperledger/aries-vcx-go/pkg/ledger"
	"github.com/hyperledger/aries-vcx-go/pkg/ledger/creddef"
	"github.com/hyperledger/aries-vcx-go/pkg/ledger/schema"
	"github.com/hyperledger/aries-vcx-go/pkg/vcx"
)

var logger = log.New("vcx/controller/ledger")

// command names.
const (
	SchemaCommandName        = "schema"
	CredentialDefCommandName = "credential_def"
	LedgerCommandName        = "ledger"
)

// command methods.
const (
	CreateCommandMethod         = "Create"
	GetAttributesCommandMethod  = "GetAttributes"
	UpdateStateCommandMethod    = "UpdateState"
	GetStateCommandMethod       = "GetState"
	GetIDCommandMethod          = "GetID"
	GetRevRegIDCommandMethod    = "GetRevRegID"
	SerializeCommandMethod      = "Serialize"
	DeserializeCommandMethod    = "Deserialize"
	ReleaseCommandMethod        = "Release"
	GetFeesCommandMethod        = "GetFees"
	GetAuthorAgreementMethod    = "GetAuthorAgreement"
	AcceptAuthorAgreementMethod = "AcceptAuthorAgreement"
	EndorseTransactionMethod    = "EndorseTransaction"
)

const (
	// InvalidRequestErrorCode is typically a code for invalid requests.
	InvalidRequestErrorCode = command.Code(iota + command.Ledger)
	// WriteErrorCode is for failures writing to the ledger.
	WriteErrorCode
	// ReadErrorCode is for failures reading from the ledger or a handle.
	ReadErrorCode
	// SerializationErrorCode is for serialize and deserialize failures.
	SerializationErrorCode
	// ReleaseErrorCode is for release failures.
	ReleaseErrorCode
	// AuthorAgreementErrorCode is for author agreement failures.
	AuthorAgreementErrorCode
)

// Engine is the part of the engine the ledger commands run on.
type Engine interface {
	CreateSchema(ctx context.Context, sourceID, name, version string, attrsJSON []byte) (vcx.Handle, error)
	PrepareSchemaForEndorser(ctx context.Context, sourceID, name, version string, attrsJSON []byte,
		endorser string) (vcx.Handle, []byte, error)
	GetSchemaAttributes(ctx context.Context, sourceID, schemaID string) (vcx.Handle, *schema.Schema, error)
	UpdateSchemaState(ctx context.Context, h vcx.Handle) (schema.State, error)
	SchemaState(h vcx.Handle) (schema.State, error)
	SchemaID(h vcx.Handle) (string, error)
	SerializeSchema(h vcx.Handle) ([]byte, error)
	DeserializeSchema(data []byte) (vcx.Handle, error)
	ReleaseSchema(h vcx.Handle) error

	CreateCredentialDef(ctx context.Context, opts vcx.CredentialDefOptions) (vcx.Handle, error)
	PrepareCredentialDefForEndorser(ctx context.Context, opts vcx.CredentialDefOptions,
		endorser string) (vcx.Handle, []creddef.PreparedTxn, error)
	UpdateCredentialDefState(ctx context.Context, h vcx.Handle) (creddef.State, error)
	CredentialDefState(h vcx.Handle) (creddef.State, error)
	CredentialDefID(h vcx.Handle) (string, error)
	CredentialDefRevRegID(h vcx.Handle) (string, error)
	SerializeCredentialDef(h vcx.Handle) ([]byte, error)
	DeserializeCredentialDef(data []byte) (vcx.Handle, error)
	ReleaseCredentialDef(h vcx.Handle) error

	GetLedgerFees(ctx context.Context) (ledger.Fees, error)
	GetLedgerAuthorAgreement(ctx context.Context) (ledger.AuthorAgreement, error)
	SetActiveTxnAuthorAgreementMeta(text, version, digest, mechanism string, acceptedAt int64) error
	EndorseTransaction(ctx context.Context, txn []byte) (ledger.Receipt, error)
}

// Command provides controller API for schemas, credential definitions and ledger utilities.
type Command struct {
	engine  Engine
	schema  cmdutil.Runner
	credDef cmdutil.Runner
	ledger  cmdutil.Runner
}

// New returns new ledger controller command instance.
func New(engine Engine) *Command {
	return &Command{
		engine:  engine,
		schema:  cmdutil.Runner{Logger: logger, Command: SchemaCommandName, InvalidRequest: InvalidRequestErrorCode},
		credDef: cmdutil.Runner{Logger: logger, Command: CredentialDefCommandName, InvalidRequest: InvalidRequestErrorCode},
		ledger:  cmdutil.Runner{Logger: logger, Command: LedgerCommandName, InvalidRequest: InvalidRequestErrorCode},
	}
}

// GetHandlers returns list of all commands supported by this controller command.
func (c *Command) GetHandlers() []command.Handler {
	return []command.Handler{
		cmdutil.NewCommandHandler(SchemaCommandName, CreateCommandMethod, c.CreateSchema),
		cmdutil.NewCommandHandler(SchemaCommandName, GetAttributesCommandMethod, c.GetSchemaAttributes),
		cmdutil.NewCommandHandler(SchemaCommandName, UpdateStateCommandMethod, c.UpdateSchemaState),
		cmdutil.NewCommandHandler(SchemaCommandName, GetStateCommandMethod, c.SchemaState),
		cmdutil.NewCommandHandler(SchemaCommandName, GetIDCommandMethod, c.SchemaID),
		cmdutil.NewCommandHandler(SchemaCommandName, SerializeCommandMethod, c.SerializeSchema),
		cmdutil.NewCommandHandler(SchemaCommandName, DeserializeCommandMethod, c.DeserializeSchema),
		cmdutil.NewCommandHandler(SchemaCommandName, ReleaseCommandMethod, c.ReleaseSchema),

		cmdutil.NewCommandHandler(CredentialDefCommandName, CreateCommandMethod, c.CreateCredentialDef),
		cmdutil.NewCommandHandler(CredentialDefCommandName, UpdateStateCommandMethod, c.UpdateCredentialDefState),
		cmdutil.NewCommandHandler(CredentialDefCommandName, GetStateCommandMethod, c.CredentialDefState),
		cmdutil.NewCommandHandler(CredentialDefCommandName, GetIDCommandMethod, c.CredentialDefID),
		cmdutil.NewCommandHandler(CredentialDefCommandName, GetRevRegIDCommandMethod, c.CredentialDefRevRegID),
		cmdutil.NewCommandHandler(CredentialDefCommandName, SerializeCommandMethod, c.SerializeCredentialDef),
		cmdutil.NewCommandHandler(CredentialDefCommandName, DeserializeCommandMethod, c.DeserializeCredentialDef),
		cmdutil.NewCommandHandler(CredentialDefCommandName, ReleaseCommandMethod, c.ReleaseCredentialDef),

		cmdutil.NewCommandHandler(LedgerCommandName, GetFeesCommandMethod, c.GetFees),
		cmdutil.NewCommandHandler(LedgerCommandName, GetAuthorAgreementMethod, c.GetAuthorAgreement),
		cmdutil.NewCommandHandler(LedgerCommandName, AcceptAuthorAgreementMethod, c.AcceptAuthorAgreement),
		cmdutil.NewCommandHandler(LedgerCommandName, EndorseTransactionMethod, c.EndorseTransaction),
	}
}

// CreateSchema writes a schema, or prepares it for an endorser.
func (c *Command) CreateSchema(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.schema, CreateCommandMethod, WriteErrorCode, rw, req,
		func(r *CreateSchemaRequest) (interface{}, error) {
			if err := cmdutil.Required(InvalidRequestErrorCode, "source_id", r.SourceID, "schema_name", r.Name,
				"schema_version", r.Version, "schema_data", r.Attributes); err != nil {
				return nil, err
			}

			ctx := context.Background()

			if r.Endorser == "" {
				h, err := c.engine.CreateSchema(ctx, r.SourceID, r.Name, r.Version, r.Attributes)

				return &HandleResponse{Handle: h}, err
			}

			h, txn, err := c.engine.PrepareSchemaForEndorser(ctx, r.SourceID, r.Name, r.Version, r.Attributes,
				r.Endorser)

			return &HandleResponse{Handle: h, Transaction: txn}, err
		})
}

// GetSchemaAttributes reads a schema from the ledger.
func (c *Command) GetSchemaAttributes(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.schema, GetAttributesCommandMethod, ReadErrorCode, rw, req,
		func(r *GetSchemaRequest) (interface{}, error) {
			if err := cmdutil.Required(InvalidRequestErrorCode, "schema_id", r.SchemaID); err != nil {
				return nil, err
			}

			h, s, err := c.engine.GetSchemaAttributes(context.Background(), r.SourceID, r.SchemaID)
			if err != nil {
				return nil, err
			}

			return &SchemaResponse{Handle: h, SchemaID: s.ID, Name: s.Name, Version: s.Version, Attributes: s.Attrs}, nil
		})
}

// UpdateSchemaState checks whether a prepared schema has been written.
func (c *Command) UpdateSchemaState(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.schema, UpdateStateCommandMethod, ReadErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			state, err := c.engine.UpdateSchemaState(context.Background(), r.Handle)

			return &StateResponse{State: int(state), Name: state.String()}, err
		})
}

// SchemaState returns the publish state of a schema.
func (c *Command) SchemaState(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.schema, GetStateCommandMethod, ReadErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			state, err := c.engine.SchemaState(r.Handle)

			return &StateResponse{State: int(state), Name: state.String()}, err
		})
}

// SchemaID returns the ledger id of a schema.
func (c *Command) SchemaID(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.schema, GetIDCommandMethod, ReadErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			id, err := c.engine.SchemaID(r.Handle)

			return &IDResponse{ID: id}, err
		})
}

// SerializeSchema returns the versioned JSON of a schema.
func (c *Command) SerializeSchema(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.schema, SerializeCommandMethod, SerializationErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			data, err := c.engine.SerializeSchema(r.Handle)

			return &SerializedObject{Data: data}, err
		})
}

// DeserializeSchema restores a schema.
func (c *Command) DeserializeSchema(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.schema, DeserializeCommandMethod, SerializationErrorCode, rw, req,
		func(r *SerializedObject) (interface{}, error) {
			h, err := c.engine.DeserializeSchema(r.Data)

			return &HandleResponse{Handle: h}, err
		})
}

// ReleaseSchema releases a schema handle.
func (c *Command) ReleaseSchema(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.schema, ReleaseCommandMethod, ReleaseErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			return nil, c.engine.ReleaseSchema(r.Handle)
		})
}

// CreateCredentialDef writes a credential definition, or prepares it for an endorser.
func (c *Command) CreateCredentialDef(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.credDef, CreateCommandMethod, WriteErrorCode, rw, req,
		func(r *CreateCredentialDefRequest) (interface{}, error) {
			if err := cmdutil.Required(InvalidRequestErrorCode, "source_id", r.SourceID,
				"schema_id", r.SchemaID); err != nil {
				return nil, err
			}

			opts := vcx.CredentialDefOptions{
				SourceID:       r.SourceID,
				Name:           r.Name,
				SchemaID:       r.SchemaID,
				Tag:            r.Tag,
				RevocationJSON: r.Revocation,
			}

			ctx := context.Background()

			if r.Endorser == "" {
				h, err := c.engine.CreateCredentialDef(ctx, opts)

				return &HandleResponse{Handle: h}, err
			}

			h, txns, err := c.engine.PrepareCredentialDefForEndorser(ctx, opts, r.Endorser)

			return &HandleResponse{Handle: h, Transactions: txns}, err
		})
}

// UpdateCredentialDefState checks whether prepared credential definition transactions have been
// written.
func (c *Command) UpdateCredentialDefState(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.credDef, UpdateStateCommandMethod, ReadErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			state, err := c.engine.UpdateCredentialDefState(context.Background(), r.Handle)

			return &StateResponse{State: int(state), Name: state.String()}, err
		})
}

// CredentialDefState returns the publish state of a credential definition.
func (c *Command) CredentialDefState(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.credDef, GetStateCommandMethod, ReadErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			state, err := c.engine.CredentialDefState(r.Handle)

			return &StateResponse{State: int(state), Name: state.String()}, err
		})
}

// CredentialDefID returns the ledger id of a credential definition.
func (c *Command) CredentialDefID(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.credDef, GetIDCommandMethod, ReadErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			id, err := c.engine.CredentialDefID(r.Handle)

			return &IDResponse{ID: id}, err
		})
}

// CredentialDefRevRegID returns the revocation registry id of a credential definition.
func (c *Command) CredentialDefRevRegID(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.credDef, GetRevRegIDCommandMethod, ReadErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			id, err := c.engine.CredentialDefRevRegID(r.Handle)

			return &IDResponse{ID: id}, err
		})
}

// SerializeCredentialDef returns the versioned JSON of a credential definition.
func (c *Command) SerializeCredentialDef(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.credDef, SerializeCommandMethod, SerializationErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			data, err := c.engine.SerializeCredentialDef(r.Handle)

			return &SerializedObject{Data: data}, err
		})
}

// DeserializeCredentialDef restores a credential definition.
func (c *Command) DeserializeCredentialDef(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.credDef, DeserializeCommandMethod, SerializationErrorCode, rw, req,
		func(r *SerializedObject) (interface{}, error) {
			h, err := c.engine.DeserializeCredentialDef(r.Data)

			return &HandleResponse{Handle: h}, err
		})
}

// ReleaseCredentialDef releases a credential definition handle.
func (c *Command) ReleaseCredentialDef(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.credDef, ReleaseCommandMethod, ReleaseErrorCode, rw, req,
		func(r *HandleRequest) (interface{}, error) {
			return nil, c.engine.ReleaseCredentialDef(r.Handle)
		})
}

// GetFees returns the ledger fees.
func (c *Command) GetFees(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.ledger, GetFeesCommandMethod, ReadErrorCode, rw, req,
		func(_ *struct{}) (interface{}, error) {
			fees, err := c.engine.GetLedgerFees(context.Background())

			return &FeesResponse{Fees: fees}, err
		})
}

// GetAuthorAgreement returns the active transaction author agreement.
func (c *Command) GetAuthorAgreement(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.ledger, GetAuthorAgreementMethod, AuthorAgreementErrorCode, rw, req,
		func(_ *struct{}) (interface{}, error) {
			taa, err := c.engine.GetLedgerAuthorAgreement(context.Background())
			if err != nil {
				return nil, err
			}

			return &taa, nil
		})
}

// AcceptAuthorAgreement records the acceptance appended to the transactions written from now on.
func (c *Command) AcceptAuthorAgreement(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.ledger, AcceptAuthorAgreementMethod, AuthorAgreementErrorCode, rw, req,
		func(r *AcceptAgreementRequest) (interface{}, error) {
			return nil, c.engine.SetActiveTxnAuthorAgreementMeta(r.Text, r.Version, r.Digest, r.Mechanism, r.AcceptedAt)
		})
}

// EndorseTransaction submits a transaction prepared for the institution DID.
func (c *Command) EndorseTransaction(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.ledger, EndorseTransactionMethod, WriteErrorCode, rw, req,
		func(r *EndorseRequest) (interface{}, error) {
			if err := cmdutil.Required(InvalidRequestErrorCode, "transaction", r.Transaction); err != nil {
				return nil, err
			}

			receipt, err := c.engine.EndorseTransaction(context.Background(), r.Transaction)
			if err != nil {
				return nil, err
			}

			return &receipt, nil
		})
}
