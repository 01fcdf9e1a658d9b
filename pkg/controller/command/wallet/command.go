/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"context"
	"io"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-vcx-go/pkg/controller/command"
	"github.com/hyperledger/aries-vcx-go/pkg/controller/internal/cmdutil"
	"github.com/hyperledger/aries-vcx-go/pkg/store/wallet"
)

var logger = log.New("vcx/controller/wallet")

// CommandName package command name.
const CommandName = "wallet"

// command methods.
const (
	AddRecordCommandMethod        = "AddRecord"
	GetRecordCommandMethod        = "GetRecord"
	UpdateRecordValueMethod       = "UpdateRecordValue"
	DeleteRecordCommandMethod     = "DeleteRecord"
	AddRecordTagsCommandMethod    = "AddRecordTags"
	UpdateRecordTagsCommandMethod = "UpdateRecordTags"
	DeleteRecordTagsCommandMethod = "DeleteRecordTags"
	OpenSearchCommandMethod       = "OpenSearch"
	SearchNextRecordsMethod       = "SearchNextRecords"
	CloseSearchCommandMethod      = "CloseSearch"
)

const (
	// InvalidRequestErrorCode is typically a code for invalid requests.
	InvalidRequestErrorCode = command.Code(iota + command.Wallet)
	// RecordErrorCode is for record failures.
	RecordErrorCode
	// SearchErrorCode is for search failures.
	SearchErrorCode
)

// Engine is the part of the engine the wallet commands run on.
type Engine interface {
	AddRecord(ctx context.Context, record wallet.Record) error
	GetRecord(ctx context.Context, typ, id string, opts wallet.Options) (wallet.Record, error)
	UpdateRecordValue(ctx context.Context, typ, id, value string) error
	DeleteRecord(ctx context.Context, typ, id string) error
	AddRecordTags(ctx context.Context, typ, id string, tags map[string]string) error
	UpdateRecordTags(ctx context.Context, typ, id string, tags map[string]string) error
	DeleteRecordTags(ctx context.Context, typ, id string, names []string) error
	OpenSearch(ctx context.Context, typ string, query wallet.Query, opts wallet.Options) (wallet.SearchHandle, error)
	SearchNextRecords(ctx context.Context, search wallet.SearchHandle, count int) ([]wallet.Record, error)
	CloseSearch(ctx context.Context, search wallet.SearchHandle) error
}

// Command provides controller API for non secret wallet records.
type Command struct {
	engine Engine
	runner cmdutil.Runner
}

// New returns new wallet controller command instance.
func New(engine Engine) *Command {
	return &Command{
		engine: engine,
		runner: cmdutil.Runner{Logger: logger, Command: CommandName, InvalidRequest: InvalidRequestErrorCode},
	}
}

// GetHandlers returns list of all commands supported by this controller command.
func (c *Command) GetHandlers() []command.Handler {
	return []command.Handler{
		cmdutil.NewCommandHandler(CommandName, AddRecordCommandMethod, c.AddRecord),
		cmdutil.NewCommandHandler(CommandName, GetRecordCommandMethod, c.GetRecord),
		cmdutil.NewCommandHandler(CommandName, UpdateRecordValueMethod, c.UpdateRecordValue),
		cmdutil.NewCommandHandler(CommandName, DeleteRecordCommandMethod, c.DeleteRecord),
		cmdutil.NewCommandHandler(CommandName, AddRecordTagsCommandMethod, c.AddRecordTags),
		cmdutil.NewCommandHandler(CommandName, UpdateRecordTagsCommandMethod, c.UpdateRecordTags),
		cmdutil.NewCommandHandler(CommandName, DeleteRecordTagsCommandMethod, c.DeleteRecordTags),
		cmdutil.NewCommandHandler(CommandName, OpenSearchCommandMethod, c.OpenSearch),
		cmdutil.NewCommandHandler(CommandName, SearchNextRecordsMethod, c.SearchNextRecords),
		cmdutil.NewCommandHandler(CommandName, CloseSearchCommandMethod, c.CloseSearch),
	}
}

// AddRecord adds a record.
func (c *Command) AddRecord(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, AddRecordCommandMethod, RecordErrorCode, rw, req,
		func(r *wallet.Record) (interface{}, error) {
			if err := required(r.Type, r.ID); err != nil {
				return nil, err
			}

			return nil, c.engine.AddRecord(context.Background(), *r)
		})
}

// GetRecord returns a record.
func (c *Command) GetRecord(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, GetRecordCommandMethod, RecordErrorCode, rw, req,
		func(r *RecordRequest) (interface{}, error) {
			if err := required(r.Type, r.ID); err != nil {
				return nil, err
			}

			opts := wallet.DefaultOptions()
			if r.Options != nil {
				opts = *r.Options
			}

			rec, err := c.engine.GetRecord(context.Background(), r.Type, r.ID, opts)
			if err != nil {
				return nil, err
			}

			return &rec, nil
		})
}

// UpdateRecordValue replaces a record value.
func (c *Command) UpdateRecordValue(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, UpdateRecordValueMethod, RecordErrorCode, rw, req,
		func(r *UpdateValueRequest) (interface{}, error) {
			if err := required(r.Type, r.ID); err != nil {
				return nil, err
			}

			return nil, c.engine.UpdateRecordValue(context.Background(), r.Type, r.ID, r.Value)
		})
}

// DeleteRecord removes a record.
func (c *Command) DeleteRecord(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, DeleteRecordCommandMethod, RecordErrorCode, rw, req,
		func(r *RecordRequest) (interface{}, error) {
			if err := required(r.Type, r.ID); err != nil {
				return nil, err
			}

			return nil, c.engine.DeleteRecord(context.Background(), r.Type, r.ID)
		})
}

// AddRecordTags adds tags to a record.
func (c *Command) AddRecordTags(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, AddRecordTagsCommandMethod, RecordErrorCode, rw, req,
		func(r *TagsRequest) (interface{}, error) {
			if err := required(r.Type, r.ID); err != nil {
				return nil, err
			}

			return nil, c.engine.AddRecordTags(context.Background(), r.Type, r.ID, r.Tags)
		})
}

// UpdateRecordTags replaces the tags of a record.
func (c *Command) UpdateRecordTags(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, UpdateRecordTagsCommandMethod, RecordErrorCode, rw, req,
		func(r *TagsRequest) (interface{}, error) {
			if err := required(r.Type, r.ID); err != nil {
				return nil, err
			}

			return nil, c.engine.UpdateRecordTags(context.Background(), r.Type, r.ID, r.Tags)
		})
}

// DeleteRecordTags removes tags of a record.
func (c *Command) DeleteRecordTags(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, DeleteRecordTagsCommandMethod, RecordErrorCode, rw, req,
		func(r *DeleteTagsRequest) (interface{}, error) {
			if err := required(r.Type, r.ID); err != nil {
				return nil, err
			}

			return nil, c.engine.DeleteRecordTags(context.Background(), r.Type, r.ID, r.Names)
		})
}

// OpenSearch opens a search over records of one type.
func (c *Command) OpenSearch(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, OpenSearchCommandMethod, SearchErrorCode, rw, req,
		func(r *OpenSearchRequest) (interface{}, error) {
			if err := cmdutil.Required(InvalidRequestErrorCode, "type", r.Type); err != nil {
				return nil, err
			}

			opts := wallet.DefaultOptions()
			if r.Options != nil {
				opts = *r.Options
			}

			search, err := c.engine.OpenSearch(context.Background(), r.Type, r.Query, opts)

			return &SearchResponse{Search: search}, err
		})
}

// SearchNextRecords fetches the next records of a search.
func (c *Command) SearchNextRecords(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, SearchNextRecordsMethod, SearchErrorCode, rw, req,
		func(r *NextRecordsRequest) (interface{}, error) {
			records, err := c.engine.SearchNextRecords(context.Background(), r.Search, r.Count)

			return &RecordsResponse{Records: records}, err
		})
}

// CloseSearch closes a search.
func (c *Command) CloseSearch(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, CloseSearchCommandMethod, SearchErrorCode, rw, req,
		func(r *CloseSearchRequest) (interface{}, error) {
			return nil, c.engine.CloseSearch(context.Background(), r.Search)
		})
}

func required(typ, id string) error {
	return cmdutil.Required(InvalidRequestErrorCode, "type", typ, "id", id)
}
