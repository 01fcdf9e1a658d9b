/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package utility

import (
	"io"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-vcx-go/pkg/controller/command"
	"github.com/hyperledger/aries-vcx-go/pkg/controller/internal/cmdutil"
	"github.com/hyperledger/aries-vcx-go/pkg/vcx"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

var logger = log.New("vcx/controller/utility")

// CommandName package command name.
const CommandName = "utility"

// command methods.
const (
	VersionCommandMethod          = "Version"
	ErrorMessageCommandMethod     = "ErrorMessage"
	InstitutionInfoCommandMethod  = "InstitutionInfo"
	UpdateInstitutionInfoMethod   = "UpdateInstitutionInfo"
	UpdateWebhookURLCommandMethod = "UpdateWebhookURL"
)

const (
	// InvalidRequestErrorCode is typically a code for invalid requests.
	InvalidRequestErrorCode = command.Code(iota + command.Utility)
	// UpdateConfigErrorCode is for configuration update failures.
	UpdateConfigErrorCode
)

// VersionResponse is the engine version.
type VersionResponse struct {
	Version string `json:"version"`
}

// ErrorMessageRequest names an error code.
type ErrorMessageRequest struct {
	Code vcxerr.Code `json:"code"`
}

// ErrorMessageResponse is the message of an error code.
type ErrorMessageResponse struct {
	Message string `json:"message"`
}

// InstitutionInfoRequest changes the institution details of new invitations.
type InstitutionInfoRequest struct {
	Name    string `json:"name"`
	LogoURL string `json:"logo_url,omitempty"`
}

// InstitutionInfoResponse are the current institution details.
type InstitutionInfoResponse struct {
	DID     string `json:"institution_did"`
	Verkey  string `json:"institution_verkey"`
	Name    string `json:"institution_name"`
	LogoURL string `json:"institution_logo_url,omitempty"`
	Webhook string `json:"webhook_url,omitempty"`
}

// WebhookRequest changes the webhook URL.
type WebhookRequest struct {
	URL string `json:"webhook_url"`
}

// Engine is the part of the engine the utility commands run on.
type Engine interface {
	Version() string
	ErrorMessage(code vcxerr.Code) string
	Config() vcx.Config
	UpdateInstitutionInfo(name, logoURL string) error
	UpdateWebhookURL(webhookURL string) error
}

// Command provides controller API for engine utilities.
type Command struct {
	engine Engine
	runner cmdutil.Runner
}

// New returns new utility controller command instance.
func New(engine Engine) *Command {
	return &Command{
		engine: engine,
		runner: cmdutil.Runner{Logger: logger, Command: CommandName, InvalidRequest: InvalidRequestErrorCode},
	}
}

// GetHandlers returns list of all commands supported by this controller command.
func (c *Command) GetHandlers() []command.Handler {
	return []command.Handler{
		cmdutil.NewCommandHandler(CommandName, VersionCommandMethod, c.Version),
		cmdutil.NewCommandHandler(CommandName, ErrorMessageCommandMethod, c.ErrorMessage),
		cmdutil.NewCommandHandler(CommandName, InstitutionInfoCommandMethod, c.InstitutionInfo),
		cmdutil.NewCommandHandler(CommandName, UpdateInstitutionInfoMethod, c.UpdateInstitutionInfo),
		cmdutil.NewCommandHandler(CommandName, UpdateWebhookURLCommandMethod, c.UpdateWebhookURL),
	}
}

// Version returns the engine version.
func (c *Command) Version(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, VersionCommandMethod, InvalidRequestErrorCode, rw, req,
		func(_ *struct{}) (interface{}, error) {
			return &VersionResponse{Version: c.engine.Version()}, nil
		})
}

// ErrorMessage returns the message of an error code.
func (c *Command) ErrorMessage(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, ErrorMessageCommandMethod, InvalidRequestErrorCode, rw, req,
		func(r *ErrorMessageRequest) (interface{}, error) {
			return &ErrorMessageResponse{Message: c.engine.ErrorMessage(r.Code)}, nil
		})
}

// InstitutionInfo returns the current institution details.
func (c *Command) InstitutionInfo(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, InstitutionInfoCommandMethod, InvalidRequestErrorCode, rw, req,
		func(_ *struct{}) (interface{}, error) {
			cfg := c.engine.Config()

			return &InstitutionInfoResponse{
				DID:     cfg.InstitutionDID,
				Verkey:  cfg.InstitutionVerkey,
				Name:    cfg.InstitutionName,
				LogoURL: cfg.InstitutionLogoURL,
				Webhook: cfg.WebhookURL,
			}, nil
		})
}

// UpdateInstitutionInfo changes the institution details of new invitations.
func (c *Command) UpdateInstitutionInfo(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, UpdateInstitutionInfoMethod, UpdateConfigErrorCode, rw, req,
		func(r *InstitutionInfoRequest) (interface{}, error) {
			return nil, c.engine.UpdateInstitutionInfo(r.Name, r.LogoURL)
		})
}

// UpdateWebhookURL changes the URL message notifications are posted to.
func (c *Command) UpdateWebhookURL(rw io.Writer, req io.Reader) command.Error {
	return cmdutil.Run(c.runner, UpdateWebhookURLCommandMethod, UpdateConfigErrorCode, rw, req,
		func(r *WebhookRequest) (interface{}, error) {
			return nil, c.engine.UpdateWebhookURL(r.URL)
		})
}
