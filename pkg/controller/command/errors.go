/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package command

import (
	"errors"

	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

// Type is command error type.
type Type int32

const (
	// ValidationError is error type for command validation errors.
	ValidationError Type = iota

	// ExecuteError is error type for command execution failure.
	ExecuteError Type = iota
)

// Code is the error code of command errors.
type Code int32

const (
	// UnknownStatus default error code for unknown errors.
	UnknownStatus Code = iota
)

// Group is the error groups.
// Note: recommended to use [0-9]*000 pattern for any new entries
// Example: 2000, 3000, 4000 ...... 25000.
type Group int32

const (
	// Common error group for general command errors.
	Common Group = 1000

	// Connection error group for connection command errors.
	Connection Group = 2000

	// IssueCredential error group for issue credential command errors.
	IssueCredential Group = 3000

	// PresentProof error group for present proof command errors.
	PresentProof Group = 4000

	// Ledger error group for schema, credential definition and ledger utility command errors.
	Ledger Group = 5000

	// Wallet error group for wallet record command errors.
	Wallet Group = 6000

	// Messaging error group for agency message command errors.
	Messaging Group = 7000

	// Utility error group for engine utility command errors.
	Utility Group = 8000
)

// Error is the  interface for representing an command error condition, with the nil value representing no error.
type Error interface {
	error
	// Code returns error code for this command error.
	Code() Code
	// Type returns error type for this command error.
	Type() Type
}

// NewValidationError returns new command validation error.
func NewValidationError(code Code, err error) Error {
	return &commandError{err, code, ValidationError}
}

// NewExecuteError returns new command execute error. Engine errors caused by the request itself,
// such as an unknown handle or a malformed argument, are reported as validation errors.
func NewExecuteError(code Code, err error) Error {
	switch vcxerr.KindOf(err) {
	case vcxerr.ValidationFailure, vcxerr.InvalidHandle, vcxerr.UnsupportedVersion:
		return &commandError{err, code, ValidationError}
	default:
		return &commandError{err, code, ExecuteError}
	}
}

// EngineCode returns the engine error code carried by err, Success if there is none.
func EngineCode(err error) vcxerr.Code {
	var e *vcxerr.Error
	if !errors.As(err, &e) {
		return vcxerr.Success
	}

	return vcxerr.CodeOf(e)
}

// commandError implements basic command Error.
type commandError struct {
	error
	code    Code
	errType Type
}

func (c *commandError) Code() Code {
	return c.code
}

func (c *commandError) Type() Type {
	return c.errType
}

func (c *commandError) Unwrap() error {
	return c.error
}
