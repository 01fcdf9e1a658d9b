/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package vcxerr defines the error kinds and numeric codes returned by every engine operation.
package vcxerr

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind is the error taxonomy of the engine.
type Kind int32

const (
	// Unknown is used for errors that were not produced by the engine.
	Unknown Kind = iota
	// InvalidHandle means a handle does not resolve (never allocated or already released).
	InvalidHandle
	// InvalidState means the operation is not valid for the current state of the object.
	InvalidState
	// InvalidMessageForState means the inbound message type does not match the expected next step.
	InvalidMessageForState
	// UnsupportedVersion means a serialized object carries an unknown or future version.
	UnsupportedVersion
	// NotFound means a ledger or wallet lookup missed.
	NotFound
	// RevocationNotSupported means the credential has no revocation registry.
	RevocationNotSupported
	// CollaboratorFailure wraps transport, ledger and wallet errors.
	CollaboratorFailure
	// ValidationFailure means malformed caller input.
	ValidationFailure
)

var kindNames = map[Kind]string{
	Unknown:                "Unknown",
	InvalidHandle:          "InvalidHandle",
	InvalidState:           "InvalidState",
	InvalidMessageForState: "InvalidMessageForState",
	UnsupportedVersion:     "UnsupportedVersion",
	NotFound:               "NotFound",
	RevocationNotSupported: "RevocationNotSupported",
	CollaboratorFailure:    "CollaboratorFailure",
	ValidationFailure:      "ValidationFailure",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}

	return fmt.Sprintf("Kind(%d)", int32(k))
}

// Group is the error groups.
// Note: recommended to use [0-9]*000 pattern for any new entries.
type Group int32

const (
	// Common error group for engine errors.
	Common Group = 1000
	// Connection error group for connection protocol errors.
	Connection Group = 2000
	// Credential error group for credential issuance errors.
	Credential Group = 3000
	// Proof error group for proof presentation errors.
	Proof Group = 4000
	// Ledger error group for ledger collaborator failures.
	Ledger Group = 5000
	// Wallet error group for wallet collaborator failures.
	Wallet Group = 6000
	// Transport error group for transport collaborator failures.
	Transport Group = 7000
)

// Code is the numeric error code handed to binding layers.
type Code int32

// Success is returned by binding layers for completed operations.
const Success Code = 0

const (
	// UnknownErrorCode is the code for errors of kind Unknown.
	UnknownErrorCode = Code(Common) + Code(iota)
	// InvalidHandleCode is the code for InvalidHandle.
	InvalidHandleCode
	// InvalidStateCode is the code for InvalidState.
	InvalidStateCode
	// InvalidMessageForStateCode is the code for InvalidMessageForState.
	InvalidMessageForStateCode
	// UnsupportedVersionCode is the code for UnsupportedVersion.
	UnsupportedVersionCode
	// NotFoundCode is the code for NotFound.
	NotFoundCode
	// RevocationNotSupportedCode is the code for RevocationNotSupported.
	RevocationNotSupportedCode
	// CollaboratorFailureCode is the code for CollaboratorFailure with no specific collaborator.
	CollaboratorFailureCode
	// ValidationFailureCode is the code for ValidationFailure.
	ValidationFailureCode
)

const (
	// LedgerFailureCode is the code for ledger collaborator failures.
	LedgerFailureCode = Code(Ledger) + 1
	// WalletFailureCode is the code for wallet collaborator failures.
	WalletFailureCode = Code(Wallet) + 1
	// TransportFailureCode is the code for transport collaborator failures.
	TransportFailureCode = Code(Transport) + 1
)

var kindCodes = map[Kind]Code{
	Unknown:                UnknownErrorCode,
	InvalidHandle:          InvalidHandleCode,
	InvalidState:           InvalidStateCode,
	InvalidMessageForState: InvalidMessageForStateCode,
	UnsupportedVersion:     UnsupportedVersionCode,
	NotFound:               NotFoundCode,
	RevocationNotSupported: RevocationNotSupportedCode,
	CollaboratorFailure:    CollaboratorFailureCode,
	ValidationFailure:      ValidationFailureCode,
}

var messages = map[Code]string{
	Success:                    "Success",
	UnknownErrorCode:           "Unknown error",
	InvalidHandleCode:          "Handle does not reference a live object",
	InvalidStateCode:           "Operation is not valid for the current state",
	InvalidMessageForStateCode: "Message type does not match the expected protocol step",
	UnsupportedVersionCode:     "Serialized object version is not supported",
	NotFoundCode:               "Record was not found",
	RevocationNotSupportedCode: "Credential does not support revocation",
	CollaboratorFailureCode:    "Collaborator call failed",
	ValidationFailureCode:      "Invalid input",
	LedgerFailureCode:          "Ledger call failed",
	WalletFailureCode:          "Wallet call failed",
	TransportFailureCode:       "Transport call failed",
}

// Collaborator names accepted by Collaborator.
const (
	LedgerCollaborator    = "ledger"
	WalletCollaborator    = "wallet"
	TransportCollaborator = "transport"
)

var collaboratorCodes = map[string]Code{
	LedgerCollaborator:    LedgerFailureCode,
	WalletCollaborator:    WalletFailureCode,
	TransportCollaborator: TransportFailureCode,
}

// Error is an engine error. It always carries a Kind and a Code, and for collaborator
// failures the collaborator name and its own code.
type Error struct {
	kind         Kind
	code         Code
	collaborator string
	cause        int32
	err          error
}

func (e *Error) Error() string {
	return e.err.Error()
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.err
}

// Kind returns the error kind.
func (e *Error) Kind() Kind {
	return e.kind
}

// Code returns the numeric error code.
func (e *Error) Code() Code {
	return e.code
}

// Collaborator returns the collaborator name for CollaboratorFailure errors.
func (e *Error) Collaborator() string {
	return e.collaborator
}

// CollaboratorCode returns the code reported by the collaborator, unmodified.
func (e *Error) CollaboratorCode() int32 {
	return e.cause
}

// New returns an error of the given kind.
func New(kind Kind, format string, args ...interface{}) error {
	return &Error{kind: kind, code: codeForKind(kind), err: fmt.Errorf(format, args...)}
}

// Wrap annotates err with a message and classifies it with the given kind.
// If err already is an engine error its kind is kept.
func Wrap(kind Kind, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return &Error{
			kind:         e.kind,
			code:         e.code,
			collaborator: e.collaborator,
			cause:        e.cause,
			err:          pkgerrors.WithMessagef(err, format, args...),
		}
	}

	return &Error{kind: kind, code: codeForKind(kind), err: pkgerrors.WithMessagef(err, format, args...)}
}

// ErrorCoder is implemented by collaborator errors that carry their own numeric code.
type ErrorCoder interface {
	ErrorCode() int32
}

// Collaborator wraps a collaborator failure, preserving the collaborator's own code. A zero cause is
// taken from err when it implements ErrorCoder.
func Collaborator(collaborator string, cause int32, err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) && e.kind != Unknown {
		return err
	}

	var coder ErrorCoder
	if cause == 0 && errors.As(err, &coder) {
		cause = coder.ErrorCode()
	}

	code, ok := collaboratorCodes[collaborator]
	if !ok {
		code = CollaboratorFailureCode
	}

	return &Error{
		kind:         CollaboratorFailure,
		code:         code,
		collaborator: collaborator,
		cause:        cause,
		err:          pkgerrors.WithMessagef(err, "%s failure", collaborator),
	}
}

// KindOf returns the kind of err, Unknown if err is not an engine error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}

	return Unknown
}

// CodeOf returns the code of err. Nil errors map to Success.
func CodeOf(err error) Code {
	if err == nil {
		return Success
	}

	var e *Error
	if errors.As(err, &e) {
		return e.code
	}

	return UnknownErrorCode
}

// Is reports whether err is an engine error of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the human readable message for a code.
func Message(code Code) string {
	if m, ok := messages[code]; ok {
		return m
	}

	return fmt.Sprintf("Unknown error code %d", int32(code))
}

func codeForKind(kind Kind) Code {
	if c, ok := kindCodes[kind]; ok {
		return c
	}

	return UnknownErrorCode
}
