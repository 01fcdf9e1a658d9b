/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmdutil

import (
	"net/http"

	"github.com/hyperledger/aries-vcx-go/pkg/controller/command"
)

// Handler binds a function to a name and a method. Command handlers are named after their command
// group, REST handlers after their path.
type Handler[F command.Exec | http.HandlerFunc] struct {
	name   string
	method string
	fn     F
}

// NewHTTPHandler returns the REST handler of path.
func NewHTTPHandler(path, method string, fn http.HandlerFunc) *Handler[http.HandlerFunc] {
	return &Handler[http.HandlerFunc]{name: path, method: method, fn: fn}
}

// NewCommandHandler returns the handler of command method name.method.
func NewCommandHandler(name, method string, exec command.Exec) *Handler[command.Exec] {
	return &Handler[command.Exec]{name: name, method: method, fn: exec}
}

// Name of the command.
func (h *Handler[F]) Name() string {
	return h.name
}

// Path of the REST endpoint.
func (h *Handler[F]) Path() string {
	return h.name
}

// Method is the command method or the http method.
func (h *Handler[F]) Method() string {
	return h.method
}

// Handle returns the bound function.
func (h *Handler[F]) Handle() F {
	return h.fn
}
