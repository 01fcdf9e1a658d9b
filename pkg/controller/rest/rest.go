/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-vcx-go/pkg/controller/command"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

var logger = log.New("vcx/controller/rest")

// Handler http handler for each controller API endpoint.
type Handler interface {
	Path() string
	Method() string
	Handle() http.HandlerFunc
}

// genericErrorBody is the error body of every failed REST call.
type genericErrorBody struct {
	Code    command.Code `json:"code"`
	Message string       `json:"message"`
	VCXCode vcxerr.Code  `json:"vcx_code,omitempty"`
}

// Execute executes the command and writes its response or error to rw.
func Execute(exec command.Exec, rw http.ResponseWriter, req io.Reader) {
	var buf bytes.Buffer

	if err := exec(&buf, req); err != nil {
		SendError(rw, err)

		return
	}

	rw.Header().Set("Content-Type", "application/json")

	if _, err := rw.Write(buf.Bytes()); err != nil {
		logger.Errorf("Unable to send response, %s", err)
	}
}

// SendError sends a command error with its matching http status.
func SendError(rw http.ResponseWriter, err command.Error) {
	var status int

	switch err.Type() {
	case command.ValidationError:
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
	}

	SendHTTPStatusError(rw, status, err.Code(), err)
}

// SendHTTPStatusError sends an error with the given http status and error code.
func SendHTTPStatusError(rw http.ResponseWriter, httpStatus int, code command.Code, err error) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(httpStatus)

	e := json.NewEncoder(rw).Encode(genericErrorBody{
		Code:    code,
		Message: err.Error(),
		VCXCode: command.EngineCode(err),
	})
	if e != nil {
		logger.Errorf("Unable to send error response, %s", e)
	}
}
