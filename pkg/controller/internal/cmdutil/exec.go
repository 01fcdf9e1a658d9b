/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmdutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/tidwall/gjson"

	"github.com/hyperledger/aries-vcx-go/pkg/controller/command"
	"github.com/hyperledger/aries-vcx-go/pkg/internal/logutil"
)

const successString = "success"

// Runner holds what the commands of one controller command group share.
type Runner struct {
	Logger *log.Log
	// Command is the command group name.
	Command string
	// InvalidRequest is the code of undecodable requests.
	InvalidRequest command.Code
}

// Run decodes the request of method into a new R, calls fn and writes its response. Errors from fn
// that are not command errors are reported with code.
func Run[R any](r Runner, method string, code command.Code, rw io.Writer, req io.Reader,
	fn func(request *R) (interface{}, error)) command.Error {
	request := new(R)

	if err := command.DecodeRequest(req, request); err != nil {
		logutil.LogInfo(r.Logger, r.Command, method, err.Error())

		return command.NewValidationError(r.InvalidRequest, fmt.Errorf("invalid request: %w", err))
	}

	resp, err := fn(request)
	if err != nil {
		logutil.LogError(r.Logger, r.Command, method, err.Error())

		var cmdErr command.Error
		if errors.As(err, &cmdErr) {
			return cmdErr
		}

		return command.NewExecuteError(code, err)
	}

	command.WriteNillableResponse(rw, resp, r.Logger)

	logutil.LogDebug(r.Logger, r.Command, method, successString)

	return nil
}

// Required returns a validation error naming the first missing value of fields, given as name/value
// pairs. A string is missing when empty, raw JSON when empty or null.
func Required(code command.Code, fields ...interface{}) error {
	for i := 0; i+1 < len(fields); i += 2 {
		if missing(fields[i+1]) {
			return command.NewValidationError(code, fmt.Errorf("%v is required", fields[i]))
		}
	}

	return nil
}

func missing(v interface{}) bool {
	switch val := v.(type) {
	case string:
		return val == ""
	case json.RawMessage:
		return gjson.ParseBytes(val).Type == gjson.Null
	default:
		return v == nil
	}
}
