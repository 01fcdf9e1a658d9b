/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package operation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/gorilla/mux"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-vcx-go/pkg/controller/command"
	"github.com/hyperledger/aries-vcx-go/pkg/controller/internal/cmdutil"
	"github.com/hyperledger/aries-vcx-go/pkg/controller/rest"
	"github.com/hyperledger/aries-vcx-go/pkg/vcx"
)

var logger = log.New("vcx/controller/rest/operation")

const (
	// APIPrefix is the path prefix of every engine endpoint.
	APIPrefix = "/vcx"

	// AsyncPath collects the result of an operation started with ?async=true.
	AsyncPath = APIPrefix + "/async/{token}"

	asyncParam = "async"
	waitParam  = "wait"
)

const (
	// InvalidRequestErrorCode is for malformed async requests.
	InvalidRequestErrorCode = command.Code(iota + command.Common)
	// AsyncErrorCode is for failures collecting async results.
	AsyncErrorCode
)

// Async runs commands in the background.
type Async interface {
	Start(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) vcx.Token
	Await(ctx context.Context, token vcx.Token) (interface{}, error)
	Done(token vcx.Token) (bool, error)
}

// AsyncResponse is returned when an operation is started or polled.
type AsyncResponse struct {
	Token  vcx.Token       `json:"token"`
	Done   bool            `json:"done"`
	Result json.RawMessage `json:"result,omitempty"`
}

// Operation exposes controller command handlers over REST.
type Operation struct {
	commands []command.Handler
	async    Async
	handlers []rest.Handler
}

// New returns a REST operation for commands. Without async, ?async=true requests are rejected.
func New(commands []command.Handler, async Async) *Operation {
	o := &Operation{commands: commands, async: async}
	o.registerHandler()

	return o
}

// GetRESTHandlers get all controller API handler available for this service.
func (o *Operation) GetRESTHandlers() []rest.Handler {
	return o.handlers
}

func (o *Operation) registerHandler() {
	for _, h := range o.commands {
		o.handlers = append(o.handlers,
			cmdutil.NewHTTPHandler(Path(h.Name(), h.Method()), http.MethodPost, o.handle(h.Handle())))
	}

	if o.async != nil {
		o.handlers = append(o.handlers, cmdutil.NewHTTPHandler(AsyncPath, http.MethodGet, o.Result))
	}
}

// Path returns the REST path of a command method, e.g. /vcx/issuer-credential/send-offer for
// issuer_credential SendOffer.
func Path(name, method string) string {
	return APIPrefix + "/" + strings.ReplaceAll(name, "_", "-") + "/" + kebab(method)
}

func kebab(s string) string {
	runes := []rune(s)

	var b strings.Builder

	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1])

			if prevLower || nextLower {
				b.WriteByte('-')
			}
		}

		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}

func (o *Operation) handle(exec command.Exec) http.HandlerFunc {
	return func(rw http.ResponseWriter, req *http.Request) {
		if req.URL.Query().Get(asyncParam) != "true" {
			rest.Execute(exec, rw, req.Body)

			return
		}

		if o.async == nil {
			rest.SendHTTPStatusError(rw, http.StatusBadRequest, InvalidRequestErrorCode,
				fmt.Errorf("async execution is not enabled"))

			return
		}

		body, err := io.ReadAll(req.Body)
		if err != nil {
			rest.SendHTTPStatusError(rw, http.StatusBadRequest, InvalidRequestErrorCode, err)

			return
		}

		// the request context ends with this call
		token := o.async.Start(context.Background(), func(context.Context) (interface{}, error) {
			var buf bytes.Buffer

			if err := exec(&buf, bytes.NewReader(body)); err != nil {
				return nil, err
			}

			return json.RawMessage(bytes.TrimSpace(buf.Bytes())), nil
		})

		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(http.StatusAccepted)
		command.WriteNillableResponse(rw, &AsyncResponse{Token: token}, logger)
	}
}

// Result swagger:route GET /vcx/async/{token} async asyncResult
//
// Returns the state of an async operation. With ?wait=true the call blocks until it completes.
// A completed result can be collected once.
//
// Responses:
//    default: genericError
func (o *Operation) Result(rw http.ResponseWriter, req *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(req)["token"], 10, 32)
	if err != nil {
		rest.SendHTTPStatusError(rw, http.StatusBadRequest, InvalidRequestErrorCode,
			fmt.Errorf("invalid token: %w", err))

		return
	}

	token := vcx.Token(id)

	done, err := o.async.Done(token)
	if err != nil {
		rest.SendError(rw, command.NewExecuteError(AsyncErrorCode, err))

		return
	}

	if !done && req.URL.Query().Get(waitParam) != "true" {
		rw.Header().Set("Content-Type", "application/json")
		command.WriteNillableResponse(rw, &AsyncResponse{Token: token}, logger)

		return
	}

	value, err := o.async.Await(req.Context(), token)
	if err != nil {
		var cmdErr command.Error
		if !errors.As(err, &cmdErr) {
			cmdErr = command.NewExecuteError(AsyncErrorCode, err)
		}

		rest.SendError(rw, cmdErr)

		return
	}

	result, _ := value.(json.RawMessage) //nolint:errcheck

	rw.Header().Set("Content-Type", "application/json")
	command.WriteNillableResponse(rw, &AsyncResponse{Token: token, Done: true, Result: result}, logger)
}

