/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/transport"
)

// NewInboundHandler creates the agency HTTP API over mailboxes held by t, the server side of
// AgencyClient.
func NewInboundHandler(t transport.Transport) (http.Handler, error) {
	if t == nil {
		logger.Errorf("Error creating a new inbound handler: transport is nil")
		return nil, errors.New("failed to create NewInboundHandler")
	}

	router := mux.NewRouter()
	router.HandleFunc(SendPath, func(w http.ResponseWriter, r *http.Request) {
		var req sendRequest
		if !readRequest(w, r, &req) {
			return
		}

		uid, err := t.Send(r.Context(), req.Route, req.Payload)
		writeResponse(w, sendResponse{UID: uid}, err)
	}).Methods(http.MethodPost)

	router.HandleFunc(PollPath, func(w http.ResponseWriter, r *http.Request) {
		var query transport.Query
		if !readRequest(w, r, &query) {
			return
		}

		msgs, err := t.Poll(r.Context(), query)
		writeResponse(w, pollResponse{Messages: msgs}, err)
	}).Methods(http.MethodPost)

	router.HandleFunc(StatusPath, func(w http.ResponseWriter, r *http.Request) {
		var req statusRequest
		if !readRequest(w, r, &req) {
			return
		}

		writeResponse(w, struct{}{}, t.UpdateMessageStatus(r.Context(), req.Status, req.UIDs))
	}).Methods(http.MethodPost)

	return router, nil
}

// readRequest validates content type and payload, then decodes the body into v.
func readRequest(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	ct := r.Header.Get("Content-type")
	if ct != contentType {
		http.Error(w, fmt.Sprintf("Unsupported Content-type \"%s\"", ct), http.StatusUnsupportedMediaType)
		return false
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Errorf("Error reading request body: %s - returning Code: %d", err, http.StatusInternalServerError)
		http.Error(w, "Failed to read payload", http.StatusInternalServerError)

		return false
	}

	// empty payload should not be accepted
	if len(body) == 0 {
		http.Error(w, "Empty payload", http.StatusBadRequest)
		return false
	}

	if err := json.Unmarshal(body, v); err != nil {
		http.Error(w, fmt.Sprintf("Invalid payload: %v", err), http.StatusBadRequest)
		return false
	}

	return true
}

func writeResponse(w http.ResponseWriter, v interface{}, err error) {
	if err != nil {
		logger.Errorf("agency request failed: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", contentType)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("failed to write agency response: %v", err)
	}
}
