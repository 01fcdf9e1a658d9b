/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vcx

import (
	"context"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/transport"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

// ConnectionMessages are the agency messages of one pairwise connection.
type ConnectionMessages struct {
	PairwiseDID string              `json:"pairwiseDID"`
	Messages    []transport.Message `json:"msgs"`
}

// MessageStatusUpdate names messages of one pairwise connection.
type MessageStatusUpdate struct {
	PairwiseDID string   `json:"pairwiseDID"`
	UIDs        []string `json:"uids"`
}

// GetMessages downloads the messages of the live connections whose pairwise DID is in pwDIDs, all
// of them when pwDIDs is empty. Empty statuses and uids match every message.
func (e *Engine) GetMessages(ctx context.Context, statuses []transport.Status, uids,
	pwDIDs []string) ([]ConnectionMessages, error) {
	keys := map[string]string{}

	for _, h := range e.connections.Handles() {
		c, err := e.connections.Lookup(h)
		if err != nil {
			// released meanwhile.
			continue
		}

		if len(pwDIDs) > 0 && !slices.Contains(pwDIDs, c.PwDID()) {
			continue
		}

		keys[c.PwVerkey()] = c.PwDID()
	}

	for _, did := range pwDIDs {
		if !slices.Contains(maps.Values(keys), did) {
			return nil, vcxerr.New(vcxerr.NotFound, "no connection with pairwise DID %s", did)
		}
	}

	if len(keys) == 0 {
		return nil, nil
	}

	query := transport.Query{RecipientKeys: maps.Keys(keys), Statuses: statuses, UIDs: uids}
	slices.Sort(query.RecipientKeys)

	msgs, err := e.transport.Poll(ctx, query)
	if err != nil {
		logger.Errorf("get messages: %s", err)

		return nil, vcxerr.Collaborator(vcxerr.TransportCollaborator, 0, err)
	}

	var (
		result []ConnectionMessages
		index  = map[string]int{}
	)

	for _, m := range msgs {
		did := keys[m.RecipientKey]

		i, ok := index[did]
		if !ok {
			i = len(result)
			index[did] = i
			result = append(result, ConnectionMessages{PairwiseDID: did})
		}

		result[i].Messages = append(result[i].Messages, m)
	}

	return result, nil
}

// UpdateMessages sets the status of agency messages.
func (e *Engine) UpdateMessages(ctx context.Context, status transport.Status, updates []MessageStatusUpdate) error {
	if status == "" {
		return vcxerr.New(vcxerr.ValidationFailure, "message status is required")
	}

	var uids []string
	for _, u := range updates {
		uids = append(uids, u.UIDs...)
	}

	if len(uids) == 0 {
		return nil
	}

	if err := e.transport.UpdateMessageStatus(ctx, status, uids); err != nil {
		logger.Errorf("update messages: %s", err)

		return vcxerr.Collaborator(vcxerr.TransportCollaborator, 0, err)
	}

	return nil
}

// ConnectionByPwDID returns the handle of the live connection with the given pairwise DID.
func (e *Engine) ConnectionByPwDID(pwDID string) (Handle, error) {
	for _, h := range e.connections.Handles() {
		c, err := e.connections.Lookup(h)
		if err == nil && c.PwDID() == pwDID {
			return h, nil
		}
	}

	return 0, vcxerr.New(vcxerr.NotFound, "no connection with pairwise DID %s", pwDID)
}
