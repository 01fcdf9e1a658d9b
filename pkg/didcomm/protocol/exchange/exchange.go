/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package exchange holds the mailbox plumbing shared by the credential and proof exchanges, which
// run over an established pairwise connection.
package exchange

import (
	"context"
	"strings"

	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/connection"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

// Conn is the pairwise connection an exchange sends over and polls. *connection.Connection
// implements it.
type Conn interface {
	SourceID() string
	PwDID() string
	Send(ctx context.Context, msg interface{}) (string, error)
	Receive(ctx context.Context) ([]connection.Inbound, error)
	MarkReviewed(ctx context.Context, uids ...string) error
}

// Inbox returns the unreviewed messages of conn whose type starts with prefix, in arrival order.
// A non empty thid restricts the result to that thread.
func Inbox(ctx context.Context, conn Conn, prefix, thid string) ([]connection.Inbound, error) {
	msgs, err := conn.Receive(ctx)
	if err != nil {
		return nil, err
	}

	var matched []connection.Inbound

	for _, m := range msgs {
		if !strings.HasPrefix(m.Msg.Type(), prefix) {
			continue
		}

		if thid != "" {
			id, err := m.Msg.ThreadID()
			if err != nil || id != thid {
				continue
			}
		}

		matched = append(matched, m)
	}

	return matched, nil
}

// OfType filters inbound messages by exact message type.
func OfType(msgs []connection.Inbound, msgType string) []connection.Inbound {
	var out []connection.Inbound

	for _, m := range msgs {
		if m.Msg.Type() == msgType {
			out = append(out, m)
		}
	}

	return out
}

// CheckConnection fails when an exchange bound to pwDID is driven over another connection.
func CheckConnection(sourceID, pwDID string, conn Conn) error {
	if conn == nil {
		return vcxerr.New(vcxerr.ValidationFailure, "%s: no connection", sourceID)
	}

	if pwDID != "" && conn.PwDID() != pwDID {
		return vcxerr.New(vcxerr.InvalidState, "%s runs over connection %s, not %s", sourceID, pwDID, conn.PwDID())
	}

	return nil
}
