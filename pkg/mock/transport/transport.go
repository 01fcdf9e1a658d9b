/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package transport provides an in-memory agency routing messages between pairwise mailboxes.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/transport"
)

// Agency is an in-memory transport. Each recipient key is a mailbox; messages are returned in
// arrival order.
type Agency struct {
	SendErr   error
	PollErr   error
	UpdateErr error

	lock     sync.Mutex
	messages []transport.Message
	updates  map[string]int
}

// NewAgency returns an empty agency.
func NewAgency() *Agency {
	return &Agency{updates: map[string]int{}}
}

// Send stores payload in the mailbox of route.RecipientKey.
func (a *Agency) Send(_ context.Context, route transport.Route, payload []byte) (string, error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	if a.SendErr != nil {
		return "", a.SendErr
	}

	if route.RecipientKey == "" {
		return "", errors.New("route has no recipient key")
	}

	uid := uuid.New().String()

	a.messages = append(a.messages, transport.Message{
		UID:          uid,
		RecipientKey: route.RecipientKey,
		SenderKey:    route.SenderKey,
		Status:       transport.StatusReceived,
		Payload:      append([]byte(nil), payload...),
		Received:     time.Now().UTC(),
	})

	return uid, nil
}

// Poll returns matching messages in arrival order.
func (a *Agency) Poll(_ context.Context, q transport.Query) ([]transport.Message, error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	if a.PollErr != nil {
		return nil, a.PollErr
	}

	var result []transport.Message

	for i := range a.messages {
		msg := a.messages[i]

		if len(q.RecipientKeys) > 0 && !slices.Contains(q.RecipientKeys, msg.RecipientKey) {
			continue
		}

		if len(q.UIDs) > 0 && !slices.Contains(q.UIDs, msg.UID) {
			continue
		}

		if !transport.MatchStatus(msg.Status, q.Statuses) {
			continue
		}

		msg.Payload = append([]byte(nil), msg.Payload...)
		result = append(result, msg)
	}

	return result, nil
}

// UpdateMessageStatus sets the status of the given messages.
func (a *Agency) UpdateMessageStatus(_ context.Context, status transport.Status, uids []string) error {
	a.lock.Lock()
	defer a.lock.Unlock()

	if a.UpdateErr != nil {
		return a.UpdateErr
	}

	for _, uid := range uids {
		i := slices.IndexFunc(a.messages, func(m transport.Message) bool { return m.UID == uid })
		if i < 0 {
			return fmt.Errorf("unknown message %s", uid)
		}

		a.messages[i].Status = status
		a.updates[uid]++
	}

	return nil
}

// Redeliver appends a copy of an existing message under a new uid, simulating duplicate delivery.
func (a *Agency) Redeliver(uid string) (string, error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	i := slices.IndexFunc(a.messages, func(m transport.Message) bool { return m.UID == uid })
	if i < 0 {
		return "", fmt.Errorf("unknown message %s", uid)
	}

	dup := a.messages[i]
	dup.UID = uuid.New().String()
	dup.Status = transport.StatusReceived
	a.messages = append(a.messages, dup)

	return dup.UID, nil
}

// Updates returns how many status updates message uid has received.
func (a *Agency) Updates(uid string) int {
	a.lock.Lock()
	defer a.lock.Unlock()

	return a.updates[uid]
}

// Sent returns every message sent so far, in order.
func (a *Agency) Sent() []transport.Message {
	a.lock.Lock()
	defer a.lock.Unlock()

	return append([]transport.Message(nil), a.messages...)
}

// SentTo returns the messages sent to recipientKey.
func (a *Agency) SentTo(recipientKey string) []transport.Message {
	var result []transport.Message

	for _, m := range a.Sent() {
		if m.RecipientKey == recipientKey {
			result = append(result, m)
		}
	}

	return result
}
