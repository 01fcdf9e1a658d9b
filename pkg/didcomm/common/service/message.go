/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package service

import "sync"

// Message thread-safe state event register structure, embedded by protocol objects owners.
type Message struct {
	mu     sync.RWMutex
	events []chan<- StateMsg
}

// MsgEvents returns event message channels.
func (m *Message) MsgEvents() []chan<- StateMsg {
	m.mu.RLock()
	events := append(m.events[:0:0], m.events...)
	m.mu.RUnlock()

	return events
}

// RegisterMsgEvent registers a channel that receives a StateMsg after every state transition.
func (m *Message) RegisterMsgEvent(ch chan<- StateMsg) error {
	if ch == nil {
		return ErrNilChannel
	}

	m.mu.Lock()
	m.events = append(m.events, ch)
	m.mu.Unlock()

	return nil
}

// UnregisterMsgEvent on protocol messages. Refer RegisterMsgEvent().
func (m *Message) UnregisterMsgEvent(ch chan<- StateMsg) error {
	m.mu.Lock()
	for i := 0; i < len(m.events); i++ {
		if m.events[i] == ch {
			m.events = append(m.events[:i], m.events[i+1:]...)
			i--
		}
	}
	m.mu.Unlock()

	return nil
}

// Notify sends msg to every registered channel. Nil receivers are ignored.
func (m *Message) Notify(msg StateMsg) {
	if m == nil {
		return
	}

	for _, ch := range m.MsgEvents() {
		ch <- msg
	}
}
