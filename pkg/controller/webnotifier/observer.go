/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package webnotifier

import (
	"encoding/json"
	"sync"

	"github.com/hyperledger/aries-vcx-go/pkg/controller/command"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/service"
)

const (
	preState  = "pre_state"
	postState = "post_state"

	// StateTopicSuffix is appended to the protocol name to form the topic of its state events.
	StateTopicSuffix = "_states"

	eventBufferSize = 32
)

// StateMsg is the notification sent for every state transition.
type StateMsg struct {
	ProtocolName string                `json:"protocol"`
	Type         string                `json:"type"`
	StateID      string                `json:"state_id"`
	SourceID     string                `json:"source_id,omitempty"`
	ThreadID     string                `json:"thread_id,omitempty"`
	Message      service.DIDCommMsgMap `json:"message,omitempty"`
}

// Observer forwards state events to a notifier.
type Observer struct {
	notifier command.Notifier

	once sync.Once
	stop chan struct{}
	wg   sync.WaitGroup
}

// NewObserver returns an observer notifying notifier.
func NewObserver(notifier command.Notifier) *Observer {
	return &Observer{notifier: notifier, stop: make(chan struct{})}
}

// RegisterStateMsg forwards every message of ch under topic. An empty topic selects
// "<protocol>_states".
func (o *Observer) RegisterStateMsg(topic string, ch <-chan service.StateMsg) {
	o.wg.Add(1)

	go func() {
		defer o.wg.Done()

		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}

				o.notify(topic, msg)
			case <-o.stop:
				return
			}
		}
	}()
}

// Observe registers a channel on the events register and forwards its messages. The channel is
// unregistered by Stop.
func (o *Observer) Observe(events *service.Message) error {
	ch := make(chan service.StateMsg, eventBufferSize)

	if err := events.RegisterMsgEvent(ch); err != nil {
		return err
	}

	o.RegisterStateMsg("", ch)

	o.wg.Add(1)

	go func() {
		defer o.wg.Done()

		<-o.stop

		if err := events.UnregisterMsgEvent(ch); err != nil {
			logger.Warnf("unregister state events: %s", err)
		}
	}()

	return nil
}

// Stop ends forwarding.
func (o *Observer) Stop() {
	o.once.Do(func() { close(o.stop) })
	o.wg.Wait()
}

func (o *Observer) notify(topic string, msg service.StateMsg) {
	if topic == "" {
		topic = msg.ProtocolName + StateTopicSuffix
	}

	typ := postState
	if msg.Type == service.PreState {
		typ = preState
	}

	payload, err := json.Marshal(&StateMsg{
		ProtocolName: msg.ProtocolName,
		Type:         typ,
		StateID:      msg.StateID,
		SourceID:     msg.SourceID,
		ThreadID:     msg.ThreadID,
		Message:      msg.Msg,
	})
	if err != nil {
		logger.Errorf("state message marshal: %s", err)

		return
	}

	if err := o.notifier.Notify(topic, payload); err != nil {
		logger.Warnf("state notification on %s: %s", topic, err)
	}
}
