/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessage_RegisterMsgEvent(t *testing.T) {
	m := Message{}
	require.Nil(t, m.MsgEvents())

	// cannot register nil channel
	require.EqualError(t, m.RegisterMsgEvent(nil), ErrNilChannel.Error())

	ch := make(chan StateMsg, 2)
	require.NoError(t, m.RegisterMsgEvent(ch))
	require.Len(t, m.MsgEvents(), 1)

	m.Notify(StateMsg{ProtocolName: "connection", Type: PostState, StateID: "requested"})

	msg := <-ch
	require.Equal(t, "requested", msg.StateID)

	require.NoError(t, m.UnregisterMsgEvent(ch))
	require.Empty(t, m.MsgEvents())

	// no error if nothing to unregister
	require.NoError(t, m.UnregisterMsgEvent(ch))
}

func TestMessage_NotifyNil(t *testing.T) {
	var m *Message

	require.NotPanics(t, func() { m.Notify(StateMsg{}) })
}
