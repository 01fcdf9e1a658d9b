/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package service

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDIDCommMsgMap_ID(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		msg      DIDCommMsgMap
	}{
		{
			name: "Empty (nil msg)",
		},
		{
			name: "Bad type ID",
			msg:  DIDCommMsgMap{jsonID: map[int]int{}},
		},
		{
			name:     "Success",
			msg:      DIDCommMsgMap{jsonID: "ID"},
			expected: "ID",
		},
	}

	for i := range tests {
		require.Equal(t, tests[i].expected, tests[i].msg.ID(), tests[i].name)
	}
}

func TestDIDCommMsgMap_ThreadID(t *testing.T) {
	t.Run("from thread decorator", func(t *testing.T) {
		msg := DIDCommMsgMap{jsonID: "id", jsonThread: map[string]interface{}{jsonThreadID: "thid"}}

		thid, err := msg.ThreadID()
		require.NoError(t, err)
		require.Equal(t, "thid", thid)
	})

	t.Run("starts own thread", func(t *testing.T) {
		thid, err := DIDCommMsgMap{jsonID: "id"}.ThreadID()
		require.NoError(t, err)
		require.Equal(t, "id", thid)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := DIDCommMsgMap{}.ThreadID()
		require.True(t, errors.Is(err, ErrThreadIDNotFound))

		var msg DIDCommMsgMap
		_, err = msg.ThreadID()
		require.True(t, errors.Is(err, ErrThreadIDNotFound))
	})
}

func TestDIDCommMsgMap_SetThread(t *testing.T) {
	msg := DIDCommMsgMap{jsonID: "id"}
	msg.SetThread("thid", "pthid")

	thid, err := msg.ThreadID()
	require.NoError(t, err)
	require.Equal(t, "thid", thid)
	require.Equal(t, "pthid", msg.ParentThreadID())

	msg.SetThread("", "")
	require.Equal(t, "pthid", msg.ParentThreadID())
}

func TestDIDCommMsgMap_Clone(t *testing.T) {
	var empty DIDCommMsgMap
	require.Nil(t, empty.Clone())

	msg := DIDCommMsgMap{jsonType: "type", jsonMetadata: map[string]interface{}{"k": "v"}}
	clone := msg.Clone()
	require.Equal(t, msg, clone)

	clone[jsonType] = "other"
	require.Equal(t, "type", msg.Type())
	require.Equal(t, map[string]interface{}{"k": "v"}, msg.Metadata())
}

func TestDIDCommMsgMap_MarshalJSON(t *testing.T) {
	msg := DIDCommMsgMap{jsonType: "type", jsonMetadata: map[string]interface{}{"k": "v"}}

	b, err := json.Marshal(msg)
	require.NoError(t, err)
	require.JSONEq(t, `{"@type":"type"}`, string(b))
}

func TestDIDCommMsgMap_Decode(t *testing.T) {
	type Test struct {
		ID      string          `json:"@id"`
		Time    time.Time       `json:"time"`
		Bytes   []byte          `json:"bytes"`
		Count   int             `json:"count"`
		Payload json.RawMessage `json:"payload"`
	}

	expected := Test{
		ID:      "msg-1",
		Time:    time.Now().UTC().Truncate(time.Second),
		Bytes:   []byte("payload"),
		Count:   3,
		Payload: json.RawMessage(`{"a":1}`),
	}

	msg, err := NewDIDCommMsgMap(expected)
	require.NoError(t, err)
	require.Equal(t, "msg-1", msg.ID())

	actual := Test{}
	require.NoError(t, msg.Decode(&actual))
	require.Equal(t, expected.ID, actual.ID)
	require.True(t, expected.Time.Equal(actual.Time))
	require.Equal(t, expected.Bytes, actual.Bytes)
	require.Equal(t, expected.Count, actual.Count)
	require.JSONEq(t, string(expected.Payload), string(actual.Payload))

	_, err = ParseDIDCommMsgMap([]byte("{"))
	require.Error(t, err)
}
