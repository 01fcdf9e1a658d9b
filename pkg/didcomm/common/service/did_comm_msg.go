/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package service

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

const (
	jsonID             = "@id"
	jsonType           = "@type"
	jsonThread         = "~thread"
	jsonThreadID       = "thid"
	jsonParentThreadID = "pthid"
	jsonMetadata       = "_internal_metadata"
)

// ErrThreadIDNotFound occurs when a message has neither a thread id nor a message id.
var ErrThreadIDNotFound = errors.New("threadID not found")

// ErrNilChannel occurs when a nil channel is registered.
var ErrNilChannel = errors.New("channel is nil")

// DIDCommMsgMap is a generic DIDComm message.
type DIDCommMsgMap map[string]interface{}

// ParseDIDCommMsgMap returns a DIDComm message from raw JSON.
func ParseDIDCommMsgMap(payload []byte) (DIDCommMsgMap, error) {
	var msg DIDCommMsgMap

	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("invalid payload data format: %w", err)
	}

	return msg, nil
}

// NewDIDCommMsgMap converts a message struct to a DIDCommMsgMap.
func NewDIDCommMsgMap(v interface{}) (DIDCommMsgMap, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	return ParseDIDCommMsgMap(raw)
}

// ID returns the message id.
func (m DIDCommMsgMap) ID() string {
	return m.str(jsonID)
}

// Type returns the message type.
func (m DIDCommMsgMap) Type() string {
	return m.str(jsonType)
}

// ThreadID returns the message thread id. A message without a thread decorator starts its own
// thread, so its id is returned.
func (m DIDCommMsgMap) ThreadID() (string, error) {
	if m == nil {
		return "", ErrThreadIDNotFound
	}

	if thread, ok := m[jsonThread].(map[string]interface{}); ok {
		if thid, ok := thread[jsonThreadID].(string); ok && thid != "" {
			return thid, nil
		}
	}

	if id := m.ID(); id != "" {
		return id, nil
	}

	return "", ErrThreadIDNotFound
}

// ParentThreadID returns the message parent thread id.
func (m DIDCommMsgMap) ParentThreadID() string {
	if m == nil {
		return ""
	}

	thread, ok := m[jsonThread].(map[string]interface{})
	if !ok {
		return ""
	}

	pthid, _ := thread[jsonParentThreadID].(string) //nolint:errcheck

	return pthid
}

// SetThread sets the thread decorator of the message.
func (m DIDCommMsgMap) SetThread(thid, pthid string) {
	if m == nil || (thid == "" && pthid == "") {
		return
	}

	thread := map[string]interface{}{}

	if thid != "" {
		thread[jsonThreadID] = thid
	}

	if pthid != "" {
		thread[jsonParentThreadID] = pthid
	}

	m[jsonThread] = thread
}

// Metadata returns the internal metadata of the message.
func (m DIDCommMsgMap) Metadata() map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}

	md, ok := m[jsonMetadata].(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}

	return md
}

// Clone returns a shallow copy of the message.
func (m DIDCommMsgMap) Clone() DIDCommMsgMap {
	if m == nil {
		return nil
	}

	msg := DIDCommMsgMap{}
	for k, v := range m {
		msg[k] = v
	}

	return msg
}

// MarshalJSON writes the message without its internal metadata.
func (m DIDCommMsgMap) MarshalJSON() ([]byte, error) {
	clone := map[string]interface{}{}

	for k, v := range m {
		if k != jsonMetadata {
			clone[k] = v
		}
	}

	return json.Marshal(clone)
}

// Decode converts the message to a struct using its json tags.
func (m DIDCommMsgMap) Decode(v interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       decodeHook,
		WeaklyTypedInput: true,
		Result:           v,
		TagName:          "json",
	})
	if err != nil {
		return err
	}

	return decoder.Decode(m)
}

func (m DIDCommMsgMap) str(key string) string {
	if m == nil {
		return ""
	}

	s, _ := m[key].(string) //nolint:errcheck

	return s
}

func decodeHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	isBytes := to.Kind() == reflect.Slice && to.Elem().Kind() == reflect.Uint8

	switch from.Kind() { //nolint:exhaustive
	case reflect.String:
		if to == reflect.TypeOf(time.Time{}) {
			return time.Parse(time.RFC3339, data.(string))
		}

		if isBytes {
			if to == reflect.TypeOf(json.RawMessage{}) {
				return json.Marshal(data)
			}

			return base64.StdEncoding.DecodeString(data.(string))
		}
	case reflect.Map, reflect.Slice, reflect.Bool, reflect.Float64:
		if to == reflect.TypeOf(json.RawMessage{}) {
			return json.Marshal(data)
		}
	}

	return data, nil
}
