/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package service

// StateMsgType state msg type.
type StateMsgType int

const (
	// PreState pre state.
	PreState StateMsgType = iota

	// PostState post state.
	PostState
)

// StateMsg is used in MsgEvent to pass the state details to the consumer. Refer Message.RegisterMsgEvent.
type StateMsg struct {
	// Name of the protocol (connection, issue-credential, present-proof).
	ProtocolName string

	// type of the message (pre or post), refer service.StateMsgType
	Type StateMsgType

	// current state name.
	StateID string

	// SourceID is the caller supplied id of the object that changed state.
	SourceID string

	// ThreadID of the protocol instance, empty until it is known.
	ThreadID string

	// Msg is the inbound message that caused the transition, nil for caller driven steps.
	Msg DIDCommMsgMap
}
