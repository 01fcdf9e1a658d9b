/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package connection

import "fmt"

// State of a pairwise connection.
type State int

// Connection states. The numeric order is the protocol order.
const (
	StateInitialized State = iota
	StateInvitationGenerated
	StateInvitationReceived
	StateRequestSent
	StateRequestReceived
	StateResponseSent
	StateResponseReceived
	StateCompleted
	StateRedirected
)

var stateNames = map[State]string{
	StateInitialized:         "initialized",
	StateInvitationGenerated: "invitation_generated",
	StateInvitationReceived:  "invitation_received",
	StateRequestSent:         "request_sent",
	StateRequestReceived:     "request_received",
	StateResponseSent:        "response_sent",
	StateResponseReceived:    "response_received",
	StateCompleted:           "completed",
	StateRedirected:          "redirected",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}

	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further protocol message changes the state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateRedirected
}

// Role of the local party.
type Role string

// Roles.
const (
	Inviter Role = "inviter"
	Invitee Role = "invitee"
)

type event int

const (
	eventConnect event = iota
	eventRedirect
	eventRequest
	eventResponse
	eventAck
	eventPing
	eventRedirectReceived
	eventResponseDispatched
	eventAckDispatched
)

var eventNames = map[event]string{
	eventConnect:            "connect",
	eventRedirect:           "redirect",
	eventRequest:            "request",
	eventResponse:           "response",
	eventAck:                "ack",
	eventPing:               "ping",
	eventRedirectReceived:   "redirect received",
	eventResponseDispatched: "response dispatched",
	eventAckDispatched:      "ack dispatched",
}

func (e event) String() string {
	return eventNames[e]
}

type effect int

const (
	effectNone effect = iota
	effectSendRequest
	effectSendResponse
	effectSendAck
	effectSendRedirect
)

type transitionKey struct {
	role  Role
	from  State
	event event
}

type step struct {
	to     State
	effect effect
}

// transitions is the connection protocol. An effect is performed before its step is committed, so
// a failed dispatch leaves the connection in its previous state.
//
//nolint:gochecknoglobals
var transitions = map[transitionKey]step{
	{Inviter, StateInitialized, eventConnect}:                  {StateInvitationGenerated, effectNone},
	{Inviter, StateInvitationGenerated, eventRequest}:          {StateRequestReceived, effectNone},
	{Inviter, StateRequestReceived, eventResponseDispatched}:   {StateResponseSent, effectSendResponse},
	{Inviter, StateResponseSent, eventAck}:                     {StateCompleted, effectNone},
	{Inviter, StateResponseSent, eventPing}:                    {StateCompleted, effectNone},
	{Inviter, StateInvitationGenerated, eventRedirectReceived}: {StateRedirected, effectNone},

	{Invitee, StateInvitationReceived, eventConnect}:     {StateRequestSent, effectSendRequest},
	{Invitee, StateInvitationReceived, eventRedirect}:    {StateRedirected, effectSendRedirect},
	{Invitee, StateRequestSent, eventResponse}:           {StateResponseReceived, effectNone},
	{Invitee, StateResponseReceived, eventAckDispatched}: {StateCompleted, effectSendAck},
}

// expectedIn is the state in which each inbound event applies, per role.
//
//nolint:gochecknoglobals
var expectedIn = map[Role]map[event]State{
	Inviter: {
		eventRequest:          StateInvitationGenerated,
		eventAck:              StateResponseSent,
		eventPing:             StateResponseSent,
		eventRedirectReceived: StateInvitationGenerated,
	},
	Invitee: {
		eventResponse: StateRequestSent,
	},
}

// transition is the pure state function of the protocol. ignored is true for events that belong to
// a step already taken, such as redelivered messages.
func transition(role Role, from State, e event) (next step, ignored bool, err error) {
	if s, ok := transitions[transitionKey{role, from, e}]; ok {
		return s, false, nil
	}

	if from.Terminal() {
		return step{to: from}, true, nil
	}

	if expected, ok := expectedIn[role][e]; ok && from > expected {
		return step{to: from}, true, nil
	}

	return step{}, false, fmt.Errorf("%s: %s is not valid in state %s", role, e, from)
}

// pendingEvent is the outbound step a state owes, if any. The step is retried by UpdateState until
// its dispatch succeeds.
func pendingEvent(role Role, s State) (event, bool) {
	switch {
	case role == Inviter && s == StateRequestReceived:
		return eventResponseDispatched, true
	case role == Invitee && s == StateResponseReceived:
		return eventAckDispatched, true
	default:
		return 0, false
	}
}

func eventFromMsgType(role Role, msgType string) (event, bool) {
	switch msgType {
	case RequestMsgType:
		return eventRequest, role == Inviter
	case ResponseMsgType:
		return eventResponse, role == Invitee
	case AckMsgType:
		return eventAck, role == Inviter
	case PingMsgType:
		return eventPing, true
	case RedirectMsgType:
		return eventRedirectReceived, role == Inviter
	default:
		return 0, false
	}
}
