/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presentproof

import "fmt"

// State of a proof exchange.
type State int

// Proof exchange states. The numeric order is the protocol order.
const (
	StateInitialized State = iota
	StateRequestSent
	StateRequestReceived
	StatePresentationSent
	StatePresentationReceived
	StateAccepted
	StateRejected
	StateDeclined
	StateFailed
)

var stateNames = map[State]string{
	StateInitialized:          "initialized",
	StateRequestSent:          "request_sent",
	StateRequestReceived:      "request_received",
	StatePresentationSent:     "presentation_sent",
	StatePresentationReceived: "presentation_received",
	StateAccepted:             "accepted",
	StateRejected:             "rejected",
	StateDeclined:             "declined",
	StateFailed:               "failed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}

	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether the exchange is over.
func (s State) Terminal() bool {
	return s >= StateAccepted
}

// Status is the verification outcome of a received presentation.
type Status int

// Verification statuses.
const (
	StatusUndefined Status = iota
	StatusValidated
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusValidated:
		return "validated"
	case StatusInvalid:
		return "invalid"
	default:
		return "undefined"
	}
}

// Role of the local party.
type Role string

// Roles.
const (
	RoleVerifier Role = "verifier"
	RoleProver   Role = "prover"
)

type event int

const (
	eventSendRequest event = iota
	eventPresentation
	eventVerified
	eventVerifyFailed
	eventProposal
	eventProblemReport
	eventRequest
	eventSendPresentation
	eventDecline
	eventAck
)

var eventNames = map[event]string{
	eventSendRequest:      "send request",
	eventPresentation:     "presentation",
	eventVerified:         "presentation verified",
	eventVerifyFailed:     "presentation invalid",
	eventProposal:         "presentation proposal",
	eventProblemReport:    "problem report",
	eventRequest:          "presentation request",
	eventSendPresentation: "send presentation",
	eventDecline:          "decline",
	eventAck:              "ack",
}

func (e event) String() string {
	return eventNames[e]
}

type effect int

const (
	effectNone effect = iota
	effectSendRequest
	effectSendAck
	effectSendProblemReport
	effectSendPresentation
	effectSendDecline
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

// transitions of both roles. An effect is performed before its step is committed.
//
//nolint:gochecknoglobals
var transitions = map[transitionKey]step{
	{RoleVerifier, StateInitialized, eventSendRequest}:           {StateRequestSent, effectSendRequest},
	{RoleVerifier, StateRequestSent, eventPresentation}:          {StatePresentationReceived, effectNone},
	{RoleVerifier, StatePresentationReceived, eventVerified}:     {StateAccepted, effectSendAck},
	{RoleVerifier, StatePresentationReceived, eventVerifyFailed}: {StateRejected, effectSendProblemReport},
	{RoleVerifier, StateRequestSent, eventProposal}:              {StateDeclined, effectNone},
	{RoleVerifier, StateRequestSent, eventProblemReport}:         {StateDeclined, effectNone},

	{RoleProver, StateRequestReceived, eventSendPresentation}: {StatePresentationSent, effectSendPresentation},
	{RoleProver, StateRequestReceived, eventDecline}:          {StateDeclined, effectSendDecline},
	{RoleProver, StateRequestReceived, eventProblemReport}:    {StateFailed, effectNone},
	{RoleProver, StatePresentationSent, eventAck}:             {StateAccepted, effectNone},
	{RoleProver, StatePresentationSent, eventProblemReport}:   {StateRejected, effectNone},
}

// expectedIn is the state in which each inbound event applies, per role.
//
//nolint:gochecknoglobals
var expectedIn = map[Role]map[event]State{
	RoleVerifier: {
		eventPresentation: StateRequestSent,
		eventProposal:     StateRequestSent,
	},
	RoleProver: {
		eventRequest: StateRequestReceived,
		eventAck:     StatePresentationSent,
	},
}

// transition is the pure state function of the protocol. ignored is true for inbound events that
// belong to a step already taken, such as a redelivered presentation.
func transition(role Role, from State, e event) (next step, ignored bool, err error) {
	if s, ok := transitions[transitionKey{role, from, e}]; ok {
		return s, false, nil
	}

	if from.Terminal() {
		return step{to: from}, true, nil
	}

	if expected, ok := expectedIn[role][e]; ok && from >= expected {
		return step{to: from}, true, nil
	}

	return step{}, false, fmt.Errorf("%s: %s is not valid in state %s", role, e, from)
}

func eventFromMsgType(role Role, msgType string) (event, bool) {
	switch msgType {
	case PresentationMsgType:
		return eventPresentation, role == RoleVerifier
	case ProposePresentationMsgType:
		return eventProposal, role == RoleVerifier
	case RequestPresentationMsgType:
		return eventRequest, role == RoleProver
	case AckMsgType:
		return eventAck, role == RoleProver
	case ProblemReportMsgType:
		return eventProblemReport, true
	default:
		return 0, false
	}
}

// verdict is the event that settles a received presentation.
func verdict(status Status) event {
	if status == StatusValidated {
		return eventVerified
	}

	return eventVerifyFailed
}
