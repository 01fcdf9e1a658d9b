/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuecredential

import "fmt"

// State of a credential exchange.
type State int

// Credential exchange states. The numeric order is the protocol order.
const (
	StateInitialized State = iota
	StateOfferSent
	StateOfferReceived
	StateRequestSent
	StateRequestReceived
	StateIssued
	StateAccepted
	StateRevoked
	StateFailed
)

var stateNames = map[State]string{
	StateInitialized:     "initialized",
	StateOfferSent:       "offer_sent",
	StateOfferReceived:   "offer_received",
	StateRequestSent:     "request_sent",
	StateRequestReceived: "request_received",
	StateIssued:          "issued",
	StateAccepted:        "accepted",
	StateRevoked:         "revoked",
	StateFailed:          "failed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}

	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether the exchange is over.
func (s State) Terminal() bool {
	return s == StateAccepted || s == StateRevoked || s == StateFailed
}

// Role of the local party.
type Role string

// Roles.
const (
	RoleIssuer Role = "issuer"
	RoleHolder Role = "holder"
)

type event int

const (
	eventSendOffer event = iota
	eventRequest
	eventSendCredential
	eventAck
	eventRevoke
	eventTerminate
	eventProblemReport
	eventSendRequest
	eventCredential
	eventOffer
)

var eventNames = map[event]string{
	eventSendOffer:      "send offer",
	eventRequest:        "credential request",
	eventSendCredential: "send credential",
	eventAck:            "ack",
	eventRevoke:         "revoke",
	eventTerminate:      "terminate",
	eventProblemReport:  "problem report",
	eventSendRequest:    "send request",
	eventCredential:     "credential",
	eventOffer:          "credential offer",
}

func (e event) String() string {
	return eventNames[e]
}

type effect int

const (
	effectNone effect = iota
	effectSendOffer
	effectSendCredential
	effectRevoke
	effectSendProblemReport
	effectSendRequest
	effectStoreCredential
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
	{RoleIssuer, StateInitialized, eventSendOffer}:          {StateOfferSent, effectSendOffer},
	{RoleIssuer, StateOfferSent, eventRequest}:              {StateRequestReceived, effectNone},
	{RoleIssuer, StateRequestReceived, eventSendCredential}: {StateIssued, effectSendCredential},
	{RoleIssuer, StateIssued, eventAck}:                     {StateIssued, effectNone},
	{RoleIssuer, StateIssued, eventRevoke}:                  {StateRevoked, effectRevoke},
	{RoleIssuer, StateInitialized, eventTerminate}:          {StateFailed, effectNone},
	{RoleIssuer, StateOfferSent, eventTerminate}:            {StateFailed, effectSendProblemReport},
	{RoleIssuer, StateRequestReceived, eventTerminate}:      {StateFailed, effectSendProblemReport},
	{RoleIssuer, StateOfferSent, eventProblemReport}:        {StateFailed, effectNone},
	{RoleIssuer, StateRequestReceived, eventProblemReport}:  {StateFailed, effectNone},
	{RoleIssuer, StateIssued, eventProblemReport}:           {StateFailed, effectNone},

	{RoleHolder, StateOfferReceived, eventSendRequest}:   {StateRequestSent, effectSendRequest},
	{RoleHolder, StateRequestSent, eventCredential}:      {StateAccepted, effectStoreCredential},
	{RoleHolder, StateOfferReceived, eventTerminate}:     {StateFailed, effectSendProblemReport},
	{RoleHolder, StateRequestSent, eventTerminate}:       {StateFailed, effectSendProblemReport},
	{RoleHolder, StateOfferReceived, eventProblemReport}: {StateFailed, effectNone},
	{RoleHolder, StateRequestSent, eventProblemReport}:   {StateFailed, effectNone},
}

// expectedIn is the state in which each inbound event applies, per role.
//
//nolint:gochecknoglobals
var expectedIn = map[Role]map[event]State{
	RoleIssuer: {
		eventRequest: StateOfferSent,
		eventAck:     StateIssued,
	},
	RoleHolder: {
		eventCredential: StateRequestSent,
		eventOffer:      StateOfferReceived,
	},
}

// transition is the pure state function of the protocol. ignored is true for inbound events that
// belong to a step already taken, such as a redelivered request.
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
	case RequestCredentialMsgType:
		return eventRequest, role == RoleIssuer
	case AckMsgType:
		return eventAck, role == RoleIssuer
	case IssueCredentialMsgType:
		return eventCredential, role == RoleHolder
	case OfferCredentialMsgType:
		return eventOffer, role == RoleHolder
	case ProblemReportMsgType:
		return eventProblemReport, true
	default:
		return 0, false
	}
}
