/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package presentproof implements the verifier and prover sides of the present proof protocol
// (Aries RFC 0037) over a pairwise connection.
package presentproof

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-vcx-go/pkg/anoncreds"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/decorator"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/exchange"
	"github.com/hyperledger/aries-vcx-go/pkg/ledger"
	"github.com/hyperledger/aries-vcx-go/pkg/store/wallet"
	"github.com/hyperledger/aries-vcx-go/pkg/vcx/codec"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

var logger = log.New("vcx/didcomm/presentproof")

// ProtocolName is the name reported in state events.
const ProtocolName = "present-proof"

// Provider supplies the collaborators of a proof exchange.
type Provider interface {
	Wallet() wallet.Wallet
	Ledger() *ledger.Client
	// Events receives a state message after every transition. It may be nil.
	Events() *service.Message
}

type verifierRecord struct {
	SourceID        string                  `json:"source_id"`
	State           State                   `json:"state"`
	Name            string                  `json:"name"`
	ThreadID        string                  `json:"thread_id,omitempty"`
	ConnPwDID       string                  `json:"conn_pw_did,omitempty"`
	Request         *anoncreds.ProofRequest `json:"proof_request"`
	RequestMsg      *RequestPresentation    `json:"request_msg,omitempty"`
	Presentation    *anoncreds.Presentation `json:"presentation,omitempty"`
	PresentationMsg *Presentation           `json:"presentation_msg,omitempty"`
	Verification    *anoncreds.Verification `json:"verification,omitempty"`
	Status          Status                  `json:"status"`
	Proposal        *PresentationPreview    `json:"proposal,omitempty"`
	Problem         *Description            `json:"problem,omitempty"`
}

// Verifier is the requesting side of one proof exchange. It is not safe for concurrent use.
type Verifier struct {
	rec  verifierRecord
	prov Provider
}

// NewVerifier builds a proof request named name from JSON lists of requested attributes and
// predicates. revocationInterval is an optional {"from":..,"to":..} object applied to every group
// that does not carry its own.
func NewVerifier(prov Provider, sourceID string, attrsJSON, predsJSON, revocationInterval []byte,
	name string) (*Verifier, error) {
	interval, err := parseInterval(revocationInterval)
	if err != nil {
		return nil, err
	}

	req, err := anoncreds.NewProofRequest(name, attrsJSON, predsJSON, interval)
	if err != nil {
		return nil, err
	}

	return &Verifier{prov: prov, rec: verifierRecord{
		SourceID: sourceID,
		State:    StateInitialized,
		Name:     name,
		Request:  req,
	}}, nil
}

func parseInterval(data []byte) (*anoncreds.NonRevokedInterval, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil //nolint:nilnil
	}

	interval := &anoncreds.NonRevokedInterval{}
	if err := json.Unmarshal(data, interval); err != nil {
		return nil, vcxerr.Wrap(vcxerr.ValidationFailure, err, "non-revocation interval")
	}

	if interval.From == 0 && interval.To == 0 {
		return nil, nil //nolint:nilnil
	}

	return interval, nil
}

// SendRequest binds the exchange to conn and sends the presentation request.
func (v *Verifier) SendRequest(ctx context.Context, conn exchange.Conn) error {
	if err := exchange.CheckConnection(v.rec.SourceID, v.rec.ConnPwDID, conn); err != nil {
		return err
	}

	if err := v.fire(ctx, conn, eventSendRequest, nil); err != nil {
		return err
	}

	v.rec.ConnPwDID = conn.PwDID()

	return nil
}

// RequestMessage returns the presentation request, building it when it was not sent yet.
func (v *Verifier) RequestMessage() (*RequestPresentation, error) {
	if v.rec.RequestMsg == nil {
		if v.rec.State != StateInitialized {
			return nil, vcxerr.New(vcxerr.InvalidState, "verifier %s has no request in state %s", v.rec.SourceID, v.rec.State)
		}

		if err := v.buildRequest(); err != nil {
			return nil, err
		}
	}

	msg := *v.rec.RequestMsg

	return &msg, nil
}

// UpdateState settles a verified presentation whose verdict was not delivered yet and applies the
// present proof messages of the exchange thread waiting on conn.
func (v *Verifier) UpdateState(ctx context.Context, conn exchange.Conn) (State, error) {
	if err := exchange.CheckConnection(v.rec.SourceID, v.rec.ConnPwDID, conn); err != nil {
		return v.rec.State, err
	}

	if v.rec.State == StatePresentationReceived {
		if err := v.fire(ctx, conn, verdict(v.rec.Status), nil); err != nil {
			return v.rec.State, err
		}
	}

	if v.rec.State.Terminal() || v.rec.ThreadID == "" {
		return v.rec.State, nil
	}

	msgs, err := exchange.Inbox(ctx, conn, PresentProofSpec, v.rec.ThreadID)
	if err != nil {
		return v.rec.State, err
	}

	for _, in := range msgs {
		before := v.rec.State

		err := v.handleInbound(ctx, conn, in.Msg)
		if err != nil && vcxerr.Is(err, vcxerr.CollaboratorFailure) && v.rec.State == before {
			return v.rec.State, err
		}

		if err != nil && !vcxerr.Is(err, vcxerr.CollaboratorFailure) {
			logger.Warnf("verifier %s: dropping %s message %s: %v", v.rec.SourceID, in.Msg.Type(), in.UID, err)
		}

		if rerr := conn.MarkReviewed(ctx, in.UID); rerr != nil {
			return v.rec.State, rerr
		}

		if err != nil && vcxerr.Is(err, vcxerr.CollaboratorFailure) {
			return v.rec.State, err
		}
	}

	return v.rec.State, nil
}

// UpdateStateWithMessage applies a message obtained outside the mailbox. The verdict on a
// presentation is sent over conn; with a nil conn it is owed until the next UpdateState.
func (v *Verifier) UpdateStateWithMessage(ctx context.Context, conn exchange.Conn, payload []byte) (State, error) {
	msg, err := service.ParseDIDCommMsgMap(payload)
	if err != nil {
		return v.rec.State, vcxerr.Wrap(vcxerr.ValidationFailure, err, "present proof message")
	}

	if err := v.handleInbound(ctx, conn, msg); err != nil {
		return v.rec.State, err
	}

	return v.rec.State, nil
}

// Presentation returns the received presentation.
func (v *Verifier) Presentation() (*anoncreds.Presentation, error) {
	if v.rec.Presentation == nil {
		return nil, vcxerr.New(vcxerr.InvalidState, "verifier %s has received no presentation", v.rec.SourceID)
	}

	pres := *v.rec.Presentation

	return &pres, nil
}

// VerificationStatus returns the outcome of the presentation check.
func (v *Verifier) VerificationStatus() Status { return v.rec.Status }

// Verification returns the detailed outcome of the presentation check, if one ran.
func (v *Verifier) Verification() *anoncreds.Verification { return v.rec.Verification }

// Proposal returns the counter proposal with which the prover declined, if any.
func (v *Verifier) Proposal() *PresentationPreview { return v.rec.Proposal }

// ProofRequest returns the indy proof request of the exchange.
func (v *Verifier) ProofRequest() *anoncreds.ProofRequest { return v.rec.Request }

// Problem returns the problem report that ended the exchange, if any.
func (v *Verifier) Problem() *Description { return v.rec.Problem }

// State returns the exchange state.
func (v *Verifier) State() State { return v.rec.State }

// SourceID returns the caller supplied id.
func (v *Verifier) SourceID() string { return v.rec.SourceID }

// ThreadID returns the exchange thread id, the id of the request.
func (v *Verifier) ThreadID() string { return v.rec.ThreadID }

// Serialize returns the versioned JSON of the exchange.
func (v *Verifier) Serialize() ([]byte, error) {
	return codec.Marshal(codec.Verifier, v.rec)
}

// DeserializeVerifier restores a verifier exchange.
func DeserializeVerifier(prov Provider, data []byte) (*Verifier, error) {
	var rec verifierRecord
	if _, err := codec.Unmarshal(codec.Verifier, data, &rec); err != nil {
		return nil, err
	}

	if rec.Request == nil {
		return nil, vcxerr.New(vcxerr.ValidationFailure, "serialized verifier has no proof request")
	}

	return &Verifier{rec: rec, prov: prov}, nil
}

func (v *Verifier) handleInbound(ctx context.Context, conn exchange.Conn, msg service.DIDCommMsgMap) error {
	e, ok := eventFromMsgType(RoleVerifier, msg.Type())
	if !ok {
		return vcxerr.New(vcxerr.InvalidMessageForState,
			"verifier %s: %s does not apply to the verifier", v.rec.SourceID, msg.Type())
	}

	if thid, err := msg.ThreadID(); err != nil || v.rec.ThreadID == "" || thid != v.rec.ThreadID {
		return vcxerr.New(vcxerr.ValidationFailure, "%s does not belong to thread %s", msg.Type(), v.rec.ThreadID)
	}

	next, ignored, err := transition(RoleVerifier, v.rec.State, e)
	if err != nil {
		return vcxerr.Wrap(vcxerr.InvalidMessageForState, err, "verifier %s", v.rec.SourceID)
	}

	if ignored {
		logger.Warnf("verifier %s: ignoring %s in state %s", v.rec.SourceID, msg.Type(), v.rec.State)

		return nil
	}

	switch e { //nolint:exhaustive
	case eventPresentation:
		err = v.absorbPresentation(ctx, msg)
	case eventProposal:
		err = v.absorbProposal(msg)
	case eventProblemReport:
		v.rec.Problem, err = decodeProblem(msg)
	}

	if err != nil {
		return err
	}

	v.enter(next.to, msg)

	if next.to != StatePresentationReceived || conn == nil {
		return nil
	}

	return v.fire(ctx, conn, verdict(v.rec.Status), nil)
}

func (v *Verifier) absorbPresentation(ctx context.Context, msg service.DIDCommMsgMap) error {
	p := &Presentation{}
	if err := msg.Decode(p); err != nil {
		return vcxerr.Wrap(vcxerr.ValidationFailure, err, "presentation")
	}

	pres := &anoncreds.Presentation{}
	if err := decorator.DecodeAttachment(p.Presentations, presentationAttachID, pres); err != nil {
		return vcxerr.Wrap(vcxerr.ValidationFailure, err, "presentation attachment")
	}

	result, err := anoncreds.VerifyPresentation(ctx, v.prov.Ledger(), v.rec.Request, pres)
	if err != nil {
		logger.Errorf("verifier %s: presentation check failed: %v", v.rec.SourceID, err)

		return err
	}

	v.rec.Presentation = pres
	v.rec.PresentationMsg = p
	v.rec.Verification = &result
	v.rec.Status = StatusInvalid

	if result.Valid {
		v.rec.Status = StatusValidated
	} else {
		v.rec.Problem = &Description{Code: problemCodeInvalidPresented, En: result.Reason}
	}

	return nil
}

func (v *Verifier) absorbProposal(msg service.DIDCommMsgMap) error {
	p := &ProposePresentation{}
	if err := msg.Decode(p); err != nil {
		return vcxerr.Wrap(vcxerr.ValidationFailure, err, "presentation proposal")
	}

	v.rec.Proposal = &p.PresentationProposal

	return nil
}

func (v *Verifier) fire(ctx context.Context, conn exchange.Conn, e event, msg service.DIDCommMsgMap) error {
	next, ignored, err := transition(RoleVerifier, v.rec.State, e)
	if err != nil {
		return vcxerr.Wrap(vcxerr.InvalidState, err, "verifier %s", v.rec.SourceID)
	}

	if ignored {
		return vcxerr.New(vcxerr.InvalidState, "verifier %s: %s in terminal state %s", v.rec.SourceID, e, v.rec.State)
	}

	if err := v.perform(ctx, conn, next.effect); err != nil {
		return err
	}

	v.enter(next.to, msg)

	return nil
}

func (v *Verifier) enter(to State, msg service.DIDCommMsgMap) {
	from := v.rec.State
	v.rec.State = to

	logger.Debugf("verifier %s: %s -> %s", v.rec.SourceID, from, to)

	notify(v.prov.Events(), v.rec.SourceID, v.rec.ThreadID, to, msg)
}

func (v *Verifier) perform(ctx context.Context, conn exchange.Conn, eff effect) error {
	switch eff {
	case effectSendRequest:
		return v.sendRequest(ctx, conn)
	case effectSendAck:
		return sendAck(ctx, conn, v.rec.SourceID, v.rec.ThreadID)
	case effectSendProblemReport:
		return sendProblemReport(ctx, conn, v.rec.SourceID, v.rec.ThreadID, v.rec.Problem)
	case effectNone, effectSendPresentation, effectSendDecline:
	}

	return nil
}

func (v *Verifier) buildRequest() error {
	att, err := decorator.NewJSONAttachment(requestAttachID, v.rec.Request)
	if err != nil {
		return err
	}

	v.rec.RequestMsg = &RequestPresentation{
		Type:                 RequestPresentationMsgType,
		ID:                   uuid.New().String(),
		Comment:              v.rec.Name,
		RequestPresentations: []decorator.Attachment{att},
	}

	return nil
}

func (v *Verifier) sendRequest(ctx context.Context, conn exchange.Conn) error {
	if v.rec.RequestMsg == nil {
		if err := v.buildRequest(); err != nil {
			return err
		}
	}

	if _, err := conn.Send(ctx, v.rec.RequestMsg); err != nil {
		return err
	}

	v.rec.ThreadID = v.rec.RequestMsg.ID

	return nil
}

func decodeProblem(msg service.DIDCommMsgMap) (*Description, error) {
	p := &ProblemReport{}
	if err := msg.Decode(p); err != nil {
		return nil, vcxerr.Wrap(vcxerr.ValidationFailure, err, "problem report")
	}

	return &p.Description, nil
}

func sendAck(ctx context.Context, conn exchange.Conn, sourceID, thid string) error {
	if conn == nil {
		return vcxerr.New(vcxerr.ValidationFailure, "%s: a connection is required to acknowledge", sourceID)
	}

	_, err := conn.Send(ctx, &Ack{
		Type:   AckMsgType,
		ID:     uuid.New().String(),
		Status: ackStatusOK,
		Thread: &decorator.Thread{ID: thid},
	})

	return err
}

func sendProblemReport(ctx context.Context, conn exchange.Conn, sourceID, thid string, d *Description) error {
	if conn == nil {
		return vcxerr.New(vcxerr.ValidationFailure, "%s: a connection is required to report the problem", sourceID)
	}

	report := &ProblemReport{Type: ProblemReportMsgType, ID: uuid.New().String(), Thread: &decorator.Thread{ID: thid}}
	if d != nil {
		report.Description = *d
	}

	_, err := conn.Send(ctx, report)

	return err
}

func notify(events *service.Message, sourceID, thid string, to State, msg service.DIDCommMsgMap) {
	events.Notify(service.StateMsg{
		ProtocolName: ProtocolName,
		Type:         service.PostState,
		StateID:      to.String(),
		SourceID:     sourceID,
		ThreadID:     thid,
		Msg:          msg,
	})
}
