/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presentproof

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/hyperledger/aries-vcx-go/pkg/anoncreds"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/decorator"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/exchange"
	"github.com/hyperledger/aries-vcx-go/pkg/vcx/codec"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

type proverRecord struct {
	SourceID        string                  `json:"source_id"`
	State           State                   `json:"state"`
	ThreadID        string                  `json:"thread_id"`
	ConnPwDID       string                  `json:"conn_pw_did,omitempty"`
	RequestMsg      *RequestPresentation    `json:"request_msg"`
	Request         *anoncreds.ProofRequest `json:"proof_request"`
	Presentation    *anoncreds.Presentation `json:"presentation,omitempty"`
	PresentationMsg *Presentation           `json:"presentation_msg,omitempty"`
	Proposal        *PresentationPreview    `json:"proposal,omitempty"`
	Problem         *Description            `json:"problem,omitempty"`
}

// Prover is the presenting side of one proof exchange. It is not safe for concurrent use.
type Prover struct {
	rec  proverRecord
	prov Provider
}

// ParseRequest decodes and checks a presentation request message.
func ParseRequest(data []byte) (*RequestPresentation, error) {
	req := &RequestPresentation{}
	if err := json.Unmarshal(data, req); err != nil {
		return nil, vcxerr.Wrap(vcxerr.ValidationFailure, err, "presentation request")
	}

	if _, err := requestPayload(req); err != nil {
		return nil, err
	}

	return req, nil
}

func requestPayload(req *RequestPresentation) (*anoncreds.ProofRequest, error) {
	if req.Type != RequestPresentationMsgType {
		return nil, vcxerr.New(vcxerr.ValidationFailure, "%q is not a presentation request", req.Type)
	}

	if req.ID == "" {
		return nil, vcxerr.New(vcxerr.ValidationFailure, "presentation request has no id")
	}

	payload := &anoncreds.ProofRequest{}
	if err := decorator.DecodeAttachment(req.RequestPresentations, requestAttachID, payload); err != nil {
		return nil, vcxerr.Wrap(vcxerr.ValidationFailure, err, "presentation request attachment")
	}

	if err := payload.Validate(); err != nil {
		return nil, err
	}

	return payload, nil
}

// GetRequests returns the presentation requests waiting on conn, in arrival order.
func GetRequests(ctx context.Context, conn exchange.Conn) ([]*RequestPresentation, error) {
	msgs, err := exchange.Inbox(ctx, conn, PresentProofSpec, "")
	if err != nil {
		return nil, err
	}

	var requests []*RequestPresentation

	for _, in := range exchange.OfType(msgs, RequestPresentationMsgType) {
		req := &RequestPresentation{}
		if err := in.Msg.Decode(req); err != nil {
			logger.Warnf("connection %s: skipping undecodable request %s: %v", conn.SourceID(), in.UID, err)

			continue
		}

		if _, err := requestPayload(req); err != nil {
			logger.Warnf("connection %s: skipping request %s: %v", conn.SourceID(), in.UID, err)

			continue
		}

		requests = append(requests, req)
	}

	return requests, nil
}

// NewProverFromRequest starts the prover side of the exchange opened by req.
func NewProverFromRequest(prov Provider, sourceID string, req *RequestPresentation) (*Prover, error) {
	if req == nil {
		return nil, vcxerr.New(vcxerr.ValidationFailure, "prover %s: presentation request is required", sourceID)
	}

	payload, err := requestPayload(req)
	if err != nil {
		return nil, err
	}

	p := &Prover{prov: prov, rec: proverRecord{
		SourceID:   sourceID,
		State:      StateRequestReceived,
		ThreadID:   req.ID,
		RequestMsg: req,
		Request:    payload,
	}}

	logger.Debugf("prover %s created from request %s", sourceID, req.ID)

	notify(prov.Events(), sourceID, req.ID, StateRequestReceived, nil)

	return p, nil
}

// RetrieveCredentials lists the stored credentials that can answer each referent of the request.
func (p *Prover) RetrieveCredentials(ctx context.Context) (*anoncreds.RetrievedCredentials, error) {
	return anoncreds.RetrieveCredentials(ctx, p.prov.Wallet(), p.rec.Request)
}

// Generate builds the presentation from the credentials selected per referent and the self
// attested values. A presentation generated earlier is replaced.
func (p *Prover) Generate(ctx context.Context, selected *anoncreds.SelectedCredentials,
	selfAttested map[string]string) error {
	if p.rec.State != StateRequestReceived {
		return vcxerr.New(vcxerr.InvalidState, "prover %s cannot generate a presentation in state %s",
			p.rec.SourceID, p.rec.State)
	}

	pres, err := anoncreds.CreatePresentation(ctx, p.prov.Wallet(), p.prov.Ledger(), p.rec.Request, selected, selfAttested)
	if err != nil {
		return err
	}

	p.rec.Presentation = pres

	logger.Debugf("prover %s: presentation generated over %d credentials", p.rec.SourceID, len(pres.Identifiers))

	return nil
}

// Send binds the exchange to conn and sends the generated presentation.
func (p *Prover) Send(ctx context.Context, conn exchange.Conn) error {
	if err := exchange.CheckConnection(p.rec.SourceID, p.rec.ConnPwDID, conn); err != nil {
		return err
	}

	if err := p.fire(ctx, conn, eventSendPresentation, nil); err != nil {
		return err
	}

	p.bind(ctx, conn)

	return nil
}

// DeclineRequest refuses the request with either a reason or a counter proposal, never both.
func (p *Prover) DeclineRequest(ctx context.Context, conn exchange.Conn, reason string,
	proposal *PresentationPreview) error {
	switch {
	case reason != "" && !proposal.Empty():
		return vcxerr.New(vcxerr.ValidationFailure, "prover %s: decline with a reason or a proposal, not both", p.rec.SourceID)
	case reason == "" && proposal.Empty():
		return vcxerr.New(vcxerr.ValidationFailure, "prover %s: decline needs a reason or a proposal", p.rec.SourceID)
	}

	if reason != "" {
		return p.decline(ctx, conn, &Description{Code: problemCodeDeclined, En: reason}, nil)
	}

	return p.decline(ctx, conn, nil, proposal)
}

// Reject refuses the request with a problem report.
func (p *Prover) Reject(ctx context.Context, conn exchange.Conn, reason string) error {
	return p.decline(ctx, conn, &Description{Code: problemCodeRejected, En: reason}, nil)
}

func (p *Prover) decline(ctx context.Context, conn exchange.Conn, problem *Description,
	proposal *PresentationPreview) error {
	if err := exchange.CheckConnection(p.rec.SourceID, p.rec.ConnPwDID, conn); err != nil {
		return err
	}

	prevProblem, prevProposal := p.rec.Problem, p.rec.Proposal
	p.rec.Problem, p.rec.Proposal = problem, proposal

	if err := p.fire(ctx, conn, eventDecline, nil); err != nil {
		p.rec.Problem, p.rec.Proposal = prevProblem, prevProposal

		return err
	}

	p.bind(ctx, conn)

	return nil
}

// PresentationMessage returns the presentation sent.
func (p *Prover) PresentationMessage() (*Presentation, error) {
	if p.rec.PresentationMsg == nil {
		return nil, vcxerr.New(vcxerr.InvalidState, "prover %s has sent no presentation", p.rec.SourceID)
	}

	msg := *p.rec.PresentationMsg

	return &msg, nil
}

// Presentation returns the generated presentation.
func (p *Prover) Presentation() (*anoncreds.Presentation, error) {
	if p.rec.Presentation == nil {
		return nil, vcxerr.New(vcxerr.InvalidState, "prover %s has generated no presentation", p.rec.SourceID)
	}

	pres := *p.rec.Presentation

	return &pres, nil
}

// RequestMessage returns the request the exchange answers.
func (p *Prover) RequestMessage() *RequestPresentation {
	req := *p.rec.RequestMsg

	return &req
}

// UpdateState applies the acknowledgement or problem report of the verifier waiting on conn.
func (p *Prover) UpdateState(ctx context.Context, conn exchange.Conn) (State, error) {
	if err := exchange.CheckConnection(p.rec.SourceID, p.rec.ConnPwDID, conn); err != nil {
		return p.rec.State, err
	}

	if p.rec.State.Terminal() {
		return p.rec.State, nil
	}

	msgs, err := exchange.Inbox(ctx, conn, PresentProofSpec, p.rec.ThreadID)
	if err != nil {
		return p.rec.State, err
	}

	for _, in := range msgs {
		if in.Msg.Type() == RequestPresentationMsgType && p.rec.ConnPwDID == "" {
			// left for explicit handling until the prover answers
			continue
		}

		if err := p.handleInbound(in.Msg); err != nil {
			logger.Warnf("prover %s: dropping %s message %s: %v", p.rec.SourceID, in.Msg.Type(), in.UID, err)
		}

		if err := conn.MarkReviewed(ctx, in.UID); err != nil {
			return p.rec.State, err
		}
	}

	return p.rec.State, nil
}

// UpdateStateWithMessage applies a message obtained outside the mailbox.
func (p *Prover) UpdateStateWithMessage(_ context.Context, payload []byte) (State, error) {
	msg, err := service.ParseDIDCommMsgMap(payload)
	if err != nil {
		return p.rec.State, vcxerr.Wrap(vcxerr.ValidationFailure, err, "present proof message")
	}

	if err := p.handleInbound(msg); err != nil {
		return p.rec.State, err
	}

	return p.rec.State, nil
}

// Problem returns the problem report that ended the exchange, if any.
func (p *Prover) Problem() *Description { return p.rec.Problem }

// State returns the exchange state.
func (p *Prover) State() State { return p.rec.State }

// SourceID returns the caller supplied id.
func (p *Prover) SourceID() string { return p.rec.SourceID }

// ThreadID returns the exchange thread id, the id of the request.
func (p *Prover) ThreadID() string { return p.rec.ThreadID }

// Serialize returns the versioned JSON of the exchange.
func (p *Prover) Serialize() ([]byte, error) {
	return codec.Marshal(codec.Prover, p.rec)
}

// DeserializeProver restores a prover exchange.
func DeserializeProver(prov Provider, data []byte) (*Prover, error) {
	var rec proverRecord
	if _, err := codec.Unmarshal(codec.Prover, data, &rec); err != nil {
		return nil, err
	}

	if rec.RequestMsg == nil || rec.Request == nil || rec.ThreadID == "" {
		return nil, vcxerr.New(vcxerr.ValidationFailure, "serialized prover has no presentation request")
	}

	return &Prover{rec: rec, prov: prov}, nil
}

func (p *Prover) handleInbound(msg service.DIDCommMsgMap) error {
	e, ok := eventFromMsgType(RoleProver, msg.Type())
	if !ok {
		return vcxerr.New(vcxerr.InvalidMessageForState,
			"prover %s: %s does not apply to the prover", p.rec.SourceID, msg.Type())
	}

	if thid, err := msg.ThreadID(); err != nil || thid != p.rec.ThreadID {
		return vcxerr.New(vcxerr.ValidationFailure, "%s does not belong to thread %s", msg.Type(), p.rec.ThreadID)
	}

	next, ignored, err := transition(RoleProver, p.rec.State, e)
	if err != nil {
		return vcxerr.Wrap(vcxerr.InvalidMessageForState, err, "prover %s", p.rec.SourceID)
	}

	if ignored {
		logger.Warnf("prover %s: ignoring %s in state %s", p.rec.SourceID, msg.Type(), p.rec.State)

		return nil
	}

	if e == eventProblemReport {
		if p.rec.Problem, err = decodeProblem(msg); err != nil {
			return err
		}
	}

	p.enter(next.to, msg)

	return nil
}

func (p *Prover) fire(ctx context.Context, conn exchange.Conn, e event, msg service.DIDCommMsgMap) error {
	next, ignored, err := transition(RoleProver, p.rec.State, e)
	if err != nil {
		return vcxerr.Wrap(vcxerr.InvalidState, err, "prover %s", p.rec.SourceID)
	}

	if ignored {
		return vcxerr.New(vcxerr.InvalidState, "prover %s: %s in terminal state %s", p.rec.SourceID, e, p.rec.State)
	}

	if err := p.perform(ctx, conn, next.effect); err != nil {
		return err
	}

	p.enter(next.to, msg)

	return nil
}

func (p *Prover) enter(to State, msg service.DIDCommMsgMap) {
	from := p.rec.State
	p.rec.State = to

	logger.Debugf("prover %s: %s -> %s", p.rec.SourceID, from, to)

	notify(p.prov.Events(), p.rec.SourceID, p.rec.ThreadID, to, msg)
}

func (p *Prover) perform(ctx context.Context, conn exchange.Conn, eff effect) error {
	switch eff {
	case effectSendPresentation:
		return p.sendPresentation(ctx, conn)
	case effectSendDecline:
		if p.rec.Proposal != nil {
			return p.sendProposal(ctx, conn)
		}

		return sendProblemReport(ctx, conn, p.rec.SourceID, p.rec.ThreadID, p.rec.Problem)
	case effectNone, effectSendRequest, effectSendAck, effectSendProblemReport:
	}

	return nil
}

func (p *Prover) sendPresentation(ctx context.Context, conn exchange.Conn) error {
	if p.rec.Presentation == nil {
		return vcxerr.New(vcxerr.InvalidState, "prover %s has generated no presentation", p.rec.SourceID)
	}

	att, err := decorator.NewJSONAttachment(presentationAttachID, p.rec.Presentation)
	if err != nil {
		return err
	}

	msg := &Presentation{
		Type:          PresentationMsgType,
		ID:            uuid.New().String(),
		Presentations: []decorator.Attachment{att},
		Thread:        &decorator.Thread{ID: p.rec.ThreadID},
		PleaseAck:     &decorator.PleaseAck{On: []string{"RECEIPT"}},
	}

	if _, err := conn.Send(ctx, msg); err != nil {
		return err
	}

	p.rec.PresentationMsg = msg

	return nil
}

func (p *Prover) sendProposal(ctx context.Context, conn exchange.Conn) error {
	proposal := *p.rec.Proposal
	proposal.Type = PresentationPreviewMsgType

	_, err := conn.Send(ctx, &ProposePresentation{
		Type:                 ProposePresentationMsgType,
		ID:                   uuid.New().String(),
		PresentationProposal: proposal,
		Thread:               &decorator.Thread{ID: p.rec.ThreadID},
	})

	return err
}

// bind ties the exchange to conn once it answered over it and retires the request message.
func (p *Prover) bind(ctx context.Context, conn exchange.Conn) {
	p.rec.ConnPwDID = conn.PwDID()

	msgs, err := exchange.Inbox(ctx, conn, PresentProofSpec, p.rec.ThreadID)
	if err == nil {
		uids := make([]string, 0, len(msgs))
		for _, m := range exchange.OfType(msgs, RequestPresentationMsgType) {
			uids = append(uids, m.UID)
		}

		err = conn.MarkReviewed(ctx, uids...)
	}

	if err != nil {
		logger.Warnf("prover %s: request left unreviewed: %v", p.rec.SourceID, err)
	}
}
