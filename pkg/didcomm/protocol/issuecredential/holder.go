/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuecredential

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/hyperledger/aries-vcx-go/pkg/anoncreds"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/connection"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/decorator"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/exchange"
	"github.com/hyperledger/aries-vcx-go/pkg/vcx/codec"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

type holderRecord struct {
	SourceID   string                       `json:"source_id"`
	State      State                        `json:"state"`
	ThreadID   string                       `json:"thread_id"`
	ConnPwDID  string                       `json:"conn_pw_did,omitempty"`
	OfferMsg   *OfferCredential             `json:"offer_msg"`
	Offer      *anoncreds.CredentialOffer   `json:"offer"`
	Request    *anoncreds.CredentialRequest `json:"request,omitempty"`
	RequestMsg *RequestCredential           `json:"request_msg,omitempty"`
	CredID     string                       `json:"cred_id,omitempty"`
	Credential *anoncreds.Credential        `json:"credential,omitempty"`
	AckPending bool                         `json:"ack_pending,omitempty"`
	Problem    *Description                 `json:"problem,omitempty"`
}

// Holder is the receiving side of one credential exchange. It is not safe for concurrent use.
type Holder struct {
	rec  holderRecord
	prov Provider

	// pending is the verified credential awaiting storage.
	pending *anoncreds.Credential
}

// ParseOffer decodes and checks a credential offer message.
func ParseOffer(data []byte) (*OfferCredential, error) {
	offer := &OfferCredential{}
	if err := json.Unmarshal(data, offer); err != nil {
		return nil, vcxerr.Wrap(vcxerr.ValidationFailure, err, "credential offer")
	}

	if _, err := offerPayload(offer); err != nil {
		return nil, err
	}

	return offer, nil
}

func offerPayload(offer *OfferCredential) (*anoncreds.CredentialOffer, error) {
	if offer.Type != OfferCredentialMsgType {
		return nil, vcxerr.New(vcxerr.ValidationFailure, "%q is not a credential offer", offer.Type)
	}

	if offer.ID == "" {
		return nil, vcxerr.New(vcxerr.ValidationFailure, "credential offer has no id")
	}

	payload := &anoncreds.CredentialOffer{}
	if err := decorator.DecodeAttachment(offer.OffersAttach, offerAttachID, payload); err != nil {
		return nil, vcxerr.Wrap(vcxerr.ValidationFailure, err, "credential offer attachment")
	}

	if payload.CredDefID == "" {
		return nil, vcxerr.New(vcxerr.ValidationFailure, "credential offer has no credential definition")
	}

	return payload, nil
}

// GetOffers returns the credential offers waiting on conn, in arrival order.
func GetOffers(ctx context.Context, conn exchange.Conn) ([]*OfferCredential, error) {
	msgs, err := exchange.Inbox(ctx, conn, IssueCredentialSpec, "")
	if err != nil {
		return nil, err
	}

	var offers []*OfferCredential

	for _, in := range exchange.OfType(msgs, OfferCredentialMsgType) {
		offer := &OfferCredential{}
		if err := in.Msg.Decode(offer); err != nil {
			logger.Warnf("connection %s: skipping undecodable offer %s: %v", conn.SourceID(), in.UID, err)

			continue
		}

		if _, err := offerPayload(offer); err != nil {
			logger.Warnf("connection %s: skipping offer %s: %v", conn.SourceID(), in.UID, err)

			continue
		}

		offers = append(offers, offer)
	}

	return offers, nil
}

// NewHolderFromOffer starts the holder side of the exchange opened by offer.
func NewHolderFromOffer(prov Provider, sourceID string, offer *OfferCredential) (*Holder, error) {
	if offer == nil {
		return nil, vcxerr.New(vcxerr.ValidationFailure, "holder %s: offer is required", sourceID)
	}

	payload, err := offerPayload(offer)
	if err != nil {
		return nil, err
	}

	h := &Holder{prov: prov, rec: holderRecord{
		SourceID: sourceID,
		State:    StateOfferReceived,
		ThreadID: offer.ID,
		OfferMsg: offer,
		Offer:    payload,
	}}

	logger.Debugf("holder %s created from offer %s of %s", sourceID, offer.ID, payload.CredDefID)

	notify(prov.Events(), sourceID, offer.ID, StateOfferReceived, nil)

	return h, nil
}

// SendRequest binds the exchange to conn and requests the offered credential.
func (h *Holder) SendRequest(ctx context.Context, conn exchange.Conn) error {
	if err := exchange.CheckConnection(h.rec.SourceID, h.rec.ConnPwDID, conn); err != nil {
		return err
	}

	if err := h.fire(ctx, conn, eventSendRequest, nil); err != nil {
		return err
	}

	h.rec.ConnPwDID = conn.PwDID()

	msgs, err := exchange.Inbox(ctx, conn, IssueCredentialSpec, h.rec.ThreadID)
	if err == nil {
		err = markReviewed(ctx, conn, exchange.OfType(msgs, OfferCredentialMsgType))
	}

	if err != nil {
		logger.Warnf("holder %s: offer left unreviewed: %v", h.rec.SourceID, err)
	}

	return nil
}

// RequestMessage returns the credential request sent.
func (h *Holder) RequestMessage() (*RequestCredential, error) {
	if h.rec.RequestMsg == nil {
		return nil, vcxerr.New(vcxerr.InvalidState, "holder %s has sent no request", h.rec.SourceID)
	}

	msg := *h.rec.RequestMsg

	return &msg, nil
}

// OfferMessage returns the offer the exchange answers.
func (h *Holder) OfferMessage() *OfferCredential {
	offer := *h.rec.OfferMsg

	return &offer
}

// UpdateState sends an acknowledgement still owed and applies the issue credential messages of the
// exchange thread waiting on conn.
func (h *Holder) UpdateState(ctx context.Context, conn exchange.Conn) (State, error) {
	if err := exchange.CheckConnection(h.rec.SourceID, h.rec.ConnPwDID, conn); err != nil {
		return h.rec.State, err
	}

	if err := h.flushAck(ctx, conn); err != nil {
		return h.rec.State, err
	}

	if h.rec.State.Terminal() {
		return h.rec.State, nil
	}

	msgs, err := exchange.Inbox(ctx, conn, IssueCredentialSpec, h.rec.ThreadID)
	if err != nil {
		return h.rec.State, err
	}

	for _, in := range msgs {
		before := h.rec.State

		err := h.handleInbound(ctx, conn, in.Msg)
		if err != nil && vcxerr.Is(err, vcxerr.CollaboratorFailure) && h.rec.State == before {
			return h.rec.State, err
		}

		if err != nil && !vcxerr.Is(err, vcxerr.CollaboratorFailure) {
			logger.Warnf("holder %s: dropping %s message %s: %v", h.rec.SourceID, in.Msg.Type(), in.UID, err)
		}

		if rerr := conn.MarkReviewed(ctx, in.UID); rerr != nil {
			return h.rec.State, rerr
		}

		if err != nil && vcxerr.Is(err, vcxerr.CollaboratorFailure) {
			return h.rec.State, err
		}
	}

	return h.rec.State, nil
}

// UpdateStateWithMessage applies a message obtained outside the mailbox. The acknowledgement of a
// credential is sent over conn; with a nil conn it is owed until the next UpdateState.
func (h *Holder) UpdateStateWithMessage(ctx context.Context, conn exchange.Conn, payload []byte) (State, error) {
	msg, err := service.ParseDIDCommMsgMap(payload)
	if err != nil {
		return h.rec.State, vcxerr.Wrap(vcxerr.ValidationFailure, err, "issue credential message")
	}

	if err := h.handleInbound(ctx, conn, msg); err != nil {
		return h.rec.State, err
	}

	return h.rec.State, nil
}

// Reject declines the offer, or abandons the exchange after the request, with a problem report.
func (h *Holder) Reject(ctx context.Context, conn exchange.Conn, reason string) error {
	if err := exchange.CheckConnection(h.rec.SourceID, h.rec.ConnPwDID, conn); err != nil {
		return err
	}

	prev := h.rec.Problem
	h.rec.Problem = &Description{Code: problemCodeIssuanceAbandoned, En: reason}

	err := h.fire(ctx, conn, eventTerminate, nil)
	if err != nil {
		h.rec.Problem = prev
	}

	return err
}

// Credential returns the accepted credential.
func (h *Holder) Credential() (*anoncreds.Credential, error) {
	if h.rec.State != StateAccepted || h.rec.Credential == nil {
		return nil, vcxerr.New(vcxerr.InvalidState, "holder %s is %s", h.rec.SourceID, h.rec.State)
	}

	cred := *h.rec.Credential

	return &cred, nil
}

// CredentialID returns the wallet id of the stored credential.
func (h *Holder) CredentialID() string { return h.rec.CredID }

// RevocationStatus reports whether the accepted credential has been revoked.
func (h *Holder) RevocationStatus(ctx context.Context) (bool, error) {
	cred, err := h.Credential()
	if err != nil {
		return false, err
	}

	idx, ok := cred.RevocationIndex()
	if !ok {
		return false, vcxerr.New(vcxerr.RevocationNotSupported, "holder %s: credential is not revocable", h.rec.SourceID)
	}

	delta, err := h.prov.Ledger().GetRevRegDelta(ctx, cred.RevRegID, time.Now().Unix())
	if err != nil {
		return false, err
	}

	_, revoked := delta.RevokedAt(idx)

	return revoked, nil
}

// Delete removes the stored credential from the wallet.
func (h *Holder) Delete(ctx context.Context) error {
	if h.rec.CredID == "" {
		return nil
	}

	err := anoncreds.DeleteCredential(ctx, h.prov.Wallet(), h.rec.CredID)
	if err != nil && !vcxerr.Is(err, vcxerr.NotFound) {
		return err
	}

	logger.Debugf("holder %s: credential %s deleted", h.rec.SourceID, h.rec.CredID)

	return nil
}

// Problem returns the problem report that failed the exchange, if any.
func (h *Holder) Problem() *Description { return h.rec.Problem }

// State returns the exchange state.
func (h *Holder) State() State { return h.rec.State }

// SourceID returns the caller supplied id.
func (h *Holder) SourceID() string { return h.rec.SourceID }

// ThreadID returns the exchange thread id, the id of the offer.
func (h *Holder) ThreadID() string { return h.rec.ThreadID }

// Serialize returns the versioned JSON of the exchange.
func (h *Holder) Serialize() ([]byte, error) {
	return codec.Marshal(codec.Holder, h.rec)
}

// DeserializeHolder restores a holder exchange.
func DeserializeHolder(prov Provider, data []byte) (*Holder, error) {
	var rec holderRecord
	if _, err := codec.Unmarshal(codec.Holder, data, &rec); err != nil {
		return nil, err
	}

	if rec.OfferMsg == nil || rec.Offer == nil || rec.ThreadID == "" {
		return nil, vcxerr.New(vcxerr.ValidationFailure, "serialized holder has no offer")
	}

	return &Holder{rec: rec, prov: prov}, nil
}

func (h *Holder) handleInbound(ctx context.Context, conn exchange.Conn, msg service.DIDCommMsgMap) error {
	e, ok := eventFromMsgType(RoleHolder, msg.Type())
	if !ok {
		return vcxerr.New(vcxerr.InvalidMessageForState,
			"holder %s: %s does not apply to the holder", h.rec.SourceID, msg.Type())
	}

	if thid, err := msg.ThreadID(); err != nil || thid != h.rec.ThreadID {
		return vcxerr.New(vcxerr.ValidationFailure, "%s does not belong to thread %s", msg.Type(), h.rec.ThreadID)
	}

	next, ignored, err := transition(RoleHolder, h.rec.State, e)
	if err != nil {
		return vcxerr.Wrap(vcxerr.InvalidMessageForState, err, "holder %s", h.rec.SourceID)
	}

	if ignored {
		logger.Warnf("holder %s: ignoring %s in state %s", h.rec.SourceID, msg.Type(), h.rec.State)

		return nil
	}

	switch e { //nolint:exhaustive
	case eventCredential:
		h.pending, err = h.absorbCredential(ctx, msg)
	case eventProblemReport:
		h.rec.Problem, err = decodeProblem(msg)
	}

	if err != nil {
		return err
	}

	if err := h.perform(ctx, conn, next.effect); err != nil {
		return err
	}

	h.enter(next.to, msg)

	if next.to != StateAccepted {
		return nil
	}

	h.rec.AckPending = true

	if conn == nil {
		return nil
	}

	return h.flushAck(ctx, conn)
}

func (h *Holder) absorbCredential(ctx context.Context, msg service.DIDCommMsgMap) (*anoncreds.Credential, error) {
	ic := &IssueCredential{}
	if err := msg.Decode(ic); err != nil {
		return nil, vcxerr.Wrap(vcxerr.ValidationFailure, err, "issued credential")
	}

	cred := &anoncreds.Credential{}
	if err := decorator.DecodeAttachment(ic.CredentialsAttach, credentialAttachID, cred); err != nil {
		return nil, vcxerr.Wrap(vcxerr.ValidationFailure, err, "issued credential attachment")
	}

	if cred.CredDefID != h.rec.Offer.CredDefID {
		return nil, vcxerr.New(vcxerr.ValidationFailure,
			"credential of %s answers an offer of %s", cred.CredDefID, h.rec.Offer.CredDefID)
	}

	if err := anoncreds.VerifyCredential(ctx, h.prov.Ledger(), cred); err != nil {
		return nil, err
	}

	return cred, nil
}

func (h *Holder) fire(ctx context.Context, conn exchange.Conn, e event, msg service.DIDCommMsgMap) error {
	next, ignored, err := transition(RoleHolder, h.rec.State, e)
	if err != nil {
		return vcxerr.Wrap(vcxerr.InvalidState, err, "holder %s", h.rec.SourceID)
	}

	if ignored {
		return vcxerr.New(vcxerr.InvalidState, "holder %s: %s in terminal state %s", h.rec.SourceID, e, h.rec.State)
	}

	if err := h.perform(ctx, conn, next.effect); err != nil {
		return err
	}

	h.enter(next.to, msg)

	return nil
}

func (h *Holder) enter(to State, msg service.DIDCommMsgMap) {
	from := h.rec.State
	h.rec.State = to

	logger.Debugf("holder %s: %s -> %s", h.rec.SourceID, from, to)

	notify(h.prov.Events(), h.rec.SourceID, h.rec.ThreadID, to, msg)
}

func (h *Holder) perform(ctx context.Context, conn exchange.Conn, eff effect) error {
	switch eff {
	case effectSendRequest:
		return h.sendRequest(ctx, conn)
	case effectStoreCredential:
		return h.storeCredential(ctx)
	case effectSendProblemReport:
		return sendProblemReport(ctx, conn, h.rec.SourceID, h.rec.ThreadID, h.rec.Problem)
	case effectNone, effectSendOffer, effectSendCredential, effectRevoke:
	}

	return nil
}

func (h *Holder) sendRequest(ctx context.Context, conn exchange.Conn) error {
	req, err := anoncreds.NewRequest(h.rec.Offer, conn.PwDID())
	if err != nil {
		return err
	}

	att, err := decorator.NewJSONAttachment(requestAttachID, req)
	if err != nil {
		return err
	}

	msg := &RequestCredential{
		Type:           RequestCredentialMsgType,
		ID:             uuid.New().String(),
		RequestsAttach: []decorator.Attachment{att},
		Thread:         &decorator.Thread{ID: h.rec.ThreadID},
	}

	if _, err := conn.Send(ctx, msg); err != nil {
		return err
	}

	h.rec.Request = req
	h.rec.RequestMsg = msg

	return nil
}

func (h *Holder) storeCredential(ctx context.Context) error {
	if h.pending == nil {
		return vcxerr.New(vcxerr.InvalidState, "holder %s has no credential to store", h.rec.SourceID)
	}

	id, err := anoncreds.StoreCredential(ctx, h.prov.Wallet(), h.rec.ThreadID, h.pending)
	if err != nil {
		return err
	}

	h.rec.CredID = id
	h.rec.Credential = h.pending
	h.pending = nil

	return nil
}

func (h *Holder) flushAck(ctx context.Context, conn exchange.Conn) error {
	if !h.rec.AckPending {
		return nil
	}

	_, err := conn.Send(ctx, &Ack{
		Type:   AckMsgType,
		ID:     uuid.New().String(),
		Status: ackStatusOK,
		Thread: &decorator.Thread{ID: h.rec.ThreadID},
	})
	if err != nil {
		return err
	}

	h.rec.AckPending = false

	return nil
}

func markReviewed(ctx context.Context, conn exchange.Conn, msgs []connection.Inbound) error {
	uids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		uids = append(uids, m.UID)
	}

	return conn.MarkReviewed(ctx, uids...)
}
