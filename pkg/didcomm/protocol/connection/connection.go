/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package connection implements the pairwise connection protocol (Aries RFC 0160) between an
// inviter and an invitee, driven by polling the agency mailbox of the local pairwise key.
package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/decorator"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/transport"
	"github.com/hyperledger/aries-vcx-go/pkg/store/wallet"
	"github.com/hyperledger/aries-vcx-go/pkg/vcx/codec"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

var logger = log.New("vcx/didcomm/connection")

// ProtocolName is the name reported in state events.
const ProtocolName = "connection"

// Provider supplies the collaborators of a connection.
type Provider interface {
	Transport() transport.Transport
	Signer() Signer
	// ServiceEndpoint is the agency endpoint advertised to the other party.
	ServiceEndpoint() string
	// Label is the institution name shown to the other party.
	Label() string
	// Events receives a state message after every transition. It may be nil.
	Events() *service.Message
}

type record struct {
	SourceID         string           `json:"source_id"`
	Role             Role             `json:"role"`
	State            State            `json:"state"`
	PwDID            string           `json:"pw_did"`
	PwVerkey         string           `json:"pw_verkey"`
	TheirPwDID       string           `json:"their_pw_did,omitempty"`
	TheirPwVerkey    string           `json:"their_pw_verkey,omitempty"`
	TheirEndpoint    string           `json:"their_endpoint,omitempty"`
	TheirLabel       string           `json:"their_label,omitempty"`
	ThreadID         string           `json:"thread_id,omitempty"`
	Invitation       *Invitation      `json:"invitation,omitempty"`
	TheirRoutingKeys []string         `json:"their_routing_keys,omitempty"`
	Redirect         *RedirectDetails `json:"redirect,omitempty"`
}

// Connection is a pairwise relationship. It is not safe for concurrent use, except for the
// mailbox methods Receive and MarkReviewed.
type Connection struct {
	rec  record
	prov Provider

	mu       sync.Mutex
	consumed map[string]struct{}
}

// Inbound is an unreviewed message addressed to the connection's pairwise key.
type Inbound struct {
	UID string
	Msg service.DIDCommMsgMap
}

// Info describes both sides of a connection.
type Info struct {
	SourceID string        `json:"source_id"`
	Role     Role          `json:"role"`
	State    string        `json:"state"`
	My       PairwiseInfo  `json:"my"`
	Their    *PairwiseInfo `json:"their,omitempty"`
}

// PairwiseInfo is one side of a connection.
type PairwiseInfo struct {
	DID             string   `json:"did"`
	Verkey          string   `json:"recipientKeys"`
	ServiceEndpoint string   `json:"serviceEndpoint,omitempty"`
	RoutingKeys     []string `json:"routingKeys,omitempty"`
	Label           string   `json:"label,omitempty"`
}

func newConnection(prov Provider, rec record) *Connection {
	return &Connection{rec: rec, prov: prov, consumed: map[string]struct{}{}}
}

// Create starts a connection as inviter.
func Create(ctx context.Context, prov Provider, sourceID string) (*Connection, error) {
	did, verkey, err := prov.Signer().CreateDID(ctx)
	if err != nil {
		return nil, fmt.Errorf("create pairwise did: %w", err)
	}

	c := newConnection(prov, record{
		SourceID: sourceID, Role: Inviter, State: StateInitialized, PwDID: did, PwVerkey: verkey,
	})

	logger.Debugf("connection %s created as inviter with pairwise did %s", sourceID, did)

	return c, nil
}

// CreateWithInvite starts a connection as invitee of invite.
func CreateWithInvite(ctx context.Context, prov Provider, sourceID string, invite []byte) (*Connection, error) {
	inv, err := ParseInvitation(invite)
	if err != nil {
		return nil, err
	}

	did, verkey, err := prov.Signer().CreateDID(ctx)
	if err != nil {
		return nil, fmt.Errorf("create pairwise did: %w", err)
	}

	c := newConnection(prov, record{
		SourceID:   sourceID,
		Role:       Invitee,
		State:      StateInvitationReceived,
		PwDID:      did,
		PwVerkey:   verkey,
		TheirLabel: inv.Label,
		Invitation: inv,
	})

	logger.Debugf("connection %s created from invitation %s", sourceID, inv.ID)

	return c, nil
}

// ParseInvitation decodes and checks an invitation.
func ParseInvitation(data []byte) (*Invitation, error) {
	inv := &Invitation{}
	if err := json.Unmarshal(data, inv); err != nil {
		return nil, vcxerr.Wrap(vcxerr.ValidationFailure, err, "invitation")
	}

	if inv.Type != "" && inv.Type != InvitationMsgType {
		return nil, vcxerr.New(vcxerr.ValidationFailure, "unsupported invitation type %s", inv.Type)
	}

	if len(inv.RecipientKeys) == 0 || inv.RecipientKeys[0] == "" {
		return nil, vcxerr.New(vcxerr.ValidationFailure, "invitation has no recipient key")
	}

	if inv.ID == "" {
		return nil, vcxerr.New(vcxerr.ValidationFailure, "invitation has no id")
	}

	return inv, nil
}

// Connect generates the invitation (inviter) or sends the connection request (invitee).
func (c *Connection) Connect(ctx context.Context) error {
	if c.rec.Role == Inviter && c.rec.State == StateInitialized {
		c.rec.Invitation = &Invitation{
			Type:            InvitationMsgType,
			ID:              uuid.New().String(),
			Label:           c.prov.Label(),
			RecipientKeys:   []string{c.rec.PwVerkey},
			ServiceEndpoint: c.prov.ServiceEndpoint(),
		}
	}

	return c.fire(ctx, eventConnect, nil)
}

// Redirect answers the invitation with other, an existing completed connection to the same party,
// instead of connecting.
func (c *Connection) Redirect(ctx context.Context, other *Connection) error {
	if other == nil || other.rec.State != StateCompleted {
		return vcxerr.New(vcxerr.InvalidState, "connection %s: redirect target is not completed", c.rec.SourceID)
	}

	c.rec.Redirect = &RedirectDetails{
		DID:             other.rec.PwDID,
		Verkey:          other.rec.PwVerkey,
		ServiceEndpoint: c.prov.ServiceEndpoint(),
		TheirDID:        other.rec.TheirPwDID,
		TheirVerkey:     other.rec.TheirPwVerkey,
	}

	err := c.fire(ctx, eventRedirect, nil)
	if err != nil {
		c.rec.Redirect = nil
	}

	return err
}

// UpdateState runs an outbound step still owed and applies the connection messages waiting in the
// mailbox, in arrival order. Messages of other protocols are left for their owners.
func (c *Connection) UpdateState(ctx context.Context) (State, error) {
	if err := c.flush(ctx); err != nil {
		return c.rec.State, err
	}

	if c.rec.State == StateRedirected {
		return c.rec.State, nil
	}

	msgs, err := c.Receive(ctx)
	if err != nil {
		return c.rec.State, err
	}

	for _, in := range msgs {
		e, ok := eventFromMsgType(c.rec.Role, in.Msg.Type())
		if !ok {
			continue
		}

		err := c.handleInbound(ctx, e, in.Msg)
		if err != nil && vcxerr.Is(err, vcxerr.CollaboratorFailure) {
			return c.rec.State, err
		}

		if err != nil {
			logger.Warnf("connection %s: dropping %s message %s: %v", c.rec.SourceID, in.Msg.Type(), in.UID, err)
		}

		if err := c.MarkReviewed(ctx, in.UID); err != nil {
			return c.rec.State, err
		}
	}

	return c.rec.State, nil
}

// UpdateStateWithMessage applies a message obtained outside the mailbox.
func (c *Connection) UpdateStateWithMessage(ctx context.Context, payload []byte) (State, error) {
	msg, err := service.ParseDIDCommMsgMap(payload)
	if err != nil {
		return c.rec.State, vcxerr.Wrap(vcxerr.ValidationFailure, err, "connection message")
	}

	e, ok := eventFromMsgType(c.rec.Role, msg.Type())
	if !ok {
		return c.rec.State, vcxerr.New(vcxerr.InvalidMessageForState,
			"connection %s: %s does not apply to the %s", c.rec.SourceID, msg.Type(), c.rec.Role)
	}

	if err := c.handleInbound(ctx, e, msg); err != nil {
		return c.rec.State, err
	}

	return c.rec.State, nil
}

func (c *Connection) handleInbound(ctx context.Context, e event, msg service.DIDCommMsgMap) error {
	if e == eventPing {
		return c.handlePing(ctx, msg)
	}

	next, ignored, err := transition(c.rec.Role, c.rec.State, e)
	if err != nil {
		return vcxerr.Wrap(vcxerr.InvalidMessageForState, err, "connection %s", c.rec.SourceID)
	}

	if ignored {
		logger.Warnf("connection %s: ignoring %s in state %s", c.rec.SourceID, msg.Type(), c.rec.State)

		return nil
	}

	switch e { //nolint:exhaustive
	case eventRequest:
		err = c.absorbRequest(msg)
	case eventResponse:
		err = c.absorbResponse(msg)
	case eventAck:
		err = c.checkThread(msg)
	case eventRedirectReceived:
		err = c.absorbRedirect(msg)
	}

	if err != nil {
		return err
	}

	c.enter(next.to, msg)

	return c.flush(ctx)
}

func (c *Connection) handlePing(ctx context.Context, msg service.DIDCommMsgMap) error {
	ping := &Ping{}
	if err := msg.Decode(ping); err != nil {
		return vcxerr.Wrap(vcxerr.ValidationFailure, err, "ping")
	}

	next, ignored, err := transition(c.rec.Role, c.rec.State, eventPing)
	if err != nil {
		return vcxerr.Wrap(vcxerr.InvalidMessageForState, err, "connection %s", c.rec.SourceID)
	}

	if !ignored {
		c.enter(next.to, msg)
	}

	if !ping.ResponseRequested || c.rec.State != StateCompleted {
		return nil
	}

	_, err = c.Send(ctx, &Ping{
		Type:   PingResponseType,
		ID:     uuid.New().String(),
		Thread: &decorator.Thread{ID: ping.ID},
	})

	return err
}

// fire applies a caller driven event.
func (c *Connection) fire(ctx context.Context, e event, msg service.DIDCommMsgMap) error {
	next, ignored, err := transition(c.rec.Role, c.rec.State, e)
	if err != nil {
		return vcxerr.Wrap(vcxerr.InvalidState, err, "connection %s", c.rec.SourceID)
	}

	if ignored {
		return vcxerr.New(vcxerr.InvalidState, "connection %s: %s in terminal state %s", c.rec.SourceID, e, c.rec.State)
	}

	if err := c.perform(ctx, next.effect); err != nil {
		return err
	}

	c.enter(next.to, msg)

	return nil
}

// flush runs the outbound step owed by the current state.
func (c *Connection) flush(ctx context.Context) error {
	e, ok := pendingEvent(c.rec.Role, c.rec.State)
	if !ok {
		return nil
	}

	return c.fire(ctx, e, nil)
}

func (c *Connection) enter(to State, msg service.DIDCommMsgMap) {
	from := c.rec.State
	c.rec.State = to

	logger.Debugf("connection %s: %s -> %s", c.rec.SourceID, from, to)

	c.prov.Events().Notify(service.StateMsg{
		ProtocolName: ProtocolName,
		Type:         service.PostState,
		StateID:      to.String(),
		SourceID:     c.rec.SourceID,
		ThreadID:     c.rec.ThreadID,
		Msg:          msg,
	})
}

func (c *Connection) perform(ctx context.Context, eff effect) error {
	switch eff {
	case effectSendRequest:
		return c.sendRequest(ctx)
	case effectSendResponse:
		return c.sendResponse(ctx)
	case effectSendAck:
		_, err := c.Send(ctx, &Ack{
			Type:   AckMsgType,
			ID:     uuid.New().String(),
			Status: ackStatusOK,
			Thread: &decorator.Thread{ID: c.rec.ThreadID},
		})

		return err
	case effectSendRedirect:
		return c.sendRedirect(ctx)
	case effectNone:
	}

	return nil
}

func (c *Connection) sendRequest(ctx context.Context) error {
	inv := c.rec.Invitation
	id := uuid.New().String()

	req := &Request{
		Type:       RequestMsgType,
		ID:         id,
		Label:      c.prov.Label(),
		Thread:     &decorator.Thread{PID: inv.ID},
		Connection: &ConnectionBody{DID: c.rec.PwDID, DIDDoc: c.didDoc()},
	}

	if _, err := c.dispatch(ctx, c.invitationRoute(), req); err != nil {
		return err
	}

	c.rec.ThreadID = id

	return nil
}

func (c *Connection) sendResponse(ctx context.Context) error {
	sig, err := signPayload(ctx, c.prov.Signer(), c.rec.PwVerkey,
		&ConnectionBody{DID: c.rec.PwDID, DIDDoc: c.didDoc()}, time.Now())
	if err != nil {
		return err
	}

	_, err = c.Send(ctx, &Response{
		Type:                ResponseMsgType,
		ID:                  uuid.New().String(),
		ConnectionSignature: sig,
		Thread:              &decorator.Thread{ID: c.rec.ThreadID},
	})

	return err
}

func (c *Connection) sendRedirect(ctx context.Context) error {
	sig, err := signPayload(ctx, c.prov.Signer(), c.rec.Redirect.Verkey, c.rec.Redirect, time.Now())
	if err != nil {
		return err
	}

	_, err = c.dispatch(ctx, c.invitationRoute(), &Redirect{
		Type:                RedirectMsgType,
		ID:                  uuid.New().String(),
		ConnectionSignature: sig,
		Thread:              &decorator.Thread{PID: c.rec.Invitation.ID},
	})

	return err
}

func (c *Connection) absorbRequest(msg service.DIDCommMsgMap) error {
	req := &Request{}
	if err := msg.Decode(req); err != nil {
		return vcxerr.Wrap(vcxerr.ValidationFailure, err, "connection request")
	}

	if req.Thread != nil && req.Thread.PID != "" && req.Thread.PID != c.rec.Invitation.ID {
		return vcxerr.New(vcxerr.ValidationFailure, "request answers invitation %s, not %s",
			req.Thread.PID, c.rec.Invitation.ID)
	}

	if err := c.absorbParty(req.Connection); err != nil {
		return err
	}

	c.rec.ThreadID = msg.ID()
	c.rec.TheirLabel = req.Label

	return nil
}

func (c *Connection) absorbResponse(msg service.DIDCommMsgMap) error {
	resp := &Response{}
	if err := msg.Decode(resp); err != nil {
		return vcxerr.Wrap(vcxerr.ValidationFailure, err, "connection response")
	}

	if err := c.checkThread(msg); err != nil {
		return err
	}

	theirs := &ConnectionBody{}
	if err := verifyPayload(resp.ConnectionSignature, c.rec.Invitation.RecipientKeys[0], theirs); err != nil {
		return vcxerr.Wrap(vcxerr.ValidationFailure, err, "connection response signature")
	}

	return c.absorbParty(theirs)
}

func (c *Connection) absorbRedirect(msg service.DIDCommMsgMap) error {
	r := &Redirect{}
	if err := msg.Decode(r); err != nil {
		return vcxerr.Wrap(vcxerr.ValidationFailure, err, "redirect")
	}

	if r.ConnectionSignature == nil {
		return vcxerr.New(vcxerr.ValidationFailure, "redirect is not signed")
	}

	details := &RedirectDetails{}
	if err := verifyPayload(r.ConnectionSignature, r.ConnectionSignature.SignVerKey, details); err != nil {
		return vcxerr.Wrap(vcxerr.ValidationFailure, err, "redirect signature")
	}

	if details.Verkey != r.ConnectionSignature.SignVerKey {
		return vcxerr.New(vcxerr.ValidationFailure, "redirect signed by %s, not by its pairwise key", details.Verkey)
	}

	c.rec.Redirect = details

	return nil
}

func (c *Connection) absorbParty(conn *ConnectionBody) error {
	if conn == nil || conn.DID == "" || conn.DIDDoc == nil {
		return vcxerr.New(vcxerr.ValidationFailure, "connection carries no DID document")
	}

	doc := conn.DIDDoc

	for _, svc := range doc.Service {
		if len(svc.RecipientKeys) == 0 {
			continue
		}

		c.rec.TheirPwDID = conn.DID
		c.rec.TheirPwVerkey = svc.RecipientKeys[0]
		c.rec.TheirEndpoint = svc.ServiceEndpoint
		c.rec.TheirRoutingKeys = svc.RoutingKeys

		return nil
	}

	if len(doc.PublicKey) > 0 && doc.PublicKey[0].PublicKeyBase58 != "" {
		c.rec.TheirPwDID = conn.DID
		c.rec.TheirPwVerkey = doc.PublicKey[0].PublicKeyBase58

		return nil
	}

	return vcxerr.New(vcxerr.ValidationFailure, "DID document of %s has no recipient key", conn.DID)
}

func (c *Connection) checkThread(msg service.DIDCommMsgMap) error {
	thid, err := msg.ThreadID()
	if err != nil || thid != c.rec.ThreadID {
		return vcxerr.New(vcxerr.ValidationFailure, "%s does not belong to thread %s", msg.Type(), c.rec.ThreadID)
	}

	return nil
}

func (c *Connection) didDoc() *DIDDoc {
	did := c.rec.PwDID

	return &DIDDoc{
		Context: didContext,
		ID:      did,
		PublicKey: []PublicKey{{
			ID: did + "#1", Type: ed25519KeyType, Controller: did, PublicKeyBase58: c.rec.PwVerkey,
		}},
		Service: []Service{{
			ID:              did + ";" + defaultServiceName,
			Type:            legacyServiceType,
			RecipientKeys:   []string{c.rec.PwVerkey},
			ServiceEndpoint: c.prov.ServiceEndpoint(),
		}},
	}
}

func (c *Connection) invitationRoute() transport.Route {
	inv := c.rec.Invitation

	return transport.Route{
		RecipientKey:    inv.RecipientKeys[0],
		SenderKey:       c.rec.PwVerkey,
		ServiceEndpoint: inv.ServiceEndpoint,
		RoutingKeys:     inv.RoutingKeys,
	}
}

// Route is where messages for the other party are delivered.
func (c *Connection) Route() transport.Route {
	return transport.Route{
		RecipientKey:    c.rec.TheirPwVerkey,
		SenderKey:       c.rec.PwVerkey,
		ServiceEndpoint: c.rec.TheirEndpoint,
		RoutingKeys:     c.rec.TheirRoutingKeys,
	}
}

// Send delivers a protocol message to the other party and returns the agency message id.
func (c *Connection) Send(ctx context.Context, msg interface{}) (string, error) {
	if c.rec.TheirPwVerkey == "" {
		return "", vcxerr.New(vcxerr.InvalidState, "connection %s has no remote party yet", c.rec.SourceID)
	}

	return c.dispatch(ctx, c.Route(), msg)
}

func (c *Connection) dispatch(ctx context.Context, route transport.Route, msg interface{}) (string, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal outbound message: %w", err)
	}

	uid, err := c.prov.Transport().Send(ctx, route, payload)
	if err != nil {
		logger.Errorf("connection %s: send to %s failed: %v", c.rec.SourceID, route.RecipientKey, err)

		return "", vcxerr.Collaborator(vcxerr.TransportCollaborator, 0, err)
	}

	return uid, nil
}

// Receive polls the unreviewed messages of the connection's pairwise key, in arrival order.
// Messages already consumed through MarkReviewed are never returned again.
func (c *Connection) Receive(ctx context.Context) ([]Inbound, error) {
	msgs, err := c.prov.Transport().Poll(ctx, transport.Query{
		RecipientKeys: []string{c.rec.PwVerkey},
		Statuses:      []transport.Status{transport.StatusReceived},
	})
	if err != nil {
		logger.Errorf("connection %s: poll failed: %v", c.rec.SourceID, err)

		return nil, vcxerr.Collaborator(vcxerr.TransportCollaborator, 0, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var inbound []Inbound

	for _, m := range msgs {
		if _, done := c.consumed[m.UID]; done {
			continue
		}

		parsed, err := service.ParseDIDCommMsgMap(m.Payload)
		if err != nil {
			logger.Warnf("connection %s: message %s is not a DIDComm message: %v", c.rec.SourceID, m.UID, err)

			continue
		}

		inbound = append(inbound, Inbound{UID: m.UID, Msg: parsed})
	}

	return inbound, nil
}

// MarkReviewed consumes messages so that no protocol object applies them again.
func (c *Connection) MarkReviewed(ctx context.Context, uids ...string) error {
	if len(uids) == 0 {
		return nil
	}

	c.mu.Lock()
	for _, uid := range uids {
		c.consumed[uid] = struct{}{}
	}
	c.mu.Unlock()

	if err := c.prov.Transport().UpdateMessageStatus(ctx, transport.StatusReviewed, uids); err != nil {
		return vcxerr.Collaborator(vcxerr.TransportCollaborator, 0, err)
	}

	return nil
}

// SendPing sends a trust ping requesting a response.
func (c *Connection) SendPing(ctx context.Context, comment string) error {
	if c.rec.State != StateCompleted {
		return vcxerr.New(vcxerr.InvalidState, "connection %s is %s", c.rec.SourceID, c.rec.State)
	}

	_, err := c.Send(ctx, &Ping{Type: PingMsgType, ID: uuid.New().String(), Comment: comment, ResponseRequested: true})

	return err
}

// SendMessage sends a basic message and returns its agency message id.
func (c *Connection) SendMessage(ctx context.Context, content string, opts SendOptions) (string, error) {
	if c.rec.State != StateCompleted {
		return "", vcxerr.New(vcxerr.InvalidState, "connection %s is %s", c.rec.SourceID, c.rec.State)
	}

	msg := &BasicMessage{
		Type:     BasicMessageType,
		ID:       uuid.New().String(),
		SentTime: time.Now().UTC(),
		Content:  content,
		Title:    opts.MsgTitle,
	}

	if opts.MsgType != "" {
		msg.Type = opts.MsgType
	}

	if opts.RefMsgID != "" {
		msg.Thread = &decorator.Thread{ID: opts.RefMsgID}
	}

	return c.Send(ctx, msg)
}

// SignData signs data with the local pairwise key.
func (c *Connection) SignData(ctx context.Context, data []byte) ([]byte, error) {
	return c.prov.Signer().Sign(ctx, c.rec.PwVerkey, data)
}

// VerifySignature checks a signature of the other party.
func (c *Connection) VerifySignature(data, signature []byte) (bool, error) {
	if c.rec.TheirPwVerkey == "" {
		return false, vcxerr.New(vcxerr.InvalidState, "connection %s has no remote party yet", c.rec.SourceID)
	}

	return wallet.Verify(c.rec.TheirPwVerkey, data, signature)
}

// InviteDetails returns the invitation of the connection.
func (c *Connection) InviteDetails() (*Invitation, error) {
	if c.rec.Invitation == nil {
		return nil, vcxerr.New(vcxerr.InvalidState, "connection %s has no invitation yet", c.rec.SourceID)
	}

	inv := *c.rec.Invitation

	return &inv, nil
}

// RedirectDetails returns the relationship the connection was redirected to.
func (c *Connection) RedirectDetails() (*RedirectDetails, error) {
	if c.rec.State != StateRedirected || c.rec.Redirect == nil {
		return nil, vcxerr.New(vcxerr.InvalidState, "connection %s was not redirected", c.rec.SourceID)
	}

	details := *c.rec.Redirect

	return &details, nil
}

// Delete marks every message still waiting for the connection as reviewed.
func (c *Connection) Delete(ctx context.Context) error {
	msgs, err := c.Receive(ctx)
	if err != nil {
		return err
	}

	uids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		uids = append(uids, m.UID)
	}

	if err := c.MarkReviewed(ctx, uids...); err != nil {
		return err
	}

	logger.Debugf("connection %s deleted", c.rec.SourceID)

	return nil
}

// Info describes the connection.
func (c *Connection) Info() Info {
	info := Info{
		SourceID: c.rec.SourceID,
		Role:     c.rec.Role,
		State:    c.rec.State.String(),
		My: PairwiseInfo{
			DID: c.rec.PwDID, Verkey: c.rec.PwVerkey, ServiceEndpoint: c.prov.ServiceEndpoint(), Label: c.prov.Label(),
		},
	}

	if c.rec.TheirPwDID != "" {
		info.Their = &PairwiseInfo{
			DID:             c.rec.TheirPwDID,
			Verkey:          c.rec.TheirPwVerkey,
			ServiceEndpoint: c.rec.TheirEndpoint,
			RoutingKeys:     c.rec.TheirRoutingKeys,
			Label:           c.rec.TheirLabel,
		}
	}

	return info
}

// State returns the connection state.
func (c *Connection) State() State { return c.rec.State }

// Role returns the local role.
func (c *Connection) Role() Role { return c.rec.Role }

// SourceID returns the caller supplied id.
func (c *Connection) SourceID() string { return c.rec.SourceID }

// PwDID returns the local pairwise DID.
func (c *Connection) PwDID() string { return c.rec.PwDID }

// PwVerkey returns the local pairwise verkey.
func (c *Connection) PwVerkey() string { return c.rec.PwVerkey }

// TheirPwDID returns the pairwise DID of the other party.
func (c *Connection) TheirPwDID() string { return c.rec.TheirPwDID }

// TheirPwVerkey returns the pairwise verkey of the other party.
func (c *Connection) TheirPwVerkey() string { return c.rec.TheirPwVerkey }

// ThreadID returns the id of the connection protocol thread.
func (c *Connection) ThreadID() string { return c.rec.ThreadID }

// Serialize returns the versioned JSON of the connection.
func (c *Connection) Serialize() ([]byte, error) {
	return codec.Marshal(codec.Connection, c.rec)
}

// Deserialize restores a connection.
func Deserialize(prov Provider, data []byte) (*Connection, error) {
	var rec record
	if _, err := codec.Unmarshal(codec.Connection, data, &rec); err != nil {
		return nil, err
	}

	if rec.PwVerkey == "" {
		return nil, vcxerr.New(vcxerr.ValidationFailure, "serialized connection has no pairwise key")
	}

	if rec.Role != Inviter && rec.Role != Invitee {
		return nil, vcxerr.New(vcxerr.ValidationFailure, "serialized connection has unknown role %q", rec.Role)
	}

	return newConnection(prov, rec), nil
}
