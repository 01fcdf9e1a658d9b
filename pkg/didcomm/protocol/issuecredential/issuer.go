/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package issuecredential implements the issuer and holder sides of the issue credential protocol
// (Aries RFC 0036) over a pairwise connection.
package issuecredential

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/log"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/hyperledger/aries-vcx-go/pkg/anoncreds"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/connection"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/decorator"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/exchange"
	"github.com/hyperledger/aries-vcx-go/pkg/ledger"
	"github.com/hyperledger/aries-vcx-go/pkg/ledger/creddef"
	"github.com/hyperledger/aries-vcx-go/pkg/store/wallet"
	"github.com/hyperledger/aries-vcx-go/pkg/vcx/codec"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

var logger = log.New("vcx/didcomm/issuecredential")

// ProtocolName is the name reported in state events.
const ProtocolName = "issue-credential"

// Provider supplies the collaborators of a credential exchange.
type Provider interface {
	Wallet() wallet.Wallet
	// Signer holds the issuer key of the credential definitions.
	Signer() connection.Signer
	Ledger() *ledger.Client
	// Events receives a state message after every transition. It may be nil.
	Events() *service.Message
}

type issuerRecord struct {
	SourceID      string                       `json:"source_id"`
	State         State                        `json:"state"`
	CredDefID     string                       `json:"cred_def_id"`
	SchemaID      string                       `json:"schema_id"`
	RevRegID      string                       `json:"rev_reg_id,omitempty"`
	IssuerVerkey  string                       `json:"issuer_verkey"`
	Attrs         map[string]string            `json:"credential_attributes"`
	Name          string                       `json:"credential_name,omitempty"`
	Price         string                       `json:"price,omitempty"`
	ThreadID      string                       `json:"thread_id,omitempty"`
	ConnPwDID     string                       `json:"conn_pw_did,omitempty"`
	Offer         *anoncreds.CredentialOffer   `json:"offer,omitempty"`
	OfferMsg      *OfferCredential             `json:"offer_msg,omitempty"`
	Request       *anoncreds.CredentialRequest `json:"request,omitempty"`
	CredRevID     int                          `json:"cred_rev_id,omitempty"`
	Credential    *anoncreds.Credential        `json:"credential,omitempty"`
	CredentialMsg *IssueCredential             `json:"credential_msg,omitempty"`
	Problem       *Description                 `json:"problem,omitempty"`
}

// Issuer is the issuing side of one credential exchange. It is not safe for concurrent use.
type Issuer struct {
	rec  issuerRecord
	prov Provider
}

// NewIssuer prepares the issuance of a credential of cd with the attributes in attrsJSON, either a
// name to value object or the libvcx array form. Price is recorded and passed on in the offer
// comment; no payment is requested.
func NewIssuer(prov Provider, sourceID string, cd *creddef.CredDef, attrsJSON []byte, name, price string) (*Issuer, error) {
	if cd == nil || cd.ID == "" {
		return nil, vcxerr.New(vcxerr.ValidationFailure, "issuer %s: credential definition is required", sourceID)
	}

	if cd.State != creddef.Published {
		return nil, vcxerr.New(vcxerr.InvalidState, "credential definition %s is not published", cd.ID)
	}

	attrs, err := anoncreds.ParseAttributes(attrsJSON)
	if err != nil {
		return nil, err
	}

	if len(attrs) == 0 {
		return nil, vcxerr.New(vcxerr.ValidationFailure, "issuer %s: no credential attributes", sourceID)
	}

	return &Issuer{prov: prov, rec: issuerRecord{
		SourceID:     sourceID,
		State:        StateInitialized,
		CredDefID:    cd.ID,
		SchemaID:     cd.SchemaID,
		RevRegID:     cd.RevRegID,
		IssuerVerkey: cd.IssuerVerkey,
		Attrs:        attrs,
		Name:         name,
		Price:        price,
	}}, nil
}

// SendOffer binds the exchange to conn and sends the credential offer.
func (i *Issuer) SendOffer(ctx context.Context, conn exchange.Conn) error {
	if err := exchange.CheckConnection(i.rec.SourceID, i.rec.ConnPwDID, conn); err != nil {
		return err
	}

	if err := i.fire(ctx, conn, eventSendOffer, nil); err != nil {
		return err
	}

	i.rec.ConnPwDID = conn.PwDID()

	return nil
}

// OfferMessage returns the offer, building it when it was not sent yet.
func (i *Issuer) OfferMessage() (*OfferCredential, error) {
	if i.rec.OfferMsg == nil {
		if i.rec.State != StateInitialized {
			return nil, vcxerr.New(vcxerr.InvalidState, "issuer %s has no offer in state %s", i.rec.SourceID, i.rec.State)
		}

		if err := i.buildOffer(); err != nil {
			return nil, err
		}
	}

	offer := *i.rec.OfferMsg

	return &offer, nil
}

// UpdateState applies the issue credential messages of the exchange thread waiting on conn.
func (i *Issuer) UpdateState(ctx context.Context, conn exchange.Conn) (State, error) {
	if err := exchange.CheckConnection(i.rec.SourceID, i.rec.ConnPwDID, conn); err != nil {
		return i.rec.State, err
	}

	if i.rec.State.Terminal() || i.rec.ThreadID == "" {
		return i.rec.State, nil
	}

	msgs, err := exchange.Inbox(ctx, conn, IssueCredentialSpec, i.rec.ThreadID)
	if err != nil {
		return i.rec.State, err
	}

	for _, in := range msgs {
		err := i.handleInbound(in.Msg)
		if err != nil && vcxerr.Is(err, vcxerr.CollaboratorFailure) {
			return i.rec.State, err
		}

		if err != nil {
			logger.Warnf("issuer %s: dropping %s message %s: %v", i.rec.SourceID, in.Msg.Type(), in.UID, err)
		}

		if err := conn.MarkReviewed(ctx, in.UID); err != nil {
			return i.rec.State, err
		}
	}

	return i.rec.State, nil
}

// UpdateStateWithMessage applies a message obtained outside the mailbox.
func (i *Issuer) UpdateStateWithMessage(_ context.Context, payload []byte) (State, error) {
	msg, err := service.ParseDIDCommMsgMap(payload)
	if err != nil {
		return i.rec.State, vcxerr.Wrap(vcxerr.ValidationFailure, err, "issue credential message")
	}

	if err := i.handleInbound(msg); err != nil {
		return i.rec.State, err
	}

	return i.rec.State, nil
}

// SendCredential issues the requested credential and sends it. A failed send leaves the exchange in
// RequestReceived; a retry reuses the revocation index already allocated.
func (i *Issuer) SendCredential(ctx context.Context, conn exchange.Conn) error {
	if err := exchange.CheckConnection(i.rec.SourceID, i.rec.ConnPwDID, conn); err != nil {
		return err
	}

	return i.fire(ctx, conn, eventSendCredential, nil)
}

// CredentialMessage returns the issued credential message.
func (i *Issuer) CredentialMessage() (*IssueCredential, error) {
	if i.rec.CredentialMsg == nil {
		return nil, vcxerr.New(vcxerr.InvalidState, "issuer %s has issued no credential", i.rec.SourceID)
	}

	msg := *i.rec.CredentialMsg

	return &msg, nil
}

// Revoke publishes the revocation of the issued credential.
func (i *Issuer) Revoke(ctx context.Context) error {
	if i.rec.RevRegID == "" {
		return vcxerr.New(vcxerr.RevocationNotSupported,
			"issuer %s: credential definition %s has no revocation registry", i.rec.SourceID, i.rec.CredDefID)
	}

	return i.fire(ctx, nil, eventRevoke, nil)
}

// Terminate abandons the exchange. Once the offer is out, a problem report carrying reason is sent
// over conn.
func (i *Issuer) Terminate(ctx context.Context, conn exchange.Conn, reason string) error {
	prev := i.rec.Problem
	i.rec.Problem = &Description{Code: problemCodeIssuanceAbandoned, En: reason}

	err := i.fire(ctx, conn, eventTerminate, nil)
	if err != nil {
		i.rec.Problem = prev
	}

	return err
}

// RevocationInfo returns where the issued credential sits in its revocation registry.
func (i *Issuer) RevocationInfo() (anoncreds.RevocationInfo, error) {
	if i.rec.RevRegID == "" {
		return anoncreds.RevocationInfo{}, vcxerr.New(vcxerr.RevocationNotSupported,
			"issuer %s: credential is not revocable", i.rec.SourceID)
	}

	if i.rec.CredRevID == 0 {
		return anoncreds.RevocationInfo{}, vcxerr.New(vcxerr.InvalidState,
			"issuer %s has issued no credential", i.rec.SourceID)
	}

	return anoncreds.RevocationInfo{RevRegID: i.rec.RevRegID, Index: i.rec.CredRevID}, nil
}

// Problem returns the problem report that failed the exchange, if any.
func (i *Issuer) Problem() *Description { return i.rec.Problem }

// State returns the exchange state.
func (i *Issuer) State() State { return i.rec.State }

// SourceID returns the caller supplied id.
func (i *Issuer) SourceID() string { return i.rec.SourceID }

// ThreadID returns the exchange thread id, the id of the offer.
func (i *Issuer) ThreadID() string { return i.rec.ThreadID }

// Attributes returns the raw credential attributes.
func (i *Issuer) Attributes() map[string]string { return maps.Clone(i.rec.Attrs) }

// Serialize returns the versioned JSON of the exchange.
func (i *Issuer) Serialize() ([]byte, error) {
	return codec.Marshal(codec.Issuer, i.rec)
}

// DeserializeIssuer restores an issuer exchange.
func DeserializeIssuer(prov Provider, data []byte) (*Issuer, error) {
	var rec issuerRecord
	if _, err := codec.Unmarshal(codec.Issuer, data, &rec); err != nil {
		return nil, err
	}

	if rec.CredDefID == "" {
		return nil, vcxerr.New(vcxerr.ValidationFailure, "serialized issuer has no credential definition")
	}

	return &Issuer{rec: rec, prov: prov}, nil
}

func (i *Issuer) handleInbound(msg service.DIDCommMsgMap) error {
	e, ok := eventFromMsgType(RoleIssuer, msg.Type())
	if !ok {
		return vcxerr.New(vcxerr.InvalidMessageForState,
			"issuer %s: %s does not apply to the issuer", i.rec.SourceID, msg.Type())
	}

	if i.rec.ThreadID != "" {
		if thid, err := msg.ThreadID(); err != nil || thid != i.rec.ThreadID {
			return vcxerr.New(vcxerr.ValidationFailure, "%s does not belong to thread %s", msg.Type(), i.rec.ThreadID)
		}
	}

	next, ignored, err := transition(RoleIssuer, i.rec.State, e)
	if err != nil {
		return vcxerr.Wrap(vcxerr.InvalidMessageForState, err, "issuer %s", i.rec.SourceID)
	}

	if ignored {
		logger.Warnf("issuer %s: ignoring %s in state %s", i.rec.SourceID, msg.Type(), i.rec.State)

		return nil
	}

	switch e { //nolint:exhaustive
	case eventRequest:
		err = i.absorbRequest(msg)
	case eventProblemReport:
		i.rec.Problem, err = decodeProblem(msg)
	}

	if err != nil {
		return err
	}

	i.enter(next.to, msg)

	return nil
}

func (i *Issuer) absorbRequest(msg service.DIDCommMsgMap) error {
	r := &RequestCredential{}
	if err := msg.Decode(r); err != nil {
		return vcxerr.Wrap(vcxerr.ValidationFailure, err, "credential request")
	}

	req := &anoncreds.CredentialRequest{}
	if err := decorator.DecodeAttachment(r.RequestsAttach, requestAttachID, req); err != nil {
		return vcxerr.Wrap(vcxerr.ValidationFailure, err, "credential request attachment")
	}

	if req.CredDefID != i.rec.CredDefID {
		return vcxerr.New(vcxerr.ValidationFailure, "credential request is for %s, not %s", req.CredDefID, i.rec.CredDefID)
	}

	i.rec.Request = req

	return nil
}

func (i *Issuer) fire(ctx context.Context, conn exchange.Conn, e event, msg service.DIDCommMsgMap) error {
	next, ignored, err := transition(RoleIssuer, i.rec.State, e)
	if err != nil {
		return vcxerr.Wrap(vcxerr.InvalidState, err, "issuer %s", i.rec.SourceID)
	}

	if ignored {
		return vcxerr.New(vcxerr.InvalidState, "issuer %s: %s in terminal state %s", i.rec.SourceID, e, i.rec.State)
	}

	if err := i.perform(ctx, conn, next.effect); err != nil {
		return err
	}

	i.enter(next.to, msg)

	return nil
}

func (i *Issuer) enter(to State, msg service.DIDCommMsgMap) {
	from := i.rec.State
	i.rec.State = to

	logger.Debugf("issuer %s: %s -> %s", i.rec.SourceID, from, to)

	notify(i.prov.Events(), i.rec.SourceID, i.rec.ThreadID, to, msg)
}

func (i *Issuer) perform(ctx context.Context, conn exchange.Conn, eff effect) error {
	switch eff {
	case effectSendOffer:
		return i.sendOffer(ctx, conn)
	case effectSendCredential:
		return i.sendCredential(ctx, conn)
	case effectRevoke:
		_, err := creddef.Revoke(ctx, i.prov.Ledger(), i.rec.RevRegID, i.rec.CredRevID)

		return err
	case effectSendProblemReport:
		return sendProblemReport(ctx, conn, i.rec.SourceID, i.rec.ThreadID, i.rec.Problem)
	case effectNone, effectSendRequest, effectStoreCredential:
	}

	return nil
}

func (i *Issuer) buildOffer() error {
	offer := anoncreds.NewOffer(&ledger.CredDef{ID: i.rec.CredDefID, SchemaID: i.rec.SchemaID})

	att, err := decorator.NewJSONAttachment(offerAttachID, offer)
	if err != nil {
		return err
	}

	names := maps.Keys(i.rec.Attrs)
	slices.Sort(names)

	preview := PreviewCredential{Type: CredentialPreviewMsgType}
	for _, n := range names {
		preview.Attributes = append(preview.Attributes, Attribute{Name: n, MimeType: "text/plain", Value: i.rec.Attrs[n]})
	}

	id := uuid.New().String()

	i.rec.Offer = offer
	i.rec.OfferMsg = &OfferCredential{
		Type:              OfferCredentialMsgType,
		ID:                id,
		Comment:           offerComment(i.rec.Name, i.rec.Price),
		CredentialPreview: preview,
		OffersAttach:      []decorator.Attachment{att},
	}

	return nil
}

func (i *Issuer) sendOffer(ctx context.Context, conn exchange.Conn) error {
	if i.rec.OfferMsg == nil {
		if err := i.buildOffer(); err != nil {
			return err
		}
	}

	if _, err := conn.Send(ctx, i.rec.OfferMsg); err != nil {
		return err
	}

	i.rec.ThreadID = i.rec.OfferMsg.ID

	return nil
}

func (i *Issuer) sendCredential(ctx context.Context, conn exchange.Conn) error {
	if i.rec.Request == nil {
		return vcxerr.New(vcxerr.InvalidState, "issuer %s has no credential request", i.rec.SourceID)
	}

	var rev *anoncreds.RevocationInfo

	if i.rec.RevRegID != "" {
		if i.rec.CredRevID == 0 {
			cd := &creddef.CredDef{ID: i.rec.CredDefID, RevRegID: i.rec.RevRegID}

			idx, err := cd.AllocateIndex(ctx, i.prov.Wallet())
			if err != nil {
				return err
			}

			i.rec.CredRevID = idx
		}

		rev = &anoncreds.RevocationInfo{RevRegID: i.rec.RevRegID, Index: i.rec.CredRevID}
	}

	cred, err := anoncreds.Issue(ctx, i.prov.Signer(), i.rec.IssuerVerkey, i.rec.Offer, i.rec.Request, i.rec.Attrs, rev)
	if err != nil {
		return err
	}

	att, err := decorator.NewJSONAttachment(credentialAttachID, cred)
	if err != nil {
		return err
	}

	msg := &IssueCredential{
		Type:              IssueCredentialMsgType,
		ID:                uuid.New().String(),
		CredentialsAttach: []decorator.Attachment{att},
		Thread:            &decorator.Thread{ID: i.rec.ThreadID},
		PleaseAck:         &decorator.PleaseAck{On: []string{"RECEIPT"}},
	}

	if _, err := conn.Send(ctx, msg); err != nil {
		return err
	}

	i.rec.Credential = cred
	i.rec.CredentialMsg = msg

	return nil
}

func offerComment(name, price string) string {
	switch {
	case price != "" && name != "":
		return fmt.Sprintf("%s (price %s)", name, price)
	case price != "":
		return "price " + price
	default:
		return name
	}
}

func decodeProblem(msg service.DIDCommMsgMap) (*Description, error) {
	p := &ProblemReport{}
	if err := msg.Decode(p); err != nil {
		return nil, vcxerr.Wrap(vcxerr.ValidationFailure, err, "problem report")
	}

	return &p.Description, nil
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
