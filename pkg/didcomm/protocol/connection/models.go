/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package connection

import (
	"time"

	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/decorator"
)

// Message types of the connection protocol and the auxiliary protocols it answers.
const (
	ConnectionSpec     = "https://didcomm.org/connections/1.0/"
	InvitationMsgType  = ConnectionSpec + "invitation"
	RequestMsgType     = ConnectionSpec + "request"
	ResponseMsgType    = ConnectionSpec + "response"
	ProblemReportType  = ConnectionSpec + "problem_report"
	RedirectMsgType    = ConnectionSpec + "redirect"
	AckMsgType         = "https://didcomm.org/notification/1.0/ack"
	PingMsgType        = "https://didcomm.org/trust_ping/1.0/ping"
	PingResponseType   = "https://didcomm.org/trust_ping/1.0/ping_response"
	BasicMessageType   = "https://didcomm.org/basicmessage/1.0/message"
	signatureType      = "https://didcomm.org/signature/1.0/ed25519Sha512_single"
	legacyServiceType  = "IndyAgent"
	ed25519KeyType     = "Ed25519VerificationKey2018"
	ackStatusOK        = "OK"
	didContext         = "https://w3id.org/did/v1"
	timestampLength    = 8
	defaultServiceName = "indy"
)

// Invitation defines Connection protocol invitation message
// https://github.com/hyperledger/aries-rfcs/tree/main/features/0160-connection-protocol#0-invitation-to-connect
type Invitation struct {
	Type            string   `json:"@type,omitempty"`
	ID              string   `json:"@id,omitempty"`
	Label           string   `json:"label,omitempty"`
	RecipientKeys   []string `json:"recipientKeys,omitempty"`
	ServiceEndpoint string   `json:"serviceEndpoint,omitempty"`
	RoutingKeys     []string `json:"routingKeys,omitempty"`
}

// Request defines a2a Connection request
// https://github.com/hyperledger/aries-rfcs/tree/main/features/0160-connection-protocol#1-connection-request
type Request struct {
	Type       string            `json:"@type,omitempty"`
	ID         string            `json:"@id,omitempty"`
	Label      string            `json:"label"`
	Thread     *decorator.Thread `json:"~thread,omitempty"`
	Connection *ConnectionBody   `json:"connection,omitempty"`
}

// Response defines a2a Connection response
// https://github.com/hyperledger/aries-rfcs/tree/main/features/0160-connection-protocol#2-connection-response
type Response struct {
	Type                string               `json:"@type,omitempty"`
	ID                  string               `json:"@id,omitempty"`
	ConnectionSignature *ConnectionSignature `json:"connection~sig,omitempty"`
	Thread              *decorator.Thread    `json:"~thread,omitempty"`
	PleaseAck           *decorator.PleaseAck `json:"~please_ack,omitempty"`
}

// ConnectionSignature connection signature.
type ConnectionSignature struct {
	Type       string `json:"@type,omitempty"`
	Signature  string `json:"signature,omitempty"`
	SignedData string `json:"sig_data,omitempty"`
	SignVerKey string `json:"signer,omitempty"`
}

// ConnectionBody defines connection body of connection request.
type ConnectionBody struct {
	DID    string  `json:"DID,omitempty"`
	DIDDoc *DIDDoc `json:"DIDDoc,omitempty"`
}

// DIDDoc is the legacy Indy DID document exchanged by the connection protocol.
type DIDDoc struct {
	Context   string      `json:"@context,omitempty"`
	ID        string      `json:"id,omitempty"`
	PublicKey []PublicKey `json:"publicKey,omitempty"`
	Service   []Service   `json:"service,omitempty"`
}

// PublicKey is a verification key of a DID document.
type PublicKey struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	Controller      string `json:"controller"`
	PublicKeyBase58 string `json:"publicKeyBase58"`
}

// Service is a DIDComm service entry of a DID document.
type Service struct {
	ID              string   `json:"id"`
	Type            string   `json:"type"`
	Priority        int      `json:"priority"`
	RecipientKeys   []string `json:"recipientKeys"`
	RoutingKeys     []string `json:"routingKeys,omitempty"`
	ServiceEndpoint string   `json:"serviceEndpoint"`
}

// Ack acknowledges the connection response.
type Ack struct {
	Type   string            `json:"@type,omitempty"`
	ID     string            `json:"@id,omitempty"`
	Status string            `json:"status,omitempty"`
	Thread *decorator.Thread `json:"~thread,omitempty"`
}

// Ping is a trust ping.
type Ping struct {
	Type              string            `json:"@type,omitempty"`
	ID                string            `json:"@id,omitempty"`
	Comment           string            `json:"comment,omitempty"`
	ResponseRequested bool              `json:"response_requested"`
	Thread            *decorator.Thread `json:"~thread,omitempty"`
}

// ProblemReport reports a failed protocol step.
type ProblemReport struct {
	Type        string            `json:"@type,omitempty"`
	ID          string            `json:"@id,omitempty"`
	ProblemCode string            `json:"problem-code,omitempty"`
	Explain     string            `json:"explain,omitempty"`
	Thread      *decorator.Thread `json:"~thread,omitempty"`
}

// Redirect tells the inviter that an existing pairwise relationship replaces the invitation.
type Redirect struct {
	Type                string               `json:"@type,omitempty"`
	ID                  string               `json:"@id,omitempty"`
	ConnectionSignature *ConnectionSignature `json:"redirect~sig,omitempty"`
	Thread              *decorator.Thread    `json:"~thread,omitempty"`
}

// RedirectDetails identify the pairwise relationship a connection was redirected to.
type RedirectDetails struct {
	DID             string `json:"DID"`
	Verkey          string `json:"verkey"`
	ServiceEndpoint string `json:"endpoint,omitempty"`
	TheirDID        string `json:"theirDID,omitempty"`
	TheirVerkey     string `json:"theirVerkey,omitempty"`
}

// BasicMessage is a free text message exchanged over a completed connection.
type BasicMessage struct {
	Type     string            `json:"@type,omitempty"`
	ID       string            `json:"@id,omitempty"`
	SentTime time.Time         `json:"sent_time"`
	Content  string            `json:"content"`
	Title    string            `json:"~title,omitempty"`
	Thread   *decorator.Thread `json:"~thread,omitempty"`
}

// SendOptions configure SendMessage.
type SendOptions struct {
	MsgType  string `json:"msg_type,omitempty"`
	MsgTitle string `json:"msg_title,omitempty"`
	RefMsgID string `json:"ref_msg_id,omitempty"`
}
