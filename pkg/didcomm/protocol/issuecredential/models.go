/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuecredential

import (
	"strings"

	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/decorator"
)

// Issue credential 1.0 message types (Aries RFC 0036).
const (
	IssueCredentialSpec          = "https://didcomm.org/issue-credential/1.0/"
	OfferCredentialMsgType       = IssueCredentialSpec + "offer-credential"
	RequestCredentialMsgType     = IssueCredentialSpec + "request-credential"
	IssueCredentialMsgType       = IssueCredentialSpec + "issue-credential"
	CredentialPreviewMsgType     = IssueCredentialSpec + "credential-preview"
	AckMsgType                   = IssueCredentialSpec + "ack"
	ProblemReportMsgType         = IssueCredentialSpec + "problem-report"
	offerAttachID                = "libindy-cred-offer-0"
	requestAttachID              = "libindy-cred-request-0"
	credentialAttachID           = "libindy-cred-0"
	ackStatusOK                  = "OK"
	problemCodeIssuanceAbandoned = "issuance-abandoned"
)

// IsProtocolMessage reports whether msgType belongs to the issue credential protocol.
func IsProtocolMessage(msgType string) bool {
	return strings.HasPrefix(msgType, IssueCredentialSpec)
}

// OfferCredential is a message sent by the Issuer to the potential Holder,
// describing the credential they intend to offer.
type OfferCredential struct {
	Type string `json:"@type,omitempty"`
	ID   string `json:"@id,omitempty"`
	// Comment is an optional field that provides human readable information about this Credential Offer,
	// so the offer can be evaluated by human judgment.
	Comment string `json:"comment,omitempty"`
	// CredentialPreview is the credential data that Issuer is willing to issue.
	CredentialPreview PreviewCredential `json:"credential_preview"`
	// OffersAttach carries the indy credential offer.
	OffersAttach []decorator.Attachment `json:"offers~attach"`
	Thread       *decorator.Thread      `json:"~thread,omitempty"`
}

// PreviewCredential is used to construct a preview of the data for the credential that is to be issued.
type PreviewCredential struct {
	Type       string      `json:"@type,omitempty"`
	Attributes []Attribute `json:"attributes,omitempty"`
}

// Attribute describes an attribute for a Preview Credential.
type Attribute struct {
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mime-type,omitempty"`
	Value    string `json:"value"`
}

// RequestCredential is a message sent by the potential Holder to the Issuer,
// to request the issuance of a credential.
type RequestCredential struct {
	Type    string `json:"@type,omitempty"`
	ID      string `json:"@id,omitempty"`
	Comment string `json:"comment,omitempty"`
	// RequestsAttach carries the indy credential request.
	RequestsAttach []decorator.Attachment `json:"requests~attach"`
	Thread         *decorator.Thread      `json:"~thread,omitempty"`
}

// IssueCredential contains as attached payload the credentials being issued.
type IssueCredential struct {
	Type    string `json:"@type,omitempty"`
	ID      string `json:"@id,omitempty"`
	Comment string `json:"comment,omitempty"`
	// CredentialsAttach carries the indy credential.
	CredentialsAttach []decorator.Attachment `json:"credentials~attach"`
	Thread            *decorator.Thread      `json:"~thread,omitempty"`
	PleaseAck         *decorator.PleaseAck   `json:"~please_ack,omitempty"`
}

// Ack acknowledges the issued credential.
type Ack struct {
	Type   string            `json:"@type,omitempty"`
	ID     string            `json:"@id,omitempty"`
	Status string            `json:"status,omitempty"`
	Thread *decorator.Thread `json:"~thread,omitempty"`
}

// ProblemReport ends the protocol instance with a failure.
type ProblemReport struct {
	Type        string            `json:"@type,omitempty"`
	ID          string            `json:"@id,omitempty"`
	Description Description       `json:"description"`
	Thread      *decorator.Thread `json:"~thread,omitempty"`
}

// Description of a problem report.
type Description struct {
	Code string `json:"code,omitempty"`
	En   string `json:"en,omitempty"`
}
