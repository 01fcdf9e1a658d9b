/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presentproof

import (
	"strings"

	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/decorator"
)

// Present proof 1.0 message types (Aries RFC 0037).
const (
	PresentProofSpec            = "https://didcomm.org/present-proof/1.0/"
	ProposePresentationMsgType  = PresentProofSpec + "propose-presentation"
	RequestPresentationMsgType  = PresentProofSpec + "request-presentation"
	PresentationMsgType         = PresentProofSpec + "presentation"
	PresentationPreviewMsgType  = PresentProofSpec + "presentation-preview"
	AckMsgType                  = PresentProofSpec + "ack"
	ProblemReportMsgType        = PresentProofSpec + "problem-report"
	requestAttachID             = "libindy-request-presentation-0"
	presentationAttachID        = "libindy-presentation-0"
	ackStatusOK                 = "OK"
	problemCodeRejected         = "rejection"
	problemCodeDeclined         = "request-declined"
	problemCodeInvalidPresented = "invalid-presentation"
)

// IsProtocolMessage reports whether msgType belongs to the present proof protocol.
func IsProtocolMessage(msgType string) bool {
	return strings.HasPrefix(msgType, PresentProofSpec)
}

// ProposePresentation is sent by the prover in lieu of a presentation, proposing what it is
// willing to prove instead.
type ProposePresentation struct {
	Type string `json:"@type,omitempty"`
	ID   string `json:"@id,omitempty"`
	// Comment is a field that provides some human readable information about the proposed presentation.
	Comment string `json:"comment,omitempty"`
	// PresentationProposal is the presentation example that the prover wants to provide.
	PresentationProposal PresentationPreview `json:"presentation_proposal"`
	Thread               *decorator.Thread   `json:"~thread,omitempty"`
}

// RequestPresentation describes values that need to be revealed and predicates that need to be fulfilled.
type RequestPresentation struct {
	Type string `json:"@type,omitempty"`
	ID   string `json:"@id,omitempty"`
	// Comment is a field that provides some human readable information about the requested presentation.
	Comment string `json:"comment,omitempty"`
	// RequestPresentations carries the indy proof request.
	RequestPresentations []decorator.Attachment `json:"request_presentations~attach"`
}

// Presentation is a response to a RequestPresentation message and contains the indy presentation.
type Presentation struct {
	Type          string                 `json:"@type,omitempty"`
	ID            string                 `json:"@id,omitempty"`
	Comment       string                 `json:"comment,omitempty"`
	Presentations []decorator.Attachment `json:"presentations~attach"`
	Thread        *decorator.Thread      `json:"~thread,omitempty"`
	PleaseAck     *decorator.PleaseAck   `json:"~please_ack,omitempty"`
}

// PresentationPreview is used to construct a preview of the data for the presentation.
type PresentationPreview struct {
	Type       string      `json:"@type,omitempty"`
	Attributes []Attribute `json:"attributes,omitempty"`
	Predicates []Predicate `json:"predicates,omitempty"`
}

// Empty reports whether the preview proposes nothing.
func (p *PresentationPreview) Empty() bool {
	return p == nil || len(p.Attributes) == 0 && len(p.Predicates) == 0
}

// Attribute describes an attribute for the PresentationPreview.
type Attribute struct {
	Name      string `json:"name"`
	CredDefID string `json:"cred_def_id,omitempty"`
	MimeType  string `json:"mime-type,omitempty"`
	Value     string `json:"value,omitempty"`
	Referent  string `json:"referent,omitempty"`
}

// Predicate describes a predicate for the PresentationPreview.
type Predicate struct {
	Name      string `json:"name"`
	CredDefID string `json:"cred_def_id,omitempty"`
	Predicate string `json:"predicate"`
	Threshold int32  `json:"threshold"`
}

// Ack closes the exchange on the prover side.
type Ack struct {
	Type   string            `json:"@type,omitempty"`
	ID     string            `json:"@id,omitempty"`
	Status string            `json:"status,omitempty"`
	Thread *decorator.Thread `json:"~thread,omitempty"`
}

// ProblemReport ends the exchange with a reason.
type ProblemReport struct {
	Type        string            `json:"@type,omitempty"`
	ID          string            `json:"@id,omitempty"`
	Description Description       `json:"description"`
	Thread      *decorator.Thread `json:"~thread,omitempty"`
}

// Description of a problem.
type Description struct {
	Code string `json:"code,omitempty"`
	En   string `json:"en,omitempty"`
}
