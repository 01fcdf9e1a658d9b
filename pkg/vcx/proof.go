/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vcx

import (
	"context"

	"github.com/hyperledger/aries-vcx-go/pkg/anoncreds"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/presentproof"
)

// ProofResult is the outcome of a proof exchange on the verifier side.
type ProofResult struct {
	State        presentproof.State      `json:"state"`
	Status       presentproof.Status     `json:"proof_state"`
	Presentation *anoncreds.Presentation `json:"presentation,omitempty"`
	Revealed     map[string]string       `json:"revealed_attrs,omitempty"`
	Reason       string                  `json:"reason,omitempty"`
}

// CreateProof prepares a proof request. revocationInterval is the global non revocation interval,
// empty for none.
func (e *Engine) CreateProof(sourceID string, attrsJSON, predsJSON, revocationInterval []byte,
	name string) (Handle, error) {
	v, err := presentproof.NewVerifier(e, sourceID, attrsJSON, predsJSON, revocationInterval, name)
	if err != nil {
		return 0, err
	}

	return allocate(e, e.verifiers, v)
}

// SendProofRequest sends the proof request over conn.
func (e *Engine) SendProofRequest(ctx context.Context, h, conn Handle) error {
	c, err := e.conn(conn)
	if err != nil {
		return err
	}

	return e.verifiers.Do(h, func(v *presentproof.Verifier) error {
		return v.SendRequest(ctx, c)
	})
}

// ProofRequestMessage returns the request message for delivery outside the connection.
func (e *Engine) ProofRequestMessage(h Handle) (*presentproof.RequestPresentation, error) {
	return do(e.verifiers, h, func(v *presentproof.Verifier) (*presentproof.RequestPresentation, error) {
		return v.RequestMessage()
	})
}

// UpdateProofState applies the proof messages received on conn.
func (e *Engine) UpdateProofState(ctx context.Context, h, conn Handle) (presentproof.State, error) {
	c, err := e.conn(conn)
	if err != nil {
		return 0, err
	}

	return do(e.verifiers, h, func(v *presentproof.Verifier) (presentproof.State, error) {
		return v.UpdateState(ctx, c)
	})
}

// UpdateProofStateWithMessage applies one message delivered out of band. The verdict goes over
// conn.
func (e *Engine) UpdateProofStateWithMessage(ctx context.Context, h, conn Handle,
	payload []byte) (presentproof.State, error) {
	c, err := e.conn(conn)
	if err != nil {
		return 0, err
	}

	return do(e.verifiers, h, func(v *presentproof.Verifier) (presentproof.State, error) {
		return v.UpdateStateWithMessage(ctx, c, payload)
	})
}

// ProofState returns the state of a verifier exchange.
func (e *Engine) ProofState(h Handle) (presentproof.State, error) {
	return do(e.verifiers, h, func(v *presentproof.Verifier) (presentproof.State, error) {
		return v.State(), nil
	})
}

// GetProof returns the received presentation and its verification outcome.
func (e *Engine) GetProof(h Handle) (*ProofResult, error) {
	return do(e.verifiers, h, func(v *presentproof.Verifier) (*ProofResult, error) {
		pres, err := v.Presentation()
		if err != nil {
			return nil, err
		}

		result := &ProofResult{
			State:        v.State(),
			Status:       v.VerificationStatus(),
			Presentation: pres,
			Revealed:     pres.RevealedValues(),
		}

		if ver := v.Verification(); ver != nil {
			result.Reason = ver.Reason
		}

		return result, nil
	})
}

// SerializeProof returns the versioned JSON of a verifier exchange.
func (e *Engine) SerializeProof(h Handle) ([]byte, error) {
	return do(e.verifiers, h, func(v *presentproof.Verifier) ([]byte, error) {
		return v.Serialize()
	})
}

// DeserializeProof restores a verifier exchange under a new handle.
func (e *Engine) DeserializeProof(data []byte) (Handle, error) {
	v, err := presentproof.DeserializeVerifier(e, data)
	if err != nil {
		return 0, err
	}

	return allocate(e, e.verifiers, v)
}

// ReleaseProof releases the handle.
func (e *Engine) ReleaseProof(h Handle) error {
	return e.verifiers.Release(h)
}

// GetProofRequests returns the valid proof requests pending on conn.
func (e *Engine) GetProofRequests(ctx context.Context, conn Handle) ([]*presentproof.RequestPresentation, error) {
	c, err := e.conn(conn)
	if err != nil {
		return nil, err
	}

	return presentproof.GetRequests(ctx, c)
}

// CreateDisclosedProofWithRequest starts a prover exchange from a request message.
func (e *Engine) CreateDisclosedProofWithRequest(sourceID string, requestJSON []byte) (Handle, error) {
	req, err := presentproof.ParseRequest(requestJSON)
	if err != nil {
		return 0, err
	}

	p, err := presentproof.NewProverFromRequest(e, sourceID, req)
	if err != nil {
		return 0, err
	}

	return allocate(e, e.provers, p)
}

// CreateDisclosedProofWithMsgID starts a prover exchange from the request with agency id msgID
// pending on conn.
func (e *Engine) CreateDisclosedProofWithMsgID(ctx context.Context, sourceID string, conn Handle,
	msgID string) (Handle, error) {
	c, err := e.conn(conn)
	if err != nil {
		return 0, err
	}

	payload, err := findMessage(ctx, c, msgID)
	if err != nil {
		return 0, err
	}

	return e.CreateDisclosedProofWithRequest(sourceID, payload)
}

// RetrieveCredentials returns the stored credentials matching each requested referent.
func (e *Engine) RetrieveCredentials(ctx context.Context, h Handle) (*anoncreds.RetrievedCredentials, error) {
	return do(e.provers, h, func(p *presentproof.Prover) (*anoncreds.RetrievedCredentials, error) {
		return p.RetrieveCredentials(ctx)
	})
}

// GenerateProof builds the presentation from the selected credentials and self attested values.
func (e *Engine) GenerateProof(ctx context.Context, h Handle, selected *anoncreds.SelectedCredentials,
	selfAttested map[string]string) error {
	return e.provers.Do(h, func(p *presentproof.Prover) error {
		return p.Generate(ctx, selected, selfAttested)
	})
}

// SendProof sends the generated presentation over conn.
func (e *Engine) SendProof(ctx context.Context, h, conn Handle) error {
	c, err := e.conn(conn)
	if err != nil {
		return err
	}

	return e.provers.Do(h, func(p *presentproof.Prover) error {
		return p.Send(ctx, c)
	})
}

// RejectProof refuses the request with a problem report.
func (e *Engine) RejectProof(ctx context.Context, h, conn Handle, reason string) error {
	c, err := e.conn(conn)
	if err != nil {
		return err
	}

	return e.provers.Do(h, func(p *presentproof.Prover) error {
		return p.Reject(ctx, c, reason)
	})
}

// DeclineProofRequest refuses the request with exactly one of a reason or a counter proposal.
func (e *Engine) DeclineProofRequest(ctx context.Context, h, conn Handle, reason string,
	proposal *presentproof.PresentationPreview) error {
	c, err := e.conn(conn)
	if err != nil {
		return err
	}

	return e.provers.Do(h, func(p *presentproof.Prover) error {
		return p.DeclineRequest(ctx, c, reason, proposal)
	})
}

// DisclosedProofMessage returns the presentation message.
func (e *Engine) DisclosedProofMessage(h Handle) (*presentproof.Presentation, error) {
	return do(e.provers, h, func(p *presentproof.Prover) (*presentproof.Presentation, error) {
		return p.PresentationMessage()
	})
}

// DisclosedProofRejectMessage returns the problem report sent or received, nil if none.
func (e *Engine) DisclosedProofRejectMessage(h Handle) (*presentproof.Description, error) {
	return do(e.provers, h, func(p *presentproof.Prover) (*presentproof.Description, error) {
		return p.Problem(), nil
	})
}

// UpdateDisclosedProofState applies the proof messages received on conn.
func (e *Engine) UpdateDisclosedProofState(ctx context.Context, h, conn Handle) (presentproof.State, error) {
	c, err := e.conn(conn)
	if err != nil {
		return 0, err
	}

	return do(e.provers, h, func(p *presentproof.Prover) (presentproof.State, error) {
		return p.UpdateState(ctx, c)
	})
}

// UpdateDisclosedProofStateWithMessage applies one message delivered out of band.
func (e *Engine) UpdateDisclosedProofStateWithMessage(ctx context.Context, h Handle,
	payload []byte) (presentproof.State, error) {
	return do(e.provers, h, func(p *presentproof.Prover) (presentproof.State, error) {
		return p.UpdateStateWithMessage(ctx, payload)
	})
}

// DisclosedProofState returns the state of a prover exchange.
func (e *Engine) DisclosedProofState(h Handle) (presentproof.State, error) {
	return do(e.provers, h, func(p *presentproof.Prover) (presentproof.State, error) {
		return p.State(), nil
	})
}

// SerializeDisclosedProof returns the versioned JSON of a prover exchange.
func (e *Engine) SerializeDisclosedProof(h Handle) ([]byte, error) {
	return do(e.provers, h, func(p *presentproof.Prover) ([]byte, error) {
		return p.Serialize()
	})
}

// DeserializeDisclosedProof restores a prover exchange under a new handle.
func (e *Engine) DeserializeDisclosedProof(data []byte) (Handle, error) {
	p, err := presentproof.DeserializeProver(e, data)
	if err != nil {
		return 0, err
	}

	return allocate(e, e.provers, p)
}

// ReleaseDisclosedProof releases the handle.
func (e *Engine) ReleaseDisclosedProof(h Handle) error {
	return e.provers.Release(h)
}
