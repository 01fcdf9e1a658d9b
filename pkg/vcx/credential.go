/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vcx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hyperledger/aries-vcx-go/pkg/anoncreds"
	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/issuecredential"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

// CreateIssuerCredential prepares a credential offer of attrsJSON under the credential definition
// referenced by credDef.
func (e *Engine) CreateIssuerCredential(sourceID string, credDef Handle, attrsJSON []byte,
	name, price string) (Handle, error) {
	cd, err := e.credDefs.Lookup(credDef)
	if err != nil {
		return 0, err
	}

	issuer, err := issuecredential.NewIssuer(e, sourceID, cd, attrsJSON, name, price)
	if err != nil {
		return 0, err
	}

	return allocate(e, e.issuers, issuer)
}

// SendCredentialOffer sends the offer over a connection.
func (e *Engine) SendCredentialOffer(ctx context.Context, h, conn Handle) error {
	c, err := e.conn(conn)
	if err != nil {
		return err
	}

	return e.issuers.Do(h, func(i *issuecredential.Issuer) error {
		return i.SendOffer(ctx, c)
	})
}

// CredentialOfferMessage returns the offer message for delivery outside the connection.
func (e *Engine) CredentialOfferMessage(h Handle) (*issuecredential.OfferCredential, error) {
	return do(e.issuers, h, func(i *issuecredential.Issuer) (*issuecredential.OfferCredential, error) {
		return i.OfferMessage()
	})
}

// UpdateIssuerState applies the credential messages received on conn.
func (e *Engine) UpdateIssuerState(ctx context.Context, h, conn Handle) (issuecredential.State, error) {
	c, err := e.conn(conn)
	if err != nil {
		return 0, err
	}

	return do(e.issuers, h, func(i *issuecredential.Issuer) (issuecredential.State, error) {
		return i.UpdateState(ctx, c)
	})
}

// UpdateIssuerStateWithMessage applies one message delivered out of band.
func (e *Engine) UpdateIssuerStateWithMessage(ctx context.Context, h Handle,
	payload []byte) (issuecredential.State, error) {
	return do(e.issuers, h, func(i *issuecredential.Issuer) (issuecredential.State, error) {
		return i.UpdateStateWithMessage(ctx, payload)
	})
}

// IssuerState returns the state of an issuer exchange.
func (e *Engine) IssuerState(h Handle) (issuecredential.State, error) {
	return do(e.issuers, h, func(i *issuecredential.Issuer) (issuecredential.State, error) {
		return i.State(), nil
	})
}

// SendCredential issues the requested credential over conn.
func (e *Engine) SendCredential(ctx context.Context, h, conn Handle) error {
	c, err := e.conn(conn)
	if err != nil {
		return err
	}

	return e.issuers.Do(h, func(i *issuecredential.Issuer) error {
		return i.SendCredential(ctx, c)
	})
}

// CredentialMessage returns the issued credential message.
func (e *Engine) CredentialMessage(h Handle) (*issuecredential.IssueCredential, error) {
	return do(e.issuers, h, func(i *issuecredential.Issuer) (*issuecredential.IssueCredential, error) {
		return i.CredentialMessage()
	})
}

// RevokeCredential revokes an issued credential on the ledger.
func (e *Engine) RevokeCredential(ctx context.Context, h Handle) error {
	return e.issuers.Do(h, func(i *issuecredential.Issuer) error {
		return i.Revoke(ctx)
	})
}

// IssuerRevocationInfo returns the registry and index of an issued revocable credential.
func (e *Engine) IssuerRevocationInfo(h Handle) (anoncreds.RevocationInfo, error) {
	return do(e.issuers, h, func(i *issuecredential.Issuer) (anoncreds.RevocationInfo, error) {
		return i.RevocationInfo()
	})
}

// TerminateCredential abandons the exchange with a problem report.
func (e *Engine) TerminateCredential(ctx context.Context, h, conn Handle, reason string) error {
	c, err := e.conn(conn)
	if err != nil {
		return err
	}

	return e.issuers.Do(h, func(i *issuecredential.Issuer) error {
		return i.Terminate(ctx, c, reason)
	})
}

// SerializeIssuerCredential returns the versioned JSON of an issuer exchange.
func (e *Engine) SerializeIssuerCredential(h Handle) ([]byte, error) {
	return do(e.issuers, h, func(i *issuecredential.Issuer) ([]byte, error) {
		return i.Serialize()
	})
}

// DeserializeIssuerCredential restores an issuer exchange under a new handle.
func (e *Engine) DeserializeIssuerCredential(data []byte) (Handle, error) {
	i, err := issuecredential.DeserializeIssuer(e, data)
	if err != nil {
		return 0, err
	}

	return allocate(e, e.issuers, i)
}

// ReleaseIssuerCredential releases the handle.
func (e *Engine) ReleaseIssuerCredential(h Handle) error {
	return e.issuers.Release(h)
}

// GetCredentialOffers returns the valid credential offers pending on conn.
func (e *Engine) GetCredentialOffers(ctx context.Context, conn Handle) ([]*issuecredential.OfferCredential, error) {
	c, err := e.conn(conn)
	if err != nil {
		return nil, err
	}

	return issuecredential.GetOffers(ctx, c)
}

// CreateCredentialWithOffer starts a holder exchange from an offer message.
func (e *Engine) CreateCredentialWithOffer(sourceID string, offerJSON []byte) (Handle, error) {
	offer, err := issuecredential.ParseOffer(offerJSON)
	if err != nil {
		return 0, err
	}

	holder, err := issuecredential.NewHolderFromOffer(e, sourceID, offer)
	if err != nil {
		return 0, err
	}

	return allocate(e, e.holders, holder)
}

// CreateCredentialWithMsgID starts a holder exchange from the offer with agency id msgID pending on
// conn.
func (e *Engine) CreateCredentialWithMsgID(ctx context.Context, sourceID string, conn Handle,
	msgID string) (Handle, error) {
	c, err := e.conn(conn)
	if err != nil {
		return 0, err
	}

	payload, err := findMessage(ctx, c, msgID)
	if err != nil {
		return 0, err
	}

	return e.CreateCredentialWithOffer(sourceID, payload)
}

// SendCredentialRequest requests the offered credential over conn.
func (e *Engine) SendCredentialRequest(ctx context.Context, h, conn Handle) error {
	c, err := e.conn(conn)
	if err != nil {
		return err
	}

	return e.holders.Do(h, func(holder *issuecredential.Holder) error {
		return holder.SendRequest(ctx, c)
	})
}

// CredentialRequestMessage returns the credential request message.
func (e *Engine) CredentialRequestMessage(h Handle) (*issuecredential.RequestCredential, error) {
	return do(e.holders, h, func(holder *issuecredential.Holder) (*issuecredential.RequestCredential, error) {
		return holder.RequestMessage()
	})
}

// UpdateCredentialState applies the credential messages received on conn.
func (e *Engine) UpdateCredentialState(ctx context.Context, h, conn Handle) (issuecredential.State, error) {
	c, err := e.conn(conn)
	if err != nil {
		return 0, err
	}

	return do(e.holders, h, func(holder *issuecredential.Holder) (issuecredential.State, error) {
		return holder.UpdateState(ctx, c)
	})
}

// UpdateCredentialStateWithMessage applies one message delivered out of band. The ack of a stored
// credential goes over conn.
func (e *Engine) UpdateCredentialStateWithMessage(ctx context.Context, h, conn Handle,
	payload []byte) (issuecredential.State, error) {
	c, err := e.conn(conn)
	if err != nil {
		return 0, err
	}

	return do(e.holders, h, func(holder *issuecredential.Holder) (issuecredential.State, error) {
		return holder.UpdateStateWithMessage(ctx, c, payload)
	})
}

// CredentialState returns the state of a holder exchange.
func (e *Engine) CredentialState(h Handle) (issuecredential.State, error) {
	return do(e.holders, h, func(holder *issuecredential.Holder) (issuecredential.State, error) {
		return holder.State(), nil
	})
}

// GetCredential returns the received credential.
func (e *Engine) GetCredential(h Handle) (*anoncreds.Credential, error) {
	return do(e.holders, h, func(holder *issuecredential.Holder) (*anoncreds.Credential, error) {
		return holder.Credential()
	})
}

// CredentialRevoked reports whether the received credential has been revoked.
func (e *Engine) CredentialRevoked(ctx context.Context, h Handle) (bool, error) {
	return do(e.holders, h, func(holder *issuecredential.Holder) (bool, error) {
		return holder.RevocationStatus(ctx)
	})
}

// RejectCredential refuses the offer with a problem report.
func (e *Engine) RejectCredential(ctx context.Context, h, conn Handle, reason string) error {
	c, err := e.conn(conn)
	if err != nil {
		return err
	}

	return e.holders.Do(h, func(holder *issuecredential.Holder) error {
		return holder.Reject(ctx, c, reason)
	})
}

// DeleteCredential removes the stored credential from the wallet and releases the handle.
func (e *Engine) DeleteCredential(ctx context.Context, h Handle) error {
	err := e.holders.Do(h, func(holder *issuecredential.Holder) error {
		return holder.Delete(ctx)
	})
	if err != nil {
		return err
	}

	return e.holders.Release(h)
}

// SerializeCredential returns the versioned JSON of a holder exchange.
func (e *Engine) SerializeCredential(h Handle) ([]byte, error) {
	return do(e.holders, h, func(holder *issuecredential.Holder) ([]byte, error) {
		return holder.Serialize()
	})
}

// DeserializeCredential restores a holder exchange under a new handle.
func (e *Engine) DeserializeCredential(data []byte) (Handle, error) {
	holder, err := issuecredential.DeserializeHolder(e, data)
	if err != nil {
		return 0, err
	}

	return allocate(e, e.holders, holder)
}

// ReleaseCredential releases the handle. The stored credential is kept.
func (e *Engine) ReleaseCredential(h Handle) error {
	return e.holders.Release(h)
}

// findMessage returns the JSON of the pending message msgID on c.
func findMessage(ctx context.Context, c *handleConn, msgID string) ([]byte, error) {
	msgs, err := c.Receive(ctx)
	if err != nil {
		return nil, err
	}

	for _, m := range msgs {
		if m.UID != msgID {
			continue
		}

		payload, err := json.Marshal(m.Msg)
		if err != nil {
			return nil, fmt.Errorf("marshal message %s: %w", msgID, err)
		}

		return payload, nil
	}

	return nil, vcxerr.New(vcxerr.NotFound, "connection %s has no pending message %s", c.SourceID(), msgID)
}
