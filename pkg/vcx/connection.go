/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vcx

import (
	"context"

	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/connection"
	"github.com/hyperledger/aries-vcx-go/pkg/internal/handle"
)

// CreateConnection creates an inviter connection.
func (e *Engine) CreateConnection(ctx context.Context, sourceID string) (Handle, error) {
	c, err := connection.Create(ctx, e, sourceID)
	if err != nil {
		return 0, err
	}

	return allocate(e, e.connections, c)
}

// CreateConnectionWithInvite creates an invitee connection from the invitation JSON.
func (e *Engine) CreateConnectionWithInvite(ctx context.Context, sourceID string, invite []byte) (Handle, error) {
	c, err := connection.CreateWithInvite(ctx, e, sourceID, invite)
	if err != nil {
		return 0, err
	}

	return allocate(e, e.connections, c)
}

// Connect generates the invitation (inviter) or sends the connection request (invitee).
func (e *Engine) Connect(ctx context.Context, h Handle) error {
	return e.connections.Do(h, func(c *connection.Connection) error {
		return c.Connect(ctx)
	})
}

// UpdateConnectionState polls the agency and applies the connection messages received since the
// last call.
func (e *Engine) UpdateConnectionState(ctx context.Context, h Handle) (connection.State, error) {
	return do(e.connections, h, func(c *connection.Connection) (connection.State, error) {
		return c.UpdateState(ctx)
	})
}

// UpdateConnectionStateWithMessage applies one message delivered out of band.
func (e *Engine) UpdateConnectionStateWithMessage(ctx context.Context, h Handle,
	payload []byte) (connection.State, error) {
	return do(e.connections, h, func(c *connection.Connection) (connection.State, error) {
		return c.UpdateStateWithMessage(ctx, payload)
	})
}

// ConnectionState returns the state of a connection.
func (e *Engine) ConnectionState(h Handle) (connection.State, error) {
	return do(e.connections, h, func(c *connection.Connection) (connection.State, error) {
		return c.State(), nil
	})
}

// InviteDetails returns the invitation of an inviter connection.
func (e *Engine) InviteDetails(h Handle) (*connection.Invitation, error) {
	return do(e.connections, h, func(c *connection.Connection) (*connection.Invitation, error) {
		return c.InviteDetails()
	})
}

// ConnectionInfo describes both sides of a connection.
func (e *Engine) ConnectionInfo(h Handle) (connection.Info, error) {
	return do(e.connections, h, func(c *connection.Connection) (connection.Info, error) {
		return c.Info(), nil
	})
}

// ConnectionPwDID returns the local pairwise DID.
func (e *Engine) ConnectionPwDID(h Handle) (string, error) {
	c, err := e.connections.Lookup(h)
	if err != nil {
		return "", err
	}

	return c.PwDID(), nil
}

// ConnectionTheirPwDID returns the remote pairwise DID, empty until the remote side is known.
func (e *Engine) ConnectionTheirPwDID(h Handle) (string, error) {
	return do(e.connections, h, func(c *connection.Connection) (string, error) {
		return c.TheirPwDID(), nil
	})
}

// SendMessage sends a basic message over a completed connection and returns its agency id.
func (e *Engine) SendMessage(ctx context.Context, h Handle, content string,
	opts connection.SendOptions) (string, error) {
	return do(e.connections, h, func(c *connection.Connection) (string, error) {
		return c.SendMessage(ctx, content, opts)
	})
}

// SendPing sends a trust ping asking for a response.
func (e *Engine) SendPing(ctx context.Context, h Handle, comment string) error {
	return e.connections.Do(h, func(c *connection.Connection) error {
		return c.SendPing(ctx, comment)
	})
}

// SignData signs data with the local pairwise key.
func (e *Engine) SignData(ctx context.Context, h Handle, data []byte) ([]byte, error) {
	return do(e.connections, h, func(c *connection.Connection) ([]byte, error) {
		return c.SignData(ctx, data)
	})
}

// VerifySignature checks a signature of the remote side.
func (e *Engine) VerifySignature(h Handle, data, signature []byte) (bool, error) {
	return do(e.connections, h, func(c *connection.Connection) (bool, error) {
		return c.VerifySignature(data, signature)
	})
}

// RedirectConnection answers the invitation of h with the identity of an existing connection
// to the same party instead of a new one.
func (e *Engine) RedirectConnection(ctx context.Context, h, existing Handle) error {
	other, err := e.connections.Lookup(existing)
	if err != nil {
		return err
	}

	return e.connections.Do(h, func(c *connection.Connection) error {
		return c.Redirect(ctx, other)
	})
}

// RedirectDetails returns the identity a redirected connection points to.
func (e *Engine) RedirectDetails(h Handle) (*connection.RedirectDetails, error) {
	return do(e.connections, h, func(c *connection.Connection) (*connection.RedirectDetails, error) {
		return c.RedirectDetails()
	})
}

// SerializeConnection returns the versioned JSON of a connection.
func (e *Engine) SerializeConnection(h Handle) ([]byte, error) {
	return do(e.connections, h, func(c *connection.Connection) ([]byte, error) {
		return c.Serialize()
	})
}

// DeserializeConnection restores a connection under a new handle.
func (e *Engine) DeserializeConnection(data []byte) (Handle, error) {
	c, err := connection.Deserialize(e, data)
	if err != nil {
		return 0, err
	}

	return allocate(e, e.connections, c)
}

// DeleteConnection marks the pending messages of the connection reviewed and releases it.
func (e *Engine) DeleteConnection(ctx context.Context, h Handle) error {
	err := e.connections.Do(h, func(c *connection.Connection) error {
		return c.Delete(ctx)
	})
	if err != nil {
		return err
	}

	return e.connections.Release(h)
}

// ReleaseConnection releases the handle. The connection is not deleted at the agency.
func (e *Engine) ReleaseConnection(h Handle) error {
	return e.connections.Release(h)
}

// handleConn drives an exchange over a connection handle. Every call runs under the connection's
// handle lock, so exchanges never race connection updates, and fails once the handle is released.
type handleConn struct {
	registry *handle.Registry[*connection.Connection]
	handle   Handle
	sourceID string
	pwDID    string
}

func (e *Engine) conn(h Handle) (*handleConn, error) {
	c, err := e.connections.Lookup(h)
	if err != nil {
		return nil, err
	}

	return &handleConn{registry: e.connections, handle: h, sourceID: c.SourceID(), pwDID: c.PwDID()}, nil
}

func (c *handleConn) SourceID() string { return c.sourceID }

func (c *handleConn) PwDID() string { return c.pwDID }

func (c *handleConn) Send(ctx context.Context, msg interface{}) (string, error) {
	return do(c.registry, c.handle, func(conn *connection.Connection) (string, error) {
		return conn.Send(ctx, msg)
	})
}

func (c *handleConn) Receive(ctx context.Context) ([]connection.Inbound, error) {
	return do(c.registry, c.handle, func(conn *connection.Connection) ([]connection.Inbound, error) {
		return conn.Receive(ctx)
	})
}

func (c *handleConn) MarkReviewed(ctx context.Context, uids ...string) error {
	return c.registry.Do(c.handle, func(conn *connection.Connection) error {
		return conn.MarkReviewed(ctx, uids...)
	})
}
