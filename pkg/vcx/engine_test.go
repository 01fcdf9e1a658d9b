/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vcx

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-vcx-go/pkg/didcomm/protocol/connection"
	arieshttp "github.com/hyperledger/aries-vcx-go/pkg/didcomm/transport/http"
	mockledger "github.com/hyperledger/aries-vcx-go/pkg/mock/ledger"
	mocktransport "github.com/hyperledger/aries-vcx-go/pkg/mock/transport"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

func newEngine(t *testing.T, agency *mocktransport.Agency, l *mockledger.MockLedger, name string) *Engine {
	t.Helper()

	cfg := &Config{InstitutionName: name, AgencyEndpoint: "http://agency.example/" + name}

	e, err := New(context.Background(), cfg, WithTransport(agency), WithLedger(l))
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, e.Shutdown())
	})

	return e
}

// connect runs the connection protocol between inviter and invitee and returns both handles.
func connect(t *testing.T, inviter, invitee *Engine) (Handle, Handle) {
	t.Helper()

	ctx := context.Background()

	inviterConn, err := inviter.CreateConnection(ctx, "inviter_conn")
	require.NoError(t, err)
	require.NoError(t, inviter.Connect(ctx, inviterConn))

	inv, err := inviter.InviteDetails(inviterConn)
	require.NoError(t, err)

	inviteJS, err := json.Marshal(inv)
	require.NoError(t, err)

	inviteeConn, err := invitee.CreateConnectionWithInvite(ctx, "invitee_conn", inviteJS)
	require.NoError(t, err)
	require.NoError(t, invitee.Connect(ctx, inviteeConn))

	_, err = inviter.UpdateConnectionState(ctx, inviterConn)
	require.NoError(t, err)
	_, err = invitee.UpdateConnectionState(ctx, inviteeConn)
	require.NoError(t, err)
	_, err = inviter.UpdateConnectionState(ctx, inviterConn)
	require.NoError(t, err)

	for _, c := range []struct {
		e *Engine
		h Handle
	}{{inviter, inviterConn}, {invitee, inviteeConn}} {
		state, err := c.e.ConnectionState(c.h)
		require.NoError(t, err)
		require.Equal(t, connection.StateCompleted, state)
	}

	return inviterConn, inviteeConn
}

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name string
		data string
		kind vcxerr.Kind
	}{
		{"invalid json", `{`, vcxerr.ValidationFailure},
		{"missing name", `{"agency_endpoint":"http://agency.example"}`, vcxerr.ValidationFailure},
		{"missing endpoint", `{"institution_name":"faber"}`, vcxerr.ValidationFailure},
		{"endpoint is not http", `{"institution_name":"faber","agency_endpoint":"ws://agency.example"}`,
			vcxerr.ValidationFailure},
		{"invalid webhook", `{"institution_name":"faber","agency_endpoint":"http://agency.example",
			"webhook_url":"hook"}`, vcxerr.ValidationFailure},
		{"did without verkey", `{"institution_name":"faber","agency_endpoint":"http://agency.example",
			"institution_did":"V4SGRU86Z58d6TV7PBUe6f"}`, vcxerr.ValidationFailure},
		{"unsupported protocol", `{"institution_name":"faber","agency_endpoint":"http://agency.example",
			"protocol_version":"2.0"}`, vcxerr.UnsupportedVersion},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tc.data))
			require.Error(t, err)
			require.Equal(t, tc.kind, vcxerr.KindOf(err))
		})
	}

	t.Run("defaults the protocol version", func(t *testing.T) {
		cfg, err := ParseConfig([]byte(`{"institution_name":"faber","agency_endpoint":"https://agency.example",
			"webhook_url":"http://localhost:8080/notify"}`))
		require.NoError(t, err)
		require.Equal(t, AriesProtocolVersion, cfg.ProtocolVersion)
		require.Equal(t, "faber", cfg.InstitutionName)
	})
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("config is required", func(t *testing.T) {
		_, err := New(ctx, nil, WithLedger(mockledger.New()))
		require.Equal(t, vcxerr.ValidationFailure, vcxerr.KindOf(err))
	})

	t.Run("ledger is required", func(t *testing.T) {
		_, err := New(ctx, &Config{InstitutionName: "faber", AgencyEndpoint: "http://agency.example"})
		require.Error(t, err)
		require.Equal(t, vcxerr.ValidationFailure, vcxerr.KindOf(err))
	})

	t.Run("option error", func(t *testing.T) {
		_, err := New(ctx, &Config{InstitutionName: "faber", AgencyEndpoint: "http://agency.example"},
			WithTransport(nil))
		require.Error(t, err)
		require.Contains(t, err.Error(), "error in option passed to New")
	})

	t.Run("unsupported protocol version", func(t *testing.T) {
		_, err := New(ctx, &Config{
			InstitutionName: "faber", AgencyEndpoint: "http://agency.example", ProtocolVersion: "1.0",
		}, WithLedger(mockledger.New()))
		require.Equal(t, vcxerr.UnsupportedVersion, vcxerr.KindOf(err))
	})

	t.Run("configured institution must be in the wallet", func(t *testing.T) {
		_, err := New(ctx, &Config{
			InstitutionName:   "faber",
			AgencyEndpoint:    "http://agency.example",
			InstitutionDID:    "V4SGRU86Z58d6TV7PBUe6f",
			InstitutionVerkey: "GJ1SzoWzavQYfNL9XkaJdrQejfztN4XqdsiV4ct3LXKL",
		}, WithLedger(mockledger.New()), WithTransport(mocktransport.NewAgency()))
		require.Error(t, err)
		require.Equal(t, vcxerr.NotFound, vcxerr.KindOf(err))
	})

	t.Run("institution identity survives a restart on the same store", func(t *testing.T) {
		store := mem.NewProvider()
		cfg := &Config{InstitutionName: "faber", AgencyEndpoint: "http://agency.example"}

		first, err := New(ctx, cfg, WithLedger(mockledger.New()), WithStorageProvider(store))
		require.NoError(t, err)

		restored := first.Config()
		require.NotEmpty(t, restored.InstitutionDID)
		require.NotEmpty(t, restored.InstitutionVerkey)

		second, err := New(ctx, &restored, WithLedger(mockledger.New()), WithStorageProvider(store))
		require.NoError(t, err)
		require.Equal(t, restored.InstitutionDID, second.Config().InstitutionDID)
	})

	t.Run("default transport is the agency client", func(t *testing.T) {
		e, err := New(ctx, &Config{InstitutionName: "faber", AgencyEndpoint: "http://agency.example/"},
			WithLedger(mockledger.New()))
		require.NoError(t, err)
		require.IsType(t, &arieshttp.AgencyClient{}, e.Transport())
		require.Equal(t, "faber", e.Label())
		require.Equal(t, "http://agency.example/", e.ServiceEndpoint())
		require.Equal(t, Version, e.Version())
		require.NotNil(t, e.Events())
	})
}

func TestEngine_InstitutionInfo(t *testing.T) {
	e := newEngine(t, mocktransport.NewAgency(), mockledger.New(), "faber")

	require.Error(t, e.UpdateInstitutionInfo("", "http://logo.example/faber.png"))
	require.NoError(t, e.UpdateInstitutionInfo("faber college", "http://logo.example/faber.png"))
	require.Equal(t, "faber college", e.Label())
	require.Equal(t, "http://logo.example/faber.png", e.Config().InstitutionLogoURL)

	require.Equal(t, vcxerr.ValidationFailure, vcxerr.KindOf(e.UpdateWebhookURL("not a url")))
	require.NoError(t, e.UpdateWebhookURL("http://localhost:8080/notify"))
	require.Equal(t, "http://localhost:8080/notify", e.Config().WebhookURL)

	require.Equal(t, vcxerr.Message(vcxerr.Success), e.ErrorMessage(vcxerr.Success))
}

func TestEngine_Shutdown(t *testing.T) {
	ctx := context.Background()
	agency := mocktransport.NewAgency()

	e, err := New(ctx, &Config{InstitutionName: "faber", AgencyEndpoint: "http://agency.example"},
		WithTransport(agency), WithLedger(mockledger.New()))
	require.NoError(t, err)

	h, err := e.CreateConnection(ctx, "conn")
	require.NoError(t, err)

	data, err := e.SerializeConnection(h)
	require.NoError(t, err)

	require.NoError(t, e.Shutdown())
	require.NoError(t, e.Shutdown())

	_, err = e.ConnectionState(h)
	require.Equal(t, vcxerr.InvalidHandle, vcxerr.KindOf(err))

	_, err = e.CreateConnection(ctx, "conn")
	require.Equal(t, vcxerr.InvalidState, vcxerr.KindOf(err))

	_, err = e.DeserializeConnection(data)
	require.Equal(t, vcxerr.InvalidState, vcxerr.KindOf(err))
}

func TestAsync(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, mocktransport.NewAgency(), mockledger.New(), "faber")
	a := e.Async()

	t.Run("result is delivered once", func(t *testing.T) {
		release := make(chan struct{})

		token := a.Start(ctx, func(context.Context) (interface{}, error) {
			<-release

			return "done", nil
		})

		done, err := a.Done(token)
		require.NoError(t, err)
		require.False(t, done)

		close(release)

		v, err := a.Await(ctx, token)
		require.NoError(t, err)
		require.Equal(t, "done", v)

		_, err = a.Await(ctx, token)
		require.Equal(t, vcxerr.InvalidHandle, vcxerr.KindOf(err))
	})

	t.Run("error is delivered", func(t *testing.T) {
		token := a.Start(ctx, func(context.Context) (interface{}, error) {
			return nil, vcxerr.New(vcxerr.NotFound, "nothing")
		})

		_, err := a.Await(ctx, token)
		require.Equal(t, vcxerr.NotFound, vcxerr.KindOf(err))
	})

	t.Run("abandoned wait keeps the result", func(t *testing.T) {
		release := make(chan struct{})

		token := a.Start(ctx, func(context.Context) (interface{}, error) {
			<-release

			return 7, nil
		})

		waitCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()

		_, err := a.Await(waitCtx, token)
		require.ErrorIs(t, err, context.DeadlineExceeded)

		close(release)

		v, err := a.Await(ctx, token)
		require.NoError(t, err)
		require.Equal(t, 7, v)
	})

	t.Run("concurrent waits collect once", func(t *testing.T) {
		const waiters = 4

		type result struct {
			value interface{}
			err   error
		}

		release := make(chan struct{})

		token := a.Start(ctx, func(context.Context) (interface{}, error) {
			<-release

			return "once", nil
		})

		results := make(chan result, waiters)

		for i := 0; i < waiters; i++ {
			go func() {
				v, err := a.Await(ctx, token)
				results <- result{v, err}
			}()
		}

		for i := 0; i < waiters-1; i++ {
			r := <-results
			require.Equal(t, vcxerr.InvalidState, vcxerr.KindOf(r.err))
		}

		done, err := a.Done(token)
		require.NoError(t, err)
		require.False(t, done)

		close(release)

		r := <-results
		require.NoError(t, r.err)
		require.Equal(t, "once", r.value)

		_, err = a.Await(ctx, token)
		require.Equal(t, vcxerr.InvalidHandle, vcxerr.KindOf(err))
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := a.Done(Token(999999))
		require.Equal(t, vcxerr.InvalidHandle, vcxerr.KindOf(err))
	})

	require.Zero(t, a.Pending())
}

func TestAwaitState(t *testing.T) {
	ctx := context.Background()
	opts := AwaitOptions{Interval: time.Millisecond, MaxInterval: 5 * time.Millisecond, Timeout: time.Second}

	t.Run("state reached", func(t *testing.T) {
		calls := 0

		state, err := AwaitState(ctx, func(context.Context) (connection.State, error) {
			calls++
			if calls < 3 {
				return connection.StateRequestSent, nil
			}

			return connection.StateCompleted, nil
		}, func(s connection.State) bool { return s == connection.StateCompleted }, opts)
		require.NoError(t, err)
		require.Equal(t, connection.StateCompleted, state)
		require.Equal(t, 3, calls)
	})

	t.Run("poll error stops the wait", func(t *testing.T) {
		calls := 0
		errPoll := errors.New("agency down")

		_, err := AwaitState(ctx, func(context.Context) (int, error) {
			calls++

			return 0, errPoll
		}, func(int) bool { return true }, opts)
		require.ErrorIs(t, err, errPoll)
		require.Equal(t, 1, calls)
	})

	t.Run("timeout", func(t *testing.T) {
		_, err := AwaitState(ctx, func(context.Context) (int, error) {
			return 0, nil
		}, func(s int) bool { return s == 1 },
			AwaitOptions{Interval: time.Millisecond, MaxInterval: time.Millisecond, Timeout: 20 * time.Millisecond})
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("canceled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := AwaitState(cctx, func(context.Context) (int, error) {
			return 0, nil
		}, func(s int) bool { return s == 1 }, opts)
		require.ErrorIs(t, err, context.Canceled)
	})
}
