package mwa

import (
	"context"
	"testing"
	"time"

	"github.com/Dadudida-com/mobile-wallet-adapter/pkg/rpcendpoint"
	"github.com/Dadudida-com/mobile-wallet-adapter/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	client   *Client
	server   *Server
	endpoint *rpcendpoint.Endpoint
	cancel   func()
}

func newHarness(t *testing.T, handlers Handlers) *harness {
	t.Helper()
	a, b := transport.NewPipe()
	clientEndpoint := rpcendpoint.New(rpcendpoint.Config{Framer: a, CallTimeout: 200 * time.Millisecond})
	serverEndpoint := rpcendpoint.New(rpcendpoint.Config{Framer: b, CallTimeout: 200 * time.Millisecond})

	server := NewServer(serverEndpoint, handlers, nil)
	server.Install()

	ctx, cancel := context.WithCancel(context.Background())
	go clientEndpoint.Serve(ctx)
	go serverEndpoint.Serve(ctx)

	client := NewClient(clientEndpoint, 200*time.Millisecond)

	return &harness{
		client:   client,
		server:   server,
		endpoint: clientEndpoint,
		cancel: func() {
			cancel()
			clientEndpoint.Close()
			serverEndpoint.Close()
		},
	}
}

func TestAuthorizeHappyPath(t *testing.T) {
	h := newHarness(t, Handlers{
		Authorize: func(ctx context.Context, req *AuthorizeRequest, future *rpcendpoint.RequestFuture) {
			require.Equal(t, []string{MethodSignTransaction}, req.PrivilegedMethods)
			future.Complete(&AuthorizeResult{AuthToken: "tok-1", PublicKey: "pk-1"})
		},
	})
	defer h.cancel()

	res, err := h.client.Authorize(context.Background(), nil, []string{MethodSignTransaction})
	require.NoError(t, err)
	assert.Equal(t, "tok-1", res.AuthToken)
	assert.Equal(t, "pk-1", res.PublicKey)
}

func TestAuthorizeRejectsUnknownPrivilegedMethod(t *testing.T) {
	h := newHarness(t, Handlers{
		Authorize: func(ctx context.Context, req *AuthorizeRequest, future *rpcendpoint.RequestFuture) {
			t.Fatal("handler should not be invoked for invalid params")
		},
	})
	defer h.cancel()

	_, err := h.client.Authorize(context.Background(), nil, []string{"not_a_real_method"})
	require.Error(t, err)
	var ce *ClientError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, RemoteErr, ce.Kind)
}

func TestAuthorizeDeclined(t *testing.T) {
	h := newHarness(t, Handlers{
		Authorize: func(ctx context.Context, req *AuthorizeRequest, future *rpcendpoint.RequestFuture) {
			future.CompleteWithDecline()
		},
	})
	defer h.cancel()

	_, err := h.client.Authorize(context.Background(), nil, []string{MethodSignMessage})
	var ce *ClientError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, AuthorizationFailed, ce.Kind)
}

func TestSignTransactionHappyPath(t *testing.T) {
	h := newHarness(t, Handlers{
		SignTransaction: func(ctx context.Context, req *SignRequest, future *rpcendpoint.RequestFuture) {
			signed := make([][]byte, len(req.Payloads))
			for i, p := range req.Payloads {
				signed[i] = append(p, 0xFF)
			}
			future.Complete(&SignResult{SignedPayloads: signed})
		},
	})
	defer h.cancel()

	res, err := h.client.SignTransaction(context.Background(), "tok-1", [][]byte{{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{1, 2, 3, 0xFF}}, res.SignedPayloads)
}

func TestSignTransactionPartialInvalidPayloads(t *testing.T) {
	h := newHarness(t, Handlers{
		SignTransaction: func(ctx context.Context, req *SignRequest, future *rpcendpoint.RequestFuture) {
			valid := make([]bool, len(req.Payloads))
			valid[0] = true
			err := future.CompleteWithInvalidPayloads(valid)
			require.NoError(t, err)
		},
	})
	defer h.cancel()

	_, err := h.client.SignTransaction(context.Background(), "tok-1", [][]byte{{1}, {2}})
	var ce *ClientError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, InvalidPayload, ce.Kind)
	assert.Equal(t, []bool{true, false}, ce.Valid)
}

func TestSignTransactionReauthorizationRequired(t *testing.T) {
	h := newHarness(t, Handlers{
		SignTransaction: func(ctx context.Context, req *SignRequest, future *rpcendpoint.RequestFuture) {
			future.CompleteWithReauthorizationRequired()
		},
	})
	defer h.cancel()

	_, err := h.client.SignTransaction(context.Background(), "stale-tok", [][]byte{{1}})
	var ce *ClientError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ReauthorizationRequired, ce.Kind)
}

func TestSignAndSendNotCommitted(t *testing.T) {
	h := newHarness(t, Handlers{
		SignAndSendTransaction: func(ctx context.Context, req *SignAndSendRequest, future *rpcendpoint.RequestFuture) {
			sigs := [][]byte{{0xAA}, {0xBB}}
			committed := []bool{true, false}
			err := future.CompleteWithNotCommitted(sigs, committed)
			require.NoError(t, err)
		},
	})
	defer h.cancel()

	_, err := h.client.SignAndSendTransaction(context.Background(), "tok-1", [][]byte{{1}, {2}}, CommitmentConfirmed)
	var ce *ClientError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, NotCommitted, ce.Kind)
	assert.Equal(t, [][]byte{{0xAA}, {0xBB}}, ce.Signatures)
	assert.Equal(t, []bool{true, false}, ce.Commitment)
}

func TestSignAndSendHappyPath(t *testing.T) {
	h := newHarness(t, Handlers{
		SignAndSendTransaction: func(ctx context.Context, req *SignAndSendRequest, future *rpcendpoint.RequestFuture) {
			assert.Equal(t, CommitmentFinalized, req.Commitment)
			future.Complete(&SignAndSendResult{Signatures: [][]byte{{0x01}}})
		},
	})
	defer h.cancel()

	res, err := h.client.SignAndSendTransaction(context.Background(), "tok-1", [][]byte{{9}}, CommitmentFinalized)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{0x01}}, res.Signatures)
}

func TestSignAndSendRejectsInvalidCommitment(t *testing.T) {
	h := newHarness(t, Handlers{})
	defer h.cancel()

	_, err := h.client.SignAndSendTransaction(context.Background(), "tok-1", [][]byte{{1}}, CommitmentLevel("yolo"))
	var ce *ClientError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, InvalidResponse, ce.Kind)
}

func TestCallTimesOutWhenHandlerNeverResolves(t *testing.T) {
	block := make(chan struct{})
	h := newHarness(t, Handlers{
		SignMessage: func(ctx context.Context, req *SignRequest, future *rpcendpoint.RequestFuture) {
			<-block
		},
	})
	defer func() {
		close(block)
		h.cancel()
	}()

	_, err := h.client.SignMessage(context.Background(), "tok-1", [][]byte{{1}})
	var ce *ClientError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, Timeout, ce.Kind)
}

func TestMissingHandlerYieldsInternalError(t *testing.T) {
	h := newHarness(t, Handlers{})
	defer h.cancel()

	_, err := h.client.SignMessage(context.Background(), "tok-1", [][]byte{{1}})
	var ce *ClientError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, RemoteErr, ce.Kind)
}
