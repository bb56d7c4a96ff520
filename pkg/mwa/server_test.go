package mwa

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Dadudida-com/mobile-wallet-adapter/pkg/rpcendpoint"
	"github.com/Dadudida-com/mobile-wallet-adapter/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wireHarness drives a server endpoint with raw frames, asserting exact
// wire shapes rather than going through a Client.
type wireHarness struct {
	peer *transport.PipeFramer
	stop func()
}

func newWireHarness(t *testing.T, handlers Handlers) *wireHarness {
	t.Helper()
	a, b := transport.NewPipe()
	serverEndpoint := rpcendpoint.New(rpcendpoint.Config{Framer: b, CallTimeout: 200 * time.Millisecond})
	NewServer(serverEndpoint, handlers, nil).Install()

	ctx, cancel := context.WithCancel(context.Background())
	go serverEndpoint.Serve(ctx)

	return &wireHarness{
		peer: a,
		stop: func() {
			cancel()
			serverEndpoint.Close()
			a.Close()
		},
	}
}

func (h *wireHarness) roundTrip(t *testing.T, frame string) string {
	t.Helper()
	require.NoError(t, h.peer.WriteFrame([]byte(frame)))
	reply, err := h.peer.ReadFrame()
	require.NoError(t, err)
	return string(reply)
}

func TestAuthorizeWireShape(t *testing.T) {
	h := newWireHarness(t, Handlers{
		Authorize: func(ctx context.Context, req *AuthorizeRequest, future *rpcendpoint.RequestFuture) {
			require.NotNil(t, req.Identity)
			assert.Equal(t, "X", *req.Identity.Name)
			future.Complete(&AuthorizeResult{AuthToken: "tok", PublicKey: "pk"})
		},
	})
	defer h.stop()

	reply := h.roundTrip(t, `{"jsonrpc":"2.0","id":1,"method":"authorize","params":{"identity":{"name":"X"},"privileged_methods":["sign_transaction"]}}`)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"result":{"auth_token":"tok","public_key":"pk"}}`, reply)
}

func TestSignTransactionWireShape(t *testing.T) {
	h := newWireHarness(t, Handlers{
		SignTransaction: func(ctx context.Context, req *SignRequest, future *rpcendpoint.RequestFuture) {
			require.Equal(t, [][]byte{{0xDE, 0xAD}}, req.Payloads)
			future.Complete(&SignResult{SignedPayloads: [][]byte{{0xBE, 0xEF}}})
		},
	})
	defer h.stop()

	reply := h.roundTrip(t, `{"jsonrpc":"2.0","id":2,"method":"sign_transaction","params":{"auth_token":"tok","payloads":["3q0"]}}`)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":2,"result":{"signed_payloads":["vu8"]}}`, reply)
}

func TestInvalidPayloadsWireShape(t *testing.T) {
	h := newWireHarness(t, Handlers{
		SignTransaction: func(ctx context.Context, req *SignRequest, future *rpcendpoint.RequestFuture) {
			require.NoError(t, future.CompleteWithInvalidPayloads([]bool{true, false}))
		},
	})
	defer h.stop()

	reply := h.roundTrip(t, `{"jsonrpc":"2.0","id":3,"method":"sign_transaction","params":{"auth_token":"tok","payloads":["3q0","vu8"]}}`)

	var decoded struct {
		Error struct {
			Code int `json:"code"`
			Data struct {
				Valid []bool `json:"valid"`
			} `json:"data"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(reply), &decoded))
	assert.Equal(t, ErrInvalidPayload, decoded.Error.Code)
	assert.Equal(t, []bool{true, false}, decoded.Error.Data.Valid)
}

func TestNotCommittedWireShape(t *testing.T) {
	h := newWireHarness(t, Handlers{
		SignAndSendTransaction: func(ctx context.Context, req *SignAndSendRequest, future *rpcendpoint.RequestFuture) {
			require.NoError(t, future.CompleteWithNotCommitted([][]byte{{0xAA}}, []bool{false}))
		},
	})
	defer h.stop()

	reply := h.roundTrip(t, `{"jsonrpc":"2.0","id":4,"method":"sign_and_send_transaction","params":{"auth_token":"tok","payloads":["3q0"],"commitment":"confirmed"}}`)

	var decoded struct {
		Error struct {
			Code int `json:"code"`
			Data struct {
				Signatures []string `json:"signatures"`
				Commitment []bool   `json:"commitment"`
			} `json:"data"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(reply), &decoded))
	assert.Equal(t, ErrNotCommitted, decoded.Error.Code)
	assert.Equal(t, []string{"qg"}, decoded.Error.Data.Signatures)
	assert.Equal(t, []bool{false}, decoded.Error.Data.Commitment)
}

func assertErrorCode(t *testing.T, reply string, wantCode int) {
	t.Helper()
	var decoded struct {
		Error *struct {
			Code int `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(reply), &decoded))
	require.NotNil(t, decoded.Error)
	assert.Equal(t, wantCode, decoded.Error.Code)
}

func TestEmptyPayloadsRejectedWithInvalidParams(t *testing.T) {
	h := newWireHarness(t, Handlers{
		SignTransaction: func(ctx context.Context, req *SignRequest, future *rpcendpoint.RequestFuture) {
			t.Fatal("handler must not run for invalid params")
		},
	})
	defer h.stop()

	reply := h.roundTrip(t, `{"jsonrpc":"2.0","id":5,"method":"sign_transaction","params":{"auth_token":"tok","payloads":[]}}`)
	assertErrorCode(t, reply, -32602)
}

func TestMissingAuthTokenRejectedWithInvalidParams(t *testing.T) {
	h := newWireHarness(t, Handlers{})
	defer h.stop()

	reply := h.roundTrip(t, `{"jsonrpc":"2.0","id":6,"method":"sign_message","params":{"payloads":["3q0"]}}`)
	assertErrorCode(t, reply, -32602)
}

func TestEmptyPayloadElementRejected(t *testing.T) {
	h := newWireHarness(t, Handlers{})
	defer h.stop()

	reply := h.roundTrip(t, `{"jsonrpc":"2.0","id":7,"method":"sign_message","params":{"auth_token":"tok","payloads":["3q0",""]}}`)
	assertErrorCode(t, reply, -32602)
}

func TestUnknownMethodRejectedWithMethodNotFound(t *testing.T) {
	h := newWireHarness(t, Handlers{})
	defer h.stop()

	reply := h.roundTrip(t, `{"jsonrpc":"2.0","id":8,"method":"deauthorize","params":{}}`)
	assertErrorCode(t, reply, -32601)
}

func TestStringRequestIDRoundTrip(t *testing.T) {
	h := newWireHarness(t, Handlers{
		SignMessage: func(ctx context.Context, req *SignRequest, future *rpcendpoint.RequestFuture) {
			future.Complete(&SignResult{SignedPayloads: req.Payloads})
		},
	})
	defer h.stop()

	reply := h.roundTrip(t, `{"jsonrpc":"2.0","id":"req-a","method":"sign_message","params":{"auth_token":"tok","payloads":["3q0"]}}`)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":"req-a","result":{"signed_payloads":["3q0"]}}`, reply)
}

func TestCloseCancelsPendingStringIDFuture(t *testing.T) {
	futureCh := make(chan *rpcendpoint.RequestFuture, 1)

	a, b := transport.NewPipe()
	serverEndpoint := rpcendpoint.New(rpcendpoint.Config{Framer: b, CallTimeout: time.Second})
	NewServer(serverEndpoint, Handlers{
		SignMessage: func(ctx context.Context, req *SignRequest, future *rpcendpoint.RequestFuture) {
			futureCh <- future // hold the verdict open past Close
		},
	}, nil).Install()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go serverEndpoint.Serve(ctx)

	require.NoError(t, a.WriteFrame([]byte(`{"jsonrpc":"2.0","id":"req-b","method":"sign_message","params":{"auth_token":"tok","payloads":["3q0"]}}`)))

	var future *rpcendpoint.RequestFuture
	select {
	case future = <-futureCh:
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}

	serverEndpoint.Close()
	assert.True(t, future.IsResolved())
}

func TestNonObjectParamsRejected(t *testing.T) {
	h := newWireHarness(t, Handlers{})
	defer h.stop()

	reply := h.roundTrip(t, `{"jsonrpc":"2.0","id":9,"method":"authorize","params":[1,2]}`)
	assertErrorCode(t, reply, -32602)
}
