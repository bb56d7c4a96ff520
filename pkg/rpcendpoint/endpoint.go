// Package rpcendpoint implements the full-duplex JSON-RPC 2.0 engine:
// outbound method calls keyed by id with per-call timeout and
// cancellation, and inbound dispatch to an installed handler.
package rpcendpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Dadudida-com/mobile-wallet-adapter/pkg/errors"
	"github.com/Dadudida-com/mobile-wallet-adapter/pkg/jsonrpc"
	"github.com/Dadudida-com/mobile-wallet-adapter/pkg/logger"
	"github.com/Dadudida-com/mobile-wallet-adapter/pkg/transport"
	"go.uber.org/zap"
)

// DefaultCallTimeout is the fallback per-call timeout when a caller passes
// zero.
const DefaultCallTimeout = 90 * time.Second

// Dispatcher receives an inbound method call and must eventually invoke
// exactly one of the reply functions, directly or later, from any
// goroutine. A dispatcher that never replies leaks an open call on the
// peer until its timeout fires.
type Dispatcher func(id json.RawMessage, method string, params json.RawMessage, reply *Reply)

// Reply is handed to a Dispatcher for a single inbound request. Ok/Err are
// idempotent after the first call; subsequent calls are silently dropped,
// the same idempotence RequestFuture guarantees for verdict resolution.
type Reply struct {
	once     sync.Once
	endpoint *Endpoint
	id       json.RawMessage
}

// Ok sends a successful result for this request.
func (r *Reply) Ok(result interface{}) {
	r.once.Do(func() {
		r.endpoint.writeResult(r.id, result)
	})
}

// Err sends an error result for this request.
func (r *Reply) Err(code int, message string, data interface{}) {
	r.once.Do(func() {
		r.endpoint.writeError(r.id, code, message, data)
	})
}

type pendingCall struct {
	resultCh chan callOutcome
	timer    *time.Timer
}

type callOutcome struct {
	result json.RawMessage
	err    error
}

// RemoteError is returned by Call when the peer replied with a JSON-RPC
// error object.
type RemoteError struct {
	Code    int
	Message string
	Data    json.RawMessage
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error %d: %s", e.Code, e.Message)
}

// ErrTimeout is returned by Call when no response arrives before the
// call's timeout elapses.
var ErrTimeout = fmt.Errorf("rpcendpoint: call timed out")

// ErrCancelled is returned by Call when the endpoint is closed, or already
// was, before a terminal outcome arrives. A call whose ctx is cancelled
// returns ctx.Err() instead, and pending inbound RequestFutures are
// resolved with VerdictCancelled.
var ErrCancelled = fmt.Errorf("rpcendpoint: call cancelled")

// Endpoint is a single logical JSON-RPC 2.0 session over a transport.Framer.
type Endpoint struct {
	framer  transport.Framer
	log     logger.Logger
	timeout time.Duration

	nextID int64

	mu      sync.Mutex
	pending map[int64]*pendingCall
	futures map[string]*RequestFuture
	closed  bool

	dispatcher Dispatcher

	closeOnce sync.Once
	closedCh  chan struct{}
}

// Config configures a new Endpoint.
type Config struct {
	Framer      transport.Framer
	Logger      logger.Logger
	CallTimeout time.Duration
}

// New constructs an Endpoint over the given framer. Logger defaults to a
// no-op logger and CallTimeout to DefaultCallTimeout.
func New(cfg Config) *Endpoint {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Endpoint{
		framer:   cfg.Framer,
		log:      log,
		timeout:  timeout,
		pending:  make(map[int64]*pendingCall),
		futures:  make(map[string]*RequestFuture),
		closedCh: make(chan struct{}),
	}
}

// SetDispatcher installs the handler for inbound method calls. It must be
// called before Serve: the endpoint does not guard concurrent access to
// this field because it is set once at wiring time.
func (e *Endpoint) SetDispatcher(d Dispatcher) {
	e.dispatcher = d
}

// Serve runs the read loop until the transport closes, ctx is cancelled,
// or Close is called. It is the endpoint's single frame-arrival-order
// owner: every inbound frame is handled here, in order, before the next
// ReadFrame call.
func (e *Endpoint) Serve(ctx context.Context) error {
	go func() {
		select {
		case <-ctx.Done():
			e.Close()
		case <-e.closedCh:
		}
	}()

	for {
		frame, err := e.framer.ReadFrame()
		if err != nil {
			e.Close()
			if err == io.EOF || err == transport.ErrClosed {
				return nil
			}
			return err
		}
		e.handleFrame(frame)
	}
}

func (e *Endpoint) handleFrame(frame []byte) {
	var probe struct {
		Method *string `json:"method"`
	}
	if err := json.Unmarshal(frame, &probe); err != nil {
		e.log.Warn("received unparseable frame", zap.Error(err))
		e.writeError(nil, errors.CodeParseError, "parse error", nil)
		return
	}
	if probe.Method != nil {
		e.handleRequestFrame(frame)
		return
	}
	e.handleResponseFrame(frame)
}

func (e *Endpoint) handleRequestFrame(frame []byte) {
	req, err := jsonrpc.DecodeRequest(frame)
	if err != nil {
		var pe *errors.ProtocolError
		if ok := asProtocolError(err, &pe); ok {
			e.writeError(nil, pe.Code, pe.Message, nil)
		}
		return
	}
	if e.dispatcher == nil {
		e.writeError(req.ID, errors.CodeMethodNotFound, fmt.Sprintf("no dispatcher installed for %s", req.Method), nil)
		return
	}
	e.dispatcher(req.ID, req.Method, req.Params, &Reply{endpoint: e, id: req.ID})
}

func (e *Endpoint) handleResponseFrame(frame []byte) {
	resp, err := jsonrpc.DecodeResponse(frame)
	if err != nil {
		e.log.Warn("dropping malformed response frame", zap.Error(err))
		return
	}
	var id int64
	if err := json.Unmarshal(resp.ID, &id); err != nil {
		e.log.Warn("dropping response with non-numeric id", zap.Error(err))
		return
	}

	e.mu.Lock()
	call, ok := e.pending[id]
	if ok {
		delete(e.pending, id)
	}
	e.mu.Unlock()
	if !ok {
		// Late arrival for a timed-out or cancelled call: discard.
		return
	}
	call.timer.Stop()

	if resp.Error != nil {
		call.resultCh <- callOutcome{err: &RemoteError{Code: resp.Error.Code, Message: resp.Error.Message, Data: resp.Error.Data}}
		return
	}
	call.resultCh <- callOutcome{result: resp.Result}
}

// Call issues a method call and blocks until a result, error, timeout, or
// cancellation arrives. A zero timeout uses the endpoint's configured
// default.
func (e *Endpoint) Call(ctx context.Context, method string, params interface{}, timeout time.Duration) (json.RawMessage, error) {
	if timeout <= 0 {
		timeout = e.timeout
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrCancelled
	}
	id := atomic.AddInt64(&e.nextID, 1)
	call := &pendingCall{resultCh: make(chan callOutcome, 1)}
	e.pending[id] = call
	e.mu.Unlock()

	idRaw, _ := json.Marshal(id)
	frame, err := jsonrpc.EncodeRequest(idRaw, method, params)
	if err != nil {
		e.removePending(id)
		return nil, err
	}

	call.timer = time.AfterFunc(timeout, func() {
		e.resolveTimeout(id)
	})

	if err := e.framer.WriteFrame(frame); err != nil {
		call.timer.Stop()
		e.removePending(id)
		return nil, err
	}

	select {
	case outcome := <-call.resultCh:
		return outcome.result, outcome.err
	case <-ctx.Done():
		e.removePending(id)
		call.timer.Stop()
		return nil, ctx.Err()
	case <-e.closedCh:
		return nil, ErrCancelled
	}
}

func (e *Endpoint) resolveTimeout(id int64) {
	e.mu.Lock()
	call, ok := e.pending[id]
	if ok {
		delete(e.pending, id)
	}
	e.mu.Unlock()
	if !ok {
		return
	}
	call.resultCh <- callOutcome{err: ErrTimeout}
}

func (e *Endpoint) removePending(id int64) {
	e.mu.Lock()
	delete(e.pending, id)
	e.mu.Unlock()
}

// RegisterFuture associates a RequestFuture with the inbound request id it
// answers, so Close can cancel it if the transport dies before the
// handler/UI resolves it. Inbound ids are keyed by their raw wire form:
// unlike this endpoint's own outbound ids, a peer may choose numbers or
// strings, and both must be tracked.
func (e *Endpoint) RegisterFuture(id json.RawMessage, f *RequestFuture) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		f.cancel()
		return
	}
	e.futures[string(id)] = f
	e.mu.Unlock()
}

// UnregisterFuture removes a future once it has resolved, so Close does
// not try to cancel an already-terminal future.
func (e *Endpoint) UnregisterFuture(id json.RawMessage) {
	e.mu.Lock()
	delete(e.futures, string(id))
	e.mu.Unlock()
}

func (e *Endpoint) writeResult(id json.RawMessage, result interface{}) {
	frame, err := jsonrpc.EncodeResult(id, result)
	if err != nil {
		e.log.Error("failed to encode result frame", zap.Error(err))
		return
	}
	if err := e.framer.WriteFrame(frame); err != nil {
		e.log.Warn("failed to write result frame", zap.Error(err))
	}
}

func (e *Endpoint) writeError(id json.RawMessage, code int, message string, data interface{}) {
	frame, err := jsonrpc.EncodeError(id, code, message, data)
	if err != nil {
		e.log.Error("failed to encode error frame", zap.Error(err))
		return
	}
	if err := e.framer.WriteFrame(frame); err != nil {
		e.log.Warn("failed to write error frame", zap.Error(err))
	}
}

// Close cancels every pending outbound call and every in-flight
// RequestFuture, then closes the underlying transport. Safe to call more
// than once.
func (e *Endpoint) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		pending := e.pending
		e.pending = make(map[int64]*pendingCall)
		futures := e.futures
		e.futures = make(map[string]*RequestFuture)
		e.mu.Unlock()

		for _, call := range pending {
			if call.timer != nil {
				call.timer.Stop()
			}
			call.resultCh <- callOutcome{err: ErrCancelled}
		}
		for _, f := range futures {
			f.cancel()
		}
		close(e.closedCh)
		err = e.framer.Close()
	})
	return err
}

func asProtocolError(err error, target **errors.ProtocolError) bool {
	pe, ok := err.(*errors.ProtocolError)
	if ok {
		*target = pe
	}
	return ok
}
