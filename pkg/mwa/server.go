package mwa

import (
	"context"
	"encoding/json"
	"fmt"

	protoerrors "github.com/Dadudida-com/mobile-wallet-adapter/pkg/errors"
	"github.com/Dadudida-com/mobile-wallet-adapter/pkg/jsonpack"
	"github.com/Dadudida-com/mobile-wallet-adapter/pkg/logger"
	"github.com/Dadudida-com/mobile-wallet-adapter/pkg/rpcendpoint"
	"go.uber.org/zap"
)

// AuthorizeHandler is the injected capability that decides the verdict
// for an authorize request. It must eventually resolve future.
type AuthorizeHandler func(ctx context.Context, req *AuthorizeRequest, future *rpcendpoint.RequestFuture)

// SignHandler handles sign_transaction and sign_message requests.
type SignHandler func(ctx context.Context, req *SignRequest, future *rpcendpoint.RequestFuture)

// SignAndSendHandler handles sign_and_send_transaction requests.
type SignAndSendHandler func(ctx context.Context, req *SignAndSendRequest, future *rpcendpoint.RequestFuture)

// Handlers groups the small set of capabilities the dispatcher depends
// on. The dispatcher knows nothing beyond these; a nil handler for a
// method the dapp calls yields an internal error reply.
type Handlers struct {
	Authorize              AuthorizeHandler
	SignTransaction        SignHandler
	SignMessage            SignHandler
	SignAndSendTransaction SignAndSendHandler
}

// Server is the wallet-side MWA method dispatcher.
type Server struct {
	endpoint *rpcendpoint.Endpoint
	handlers Handlers
	log      logger.Logger
}

// NewServer builds a Server bound to endpoint. Call Install to register it
// as the endpoint's dispatcher.
func NewServer(endpoint *rpcendpoint.Endpoint, handlers Handlers, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	return &Server{endpoint: endpoint, handlers: handlers, log: log}
}

// Install registers the server as the endpoint's inbound dispatcher.
func (s *Server) Install() {
	s.endpoint.SetDispatcher(s.dispatch)
}

func (s *Server) dispatch(id json.RawMessage, method string, params json.RawMessage, reply *rpcendpoint.Reply) {
	switch method {
	case MethodAuthorize:
		s.dispatchAuthorize(id, params, reply)
	case MethodSignTransaction:
		s.dispatchSign(id, params, reply, method, s.handlers.SignTransaction)
	case MethodSignMessage:
		s.dispatchSign(id, params, reply, method, s.handlers.SignMessage)
	case MethodSignAndSendTransaction:
		s.dispatchSignAndSend(id, params, reply)
	default:
		reply.Err(protoerrors.CodeMethodNotFound, fmt.Sprintf("method not found: %s", method), nil)
	}
}

type wireIdentity struct {
	URI  *string `json:"uri,omitempty"`
	Icon *string `json:"icon,omitempty"`
	Name *string `json:"name,omitempty"`
}

type authorizeParamsWire struct {
	Identity          *wireIdentity `json:"identity,omitempty"`
	PrivilegedMethods []string      `json:"privileged_methods"`
}

func (s *Server) dispatchAuthorize(id json.RawMessage, params json.RawMessage, reply *rpcendpoint.Reply) {
	if !isJSONObject(params) {
		reply.Err(protoerrors.CodeInvalidParams, "params must be an object", nil)
		return
	}
	var wire authorizeParamsWire
	if err := json.Unmarshal(params, &wire); err != nil {
		reply.Err(protoerrors.CodeInvalidParams, "invalid params: "+err.Error(), nil)
		return
	}
	if len(wire.PrivilegedMethods) == 0 {
		reply.Err(protoerrors.CodeInvalidParams, "privileged_methods must be non-empty", nil)
		return
	}
	for _, m := range wire.PrivilegedMethods {
		if !PrivilegedMethods[m] {
			reply.Err(protoerrors.CodeInvalidParams, "unknown privileged method: "+m, nil)
			return
		}
	}
	var identity *Identity
	if wire.Identity != nil {
		identity = &Identity{URI: wire.Identity.URI, Icon: wire.Identity.Icon, Name: wire.Identity.Name}
		if err := identity.Validate(); err != nil {
			reply.Err(protoerrors.CodeInvalidParams, err.Error(), nil)
			return
		}
	}

	req := &AuthorizeRequest{Identity: identity, PrivilegedMethods: wire.PrivilegedMethods}

	if s.handlers.Authorize == nil {
		reply.Err(protoerrors.CodeInternalError, "no authorize handler installed", nil)
		return
	}

	future := rpcendpoint.NewRequestFuture(0, false, func(v rpcendpoint.Verdict) {
		s.endpoint.UnregisterFuture(id)
		s.finishReply(MethodAuthorize, reply, 0, v)
	})
	s.endpoint.RegisterFuture(id, future)
	s.handlers.Authorize(context.Background(), req, future)
}

type signParamsWire struct {
	AuthToken string   `json:"auth_token"`
	Payloads  []string `json:"payloads"`
}

func (s *Server) validateSignParams(params json.RawMessage) (string, [][]byte, error) {
	if !isJSONObject(params) {
		return "", nil, fmt.Errorf("params must be an object")
	}
	var wire signParamsWire
	if err := json.Unmarshal(params, &wire); err != nil {
		return "", nil, fmt.Errorf("invalid params: %w", err)
	}
	if wire.AuthToken == "" {
		return "", nil, fmt.Errorf("auth_token must be non-empty")
	}
	if len(wire.Payloads) == 0 {
		return "", nil, fmt.Errorf("payloads must be non-empty")
	}
	payloads, err := jsonpack.UnpackBytesStrings(wire.Payloads)
	if err != nil {
		return "", nil, fmt.Errorf("invalid payloads: %w", err)
	}
	for i, p := range payloads {
		if len(p) == 0 {
			return "", nil, fmt.Errorf("payloads[%d] must be non-empty", i)
		}
	}
	return wire.AuthToken, payloads, nil
}

func (s *Server) dispatchSign(id json.RawMessage, params json.RawMessage, reply *rpcendpoint.Reply, method string, handler SignHandler) {
	authToken, payloads, err := s.validateSignParams(params)
	if err != nil {
		reply.Err(protoerrors.CodeInvalidParams, err.Error(), nil)
		return
	}
	if handler == nil {
		reply.Err(protoerrors.CodeInternalError, "no handler installed for "+method, nil)
		return
	}
	req := &SignRequest{AuthToken: authToken, Payloads: payloads}
	future := rpcendpoint.NewRequestFuture(len(payloads), false, func(v rpcendpoint.Verdict) {
		s.endpoint.UnregisterFuture(id)
		s.finishReply(method, reply, len(payloads), v)
	})
	s.endpoint.RegisterFuture(id, future)
	handler(context.Background(), req, future)
}

type signAndSendParamsWire struct {
	signParamsWire
	Commitment string `json:"commitment"`
}

func (s *Server) dispatchSignAndSend(id json.RawMessage, params json.RawMessage, reply *rpcendpoint.Reply) {
	if !isJSONObject(params) {
		reply.Err(protoerrors.CodeInvalidParams, "params must be an object", nil)
		return
	}
	var wire signAndSendParamsWire
	if err := json.Unmarshal(params, &wire); err != nil {
		reply.Err(protoerrors.CodeInvalidParams, "invalid params: "+err.Error(), nil)
		return
	}
	commitment := CommitmentLevel(wire.Commitment)
	if !commitment.valid() {
		reply.Err(protoerrors.CodeInvalidParams, "commitment must be one of processed, confirmed, finalized", nil)
		return
	}
	authToken, payloads, err := s.validateSignParams(params)
	if err != nil {
		reply.Err(protoerrors.CodeInvalidParams, err.Error(), nil)
		return
	}
	if s.handlers.SignAndSendTransaction == nil {
		reply.Err(protoerrors.CodeInternalError, "no handler installed for "+MethodSignAndSendTransaction, nil)
		return
	}
	req := &SignAndSendRequest{SignRequest: SignRequest{AuthToken: authToken, Payloads: payloads}, Commitment: commitment}
	future := rpcendpoint.NewRequestFuture(len(payloads), true, func(v rpcendpoint.Verdict) {
		s.endpoint.UnregisterFuture(id)
		s.finishReply(MethodSignAndSendTransaction, reply, len(payloads), v)
	})
	s.endpoint.RegisterFuture(id, future)
	s.handlers.SignAndSendTransaction(context.Background(), req, future)
}

// finishReply translates a resolved RequestFuture verdict into the wire
// reply: success verdicts become results, everything else becomes the
// matching domain error.
func (s *Server) finishReply(method string, reply *rpcendpoint.Reply, payloadCount int, v rpcendpoint.Verdict) {
	switch v.Kind {
	case rpcendpoint.VerdictCancelled:
		return // transport is gone; nothing to write.
	case rpcendpoint.VerdictDecline:
		if method == MethodAuthorize {
			reply.Err(ErrAuthorizationFailed, nameAuthorizationFailed, nil)
		} else {
			reply.Err(ErrNotSigned, nameNotSigned, nil)
		}
	case rpcendpoint.VerdictReauthorizationRequired:
		reply.Err(ErrReauthorize, nameReauthorize, nil)
	case rpcendpoint.VerdictAuthTokenNotValid:
		reply.Err(ErrAuthorizationFailed, nameAuthorizationFailed, nil)
	case rpcendpoint.VerdictInvalidPayloads:
		reply.Err(ErrInvalidPayload, nameInvalidPayload, map[string]interface{}{
			"valid": jsonpack.PackBools(v.Valid),
		})
	case rpcendpoint.VerdictNotCommitted:
		reply.Err(ErrNotCommitted, nameNotCommitted, map[string]interface{}{
			"signatures": jsonpack.PackBytes(v.Signatures),
			"commitment": jsonpack.PackBools(v.Committed),
		})
	case rpcendpoint.VerdictSuccess:
		s.finishSuccess(method, reply, payloadCount, v.Result)
	default:
		s.log.Error("unknown verdict kind", zap.Int("kind", int(v.Kind)))
		reply.Err(protoerrors.CodeInternalError, "internal error", nil)
	}
}

func (s *Server) finishSuccess(method string, reply *rpcendpoint.Reply, payloadCount int, result interface{}) {
	switch method {
	case MethodAuthorize:
		res, ok := result.(*AuthorizeResult)
		if !ok {
			s.log.Error("authorize handler returned wrong result type")
			reply.Err(protoerrors.CodeInternalError, "internal error", nil)
			return
		}
		wire := map[string]interface{}{"auth_token": res.AuthToken, "public_key": res.PublicKey}
		if res.WalletURIBase != nil {
			wire["wallet_uri_base"] = *res.WalletURIBase
		}
		reply.Ok(wire)
	case MethodSignTransaction, MethodSignMessage:
		res, ok := result.(*SignResult)
		if !ok || len(res.SignedPayloads) != payloadCount {
			s.log.Error("sign handler returned wrong result shape")
			reply.Err(protoerrors.CodeInternalError, "internal error", nil)
			return
		}
		reply.Ok(map[string]interface{}{"signed_payloads": jsonpack.PackBytes(res.SignedPayloads)})
	case MethodSignAndSendTransaction:
		res, ok := result.(*SignAndSendResult)
		if !ok || len(res.Signatures) != payloadCount {
			s.log.Error("sign-and-send handler returned wrong result shape")
			reply.Err(protoerrors.CodeInternalError, "internal error", nil)
			return
		}
		reply.Ok(map[string]interface{}{"signatures": jsonpack.PackBytes(res.Signatures)})
	}
}

func isJSONObject(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	_, ok := v.(map[string]interface{})
	return ok
}
