package mwa

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Dadudida-com/mobile-wallet-adapter/pkg/jsonpack"
	"github.com/Dadudida-com/mobile-wallet-adapter/pkg/rpcendpoint"
)

// Client is the dapp-side invoker for the four MWA methods. It wraps an
// Endpoint's Call and collapses every failure mode into *ClientError.
type Client struct {
	endpoint *rpcendpoint.Endpoint
	timeout  time.Duration
}

// NewClient builds a Client bound to endpoint. timeout is forwarded to
// every Call as the per-method deadline; zero uses the endpoint's default.
func NewClient(endpoint *rpcendpoint.Endpoint, timeout time.Duration) *Client {
	return &Client{endpoint: endpoint, timeout: timeout}
}

func (c *Client) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	result, err := c.endpoint.Call(ctx, method, params, c.timeout)
	if err == nil {
		return result, nil
	}

	if remote, ok := err.(*rpcendpoint.RemoteError); ok {
		return nil, c.translateRemoteError(method, remote)
	}
	switch err {
	case rpcendpoint.ErrTimeout:
		return nil, &ClientError{Kind: Timeout, Cause: err}
	case rpcendpoint.ErrCancelled:
		return nil, &ClientError{Kind: Cancelled, Cause: err}
	}
	if ctx.Err() != nil {
		return nil, &ClientError{Kind: Cancelled, Cause: err}
	}
	return nil, &ClientError{Kind: Transport, Cause: err}
}

func (c *Client) translateRemoteError(method string, remote *rpcendpoint.RemoteError) *ClientError {
	switch remote.Code {
	case ErrAuthorizationFailed:
		return &ClientError{Kind: AuthorizationFailed, Code: remote.Code, Message: remote.Message, Data: remote.Data}
	case ErrReauthorize:
		return &ClientError{Kind: ReauthorizationRequired, Code: remote.Code, Message: remote.Message, Data: remote.Data}
	case ErrNotSigned:
		return &ClientError{Kind: Declined, Code: remote.Code, Message: remote.Message, Data: remote.Data}
	case ErrInvalidPayload:
		var payload struct {
			Valid []bool `json:"valid"`
		}
		if err := json.Unmarshal(remote.Data, &payload); err != nil {
			return &ClientError{Kind: InvalidResponse, Cause: err}
		}
		return &ClientError{Kind: InvalidPayload, Valid: payload.Valid, Code: remote.Code, Message: remote.Message, Data: remote.Data}
	case ErrNotCommitted:
		var payload struct {
			Signatures []string `json:"signatures"`
			Commitment []bool   `json:"commitment"`
		}
		if err := json.Unmarshal(remote.Data, &payload); err != nil {
			return &ClientError{Kind: InvalidResponse, Cause: err}
		}
		sigs, err := jsonpack.UnpackBytesStrings(payload.Signatures)
		if err != nil {
			return &ClientError{Kind: InvalidResponse, Cause: err}
		}
		return &ClientError{Kind: NotCommitted, Signatures: sigs, Commitment: payload.Commitment, Code: remote.Code, Message: remote.Message, Data: remote.Data}
	default:
		return &ClientError{Kind: RemoteErr, Code: remote.Code, Message: remote.Message, Data: remote.Data}
	}
}

// Authorize requests authorization for the given identity and privileged
// method set.
func (c *Client) Authorize(ctx context.Context, identity *Identity, privilegedMethods []string) (*AuthorizeResult, error) {
	if len(privilegedMethods) == 0 {
		return nil, &ClientError{Kind: InvalidResponse, Cause: fmt.Errorf("mwa: privileged_methods must be non-empty")}
	}
	if identity != nil {
		if err := identity.Validate(); err != nil {
			return nil, &ClientError{Kind: InvalidResponse, Cause: err}
		}
	}

	wire := map[string]interface{}{"privileged_methods": privilegedMethods}
	if identity != nil {
		idWire := map[string]interface{}{}
		if identity.URI != nil {
			idWire["uri"] = *identity.URI
		}
		if identity.Icon != nil {
			idWire["icon"] = *identity.Icon
		}
		if identity.Name != nil {
			idWire["name"] = *identity.Name
		}
		wire["identity"] = idWire
	}

	raw, err := c.call(ctx, MethodAuthorize, wire)
	if err != nil {
		return nil, err
	}
	var decoded struct {
		AuthToken     string  `json:"auth_token"`
		PublicKey     string  `json:"public_key"`
		WalletURIBase *string `json:"wallet_uri_base,omitempty"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &ClientError{Kind: InvalidResponse, Cause: err}
	}
	return &AuthorizeResult{AuthToken: decoded.AuthToken, PublicKey: decoded.PublicKey, WalletURIBase: decoded.WalletURIBase}, nil
}

func (c *Client) signCall(ctx context.Context, method, authToken string, payloads [][]byte) (*SignResult, error) {
	if authToken == "" {
		return nil, &ClientError{Kind: InvalidResponse, Cause: fmt.Errorf("mwa: auth_token must be non-empty")}
	}
	if len(payloads) == 0 {
		return nil, &ClientError{Kind: InvalidResponse, Cause: fmt.Errorf("mwa: payloads must be non-empty")}
	}

	wire := map[string]interface{}{"auth_token": authToken, "payloads": jsonpack.PackBytes(payloads)}
	raw, err := c.call(ctx, method, wire)
	if err != nil {
		return nil, err
	}
	var decoded struct {
		SignedPayloads []string `json:"signed_payloads"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &ClientError{Kind: InvalidResponse, Cause: err}
	}
	signed, err := jsonpack.UnpackBytesStrings(decoded.SignedPayloads)
	if err != nil {
		return nil, &ClientError{Kind: InvalidResponse, Cause: err}
	}
	if len(signed) != len(payloads) {
		return nil, &ClientError{Kind: InvalidResponse, Cause: fmt.Errorf("mwa: signed_payloads length mismatch")}
	}
	return &SignResult{SignedPayloads: signed}, nil
}

// SignTransaction requests signatures for one or more serialized
// transactions under authToken.
func (c *Client) SignTransaction(ctx context.Context, authToken string, payloads [][]byte) (*SignResult, error) {
	return c.signCall(ctx, MethodSignTransaction, authToken, payloads)
}

// SignMessage requests signatures for one or more arbitrary messages under
// authToken.
func (c *Client) SignMessage(ctx context.Context, authToken string, payloads [][]byte) (*SignResult, error) {
	return c.signCall(ctx, MethodSignMessage, authToken, payloads)
}

// SignAndSendTransaction requests the wallet sign and submit one or more
// serialized transactions at the given commitment level.
func (c *Client) SignAndSendTransaction(ctx context.Context, authToken string, payloads [][]byte, commitment CommitmentLevel) (*SignAndSendResult, error) {
	if authToken == "" {
		return nil, &ClientError{Kind: InvalidResponse, Cause: fmt.Errorf("mwa: auth_token must be non-empty")}
	}
	if len(payloads) == 0 {
		return nil, &ClientError{Kind: InvalidResponse, Cause: fmt.Errorf("mwa: payloads must be non-empty")}
	}
	if !commitment.valid() {
		return nil, &ClientError{Kind: InvalidResponse, Cause: fmt.Errorf("mwa: invalid commitment level %q", commitment)}
	}

	wire := map[string]interface{}{
		"auth_token": authToken,
		"payloads":   jsonpack.PackBytes(payloads),
		"commitment": string(commitment),
	}
	raw, err := c.call(ctx, MethodSignAndSendTransaction, wire)
	if err != nil {
		return nil, err
	}
	var decoded struct {
		Signatures []string `json:"signatures"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &ClientError{Kind: InvalidResponse, Cause: err}
	}
	sigs, err := jsonpack.UnpackBytesStrings(decoded.Signatures)
	if err != nil {
		return nil, &ClientError{Kind: InvalidResponse, Cause: err}
	}
	if len(sigs) != len(payloads) {
		return nil, &ClientError{Kind: InvalidResponse, Cause: fmt.Errorf("mwa: signatures length mismatch")}
	}
	return &SignAndSendResult{Signatures: sigs}, nil
}
