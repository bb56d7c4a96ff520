// Package jsonrpc implements strict JSON-RPC 2.0 frame parsing and
// serialization. It knows nothing about MWA's methods or domain error
// codes (those live in pkg/mwa), only about the envelope.
package jsonrpc

import (
	"encoding/json"
	"fmt"

	"github.com/Dadudida-com/mobile-wallet-adapter/pkg/errors"
)

// Version is the only accepted jsonrpc field value.
const Version = "2.0"

// Request is an inbound or outbound JSON-RPC 2.0 request frame. ID is kept
// as json.RawMessage so it can round-trip a number or a string without the
// codec caring which.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response frame. Exactly one of Result/Error
// is set on any well-formed response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// ErrorObject is the JSON-RPC 2.0 error shape: a numeric code, a message,
// and optional structured data (MWA's domain errors use Data to carry
// per-item validity/commitment vectors).
type ErrorObject struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *ErrorObject) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// DecodeRequest parses a single frame as a request. It rejects any frame
// whose jsonrpc field is not exactly "2.0" with a ProtocolError.
func DecodeRequest(frame []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(frame, &req); err != nil {
		return nil, errors.ParseError(err)
	}
	if req.JSONRPC != Version {
		return nil, errors.InvalidRequest(fmt.Sprintf("jsonrpc field must be %q, got %q", Version, req.JSONRPC))
	}
	if req.Method == "" {
		return nil, errors.InvalidRequest("method is required")
	}
	return &req, nil
}

// DecodeResponse parses a single frame as a response.
func DecodeResponse(frame []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(frame, &resp); err != nil {
		return nil, errors.ParseError(err)
	}
	if resp.JSONRPC != Version {
		return nil, errors.InvalidRequest(fmt.Sprintf("jsonrpc field must be %q, got %q", Version, resp.JSONRPC))
	}
	if resp.Result != nil && resp.Error != nil {
		return nil, errors.InvalidRequest("response carries both result and error")
	}
	return &resp, nil
}

// EncodeRequest serializes a method call with the given id and params.
func EncodeRequest(id json.RawMessage, method string, params interface{}) ([]byte, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Request{JSONRPC: Version, ID: id, Method: method, Params: raw})
}

// EncodeResult serializes a successful response.
func EncodeResult(id json.RawMessage, result interface{}) ([]byte, error) {
	raw, err := marshalParams(result)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Response{JSONRPC: Version, ID: id, Result: raw})
}

// EncodeError serializes an error response.
func EncodeError(id json.RawMessage, code int, message string, data interface{}) ([]byte, error) {
	raw, err := marshalParams(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Response{JSONRPC: Version, ID: id, Error: &ErrorObject{Code: code, Message: message, Data: raw}})
}

func marshalParams(v interface{}) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternalError, "failed to marshal frame payload")
	}
	return raw, nil
}
