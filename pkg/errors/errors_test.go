package errors

import (
	"errors"
	"testing"
)

func TestProgrammerErrorMessage(t *testing.T) {
	err := NewProgrammerError("CompleteWithInvalidPayloads", "expected %d entries, got %d", 2, 1)
	if err.Op != "CompleteWithInvalidPayloads" {
		t.Errorf("Expected op %q, got %q", "CompleteWithInvalidPayloads", err.Op)
	}
	want := "programmer error in CompleteWithInvalidPayloads: expected 2 entries, got 1"
	if err.Error() != want {
		t.Errorf("Expected message %q, got %q", want, err.Error())
	}
}

func TestProtocolErrorWithDetails(t *testing.T) {
	err := NewProtocolError(CodeInvalidParams, "invalid params").WithDetails("payloads is empty")
	if err.Code != CodeInvalidParams {
		t.Errorf("Expected code %d, got %d", CodeInvalidParams, err.Code)
	}
	want := "invalid params: payloads is empty"
	if err.Error() != want {
		t.Errorf("Expected message %q, got %q", want, err.Error())
	}
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("boom")
	err := Wrap(originalErr, CodeInternalError, "internal error")
	if err.Code != CodeInternalError {
		t.Errorf("Expected code %d, got %d", CodeInternalError, err.Code)
	}
	if err.Details != "boom" {
		t.Errorf("Expected details %q, got %q", "boom", err.Details)
	}
}

func TestStandardBuilders(t *testing.T) {
	cases := []struct {
		name string
		err  *ProtocolError
		code int
	}{
		{"parse", ParseError(errors.New("bad json")), CodeParseError},
		{"invalid-request", InvalidRequest("missing jsonrpc field"), CodeInvalidRequest},
		{"method-not-found", MethodNotFound("sign_transaction_v2"), CodeMethodNotFound},
		{"invalid-params", InvalidParams("payloads is empty"), CodeInvalidParams},
		{"internal", Internal("handler panicked"), CodeInternalError},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if c.err.Code != c.code {
				t.Errorf("Expected code %d, got %d", c.code, c.err.Code)
			}
		})
	}
}
