package rpcendpoint

import (
	"sync"

	protoerrors "github.com/Dadudida-com/mobile-wallet-adapter/pkg/errors"
)

// VerdictKind tags which terminal state a RequestFuture resolved to.
type VerdictKind int

const (
	VerdictSuccess VerdictKind = iota
	VerdictDecline
	VerdictReauthorizationRequired
	VerdictAuthTokenNotValid
	VerdictInvalidPayloads
	VerdictNotCommitted
	VerdictCancelled
)

// Verdict is the tagged union a RequestFuture resolves to. Only the field
// matching Kind is meaningful.
type Verdict struct {
	Kind       VerdictKind
	Result     interface{}
	Valid      []bool
	Signatures [][]byte
	Committed  []bool
}

// RequestFuture is a one-shot awaitable for a single inbound request. It
// does not hold the request id itself; the endpoint tracks it by id
// through RegisterFuture. The UI/signer resolves it with exactly one of
// the Complete* methods; every method after the first is a no-op.
type RequestFuture struct {
	payloadCount int
	allowsSend   bool

	mu        sync.Mutex
	resolved  bool
	verdict   Verdict
	onResolve func(Verdict)
}

// NewRequestFuture constructs a future for a request carrying payloadCount
// items. allowsSend marks whether CompleteWithNotCommitted is legal for
// this request (sign-and-send only).
func NewRequestFuture(payloadCount int, allowsSend bool, onResolve func(Verdict)) *RequestFuture {
	return &RequestFuture{payloadCount: payloadCount, allowsSend: allowsSend, onResolve: onResolve}
}

func (f *RequestFuture) resolve(v Verdict) {
	f.mu.Lock()
	if f.resolved {
		f.mu.Unlock()
		return
	}
	f.resolved = true
	f.verdict = v
	cb := f.onResolve
	f.mu.Unlock()
	if cb != nil {
		cb(v)
	}
}

// cancel is invoked by Endpoint.Close for futures still pending when the
// transport is torn down.
func (f *RequestFuture) cancel() {
	f.resolve(Verdict{Kind: VerdictCancelled})
}

// IsResolved reports whether a terminal verdict has already been recorded.
func (f *RequestFuture) IsResolved() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolved
}

// Complete resolves the future with a success result. A nil success
// result is a programmer error, not a protocol outcome.
func (f *RequestFuture) Complete(result interface{}) error {
	if result == nil {
		return protoerrors.NewProgrammerError("RequestFuture.Complete", "success result must not be nil")
	}
	f.resolve(Verdict{Kind: VerdictSuccess, Result: result})
	return nil
}

// CompleteWithDecline resolves the future as a user-rejected request.
func (f *RequestFuture) CompleteWithDecline() {
	f.resolve(Verdict{Kind: VerdictDecline})
}

// CompleteWithReauthorizationRequired resolves the future signalling that
// the dapp must re-run authorize before retrying.
func (f *RequestFuture) CompleteWithReauthorizationRequired() {
	f.resolve(Verdict{Kind: VerdictReauthorizationRequired})
}

// CompleteWithAuthTokenNotValid resolves the future signalling that the
// presented auth token is not valid for this operation.
func (f *RequestFuture) CompleteWithAuthTokenNotValid() {
	f.resolve(Verdict{Kind: VerdictAuthTokenNotValid})
}

// CompleteWithInvalidPayloads resolves the future with a per-item validity
// vector. Its length must equal the request's payload count and at least
// one entry must be false; violations are programmer errors, never
// silently coerced.
func (f *RequestFuture) CompleteWithInvalidPayloads(valid []bool) error {
	if len(valid) != f.payloadCount {
		return protoerrors.NewProgrammerError("RequestFuture.CompleteWithInvalidPayloads",
			"valid has %d entries, want %d", len(valid), f.payloadCount)
	}
	if !containsFalse(valid) {
		return protoerrors.NewProgrammerError("RequestFuture.CompleteWithInvalidPayloads",
			"valid must contain at least one false entry")
	}
	f.resolve(Verdict{Kind: VerdictInvalidPayloads, Valid: valid})
	return nil
}

// CompleteWithNotCommitted resolves the future with per-item signatures
// and a commitment vector. Only legal for sign_and_send_transaction
// futures; both vectors must match the request's payload count and at
// least one commitment entry must be false.
func (f *RequestFuture) CompleteWithNotCommitted(signatures [][]byte, committed []bool) error {
	if !f.allowsSend {
		return protoerrors.NewProgrammerError("RequestFuture.CompleteWithNotCommitted",
			"not committed is only valid for sign_and_send_transaction")
	}
	if len(signatures) != f.payloadCount {
		return protoerrors.NewProgrammerError("RequestFuture.CompleteWithNotCommitted",
			"signatures has %d entries, want %d", len(signatures), f.payloadCount)
	}
	if len(committed) != f.payloadCount {
		return protoerrors.NewProgrammerError("RequestFuture.CompleteWithNotCommitted",
			"committed has %d entries, want %d", len(committed), f.payloadCount)
	}
	if !containsFalse(committed) {
		return protoerrors.NewProgrammerError("RequestFuture.CompleteWithNotCommitted",
			"committed must contain at least one false entry")
	}
	f.resolve(Verdict{Kind: VerdictNotCommitted, Signatures: signatures, Committed: committed})
	return nil
}

func containsFalse(bits []bool) bool {
	for _, b := range bits {
		if !b {
			return true
		}
	}
	return false
}
