// Package mwa implements the Mobile Wallet Adapter method dispatcher
// (wallet side) and invoker (dapp side): the typed request/result/error
// algebra for authorize, sign_transaction, sign_message, and
// sign_and_send_transaction.
package mwa

import (
	"fmt"
	"net/url"
)

// Method names as they appear on the wire.
const (
	MethodAuthorize              = "authorize"
	MethodSignTransaction        = "sign_transaction"
	MethodSignMessage            = "sign_message"
	MethodSignAndSendTransaction = "sign_and_send_transaction"
)

// PrivilegedMethods is the set of symbolic names a dapp may request at
// authorize time. Unknown names are rejected before the handler sees the
// request.
var PrivilegedMethods = map[string]bool{
	MethodSignTransaction:        true,
	MethodSignMessage:            true,
	MethodSignAndSendTransaction: true,
}

// CommitmentLevel is the blockchain finality target for
// sign_and_send_transaction.
type CommitmentLevel string

const (
	CommitmentProcessed CommitmentLevel = "processed"
	CommitmentConfirmed CommitmentLevel = "confirmed"
	CommitmentFinalized CommitmentLevel = "finalized"
)

func (c CommitmentLevel) valid() bool {
	switch c {
	case CommitmentProcessed, CommitmentConfirmed, CommitmentFinalized:
		return true
	default:
		return false
	}
}

// Identity is the optional dapp identity presented at authorize time.
type Identity struct {
	URI  *string
	Icon *string
	Name *string
}

// Validate checks the identity invariants: URI absolute and hierarchical,
// Icon relative and resolvable against URI, Name non-empty when present.
func (i *Identity) Validate() error {
	if i == nil {
		return nil
	}
	var base *url.URL
	if i.URI != nil {
		u, err := url.Parse(*i.URI)
		if err != nil {
			return fmt.Errorf("identity.uri is not a valid URI: %w", err)
		}
		if !u.IsAbs() {
			return fmt.Errorf("identity.uri must be absolute")
		}
		if u.Opaque != "" {
			return fmt.Errorf("identity.uri must be hierarchical")
		}
		base = u
	}
	if i.Icon != nil {
		icon, err := url.Parse(*i.Icon)
		if err != nil {
			return fmt.Errorf("identity.icon is not a valid URI: %w", err)
		}
		if icon.IsAbs() {
			return fmt.Errorf("identity.icon must be relative")
		}
		if base == nil {
			return fmt.Errorf("identity.icon requires identity.uri to resolve against")
		}
		resolved := base.ResolveReference(icon)
		if !resolved.IsAbs() || resolved.Host == "" {
			return fmt.Errorf("identity.icon does not resolve to an absolute URI against identity.uri")
		}
	}
	if i.Name != nil && *i.Name == "" {
		return fmt.Errorf("identity.name must be non-empty when present")
	}
	return nil
}

// AuthorizeRequest is the typed request for the authorize method.
type AuthorizeRequest struct {
	Identity          *Identity
	PrivilegedMethods []string
}

// AuthorizeResult is the typed success result for authorize.
type AuthorizeResult struct {
	AuthToken     string
	PublicKey     string
	WalletURIBase *string
}

// SignRequest is the typed request shared by sign_transaction and
// sign_message.
type SignRequest struct {
	AuthToken string
	Payloads  [][]byte
}

// SignAndSendRequest extends SignRequest with the commitment level
// required by sign_and_send_transaction.
type SignAndSendRequest struct {
	SignRequest
	Commitment CommitmentLevel
}

// SignResult is the typed success result for sign_transaction and
// sign_message.
type SignResult struct {
	SignedPayloads [][]byte
}

// SignAndSendResult is the typed success result for
// sign_and_send_transaction.
type SignAndSendResult struct {
	Signatures [][]byte
}
