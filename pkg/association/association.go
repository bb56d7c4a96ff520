// Package association parses Mobile Wallet Adapter handoff URIs, the
// out-of-band bootstrap step a dapp uses to hand a wallet the association
// token it needs to open a scenario. This package only classifies and
// extracts: it never opens a transport.
package association

import (
	"fmt"
	"net/url"

	"github.com/Dadudida-com/mobile-wallet-adapter/pkg/mwa"
	"github.com/google/uuid"
)

// Kind tags which scenario variant an Association URI bootstraps.
type Kind int

const (
	// Local associations loop back to a wallet on the same device.
	Local Kind = iota
	// Remote associations are relayed through an intermediary.
	Remote
)

func (k Kind) String() string {
	switch k {
	case Local:
		return "local"
	case Remote:
		return "remote"
	default:
		return "unknown"
	}
}

// localSchemes and remoteSchemes fix the scheme constants that distinguish
// the two subtypes.
var (
	localSchemes  = map[string]bool{"solana-wallet": true, "mwa": true}
	remoteSchemes = map[string]bool{"mwa-remote": true, "https": true}
)

// ScenarioCallbacks are the lifecycle hooks a scenario reports back to its
// creator. OnLowPowerNoConnection is vestigial in the original system and
// kept out of the core protocol; it is forwarded here for completeness
// only, never called by this package or by pkg/mwa.
type ScenarioCallbacks struct {
	OnLowPowerNoConnection func()
}

// ScenarioFactory builds a concrete transport/session binding for an
// Association, dispatching to the given per-method handlers once the
// transport is up. It is supplied by the caller; this package never
// invokes it.
type ScenarioFactory func(callbacks ScenarioCallbacks, handlers mwa.Handlers) error

// Association is the parsed, validated result of Parse.
type Association struct {
	Kind          Kind
	Token         string
	RawURI        *url.URL
	CorrelationID string

	// CreateScenario is populated by the caller after Parse returns; this
	// package does not know how to build a transport for either variant.
	CreateScenario ScenarioFactory
}

// ErrNotAnAssociationURI is returned by Parse when uri is not a
// well-formed association handoff URI of either known variant.
var ErrNotAnAssociationURI = fmt.Errorf("association: not a valid association uri")

// Parse classifies raw as a local or remote association URI, validates it
// is hierarchical, and extracts a non-empty association token.
func Parse(raw string) (*Association, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("association: %w", err)
	}
	if u.Opaque != "" || u.Host == "" {
		return nil, ErrNotAnAssociationURI
	}

	token := u.Query().Get("association")
	if token == "" {
		return nil, fmt.Errorf("association: missing or empty association token")
	}

	var kind Kind
	switch {
	case localSchemes[u.Scheme]:
		kind = Local
	case remoteSchemes[u.Scheme]:
		kind = Remote
	default:
		return nil, ErrNotAnAssociationURI
	}

	return &Association{
		Kind:          kind,
		Token:         token,
		RawURI:        u,
		CorrelationID: uuid.NewString(),
	}, nil
}
