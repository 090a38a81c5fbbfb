package authstate

import (
	"time"
)

// TTL is how long an issued OAuth state stays valid. The provider's consent
// screen round-trip happens within minutes; anything older is a replay.
const TTL = 15 * time.Minute

// State is one pending OAuth handshake: which account asked for the consent
// screen and when.
type State struct {
	Subdomain string `json:"subdomain"`
	TS        int64  `json:"ts"`
}

// Store maps opaque state strings to pending handshakes. Get returns
// (nil, nil) for unknown or expired states; errors are reserved for storage
// failures. Purge drops every expired entry.
type Store interface {
	Put(state, subdomain string) error
	Get(state string) (*State, error)
	Purge() error
}
