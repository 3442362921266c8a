// Package biometric describes the local-authentication capability used to
// gate session creation. Platform hardware is an external collaborator; this
// package only fixes the contract and the caching of capability queries.
package biometric

import (
	"context"
	"strings"
	"sync"
)

// AuthKind is a kind of local authentication the device offers.
type AuthKind int

const (
	Fingerprint AuthKind = iota + 1
	FacialRecognition
	Iris
	Passcode
)

func (k AuthKind) String() string {
	switch k {
	case Fingerprint:
		return "fingerprint"
	case FacialRecognition:
		return "facial_recognition"
	case Iris:
		return "iris"
	case Passcode:
		return "passcode"
	}
	return "unknown"
}

// Capabilities is the result of a side-effect-free hardware query.
type Capabilities struct {
	HasHardware bool
	IsEnrolled  bool
	Kinds       []AuthKind
}

// Usable reports whether a challenge can actually be presented. When false
// callers fall back to device-level trust and skip the challenge.
func (c Capabilities) Usable() bool {
	return c.HasHardware && c.IsEnrolled
}

func (c Capabilities) String() string {
	kinds := make([]string, len(c.Kinds))
	for i, k := range c.Kinds {
		kinds[i] = k.String()
	}
	return strings.Join(kinds, ",")
}

// Gate queries capability and presents authentication challenges.
type Gate interface {
	Capabilities(ctx context.Context) (Capabilities, error)
	// Challenge returns true only on a successful match and false when the
	// user cancels (including context cancellation). Hardware or API
	// failures are returned as errors.
	Challenge(ctx context.Context, prompt string) (bool, error)
}

// Cached wraps g so the hardware is queried once. Failed queries are not cached.
func Cached(g Gate) Gate {
	return &cachedGate{Gate: g}
}

type cachedGate struct {
	Gate
	mu     sync.Mutex
	caps   Capabilities
	loaded bool
}

func (c *cachedGate) Capabilities(ctx context.Context) (Capabilities, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return c.caps, nil
	}
	caps, err := c.Gate.Capabilities(ctx)
	if err != nil {
		return Capabilities{}, err
	}
	c.caps, c.loaded = caps, true
	return caps, nil
}
