// Package protocolstate guards the process-wide record of which
// protocol version is currently enacted. It is written exactly once per
// commit that enacts a protocol-version change, and read far more
// often, hence the RWMutex — mirrors the teacher codebase's convention
// of a plain sync.RWMutex field rather than a dedicated lock-manager
// type.
package protocolstate

import (
	"sync"

	"github.com/certen/state-computer/pkg/types"
)

// State is the current protocol version plus the state version at which
// it was enacted.
type State struct {
	Version       types.ProtocolVersion
	EnactedAt     types.StateVersion
}

// Guard holds the current State behind a RWMutex.
type Guard struct {
	mu    sync.RWMutex
	state State
}

// New creates a Guard initialized to the given starting state (typically
// the genesis protocol version at state version 0).
func New(initial State) *Guard {
	return &Guard{state: initial}
}

// Current returns the currently enacted protocol state.
func (g *Guard) Current() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Enact swaps in a new protocol version. Callers must only call this at
// the end of a protocol-version-enacting commit, after every other side
// effect of that commit has been published, so that no reader ever
// observes the new version before the commit it came from is durable.
func (g *Guard) Enact(next State) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = next
}
