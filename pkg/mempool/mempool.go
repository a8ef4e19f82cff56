// Package mempool defines the narrow interface the Prepare and Commit
// Engines use to evict transactions once they have been committed,
// rejected, or have aged out of the epoch window, plus an in-memory
// reference implementation. The mempool's own admission, gossip and
// prioritization logic is out of scope for this module.
package mempool

import (
	"sync"

	"github.com/certen/state-computer/pkg/types"
)

// Mempool is the eviction-facing interface consumed by the Prepare and
// Commit Engines.
type Mempool interface {
	RemoveRejected(ids []types.RejectedIdentifier)
	RemoveCommitted(intentHashes []types.IntentHash)
	RemoveExpired(epoch types.Epoch)
}

type entry struct {
	endEpoch types.Epoch
}

// InMemory is a reference Mempool: a mutex-guarded map keyed by intent
// hash, tracking each transaction's end-of-validity epoch for expiry.
type InMemory struct {
	mu      sync.Mutex
	entries map[types.IntentHash]entry
}

// NewInMemory creates an empty in-memory mempool.
func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[types.IntentHash]entry)}
}

// Add admits a transaction, recording when it stops being valid.
func (m *InMemory) Add(intentHash types.IntentHash, endEpoch types.Epoch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[intentHash] = entry{endEpoch: endEpoch}
}

func (m *InMemory) RemoveRejected(ids []types.RejectedIdentifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.entries, id.IntentHash)
	}
}

func (m *InMemory) RemoveCommitted(intentHashes []types.IntentHash) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range intentHashes {
		delete(m.entries, h)
	}
}

func (m *InMemory) RemoveExpired(epoch types.Epoch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.entries {
		if e.endEpoch <= epoch {
			delete(m.entries, k)
		}
	}
}

// Len reports the number of tracked transactions, for tests/metrics.
func (m *InMemory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
