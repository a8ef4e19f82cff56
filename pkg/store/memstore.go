package store

import (
	"sync"

	"github.com/certen/state-computer/pkg/ledgerhashes"
	"github.com/certen/state-computer/pkg/types"
)

// MemStore is an in-memory Store implementation used by this module's own
// tests, and suitable for single-process deployments that don't need
// durability. Production deployments should use KVStore.
type MemStore struct {
	mu sync.RWMutex

	transactions map[types.StateVersion]types.CommittedTransaction
	nodes        map[string]map[ledgerhashes.NodeKey]types.Hash32
	latestProof  *types.LedgerProof
	genesisProof *types.LedgerProof
	scenarios    map[uint32]types.ExecutedScenario
	topVersion   types.StateVersion
	topHash      types.Hash32
	hasTop       bool
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		transactions: make(map[types.StateVersion]types.CommittedTransaction),
		nodes:        make(map[string]map[ledgerhashes.NodeKey]types.Hash32),
		scenarios:    make(map[uint32]types.ExecutedScenario),
	}
}

func (m *MemStore) Snapshot() ReadView {
	m.mu.RLock()
	defer m.mu.RUnlock()
	txCopy := make(map[types.StateVersion]types.CommittedTransaction, len(m.transactions))
	for k, v := range m.transactions {
		txCopy[k] = v
	}
	nodeCopy := make(map[string]map[ledgerhashes.NodeKey]types.Hash32, len(m.nodes))
	for ns, nm := range m.nodes {
		inner := make(map[ledgerhashes.NodeKey]types.Hash32, len(nm))
		for k, v := range nm {
			inner[k] = v
		}
		nodeCopy[ns] = inner
	}
	return &memReadView{
		transactions: txCopy,
		nodes:        nodeCopy,
		topVersion:   m.topVersion,
		topHash:      m.topHash,
		hasTop:       m.hasTop,
	}
}

func (m *MemStore) GetLatestProof() (types.LedgerProof, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.latestProof == nil {
		return types.LedgerProof{}, false
	}
	return *m.latestProof, true
}

func (m *MemStore) GetPostGenesisEpochProof() (types.LedgerProof, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.genesisProof == nil {
		return types.LedgerProof{}, false
	}
	return *m.genesisProof, true
}

func (m *MemStore) GetTopTransactionIdentifiers() (types.StateVersion, types.TransactionHash, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.topVersion, m.topHash, m.hasTop
}

func (m *MemStore) PutScenario(seq uint32, scenario types.ExecutedScenario) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scenarios[seq] = scenario
	return nil
}

func (m *MemStore) Commit(bundle CommitBundle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ct := range bundle.Transactions {
		m.transactions[ct.StateVersion] = ct
		m.topVersion = ct.StateVersion
		m.topHash = ct.Transaction.LedgerHash
		m.hasTop = true
	}
	for _, diff := range bundle.TreeDiffs {
		if _, ok := m.nodes[diff.Namespace]; !ok {
			m.nodes[diff.Namespace] = make(map[ledgerhashes.NodeKey]types.Hash32)
		}
		for k, v := range diff.NewNodes {
			m.nodes[diff.Namespace][k] = v
		}
	}

	proof := bundle.Proof
	m.latestProof = &proof
	if m.genesisProof == nil && proof.AtStateVersion != 0 {
		m.genesisProof = &proof
	}
	if bundle.Scenario != nil {
		m.scenarios[bundle.Scenario.Seq] = bundle.Scenario.Scenario
	}
	return nil
}

type memReadView struct {
	transactions map[types.StateVersion]types.CommittedTransaction
	nodes        map[string]map[ledgerhashes.NodeKey]types.Hash32
	topVersion   types.StateVersion
	topHash      types.Hash32
	hasTop       bool
}

func (r *memReadView) GetTreeNode(namespace string, k ledgerhashes.NodeKey) (types.Hash32, bool) {
	nm, ok := r.nodes[namespace]
	if !ok {
		return types.Hash32{}, false
	}
	h, ok := nm[k]
	return h, ok
}

func (r *memReadView) GetTransactionAtVersion(v types.StateVersion) (types.CommittedTransaction, bool) {
	ct, ok := r.transactions[v]
	return ct, ok
}

func (r *memReadView) GetTopTransactionIdentifiers() (types.StateVersion, types.TransactionHash, bool) {
	return r.topVersion, r.topHash, r.hasTop
}
