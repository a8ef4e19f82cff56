package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/certen/state-computer/pkg/ledgerhashes"
	"github.com/certen/state-computer/pkg/types"
)

// Key namespace prefixes. Mirrors the teacher codebase's big-endian,
// height-suffixed key layout (there: systemBlockKey(height); here:
// transactionKey(version), treeNodeKey(namespace, height, index)).
var (
	prefixTransaction = []byte{0x01}
	prefixLatestProof = []byte{0x02}
	prefixGenesisProof = []byte{0x03}
	prefixTreeNode    = []byte{0x04}
	prefixScenario    = []byte{0x05}
)

func transactionKey(v types.StateVersion) []byte {
	key := make([]byte, len(prefixTransaction)+8)
	copy(key, prefixTransaction)
	binary.BigEndian.PutUint64(key[len(prefixTransaction):], uint64(v))
	return key
}

func treeNodeKey(namespace string, k ledgerhashes.NodeKey) []byte {
	key := make([]byte, 0, len(prefixTreeNode)+len(namespace)+1+12)
	key = append(key, prefixTreeNode...)
	key = append(key, []byte(namespace)...)
	key = append(key, 0x00)
	heightIndex := make([]byte, 12)
	binary.BigEndian.PutUint32(heightIndex[:4], k.Height)
	binary.BigEndian.PutUint64(heightIndex[4:], k.Index)
	return append(key, heightIndex...)
}

func scenarioKey(seq uint32) []byte {
	key := make([]byte, len(prefixScenario)+4)
	copy(key, prefixScenario)
	binary.BigEndian.PutUint32(key[len(prefixScenario):], seq)
	return key
}

// KVStore is the persistent Store implementation, backed by any
// cometbft-db DB engine (goleveldb, memdb, badgerdb, ...). CONCURRENCY:
// like the teacher codebase's LedgerStore, KVStore assumes Commit is
// called from a single writer (the Commit Engine / Genesis Driver) while
// Snapshot readers may run concurrently with it.
type KVStore struct {
	mu sync.RWMutex
	db dbm.DB
}

// NewKVStore wraps db as a Store.
func NewKVStore(db dbm.DB) *KVStore {
	return &KVStore{db: db}
}

// Snapshot returns a view that reads the underlying db directly. It is
// not a point-in-time view: a commit that lands after Snapshot returns
// is visible through it.
func (s *KVStore) Snapshot() ReadView {
	return &readView{db: s.db}
}

func (s *KVStore) GetLatestProof() (types.LedgerProof, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, err := s.db.Get(prefixLatestProof)
	if err != nil || raw == nil {
		return types.LedgerProof{}, false
	}
	var p types.LedgerProof
	if err := json.Unmarshal(raw, &p); err != nil {
		return types.LedgerProof{}, false
	}
	return p, true
}

func (s *KVStore) GetPostGenesisEpochProof() (types.LedgerProof, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, err := s.db.Get(prefixGenesisProof)
	if err != nil || raw == nil {
		return types.LedgerProof{}, false
	}
	var p types.LedgerProof
	if err := json.Unmarshal(raw, &p); err != nil {
		return types.LedgerProof{}, false
	}
	return p, true
}

func (s *KVStore) GetTopTransactionIdentifiers() (types.StateVersion, types.TransactionHash, bool) {
	return (&readView{db: s.db}).GetTopTransactionIdentifiers()
}

func (s *KVStore) PutScenario(seq uint32, scenario types.ExecutedScenario) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.Marshal(scenario)
	if err != nil {
		return fmt.Errorf("store: marshal scenario: %w", err)
	}
	return s.db.Set(scenarioKey(seq), raw)
}

// Commit persists bundle atomically using the underlying engine's batch
// primitive.
func (s *KVStore) Commit(bundle CommitBundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.db.NewBatch()
	defer batch.Close()

	for _, ct := range bundle.Transactions {
		raw, err := json.Marshal(ct)
		if err != nil {
			return fmt.Errorf("store: marshal committed transaction at version %d: %w", ct.StateVersion, err)
		}
		if err := batch.Set(transactionKey(ct.StateVersion), raw); err != nil {
			return fmt.Errorf("store: batch set transaction: %w", err)
		}
	}

	for _, diff := range bundle.TreeDiffs {
		for k, hash := range diff.NewNodes {
			if err := batch.Set(treeNodeKey(diff.Namespace, k), hash[:]); err != nil {
				return fmt.Errorf("store: batch set tree node: %w", err)
			}
		}
	}

	proofRaw, err := json.Marshal(bundle.Proof)
	if err != nil {
		return fmt.Errorf("store: marshal proof: %w", err)
	}
	if err := batch.Set(prefixLatestProof, proofRaw); err != nil {
		return fmt.Errorf("store: batch set latest proof: %w", err)
	}
	if bundle.Proof.AtStateVersion != 0 {
		if _, ok := s.getLatestProofLocked(); !ok {
			if err := batch.Set(prefixGenesisProof, proofRaw); err != nil {
				return fmt.Errorf("store: batch set genesis proof: %w", err)
			}
		}
	}

	if bundle.Scenario != nil {
		raw, err := json.Marshal(bundle.Scenario.Scenario)
		if err != nil {
			return fmt.Errorf("store: marshal scenario: %w", err)
		}
		if err := batch.Set(scenarioKey(bundle.Scenario.Seq), raw); err != nil {
			return fmt.Errorf("store: batch set scenario: %w", err)
		}
	}

	return batch.WriteSync()
}

func (s *KVStore) getLatestProofLocked() (types.LedgerProof, bool) {
	raw, err := s.db.Get(prefixLatestProof)
	if err != nil || raw == nil {
		return types.LedgerProof{}, false
	}
	var p types.LedgerProof
	if err := json.Unmarshal(raw, &p); err != nil {
		return types.LedgerProof{}, false
	}
	return p, true
}

// readView is the concrete ReadView handed out by Snapshot. cometbft-db
// engines that support true iterator snapshots (goleveldb) could wire one
// in here; absent that, reads simply go straight to db, which is safe
// because KVStore's single-writer discipline means no write races a
// concurrent read within the same commit.
type readView struct {
	db dbm.DB
}

func (r *readView) GetTreeNode(namespace string, k ledgerhashes.NodeKey) (types.Hash32, bool) {
	raw, err := r.db.Get(treeNodeKey(namespace, k))
	if err != nil || raw == nil || len(raw) != 32 {
		return types.Hash32{}, false
	}
	var h types.Hash32
	copy(h[:], raw)
	return h, true
}

func (r *readView) GetTransactionAtVersion(v types.StateVersion) (types.CommittedTransaction, bool) {
	raw, err := r.db.Get(transactionKey(v))
	if err != nil || raw == nil {
		return types.CommittedTransaction{}, false
	}
	var ct types.CommittedTransaction
	if err := json.Unmarshal(raw, &ct); err != nil {
		return types.CommittedTransaction{}, false
	}
	return ct, true
}

func (r *readView) GetTopTransactionIdentifiers() (types.StateVersion, types.TransactionHash, bool) {
	it, err := r.db.ReverseIterator(prefixTransaction, prefixBound(prefixTransaction))
	if err != nil {
		return 0, types.Hash32{}, false
	}
	defer it.Close()
	if !it.Valid() {
		return 0, types.Hash32{}, false
	}
	var ct types.CommittedTransaction
	if err := json.Unmarshal(it.Value(), &ct); err != nil {
		return 0, types.Hash32{}, false
	}
	return ct.StateVersion, ct.Transaction.LedgerHash, true
}

// prefixBound returns the exclusive upper bound for an iterator ranging
// over all keys sharing prefix, by incrementing its last byte.
func prefixBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	for i := len(bound) - 1; i >= 0; i-- {
		bound[i]++
		if bound[i] != 0 {
			return bound
		}
	}
	return nil
}
