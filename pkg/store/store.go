// Package store defines the persistent ledger store interface the state
// computer consumes, and a concrete implementation backed by
// github.com/cometbft/cometbft-db. The storage engine's own internals
// (compaction, WAL, snapshotting strategy) are out of scope; this
// package only needs a byte-oriented KV engine with a big-endian,
// state-version-prefixed key layout, the same idiom this module's
// teacher codebase uses for its own ledger store.
package store

import (
	"github.com/certen/state-computer/pkg/ledgerhashes"
	"github.com/certen/state-computer/pkg/types"
)

// CommitBundle is everything the Commit Engine hands to Store.Commit in
// one atomic write: the newly committed transactions, the proof that
// agreed them, and the accumulator node diffs produced while folding
// them.
type CommitBundle struct {
	Transactions  []types.CommittedTransaction
	Proof         types.LedgerProof
	TreeDiffs     []ledgerhashes.TreeDiff
	Scenario      *types.ExecutedScenarioRef
}

// Store is the persistent ledger store interface. Implementations must
// make Commit atomic: either every transaction, the proof and every tree
// diff land, or none of them do.
type Store interface {
	// Snapshot returns the ReadView the Prepare Engine replays
	// ancestors on top of. MemStore's view is a point-in-time copy;
	// KVStore's view reads the live database, so a commit that lands
	// after the call is visible through it.
	Snapshot() ReadView

	// GetLatestProof returns the proof most recently committed, if
	// any.
	GetLatestProof() (types.LedgerProof, bool)

	// GetPostGenesisEpochProof returns the first proof ever committed
	// with a non-zero state version, used to detect "store already
	// initialized" at genesis time.
	GetPostGenesisEpochProof() (types.LedgerProof, bool)

	// GetTopTransactionIdentifiers returns the state version and
	// ledger transaction hash of the most recently committed
	// transaction.
	GetTopTransactionIdentifiers() (types.StateVersion, types.TransactionHash, bool)

	// PutScenario records the outcome of an executed test scenario,
	// keyed by its sequence number within the genesis run.
	PutScenario(seq uint32, scenario types.ExecutedScenario) error

	// Commit atomically persists bundle.
	Commit(bundle CommitBundle) error
}

// ReadView is a read-only, point-in-time view of the store, handed to
// the Prepare Engine and to the ledger hashes accumulator's commit-time
// fallback.
type ReadView interface {
	ledgerhashes.TreeNodeReader

	GetTransactionAtVersion(v types.StateVersion) (types.CommittedTransaction, bool)
	GetTopTransactionIdentifiers() (types.StateVersion, types.TransactionHash, bool)
}
