// Package types holds the data model shared by every component of the
// state computer: state versions, ledger hashes, transactions in their
// various stages of trust, receipts and the requests/results exchanged
// with the consensus layer.
package types

import "fmt"

// StateVersion identifies a committed ledger prefix. Zero is the
// pre-genesis sentinel; every commit increases it by exactly the number
// of transactions it applies.
type StateVersion uint64

// PreGenesisStateVersion is the sentinel value before anything has been
// committed.
const PreGenesisStateVersion StateVersion = 0

// Epoch identifies a BFT epoch. Epoch 1 is the first epoch produced by
// genesis.
type Epoch uint64

// Round identifies a leader round within an epoch.
type Round uint64

// ProtocolVersion names an enacted protocol version by its human-readable
// identifier (e.g. "cuttlefish.2").
type ProtocolVersion string

// Hash32 is a 32-byte digest, the common currency of every hash field in
// this package.
type Hash32 [32]byte

// IsZero reports whether h is the all-zero hash, used as the "nothing
// committed yet" sentinel for tree roots.
func (h Hash32) IsZero() bool {
	return h == Hash32{}
}

func (h Hash32) String() string {
	return fmt.Sprintf("%x", h[:])
}

// TransactionHash uniquely identifies a ledger transaction's on-ledger
// payload.
type TransactionHash = Hash32

// IntentHash identifies a user transaction's signed intent, independent of
// which notarized envelope carries it. Used for mempool eviction.
type IntentHash = Hash32

// NotarizedHash identifies a specific notarized envelope of an intent.
type NotarizedHash = Hash32

// LedgerTransactionHash identifies a transaction's fully-encoded ledger
// payload (the unit the execution cache keys on).
type LedgerTransactionHash = Hash32

// RejectedIdentifier names a transaction that was rejected during
// execution, for mempool-eviction purposes.
type RejectedIdentifier struct {
	IntentHash     IntentHash
	NotarizedHash  NotarizedHash
}
