// Package seriesexec implements the Series Executor: a stateful cursor
// that threads a running (store + execution cache) pair through a
// sequence of transactions, tracking the latest ledger hashes, state
// version and epoch identifiers as it goes, and latching the first
// epoch-change or protocol-update signal it observes so that no further
// transaction is executed once one fires (the remainder of a vertex or
// commit batch after a signal is simply not touched).
package seriesexec

import (
	"fmt"

	"github.com/certen/state-computer/pkg/execcache"
	"github.com/certen/state-computer/pkg/ledgerhashes"
	"github.com/certen/state-computer/pkg/store"
	"github.com/certen/state-computer/pkg/types"
	"github.com/certen/state-computer/pkg/vm"
)

// Signal is latched the first time an epoch-change or protocol-update
// receipt is observed; once set, it stays set for the life of the
// Executor, and ExecuteAndUpdateState and ExecuteNoStateUpdate refuse to
// execute any further transaction.
type Signal struct {
	EpochChange     *types.EpochChangeEvent
	ProtocolVersion types.ProtocolVersion
}

func (s Signal) fired() bool {
	return s.EpochChange != nil || s.ProtocolVersion != ""
}

// Executor is the Series Executor. A fresh instance is created for every
// prepare vertex and for every commit batch, seeded with the ledger
// hashes and state version the series starts from.
type Executor struct {
	view  store.ReadView
	cache *execcache.Cache
	vm    vm.Configurator

	latestHashes  types.LedgerHashes
	stateVersion  types.StateVersion
	epochIDs      types.EpochIdentifiers
	signal        Signal
}

// New creates an Executor starting from the given ledger state.
func New(view store.ReadView, cache *execcache.Cache, configurator vm.Configurator, startHashes types.LedgerHashes, startVersion types.StateVersion, epochIDs types.EpochIdentifiers) *Executor {
	return &Executor{
		view:         view,
		cache:        cache,
		vm:           configurator,
		latestHashes: startHashes,
		stateVersion: startVersion,
		epochIDs:     epochIDs,
	}
}

// LatestHashes returns the ledger hashes after the most recently applied
// transaction.
func (e *Executor) LatestHashes() types.LedgerHashes { return e.latestHashes }

// StateVersion returns the state version after the most recently applied
// transaction.
func (e *Executor) StateVersion() types.StateVersion { return e.stateVersion }

// EpochIdentifiers returns the epoch identifiers currently in effect.
func (e *Executor) EpochIdentifiers() types.EpochIdentifiers { return e.epochIDs }

// Signal returns the latched epoch-change/protocol-update signal, if any
// has fired yet.
func (e *Executor) Signal() Signal { return e.signal }

// ExecuteAndUpdateState executes tx through the execution cache (so a
// repeated call with the same parent root and transaction hash reuses the
// cached receipt instead of re-invoking the VM), folds its resultant hash
// into the three accumulators, advances the state version, and latches
// a signal if the receipt carries one. It refuses to run once a signal
// has already latched.
func (e *Executor) ExecuteAndUpdateState(tx types.ValidatedTransaction, label string) (types.Receipt, error) {
	if e.signal.fired() {
		return types.Receipt{}, fmt.Errorf("seriesexec: cannot execute past a latched epoch/protocol signal")
	}

	key := execcache.Key{ParentRoot: e.latestHashes.TransactionRoot, TxHash: tx.LedgerHash}
	childRoot, receipt, err := e.cache.GetOrExecute(key, func() (types.Hash32, types.Receipt, error) {
		executable := e.vm.Wrap(tx, label)
		r := executable.ExecuteOn(e.view)
		root := ledgerhashes.Fold(e.latestHashes.TransactionRoot, tx.LedgerHash)
		return root, r, nil
	})
	if err != nil {
		return types.Receipt{}, fmt.Errorf("seriesexec: execute: %w", err)
	}

	e.applyReceipt(childRoot, receipt)
	return receipt, nil
}

// ExecuteNoStateUpdate runs tx (again via the execution cache) and
// returns its receipt without mutating the executor's own cursor. The
// Prepare Engine uses this to probe a candidate transaction — run it
// through the VM and learn its real execution cost — before deciding
// whether it actually fits the vertex. A probed transaction that turns
// out not to fit is simply never passed to Admit, so it never advances
// the cursor: discarding it after the fact would otherwise spoil the
// series with work that isn't part of the vertex. The probe's result is
// still stored in the execution cache under its (parent root,
// transaction hash) key, like any other execution, and is not removed
// when the candidate is discarded.
func (e *Executor) ExecuteNoStateUpdate(parentHashes types.LedgerHashes, tx types.ValidatedTransaction, label string) (types.Hash32, types.Receipt, error) {
	if e.signal.fired() {
		return types.Hash32{}, types.Receipt{}, fmt.Errorf("seriesexec: cannot execute past a latched epoch/protocol signal")
	}

	key := execcache.Key{ParentRoot: parentHashes.TransactionRoot, TxHash: tx.LedgerHash}
	childRoot, receipt, err := e.cache.GetOrExecute(key, func() (types.Hash32, types.Receipt, error) {
		executable := e.vm.Wrap(tx, label)
		r := executable.ExecuteOn(e.view)
		root := ledgerhashes.Fold(parentHashes.TransactionRoot, tx.LedgerHash)
		return root, r, nil
	})
	if err != nil {
		return types.Hash32{}, types.Receipt{}, fmt.Errorf("seriesexec: execute (no state update): %w", err)
	}
	return childRoot, receipt, nil
}

// Admit folds a previously-probed transaction's resultant hash and
// receipt into the executor's cursor, as if ExecuteAndUpdateState had
// just run it. Call this only once a probed transaction (from
// ExecuteNoStateUpdate) is confirmed to belong in the series — it must
// be probed against the executor's current LatestHashes(), with nothing
// else admitted in between, or the folded root will not chain correctly.
func (e *Executor) Admit(childTransactionRoot types.Hash32, receipt types.Receipt) {
	e.applyReceipt(childTransactionRoot, receipt)
}

// UpdateState sets the executor's ledger hashes/state version/epoch
// identifiers directly, without executing a transaction. It leaves a
// latched signal in place.
func (e *Executor) UpdateState(hashes types.LedgerHashes, version types.StateVersion, epochIDs types.EpochIdentifiers) {
	e.latestHashes = hashes
	e.stateVersion = version
	e.epochIDs = epochIDs
}

func (e *Executor) applyReceipt(childTransactionRoot types.Hash32, receipt types.Receipt) {
	receiptLeaf := receiptHash(receipt)
	stateLeaf := stateDeltaHash(receipt.StateDelta)

	e.latestHashes = types.LedgerHashes{
		TransactionRoot: childTransactionRoot,
		ReceiptRoot:     ledgerhashes.Fold(e.latestHashes.ReceiptRoot, receiptLeaf),
		StateRoot:       ledgerhashes.Fold(e.latestHashes.StateRoot, stateLeaf),
	}
	e.stateVersion++

	if receipt.EpochChange != nil {
		e.signal.EpochChange = receipt.EpochChange
	}
	if receipt.NextProtocolVersion != "" {
		e.signal.ProtocolVersion = receipt.NextProtocolVersion
	}
}
