package seriesexec

import (
	"testing"

	"github.com/certen/state-computer/pkg/execcache"
	"github.com/certen/state-computer/pkg/store"
	"github.com/certen/state-computer/pkg/types"
	"github.com/certen/state-computer/pkg/vm"
)

func newExecutor() *Executor {
	view := store.NewMemStore().Snapshot()
	cache := execcache.New(types.Hash32{})
	return New(view, cache, vm.NewReference(), types.LedgerHashes{}, 0, types.EpochIdentifiers{Epoch: 1})
}

func TestExecuteAndUpdateState_AdvancesVersionAndHashes(t *testing.T) {
	e := newExecutor()
	tx := types.ValidatedTransaction{Raw: []byte("a"), LedgerHash: types.Hash32{1}, SizeBytes: 1}

	_, err := e.ExecuteAndUpdateState(tx, "test")
	if err != nil {
		t.Fatalf("ExecuteAndUpdateState: %v", err)
	}

	if e.StateVersion() != 1 {
		t.Fatalf("expected state version 1, got %d", e.StateVersion())
	}
	if e.LatestHashes().TransactionRoot.IsZero() {
		t.Fatalf("expected non-zero transaction root after execution")
	}
}

func TestExecuteAndUpdateState_IsDeterministicAcrossExecutors(t *testing.T) {
	tx := types.ValidatedTransaction{Raw: []byte("a"), LedgerHash: types.Hash32{1}, SizeBytes: 1}

	e1 := newExecutor()
	e1.ExecuteAndUpdateState(tx, "test")

	e2 := newExecutor()
	e2.ExecuteAndUpdateState(tx, "test")

	if e1.LatestHashes() != e2.LatestHashes() {
		t.Fatalf("two executors applying the same transaction from the same start diverged")
	}
}

func TestExecuteAndUpdateState_LatchesEpochChangeSignal(t *testing.T) {
	e := newExecutor()
	refVM := vm.NewReference()
	tx := types.ValidatedTransaction{Raw: []byte("a"), LedgerHash: types.Hash32{1}, SizeBytes: 1}
	refVM.EpochChangeFor = map[types.Hash32]types.EpochChangeEvent{
		tx.LedgerHash: {NextEpoch: types.EpochIdentifiers{Epoch: 2}},
	}
	view := store.NewMemStore().Snapshot()
	cache := execcache.New(types.Hash32{})
	e = New(view, cache, refVM, types.LedgerHashes{}, 0, types.EpochIdentifiers{Epoch: 1})

	if _, err := e.ExecuteAndUpdateState(tx, "test"); err != nil {
		t.Fatalf("ExecuteAndUpdateState: %v", err)
	}
	if e.Signal().EpochChange == nil {
		t.Fatalf("expected epoch-change signal to latch")
	}

	secondTx := types.ValidatedTransaction{Raw: []byte("b"), LedgerHash: types.Hash32{2}, SizeBytes: 1}
	if _, err := e.ExecuteAndUpdateState(secondTx, "test"); err == nil {
		t.Fatalf("expected execution after a latched signal to be refused")
	}
}
