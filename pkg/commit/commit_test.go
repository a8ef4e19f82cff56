package commit

import (
	"crypto/ed25519"
	"errors"
	"testing"

	"github.com/certen/state-computer/pkg/execcache"
	"github.com/certen/state-computer/pkg/mempool"
	"github.com/certen/state-computer/pkg/metrics"
	"github.com/certen/state-computer/pkg/protocolstate"
	"github.com/certen/state-computer/pkg/seriesexec"
	"github.com/certen/state-computer/pkg/store"
	"github.com/certen/state-computer/pkg/types"
	"github.com/certen/state-computer/pkg/validator"
	"github.com/certen/state-computer/pkg/vm"

	"github.com/prometheus/client_golang/prometheus"
)

func signedUserTx(t *testing.T, payload []byte) types.LedgerTransaction {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return types.LedgerTransaction{
		Kind:      types.KindUser,
		Raw:       payload,
		PublicKey: pub,
		Signature: ed25519.Sign(priv, payload),
	}
}

type harness struct {
	engine *Engine
	st     *store.MemStore
	cache  *execcache.Cache
}

func newHarness() harness {
	st := store.NewMemStore()
	cache := execcache.New(types.Hash32{})
	v := validator.NewSwappable(validator.New(validator.DefaultConfig()))
	ps := protocolstate.New(protocolstate.State{})
	m := metrics.New(prometheus.NewRegistry())
	e := New(st, cache, v, vm.NewReference(), ps, mempool.NewInMemory(), m)
	return harness{engine: e, st: st, cache: cache}
}

// expectedHashesFor mirrors the Commit Engine's own root computation so
// tests can construct a correctly-agreeing proof.
func expectedHashesFor(txs []types.LedgerTransaction) types.LedgerHashes {
	view := store.NewMemStore().Snapshot()
	cache := execcache.New(types.Hash32{})
	exec := seriesexec.New(view, cache, vm.NewReference(), types.LedgerHashes{}, 0, types.EpochIdentifiers{})
	v := validator.New(validator.DefaultConfig())
	for _, tx := range txs {
		vt, err := v.Validate(tx, 0)
		if err != nil {
			panic(err)
		}
		if _, err := exec.ExecuteAndUpdateState(vt, "commit"); err != nil {
			panic(err)
		}
	}
	return exec.LatestHashes()
}

func TestCommit_SuccessfulBatch(t *testing.T) {
	h := newHarness()
	txs := []types.LedgerTransaction{signedUserTx(t, []byte("a")), signedUserTx(t, []byte("b"))}

	summary, err := h.engine.Commit(0, types.CommitRequest{
		StartStateVersion: 1,
		Transactions:      txs,
		Proof:             types.LedgerProof{AtStateVersion: 2, LedgerHashes: expectedHashesFor(txs)},
		RequireSuccess:    true,
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if summary.EndStateVersion != 2 {
		t.Fatalf("expected end state version 2, got %d", summary.EndStateVersion)
	}

	version, _, ok := h.st.GetTopTransactionIdentifiers()
	if !ok || version != 2 {
		t.Fatalf("expected store top version 2, got %d ok=%v", version, ok)
	}
}

func TestCommit_RootMismatch_NoStateChange(t *testing.T) {
	h := newHarness()
	txs := []types.LedgerTransaction{signedUserTx(t, []byte("a"))}

	_, err := h.engine.Commit(0, types.CommitRequest{
		StartStateVersion: 1,
		Transactions:      txs,
		Proof:             types.LedgerProof{AtStateVersion: 1, LedgerHashes: types.LedgerHashes{TransactionRoot: types.Hash32{7, 7, 7}}},
		RequireSuccess:    true,
	})
	if !errors.Is(err, types.ErrCommitRootMismatch) {
		t.Fatalf("expected ErrCommitRootMismatch, got %v", err)
	}

	if _, _, ok := h.st.GetTopTransactionIdentifiers(); ok {
		t.Fatalf("expected no state change after a root-mismatched commit")
	}
}

func TestCommit_StateVersionDesync_Panics(t *testing.T) {
	h := newHarness()
	txs := []types.LedgerTransaction{signedUserTx(t, []byte("a"))}

	defer func() {
		if recover() == nil {
			t.Fatalf("expected Commit to panic on a state-version desync")
		}
	}()

	h.engine.Commit(0, types.CommitRequest{
		StartStateVersion: 99,
		Transactions:      txs,
		Proof:             types.LedgerProof{LedgerHashes: expectedHashesFor(txs)},
	})
}

func TestCommit_RequireSuccess_AbortsOnRejection(t *testing.T) {
	h := newHarness()
	refVM := vm.NewReference()
	refVM.RejectPredicate = func(types.ValidatedTransaction) bool { return true }

	e := New(h.st, h.cache, validator.NewSwappable(validator.New(validator.DefaultConfig())), refVM, protocolstate.New(protocolstate.State{}), mempool.NewInMemory(), nil)

	txs := []types.LedgerTransaction{signedUserTx(t, []byte("a"))}
	_, err := e.Commit(0, types.CommitRequest{
		StartStateVersion: 1,
		Transactions:      txs,
		Proof:             types.LedgerProof{AtStateVersion: 1},
		RequireSuccess:    true,
	})
	if err == nil {
		t.Fatalf("expected error when RequireSuccess batch contains a rejected transaction")
	}
}
