package statecomputer

import (
	"crypto/ed25519"
	"testing"

	"github.com/certen/state-computer/pkg/config"
	"github.com/certen/state-computer/pkg/genesis"
	"github.com/certen/state-computer/pkg/store"
	"github.com/certen/state-computer/pkg/types"
	"github.com/certen/state-computer/pkg/validator"
	"github.com/certen/state-computer/pkg/vm"

	"github.com/prometheus/client_golang/prometheus"
)

func newComputer() *StateComputer {
	st := store.NewMemStore()
	cfg := config.Default()
	return New(st, cfg, vm.NewReference(), prometheus.NewRegistry())
}

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

func TestStateComputer_GenesisThenPrepareThenCommit(t *testing.T) {
	sc := newComputer()

	seq := genesis.Sequence{
		SystemFlash: []byte("system-flash"),
		Bootstrap:   []byte("bootstrap"),
		WrapUp:      []byte("wrap-up"),
	}
	if err := sc.RunGenesis(seq); err != nil {
		t.Fatalf("RunGenesis: %v", err)
	}

	latest, ok := sc.store.GetLatestProof()
	if !ok {
		t.Fatalf("expected a latest proof after genesis")
	}

	roundUpdate := types.LedgerTransaction{
		Kind: types.KindRoundUpdate,
		Raw:  []byte("round-1"),
		LeaderHistory: &types.LeaderProposalHistory{
			CurrentLeaderAddress: "leader-1",
		},
		ProposerTimestampMs: 1,
	}

	result, err := sc.Prepare(0, types.PrepareRequest{
		CommittedLedgerHashes: latest.LedgerHashes,
		RoundUpdate:           roundUpdate,
		Proposed:              []types.LedgerTransaction{signedUserTx(t, []byte("tx-a"))},
	})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if len(result.Committed) != 2 {
		t.Fatalf("expected 2 committed transactions (round update + 1 user tx), got %d", len(result.Committed))
	}

	topVersion, _, _ := sc.store.GetTopTransactionIdentifiers()
	summary, err := sc.Commit(0, types.CommitRequest{
		StartStateVersion: topVersion + 1,
		Transactions:      result.Committed,
		Proof:             types.LedgerProof{AtStateVersion: topVersion + types.StateVersion(len(result.Committed)), LedgerHashes: result.ResultantHashes},
		RequireSuccess:    true,
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if summary.EndStateVersion != topVersion+types.StateVersion(len(result.Committed)) {
		t.Fatalf("unexpected end state version %d", summary.EndStateVersion)
	}
}

func TestStateComputer_HandleProtocolUpdate_SwapsValidator(t *testing.T) {
	sc := newComputer()

	installed := false
	sc.HandleProtocolUpdate(fakeValidator{onValidate: func() { installed = true }})

	_, _ = sc.validator.Validate(types.LedgerTransaction{Kind: types.KindGenesis, Raw: []byte("x")}, 0)
	if !installed {
		t.Fatalf("expected the swapped-in validator to have been invoked")
	}
}

func TestStateComputer_HandleProtocolUpdate_NilPanics(t *testing.T) {
	sc := newComputer()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected HandleProtocolUpdate(nil) to panic")
		}
	}()
	sc.HandleProtocolUpdate(nil)
}

type fakeValidator struct {
	onValidate func()
}

func (f fakeValidator) Validate(tx types.LedgerTransaction, currentEpoch types.Epoch) (types.ValidatedTransaction, error) {
	f.onValidate()
	return types.ValidatedTransaction{Kind: tx.Kind, Raw: tx.Raw}, nil
}

var _ validator.Validator = fakeValidator{}
