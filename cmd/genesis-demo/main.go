// Command genesis-demo bootstraps an in-memory state computer, runs a
// genesis sequence against it, prepares one speculative vertex on top of
// the resulting tip, and commits it — printing the ledger hashes after
// genesis and after the commit, and the prepared vertex's committed and
// rejected counts and stop reason. It exists to exercise the wiring between
// pkg/genesis, pkg/prepare, pkg/commit and pkg/statecomputer end to end
// without standing up a real consensus layer.
package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"log"

	"github.com/certen/state-computer/pkg/config"
	"github.com/certen/state-computer/pkg/genesis"
	"github.com/certen/state-computer/pkg/statecomputer"
	"github.com/certen/state-computer/pkg/store"
	"github.com/certen/state-computer/pkg/types"
	"github.com/certen/state-computer/pkg/vm"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg := config.Default()
	st := store.NewMemStore()
	reg := prometheus.NewRegistry()
	sc := statecomputer.New(st, cfg, vm.NewReference(), reg)

	seq := genesis.Sequence{
		SystemFlash: []byte("system-flash"),
		Bootstrap:   []byte("bootstrap"),
		DataChunks: []genesis.DataChunk{
			{Name: "validator-set", Raw: []byte("validator-set-chunk")},
		},
		Scenarios: []genesis.Scenario{
			{Name: "smoke-test", Raw: []byte("smoke-test-scenario")},
		},
		WrapUp: []byte("wrap-up"),
	}
	if err := sc.RunGenesis(seq); err != nil {
		log.Fatalf("genesis: %v", err)
	}

	latest, ok := st.GetLatestProof()
	if !ok {
		log.Fatalf("expected a latest proof after genesis")
	}
	fmt.Printf("genesis complete: protocol=%s ledger_hashes=%+v\n", sc.CurrentProtocolVersion(), latest.LedgerHashes)

	tx := signedUserTx([]byte("demo-transaction"))
	roundUpdate := types.LedgerTransaction{
		Kind:                types.KindRoundUpdate,
		Raw:                 []byte("round-1"),
		ProposerTimestampMs: 1,
		LeaderHistory:       &types.LeaderProposalHistory{CurrentLeaderAddress: "demo-leader"},
	}

	result, err := sc.Prepare(0, types.PrepareRequest{
		CommittedLedgerHashes: latest.LedgerHashes,
		RoundUpdate:           roundUpdate,
		Proposed:              []types.LedgerTransaction{tx},
	})
	if err != nil {
		log.Fatalf("prepare: %v", err)
	}
	fmt.Printf("prepared vertex: committed=%d rejected=%d stop_reason=%s\n", len(result.Committed), len(result.Rejected), result.StopReason)

	topVersion, _, _ := st.GetTopTransactionIdentifiers()
	summary, err := sc.Commit(0, types.CommitRequest{
		StartStateVersion: topVersion + 1,
		Transactions:      result.Committed,
		Proof:             types.LedgerProof{AtStateVersion: topVersion + types.StateVersion(len(result.Committed)), LedgerHashes: result.ResultantHashes},
		RequireSuccess:    true,
	})
	if err != nil {
		log.Fatalf("commit: %v", err)
	}
	fmt.Printf("committed vertex: end_state_version=%d ledger_hashes=%+v\n", summary.EndStateVersion, summary.ResultantHashes)
}

func signedUserTx(payload []byte) types.LedgerTransaction {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		log.Fatalf("generate key: %v", err)
	}
	return types.LedgerTransaction{
		Kind:      types.KindUser,
		Raw:       payload,
		PublicKey: pub,
		Signature: ed25519.Sign(priv, payload),
	}
}
