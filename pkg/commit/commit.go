// Package commit implements the Commit Engine: the consensus-facing
// entry point that durably applies an agreed vertex, re-validating and
// re-executing every transaction for real (as opposed to the Prepare
// Engine's speculative pass), verifying the resulting ledger hashes and
// epoch/protocol-version enactment against the supplied proof, and
// publishing the side effects (execution cache base-advance, mempool
// eviction, protocol-state swap) only once persistence has succeeded.
package commit

import (
	"fmt"
	"log"

	"github.com/certen/state-computer/pkg/execcache"
	"github.com/certen/state-computer/pkg/ledgerhashes"
	"github.com/certen/state-computer/pkg/mempool"
	"github.com/certen/state-computer/pkg/metrics"
	"github.com/certen/state-computer/pkg/protocolstate"
	"github.com/certen/state-computer/pkg/seriesexec"
	"github.com/certen/state-computer/pkg/store"
	"github.com/certen/state-computer/pkg/types"
	"github.com/certen/state-computer/pkg/validator"
	"github.com/certen/state-computer/pkg/vm"
)

// Engine is the Commit Engine.
type Engine struct {
	store         store.Store
	cache         *execcache.Cache
	validator     *validator.Swappable
	vm            vm.Configurator
	protocolState *protocolstate.Guard
	mempool       mempool.Mempool
	metrics       *metrics.Metrics
	logger        *log.Logger
}

// New constructs a Commit Engine.
func New(st store.Store, cache *execcache.Cache, v *validator.Swappable, configurator vm.Configurator, ps *protocolstate.Guard, mp mempool.Mempool, m *metrics.Metrics) *Engine {
	return &Engine{
		store:         st,
		cache:         cache,
		validator:     v,
		vm:            configurator,
		protocolState: ps,
		mempool:       mp,
		metrics:       m,
		logger:        log.New(log.Writer(), "[commit] ", log.LstdFlags),
	}
}

// Commit durably applies req. On success it returns a CommitSummary and
// has already advanced the execution cache base and evicted committed/
// rejected transactions from the mempool. On a root or proof mismatch it
// returns an error and leaves all state untouched. A fatal invariant
// violation (state-version desync, proof disagreement about epoch or
// protocol enactment) panics, since continuing would silently diverge
// the ledger from what consensus agreed.
func (e *Engine) Commit(currentEpoch types.Epoch, req types.CommitRequest) (types.CommitSummary, error) {
	if len(req.Transactions) == 0 {
		return types.CommitSummary{}, fmt.Errorf("commit: empty transaction batch")
	}

	view := e.store.Snapshot()
	topVersion, _, hasTop := view.GetTopTransactionIdentifiers()
	expectedStart := types.PreGenesisStateVersion + 1
	if hasTop {
		expectedStart = topVersion + 1
	}
	if req.StartStateVersion != expectedStart {
		panic(fmt.Sprintf("commit: fatal state-version desync: request starts at %d, store expects %d",
			req.StartStateVersion, expectedStart))
	}

	var committedHashes types.LedgerHashes
	var epochIDs types.EpochIdentifiers
	if latest, ok := e.store.GetLatestProof(); ok {
		committedHashes = latest.LedgerHashes
		if latest.NextEpoch != nil {
			epochIDs = *latest.NextEpoch
		}
	}

	validated := make([]types.ValidatedTransaction, 0, len(req.Transactions))
	for i, tx := range req.Transactions {
		vt, err := e.validator.Validate(tx, currentEpoch)
		if err != nil {
			return types.CommitSummary{}, fmt.Errorf("%w: transaction %d: %v", types.ErrTransactionParsingFailed, i, err)
		}
		validated = append(validated, vt)
	}

	var cursorVersion types.StateVersion
	if req.StartStateVersion > 0 {
		cursorVersion = req.StartStateVersion - 1
	}
	executor := seriesexec.New(view, e.cache, e.vm, committedHashes, cursorVersion, epochIDs)

	committedTxs := make([]types.CommittedTransaction, 0, len(validated))
	rejectedIDs := make([]types.RejectedIdentifier, 0)
	for i, vt := range validated {
		receipt, err := executor.ExecuteAndUpdateState(vt, "commit")
		if err != nil {
			return types.CommitSummary{}, fmt.Errorf("commit: executing transaction %d: %w", i, err)
		}

		if receipt.Outcome == types.OutcomeFailure {
			if req.RequireSuccess {
				return types.CommitSummary{}, fmt.Errorf("commit: transaction %d rejected by execution under RequireSuccess", i)
			}
			rejectedIDs = append(rejectedIDs, types.RejectedIdentifier{IntentHash: vt.IntentHash, NotarizedHash: vt.NotarizedHash})
			if e.metrics != nil {
				e.metrics.ObserveRejected(types.RejectionExecutionRejected)
			}
		}

		committedTxs = append(committedTxs, types.CommittedTransaction{
			Transaction:     vt,
			Receipt:         receipt,
			ResultantHashes: executor.LatestHashes(),
			StateVersion:    req.StartStateVersion + types.StateVersion(i),
		})
	}

	if executor.LatestHashes() != req.Proof.LedgerHashes {
		return types.CommitSummary{}, fmt.Errorf("%w: computed %+v, proof claims %+v",
			types.ErrCommitRootMismatch, executor.LatestHashes(), req.Proof.LedgerHashes)
	}

	signal := executor.Signal()
	epochChanged := signal.EpochChange != nil
	protocolChanged := signal.ProtocolVersion != ""

	if epochChanged != (req.Proof.NextEpoch != nil) {
		panic(fmt.Sprintf("commit: fatal proof disagreement: execution epoch-change=%v, proof next-epoch=%v", epochChanged, req.Proof.NextEpoch))
	}
	if protocolChanged != (req.Proof.NextProtocolVersion != "") {
		panic(fmt.Sprintf("commit: fatal proof disagreement: execution protocol-change=%q, proof next-version=%q", signal.ProtocolVersion, req.Proof.NextProtocolVersion))
	}

	leafHashes := make([]types.Hash32, len(validated))
	for i, vt := range validated {
		leafHashes[i] = vt.LedgerHash
	}
	var startCount uint64
	if req.StartStateVersion > 0 {
		startCount = uint64(req.StartStateVersion - 1)
	}
	txDiff, err := ledgerhashes.ComputeTreeDiff("transaction", view, startCount, committedHashes.TransactionRoot, leafHashes)
	if err != nil {
		return types.CommitSummary{}, fmt.Errorf("commit: compute transaction tree diff: %w", err)
	}

	if err := e.store.Commit(store.CommitBundle{
		Transactions: committedTxs,
		Proof:        req.Proof,
		TreeDiffs:    []ledgerhashes.TreeDiff{txDiff},
	}); err != nil {
		return types.CommitSummary{}, fmt.Errorf("commit: persist: %w", err)
	}

	e.cache.ProgressBase(executor.LatestHashes().TransactionRoot)

	var committedIntentHashes []types.IntentHash
	for _, vt := range validated {
		if vt.Kind == types.KindUser {
			committedIntentHashes = append(committedIntentHashes, vt.IntentHash)
		}
	}
	e.mempool.RemoveCommitted(committedIntentHashes)
	e.mempool.RemoveRejected(rejectedIDs)
	if epochChanged {
		e.mempool.RemoveExpired(signal.EpochChange.NextEpoch.Epoch)
	}

	if protocolChanged {
		e.protocolState.Enact(protocolstate.State{
			Version:   signal.ProtocolVersion,
			EnactedAt: req.StartStateVersion + types.StateVersion(len(validated)) - 1,
		})
		if e.metrics != nil {
			e.metrics.ObserveProtocolVersionEnacted(signal.ProtocolVersion)
		}
	}

	if e.metrics != nil {
		e.metrics.ObserveCommit(req.StartStateVersion+types.StateVersion(len(validated))-1, len(validated)-len(rejectedIDs))
	}

	return types.CommitSummary{
		EndStateVersion: req.StartStateVersion + types.StateVersion(len(validated)) - 1,
		ResultantHashes: executor.LatestHashes(),
		EpochChanged:    epochChanged,
		ProtocolChanged: protocolChanged,
	}, nil
}
