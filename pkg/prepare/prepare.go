// Package prepare implements the Prepare Engine: the consensus-facing
// entry point that assembles a speculative candidate vertex on top of an
// already-agreed (but not yet locally committed) ancestor chain, subject
// to vertex admission limits.
package prepare

import (
	"fmt"
	"log"

	"github.com/certen/state-computer/pkg/execcache"
	"github.com/certen/state-computer/pkg/mempool"
	"github.com/certen/state-computer/pkg/seriesexec"
	"github.com/certen/state-computer/pkg/store"
	"github.com/certen/state-computer/pkg/types"
	"github.com/certen/state-computer/pkg/validator"
	"github.com/certen/state-computer/pkg/vertexlimits"
	"github.com/certen/state-computer/pkg/vm"
)

// Engine is the Prepare Engine.
type Engine struct {
	store     store.Store
	cache     *execcache.Cache
	validator *validator.Swappable
	vm        vm.Configurator
	limits    vertexlimits.Config
	mempool   mempool.Mempool
	logger    *log.Logger
}

// New constructs a Prepare Engine.
func New(st store.Store, cache *execcache.Cache, v *validator.Swappable, configurator vm.Configurator, limits vertexlimits.Config, mp mempool.Mempool) *Engine {
	return &Engine{
		store:     st,
		cache:     cache,
		validator: v,
		vm:        configurator,
		limits:    limits,
		mempool:   mp,
		logger:    log.New(log.Writer(), "[prepare] ", log.LstdFlags),
	}
}

// Prepare assembles a candidate vertex per req. It panics on a fatal
// fence-check failure (the caller's view of the committed ledger hashes
// does not match this engine's store) — that indicates either a
// consensus-layer bug or a local store corruption, and continuing to
// execute on top of a wrong base would silently diverge the ledger.
func (e *Engine) Prepare(currentEpoch types.Epoch, req types.PrepareRequest) (types.PrepareResult, error) {
	view := e.store.Snapshot()

	committedVersion, committedTxHash, _ := view.GetTopTransactionIdentifiers()
	latestProof, hasProof := e.store.GetLatestProof()
	var committedHashes types.LedgerHashes
	if hasProof {
		committedHashes = latestProof.LedgerHashes
	}
	if committedHashes != req.CommittedLedgerHashes {
		panic(fmt.Sprintf("prepare: fatal fence-check failure: caller's committed ledger hashes %+v do not match local store's %+v at version %d (tx %x)",
			req.CommittedLedgerHashes, committedHashes, committedVersion, committedTxHash))
	}

	var epochIDs types.EpochIdentifiers
	if hasProof && latestProof.NextEpoch != nil {
		epochIDs = *latestProof.NextEpoch
	}

	executor := seriesexec.New(view, e.cache, e.vm, committedHashes, committedVersion, epochIDs)

	for _, ancestor := range req.Ancestors {
		if executor.Signal().EpochChange != nil || executor.Signal().ProtocolVersion != "" {
			break
		}
		validated, err := e.validator.Validate(ancestor, currentEpoch)
		if err != nil {
			panic(fmt.Sprintf("prepare: fatal: an already-agreed ancestor transaction failed validation: %v", err))
		}
		if _, err := executor.ExecuteAndUpdateState(validated, "ancestor"); err != nil {
			panic(fmt.Sprintf("prepare: fatal: ancestor replay failed post-fence-check: %v", err))
		}
	}

	var committed []types.LedgerTransaction
	var rejected []types.RejectedIdentifier
	stopReason := types.StopReasonExhaustedProposed

	if !signalFired(executor) {
		validatedRoundUpdate, err := e.validator.Validate(req.RoundUpdate, currentEpoch)
		if err != nil {
			panic(fmt.Sprintf("prepare: fatal: round update failed validation: %v", err))
		}
		if _, err := executor.ExecuteAndUpdateState(validatedRoundUpdate, "round-update"); err != nil {
			panic(fmt.Sprintf("prepare: fatal: round update execution failed: %v", err))
		}
		committed = append(committed, req.RoundUpdate)
	}

	tracker := vertexlimits.New(e.limits)
	var mempoolRejected []types.RejectedIdentifier

admit:
	for _, proposed := range req.Proposed {
		if signalFired(executor) {
			stopReason = types.StopReasonSignalLatched
			break admit
		}

		validated, err := e.validator.Validate(proposed, currentEpoch)
		if err != nil {
			e.logger.Printf("rejecting proposed transaction: %v", err)
			id := rejectedIdentifierFor(proposed)
			rejected = append(rejected, id)
			mempoolRejected = append(mempoolRejected, id)
			continue
		}

		if !tracker.CheckPreExecution(validated.SizeBytes) {
			continue
		}

		// Probe the transaction without committing it to the cursor: its
		// real execution cost is only known after the VM runs it, and a
		// candidate that turns out too expensive for the cost cap must
		// never have touched the series.
		childRoot, receipt, err := executor.ExecuteNoStateUpdate(executor.LatestHashes(), validated, "proposed")
		if err != nil {
			panic(fmt.Sprintf("prepare: fatal: executor refused a transaction admitted past vertex limits checks: %v", err))
		}

		if receipt.Outcome == types.OutcomeFailure {
			id := types.RejectedIdentifier{IntentHash: validated.IntentHash, NotarizedHash: validated.NotarizedHash}
			rejected = append(rejected, id)
			mempoolRejected = append(mempoolRejected, id)
			if tracker.CountRejectedTransaction(receipt.Fee.ExecutionCostUnitsConsumed) {
				stopReason = types.StopReasonRejectedCostLimit
				break admit
			}
			continue
		}

		decision, reason := tracker.TryNextTransaction(validated.SizeBytes, receipt.Fee.ExecutionCostUnitsConsumed)
		if decision == vertexlimits.VertexLimitExceeded {
			// The transaction executed cleanly and is perfectly valid —
			// it just doesn't fit this vertex. Report it as rejected for
			// this vertex but leave it in the mempool for a future one.
			rejected = append(rejected, types.RejectedIdentifier{IntentHash: validated.IntentHash, NotarizedHash: validated.NotarizedHash})
			stopReason = reason
			break admit
		}

		executor.Admit(childRoot, receipt)
		committed = append(committed, proposed)

		if decision == vertexlimits.VertexFilled {
			stopReason = reason
			break admit
		}

		if signalFired(executor) {
			stopReason = types.StopReasonSignalLatched
			break admit
		}
	}

	e.mempool.RemoveRejected(mempoolRejected)

	return types.PrepareResult{
		Committed:       committed,
		Rejected:        rejected,
		ResultantHashes: executor.LatestHashes(),
		StopReason:      stopReason,
	}, nil
}

func signalFired(e *seriesexec.Executor) bool {
	s := e.Signal()
	return s.EpochChange != nil || s.ProtocolVersion != ""
}

func rejectedIdentifierFor(tx types.LedgerTransaction) types.RejectedIdentifier {
	// A transaction that failed validation never acquired real intent/
	// notarized hashes; derive stable placeholders from its raw bytes
	// so mempool eviction still has something to key on.
	return types.RejectedIdentifier{
		IntentHash:    sha256Of("intent:", tx.Raw),
		NotarizedHash: sha256Of("notarized:", tx.Raw),
	}
}
