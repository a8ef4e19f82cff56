// Package genesis implements the Genesis Driver: the fixed bootstrap
// sequence that takes a store with no committed history and produces
// its first committed ledger state — system-flash, bootstrap, a series
// of data-ingestion chunks, optional test scenarios, and a wrap-up —
// each committed through the ordinary Commit Engine with a proof the
// driver synthesizes locally (genesis has no external consensus round
// to agree a proof with, so the driver dry-runs every chunk itself to
// discover the hashes a correct proof must claim, then commits for
// real).
package genesis

import (
	"fmt"
	"log"

	"github.com/certen/state-computer/pkg/commit"
	"github.com/certen/state-computer/pkg/execcache"
	"github.com/certen/state-computer/pkg/seriesexec"
	"github.com/certen/state-computer/pkg/store"
	"github.com/certen/state-computer/pkg/types"
	"github.com/certen/state-computer/pkg/validator"
	"github.com/certen/state-computer/pkg/vm"

	"github.com/google/uuid"
)

// DataChunk is one unit of genesis data-ingestion content. The actual
// payload format is out of scope; Driver only needs something to feed
// through the commit path.
type DataChunk struct {
	Name string
	Raw  []byte
}

// Scenario is a named, optional test scenario run after the core
// genesis steps. Unlike the core steps, a scenario's failure does not
// abort genesis: it is committed with RequireSuccess=false and its
// outcome is simply recorded.
type Scenario struct {
	Name string
	Raw  []byte
}

// Sequence is the fixed genesis content: system-flash, bootstrap, N
// data-ingestion chunks, optional scenarios, and a wrap-up transaction.
type Sequence struct {
	SystemFlash []byte
	Bootstrap   []byte
	DataChunks  []DataChunk
	Scenarios   []Scenario
	WrapUp      []byte
}

// Driver runs a Sequence against a freshly-initialized store.
type Driver struct {
	store     store.Store
	cache     *execcache.Cache
	validator *validator.Swappable
	vm        vm.Configurator
	commit    *commit.Engine
	logger    *log.Logger
}

// New constructs a Genesis Driver. It shares the cache and validator
// with the node's ordinary Prepare/Commit engines so the dry-run
// executions it performs to predict proofs land in the same cache the
// real commit will then read back from.
func New(st store.Store, cache *execcache.Cache, v *validator.Swappable, configurator vm.Configurator, commitEngine *commit.Engine) *Driver {
	return &Driver{
		store:     st,
		cache:     cache,
		validator: v,
		vm:        configurator,
		commit:    commitEngine,
		logger:    log.New(log.Writer(), "[genesis] ", log.LstdFlags),
	}
}

// Run executes seq in order. It is a fatal precondition for the store
// to already have committed state or a post-genesis epoch proof —
// genesis only ever runs once per store.
func (d *Driver) Run(seq Sequence) error {
	if _, ok := d.store.GetPostGenesisEpochProof(); ok {
		panic("genesis: fatal: store already has a post-genesis epoch proof; genesis must only run once")
	}
	if _, _, ok := d.store.GetTopTransactionIdentifiers(); ok {
		panic("genesis: fatal: store already has committed transactions; genesis must only run once")
	}

	var hashes types.LedgerHashes
	var version types.StateVersion
	var epochIDs types.EpochIdentifiers
	nextVersion := types.StateVersion(1)

	preScenarioSteps := append([]DataChunk{
		{Name: "system-flash", Raw: seq.SystemFlash},
		{Name: "bootstrap", Raw: seq.Bootstrap},
	}, seq.DataChunks...)

	for _, step := range preScenarioSteps {
		summary, newEpochIDs, err := d.commitOne(nextVersion, step.Name, step.Raw, true, hashes, version, epochIDs)
		if err != nil {
			return fmt.Errorf("genesis: step %q: %w", step.Name, err)
		}
		hashes, version, epochIDs = summary.ResultantHashes, summary.EndStateVersion, newEpochIDs
		nextVersion = version + 1
		d.logger.Printf("committed genesis step %q at version %d", step.Name, version)
	}

	if err := d.runScenarios(seq.Scenarios, &hashes, &version, &nextVersion, &epochIDs); err != nil {
		return err
	}

	summary, _, err := d.commitOne(nextVersion, "wrap-up", seq.WrapUp, true, hashes, version, epochIDs)
	if err != nil {
		return fmt.Errorf("genesis: step %q: %w", "wrap-up", err)
	}
	d.logger.Printf("committed genesis step %q at version %d", "wrap-up", summary.EndStateVersion)

	return nil
}

// runScenarios runs every optional scenario, recording each outcome
// regardless of success. A scenario never aborts genesis: it commits
// with RequireSuccess=false, and a failed commit is simply logged and
// recorded rather than propagated.
func (d *Driver) runScenarios(scenarios []Scenario, hashes *types.LedgerHashes, version, nextVersion *types.StateVersion, epochIDs *types.EpochIdentifiers) error {
	for i, scenario := range scenarios {
		correlationID := uuid.New().String()
		startVersion := *version
		summary, newEpochIDs, err := d.commitOne(*nextVersion, scenario.Name, scenario.Raw, false, *hashes, *version, *epochIDs)
		if err != nil {
			d.logger.Printf("scenario %q (%s) did not commit cleanly: %v", scenario.Name, correlationID, err)
			if err := d.store.PutScenario(uint32(i), types.ExecutedScenario{
				Name:              scenario.Name,
				CorrelationID:     correlationID,
				StartStateVersion: startVersion,
				EndStateVersion:   startVersion,
				Successful:        false,
			}); err != nil {
				return fmt.Errorf("genesis: record failed scenario %q: %w", scenario.Name, err)
			}
			continue
		}
		*hashes, *version, *epochIDs = summary.ResultantHashes, summary.EndStateVersion, newEpochIDs
		*nextVersion = *version + 1
		if err := d.store.PutScenario(uint32(i), types.ExecutedScenario{
			Name:              scenario.Name,
			CorrelationID:     correlationID,
			StartStateVersion: startVersion,
			EndStateVersion:   *version,
			Successful:        true,
		}); err != nil {
			return fmt.Errorf("genesis: record scenario %q: %w", scenario.Name, err)
		}
	}
	return nil
}

// commitOne validates and dry-runs raw as a KindGenesis transaction
// starting from (hashes, version, epochIDs) to discover the ledger
// hashes and epoch/protocol signal a correct proof must claim, then
// drives the real Commit Engine with that proof. Genesis transactions
// run at epoch 0 unconditionally, since no epoch has been established
// yet for any step before the first epoch-change commits.
func (d *Driver) commitOne(startVersion types.StateVersion, label string, raw []byte, requireSuccess bool, hashes types.LedgerHashes, version types.StateVersion, epochIDs types.EpochIdentifiers) (types.CommitSummary, types.EpochIdentifiers, error) {
	tx := types.LedgerTransaction{Kind: types.KindGenesis, Raw: raw}

	vt, err := d.validator.Validate(tx, 0)
	if err != nil {
		return types.CommitSummary{}, epochIDs, fmt.Errorf("validate: %w", err)
	}

	view := d.store.Snapshot()
	dry := seriesexec.New(view, d.cache, d.vm, hashes, version, epochIDs)
	receipt, err := dry.ExecuteAndUpdateState(vt, label)
	if err != nil {
		return types.CommitSummary{}, epochIDs, fmt.Errorf("dry-run execute: %w", err)
	}
	if requireSuccess && receipt.Outcome == types.OutcomeFailure {
		return types.CommitSummary{}, epochIDs, fmt.Errorf("genesis step %q rejected by execution", label)
	}

	proof := types.LedgerProof{
		AtStateVersion: dry.StateVersion(),
		LedgerHashes:   dry.LatestHashes(),
	}
	newEpochIDs := epochIDs
	if signal := dry.Signal(); signal.EpochChange != nil {
		newEpochIDs = types.EpochIdentifiers{
			Epoch:                       signal.EpochChange.NextEpoch.Epoch,
			StateVersionAtEpochStart:    dry.StateVersion(),
			TransactionHashAtEpochStart: vt.LedgerHash,
		}
		proof.Epoch = newEpochIDs.Epoch
		proof.NextEpoch = &newEpochIDs
	}
	if signal := dry.Signal(); signal.ProtocolVersion != "" {
		proof.NextProtocolVersion = signal.ProtocolVersion
	}

	summary, err := d.commit.Commit(0, types.CommitRequest{
		StartStateVersion: startVersion,
		Transactions:      []types.LedgerTransaction{tx},
		Proof:             proof,
		RequireSuccess:    requireSuccess,
	})
	if err != nil {
		return types.CommitSummary{}, epochIDs, fmt.Errorf("commit: %w", err)
	}
	return summary, newEpochIDs, nil
}
