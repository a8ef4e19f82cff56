// Package statecomputer wires the Prepare Engine, Commit Engine and
// Genesis Driver behind the single consensus-facing interface the rest
// of a node talks to: Prepare, Commit, HandleProtocolUpdate,
// CurrentProtocolVersion and ProtocolState. It owns the lock table
// every other component in this module is built around — the store,
// the execution cache, the swappable validator and the swappable
// protocol state — so a caller never has to reason about their
// individual concurrency rules directly.
package statecomputer

import (
	"fmt"
	"log"

	"github.com/certen/state-computer/pkg/commit"
	"github.com/certen/state-computer/pkg/config"
	"github.com/certen/state-computer/pkg/execcache"
	"github.com/certen/state-computer/pkg/genesis"
	"github.com/certen/state-computer/pkg/mempool"
	"github.com/certen/state-computer/pkg/metrics"
	"github.com/certen/state-computer/pkg/prepare"
	"github.com/certen/state-computer/pkg/protocolstate"
	"github.com/certen/state-computer/pkg/store"
	"github.com/certen/state-computer/pkg/types"
	"github.com/certen/state-computer/pkg/validator"
	"github.com/certen/state-computer/pkg/vertexlimits"
	"github.com/certen/state-computer/pkg/vm"

	"github.com/prometheus/client_golang/prometheus"
)

// StateComputer is the top-level façade a consensus implementation
// drives. The individual engines and guards beneath it carry their own
// locks. Commit and RunGenesis hold no lock across their fence check,
// execution and persistence, so concurrent calls to them are not
// serialized against each other.
type StateComputer struct {
	store     store.Store
	cache     *execcache.Cache
	validator *validator.Swappable
	vm        vm.Configurator
	protocol  *protocolstate.Guard
	mempool   mempool.Mempool
	metrics   *metrics.Metrics

	prepare *prepare.Engine
	commit  *commit.Engine
	genesis *genesis.Driver

	limits vertexlimits.Config
	logger *log.Logger
}

// New assembles a StateComputer from a NodeConfig and a store
// implementation. The VM configurator is supplied by the caller since
// its concrete binding (which protocol version's execution semantics
// to run) is outside this module's scope.
func New(st store.Store, cfg config.NodeConfig, configurator vm.Configurator, reg prometheus.Registerer) *StateComputer {
	cache := execcache.New(types.Hash32{})
	v := validator.NewSwappable(validator.New(validator.Config{
		MaxTransactionSizeBytes: cfg.Validator.MaxTransactionSizeBytes,
		EpochWindowSize:         cfg.Validator.EpochWindowSize,
	}))
	ps := protocolstate.New(protocolstate.State{Version: types.ProtocolVersion(cfg.Network.GenesisProtocolVersion)})
	mp := mempool.NewInMemory()
	m := metrics.New(reg)

	limits := vertexlimits.Config{
		MaxTransactionCount:                cfg.VertexLimits.MaxTransactionCount,
		MaxTransactionSizeBytes:            cfg.VertexLimits.MaxTransactionSizeBytes,
		MaxTotalExecutionCostUnitsConsumed: cfg.VertexLimits.MaxTotalExecutionCostUnitsConsumed,
		MaxTotalRejectedCostUnitsConsumed:  cfg.VertexLimits.MaxTotalRejectedCostUnitsConsumed,
	}

	prepareEngine := prepare.New(st, cache, v, configurator, limits, mp)
	commitEngine := commit.New(st, cache, v, configurator, ps, mp, m)
	genesisDriver := genesis.New(st, cache, v, configurator, commitEngine)

	return &StateComputer{
		store:     st,
		cache:     cache,
		validator: v,
		vm:        configurator,
		protocol:  ps,
		mempool:   mp,
		metrics:   m,
		prepare:   prepareEngine,
		commit:    commitEngine,
		genesis:   genesisDriver,
		limits:    limits,
		logger:    log.New(log.Writer(), "[statecomputer] ", log.LstdFlags),
	}
}

// RunGenesis bootstraps a fresh store with seq. It must only be called
// once per store; calling it against an already-initialized store is a
// fatal precondition violation (see pkg/genesis).
func (sc *StateComputer) RunGenesis(seq genesis.Sequence) error {
	return sc.genesis.Run(seq)
}

// Prepare assembles a speculative candidate vertex. currentEpoch is the
// epoch the caller believes is in effect, used by the validator's
// epoch-window check.
func (sc *StateComputer) Prepare(currentEpoch types.Epoch, req types.PrepareRequest) (types.PrepareResult, error) {
	return sc.prepare.Prepare(currentEpoch, req)
}

// Commit durably applies an agreed vertex.
func (sc *StateComputer) Commit(currentEpoch types.Epoch, req types.CommitRequest) (types.CommitSummary, error) {
	return sc.commit.Commit(currentEpoch, req)
}

// HandleProtocolUpdate installs a new Validator implementation for a
// protocol version that has just been enacted by a commit. It must only
// be called once that commit's side effects (including the
// protocolstate.Guard swap performed internally by the Commit Engine)
// are already durable, since in-flight Prepare/Commit calls may still
// observe the old validator until they next acquire the read lock.
func (sc *StateComputer) HandleProtocolUpdate(next validator.Validator) {
	if next == nil {
		panic("statecomputer: HandleProtocolUpdate called with a nil validator")
	}
	sc.validator.Swap(next)
	sc.logger.Printf("installed validator for protocol version %s", sc.protocol.Current().Version)
}

// CurrentProtocolVersion returns the protocol version currently
// enacted.
func (sc *StateComputer) CurrentProtocolVersion() types.ProtocolVersion {
	return sc.protocol.Current().Version
}

// ProtocolState returns the full currently-enacted protocol state
// (version plus the state version it was enacted at).
func (sc *StateComputer) ProtocolState() protocolstate.State {
	return sc.protocol.Current()
}

// AddPending admits an intent into the mempool so it is eligible for
// eviction once committed, rejected, or aged past endEpoch. Consensus
// gossip/admission itself is out of scope; this only wires the mempool
// interface the Prepare/Commit Engines already depend on.
func (sc *StateComputer) AddPending(intentHash types.IntentHash, endEpoch types.Epoch) {
	if in, ok := sc.mempool.(*mempool.InMemory); ok {
		in.Add(intentHash, endEpoch)
		return
	}
	panic(fmt.Sprintf("statecomputer: mempool implementation %T does not support direct admission", sc.mempool))
}
