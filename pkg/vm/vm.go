// Package vm defines the Execution Configurator interface the Series
// Executor invokes and a deterministic reference implementation. The
// actual transaction VM (manifest interpretation, fee model, substate
// schema) is out of scope for this module; Reference exists only so the
// rest of the state computer has something real to drive its invariants
// against.
package vm

import (
	"crypto/sha256"
	"fmt"

	"github.com/certen/state-computer/pkg/store"
	"github.com/certen/state-computer/pkg/types"
)

// Configurator wraps a validated transaction into something executable
// against a store view. Real implementations would bind a protocol
// version's VM settings here; Reference ignores the label entirely.
type Configurator interface {
	Wrap(validated types.ValidatedTransaction, label string) Executable
}

// Executable runs the wrapped transaction against a read view, producing
// a receipt. It never mutates the view; the resultant state delta is
// returned for the caller to fold into its own accumulators and persist.
type Executable interface {
	ExecuteOn(view store.ReadView) types.Receipt
}

// Reference is a deterministic toy VM: every user transaction succeeds
// and writes a single substate entry keyed by its ledger hash, with an
// execution cost proportional to its payload size. It is intentionally
// simple — exercising the rest of this module's invariants (cost caps,
// determinism, cache correctness) does not require a real execution
// semantics.
type Reference struct {
	// RejectPredicate, when non-nil, lets tests force specific
	// transactions to be rejected by the VM (as opposed to failing
	// earlier validation) to exercise the rejected-cost accounting
	// path.
	RejectPredicate func(types.ValidatedTransaction) bool

	// EpochChangeFor and NextProtocolVersionFor let tests attach an
	// epoch-change event or protocol-version enactment to a specific
	// transaction's receipt by ledger hash, since the reference VM has
	// no real notion of validator set or protocol configuration to
	// derive these from on its own.
	EpochChangeFor         map[types.Hash32]types.EpochChangeEvent
	NextProtocolVersionFor map[types.Hash32]types.ProtocolVersion
}

// NewReference constructs the reference VM.
func NewReference() *Reference {
	return &Reference{}
}

func (r *Reference) Wrap(validated types.ValidatedTransaction, label string) Executable {
	return &executable{vm: r, tx: validated, label: label}
}

type executable struct {
	vm    *Reference
	tx    types.ValidatedTransaction
	label string
}

func (e *executable) ExecuteOn(view store.ReadView) types.Receipt {
	cost := uint64(e.tx.SizeBytes) + 1

	if e.vm.RejectPredicate != nil && e.vm.RejectPredicate(e.tx) {
		return types.Receipt{
			Outcome: types.OutcomeFailure,
			Fee:     types.FeeSummary{ExecutionCostUnitsConsumed: cost},
		}
	}

	key := fmt.Sprintf("%x", e.tx.LedgerHash)
	value := sha256.Sum256(append([]byte(key), e.tx.Raw...))

	receipt := types.Receipt{
		Outcome: types.OutcomeSuccess,
		Fee:     types.FeeSummary{ExecutionCostUnitsConsumed: cost, TotalFeePaid: cost},
		StateDelta: types.StateUpdateDelta{
			Writes: map[string][]byte{key: value[:]},
		},
	}

	if ev, ok := e.vm.EpochChangeFor[e.tx.LedgerHash]; ok {
		receipt.EpochChange = &ev
	}
	if pv, ok := e.vm.NextProtocolVersionFor[e.tx.LedgerHash]; ok {
		receipt.NextProtocolVersion = pv
	}

	return receipt
}
