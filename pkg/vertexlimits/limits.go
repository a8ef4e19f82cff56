// Package vertexlimits implements the Vertex Limits Tracker: the four
// admission caps the Prepare Engine enforces while assembling a
// candidate vertex (transaction count, total size, total execution cost
// of committed transactions, and total execution cost of rejected
// transactions).
package vertexlimits

import "github.com/certen/state-computer/pkg/types"

// Config names the four caps. A zero value for any field means
// "unbounded" for that dimension.
type Config struct {
	MaxTransactionCount               uint32
	MaxTransactionSizeBytes           uint64
	MaxTotalExecutionCostUnitsConsumed uint64
	MaxTotalRejectedCostUnitsConsumed  uint64
}

// Max returns an effectively-unbounded configuration, used by tests that
// want to observe behavior with every cap disabled (spec.md §8 scenario
// 1).
func Max() Config {
	const unbounded = ^uint64(0)
	return Config{
		MaxTransactionCount:               ^uint32(0),
		MaxTransactionSizeBytes:           unbounded,
		MaxTotalExecutionCostUnitsConsumed: unbounded,
		MaxTotalRejectedCostUnitsConsumed:  unbounded,
	}
}

// Decision is the result of attempting to admit one transaction.
type Decision int

const (
	// VertexNotFilled means the transaction was admitted and there is
	// still room for more.
	VertexNotFilled Decision = iota
	// VertexFilled means the transaction was admitted and it exactly
	// exhausted at least one cap, so the vertex is now complete.
	VertexFilled
	// VertexLimitExceeded means the transaction was NOT admitted: including
	// it would have pushed a running total strictly past its cap. The
	// caller must discard the candidate (report it as rejected for
	// visibility, but never hand it to mempool eviction, since it remains
	// valid and can be retried in a future vertex) and stop the vertex.
	VertexLimitExceeded
)

// Tracker accumulates usage against a Config as transactions are
// admitted or rejected. It is not safe for concurrent use — the Prepare
// Engine owns one per vertex being assembled and drives it sequentially.
type Tracker struct {
	cfg Config

	count               uint32
	totalSizeBytes      uint64
	totalExecutionCost  uint64
	totalRejectedCost   uint64
}

// New creates a Tracker against cfg, starting from zero usage.
func New(cfg Config) *Tracker {
	return &Tracker{cfg: cfg}
}

// CheckPreExecution is the cheap, skip-and-continue check performed
// before a candidate transaction is even sent to the VM: if admitting it
// would obviously overflow the count or size caps, the transaction is
// skipped (not rejected) and the Prepare Engine moves on to the next
// proposed transaction without stopping the vertex.
func (t *Tracker) CheckPreExecution(sizeBytes int) bool {
	if t.cfg.MaxTransactionCount != 0 && t.count+1 > t.cfg.MaxTransactionCount {
		return false
	}
	if t.cfg.MaxTransactionSizeBytes != 0 && t.totalSizeBytes+uint64(sizeBytes) > t.cfg.MaxTransactionSizeBytes {
		return false
	}
	return true
}

// TryNextTransaction decides whether a successfully-executed transaction
// of the given size and execution cost can be admitted into the vertex.
// Execution cost is only known after the VM has actually run the
// transaction, so admission can't be pre-checked the way count/size are:
// a transaction can execute cleanly and still turn out too expensive to
// fit. When that happens TryNextTransaction returns VertexLimitExceeded
// and leaves the tracker's totals untouched — the candidate was never
// admitted, so it must not count against anything. Otherwise the
// transaction's usage is folded into the running totals and the result
// reports whether that exactly filled a cap.
func (t *Tracker) TryNextTransaction(sizeBytes int, costUnits uint64) (Decision, types.VertexStopReason) {
	newCount := t.count + 1
	newSize := t.totalSizeBytes + uint64(sizeBytes)
	newCost := t.totalExecutionCost + costUnits

	if t.cfg.MaxTransactionCount != 0 && newCount > t.cfg.MaxTransactionCount {
		return VertexLimitExceeded, types.StopReasonCountLimit
	}
	if t.cfg.MaxTransactionSizeBytes != 0 && newSize > t.cfg.MaxTransactionSizeBytes {
		return VertexLimitExceeded, types.StopReasonSizeLimit
	}
	if t.cfg.MaxTotalExecutionCostUnitsConsumed != 0 && newCost > t.cfg.MaxTotalExecutionCostUnitsConsumed {
		return VertexLimitExceeded, types.StopReasonCostLimit
	}

	t.count = newCount
	t.totalSizeBytes = newSize
	t.totalExecutionCost = newCost

	if t.cfg.MaxTransactionCount != 0 && t.count >= t.cfg.MaxTransactionCount {
		return VertexFilled, types.StopReasonCountLimit
	}
	if t.cfg.MaxTransactionSizeBytes != 0 && t.totalSizeBytes >= t.cfg.MaxTransactionSizeBytes {
		return VertexFilled, types.StopReasonSizeLimit
	}
	if t.cfg.MaxTotalExecutionCostUnitsConsumed != 0 && t.totalExecutionCost >= t.cfg.MaxTotalExecutionCostUnitsConsumed {
		return VertexFilled, types.StopReasonCostLimit
	}
	return VertexNotFilled, types.StopReasonExhaustedProposed
}

// CountRejectedTransaction records a rejected transaction's execution
// cost against the rejected-cost cap. Unlike CheckPreExecution, breaching
// this cap stops the vertex (the transaction was already executed and
// its cost is real, so admission has to stop here rather than merely
// skipping).
func (t *Tracker) CountRejectedTransaction(costUnits uint64) (stop bool) {
	t.totalRejectedCost += costUnits
	if t.cfg.MaxTotalRejectedCostUnitsConsumed != 0 && t.totalRejectedCost >= t.cfg.MaxTotalRejectedCostUnitsConsumed {
		return true
	}
	return false
}
