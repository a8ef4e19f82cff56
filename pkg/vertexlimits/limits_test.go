package vertexlimits

import (
	"testing"

	"github.com/certen/state-computer/pkg/types"
)

func TestTracker_Unbounded_NeverFills(t *testing.T) {
	tr := New(Max())
	for i := 0; i < 1000; i++ {
		decision, _ := tr.TryNextTransaction(100, 10)
		if decision == VertexFilled {
			t.Fatalf("unbounded tracker reported VertexFilled at iteration %d", i)
		}
	}
}

func TestTracker_CountLimit_Fills(t *testing.T) {
	cfg := Max()
	cfg.MaxTransactionCount = 3
	tr := New(cfg)

	for i := 0; i < 2; i++ {
		decision, _ := tr.TryNextTransaction(1, 1)
		if decision != VertexNotFilled {
			t.Fatalf("expected VertexNotFilled at iteration %d", i)
		}
	}
	decision, reason := tr.TryNextTransaction(1, 1)
	if decision != VertexFilled || reason != types.StopReasonCountLimit {
		t.Fatalf("expected VertexFilled/CountLimit on 3rd transaction, got %v/%v", decision, reason)
	}
}

func TestTracker_CostLimit_Fills(t *testing.T) {
	cfg := Max()
	cfg.MaxTotalExecutionCostUnitsConsumed = 25
	tr := New(cfg)

	decision, _ := tr.TryNextTransaction(1, 10)
	if decision != VertexNotFilled {
		t.Fatalf("expected VertexNotFilled after 10 cost units")
	}
	decision, reason := tr.TryNextTransaction(1, 15)
	if decision != VertexFilled || reason != types.StopReasonCostLimit {
		t.Fatalf("expected VertexFilled/CostLimit after exactly reaching 25, got %v/%v", decision, reason)
	}
}

// TestTracker_CostLimit_ExceededDiscards covers the soundness-critical
// case: a transaction whose cost is only known after execution and which
// would push the cumulative total strictly past the cap must not be
// admitted at all, and the tracker's running total must not reflect it.
func TestTracker_CostLimit_ExceededDiscards(t *testing.T) {
	cfg := Max()
	cfg.MaxTotalExecutionCostUnitsConsumed = 25
	tr := New(cfg)

	decision, _ := tr.TryNextTransaction(1, 10)
	if decision != VertexNotFilled {
		t.Fatalf("expected VertexNotFilled after 10 cost units")
	}
	decision, reason := tr.TryNextTransaction(1, 20)
	if decision != VertexLimitExceeded || reason != types.StopReasonCostLimit {
		t.Fatalf("expected VertexLimitExceeded/CostLimit when crossing 25, got %v/%v", decision, reason)
	}
	if tr.totalExecutionCost != 10 {
		t.Fatalf("expected the discarded transaction's cost to be left uncounted, got total %d", tr.totalExecutionCost)
	}
}

func TestTracker_CheckPreExecution_SkipsOverSizeCandidate(t *testing.T) {
	cfg := Max()
	cfg.MaxTransactionSizeBytes = 100
	tr := New(cfg)
	tr.TryNextTransaction(90, 1)

	if tr.CheckPreExecution(20) {
		t.Fatalf("expected CheckPreExecution to reject a candidate that would overflow size cap")
	}
	if !tr.CheckPreExecution(5) {
		t.Fatalf("expected CheckPreExecution to accept a candidate within remaining size budget")
	}
}

func TestTracker_CountRejectedTransaction_StopsOnBreach(t *testing.T) {
	cfg := Max()
	cfg.MaxTotalRejectedCostUnitsConsumed = 10
	tr := New(cfg)

	if tr.CountRejectedTransaction(5) {
		t.Fatalf("did not expect stop after 5/10 rejected cost units")
	}
	if !tr.CountRejectedTransaction(6) {
		t.Fatalf("expected stop after crossing rejected cost cap")
	}
}
