package mempool

import (
	"testing"

	"github.com/certen/state-computer/pkg/types"
)

func TestInMemory_RemoveCommittedEvicts(t *testing.T) {
	m := NewInMemory()
	h := types.Hash32{1}
	m.Add(h, 10)

	m.RemoveCommitted([]types.IntentHash{h})

	if m.Len() != 0 {
		t.Fatalf("expected mempool empty after committed-removal, got %d entries", m.Len())
	}
}

func TestInMemory_RemoveExpiredEvictsOnlyPastEpoch(t *testing.T) {
	m := NewInMemory()
	stale := types.Hash32{1}
	fresh := types.Hash32{2}
	m.Add(stale, 5)
	m.Add(fresh, 50)

	m.RemoveExpired(10)

	if m.Len() != 1 {
		t.Fatalf("expected 1 surviving entry, got %d", m.Len())
	}
}

func TestInMemory_RemoveRejectedEvicts(t *testing.T) {
	m := NewInMemory()
	h := types.Hash32{3}
	m.Add(h, 10)

	m.RemoveRejected([]types.RejectedIdentifier{{IntentHash: h}})

	if m.Len() != 0 {
		t.Fatalf("expected mempool empty after rejected-removal, got %d entries", m.Len())
	}
}
