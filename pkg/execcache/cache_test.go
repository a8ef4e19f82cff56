package execcache

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/certen/state-computer/pkg/types"
)

func hash(b byte) types.Hash32 {
	var h types.Hash32
	h[0] = b
	return h
}

func TestGetOrExecute_CachesResult(t *testing.T) {
	c := New(hash(0))
	key := Key{ParentRoot: hash(0), TxHash: hash(1)}

	var calls int32
	execute := func() (types.Hash32, types.Receipt, error) {
		atomic.AddInt32(&calls, 1)
		return hash(2), types.Receipt{Outcome: types.OutcomeSuccess}, nil
	}

	root1, _, err := c.GetOrExecute(key, execute)
	if err != nil {
		t.Fatalf("first GetOrExecute: %v", err)
	}
	root2, _, err := c.GetOrExecute(key, execute)
	if err != nil {
		t.Fatalf("second GetOrExecute: %v", err)
	}

	if root1 != root2 {
		t.Fatalf("cached root changed between calls: %x != %x", root1, root2)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one execution, got %d", calls)
	}
}

func TestGetOrExecute_ConcurrentCallersExecuteOnce(t *testing.T) {
	c := New(hash(0))
	key := Key{ParentRoot: hash(0), TxHash: hash(1)}

	var calls int32
	execute := func() (types.Hash32, types.Receipt, error) {
		atomic.AddInt32(&calls, 1)
		return hash(2), types.Receipt{}, nil
	}

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, _, err := c.GetOrExecute(key, execute); err != nil {
				t.Errorf("GetOrExecute: %v", err)
			}
		}()
	}
	wg.Wait()

	if calls != 1 {
		t.Fatalf("expected exactly one execution across %d concurrent callers, got %d", n, calls)
	}
}

func TestProgressBase_EvictsUnreachableBranches(t *testing.T) {
	c := New(hash(0))

	// Two sibling speculative branches off the genesis root.
	keyA := Key{ParentRoot: hash(0), TxHash: hash(1)}
	keyB := Key{ParentRoot: hash(0), TxHash: hash(2)}

	rootA, _, err := c.GetOrExecute(keyA, func() (types.Hash32, types.Receipt, error) {
		return hash(10), types.Receipt{}, nil
	})
	if err != nil {
		t.Fatalf("execute A: %v", err)
	}
	_, _, err = c.GetOrExecute(keyB, func() (types.Hash32, types.Receipt, error) {
		return hash(20), types.Receipt{}, nil
	})
	if err != nil {
		t.Fatalf("execute B: %v", err)
	}

	if c.Size() != 2 {
		t.Fatalf("expected 2 cached edges before progress, got %d", c.Size())
	}

	c.ProgressBase(rootA)

	if c.Size() != 0 {
		t.Fatalf("expected sibling branch edges evicted after ProgressBase, got %d remaining", c.Size())
	}
	if c.Base() != rootA {
		t.Fatalf("expected base %x, got %x", rootA, c.Base())
	}
}

func TestProgressBase_KeepsDescendantsOfNewBase(t *testing.T) {
	c := New(hash(0))

	keyA := Key{ParentRoot: hash(0), TxHash: hash(1)}
	rootA, _, _ := c.GetOrExecute(keyA, func() (types.Hash32, types.Receipt, error) {
		return hash(10), types.Receipt{}, nil
	})

	keyAChild := Key{ParentRoot: rootA, TxHash: hash(3)}
	_, _, err := c.GetOrExecute(keyAChild, func() (types.Hash32, types.Receipt, error) {
		return hash(11), types.Receipt{}, nil
	})
	if err != nil {
		t.Fatalf("execute child of A: %v", err)
	}

	c.ProgressBase(rootA)

	if _, _, ok := c.Peek(keyAChild); !ok {
		t.Fatalf("expected descendant of new base to remain cached")
	}
}
