// Package execcache implements the execution cache: a committed-tree-
// rooted forest keyed by (parent transaction root, ledger transaction
// hash) that guarantees the VM is invoked at most once per key, no matter
// how many speculative prepare calls replay the same ancestor chain.
package execcache

import (
	"sync"

	"github.com/certen/state-computer/pkg/types"
)

// Key identifies one edge of the forest: executing transaction txHash on
// top of a transaction root of parentRoot.
type Key struct {
	ParentRoot types.Hash32
	TxHash     types.LedgerTransactionHash
}

type entry struct {
	childRoot types.Hash32
	receipt   types.Receipt
}

// ExecuteFunc performs the actual (expensive, VM-backed) execution of one
// transaction on top of parentRoot, producing the resultant transaction
// root and receipt. It is invoked at most once per distinct Key.
type ExecuteFunc func() (childRoot types.Hash32, receipt types.Receipt, err error)

// Cache is the execution cache. It is guarded by a single mutex that is
// held only for the map lookups/inserts around an execution, never for
// the execution itself — so a second call for the same key still only
// runs the VM once, but callers for distinct keys don't serialize behind
// each other's VM work.
type Cache struct {
	mu sync.Mutex

	// forest maps an edge to the child root it produces.
	forest map[Key]types.Hash32
	// receipts maps a child root to the receipt that produced it; a
	// root can be reached by more than one edge only if two distinct
	// parent/tx pairs happen to produce byte-identical state, which
	// cannot happen in practice since the root commits to the parent.
	receipts map[types.Hash32]entryReceipt
	// children indexes, for each root, the set of edges rooted there,
	// so ProgressBase can walk the forest down from the new base and
	// evict everything outside that subtree.
	children map[types.Hash32][]Key

	base types.Hash32

	// inFlight holds a per-key lock for keys currently executing, so
	// concurrent callers for the same key block on the first one's
	// result instead of double-executing.
	inFlight map[Key]*sync.WaitGroup
}

type entryReceipt struct {
	receipt types.Receipt
}

// New creates an execution cache rooted at base (the currently committed
// transaction root).
func New(base types.Hash32) *Cache {
	return &Cache{
		forest:   make(map[Key]types.Hash32),
		receipts: make(map[types.Hash32]entryReceipt),
		children: make(map[types.Hash32][]Key),
		inFlight: make(map[Key]*sync.WaitGroup),
		base:     base,
	}
}

// GetOrExecute returns the cached (childRoot, receipt) for key if present,
// otherwise runs execute exactly once (even under concurrent callers for
// the same key) and caches the result.
func (c *Cache) GetOrExecute(key Key, execute ExecuteFunc) (types.Hash32, types.Receipt, error) {
	for {
		c.mu.Lock()
		if root, ok := c.forest[key]; ok {
			rec := c.receipts[root]
			c.mu.Unlock()
			return root, rec.receipt, nil
		}
		if wg, running := c.inFlight[key]; running {
			c.mu.Unlock()
			wg.Wait()
			continue
		}
		wg := &sync.WaitGroup{}
		wg.Add(1)
		c.inFlight[key] = wg
		c.mu.Unlock()

		root, receipt, err := execute()

		c.mu.Lock()
		delete(c.inFlight, key)
		if err == nil {
			c.forest[key] = root
			c.receipts[root] = entryReceipt{receipt: receipt}
			c.children[key.ParentRoot] = append(c.children[key.ParentRoot], key)
		}
		c.mu.Unlock()
		wg.Done()

		return root, receipt, err
	}
}

// Peek returns the cached result for key without executing anything.
func (c *Cache) Peek(key Key) (types.Hash32, types.Receipt, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	root, ok := c.forest[key]
	if !ok {
		return types.Hash32{}, types.Receipt{}, false
	}
	return root, c.receipts[root].receipt, true
}

// ProgressBase advances the cache's committed root to newBase, evicting
// every edge not reachable from newBase — i.e. everything on abandoned
// speculative branches. newBase must itself already be a committed root
// reachable from the old base (the Commit Engine only calls this with
// the root it just durably persisted).
func (c *Cache) ProgressBase(newBase types.Hash32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if newBase == c.base {
		return
	}

	keep := make(map[types.Hash32]bool)
	keep[newBase] = true
	frontier := []types.Hash32{newBase}
	for len(frontier) > 0 {
		root := frontier[0]
		frontier = frontier[1:]
		for _, k := range c.children[root] {
			child := c.forest[k]
			if !keep[child] {
				keep[child] = true
				frontier = append(frontier, child)
			}
		}
	}

	for k, childRoot := range c.forest {
		if !keep[k.ParentRoot] {
			delete(c.forest, k)
			delete(c.receipts, childRoot)
		}
	}
	for root := range c.children {
		if !keep[root] {
			delete(c.children, root)
		}
	}

	c.base = newBase
}

// Base returns the cache's current committed root.
func (c *Cache) Base() types.Hash32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.base
}

// Size reports the number of cached edges, for metrics/tests.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.forest)
}
