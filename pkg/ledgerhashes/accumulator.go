// Package ledgerhashes implements the Ledger Hashes Accumulator: the
// append-only, pairwise-SHA-256 running commitment each of the three
// ledger hash trees (transaction, receipt, state) folds its leaves into.
// It is grounded on the pairwise combine function used by a sibling
// Merkle tree implementation elsewhere in this codebase, generalized
// here into an append-only chain so a leaf can be folded in one at a
// time without knowing the final leaf count in advance — transactions
// arrive as a stream, not a batch.
package ledgerhashes

import (
	"crypto/sha256"
	"fmt"

	"github.com/certen/state-computer/pkg/types"
)

// TreeHash is an alias of the module's common digest type, kept local for
// readability within this package.
type TreeHash = types.Hash32

// TreeNodeReader fetches a previously-persisted node of the accumulator
// by its position, used to recompute a root from a known anchor without
// re-running the VM when the execution cache has gone cold (e.g. after a
// process restart) but the underlying transactions are already durably
// committed.
type TreeNodeReader interface {
	GetTreeNode(namespace string, key NodeKey) (TreeHash, bool)
}

// NodeKey addresses one persisted node of one accumulator instance by
// its position (the count of leaves folded in when it was produced).
type NodeKey struct {
	Height uint32
	Index  uint64
}

// Fold combines a parent accumulator root with a new leaf hash, producing
// the resultant root. It is the pure function every accumulator
// operation in this package (and the Series Executor's own incremental
// root-threading) ultimately reduces to.
func Fold(parentRoot, leafHash TreeHash) TreeHash {
	return hashPair(parentRoot, leafHash)
}

func hashPair(left, right TreeHash) TreeHash {
	var buf [64]byte
	copy(buf[:32], left[:])
	copy(buf[32:], right[:])
	return sha256.Sum256(buf[:])
}

// Accumulator is a namespaced, append-only chain of Fold applications.
// The namespace keys its persisted nodes so that instances for different
// trees never collide in a shared store. The Series Executor does not
// use Accumulator: it threads its three roots with Fold directly.
type Accumulator struct {
	namespace string
	reader    TreeNodeReader

	root  TreeHash
	count uint64
}

// NewAccumulator creates an accumulator for namespace, anchored at a
// known (count, root) position and able to fall back to reader for any
// earlier node it needs but does not hold in-memory.
func NewAccumulator(namespace string, reader TreeNodeReader, count uint64, root TreeHash) *Accumulator {
	return &Accumulator{namespace: namespace, reader: reader, count: count, root: root}
}

// Append folds a new leaf into the chain and returns the root after the
// append.
func (a *Accumulator) Append(leaf TreeHash) TreeHash {
	a.root = Fold(a.root, leaf)
	a.count++
	return a.root
}

// Root returns the accumulator's current root.
func (a *Accumulator) Root() TreeHash { return a.root }

// Count returns the number of leaves folded into the accumulator so far.
func (a *Accumulator) Count() uint64 { return a.count }

// NodeAt returns the root as it stood after exactly n leaves had been
// folded in, consulting reader for positions earlier than the
// accumulator's own anchor.
func (a *Accumulator) NodeAt(n uint64) (TreeHash, bool) {
	if n == a.count {
		return a.root, true
	}
	if a.reader == nil {
		return TreeHash{}, false
	}
	return a.reader.GetTreeNode(a.namespace, NodeKey{Index: n})
}

// TreeDiff describes the nodes an accumulator run produced, so the
// caller can persist them without the accumulator needing to know about
// storage itself.
type TreeDiff struct {
	Namespace string
	NewNodes  map[NodeKey]TreeHash
	NewRoot   TreeHash
}

// ComputeTreeDiff folds each of hashes into the accumulator in order,
// starting from (startCount, startRoot), returning every intermediate
// node produced and the final root. The Commit Engine calls it after
// executing a batch to produce the transaction-tree nodes it persists
// with the commit; it does not compare the returned root against the
// proof.
func ComputeTreeDiff(namespace string, reader TreeNodeReader, startCount uint64, startRoot TreeHash, hashes []TreeHash) (TreeDiff, error) {
	if len(hashes) == 0 {
		return TreeDiff{}, fmt.Errorf("ledgerhashes: ComputeTreeDiff requires at least one leaf")
	}
	acc := NewAccumulator(namespace, reader, startCount, startRoot)
	diff := TreeDiff{Namespace: namespace, NewNodes: make(map[NodeKey]TreeHash)}
	for _, h := range hashes {
		root := acc.Append(h)
		diff.NewNodes[NodeKey{Index: acc.count}] = root
		diff.NewRoot = root
	}
	return diff, nil
}
