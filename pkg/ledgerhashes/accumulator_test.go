package ledgerhashes

import (
	"crypto/sha256"
	"testing"
)

func leafFrom(b byte) TreeHash {
	return sha256.Sum256([]byte{b})
}

func TestFold_Deterministic(t *testing.T) {
	parent := leafFrom(1)
	leaf := leafFrom(2)

	a := Fold(parent, leaf)
	b := Fold(parent, leaf)

	if a != b {
		t.Fatalf("Fold is not deterministic: %x != %x", a, b)
	}
}

func TestFold_OrderSensitive(t *testing.T) {
	x := leafFrom(1)
	y := leafFrom(2)

	if Fold(x, y) == Fold(y, x) {
		t.Fatalf("Fold must be order-sensitive, got equal roots for swapped arguments")
	}
}

func TestAccumulator_AppendIsDeterministicAcrossInstances(t *testing.T) {
	leaves := []TreeHash{leafFrom(1), leafFrom(2), leafFrom(3), leafFrom(4), leafFrom(5)}

	rootA := appendAll(leaves)
	rootB := appendAll(leaves)

	if rootA != rootB {
		t.Fatalf("two accumulators folding the same leaves diverged: %x != %x", rootA, rootB)
	}
}

func appendAll(leaves []TreeHash) TreeHash {
	acc := NewAccumulator("test", nil, 0, TreeHash{})
	var root TreeHash
	for _, l := range leaves {
		root = acc.Append(l)
	}
	return root
}

func TestAccumulator_EmptyRootIsZero(t *testing.T) {
	acc := NewAccumulator("test", nil, 0, TreeHash{})
	if !acc.Root().IsZero() {
		t.Fatalf("expected zero root for empty accumulator, got %x", acc.Root())
	}
}

func TestAccumulator_DifferentLeafSetsProduceDifferentRoots(t *testing.T) {
	rootA := appendAll([]TreeHash{leafFrom(1), leafFrom(2)})
	rootB := appendAll([]TreeHash{leafFrom(1), leafFrom(3)})

	if rootA == rootB {
		t.Fatalf("different leaf sets must not produce the same root")
	}
}

func TestComputeTreeDiff_MatchesIncrementalAppend(t *testing.T) {
	leaves := []TreeHash{leafFrom(1), leafFrom(2), leafFrom(3)}

	incremental := appendAll(leaves)

	diff, err := ComputeTreeDiff("test", nil, 0, TreeHash{}, leaves)
	if err != nil {
		t.Fatalf("ComputeTreeDiff: %v", err)
	}

	if diff.NewRoot != incremental {
		t.Fatalf("ComputeTreeDiff root %x does not match incremental Append root %x", diff.NewRoot, incremental)
	}
	if len(diff.NewNodes) != len(leaves) {
		t.Fatalf("expected %d new nodes, got %d", len(leaves), len(diff.NewNodes))
	}
}
