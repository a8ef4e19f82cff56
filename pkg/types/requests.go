package types

// PrepareRequest carries everything the Prepare Engine needs to assemble
// a candidate vertex on top of an already-committed (but not necessarily
// locally-finalized) ancestor chain.
type PrepareRequest struct {
	// CommittedLedgerHashes must match the Prepare Engine's own view
	// of the committed ledger; mismatch is a fatal fence-check
	// failure (§7).
	CommittedLedgerHashes LedgerHashes

	// Ancestors are the already-agreed-but-not-yet-committed
	// transactions between the committed tip and this vertex's
	// parent, in order. They are replayed (cache-accelerated) before
	// the proposed transactions are considered.
	Ancestors []LedgerTransaction

	// RoundUpdate is injected ahead of every other proposed
	// transaction; it is guaranteed to fit an empty vertex.
	RoundUpdate LedgerTransaction

	// Proposed are the candidate user transactions to admit in order,
	// subject to vertex limits.
	Proposed []LedgerTransaction
}

// VertexStopReason explains why the Prepare Engine stopped admitting
// proposed transactions before exhausting the Proposed list.
type VertexStopReason int

const (
	StopReasonExhaustedProposed VertexStopReason = iota
	StopReasonCountLimit
	StopReasonSizeLimit
	StopReasonCostLimit
	StopReasonRejectedCostLimit
	StopReasonSignalLatched
)

func (s VertexStopReason) String() string {
	switch s {
	case StopReasonCountLimit:
		return "CountLimit"
	case StopReasonSizeLimit:
		return "SizeLimit"
	case StopReasonCostLimit:
		return "CostLimit"
	case StopReasonRejectedCostLimit:
		return "RejectedCostLimit"
	case StopReasonSignalLatched:
		return "SignalLatched"
	default:
		return "ExhaustedProposed"
	}
}

// PrepareResult is the vertex the Prepare Engine hands back to consensus.
type PrepareResult struct {
	Committed       []LedgerTransaction
	Rejected        []RejectedIdentifier
	ResultantHashes LedgerHashes
	StopReason      VertexStopReason
}

// CommitRequest carries an agreed vertex and its proof to the Commit
// Engine.
type CommitRequest struct {
	StartStateVersion StateVersion
	Transactions      []LedgerTransaction
	Proof             LedgerProof
	// RequireSuccess, when true (the default outside genesis), means
	// commit fails loudly instead of silently tolerating a rejected
	// transaction inside the batch — genesis core steps set this.
	RequireSuccess bool
}

// CommitSummary is returned on a successful commit.
type CommitSummary struct {
	EndStateVersion StateVersion
	ResultantHashes LedgerHashes
	EpochChanged    bool
	ProtocolChanged bool
}
