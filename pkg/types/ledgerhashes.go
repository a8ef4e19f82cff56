package types

// LedgerHashes is the triple of accumulator roots that together summarize
// a committed ledger prefix: every committed transaction, the receipts it
// produced, and the resultant substate tree.
type LedgerHashes struct {
	TransactionRoot Hash32
	ReceiptRoot     Hash32
	StateRoot       Hash32
}

// EpochIdentifiers anchors an epoch's accumulators: the epoch number, the
// state version at which the epoch started, and the transaction hash of
// the last transaction committed before the epoch started (genesis has no
// such transaction, so that field is zero for epoch 1).
type EpochIdentifiers struct {
	Epoch                      Epoch
	StateVersionAtEpochStart   StateVersion
	TransactionHashAtEpochStart Hash32
}

// LedgerProof is the externally-supplied proof that a set of ledger
// hashes was agreed by consensus. Its internal structure (signatures,
// timestamped vote data) belongs to the consensus layer and is opaque to
// the state computer beyond the fields it needs to cross-check.
type LedgerProof struct {
	AtStateVersion  StateVersion
	LedgerHashes    LedgerHashes
	Epoch           Epoch
	Round           Round
	// NextEpoch is non-nil when this proof closes out an epoch and
	// carries the identifiers of the epoch that follows.
	NextEpoch *EpochIdentifiers
	// NextProtocolVersion is non-empty when this proof enacts a
	// protocol version change alongside (or instead of) an epoch
	// change.
	NextProtocolVersion ProtocolVersion
	// Opaque carries the consensus-specific proof bytes (quorum
	// certificate, signatures, ...). The state computer never
	// interprets it, only stores and returns it.
	Opaque []byte
}
