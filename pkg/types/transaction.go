package types

// TransactionKind tags the three shapes a ledger transaction can take.
type TransactionKind int

const (
	// KindUser is an ordinary user-submitted, notarized transaction.
	KindUser TransactionKind = iota
	// KindRoundUpdate is the leader-injected transaction that advances
	// the round and carries proposer timestamp / leader history data.
	KindRoundUpdate
	// KindGenesis is one chunk of the genesis transaction sequence.
	KindGenesis
)

func (k TransactionKind) String() string {
	switch k {
	case KindUser:
		return "User"
	case KindRoundUpdate:
		return "RoundUpdate"
	case KindGenesis:
		return "Genesis"
	default:
		return "Unknown"
	}
}

// LeaderProposalHistory is carried by a RoundUpdate transaction and
// records which validators were asked to lead the rounds since the last
// committed round, for leader-round-counter accounting.
type LeaderProposalHistory struct {
	GapRoundLeaderAddresses []string
	CurrentLeaderAddress    string
	IsFallback              bool
}

// LedgerTransaction is the raw, not-yet-validated unit the state computer
// receives from the mempool (for user transactions) or synthesizes
// itself (round updates, genesis chunks). Its encoded payload format is
// outside the scope of this module; Raw is treated as an opaque blob.
type LedgerTransaction struct {
	Kind TransactionKind
	Raw  []byte

	// Populated only for KindRoundUpdate.
	ProposerTimestampMs int64
	LeaderHistory       *LeaderProposalHistory

	// Populated only for KindUser; the notarized envelope's signer
	// public key, used by the validator's signature check.
	PublicKey []byte
	Signature []byte

	// EpochValidityStart is the epoch from which this transaction is
	// valid; it must be submitted within EpochWindowSize epochs of
	// this value. Zero (the default) means "valid from epoch zero",
	// so synthetically-constructed transactions are valid by default.
	EpochValidityStart Epoch
}

// ValidatedTransaction is a LedgerTransaction that has passed every
// structural, signature, size and epoch-window check the validator
// performs. Only validated transactions may be handed to the VM.
type ValidatedTransaction struct {
	Kind          TransactionKind
	Raw           []byte
	LedgerHash    LedgerTransactionHash
	IntentHash    IntentHash
	NotarizedHash NotarizedHash

	ProposerTimestampMs int64
	LeaderHistory       *LeaderProposalHistory

	SizeBytes int
}

// CommittedTransaction pairs a validated transaction with the receipt the
// VM produced for it and the resultant ledger hashes after it was
// applied; this is the unit persisted by Store.Commit and replayed during
// ancestor re-execution.
type CommittedTransaction struct {
	Transaction    ValidatedTransaction
	Receipt        Receipt
	ResultantHashes LedgerHashes
	StateVersion   StateVersion
}
