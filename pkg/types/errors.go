package types

import "errors"

// Sentinel errors returned by the validator and the commit path. Each is
// wrapped with fmt.Errorf("...: %w", err) at the call site so callers can
// errors.Is against the sentinel while still getting a specific message.
var (
	// ErrDecodeFailed means the raw transaction bytes could not even
	// be parsed into a structural shape.
	ErrDecodeFailed = errors.New("transaction decode failed")

	// ErrSignatureInvalid means the notarized envelope's signature
	// does not verify against its claimed public key.
	ErrSignatureInvalid = errors.New("transaction signature invalid")

	// ErrTransactionTooLarge means the raw payload exceeds the
	// configured maximum transaction size.
	ErrTransactionTooLarge = errors.New("transaction exceeds maximum size")

	// ErrOutsideEpochWindow means the transaction's declared
	// valid-epoch range does not include the current epoch.
	ErrOutsideEpochWindow = errors.New("transaction outside valid epoch window")

	// ErrStructuralInvariant means the transaction's shape violates
	// one or more structural invariants (see ValidationViolationError).
	ErrStructuralInvariant = errors.New("transaction structural invariant violated")

	// ErrCommitRootMismatch means the ledger hashes locally recomputed
	// by re-executing a commit batch do not match the ledger hashes the
	// supplied proof claims. No state is persisted.
	ErrCommitRootMismatch = errors.New("commit transaction root mismatch")

	// ErrTransactionParsingFailed is returned by the Commit Engine
	// when a transaction in the committed batch fails validation —
	// this should never happen for an agreed vertex and indicates a
	// serious upstream bug, but unlike the fatal conditions below it
	// is surfaced as an error rather than a panic, matching the
	// original's InvalidCommitRequestError::TransactionParsingFailed.
	ErrTransactionParsingFailed = errors.New("commit request transaction parsing failed")
)
