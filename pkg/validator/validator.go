// Package validator implements the Transaction Validator: the component
// that turns a raw LedgerTransaction into a ValidatedTransaction by
// checking its signature, size, epoch window and structural invariants.
// It is swappable at a protocol-version boundary (§4.3), which is why it
// is expressed as an interface with one shipped implementation.
package validator

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"

	"github.com/certen/state-computer/pkg/types"
)

// Config bounds what the validator will accept.
type Config struct {
	MaxTransactionSizeBytes int
	EpochWindowSize         types.Epoch
}

// DefaultConfig returns conservative, generous defaults suitable for a
// freshly-bootstrapped network.
func DefaultConfig() Config {
	return Config{
		MaxTransactionSizeBytes: 1 << 20,
		EpochWindowSize:         100,
	}
}

// Validator validates and structurally classifies ledger transactions. It
// is swapped as a whole unit on a protocol-version-enacting commit, so
// callers hold it behind a pointer guarded by a RWMutex rather than
// mutating it in place.
type Validator interface {
	Validate(tx types.LedgerTransaction, currentEpoch types.Epoch) (types.ValidatedTransaction, error)
}

type validatorV1 struct {
	cfg Config
}

// New constructs the shipped validator implementation.
func New(cfg Config) Validator {
	return &validatorV1{cfg: cfg}
}

func (v *validatorV1) Validate(tx types.LedgerTransaction, currentEpoch types.Epoch) (types.ValidatedTransaction, error) {
	if len(tx.Raw) == 0 {
		return types.ValidatedTransaction{}, fmt.Errorf("%w: empty payload", types.ErrDecodeFailed)
	}
	if len(tx.Raw) > v.cfg.MaxTransactionSizeBytes {
		return types.ValidatedTransaction{}, fmt.Errorf("%w: %d bytes exceeds limit %d",
			types.ErrTransactionTooLarge, len(tx.Raw), v.cfg.MaxTransactionSizeBytes)
	}

	if tx.Kind == types.KindUser {
		if err := verifySignature(tx); err != nil {
			return types.ValidatedTransaction{}, err
		}
		start := tx.EpochValidityStart
		if currentEpoch < start || currentEpoch > start+v.cfg.EpochWindowSize {
			return types.ValidatedTransaction{}, fmt.Errorf("%w: tx valid from epoch %d, current epoch %d",
				types.ErrOutsideEpochWindow, start, currentEpoch)
		}
	}

	if err := validateStructure(tx); err != nil {
		return types.ValidatedTransaction{}, err
	}

	ledgerHash := sha256.Sum256(tx.Raw)
	vt := types.ValidatedTransaction{
		Kind:                tx.Kind,
		Raw:                 tx.Raw,
		LedgerHash:          ledgerHash,
		SizeBytes:           len(tx.Raw),
		ProposerTimestampMs: tx.ProposerTimestampMs,
		LeaderHistory:       tx.LeaderHistory,
	}
	if tx.Kind == types.KindUser {
		vt.IntentHash = sha256.Sum256(append([]byte("intent:"), tx.Raw...))
		vt.NotarizedHash = sha256.Sum256(append([]byte("notarized:"), tx.Raw...))
	}
	return vt, nil
}

func verifySignature(tx types.LedgerTransaction) error {
	if len(tx.PublicKey) != ed25519.PublicKeySize || len(tx.Signature) != ed25519.SignatureSize {
		return fmt.Errorf("%w: malformed key/signature lengths", types.ErrSignatureInvalid)
	}
	if !ed25519.Verify(ed25519.PublicKey(tx.PublicKey), tx.Raw, tx.Signature) {
		return fmt.Errorf("%w", types.ErrSignatureInvalid)
	}
	return nil
}

// validateStructure collects every structural violation before failing,
// so a caller sees the full picture instead of only the first problem.
func validateStructure(tx types.LedgerTransaction) error {
	var violations []string
	add := func(msg string) { violations = append(violations, msg) }

	switch tx.Kind {
	case types.KindUser:
		if len(tx.PublicKey) == 0 {
			add("user transaction missing public key")
		}
	case types.KindRoundUpdate:
		if tx.LeaderHistory == nil {
			add("round update missing leader proposal history")
		} else if tx.LeaderHistory.CurrentLeaderAddress == "" {
			add("round update leader history missing current leader address")
		}
		if tx.ProposerTimestampMs <= 0 {
			add("round update missing positive proposer timestamp")
		}
	case types.KindGenesis:
		// Genesis chunks are synthesized internally by the genesis
		// driver and carry no further structural requirements here.
	default:
		add(fmt.Sprintf("unknown transaction kind %d", tx.Kind))
	}

	if len(violations) > 0 {
		return fmt.Errorf("%w (%d):\n- %s", types.ErrStructuralInvariant, len(violations), strings.Join(violations, "\n- "))
	}
	return nil
}

// Swappable holds a Validator behind a RWMutex so handle_protocol_update
// can atomically swap in a new implementation while in-flight prepare/
// commit calls keep reading the old one until they re-acquire the lock.
type Swappable struct {
	mu sync.RWMutex
	v  Validator
}

// NewSwappable wraps an initial Validator.
func NewSwappable(v Validator) *Swappable {
	return &Swappable{v: v}
}

// Validate delegates to the currently-installed validator.
func (s *Swappable) Validate(tx types.LedgerTransaction, currentEpoch types.Epoch) (types.ValidatedTransaction, error) {
	s.mu.RLock()
	v := s.v
	s.mu.RUnlock()
	return v.Validate(tx, currentEpoch)
}

// Swap installs a new validator implementation, blocking until no
// in-flight Validate call holds the read lock.
func (s *Swappable) Swap(v Validator) {
	s.mu.Lock()
	s.v = v
	s.mu.Unlock()
}
