package validator

import (
	"crypto/ed25519"
	"errors"
	"testing"

	"github.com/certen/state-computer/pkg/types"
)

func signedUserTx(t *testing.T, payload []byte) types.LedgerTransaction {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	sig := ed25519.Sign(priv, payload)
	return types.LedgerTransaction{
		Kind:      types.KindUser,
		Raw:       payload,
		PublicKey: pub,
		Signature: sig,
	}
}

func TestValidate_AcceptsWellFormedUserTransaction(t *testing.T) {
	v := New(DefaultConfig())
	tx := signedUserTx(t, []byte("hello ledger"))

	vt, err := v.Validate(tx, 0)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if vt.LedgerHash.IsZero() {
		t.Fatalf("expected non-zero ledger hash")
	}
	if vt.IntentHash == vt.NotarizedHash {
		t.Fatalf("intent hash and notarized hash must differ")
	}
}

func TestValidate_RejectsBadSignature(t *testing.T) {
	v := New(DefaultConfig())
	tx := signedUserTx(t, []byte("hello ledger"))
	tx.Signature[0] ^= 0xFF

	_, err := v.Validate(tx, 0)
	if !errors.Is(err, types.ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestValidate_RejectsOversizedTransaction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTransactionSizeBytes = 4
	v := New(cfg)
	tx := signedUserTx(t, []byte("this payload is too long"))

	_, err := v.Validate(tx, 0)
	if !errors.Is(err, types.ErrTransactionTooLarge) {
		t.Fatalf("expected ErrTransactionTooLarge, got %v", err)
	}
}

func TestValidate_RejectsRoundUpdateMissingHistory(t *testing.T) {
	v := New(DefaultConfig())
	tx := types.LedgerTransaction{
		Kind:                types.KindRoundUpdate,
		Raw:                 []byte("round"),
		ProposerTimestampMs: 1,
	}

	_, err := v.Validate(tx, 0)
	if !errors.Is(err, types.ErrStructuralInvariant) {
		t.Fatalf("expected ErrStructuralInvariant, got %v", err)
	}
}

func TestSwappable_SwapChangesBehavior(t *testing.T) {
	s := NewSwappable(New(DefaultConfig()))
	strict := DefaultConfig()
	strict.MaxTransactionSizeBytes = 1
	s.Swap(New(strict))

	tx := signedUserTx(t, []byte("too big now"))
	_, err := s.Validate(tx, 0)
	if !errors.Is(err, types.ErrTransactionTooLarge) {
		t.Fatalf("expected swapped-in stricter validator to reject, got %v", err)
	}
}
