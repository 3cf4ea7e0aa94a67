package sui

import (
	"crypto/ed25519"
	"encoding/base64"
	"strings"
	"testing"

	"golang.org/x/crypto/blake2b"
)

func TestSigner_Address(t *testing.T) {
	signer, err := GenerateSigner()
	if err != nil {
		t.Fatalf("GenerateSigner failed: %v", err)
	}

	addr := signer.Address()
	if !strings.HasPrefix(addr, "0x") {
		t.Errorf("expected 0x prefix, got %q", addr)
	}
	if len(addr) != 2+64 {
		t.Errorf("expected 32-byte hex address, got length %d", len(addr))
	}
	if addr != signer.Address() {
		t.Error("expected address derivation to be deterministic")
	}
}

func TestSigner_RoundTrip(t *testing.T) {
	signer, err := GenerateSigner()
	if err != nil {
		t.Fatalf("GenerateSigner failed: %v", err)
	}

	restored, err := NewSigner(signer.PrivateKey())
	if err != nil {
		t.Fatalf("NewSigner failed: %v", err)
	}
	if restored.Address() != signer.Address() {
		t.Errorf("expected same address after restore, got %q and %q", signer.Address(), restored.Address())
	}
}

func TestSigner_RejectsBadKey(t *testing.T) {
	if _, err := NewSigner([]byte("short")); err == nil {
		t.Error("expected error for invalid key length")
	}
}

func TestSignTransaction(t *testing.T) {
	signer, err := GenerateSigner()
	if err != nil {
		t.Fatalf("GenerateSigner failed: %v", err)
	}

	txBytes := []byte("serialized transaction")
	serialized, err := base64.StdEncoding.DecodeString(signer.SignTransaction(txBytes))
	if err != nil {
		t.Fatalf("signature is not valid base64: %v", err)
	}

	if len(serialized) != 1+ed25519.SignatureSize+ed25519.PublicKeySize {
		t.Fatalf("unexpected serialized signature length %d", len(serialized))
	}
	if serialized[0] != ed25519Flag {
		t.Errorf("expected ed25519 scheme flag, got %#x", serialized[0])
	}

	sig := serialized[1 : 1+ed25519.SignatureSize]
	pub := ed25519.PublicKey(serialized[1+ed25519.SignatureSize:])

	msg := append(append([]byte{}, intentTransactionData...), txBytes...)
	digest := blake2b.Sum256(msg)
	if !ed25519.Verify(pub, digest[:], sig) {
		t.Error("signature does not verify over the intent digest")
	}
}
