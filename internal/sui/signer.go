package sui

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// ed25519Flag is the Sui signature scheme flag for ed25519 keys, used
// both in address derivation and serialized signatures.
const ed25519Flag = 0x00

// intentTransactionData prefixes transaction bytes before hashing:
// scope TransactionData, version V0, app ID Sui.
var intentTransactionData = []byte{0, 0, 0}

// Signer holds the node's ledger identity: an ed25519 keypair whose
// derived address is the PeerIdentity other nodes address envelopes to.
type Signer struct {
	priv ed25519.PrivateKey
}

func NewSigner(priv ed25519.PrivateKey) (*Signer, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid ed25519 private key length %d", len(priv))
	}
	return &Signer{priv: priv}, nil
}

// GenerateSigner creates a fresh keypair.
func GenerateSigner() (*Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating keypair: %w", err)
	}
	return &Signer{priv: priv}, nil
}

func (s *Signer) PrivateKey() ed25519.PrivateKey {
	return s.priv
}

// Address derives the Sui address: blake2b-256 over the scheme flag
// followed by the public key, hex encoded.
func (s *Signer) Address() string {
	pub := s.priv.Public().(ed25519.PublicKey)
	data := make([]byte, 0, 1+len(pub))
	data = append(data, ed25519Flag)
	data = append(data, pub...)
	sum := blake2b.Sum256(data)
	return "0x" + hex.EncodeToString(sum[:])
}

// SignTransaction signs base64-decoded transaction bytes and returns
// the serialized signature (flag || signature || pubkey) in base64, the
// form sui_executeTransactionBlock expects.
func (s *Signer) SignTransaction(txBytes []byte) string {
	msg := make([]byte, 0, len(intentTransactionData)+len(txBytes))
	msg = append(msg, intentTransactionData...)
	msg = append(msg, txBytes...)
	digest := blake2b.Sum256(msg)

	sig := ed25519.Sign(s.priv, digest[:])
	pub := s.priv.Public().(ed25519.PublicKey)

	serialized := make([]byte, 0, 1+len(sig)+len(pub))
	serialized = append(serialized, ed25519Flag)
	serialized = append(serialized, sig...)
	serialized = append(serialized, pub...)
	return base64.StdEncoding.EncodeToString(serialized)
}
