package crypto

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/ethereum/go-ethereum/common"
)

// Signature and digest sizes.
const (
	DigestSize    = 32
	SignatureSize = 65 // R(32) | S(32) | V(1), V in {0, 1}

	// compactMagic is the offset decred adds to the recovery code of a
	// compact signature over an uncompressed key.
	compactMagic = 27
)

// Signer produces recoverable signatures over 32-byte digests.
type Signer interface {
	// Sign returns a 65-byte R|S|V signature.
	Sign(digest []byte) ([]byte, error)
	// Address returns the account address of the signing key.
	Address() common.Address
}

// PrivateKey wraps a secp256k1 private key.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GenerateKey creates a new random secp256k1 private key.
func GenerateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes creates a PrivateKey from a 32-byte secret.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(b))
	}
	key := secp256k1.PrivKeyFromBytes(b)
	if key.Key.IsZero() {
		return nil, fmt.Errorf("private key is zero or a multiple of the curve order")
	}
	return &PrivateKey{key: key}, nil
}

// Sign produces a recoverable signature over a 32-byte digest.
// The signature is deterministic (RFC 6979) and has a low S value.
func (pk *PrivateKey) Sign(digest []byte) ([]byte, error) {
	if len(digest) != DigestSize {
		return nil, fmt.Errorf("digest must be %d bytes, got %d", DigestSize, len(digest))
	}
	compact := ecdsa.SignCompact(pk.key, digest, false)

	// decred layout is V|R|S with V = 27 + recovery code.
	sig := make([]byte, SignatureSize)
	copy(sig, compact[1:])
	sig[64] = compact[0] - compactMagic
	return sig, nil
}

// PublicKey returns the uncompressed 65-byte public key.
func (pk *PrivateKey) PublicKey() []byte {
	return pk.key.PubKey().SerializeUncompressed()
}

// Address returns the account address of this key.
func (pk *PrivateKey) Address() common.Address {
	return AddressFromPubKey(pk.PublicKey())
}

// Serialize returns the 32-byte private key scalar.
func (pk *PrivateKey) Serialize() []byte {
	return pk.key.Serialize()
}

// Zero securely zeroes the private key memory.
func (pk *PrivateKey) Zero() {
	pk.key.Zero()
}

// RecoverAddress returns the address whose key produced sig over digest.
func RecoverAddress(digest, sig []byte) (common.Address, error) {
	if len(digest) != DigestSize {
		return common.Address{}, fmt.Errorf("digest must be %d bytes, got %d", DigestSize, len(digest))
	}
	if len(sig) != SignatureSize {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d", SignatureSize, len(sig))
	}
	if sig[64] > 1 {
		return common.Address{}, fmt.Errorf("invalid recovery id %d", sig[64])
	}

	compact := make([]byte, SignatureSize)
	compact[0] = sig[64] + compactMagic
	copy(compact[1:], sig[:64])

	pub, _, err := ecdsa.RecoverCompact(compact, digest)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", err)
	}
	return AddressFromPubKey(pub.SerializeUncompressed()), nil
}
