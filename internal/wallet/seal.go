package wallet

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	kdfArgon2id        = "argon2id"
	cipherXChaCha20    = "xchacha20-poly1305"
	saltSize           = 32
	maxArgon2MemoryKiB = 1 << 20
)

// EncryptionParams are the Argon2id costs used when sealing a key. They are
// stored next to the ciphertext, so keys sealed with different parameters
// can live in one keystore.
type EncryptionParams struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
}

// DefaultParams costs 64 MiB and three passes per unlock.
func DefaultParams() EncryptionParams {
	return EncryptionParams{Memory: 64 << 10, Iterations: 3, Parallelism: 4}
}

// LightParams is for phones and other memory-constrained devices.
func LightParams() EncryptionParams {
	return EncryptionParams{Memory: 16 << 10, Iterations: 2, Parallelism: 1}
}

func (p EncryptionParams) validate() error {
	switch {
	case p.Memory == 0, p.Iterations == 0, p.Parallelism == 0:
		return fmt.Errorf("argon2 parameters must be non-zero, got %+v", p)
	case p.Memory > maxArgon2MemoryKiB:
		return fmt.Errorf("argon2 memory %d KiB over the %d KiB limit", p.Memory, maxArgon2MemoryKiB)
	}
	return nil
}

// sealedKey is the encrypted private key inside a key file.
type sealedKey struct {
	KDF        string        `json:"kdf"`
	Salt       hexutil.Bytes `json:"salt"`
	Memory     uint32        `json:"m"`
	Iterations uint32        `json:"t"`
	Threads    uint8         `json:"p"`
	Cipher     string        `json:"cipher"`
	Nonce      hexutil.Bytes `json:"nonce"`
	Ciphertext hexutil.Bytes `json:"ciphertext"`
}

func (s *sealedKey) params() EncryptionParams {
	return EncryptionParams{Memory: s.Memory, Iterations: s.Iterations, Parallelism: s.Threads}
}

func (s *sealedKey) aead(passphrase []byte) (cipher.AEAD, error) {
	p := s.params()
	key := argon2.IDKey(passphrase, s.Salt, p.Iterations, p.Memory, p.Parallelism, chacha20poly1305.KeySize)
	defer zero(key)
	return chacha20poly1305.NewX(key)
}

// seal encrypts secret under passphrase with a fresh salt and nonce.
func seal(secret, passphrase []byte, params EncryptionParams) (*sealedKey, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	s := &sealedKey{
		KDF:        kdfArgon2id,
		Salt:       make([]byte, saltSize),
		Memory:     params.Memory,
		Iterations: params.Iterations,
		Threads:    params.Parallelism,
		Cipher:     cipherXChaCha20,
		Nonce:      make([]byte, chacha20poly1305.NonceSizeX),
	}
	if _, err := rand.Read(s.Salt); err != nil {
		return nil, fmt.Errorf("salt: %w", err)
	}
	if _, err := rand.Read(s.Nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}

	aead, err := s.aead(passphrase)
	if err != nil {
		return nil, err
	}
	s.Ciphertext = aead.Seal(nil, s.Nonce, secret, nil)
	return s, nil
}

// open decrypts s. A malformed envelope is ErrCorruptedKey. Failed
// authentication is ErrWrongPassphrase, since the AEAD cannot tell a wrong
// passphrase from a damaged ciphertext.
func (s *sealedKey) open(passphrase []byte) ([]byte, error) {
	if s.KDF != kdfArgon2id || s.Cipher != cipherXChaCha20 {
		return nil, fmt.Errorf("%w: unsupported scheme %s/%s", ErrCorruptedKey, s.KDF, s.Cipher)
	}
	if err := s.params().validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedKey, err)
	}
	if len(s.Salt) != saltSize || len(s.Nonce) != chacha20poly1305.NonceSizeX ||
		len(s.Ciphertext) < chacha20poly1305.Overhead {
		return nil, fmt.Errorf("%w: truncated envelope", ErrCorruptedKey)
	}

	aead, err := s.aead(passphrase)
	if err != nil {
		return nil, err
	}
	secret, err := aead.Open(nil, s.Nonce, s.Ciphertext, nil)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return secret, nil
}

func zero(b []byte) {
	clear(b)
}
