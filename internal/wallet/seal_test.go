package wallet

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

// fastParams keeps Argon2 cheap in tests.
func fastParams() EncryptionParams {
	return EncryptionParams{Memory: 64, Iterations: 1, Parallelism: 1}
}

func TestSeal_Open(t *testing.T) {
	secret := bytes.Repeat([]byte{0x42}, 32)
	s, err := seal(secret, []byte("hunter2"), fastParams())
	if err != nil {
		t.Fatalf("seal() error: %v", err)
	}
	if s.KDF != kdfArgon2id || s.Cipher != cipherXChaCha20 {
		t.Errorf("scheme = %s/%s", s.KDF, s.Cipher)
	}
	if len(s.Ciphertext) != len(secret)+16 {
		t.Errorf("ciphertext length = %d, want %d", len(s.Ciphertext), len(secret)+16)
	}

	got, err := s.open([]byte("hunter2"))
	if err != nil {
		t.Fatalf("open() error: %v", err)
	}
	if !bytes.Equal(got, secret) {
		t.Error("opened secret differs")
	}
}

func TestSeal_JSONRoundTrip(t *testing.T) {
	s, err := seal([]byte("key"), []byte("p"), fastParams())
	if err != nil {
		t.Fatalf("seal() error: %v", err)
	}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	var back sealedKey
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if back.params() != fastParams() {
		t.Errorf("params = %+v, want %+v", back.params(), fastParams())
	}
	if got, err := back.open([]byte("p")); err != nil || string(got) != "key" {
		t.Errorf("open after JSON = %q, %v", got, err)
	}
}

func TestOpen_WrongPassphrase(t *testing.T) {
	s, _ := seal([]byte("key"), []byte("right"), fastParams())
	if _, err := s.open([]byte("wrong")); !errors.Is(err, ErrWrongPassphrase) {
		t.Errorf("open() = %v, want ErrWrongPassphrase", err)
	}
}

func TestOpen_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*sealedKey)
		want   error
	}{
		{"scrypt", func(s *sealedKey) { s.KDF = "scrypt" }, ErrCorruptedKey},
		{"aes", func(s *sealedKey) { s.Cipher = "aes-128-ctr" }, ErrCorruptedKey},
		{"zero threads", func(s *sealedKey) { s.Threads = 0 }, ErrCorruptedKey},
		{"huge memory", func(s *sealedKey) { s.Memory = maxArgon2MemoryKiB + 1 }, ErrCorruptedKey},
		{"short salt", func(s *sealedKey) { s.Salt = s.Salt[:4] }, ErrCorruptedKey},
		{"short nonce", func(s *sealedKey) { s.Nonce = s.Nonce[:12] }, ErrCorruptedKey},
		{"empty ciphertext", func(s *sealedKey) { s.Ciphertext = nil }, ErrCorruptedKey},
		{"flipped byte", func(s *sealedKey) { s.Ciphertext[0] ^= 0xff }, ErrWrongPassphrase},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := seal([]byte("key"), []byte("p"), fastParams())
			if err != nil {
				t.Fatalf("seal() error: %v", err)
			}
			tt.mutate(s)
			if _, err := s.open([]byte("p")); !errors.Is(err, tt.want) {
				t.Errorf("open() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSeal_FreshSaltAndNonce(t *testing.T) {
	a, _ := seal([]byte("same"), []byte("same"), fastParams())
	b, _ := seal([]byte("same"), []byte("same"), fastParams())
	if bytes.Equal(a.Salt, b.Salt) || bytes.Equal(a.Nonce, b.Nonce) || bytes.Equal(a.Ciphertext, b.Ciphertext) {
		t.Error("two seals of the same secret should not share salt, nonce or ciphertext")
	}
}

func TestSeal_RejectsBadParams(t *testing.T) {
	if _, err := seal([]byte("x"), []byte("p"), EncryptionParams{}); err == nil {
		t.Error("zero params should fail")
	}
	if _, err := seal([]byte("x"), []byte("p"), EncryptionParams{Memory: maxArgon2MemoryKiB * 2, Iterations: 1, Parallelism: 1}); err == nil {
		t.Error("oversized memory should fail")
	}
}

func TestParams(t *testing.T) {
	def, light := DefaultParams(), LightParams()
	if err := def.validate(); err != nil {
		t.Errorf("DefaultParams invalid: %v", err)
	}
	if err := light.validate(); err != nil {
		t.Errorf("LightParams invalid: %v", err)
	}
	if light.Memory >= def.Memory {
		t.Errorf("LightParams memory %d should be below default %d", light.Memory, def.Memory)
	}
}
