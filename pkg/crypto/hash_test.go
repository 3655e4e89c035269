package crypto

import (
	"encoding/hex"
	"testing"
)

func TestKeccak256(t *testing.T) {
	tests := []struct {
		name  string
		input [][]byte
		want  string
	}{
		{
			name:  "empty input",
			input: nil,
			want:  "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		},
		{
			name:  "transfer event signature",
			input: [][]byte{[]byte("Transfer(address,address,uint256)")},
			want:  "ddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef",
		},
		{
			name:  "split input",
			input: [][]byte{[]byte("Transfer(address,"), []byte("address,uint256)")},
			want:  "ddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := hex.EncodeToString(Keccak256(tt.input...))
			if got != tt.want {
				t.Errorf("Keccak256() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAddressFromPubKey_KnownKey(t *testing.T) {
	// Private key 1 has a well-known address.
	secret := make([]byte, 32)
	secret[31] = 1
	key, err := PrivateKeyFromBytes(secret)
	if err != nil {
		t.Fatalf("PrivateKeyFromBytes() error: %v", err)
	}

	got := AddressFromPubKey(key.PublicKey())
	want := "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"
	if got.Hex() != want {
		t.Errorf("AddressFromPubKey() = %s, want %s", got.Hex(), want)
	}
}

func TestAddressFromPubKey_BadLength(t *testing.T) {
	if addr := AddressFromPubKey(make([]byte, 33)); addr != ([20]byte{}) {
		t.Errorf("compressed key should yield zero address, got %s", addr.Hex())
	}
}
