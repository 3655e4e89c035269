// Package crypto provides the signing and hashing primitives used by the
// key custody: secp256k1 keys, recoverable signatures and Keccak-256.
package crypto

import (
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// Keccak256 computes the legacy Keccak-256 hash of the concatenated inputs.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, b := range data {
		h.Write(b)
	}
	return h.Sum(nil)
}

// AddressFromPubKey derives an account address from an uncompressed public key.
// Address = Keccak256(pubkey[1:])[12:].
func AddressFromPubKey(pubKey []byte) common.Address {
	if len(pubKey) != 65 {
		return common.Address{}
	}
	return common.BytesToAddress(Keccak256(pubKey[1:])[12:])
}
