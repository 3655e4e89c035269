package wallet

import (
	"fmt"

	"github.com/DebuggerAu/kin-sdk-core/pkg/crypto"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/tyler-smith/go-bip32"
)

// AccountPath returns m/44'/60'/0'/0/index. Kin lives on an EVM chain, so
// mnemonic accounts follow the same path as other Ethereum wallets and a
// phrase restores the same addresses everywhere.
func AccountPath(index uint32) accounts.DerivationPath {
	path := make(accounts.DerivationPath, len(accounts.DefaultBaseDerivationPath))
	copy(path, accounts.DefaultBaseDerivationPath)
	path[len(path)-1] = index
	return path
}

// DeriveKey walks path down from the BIP-32 master key of seed.
func DeriveKey(seed []byte, path accounts.DerivationPath) (*crypto.PrivateKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	node, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("master key: %w", err)
	}
	for depth, index := range path {
		if node, err = node.NewChildKey(index); err != nil {
			return nil, fmt.Errorf("derive %s at depth %d: %w", path, depth+1, err)
		}
	}

	raw := node.Key
	if len(raw) > 32 {
		raw = raw[len(raw)-32:]
	}
	secret := common.LeftPadBytes(raw, 32)
	defer zero(secret)
	return crypto.PrivateKeyFromBytes(secret)
}

// DeriveFromMnemonic derives the key at path from a BIP-39 mnemonic and its
// optional passphrase. The intermediate seed is wiped before returning.
func DeriveFromMnemonic(mnemonic, mnemonicPass string, path accounts.DerivationPath) (*crypto.PrivateKey, error) {
	seed, err := SeedFromMnemonic(mnemonic, mnemonicPass)
	if err != nil {
		return nil, err
	}
	defer zero(seed)
	return DeriveKey(seed, path)
}
