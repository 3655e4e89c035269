// derive_key.go prints the public key and Kin account address for a key.
// Usage:
//
//	go run scripts/derive_key.go <keyfile>
//	go run scripts/derive_key.go -mnemonic "word ..." [-index 0]
//
// The key file holds one hex-encoded private key.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/DebuggerAu/kin-sdk-core/internal/wallet"
	"github.com/DebuggerAu/kin-sdk-core/pkg/crypto"
)

func main() {
	mnemonic := flag.String("mnemonic", "", "BIP-39 mnemonic instead of a key file")
	index := flag.Uint("index", 0, "Address index under m/44'/60'/0'/0")
	flag.Parse()

	var (
		key *crypto.PrivateKey
		err error
	)
	switch {
	case *mnemonic != "":
		key, err = fromMnemonic(*mnemonic, uint32(*index))
	case flag.NArg() == 1:
		key, err = fromFile(flag.Arg(0))
	default:
		fmt.Fprintln(os.Stderr, "usage: derive_key <keyfile> | -mnemonic \"...\" [-index n]")
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer key.Zero()

	pub := key.PublicKey()
	fmt.Printf("pubkey=%s\n", hex.EncodeToString(pub))
	fmt.Printf("address=%s\n", crypto.AddressFromPubKey(pub).Hex())
}

func fromFile(path string) (*crypto.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	keyBytes, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(string(data)), "0x"))
	if err != nil {
		return nil, err
	}
	return crypto.PrivateKeyFromBytes(keyBytes)
}

func fromMnemonic(mnemonic string, index uint32) (*crypto.PrivateKey, error) {
	return wallet.DeriveFromMnemonic(mnemonic, "", wallet.AccountPath(index))
}
