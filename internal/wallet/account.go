package wallet

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Account is a custody-held identity. It carries no key material; Ref names
// the key file that UnlockAndSign opens.
type Account struct {
	Address common.Address
	Ref     string
	Name    string
}

// String returns the checksummed address.
func (a Account) String() string {
	return a.Address.Hex()
}

// refFor returns the keystore reference for an address: lowercase hex without 0x.
func refFor(addr common.Address) string {
	return strings.ToLower(strings.TrimPrefix(addr.Hex(), "0x"))
}

// parseRef accepts a reference or an address in any case, with or without 0x.
func parseRef(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if !common.IsHexAddress(ref) {
		return "", false
	}
	return refFor(common.HexToAddress(ref)), true
}
