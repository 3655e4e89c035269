// Package contract binds the fixed token contract ABI: pure encoders and
// decoders, a typed read-only Reader, and the transfer transaction builder.
//
// Decoders fail closed. Empty or malformed return data is a Decoding error,
// never a zero value.
package contract

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// TokenABI is the subset of the token contract's interface the wallet uses.
const TokenABI = `[
	{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"payable":false,"type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"payable":false,"type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"payable":false,"type":"function"},
	{"constant":true,"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"payable":false,"type":"function"},
	{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"payable":false,"type":"function"},
	{"constant":false,"inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"payable":false,"type":"function"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":false,"name":"value","type":"uint256"}],"name":"Transfer","type":"event"}
]`

// Method names.
const (
	MethodName        = "name"
	MethodSymbol      = "symbol"
	MethodDecimals    = "decimals"
	MethodTotalSupply = "totalSupply"
	MethodBalanceOf   = "balanceOf"
	MethodTransfer    = "transfer"

	EventTransfer = "Transfer"
)

// TransferEventTopic is Keccak256("Transfer(address,address,uint256)").
var TransferEventTopic = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")

// parsed is the parsed TokenABI. The definition is a compile-time constant,
// so a parse failure is a programming error.
var parsed = mustParse(TokenABI)

func mustParse(def string) abi.ABI {
	a, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("contract: invalid token ABI: " + err.Error())
	}
	return a
}

// ABI returns the parsed token ABI.
func ABI() abi.ABI {
	return parsed
}
