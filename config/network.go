package config

import (
	"github.com/ethereum/go-ethereum/common"
)

// =============================================================================
// Network Parameters (fixed per network, not operator settings)
// =============================================================================

// Kin token contract addresses.
const (
	ContractAddressMainnet = "0x818fc6c2ec5986bc6e2cbf00939d90556ab12ce5"
	ContractAddressTestnet = "0xEF2Fcc998847DB203DEa15fC49d0872C7614910C"
)

// DefaultTransferGasLimit is the gas limit used for a token transfer call.
const DefaultTransferGasLimit uint64 = 60000

// TokenDecimals is the number of decimals the token contract reports.
const TokenDecimals = 18

// NetworkParams holds the fixed parameters of a network.
type NetworkParams struct {
	Network          NetworkType
	ChainID          int64
	ContractAddress  common.Address
	TransferGasLimit uint64
}

var networkParams = map[NetworkType]NetworkParams{
	Mainnet: {
		Network:          Mainnet,
		ChainID:          1,
		ContractAddress:  common.HexToAddress(ContractAddressMainnet),
		TransferGasLimit: DefaultTransferGasLimit,
	},
	Testnet: {
		Network:          Testnet,
		ChainID:          3, // Ropsten
		ContractAddress:  common.HexToAddress(ContractAddressTestnet),
		TransferGasLimit: DefaultTransferGasLimit,
	},
}

// ParamsFor returns the parameters of the given network.
// Unrecognised identifiers fall back to testnet.
func ParamsFor(network NetworkType) NetworkParams {
	if p, ok := networkParams[network]; ok {
		return p
	}
	return networkParams[Testnet]
}

// Params returns the network parameters for this config, with the contract
// address and gas limit overrides applied.
func (c *Config) Params() NetworkParams {
	p := ParamsFor(c.Network)
	if c.Contract.Address != "" && common.IsHexAddress(c.Contract.Address) {
		p.ContractAddress = common.HexToAddress(c.Contract.Address)
	}
	if c.Contract.GasLimit > 0 {
		p.TransferGasLimit = c.Contract.GasLimit
	}
	return p
}
