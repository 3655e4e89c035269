package contract

import (
	"math/big"

	"github.com/DebuggerAu/kin-sdk-core/pkg/kinerr"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// TxParams are the per-submission values fetched right before signing.
type TxParams struct {
	Nonce    uint64
	GasPrice *big.Int
	GasLimit uint64
}

// TransferTx builds the unsigned legacy transaction calling
// token.transfer(to, amount).
func TransferTx(token common.Address, p TxParams, to common.Address, amount *big.Int) (*types.Transaction, error) {
	const op = "build transfer"

	if p.GasPrice == nil || p.GasPrice.Sign() < 0 {
		return nil, kinerr.Newf(kinerr.OperationFailed, op, "invalid gas price %v", p.GasPrice)
	}
	if p.GasLimit == 0 {
		return nil, kinerr.Newf(kinerr.OperationFailed, op, "gas limit must be positive")
	}

	data, err := EncodeTransfer(to, amount)
	if err != nil {
		return nil, err
	}

	return types.NewTx(&types.LegacyTx{
		Nonce:    p.Nonce,
		GasPrice: new(big.Int).Set(p.GasPrice),
		Gas:      p.GasLimit,
		To:       &token,
		Value:    new(big.Int),
		Data:     data,
	}), nil
}
