// Package balance reads an account's confirmed token balance.
package balance

import (
	"context"
	"fmt"
	"math/big"

	klog "github.com/DebuggerAu/kin-sdk-core/internal/log"
	"github.com/DebuggerAu/kin-sdk-core/internal/wallet"
	"github.com/DebuggerAu/kin-sdk-core/pkg/kinerr"
	"github.com/DebuggerAu/kin-sdk-core/pkg/units"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Chain is the ledger access the reader needs.
type Chain interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// TokenReader reads token balances.
type TokenReader interface {
	BalanceOf(ctx context.Context, owner common.Address, block *big.Int) (*big.Int, error)
}

// Balance is a confirmed balance as of one block. It is never cached.
type Balance struct {
	Account   wallet.Account
	Amount    decimal.Decimal
	BaseUnits *big.Int
	Block     uint64
}

// Reader fetches confirmed balances.
type Reader struct {
	chain Chain
	token TokenReader
}

// NewReader returns a Reader over chain and token.
func NewReader(chain Chain, token TokenReader) *Reader {
	return &Reader{chain: chain, token: token}
}

// GetBalance returns account's confirmed balance at the current head block.
//
// An unreachable or refusing node keeps its Connectivity or RPC kind. A
// missing, undecodable or unconvertible value is kinerr.OperationFailed
// wrapping the cause, never a zero balance.
func (r *Reader) GetBalance(ctx context.Context, account wallet.Account) (Balance, error) {
	const op = "get balance"

	head, err := r.chain.BlockNumber(ctx)
	if err != nil {
		return Balance{}, failed(op, err)
	}

	base, err := r.token.BalanceOf(ctx, account.Address, new(big.Int).SetUint64(head))
	if err != nil {
		return Balance{}, failed(op, err)
	}
	if base == nil {
		return Balance{}, kinerr.New(kinerr.OperationFailed, op, fmt.Errorf("no balance returned for %s", account.Address.Hex()))
	}

	amount, err := units.ToAmount(base)
	if err != nil {
		return Balance{}, kinerr.New(kinerr.OperationFailed, op, err)
	}

	klog.Ledger.Debug().
		Str("account", account.Address.Hex()).
		Uint64("block", head).
		Str("amount", units.FormatAmount(amount)).
		Msg("Balance read")

	return Balance{
		Account:   account,
		Amount:    amount,
		BaseUnits: base,
		Block:     head,
	}, nil
}

// failed keeps transport and node errors retryable by kind. Everything else
// means no usable balance came back.
func failed(op string, err error) error {
	switch kind := kinerr.KindOf(err); kind {
	case kinerr.Connectivity, kinerr.RPC:
		return kinerr.New(kind, op, err)
	}
	return kinerr.New(kinerr.OperationFailed, op, err)
}
