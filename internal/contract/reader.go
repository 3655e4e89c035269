package contract

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Caller executes read-only contract calls. A nil block selects the latest.
type Caller interface {
	CallContract(ctx context.Context, contract common.Address, data []byte, block *big.Int) ([]byte, error)
}

// Reader executes typed read-only calls against one token contract.
type Reader struct {
	caller  Caller
	address common.Address
}

// NewReader returns a Reader for the token deployed at address.
func NewReader(caller Caller, address common.Address) *Reader {
	return &Reader{caller: caller, address: address}
}

// Address returns the token contract address.
func (r *Reader) Address() common.Address {
	return r.address
}

// BalanceOf returns owner's balance in base units as of block.
func (r *Reader) BalanceOf(ctx context.Context, owner common.Address, block *big.Int) (*big.Int, error) {
	data, err := EncodeBalanceOf(owner)
	if err != nil {
		return nil, err
	}
	out, err := r.caller.CallContract(ctx, r.address, data, block)
	if err != nil {
		return nil, err
	}
	return DecodeBalanceOf(out)
}

// TotalSupply returns the token supply in base units.
func (r *Reader) TotalSupply(ctx context.Context, block *big.Int) (*big.Int, error) {
	data, err := EncodeTotalSupply()
	if err != nil {
		return nil, err
	}
	out, err := r.caller.CallContract(ctx, r.address, data, block)
	if err != nil {
		return nil, err
	}
	return DecodeTotalSupply(out)
}

// Name returns the token name.
func (r *Reader) Name(ctx context.Context, block *big.Int) (string, error) {
	data, err := EncodeName()
	if err != nil {
		return "", err
	}
	out, err := r.caller.CallContract(ctx, r.address, data, block)
	if err != nil {
		return "", err
	}
	return DecodeName(out)
}

// Symbol returns the token symbol.
func (r *Reader) Symbol(ctx context.Context, block *big.Int) (string, error) {
	data, err := EncodeSymbol()
	if err != nil {
		return "", err
	}
	out, err := r.caller.CallContract(ctx, r.address, data, block)
	if err != nil {
		return "", err
	}
	return DecodeSymbol(out)
}

// Decimals returns the token's decimal scale.
func (r *Reader) Decimals(ctx context.Context, block *big.Int) (uint8, error) {
	data, err := EncodeDecimals()
	if err != nil {
		return 0, err
	}
	out, err := r.caller.CallContract(ctx, r.address, data, block)
	if err != nil {
		return 0, err
	}
	return DecodeDecimals(out)
}
