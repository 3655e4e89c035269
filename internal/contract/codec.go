package contract

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/DebuggerAu/kin-sdk-core/pkg/kinerr"
	"github.com/ethereum/go-ethereum/common"
)

// wordSize is the ABI slot width.
const wordSize = 32

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// EncodeBalanceOf encodes balanceOf(owner).
func EncodeBalanceOf(owner common.Address) ([]byte, error) {
	return pack(MethodBalanceOf, owner)
}

// DecodeBalanceOf decodes the uint256 returned by balanceOf.
func DecodeBalanceOf(data []byte) (*big.Int, error) {
	return decodeUint256(MethodBalanceOf, data)
}

// EncodeTotalSupply encodes totalSupply().
func EncodeTotalSupply() ([]byte, error) {
	return pack(MethodTotalSupply)
}

// DecodeTotalSupply decodes the uint256 returned by totalSupply.
func DecodeTotalSupply(data []byte) (*big.Int, error) {
	return decodeUint256(MethodTotalSupply, data)
}

// EncodeName encodes name().
func EncodeName() ([]byte, error) {
	return pack(MethodName)
}

// DecodeName decodes the string returned by name.
func DecodeName(data []byte) (string, error) {
	return decodeString(MethodName, data)
}

// EncodeSymbol encodes symbol().
func EncodeSymbol() ([]byte, error) {
	return pack(MethodSymbol)
}

// DecodeSymbol decodes the string returned by symbol.
func DecodeSymbol(data []byte) (string, error) {
	return decodeString(MethodSymbol, data)
}

// EncodeDecimals encodes decimals().
func EncodeDecimals() ([]byte, error) {
	return pack(MethodDecimals)
}

// DecodeDecimals decodes the uint8 returned by decimals.
func DecodeDecimals(data []byte) (uint8, error) {
	v, err := unpackOne(MethodDecimals, data)
	if err != nil {
		return 0, err
	}
	d, ok := v.(uint8)
	if !ok {
		return 0, decodeErr(MethodDecimals, "unexpected type %T", v)
	}
	return d, nil
}

// EncodeTransfer encodes transfer(to, amount). amount must be within uint256.
func EncodeTransfer(to common.Address, amount *big.Int) ([]byte, error) {
	if amount == nil || amount.Sign() < 0 || amount.Cmp(maxUint256) > 0 {
		return nil, kinerr.Newf(kinerr.Conversion, "encode transfer", "amount %v outside uint256 range", amount)
	}
	return pack(MethodTransfer, to, amount)
}

// DecodeTransferCall decodes transfer calldata back into its recipient and
// amount. It is the inverse of EncodeTransfer.
func DecodeTransferCall(calldata []byte) (common.Address, *big.Int, error) {
	method := parsed.Methods[MethodTransfer]
	if len(calldata) < 4 || !bytes.Equal(calldata[:4], method.ID) {
		return common.Address{}, nil, decodeErr(MethodTransfer, "calldata does not start with transfer selector")
	}
	args, err := method.Inputs.Unpack(calldata[4:])
	if err != nil {
		return common.Address{}, nil, kinerr.New(kinerr.Decoding, "decode "+MethodTransfer, err)
	}
	if len(args) != 2 {
		return common.Address{}, nil, decodeErr(MethodTransfer, "expected 2 arguments, got %d", len(args))
	}
	to, ok1 := args[0].(common.Address)
	amount, ok2 := args[1].(*big.Int)
	if !ok1 || !ok2 {
		return common.Address{}, nil, decodeErr(MethodTransfer, "unexpected argument types %T, %T", args[0], args[1])
	}
	return to, amount, nil
}

func pack(method string, args ...interface{}) ([]byte, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, kinerr.New(kinerr.OperationFailed, "encode "+method, err)
	}
	return data, nil
}

// unpackOne decodes a single return value. Empty data is always an error:
// a contract that is missing at the address returns "0x".
func unpackOne(method string, data []byte) (interface{}, error) {
	if len(data) == 0 {
		return nil, decodeErr(method, "empty return data")
	}
	values, err := parsed.Unpack(method, data)
	if err != nil {
		return nil, kinerr.New(kinerr.Decoding, "decode "+method, err)
	}
	if len(values) != 1 {
		return nil, decodeErr(method, "expected 1 return value, got %d", len(values))
	}
	return values[0], nil
}

func decodeUint256(method string, data []byte) (*big.Int, error) {
	if len(data) != wordSize {
		return nil, decodeErr(method, "return data is %d bytes, want %d", len(data), wordSize)
	}
	v, err := unpackOne(method, data)
	if err != nil {
		return nil, err
	}
	n, ok := v.(*big.Int)
	if !ok || n == nil {
		return nil, decodeErr(method, "unexpected type %T", v)
	}
	return n, nil
}

func decodeString(method string, data []byte) (string, error) {
	v, err := unpackOne(method, data)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", decodeErr(method, "unexpected type %T", v)
	}
	return s, nil
}

func decodeErr(method, format string, args ...interface{}) error {
	return kinerr.New(kinerr.Decoding, "decode "+method, fmt.Errorf(format, args...))
}
