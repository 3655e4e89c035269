// Package units converts between whole-token decimal amounts and the integer
// base units stored by the token contract.
package units

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/DebuggerAu/kin-sdk-core/pkg/kinerr"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Decimals is the number of fractional digits of one token.
const Decimals = 18

// ToBaseUnits converts a whole-token amount to base units (amount * 10^18).
// It fails with a Conversion error for negative amounts, for amounts with
// more than Decimals fractional digits and for results above 2^256-1.
func ToBaseUnits(amount decimal.Decimal) (*big.Int, error) {
	if amount.Sign() < 0 {
		return nil, kinerr.Newf(kinerr.Conversion, "units.to_base", "negative amount %s", amount)
	}
	shifted := amount.Shift(Decimals)
	if !shifted.IsInteger() {
		return nil, kinerr.Newf(kinerr.Conversion, "units.to_base",
			"amount %s has more than %d decimal places", amount, Decimals)
	}
	v := shifted.BigInt()
	if _, overflow := uint256.FromBig(v); overflow {
		return nil, kinerr.Newf(kinerr.Conversion, "units.to_base", "amount %s overflows uint256", amount)
	}
	return v, nil
}

// ToAmount converts base units to a whole-token amount.
func ToAmount(v *big.Int) (decimal.Decimal, error) {
	if v == nil {
		return decimal.Zero, kinerr.Newf(kinerr.Conversion, "units.to_amount", "nil value")
	}
	if v.Sign() < 0 {
		return decimal.Zero, kinerr.Newf(kinerr.Conversion, "units.to_amount", "negative value %s", v)
	}
	if _, overflow := uint256.FromBig(v); overflow {
		return decimal.Zero, kinerr.Newf(kinerr.Conversion, "units.to_amount", "value overflows uint256")
	}
	return decimal.NewFromBigInt(v, -Decimals), nil
}

// ParseAmount parses a plain decimal string such as "1.5" or "-3".
// Exponent notation is rejected so the value typed is the value used.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, kinerr.Newf(kinerr.Conversion, "units.parse", "empty amount")
	}
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, kinerr.Newf(kinerr.Conversion, "units.parse", "exponent notation not allowed: %q", s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, kinerr.New(kinerr.Conversion, "units.parse", fmt.Errorf("invalid amount %q: %w", s, err))
	}
	return d, nil
}

// FormatAmount renders an amount without trailing zeros.
func FormatAmount(d decimal.Decimal) string {
	return d.String()
}

// FormatBaseUnits renders base units as a whole-token amount.
func FormatBaseUnits(v *big.Int) string {
	d, err := ToAmount(v)
	if err != nil {
		return "<invalid>"
	}
	return d.String()
}
