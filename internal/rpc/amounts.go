package rpc

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	ErrAmountNegative  = errors.New("amount cannot be negative")
	ErrAmountPrecision = errors.New("amount has more decimal places than the asset allows")
	ErrAmountOverflow  = errors.New("amount does not fit in 64 bits")
)

var maxUint64 = new(big.Int).SetUint64(^uint64(0))

// FormatAmount renders base units of an asset with its decimal places,
// e.g. 12345 with 2 decimals is "123.45".
func FormatAmount(units uint64, decimals uint8) string {
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(units), -int32(decimals))
	return d.StringFixed(int32(decimals))
}

// ParseAmount converts a decimal string to base units of an asset with
// the given decimal places.
func ParseAmount(value string, decimals uint8) (uint64, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, err
	}
	if d.IsNegative() {
		return 0, ErrAmountNegative
	}
	shifted := d.Shift(int32(decimals))
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, ErrAmountPrecision
	}
	units := shifted.BigInt()
	if units.Cmp(maxUint64) > 0 {
		return 0, ErrAmountOverflow
	}
	return units.Uint64(), nil
}
