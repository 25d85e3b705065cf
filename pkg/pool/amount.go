package pool

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// FormatAmount renders a base-unit integer amount as a human-readable token
// amount. Display only: comparisons between amounts must happen on the raw
// integers before this conversion, never on the formatted strings.
func FormatAmount(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}

// ParseAmount converts a human-readable token amount to base units.
// Fractional digits beyond the token's precision are rejected rather than
// silently truncated.
func ParseAmount(value string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, err
	}
	shifted := d.Shift(int32(decimals))
	if !shifted.IsInteger() {
		return nil, errTooPrecise(value, decimals)
	}
	return shifted.BigInt(), nil
}

type amountPrecisionError struct {
	value    string
	decimals uint8
}

func errTooPrecise(value string, decimals uint8) error {
	return &amountPrecisionError{value: value, decimals: decimals}
}

func (e *amountPrecisionError) Error() string {
	return "amount " + e.value + " exceeds token precision of " +
		decimal.NewFromInt(int64(e.decimals)).String() + " decimals"
}
