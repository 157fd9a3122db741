package api

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Amounts cross the wire as decimal strings in standard units ("1.05"
// is 1.05 standard units). One standard unit is 1e9 base units, so nine
// fractional digits are representable and anything finer is rejected
// rather than rounded.

const baseUnitExponent = 9

// ParseAmount converts a display-unit decimal string into base units.
func ParseAmount(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("parse amount %q: negative", s)
	}

	base := d.Shift(baseUnitExponent)
	if !base.IsInteger() {
		return 0, fmt.Errorf("parse amount %q: finer than one base unit", s)
	}

	bi := base.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("parse amount %q: exceeds maximum value", s)
	}
	return bi.Uint64(), nil
}

// FormatAmount renders base units as a display-unit decimal string.
func FormatAmount(baseUnits uint64) string {
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(baseUnits), 0)
	return d.Shift(-baseUnitExponent).String()
}
