package core

import (
	"fmt"
	"math"
)

// Payee is one destination in a settlement percentage table.
type Payee struct {
	Account string `json:"account"`
	Percent uint64 `json:"percent"`
}

// ValidatePayees checks that a percentage table is usable: at least one
// payee, every account named, and percentages summing to exactly 100.
func ValidatePayees(payees []Payee) error {
	if len(payees) == 0 {
		return fmt.Errorf("payee table is empty")
	}
	var sum uint64
	for _, p := range payees {
		if p.Account == "" {
			return fmt.Errorf("payee with %d%% has no account", p.Percent)
		}
		sum += p.Percent
	}
	if sum != 100 {
		return fmt.Errorf("payee percentages sum to %d, want 100", sum)
	}
	return nil
}

// SplitAmount divides total across the percentage table. Every payee
// but the last receives floor(total * percent / 100) with a checked
// multiply; the last payee receives the remainder with a checked
// subtract. The remainder-to-last rule guarantees the shares always sum
// to exactly total, with no rounding dust lost or created.
//
// ErrUnderflow here signals a broken percentage table (shares exceeding
// the total), not a caller mistake.
func SplitAmount(total uint64, payees []Payee) ([]uint64, error) {
	shares := make([]uint64, len(payees))
	remainder := total
	for i, p := range payees[:len(payees)-1] {
		if p.Percent != 0 && total > math.MaxUint64/p.Percent {
			return nil, ErrOverflow
		}
		share := total * p.Percent / 100
		if share > remainder {
			return nil, ErrUnderflow
		}
		shares[i] = share
		remainder -= share
	}
	shares[len(payees)-1] = remainder
	return shares, nil
}
