// Package money defines the fixed-point currency value used throughout the
// settlement service. Amounts are integers in the smallest currency unit;
// floating point is never used for balances or payouts.
package money

import (
	"errors"
	"fmt"
)

// Money is an amount in the smallest currency unit.
// Stored amounts (balances, stakes, payouts) are always >= 0; signed values
// appear only as transient deltas during settlement math and in ledger rows.
type Money int64

// Common errors for money operations.
var (
	ErrNegativeAmount = errors.New("amount must not be negative")
	ErrInvalidPercent = errors.New("percentage out of range")
)

// FloorPercent returns pct percent of m, rounded down to the nearest unit.
// This is the commission rule: floor(m * pct / 100). m must be >= 0 and
// pct in [0,100], so integer division is an exact floor.
func (m Money) FloorPercent(pct int) (Money, error) {
	if m < 0 {
		return 0, ErrNegativeAmount
	}
	if pct < 0 || pct > 100 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPercent, pct)
	}
	return m * Money(pct) / 100, nil
}

// Clamp raises m to min if it is below it. Used by the duel game, which
// bumps sub-minimum stakes up instead of rejecting them.
func Clamp(m, min Money) Money {
	if m < min {
		return min
	}
	return m
}
